package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"reelgen/internal/http/handlers"
	"reelgen/internal/middleware"
)

// Options configures the router's middleware stack.
type Options struct {
	Logger         zerolog.Logger
	AllowedOrigins []string
	MaxBodyBytes   int64
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
		middleware.CORS(opts.AllowedOrigins),
	)
	if opts.MaxBodyBytes > 0 {
		r.Use(chimw.RequestSize(opts.MaxBodyBytes))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/v1/healthz", app.Health)

	r.Post("/v1/videos", app.VideosStart)
	r.Get("/v1/videos/status", app.VideoStatus)
	r.Post("/v1/videos/generate", app.VideosGenerate)
	r.Get("/v1/videos/events", app.VideoEvents)

	// Legacy paths still called by the browser client.
	r.Post("/start-video", app.VideosStart)
	r.Get("/check-video-status", app.VideoStatus)
	r.Post("/generate-video", app.VideosGenerate)

	return r
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

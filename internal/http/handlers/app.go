package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"reelgen/internal/domain"
	"reelgen/internal/infra"
	videoprovider "reelgen/internal/providers/video"
	"reelgen/internal/worker"
)

// Queue accepts background work without blocking.
type Queue interface {
	Enqueue(t worker.Task) error
	Depth() int
}

// Deps wires the App. Generator serves the synchronous endpoint, Events the
// websocket stream; both are optional.
type Deps struct {
	Jobs        domain.JobRepository
	Queue       Queue
	Credentials domain.CredentialSource
	Generator   videoprovider.Generator
	Events      http.Handler
	Logger      *infra.Logger
	SyncTimeout time.Duration
	Now         func() time.Time
}

type App struct {
	Jobs        domain.JobRepository
	Queue       Queue
	Credentials domain.CredentialSource
	Generator   videoprovider.Generator
	Events      http.Handler
	Logger      *infra.Logger

	syncTimeout time.Duration
	now         func() time.Time
}

func NewApp(deps Deps) *App {
	logger := deps.Logger
	if logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	syncTimeout := deps.SyncTimeout
	if syncTimeout <= 0 {
		syncTimeout = 60 * time.Second
	}
	return &App{
		Jobs:        deps.Jobs,
		Queue:       deps.Queue,
		Credentials: deps.Credentials,
		Generator:   deps.Generator,
		Events:      deps.Events,
		Logger:      logger,
		syncTimeout: syncTimeout,
		now:         now,
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, msg string) {
	a.json(w, status, errorBody{Error: msg})
}

package handlers

import (
	"net/http"
)

type jobCounter interface {
	Len() int
}

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if a.Queue != nil {
		body["queueDepth"] = a.Queue.Depth()
	}
	if c, ok := a.Jobs.(jobCounter); ok {
		body["jobs"] = c.Len()
	}
	a.json(w, http.StatusOK, body)
}

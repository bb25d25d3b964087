package handlers

import (
	"context"
	"errors"
	"net/http"

	"reelgen/internal/domain"
	videoprovider "reelgen/internal/providers/video"
	"reelgen/internal/worker"
)

const (
	msgStarted       = "Video generation started. Poll the status endpoint with this jobId."
	estimatedTime    = "2-5 minutes"
	msgBusy          = "Server is busy, try again later"
	msgJobIDRequired = "jobId parameter is required"
	msgJobNotFound   = "Job not found"
	msgJobExpired    = "Job may have expired or does not exist"
	msgAllFailed     = "All video generation models failed"
)

type startResponse struct {
	Success       bool   `json:"success"`
	JobID         string `json:"jobId"`
	Status        string `json:"status"`
	Message       string `json:"message"`
	EstimatedTime string `json:"estimatedTime"`
}

type statusResponse struct {
	JobID       string  `json:"jobId"`
	Status      string  `json:"status"`
	VideoURL    *string `json:"videoUrl"`
	Error       *string `json:"error"`
	Details     string  `json:"details,omitempty"`
	Model       string  `json:"model,omitempty"`
	Prompt      string  `json:"prompt"`
	PhotosCount int     `json:"photosCount"`
	CreatedAt   int64   `json:"createdAt"`
	CompletedAt *int64  `json:"completedAt"`
}

type generateResponse struct {
	Success         bool   `json:"success"`
	VideoURL        string `json:"videoUrl"`
	Message         string `json:"message"`
	ModelUsed       string `json:"modelUsed"`
	PhotosProcessed int    `json:"photosProcessed"`
	Prompt          string `json:"prompt"`
}

type generateFailure struct {
	Error       string   `json:"error"`
	LastError   string   `json:"lastError"`
	TriedModels []string `json:"triedModels"`
}

// VideosStart records a job, hands it to the worker queue and answers 202
// without waiting for the provider.
func (a *App) VideosStart(w http.ResponseWriter, r *http.Request) {
	in, msg := decodeGenerationRequest(r)
	if in == nil {
		a.error(w, http.StatusBadRequest, msg)
		return
	}
	key, ok := a.apiKey(r.Context())
	if !ok {
		a.error(w, http.StatusInternalServerError, msgMissingAPIKey)
		return
	}

	job, err := a.createJob(r.Context(), in)
	if err != nil {
		a.Logger.Error().Err(err).Msg("create job failed")
		a.error(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	log := a.Logger.With().Str("job_id", job.ID).Logger()

	err = a.Queue.Enqueue(worker.Task{
		JobID:  job.ID,
		Prompt: in.Prompt,
		Photos: in.Photos,
		APIKey: key,
	})
	if err != nil {
		log.Warn().Err(err).Int("queue_depth", a.Queue.Depth()).Msg("enqueue rejected")
		// The job is already visible, so it must not stay processing forever.
		_ = a.Jobs.UpdateStatus(context.WithoutCancel(r.Context()), job.ID, domain.Failed(msgBusy, err.Error(), "", a.now()))
		a.error(w, http.StatusServiceUnavailable, msgBusy)
		return
	}

	log.Info().Int("photos", len(in.Photos)).Msg("video job accepted")
	a.json(w, http.StatusAccepted, startResponse{
		Success:       true,
		JobID:         job.ID,
		Status:        string(domain.JobStatusProcessing),
		Message:       msgStarted,
		EstimatedTime: estimatedTime,
	})
}

// createJob retries once on the unlikely id collision.
func (a *App) createJob(ctx context.Context, in *generationInput) (*domain.Job, error) {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		now := a.now()
		job := &domain.Job{
			ID:         domain.NewJobID(now),
			Prompt:     in.Prompt,
			PhotoCount: in.Submitted,
			CreatedAt:  now,
		}
		if err = a.Jobs.Create(ctx, job); err == nil {
			return job, nil
		}
		if !errors.Is(err, domain.ErrDuplicateJob) {
			return nil, err
		}
	}
	return nil, err
}

// VideoStatus reports a snapshot of the job. It never waits on the worker.
func (a *App) VideoStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("jobId")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, msgJobIDRequired)
		return
	}
	job, err := a.Jobs.GetByID(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.json(w, http.StatusNotFound, errorBody{Error: msgJobNotFound, Message: msgJobExpired})
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("load job failed")
		a.error(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	a.json(w, http.StatusOK, newStatusResponse(job))
}

func newStatusResponse(job *domain.Job) statusResponse {
	resp := statusResponse{
		JobID:       job.ID,
		Status:      string(job.Status),
		Details:     job.Details,
		Model:       job.Model,
		Prompt:      job.Prompt,
		PhotosCount: job.PhotoCount,
		CreatedAt:   job.CreatedAt.UnixMilli(),
	}
	if job.VideoURL != "" {
		v := job.VideoURL
		resp.VideoURL = &v
	}
	if job.Error != "" {
		e := job.Error
		resp.Error = &e
	}
	if !job.CompletedAt.IsZero() {
		ms := job.CompletedAt.UnixMilli()
		resp.CompletedAt = &ms
	}
	return resp
}

// VideosGenerate runs the provider inline with model fallback. Kept for
// clients that can hold a connection open; bounded by the sync timeout.
func (a *App) VideosGenerate(w http.ResponseWriter, r *http.Request) {
	in, msg := decodeGenerationRequest(r)
	if in == nil {
		a.error(w, http.StatusBadRequest, msg)
		return
	}
	key, ok := a.apiKey(r.Context())
	if !ok {
		a.error(w, http.StatusInternalServerError, msgMissingAPIKey)
		return
	}
	if a.Generator == nil {
		a.error(w, http.StatusNotImplemented, "Synchronous generation is disabled")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), a.syncTimeout)
	defer cancel()

	images := make([]string, 0, len(in.Photos))
	for _, p := range in.Photos {
		images = append(images, p.Data)
	}
	res, err := a.Generator.Generate(ctx, videoprovider.Request{
		APIKey: key,
		Prompt: in.Prompt,
		Images: images,
	})
	if err != nil {
		a.Logger.Warn().Err(err).Msg("synchronous generation failed")
		a.json(w, http.StatusInternalServerError, newGenerateFailure(err))
		return
	}
	a.json(w, http.StatusOK, generateResponse{
		Success:         true,
		VideoURL:        res.VideoURL,
		Message:         res.Message,
		ModelUsed:       res.Model,
		PhotosProcessed: len(in.Photos),
		Prompt:          in.Prompt,
	})
}

func newGenerateFailure(err error) generateFailure {
	out := generateFailure{Error: msgAllFailed, LastError: err.Error(), TriedModels: []string{}}
	var allFailed *videoprovider.AllModelsFailedError
	if errors.As(err, &allFailed) {
		out.TriedModels = allFailed.Tried
		if allFailed.Last != nil {
			out.LastError = allFailed.Last.Error()
		}
	}
	var statusErr *videoprovider.StatusError
	if errors.As(err, &statusErr) && statusErr.Body != "" {
		out.LastError = statusErr.Body
	}
	return out
}

// VideoEvents hands the connection to the websocket hub.
func (a *App) VideoEvents(w http.ResponseWriter, r *http.Request) {
	if a.Events == nil {
		a.error(w, http.StatusNotFound, "Event stream is disabled")
		return
	}
	a.Events.ServeHTTP(w, r)
}

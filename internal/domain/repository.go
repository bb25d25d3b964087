package domain

import "context"

// JobRepository defines persistence for job entities.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	// UpdateStatus merges upd into the job. Updating an id that no longer
	// exists is a silent no-op; a second terminal write returns ErrJobTerminal.
	UpdateStatus(ctx context.Context, jobID string, upd JobUpdate) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
}

// CredentialSource resolves the provider API key at request time.
type CredentialSource interface {
	APIKey(ctx context.Context) (string, error)
}

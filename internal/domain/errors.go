package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicateJob    = errors.New("duplicate job id")
	ErrJobTerminal     = errors.New("job already terminal")
	ErrProviderFailure = errors.New("provider failure")
	ErrMissingAPIKey   = errors.New("api key not configured")
)

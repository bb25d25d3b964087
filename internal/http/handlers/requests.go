package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/text/unicode/norm"

	"reelgen/internal/domain"
)

const (
	msgInvalidBody    = "Invalid request body"
	msgPhotosRequired = "At least one photo is required"
	msgPromptRequired = "Prompt is required"
	msgMissingAPIKey  = "API key not configured"
)

type videoRequest struct {
	Photos []domain.Photo `json:"photos"`
	Prompt *string        `json:"prompt"`
}

// generationInput is a validated request body. Photos holds only entries with
// data; Submitted counts every photo the client sent.
type generationInput struct {
	Photos    []domain.Photo
	Submitted int
	Prompt    string
}

// decodeGenerationRequest validates the shared body of the submission and
// synchronous endpoints. The returned message is client facing.
func decodeGenerationRequest(r *http.Request) (*generationInput, string) {
	var req videoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, msgInvalidBody
	}
	photos := make([]domain.Photo, 0, len(req.Photos))
	for _, p := range req.Photos {
		if strings.TrimSpace(p.Data) == "" {
			continue
		}
		photos = append(photos, p)
	}
	if len(photos) == 0 {
		return nil, msgPhotosRequired
	}
	if req.Prompt == nil || strings.TrimSpace(*req.Prompt) == "" {
		return nil, msgPromptRequired
	}
	return &generationInput{
		Photos:    photos,
		Submitted: len(req.Photos),
		Prompt:    norm.NFC.String(*req.Prompt),
	}, ""
}

// apiKey resolves the provider credential. Any failure is reported to the
// client as a missing key; the cause is logged.
func (a *App) apiKey(ctx context.Context) (string, bool) {
	if a.Credentials == nil {
		return "", false
	}
	key, err := a.Credentials.APIKey(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrMissingAPIKey) {
			a.Logger.Error().Err(err).Msg("credentials lookup failed")
		}
		return "", false
	}
	return key, key != ""
}

package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"

	"reelgen/internal/domain"
	"reelgen/internal/infra"
	"reelgen/internal/sqlinline"
)

const (
	ProviderBlackbox = "blackbox"
)

// Store reads and writes provider tokens in the integration_tokens table.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

func (s *Store) BlackboxAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderBlackbox)
}

// Token returns the stored token for provider, or "" when none is stored.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

// EnsureSchema creates the integration_tokens table when it is missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.sql.Exec(ctx, sqlinline.QCreateIntegrationTokens)
	return err
}

func (s *Store) SetBlackboxAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("blackbox api key is required")
	}
	return s.upsert(ctx, ProviderBlackbox, key, nil)
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}

// Resolver looks the provider key up on every call: first in the process
// environment, then in the optional Store. Reading per call means a key
// exported after startup is picked up without a restart.
type Resolver struct {
	envKey string
	store  *Store
	lookup func(string) (string, bool)
}

// NewResolver builds a resolver for the environment variable envKey. store may be nil.
func NewResolver(envKey string, store *Store) *Resolver {
	return &Resolver{envKey: envKey, store: store, lookup: os.LookupEnv}
}

// APIKey returns domain.ErrMissingAPIKey when no source has a key.
func (r *Resolver) APIKey(ctx context.Context) (string, error) {
	if v, ok := r.lookup(r.envKey); ok {
		if key := strings.TrimSpace(v); key != "" {
			return key, nil
		}
	}
	if r.store != nil {
		key, err := r.store.BlackboxAPIKey(ctx)
		if err != nil {
			return "", err
		}
		if key != "" {
			return key, nil
		}
	}
	return "", domain.ErrMissingAPIKey
}

// Static is a fixed credential, mostly useful in tests and the CLI.
type Static string

func (s Static) APIKey(context.Context) (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", domain.ErrMissingAPIKey
	}
	return string(s), nil
}

var (
	_ domain.CredentialSource = (*Resolver)(nil)
	_ domain.CredentialSource = Static("")
)

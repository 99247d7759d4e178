package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/vcscsvcscs/medassist/internal/security"
	"github.com/vcscsvcscs/medassist/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const storeKey = "api_keys"

// Credential is an opaque API key. Its position in a resolved list is its rotation index.
type Credential string

// Masked returns a log-safe rendering of the key
func (c Credential) Masked() string {
	s := string(c)
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}

// Source tells where a resolved list came from
type Source string

const (
	SourceStored      Source = "stored"
	SourceEnvironment Source = "environment"
	SourceNone        Source = "none"
)

// Summary is a secret-free description of the configured keys
type Summary struct {
	Configured bool
	Count      int
	Masked     []string
	Source     Source
}

type persistedKeys struct {
	Keys      []string `json:"keys"`
	Encrypted bool     `json:"encrypted"`
}

type resolved struct {
	creds  []Credential
	source Source
}

// Store resolves the ordered credential list. Keys persisted by the user
// take priority over keys supplied through the environment.
type Store struct {
	kv        storage.KV
	encryptor *security.Encryptor
	envKeys   []Credential
	group     singleflight.Group
	logger    *zap.Logger
}

// NewStore creates a Store. encryptor may be nil, in which case keys are persisted in clear.
func NewStore(kv storage.KV, encryptor *security.Encryptor, envKeys []string, logger *zap.Logger) *Store {
	return &Store{
		kv:        kv,
		encryptor: encryptor,
		envKeys:   normalize(envKeys),
		logger:    logger,
	}
}

// Resolve returns the ordered, possibly empty, credential list. It never fails:
// an unreadable persisted list is logged and treated as absent.
func (s *Store) Resolve(ctx context.Context) []Credential {
	return s.resolve(ctx).creds
}

// IsConfigured reports whether at least one credential is available
func (s *Store) IsConfigured(ctx context.Context) bool {
	return len(s.Resolve(ctx)) > 0
}

// Summary describes the current configuration without exposing secrets
func (s *Store) Summary(ctx context.Context) Summary {
	r := s.resolve(ctx)
	return Summary{
		Configured: len(r.creds) > 0,
		Count:      len(r.creds),
		Masked:     lo.Map(r.creds, func(c Credential, _ int) string { return c.Masked() }),
		Source:     r.source,
	}
}

// Save replaces the persisted list. Saving an empty list clears it.
func (s *Store) Save(ctx context.Context, keys []string) error {
	creds := normalize(keys)
	if len(creds) == 0 {
		return s.Clear(ctx)
	}

	payload := persistedKeys{Keys: lo.Map(creds, func(c Credential, _ int) string { return string(c) })}
	if s.encryptor != nil {
		sealed, err := s.encryptor.EncryptAll(payload.Keys)
		if err != nil {
			return fmt.Errorf("failed to encrypt API keys: %w", err)
		}
		payload.Keys = sealed
		payload.Encrypted = true
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode API keys: %w", err)
	}

	if err := s.kv.Set(ctx, storeKey, data); err != nil {
		return fmt.Errorf("failed to persist API keys: %w", err)
	}
	s.group.Forget(storeKey)

	s.logger.Info("API keys saved",
		zap.Int("count", len(creds)),
		zap.Bool("encrypted", payload.Encrypted),
	)

	return nil
}

// Clear removes the persisted list; the environment fallback applies again
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, storeKey); err != nil {
		return fmt.Errorf("failed to clear API keys: %w", err)
	}
	s.group.Forget(storeKey)

	s.logger.Info("stored API keys cleared")
	return nil
}

func (s *Store) resolve(ctx context.Context) resolved {
	// the flight is shared; one caller's cancellation must not decide for the others
	flightCtx := context.WithoutCancel(ctx)
	v, _, _ := s.group.Do(storeKey, func() (any, error) {
		stored, err := s.loadStored(flightCtx)
		if err != nil {
			s.logger.Warn("failed to load stored API keys, using environment keys", zap.Error(err))
		}
		if len(stored) > 0 {
			return resolved{creds: stored, source: SourceStored}, nil
		}
		if len(s.envKeys) > 0 {
			return resolved{creds: s.envKeys, source: SourceEnvironment}, nil
		}
		return resolved{source: SourceNone}, nil
	})

	r := v.(resolved)
	// callers may share one flight; hand each its own slice
	r.creds = append([]Credential(nil), r.creds...)
	return r
}

func (s *Store) loadStored(ctx context.Context) ([]Credential, error) {
	data, err := s.kv.Get(ctx, storeKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var payload persistedKeys
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode stored API keys: %w", err)
	}

	keys := payload.Keys
	if payload.Encrypted {
		if s.encryptor == nil {
			return nil, fmt.Errorf("stored API keys are encrypted but no encryption key is configured")
		}
		keys, err = s.encryptor.DecryptAll(keys)
		if err != nil {
			return nil, err
		}
	}

	return normalize(keys), nil
}

// normalize trims keys, drops blanks and removes duplicates keeping the first position
func normalize(keys []string) []Credential {
	trimmed := lo.Compact(lo.Map(keys, func(k string, _ int) string { return strings.TrimSpace(k) }))
	return lo.Map(lo.Uniq(trimmed), func(k string, _ int) Credential { return Credential(k) })
}

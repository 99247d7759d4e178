package repository

import (
	"context"

	"github.com/vcscsvcscs/medassist/internal/storage"
	"github.com/vcscsvcscs/medassist/pkg/model"
	"go.uber.org/zap"
)

// SessionRepository persists one kind of session list as a whole
type SessionRepository struct {
	kv     storage.KV
	key    string
	logger *zap.Logger
}

// NewSessionRepository creates a repository for the given session kind
func NewSessionRepository(kv storage.KV, kind model.SessionKind, logger *zap.Logger) *SessionRepository {
	key := KeyChatSessions
	if kind == model.SessionKindTherapy {
		key = KeyTherapySessions
	}
	return &SessionRepository{
		kv:     kv,
		key:    key,
		logger: logger,
	}
}

// Load returns the stored sessions, or an empty list if none can be read
func (r *SessionRepository) Load(ctx context.Context) []model.Session {
	var sessions []model.Session
	if !loadJSON(ctx, r.kv, r.key, &sessions, r.logger) || sessions == nil {
		return []model.Session{}
	}
	return sessions
}

// Store replaces the stored session list
func (r *SessionRepository) Store(ctx context.Context, sessions []model.Session) error {
	return saveJSON(ctx, r.kv, r.key, sessions)
}

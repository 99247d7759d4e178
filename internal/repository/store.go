package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vcscsvcscs/medassist/internal/storage"
	"go.uber.org/zap"
)

// Storage keys of the persisted collections
const (
	KeyRecords         = "records"
	KeyChatSessions    = "chat_sessions"
	KeyTherapySessions = "therapy_sessions"
	KeyUserProfile     = "user_profile"
)

// loadJSON decodes the value at key into dst. A missing value reports false
// silently; an unreadable or corrupt value is logged and also reports false,
// leaving the caller to fall back to its default.
func loadJSON(ctx context.Context, kv storage.KV, key string, dst any, logger *zap.Logger) bool {
	data, err := kv.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return false
	}
	if err != nil {
		logger.Warn("failed to read stored value, using default",
			zap.String("key", key),
			zap.Error(err),
		)
		return false
	}

	if err := json.Unmarshal(data, dst); err != nil {
		logger.Warn("stored value is corrupt, using default",
			zap.String("key", key),
			zap.Int("size_bytes", len(data)),
			zap.Error(err),
		)
		return false
	}
	return true
}

func saveJSON(ctx context.Context, kv storage.KV, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := kv.Set(ctx, key, data); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

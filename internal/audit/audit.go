package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/vcscsvcscs/medassist/internal/storage"
	"go.uber.org/zap"
)

// KeyAuditLog is the storage key of the audit trail
const KeyAuditLog = "audit_log"

// DefaultRetention is the number of entries kept; older entries are dropped
const DefaultRetention = 500

// OperationType represents the type of operation performed
type OperationType string

const (
	OperationCreate OperationType = "CREATE"
	OperationUpdate OperationType = "UPDATE"
	OperationDelete OperationType = "DELETE"
	OperationExport OperationType = "EXPORT"
)

// ResourceType represents the type of resource being changed
type ResourceType string

const (
	ResourceCredentials ResourceType = "credentials"
	ResourceProfile     ResourceType = "user_profile"
	ResourceRecord      ResourceType = "record"
	ResourceReport      ResourceType = "report"
)

// Entry represents an audit log entry. It never carries secrets or medical content.
type Entry struct {
	ID            string        `json:"id"`
	OperationType OperationType `json:"operation"`
	ResourceType  ResourceType  `json:"resource"`
	ResourceID    string        `json:"resourceId,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
	IPAddress     string        `json:"ipAddress,omitempty"`
	UserAgent     string        `json:"userAgent,omitempty"`
}

// Logger keeps a bounded, newest-first trail of sensitive local operations
type Logger struct {
	kv        storage.KV
	logger    *zap.Logger
	retention int
	now       func() time.Time

	mu sync.Mutex
}

// NewLogger creates a new audit logger
func NewLogger(kv storage.KV, logger *zap.Logger) *Logger {
	return &Logger{
		kv:        kv,
		logger:    logger,
		retention: DefaultRetention,
		now:       time.Now,
	}
}

// WithRetention caps the trail at n entries
func (l *Logger) WithRetention(n int) *Logger {
	if n > 0 {
		l.retention = n
	}
	return l
}

// Log appends an entry to the trail
func (l *Logger) Log(ctx context.Context, entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now()
	}
	if entry.ID == "" {
		entry.ID = ulid.Make().String()
	}

	// Log to structured logger first
	l.logger.Info("Audit log entry",
		zap.String("operation", string(entry.OperationType)),
		zap.String("resource_type", string(entry.ResourceType)),
		zap.String("resource_id", entry.ResourceID),
		zap.Time("timestamp", entry.Timestamp),
		zap.String("ip_address", entry.IPAddress),
	)

	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load(ctx)
	if err != nil {
		l.logger.Warn("audit trail unreadable, starting a new one", zap.Error(err))
		entries = nil
	}

	entries = append([]Entry{entry}, entries...)
	if len(entries) > l.retention {
		entries = entries[:l.retention]
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode audit trail: %w", err)
	}
	if err := l.kv.Set(ctx, KeyAuditLog, data); err != nil {
		l.logger.Error("Failed to write audit log",
			zap.Error(err),
			zap.String("operation", string(entry.OperationType)),
			zap.String("resource_type", string(entry.ResourceType)),
		)
		return fmt.Errorf("failed to store audit trail: %w", err)
	}
	return nil
}

// LogCreate logs a CREATE operation
func (l *Logger) LogCreate(ctx context.Context, resource ResourceType, resourceID, ipAddress, userAgent string) error {
	return l.Log(ctx, Entry{
		OperationType: OperationCreate,
		ResourceType:  resource,
		ResourceID:    resourceID,
		IPAddress:     ipAddress,
		UserAgent:     userAgent,
	})
}

// LogUpdate logs an UPDATE operation
func (l *Logger) LogUpdate(ctx context.Context, resource ResourceType, resourceID, ipAddress, userAgent string) error {
	return l.Log(ctx, Entry{
		OperationType: OperationUpdate,
		ResourceType:  resource,
		ResourceID:    resourceID,
		IPAddress:     ipAddress,
		UserAgent:     userAgent,
	})
}

// LogDelete logs a DELETE operation
func (l *Logger) LogDelete(ctx context.Context, resource ResourceType, resourceID, ipAddress, userAgent string) error {
	return l.Log(ctx, Entry{
		OperationType: OperationDelete,
		ResourceType:  resource,
		ResourceID:    resourceID,
		IPAddress:     ipAddress,
		UserAgent:     userAgent,
	})
}

// LogExport logs an EXPORT operation
func (l *Logger) LogExport(ctx context.Context, resource ResourceType, resourceID, ipAddress, userAgent string) error {
	return l.Log(ctx, Entry{
		OperationType: OperationExport,
		ResourceType:  resource,
		ResourceID:    resourceID,
		IPAddress:     ipAddress,
		UserAgent:     userAgent,
	})
}

// Recent returns up to limit entries, newest first. A non-positive limit returns all.
func (l *Logger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (l *Logger) load(ctx context.Context) ([]Entry, error) {
	data, err := l.kv.Get(ctx, KeyAuditLog)
	if errors.Is(err, storage.ErrNotFound) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("audit trail is corrupt: %w", err)
	}
	return entries, nil
}

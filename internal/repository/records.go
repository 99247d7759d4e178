package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/lo"
	"github.com/vcscsvcscs/medassist/internal/storage"
	"github.com/vcscsvcscs/medassist/pkg/model"
	"go.uber.org/zap"
)

// ErrRecordNotFound is returned when no record has the requested id
var ErrRecordNotFound = errors.New("record not found")

// RecordRepository keeps saved analysis results, newest first
type RecordRepository struct {
	kv     storage.KV
	mu     sync.Mutex
	logger *zap.Logger
}

// NewRecordRepository creates a new RecordRepository
func NewRecordRepository(kv storage.KV, logger *zap.Logger) *RecordRepository {
	return &RecordRepository{
		kv:     kv,
		logger: logger,
	}
}

func (r *RecordRepository) load(ctx context.Context) []model.Record {
	var records []model.Record
	if !loadJSON(ctx, r.kv, KeyRecords, &records, r.logger) || records == nil {
		return []model.Record{}
	}
	return records
}

// List returns all records, newest first
func (r *RecordRepository) List(ctx context.Context) []model.Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.load(ctx)
}

// Get returns the record with the given id
func (r *RecordRepository) Get(ctx context.Context, id string) (*model.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := lo.Find(r.load(ctx), func(rec model.Record) bool { return rec.ID == id })
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &record, nil
}

// Save stores a new record for result. The record gets a fresh id and
// timestamp and is never modified afterwards.
func (r *RecordRepository) Save(ctx context.Context, modality model.Modality, result model.AnalysisResult, imageRef *string) (*model.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record := model.Record{
		ID:        ulid.Make().String(),
		CreatedAt: time.Now().UTC(),
		Modality:  modality,
		ImageRef:  imageRef,
		Result:    result,
	}

	records := append([]model.Record{record}, r.load(ctx)...)
	if err := saveJSON(ctx, r.kv, KeyRecords, records); err != nil {
		r.logger.Error("failed to save record", zap.String("record_id", record.ID), zap.Error(err))
		return nil, err
	}

	r.logger.Info("record saved",
		zap.String("record_id", record.ID),
		zap.String("modality", string(modality)),
		zap.Int("total_records", len(records)),
	)

	return &record, nil
}

// Delete removes the record with the given id
func (r *RecordRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records := r.load(ctx)
	remaining := lo.Reject(records, func(rec model.Record, _ int) bool { return rec.ID == id })
	if len(remaining) == len(records) {
		return ErrRecordNotFound
	}

	if err := saveJSON(ctx, r.kv, KeyRecords, remaining); err != nil {
		return err
	}

	r.logger.Info("record deleted", zap.String("record_id", id))
	return nil
}

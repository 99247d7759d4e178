package repository

import (
	"context"

	"github.com/vcscsvcscs/medassist/internal/storage"
	"github.com/vcscsvcscs/medassist/pkg/model"
	"go.uber.org/zap"
)

// ProfileRepository stores the single user profile
type ProfileRepository struct {
	kv     storage.KV
	logger *zap.Logger
}

// NewProfileRepository creates a new ProfileRepository
func NewProfileRepository(kv storage.KV, logger *zap.Logger) *ProfileRepository {
	return &ProfileRepository{
		kv:     kv,
		logger: logger,
	}
}

// Get returns the stored profile, or the default profile if none is stored
func (r *ProfileRepository) Get(ctx context.Context) model.UserProfile {
	profile := model.DefaultProfile()
	if !loadJSON(ctx, r.kv, KeyUserProfile, &profile, r.logger) {
		return model.DefaultProfile()
	}
	if profile.Sex == "" {
		profile.Sex = model.SexUnspecified
	}
	if profile.ChronicConditions == nil {
		profile.ChronicConditions = []string{}
	}
	if profile.Allergies == nil {
		profile.Allergies = []string{}
	}
	return profile
}

// Save overwrites the stored profile
func (r *ProfileRepository) Save(ctx context.Context, profile model.UserProfile) error {
	if err := saveJSON(ctx, r.kv, KeyUserProfile, profile); err != nil {
		r.logger.Error("failed to save profile", zap.Error(err))
		return err
	}
	r.logger.Info("profile saved")
	return nil
}

package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vcscsvcscs/medassist/internal/storage"
	"github.com/vcscsvcscs/medassist/pkg/model"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// failingKV fails every read
type failingKV struct {
	storage.KV
}

func (failingKV) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("disk unavailable")
}

func sampleResult(condition string) model.AnalysisResult {
	return model.AnalysisResult{
		Status:         model.AnalysisStatusOK,
		Condition:      condition,
		Confidence:     70,
		ClinicalAlerts: []string{},
	}
}

func TestRecordRepository_SaveListGetDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepository(storage.NewMemoryStore(), zap.NewNop())

	assert.Empty(t, repo.List(ctx))

	first, err := repo.Save(ctx, model.ModalitySkin, sampleResult("Eczema"), nil)
	require.NoError(t, err)
	imageRef := "images/abc.jpg"
	second, err := repo.Save(ctx, model.ModalityEye, sampleResult("Stye"), &imageRef)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)

	records := repo.List(ctx)
	require.Len(t, records, 2)
	assert.Equal(t, second.ID, records[0].ID, "newest first")
	assert.Equal(t, first.ID, records[1].ID)

	got, err := repo.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "Stye", got.Result.Condition)
	require.NotNil(t, got.ImageRef)
	assert.Equal(t, imageRef, *got.ImageRef)

	require.NoError(t, repo.Delete(ctx, first.ID))
	_, err = repo.Get(ctx, first.ID)
	assert.ErrorIs(t, err, ErrRecordNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, first.ID), ErrRecordNotFound)
	assert.Len(t, repo.List(ctx), 1)
}

func TestRecordRepository_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "records.db"), zap.NewNop())
	require.NoError(t, err)
	defer kv.Close()

	repo := NewRecordRepository(kv, zap.NewNop())
	saved, err := repo.Save(ctx, model.ModalityXRay, sampleResult("Pneumonia"), nil)
	require.NoError(t, err)

	reopened := NewRecordRepository(kv, zap.NewNop())
	got, err := reopened.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.CreatedAt.Unix(), got.CreatedAt.Unix())
	assert.Equal(t, model.ModalityXRay, got.Modality)
}

func TestRecordRepository_CorruptDataFallsBackToEmpty(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	require.NoError(t, kv.Set(ctx, KeyRecords, []byte("{not json")))

	core, logs := observer.New(zapcore.WarnLevel)
	repo := NewRecordRepository(kv, zap.New(core))

	assert.Empty(t, repo.List(ctx))
	assert.Equal(t, 1, logs.FilterMessage("stored value is corrupt, using default").Len())

	// saving replaces the corrupt value
	_, err := repo.Save(ctx, model.ModalityDental, sampleResult("Caries"), nil)
	require.NoError(t, err)
	assert.Len(t, repo.List(ctx), 1)
}

func TestRecordRepository_ConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepository(storage.NewMemoryStore(), zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Save(ctx, model.ModalityGeneral, sampleResult("Bruise"), nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, repo.List(ctx), 20)
}

func TestSessionRepository_KindsAreIndependent(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	chat := NewSessionRepository(kv, model.SessionKindChat, zap.NewNop())
	therapy := NewSessionRepository(kv, model.SessionKindTherapy, zap.NewNop())

	require.NoError(t, chat.Store(ctx, []model.Session{{ID: "c1", Kind: model.SessionKindChat, Title: "New Chat"}}))

	assert.Len(t, chat.Load(ctx), 1)
	assert.Empty(t, therapy.Load(ctx))
}

func TestSessionRepository_ReadFailureFallsBack(t *testing.T) {
	repo := NewSessionRepository(failingKV{storage.NewMemoryStore()}, model.SessionKindChat, zap.NewNop())
	sessions := repo.Load(context.Background())
	assert.NotNil(t, sessions)
	assert.Empty(t, sessions)
}

func TestProfileRepository(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	repo := NewProfileRepository(kv, zap.NewNop())

	assert.Equal(t, model.DefaultProfile(), repo.Get(ctx))

	age := 29
	profile := model.UserProfile{
		Name:              "Meera",
		Age:               &age,
		Sex:               model.SexFemale,
		BloodGroup:        "A+",
		ChronicConditions: []string{"asthma"},
		Allergies:         []string{},
		EmergencyContact:  "+91 98765 43210",
	}
	require.NoError(t, repo.Save(ctx, profile))
	assert.Equal(t, profile, repo.Get(ctx))

	// a partial stored profile gets its collections filled in
	require.NoError(t, kv.Set(ctx, KeyUserProfile, []byte(`{"name":"Meera"}`)))
	got := repo.Get(ctx)
	assert.Equal(t, "Meera", got.Name)
	assert.Equal(t, model.SexUnspecified, got.Sex)
	assert.NotNil(t, got.Allergies)

	require.NoError(t, kv.Set(ctx, KeyUserProfile, []byte(`[1,2]`)))
	assert.Equal(t, model.DefaultProfile(), repo.Get(ctx))
}

// Property: whatever bytes are stored under the records key, List never panics
// and always returns a non-nil slice.
func TestRecordRepository_ArbitraryStoredBytesProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("List tolerates any stored value", prop.ForAll(
		func(raw string) bool {
			ctx := context.Background()
			kv := storage.NewMemoryStore()
			_ = kv.Set(ctx, KeyRecords, []byte(raw))
			records := NewRecordRepository(kv, zap.NewNop()).List(ctx)
			return records != nil
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

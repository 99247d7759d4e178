package navigation

import (
	"context"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vcscsvcscs/medassist/internal/ai"
	"github.com/vcscsvcscs/medassist/internal/repository"
	"github.com/vcscsvcscs/medassist/internal/service"
	"github.com/vcscsvcscs/medassist/internal/storage"
	"github.com/vcscsvcscs/medassist/pkg/model"
	"go.uber.org/zap"
)

type fakeAnalyzer struct {
	calls   int
	result  *model.AnalysisResult
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, image service.Blob, modality model.Modality, profile *model.UserProfile) (*model.AnalysisResult, error) {
	f.calls++
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	return f.result, f.err
}

type fakeTriager struct {
	result *model.TriageResult
	err    error
}

func (f *fakeTriager) Triage(ctx context.Context, input model.TriageInput) (*model.TriageResult, error) {
	return f.result, f.err
}

type fakeUploader struct {
	uploads int
}

func (u *fakeUploader) UploadImage(ctx context.Context, name string, data []byte, mimeType string) (string, error) {
	u.uploads++
	return "images/" + name, nil
}

func okResult() *model.AnalysisResult {
	return &model.AnalysisResult{
		Status:         model.AnalysisStatusOK,
		Condition:      "Contact dermatitis",
		Confidence:     82,
		Description:    "Red itchy patches",
		ClinicalAlerts: []string{},
	}
}

func newTestController(analyzer Analyzer, triager Triager, images ImageUploader) (*Controller, *repository.RecordRepository) {
	kv := storage.NewMemoryStore()
	records := repository.NewRecordRepository(kv, zap.NewNop())
	profiles := repository.NewProfileRepository(kv, zap.NewNop())
	return NewController(analyzer, triager, records, profiles, images, zap.NewNop()), records
}

var testImage = service.Blob{Data: []byte{0xff, 0xd8, 0xff}, MIMEType: "image/jpeg"}

func TestController_StartsOnWelcome(t *testing.T) {
	c, _ := newTestController(&fakeAnalyzer{}, &fakeTriager{}, nil)
	assert.Equal(t, ScreenWelcome, c.State().Screen)
}

func TestController_Navigate(t *testing.T) {
	c, _ := newTestController(&fakeAnalyzer{}, &fakeTriager{}, nil)

	state, err := c.Navigate(ScreenHub)
	require.NoError(t, err)
	assert.Equal(t, ScreenHub, state.Screen)

	for _, bound := range []Screen{ScreenAnalysis, ScreenResults, ScreenTriageResult, ScreenDetails} {
		_, err := c.Navigate(bound)
		assert.ErrorIs(t, err, ErrTransitionNotAllowed, string(bound))
	}
	assert.Equal(t, ScreenHub, c.State().Screen)

	_, err = c.Navigate("settings")
	assert.ErrorIs(t, err, ErrUnknownScreen)
}

func TestController_Back(t *testing.T) {
	tests := []struct {
		from Screen
		want Screen
	}{
		{ScreenWelcome, ScreenWelcome},
		{ScreenHub, ScreenWelcome},
		{ScreenProfile, ScreenWelcome},
		{ScreenRecords, ScreenWelcome},
		{ScreenCamera, ScreenHub},
		{ScreenChat, ScreenHub},
		{ScreenTherapy, ScreenHub},
		{ScreenPharmacy, ScreenHub},
		{ScreenTriage, ScreenHub},
	}

	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			c, _ := newTestController(&fakeAnalyzer{}, &fakeTriager{}, nil)
			_, err := c.Navigate(tt.from)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Back().Screen)
		})
	}
}

func TestController_AnalysisSuccessSavesRecord(t *testing.T) {
	ctx := context.Background()
	uploader := &fakeUploader{}
	analyzer := &fakeAnalyzer{result: okResult()}
	c, records := newTestController(analyzer, &fakeTriager{}, uploader)

	state, err := c.StartAnalysis(ctx, testImage, model.ModalitySkin)
	require.NoError(t, err)

	assert.Equal(t, 1, analyzer.calls)
	assert.Equal(t, ScreenResults, state.Screen)
	assert.False(t, state.Busy)
	require.NotNil(t, state.Result)
	assert.Equal(t, "Contact dermatitis", state.Result.Condition)
	require.NotNil(t, state.Record)
	require.NotNil(t, state.Record.ImageRef)
	assert.Equal(t, 1, uploader.uploads)

	stored := records.List(ctx)
	require.Len(t, stored, 1)
	assert.Equal(t, model.ModalitySkin, stored[0].Modality)
}

func TestController_RejectedAnalysisIsNotSaved(t *testing.T) {
	ctx := context.Background()
	analyzer := &fakeAnalyzer{result: service.RejectedResult("gemini-2.5-flash")}
	c, records := newTestController(analyzer, &fakeTriager{}, nil)

	state, err := c.StartAnalysis(ctx, testImage, model.ModalityEye)
	require.NoError(t, err)

	assert.Equal(t, ScreenResults, state.Screen)
	assert.True(t, state.Result.Rejected())
	assert.Nil(t, state.Record)
	assert.Empty(t, records.List(ctx))
}

func TestController_AnalysisFailureReturnsToCamera(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"quota", &ai.QuotaExhaustedError{Attempts: 2}},
		{"no key", &ai.ConfigurationError{Reason: "no API key configured"}},
		{"parse", &ai.ParseError{Reason: "empty response"}},
		{"other", errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := &fakeAnalyzer{err: tt.err}
			c, records := newTestController(analyzer, &fakeTriager{}, nil)

			state, err := c.StartAnalysis(context.Background(), testImage, model.ModalityWound)
			require.NoError(t, err)

			assert.Equal(t, 1, analyzer.calls)
			assert.Equal(t, ScreenCamera, state.Screen)
			assert.NotEmpty(t, state.Error)
			assert.Equal(t, service.UserMessage(tt.err), state.Error)
			assert.Empty(t, records.List(context.Background()))
		})
	}
}

func TestController_CancelDiscardsLateResult(t *testing.T) {
	ctx := context.Background()
	analyzer := &fakeAnalyzer{
		result:  okResult(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	c, records := newTestController(analyzer, &fakeTriager{}, nil)

	errCh := make(chan error, 1)
	go func() {
		_, err := c.StartAnalysis(ctx, testImage, model.ModalitySkin)
		errCh <- err
	}()

	<-analyzer.started
	assert.True(t, c.State().Busy)
	assert.Equal(t, ScreenAnalysis, c.State().Screen)

	_, err := c.StartAnalysis(ctx, testImage, model.ModalitySkin)
	assert.ErrorIs(t, err, ErrBusy)

	state := c.CancelAnalysis()
	assert.Equal(t, ScreenCamera, state.Screen)
	assert.False(t, state.Busy)

	close(analyzer.release)
	assert.ErrorIs(t, <-errCh, ErrAbandoned)

	assert.Equal(t, ScreenCamera, c.State().Screen)
	assert.Nil(t, c.State().Result)
	assert.Empty(t, records.List(ctx))
	assert.Equal(t, 1, analyzer.calls)
}

func TestController_BackFromAnalysisAbandons(t *testing.T) {
	analyzer := &fakeAnalyzer{
		result:  okResult(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	c, _ := newTestController(analyzer, &fakeTriager{}, nil)

	errCh := make(chan error, 1)
	go func() {
		_, err := c.StartAnalysis(context.Background(), testImage, model.ModalityDental)
		errCh <- err
	}()

	<-analyzer.started
	assert.Equal(t, ScreenHub, c.Back().Screen)

	close(analyzer.release)
	assert.ErrorIs(t, <-errCh, ErrAbandoned)
	assert.Equal(t, ScreenHub, c.State().Screen)
}

func TestController_SubmitTriage(t *testing.T) {
	ctx := context.Background()
	triager := &fakeTriager{result: &model.TriageResult{
		RiskScore:      65,
		Recommendation: model.RecommendGetXRay,
		Urgency:        "See a doctor within 48 hours",
	}}
	c, _ := newTestController(&fakeAnalyzer{}, triager, nil)
	_, _ = c.Navigate(ScreenTriage)

	state, err := c.SubmitTriage(ctx, model.TriageInput{CoughDuration: model.DurationOverFourWeeks})
	require.NoError(t, err)
	assert.Equal(t, ScreenTriageResult, state.Screen)
	require.NotNil(t, state.Triage)
	assert.Equal(t, 65, state.Triage.RiskScore)

	triager.result, triager.err = nil, &ai.QuotaExhaustedError{Attempts: 1}
	state, err = c.SubmitTriage(ctx, model.TriageInput{CoughDuration: model.DurationUnderTwoWeeks})
	assert.Error(t, err)
	assert.Equal(t, ScreenTriage, state.Screen)
	assert.Equal(t, service.MsgQuotaExhausted, state.Error)
}

func TestController_OpenRecord(t *testing.T) {
	ctx := context.Background()
	c, records := newTestController(&fakeAnalyzer{}, &fakeTriager{}, nil)
	saved, err := records.Save(ctx, model.ModalityXRay, *okResult(), nil)
	require.NoError(t, err)

	_, _ = c.Navigate(ScreenRecords)
	state, err := c.OpenRecord(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, ScreenDetails, state.Screen)
	assert.Equal(t, saved.ID, state.Record.ID)
	assert.Equal(t, model.ModalityXRay, state.Modality)

	assert.Equal(t, ScreenWelcome, c.Back().Screen)

	_, err = c.OpenRecord(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrRecordNotFound)
	assert.Equal(t, ScreenWelcome, c.State().Screen)
}

// Property: back from profile always lands on welcome, whatever came before.
func TestController_BackFromProfileProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("profile -> back -> welcome", prop.ForAll(
		func(path []int) bool {
			c, _ := newTestController(&fakeAnalyzer{}, &fakeTriager{}, nil)
			for _, i := range path {
				_, _ = c.Navigate(Screens[i])
			}
			if _, err := c.Navigate(ScreenProfile); err != nil {
				return false
			}
			return c.Back().Screen == ScreenWelcome
		},
		gen.SliceOf(gen.IntRange(0, len(Screens)-1)),
	))

	properties.TestingRun(t)
}

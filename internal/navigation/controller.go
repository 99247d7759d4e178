package navigation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/vcscsvcscs/medassist/internal/service"
	"github.com/vcscsvcscs/medassist/pkg/model"
	"go.uber.org/zap"
)

// Screen identifies a screen of the assistant
type Screen string

const (
	ScreenWelcome      Screen = "welcome"
	ScreenHub          Screen = "hub"
	ScreenTriage       Screen = "triage"
	ScreenTriageResult Screen = "triage-result"
	ScreenCamera       Screen = "camera"
	ScreenAnalysis     Screen = "analysis"
	ScreenResults      Screen = "results"
	ScreenRecords      Screen = "records"
	ScreenDetails      Screen = "details"
	ScreenChat         Screen = "chat"
	ScreenPharmacy     Screen = "pharmacy"
	ScreenTherapy      Screen = "therapy"
	ScreenProfile      Screen = "profile"
)

// Screens lists every screen in display order
var Screens = []Screen{
	ScreenWelcome, ScreenHub, ScreenTriage, ScreenTriageResult, ScreenCamera,
	ScreenAnalysis, ScreenResults, ScreenRecords, ScreenDetails, ScreenChat,
	ScreenPharmacy, ScreenTherapy, ScreenProfile,
}

// Valid reports whether s is a known screen
func (s Screen) Valid() bool {
	for _, known := range Screens {
		if s == known {
			return true
		}
	}
	return false
}

// contextBound screens show the outcome of an operation and are only entered
// through that operation
func (s Screen) contextBound() bool {
	switch s {
	case ScreenAnalysis, ScreenResults, ScreenTriageResult, ScreenDetails:
		return true
	}
	return false
}

var (
	// ErrTransitionNotAllowed is returned for a screen that cannot be entered directly
	ErrTransitionNotAllowed = errors.New("transition not allowed")
	// ErrUnknownScreen is returned for a screen name that does not exist
	ErrUnknownScreen = errors.New("unknown screen")
	// ErrBusy is returned when an analysis is submitted while another is in flight
	ErrBusy = errors.New("an analysis is already in progress")
	// ErrAbandoned is returned to the caller of an analysis that was cancelled
	// or navigated away from before it completed
	ErrAbandoned = errors.New("analysis was abandoned")
)

// Analyzer runs an image analysis
type Analyzer interface {
	Analyze(ctx context.Context, image service.Blob, modality model.Modality, profile *model.UserProfile) (*model.AnalysisResult, error)
}

// Triager runs the symptom questionnaire assessment
type Triager interface {
	Triage(ctx context.Context, input model.TriageInput) (*model.TriageResult, error)
}

// RecordStore keeps analysis records
type RecordStore interface {
	Save(ctx context.Context, modality model.Modality, result model.AnalysisResult, imageRef *string) (*model.Record, error)
	Get(ctx context.Context, id string) (*model.Record, error)
}

// ProfileSource provides the user profile
type ProfileSource interface {
	Get(ctx context.Context) model.UserProfile
}

// ImageUploader stores analysed images and returns a reference
type ImageUploader interface {
	UploadImage(ctx context.Context, name string, data []byte, mimeType string) (string, error)
}

// State is a snapshot of the controller
type State struct {
	Screen   Screen                `json:"screen"`
	Busy     bool                  `json:"busy"`
	Error    string                `json:"error,omitempty"`
	Modality model.Modality        `json:"modality,omitempty"`
	Result   *model.AnalysisResult `json:"result,omitempty"`
	Record   *model.Record         `json:"record,omitempty"`
	Triage   *model.TriageResult   `json:"triage,omitempty"`
}

// Controller drives screen transitions and the analysis lifecycle
type Controller struct {
	analyzer   Analyzer
	triager    Triager
	records    RecordStore
	profiles   ProfileSource
	images     ImageUploader
	mu         sync.Mutex
	state      State
	generation uint64
	logger     *zap.Logger
}

// NewController creates a controller on the welcome screen. images may be nil.
func NewController(analyzer Analyzer, triager Triager, records RecordStore, profiles ProfileSource, images ImageUploader, logger *zap.Logger) *Controller {
	return &Controller{
		analyzer: analyzer,
		triager:  triager,
		records:  records,
		profiles: profiles,
		images:   images,
		state:    State{Screen: ScreenWelcome},
		logger:   logger,
	}
}

// State returns the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Navigate performs an explicit user transition
func (c *Controller) Navigate(screen Screen) (State, error) {
	if !screen.Valid() {
		return c.State(), fmt.Errorf("%w: %q", ErrUnknownScreen, screen)
	}
	if screen.contextBound() {
		return c.State(), fmt.Errorf("%w: %s cannot be opened directly", ErrTransitionNotAllowed, screen)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.moveLocked(screen)
	return c.state, nil
}

// Back moves to the parent screen. Leaving the analysis screen abandons the
// in-flight analysis.
func (c *Controller) Back() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.moveLocked(parentOf(c.state.Screen))
	return c.state
}

func parentOf(s Screen) Screen {
	switch s {
	case ScreenWelcome, ScreenHub, ScreenProfile, ScreenRecords, ScreenDetails:
		return ScreenWelcome
	default:
		return ScreenHub
	}
}

// moveLocked switches screen and clears the context of the screen left. Must hold c.mu.
func (c *Controller) moveLocked(to Screen) {
	from := c.state.Screen
	if from == ScreenAnalysis && c.state.Busy {
		c.abandonLocked()
	}

	c.state = State{Screen: to, Modality: c.state.Modality}
	if from != to {
		c.logger.Debug("screen transition",
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
	}
}

func (c *Controller) abandonLocked() {
	c.generation++
	c.state.Busy = false
	c.logger.Info("analysis abandoned", zap.Uint64("generation", c.generation))
}

// CancelAnalysis abandons the in-flight analysis and returns to the camera.
// The response of the abandoned call is discarded when it arrives.
func (c *Controller) CancelAnalysis() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Screen == ScreenAnalysis || c.state.Busy {
		c.moveLocked(ScreenCamera)
	}
	return c.state
}

// StartAnalysis analyzes one image and waits for the outcome. It makes exactly
// one analysis call. Success leads to results, with the record saved unless the
// image was rejected. Failure leads back to the camera with a user-facing error.
func (c *Controller) StartAnalysis(ctx context.Context, image service.Blob, modality model.Modality) (State, error) {
	if !modality.Valid() {
		modality = model.ModalityGeneral
	}

	c.mu.Lock()
	if c.state.Busy {
		c.mu.Unlock()
		return c.State(), ErrBusy
	}
	c.generation++
	gen := c.generation
	c.state = State{Screen: ScreenAnalysis, Busy: true, Modality: modality}
	c.mu.Unlock()

	start := time.Now()
	c.logger.Info("analysis started",
		zap.String("modality", string(modality)),
		zap.Int("image_bytes", len(image.Data)),
		zap.Uint64("generation", gen),
	)

	profile := c.profiles.Get(ctx)
	result, err := c.analyzer.Analyze(ctx, image, modality, &profile)

	if !c.current(gen) {
		c.logger.Info("discarding abandoned analysis result", zap.Uint64("generation", gen))
		return c.State(), ErrAbandoned
	}

	if err != nil {
		c.logger.Warn("analysis failed",
			zap.String("modality", string(modality)),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return c.finish(gen, State{Screen: ScreenCamera, Modality: modality, Error: service.UserMessage(err)})
	}

	next := State{Screen: ScreenResults, Modality: modality, Result: result}
	if !result.Rejected() {
		record, err := c.saveRecord(ctx, image, modality, *result)
		if err != nil {
			// the result is still shown; only the history entry is missing
			next.Error = "The result could not be saved to your records."
		} else {
			next.Record = record
		}
	}

	c.logger.Info("analysis completed",
		zap.String("modality", string(modality)),
		zap.String("status", string(result.Status)),
		zap.Duration("duration", time.Since(start)),
	)
	return c.finish(gen, next)
}

func (c *Controller) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation == gen
}

func (c *Controller) finish(gen uint64, next State) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return c.state, ErrAbandoned
	}
	c.state = next
	return c.state, nil
}

func (c *Controller) saveRecord(ctx context.Context, image service.Blob, modality model.Modality, result model.AnalysisResult) (*model.Record, error) {
	var imageRef *string
	if c.images != nil {
		ref, err := c.images.UploadImage(ctx, ulid.Make().String(), image.Data, image.MIMEType)
		if err != nil {
			c.logger.Warn("failed to store analysed image", zap.Error(err))
		} else {
			imageRef = &ref
		}
	}

	record, err := c.records.Save(ctx, modality, result, imageRef)
	if err != nil {
		c.logger.Error("failed to save analysis record", zap.Error(err))
		return nil, err
	}
	return record, nil
}

// SubmitTriage assesses the questionnaire answers. Success opens the triage
// result; failure stays on the questionnaire with a user-facing error.
func (c *Controller) SubmitTriage(ctx context.Context, input model.TriageInput) (State, error) {
	result, err := c.triager.Triage(ctx, input)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.moveLocked(ScreenTriage)
		c.state.Error = service.UserMessage(err)
		return c.state, err
	}

	c.moveLocked(ScreenTriageResult)
	c.state.Triage = result
	return c.state, nil
}

// OpenRecord shows a stored record on the details screen
func (c *Controller) OpenRecord(ctx context.Context, id string) (State, error) {
	record, err := c.records.Get(ctx, id)
	if err != nil {
		return c.State(), err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.moveLocked(ScreenDetails)
	c.state.Record = record
	c.state.Result = &record.Result
	c.state.Modality = record.Modality
	return c.state, nil
}

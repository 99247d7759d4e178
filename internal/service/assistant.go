package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/vcscsvcscs/medassist/internal/ai"
	"github.com/vcscsvcscs/medassist/internal/config"
	"go.uber.org/zap"
)

// ErrInvalidInput is returned when a capability call is given unusable input
var ErrInvalidInput = errors.New("invalid input")

// Invoker runs a request against the model with credential rotation
type Invoker interface {
	Invoke(ctx context.Context, req *ai.Request) (*ai.Response, error)
}

// Blob is a binary input such as a captured image or audio clip
type Blob struct {
	Data     []byte
	MIMEType string
}

// Assistant exposes one method per AI capability. It builds the request,
// runs it through the invoker and normalizes the response.
type Assistant struct {
	invoker Invoker
	builder *RequestBuilder
	logger  *zap.Logger
}

// NewAssistant creates a new Assistant
func NewAssistant(invoker Invoker, builder *RequestBuilder, logger *zap.Logger) *Assistant {
	return &Assistant{
		invoker: invoker,
		builder: builder,
		logger:  logger,
	}
}

// Builder returns the request builder used by the assistant
func (a *Assistant) Builder() *RequestBuilder {
	return a.builder
}

func (a *Assistant) invoke(ctx context.Context, req *ai.Request) (*ai.Response, error) {
	// the invoker logs attempts and failures
	return a.invoker.Invoke(ctx, req)
}

func (a *Assistant) parse(req *ai.Request, resp *ai.Response) (ai.Object, error) {
	obj, err := ai.ParseStructured(resp.Text, req.Schema)
	if err != nil {
		a.logParseFailure(req, resp, err)
		return nil, err
	}
	return obj, nil
}

func (a *Assistant) logParseFailure(req *ai.Request, resp *ai.Response, err error) {
	var parseErr *ai.ParseError
	field := ""
	if errors.As(err, &parseErr) {
		field = parseErr.Field
	}
	a.logger.Error("failed to parse model response",
		zap.String("capability", string(req.Capability)),
		zap.String("field", field),
		zap.Int("response_length", len(resp.Text)),
		zap.Error(err),
	)
}

// thinkingBudget converts a configured budget into a request hint; zero means unset
func thinkingBudget(v int32) *int32 {
	if v == 0 {
		return nil
	}
	return &v
}

// NewRequestBuilderFromConfig creates a builder from the AI configuration
func NewRequestBuilderFromConfig(cfg config.AIConfig) (*RequestBuilder, error) {
	clock, err := NewClock(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to create clock: %w", err)
	}
	return NewRequestBuilder(cfg.Models, cfg.Thinking, clock), nil
}

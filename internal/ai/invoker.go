package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vcscsvcscs/medassist/internal/credential"
	"go.uber.org/zap"
)

const defaultAttemptTimeout = 45 * time.Second

// CredentialSource supplies the ordered credential list for each call
type CredentialSource interface {
	Resolve(ctx context.Context) []credential.Credential
}

// Invoker runs a request against a provider, rotating through credentials
// when a key reports quota exhaustion. Any other failure ends the call.
//
// The rotation cursor is shared by all calls on the same Invoker. A call
// reads it once when it starts, so attempt k of that call always uses
// credential (start+k) mod n, and a concurrent call cannot change that
// sequence. After every attempt the cursor holds the index just tried.
type Invoker struct {
	provider Provider
	creds    CredentialSource
	timeout  time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	cursor int
}

// InvokerOption configures an Invoker
type InvokerOption func(*Invoker)

// WithStartCursor sets the initial rotation index
func WithStartCursor(i int) InvokerOption {
	return func(inv *Invoker) {
		if i > 0 {
			inv.cursor = i
		}
	}
}

// WithAttemptTimeout bounds each individual attempt
func WithAttemptTimeout(d time.Duration) InvokerOption {
	return func(inv *Invoker) {
		if d > 0 {
			inv.timeout = d
		}
	}
}

// NewInvoker creates an Invoker
func NewInvoker(provider Provider, creds CredentialSource, logger *zap.Logger, opts ...InvokerOption) *Invoker {
	inv := &Invoker{
		provider: provider,
		creds:    creds,
		timeout:  defaultAttemptTimeout,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Cursor returns the current rotation index
func (inv *Invoker) Cursor() int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.cursor
}

func (inv *Invoker) startIndex(n int) int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.cursor % n
}

func (inv *Invoker) setCursor(i int) {
	inv.mu.Lock()
	inv.cursor = i
	inv.mu.Unlock()
}

// Invoke runs req. Errors are one of *ConfigurationError, *QuotaExhaustedError or *SynthesisError.
func (inv *Invoker) Invoke(ctx context.Context, req *Request) (*Response, error) {
	keys := inv.creds.Resolve(ctx)
	n := len(keys)
	if n == 0 {
		inv.logger.Warn("AI request rejected: no API key configured",
			zap.String("capability", string(req.Capability)),
		)
		return nil, &ConfigurationError{Reason: "no API key configured"}
	}

	startTime := time.Now()
	start := inv.startIndex(n)

	for k := 0; k < n; k++ {
		idx := (start + k) % n
		inv.setCursor(idx)

		text, err := inv.attempt(ctx, keys[idx], req)
		if err == nil {
			if strings.TrimSpace(text) == "" {
				inv.logger.Error("AI request returned empty response",
					zap.String("capability", string(req.Capability)),
					zap.Int("key_index", idx),
					zap.Int("attempts", k+1),
				)
				return nil, &SynthesisError{Class: ClassOther, Attempts: k + 1, Err: ErrEmptyResponse}
			}

			inv.logger.Info("AI request completed",
				zap.String("capability", string(req.Capability)),
				zap.String("model", req.Model),
				zap.Int("key_index", idx),
				zap.Int("attempts", k+1),
				zap.Duration("processing_time", time.Since(startTime)),
			)
			return &Response{Text: text, Model: req.Model, CredentialIndex: idx, Attempts: k + 1}, nil
		}

		class := Classify(err)
		if class != ClassQuotaExceeded {
			inv.logger.Error("AI request failed",
				zap.String("capability", string(req.Capability)),
				zap.String("failure_class", string(class)),
				zap.String("key", keys[idx].Masked()),
				zap.Int("key_index", idx),
				zap.Int("attempts", k+1),
				zap.Error(err),
			)
			return nil, &SynthesisError{Class: class, Attempts: k + 1, Err: err}
		}

		if k+1 < n {
			inv.logger.Warn("API key quota exhausted, rotating to next key",
				zap.String("capability", string(req.Capability)),
				zap.String("key", keys[idx].Masked()),
				zap.Int("key_index", idx),
				zap.Int("next_key_index", (idx+1)%n),
			)
			continue
		}

		inv.logger.Error("all API keys exhausted",
			zap.String("capability", string(req.Capability)),
			zap.Int("attempts", n),
			zap.Duration("total_time", time.Since(startTime)),
			zap.Error(err),
		)
		return nil, &QuotaExhaustedError{Attempts: n, Last: err}
	}

	// unreachable: the loop returns on every path for n > 0
	return nil, &SynthesisError{Class: ClassOther, Attempts: n, Err: errors.New("no attempt made")}
}

func (inv *Invoker) attempt(ctx context.Context, key credential.Credential, req *Request) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, inv.timeout)
	defer cancel()

	text, err := inv.provider.Generate(attemptCtx, key, req)
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("attempt timed out after %s: %w", inv.timeout, context.DeadlineExceeded)
	}
	return text, err
}

package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// FailureClass is the classification of a single failed attempt
type FailureClass string

const (
	ClassQuotaExceeded    FailureClass = "quota_exceeded"
	ClassAuthInvalid      FailureClass = "auth_invalid"
	ClassTransientNetwork FailureClass = "transient_network"
	ClassOther            FailureClass = "other"
)

// ErrEmptyResponse is returned when the model produced no text
var ErrEmptyResponse = errors.New("model returned an empty response")

// ProviderError carries the structured status a provider reported for a failed call
type ProviderError struct {
	Provider   string
	StatusCode int
	Status     string
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("%s API error %d (%s): %s", e.Provider, e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("%s API error %d: %s", e.Provider, e.StatusCode, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ConfigurationError means no credential is available, so no call was made
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "AI service not configured: " + e.Reason
}

// QuotaExhaustedError means every credential tried in one call hit its quota
type QuotaExhaustedError struct {
	Attempts int
	Last     error
}

func (e *QuotaExhaustedError) Error() string {
	return fmt.Sprintf("quota exhausted on all %d configured API keys: %v", e.Attempts, e.Last)
}

func (e *QuotaExhaustedError) Unwrap() error {
	return e.Last
}

// SynthesisError is a non-quota failure that ended the call
type SynthesisError struct {
	Class    FailureClass
	Attempts int
	Err      error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("AI request failed (%s) after %d attempt(s): %v", e.Class, e.Attempts, e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// ParseError means the model answered but the answer could not be used
type ParseError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := "invalid model response"
	if e.Field != "" {
		msg += fmt.Sprintf(": field %q", e.Field)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Classify maps an attempt failure to a FailureClass.
// Structured provider status wins; message matching is only used for untyped errors.
func Classify(err error) FailureClass {
	if err == nil {
		return ClassOther
	}

	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return classifyProviderError(provErr)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransientNetwork
	}
	if errors.Is(err, context.Canceled) {
		return ClassOther
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassTransientNetwork
	}

	return classifyMessage(err.Error())
}

func classifyProviderError(e *ProviderError) FailureClass {
	switch strings.ToUpper(e.Status) {
	case "RESOURCE_EXHAUSTED", "INSUFFICIENT_QUOTA", "RATE_LIMIT_EXCEEDED":
		return ClassQuotaExceeded
	case "UNAUTHENTICATED", "PERMISSION_DENIED", "INVALID_API_KEY":
		return ClassAuthInvalid
	case "UNAVAILABLE", "DEADLINE_EXCEEDED":
		return ClassTransientNetwork
	}

	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return ClassQuotaExceeded
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return ClassAuthInvalid
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode >= 500:
		return ClassTransientNetwork
	}

	// Gemini reports a malformed key as 400 INVALID_ARGUMENT
	msg := strings.ToLower(e.Message)
	if strings.Contains(msg, "api key not valid") || strings.Contains(msg, "api_key_invalid") {
		return ClassAuthInvalid
	}

	return ClassOther
}

var quotaMarkers = []string{"429", "quota", "resource_exhausted", "exhausted", "rate limit"}
var authMarkers = []string{"401", "403", "unauthorized", "api key not valid", "permission denied"}
var transientMarkers = []string{"timeout", "connection reset", "connection refused", "no such host", "eof"}

func classifyMessage(msg string) FailureClass {
	msg = strings.ToLower(msg)
	for _, m := range quotaMarkers {
		if strings.Contains(msg, m) {
			return ClassQuotaExceeded
		}
	}
	for _, m := range authMarkers {
		if strings.Contains(msg, m) {
			return ClassAuthInvalid
		}
	}
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return ClassTransientNetwork
		}
	}
	return ClassOther
}

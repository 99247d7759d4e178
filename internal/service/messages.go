package service

import (
	"errors"
	"net/http"

	"github.com/vcscsvcscs/medassist/internal/ai"
)

// User-facing messages per error kind
const (
	MsgAPIKeyRequired    = "No API key is configured. Please add an API key in settings to continue."
	MsgQuotaExhausted    = "All configured API keys have reached their usage limit. Please wait a while or add another API key."
	MsgSynthesisFailed   = "The AI service could not complete your request. Please try again."
	MsgAPIKeyRejected    = "The configured API key was rejected. Please check your API key in settings."
	MsgInvalidAIResponse = "The AI service returned an unexpected response. Please try again."
	MsgInvalidInput      = "The request could not be processed. Please check your input and try again."
	MsgUnexpected        = "Something went wrong. Please try again."
)

// Failure describes how an error is presented to the user
type Failure struct {
	Status  int
	Code    string
	Message string
}

// Describe maps an error to its HTTP status, error code and user-facing message.
// Each error kind has its own message so the user knows which remedy applies.
func Describe(err error) Failure {
	var (
		cfgErr   *ai.ConfigurationError
		quotaErr *ai.QuotaExhaustedError
		synthErr *ai.SynthesisError
		parseErr *ai.ParseError
	)

	switch {
	case errors.As(err, &cfgErr):
		return Failure{Status: http.StatusPreconditionRequired, Code: "API_KEY_REQUIRED", Message: MsgAPIKeyRequired}
	case errors.As(err, &quotaErr):
		return Failure{Status: http.StatusTooManyRequests, Code: "QUOTA_EXHAUSTED", Message: MsgQuotaExhausted}
	case errors.As(err, &synthErr):
		msg := MsgSynthesisFailed
		if synthErr.Class == ai.ClassAuthInvalid {
			msg = MsgAPIKeyRejected
		}
		return Failure{Status: http.StatusBadGateway, Code: "SYNTHESIS_FAILED", Message: msg}
	case errors.As(err, &parseErr):
		return Failure{Status: http.StatusBadGateway, Code: "INVALID_AI_RESPONSE", Message: MsgInvalidAIResponse}
	case errors.Is(err, ErrInvalidInput):
		return Failure{Status: http.StatusBadRequest, Code: "INVALID_INPUT", Message: MsgInvalidInput}
	default:
		return Failure{Status: http.StatusInternalServerError, Code: "INTERNAL_ERROR", Message: MsgUnexpected}
	}
}

// UserMessage returns the message shown to the user for err
func UserMessage(err error) string {
	return Describe(err).Message
}

package api

import (
	"github.com/vcscsvcscs/medassist/pkg/model"
)

// ErrorResponse defines model for ErrorResponse.
type ErrorResponse struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Details *string `json:"details,omitempty"`
}

// HealthResponse defines model for HealthResponse.
type HealthResponse struct {
	Status       string `json:"status"`
	Storage      string `json:"storage,omitempty"`
	AiConfigured bool   `json:"aiConfigured"`
	Service      string `json:"service,omitempty"`
	Version      string `json:"version,omitempty"`
}

// NavigateRequest defines model for NavigateRequest.
type NavigateRequest struct {
	Screen string `json:"screen" binding:"required"`
}

// NavigationState defines model for NavigationState.
type NavigationState struct {
	Screen   string                `json:"screen"`
	Busy     bool                  `json:"busy"`
	Error    *string               `json:"error,omitempty"`
	Modality *model.Modality       `json:"modality,omitempty"`
	Result   *model.AnalysisResult `json:"result,omitempty"`
	Record   *model.Record         `json:"record,omitempty"`
	Triage   *model.TriageResult   `json:"triage,omitempty"`
}

// TriageRequest defines model for TriageRequest.
type TriageRequest struct {
	CoughDuration       string  `json:"coughDuration" binding:"required"`
	Fever               bool    `json:"fever"`
	NightSweats         bool    `json:"nightSweats"`
	WeightLoss          bool    `json:"weightLoss"`
	CoughingBlood       bool    `json:"coughingBlood"`
	ChestPain           bool    `json:"chestPain"`
	BreathingDifficulty bool    `json:"breathingDifficulty"`
	TbContact           bool    `json:"tbContact"`
	VisualObservation   *string `json:"visualObservation,omitempty"`
}

// PharmacyRequest defines model for PharmacyRequest.
type PharmacyRequest struct {
	Query string `json:"query" binding:"required"`
}

// TranscriptionResponse defines model for TranscriptionResponse.
type TranscriptionResponse struct {
	Text string `json:"text"`
}

// SessionResponse defines model for SessionResponse.
type SessionResponse struct {
	Session model.Session `json:"session"`
	Active  bool          `json:"active"`
	Pending bool          `json:"pending"`
}

// SessionList defines model for SessionList.
type SessionList struct {
	ActiveId *string         `json:"activeId,omitempty"`
	Sessions []model.Session `json:"sessions"`
}

// SendMessageRequest defines model for SendMessageRequest.
type SendMessageRequest struct {
	Text          string  `json:"text"`
	Image         *[]byte `json:"image,omitempty"` // base64 in JSON
	ImageMimeType *string `json:"imageMimeType,omitempty"`
}

// SendMessageResponse defines model for SendMessageResponse.
type SendMessageResponse struct {
	Reply   model.Message `json:"reply"`
	Session model.Session `json:"session"`
}

// RecordList defines model for RecordList.
type RecordList struct {
	Records []model.Record `json:"records"`
}

// CredentialsRequest defines model for CredentialsRequest.
type CredentialsRequest struct {
	Keys []string `json:"keys" binding:"required"`
}

// CredentialsSummary defines model for CredentialsSummary.
type CredentialsSummary struct {
	Configured bool     `json:"configured"`
	Count      int      `json:"count"`
	Source     string   `json:"source"`
	Masked     []string `json:"masked"`
}

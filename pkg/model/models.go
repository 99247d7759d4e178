package model

import (
	"time"
)

// Modality identifies what kind of medical image is being analyzed
type Modality string

const (
	ModalitySkin    Modality = "skin"
	ModalityWound   Modality = "wound"
	ModalityEye     Modality = "eye"
	ModalityXRay    Modality = "xray"
	ModalityDental  Modality = "dental"
	ModalityGeneral Modality = "general"
)

// Valid reports whether m is one of the known modalities
func (m Modality) Valid() bool {
	switch m {
	case ModalitySkin, ModalityWound, ModalityEye, ModalityXRay, ModalityDental, ModalityGeneral:
		return true
	}
	return false
}

// AnalysisStatus tags an analysis result as usable or rejected
type AnalysisStatus string

const (
	AnalysisStatusOK       AnalysisStatus = "ok"
	AnalysisStatusRejected AnalysisStatus = "rejected"
)

// AnalysisResult is the normalized outcome of an image analysis call
type AnalysisResult struct {
	Status         AnalysisStatus `json:"status"`
	Condition      string         `json:"condition"`
	Confidence     int            `json:"confidence"`
	Description    string         `json:"description"`
	Details        string         `json:"details"`
	Treatment      string         `json:"treatment"`
	IsEmergency    bool           `json:"isEmergency"`
	ClinicalAlerts []string       `json:"clinicalAlerts"`
	Observations   string         `json:"observations"`
	EstimatedCost  *string        `json:"estimatedCost,omitempty"`
	ModelName      string         `json:"modelName"`
}

// Rejected reports whether the image was judged not to be a medical image
func (r *AnalysisResult) Rejected() bool {
	return r.Status == AnalysisStatusRejected
}

// Record is a saved analysis result. Records are never edited after creation.
type Record struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	Modality  Modality       `json:"modality"`
	ImageRef  *string        `json:"imageRef,omitempty"`
	Result    AnalysisResult `json:"result"`
}

// SymptomDuration buckets how long symptoms have been present
type SymptomDuration string

const (
	DurationUnderTwoWeeks  SymptomDuration = "less_than_2_weeks"
	DurationTwoToFourWeeks SymptomDuration = "2_to_4_weeks"
	DurationOverFourWeeks  SymptomDuration = "more_than_4_weeks"
)

// Valid reports whether d is a known duration bucket
func (d SymptomDuration) Valid() bool {
	switch d {
	case DurationUnderTwoWeeks, DurationTwoToFourWeeks, DurationOverFourWeeks:
		return true
	}
	return false
}

// TriageInput holds the questionnaire answers sent for remote scoring
type TriageInput struct {
	CoughDuration       SymptomDuration `json:"coughDuration"`
	Fever               bool            `json:"fever"`
	NightSweats         bool            `json:"nightSweats"`
	WeightLoss          bool            `json:"weightLoss"`
	CoughingBlood       bool            `json:"coughingBlood"`
	ChestPain           bool            `json:"chestPain"`
	BreathingDifficulty bool            `json:"breathingDifficulty"`
	TBContact           bool            `json:"tbContact"`
	VisualObservation   *string         `json:"visualObservation,omitempty"`
}

// XRayRecommendation is the triage recommendation enum
type XRayRecommendation string

const (
	RecommendGetXRay      XRayRecommendation = "GET_XRAY"
	RecommendConsiderXRay XRayRecommendation = "CONSIDER_XRAY"
	RecommendNoXRay       XRayRecommendation = "NO_XRAY"
)

// TriageResult is the remote scoring outcome
type TriageResult struct {
	RiskScore      int                `json:"riskScore"`
	Recommendation XRayRecommendation `json:"recommendation"`
	Reasoning      string             `json:"reasoning"`
	Urgency        string             `json:"urgency"`
}

// Medicine is a single pharmacy suggestion
type Medicine struct {
	Name             string `json:"name"`
	GenericName      string `json:"genericName"`
	Purpose          string `json:"purpose"`
	Dosage           string `json:"dosage"`
	ApproximatePrice string `json:"approximatePrice"`
}

// PharmacyResult is the normalized pharmacy lookup response
type PharmacyResult struct {
	Medicines   []Medicine `json:"medicines"`
	Precautions []string   `json:"precautions"`
	Advice      string     `json:"advice"`
	SeeDoctor   bool       `json:"seeDoctor"`
}

// SessionKind distinguishes chat sessions from therapy sessions
type SessionKind string

const (
	SessionKindChat    SessionKind = "chat"
	SessionKindTherapy SessionKind = "therapy"
)

// MessageRole is the author of a conversation message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one entry of a conversation
type Message struct {
	Role      MessageRole `json:"role"`
	Text      string      `json:"text"`
	ImageRef  *string     `json:"imageRef,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Session is an ordered conversation of one kind
type Session struct {
	ID        string      `json:"id"`
	Kind      SessionKind `json:"kind"`
	Title     string      `json:"title"`
	Messages  []Message   `json:"messages"`
	Timestamp time.Time   `json:"timestamp"`
}

// Sex of the user as recorded in the profile
type Sex string

const (
	SexMale        Sex = "male"
	SexFemale      Sex = "female"
	SexOther       Sex = "other"
	SexUnspecified Sex = "unspecified"
)

// UserProfile is the singleton local profile
type UserProfile struct {
	Name              string   `json:"name"`
	Age               *int     `json:"age,omitempty"`
	Sex               Sex      `json:"sex"`
	BloodGroup        string   `json:"bloodGroup"`
	WeightKg          *float64 `json:"weightKg,omitempty"`
	ChronicConditions []string `json:"chronicConditions"`
	Allergies         []string `json:"allergies"`
	EmergencyContact  string   `json:"emergencyContact"`
}

// DefaultProfile returns the profile used before the user edits it
func DefaultProfile() UserProfile {
	return UserProfile{
		Sex:               SexUnspecified,
		ChronicConditions: []string{},
		Allergies:         []string{},
	}
}

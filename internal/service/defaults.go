package service

import "github.com/vcscsvcscs/medassist/internal/ai"

// Placeholders substituted for optional prose fields the model left out.
// These strings are shown to the user as-is.
const (
	DefaultDescription    = "No description available."
	DefaultDetails        = "No additional details provided."
	DefaultTreatment      = "Please consult a qualified healthcare professional for treatment advice."
	DefaultObservations   = "No specific observations recorded."
	DefaultUrgency        = "Not specified"
	DefaultPharmacyAdvice = "Consult a pharmacist or doctor before taking any medication."
)

// Rejected analysis result values
const (
	RejectedCondition   = "Invalid Image"
	RejectedDescription = "The uploaded image does not appear to be a medical image that can be analyzed. Please upload a clear photo of the affected area or a medical scan."
)

// fieldDefaults maps optional fields of each structured response to their placeholder.
// Fields not listed here are either required or default to an empty value.
var fieldDefaults = map[string]map[string]string{
	"analysis": {
		"description":  DefaultDescription,
		"details":      DefaultDetails,
		"treatment":    DefaultTreatment,
		"observations": DefaultObservations,
	},
	"triage": {
		"urgency": DefaultUrgency,
	},
	"pharmacy": {
		"advice": DefaultPharmacyAdvice,
	},
}

func textOrDefault(table string, obj ai.Object, field string) string {
	if s, ok := obj.Text(field); ok {
		return s
	}
	return fieldDefaults[table][field]
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

package ai

// Capability tags a model request with the feature it serves
type Capability string

const (
	CapabilityImageAnalysis Capability = "image_analysis"
	CapabilityPharmacy      Capability = "pharmacy"
	CapabilityChat          Capability = "chat"
	CapabilityTherapy       Capability = "therapy"
	CapabilityTriage        Capability = "triage"
	CapabilityTranscription Capability = "transcription"
)

// Role is the author of a content turn
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Part is either a text fragment or an inline binary blob
type Part struct {
	Text     string
	Data     []byte
	MIMEType string
}

// TextPart creates a text part
func TextPart(text string) Part {
	return Part{Text: text}
}

// BlobPart creates an inline binary part
func BlobPart(data []byte, mimeType string) Part {
	return Part{Data: data, MIMEType: mimeType}
}

// IsBlob reports whether the part carries binary data
func (p Part) IsBlob() bool {
	return len(p.Data) > 0
}

// Content is one conversation turn
type Content struct {
	Role  Role
	Parts []Part
}

// UserContent builds a user turn from parts
func UserContent(parts ...Part) Content {
	return Content{Role: RoleUser, Parts: parts}
}

// ModelContent builds a model turn holding a single text part
func ModelContent(text string) Content {
	return Content{Role: RoleModel, Parts: []Part{TextPart(text)}}
}

// Request is a provider-neutral generation request
type Request struct {
	Capability        Capability
	Model             string
	SystemInstruction string
	Contents          []Content
	Schema            *Schema
	ThinkingBudget    *int32
}

// Structured reports whether the request expects a JSON response
func (r *Request) Structured() bool {
	return r.Schema != nil
}

// Response is the raw result of a successful invocation
type Response struct {
	Text            string
	Model           string
	CredentialIndex int
	Attempts        int
}

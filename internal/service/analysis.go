package service

import (
	"context"
	"fmt"

	"github.com/vcscsvcscs/medassist/internal/ai"
	"github.com/vcscsvcscs/medassist/pkg/model"
	"go.uber.org/zap"
)

// AnalysisSchema is the structured response expected from image analysis
var AnalysisSchema = &ai.Schema{
	Type: ai.TypeObject,
	Properties: map[string]*ai.Schema{
		"isValidMedicalImage": {Type: ai.TypeBoolean, Description: "false when the image is not a medical image that can be analyzed"},
		"condition":           {Type: ai.TypeString, Description: "specific name of the most likely condition"},
		"confidence":          {Type: ai.TypeInteger, Description: "honest confidence from 0 to 100"},
		"description":         {Type: ai.TypeString},
		"details":             {Type: ai.TypeString},
		"treatment":           {Type: ai.TypeString},
		"isEmergency":         {Type: ai.TypeBoolean},
		"clinicalAlerts":      {Type: ai.TypeArray, Items: &ai.Schema{Type: ai.TypeString}},
		"observations":        {Type: ai.TypeString},
		"estimatedCost":       {Type: ai.TypeString, Description: "treatment cost range in Indian Rupees"},
	},
	Required: []string{"isValidMedicalImage", "condition", "confidence", "isEmergency"},
}

var modalityFocus = map[model.Modality]string{
	model.ModalitySkin:    "a dermatological photo. Look at lesion shape, colour, border, distribution and texture.",
	model.ModalityWound:   "a wound photo. Assess size, depth, edges, exudate and signs of infection or poor healing.",
	model.ModalityEye:     "an eye photo. Assess the sclera, conjunctiva, cornea, pupil and eyelids.",
	model.ModalityXRay:    "a radiograph. Describe findings systematically and name the specific radiological pattern.",
	model.ModalityDental:  "an intra-oral photo. Assess teeth, gums and soft tissue.",
	model.ModalityGeneral: "a general medical photo. Identify the body region first, then assess visible findings.",
}

const analysisInstruction = `You are an experienced clinician reviewing a patient-submitted medical image.

Rules:
- First decide whether the image is a medical image that can be analyzed. If it is not (for example a landscape, an object, a screenshot or an unrecognizable blur), set "isValidMedicalImage" to false and leave the other fields minimal.
- Name a specific condition. Never answer with a generic placeholder such as "skin condition", "abnormality", "infection", "unknown" or "unclear".
- "confidence" is an honest integer from 0 to 100 reflecting how sure you are from the image alone. Do not inflate it.
- Set "isEmergency" to true only when the findings need urgent in-person care, and list the warning signs in "clinicalAlerts".
- "estimatedCost" is the typical treatment cost in India, written as a range in Indian Rupees between ₹100 and ₹50,000, for example "₹500 - ₹2,000".
- Respond with JSON only, no markdown.`

// ImageAnalysis builds the request for analyzing one captured image
func (b *RequestBuilder) ImageAnalysis(image Blob, modality model.Modality, profile *model.UserProfile) *ai.Request {
	if !modality.Valid() {
		modality = model.ModalityGeneral
	}

	return &ai.Request{
		Capability: ai.CapabilityImageAnalysis,
		Model:      b.models.ImageAnalysis,
		SystemInstruction: joinInstruction(
			analysisInstruction,
			b.clock.Context(),
			profileSnapshot(profile),
		),
		Contents: []ai.Content{ai.UserContent(
			ai.TextPart(fmt.Sprintf("Analyze this image. It is %s", modalityFocus[modality])),
			ai.BlobPart(image.Data, image.MIMEType),
		)},
		Schema:         AnalysisSchema,
		ThinkingBudget: thinkingBudget(b.thinking.ImageAnalysis),
	}
}

// RejectedResult is the result variant for images that cannot be analyzed
func RejectedResult(modelName string) *model.AnalysisResult {
	return &model.AnalysisResult{
		Status:         model.AnalysisStatusRejected,
		Condition:      RejectedCondition,
		Confidence:     0,
		Description:    RejectedDescription,
		Details:        DefaultDetails,
		Treatment:      DefaultTreatment,
		ClinicalAlerts: []string{},
		Observations:   DefaultObservations,
		ModelName:      modelName,
	}
}

// NormalizeAnalysis turns a validated response into an AnalysisResult.
// Optional prose fields fall back to fixed placeholders; a response flagged
// as not a medical image yields the rejected variant whatever else it holds.
func NormalizeAnalysis(obj ai.Object, modelName string) (*model.AnalysisResult, error) {
	valid, ok := obj.Bool("isValidMedicalImage")
	if !ok {
		return nil, &ai.ParseError{Field: "isValidMedicalImage", Reason: "missing required field"}
	}
	if !valid {
		return RejectedResult(modelName), nil
	}

	condition, ok := obj.Text("condition")
	if !ok {
		return nil, &ai.ParseError{Field: "condition", Reason: "must not be empty"}
	}
	confidence, ok := obj.Int("confidence")
	if !ok {
		return nil, &ai.ParseError{Field: "confidence", Reason: "missing required field"}
	}
	emergency, ok := obj.Bool("isEmergency")
	if !ok {
		return nil, &ai.ParseError{Field: "isEmergency", Reason: "missing required field"}
	}

	alerts, _ := obj.Strings("clinicalAlerts")
	if alerts == nil {
		alerts = []string{}
	}

	result := &model.AnalysisResult{
		Status:         model.AnalysisStatusOK,
		Condition:      condition,
		Confidence:     clampPercent(confidence),
		Description:    textOrDefault("analysis", obj, "description"),
		Details:        textOrDefault("analysis", obj, "details"),
		Treatment:      textOrDefault("analysis", obj, "treatment"),
		IsEmergency:    emergency,
		ClinicalAlerts: alerts,
		Observations:   textOrDefault("analysis", obj, "observations"),
		ModelName:      modelName,
	}
	if cost, ok := obj.Text("estimatedCost"); ok {
		result.EstimatedCost = &cost
	}

	return result, nil
}

// Analyze runs image analysis. A rejected image is a normal result, not an error.
func (a *Assistant) Analyze(ctx context.Context, image Blob, modality model.Modality, profile *model.UserProfile) (*model.AnalysisResult, error) {
	req := a.builder.ImageAnalysis(image, modality, profile)

	resp, err := a.invoke(ctx, req)
	if err != nil {
		return nil, err
	}

	obj, err := a.parse(req, resp)
	if err != nil {
		return nil, err
	}

	result, err := NormalizeAnalysis(obj, resp.Model)
	if err != nil {
		a.logParseFailure(req, resp, err)
		return nil, err
	}

	if result.Rejected() {
		a.logger.Info("image rejected as non-medical", zap.String("modality", string(modality)))
	}

	return result, nil
}

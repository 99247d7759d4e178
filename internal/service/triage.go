package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vcscsvcscs/medassist/internal/ai"
	"github.com/vcscsvcscs/medassist/pkg/model"
	"go.uber.org/zap"
)

// TriageSchema is the structured response expected from triage scoring
var TriageSchema = &ai.Schema{
	Type: ai.TypeObject,
	Properties: map[string]*ai.Schema{
		"riskScore": {Type: ai.TypeInteger, Description: "tuberculosis risk from 0 to 100"},
		"recommendation": {
			Type: ai.TypeString,
			Enum: []string{string(model.RecommendGetXRay), string(model.RecommendConsiderXRay), string(model.RecommendNoXRay)},
		},
		"reasoning": {Type: ai.TypeString},
		"urgency":   {Type: ai.TypeString, Description: "short urgency label such as \"Within 48 hours\""},
	},
	Required: []string{"riskScore", "recommendation", "reasoning"},
}

const triageInstruction = `You are a tuberculosis screening assistant supporting community health workers.
You receive a patient's questionnaire answers as JSON. Score the tuberculosis risk from 0 to 100 and decide whether a chest X-ray is needed:
- GET_XRAY when the answers indicate likely active tuberculosis,
- CONSIDER_XRAY when the picture is mixed,
- NO_XRAY when tuberculosis is unlikely.
Explain your reasoning in two or three plain sentences a patient can understand.
Respond with JSON only, no markdown.`

// Triage builds the scoring request. The questionnaire is sent as-is;
// no risk scoring happens locally.
func (b *RequestBuilder) Triage(input model.TriageInput) (*ai.Request, error) {
	answers, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode triage answers: %w", err)
	}

	return &ai.Request{
		Capability:        ai.CapabilityTriage,
		Model:             b.models.Triage,
		SystemInstruction: joinInstruction(triageInstruction, b.clock.Context()),
		Contents: []ai.Content{ai.UserContent(
			ai.TextPart("Questionnaire answers:\n" + string(answers)),
		)},
		Schema:         TriageSchema,
		ThinkingBudget: thinkingBudget(b.thinking.Triage),
	}, nil
}

// NormalizeTriage turns a validated response into a TriageResult
func NormalizeTriage(obj ai.Object) (*model.TriageResult, error) {
	score, ok := obj.Int("riskScore")
	if !ok {
		return nil, &ai.ParseError{Field: "riskScore", Reason: "missing required field"}
	}
	recommendation, ok := obj.Text("recommendation")
	if !ok {
		return nil, &ai.ParseError{Field: "recommendation", Reason: "missing required field"}
	}
	reasoning, ok := obj.Text("reasoning")
	if !ok {
		return nil, &ai.ParseError{Field: "reasoning", Reason: "must not be empty"}
	}

	return &model.TriageResult{
		RiskScore:      clampPercent(score),
		Recommendation: model.XRayRecommendation(recommendation),
		Reasoning:      reasoning,
		Urgency:        textOrDefault("triage", obj, "urgency"),
	}, nil
}

// Triage scores the questionnaire remotely
func (a *Assistant) Triage(ctx context.Context, input model.TriageInput) (*model.TriageResult, error) {
	if !input.CoughDuration.Valid() {
		return nil, fmt.Errorf("%w: unknown cough duration %q", ErrInvalidInput, input.CoughDuration)
	}

	req, err := a.builder.Triage(input)
	if err != nil {
		return nil, err
	}

	resp, err := a.invoke(ctx, req)
	if err != nil {
		return nil, err
	}

	obj, err := a.parse(req, resp)
	if err != nil {
		return nil, err
	}

	result, err := NormalizeTriage(obj)
	if err != nil {
		a.logParseFailure(req, resp, err)
		return nil, err
	}

	a.logger.Info("triage scored",
		zap.Int("risk_score", result.RiskScore),
		zap.String("recommendation", string(result.Recommendation)),
	)

	return result, nil
}

package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vcscsvcscs/medassist/internal/ai"
	"github.com/vcscsvcscs/medassist/internal/config"
	"github.com/vcscsvcscs/medassist/pkg/model"
)

// RequestBuilder shapes one model request per capability. Builders only
// assemble payloads; they never call the model or handle its errors.
type RequestBuilder struct {
	models   config.ModelsConfig
	thinking config.ThinkingConfig
	clock    *Clock
}

// NewRequestBuilder creates a new RequestBuilder
func NewRequestBuilder(models config.ModelsConfig, thinking config.ThinkingConfig, clock *Clock) *RequestBuilder {
	return &RequestBuilder{
		models:   models,
		thinking: thinking,
		clock:    clock,
	}
}

// Clock returns the clock used to ground instructions
func (b *RequestBuilder) Clock() *Clock {
	return b.clock
}

// profileSnapshot renders the profile fields the model may use as context.
// Unknown fields are left out rather than guessed.
func profileSnapshot(p *model.UserProfile) string {
	if p == nil {
		return ""
	}

	var facts []string
	if p.Name != "" {
		facts = append(facts, "name: "+p.Name)
	}
	if p.Age != nil {
		facts = append(facts, "age: "+strconv.Itoa(*p.Age))
	}
	if p.Sex != "" && p.Sex != model.SexUnspecified {
		facts = append(facts, "sex: "+string(p.Sex))
	}
	if p.BloodGroup != "" {
		facts = append(facts, "blood group: "+p.BloodGroup)
	}
	if p.WeightKg != nil {
		facts = append(facts, fmt.Sprintf("weight: %.1f kg", *p.WeightKg))
	}
	if len(p.ChronicConditions) > 0 {
		facts = append(facts, "chronic conditions: "+strings.Join(p.ChronicConditions, ", "))
	}
	if len(p.Allergies) > 0 {
		facts = append(facts, "allergies: "+strings.Join(p.Allergies, ", "))
	}

	if len(facts) == 0 {
		return ""
	}
	return "Patient profile (" + strings.Join(facts, "; ") + ")."
}

// historyContents converts stored messages into model turns. Leading
// assistant turns (such as the greeting) are dropped because conversations
// sent to the model must start with a user turn.
func historyContents(history []model.Message) []ai.Content {
	contents := make([]ai.Content, 0, len(history))
	for _, msg := range history {
		text := strings.TrimSpace(msg.Text)
		if text == "" {
			continue
		}
		if msg.Role == model.RoleAssistant {
			if len(contents) == 0 {
				continue
			}
			contents = append(contents, ai.ModelContent(text))
			continue
		}
		contents = append(contents, ai.UserContent(ai.TextPart(text)))
	}
	return contents
}

func joinInstruction(sections ...string) string {
	out := make([]string, 0, len(sections))
	for _, s := range sections {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "\n\n")
}

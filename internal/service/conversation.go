package service

import (
	"context"
	"strings"

	"github.com/vcscsvcscs/medassist/internal/ai"
	"github.com/vcscsvcscs/medassist/pkg/model"
)

const chatInstruction = `You are a friendly medical assistant for patients in India.
Answer health questions clearly in simple language. When the user shares a photo, describe what you see and what it might indicate.
You do not replace a doctor: recommend seeing one when symptoms are serious, persistent or unclear, and tell the user to call emergency services (112) for emergencies.
Keep answers short and practical.`

const therapyInstruction = `You are a warm, supportive listener offering emotional support.
Listen carefully, reflect feelings back, ask gentle open questions and suggest simple coping techniques such as breathing exercises or journaling.
Do not diagnose. If the user mentions self-harm or suicide, respond with care and share the Tele-MANAS helpline 14416 and emergency number 112.
Keep replies short and conversational.`

// Chat builds a chat request from the prior conversation, the new message and an optional image
func (b *RequestBuilder) Chat(history []model.Message, text string, image *Blob, profile *model.UserProfile) *ai.Request {
	parts := []ai.Part{}
	if t := strings.TrimSpace(text); t != "" {
		parts = append(parts, ai.TextPart(t))
	}
	if image != nil && len(image.Data) > 0 {
		parts = append(parts, ai.BlobPart(image.Data, image.MIMEType))
	}

	contents := append(historyContents(history), ai.UserContent(parts...))

	return &ai.Request{
		Capability:        ai.CapabilityChat,
		Model:             b.models.Chat,
		SystemInstruction: joinInstruction(chatInstruction, b.clock.Context(), profileSnapshot(profile)),
		Contents:          contents,
	}
}

// Therapy builds a therapy request from the prior conversation and the new message
func (b *RequestBuilder) Therapy(history []model.Message, text string) *ai.Request {
	contents := append(historyContents(history), ai.UserContent(ai.TextPart(strings.TrimSpace(text))))

	return &ai.Request{
		Capability:        ai.CapabilityTherapy,
		Model:             b.models.Therapy,
		SystemInstruction: joinInstruction(therapyInstruction, b.clock.Context()),
		Contents:          contents,
	}
}

// Chat returns the assistant's reply to a new chat message
func (a *Assistant) Chat(ctx context.Context, history []model.Message, text string, image *Blob, profile *model.UserProfile) (string, error) {
	if strings.TrimSpace(text) == "" && (image == nil || len(image.Data) == 0) {
		return "", ErrInvalidInput
	}

	resp, err := a.invoke(ctx, a.builder.Chat(history, text, image, profile))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

// Therapy returns the listener's reply to a new therapy message
func (a *Assistant) Therapy(ctx context.Context, history []model.Message, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrInvalidInput
	}

	resp, err := a.invoke(ctx, a.builder.Therapy(history, text))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

package service

import (
	"context"
	"strings"

	"github.com/vcscsvcscs/medassist/internal/ai"
)

// Transcriber converts recorded speech to text
type Transcriber interface {
	Transcribe(ctx context.Context, audio Blob) (string, error)
}

const transcriptionInstruction = `Transcribe the spoken audio verbatim.
Return only the transcribed text, without timestamps, speaker labels, commentary or quotation marks.
If nothing intelligible is spoken, return an empty string.`

// Transcription builds the speech-to-text request for an audio clip
func (b *RequestBuilder) Transcription(audio Blob) *ai.Request {
	return &ai.Request{
		Capability:        ai.CapabilityTranscription,
		Model:             b.models.Transcription,
		SystemInstruction: transcriptionInstruction,
		Contents: []ai.Content{ai.UserContent(
			ai.TextPart("Transcribe this recording."),
			ai.BlobPart(audio.Data, audio.MIMEType),
		)},
	}
}

// Transcribe converts speech to text with the generative model
func (a *Assistant) Transcribe(ctx context.Context, audio Blob) (string, error) {
	if len(audio.Data) == 0 {
		return "", ErrInvalidInput
	}

	resp, err := a.invoke(ctx, a.builder.Transcription(audio))
	if err != nil {
		return "", err
	}
	return strings.Trim(strings.TrimSpace(resp.Text), `"`), nil
}

var _ Transcriber = (*Assistant)(nil)

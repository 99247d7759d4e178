package azure

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/vcscsvcscs/medassist/internal/ai"
	"github.com/vcscsvcscs/medassist/internal/service"
	"go.uber.org/zap"
)

const recognitionPath = "/speech/recognition/conversation/cognitiveservices/v1"

// SpeechServiceClient transcribes short recordings with the Azure Speech REST API
type SpeechServiceClient struct {
	httpClient *resty.Client
	language   string
	logger     *zap.Logger
}

var _ service.Transcriber = (*SpeechServiceClient)(nil)

type recognitionResult struct {
	RecognitionStatus string `json:"RecognitionStatus"`
	DisplayText       string `json:"DisplayText"`
	Offset            int64  `json:"Offset"`
	Duration          int64  `json:"Duration"`
}

// NewSpeechServiceClient creates a new Azure Speech Service client
func NewSpeechServiceClient(subscriptionKey, region, language string, logger *zap.Logger) (*SpeechServiceClient, error) {
	if subscriptionKey == "" || region == "" {
		return nil, fmt.Errorf("subscriptionKey and region are required")
	}
	return newSpeechServiceClient(fmt.Sprintf("https://%s.stt.speech.microsoft.com", region), subscriptionKey, language, logger), nil
}

func newSpeechServiceClient(endpoint, subscriptionKey, language string, logger *zap.Logger) *SpeechServiceClient {
	if language == "" {
		language = "en-IN"
	}
	client := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(60*time.Second).
		SetHeader("Ocp-Apim-Subscription-Key", subscriptionKey).
		SetHeader("Accept", "application/json")

	return &SpeechServiceClient{
		httpClient: client,
		language:   language,
		logger:     logger,
	}
}

// speechContentType maps a recording MIME type to the content types the
// short audio endpoint accepts
func speechContentType(mimeType string) (string, bool) {
	base := strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	switch base {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return "audio/wav; codecs=audio/pcm; samplerate=16000", true
	case "audio/ogg":
		return "audio/ogg; codecs=opus", true
	}
	return "", false
}

// Transcribe converts a recording to text
func (c *SpeechServiceClient) Transcribe(ctx context.Context, audio service.Blob) (string, error) {
	contentType, ok := speechContentType(audio.MIMEType)
	if !ok {
		return "", fmt.Errorf("%w: speech service does not support %s", service.ErrInvalidInput, audio.MIMEType)
	}

	c.logger.Info("starting speech-to-text transcription",
		zap.String("language", c.language),
		zap.Int("audio_size_bytes", len(audio.Data)),
	)

	startTime := time.Now()
	var result recognitionResult
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("language", c.language).
		SetHeader("Content-Type", contentType).
		SetBody(audio.Data).
		SetResult(&result).
		Post(recognitionPath)
	if err != nil {
		c.logger.Error("speech-to-text request failed", zap.Error(err))
		return "", &ai.SynthesisError{Class: ai.ClassTransientNetwork, Attempts: 1, Err: err}
	}

	if resp.StatusCode() != http.StatusOK {
		c.logger.Error("speech-to-text request failed",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("response", resp.String()),
		)
		return "", speechStatusError(resp.StatusCode(), resp.String())
	}

	c.logger.Info("speech-to-text transcription completed",
		zap.String("status", result.RecognitionStatus),
		zap.Duration("processing_time", time.Since(startTime)),
	)

	switch result.RecognitionStatus {
	case "Success":
		return strings.TrimSpace(result.DisplayText), nil
	case "NoMatch", "InitialSilenceTimeout", "BabbleTimeout":
		// nothing intelligible was said
		return "", nil
	default:
		return "", &ai.SynthesisError{
			Class:    ai.ClassOther,
			Attempts: 1,
			Err:      fmt.Errorf("recognition failed with status: %s", result.RecognitionStatus),
		}
	}
}

func speechStatusError(status int, body string) error {
	err := fmt.Errorf("speech-to-text request failed with status %d: %s", status, body)
	switch status {
	case http.StatusTooManyRequests:
		return &ai.QuotaExhaustedError{Attempts: 1, Last: err}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &ai.SynthesisError{Class: ai.ClassAuthInvalid, Attempts: 1, Err: err}
	default:
		return &ai.SynthesisError{Class: ai.ClassOther, Attempts: 1, Err: err}
	}
}

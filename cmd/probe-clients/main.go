package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/vcscsvcscs/medassist/internal/ai"
	"github.com/vcscsvcscs/medassist/internal/azure"
	"github.com/vcscsvcscs/medassist/internal/capture"
	"github.com/vcscsvcscs/medassist/internal/config"
	"github.com/vcscsvcscs/medassist/internal/credential"
)

// probe-clients checks every configured API key and the optional Azure
// services against the live endpoints. Set PROBE_AUDIO_FILE to a WAV or OGG
// recording to exercise speech recognition.
func main() {
	// Initialize logger
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	if len(cfg.AI.APIKeys) == 0 {
		logger.Fatal("No API keys configured. Set GEMINI_API_KEYS or GEMINI_API_KEY")
	}

	ctx := context.Background()
	failed := false

	// Test 1: every API key
	logger.Info("=== Probing API keys ===", zap.String("provider", cfg.AI.Provider))
	if err := probeKeys(ctx, cfg, logger); err != nil {
		logger.Error("API key probe failed", zap.Error(err))
		failed = true
	}

	// Test 2: Azure Speech Service
	if cfg.Azure.Speech.SubscriptionKey != "" {
		logger.Info("=== Probing Azure Speech Service ===")
		if err := probeSpeech(ctx, cfg, logger); err != nil {
			logger.Error("Speech probe failed", zap.Error(err))
			failed = true
		}
	} else {
		logger.Info("Azure Speech Service not configured, skipping")
	}

	// Test 3: Azure Blob Storage
	if cfg.Azure.Storage.Enabled() {
		logger.Info("=== Probing Azure Blob Storage ===")
		if err := probeBlobStorage(ctx, cfg, logger); err != nil {
			logger.Error("Blob storage probe failed", zap.Error(err))
			failed = true
		}
	} else {
		logger.Info("Azure Blob Storage not configured, skipping")
	}

	logger.Info("=== All probes completed ===")
	if failed {
		os.Exit(1)
	}
}

func newProvider(cfg *config.Config, logger *zap.Logger) (ai.Provider, error) {
	if cfg.AI.Provider == "azure-openai" {
		return ai.NewOpenAIProvider(cfg.Azure.OpenAI.Endpoint, cfg.Azure.OpenAI.APIVersion, cfg.Azure.OpenAI.Deployment, logger)
	}
	return ai.NewGeminiProvider(cfg.AI.BaseURL, logger), nil
}

// probeKeys sends one tiny request per key, without rotation, and reports how
// each key failed
func probeKeys(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	provider, err := newProvider(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}

	req := &ai.Request{
		Capability: ai.CapabilityChat,
		Model:      cfg.AI.Models.Chat,
		Contents:   []ai.Content{ai.UserContent(ai.TextPart("Reply with the single word: ready"))},
	}

	usable := 0
	for i, raw := range cfg.AI.APIKeys {
		key := credential.Credential(raw)

		callCtx, cancel := context.WithTimeout(ctx, cfg.AI.Timeout)
		start := time.Now()
		text, err := provider.Generate(callCtx, key, req)
		cancel()

		if err != nil {
			logger.Warn("Key failed",
				zap.Int("index", i),
				zap.String("key", key.Masked()),
				zap.String("class", string(ai.Classify(err))),
				zap.Error(err),
			)
			continue
		}

		usable++
		logger.Info("Key usable",
			zap.Int("index", i),
			zap.String("key", key.Masked()),
			zap.Duration("latency", time.Since(start)),
			zap.String("response", text),
		)
	}

	if usable == 0 {
		return fmt.Errorf("none of the %d configured keys is usable", len(cfg.AI.APIKeys))
	}
	return nil
}

func probeSpeech(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	client, err := azure.NewSpeechServiceClient(
		cfg.Azure.Speech.SubscriptionKey,
		cfg.Azure.Speech.Region,
		cfg.Azure.Speech.Language,
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create Speech client: %w", err)
	}

	path := os.Getenv("PROBE_AUDIO_FILE")
	if path == "" {
		logger.Info("PROBE_AUDIO_FILE not set, speech client created but not exercised")
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read audio file: %w", err)
	}
	audio := capture.Blob{Data: data, MIMEType: capture.Sniff(data, "")}

	text, err := client.Transcribe(ctx, audio)
	if err != nil {
		return fmt.Errorf("speech-to-text failed: %w", err)
	}

	logger.Info("Speech-to-text completed",
		zap.String("file", path),
		zap.String("mime_type", audio.MIMEType),
		zap.String("transcription", text),
	)
	if text == "" {
		logger.Warn("Transcription is empty")
	}
	return nil
}

func probeBlobStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	client, err := azure.NewBlobStorageClient(
		cfg.Azure.Storage.AccountName,
		cfg.Azure.Storage.AccountKey,
		cfg.Azure.Storage.ImageContainer,
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create Blob Storage client: %w", err)
	}

	// 1x1 transparent PNG
	testImage := []byte{
		0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
		0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
		0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
		0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
		0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
	}
	name := fmt.Sprintf("probe-%d", time.Now().Unix())

	ref, err := client.UploadImage(ctx, name, testImage, "image/png")
	if err != nil {
		return fmt.Errorf("image upload failed: %w", err)
	}
	logger.Info("Image uploaded successfully", zap.String("ref", ref))

	downloaded, mimeType, err := client.DownloadImage(ctx, ref)
	if err != nil {
		return fmt.Errorf("image download failed: %w", err)
	}
	if !bytes.Equal(downloaded, testImage) {
		return fmt.Errorf("downloaded image doesn't match uploaded image")
	}

	logger.Info("Image downloaded and verified successfully",
		zap.String("mime_type", mimeType),
		zap.Int("size_bytes", len(downloaded)),
	)
	return nil
}

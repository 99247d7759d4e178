package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/azure"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"github.com/vcscsvcscs/medassist/internal/credential"
	"go.uber.org/zap"
)

// OpenAIProvider calls an Azure OpenAI chat deployment.
// Images are sent as data URLs; audio input is not supported.
type OpenAIProvider struct {
	endpoint   string
	apiVersion string
	deployment string
	mu         sync.Mutex
	clients    map[credential.Credential]*openai.Client
	logger     *zap.Logger
}

// NewOpenAIProvider creates an Azure OpenAI provider
func NewOpenAIProvider(endpoint, apiVersion, deployment string, logger *zap.Logger) (*OpenAIProvider, error) {
	if endpoint == "" || deployment == "" {
		return nil, fmt.Errorf("endpoint and deployment are required")
	}
	if apiVersion == "" {
		apiVersion = "2024-08-01-preview"
	}

	return &OpenAIProvider{
		endpoint:   endpoint,
		apiVersion: apiVersion,
		deployment: deployment,
		clients:    make(map[credential.Credential]*openai.Client),
		logger:     logger,
	}, nil
}

func (p *OpenAIProvider) Name() string {
	return "azure-openai"
}

func (p *OpenAIProvider) client(key credential.Credential) *openai.Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[key]; ok {
		return c
	}

	c := openai.NewClient(
		azure.WithEndpoint(p.endpoint, p.apiVersion),
		azure.WithAPIKey(string(key)),
		// rotation on quota errors is handled by the Invoker
		option.WithMaxRetries(0),
	)
	p.clients[key] = &c
	return &c
}

// Generate performs a single chat completion request
func (p *OpenAIProvider) Generate(ctx context.Context, key credential.Credential, req *Request) (string, error) {
	messages, err := p.buildMessages(req)
	if err != nil {
		return "", err
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.deployment),
		Messages: messages,
	}
	if req.Structured() {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	requestStart := time.Now()
	resp, err := p.client(key).Chat.Completions.New(ctx, params)
	if err != nil {
		return "", wrapOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}

	p.logger.Info("Azure OpenAI token usage",
		zap.String("capability", string(req.Capability)),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
		zap.Int64("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("request_time", time.Since(requestStart)),
	)

	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) buildMessages(req *Request) ([]openai.ChatCompletionMessageParamUnion, error) {
	system := req.SystemInstruction
	if req.Schema != nil {
		schema, err := json.Marshal(req.Schema)
		if err != nil {
			return nil, fmt.Errorf("failed to encode response schema: %w", err)
		}
		system += "\n\nRespond with a single JSON object matching this JSON schema:\n" + string(schema)
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Contents)+1)
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}

	for _, c := range req.Contents {
		if c.Role == RoleModel {
			messages = append(messages, openai.AssistantMessage(joinText(c.Parts)))
			continue
		}

		parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(c.Parts))
		for _, part := range c.Parts {
			if !part.IsBlob() {
				parts = append(parts, openai.TextContentPart(part.Text))
				continue
			}
			if !strings.HasPrefix(part.MIMEType, "image/") {
				return nil, fmt.Errorf("azure-openai provider does not support %s input", part.MIMEType)
			}
			dataURL := "data:" + part.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(part.Data)
			parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}))
		}
		messages = append(messages, openai.UserMessage(parts))
	}

	return messages, nil
}

func joinText(parts []Part) string {
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

func wrapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &ProviderError{
			Provider:   "azure-openai",
			StatusCode: apiErr.StatusCode,
			Status:     apiErr.Code,
			Message:    apiErr.Message,
			Err:        err,
		}
	}
	return fmt.Errorf("chat completion request failed: %w", err)
}

package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vcscsvcscs/medassist/internal/credential"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiProvider calls the Gemini API through the genai SDK.
// One SDK client is kept per API key.
type GeminiProvider struct {
	baseURL string
	mu      sync.Mutex
	clients map[credential.Credential]*genai.Client
	logger  *zap.Logger
}

// NewGeminiProvider creates a Gemini provider. baseURL overrides the API endpoint when set.
func NewGeminiProvider(baseURL string, logger *zap.Logger) *GeminiProvider {
	return &GeminiProvider{
		baseURL: baseURL,
		clients: make(map[credential.Credential]*genai.Client),
		logger:  logger,
	}
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

func (p *GeminiProvider) client(ctx context.Context, key credential.Credential) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[key]; ok {
		return c, nil
	}

	cfg := &genai.ClientConfig{
		APIKey:  string(key),
		Backend: genai.BackendGeminiAPI,
	}
	if p.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: p.baseURL}
	}

	c, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	p.clients[key] = c
	return c, nil
}

// Generate sends one GenerateContent request and returns the concatenated text parts
func (p *GeminiProvider) Generate(ctx context.Context, key credential.Credential, req *Request) (string, error) {
	client, err := p.client(ctx, key)
	if err != nil {
		return "", err
	}

	config := &genai.GenerateContentConfig{}
	if req.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	if req.Schema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = toGenaiSchema(req.Schema)
	}
	if req.ThinkingBudget != nil {
		config.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: req.ThinkingBudget}
	}

	requestStart := time.Now()
	resp, err := client.Models.GenerateContent(ctx, req.Model, toGenaiContents(req.Contents), config)
	if err != nil {
		return "", wrapGeminiError(err)
	}

	if resp.UsageMetadata != nil {
		p.logger.Info("gemini token usage",
			zap.String("capability", string(req.Capability)),
			zap.String("model", req.Model),
			zap.Int32("prompt_tokens", resp.UsageMetadata.PromptTokenCount),
			zap.Int32("completion_tokens", resp.UsageMetadata.CandidatesTokenCount),
			zap.Int32("total_tokens", resp.UsageMetadata.TotalTokenCount),
			zap.Duration("request_time", time.Since(requestStart)),
		)
	}

	return responseText(resp), nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}

func wrapGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{Provider: "gemini", StatusCode: apiErr.Code, Status: apiErr.Status, Message: apiErr.Message, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &ProviderError{Provider: "gemini", StatusCode: apiErrPtr.Code, Status: apiErrPtr.Status, Message: apiErrPtr.Message, Err: err}
	}
	return fmt.Errorf("gemini request failed: %w", err)
}

func toGenaiContents(contents []Content) []*genai.Content {
	out := make([]*genai.Content, 0, len(contents))
	for _, c := range contents {
		parts := make([]*genai.Part, 0, len(c.Parts))
		for _, p := range c.Parts {
			if p.IsBlob() {
				parts = append(parts, genai.NewPartFromBytes(p.Data, p.MIMEType))
			} else {
				parts = append(parts, genai.NewPartFromText(p.Text))
			}
		}
		var role genai.Role = genai.RoleUser
		if c.Role == RoleModel {
			role = genai.RoleModel
		}
		out = append(out, genai.NewContentFromParts(parts, role))
	}
	return out
}

func toGenaiSchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        genaiType(s.Type),
		Description: s.Description,
		Required:    s.Required,
		Enum:        s.Enum,
		Items:       toGenaiSchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenaiSchema(prop)
		}
	}
	return out
}

func genaiType(t Type) genai.Type {
	switch t {
	case TypeObject:
		return genai.TypeObject
	case TypeArray:
		return genai.TypeArray
	case TypeInteger:
		return genai.TypeInteger
	case TypeNumber:
		return genai.TypeNumber
	case TypeBoolean:
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}

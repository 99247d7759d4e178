package ai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vcscsvcscs/medassist/internal/credential"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

type capturedRequest struct {
	path   string
	apiKey string
	body   string
}

func newGeminiServer(t *testing.T, status int, body string) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var mu sync.Mutex
	captured := []capturedRequest{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		captured = append(captured, capturedRequest{
			path:   r.URL.Path,
			apiKey: r.Header.Get("x-goog-api-key"),
			body:   string(data),
		})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	return server, &captured
}

func TestGeminiProvider_Generate(t *testing.T) {
	server, captured := newGeminiServer(t, http.StatusOK, `{
		"candidates": [{"content": {"role": "model", "parts": [{"text": "{\"condition\":"}, {"text": "\"Acne\"}"}]}}],
		"usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 5, "totalTokenCount": 15}
	}`)

	provider := NewGeminiProvider(server.URL, zap.NewNop())
	req := &Request{
		Capability:        CapabilityImageAnalysis,
		Model:             "gemini-2.5-flash",
		SystemInstruction: "You are a dermatology assistant.",
		Contents:          []Content{UserContent(TextPart("analyze"), BlobPart([]byte{0xff, 0xd8, 0xff}, "image/jpeg"))},
		Schema:            &Schema{Type: TypeObject, Properties: map[string]*Schema{"condition": {Type: TypeString}}, Required: []string{"condition"}},
	}

	text, err := provider.Generate(context.Background(), credential.Credential("test-key"), req)
	require.NoError(t, err)
	assert.Equal(t, `{"condition":"Acne"}`, text)

	require.Len(t, *captured, 1)
	got := (*captured)[0]
	assert.Contains(t, got.path, "gemini-2.5-flash:generateContent")
	assert.Equal(t, "test-key", got.apiKey)
	assert.Contains(t, got.body, "You are a dermatology assistant.")
	assert.Contains(t, got.body, "application/json")
	assert.Contains(t, got.body, "image/jpeg")
}

func TestGeminiProvider_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   FailureClass
	}{
		{
			name:   "quota",
			status: http.StatusTooManyRequests,
			body:   `{"error": {"code": 429, "message": "Resource has been exhausted (e.g. check quota).", "status": "RESOURCE_EXHAUSTED"}}`,
			want:   ClassQuotaExceeded,
		},
		{
			name:   "invalid key",
			status: http.StatusBadRequest,
			body:   `{"error": {"code": 400, "message": "API key not valid. Please pass a valid API key.", "status": "INVALID_ARGUMENT"}}`,
			want:   ClassAuthInvalid,
		},
		{
			name:   "bad request",
			status: http.StatusBadRequest,
			body:   `{"error": {"code": 400, "message": "Request contains an invalid argument.", "status": "INVALID_ARGUMENT"}}`,
			want:   ClassOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newGeminiServer(t, tt.status, tt.body)
			provider := NewGeminiProvider(server.URL, zap.NewNop())

			_, err := provider.Generate(context.Background(), credential.Credential("k"), testRequest())
			require.Error(t, err)

			var provErr *ProviderError
			require.ErrorAs(t, err, &provErr)
			assert.Equal(t, tt.status, provErr.StatusCode)
			assert.Equal(t, tt.want, Classify(err))
		})
	}
}

func TestGeminiProvider_ReusesClientPerKey(t *testing.T) {
	server, _ := newGeminiServer(t, http.StatusOK, `{"candidates": [{"content": {"parts": [{"text": "ok"}]}}]}`)
	provider := NewGeminiProvider(server.URL, zap.NewNop())

	for i := 0; i < 3; i++ {
		_, err := provider.Generate(context.Background(), credential.Credential("same"), testRequest())
		require.NoError(t, err)
	}
	_, err := provider.Generate(context.Background(), credential.Credential("other"), testRequest())
	require.NoError(t, err)

	assert.Len(t, provider.clients, 2)
}

func TestToGenaiSchema(t *testing.T) {
	schema := &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"recommendation": {Type: TypeString, Enum: []string{"GET_XRAY", "NO_XRAY"}},
			"alerts":         {Type: TypeArray, Items: &Schema{Type: TypeString}},
			"score":          {Type: TypeInteger},
		},
		Required: []string{"recommendation"},
	}

	out := toGenaiSchema(schema)
	require.NotNil(t, out)
	assert.Equal(t, []string{"recommendation"}, out.Required)
	assert.Equal(t, []string{"GET_XRAY", "NO_XRAY"}, out.Properties["recommendation"].Enum)
	assert.NotNil(t, out.Properties["alerts"].Items)
	assert.Nil(t, toGenaiSchema(nil))
}

func TestToGenaiContents_Roles(t *testing.T) {
	contents := toGenaiContents([]Content{
		UserContent(TextPart("I have a rash"), BlobPart([]byte{0x89, 'P', 'N', 'G'}, "image/png")),
		ModelContent("How long have you had it?"),
		UserContent(TextPart("Two days")),
	})

	require.Len(t, contents, 3)
	assert.Equal(t, genai.RoleUser, contents[0].Role)
	assert.Equal(t, genai.RoleModel, contents[1].Role)
	assert.Equal(t, genai.RoleUser, contents[2].Role)

	require.Len(t, contents[0].Parts, 2)
	require.NotNil(t, contents[0].Parts[1].InlineData)
	assert.Equal(t, "image/png", contents[0].Parts[1].InlineData.MIMEType)
	assert.Equal(t, "How long have you had it?", contents[1].Parts[0].Text)
}

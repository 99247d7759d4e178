package ai

import (
	"context"

	"github.com/vcscsvcscs/medassist/internal/credential"
)

// Provider performs a single generation attempt with one credential.
// Failures should be returned as *ProviderError when the backend reports a status.
type Provider interface {
	Name() string
	Generate(ctx context.Context, key credential.Credential, req *Request) (string, error)
}

// ProviderFunc adapts a function to the Provider interface
type ProviderFunc func(ctx context.Context, key credential.Credential, req *Request) (string, error)

func (f ProviderFunc) Name() string {
	return "func"
}

func (f ProviderFunc) Generate(ctx context.Context, key credential.Credential, req *Request) (string, error) {
	return f(ctx, key, req)
}

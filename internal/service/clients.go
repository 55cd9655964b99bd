package service

import (
	"context"
	"time"

	"github.com/contentpilot/backend/internal/pkg/imagen"
	"github.com/contentpilot/backend/internal/pkg/llm"
)

// CompletionClient is the LLM collaborator contract the pipeline needs.
// internal/pkg/llm implements it; tests swap in deterministic fakes.
type CompletionClient interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResult, error)
}

// ImageClient is the image generation collaborator contract.
// internal/pkg/imagen implements it.
type ImageClient interface {
	Create(ctx context.Context, prompt, size string) (*imagen.ImageResult, error)
	Edit(ctx context.Context, prompt string, reference []byte, size string) (*imagen.ImageResult, error)
}

// AssetStore is the object storage collaborator contract.
// internal/pkg/storage implements it.
type AssetStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) (bool, error)
	PresignDownload(ctx context.Context, key, fileName string, expires time.Duration) (string, error)
}

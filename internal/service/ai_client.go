package service

import (
	"context"

	"core/internal/model"
)

// AIClient is the interface for AI service providers
type AIClient interface {
	// ProposeSearchParams asks the model to propose search parameters for
	// a query, given recent conversation turns for context.
	ProposeSearchParams(ctx context.Context, query string, history []model.ChatMessage) (*model.ToolProposal, error)

	// CreateEmbeddings generates embeddings for texts
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)

	// IsEnabled returns whether the AI client is configured and ready
	IsEnabled() bool
}

// Ensure OpenAIClient implements AIClient
var _ AIClient = (*OpenAIClient)(nil)

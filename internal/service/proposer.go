package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"core/internal/model"
)

// Proposer wraps the AI client behind a never-fails surface: any model
// problem yields a nil proposal, and the deterministic pipeline carries on.
type Proposer struct {
	aiClient AIClient
}

// NewProposer creates a proposer. A nil client is allowed and means the
// model path is disabled.
func NewProposer(aiClient AIClient) *Proposer {
	return &Proposer{aiClient: aiClient}
}

// Propose returns the model's parameter proposal, or nil when the model
// is unavailable, errors out, or returns an unusable payload.
func (p *Proposer) Propose(ctx context.Context, query string, history []model.ChatMessage) *model.ToolProposal {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	if p.aiClient == nil || !p.aiClient.IsEnabled() {
		return nil
	}

	proposal, err := p.aiClient.ProposeSearchParams(ctx, query, history)
	if err != nil {
		logrus.WithError(err).Warn("model proposal unavailable, continuing without it")
		return nil
	}
	return proposal
}

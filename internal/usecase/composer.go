package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/blendwise/backend/internal/domain"
)

const composerSystemPrompt = "You are a helpful nutrition assistant at Smoothie King. " +
	"Provide friendly, concise recommendations based on the options found. " +
	"Focus on how well they match the customer's request."

const (
	composerTemperature = 0.7
	composerMaxTokens   = 250
)

// Composer turns a shortlist into a natural-language explanation via the
// text-generation provider. The provider's output is treated as opaque
// prose; the only check is that it is non-empty.
type Composer struct {
	chat domain.ChatProvider
}

// NewComposer creates a new response composer
func NewComposer(chat domain.ChatProvider) *Composer {
	return &Composer{chat: chat}
}

// Compose drafts an explanation of why the shortlist matches the query.
// categoryLabel is the human wording of the active filter ("smoothies",
// "smoothie bowls", ...).
func (c *Composer) Compose(ctx context.Context, query, categoryLabel string, shortlist []domain.RankedResult) (string, error) {
	serialized, err := json.MarshalIndent(shortlist, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize shortlist: %w", err)
	}

	messages := []domain.ChatMessage{
		{Role: "system", Content: composerSystemPrompt},
		{
			Role: "user",
			Content: fmt.Sprintf(
				"Customer asked: %q\n\nTop %d %s:\n%s\n\nProvide a brief, friendly response explaining why these top %d %s are a great match for their request. Mention key nutrition facts and any important allergen information.",
				query, len(shortlist), categoryLabel, serialized, len(shortlist), categoryLabel,
			),
		},
	}

	response, err := c.chat.ChatCompletion(ctx, messages, composerTemperature, composerMaxTokens)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(response) == "" {
		return "", domain.ErrComposerEmpty
	}

	return response, nil
}

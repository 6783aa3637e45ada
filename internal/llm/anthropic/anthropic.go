// Package anthropic is a reference llm.Client adapter over
// github.com/anthropics/anthropic-sdk-go, grounded on the message
// construction and response block handling in jingkaihe-kodelet's
// pkg/llm/anthropic and intelligencedev-manifold's Anthropic client.
package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"

	"github.com/hfi/privacy-gateway/internal/domain"
)

// Client adapts anthropic-sdk-go to llm.Client.
type Client struct {
	api       anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// Config configures a Client.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int64
}

// New returns a Client. If cfg.Model is empty, Claude Sonnet 4 is used.
// Extra RequestOptions are appended after the derived ones, letting callers
// (tests, alternate base URLs) override the default transport.
func New(cfg Config, extra ...option.RequestOption) *Client {
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	opts = append(opts, extra...)
	model := anthropic.Model(cfg.Model)
	if cfg.Model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	return &Client{api: anthropic.NewClient(opts...), model: model, maxTokens: maxTokens}
}

// Complete implements llm.Client: it converts the redacted domain.Message
// history into Anthropic's message params, issues one call, and converts
// the first text block of the reply back into a domain.Message.
func (c *Client) Complete(ctx context.Context, messages []domain.Message) (domain.Message, error) {
	var system []anthropic.TextBlockParam
	var turns []anthropic.MessageParam

	for _, m := range messages {
		switch m.Role {
		case domain.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		case domain.RoleUser, domain.RoleTool:
			turns = append(turns, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case domain.RoleAssistant:
			turns = append(turns, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	resp, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    system,
		Messages:  turns,
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("anthropic: completing message: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text = tb.Text
			break
		}
	}

	return domain.Message{
		ID:      uuid.NewString(),
		Role:    domain.RoleAssistant,
		Content: text,
	}, nil
}

// Package analysis is the AI collaborator: diff prose summaries and
// side-by-side content-depth comparisons. Five of the eight comparison
// dimensions are measured directly in Go; the rest are judged by a Claude
// model through a strict JSON contract. The package degrades gracefully when
// the model is unavailable and never fails the pipeline.
package analysis

import (
	"context"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultModel is the Claude model used when config leaves it unset.
const DefaultModel = "claude-sonnet-4-6"

// maxTextChars bounds how much page text any single prompt carries.
const maxTextChars = 12000

// Message is one conversational turn.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// MessageRequest is the package-owned request shape for CreateMessage.
type MessageRequest struct {
	Model     string
	MaxTokens int64
	Messages  []Message
}

// ContentBlock is one block of response content.
type ContentBlock struct {
	Type string
	Text string
}

// TokenUsage tracks token consumption for one call.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
}

// MessageResponse is the package-owned response shape from CreateMessage.
type MessageResponse struct {
	ID         string
	Model      string
	Content    []ContentBlock
	StopReason string
	Usage      TokenUsage
}

// Client is the model surface the analyzers depend on; tests fake it.
type Client interface {
	CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error)
}

// sdkClient implements Client on the official SDK.
type sdkClient struct {
	client sdk.Client
}

// NewClient creates a Claude client.
func NewClient(apiKey string) Client {
	return &sdkClient{
		client: sdk.NewClient(option.WithAPIKey(apiKey)),
	}
}

func (c *sdkClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages:  toSDKMessages(req.Messages),
	}
	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic: create message: %w", err)
	}
	return fromSDKMessage(msg), nil
}

func toSDKMessages(msgs []Message) []sdk.MessageParam {
	out := make([]sdk.MessageParam, len(msgs))
	for i, m := range msgs {
		block := sdk.NewTextBlock(m.Content)
		switch m.Role {
		case "assistant":
			out[i] = sdk.NewAssistantMessage(block)
		default:
			out[i] = sdk.NewUserMessage(block)
		}
	}
	return out
}

func fromSDKMessage(msg *sdk.Message) *MessageResponse {
	blocks := make([]ContentBlock, 0, len(msg.Content))
	for _, b := range msg.Content {
		blocks = append(blocks, ContentBlock{Type: b.Type, Text: b.Text})
	}
	return &MessageResponse{
		ID:         msg.ID,
		Model:      string(msg.Model),
		Content:    blocks,
		StopReason: string(msg.StopReason),
		Usage: TokenUsage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}
}

// firstText returns the first text block of a response, "" if none.
func firstText(resp *MessageResponse) string {
	for _, block := range resp.Content {
		if block.Text != "" {
			return block.Text
		}
	}
	return ""
}

// truncate bounds text at max characters, marking the cut.
func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + fmt.Sprintf("\n\n[... truncated at %d chars ...]", max)
}

// Package assist generates short energy-saving tips with a hosted language
// model.
package assist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/RounakBanerji/Twinenergy-Demo/internal/config"
)

const defaultModel = "gpt-4o-mini"

const systemPrompt = `You are a home energy and sustainability coach.
Answer with practical, specific tips the user can act on this week.
Keep the answer under 150 words. Use short paragraphs or a short list.`

// ErrEmptyCompletion is returned when the model answers with no text
var ErrEmptyCompletion = errors.New("no text in completion")

// Completer turns a free-text prompt into free text
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Client implements Completer using OpenAI chat completions
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a new OpenAI client
func NewClient(cfg config.OpenAIConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	model := defaultModel
	if cfg.Model != "" {
		model = cfg.Model
	}

	return &Client{
		client: openai.NewClient(cfg.APIKey),
		model:  model,
	}, nil
}

// Complete implements Completer
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.7,
		MaxTokens:   400,
	})
	if err != nil {
		return "", fmt.Errorf("calling OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

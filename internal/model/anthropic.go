package model

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

// AnthropicConfig configures the Claude generator. When UseBedrock is set the
// client authenticates with the default AWS credential chain instead of
// APIKey.
type AnthropicConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	MaxTokens  int64
	UseBedrock bool
	Region     string
}

// AnthropicGenerator answers the rules prompt with Claude.
type AnthropicGenerator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicGenerator validates cfg and creates the client. Nothing is sent
// until Generate is called.
func NewAnthropicGenerator(ctx context.Context, cfg AnthropicConfig) (*AnthropicGenerator, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("anthropic: model: %w", ErrNotConfigured)
	}

	opts := []option.RequestOption{option.WithMaxRetries(1)}
	switch {
	case cfg.UseBedrock:
		region := cfg.Region
		if region == "" {
			region = "eu-west-1"
		}
		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, awsconfig.WithRegion(region)))
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	default:
		return nil, fmt.Errorf("anthropic: api key: %w", ErrNotConfigured)
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 16
	}
	return &AnthropicGenerator{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: maxTokens,
	}, nil
}

// Generate sends system as the system prompt and text as the user turn, and
// returns the concatenated text blocks of the reply.
func (g *AnthropicGenerator) Generate(ctx context.Context, system, text string) (string, error) {
	message, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(g.model),
		MaxTokens:   g.maxTokens,
		Temperature: anthropic.Float(0),
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}

	var b strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", errors.New("anthropic: empty response")
	}
	return strings.TrimSpace(b.String()), nil
}

package caption

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-sonnet-4-5"

// Anthropic captions through the messages API.
type Anthropic struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	logger    *slog.Logger
}

// NewAnthropic creates an Anthropic captioner.
func NewAnthropic(cfg Config) (*Anthropic, error) {
	cfg.defaults()
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("caption: anthropic API key required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}

	return &Anthropic{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: cfg.MaxTokens,
		logger:    cfg.Logger,
	}, nil
}

// Describe sends the image as a base64 block followed by Prompt.
func (a *Anthropic) Describe(ctx context.Context, data []byte, mimeType string) (text string, err error) {
	start := time.Now()
	defer func() { logged(a.logger, ProviderAnthropic, a.model, start, data, text, err) }()

	switch mimeType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
	default:
		return "", fmt.Errorf("%w: %s", ErrMediaType, mimeType)
	}

	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(mimeType, base64.StdEncoding.EncodeToString(data)),
				anthropic.NewTextBlock(Prompt),
			),
		},
	})
	if err != nil {
		return "", fmt.Errorf("caption: anthropic: %w", err)
	}

	var parts []string
	for _, block := range resp.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			parts = append(parts, b.Text)
		}
	}
	text = strings.TrimSpace(strings.Join(parts, "\n"))
	if text == "" {
		return "", ErrEmptyCaption
	}
	return text, nil
}

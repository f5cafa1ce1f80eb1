package caption

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI captions through a chat completions endpoint.
type OpenAI struct {
	client    openai.Client
	model     string
	maxTokens int64
	logger    *slog.Logger
}

// NewOpenAI creates an OpenAI captioner. BaseURL may point at any compatible
// server.
func NewOpenAI(cfg Config) (*OpenAI, error) {
	cfg.defaults()
	// Self-hosted gateways often need no key, only a base URL.
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("caption: openai API key or base URL required")
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
		model = string(openai.ChatModelGPT4o)
	}

	return &OpenAI{
		client:    openai.NewClient(opts...),
		model:     model,
		maxTokens: cfg.MaxTokens,
		logger:    cfg.Logger,
	}, nil
}

// Describe sends the image as a data URL next to Prompt.
func (o *OpenAI) Describe(ctx context.Context, data []byte, mimeType string) (text string, err error) {
	start := time.Now()
	defer func() { logged(o.logger, ProviderOpenAI, o.model, start, data, text, err) }()

	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(Prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			}),
		},
		MaxTokens: openai.Int(o.maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("caption: openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCaption
	}
	text = strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCaption
	}
	return text, nil
}

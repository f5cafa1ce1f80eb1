// Package caption describes images with a multimodal chat model.
//
// Two providers are supported: any OpenAI-compatible chat completions
// endpoint, and Anthropic messages. Both send the same Prompt with the image
// inlined as base64.
//
// Usage:
//
//	c, err := caption.New(caption.Config{Provider: "openai", APIKey: key})
//	text, err := c.Describe(ctx, pngBytes, "image/png")
package caption

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hazyhaar/mdextract/horosafe"
)

// Prompt is the instruction sent with every image.
const Prompt = "Write a detailed caption for this image."

// Provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

var (
	// ErrEmptyCaption is returned when the model answers with no text.
	ErrEmptyCaption = errors.New("caption: model returned no text")
	// ErrMediaType is returned for images the provider cannot take.
	ErrMediaType = errors.New("caption: unsupported image type")
)

// Describer turns an image into a natural-language description.
type Describer interface {
	Describe(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	// Provider is "openai" or "anthropic". Empty disables captioning.
	Provider string `yaml:"provider" validate:"omitempty,oneof=openai anthropic"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	// BaseURL points the client at a compatible gateway.
	BaseURL    string        `yaml:"base_url" validate:"omitempty,url"`
	MaxTokens  int64         `yaml:"max_tokens" validate:"gte=0"`
	MaxRetries int           `yaml:"max_retries" validate:"gte=0"`
	Timeout    time.Duration `yaml:"timeout"`

	Logger *slog.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxTokens <= 0 {
		c.MaxTokens = 1024
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 2
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// New builds the Describer named by cfg.Provider. It returns nil, nil when
// captioning is disabled.
func New(cfg Config) (Describer, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		return nil, nil
	}
	if cfg.BaseURL != "" {
		if err := horosafe.ValidateEndpoint(cfg.BaseURL); err != nil {
			return nil, fmt.Errorf("caption: base URL: %w", err)
		}
	}
	switch provider {
	case ProviderOpenAI:
		c, err := NewOpenAI(cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	case ProviderAnthropic:
		c, err := NewAnthropic(cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("caption: unknown provider %q", cfg.Provider)
	}
}

func logged(logger *slog.Logger, provider, model string, start time.Time, data []byte, text string, err error) {
	attrs := []any{
		"provider", provider,
		"model", model,
		"image_bytes", len(data),
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if err != nil {
		logger.Warn("caption failed", append(attrs, "error", err)...)
		return
	}
	logger.Debug("caption done", append(attrs, "caption_chars", len(text))...)
}

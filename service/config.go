package service

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/mdextract/caption"
	"github.com/hazyhaar/mdextract/httpapi"
)

// Config holds the full daemon configuration.
type Config struct {
	GRPC    GRPCConfig     `yaml:"grpc"`
	HTTP    HTTPConfig     `yaml:"http"`
	MCP     MCPConfig      `yaml:"mcp"`
	Extract ExtractConfig  `yaml:"extract"`
	Caption caption.Config `yaml:"caption"`
	Auth    AuthConfig     `yaml:"auth"`
	Events  EventsConfig   `yaml:"events"`
	Log     LogConfig      `yaml:"log"`
}

// GRPCConfig configures the gRPC listener. An empty Addr disables it.
type GRPCConfig struct {
	Addr         string `yaml:"addr" validate:"omitempty,hostname_port"`
	MaxMessageMB int    `yaml:"max_message_mb" validate:"gte=1"`
}

// HTTPConfig configures the HTTP listener. An empty Addr disables it.
type HTTPConfig struct {
	Addr       string        `yaml:"addr" validate:"omitempty,hostname_port"`
	MaxBodyMB  int           `yaml:"max_body_mb" validate:"gte=1"`
	RateLimit  int           `yaml:"rate_limit" validate:"gte=0"`
	RateWindow time.Duration `yaml:"rate_window"`
}

// MCPConfig toggles the MCP endpoint at /mcp on the HTTP listener.
type MCPConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ExtractConfig bounds extraction work.
type ExtractConfig struct {
	MaxConcurrent  int64         `yaml:"max_concurrent" validate:"gte=1"`
	ConvertTimeout time.Duration `yaml:"convert_timeout" validate:"gte=0"`
	MaxFileMB      int64         `yaml:"max_file_mb" validate:"gte=1"`
	ScratchDir     string        `yaml:"scratch_dir"`
}

// AuthConfig lists the accepted API keys as bcrypt hashes. Empty disables
// auth.
type AuthConfig struct {
	APIKeys []httpapi.APIKey `yaml:"api_keys" validate:"dive"`
}

// EventsConfig configures the SQLite event store. An empty Path disables it.
type EventsConfig struct {
	Path          string `yaml:"path"`
	BufferSize    int    `yaml:"buffer_size" validate:"gte=0"`
	RetentionDays int    `yaml:"retention_days" validate:"gte=0"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

// DefaultConfig returns sane defaults: gRPC on :50051, HTTP on :8080, ten
// workers, 100 MB inputs, no captioning, no event store.
func DefaultConfig() *Config {
	return &Config{
		GRPC: GRPCConfig{Addr: ":50051", MaxMessageMB: 100},
		HTTP: HTTPConfig{Addr: ":8080", MaxBodyMB: 100, RateWindow: time.Minute},
		Extract: ExtractConfig{
			MaxConcurrent:  10,
			ConvertTimeout: 5 * time.Minute,
			MaxFileMB:      100,
		},
		Caption: caption.Config{MaxTokens: 1024, MaxRetries: 2, Timeout: 60 * time.Second},
		Events:  EventsConfig{BufferSize: 1000, RetentionDays: 30},
		Log:     LogConfig{Level: "info", Format: "json"},
	}
}

// LoadConfig reads a YAML config file over DefaultConfig, applies
// environment overrides and validates the result. An empty path skips the
// file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from the environment. Setting OPENAI_BASE_URL or
// OPENAI_API_KEY enables the OpenAI captioner; ANTHROPIC_API_KEY enables the
// Anthropic one when no provider is chosen yet.
func (c *Config) ApplyEnv() {
	c.GRPC.Addr = env("GRPC_ADDR", c.GRPC.Addr)
	c.HTTP.Addr = env("HTTP_ADDR", c.HTTP.Addr)
	c.Events.Path = env("EVENTS_DB", c.Events.Path)
	c.Log.Level = strings.ToLower(env("LOG_LEVEL", c.Log.Level))
	c.Log.Format = strings.ToLower(env("LOG_FORMAT", c.Log.Format))

	baseURL, openaiKey := os.Getenv("OPENAI_BASE_URL"), os.Getenv("OPENAI_API_KEY")
	if (baseURL != "" || openaiKey != "") && (c.Caption.Provider == "" || c.Caption.Provider == caption.ProviderOpenAI) {
		c.Caption.Provider = caption.ProviderOpenAI
		c.Caption.BaseURL = env("OPENAI_BASE_URL", c.Caption.BaseURL)
		c.Caption.APIKey = env("OPENAI_API_KEY", c.Caption.APIKey)
		c.Caption.Model = env("OPENAI_MODEL", c.Caption.Model)
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && (c.Caption.Provider == "" || c.Caption.Provider == caption.ProviderAnthropic) {
		c.Caption.Provider = caption.ProviderAnthropic
		c.Caption.APIKey = key
	}
}

// Validate checks struct constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.GRPC.Addr == "" && c.HTTP.Addr == "" {
		return errors.New("invalid config: grpc.addr and http.addr are both empty")
	}
	if c.MCP.Enabled && c.HTTP.Addr == "" {
		return errors.New("invalid config: mcp needs http.addr")
	}
	return nil
}

// SlogLevel maps Log.Level to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger on w per Log.Format and Log.Level.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.Log.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

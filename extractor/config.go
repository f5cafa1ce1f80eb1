package extractor

import (
	"context"
	"log/slog"
	"time"
)

// Config configures a Router.
type Config struct {
	// MaxConcurrent bounds simultaneous extractions (default: 10).
	MaxConcurrent int64 `json:"max_concurrent" yaml:"max_concurrent"`

	// ConvertTimeout bounds one generic conversion. Zero means no deadline.
	ConvertTimeout time.Duration `json:"convert_timeout" yaml:"convert_timeout"`

	// ScratchDir is the parent of per-request scratch directories
	// (default: os.TempDir()).
	ScratchDir string `json:"scratch_dir" yaml:"scratch_dir"`

	// Logger for extraction outcomes.
	Logger *slog.Logger `json:"-" yaml:"-"`

	// Events receives one record per extraction. Optional.
	Events EventRecorder `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 10
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Event describes one finished extraction.
type Event struct {
	RequestID string
	Transport string
	Name      string
	Ext       string
	Route     string
	Bytes     int
	Duration  time.Duration
	Kind      string // empty on success
	Detail    string
}

// EventRecorder stores extraction events. Implementations must not block.
type EventRecorder interface {
	RecordExtraction(ctx context.Context, ev Event)
}

package docpipe

import (
	"context"
	"log/slog"
)

// Captioner describes an image in natural language. Implementations live in
// the caption package.
type Captioner interface {
	Describe(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Config configures the document pipeline.
type Config struct {
	// MaxFileSize is the maximum file size to process (default: 100 MB).
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`

	// MaxXMLDepth bounds element nesting in docx/odt payloads (default: 256).
	MaxXMLDepth int `json:"max_xml_depth" yaml:"max_xml_depth"`

	// Captioner enables image inputs. Without it images are rejected.
	Captioner Captioner `json:"-" yaml:"-"`

	// Logger for debug/error messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 100 * 1024 * 1024
	}
	if c.MaxXMLDepth <= 0 {
		c.MaxXMLDepth = 256
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

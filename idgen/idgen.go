// Package idgen generates the identifiers used by the extraction service:
// request ids carried through logs, transports and the event store.
package idgen

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator that produces RFC 9562 UUID v7 strings.
// Time-sortable, so request ids order like the event log.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every ID.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// RequestPrefix tags ids minted for inbound extraction requests.
const RequestPrefix = "req_"

// Default is the generator used by New.
var Default Generator = UUIDv7()

// Request is the generator for request ids.
var Request Generator = Prefixed(RequestPrefix, UUIDv7())

// New produces an ID using the Default generator.
func New() string {
	return Default()
}

// NewRequestID produces a request id.
func NewRequestID() string {
	return Request()
}

// Parse validates an id, optionally carrying prefix, and returns the bare
// UUID string.
func Parse(prefix, s string) (string, error) {
	if prefix != "" {
		if !strings.HasPrefix(s, prefix) {
			return "", fmt.Errorf("invalid id %q: missing prefix %q", s, prefix)
		}
		s = strings.TrimPrefix(s, prefix)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid UUID: %w", err)
	}
	return u.String(), nil
}

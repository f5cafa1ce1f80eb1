// Package horosafe provides the guard rails shared by the extraction
// service: path containment for scratch files, bounded reads of uploads,
// file-name sanitising and API key checks.
package horosafe

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"unicode"
)

// MinKeyLen is the minimum acceptable length for API keys.
const MinKeyLen = 24

// MaxUpload is the default cap for uploaded documents (100 MiB).
const MaxUpload int64 = 100 << 20

// ErrKeyTooShort is returned when an API key does not meet MinKeyLen.
var ErrKeyTooShort = fmt.Errorf("horosafe: api key must be at least %d bytes", MinKeyLen)

// ErrPathTraversal is returned when a user-supplied path escapes its base.
var ErrPathTraversal = errors.New("horosafe: path traversal detected")

// ErrTooLarge is returned by LimitedReadAll when the input exceeds the cap.
var ErrTooLarge = errors.New("horosafe: input too large")

// ErrUnsafeScheme is returned when an endpoint URL is not http(s).
var ErrUnsafeScheme = errors.New("horosafe: only http and https schemes are allowed")

// ValidateKey checks that key is at least MinKeyLen bytes.
func ValidateKey(key string) error {
	if len(key) < MinKeyLen {
		return ErrKeyTooShort
	}
	return nil
}

// SafePath joins base and name and verifies the result stays under base.
// Returns the cleaned path or ErrPathTraversal.
func SafePath(base, name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrPathTraversal
	}
	cleanBase := filepath.Clean(base)
	joined := filepath.Join(cleanBase, filepath.Clean("/"+name))
	if joined == cleanBase || !strings.HasPrefix(joined, cleanBase+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}
	return joined, nil
}

// SanitizeFileName reduces a client-declared file name to its base name with
// control characters and separators removed. An unusable name yields "".
func SanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "." || name == ".." {
		return ""
	}
	if len(name) > 255 {
		name = name[len(name)-255:]
	}
	return name
}

// ValidateEndpoint checks that rawURL is an absolute http(s) URL with a host.
// Loopback hosts are allowed: captioning backends often run locally.
func ValidateEndpoint(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("horosafe: invalid URL: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ErrUnsafeScheme
	}
	if u.Hostname() == "" {
		return fmt.Errorf("horosafe: URL has no host")
	}
	return nil
}

// LimitedReadAll reads at most maxBytes from r. Returns ErrTooLarge if the
// limit is exceeded.
func LimitedReadAll(r io.Reader, maxBytes int64) ([]byte, error) {
	lr := io.LimitReader(r, maxBytes+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrTooLarge, maxBytes)
	}
	return data, nil
}

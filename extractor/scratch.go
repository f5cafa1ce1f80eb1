package extractor

import (
	"fmt"
	"os"

	"github.com/hazyhaar/mdextract/horosafe"
)

// maxScratchExt bounds the extension kept in the scratch file name. Longer
// hints are still routed on but the file is named input.tmp, since no
// converter knows such an extension and the name must fit NAME_MAX.
const maxScratchExt = 32

// withScratch writes data to a fresh per-request directory as input<ext>,
// calls fn with the file path and removes the directory afterwards,
// whatever fn returns or however it exits.
func withScratch(parent, ext string, data []byte, fn func(path string) error) error {
	if len(ext) > maxScratchExt {
		ext = UnknownExt
	}
	dir, err := os.MkdirTemp(parent, "mdextract-*")
	if err != nil {
		return newError(InternalFailure, "cannot create scratch directory", err)
	}
	defer os.RemoveAll(dir)

	path, err := horosafe.SafePath(dir, "input"+ext)
	if err != nil {
		return newError(InternalFailure, fmt.Sprintf("invalid scratch file name for %q", ext), err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return newError(InternalFailure, "cannot write scratch file", err)
	}
	return fn(path)
}

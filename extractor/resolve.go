package extractor

import (
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/hazyhaar/mdextract/horosafe"
)

// UnknownExt is the extension hint used when nothing better is known.
const UnknownExt = ".tmp"

// mimeExt covers the types clients actually send. Anything else goes to the
// mimetype registry. The legacy binary Office types keep their own
// extension so the converter rejects them by name instead of sniffing them.
var mimeExt = map[string]string{
	"message/rfc822":                          ".eml",
	"application/vnd.ms-outlook":              ".msg",
	"application/x-msg":                       ".msg",
	"application/pdf":                         ".pdf",
	"application/msword":                      ".doc",
	"application/vnd.ms-excel":                ".xls",
	"application/vnd.ms-powerpoint":           ".ppt",
	"application/vnd.oasis.opendocument.text": ".odt",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   ".docx",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         ".xlsx",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": ".pptx",
	"text/html":       ".html",
	"text/plain":      ".txt",
	"text/markdown":   ".md",
	"text/x-markdown": ".md",
	"text/csv":        ".csv",
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
}

// Resolve derives the dispatch extension for a file. A declared name wins
// over the declared MIME type. The result is lowercase with a leading dot,
// and UnknownExt when neither hint helps. Resolve never fails.
func Resolve(name, mimeType string) string {
	if name != "" {
		base := horosafe.SanitizeFileName(name)
		i := strings.LastIndexByte(base, '.')
		if i < 0 || i == len(base)-1 {
			return UnknownExt
		}
		return "." + strings.ToLower(base[i+1:])
	}
	return extForMIME(mimeType)
}

func extForMIME(mimeType string) string {
	if strings.TrimSpace(mimeType) == "" {
		return UnknownExt
	}
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return UnknownExt
	}
	mt = strings.ToLower(mt)
	if ext, ok := mimeExt[mt]; ok {
		return ext
	}
	if m := mimetype.Lookup(mt); m != nil && m.Extension() != "" {
		return strings.ToLower(m.Extension())
	}
	return UnknownExt
}

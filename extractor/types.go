package extractor

import "context"

// MarkdownContentType labels every extracted document.
const MarkdownContentType = "text/markdown"

// InputFile is an uploaded document with its declared name and type.
// Either hint may be empty.
type InputFile struct {
	Content     []byte `json:"-"`
	Name        string `json:"name,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// Document is the result of a successful extraction.
type Document struct {
	Title       string `json:"title,omitempty"`
	Text        string `json:"text"`
	ContentType string `json:"content_type"`
}

// Converter turns a file on disk into Markdown. It handles every format
// that has no dedicated mail extractor. title may be empty.
type Converter interface {
	Convert(ctx context.Context, path string) (title, markdown string, err error)
}

// ConverterFunc adapts a function to the Converter interface.
type ConverterFunc func(ctx context.Context, path string) (string, string, error)

func (f ConverterFunc) Convert(ctx context.Context, path string) (string, string, error) {
	return f(ctx, path)
}

// MailExtractor renders raw mail container bytes as Markdown.
type MailExtractor func(data []byte) (string, error)

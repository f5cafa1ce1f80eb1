// Package docpipe converts document files to Markdown.
//
// Supported formats:
//   - .docx  Microsoft Word (word/document.xml: headings, lists, tables)
//   - .odt   OpenDocument Text (content.xml: headings, lists, tables)
//   - .pptx  PowerPoint (ppt/slides/slideN.xml: one section per slide)
//   - .pdf   PDF text via pdfcpu, one block per page, with quality metrics
//   - .xlsx  Excel workbooks via excelize, one table per sheet
//   - .csv   comma, semicolon or tab separated values, as a table
//   - .html  HTML via html-to-markdown, hidden and boilerplate nodes dropped
//   - .md    Markdown (passed through, headings indexed)
//   - .txt   plain text
//   - images described by a Captioner, when one is configured
//
// Files whose extension says nothing (".tmp" or none) are sniffed by content.
//
// Usage:
//
//	pipe := docpipe.New(docpipe.Config{})
//	doc, err := pipe.Extract(ctx, "/path/to/file.docx")
//	fmt.Println(doc.Title, doc.Markdown)
package docpipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrUnsupported is returned when no parser handles a file.
var ErrUnsupported = errors.New("unsupported format")

// Pipeline is the document conversion engine. It is safe for concurrent use.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Pipeline with the given configuration.
func New(cfg Config) *Pipeline {
	cfg.defaults()
	return &Pipeline{
		cfg:    cfg,
		logger: cfg.Logger,
	}
}

var extFormats = map[string]Format{
	".docx":     FormatDocx,
	".odt":      FormatODT,
	".pptx":     FormatPPTX,
	".pdf":      FormatPDF,
	".md":       FormatMD,
	".markdown": FormatMD,
	".txt":      FormatTXT,
	".text":     FormatTXT,
	".html":     FormatHTML,
	".htm":      FormatHTML,
	".xhtml":    FormatHTML,
	".xlsx":     FormatXLSX,
	".csv":      FormatCSV,
	".png":      FormatImage,
	".jpg":      FormatImage,
	".jpeg":     FormatImage,
	".gif":      FormatImage,
	".webp":     FormatImage,
}

// sniffFormats maps detected MIME types to formats. Order matters: the first
// match walking up the mimetype hierarchy wins.
var sniffFormats = []struct {
	mime   string
	format Format
}{
	{"application/pdf", FormatPDF},
	{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", FormatDocx},
	{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", FormatXLSX},
	{"application/vnd.openxmlformats-officedocument.presentationml.presentation", FormatPPTX},
	{"application/vnd.oasis.opendocument.text", FormatODT},
	{"text/html", FormatHTML},
	{"text/csv", FormatCSV},
	{"image/png", FormatImage},
	{"image/jpeg", FormatImage},
	{"image/gif", FormatImage},
	{"image/webp", FormatImage},
	{"text/plain", FormatTXT},
}

// Detect returns the document format from the file extension, falling back to
// content sniffing when the extension is unknown.
func (p *Pipeline) Detect(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := extFormats[ext]; ok {
		return f, nil
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	for m := mt; m != nil; m = m.Parent() {
		for _, s := range sniffFormats {
			if m.Is(s.mime) {
				p.logger.Debug("format sniffed", "path", path, "mime", mt.String(), "format", s.format)
				return s.format, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %q (detected %s)", ErrUnsupported, ext, mt.String())
}

// Extract parses a document into sections and renders it as Markdown.
func (p *Pipeline) Extract(ctx context.Context, path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > p.cfg.MaxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), p.cfg.MaxFileSize)
	}

	format, err := p.Detect(path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.logger.Debug("extracting document", "path", path, "format", format)

	var res *parsed
	switch format {
	case FormatDocx:
		res, err = extractDocx(path, p.cfg.MaxXMLDepth)
	case FormatODT:
		res, err = extractODT(path, p.cfg.MaxXMLDepth)
	case FormatPPTX:
		res, err = extractPPTX(path, p.cfg.MaxXMLDepth)
	case FormatPDF:
		res, err = extractPDF(ctx, path)
	case FormatMD:
		res, err = extractMarkdown(path)
	case FormatTXT:
		res, err = extractText(path)
	case FormatHTML:
		res, err = extractHTMLFile(path)
	case FormatXLSX:
		res, err = extractXLSX(ctx, path)
	case FormatCSV:
		res, err = extractCSV(path)
	case FormatImage:
		res, err = p.extractImage(ctx, path)
	default:
		return nil, fmt.Errorf("%w: no parser for %s", ErrUnsupported, format)
	}
	if err != nil {
		return nil, fmt.Errorf("extract %s (%s): %w", filepath.Base(path), format, err)
	}

	if q := res.quality; q != nil && q.NeedsOCR() {
		p.logger.Warn("pdf text looks unreliable", "path", path,
			"chars_per_page", q.CharsPerPage, "printable_ratio", q.PrintableRatio)
	}

	return &Document{
		Path:     path,
		Format:   format,
		Title:    res.title,
		Sections: res.sections,
		Markdown: renderMarkdown(res.sections),
		Quality:  res.quality,
	}, nil
}

// Convert returns the title and Markdown body of the file at path.
func (p *Pipeline) Convert(ctx context.Context, path string) (string, string, error) {
	doc, err := p.Extract(ctx, path)
	if err != nil {
		return "", "", err
	}
	return doc.Title, doc.Markdown, nil
}

// SupportedFormats returns all supported formats.
func SupportedFormats() []string {
	return []string{"docx", "odt", "pptx", "pdf", "xlsx", "csv", "html", "md", "txt", "image"}
}

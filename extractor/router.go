// Package extractor turns uploaded documents into Markdown.
//
// The Router resolves an extension hint from the declared name or MIME type,
// then dispatches: .msg and .eml go to the dedicated mail extractors,
// everything else to a generic Converter. Input bytes are written to a
// per-request scratch directory that is removed on every exit path.
// Failures come back as *Error with one of four kinds.
//
// Usage:
//
//	r := extractor.New(docpipe.New(docpipe.Config{}), extractor.Config{})
//	doc, err := r.Extract(ctx, extractor.InputFile{Content: b, Name: "mail.eml"}, "")
package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/hazyhaar/mdextract/kit"
	"github.com/hazyhaar/mdextract/mailmd"
)

// route is the closed set of extraction strategies.
type route int

const (
	routeGeneric route = iota
	routeMSG
	routeEML
)

func (r route) String() string {
	switch r {
	case routeMSG:
		return "msg"
	case routeEML:
		return "eml"
	default:
		return "generic"
	}
}

func routeFor(ext string) route {
	switch ext {
	case ".msg":
		return routeMSG
	case ".eml":
		return routeEML
	default:
		return routeGeneric
	}
}

// ExtractorFor names the extractor an extension hint dispatches to:
// "msg", "eml" or "generic".
func ExtractorFor(ext string) string {
	return routeFor(ext).String()
}

// Router is the extraction entry point shared by every transport. It is safe
// for concurrent use.
type Router struct {
	cfg    Config
	logger *slog.Logger
	conv   Converter
	msg    MailExtractor
	eml    MailExtractor
	sem    *semaphore.Weighted
}

// New creates a Router. conv handles every non-mail format and may be nil,
// in which case such inputs fail with InternalFailure.
func New(conv Converter, cfg Config) *Router {
	cfg.defaults()
	return &Router{
		cfg:    cfg,
		logger: cfg.Logger,
		conv:   conv,
		msg:    mailmd.MSG,
		eml:    mailmd.EML,
		sem:    semaphore.NewWeighted(cfg.MaxConcurrent),
	}
}

// AcceptedFormats lists the output kinds Extract produces. The empty string
// selects the default.
func AcceptedFormats() []string {
	return []string{"text", "markdown"}
}

func acceptedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text", "markdown":
		return true
	}
	return false
}

// Extract converts file to Markdown. format is the requested output kind;
// see AcceptedFormats.
func (r *Router) Extract(ctx context.Context, file InputFile, format string) (doc *Document, err error) {
	start := time.Now()
	var ext string
	rt := routeGeneric
	defer func() { r.finish(ctx, file, ext, rt, start, err) }()

	if len(file.Content) == 0 {
		return nil, newError(MissingInput, "file is required but not provided", nil)
	}
	if !acceptedFormat(format) {
		return nil, newError(UnsupportedFormat,
			fmt.Sprintf("format %q is not supported, use one of %s", format, strings.Join(AcceptedFormats(), ", ")), nil)
	}

	ext = Resolve(file.Name, file.ContentType)
	rt = routeFor(ext)

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, newError(InternalFailure, "request cancelled while waiting for a worker", err)
	}
	defer r.sem.Release(1)

	return r.run(ctx, file.Content, ext, rt)
}

func (r *Router) run(ctx context.Context, data []byte, ext string, rt route) (doc *Document, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("extractor panic", "route", rt.String(), "panic", p, "stack", string(debug.Stack()))
			doc, err = nil, newError(InternalFailure, fmt.Sprintf("extractor crashed on %s input", ext), fmt.Errorf("panic: %v", p))
		}
	}()

	var title, text string
	err = withScratch(r.cfg.ScratchDir, ext, data, func(path string) error {
		var err error
		switch rt {
		case routeMSG:
			text, err = r.mail(path, r.msg)
		case routeEML:
			text, err = r.mail(path, r.eml)
		default:
			title, text, err = r.generic(ctx, path)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Document{Title: title, Text: text, ContentType: MarkdownContentType}, nil
}

func (r *Router) mail(path string, extract MailExtractor) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", newError(InternalFailure, "cannot read scratch file", err)
	}
	text, err := extract(data)
	if err != nil {
		return "", newError(ParseFailure, err.Error(), err)
	}
	return text, nil
}

func (r *Router) generic(ctx context.Context, path string) (string, string, error) {
	if r.conv == nil {
		return "", "", newError(InternalFailure, "no document converter configured", nil)
	}
	if r.cfg.ConvertTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.ConvertTimeout)
		defer cancel()
	}
	title, md, err := r.conv.Convert(ctx, path)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", "", newError(InternalFailure, "document conversion timed out", err)
		}
		return "", "", newError(ParseFailure, err.Error(), err)
	}
	return title, md, nil
}

func (r *Router) finish(ctx context.Context, file InputFile, ext string, rt route, start time.Time, err error) {
	elapsed := time.Since(start)
	ev := Event{
		RequestID: kit.GetRequestID(ctx),
		Transport: kit.GetTransport(ctx),
		Name:      file.Name,
		Ext:       ext,
		Route:     rt.String(),
		Bytes:     len(file.Content),
		Duration:  elapsed,
	}
	attrs := []any{
		"request_id", ev.RequestID,
		"transport", ev.Transport,
		"ext", ext,
		"route", ev.Route,
		"bytes", ev.Bytes,
		"duration_ms", elapsed.Milliseconds(),
	}
	if err != nil {
		kind := KindOf(err)
		ev.Kind = kind.String()
		ev.Detail = DetailOf(err)
		attrs = append(attrs, "kind", ev.Kind, "error", err)
		if kind.ClientError() {
			r.logger.InfoContext(ctx, "extraction rejected", attrs...)
		} else {
			r.logger.WarnContext(ctx, "extraction failed", attrs...)
		}
	} else {
		r.logger.InfoContext(ctx, "extraction done", attrs...)
	}
	if r.cfg.Events != nil {
		r.cfg.Events.RecordExtraction(ctx, ev)
	}
}

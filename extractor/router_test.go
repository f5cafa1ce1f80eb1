package extractor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazyhaar/mdextract/kit"
)

// stubConverter records the paths it sees and whether they existed.
type stubConverter struct {
	mu    sync.Mutex
	paths []string
	title string
	text  string
	err   error
}

func (s *stubConverter) Convert(_ context.Context, path string) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(path); err != nil {
		return "", "", err
	}
	s.paths = append(s.paths, path)
	return s.title, s.text, s.err
}

func (s *stubConverter) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.paths)
}

func newTestRouter(t *testing.T, conv Converter) (*Router, string) {
	t.Helper()
	dir := t.TempDir()
	return New(conv, Config{ScratchDir: dir}), dir
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read scratch parent: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("scratch parent not empty: %d entries (first %q)", len(entries), entries[0].Name())
	}
}

func TestExtract_MissingInput(t *testing.T) {
	conv := &stubConverter{}
	r, dir := newTestRouter(t, conv)

	for _, in := range []InputFile{
		{},
		{Name: "mail.msg"},
		{Content: []byte{}, ContentType: "message/rfc822"},
	} {
		_, err := r.Extract(context.Background(), in, "pdf")
		if KindOf(err) != MissingInput {
			t.Fatalf("Extract(%+v) kind = %v, want MissingInput (err=%v)", in, KindOf(err), err)
		}
		if !errors.Is(err, ErrMissingInput) {
			t.Fatalf("errors.Is(ErrMissingInput) false for %v", err)
		}
	}
	if conv.calls() != 0 {
		t.Fatal("converter must not be called")
	}
	assertEmptyDir(t, dir)
}

func TestExtract_UnsupportedFormatTouchesNothing(t *testing.T) {
	conv := &stubConverter{text: "x"}
	r, dir := newTestRouter(t, conv)
	var mailCalls int
	r.msg = func([]byte) (string, error) { mailCalls++; return "", nil }
	r.eml = r.msg

	for _, name := range []string{"a.msg", "a.eml", "a.pdf"} {
		_, err := r.Extract(context.Background(), InputFile{Content: []byte("data"), Name: name}, "pdf")
		if KindOf(err) != UnsupportedFormat {
			t.Fatalf("%s: kind = %v, want UnsupportedFormat", name, KindOf(err))
		}
		if KindOf(err).HTTPStatus() != 400 {
			t.Fatalf("UnsupportedFormat should be a client error")
		}
	}
	if conv.calls() != 0 || mailCalls != 0 {
		t.Fatalf("extractors called: converter=%d mail=%d", conv.calls(), mailCalls)
	}
	assertEmptyDir(t, dir)
}

func TestExtract_AcceptedFormats(t *testing.T) {
	conv := &stubConverter{text: "ok"}
	r, _ := newTestRouter(t, conv)
	for _, f := range []string{"", "text", "markdown", "TEXT", " Markdown "} {
		if _, err := r.Extract(context.Background(), InputFile{Content: []byte("x"), Name: "a.txt"}, f); err != nil {
			t.Fatalf("format %q rejected: %v", f, err)
		}
	}
}

func TestExtract_NameBeatsMIME(t *testing.T) {
	conv := &stubConverter{}
	r, _ := newTestRouter(t, conv)
	var got []byte
	r.msg = func(b []byte) (string, error) { got = b; return "from msg", nil }
	r.eml = func([]byte) (string, error) { t.Fatal("eml extractor called"); return "", nil }

	doc, err := r.Extract(context.Background(), InputFile{
		Content:     []byte("compound bytes"),
		Name:        "Forwarded.MSG",
		ContentType: "message/rfc822",
	}, "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if doc.Text != "from msg" || doc.ContentType != MarkdownContentType || doc.Title != "" {
		t.Fatalf("unexpected document %+v", doc)
	}
	if string(got) != "compound bytes" {
		t.Fatalf("msg extractor got %q", got)
	}
	if conv.calls() != 0 {
		t.Fatal("generic converter must not be called for .msg")
	}
}

func TestExtract_UnknownFallsToGeneric(t *testing.T) {
	conv := &stubConverter{title: "T", text: "converted"}
	r, dir := newTestRouter(t, conv)

	doc, err := r.Extract(context.Background(), InputFile{Content: []byte("??"), ContentType: "application/x-made-up"}, "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if doc.Title != "T" || doc.Text != "converted" {
		t.Fatalf("unexpected document %+v", doc)
	}
	if conv.calls() != 1 || filepath.Base(conv.paths[0]) != "input.tmp" {
		t.Fatalf("converter paths = %v", conv.paths)
	}
	if !strings.HasPrefix(conv.paths[0], dir) {
		t.Fatalf("scratch file %q outside %q", conv.paths[0], dir)
	}
	assertEmptyDir(t, dir)
}

func TestExtract_OverlongExtensionFallsToGeneric(t *testing.T) {
	// WHAT: A name whose extension alone exceeds the file name limit still converts.
	// WHY: The scratch file name is bounded; the hint is not.
	conv := &stubConverter{text: "converted"}
	r, dir := newTestRouter(t, conv)

	name := "a." + strings.Repeat("x", 252)
	doc, err := r.Extract(context.Background(), InputFile{Name: name, Content: []byte("??")}, "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if doc.Text != "converted" {
		t.Fatalf("unexpected document %+v", doc)
	}
	if conv.calls() != 1 || filepath.Base(conv.paths[0]) != "input"+UnknownExt {
		t.Fatalf("converter paths = %v", conv.paths)
	}
	assertEmptyDir(t, dir)
}

func TestExtract_EMLEndToEnd(t *testing.T) {
	r, dir := newTestRouter(t, nil)
	msg := "Subject: Hi\r\nFrom: a@x.com\r\nContent-Type: text/plain\r\n\r\nHello world\r\n"

	doc, err := r.Extract(context.Background(), InputFile{Content: []byte(msg), ContentType: "message/rfc822"}, "text")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := "# Hi\n**From:** a@x.com\n\nHello world"
	if doc.Text != want {
		t.Fatalf("text = %q, want %q", doc.Text, want)
	}
	assertEmptyDir(t, dir)
}

func TestExtract_Idempotent(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	in := InputFile{Content: []byte("Subject: Same\r\n\r\nbody\r\n"), Name: "a.eml"}
	a, err := r.Extract(context.Background(), in, "")
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Extract(context.Background(), in, "")
	if err != nil {
		t.Fatal(err)
	}
	if a.Text != b.Text {
		t.Fatalf("outputs differ: %q vs %q", a.Text, b.Text)
	}
}

func TestExtract_MailParseFailure(t *testing.T) {
	r, dir := newTestRouter(t, nil)
	_, err := r.Extract(context.Background(), InputFile{Content: []byte("not a compound file at all"), Name: "x.msg"}, "")
	if !errors.Is(err, ErrParseFailure) {
		t.Fatalf("expected ParseFailure, got %v", err)
	}
	if KindOf(err).HTTPStatus() != 500 {
		t.Fatal("ParseFailure should be a server error")
	}
	if DetailOf(err) == "" {
		t.Fatal("ParseFailure should carry a detail")
	}
	assertEmptyDir(t, dir)
}

func TestExtract_ConverterFailurePreservesMessage(t *testing.T) {
	conv := &stubConverter{err: errors.New("pdf: broken xref table")}
	r, dir := newTestRouter(t, conv)

	_, err := r.Extract(context.Background(), InputFile{Content: []byte("%PDF"), Name: "a.pdf"}, "")
	if KindOf(err) != ParseFailure {
		t.Fatalf("kind = %v, want ParseFailure", KindOf(err))
	}
	if DetailOf(err) != "pdf: broken xref table" {
		t.Fatalf("detail = %q", DetailOf(err))
	}
	if !errors.Is(err, conv.err) {
		t.Fatal("underlying error should be wrapped")
	}
	assertEmptyDir(t, dir)
}

func TestExtract_NoConverter(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	_, err := r.Extract(context.Background(), InputFile{Content: []byte("x"), Name: "a.pdf"}, "")
	if KindOf(err) != InternalFailure {
		t.Fatalf("kind = %v, want InternalFailure", KindOf(err))
	}
}

func TestExtract_PanicIsContained(t *testing.T) {
	r, dir := newTestRouter(t, ConverterFunc(func(context.Context, string) (string, string, error) {
		panic("converter bug")
	}))

	_, err := r.Extract(context.Background(), InputFile{Content: []byte("x"), Name: "a.docx"}, "")
	if KindOf(err) != InternalFailure {
		t.Fatalf("kind = %v, want InternalFailure", KindOf(err))
	}
	assertEmptyDir(t, dir)

	// The router keeps serving.
	r.conv = &stubConverter{text: "fine"}
	doc, err := r.Extract(context.Background(), InputFile{Content: []byte("x"), Name: "a.docx"}, "")
	if err != nil || doc.Text != "fine" {
		t.Fatalf("after panic: doc=%+v err=%v", doc, err)
	}
}

func TestExtract_ConvertTimeout(t *testing.T) {
	dir := t.TempDir()
	r := New(ConverterFunc(func(ctx context.Context, _ string) (string, string, error) {
		<-ctx.Done()
		return "", "", ctx.Err()
	}), Config{ScratchDir: dir, ConvertTimeout: 20 * time.Millisecond})

	_, err := r.Extract(context.Background(), InputFile{Content: []byte("x"), Name: "a.pdf"}, "")
	if KindOf(err) != InternalFailure || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected timeout InternalFailure, got %v", err)
	}
	assertEmptyDir(t, dir)
}

func TestExtract_ConcurrencyBound(t *testing.T) {
	var inFlight, peak int32
	release := make(chan struct{})
	conv := ConverterFunc(func(context.Context, string) (string, string, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		<-release
		atomic.AddInt32(&inFlight, -1)
		return "", "ok", nil
	})
	r := New(conv, Config{ScratchDir: t.TempDir(), MaxConcurrent: 2})

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Extract(context.Background(), InputFile{Content: []byte("x"), Name: "a.txt"}, ""); err != nil {
				t.Errorf("Extract: %v", err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if peak > 2 {
		t.Fatalf("peak concurrency %d exceeds bound 2", peak)
	}
}

func TestExtract_WaitHonoursContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	r := New(ConverterFunc(func(context.Context, string) (string, string, error) {
		<-block
		return "", "", nil
	}), Config{ScratchDir: t.TempDir(), MaxConcurrent: 1})

	go r.Extract(context.Background(), InputFile{Content: []byte("x"), Name: "a.txt"}, "")
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.Extract(ctx, InputFile{Content: []byte("x"), Name: "b.txt"}, "")
	if KindOf(err) != InternalFailure {
		t.Fatalf("kind = %v, want InternalFailure", KindOf(err))
	}
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) RecordExtraction(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func TestExtract_RecordsEvents(t *testing.T) {
	rec := &recorder{}
	r := New(&stubConverter{text: "ok"}, Config{ScratchDir: t.TempDir(), Events: rec})
	ctx := kit.WithRequestID(kit.WithTransport(context.Background(), "grpc"), "req_1")

	if _, err := r.Extract(ctx, InputFile{Content: []byte("x"), Name: "a.csv"}, ""); err != nil {
		t.Fatal(err)
	}
	_, _ = r.Extract(ctx, InputFile{}, "")

	if len(rec.events) != 2 {
		t.Fatalf("events = %d, want 2", len(rec.events))
	}
	ok, bad := rec.events[0], rec.events[1]
	if ok.RequestID != "req_1" || ok.Transport != "grpc" || ok.Ext != ".csv" || ok.Route != "generic" || ok.Kind != "" || ok.Bytes != 1 {
		t.Fatalf("unexpected success event %+v", ok)
	}
	if bad.Kind != "missing_input" || bad.Detail == "" {
		t.Fatalf("unexpected failure event %+v", bad)
	}
}

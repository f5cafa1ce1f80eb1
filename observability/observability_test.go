package observability

import (
	"context"
	"database/sql"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/mdextract/dbopen"
	"github.com/hazyhaar/mdextract/extractor"
	"github.com/hazyhaar/mdextract/idgen"
)

func setupEventDB(t *testing.T) *sql.DB {
	t.Helper()
	return dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
}

func okEvent(route string) extractor.Event {
	return extractor.Event{
		RequestID: "req_1",
		Transport: "http",
		Name:      "mail.eml",
		Ext:       ".eml",
		Route:     route,
		Bytes:     120,
		Duration:  15 * time.Millisecond,
	}
}

func failedEvent() extractor.Event {
	ev := okEvent("msg")
	ev.Ext = ".msg"
	ev.Kind = extractor.ParseFailure.String()
	ev.Detail = "not an Outlook message"
	return ev
}

func TestInit_CreatesTable(t *testing.T) {
	db := dbopen.OpenMemory(t)
	if err := Init(db); err != nil {
		t.Fatal(err)
	}
	if err := Init(db); err != nil {
		t.Fatalf("Init is not idempotent: %v", err)
	}
	var count int
	db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='extraction_events'").Scan(&count)
	if count != 1 {
		t.Fatal("extraction_events not created")
	}
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "var", "events.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := db.Exec("SELECT 1 FROM extraction_events LIMIT 1"); err != nil {
		t.Fatalf("schema missing: %v", err)
	}
}

func TestEventLogger_RecordAndQuery(t *testing.T) {
	db := setupEventDB(t)
	l := NewEventLogger(db, 10, WithFlushInterval(time.Hour))

	ctx := context.Background()
	l.RecordExtraction(ctx, okEvent("eml"))
	l.RecordExtraction(ctx, failedEvent())
	l.Close() // flushes

	all, err := l.Query(ctx, EventFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("events: got %d, want 2", len(all))
	}

	status := StatusError
	failed, err := l.Query(ctx, EventFilter{Status: &status})
	if err != nil {
		t.Fatal(err)
	}
	if len(failed) != 1 {
		t.Fatalf("failed events: got %d", len(failed))
	}
	f := failed[0]
	if f.Route != "msg" || f.ErrorKind != "parse_failure" || f.ErrorDetail != "not an Outlook message" || f.DurationMs != 15 {
		t.Fatalf("unexpected record %+v", f)
	}
	if f.RequestID != "req_1" || f.Transport != "http" || f.FileName != "mail.eml" || f.Bytes != 120 {
		t.Fatalf("unexpected record %+v", f)
	}

	route := "eml"
	ok, _ := l.Query(ctx, EventFilter{Route: &route})
	if len(ok) != 1 || ok[0].Status != StatusSuccess || ok[0].ErrorKind != "" {
		t.Fatalf("eml events: %+v", ok)
	}
}

func TestEventLogger_FlushOnBatchSize(t *testing.T) {
	db := setupEventDB(t)
	l := NewEventLogger(db, 500, WithFlushInterval(time.Hour))
	defer l.Close()

	for range 100 {
		l.RecordExtraction(context.Background(), okEvent("generic"))
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		var n int
		db.QueryRow("SELECT COUNT(*) FROM extraction_events").Scan(&n)
		if n == 100 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("rows: got %d, want 100 before any timer flush", n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestEventLogger_AfterCloseDrops(t *testing.T) {
	db := setupEventDB(t)
	l := NewEventLogger(db, 10)
	l.Close()
	l.Close()

	l.RecordExtraction(context.Background(), okEvent("eml"))
	var n int
	db.QueryRow("SELECT COUNT(*) FROM extraction_events").Scan(&n)
	if n != 0 {
		t.Fatalf("rows: got %d, want 0", n)
	}
	if got := l.Dropped(); got != 1 {
		t.Fatalf("Dropped = %d, want 1", got)
	}
}

func TestEventLogger_FullBufferDropsWithoutWriting(t *testing.T) {
	// WHAT: A full queue drops the event instead of writing inline.
	// WHY: Recording runs on the request path and must never wait on SQLite.
	db := setupEventDB(t)
	// No flush loop, so the one-slot queue stays full.
	l := &EventLogger{
		db:     db,
		newID:  idgen.Prefixed("evt_", idgen.Default),
		logger: slog.Default(),
		ch:     make(chan *Record, 1),
	}

	for range 3 {
		l.RecordExtraction(context.Background(), okEvent("generic"))
	}
	if got := l.Dropped(); got != 2 {
		t.Fatalf("Dropped = %d, want 2", got)
	}
	if len(l.ch) != 1 {
		t.Fatalf("queued = %d, want 1", len(l.ch))
	}
	var n int
	db.QueryRow("SELECT COUNT(*) FROM extraction_events").Scan(&n)
	if n != 0 {
		t.Fatalf("rows: got %d, want 0", n)
	}
}

func TestEventLogger_QueryTimeRangeAndCleanup(t *testing.T) {
	db := setupEventDB(t)
	l := NewEventLogger(db, 10)
	defer l.Close()
	ctx := context.Background()

	old := &Record{EventID: "evt_old", Timestamp: time.Now().AddDate(0, 0, -40), Ext: ".eml", Route: "eml", Status: StatusSuccess}
	recent := &Record{EventID: "evt_new", Timestamp: time.Now(), Ext: ".eml", Route: "eml", Status: StatusSuccess}
	for _, r := range []*Record{old, recent} {
		if _, err := dbopen.Exec(ctx, db, insertEvent, recordArgs(r)...); err != nil {
			t.Fatal(err)
		}
	}

	since := time.Now().Add(-time.Hour)
	got, err := l.Query(ctx, EventFilter{Since: &since})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].EventID != "evt_new" {
		t.Fatalf("time-filtered: %+v", got)
	}

	deleted, err := l.Cleanup(ctx, 30)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Fatalf("deleted: got %d", deleted)
	}
}

func TestStats(t *testing.T) {
	s := NewStats()
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.RecordExtraction(ctx, okEvent("eml"))
		}()
	}
	wg.Wait()
	s.RecordExtraction(ctx, failedEvent())

	snap := s.Snapshot()
	if snap.Total != 11 || snap.Succeeded != 10 || snap.Failed != 1 {
		t.Fatalf("counts: %+v", snap)
	}
	if snap.Bytes != 11*120 || snap.AvgDurationMs != 15 {
		t.Fatalf("bytes/duration: %+v", snap)
	}
	if snap.ByRoute["eml"] != 10 || snap.ByRoute["msg"] != 1 || snap.ByErrorKind["parse_failure"] != 1 {
		t.Fatalf("breakdown: %+v", snap)
	}

	snap.ByRoute["eml"] = 0
	if s.Snapshot().ByRoute["eml"] != 10 {
		t.Fatal("Snapshot must return a copy")
	}
}

func TestTee(t *testing.T) {
	a, b := NewStats(), NewStats()
	rec := Tee(a, nil, b)
	rec.RecordExtraction(context.Background(), okEvent("generic"))
	if a.Snapshot().Total != 1 || b.Snapshot().Total != 1 {
		t.Fatal("event not fanned out")
	}
}

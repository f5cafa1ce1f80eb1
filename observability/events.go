// Package observability records what the extraction service does: every
// request becomes a row in an SQLite event store and a tick on in-memory
// counters.
//
// Both EventLogger and Stats implement extractor.EventRecorder; Tee combines
// them. Persistence is asynchronous so a slow disk never delays a response.
package observability

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/mdextract/dbopen"
	"github.com/hazyhaar/mdextract/extractor"
	"github.com/hazyhaar/mdextract/idgen"
)

// Event statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Record is one stored extraction.
type Record struct {
	EventID     string    `json:"event_id"`
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id,omitempty"`
	Transport   string    `json:"transport,omitempty"`
	FileName    string    `json:"file_name,omitempty"`
	Ext         string    `json:"ext"`
	Route       string    `json:"route"`
	Bytes       int       `json:"bytes"`
	DurationMs  int64     `json:"duration_ms"`
	Status      string    `json:"status"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	ErrorDetail string    `json:"error_detail,omitempty"`
}

// EventFilter narrows Query results. Nil fields are unbounded.
type EventFilter struct {
	Since  *time.Time
	Until  *time.Time
	Route  *string
	Status *string
	Limit  int // default 100
}

// EventLogger persists extraction events in batches.
type EventLogger struct {
	db        *sql.DB
	newID     idgen.Generator
	logger    *slog.Logger
	batchSize int
	interval  time.Duration

	ch      chan *Record
	stop    chan struct{}
	done    chan struct{}
	closed  atomic.Bool
	dropped atomic.Int64
	once    sync.Once
}

// EventOption configures an EventLogger.
type EventOption func(*EventLogger)

// WithEventIDGenerator sets the generator for event IDs.
func WithEventIDGenerator(gen idgen.Generator) EventOption {
	return func(l *EventLogger) { l.newID = gen }
}

// WithLogger sets the logger used for persistence failures.
func WithLogger(logger *slog.Logger) EventOption {
	return func(l *EventLogger) { l.logger = logger }
}

// WithFlushInterval sets how often queued events are written. Default: 2s.
func WithFlushInterval(d time.Duration) EventOption {
	return func(l *EventLogger) { l.interval = d }
}

// NewEventLogger starts an async event logger on db, which must already
// carry Schema.
func NewEventLogger(db *sql.DB, bufferSize int, opts ...EventOption) *EventLogger {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	l := &EventLogger{
		db:        db,
		newID:     idgen.Prefixed("evt_", idgen.Default),
		logger:    slog.Default(),
		batchSize: 100,
		interval:  2 * time.Second,
		ch:        make(chan *Record, bufferSize),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, o := range opts {
		o(l)
	}
	go l.flushLoop()
	return l
}

// RecordExtraction queues ev. It never blocks: when the buffer is full, or
// after Close, the event is dropped and counted.
func (l *EventLogger) RecordExtraction(_ context.Context, ev extractor.Event) {
	rec := l.toRecord(ev)
	if !l.closed.Load() {
		select {
		case l.ch <- rec:
			return
		default:
		}
	}
	if n := l.dropped.Add(1); n&(n-1) == 0 {
		l.logger.Warn("event dropped", "request_id", rec.RequestID, "dropped_total", n)
	}
}

// Dropped reports how many events were discarded because the buffer was
// full or the logger closed.
func (l *EventLogger) Dropped() int64 { return l.dropped.Load() }

func (l *EventLogger) toRecord(ev extractor.Event) *Record {
	rec := &Record{
		EventID:     l.newID(),
		Timestamp:   time.Now(),
		RequestID:   ev.RequestID,
		Transport:   ev.Transport,
		FileName:    ev.Name,
		Ext:         ev.Ext,
		Route:       ev.Route,
		Bytes:       ev.Bytes,
		DurationMs:  ev.Duration.Milliseconds(),
		Status:      StatusSuccess,
		ErrorKind:   ev.Kind,
		ErrorDetail: ev.Detail,
	}
	if ev.Kind != "" {
		rec.Status = StatusError
	}
	return rec
}

// Query returns stored events, newest first.
func (l *EventLogger) Query(ctx context.Context, f EventFilter) ([]*Record, error) {
	var where []string
	var args []any
	if f.Since != nil {
		where = append(where, "timestamp >= ?")
		args = append(args, f.Since.UnixMilli())
	}
	if f.Until != nil {
		where = append(where, "timestamp <= ?")
		args = append(args, f.Until.UnixMilli())
	}
	if f.Route != nil {
		where = append(where, "route = ?")
		args = append(args, *f.Route)
	}
	if f.Status != nil {
		where = append(where, "status = ?")
		args = append(args, *f.Status)
	}

	q := `SELECT event_id, timestamp, request_id, transport, file_name, ext, route,
		bytes, duration_ms, status, error_kind, error_detail FROM extraction_events`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	limit := 100
	if f.Limit > 0 {
		limit = f.Limit
	}
	q += " ORDER BY timestamp DESC, event_id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		var r Record
		var ts int64
		var requestID, transport, fileName, kind, detail sql.NullString
		if err := rows.Scan(&r.EventID, &ts, &requestID, &transport, &fileName, &r.Ext, &r.Route,
			&r.Bytes, &r.DurationMs, &r.Status, &kind, &detail); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		r.Timestamp = time.UnixMilli(ts)
		r.RequestID = requestID.String
		r.Transport = transport.String
		r.FileName = fileName.String
		r.ErrorKind = kind.String
		r.ErrorDetail = detail.String
		out = append(out, &r)
	}
	return out, rows.Err()
}

// Cleanup deletes events older than retentionDays.
func (l *EventLogger) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	threshold := time.Now().AddDate(0, 0, -retentionDays).UnixMilli()
	res, err := dbopen.Exec(ctx, l.db, "DELETE FROM extraction_events WHERE timestamp < ?", threshold)
	if err != nil {
		return 0, fmt.Errorf("cleanup events: %w", err)
	}
	return res.RowsAffected()
}

// Close drains the queue and stops the flush goroutine. It is idempotent.
func (l *EventLogger) Close() error {
	l.once.Do(func() {
		l.closed.Store(true)
		close(l.stop)
		<-l.done
	})
	return nil
}

const insertEvent = `INSERT INTO extraction_events
	(event_id, timestamp, request_id, transport, file_name, ext, route,
	 bytes, duration_ms, status, error_kind, error_detail)
	VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`

func recordArgs(r *Record) []any {
	return []any{
		r.EventID, r.Timestamp.UnixMilli(), nullable(r.RequestID), nullable(r.Transport), nullable(r.FileName),
		r.Ext, r.Route, r.Bytes, r.DurationMs, r.Status, nullable(r.ErrorKind), nullable(r.ErrorDetail),
	}
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (l *EventLogger) flush(batch []*Record) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := dbopen.RunTx(ctx, l.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertEvent)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, r := range batch {
			if _, err := stmt.ExecContext(ctx, recordArgs(r)...); err != nil {
				return fmt.Errorf("insert %s: %w", r.EventID, err)
			}
		}
		return nil
	})
	if err != nil {
		l.logger.Error("event batch lost", "error", err, "events", len(batch))
	}
}

func (l *EventLogger) flushLoop() {
	defer close(l.done)
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	batch := make([]*Record, 0, l.batchSize)

	for {
		select {
		case <-l.stop:
			for {
				select {
				case r := <-l.ch:
					batch = append(batch, r)
				default:
					l.flush(batch)
					return
				}
			}
		case r := <-l.ch:
			batch = append(batch, r)
			if len(batch) >= l.batchSize {
				l.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			l.flush(batch)
			batch = batch[:0]
		}
	}
}

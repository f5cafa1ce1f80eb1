package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/hazyhaar/mdextract/extractor"
	"github.com/hazyhaar/mdextract/horosafe"
	"github.com/hazyhaar/mdextract/kit"
	"github.com/hazyhaar/mdextract/observability"
	"github.com/hazyhaar/mdextract/shield"
)

// multipartMemory is the part of a multipart form kept in memory; the rest
// spills to temporary files.
const multipartMemory = 32 << 20

type extractResponse struct {
	Title       string `json:"title"`
	Text        string `json:"text"`
	ContentType string `json:"content_type"`
	RequestID   string `json:"request_id"`
}

type errorBody struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := kit.GetRequestID(ctx)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{
				Error: "request body too large", Kind: "too_large", RequestID: reqID,
			})
			return
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			writeJSON(w, http.StatusBadRequest, errorBody{
				Error: "malformed multipart body: " + err.Error(), Kind: "bad_request", RequestID: reqID,
			})
			return
		}
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	var in extractor.InputFile
	if f, hdr, err := r.FormFile("file"); err == nil {
		data, err := horosafe.LimitedReadAll(f, s.cfg.MaxBody)
		f.Close()
		if errors.Is(err, horosafe.ErrTooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{
				Error: "request body too large", Kind: "too_large", RequestID: reqID,
			})
			return
		}
		if err != nil {
			shield.GetLogger(ctx).Warn("read upload", "error", err)
			writeJSON(w, http.StatusBadRequest, errorBody{
				Error: "cannot read uploaded file", Kind: "bad_request", RequestID: reqID,
			})
			return
		}
		in.Content = data
		in.Name = hdr.Filename
		in.ContentType = hdr.Header.Get("Content-Type")
	}
	if ct := r.FormValue("content_type"); ct != "" {
		in.ContentType = ct
	}

	doc, err := s.router.Extract(ctx, in, r.FormValue("format"))
	if err != nil {
		kind := extractor.KindOf(err)
		writeJSON(w, kind.HTTPStatus(), errorBody{
			Error: extractor.DetailOf(err), Kind: kind.String(), RequestID: reqID,
		})
		return
	}
	writeJSON(w, http.StatusOK, extractResponse{
		Title:       doc.Title,
		Text:        doc.Text,
		ContentType: doc.ContentType,
		RequestID:   reqID,
	})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ext := extractor.Resolve(q.Get("name"), q.Get("content_type"))
	writeJSON(w, http.StatusOK, map[string]string{
		"extension": ext,
		"extractor": extractor.ExtractorFor(ext),
	})
}

func (s *Server) handleFormats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"output": extractor.AcceptedFormats()})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	snap := s.cfg.Stats.Snapshot()
	if s.cfg.Events != nil {
		snap.EventsDropped = s.cfg.Events.Dropped()
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleEvents lists stored events. Query parameters: since and until
// (RFC 3339), route, status, limit.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f observability.EventFilter
	for _, p := range []struct {
		key string
		dst **time.Time
	}{{"since", &f.Since}, {"until", &f.Until}} {
		v := q.Get(p.key)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: p.key + " must be RFC 3339", Kind: "bad_request"})
			return
		}
		*p.dst = &t
	}
	if v := q.Get("route"); v != "" {
		f.Route = &v
	}
	if v := q.Get("status"); v != "" {
		f.Status = &v
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be a positive integer", Kind: "bad_request"})
			return
		}
		f.Limit = n
	}

	events, err := s.cfg.Events.Query(r.Context(), f)
	if err != nil {
		shield.GetLogger(r.Context()).Error("query events", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "cannot query events", Kind: "internal_failure"})
		return
	}
	if events == nil {
		events = []*observability.Record{}
	}
	writeJSON(w, http.StatusOK, events)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

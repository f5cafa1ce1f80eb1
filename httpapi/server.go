// Package httpapi exposes the extraction router over HTTP.
//
// Routes:
//
//	GET  /healthz      liveness
//	POST /v1/extract   multipart upload (field "file"), returns the Markdown document
//	GET  /v1/resolve   ?name=&content_type=, shows the extension hint and extractor
//	GET  /v1/stats     in-memory counters
//	GET  /v1/events    stored extraction events
//	/mcp               MCP streamable HTTP, when an MCP server is configured
//
// Everything but /healthz sits behind optional API-key auth.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/mdextract/extractor"
	"github.com/hazyhaar/mdextract/observability"
	"github.com/hazyhaar/mdextract/shield"
)

// DefaultMaxBody matches the 100 MB message cap of the gRPC transport.
const DefaultMaxBody = 100 << 20

// Config configures the HTTP handler.
type Config struct {
	// MaxBody caps upload size in bytes (default DefaultMaxBody).
	MaxBody int64

	// RateLimit is the number of requests a client may make per RateWindow.
	// Zero disables rate limiting.
	RateLimit  int
	RateWindow time.Duration

	// APIKeys enables Bearer auth when non-empty.
	APIKeys []APIKey

	// Stats backs GET /v1/stats. Optional.
	Stats *observability.Stats

	// Events backs GET /v1/events. Optional.
	Events *observability.EventLogger

	// MCP is served at /mcp. Optional.
	MCP *mcp.Server

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.MaxBody <= 0 {
		c.MaxBody = DefaultMaxBody
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Server routes HTTP requests to an extractor.Router.
type Server struct {
	router  *extractor.Router
	cfg     Config
	logger  *slog.Logger
	handler http.Handler
}

// New builds the handler tree.
func New(router *extractor.Router, cfg Config) *Server {
	cfg.defaults()
	s := &Server{router: router, cfg: cfg, logger: cfg.Logger}

	r := chi.NewRouter()
	for _, mw := range shield.APIStack(shield.StackConfig{
		MaxBody:    cfg.MaxBody,
		RateLimit:  cfg.RateLimit,
		RateWindow: cfg.RateWindow,
		Exempt:     []string{"/healthz"},
		Logger:     cfg.Logger,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAPIKey(cfg.APIKeys))

		r.Post("/v1/extract", s.handleExtract)
		r.Get("/v1/resolve", s.handleResolve)
		r.Get("/v1/formats", s.handleFormats)
		if cfg.Stats != nil {
			r.Get("/v1/stats", s.handleStats)
		}
		if cfg.Events != nil {
			r.Get("/v1/events", s.handleEvents)
		}
		if cfg.MCP != nil {
			srv := cfg.MCP
			h := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return srv }, nil)
			r.Handle("/mcp", h)
			r.Handle("/mcp/*", h)
		}
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found", Kind: "not_found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed", Kind: "method_not_allowed"})
	})

	s.handler = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

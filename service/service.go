// Package service assembles the extraction daemon: the docpipe converter,
// the optional captioner, the extractor router, the event store and the
// gRPC, HTTP and MCP front ends.
//
// Usage:
//
//	cfg, err := service.LoadConfig(os.Getenv("CONFIG"))
//	svc, err := service.New(cfg, logger)
//	defer svc.Close()
//	err = svc.Run(ctx)
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/hazyhaar/mdextract/caption"
	"github.com/hazyhaar/mdextract/docpipe"
	"github.com/hazyhaar/mdextract/extractor"
	"github.com/hazyhaar/mdextract/grpcapi"
	"github.com/hazyhaar/mdextract/httpapi"
	"github.com/hazyhaar/mdextract/observability"
)

// Name and Version identify the daemon to MCP clients.
const (
	Name    = "mdextract"
	Version = "1.0.0"
)

// Service owns every long-lived component of the daemon.
type Service struct {
	cfg    *Config
	logger *slog.Logger

	Pipeline *docpipe.Pipeline
	Router   *extractor.Router
	Stats    *observability.Stats
	Events   *observability.EventLogger // nil when events.path is empty
	MCP      *mcp.Server                // nil when mcp is disabled

	eventsDB *sql.DB
}

// New wires the components described by cfg. It opens the event store when
// configured; Close releases it.
func New(cfg *Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{cfg: cfg, logger: logger, Stats: observability.NewStats()}

	capCfg := cfg.Caption
	capCfg.Logger = logger
	describer, err := caption.New(capCfg)
	if err != nil {
		return nil, fmt.Errorf("captioner: %w", err)
	}
	pcfg := docpipe.Config{MaxFileSize: cfg.Extract.MaxFileMB << 20, Logger: logger}
	if describer != nil {
		pcfg.Captioner = describer
		logger.Info("image captioning enabled", "provider", capCfg.Provider)
	}
	s.Pipeline = docpipe.New(pcfg)

	recorders := []extractor.EventRecorder{s.Stats}
	if cfg.Events.Path != "" {
		db, err := observability.Open(cfg.Events.Path)
		if err != nil {
			return nil, fmt.Errorf("events db: %w", err)
		}
		s.eventsDB = db
		s.Events = observability.NewEventLogger(db, cfg.Events.BufferSize, observability.WithLogger(logger))
		recorders = append(recorders, s.Events)
	}

	s.Router = extractor.New(s.Pipeline, extractor.Config{
		MaxConcurrent:  cfg.Extract.MaxConcurrent,
		ConvertTimeout: cfg.Extract.ConvertTimeout,
		ScratchDir:     cfg.Extract.ScratchDir,
		Logger:         logger,
		Events:         observability.Tee(recorders...),
	})

	if cfg.MCP.Enabled {
		s.MCP = mcp.NewServer(&mcp.Implementation{Name: Name, Version: Version}, nil)
		s.Router.RegisterMCP(s.MCP)
	}
	return s, nil
}

// HTTPHandler returns the HTTP front end.
func (s *Service) HTTPHandler() http.Handler {
	return httpapi.New(s.Router, httpapi.Config{
		MaxBody:    int64(s.cfg.HTTP.MaxBodyMB) << 20,
		RateLimit:  s.cfg.HTTP.RateLimit,
		RateWindow: s.cfg.HTTP.RateWindow,
		APIKeys:    s.cfg.Auth.APIKeys,
		Stats:      s.Stats,
		Events:     s.Events,
		MCP:        s.MCP,
		Logger:     s.logger,
	})
}

// Run serves the configured listeners until ctx is done, then shuts them
// down gracefully.
func (s *Service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if s.cfg.GRPC.Addr != "" {
		lis, err := net.Listen("tcp", s.cfg.GRPC.Addr)
		if err != nil {
			return fmt.Errorf("grpc listen %s: %w", s.cfg.GRPC.Addr, err)
		}
		gs, hs := grpcapi.NewServer(s.Router, grpcapi.Config{
			Logger:         s.logger,
			MaxMessageSize: s.cfg.GRPC.MaxMessageMB << 20,
		})
		g.Go(func() error {
			s.logger.Info("grpc serving", "addr", lis.Addr().String())
			if err := gs.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("grpc serve: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
			gs.GracefulStop()
			return nil
		})
	}

	if s.cfg.HTTP.Addr != "" {
		srv := &http.Server{
			Addr:              s.cfg.HTTP.Addr,
			Handler:           s.HTTPHandler(),
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		g.Go(func() error {
			s.logger.Info("http serving", "addr", srv.Addr, "mcp", s.MCP != nil)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http serve: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if s.Events != nil && s.cfg.Events.RetentionDays > 0 {
		g.Go(func() error {
			s.retention(ctx, 24*time.Hour)
			return nil
		})
	}

	return g.Wait()
}

// retention prunes stored events older than the configured window, once at
// start and then every interval.
func (s *Service) retention(ctx context.Context, interval time.Duration) {
	prune := func() {
		n, err := s.Events.Cleanup(ctx, s.cfg.Events.RetentionDays)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Warn("events cleanup", "error", err)
			}
			return
		}
		if n > 0 {
			s.logger.Info("events cleanup", "deleted", n)
		}
	}
	prune()
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			prune()
		}
	}
}

// Close flushes the event store and closes its database.
func (s *Service) Close() error {
	var errs []error
	if s.Events != nil {
		errs = append(errs, s.Events.Close())
	}
	if s.eventsDB != nil {
		errs = append(errs, s.eventsDB.Close())
	}
	return errors.Join(errs...)
}

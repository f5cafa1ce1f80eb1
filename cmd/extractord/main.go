// Command extractord serves document-to-Markdown extraction over gRPC, HTTP
// and MCP.
//
// Configuration comes from the YAML file named by CONFIG (optional) with
// environment overrides: GRPC_ADDR, HTTP_ADDR, EVENTS_DB, LOG_LEVEL,
// LOG_FORMAT, OPENAI_BASE_URL, OPENAI_API_KEY, OPENAI_MODEL, ANTHROPIC_API_KEY.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hazyhaar/mdextract/httpapi"
	"github.com/hazyhaar/mdextract/service"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG"), "YAML config file")
	hashKey := flag.String("hash-key", "", "print the bcrypt hash of an API key for auth.api_keys and exit")
	flag.Parse()

	if *hashKey != "" {
		h, err := httpapi.HashAPIKey(*hashKey)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(h)
		return
	}

	cfg, err := service.LoadConfig(*configPath)
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc, err := service.New(cfg, logger)
	if err != nil {
		slog.Error("service", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	slog.Info("extractord starting",
		"version", service.Version,
		"grpc", cfg.GRPC.Addr,
		"http", cfg.HTTP.Addr,
		"mcp", cfg.MCP.Enabled,
		"events", cfg.Events.Path != "",
	)
	if err := svc.Run(ctx); err != nil {
		slog.Error("server error", "error", err)
		svc.Close()
		os.Exit(1)
	}
	slog.Info("extractord stopped")
}

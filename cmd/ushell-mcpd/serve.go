package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/ushell-mcp/internal/audit"
	"github.com/nextlevelbuilder/ushell-mcp/internal/catalog"
	"github.com/nextlevelbuilder/ushell-mcp/internal/config"
	"github.com/nextlevelbuilder/ushell-mcp/internal/mcpserver"
	"github.com/nextlevelbuilder/ushell-mcp/internal/shellstate"
	"github.com/nextlevelbuilder/ushell-mcp/internal/tracker"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return err
	}

	shutdownTracing := setupTracing()
	defer shutdownTracing()

	shell := shellstate.New()
	var cat *catalog.Catalog // lazily loaded on first list_tools/search_commands
	track := tracker.New()
	aud := audit.Open(cfg.AuditPath())
	defer aud.Close()

	srv := mcpserver.New(mcpserver.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		MaxClients:         cfg.MaxClients,
		IdleTimeoutSeconds: cfg.IdleTimeoutSeconds,
		MaxMessageBytes:    cfg.MaxMessageBytes,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
		CatalogPath:        cfg.CatalogPath,
	}, shell, cat, track, aud, mcpserver.NewOtelTracer("ushell-mcpd"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return err
	}
	slog.Info("ushell-mcpd started", "port", cfg.Port)

	<-ctx.Done()
	slog.Info("shutting down")
	srv.Stop()
	return nil
}

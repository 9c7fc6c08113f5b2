package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/graphweave/graphweave"
	"github.com/graphweave/graphweave/pkg/config"
	"github.com/graphweave/graphweave/pkg/logger"
	"github.com/graphweave/graphweave/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the GraphWeave HTTP server",
	Long: `Start the GraphWeave HTTP server to provide REST API access to the
extraction and integration engine.

The server provides endpoints for:
- Extracting triples from text and conversations (sync and async)
- Running full-graph integration
- Listing triples and entities
- Health checks

Configuration can be provided through config files, environment variables, or command-line flags.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "", "Server host")
	serveCmd.Flags().Int("port", 0, "Server port")
	serveCmd.Flags().String("mode", "", "Server mode (debug, release, test)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Server.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Server.Port = port
	}
	if mode, _ := cmd.Flags().GetString("mode"); mode != "" {
		cfg.Server.Mode = mode
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	engine, cleanup, err := buildEngine(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	defer cleanup()

	dispatcher := graphweave.NewDispatcher(cfg.Dispatch.Workers, cfg.Dispatch.QueueSize, log)

	srv := server.New(cfg, engine, dispatcher, log)
	srv.Setup()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-serverErrChan:
		dispatcher.Close()
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}

	// Let queued extractions finish before tearing down the engine.
	dispatcher.Close()
	return nil
}

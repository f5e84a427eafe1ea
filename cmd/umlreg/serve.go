package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"umlreg/internal/api"
	"umlreg/internal/auth"
	"umlreg/internal/registry"
	"umlreg/internal/webhooks"
)

var (
	servePort  int
	serveHost  string
	serveLazy  bool
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the umlreg HTTP API server. Declared models are loaded at startup and
served from memory; POST /models/{name}/reload rebuilds one. With --watch (or
registry.watch.enabled) local model files and the manifest are polled and
changed models are reloaded automatically. Configured webhooks are notified
after every load.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default: api.port)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default: api.bind)")
	serveCmd.Flags().BoolVar(&serveLazy, "lazy", false, "Load models on first request instead of at startup")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Reload models when their local files change")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := openEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()
	logger := env.logs.APILogger()

	host, port := env.cfg.API.Bind, env.cfg.API.Port
	if serveHost != "" {
		host = serveHost
	}
	if servePort != 0 {
		port = servePort
	}
	addr := fmt.Sprintf("%s:%d", host, port)

	if len(env.cfg.Webhooks.Endpoints) > 0 {
		hooks, err := webhooks.NewManager(env.cfg.Webhooks, logger)
		if err != nil {
			return err
		}
		hooks.Start()
		defer func() {
			if err := hooks.Stop(5 * time.Second); err != nil {
				logger.Warn("Webhook shutdown incomplete", "error", err.Error())
			}
		}()
		env.registry.Subscribe(func(info *registry.ModelInfo) {
			hooks.EmitLoad(loadReport(info), info.Loaded())
		})
	}

	if !serveLazy {
		infos, err := env.registry.LoadAll(ctx)
		if err != nil {
			return err
		}
		failed := 0
		for _, info := range infos {
			if !info.Loaded() {
				failed++
				logger.Warn("Model failed to load", "model", info.Meta.Name, "error", info.Attempt.Failure)
			}
		}
		logger.Info("Loaded models", "count", len(infos), "failed", failed)
	}

	if serveWatch || env.cfg.Registry.Watch.Enabled {
		mw, err := startModelWatcher(ctx, env.registry, env.manifestPath, env.cfg.Registry.Watch, logger)
		if err != nil {
			return err
		}
		defer mw.Stop()
	}

	guard := auth.NewGuard(env.cfg.API.TokenHash, env.cfg.API.RateLimit, logger)
	server := api.NewServer(addr, env.registry, guard, logger)

	if !guard.Enabled() {
		logger.Warn("No api.tokenHash configured; reloads are not authenticated")
	}

	serverErr := make(chan error, 1)
	go func() {
		fmt.Fprintf(cmd.OutOrStdout(), "umlreg HTTP API server listening on http://%s\n", addr)
		fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")
		serverErr <- server.Start(ctx)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server error", "error", err.Error())
			return err
		}
	case <-ctx.Done():
		logger.Info("Received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error during shutdown", "error", err.Error())
			return err
		}
		logger.Info("Server stopped gracefully")
	}
	return nil
}

func loadReport(info *registry.ModelInfo) webhooks.LoadReport {
	a := info.Attempt
	return webhooks.LoadReport{
		Model:       info.Meta.Name,
		Resource:    info.Meta.Resource,
		Parser:      info.Meta.ParserVersion,
		AttemptID:   a.ID,
		Fingerprint: a.Fingerprint,
		Elements:    a.Elements,
		Errors:      a.Errors,
		Warnings:    a.Warnings,
		Infos:       a.Infos,
		Failure:     a.Failure,
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/user/docchat/internal/webapi"
)

var serveListen string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (defaults to http.listen from the config)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the session to a browser over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	addr := cfg.HTTP.Listen
	if serveListen != "" {
		addr = serveListen
	}

	orch := newOrchestrator(cfg, nil)
	defer orch.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("docchat started",
		"backend", cfg.Backend.BaseURL,
		"log_level", cfg.LogLevel,
		"poll_interval", cfg.PollInterval(),
	)

	g, gctx := errgroup.WithContext(ctx)
	serveBridge(gctx, g, addr, webapi.NewServer(orch))
	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("shutting down")
	return nil
}

// serveBridge runs an HTTP server in g until ctx is done. Request contexts
// derive from ctx so open event streams end with it.
func serveBridge(ctx context.Context, g *errgroup.Group, addr string, handler http.Handler) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	g.Go(func() error {
		slog.Info("http server started", "listen", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("http server shutdown", "error", err)
			srv.Close()
		}
		return nil
	})
}

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/user/docchat/internal/config"
	"github.com/user/docchat/internal/orchestrator"
	"github.com/user/docchat/internal/riddle"
	"github.com/user/docchat/pkg/backend"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "docchat",
	Short:         "Summarize documents and chat about them",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath(), "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func newClient(cfg *config.Config) *backend.Client {
	return backend.New(&backend.Config{
		BaseURL:   cfg.Backend.BaseURL,
		Timeout:   cfg.RequestTimeout(),
		UserAgent: "docchat",
	})
}

func newOrchestrator(cfg *config.Config, widget riddle.Widget) *orchestrator.Orchestrator {
	opts := []orchestrator.Option{orchestrator.WithTimings(orchestrator.Timings{
		PollInterval: cfg.PollInterval(),
		SlowUpload:   cfg.SlowUploadDelay(),
		RiddleDelay:  cfg.RiddleDelay(),
		ReplyDelay:   cfg.ReplyDelay(),
	})}
	if widget != nil {
		opts = append(opts, orchestrator.WithWidget(widget))
	}
	return orchestrator.New(newClient(cfg), opts...)
}

// syncWriter serializes writes from the event loop and the command.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

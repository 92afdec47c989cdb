package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/user/docchat/internal/orchestrator"
	"github.com/user/docchat/internal/render"
	"github.com/user/docchat/internal/state"
	"github.com/user/docchat/internal/webapi"
	"github.com/user/docchat/pkg/backend"
)

var (
	runFile   string
	runURL    string
	runAsk    []string
	runNoChat bool
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runFile, "file", "", "document to upload")
	runCmd.Flags().StringVar(&runURL, "url", "", "URL of a page or document to summarize")
	runCmd.Flags().StringArrayVar(&runAsk, "ask", nil, "question to ask once the summary is ready (repeatable)")
	runCmd.Flags().BoolVar(&runNoChat, "no-chat", false, "exit after the asked questions instead of reading more from stdin")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Summarize a document and chat about it",
	Args:  cobra.NoArgs,
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	if runFile == "" && strings.TrimSpace(runURL) == "" {
		return errors.New("one of --file or --url is required")
	}
	cfg := loadConfig()
	setupLogging(cfg)

	sub := orchestrator.Submission{URL: runURL}
	if runFile != "" {
		f, err := os.Open(runFile)
		if err != nil {
			return fmt.Errorf("open document: %w", err)
		}
		defer f.Close()
		sub.File = &backend.File{Name: runFile, Content: f}
	}

	out := &syncWriter{w: cmd.OutOrStdout()}
	orch := newOrchestrator(cfg, render.NewRiddleWidget(out))
	defer orch.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	term := newTerminal(out, cfg.Render.Width)
	unsubscribe := orch.Subscribe(term.push)
	defer unsubscribe()

	g, gctx := errgroup.WithContext(ctx)
	if cfg.HTTP.Enabled {
		serveBridge(gctx, g, cfg.HTTP.Listen, webapi.NewServer(orch))
	}
	g.Go(func() error {
		defer cancel()
		err := term.session(gctx, orch, sub, cmd.InOrStdin())
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	return g.Wait()
}

// terminal prints orchestrator snapshots as they arrive. Only the latest
// pending snapshot is kept; every wait is driven by state, not by events.
type terminal struct {
	out     io.Writer
	width   int
	updates chan state.Snapshot
	printed state.Snapshot
}

func newTerminal(out io.Writer, width int) *terminal {
	if width <= 0 {
		width = 80
	}
	return &terminal{out: out, width: width, updates: make(chan state.Snapshot, 1)}
}

func (t *terminal) push(snap state.Snapshot) {
	for {
		select {
		case t.updates <- snap:
			return
		default:
		}
		select {
		case <-t.updates:
		default:
		}
	}
}

func (t *terminal) wait(ctx context.Context, done func(state.Snapshot) bool) (state.Snapshot, error) {
	for {
		select {
		case <-ctx.Done():
			return state.Snapshot{}, ctx.Err()
		case snap := <-t.updates:
			t.printStatus(snap)
			if done(snap) {
				return snap, nil
			}
		}
	}
}

func (t *terminal) printStatus(snap state.Snapshot) {
	if snap.Status == t.printed.Status && snap.Progress == t.printed.Progress && snap.SlowUpload == t.printed.SlowUpload {
		return
	}
	t.printed = snap
	if snap.Status == state.StatusIdle {
		return
	}
	fmt.Fprintln(t.out, render.Status(snap))
}

func (t *terminal) session(ctx context.Context, orch *orchestrator.Orchestrator, sub orchestrator.Submission, in io.Reader) error {
	id, err := orch.Submit(sub)
	if err != nil {
		return err
	}
	snap, err := t.wait(ctx, func(s state.Snapshot) bool {
		return s.SubmissionID == id && s.Status.Terminal()
	})
	if err != nil {
		return err
	}
	if snap.Status == state.StatusError {
		fmt.Fprintln(t.out, render.Error(snap.LastError))
		return fmt.Errorf("processing failed: %s", snap.LastError)
	}

	fmt.Fprintln(t.out)
	fmt.Fprintln(t.out, render.Summary(snap, t.width))
	for _, m := range snap.Messages {
		fmt.Fprintln(t.out, render.Message(m, t.width))
	}

	for _, q := range runAsk {
		if err := t.ask(ctx, orch, q); err != nil {
			return err
		}
	}
	if runNoChat {
		return nil
	}
	return t.repl(ctx, orch, in, snap.SuggestedQuestions)
}

// repl reads questions from in until EOF or /quit. A bare number picks the
// matching suggested question.
func (t *terminal) repl(ctx context.Context, orch *orchestrator.Orchestrator, in io.Reader, suggested []string) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			q := strings.TrimSpace(line)
			switch {
			case q == "":
				continue
			case q == "/quit" || q == "/exit":
				return nil
			}
			if n, err := strconv.Atoi(q); err == nil && n >= 1 && n <= len(suggested) {
				q = suggested[n-1]
			}
			if err := t.ask(ctx, orch, q); err != nil {
				return err
			}
		}
	}
}

func (t *terminal) ask(ctx context.Context, orch *orchestrator.Orchestrator, q string) error {
	before := len(orch.Snapshot().Messages)
	if err := orch.Send(q); err != nil {
		return err
	}
	snap, err := t.wait(ctx, func(s state.Snapshot) bool {
		return len(s.Messages) >= before+2 && s.ChatPending == 0
	})
	if err != nil {
		return err
	}
	for _, m := range snap.Messages[before:] {
		fmt.Fprintln(t.out, render.Message(m, t.width))
	}
	if snap.LastError != "" {
		fmt.Fprintln(t.out, render.Error(snap.LastError))
	}
	return nil
}

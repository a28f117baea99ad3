package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"murmur/internal/batch"
	"murmur/internal/config"
	"murmur/internal/deps"
	"murmur/internal/history"
	"murmur/internal/logging"
	"murmur/internal/media/extract"
	"murmur/internal/media/ffprobe"
	"murmur/internal/output"
	"murmur/internal/permission"
	"murmur/internal/preflight"
	"murmur/internal/recognition"
)

func runTranscribe(cmd *cobra.Command, ctx *commandContext, paths []string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger := ctx.loggerFor(cmd)
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()

	if failed := preflight.Failed(preflight.RunAll(cmd.Context(), cfg)); len(failed) > 0 {
		for _, result := range failed {
			fmt.Fprintf(stderr, "%s: %s\n", result.Name, result.Detail)
		}
		return fmt.Errorf("preflight failed: %s", failed[0].Name)
	}

	format, err := output.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	engine, err := buildEngine(cfg)
	if err != nil {
		return errors.New(errorText(err, cfg.Verbose))
	}

	authorizer := permission.NewLocalAuthorizer(
		permission.NewConsentStore(permission.DefaultConsentPath()),
		ctx.flags.yes,
	)
	gate := permission.NewGate(authorizer)
	inspector := ffprobe.Inspector{Binary: deps.FFprobePath()}
	orchestrator := recognition.New(engine, gate,
		recognition.WithDurationProber(recognition.AudioDurationProber{Media: inspector}),
		recognition.WithLogger(logger),
	)
	extractor := extract.New(
		extract.NewFFmpegTranscoder(deps.FFmpegPath()),
		inspector,
		extract.WithLogger(logger),
	)

	tempDir, err := os.MkdirTemp("", "murmur-")
	if err != nil {
		return fmt.Errorf("create scratch directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	view := newProgressView(stderr, stdout, progressViewOptions{
		Total:    len(paths),
		Show:     cfg.ShowProgress,
		Live:     shouldColorize(stderr),
		Colorize: ctx.colorize(stdout),
		Verbose:  cfg.Verbose,
	})
	runner := batch.NewRunner(orchestrator, extractor, gate, batch.Options{
		Language:  cfg.Language,
		Format:    format,
		OnDevice:  cfg.OnDevice,
		OutputDir: cfg.OutputDir,
		TempDir:   tempDir,
	},
		batch.WithObserver(view.update),
		batch.WithItemObserver(view.item),
		batch.WithLogger(logger),
	)

	runCtx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	stopInterrupts := watchInterrupts(runCtx, runner, cancel, stderr)
	report, runErr := runner.Run(runCtx, absolutePaths(paths))
	stopInterrupts()
	view.finish()

	if cfg.History {
		recordHistory(context.WithoutCancel(cmd.Context()), report, logger)
	}
	printSummary(stdout, report)

	if runErr != nil {
		return errors.New(errorText(runErr, cfg.Verbose))
	}
	if code := report.ExitCode(); code != 0 {
		return &exitCodeError{code: code}
	}
	return nil
}

// watchInterrupts maps the first Ctrl-C to cancelling the current file and a
// second one to stopping the batch.
func watchInterrupts(ctx context.Context, runner *batch.Runner, cancelBatch context.CancelFunc, w io.Writer) func() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt)
	done := make(chan struct{})
	go func() {
		interrupts := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-signals:
				interrupts++
				if interrupts == 1 {
					fmt.Fprintln(w, "\nCancelling current file (press Ctrl-C again to stop the batch)")
					runner.CancelCurrent()
					continue
				}
				fmt.Fprintln(w, "\nStopping batch")
				cancelBatch()
				return
			}
		}
	}()
	return func() {
		signal.Stop(signals)
		close(done)
	}
}

func recordHistory(ctx context.Context, report batch.Report, logger *slog.Logger) {
	path := filepath.Join(config.DefaultDataDir(), history.FileName)
	store, err := history.Open(path)
	if err != nil {
		logging.WarnWithContext(logger, "history unavailable", "history_open_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "set history: false to disable run history"),
		)
		return
	}
	defer store.Close()
	if err := store.Record(ctx, report); err != nil {
		logging.WarnWithContext(logger, "history record failed", "history_record_failed",
			logging.String("run_id", report.RunID),
			logging.Error(err),
		)
	}
}

func printSummary(w io.Writer, report batch.Report) {
	total := report.Total()
	if total == 0 {
		return
	}
	noun := "files"
	if total == 1 {
		noun = "file"
	}
	var extra []string
	if report.Failed > 0 {
		extra = append(extra, fmt.Sprintf("%d failed", report.Failed))
	}
	if report.Cancelled > 0 {
		extra = append(extra, fmt.Sprintf("%d cancelled", report.Cancelled))
	}
	line := fmt.Sprintf("Transcribed %d of %d %s", report.Succeeded, total, noun)
	if len(extra) > 0 {
		line += " (" + strings.Join(extra, ", ") + ")"
	}
	fmt.Fprintln(w, line)
}

func absolutePaths(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			out[i] = abs
		} else {
			out[i] = p
		}
	}
	return out
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/newthinker/archivist/internal/config"
	"github.com/newthinker/archivist/internal/core"
	"github.com/newthinker/archivist/internal/logger"
	"github.com/newthinker/archivist/internal/metrics"
	"github.com/newthinker/archivist/internal/notifier"
	"github.com/newthinker/archivist/internal/notifier/telegram"
	"github.com/newthinker/archivist/internal/notifier/webhook"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const notifyTimeout = 30 * time.Second

// run is the state shared by one phase invocation
type run struct {
	phase core.Phase
	id    string
	cfg   *config.Config
	log   *zap.Logger
}

func newRun(phase core.Phase) (*run, error) {
	base, err := logger.New(debug)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	id := logger.NewRunID()
	log := logger.ForRun(base, phase, id)

	if cfgFile == "" {
		log.Debug("no config file specified, using defaults and environment")
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return &run{phase: phase, id: id, cfg: cfg, log: log}, nil
}

// signalContext stops the run between files on SIGINT or SIGTERM
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// finish reports a completed phase and turns per-file failures into the
// command's error, so the process exits 1.
func (r *run) finish(ctx context.Context, out io.Writer, summary *core.RunSummary) error {
	defer r.log.Sync()

	printSummary(out, summary)

	r.log.Info("run finished",
		zap.Int("processed", summary.Processed),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Int64("bytes", summary.Bytes),
		zap.Duration("duration", summary.Duration()),
	)

	exportMetrics(r.cfg.Metrics, summary, r.log)
	r.notify(ctx, summary)

	return summary.Err()
}

// abort reports what a run processed before a fatal error, such as an
// interrupt, and returns that error.
func (r *run) abort(ctx context.Context, out io.Writer, summary *core.RunSummary, err error) error {
	if summary == nil || summary.Processed == 0 {
		return err
	}
	r.log.Warn("run stopped early", zap.Error(err))

	// ctx is usually the one that was cancelled
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	r.finish(nctx, out, summary)
	return err
}

func printSummary(out io.Writer, s *core.RunSummary) {
	fmt.Fprintln(out, notifier.Headline(s))
	for _, f := range s.Failures {
		fmt.Fprintf(out, "  FAILED %s: %s\n", f.Path, f.Error)
	}
}

func exportMetrics(cfg config.MetricsConfig, s *core.RunSummary, log *zap.Logger) {
	if !cfg.Enabled {
		return
	}

	reg := metrics.NewRegistry()
	reg.ObserveRun(s)

	if cfg.Textfile != "" {
		path := textfilePath(cfg.Textfile, s.Phase)
		if err := reg.WriteTextfile(path); err != nil {
			log.Warn("writing metrics textfile failed", zap.String("path", path), zap.Error(err))
		}
	}
	if cfg.Pushgateway != "" {
		if err := reg.Push(cfg.Pushgateway, cfg.Job, s.Phase); err != nil {
			log.Warn("pushing metrics failed", zap.String("url", cfg.Pushgateway), zap.Error(err))
		}
	}
}

// textfilePath gives each phase its own file so one phase does not
// overwrite another's series: archivist.prom becomes archivist_verify.prom.
func textfilePath(base string, phase core.Phase) string {
	dir, name := filepath.Split(base)
	stem := strings.TrimSuffix(name, ".prom")
	return filepath.Join(dir, fmt.Sprintf("%s_%s.prom", stem, phase))
}

func (r *run) notify(ctx context.Context, summary *core.RunSummary) {
	reg, err := buildNotifiers(r.cfg.Notify)
	if err != nil {
		r.log.Warn("notifier setup failed", zap.Error(err))
		return
	}
	if reg.Len() == 0 {
		return
	}

	for name, err := range reg.NotifyAll(ctx, summary) {
		r.log.Warn("notification failed", zap.String("notifier", name), zap.Error(err))
	}
}

func buildNotifiers(cfg config.NotifyConfig) (*notifier.Registry, error) {
	reg := notifier.NewRegistry()

	if cfg.Webhook.URL != "" {
		w, err := webhook.New(cfg.Webhook.URL, cfg.Webhook.Headers)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(w); err != nil {
			return nil, err
		}
	}

	if cfg.Telegram.BotToken != "" {
		tg, err := telegram.New(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(tg); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

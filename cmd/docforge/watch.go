package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docforge/internal/async"
	"github.com/joseph-ayodele/docforge/internal/ingest"
)

var (
	watchInbox   string
	watchOutbox  string
	watchWorkers int
	watchNoScan  bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Transform request files dropped into an inbox directory",
	Long: `Watch an inbox for *.json TransformationRequest files and write each
result to <outbox>/<name>.out.json. Files already present are processed on
start unless --no-scan is given.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchInbox, "inbox", "", "inbox directory (overrides INBOX_DIR)")
	watchCmd.Flags().StringVar(&watchOutbox, "outbox", "", "outbox directory (overrides OUTBOX_DIR)")
	watchCmd.Flags().IntVar(&watchWorkers, "workers", 0, "worker count (overrides INGEST_WORKERS)")
	watchCmd.Flags().BoolVar(&watchNoScan, "no-scan", false, "skip files already in the inbox")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ic := a.cfg.Ingest
	if watchInbox != "" {
		ic.InboxDir = watchInbox
	}
	if watchOutbox != "" {
		ic.OutboxDir = watchOutbox
	}
	if watchWorkers > 0 {
		ic.Workers = watchWorkers
	}
	if err := os.MkdirAll(ic.InboxDir, 0o755); err != nil {
		return err
	}

	usecase := ingest.NewUsecase(a.processor, ic.OutboxDir, a.logger)
	queue := async.NewProcessorQueue(usecase, a.logger, async.WithWorkers(ic.Workers))
	defer queue.Shutdown(context.Background())

	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:    []string{ic.InboxDir},
		Debounce: ic.Debounce,
		Logger:   a.logger,
	})
	if err != nil {
		return err
	}

	// The watcher is already running, so files dropped during the sweep are
	// seen twice; the usecase dedups them by content.
	if !watchNoScan {
		_, stats, err := usecase.IngestDirectory(ctx, ic.InboxDir, true)
		if err != nil {
			a.logger.Error("startup sweep stopped", "inbox", ic.InboxDir, "error", err)
		}
		a.logger.Info("startup sweep done", "scanned", stats.Scanned, "matched", stats.Matched,
			"succeeded", stats.Succeeded, "deduplicated", stats.Deduplicated, "failed", stats.Failed)
	}

	a.logger.Info("docforge watching", "inbox", ic.InboxDir, "outbox", ic.OutboxDir, "workers", ic.Workers)
	for {
		select {
		case <-ctx.Done():
			return nil
		case path, ok := <-events:
			if !ok {
				return nil
			}
			if err := queue.Enqueue(ctx, async.Job{Path: path}); err != nil {
				a.logger.Warn("enqueue failed", "path", path, "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			a.logger.Warn("watcher error", "error", err)
		}
	}
}

package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/invoice-cli/internal/ingest"
	"github.com/sells-group/invoice-cli/internal/resilience"
)

var (
	batchFTPInbox    string
	batchRetryFailed bool
)

var batchCmd = &cobra.Command{
	Use:   "batch [files...]",
	Short: "Process multiple invoice documents concurrently",
	Long: "Processes the given files, every file fetched from the FTP inbox when --ftp is set, " +
		"or previously failed documents when --retry-failed is set. Failures are recorded in " +
		"the dead letter directory for later retry.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		dlq, err := resilience.NewQueue(cfg.Batch.DeadLetterDir)
		if err != nil {
			return err
		}

		switch {
		case batchRetryFailed:
			return retryFailedBatch(ctx, env, dlq)
		case batchFTPInbox != "":
			return processFTPBatch(ctx, env, dlq, batchFTPInbox)
		case len(args) == 0:
			return eris.New("no files given and neither --ftp nor --retry-failed set")
		default:
			return processFileBatch(ctx, env, dlq, args)
		}
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFTPInbox, "ftp", "", "FTP inbox URL to fetch invoices from (overrides file args)")
	batchCmd.Flags().BoolVar(&batchRetryFailed, "retry-failed", false, "reprocess documents from the dead letter queue")
	rootCmd.AddCommand(batchCmd)
}

func processFileBatch(ctx context.Context, env *pipelineEnv, dlq *resilience.Queue, paths []string) error {
	zap.L().Info("processing batch",
		zap.Int("files", len(paths)),
		zap.Int("concurrency", cfg.Batch.MaxConcurrentFiles),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Batch.MaxConcurrentFiles)

	var succeeded, failed atomic.Int64

	for _, path := range paths {
		g.Go(func() error {
			if err := processAndSave(gctx, env, path); err != nil {
				failed.Add(1)
				zap.L().Error("processing failed",
					zap.String("file", filepath.Base(path)),
					zap.Error(err),
				)
				if _, dlqErr := dlq.Push(resilience.Entry{
					FileName:   filepath.Base(path),
					SourcePath: path,
					Error:      err.Error(),
					Kind:       resilience.Classify(err),
				}); dlqErr != nil {
					zap.L().Error("dead letter write failed", zap.Error(dlqErr))
				}
				return nil // don't abort batch on individual failure
			}
			succeeded.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return nil
}

func processAndSave(ctx context.Context, env *pipelineEnv, path string) error {
	rec, err := processFile(ctx, env, path)
	if err != nil {
		return err
	}

	id, err := env.Store.SaveInvoice(ctx, rec)
	if err != nil {
		return eris.Wrap(err, "save invoice")
	}

	zap.L().Info("invoice processed",
		zap.String("file", filepath.Base(path)),
		zap.String("id", id),
		zap.Float64("confidence", rec.Confidence),
	)
	return nil
}

// retryFailedBatch replays dead letter entries sequentially. Entries that
// succeed are removed; the rest stay queued.
func retryFailedBatch(ctx context.Context, env *pipelineEnv, dlq *resilience.Queue) error {
	entries, err := dlq.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		zap.L().Info("dead letter queue is empty")
		return nil
	}

	var recovered, stillFailing int
	for _, entry := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		log := zap.L().With(zap.String("file", entry.FileName), zap.String("entry", entry.ID))
		if err := processAndSave(ctx, env, entry.SourcePath); err != nil {
			stillFailing++
			log.Warn("retry failed", zap.Error(err))
			continue
		}

		if err := dlq.Remove(entry.ID); err != nil {
			log.Error("dead letter remove failed", zap.Error(err))
		}
		recovered++
	}

	zap.L().Info("retry batch complete",
		zap.Int("recovered", recovered),
		zap.Int("still_failing", stillFailing),
	)
	return nil
}

// processFTPBatch pulls the inbox into a temp dir and runs the file batch
// over the downloads.
func processFTPBatch(ctx context.Context, env *pipelineEnv, dlq *resilience.Queue, inboxURL string) error {
	inbox := ingest.NewFTPInbox(ingest.FTPOptions{})
	files, err := inbox.Fetch(ctx, inboxURL)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		zap.L().Info("ftp inbox is empty")
		return nil
	}

	dir, err := os.MkdirTemp("", "invoice-inbox-*")
	if err != nil {
		return eris.Wrap(err, "create inbox temp dir")
	}
	defer os.RemoveAll(dir)

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, filepath.Base(f.Name))
		if err := os.WriteFile(path, f.Content, 0o644); err != nil {
			return eris.Wrapf(err, "write %s", path)
		}
		paths = append(paths, path)
	}

	return processFileBatch(ctx, env, dlq, paths)
}

package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-cli/internal/model"
)

var processNoSave bool

var processCmd = &cobra.Command{
	Use:   "process <file>",
	Short: "Extract and validate a single invoice document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		rec, err := processFile(ctx, env, args[0])
		if err != nil {
			return err
		}

		if !processNoSave {
			id, err := env.Store.SaveInvoice(ctx, rec)
			if err != nil {
				return err
			}
			zap.L().Info("invoice saved", zap.String("id", id))
		}

		out, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal record")
		}
		cmd.Println(string(out))
		return nil
	},
}

func init() {
	processCmd.Flags().BoolVar(&processNoSave, "no-save", false, "print the record without storing it")
	rootCmd.AddCommand(processCmd)
}

// processFile validates the file, calls the extraction model, and runs the
// pipeline on the response.
func processFile(ctx context.Context, env *pipelineEnv, path string) (*model.InvoiceRecord, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}

	meta, err := env.Validator.Validate(path, content)
	if err != nil {
		return nil, err
	}

	prompt := cfg.Anthropic.ExtractionPrompt
	if prompt == "" {
		prompt = defaultPrompt()
	}

	callCtx := ctx
	if cfg.Anthropic.TimeoutSecs > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Anthropic.TimeoutSecs)*time.Second)
		defer cancel()
	}

	resp, err := env.Anthropic.Extract(callCtx, extractRequest(prompt, meta, content))
	if err != nil {
		return nil, eris.Wrapf(err, "extract %s", meta.FileName)
	}
	resp.Usage.LogCost(cfg.Anthropic.Model, meta.FileName)

	return env.Pipeline.Process(resp.Text, meta)
}

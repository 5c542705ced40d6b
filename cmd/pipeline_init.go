package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/invoice-cli/internal/ingest"
	"github.com/sells-group/invoice-cli/internal/model"
	"github.com/sells-group/invoice-cli/internal/pipeline"
	"github.com/sells-group/invoice-cli/internal/store"
	anthropicpkg "github.com/sells-group/invoice-cli/pkg/anthropic"
)

// pipelineEnv holds the initialized store, extraction client, and pipeline
// needed by the process/batch/serve commands.
type pipelineEnv struct {
	Store     store.Store
	Pipeline  *pipeline.Pipeline
	Anthropic anthropicpkg.Client
	Validator *ingest.Validator
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "invoices.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initPipeline sets up the store, the Anthropic client, and the extraction
// pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic API key is required (INVOICE_ANTHROPIC_KEY)")
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	rules, err := cfg.Rules()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	return &pipelineEnv{
		Store: st,
		Pipeline: pipeline.New(cfg.Processing.Fields, rules,
			pipeline.WithModelID(cfg.Anthropic.Model)),
		Anthropic: anthropicpkg.NewClient(cfg.Anthropic.Key, cfg.Anthropic.RequestsPerMin, cfg.Anthropic.MaxRetries),
		Validator: ingest.NewValidator(cfg.Ingest.MaxFileSizeMB, cfg.Ingest.Formats),
	}, nil
}

func defaultPrompt() string {
	return pipeline.DefaultExtractionPrompt
}

func extractRequest(prompt string, meta model.FileMetadata, content []byte) anthropicpkg.ExtractRequest {
	var temp *float64
	if cfg.Anthropic.Temperature > 0 {
		t := cfg.Anthropic.Temperature
		temp = &t
	}
	return anthropicpkg.ExtractRequest{
		Model:       cfg.Anthropic.Model,
		MaxTokens:   cfg.Anthropic.MaxTokens,
		Temperature: temp,
		Prompt:      prompt,
		MediaType:   ingest.MediaType(meta.FileType),
		Data:        content,
	}
}

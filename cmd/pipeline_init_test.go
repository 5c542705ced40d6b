package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/invoice-cli/internal/config"
	"github.com/sells-group/invoice-cli/internal/model"
)

func TestPipelineEnv_Close_Nil(t *testing.T) {
	pe := &pipelineEnv{}
	assert.NotPanics(t, func() {
		pe.Close()
	})
}

func TestPipelineEnv_Close_WithStore(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "test_close.db")

	cfg = &config.Config{
		Store: config.StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: dsn,
		},
	}

	st, err := initStore(context.Background())
	require.NoError(t, err)

	pe := &pipelineEnv{Store: st}
	assert.NotPanics(t, func() {
		pe.Close()
	})
}

func TestInitStore_UnsupportedDriver(t *testing.T) {
	cfg = &config.Config{
		Store: config.StoreConfig{Driver: "mysql"},
	}

	st, err := initStore(context.Background())
	assert.Nil(t, st)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}

func TestInitPipeline_RequiresAPIKey(t *testing.T) {
	cfg = &config.Config{
		Store: config.StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: filepath.Join(t.TempDir(), "test_pipe.db"),
		},
	}

	env, err := initPipeline(context.Background())
	assert.Nil(t, env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestInitPipeline_Succeeds(t *testing.T) {
	cfg = &config.Config{
		Store: config.StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: filepath.Join(t.TempDir(), "test_pipe.db"),
		},
		Anthropic: config.AnthropicConfig{
			Key:   "test-key",
			Model: "claude-sonnet-4-5-20250929",
		},
		Processing: config.ProcessingConfig{
			Fields: model.DefaultFieldSets(),
		},
		Ingest: config.IngestConfig{
			MaxFileSizeMB: 50,
			Formats:       []string{".pdf", ".png"},
		},
	}

	env, err := initPipeline(context.Background())
	require.NoError(t, err)
	defer env.Close()

	assert.NotNil(t, env.Store)
	assert.NotNil(t, env.Pipeline)
	assert.NotNil(t, env.Anthropic)
	assert.NotNil(t, env.Validator)
}

func TestExtractRequest(t *testing.T) {
	cfg = &config.Config{
		Anthropic: config.AnthropicConfig{
			Model:       "claude-sonnet-4-5-20250929",
			MaxTokens:   4096,
			Temperature: 0.1,
		},
	}

	meta := model.FileMetadata{FileName: "inv.pdf", FileType: ".pdf"}
	req := extractRequest("extract the invoice", meta, []byte("%PDF-1.4"))

	assert.Equal(t, "claude-sonnet-4-5-20250929", req.Model)
	assert.Equal(t, int64(4096), req.MaxTokens)
	assert.Equal(t, "application/pdf", req.MediaType)
	require.NotNil(t, req.Temperature)
	assert.InDelta(t, 0.1, *req.Temperature, 0.001)
}

func TestExtractRequest_ZeroTemperatureOmitted(t *testing.T) {
	cfg = &config.Config{
		Anthropic: config.AnthropicConfig{Model: "claude-sonnet-4-5-20250929"},
	}

	req := extractRequest("p", model.FileMetadata{FileType: ".png"}, []byte{0x89})
	assert.Nil(t, req.Temperature)
	assert.Equal(t, "image/png", req.MediaType)
}

func TestDefaultPrompt(t *testing.T) {
	assert.NotEmpty(t, defaultPrompt())
	assert.Contains(t, defaultPrompt(), "invoice")
}

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"process", "batch", "serve", "export", "stats", "migrate"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "invoice-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestProcessCommand_Flags(t *testing.T) {
	flag := processCmd.Flags().Lookup("no-save")
	require.NotNil(t, flag, "process command should have --no-save flag")
	assert.Equal(t, "false", flag.DefValue)
}

func TestBatchCommand_Flags(t *testing.T) {
	for _, flagName := range []string{"ftp", "retry-failed"} {
		flag := batchCmd.Flags().Lookup(flagName)
		assert.NotNil(t, flag, "batch should have --%s flag", flagName)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestExportCommand_Flags(t *testing.T) {
	flag := exportCmd.Flags().Lookup("format")
	require.NotNil(t, flag, "export command should have --format flag")
	assert.Equal(t, "xlsx", flag.DefValue)

	for _, flagName := range []string{"vendor", "start", "end", "limit"} {
		assert.NotNil(t, exportCmd.Flags().Lookup(flagName), "export should have --%s flag", flagName)
	}
}

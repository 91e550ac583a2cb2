package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"run", "countries", "load", "runs", "settings", "cleanup"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "rws-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.True(t, rootCmd.SilenceErrors)
	assert.True(t, rootCmd.SilenceUsage)
}

func TestRunCommand_Flags(t *testing.T) {
	for _, name := range []string{
		"country", "method", "stations", "countries", "zones", "crop-raster",
		"zone-raster", "station-column", "use-zone-raster", "radius",
		"dcz-threshold", "rws-threshold", "output", "xlsx", "metrics-textfile",
		"cleanup", "reuse",
	} {
		assert.NotNil(t, runCmd.Flags().Lookup(name), "run command should have --%s", name)
	}

	cleanup := runCmd.Flags().Lookup("cleanup")
	require.NotNil(t, cleanup)
	assert.Equal(t, "none", cleanup.DefValue)
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"list", "show", "stats"} {
		assert.True(t, names[name], "expected runs subcommand %q not found", name)
	}

	limit := runsListCmd.Flags().Lookup("limit")
	require.NotNil(t, limit)
	assert.Equal(t, "50", limit.DefValue)

	since := runsStatsCmd.Flags().Lookup("since")
	require.NotNil(t, since)
	assert.Equal(t, "168h0m0s", since.DefValue)
}

func TestSettingsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range settingsCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["show"])
	assert.True(t, names["clear"])
}

func TestCleanupCommand_Flags(t *testing.T) {
	mode := cleanupCmd.Flags().Lookup("mode")
	require.NotNil(t, mode)
	assert.Equal(t, "temp", mode.DefValue)
	assert.NotNil(t, cleanupCmd.Flags().Lookup("dry-run"))
}

func TestLoadCommand_Flags(t *testing.T) {
	assert.NotNil(t, loadCmd.Flags().Lookup("zone-raster"))
	force := loadCmd.Flags().Lookup("force")
	require.NotNil(t, force)
	assert.Equal(t, "false", force.DefValue)
}

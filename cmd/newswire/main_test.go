package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/newswire/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func runApp(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	full := append([]string{"newswire", "--log-level", "error", "--data-dir", dataDir}, args...)
	err := app.Run(full)
	return out.String(), err
}

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("NEWSWIRE_CONFIG", "")
	t.Setenv("NEWSWIRE_DATA_DIR", "")
}

func TestKeywordCommands(t *testing.T) {
	isolateEnv(t)
	dataDir := filepath.Join(t.TempDir(), "data")

	out, err := runApp(t, dataDir, "keyword", "add", "Quantum Computing")
	require.NoError(t, err)
	assert.Contains(t, out, "ACTIVE")
	assert.Contains(t, out, "Quantum Computing")

	_, err = runApp(t, dataDir, "keyword", "add", "--status", "paused", "Fusion")
	require.NoError(t, err)

	_, err = runApp(t, dataDir, "keyword", "add", "quantum computing")
	assert.Error(t, err)

	out, err = runApp(t, dataDir, "keyword", "pause", "quantum computing")
	require.NoError(t, err)
	assert.Contains(t, out, "PAUSED")

	out, err = runApp(t, dataDir, "keyword", "list", "--status", "PAUSED")
	require.NoError(t, err)
	assert.Contains(t, out, "Quantum Computing")
	assert.Contains(t, out, "Fusion")

	out, err = runApp(t, dataDir, "keyword", "activate", "Fusion")
	require.NoError(t, err)
	assert.Contains(t, out, "ACTIVE")

	out, err = runApp(t, dataDir, "keyword", "delete", "Fusion")
	require.NoError(t, err)
	assert.Contains(t, out, `Deleted keyword "Fusion"`)

	out, err = runApp(t, dataDir, "keyword", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "Fusion")

	_, err = runApp(t, dataDir, "keyword", "add", "--status", "DORMANT", "Robots")
	assert.ErrorIs(t, err, core.ErrInvalidStatus)
}

func TestStatusCommand(t *testing.T) {
	isolateEnv(t)
	out, err := runApp(t, filepath.Join(t.TempDir(), "data"), "status")
	require.NoError(t, err)
	assert.Contains(t, out, "0 total, 0 today")
	assert.Contains(t, out, "Last run:        never")
}

func TestSearchCommand_RequiresQuery(t *testing.T) {
	isolateEnv(t)
	_, err := runApp(t, filepath.Join(t.TempDir(), "data"), "search")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query is required")
}

func TestConfigShowCommand(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "newswire.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("index:\n  min_score: 65\n"), 0o600))

	out, err := runApp(t, filepath.Join(dir, "data"), "--config", cfgPath, "config", "show", "--format", "toml")
	require.NoError(t, err)
	assert.Contains(t, out, "min_score = 65")
	assert.Contains(t, out, "data_dir = ")

	_, err = runApp(t, filepath.Join(dir, "data"), "config", "show", "--format", "ini")
	assert.Error(t, err)
}

func TestPrintEvent(t *testing.T) {
	keyword := "AI"
	count := 3

	var buf bytes.Buffer
	printEvent(&buf, core.ProgressEvent{
		Type:       core.EventKeywordComplete,
		Keyword:    &keyword,
		Message:    "saved new articles",
		Percentage: 50,
		Count:      &count,
	})
	assert.Equal(t, "[ 50%] KEYWORD_COMPLETE AI: saved new articles (3)\n", buf.String())

	buf.Reset()
	printEvent(&buf, core.ProgressEvent{Type: core.EventStarted, Message: "run in progress", Percentage: core.PercentageUnknown})
	assert.Equal(t, "[  ?%] STARTED          run in progress\n", buf.String())
}

func TestSetupLogger(t *testing.T) {
	newTestApp := func() *cli.App {
		return &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Value: "info"},
				&cli.StringFlag{Name: "log-format", Value: "text"},
			},
			Before: setupLogger,
			Action: func(c *cli.Context) error { return nil },
		}
	}

	t.Run("valid log levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "WaRn", "ERROR"} {
			t.Run(level, func(t *testing.T) {
				require.NoError(t, newTestApp().Run([]string{"test", "--log-level", level}))
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		err := newTestApp().Run([]string{"test", "--log-level", "loud"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("log formats", func(t *testing.T) {
		require.NoError(t, newTestApp().Run([]string{"test", "--log-format", "json"}))
		require.NoError(t, newTestApp().Run([]string{"test", "-l", "debug", "--log-format", "TEXT"}))

		err := newTestApp().Run([]string{"test", "--log-format", "xml"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log format")
	})
}

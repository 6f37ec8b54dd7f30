package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbviz/dbviz/internal/version"
)

// isolate keeps the developer's own config file and DBVIZ_* environment out
// of the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "DBVIZ_") {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersionCommand(t *testing.T) {
	code, out, _ := run(t, "version")

	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Version:    "+version.Version)
	assert.Contains(t, out, "Git Commit:")
	assert.Contains(t, out, "Go Version:")
}

func TestVersionCommand_Short(t *testing.T) {
	code, out, _ := run(t, "version", "--short")

	assert.Equal(t, 0, code)
	assert.Equal(t, version.Get().String()+"\n", out)
}

func TestUnknownCommand(t *testing.T) {
	code, _, errOut := run(t, "frobnicate")

	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, `unknown command "frobnicate"`)
}

func TestQueryCommand_RequiresSQL(t *testing.T) {
	code, _, errOut := run(t, "query")

	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "accepts 1 arg(s)")
}

func TestServe_InvalidDriver(t *testing.T) {
	isolate(t)

	code, _, errOut := run(t, "serve", "--driver", "mysql")

	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "invalid config")
	assert.Contains(t, errOut, "mysql")
}

func TestServe_MissingExplicitConfig(t *testing.T) {
	isolate(t)

	code, _, errOut := run(t, "serve", "--config", filepath.Join(t.TempDir(), "absent.yaml"))

	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "read config")
}

func TestSchema_UnreachableDatabase(t *testing.T) {
	isolate(t)

	code, out, errOut := run(t, "schema",
		"--dsn", "host=127.0.0.1 port=1 user=nobody dbname=nothing sslmode=disable connect_timeout=2")

	assert.Equal(t, 1, code)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "failed to ping database")
}

func TestLoadConfig_FlagOverridesFile(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "dbviz.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\nlog:\n  level: warn\n"), 0o600))

	cmd := newServeCmd(nil)
	require.NoError(t, cmd.ParseFlags([]string{"--port", "9100"}))

	var logs bytes.Buffer
	cfg, log, err := loadConfig(cmd, path, &logs)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Log.Level)

	log.Info().Msg("filtered")
	log.Warn().Msg("kept")
	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(logs.Bytes()), &line))
	assert.Equal(t, "kept", line["message"])
}

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/newthinker/archivist/internal/config"
	"github.com/newthinker/archivist/internal/core"
	"github.com/newthinker/archivist/internal/sidecar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func resetFlags() {
	cfgFile, debug = "", false
	archiveFiles, archiveBucket, archiveDryRun = "", "", false
	verifyDir, verifyOutfile, verifyRemote = "", "", false
	cleanFile, cleanInteractive, cleanRemoveSidecar, cleanDryRun, cleanForcePrompt = "", false, false, false, false
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, storeDir string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := fmt.Sprintf("storage:\n  type: localfs\n  path: %q\n", storeDir)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "archivist dev")
}

func TestLifecycle(t *testing.T) {
	cfg := writeConfig(t, t.TempDir())
	data := t.TempDir()
	keep := filepath.Join(data, "keep.log")
	drop := filepath.Join(data, "drop.log")
	require.NoError(t, os.WriteFile(keep, []byte("will change"), 0644))
	require.NoError(t, os.WriteFile(drop, []byte("stays the same"), 0644))

	out, err := execute(t, "", "archive", "-c", cfg, "-f", data)
	require.NoError(t, err, out)
	assert.FileExists(t, sidecar.PathFor(keep))
	assert.FileExists(t, sidecar.PathFor(drop))

	require.NoError(t, os.WriteFile(keep, []byte("changed after archiving"), 0644))

	reportPath := filepath.Join(t.TempDir(), "report.tsv")
	out, err = execute(t, "", "verify", "-c", cfg, "--dir", data, "-o", reportPath)
	assert.True(t, errors.Is(err, core.ErrPartialFailure), "modified file must fail the run: %v", err)

	rows, readErr := os.ReadFile(reportPath)
	require.NoError(t, readErr, out)
	assert.Contains(t, string(rows), drop+"\tTrue\n")
	assert.Contains(t, string(rows), keep+"\tFalse\n")

	out, err = execute(t, "", "clean", "-c", cfg, "-f", reportPath)
	require.NoError(t, err, out)
	assert.NoFileExists(t, drop)
	assert.FileExists(t, keep)
	assert.FileExists(t, sidecar.PathFor(drop))
	assert.Contains(t, out, "Verification of file "+keep+" failed, skipping.")
}

func TestVerify_PrintsWithoutOutfile(t *testing.T) {
	cfg := writeConfig(t, t.TempDir())
	data := t.TempDir()
	path := filepath.Join(data, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0644))

	_, err := execute(t, "", "archive", "-c", cfg, "-f", path)
	require.NoError(t, err)

	out, err := execute(t, "", "verify", "-c", cfg, "--dir", data, "--remote")
	require.NoError(t, err)
	assert.Contains(t, out, "verified  "+path)
}

func TestClean_InteractiveNeedsTerminal(t *testing.T) {
	reportPath := filepath.Join(t.TempDir(), "report.tsv")
	require.NoError(t, os.WriteFile(reportPath, nil, 0644))

	orig := stdinIsTerminal
	defer func() { stdinIsTerminal = orig }()
	stdinIsTerminal = func() bool { return false }

	_, err := execute(t, "", "clean", "-f", reportPath, "-i")
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}

func TestClean_InteractiveForcePrompt(t *testing.T) {
	data := t.TempDir()
	yes := filepath.Join(data, "yes")
	no := filepath.Join(data, "no")
	require.NoError(t, os.WriteFile(yes, []byte("y"), 0644))
	require.NoError(t, os.WriteFile(no, []byte("n"), 0644))

	reportPath := filepath.Join(t.TempDir(), "report.tsv")
	require.NoError(t, os.WriteFile(reportPath, []byte(yes+"\tTrue\n"+no+"\tTrue\n"), 0644))

	out, err := execute(t, "y\nn\n", "clean", "-f", reportPath, "-i", "--force-prompt")
	require.NoError(t, err, out)
	assert.NoFileExists(t, yes)
	assert.FileExists(t, no)
}

func TestArchive_RequiresBucket(t *testing.T) {
	data := t.TempDir()

	_, err := execute(t, "", "archive", "-f", data)
	assert.True(t, errors.Is(err, core.ErrConfigMissing))
}

func TestTextfilePath(t *testing.T) {
	assert.Equal(t, "/var/lib/node/archivist_verify.prom",
		textfilePath("/var/lib/node/archivist.prom", core.PhaseVerify))
	assert.Equal(t, "metrics_clean.prom", textfilePath("metrics", core.PhaseClean))
}

func TestExportMetrics_WritesTextfile(t *testing.T) {
	dir := t.TempDir()
	s := core.NewRunSummary(core.PhaseArchive, "run")
	s.Succeed(5)
	s.Finish()

	exportMetrics(config.MetricsConfig{
		Enabled:  true,
		Textfile: filepath.Join(dir, "archivist.prom"),
	}, s, zap.NewNop())

	assert.FileExists(t, filepath.Join(dir, "archivist_archive.prom"))
}

func TestBuildNotifiers(t *testing.T) {
	reg, err := buildNotifiers(config.NotifyConfig{})
	require.NoError(t, err)
	assert.Equal(t, 0, reg.Len())

	reg, err = buildNotifiers(config.NotifyConfig{
		Webhook:  config.WebhookConfig{URL: "http://example.com/hook"},
		Telegram: config.TelegramConfig{BotToken: "123:abc", ChatID: "42"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())

	_, err = buildNotifiers(config.NotifyConfig{
		Telegram: config.TelegramConfig{BotToken: "123:abc"},
	})
	assert.Error(t, err)
}

func TestAbort_ReportsPartialRun(t *testing.T) {
	var hooks atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hooks.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.Metrics = config.MetricsConfig{Enabled: true, Textfile: filepath.Join(dir, "archivist.prom")}
	cfg.Notify.Webhook.URL = srv.URL
	r := &run{phase: core.PhaseClean, id: "run-1", cfg: cfg, log: zap.NewNop()}

	s := core.NewRunSummary(core.PhaseClean, "run-1")
	s.Succeed(10)
	s.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := r.abort(ctx, &out, s, context.Canceled)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Contains(t, out.String(), "1 succeeded")
	assert.FileExists(t, filepath.Join(dir, "archivist_clean.prom"))
	assert.Equal(t, int32(1), hooks.Load(), "interrupted run must still notify")
}

func TestAbort_NothingProcessed(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.Metrics = config.MetricsConfig{Enabled: true, Textfile: filepath.Join(dir, "archivist.prom")}
	r := &run{phase: core.PhaseArchive, id: "run-2", cfg: cfg, log: zap.NewNop()}

	var out bytes.Buffer
	err := r.abort(context.Background(), &out, core.NewRunSummary(core.PhaseArchive, "run-2"), core.ErrPathNotFound)
	assert.True(t, errors.Is(err, core.ErrPathNotFound))
	assert.Empty(t, out.String())
	assert.NoFileExists(t, filepath.Join(dir, "archivist_archive.prom"))
}

func TestArchive_EnvConfigWithoutFile(t *testing.T) {
	store := t.TempDir()
	t.Setenv("ARCHIVIST_STORAGE_TYPE", "localfs")
	t.Setenv("ARCHIVIST_STORAGE_PATH", store)

	data := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(data, "a.log"), []byte("a"), 0644))

	out, err := execute(t, "", "archive", "-f", data)
	require.NoError(t, err, out)
	assert.FileExists(t, sidecar.PathFor(filepath.Join(data, "a.log")))
}

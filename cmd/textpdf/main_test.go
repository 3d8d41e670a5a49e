package main

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"textpdf/internal/config"
)

func TestStartServer_GracefulShutdownOnSignal(t *testing.T) {
	app := fiber.New()
	var cfg config.Config
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = ":0"

	idleConnsClosed := make(chan struct{})
	go startServer(app, cfg, idleConnsClosed)

	time.Sleep(100 * time.Millisecond)
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("failed to send SIGTERM: %v", err)
	}

	select {
	case <-idleConnsClosed:
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for graceful shutdown")
	}
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "cfg.yaml")
	err := os.WriteFile(cfgPath, []byte(`
server:
  host: "127.0.0.1"
  port: ":0"
limits:
  max_text_bytes: 65536
  max_pdf_bytes: 1048576
logger:
  file: "`+filepath.Join(dir, "textpdf.log")+`"
  level: "info"
  max_size_mb: 1
  max_backups: 1
  max_age_days: 1
cache:
  pdf_cache_enabled: false
  redis_host: ""
pdf:
  timeout_secs: 1
browser:
  cache_dir: "`+filepath.Join(dir, "browser")+`"
  user_data_dir: "`+filepath.Join(dir, "profiles")+`"
  prewarm: true
`), 0o644)
	if err != nil {
		t.Fatalf("write cfg: %v", err)
	}
	return cfgPath
}

func TestRun_UsesConfigAndShutsDown(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeConfig(t))
	t.Setenv("CHROME_BIN", "/bin/true")

	done := make(chan error, 1)
	go func() {
		done <- run(nil)
	}()

	time.Sleep(200 * time.Millisecond)
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("signal run: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for run to exit")
	}
}

func TestRun_ProvisionModeWithOverride(t *testing.T) {
	t.Setenv("CHROME_BIN", "/bin/true")
	if err := run([]string{"--provision", "--config", writeConfig(t)}); err != nil {
		t.Fatalf("provision with override should succeed: %v", err)
	}
}

func TestRun_UnknownFlag(t *testing.T) {
	if err := run([]string{"--no-such-flag"}); err == nil {
		t.Fatalf("expected flag parse error")
	}
}

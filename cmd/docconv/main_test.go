package main

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	u "docconv/internal/utils"
)

func TestStartServer_GracefulShutdownOnSignal(t *testing.T) {
	app := fiber.New()
	cfg := u.DefaultConfig()
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

func TestMain_UsesConfigAndShutsDown(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "cfg.yaml")
	err := os.WriteFile(cfgPath, []byte(`
server:
  host: "127.0.0.1"
  port: ":0"
limits:
  max_upload_bytes: 1048576
  max_files: 5
logger:
  file: "`+filepath.Join(dir, "docconv.log")+`"
  level: "info"
  max_size_mb: 1
  max_backups: 1
  max_age_days: 1
cache:
  result_cache_enabled: false
convert:
  scratch_dir: "`+dir+`"
`), 0o644)
	if err != nil {
		t.Fatalf("write cfg: %v", err)
	}
	t.Setenv("CONFIG_PATH", cfgPath)

	done := make(chan struct{})
	go func() {
		main()
		close(done)
	}()

	time.Sleep(200 * time.Millisecond)
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("signal main: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for main to exit")
	}

	if !u.TokensReady() {
		t.Fatalf("expected token store to be marked ready when disabled")
	}
	if u.GetConfig().Limits.MaxFiles != 5 {
		t.Fatalf("expected config to be loaded from CONFIG_PATH")
	}
}

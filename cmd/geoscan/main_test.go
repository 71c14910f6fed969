package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"geoscan/pkg/config"
	"geoscan/pkg/region"
)

func TestRun(t *testing.T) {
	dir := t.TempDir()
	path := func(name string) string { return filepath.ToSlash(filepath.Join(dir, name)) }

	tempConfig := `
server:
    address: localhost:0  # 0 lets OS choose free port
log:
    server:
        path: "` + path("logs/server.log") + `"
        level: "debug"
    events:
        path: "` + path("logs/events.log") + `"
db:
    path: "` + path("data/test.db") + `"
radio:
    provider: mock
scan_group:
    period: 1s
`
	cfgPath := filepath.Join(dir, "geoscan.yaml")
	if err := os.WriteFile(cfgPath, []byte(tempConfig), 0o644); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}

	// Create a context that cancels quickly to verify startup sequence
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if err := run(ctx, cfgPath); err != nil {
		t.Fatalf("run() failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "data", "test.db")); err != nil {
		t.Errorf("database was not created: %v", err)
	}
}

func TestRun_UnknownRegion(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "geoscan.yaml")
	tempConfig := "lorawan:\n    region: AS923\ndb:\n    path: \"" + filepath.ToSlash(filepath.Join(dir, "test.db")) + "\"\n" +
		"log:\n    server:\n        path: \"" + filepath.ToSlash(filepath.Join(dir, "server.log")) + "\"\n" +
		"    events:\n        path: \"" + filepath.ToSlash(filepath.Join(dir, "events.log")) + "\"\n"
	if err := os.WriteFile(cfgPath, []byte(tempConfig), 0o644); err != nil {
		t.Fatal(err)
	}

	err := run(context.Background(), cfgPath)
	if err == nil || !strings.Contains(err.Error(), "region") {
		t.Errorf("expected region error, got %v", err)
	}
}

func TestInitRadio(t *testing.T) {
	cfg := config.DefaultConfig()

	r, recoverFn, err := initRadio(cfg)
	if err != nil || r == nil || recoverFn == nil {
		t.Fatalf("initRadio(mock) = %v, %v", r, err)
	}
	if err := recoverFn(context.Background()); err != nil {
		t.Errorf("recover on healthy radio: %v", err)
	}

	cfg.Radio.Provider = "lr1110"
	if _, _, err := initRadio(cfg); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestLogRegionProfile(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	p, err := region.Lookup("eu868")
	if err != nil {
		t.Fatal(err)
	}
	logRegionProfile(p)

	out := buf.String()
	for _, want := range []string{"region=EU868", "nb_trans=1", "adr_custom_list=\"[5 5 5 5 5 5 5 5 5 4 4 4 4 4 3 3]\""} {
		if !strings.Contains(out, want) {
			t.Errorf("log %q missing %q", out, want)
		}
	}
}

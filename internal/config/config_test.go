package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"AGENTPLAN_WORKSPACE", "AGENTPLAN_ADDR", "AGENTPLAN_LOG_LEVEL",
		"AGENTPLAN_LOG_FORMAT", "AGENTPLAN_AUDIT_DB",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := Config{
		Workspace: "~/.agentplan",
		Addr:      "127.0.0.1:8787",
		LogLevel:  "info",
		LogFormat: "text",
	}
	if *cfg != want {
		t.Fatalf("expected %+v, got %+v", want, *cfg)
	}
}

func TestLoadTreatsBlankAsUnset(t *testing.T) {
	t.Setenv("AGENTPLAN_ADDR", "   ")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != "127.0.0.1:8787" {
		t.Fatalf("expected default addr, got %q", cfg.Addr)
	}
}

func TestLoadLowercasesLevel(t *testing.T) {
	t.Setenv("AGENTPLAN_LOG_LEVEL", "WARN")
	t.Setenv("AGENTPLAN_LOG_FORMAT", "JSON")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "warn" || cfg.LogFormat != "json" {
		t.Fatalf("expected lower-cased values, got %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AGENTPLAN_WORKSPACE", "/tmp/ws")
	t.Setenv("AGENTPLAN_ADDR", "0.0.0.0:9000")
	t.Setenv("AGENTPLAN_LOG_LEVEL", "debug")
	t.Setenv("AGENTPLAN_LOG_FORMAT", "json")
	t.Setenv("AGENTPLAN_AUDIT_DB", "/tmp/audit.sqlite")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Workspace != "/tmp/ws" || cfg.Addr != "0.0.0.0:9000" || cfg.LogFormat != "json" || cfg.AuditDB != "/tmp/audit.sqlite" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"empty addr", Config{Workspace: "ws", LogLevel: "info", LogFormat: "text"}, "AGENTPLAN_ADDR"},
		{"empty workspace", Config{Addr: ":1", LogLevel: "info", LogFormat: "text"}, "AGENTPLAN_WORKSPACE"},
		{"bad level", Config{Workspace: "ws", Addr: ":1", LogLevel: "loud", LogFormat: "text"}, "AGENTPLAN_LOG_LEVEL"},
		{"bad format", Config{Workspace: "ws", Addr: ":1", LogLevel: "info", LogFormat: "xml"}, "AGENTPLAN_LOG_FORMAT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %s, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("AGENTPLAN_ADDR=127.0.0.1:9999\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(prev) })
	t.Setenv("AGENTPLAN_ADDR", "")
	os.Unsetenv("AGENTPLAN_ADDR")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9999" {
		t.Fatalf("expected addr from .env, got %q", cfg.Addr)
	}
}

func TestLoadAppliesOverridesBeforeValidate(t *testing.T) {
	t.Setenv("AGENTPLAN_WORKSPACE", "")
	t.Setenv("AGENTPLAN_LOG_LEVEL", "chatty")

	cfg, err := Load(func(cfg *Config) {
		cfg.Workspace = "/tmp/flag-ws"
		cfg.LogLevel = "debug"
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Workspace != "/tmp/flag-ws" || cfg.LogLevel != "debug" {
		t.Fatalf("expected overrides to win, got %+v", cfg)
	}

	_, err = Load(func(cfg *Config) { cfg.LogFormat = "xml" })
	if err == nil || !strings.Contains(err.Error(), "AGENTPLAN_LOG_FORMAT") {
		t.Fatalf("expected overridden format to be validated, got %v", err)
	}
}

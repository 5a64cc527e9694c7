package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != defaultPort {
		t.Errorf("expected default port %s, got %s", defaultPort, cfg.Server.Port)
	}
	if cfg.Storage.Backend != BackendMemory {
		t.Errorf("expected memory backend, got %s", cfg.Storage.Backend)
	}
	if cfg.Registry.Debounce != 500*time.Millisecond {
		t.Errorf("expected 500ms debounce, got %s", cfg.Registry.Debounce)
	}
	if cfg.Registry.Latency != 800*time.Millisecond {
		t.Errorf("expected 800ms latency, got %s", cfg.Registry.Latency)
	}
	if cfg.Pinning.GatewayURL != "https://ipfs.io/ipfs/" {
		t.Errorf("unexpected gateway %s", cfg.Pinning.GatewayURL)
	}
	if cfg.Payments.SimulatedDelay != 3*time.Second {
		t.Errorf("unexpected payment delay %s", cfg.Payments.SimulatedDelay)
	}
}

func TestLoadOverridesFromEnvMap(t *testing.T) {
	env := map[string]string{
		"ONCLICK_SERVER_PORT":      "9090",
		"ONCLICK_SERVER_BASE_URL":  "https://onclick.example/",
		"ONCLICK_STORAGE_BACKEND":  "SQLITE",
		"ONCLICK_REGISTRY_LATENCY": "10ms",
		"ONCLICK_SESSION_SECURE":   "yes",
	}
	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("port = %s", cfg.Server.Port)
	}
	if cfg.Server.BaseURL != "https://onclick.example" {
		t.Errorf("base url = %s", cfg.Server.BaseURL)
	}
	if cfg.Storage.Backend != BackendSQLite || cfg.Storage.DSN != "onclick.db" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Registry.Latency != 10*time.Millisecond {
		t.Errorf("latency = %s", cfg.Registry.Latency)
	}
	if !cfg.Session.Secure {
		t.Errorf("expected secure cookie")
	}
}

func TestLoadReadsDotEnvWithLowestPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "ONCLICK_SERVER_PORT=7070\nONCLICK_EVENTS_PROJECT_ID=\"onclick-dev\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}

	cfg, err := Load(context.Background(),
		WithEnvFile(path),
		WithoutSystemEnv(),
		WithEnvMap(map[string]string{"ONCLICK_SERVER_PORT": "6060"}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "6060" {
		t.Errorf("expected env map to win, got %s", cfg.Server.Port)
	}
	if cfg.Events.ProjectID != "onclick-dev" {
		t.Errorf("expected project from .env, got %s", cfg.Events.ProjectID)
	}
	if cfg.Storage.ProjectID != "onclick-dev" {
		t.Errorf("expected firestore project fallback, got %s", cfg.Storage.ProjectID)
	}
}

func TestLoadValidation(t *testing.T) {
	env := map[string]string{
		"ONCLICK_STORAGE_BACKEND": "postgres",
		"ONCLICK_SERVER_BASE_URL": "onclick.example",
	}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	fields := vErr.Fields()
	want := map[string]bool{"Server.BaseURL": true, "Storage.DSN": true}
	for _, f := range fields {
		delete(want, f)
	}
	if len(want) > 0 {
		t.Fatalf("missing fields in %v", fields)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	for _, name := range []string{"baemin", "coupangeats", "yogiyo"} {
		p, ok := cfg.Platforms[name]
		if !ok {
			t.Fatalf("expected platform %q in default config", name)
		}
		if p.ReviewURL == "" {
			t.Errorf("%s: expected review_url", name)
		}
		if p.ActiveColor == "" {
			t.Errorf("%s: expected active_star_color", name)
		}
		if p.Selectors.Item == "" {
			t.Errorf("%s: expected item selector", name)
		}
	}

	yogiyo := cfg.Platforms["yogiyo"]
	if !yogiyo.HasSubRatings {
		t.Error("expected yogiyo to have sub-ratings")
	}
	if yogiyo.StarWidthPx != 14 {
		t.Errorf("expected yogiyo star_width_px 14, got %v", yogiyo.StarWidthPx)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
	if cfg.Replies.Provider != "template" {
		t.Errorf("expected template provider, got %q", cfg.Replies.Provider)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
replies:
  provider: ollama
server:
  port: 9000
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Replies.Provider != "ollama" {
		t.Errorf("expected provider 'ollama', got %q", cfg.Replies.Provider)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Replies.OllamaURL != "http://localhost:11434" {
		t.Errorf("expected default ollama_url, got %q", cfg.Replies.OllamaURL)
	}
	if !cfg.Browser.Headless {
		t.Error("expected headless default true")
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if len(cfg.Platforms) != 3 {
		t.Errorf("expected 3 platforms, got %d", len(cfg.Platforms))
	}
}

func TestGetPlatform(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if _, err := cfg.GetPlatform("Baemin"); err != nil {
		t.Errorf("expected case-insensitive lookup, got %v", err)
	}
	if _, err := cfg.GetPlatform("doordash"); err == nil {
		t.Error("expected error for unknown platform")
	}
}

func TestReviewPageURL(t *testing.T) {
	p := Platform{ReviewURL: "https://ceo.example.com/reviews?store={store}"}
	got := p.ReviewPageURL("12345")
	want := "https://ceo.example.com/reviews?store=12345"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	if cfg.GetDataDir() == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
}

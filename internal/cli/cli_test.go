package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fpang/chroma-restore/internal/chat"
	"github.com/fpang/chroma-restore/internal/config"
)

func TestPromptForHint(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"sky is blue\n", "sky is blue"},
		{"  padded  \n", "padded"},
		{"\n", ""},
		{"", ""},
		{"no newline", "no newline"},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		if got := PromptForHint(strings.NewReader(tt.in), &out); got != tt.want {
			t.Errorf("PromptForHint(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if !strings.Contains(out.String(), "Hint") {
			t.Errorf("prompt not written: %q", out.String())
		}
	}
}

func TestResolveImagePath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "photo.jpg")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ResolveImagePath(file)
	if err != nil || got != file {
		t.Errorf("ResolveImagePath(file) = %q, %v", got, err)
	}
	if _, err := ResolveImagePath(dir); err == nil {
		t.Error("directory should be rejected")
	}
	if _, err := ResolveImagePath(filepath.Join(dir, "missing.jpg")); err == nil {
		t.Error("missing file should be rejected")
	}
}

func TestInitColorizerWithoutKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("HOME", t.TempDir())

	cfg := &config.Config{Gemini: config.GeminiConfig{Model: "m", Transport: config.TransportREST}}
	c, err := InitColorizer(context.Background(), cfg, false)
	if err != nil {
		t.Fatalf("missing key should not be fatal: %v", err)
	}
	if err := c.Preflight(); !errors.Is(err, chat.ErrMissingAPIKey) {
		t.Errorf("Preflight() = %v", err)
	}
}

func TestInitColorizerREST(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg := &config.Config{Gemini: config.GeminiConfig{
		Model:     chat.ModelGemini25FlashImage,
		Transport: config.TransportREST,
		BaseURL:   "http://127.0.0.1:1",
		Timeout:   time.Second,
	}}
	c, err := InitColorizer(context.Background(), cfg, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Preflight(); err != nil {
		t.Errorf("Preflight() = %v", err)
	}
	if c.Model() != chat.ModelGemini25FlashImage {
		t.Errorf("Model() = %q", c.Model())
	}
}

func TestFormatDurationShort(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{12 * time.Second, "0:12"},
		{75 * time.Second, "1:15"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
	}
	for _, tt := range tests {
		if got := FormatDurationShort(tt.d); got != tt.want {
			t.Errorf("FormatDurationShort(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Desarso/datarex/vision"
)

func TestRootHelpIncludesSubcommands(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--help"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute help: %v", err)
	}
	for _, sub := range []string{"serve", "analyze", "providers"} {
		if !strings.Contains(out.String(), sub) {
			t.Fatalf("missing subcommand %q in output: %s", sub, out.String())
		}
	}
}

func setupEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("GEMINI_API_KEY", "g")
	t.Setenv("GIGA_API_KEY", "k")
	t.Setenv("DEFAULT_PROVIDER", "gigachat")
	t.Setenv("VISION_PROVIDER", "gemini")
	t.Setenv("DATABASE_URL", "bolt://"+filepath.Join(dir, "threads.db"))
}

func TestProvidersCommand(t *testing.T) {
	setupEnv(t)
	cmd := newRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"providers"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute providers: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "* gigachat") || !strings.Contains(out, "  gemini") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestAnalyzeCommand_RequiresImage(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"analyze"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected argument error")
	}
}

func TestAnalyzeCommand_UnsupportedFormat(t *testing.T) {
	setupEnv(t)
	cmd := newRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"analyze", "animation.gif"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute analyze: %v", err)
	}
	var result vision.AnalysisResult
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if result.Status != vision.StatusError || result.SupportedFormats == "" {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestProvidersCommand_DatabaseFlagOverride(t *testing.T) {
	setupEnv(t)
	opts := &cliOptions{databaseURL: "sqlite://other.db", provider: "gemini"}
	cfg, err := loadConfig(opts)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DatabaseURL != "sqlite://other.db" || cfg.DefaultProvider != "gemini" {
		t.Errorf("flags not applied: %+v", cfg)
	}
}

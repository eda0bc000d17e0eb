package datarex

import (
	"errors"
	"testing"
	"time"

	"github.com/Desarso/datarex/models"
	"github.com/Desarso/datarex/models/gemini"
	"github.com/Desarso/datarex/models/gigachat"
	"github.com/Desarso/datarex/models/yandexgpt"
)

func TestLoadConfig_ReadsEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DEFAULT_PROVIDER", "yandexgpt")
	t.Setenv("DATABASE_URL", "bolt://threads.db")
	t.Setenv("MAX_CONTEXT_TOKENS", "4000")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "5")
	t.Setenv("YANDEX_API_KEY", "ya-key")
	t.Setenv("YANDEX_FOLDER_ID", "folder")
	t.Setenv("YANDEX_TEMPERATURE", "0.2")
	t.Setenv("GIGA_API_KEY", "giga-key")
	t.Setenv("GIGA_VERIFY_SSL", "true")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DefaultProvider != yandexgpt.ProviderName || cfg.DatabaseURL != "bolt://threads.db" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.MaxContextTokens != 4000 || cfg.RequestTimeout != 5*time.Second {
		t.Errorf("numeric settings not parsed: %d %v", cfg.MaxContextTokens, cfg.RequestTimeout)
	}
	if *cfg.Yandex.Defaults.Temperature != 0.2 || *cfg.Yandex.Defaults.TopP != *yandexgpt.DefaultParams().TopP {
		t.Errorf("unexpected yandex defaults %+v", cfg.Yandex.Defaults)
	}
	if cfg.YandexVision.APIKey != "ya-key" {
		t.Errorf("vision key should fall back to the YandexGPT key, got %q", cfg.YandexVision.APIKey)
	}
	if cfg.GigaChat.SkipTLSVerify {
		t.Error("GIGA_VERIFY_SSL=true should keep TLS verification on")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config: %v", err)
	}
}

func TestLoadConfig_InvalidNumber(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MAX_FILE_SIZE_MB", "lots")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnabledProviders(t *testing.T) {
	cfg := NewConfig().
		WithYandex(yandexgpt.Config{APIKey: "k"}, yandexgpt.VisionConfig{}).
		WithGemini(gemini.Config{APIKey: "g"})

	got := cfg.EnabledProviders()
	if len(got) != 1 || got[0] != gemini.ProviderName {
		t.Errorf("yandex without a folder id must stay disabled, got %v", got)
	}
}

func TestValidate(t *testing.T) {
	if err := NewConfig().Validate(); err == nil {
		t.Error("config without providers should be invalid")
	}

	cfg := NewConfig().WithGigaChat(gigachat.Config{AuthKey: "k"}).WithVisionProvider(gemini.ProviderName)
	err := cfg.Validate()
	if !errors.Is(err, models.ErrUnsupportedProvider) {
		t.Errorf("expected unsupported provider for vision, got %v", err)
	}

	cfg.WithVisionProvider("")
	if err := cfg.Validate(); err != nil {
		t.Errorf("vision should fall back to the default provider: %v", err)
	}

	cfg.MaxContextTokens = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero context budget should be rejected")
	}
}

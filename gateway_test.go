package datarex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/Desarso/datarex/models"
	"github.com/Desarso/datarex/models/gemini"
	"github.com/Desarso/datarex/models/yandexgpt"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	return NewConfig().
		WithDefaultProvider(yandexgpt.ProviderName).
		WithVisionProvider(gemini.ProviderName).
		WithDatabaseURL("bolt://" + filepath.Join(dir, "threads.db")).
		WithStoragePath(dir).
		WithAuthTokens("secret:alice").
		WithYandex(yandexgpt.Config{APIKey: "k", FolderID: "f"}, yandexgpt.VisionConfig{APIKey: "k"}).
		WithGemini(gemini.Config{APIKey: "g"})
}

func TestNew_WiresProviders(t *testing.T) {
	g, err := New(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer g.Close()

	names := g.Router.Names()
	if len(names) != 2 || names[0] != gemini.ProviderName || names[1] != yandexgpt.ProviderName {
		t.Errorf("unexpected providers %v", names)
	}
	if g.Router.DefaultName() != yandexgpt.ProviderName {
		t.Errorf("unexpected default %s", g.Router.DefaultName())
	}
	if g.Vision.ProviderName() != gemini.ProviderName {
		t.Errorf("unexpected vision provider %s", g.Vision.ProviderName())
	}

	p, _ := g.Router.Get(yandexgpt.ProviderName)
	if p.Capability() != models.CapabilityTextChat || p.(*yandexgpt.Model).Vision() == nil {
		t.Error("yandexgpt should be text-only with a vision client attached")
	}
	if err := g.Store.Ping(context.Background()); err != nil {
		t.Errorf("store not reachable: %v", err)
	}
}

func TestNew_BadDatabaseURL(t *testing.T) {
	cfg := testConfig(t).WithDatabaseURL("mongodb://nowhere")
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unsupported storage scheme")
	}
}

func TestHandler_HealthAndAuth(t *testing.T) {
	g, err := New(context.Background(), testConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close()
	h := g.Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("health returned %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/threads", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/threads", nil)
	req.Header.Set("Authorization", "Bearer secret")
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", w.Code)
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.HTTPAddr = "127.0.0.1:0"
	g, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.Serve(ctx); err != nil {
		t.Errorf("expected clean shutdown, got %v", err)
	}
}

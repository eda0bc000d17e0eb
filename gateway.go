// Package datarex assembles the multimodal chat gateway: providers, the
// thread store, image analysis and the HTTP API.
package datarex

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Desarso/datarex/api"
	"github.com/Desarso/datarex/models"
	"github.com/Desarso/datarex/models/gemini"
	"github.com/Desarso/datarex/models/gigachat"
	"github.com/Desarso/datarex/models/yandexgpt"
	"github.com/Desarso/datarex/sessions"
	"github.com/Desarso/datarex/stores"
	"github.com/Desarso/datarex/vision"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

// Gateway owns every long-lived component of a running server.
type Gateway struct {
	Config  *Config
	Store   stores.ThreadStore
	Router  *models.Router
	Vision  *vision.Service
	Manager *sessions.ChatManager

	logger *log.Logger
}

// New validates cfg, opens the thread store and registers every provider
// whose credentials are present.
func New(ctx context.Context, cfg *Config) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := log.New(os.Stdout, "[Gateway] ", log.LstdFlags)

	providers, describer, err := buildProviders(ctx, cfg)
	if err != nil {
		return nil, err
	}
	router, err := models.NewRouter(cfg.DefaultProvider, providers...)
	if err != nil {
		return nil, err
	}

	visionProvider, err := router.Get(cfg.visionProvider())
	if err != nil {
		return nil, err
	}
	analyzer := vision.NewService(visionProvider, describer)

	storeCfg, err := stores.ParseStorageURL(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	store, err := stores.NewStore(storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open thread store: %w", err)
	}

	logger.Printf("Providers: %v (default %s, vision %s), store: %s",
		router.Names(), router.DefaultName(), analyzer.ProviderName(), storeCfg.Type)
	if cfg.AuthTokens == "" {
		logger.Printf("Warning: AUTH_TOKENS is empty, all authenticated requests will be rejected")
	}

	return &Gateway{
		Config:  cfg,
		Store:   store,
		Router:  router,
		Vision:  analyzer,
		Manager: sessions.NewChatManager(store, router, analyzer),
		logger:  logger,
	}, nil
}

// buildProviders returns the configured providers and, when Yandex Vision is
// available, a describer for text-only vision providers.
func buildProviders(ctx context.Context, cfg *Config) ([]models.Provider, models.VisionDescriber, error) {
	var (
		providers []models.Provider
		describer models.VisionDescriber
	)
	for _, name := range cfg.EnabledProviders() {
		switch name {
		case gigachat.ProviderName:
			c := cfg.GigaChat
			c.MaxContextTokens = cfg.MaxContextTokens
			c.Timeout = cfg.RequestTimeout
			c.Debug = cfg.Debug
			providers = append(providers, gigachat.New(c))
		case yandexgpt.ProviderName:
			c := cfg.Yandex
			c.MaxContextTokens = cfg.MaxContextTokens
			c.Timeout = cfg.RequestTimeout
			c.Debug = cfg.Debug
			var vc *yandexgpt.VisionClient
			if cfg.YandexVision.APIKey != "" {
				v := cfg.YandexVision
				if v.FolderID == "" {
					v.FolderID = c.FolderID
				}
				v.Timeout = cfg.RequestTimeout
				vc = yandexgpt.NewVisionClient(v)
				describer = vc
			}
			providers = append(providers, yandexgpt.New(c, vc))
		case gemini.ProviderName:
			c := cfg.Gemini
			c.MaxContextTokens = cfg.MaxContextTokens
			c.Timeout = cfg.RequestTimeout
			c.Debug = cfg.Debug
			g, err := gemini.New(ctx, c)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to create gemini provider: %w", err)
			}
			providers = append(providers, g)
		}
	}
	return providers, describer, nil
}

// UploadDir is where uploaded files are stored.
func (g *Gateway) UploadDir() string {
	return filepath.Join(g.Config.StoragePath, "uploads")
}

// Handler returns the HTTP API.
func (g *Gateway) Handler() http.Handler {
	if !g.Config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	return api.NewServer(g.Manager, api.Config{
		UploadDir:      g.UploadDir(),
		MaxUploadBytes: int64(g.Config.MaxFileSizeMB) << 20,
		Auth:           api.ParseStaticTokens(g.Config.AuthTokens),
	}).Handler()
}

// Serve listens on Config.HTTPAddr until ctx is cancelled, then shuts down
// gracefully.
func (g *Gateway) Serve(ctx context.Context) error {
	if err := os.MkdirAll(g.UploadDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}
	srv := &http.Server{
		Addr:              g.Config.HTTPAddr,
		Handler:           g.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Printf("Listening on %s", g.Config.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		g.logger.Printf("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Close releases the thread store.
func (g *Gateway) Close() error {
	return g.Store.Close()
}

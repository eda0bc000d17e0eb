package datarex

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Desarso/datarex/models"
	"github.com/Desarso/datarex/models/gemini"
	"github.com/Desarso/datarex/models/gigachat"
	"github.com/Desarso/datarex/models/yandexgpt"
	"github.com/joho/godotenv"
)

// Config holds everything needed to assemble a Gateway.
type Config struct {
	DefaultProvider  string
	VisionProvider   string // empty means DefaultProvider
	DatabaseURL      string
	StoragePath      string
	MaxContextTokens int
	MaxFileSizeMB    int
	HTTPAddr         string
	AuthTokens       string // "token:user,token:user"
	RequestTimeout   time.Duration
	Debug            bool

	GigaChat     gigachat.Config
	Yandex       yandexgpt.Config
	YandexVision yandexgpt.VisionConfig
	Gemini       gemini.Config
}

// NewConfig returns a configuration with default values and no providers.
func NewConfig() *Config {
	return &Config{
		DefaultProvider:  gigachat.ProviderName,
		DatabaseURL:      "sqlite://storage/database.db",
		StoragePath:      "storage",
		MaxContextTokens: 8000,
		MaxFileSizeMB:    20,
		HTTPAddr:         ":8000",
		RequestTimeout:   models.DefaultRequestTimeout,
	}
}

// LoadConfig reads a .env file when present, then the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	c := NewConfig()
	e := &envReader{}

	c.DefaultProvider = e.str("DEFAULT_PROVIDER", c.DefaultProvider)
	c.VisionProvider = e.str("VISION_PROVIDER", "")
	c.DatabaseURL = e.str("DATABASE_URL", c.DatabaseURL)
	c.StoragePath = e.str("STORAGE_PATH", c.StoragePath)
	c.MaxContextTokens = e.int("MAX_CONTEXT_TOKENS", c.MaxContextTokens)
	c.MaxFileSizeMB = e.int("MAX_FILE_SIZE_MB", c.MaxFileSizeMB)
	c.HTTPAddr = e.str("HTTP_ADDR", c.HTTPAddr)
	c.AuthTokens = e.str("AUTH_TOKENS", "")
	c.RequestTimeout = time.Duration(e.int("REQUEST_TIMEOUT_SECONDS", int(c.RequestTimeout/time.Second))) * time.Second
	c.Debug = e.bool("DEBUG", false)

	c.GigaChat = gigachat.Config{
		AuthKey:       e.str("GIGA_API_KEY", ""),
		Scope:         e.str("GIGA_SCOPE", gigachat.DefaultScope),
		Model:         e.str("GIGA_MODEL", gigachat.DefaultModel),
		BaseURL:       e.str("GIGA_BASE_URL", gigachat.DefaultBaseURL),
		AuthURL:       e.str("GIGA_AUTH_URL", gigachat.DefaultAuthURL),
		SkipTLSVerify: !e.bool("GIGA_VERIFY_SSL", false),
		Defaults:      e.params("GIGA", gigachat.DefaultParams()),
	}

	c.Yandex = yandexgpt.Config{
		APIKey:   e.str("YANDEX_API_KEY", ""),
		FolderID: e.str("YANDEX_FOLDER_ID", ""),
		Model:    e.str("YANDEX_MODEL", yandexgpt.DefaultModel),
		BaseURL:  e.str("YANDEX_BASE_URL", yandexgpt.DefaultBaseURL),
		Defaults: e.params("YANDEX", yandexgpt.DefaultParams()),
	}
	c.YandexVision = yandexgpt.VisionConfig{
		APIKey:   e.str("YANDEX_VISION_API_KEY", c.Yandex.APIKey),
		FolderID: c.Yandex.FolderID,
		URL:      e.str("YANDEX_VISION_URL", yandexgpt.DefaultVisionURL),
	}

	c.Gemini = gemini.Config{
		APIKey:   e.str("GEMINI_API_KEY", ""),
		Model:    e.str("GEMINI_MODEL", gemini.DefaultModel),
		Defaults: e.params("GEMINI", gemini.DefaultParams()),
	}

	if e.err != nil {
		return nil, e.err
	}
	return c, nil
}

// WithDefaultProvider sets the provider used when a thread names none
func (c *Config) WithDefaultProvider(name string) *Config {
	c.DefaultProvider = name
	return c
}

// WithVisionProvider sets the provider used for image analysis
func (c *Config) WithVisionProvider(name string) *Config {
	c.VisionProvider = name
	return c
}

// WithDatabaseURL sets the thread store location, e.g. bolt://threads.db
func (c *Config) WithDatabaseURL(url string) *Config {
	c.DatabaseURL = url
	return c
}

// WithStoragePath sets the root directory for uploads
func (c *Config) WithStoragePath(path string) *Config {
	c.StoragePath = path
	return c
}

// WithAuthTokens sets the static bearer tokens
func (c *Config) WithAuthTokens(tokens string) *Config {
	c.AuthTokens = tokens
	return c
}

// WithGigaChat enables the GigaChat provider
func (c *Config) WithGigaChat(cfg gigachat.Config) *Config {
	c.GigaChat = cfg
	return c
}

// WithYandex enables YandexGPT and, when vision has a URL or key, Yandex Vision
func (c *Config) WithYandex(cfg yandexgpt.Config, vision yandexgpt.VisionConfig) *Config {
	c.Yandex = cfg
	c.YandexVision = vision
	return c
}

// WithGemini enables the Gemini provider
func (c *Config) WithGemini(cfg gemini.Config) *Config {
	c.Gemini = cfg
	return c
}

// EnabledProviders lists the providers whose credentials are present.
func (c *Config) EnabledProviders() []string {
	var names []string
	if c.GigaChat.AuthKey != "" {
		names = append(names, gigachat.ProviderName)
	}
	if c.Yandex.APIKey != "" && c.Yandex.FolderID != "" {
		names = append(names, yandexgpt.ProviderName)
	}
	if c.Gemini.APIKey != "" {
		names = append(names, gemini.ProviderName)
	}
	return names
}

func (c *Config) visionProvider() string {
	if c.VisionProvider != "" {
		return c.VisionProvider
	}
	return c.DefaultProvider
}

func (c *Config) Validate() error {
	enabled := c.EnabledProviders()
	if len(enabled) == 0 {
		return fmt.Errorf("no provider configured: set GIGA_API_KEY, YANDEX_API_KEY and YANDEX_FOLDER_ID, or GEMINI_API_KEY")
	}
	for _, name := range []string{c.DefaultProvider, c.visionProvider()} {
		if !contains(enabled, name) {
			return fmt.Errorf("provider %s is not configured (enabled: %s): %w",
				name, strings.Join(enabled, ", "), models.ErrUnsupportedProvider)
		}
	}
	if c.MaxContextTokens <= 0 {
		return fmt.Errorf("MAX_CONTEXT_TOKENS must be positive")
	}
	if c.MaxFileSizeMB <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE_MB must be positive")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// envReader collects the first parse error so LoadConfig can report it once.
type envReader struct {
	err error
}

func (e *envReader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (e *envReader) int(key string, def int) int {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil && e.err == nil {
		e.err = fmt.Errorf("%s: invalid integer %q", key, raw)
	}
	if err != nil {
		return def
	}
	return v
}

func (e *envReader) float(key string, def float64) float64 {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		if e.err == nil {
			e.err = fmt.Errorf("%s: invalid number %q", key, raw)
		}
		return def
	}
	return v
}

func (e *envReader) bool(key string, def bool) bool {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		if e.err == nil {
			e.err = fmt.Errorf("%s: invalid boolean %q", key, raw)
		}
		return def
	}
	return v
}

// params reads <prefix>_TEMPERATURE, <prefix>_TOP_P and <prefix>_MAX_TOKENS.
func (e *envReader) params(prefix string, def models.GenerationParams) models.GenerationParams {
	return models.GenerationParams{
		Temperature: models.Float64(e.float(prefix+"_TEMPERATURE", *def.Temperature)),
		TopP:        models.Float64(e.float(prefix+"_TOP_P", *def.TopP)),
		MaxTokens:   models.Int(e.int(prefix+"_MAX_TOKENS", *def.MaxTokens)),
	}
}

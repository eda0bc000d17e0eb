// Package gemini implements the Gemini provider on top of the genai SDK.
// Gemini accepts inline image bytes, so the provider is multimodal.
package gemini

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Desarso/datarex/documents"
	"github.com/Desarso/datarex/models"
	"google.golang.org/genai"
)

const (
	ProviderName = "gemini"
	DefaultModel = "gemini-2.0-flash"

	// maxInlineImageBytes is the request size limit for inline image data.
	maxInlineImageBytes = 20 << 20
)

// Config configures the Gemini provider.
type Config struct {
	APIKey           string
	Model            string
	BaseURL          string // optional override of the Gemini API endpoint
	Defaults         models.GenerationParams
	MaxContextTokens int
	Timeout          time.Duration
	Debug            bool
}

func DefaultParams() models.GenerationParams {
	return models.GenerationParams{
		Temperature: models.Float64(0.7),
		TopP:        models.Float64(0.95),
		MaxTokens:   models.Int(2048),
	}
}

// Gemini_Model implements models.Provider for the Gemini API.
type Gemini_Model struct {
	cfg    Config
	client *genai.Client
	logger *log.Logger
}

var _ models.Provider = (*Gemini_Model)(nil)

// New creates the genai client. No network call is made until SendRequest.
func New(ctx context.Context, cfg Config) (*Gemini_Model, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = models.DefaultRequestTimeout
	}
	cfg.Defaults = cfg.Defaults.WithDefaults(DefaultParams())

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Gemini_Model{
		cfg:    cfg,
		client: client,
		logger: log.New(os.Stdout, "[Gemini] ", log.LstdFlags),
	}, nil
}

func (g *Gemini_Model) Name() string { return ProviderName }

func (g *Gemini_Model) Capability() models.Capability { return models.CapabilityMultimodal }

func (g *Gemini_Model) SendRequest(ctx context.Context, messages []models.Message, params models.GenerationParams) (models.ProviderResponse, error) {
	if len(messages) == 0 {
		return models.ProviderResponse{}, models.ErrNoMessages
	}
	applied := params.Resolve(g.cfg.Defaults)

	if g.cfg.MaxContextTokens > 0 {
		messages = g.TruncateMessages(messages, g.cfg.MaxContextTokens)
	}

	contents, system, err := toContents(messages)
	if err != nil {
		return models.ProviderResponse{}, models.RequestFailed(ProviderName, err)
	}
	if len(contents) == 0 {
		return models.ProviderResponse{}, models.RequestFailed(ProviderName, fmt.Errorf("no user or assistant messages to send"))
	}

	config := &genai.GenerateContentConfig{SystemInstruction: system}
	if applied.Temperature != nil {
		t := float32(*applied.Temperature)
		config.Temperature = &t
	}
	if applied.TopP != nil {
		p := float32(*applied.TopP)
		config.TopP = &p
	}
	if applied.MaxTokens != nil {
		config.MaxOutputTokens = int32(*applied.MaxTokens)
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	if g.cfg.Debug {
		g.logger.Printf("generateContent model=%s contents=%d", g.cfg.Model, len(contents))
	}
	result, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, contents, config)
	if err != nil {
		return models.ProviderResponse{}, models.RequestFailed(ProviderName, err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return models.ProviderResponse{}, models.RequestFailed(ProviderName, fmt.Errorf("response contained no candidates"))
	}

	modelName := result.ModelVersion
	if modelName == "" {
		modelName = g.cfg.Model
	}
	return models.ProviderResponse{
		Content:  result.Text(),
		Model:    modelName,
		Provider: ProviderName,
		Params:   applied,
	}, nil
}

// ProcessFile extracts PDF and text content and passes images through by path.
func (g *Gemini_Model) ProcessFile(ctx context.Context, path string) (string, bool, error) {
	switch documents.Classify(path) {
	case documents.KindPDF:
		text, err := documents.ExtractPDF(path)
		if err != nil {
			return "", false, err
		}
		return text, true, nil
	case documents.KindText:
		text, err := documents.ReadText(path)
		if err != nil {
			return "", false, err
		}
		return text, true, nil
	case documents.KindImage:
		return path, true, nil
	}
	return "", false, nil
}

// CountTokens approximates one token per four characters, rounding up.
func (g *Gemini_Model) CountTokens(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}

// TruncateMessages keeps the newest messages that fit maxTokens.
func (g *Gemini_Model) TruncateMessages(messages []models.Message, maxTokens int) []models.Message {
	return models.FillFromNewest(messages, maxTokens, g.CountTokens)
}

// toContents converts thread messages to genai contents. System messages are
// merged into the system instruction.
func toContents(messages []models.Message) ([]*genai.Content, *genai.Content, error) {
	var systemParts []string
	contents := make([]*genai.Content, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case models.RoleSystem:
			systemParts = append(systemParts, msg.Text())
			continue
		}

		role := genai.RoleUser
		if msg.Role == models.RoleAssistant {
			role = genai.RoleModel
		}

		parts := []*genai.Part{genai.NewPartFromText(msg.Text())}
		if path, ok := msg.ImagePath(); ok {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to read image attachment: %w", err)
			}
			if len(data) > maxInlineImageBytes {
				return nil, nil, fmt.Errorf("image attachment %s exceeds %d bytes", path, maxInlineImageBytes)
			}
			parts = append(parts, genai.NewPartFromBytes(data, documents.MimeType(path)))
		}
		contents = append(contents, genai.NewContentFromParts(parts, genai.Role(role)))
	}

	var system *genai.Content
	if len(systemParts) > 0 {
		system = genai.NewContentFromText(strings.Join(systemParts, "\n\n"), genai.RoleUser)
	}
	return contents, system, nil
}

// Package yandexgpt implements the YandexGPT text-chat provider. Images are
// turned into text with Yandex Vision OCR before they reach the model.
package yandexgpt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Desarso/datarex/documents"
	"github.com/Desarso/datarex/models"
)

const (
	ProviderName   = "yandexgpt"
	DefaultBaseURL = "https://llm.api.cloud.yandex.net/foundationModels/v1"
	DefaultModel   = "yandexgpt/latest"
	ModelLabel     = "YandexGPT"
)

// Config configures the YandexGPT provider.
type Config struct {
	APIKey           string
	FolderID         string
	Model            string
	BaseURL          string
	Defaults         models.GenerationParams
	MaxContextTokens int
	Timeout          time.Duration
	Debug            bool
}

func DefaultParams() models.GenerationParams {
	return models.GenerationParams{
		Temperature: models.Float64(0.6),
		TopP:        models.Float64(0.9),
		MaxTokens:   models.Int(2048),
	}
}

// Model implements models.Provider for YandexGPT.
type Model struct {
	cfg    Config
	client *http.Client
	vision *VisionClient
	logger *log.Logger
}

var _ models.Provider = (*Model)(nil)

// New creates a YandexGPT provider. vision may be nil, in which case images
// are not processed.
func New(cfg Config, vision *VisionClient) *Model {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.Defaults = cfg.Defaults.WithDefaults(DefaultParams())

	return &Model{
		cfg:    cfg,
		client: models.NewHTTPClient(cfg.Timeout, false),
		vision: vision,
		logger: log.New(os.Stdout, "[YandexGPT] ", log.LstdFlags),
	}
}

func (m *Model) Name() string { return ProviderName }

func (m *Model) Capability() models.Capability { return models.CapabilityTextChat }

// Vision returns the Vision client the provider uses for images, or nil.
func (m *Model) Vision() *VisionClient { return m.vision }

func (m *Model) modelURI() string {
	if strings.Contains(m.cfg.Model, "://") {
		return m.cfg.Model
	}
	return fmt.Sprintf("gpt://%s/%s", m.cfg.FolderID, m.cfg.Model)
}

func (m *Model) SendRequest(ctx context.Context, messages []models.Message, params models.GenerationParams) (models.ProviderResponse, error) {
	if len(messages) == 0 {
		return models.ProviderResponse{}, models.ErrNoMessages
	}
	applied := params.Resolve(m.cfg.Defaults)

	if m.cfg.MaxContextTokens > 0 {
		messages = m.TruncateMessages(messages, m.cfg.MaxContextTokens)
		if len(messages) == 0 {
			return models.ProviderResponse{}, models.RequestFailed(ProviderName,
				fmt.Errorf("newest message exceeds the %d token context budget", m.cfg.MaxContextTokens))
		}
	}

	reqBody := CompletionRequest{
		ModelURI: m.modelURI(),
		CompletionOptions: CompletionOptions{
			Temperature: applied.Temperature,
			TopP:        applied.TopP,
		},
		Messages: make([]Message, 0, len(messages)),
	}
	if applied.MaxTokens != nil {
		reqBody.CompletionOptions.MaxTokens = strconv.Itoa(*applied.MaxTokens)
	}
	for _, msg := range messages {
		reqBody.Messages = append(reqBody.Messages, Message{Role: string(msg.Role), Text: msg.Text()})
	}

	completion, err := m.complete(ctx, reqBody)
	if err != nil {
		return models.ProviderResponse{}, models.RequestFailed(ProviderName, err)
	}
	if len(completion.Result.Alternatives) == 0 {
		return models.ProviderResponse{}, models.RequestFailed(ProviderName, fmt.Errorf("response contained no alternatives"))
	}

	return models.ProviderResponse{
		Content:  completion.Result.Alternatives[0].Message.Text,
		Model:    ModelLabel,
		Provider: ProviderName,
		Params:   applied,
	}, nil
}

// ProcessFile runs OCR on images, extracts PDF text and reads text files.
// Word documents are referenced by name only.
func (m *Model) ProcessFile(ctx context.Context, path string) (string, bool, error) {
	switch documents.Classify(path) {
	case documents.KindImage:
		if m.vision == nil {
			return "", false, nil
		}
		text, err := m.vision.RecognizeText(ctx, path)
		if err != nil {
			return "", false, models.RequestFailed(ProviderName, err)
		}
		return text, true, nil
	case documents.KindPDF:
		text, err := documents.ExtractPDF(path)
		if err != nil {
			return "", false, err
		}
		return text, true, nil
	case documents.KindDocx:
		return "Document content: " + filepath.Base(path), true, nil
	case documents.KindText:
		text, err := documents.ReadText(path)
		if err != nil {
			return "", false, err
		}
		return text, true, nil
	}
	return "", false, nil
}

// CountTokens approximates one token per whitespace separated word.
func (m *Model) CountTokens(text string) int {
	return len(strings.Fields(text))
}

// TruncateMessages keeps the newest messages that fit maxTokens.
func (m *Model) TruncateMessages(messages []models.Message, maxTokens int) []models.Message {
	return models.FillFromNewest(messages, maxTokens, m.CountTokens)
}

func (m *Model) complete(ctx context.Context, reqBody CompletionRequest) (CompletionResponse, error) {
	jsonBytes, err := json.Marshal(reqBody)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("failed to marshal request body: %w", err)
	}
	if m.cfg.Debug {
		m.logger.Printf("completion request: %s", jsonBytes)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.BaseURL+"/completion", bytes.NewReader(jsonBytes))
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Api-Key "+m.cfg.APIKey)
	req.Header.Set("x-folder-id", m.cfg.FolderID)

	resp, err := m.client.Do(req)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil {
			if msg := errResp.Error.Message; msg != "" {
				return CompletionResponse{}, &models.APIError{StatusCode: resp.StatusCode, Body: msg}
			}
			if errResp.Message != "" {
				return CompletionResponse{}, &models.APIError{StatusCode: resp.StatusCode, Body: errResp.Message}
			}
		}
		return CompletionResponse{}, &models.APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out CompletionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return CompletionResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return out, nil
}

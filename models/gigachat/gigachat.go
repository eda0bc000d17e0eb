// Package gigachat implements the GigaChat provider. GigaChat accepts images
// as uploaded file attachments, so the provider is multimodal.
package gigachat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Desarso/datarex/documents"
	"github.com/Desarso/datarex/models"
)

const (
	ProviderName   = "gigachat"
	DefaultBaseURL = "https://gigachat.devices.sberbank.ru/api/v1"
	DefaultAuthURL = "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"
	DefaultScope   = "GIGACHAT_API_PERS"
	DefaultModel   = "GigaChat"

	// KeepLastMessages is how many non-system messages survive truncation.
	KeepLastMessages = 5
)

// Config configures the GigaChat provider.
type Config struct {
	AuthKey          string // base64 client credentials for the OAuth endpoint
	Scope            string
	Model            string
	BaseURL          string
	AuthURL          string
	SkipTLSVerify    bool
	Defaults         models.GenerationParams
	MaxContextTokens int
	Timeout          time.Duration
	Debug            bool
}

// DefaultParams are the generation defaults used when none are configured.
func DefaultParams() models.GenerationParams {
	return models.GenerationParams{
		Temperature: models.Float64(0.7),
		TopP:        models.Float64(0.85),
		MaxTokens:   models.Int(1024),
	}
}

// Model implements models.Provider for GigaChat.
type Model struct {
	cfg    Config
	client *http.Client
	logger *log.Logger

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time
}

var _ models.Provider = (*Model)(nil)

// New creates a GigaChat provider. Empty config fields take package defaults.
func New(cfg Config) *Model {
	if cfg.Scope == "" {
		cfg.Scope = DefaultScope
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	cfg.Defaults = cfg.Defaults.WithDefaults(DefaultParams())

	return &Model{
		cfg:    cfg,
		client: models.NewHTTPClient(cfg.Timeout, cfg.SkipTLSVerify),
		logger: log.New(os.Stdout, "[GigaChat] ", log.LstdFlags),
	}
}

func (m *Model) Name() string { return ProviderName }

func (m *Model) Capability() models.Capability { return models.CapabilityMultimodal }

// SendRequest sends a chat completion request. Messages carrying an image
// attachment are uploaded first and referenced by file id.
func (m *Model) SendRequest(ctx context.Context, messages []models.Message, params models.GenerationParams) (models.ProviderResponse, error) {
	if len(messages) == 0 {
		return models.ProviderResponse{}, models.ErrNoMessages
	}
	applied := params.Resolve(m.cfg.Defaults)

	if m.cfg.MaxContextTokens > 0 {
		messages = m.TruncateMessages(messages, m.cfg.MaxContextTokens)
	}

	token, err := m.accessToken(ctx)
	if err != nil {
		return models.ProviderResponse{}, models.RequestFailed(ProviderName, err)
	}

	chatMessages := make([]ChatMessage, 0, len(messages))
	for _, msg := range messages {
		cm := ChatMessage{Role: string(msg.Role), Content: msg.Text()}
		if path, ok := msg.ImagePath(); ok {
			fileID, err := m.uploadFile(ctx, token, path)
			if err != nil {
				return models.ProviderResponse{}, models.RequestFailed(ProviderName, err)
			}
			cm.Attachments = []string{fileID}
		}
		chatMessages = append(chatMessages, cm)
	}

	reqBody := ChatRequest{
		Model:       m.cfg.Model,
		Messages:    chatMessages,
		Temperature: applied.Temperature,
		TopP:        applied.TopP,
		MaxTokens:   applied.MaxTokens,
	}

	var chatResp ChatResponse
	if err := m.postJSON(ctx, token, "/chat/completions", reqBody, &chatResp); err != nil {
		return models.ProviderResponse{}, models.RequestFailed(ProviderName, err)
	}
	if len(chatResp.Choices) == 0 {
		return models.ProviderResponse{}, models.RequestFailed(ProviderName, fmt.Errorf("response contained no choices"))
	}

	modelName := chatResp.Model
	if modelName == "" {
		modelName = m.cfg.Model
	}
	return models.ProviderResponse{
		Content:  chatResp.Choices[0].Message.Content,
		Model:    modelName,
		Provider: ProviderName,
		Params:   applied,
	}, nil
}

// ProcessFile extracts text from PDF and text documents. Images are passed
// through by path so SendRequest can attach them.
func (m *Model) ProcessFile(ctx context.Context, path string) (string, bool, error) {
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

// CountTokens approximates one token per four characters.
func (m *Model) CountTokens(text string) int {
	return utf8.RuneCountInString(text) / 4
}

// TruncateMessages keeps all system messages and the last KeepLastMessages
// others once the budget is exceeded. The result may exceed maxTokens.
func (m *Model) TruncateMessages(messages []models.Message, maxTokens int) []models.Message {
	return models.KeepRecent(messages, maxTokens, KeepLastMessages, m.CountTokens)
}

func (m *Model) postJSON(ctx context.Context, token, endpoint string, body, out interface{}) error {
	jsonBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	if m.cfg.Debug {
		m.logger.Printf("POST %s: %s", endpoint, jsonBytes)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.BaseURL+endpoint, bytes.NewReader(jsonBytes))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	return m.do(req, out)
}

func (m *Model) uploadFile(ctx context.Context, token, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read attachment: %w", err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filepath.Base(path))))
	header.Set("Content-Type", documents.MimeType(path))
	part, err := w.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write multipart part: %w", err)
	}
	if err := w.WriteField("purpose", "general"); err != nil {
		return "", fmt.Errorf("failed to write multipart field: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.BaseURL+"/files", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	var fileResp FileResponse
	if err := m.do(req, &fileResp); err != nil {
		return "", fmt.Errorf("file upload failed: %w", err)
	}
	if fileResp.ID == "" {
		return "", fmt.Errorf("file upload returned no id")
	}
	return fileResp.ID, nil
}

func (m *Model) do(req *http.Request, out interface{}) error {
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
			return &models.APIError{StatusCode: resp.StatusCode, Body: errResp.Message}
		}
		return &models.APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func escapeQuotes(s string) string {
	return strings.NewReplacer("\\", "\\\\", `"`, "\\\"").Replace(s)
}

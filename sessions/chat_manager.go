package sessions

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/Desarso/datarex/documents"
	"github.com/Desarso/datarex/models"
	"github.com/Desarso/datarex/stores"
	"github.com/Desarso/datarex/vision"
)

// DefaultThreadTitle is used when a thread is created without a title.
const DefaultThreadTitle = "New Conversation"

// ChatManager validates thread ownership, keeps thread history and routes
// messages to providers.
type ChatManager struct {
	store    stores.ThreadStore
	router   *models.Router
	analyzer *vision.Service
	logger   *log.Logger
}

// Router exposes the provider registry.
func (m *ChatManager) Router() *models.Router { return m.router }

// Store exposes the thread store.
func (m *ChatManager) Store() stores.ThreadStore { return m.store }

// ownedThread loads a thread and checks that userID owns it.
func (m *ChatManager) ownedThread(ctx context.Context, threadID, userID string) (*stores.Thread, error) {
	thread, err := m.store.GetThread(ctx, threadID)
	if errors.Is(err, stores.ErrThreadNotFound) {
		return nil, ErrAccessDenied
	}
	if err != nil {
		return nil, err
	}
	if thread.UserID != userID {
		return nil, ErrAccessDenied
	}
	return thread, nil
}

// CreateThread creates a thread for userID and returns its id. An empty
// provider selects the default; an unknown one fails with
// models.ErrUnsupportedProvider.
func (m *ChatManager) CreateThread(ctx context.Context, userID, title, provider string) (string, error) {
	p, err := m.router.Get(provider)
	if err != nil {
		return "", err
	}
	if title == "" {
		title = DefaultThreadTitle
	}
	thread, err := m.store.CreateThread(ctx, userID, title, p.Name())
	if err != nil {
		return "", fmt.Errorf("failed to create thread: %w", err)
	}
	m.logger.Printf("Created thread %s for user %s with provider %s", thread.ID, userID, p.Name())
	return thread.ID, nil
}

// GetThreadMessages returns the thread history in conversation order.
func (m *ChatManager) GetThreadMessages(ctx context.Context, threadID, userID string) ([]models.Message, error) {
	thread, err := m.ownedThread(ctx, threadID, userID)
	if err != nil {
		return nil, err
	}
	return thread.Messages, nil
}

// SendMessage appends the user message, asks the thread's provider for a
// reply and appends the reply. file is the attachment produced by
// ProcessUpload, or nil.
func (m *ChatManager) SendMessage(ctx context.Context, threadID, userID, text string, file *models.FileAttachment, params models.GenerationParams) (models.Message, error) {
	thread, err := m.ownedThread(ctx, threadID, userID)
	if err != nil {
		return models.Message{}, err
	}
	provider, err := m.router.Get(thread.Provider)
	if err != nil {
		return models.Message{}, err
	}

	userMsg := models.Message{Role: models.RoleUser, Content: text, File: file}
	if err := m.store.AddMessage(ctx, threadID, userMsg); err != nil {
		return models.Message{}, fmt.Errorf("failed to save user message: %w", err)
	}

	history := make([]models.Message, 0, len(thread.Messages)+1)
	history = append(history, thread.Messages...)
	history = append(history, userMsg)

	resp, err := provider.SendRequest(ctx, stores.SanitizeHistory(history), params)
	if err != nil {
		m.logger.Printf("Provider %s failed for thread %s: %v", provider.Name(), threadID, err)
		return models.Message{}, err
	}

	applied := resp.Params
	reply := models.Message{
		Role:     models.RoleAssistant,
		Content:  resp.Content,
		Provider: provider.Name(),
		Params:   &applied,
	}
	if err := m.store.AddMessage(ctx, threadID, reply); err != nil {
		return models.Message{}, fmt.Errorf("failed to save assistant message: %w", err)
	}
	return reply, nil
}

// DeleteThread removes the thread and, best effort, the files its messages
// reference. It reports false when the thread is missing or not owned.
func (m *ChatManager) DeleteThread(ctx context.Context, threadID, userID string) (bool, error) {
	thread, err := m.ownedThread(ctx, threadID, userID)
	if errors.Is(err, ErrAccessDenied) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	for _, msg := range thread.Messages {
		if msg.File == nil || msg.File.Path == "" {
			continue
		}
		if err := os.Remove(msg.File.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			m.logger.Printf("Warning: failed to delete file %s: %v", msg.File.Path, err)
		}
	}

	return m.store.DeleteThread(ctx, threadID)
}

// ListUserThreads returns the user's threads, most recently updated first.
func (m *ChatManager) ListUserThreads(ctx context.Context, userID string) ([]stores.ThreadInfo, error) {
	return m.store.ListThreads(ctx, userID)
}

// UpdateThread changes the title or provider of an owned thread.
func (m *ChatManager) UpdateThread(ctx context.Context, threadID, userID string, update stores.ThreadUpdate) (stores.ThreadInfo, error) {
	if _, err := m.ownedThread(ctx, threadID, userID); err != nil {
		return stores.ThreadInfo{}, err
	}
	if update.Provider != nil {
		p, err := m.router.Get(*update.Provider)
		if err != nil {
			return stores.ThreadInfo{}, err
		}
		name := p.Name()
		update.Provider = &name
	}
	thread, err := m.store.UpdateThread(ctx, threadID, update)
	if errors.Is(err, stores.ErrThreadNotFound) {
		return stores.ThreadInfo{}, ErrAccessDenied
	}
	if err != nil {
		return stores.ThreadInfo{}, err
	}
	return thread.Info(), nil
}

// ProcessUpload runs the thread provider's file processing on an uploaded
// file and returns the attachment to pass to SendMessage. Files the provider
// cannot read are still attached by path, without content.
func (m *ChatManager) ProcessUpload(ctx context.Context, threadID, userID, path, originalName string) (*models.FileAttachment, error) {
	thread, err := m.ownedThread(ctx, threadID, userID)
	if err != nil {
		return nil, err
	}

	content, ok, err := m.router.ProcessFile(ctx, thread.Provider, path)
	if err != nil {
		return nil, err
	}
	if !ok {
		m.logger.Printf("Provider %s has no text for %s", thread.Provider, originalName)
	}
	return &models.FileAttachment{
		Path:     path,
		Name:     originalName,
		MimeType: documents.MimeType(path),
		Content:  content,
	}, nil
}

// AnalyzeImage runs the vision service on a stored image.
func (m *ChatManager) AnalyzeImage(ctx context.Context, path, prompt string, temperature float64, maxTokens int) (vision.AnalysisResult, error) {
	if m.analyzer == nil {
		return vision.AnalysisResult{}, fmt.Errorf("no vision provider configured")
	}
	return m.analyzer.AnalyzeImage(ctx, path, prompt, temperature, maxTokens)
}

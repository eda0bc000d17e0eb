package sessions

import (
	"fmt"
	"log"
	"os"

	"github.com/Desarso/datarex/models"
	"github.com/Desarso/datarex/stores"
	"github.com/Desarso/datarex/vision"
	"github.com/gorilla/websocket"
)

// NewChatManager creates the conversation orchestrator. analyzer may be nil
// when no vision provider is configured.
func NewChatManager(store stores.ThreadStore, router *models.Router, analyzer *vision.Service) *ChatManager {
	return &ChatManager{
		store:    store,
		router:   router,
		analyzer: analyzer,
		logger:   log.New(os.Stdout, "[ChatManager] ", log.LstdFlags),
	}
}

// NewChatSession creates a websocket chat session for an authenticated user
func NewChatSession(userID string, conn *websocket.Conn, manager *ChatManager) *ChatSession {
	logger := log.New(os.Stdout, fmt.Sprintf("[WS %s] ", userID), log.LstdFlags)
	return &ChatSession{
		UserID:  userID,
		Manager: manager,
		Writer:  &WebSocketWriter{Conn: conn, Logger: logger},
		Logger:  logger,
	}
}

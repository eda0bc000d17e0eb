package sessions

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/Desarso/datarex/models"
	"github.com/gorilla/websocket"
)

// ErrAccessDenied is returned when a thread does not exist or belongs to
// another user; callers cannot tell the two apart.
var ErrAccessDenied = errors.New("thread not found or access denied")

// ChatFrame is one inbound websocket message.
type ChatFrame struct {
	ThreadID    string   `json:"thread_id"`
	Message     string   `json:"message"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

// Params returns the generation parameters requested by the frame.
func (f ChatFrame) Params() models.GenerationParams {
	return models.GenerationParams{Temperature: f.Temperature, TopP: f.TopP, MaxTokens: f.MaxTokens}
}

// WebSocketWriter serializes writes to a websocket connection.
type WebSocketWriter struct {
	Conn      *websocket.Conn
	Logger    *log.Logger
	StartTime time.Time
	mu        sync.Mutex
}

func (w *WebSocketWriter) WriteResponse(resp interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.StartTime.IsZero() {
		w.Logger.Printf("Reply ready after %v", time.Since(w.StartTime))
	}
	return w.Conn.WriteJSON(resp)
}

func (w *WebSocketWriter) WriteError(message string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Conn.WriteJSON(map[string]string{"error": message})
}

// ChatSession serves one authenticated websocket connection.
type ChatSession struct {
	UserID  string
	Manager *ChatManager
	Writer  *WebSocketWriter
	Logger  *log.Logger
}

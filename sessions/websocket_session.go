package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Desarso/datarex/models"
	"github.com/gorilla/websocket"
)

// Run reads chat frames until the client disconnects. Each frame is answered
// with the assistant Message or an {"error": ...} frame; a failed frame never
// closes the connection.
func (cs *ChatSession) Run(ctx context.Context) error {
	for {
		_, r, err := cs.Writer.Conn.NextReader()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				cs.Logger.Printf("Client disconnected")
				return nil
			}
			return err
		}
		var frame ChatFrame
		if err := json.NewDecoder(r).Decode(&frame); err != nil {
			cs.Logger.Printf("Invalid frame: %v", err)
			if err := cs.Writer.WriteError("invalid frame"); err != nil {
				return err
			}
			continue
		}
		if err := cs.handleFrame(ctx, frame); err != nil {
			return err
		}
	}
}

func (cs *ChatSession) handleFrame(ctx context.Context, frame ChatFrame) error {
	if frame.ThreadID == "" || frame.Message == "" {
		return cs.Writer.WriteError("thread_id and message are required")
	}

	cs.Writer.StartTime = time.Now()
	reply, err := cs.Manager.SendMessage(ctx, frame.ThreadID, cs.UserID, frame.Message, nil, frame.Params())
	if err != nil {
		cs.Logger.Printf("Error sending message to thread %s: %v", frame.ThreadID, err)
		return cs.Writer.WriteError(errorMessage(err))
	}
	return cs.Writer.WriteResponse(reply)
}

// errorMessage is the client-facing text for an orchestrator error.
func errorMessage(err error) string {
	var failed *models.ProviderRequestFailedError
	switch {
	case errors.Is(err, ErrAccessDenied):
		return ErrAccessDenied.Error()
	case errors.Is(err, models.ErrUnsupportedProvider):
		return err.Error()
	case errors.As(err, &failed):
		return "provider " + failed.Provider + " request failed"
	}
	return "internal error"
}

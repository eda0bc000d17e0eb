package sessions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Desarso/datarex/models"
	"github.com/gorilla/websocket"
)

func TestChatSession_Run(t *testing.T) {
	m := newTestManager(t)
	id, _ := m.CreateThread(context.Background(), "u1", "ws", "")

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		NewChatSession("u1", conn, m).Run(r.Context())
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(ChatFrame{ThreadID: id, Message: "Hello"}); err != nil {
		t.Fatal(err)
	}
	var reply models.Message
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatal(err)
	}
	if reply.Role != models.RoleAssistant || reply.Content != "echo: Hello" {
		t.Errorf("unexpected reply %+v", reply)
	}

	if err := conn.WriteJSON(ChatFrame{ThreadID: "missing", Message: "Hello"}); err != nil {
		t.Fatal(err)
	}
	var errFrame map[string]string
	if err := conn.ReadJSON(&errFrame); err != nil {
		t.Fatal(err)
	}
	if errFrame["error"] != ErrAccessDenied.Error() {
		t.Errorf("unexpected error frame %v", errFrame)
	}

	if err := conn.WriteJSON(ChatFrame{ThreadID: id}); err != nil {
		t.Fatal(err)
	}
	errFrame = nil
	if err := conn.ReadJSON(&errFrame); err != nil || errFrame["error"] == "" {
		t.Errorf("expected validation error frame, got %v %v", errFrame, err)
	}

	for _, raw := range []string{`{"thread_id": 5, "message": "hi"}`, `{not json`} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
			t.Fatal(err)
		}
		errFrame = nil
		if err := conn.ReadJSON(&errFrame); err != nil {
			t.Fatalf("%s: connection closed instead of an error frame: %v", raw, err)
		}
		if errFrame["error"] != "invalid frame" {
			t.Errorf("%s: unexpected error frame %v", raw, errFrame)
		}
	}

	if err := conn.WriteJSON(ChatFrame{ThreadID: id, Message: "Still there?"}); err != nil {
		t.Fatal(err)
	}
	reply = models.Message{}
	if err := conn.ReadJSON(&reply); err != nil || reply.Content != "echo: Still there?" {
		t.Errorf("session should keep serving after a bad frame, got %+v %v", reply, err)
	}
}

package stores

import (
	"testing"

	"github.com/Desarso/datarex/models"
)

func TestSanitizeHistory_KeepsValidHistory(t *testing.T) {
	msgs := []models.Message{
		{Role: models.RoleSystem, Content: "be brief"},
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "hello"},
	}
	got := SanitizeHistory(msgs)
	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got))
	}
}

func TestSanitizeHistory_DropsUnknownRoles(t *testing.T) {
	msgs := []models.Message{
		{Role: models.RoleUser, Content: "hi"},
		{Role: "function", Content: "{}"},
		{Role: models.RoleAssistant, Content: "hello"},
	}
	got := SanitizeHistory(msgs)
	if len(got) != 2 || got[0].Content != "hi" || got[1].Content != "hello" {
		t.Errorf("unexpected result %+v", got)
	}
}

func TestSanitizeHistory_KeepsImageOnlyMessages(t *testing.T) {
	msgs := []models.Message{
		{Role: models.RoleUser, Content: ""},
		{Role: models.RoleUser, File: &models.FileAttachment{Path: "/up/a.png", Content: "/up/a.png"}},
	}
	got := SanitizeHistory(msgs)
	if len(got) != 1 || got[0].File == nil {
		t.Errorf("expected only the image message to survive, got %+v", got)
	}
}

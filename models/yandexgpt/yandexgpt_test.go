package yandexgpt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/Desarso/datarex/models"
)

func TestSendRequest_BuildsCompletionRequest(t *testing.T) {
	var got CompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/completion" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Api-Key secret" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("x-folder-id") != "folder" {
			t.Errorf("unexpected folder header %q", r.Header.Get("x-folder-id"))
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.Write([]byte(`{"result":{"alternatives":[{"message":{"role":"assistant","text":"Hello there"},"status":"ALTERNATIVE_STATUS_FINAL"}],"modelVersion":"23.10.2024"}}`))
	}))
	defer srv.Close()

	m := New(Config{APIKey: "secret", FolderID: "folder", BaseURL: srv.URL}, nil)
	resp, err := m.SendRequest(context.Background(), []models.Message{
		{Role: models.RoleSystem, Content: "You are helpful"},
		{Role: models.RoleUser, Content: "Hi"},
	}, models.GenerationParams{TopP: models.Float64(0.01)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Content != "Hello there" || resp.Model != ModelLabel || resp.Provider != ProviderName {
		t.Errorf("unexpected response: %+v", resp)
	}
	if got.ModelURI != "gpt://folder/yandexgpt/latest" {
		t.Errorf("unexpected model uri %q", got.ModelURI)
	}
	if got.CompletionOptions.MaxTokens != "2048" {
		t.Errorf("expected default max tokens, got %q", got.CompletionOptions.MaxTokens)
	}
	if *got.CompletionOptions.TopP != models.MinTopP {
		t.Errorf("expected clamped top_p, got %v", *got.CompletionOptions.TopP)
	}
	if *got.CompletionOptions.Temperature != 0.6 {
		t.Errorf("expected default temperature, got %v", *got.CompletionOptions.Temperature)
	}
	if len(got.Messages) != 2 || got.Messages[1].Text != "Hi" {
		t.Errorf("unexpected messages %+v", got.Messages)
	}
}

func TestSendRequest_ErrorCarriesProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"grpcCode":16,"httpCode":401,"message":"Unknown api key","httpStatus":"Unauthorized"}}`))
	}))
	defer srv.Close()

	m := New(Config{BaseURL: srv.URL}, nil)
	_, err := m.SendRequest(context.Background(), []models.Message{{Role: models.RoleUser, Content: "Hi"}}, models.GenerationParams{})

	var failed *models.ProviderRequestFailedError
	if !errors.As(err, &failed) || failed.Provider != ProviderName {
		t.Fatalf("expected ProviderRequestFailedError from yandexgpt, got %v", err)
	}
	var apiErr *models.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized || apiErr.Body != "Unknown api key" {
		t.Errorf("unexpected API error: %v", err)
	}
}

func TestSendRequest_NothingFitsBudget(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	m := New(Config{BaseURL: srv.URL, MaxContextTokens: 2}, nil)
	_, err := m.SendRequest(context.Background(), []models.Message{
		{Role: models.RoleUser, Content: "one two three four"},
	}, models.GenerationParams{})

	var failed *models.ProviderRequestFailedError
	if !errors.As(err, &failed) || failed.Provider != ProviderName {
		t.Fatalf("expected ProviderRequestFailedError, got %v", err)
	}
	if called {
		t.Error("no request should be sent when every message was truncated away")
	}
}

func TestCountTokens_WordBased(t *testing.T) {
	m := New(Config{}, nil)
	if got := m.CountTokens("  one two\tthree\nfour "); got != 4 {
		t.Errorf("expected 4, got %d", got)
	}
	if got := m.CountTokens(""); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}

func TestTruncateMessages_RespectsBudgetAndOrder(t *testing.T) {
	m := New(Config{}, nil)
	msgs := []models.Message{
		{Role: models.RoleUser, Content: "one two three"},
		{Role: models.RoleAssistant, Content: "four five"},
		{Role: models.RoleUser, Content: "six"},
		{Role: models.RoleAssistant, Content: "seven eight"},
	}

	got := m.TruncateMessages(msgs, 5)
	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got))
	}
	if got[0].Content != "four five" || got[2].Content != "seven eight" {
		t.Errorf("order not preserved: %+v", got)
	}
	if n := models.CountMessages(got, m.CountTokens); n > 5 {
		t.Errorf("budget exceeded: %d", n)
	}
}

func TestTruncateMessages_DropsSystemWhenBudgetFills(t *testing.T) {
	m := New(Config{}, nil)
	msgs := []models.Message{
		{Role: models.RoleSystem, Content: "you are a careful assistant"},
		{Role: models.RoleUser, Content: "a b c"},
		{Role: models.RoleAssistant, Content: "d e f"},
	}

	got := m.TruncateMessages(msgs, 6)
	for _, msg := range got {
		if msg.Role == models.RoleSystem {
			t.Fatalf("system message should have been dropped: %+v", got)
		}
	}
	if len(got) != 2 {
		t.Errorf("expected the two newest messages, got %d", len(got))
	}
}

func TestTruncateMessages_StopsAtFirstOverflow(t *testing.T) {
	m := New(Config{}, nil)
	msgs := []models.Message{
		{Role: models.RoleUser, Content: "x"},
		{Role: models.RoleUser, Content: "a b c d e f g h"},
		{Role: models.RoleUser, Content: "y"},
	}
	got := m.TruncateMessages(msgs, 3)
	if len(got) != 1 || got[0].Content != "y" {
		t.Errorf("expected fill to stop at the oversized message, got %+v", got)
	}
}

func TestVisionDescribe(t *testing.T) {
	var req AnalyzeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &req)
		w.Write([]byte(`{"results":[{"results":[
			{"objectDetection":{"objects":[{"name":"cat"},{"name":"sofa"}]}},
			{"textDetection":{"pages":[{"blocks":[{"lines":[{"words":[{"text":"HELLO"},{"text":"WORLD"}]}]}]}]}},
			{"faceDetection":{"faces":[{},{}]}}
		]}]}`))
	}))
	defer srv.Close()

	img := filepath.Join(t.TempDir(), "pic.png")
	os.WriteFile(img, []byte("fake"), 0o644)

	v := NewVisionClient(VisionConfig{APIKey: "k", FolderID: "f", URL: srv.URL})
	desc, err := v.Describe(context.Background(), img)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Objects: cat, sofa; Text: HELLO WORLD; Faces: 2"
	if desc != want {
		t.Errorf("got %q, want %q", desc, want)
	}
	if len(req.AnalyzeSpecs) != 1 || len(req.AnalyzeSpecs[0].Features) != 3 {
		t.Errorf("unexpected analyze request %+v", req)
	}
	if req.FolderID != "f" {
		t.Errorf("folder id missing from request")
	}
}

func TestProcessFile_ImageUsesOCR(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[{"results":[{"textDetection":{"pages":[{"blocks":[{"lines":[{"words":[{"text":"INVOICE"},{"text":"42"}]}]}]}]}}]}]}`))
	}))
	defer srv.Close()

	img := filepath.Join(t.TempDir(), "scan.jpeg")
	os.WriteFile(img, []byte("fake"), 0o644)

	m := New(Config{}, NewVisionClient(VisionConfig{URL: srv.URL}))
	text, ok, err := m.ProcessFile(context.Background(), img)
	if err != nil || !ok {
		t.Fatalf("unexpected result ok=%v err=%v", ok, err)
	}
	if text != "INVOICE 42" {
		t.Errorf("got %q", text)
	}
}

func TestProcessFile_DocxReference(t *testing.T) {
	m := New(Config{}, nil)
	text, ok, err := m.ProcessFile(context.Background(), "/tmp/uploads/report.docx")
	if err != nil || !ok || text != "Document content: report.docx" {
		t.Errorf("got %q ok=%v err=%v", text, ok, err)
	}
	_, ok, _ = m.ProcessFile(context.Background(), "/tmp/uploads/photo.png")
	if ok {
		t.Error("images without a vision client should be skipped")
	}
}

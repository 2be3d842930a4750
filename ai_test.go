package main

import (
	"context"
	"net/http"
	"strings"
	"testing"
)

func TestBuildPrompt(t *testing.T) {
	tests := []struct {
		name     string
		intent   string
		code     string
		question string
		want     string
	}{
		{"ask mode forwards the question", "ask", "print(1)", "What does this do?", "What does this do?"},
		{"question only", "explain", "", "Why is Go fast?", "Why is Go fast?"},
		{"explain wraps the code", "explain", "print(1)", "", "Explain this code:\nprint(1)"},
		{"fix wraps the code", "fix", "x = ", "", "Fix this code:\nx = "},
		{"question appended as context", "improve", "print(1)", "make it faster",
			"Improve this code:\nprint(1)\n\nAdditional context: make it faster"},
	}
	for _, tt := range tests {
		if got := buildPrompt(tt.intent, tt.code, tt.question); got != tt.want {
			t.Fatalf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestAskModeRequiresQuestion(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()
	userID, token := newTestUser(t, s)

	rec := doJSON(t, s, "POST", "/api/ai", token, map[string]string{
		"type": "ask",
		"code": "print(1)",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	decodeBody(t, rec, &resp)
	if !strings.Contains(resp["error"], "Ask mode requires a question") {
		t.Fatalf("error = %q", resp["error"])
	}

	entries, _ := s.history.List(context.Background(), userID, 10)
	if len(entries) != 0 {
		t.Fatalf("validation rejection must not be recorded")
	}
}

func TestAskRequiresPromptMaterial(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()
	_, token := newTestUser(t, s)

	rec := doJSON(t, s, "POST", "/api/ai", token, map[string]string{
		"code":     "   ",
		"question": "\n\t",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	decodeBody(t, rec, &resp)
	if !strings.Contains(resp["error"], "Provide code or a question") {
		t.Fatalf("error = %q", resp["error"])
	}
}

func TestAskSuccessRecordsHistory(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()
	userID, token := newTestUser(t, s)

	// The LLM client runs in mock mode (no API key) under test.
	rec := doJSON(t, s, "POST", "/api/ai", token, map[string]string{
		"code": "print('x')",
		"type": "explain",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	decodeBody(t, rec, &resp)
	if resp["reply"] == "" {
		t.Fatalf("reply missing")
	}

	entries, err := s.history.List(context.Background(), userID, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("history entries = %d, want 1", len(entries))
	}
	entry := entries[0]
	if entry.Action != ActionAI || entry.Error != "" || entry.Output == "" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.Meta["type"] != "explain" {
		t.Fatalf("meta intent = %v", entry.Meta["type"])
	}
	if prompt, _ := entry.Meta["prompt"].(string); !strings.HasPrefix(prompt, "Explain this code:") {
		t.Fatalf("meta prompt = %v", entry.Meta["prompt"])
	}
}

func TestAskDefaultsToExplain(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()
	userID, token := newTestUser(t, s)

	rec := doJSON(t, s, "POST", "/api/ai", token, map[string]string{
		"code": "print('x')",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}

	entries, _ := s.history.List(context.Background(), userID, 10)
	if len(entries) != 1 || entries[0].Meta["type"] != "explain" {
		t.Fatalf("missing intent should default to explain: %+v", entries)
	}
}

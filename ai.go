package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
)

// --------- Assistant orchestrator ---------

type AskRequest struct {
	Code     string `json:"code"`
	Type     string `json:"type"` // explain|fix|improve|ask
	Question string `json:"question"`
}

// buildPrompt constructs the assistant prompt. Ask mode (and the
// code-less case) forwards the question verbatim; the other intents wrap
// the code, with the question appended as additional context when given.
func buildPrompt(intent, code, question string) string {
	if intent == "ask" || (code == "" && question != "") {
		return question
	}

	prompt := fmt.Sprintf("%s this code:\n%s", capitalize(intent), code)
	if question != "" {
		prompt += fmt.Sprintf("\n\nAdditional context: %s", question)
	}
	return prompt
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// handleAsk validates the prompt material, calls the LLM and records
// exactly one history entry on every path past validation, success or
// failure. Only the two upfront validation rejections skip recording.
func (s *APIServer) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	code := strings.TrimSpace(req.Code)
	question := strings.TrimSpace(req.Question)
	intent := req.Type
	if intent == "" {
		intent = "explain"
	}

	if code == "" && question == "" {
		writeError(w, http.StatusBadRequest, "Provide code or a question for the assistant.")
		return
	}
	if intent == "ask" && question == "" {
		writeError(w, http.StatusBadRequest, "Ask mode requires a question to send to the assistant.")
		return
	}

	prompt := buildPrompt(intent, code, question)
	userID := requestUserID(r)

	meta := map[string]any{
		"type":   intent,
		"prompt": prompt,
	}
	if question != "" {
		meta["question"] = question
	}

	reply, err := s.llm.Ask(r.Context(), prompt)
	if err != nil {
		log.Printf("❌ [AI] AI error: %v", err)
		entry := &HistoryEntry{
			UserID: userID,
			Action: ActionAI,
			Code:   code,
			Error:  err.Error(),
			Meta:   meta,
		}
		if recordErr := s.recordHistory(r.Context(), entry); recordErr != nil {
			log.Printf("❌ [AI] Failed to record failure history: %v", recordErr)
		}
		writeError(w, http.StatusInternalServerError, "AI request failed")
		return
	}

	entry := &HistoryEntry{
		UserID: userID,
		Action: ActionAI,
		Code:   code,
		Output: reply,
		Meta:   meta,
	}
	if err := s.recordHistory(r.Context(), entry); err != nil {
		log.Printf("❌ [AI] Failed to record history: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

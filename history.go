package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// --------- History (append-only audit log) ---------

// historyRetention caps how many entries are kept per user.
const historyRetention = 1000

const (
	ActionRun = "run"
	ActionAI  = "ai"
)

// HistoryEntry is one immutable audit record of a run or assistant
// invocation. Entries are never updated or deleted by this service.
type HistoryEntry struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	Action    string         `json:"action"`
	Language  string         `json:"language,omitempty"`
	Code      string         `json:"code,omitempty"`
	Input     string         `json:"input,omitempty"`
	Output    string         `json:"output,omitempty"`
	Error     string         `json:"error,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// HistoryStore appends audit records to a per-user Redis list, newest
// first, trimmed to the retention cap.
type HistoryStore struct {
	client *redis.Client
}

func NewHistoryStore(client *redis.Client) *HistoryStore {
	return &HistoryStore{client: client}
}

func historyKey(userID string) string {
	return fmt.Sprintf("history:%s", userID)
}

// Append stores one entry. ID and CreatedAt are assigned here when unset.
func (hs *HistoryStore) Append(ctx context.Context, entry *HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %v", err)
	}

	key := historyKey(entry.UserID)
	if err := hs.client.LPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("failed to append history entry: %v", err)
	}
	hs.client.LTrim(ctx, key, 0, historyRetention-1)

	log.Printf("📜 [HISTORY] Recorded %s entry for user %s", entry.Action, entry.UserID)
	return nil
}

// List returns a user's newest entries, most recent first.
func (hs *HistoryStore) List(ctx context.Context, userID string, limit int) ([]HistoryEntry, error) {
	raw, err := hs.client.LRange(ctx, historyKey(userID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %v", err)
	}

	entries := make([]HistoryEntry, 0, len(raw))
	for _, item := range raw {
		var entry HistoryEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			log.Printf("⚠️ [HISTORY] Skipping malformed entry for user %s: %v", userID, err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// --------- History HTTP handlers ---------

func (s *APIServer) handleListHistory(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 200 {
		limit = 200
	}

	entries, err := s.history.List(r.Context(), userID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleCreateHistory lets the frontend insert an entry directly. The
// owner is always the authenticated user, whatever the body says.
func (s *APIServer) handleCreateHistory(w http.ResponseWriter, r *http.Request) {
	var entry HistoryEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	entry.ID = ""
	entry.CreatedAt = time.Time{}
	entry.UserID = requestUserID(r)

	if err := s.history.Append(r.Context(), &entry); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

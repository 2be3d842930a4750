package main

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestStatsCountersAndSnapshot(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()
	_, token := newTestUser(t, s)

	// Two successful runs and one assistant call.
	for i := 0; i < 2; i++ {
		rec := doJSON(t, s, "POST", "/api/run", token, map[string]string{
			"language": "python",
			"code":     "print(1)",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("run status=%d body=%s", rec.Code, rec.Body.String())
		}
	}
	rec := doJSON(t, s, "POST", "/api/ai", token, map[string]string{"code": "print(1)"})
	if rec.Code != http.StatusOK {
		t.Fatalf("ai status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, "GET", "/api/stats", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status=%d", rec.Code)
	}
	var resp struct {
		Actions        map[string]string `json:"actions"`
		RunsByLanguage map[string]string `json:"runsByLanguage"`
	}
	decodeBody(t, rec, &resp)
	if resp.Actions["run"] != "2" || resp.Actions["ai"] != "1" {
		t.Fatalf("action counters: %v", resp.Actions)
	}
	if resp.RunsByLanguage["python"] != "2" {
		t.Fatalf("language counters: %v", resp.RunsByLanguage)
	}

	// Snapshot copies the counters to the dated key.
	if err := s.snapshotStats(context.Background()); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	key := "stats:daily:" + time.Now().UTC().Format("2006-01-02")
	fields, err := s.redis.HGetAll(context.Background(), key).Result()
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if fields["action:run"] != "2" || fields["language:python"] != "2" {
		t.Fatalf("snapshot fields: %v", fields)
	}
}

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
)

// --------- Usage stats ---------

const (
	statsActionsKey       = "stats:actions"
	statsRunsByLangKey    = "stats:runs_by_language"
	statsDailyKeyTemplate = "stats:daily:%s"
)

// bumpStats increments the usage counters for one recorded outcome.
// Failures are logged only; counters are best-effort.
func (s *APIServer) bumpStats(ctx context.Context, entry *HistoryEntry) {
	if err := s.redis.HIncrBy(ctx, statsActionsKey, entry.Action, 1).Err(); err != nil {
		log.Printf("⚠️ [STATS] Failed to bump action counter: %v", err)
		return
	}
	if entry.Action == ActionRun && entry.Error == "" && entry.Language != "" {
		if err := s.redis.HIncrBy(ctx, statsRunsByLangKey, entry.Language, 1).Err(); err != nil {
			log.Printf("⚠️ [STATS] Failed to bump language counter: %v", err)
		}
	}
}

func (s *APIServer) handleStats(w http.ResponseWriter, r *http.Request) {
	actions, err := s.redis.HGetAll(r.Context(), statsActionsKey).Result()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	byLanguage, err := s.redis.HGetAll(r.Context(), statsRunsByLangKey).Result()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"actions":        actions,
		"runsByLanguage": byLanguage,
	})
}

// StartStatsSnapshots schedules a daily midnight-UTC snapshot of the
// counters so dashboards can chart usage over time.
func (s *APIServer) StartStatsSnapshots() *cron.Cron {
	c := cron.New(cron.WithLocation(time.UTC))
	_, err := c.AddFunc("0 0 * * *", func() {
		if err := s.snapshotStats(context.Background()); err != nil {
			log.Printf("⚠️ [STATS] Daily snapshot failed: %v", err)
		}
	})
	if err != nil {
		log.Printf("⚠️ [STATS] Could not schedule daily snapshot: %v", err)
		return c
	}
	c.Start()
	log.Printf("⏰ [STATS] Scheduled daily usage snapshot (midnight UTC)")
	return c
}

func (s *APIServer) snapshotStats(ctx context.Context) error {
	actions, err := s.redis.HGetAll(ctx, statsActionsKey).Result()
	if err != nil {
		return err
	}
	byLanguage, err := s.redis.HGetAll(ctx, statsRunsByLangKey).Result()
	if err != nil {
		return err
	}

	key := fmt.Sprintf(statsDailyKeyTemplate, time.Now().UTC().Format("2006-01-02"))
	fields := make([]interface{}, 0, 2*(len(actions)+len(byLanguage)))
	for action, count := range actions {
		fields = append(fields, "action:"+action, count)
	}
	for language, count := range byLanguage {
		fields = append(fields, "language:"+language, count)
	}
	if len(fields) == 0 {
		return nil
	}
	if err := s.redis.HSet(ctx, key, fields...).Err(); err != nil {
		return err
	}
	log.Printf("📊 [STATS] Snapshot written to %s", key)
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"github.com/Sai-95964/codecraft-ide/eventbus"
)

// --------- API server ---------

// APIServer wires the HTTP surface to the Redis-backed stores and the
// two outbound gateways (execution engine, LLM).
type APIServer struct {
	config   *ServerConfig
	router   *mux.Router
	redis    *redis.Client
	files    *FileStorage
	history  *HistoryStore
	users    *UserStore
	piston   *PistonClient
	llm      *LLMClient
	eventBus *eventbus.NATSBus
}

func NewAPIServer(config *ServerConfig) *APIServer {
	rdb := redis.NewClient(&redis.Options{Addr: config.RedisAddr})

	s := &APIServer{
		config:  config,
		router:  mux.NewRouter(),
		redis:   rdb,
		files:   NewFileStorage(rdb),
		history: NewHistoryStore(rdb),
		users:   NewUserStore(rdb, time.Duration(config.SessionTTLHrs)*time.Hour),
		piston:  NewPistonClient(config.PistonURL),
		llm: NewLLMClient(LLMConfig{
			APIKey:     config.Gemini.APIKey,
			Model:      config.Gemini.Model,
			APIVersion: config.Gemini.APIVersion,
		}),
	}

	if config.NATSURL != "" {
		bus, err := eventbus.NewNATSBus(eventbus.Config{URL: config.NATSURL})
		if err != nil {
			log.Printf("⚠️ [EVENTS] NATS unavailable, continuing without event bus: %v", err)
		} else {
			s.eventBus = bus
			log.Printf("📡 [EVENTS] Publishing events to %s", config.NATSURL)
		}
	}

	s.setupRoutes()
	return s
}

func (s *APIServer) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/", s.handleWelcome).Methods("GET")

	// Auth
	s.router.HandleFunc("/api/auth/register", s.handleRegister).Methods("POST")
	s.router.HandleFunc("/api/auth/login", s.handleLogin).Methods("POST")
	s.router.Handle("/api/auth/me", s.requireAuth(s.handleMe)).Methods("GET")

	// Code execution
	s.router.Handle("/api/run", s.requireAuth(s.handleRun)).Methods("POST")

	// AI assistant
	s.router.Handle("/api/ai", s.requireAuth(s.handleAsk)).Methods("POST")

	// Files
	s.router.Handle("/api/files", s.requireAuth(s.handleListFiles)).Methods("GET")
	s.router.Handle("/api/files", s.requireAuth(s.handleCreateFile)).Methods("POST")
	s.router.Handle("/api/files/upload", s.requireAuth(s.handleUploadFile)).Methods("POST")
	s.router.Handle("/api/files/{id}", s.requireAuth(s.handleGetFile)).Methods("GET")

	// History
	s.router.Handle("/api/history", s.requireAuth(s.handleListHistory)).Methods("GET")
	s.router.Handle("/api/history", s.requireAuth(s.handleCreateHistory)).Methods("POST")

	// Usage stats
	s.router.Handle("/api/stats", s.requireAuth(s.handleStats)).Methods("GET")
}

// Start runs the HTTP server until the context is cancelled, then shuts
// down gracefully.
func (s *APIServer) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	// CORS wraps the whole router so preflight requests get answered
	// even when no route matches.
	server := &http.Server{
		Addr:    addr,
		Handler: corsMiddleware(s.router),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("🚀 [SERVER] Listening on %s", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Printf("🛑 [SERVER] Shutting down")
		if s.eventBus != nil {
			s.eventBus.Close()
		}
		return server.Shutdown(shutdownCtx)
	}
}

func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Server is running",
	})
}

func (s *APIServer) handleWelcome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to CodeCraft IDE API",
	})
}

// recordHistory appends the audit entry, bumps usage counters and, when
// an event bus is configured, publishes the outcome event. Counter and
// event failures never fail the request.
func (s *APIServer) recordHistory(ctx context.Context, entry *HistoryEntry) error {
	if err := s.history.Append(ctx, entry); err != nil {
		return err
	}

	s.bumpStats(ctx, entry)

	if s.eventBus != nil {
		evt := eventbus.Event{
			Type:     outcomeEventType(entry),
			UserID:   entry.UserID,
			Language: entry.Language,
		}
		if err := s.eventBus.Publish(ctx, evt); err != nil {
			log.Printf("⚠️ [EVENTS] Failed to publish %s event: %v", evt.Type, err)
		}
	}
	return nil
}

func outcomeEventType(entry *HistoryEntry) string {
	switch {
	case entry.Action == ActionRun && entry.Error == "":
		return eventbus.TypeRunCompleted
	case entry.Action == ActionRun:
		return eventbus.TypeRunFailed
	case entry.Error == "":
		return eventbus.TypeAICompleted
	default:
		return eventbus.TypeAIFailed
	}
}

// --------- HTTP helpers ---------

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

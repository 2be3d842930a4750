package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// --------- Users and sessions ---------
//
// Authentication is a thin collaborator: everything downstream of the
// middleware only ever sees a verified opaque user id. Sessions are
// opaque tokens stored in Redis with a TTL rather than signed tokens.

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

type UserStore struct {
	client     *redis.Client
	sessionTTL time.Duration
}

func NewUserStore(client *redis.Client, sessionTTL time.Duration) *UserStore {
	return &UserStore{client: client, sessionTTL: sessionTTL}
}

func userKey(id string) string {
	return fmt.Sprintf("user:%s", id)
}

func emailIndexKey(email string) string {
	return fmt.Sprintf("user:email:%s", email)
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

// Register creates a user. The SetNX on the email index is the only
// synchronization needed: the second of two concurrent registrations for
// the same email loses.
func (us *UserStore) Register(ctx context.Context, name, email, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 10)
	if err != nil {
		return nil, err
	}

	user := &User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		Username:     email,
		Role:         "user",
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	ok, err := us.client.SetNX(ctx, emailIndexKey(email), user.ID, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to index user email: %v", err)
	}
	if !ok {
		return nil, fmt.Errorf("Email already registered")
	}

	err = us.client.HSet(ctx, userKey(user.ID),
		"id", user.ID,
		"name", user.Name,
		"email", user.Email,
		"username", user.Username,
		"role", user.Role,
		"password_hash", user.PasswordHash,
		"created_at", user.CreatedAt.Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to store user: %v", err)
	}
	return user, nil
}

func (us *UserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	id, err := us.client.Get(ctx, emailIndexKey(email)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	return us.FindByID(ctx, id)
}

func (us *UserStore) FindByID(ctx context.Context, id string) (*User, error) {
	fields, err := us.client.HGetAll(ctx, userKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	createdAt, _ := time.Parse(time.RFC3339Nano, fields["created_at"])
	return &User{
		ID:           fields["id"],
		Name:         fields["name"],
		Email:        fields["email"],
		Username:     fields["username"],
		Role:         fields["role"],
		PasswordHash: fields["password_hash"],
		CreatedAt:    createdAt,
	}, nil
}

// IssueSession creates an opaque bearer token bound to the user.
func (us *UserStore) IssueSession(ctx context.Context, userID string) (string, error) {
	token := uuid.NewString()
	if err := us.client.Set(ctx, sessionKey(token), userID, us.sessionTTL).Err(); err != nil {
		return "", fmt.Errorf("failed to store session: %v", err)
	}
	return token, nil
}

// ResolveSession returns the user id a token belongs to, or "" when the
// token is unknown or expired.
func (us *UserStore) ResolveSession(ctx context.Context, token string) (string, error) {
	userID, err := us.client.Get(ctx, sessionKey(token)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", err
	}
	return userID, nil
}

// --------- Auth middleware ---------

type userIDContextKey struct{}

func requestUserID(r *http.Request) string {
	if id, ok := r.Context().Value(userIDContextKey{}).(string); ok {
		return id
	}
	return ""
}

func extractBearerToken(headerValue string) string {
	if strings.HasPrefix(headerValue, "Bearer ") {
		return strings.TrimSpace(headerValue[7:])
	}
	return ""
}

// requireAuth rejects requests without a valid session and stashes the
// verified user id in the request context.
func (s *APIServer) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		userID, err := s.users.ResolveSession(r.Context(), token)
		if err != nil || userID == "" {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDContextKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// --------- Auth HTTP handlers ---------

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

func (s *APIServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Missing fields")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.users.Register(r.Context(), req.Name, email, req.Password)
	if err != nil {
		if err.Error() == "Email already registered" {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("❌ [AUTH] Register failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	token, err := s.users.IssueSession(r.Context(), user.ID)
	if err != nil {
		log.Printf("❌ [AUTH] Session issue failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (s *APIServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Missing fields")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.users.FindByEmail(r.Context(), email)
	if err != nil {
		log.Printf("❌ [AUTH] Login lookup failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "No user found")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusBadRequest, "Invalid credentials")
		return
	}

	token, err := s.users.IssueSession(r.Context(), user.ID)
	if err != nil {
		log.Printf("❌ [AUTH] Session issue failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (s *APIServer) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.FindByID(r.Context(), requestUserID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]*User{"user": user})
}

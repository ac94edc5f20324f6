package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/hoopleague/chat-backend/internal/auth"
	"github.com/hoopleague/chat-backend/internal/session"
	"github.com/hoopleague/chat-backend/internal/users"
)

type credentials struct {
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
	Password string `json:"password"`
}

type userPayload struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	Username string   `json:"username"`
	Roles    []string `json:"roles,omitempty"`
	IsAdmin  bool     `json:"isAdmin"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func toPayload(u *users.User) userPayload {
	return userPayload{
		ID:       u.ID.Hex(),
		Email:    u.Email,
		Username: u.Username,
		Roles:    u.Roles,
		IsAdmin:  u.IsAdmin(),
	}
}

func Signup(userStore *users.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		creds.Email = strings.ToLower(strings.TrimSpace(creds.Email))
		if creds.Email == "" || creds.Username == "" || creds.Password == "" {
			http.Error(w, "email, username and password required", http.StatusBadRequest)
			return
		}

		hash, err := auth.HashPassword(creds.Password)
		if err != nil {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}

		u := &users.User{Email: creds.Email, Username: creds.Username, PasswordHash: hash}
		if err := userStore.Create(r.Context(), u); err != nil {
			if errors.Is(err, users.ErrEmailTaken) {
				http.Error(w, "email already registered", http.StatusConflict)
				return
			}
			logger.Error("signup failed", zap.Error(err))
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, toPayload(u))
	}
}

func Login(userStore *users.Store, sessions *session.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		creds.Email = strings.ToLower(strings.TrimSpace(creds.Email))
		if creds.Email == "" || creds.Password == "" {
			http.Error(w, "email and password required", http.StatusBadRequest)
			return
		}

		u, err := userStore.FindByEmail(r.Context(), creds.Email)
		if errors.Is(err, users.ErrNotFound) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		if err != nil {
			logger.Error("login lookup failed", zap.Error(err))
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		if auth.ComparePassword(u.PasswordHash, creds.Password) != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}

		cookie, err := sessions.Create(r.Context(), session.Identity{
			UserID:      u.ID.Hex(),
			DisplayName: u.Username,
			IsAdmin:     u.IsAdmin(),
		})
		if err != nil {
			logger.Error("session create failed", zap.Error(err))
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		http.SetCookie(w, cookie)
		writeJSON(w, http.StatusOK, toPayload(u))
	}
}

func Logout(sessions *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cleared, _ := sessions.Destroy(r.Context(), r)
		http.SetCookie(w, cleared)
		writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
	}
}

func Me(userStore *users.Store, sessions *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := sessions.Resolve(r)
		if err != nil {
			http.Error(w, "not logged in", http.StatusUnauthorized)
			return
		}
		u, err := userStore.FindByID(r.Context(), ident.UserID)
		if err != nil {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, toPayload(u))
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

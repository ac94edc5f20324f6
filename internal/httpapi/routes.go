package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hoopleague/chat-backend/internal/chat"
	"github.com/hoopleague/chat-backend/internal/rooms"
	"github.com/hoopleague/chat-backend/internal/session"
	"github.com/hoopleague/chat-backend/internal/users"
)

// SetupRoutes builds the router shared by the REST API and the chat
// upgrade endpoint; both live on the same listener.
func SetupRoutes(reg *rooms.Registry, userStore *users.Store, sessions *session.Store, logger *zap.Logger, origins []string) http.Handler {
	r := chi.NewRouter()

	r.Post("/api/auth/signup", Signup(userStore, logger))
	r.Post("/api/auth/login", Login(userStore, sessions, logger))
	r.Post("/api/auth/logout", Logout(sessions))
	r.Get("/api/auth/me", Me(userStore, sessions))
	r.Get("/healthz", Healthz)

	relay := chat.Handler(reg, sessions, logger, origins)
	r.Get("/chat", relay)
	r.Get("/chat/*", relay)
	return r
}

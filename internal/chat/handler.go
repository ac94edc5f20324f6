package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hoopleague/chat-backend/internal/rooms"
	"github.com/hoopleague/chat-backend/internal/session"
)

// Handler upgrades GET /chat/<slug> requests into room-scoped chat
// connections. The session is resolved before the handshake completes,
// so an unauthenticated socket never reaches a room.
func Handler(reg *rooms.Registry, sessions session.Resolver, logger *zap.Logger, origins []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room := RoomKey(r.URL.Path)

		ident, err := sessions.Resolve(r)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: origins,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan []byte, 8)
		connID := uuid.NewString()

		reg.Inbox() <- rooms.Join{Room: room, ConnID: connID, Outbox: out}
		defer func() { reg.Inbox() <- rooms.Leave{Room: room, ConnID: connID} }()

		logger.Info("user connected",
			zap.String("room", room), zap.String("user", ident.DisplayName))
		defer logger.Info("user disconnected",
			zap.String("room", room), zap.String("user", ident.DisplayName))

		// Writer goroutine; exits when the registry closes the outbox.
		writeCtx, writeCancel := context.WithCancel(context.Background())
		defer writeCancel()
		go func() {
			for payload := range out {
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				err := conn.Write(ctx, websocket.MessageText, payload)
				cancel()
				if err != nil {
					return
				}
			}
		}()

		// Reader loop. Chat connections idle between games, so reads get
		// no deadline; the loop ends when the transport closes.
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				// Graceful close and error converge here; the deferred
				// Leave is the single cleanup path.
				return
			}

			var in inbound
			if err := json.Unmarshal(data, &in); err != nil {
				_ = conn.Write(r.Context(), websocket.MessageText, []byte(errInvalidJSON))
				continue
			}
			body, ok := in.Message.(string)
			if !ok || body == "" {
				_ = conn.Write(r.Context(), websocket.MessageText, []byte(errBodyNotString))
				continue
			}

			// Sender name comes from the session, never from in.Username.
			payload, _ := json.Marshal(Envelope{
				Slug:     room,
				Username: ident.DisplayName,
				Message:  body,
			})
			reg.Inbox() <- rooms.Broadcast{Room: room, Payload: payload}
		}
	}
}

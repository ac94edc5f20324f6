package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/hoopleague/chat-backend/internal/rooms"
	"github.com/hoopleague/chat-backend/internal/session"
)

type stubResolver struct {
	ident session.Identity
	err   error
}

func (s stubResolver) Resolve(*http.Request) (session.Identity, error) {
	if s.err != nil {
		return session.Identity{}, s.err
	}
	return s.ident, nil
}

func newTestServer(t *testing.T, resolver session.Resolver) (*httptest.Server, *rooms.Registry) {
	t.Helper()
	reg := rooms.NewRegistry(context.Background())
	srv := httptest.NewServer(Handler(reg, resolver, zap.NewNop(), nil))
	t.Cleanup(srv.Close)
	return srv, reg
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, []byte(frame)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func read(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal %q: %v", data, err)
	}
	return m
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, data, err := conn.Read(ctx); err == nil {
		t.Fatalf("expected no delivery, got %q", data)
	}
}

func members(reg *rooms.Registry, room string) int {
	reply := make(chan rooms.View, 1)
	reg.Inbox() <- rooms.GetState{Reply: reply}
	return (<-reply).Members[room]
}

func waitMembers(t *testing.T, reg *rooms.Registry, room string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if members(reg, room) == n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("room %q never reached %d members", room, n)
}

func TestHandler_RejectsUpgradeWithoutSession(t *testing.T) {
	srv, reg := newTestServer(t, stubResolver{err: session.ErrNoSession})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/teamA"
	_, resp, err := websocket.Dial(ctx, url, nil)
	if err == nil {
		t.Fatal("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 response, got %+v", resp)
	}
	if got := members(reg, "teamA"); got != 0 {
		t.Fatalf("rejected upgrade registered a connection: %d", got)
	}
}

func TestHandler_BroadcastStampsSessionIdentity(t *testing.T) {
	srv, reg := newTestServer(t, stubResolver{
		ident: session.Identity{UserID: "u1", DisplayName: "coach_dana"},
	})

	c1 := dial(t, srv, "/chat/courtside")
	c2 := dial(t, srv, "/chat/courtside")
	waitMembers(t, reg, "courtside", 2)

	// Client-supplied username must not survive the relay.
	send(t, c1, `{"message":"tip off","username":"spoofed"}`)

	for _, conn := range []*websocket.Conn{c1, c2} {
		got := read(t, conn)
		if got["slug"] != "courtside" || got["username"] != "coach_dana" || got["message"] != "tip off" {
			t.Fatalf("unexpected envelope: %v", got)
		}
	}
}

func TestHandler_RoomsAreIsolated(t *testing.T) {
	srv, reg := newTestServer(t, stubResolver{
		ident: session.Identity{UserID: "u1", DisplayName: "ref"},
	})

	c1 := dial(t, srv, "/chat/teamA")
	c2 := dial(t, srv, "/chat/teamB")
	waitMembers(t, reg, "teamA", 1)
	waitMembers(t, reg, "teamB", 1)

	send(t, c1, `{"message":"hi"}`)

	if got := read(t, c1); got["message"] != "hi" {
		t.Fatalf("sender did not get its own message back: %v", got)
	}
	expectSilence(t, c2)
}

func TestHandler_MalformedInputRepliesOnlyToSender(t *testing.T) {
	srv, reg := newTestServer(t, stubResolver{
		ident: session.Identity{UserID: "u1", DisplayName: "scorekeeper"},
	})

	sender := dial(t, srv, "/chat/gym2")
	observer := dial(t, srv, "/chat/gym2")
	waitMembers(t, reg, "gym2", 2)

	send(t, sender, `this is not json`)
	if got := read(t, sender); got["error"] != "Invalid JSON format" {
		t.Fatalf("unexpected reply: %v", got)
	}

	send(t, sender, `{"message":123}`)
	if got := read(t, sender); got["error"] != "Message must be a string" {
		t.Fatalf("unexpected reply: %v", got)
	}

	// The connection stays usable and the observer saw none of it.
	send(t, sender, `{"message":"halftime"}`)
	if got := read(t, observer); got["message"] != "halftime" {
		t.Fatalf("observer should only see the valid broadcast: %v", got)
	}
	expectSilence(t, observer)
}

func TestHandler_EmptySlugFallsBackToDefaultRoom(t *testing.T) {
	srv, reg := newTestServer(t, stubResolver{
		ident: session.Identity{UserID: "u1", DisplayName: "fan"},
	})

	bare := dial(t, srv, "/chat")
	named := dial(t, srv, "/chat/default")
	waitMembers(t, reg, "default", 2)

	send(t, bare, `{"message":"anyone here?"}`)
	if got := read(t, named); got["slug"] != "default" || got["message"] != "anyone here?" {
		t.Fatalf("unexpected envelope: %v", got)
	}
}

func TestHandler_DisconnectRemovesRoom(t *testing.T) {
	srv, reg := newTestServer(t, stubResolver{
		ident: session.Identity{UserID: "u1", DisplayName: "fan"},
	})

	conn := dial(t, srv, "/chat/emptiable")
	waitMembers(t, reg, "emptiable", 1)

	_ = conn.Close(websocket.StatusNormalClosure, "")
	waitMembers(t, reg, "emptiable", 0)

	// A rejoin behaves like a first-ever join.
	dial(t, srv, "/chat/emptiable")
	waitMembers(t, reg, "emptiable", 1)
}

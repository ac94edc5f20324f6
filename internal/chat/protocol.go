package chat

import "strings"

// Client -> Server, one JSON text frame per message:
//
//	message:  string, required
//	username: string, optional; ignored here because the sender name
//	          always comes from the session identity
//
// Server -> Client, broadcast to the whole room:
//
//	slug:     room key the message was posted to
//	username: sender display name
//	message:  the validated body
//
// Error replies go only to the offending connection.
type inbound struct {
	Message  any    `json:"message"`
	Username string `json:"username,omitempty"`
}

type Envelope struct {
	Slug     string `json:"slug"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

const (
	errInvalidJSON   = `{"error":"Invalid JSON format"}`
	errBodyNotString = `{"error":"Message must be a string"}`
)

// RoomKey extracts the room slug from an upgrade path under /chat: the
// segment after the final '/'. An empty segment falls back to "default";
// anything else is accepted verbatim.
func RoomKey(path string) string {
	slug := strings.TrimPrefix(path, "/chat")
	slug = slug[strings.LastIndexByte(slug, '/')+1:]
	if slug == "" {
		return "default"
	}
	return slug
}

package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

// CookieName is the session cookie set at login and read at every
// authenticated request, including the websocket upgrade.
const CookieName = "sid"

// ErrNoSession means the request carries no valid, unexpired session.
var ErrNoSession = errors.New("no valid session")

// Identity is the authenticated principal behind a session. It is
// resolved once and treated as immutable afterwards.
type Identity struct {
	UserID      string
	DisplayName string
	IsAdmin     bool
}

// Resolver maps an incoming request to the identity of its session.
// Returns ErrNoSession when the cookie is missing, tampered, unknown
// or expired.
type Resolver interface {
	Resolve(r *http.Request) (Identity, error)
}

// sign produces the cookie value for a session id: the id plus an
// HMAC-SHA256 tag, so a client cannot mint or alter ids.
func sign(secret []byte, sid string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(sid))
	return sid + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// verify checks a cookie value's tag and returns the embedded session id.
func verify(secret []byte, value string) (string, bool) {
	i := strings.LastIndexByte(value, '.')
	if i <= 0 {
		return "", false
	}
	sid := value[:i]
	if !hmac.Equal([]byte(sign(secret, sid)), []byte(value)) {
		return "", false
	}
	return sid, true
}

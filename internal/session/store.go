package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type record struct {
	SID         string    `bson:"_id"`
	UserID      string    `bson:"user_id"`
	DisplayName string    `bson:"display_name"`
	IsAdmin     bool      `bson:"is_admin"`
	ExpiresAt   time.Time `bson:"expires_at"`
}

// Store keeps sessions in the platform's sessions collection. It is both
// the producer side (Create/Destroy, used by the login handlers) and the
// Resolver consumed by the chat upgrade gate.
type Store struct {
	col    *mongo.Collection
	secret []byte
	ttl    time.Duration
}

func NewStore(db *mongo.Database, secret []byte, ttl time.Duration) *Store {
	return &Store{col: db.Collection("sessions"), secret: secret, ttl: ttl}
}

// EnsureIndexes sets the TTL index so Mongo reaps expired sessions on
// its own; Resolve still checks expiry because the reaper is periodic.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	return err
}

// Create stores a new session for ident and returns the cookie to set.
func (s *Store) Create(ctx context.Context, ident Identity) (*http.Cookie, error) {
	rec := record{
		SID:         uuid.NewString(),
		UserID:      ident.UserID,
		DisplayName: ident.DisplayName,
		IsAdmin:     ident.IsAdmin,
		ExpiresAt:   time.Now().Add(s.ttl),
	}
	if _, err := s.col.InsertOne(ctx, rec); err != nil {
		return nil, err
	}
	return &http.Cookie{
		Name:     CookieName,
		Value:    sign(s.secret, rec.SID),
		Path:     "/",
		MaxAge:   int(s.ttl / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// Destroy deletes the request's session, if any, and returns an expired
// cookie to clear the client's copy.
func (s *Store) Destroy(ctx context.Context, r *http.Request) (*http.Cookie, error) {
	cleared := &http.Cookie{Name: CookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true}
	c, err := r.Cookie(CookieName)
	if err != nil {
		return cleared, nil
	}
	sid, ok := verify(s.secret, c.Value)
	if !ok {
		return cleared, nil
	}
	if _, err := s.col.DeleteOne(ctx, bson.M{"_id": sid}); err != nil {
		return cleared, err
	}
	return cleared, nil
}

// Resolve implements Resolver against the sessions collection.
func (s *Store) Resolve(r *http.Request) (Identity, error) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return Identity{}, ErrNoSession
	}
	sid, ok := verify(s.secret, c.Value)
	if !ok {
		return Identity{}, ErrNoSession
	}

	var rec record
	err = s.col.FindOne(r.Context(), bson.M{"_id": sid}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Identity{}, ErrNoSession
	}
	if err != nil {
		return Identity{}, err
	}
	if time.Now().After(rec.ExpiresAt) {
		return Identity{}, ErrNoSession
	}
	return Identity{UserID: rec.UserID, DisplayName: rec.DisplayName, IsAdmin: rec.IsAdmin}, nil
}

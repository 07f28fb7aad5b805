// Package creds persists the authenticated session (token plus account)
// between runs, and inspects the session JWT for expiry. Tokens are issued
// and signed by the backend; the client only reads claims, it never verifies
// the signature (it does not hold the signing key).
package creds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"github.com/styleslot/styleslot-go/internal/api"
	"github.com/styleslot/styleslot-go/internal/appointment"
)

// ErrNotFound means no credentials have been saved.
var ErrNotFound = errors.New("creds: no stored credentials")

// Credentials couples the session token with the account it belongs to.
type Credentials struct {
	Token string   `json:"token"`
	User  api.User `json:"user"`
}

// Store persists one set of credentials.
type Store interface {
	Save(ctx context.Context, c Credentials) error
	Load(ctx context.Context) (Credentials, error)
	Clear(ctx context.Context) error
}

// TokenExpiry extracts the exp claim from a session JWT. A zero time with nil
// error means the token carries no expiry.
func TokenExpiry(token string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("creds: parse token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}

// sessionClaims is the backend's JWT payload: standard claims plus the
// account role.
type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ViewerFromToken rebuilds the eligibility actor from the session JWT's sub
// and role claims. It lets a restarted process act for the right account even
// before its first API call.
func ViewerFromToken(token string) (appointment.Viewer, error) {
	claims := sessionClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return appointment.Viewer{}, fmt.Errorf("creds: parse token: %w", err)
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return appointment.Viewer{}, fmt.Errorf("creds: token subject %q: %w", claims.Subject, err)
	}
	role := appointment.Role(claims.Role)
	if role != appointment.RoleCustomer && role != appointment.RoleStylist {
		return appointment.Viewer{}, fmt.Errorf("creds: token carries unknown role %q", claims.Role)
	}
	return appointment.Viewer{ID: id, Role: role}, nil
}

// Expired reports whether the credentials' token has an expiry in the past.
// Malformed tokens count as expired.
func Expired(c Credentials, now time.Time) bool {
	exp, err := TokenExpiry(c.Token)
	if err != nil {
		return true
	}
	if exp.IsZero() {
		return false
	}
	return exp.Before(now)
}

// MemoryStore keeps credentials for the process lifetime only.
type MemoryStore struct {
	mu    sync.Mutex
	creds *Credentials
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(ctx context.Context, c Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := c
	s.creds = &copied
	return nil
}

func (s *MemoryStore) Load(ctx context.Context) (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds == nil {
		return Credentials{}, ErrNotFound
	}
	return *s.creds, nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = nil
	return nil
}

const redisKey = "styleslot:credentials"

// RedisStore persists credentials in Redis so a restarted agent can resume
// its session. When the token carries an expiry the key expires with it.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		panic("creds: redis client required")
	}
	return &RedisStore{client: client}
}

func (s *RedisStore) Save(ctx context.Context, c Credentials) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("creds: marshal credentials: %w", err)
	}
	var ttl time.Duration
	if exp, err := TokenExpiry(c.Token); err == nil && !exp.IsZero() {
		ttl = time.Until(exp)
		if ttl <= 0 {
			return fmt.Errorf("creds: token already expired")
		}
	}
	if err := s.client.Set(ctx, redisKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("creds: persist credentials: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context) (Credentials, error) {
	data, err := s.client.Get(ctx, redisKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Credentials{}, ErrNotFound
		}
		return Credentials{}, fmt.Errorf("creds: load credentials: %w", err)
	}
	var c Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return Credentials{}, fmt.Errorf("creds: decode credentials: %w", err)
	}
	return c, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, redisKey).Err(); err != nil {
		return fmt.Errorf("creds: clear credentials: %w", err)
	}
	return nil
}

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tienda-labs/storefront/internal/cart"
	"github.com/tienda-labs/storefront/internal/redisx"
)

var ErrMiss = errors.New("session not found")

// KV is the injected session backend: a key-value store keyed by session id.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// RedisKV adapts a redis client to the KV interface.
type RedisKV struct{ C *redis.Client }

func (r RedisKV) Get(ctx context.Context, key string) (string, error) {
	v, err := r.C.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return v, err
}

func (r RedisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.C.Set(ctx, key, value, ttl).Err()
}

func (r RedisKV) Del(ctx context.Context, key string) error {
	return r.C.Del(ctx, key).Err()
}

// Session is everything the storefront keeps per visitor: the cart and,
// after login, the authenticated user id. It lives exactly as long as its
// key in the backend.
type Session struct {
	ID     string     `json:"id"`
	UserID int64      `json:"user_id,omitempty"`
	Cart   *cart.Cart `json:"cart"`
}

type Store struct {
	kv  KV
	ttl time.Duration
}

func NewStore(kv KV) *Store {
	return &Store{kv: kv, ttl: redisx.TTLSession}
}

func (s *Store) New() *Session {
	return &Session{ID: uuid.NewString(), Cart: cart.New()}
}

func (s *Store) Load(ctx context.Context, id string) (*Session, error) {
	raw, err := s.kv.Get(ctx, key(id))
	if err != nil {
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	if sess.Cart == nil {
		sess.Cart = cart.New()
	}
	return &sess, nil
}

func (s *Store) Save(ctx context.Context, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, key(sess.ID), string(raw), s.ttl)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.kv.Del(ctx, key(id))
}

func key(id string) string { return fmt.Sprintf(redisx.KeySession, id) }

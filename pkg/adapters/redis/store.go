package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aretw0/framesync/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the store and the locker.
const DefaultPrefix = "framesync:session:"

// Store keeps each session as a JSON document with an optional TTL.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL expires sessions ttl after their last save. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix replaces DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New connects to the server named by a redis:// URL.
func New(rawURL string, opts ...Option) (*Store, error) {
	cfg, err := backend.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	return NewFromClient(backend.NewClient(cfg), opts...), nil
}

func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Client exposes the underlying client, e.g. to share it with a Locker.
func (s *Store) Client() *backend.Client {
	return s.client
}

// Prefix returns the key prefix in use.
func (s *Store) Prefix() string {
	return s.prefix
}

func (s *Store) sessionKey(id string) string { return s.prefix + id }

// indexKey holds a sorted set of session IDs scored by expiry (unix seconds).
func (s *Store) indexKey() string { return s.prefix + "index" }

// noExpiry scores sessions saved without a TTL (2100-01-01).
const noExpiry = 4102444800

func (s *Store) expiry() float64 {
	if s.ttl == 0 {
		return noExpiry
	}
	return float64(time.Now().Add(s.ttl).Unix())
}

// Save writes the session document and refreshes its index entry atomically.
func (s *Store) Save(ctx context.Context, sessionID string, state *domain.SessionState) error {
	doc, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sessionID, err)
	}

	_, err = s.client.TxPipelined(ctx, func(tx backend.Pipeliner) error {
		tx.Set(ctx, s.sessionKey(sessionID), doc, s.ttl)
		tx.ZAdd(ctx, s.indexKey(), backend.Z{Score: s.expiry(), Member: sessionID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save %s: %w", sessionID, err)
	}
	return nil
}

// Load returns domain.ErrSessionNotFound for unknown or expired sessions.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	doc, err := s.client.Get(ctx, s.sessionKey(sessionID)).Bytes()
	switch {
	case errors.Is(err, backend.Nil):
		return nil, domain.ErrSessionNotFound
	case err != nil:
		return nil, fmt.Errorf("redis load %s: %w", sessionID, err)
	}

	state := new(domain.SessionState)
	if err := json.Unmarshal(doc, state); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return state, nil
}

func (s *Store) Delete(ctx context.Context, sessionID string) error {
	_, err := s.client.TxPipelined(ctx, func(tx backend.Pipeliner) error {
		tx.Del(ctx, s.sessionKey(sessionID))
		tx.ZRem(ctx, s.indexKey(), sessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete %s: %w", sessionID, err)
	}
	return nil
}

// List drops index entries whose documents have expired, then returns the rest.
func (s *Store) List(ctx context.Context) ([]string, error) {
	cutoff := strconv.FormatInt(time.Now().Unix(), 10)
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", cutoff).Err(); err != nil {
		return nil, fmt.Errorf("redis prune index: %w", err)
	}
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list sessions: %w", err)
	}
	return ids, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client, which a Locker built from Client() shares.
func (s *Store) Close() error {
	return s.client.Close()
}

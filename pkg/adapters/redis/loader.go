// Package redis shares funnel scripts between lander instances through Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aretw0/lander/internal/logging"
	"github.com/aretw0/lander/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key the Loader touches.
const DefaultPrefix = "lander:script:"

// Loader implements ports.ScriptLoader on top of Redis. Scripts are stored as JSON
// under prefix+id, and the set prefix+"index" lists the published IDs.
type Loader struct {
	client  *backend.Client
	prefix  string
	timeout time.Duration
	logger  *slog.Logger
}

type Option func(*Loader)

// WithPrefix sets the key prefix for scripts.
func WithPrefix(prefix string) Option {
	return func(l *Loader) {
		l.prefix = prefix
	}
}

// WithTimeout bounds each Load and List round trip.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) {
		l.timeout = d
	}
}

// WithLogger configures a logger for the Loader.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// New creates a Loader connected to a Redis server.
func New(address, password string, db int, opts ...Option) *Loader {
	return NewFromClient(backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	}), opts...)
}

// NewFromURL creates a Loader from a redis:// URL.
func NewFromURL(url string, opts ...Option) (*Loader, error) {
	o, err := backend.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewFromClient(backend.NewClient(o), opts...), nil
}

// NewFromClient creates a Loader from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Loader {
	l := &Loader{
		client:  client,
		prefix:  DefaultPrefix,
		timeout: 2 * time.Second,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loader) key(id string) string {
	return l.prefix + id
}

func (l *Loader) indexKey() string {
	return l.prefix + "index"
}

// Put validates and publishes a script, replacing any previous version.
func (l *Loader) Put(ctx context.Context, s *domain.Script) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal script: %w", err)
	}

	pipe := l.client.TxPipeline()
	pipe.Set(ctx, l.key(s.ID), data, 0)
	pipe.SAdd(ctx, l.indexKey(), s.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	l.logger.Debug("Script published", "funnel", s.ID, "bytes", len(data))
	return nil
}

// Delete unpublishes a script.
func (l *Loader) Delete(ctx context.Context, id string) error {
	pipe := l.client.TxPipeline()
	del := pipe.Del(ctx, l.key(id))
	pipe.SRem(ctx, l.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	if del.Val() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrFunnelNotFound, id)
	}
	return nil
}

// Load retrieves a script from Redis.
func (l *Loader) Load(id string) (*domain.Script, error) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	val, err := l.client.Get(ctx, l.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, fmt.Errorf("%w: %s", domain.ErrFunnelNotFound, id)
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var s domain.Script
	if err := json.Unmarshal(val, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal script %s: %w", id, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("script %s: %w", id, err)
	}
	return &s, nil
}

// List returns the published script IDs, sorted.
func (l *Loader) List() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	ids, err := l.client.SMembers(ctx, l.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list from redis: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Ping checks connectivity.
func (l *Loader) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close releases the client.
func (l *Loader) Close() error {
	return l.client.Close()
}

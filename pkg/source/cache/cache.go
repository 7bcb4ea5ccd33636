// Package cache wraps a protocol.Source with a Redis read-through cache for
// initial documents. Requests carrying an event, a batch, or server params
// always go to the upstream source.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-configpage/pkg/protocol"
)

const (
	defaultPrefix = "configpage:doc:"
	defaultTTL    = 5 * time.Minute
)

// Option customises a Source.
type Option func(*Source)

// WithTTL sets the expiry of cached documents.
func WithTTL(ttl time.Duration) Option {
	return func(s *Source) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithPrefix sets the Redis key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Source) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithLogger sets the logger for cache failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}

// Source caches upstream documents in Redis. Redis failures are logged and
// the upstream source is used instead.
type Source struct {
	upstream protocol.Source
	client   *redis.Client
	prefix   string
	ttl      time.Duration
	logger   zerolog.Logger
}

var _ protocol.Source = (*Source)(nil)

// New wraps upstream using an existing Redis client.
func New(upstream protocol.Source, client *redis.Client, options ...Option) (*Source, error) {
	if upstream == nil {
		return nil, errors.New("cache: upstream source is nil")
	}
	if client == nil {
		return nil, errors.New("cache: redis client is nil")
	}
	s := &Source{
		upstream: upstream,
		client:   client,
		prefix:   defaultPrefix,
		ttl:      defaultTTL,
		logger:   zerolog.Nop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s, nil
}

// Dial parses redisURL, connects, and wraps upstream.
func Dial(ctx context.Context, upstream protocol.Source, redisURL string, options ...Option) (*Source, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cache: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: connect to redis: %w", err)
	}
	return New(upstream, client, options...)
}

// Fetch serves cacheable requests from Redis and fills the cache on a miss.
func (s *Source) Fetch(ctx context.Context, req protocol.FetchRequest) (*protocol.Document, error) {
	if !Cacheable(req) {
		return s.upstream.Fetch(ctx, req)
	}

	key, err := s.Key(req.Identity())
	if err != nil {
		return s.upstream.Fetch(ctx, req)
	}

	raw, err := s.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		doc, decodeErr := protocol.Decode(raw)
		if decodeErr == nil {
			s.logger.Debug().Str("key", key).Str("request_id", req.RequestID).Msg("document cache hit")
			return doc, nil
		}
		s.logger.Warn().Err(decodeErr).Str("key", key).Msg("dropping undecodable cache entry")
		_ = s.client.Del(ctx, key).Err()
	case errors.Is(err, redis.Nil):
	default:
		s.logger.Warn().Err(err).Str("key", key).Msg("document cache read failed")
	}

	doc, err := s.upstream.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	encoded, err := protocol.Encode(doc)
	if err != nil {
		return doc, nil
	}
	if err := s.client.Set(ctx, key, encoded, s.ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("document cache write failed")
	}
	return doc, nil
}

// Invalidate removes the cached document for identity.
func (s *Source) Invalidate(ctx context.Context, identity protocol.Identity) error {
	key, err := s.Key(identity)
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache: invalidate %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis client.
func (s *Source) Close() error {
	return s.client.Close()
}

// Key derives the cache key for identity. encoding/json sorts map keys, so
// equal inParams always hash the same.
func (s *Source) Key(identity protocol.Identity) (string, error) {
	payload, err := json.Marshal(identity)
	if err != nil {
		return "", fmt.Errorf("cache: encode identity: %w", err)
	}
	sum := sha256.Sum256(payload)
	return s.prefix + identity.ScenarioKey + ":" + hex.EncodeToString(sum[:]), nil
}

// Cacheable reports whether req is an initial load: no event, batch, target,
// or server params.
func Cacheable(req protocol.FetchRequest) bool {
	return req.Event == nil &&
		len(req.Batch) == 0 &&
		req.Target == "" &&
		len(req.Params) == 0 &&
		len(req.Query) == 0
}

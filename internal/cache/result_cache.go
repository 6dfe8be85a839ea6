// Package cache memoizes assessment results in two tiers: an in-process
// expiring LRU and an optional shared store such as Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/oncovista-opd-server/internal/domain"
)

const (
	defaultLocalSize = 1000
	defaultTTL       = 24 * time.Hour
)

// RemoteStore is the shared tier of the cache
type RemoteStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Stats is a snapshot of cache counters
type Stats struct {
	LocalHits    int64  `json:"local_hits"`
	RemoteHits   int64  `json:"remote_hits"`
	Misses       int64  `json:"misses"`
	RemoteErrors int64  `json:"remote_errors"`
	Entries      int    `json:"entries"`
	RemoteState  string `json:"remote_state,omitempty"`
}

// ResultCache stores JSON-encoded values. Remote failures never fail a call;
// they are logged and counted, and repeated failures open the breaker so the
// remote tier is skipped until it recovers.
type ResultCache struct {
	local   *expirable.LRU[string, []byte]
	remote  RemoteStore
	breaker *gobreaker.CircuitBreaker
	ttl     time.Duration
	logger  *logrus.Logger

	localHits    atomic.Int64
	remoteHits   atomic.Int64
	misses       atomic.Int64
	remoteErrors atomic.Int64
}

// New creates a result cache. remote may be nil for a local-only cache.
func New(config domain.CacheConfig, remote RemoteStore, logger *logrus.Logger) *ResultCache {
	size := config.LocalSize
	if size <= 0 {
		size = defaultLocalSize
	}
	ttl := config.DefaultTTL
	if ttl <= 0 {
		ttl = defaultTTL
	}

	c := &ResultCache{
		local:  expirable.NewLRU[string, []byte](size, nil, ttl),
		remote: remote,
		ttl:    ttl,
		logger: logger,
	}

	if remote != nil {
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "result-cache-remote",
			MaxRequests: 5,
			Interval:    30 * time.Second,
			Timeout:     60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.WithFields(logrus.Fields{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("Cache circuit breaker changed state")
			},
		})
	}

	return c
}

// Get decodes the value stored under key into dest
func (c *ResultCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if data, ok := c.local.Get(key); ok {
		c.localHits.Add(1)
		c.logger.WithFields(logrus.Fields{"key": key, "cache_tier": "memory"}).Debug("Cache hit")
		if err := decode(data, dest); err != nil {
			c.local.Remove(key)
			return false, err
		}
		return true, nil
	}

	data, ok := c.getRemote(ctx, key)
	if !ok {
		c.misses.Add(1)
		return false, nil
	}

	if err := decode(data, dest); err != nil {
		c.misses.Add(1)
		return false, err
	}
	c.remoteHits.Add(1)
	c.local.Add(key, data)
	c.logger.WithFields(logrus.Fields{"key": key, "cache_tier": "redis"}).Debug("Cache hit")
	return true, nil
}

// Set encodes value and stores it in both tiers
func (c *ResultCache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	c.local.Add(key, data)

	if c.remote == nil {
		return nil
	}
	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.remote.Set(ctx, key, data, c.ttl)
	})
	if err != nil {
		c.remoteFailure(err, key)
	}
	return nil
}

// Stats returns the current counters
func (c *ResultCache) Stats() Stats {
	s := Stats{
		LocalHits:    c.localHits.Load(),
		RemoteHits:   c.remoteHits.Load(),
		Misses:       c.misses.Load(),
		RemoteErrors: c.remoteErrors.Load(),
		Entries:      c.local.Len(),
	}
	if c.breaker != nil {
		s.RemoteState = c.breaker.State().String()
	}
	return s
}

// Purge empties the local tier
func (c *ResultCache) Purge() {
	c.local.Purge()
}

func (c *ResultCache) getRemote(ctx context.Context, key string) ([]byte, bool) {
	if c.remote == nil {
		return nil, false
	}

	type result struct {
		data []byte
		ok   bool
	}
	out, err := c.breaker.Execute(func() (interface{}, error) {
		data, ok, err := c.remote.Get(ctx, key)
		return result{data, ok}, err
	})
	if err != nil {
		c.remoteFailure(err, key)
		return nil, false
	}
	r := out.(result)
	return r.data, r.ok
}

func (c *ResultCache) remoteFailure(err error, key string) {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return
	}
	c.remoteErrors.Add(1)
	c.logger.WithError(err).WithField("key", key).Warn("Remote cache tier failed")
}

func decode(data []byte, dest interface{}) error {
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return nil
}

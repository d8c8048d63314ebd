// Package ratelimit provides per-client admission control for the chat relay.
//
// The limiter combines a minimum inter-request delay with a fixed-ceiling
// window. Records live in an injected Store: the in-memory store for a single
// instance, or the Redis store when several instances sit behind a load
// balancer.
package ratelimit

import (
	"context"
	"time"
)

// Record tracks one client's admission history, keyed by an untrusted client
// identifier derived from a forwarded-for header.
type Record struct {
	Count      int       `json:"count"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// Store persists rate-limit records. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get retrieves a client's record. Returns nil, nil when no record exists.
	Get(ctx context.Context, clientID string) (*Record, error)

	// Set stores a client's record.
	Set(ctx context.Context, clientID string, rec Record) error

	// Close releases any resources held by the store.
	Close() error
}

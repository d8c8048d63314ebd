package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// Defaults for the admission policy.
const (
	DefaultMinDelay = 3 * time.Second
	DefaultWindow   = 60 * time.Second
	DefaultCeiling  = 10
)

// Config holds the admission policy knobs.
type Config struct {
	// MinDelay is the minimum time between two requests from one client.
	MinDelay time.Duration
	// Window is the rolling window length.
	Window time.Duration
	// Ceiling is the maximum admitted requests per window.
	Ceiling int
}

// DefaultConfig returns the stock policy: 3s between requests, at most
// 10 per 60s window.
func DefaultConfig() Config {
	return Config{
		MinDelay: DefaultMinDelay,
		Window:   DefaultWindow,
		Ceiling:  DefaultCeiling,
	}
}

// Limiter gates requests per client before they reach the relay.
type Limiter struct {
	store Store
	cfg   Config

	// now is injectable for tests.
	now func() time.Time
}

// New creates a limiter over the given store. Zero config fields fall back
// to the defaults.
func New(store Store, cfg Config) *Limiter {
	if cfg.MinDelay == 0 {
		cfg.MinDelay = DefaultMinDelay
	}
	if cfg.Window == 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Ceiling == 0 {
		cfg.Ceiling = DefaultCeiling
	}
	return &Limiter{store: store, cfg: cfg, now: time.Now}
}

// Admit decides whether a request from clientID may proceed.
//
// A first-time client is admitted and recorded. A client returning faster
// than MinDelay is rejected without touching its record. A client returning
// after the window has elapsed gets a fresh window. Otherwise the count is
// incremented and the request is rejected once the count passes the ceiling.
//
// Store failures are logged and the request is admitted: admission control
// degrading must never take the relay down with it.
func (l *Limiter) Admit(ctx context.Context, clientID string) bool {
	now := l.now()

	rec, err := l.store.Get(ctx, clientID)
	if err != nil {
		slog.Warn("rate-limit store read failed, admitting", "client_id", clientID, "error", err)
		return true
	}

	if rec == nil {
		l.set(ctx, clientID, Record{Count: 1, LastSeenAt: now})
		return true
	}

	elapsed := now.Sub(rec.LastSeenAt)

	// Too fast: reject without mutating, so a hammering client cannot push
	// its own window forward.
	if elapsed < l.cfg.MinDelay {
		return false
	}

	if elapsed > l.cfg.Window {
		l.set(ctx, clientID, Record{Count: 1, LastSeenAt: now})
		return true
	}

	rec.Count++
	rec.LastSeenAt = now
	l.set(ctx, clientID, *rec)

	return rec.Count <= l.cfg.Ceiling
}

func (l *Limiter) set(ctx context.Context, clientID string, rec Record) {
	if err := l.store.Set(ctx, clientID, rec); err != nil {
		slog.Warn("rate-limit store write failed", "client_id", clientID, "error", err)
	}
}

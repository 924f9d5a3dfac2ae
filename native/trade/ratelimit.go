package trade

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig bounds how frequently a single actor may perform trade
// actions, independent of trade semantics.
type RateLimitConfig struct {
	// Cooldown is the minimum wall-clock interval between an actor's
	// consecutive trade actions. Zero disables the cooldown.
	Cooldown time.Duration
	// BurstWindow and BurstCap bound the number of actions inside a rolling
	// window: at most BurstCap actions per BurstWindow.
	BurstWindow time.Duration
	BurstCap    int
}

type actorRate struct {
	limiter    *rate.Limiter
	lastAction time.Time
	acted      bool
}

// RateLimiter throttles trade actions per actor. Checking never consumes
// budget; callers record an action only after the commit succeeds.
type RateLimiter struct {
	mu     sync.Mutex
	cfg    RateLimitConfig
	actors map[string]*actorRate
	nowFn  func() time.Time
}

// NewRateLimiter constructs a limiter with the supplied bounds and clock. A
// nil clock falls back to time.Now.
func NewRateLimiter(cfg RateLimitConfig, now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	if cfg.BurstCap <= 0 {
		cfg.BurstCap = 1
	}
	if cfg.BurstWindow <= 0 {
		cfg.BurstWindow = time.Minute
	}
	return &RateLimiter{
		cfg:    cfg,
		actors: make(map[string]*actorRate),
		nowFn:  now,
	}
}

// CheckAction reports whether the actor may perform a trade action right now
// and, when denied, the reason. No budget is consumed.
func (r *RateLimiter) CheckAction(actorID string) (bool, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.nowFn()
	entry := r.obtain(actorID)
	if entry.acted && r.cfg.Cooldown > 0 && now.Sub(entry.lastAction) < r.cfg.Cooldown {
		return false, "cooldown between trade actions still active"
	}
	if entry.limiter.TokensAt(now) < 1 {
		return false, "too many trade actions in a short window"
	}
	return true, ""
}

// RecordAction consumes one unit of the actor's budget. Callers invoke it only
// after a successful commit, so a failed operation never burns budget.
func (r *RateLimiter) RecordAction(actorID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.nowFn()
	entry := r.obtain(actorID)
	entry.limiter.AllowN(now, 1)
	entry.lastAction = now
	entry.acted = true
}

func (r *RateLimiter) obtain(actorID string) *actorRate {
	entry, ok := r.actors[actorID]
	if ok {
		return entry
	}
	perSecond := float64(r.cfg.BurstCap) / r.cfg.BurstWindow.Seconds()
	entry = &actorRate{limiter: rate.NewLimiter(rate.Limit(perSecond), r.cfg.BurstCap)}
	r.actors[actorID] = entry
	return entry
}

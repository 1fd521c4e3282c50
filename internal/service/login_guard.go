package service

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"
)

// LoginGuardPolicy shapes the cooldown applied after failed logins:
// FreeAttempts failures are tolerated, then each further failure waits
// BaseDelay*Multiplier^n, capped at MaxDelay. Counters reset after
// ResetWindow without failures.
type LoginGuardPolicy struct {
	FreeAttempts int
	BaseDelay    time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	ResetWindow  time.Duration
}

// LoginGuard tracks failures per email and per client address independently;
// the longer of the two cooldowns applies.
type LoginGuard interface {
	Check(ctx context.Context, email, ip string) (time.Duration, error)
	RegisterFailure(ctx context.Context, email, ip string) (time.Duration, error)
	Reset(ctx context.Context, email, ip string) error
}

type NoopLoginGuard struct{}

func (NoopLoginGuard) Check(context.Context, string, string) (time.Duration, error) { return 0, nil }
func (NoopLoginGuard) RegisterFailure(context.Context, string, string) (time.Duration, error) {
	return 0, nil
}
func (NoopLoginGuard) Reset(context.Context, string, string) error { return nil }

type loginGuardEntry struct {
	failures      int
	lastFailureAt time.Time
	cooldownUntil time.Time
}

type InMemoryLoginGuard struct {
	mu     sync.Mutex
	policy LoginGuardPolicy
	data   map[string]loginGuardEntry
	now    func() time.Time
}

func NewInMemoryLoginGuard(policy LoginGuardPolicy) *InMemoryLoginGuard {
	return &InMemoryLoginGuard{
		policy: normalizeLoginGuardPolicy(policy),
		data:   make(map[string]loginGuardEntry),
		now:    time.Now,
	}
}

func (g *InMemoryLoginGuard) Check(_ context.Context, email, ip string) (time.Duration, error) {
	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()
	return max(g.activeLocked(now, guardKey("email", email)), g.activeLocked(now, guardKey("ip", ip))), nil
}

func (g *InMemoryLoginGuard) RegisterFailure(_ context.Context, email, ip string) (time.Duration, error) {
	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()
	return max(g.bumpLocked(now, guardKey("email", email)), g.bumpLocked(now, guardKey("ip", ip))), nil
}

func (g *InMemoryLoginGuard) Reset(_ context.Context, email, ip string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.data, guardKey("email", email))
	delete(g.data, guardKey("ip", ip))
	return nil
}

func (g *InMemoryLoginGuard) bumpLocked(now time.Time, key string) time.Duration {
	entry := g.data[key]
	if entry.lastFailureAt.IsZero() || now.Sub(entry.lastFailureAt) > g.policy.ResetWindow {
		entry.failures = 0
	}
	entry.failures++
	entry.lastFailureAt = now
	delay := g.policy.delayFor(entry.failures)
	entry.cooldownUntil = now.Add(delay)
	g.data[key] = entry
	return delay
}

func (g *InMemoryLoginGuard) activeLocked(now time.Time, key string) time.Duration {
	entry, ok := g.data[key]
	if !ok {
		return 0
	}
	if now.Sub(entry.lastFailureAt) > g.policy.ResetWindow {
		delete(g.data, key)
		return 0
	}
	if !now.Before(entry.cooldownUntil) {
		return 0
	}
	return entry.cooldownUntil.Sub(now)
}

func (p LoginGuardPolicy) delayFor(failures int) time.Duration {
	if failures <= p.FreeAttempts {
		return 0
	}
	delay := time.Duration(float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(failures-p.FreeAttempts-1)))
	return min(delay, p.MaxDelay)
}

func guardKey(dim, value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		v = "unknown"
	}
	return dim + ":" + v
}

func normalizeLoginGuardPolicy(p LoginGuardPolicy) LoginGuardPolicy {
	if p.FreeAttempts < 0 {
		p.FreeAttempts = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 2 * time.Second
	}
	if p.Multiplier < 1 {
		p.Multiplier = 2
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = 5 * time.Minute
	}
	if p.ResetWindow <= 0 {
		p.ResetWindow = 30 * time.Minute
	}
	return p
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Increments the failure counter and stores the resulting cooldown in one
// round trip so concurrent API replicas agree on the count.
var loginGuardBumpScript = redis.NewScript(`
local now_ms = tonumber(ARGV[1])
local base_ms = tonumber(ARGV[2])
local multiplier = tonumber(ARGV[3])
local max_ms = tonumber(ARGV[4])
local reset_ms = tonumber(ARGV[5])
local free_attempts = tonumber(ARGV[6])

local key = KEYS[1]
local failures = tonumber(redis.call("HGET", key, "failures") or "0")
local last_ms = tonumber(redis.call("HGET", key, "last_failure_ms") or "0")
if last_ms == 0 or (now_ms - last_ms) > reset_ms then
  failures = 0
end
failures = failures + 1

local delay = 0
if failures > free_attempts then
  delay = math.floor(base_ms * (multiplier ^ (failures - free_attempts - 1)))
end
if delay > max_ms then
  delay = max_ms
end

redis.call("HSET", key, "failures", tostring(failures), "last_failure_ms", tostring(now_ms), "cooldown_until_ms", tostring(now_ms + delay))
redis.call("PEXPIRE", key, reset_ms + delay + 60000)
return delay
`)

type RedisLoginGuard struct {
	client redis.UniversalClient
	prefix string
	policy LoginGuardPolicy
	now    func() time.Time
}

func NewRedisLoginGuard(client redis.UniversalClient, prefix string, policy LoginGuardPolicy) *RedisLoginGuard {
	if prefix == "" {
		prefix = "nanotrace:login_guard"
	}
	return &RedisLoginGuard{
		client: client,
		prefix: prefix,
		policy: normalizeLoginGuardPolicy(policy),
		now:    time.Now,
	}
}

func (g *RedisLoginGuard) Check(ctx context.Context, email, ip string) (time.Duration, error) {
	nowMS := g.now().UnixMilli()
	var longest time.Duration
	for _, key := range g.keys(email, ip) {
		d, err := g.cooldown(ctx, key, nowMS)
		if err != nil {
			return 0, err
		}
		longest = max(longest, d)
	}
	return longest, nil
}

func (g *RedisLoginGuard) RegisterFailure(ctx context.Context, email, ip string) (time.Duration, error) {
	nowMS := g.now().UnixMilli()
	var longest time.Duration
	for _, key := range g.keys(email, ip) {
		delayMS, err := loginGuardBumpScript.Run(ctx, g.client, []string{key},
			nowMS,
			g.policy.BaseDelay.Milliseconds(),
			g.policy.Multiplier,
			g.policy.MaxDelay.Milliseconds(),
			g.policy.ResetWindow.Milliseconds(),
			g.policy.FreeAttempts,
		).Int64()
		if err != nil {
			return 0, err
		}
		longest = max(longest, time.Duration(delayMS)*time.Millisecond)
	}
	return longest, nil
}

func (g *RedisLoginGuard) Reset(ctx context.Context, email, ip string) error {
	keys := g.keys(email, ip)
	return g.client.Del(ctx, keys[0], keys[1]).Err()
}

func (g *RedisLoginGuard) cooldown(ctx context.Context, key string, nowMS int64) (time.Duration, error) {
	values, err := g.client.HMGet(ctx, key, "last_failure_ms", "cooldown_until_ms").Result()
	if err != nil {
		return 0, err
	}
	if len(values) != 2 || values[0] == nil || values[1] == nil {
		return 0, nil
	}
	var lastMS, untilMS int64
	if _, err := fmt.Sscan(fmt.Sprint(values[0]), &lastMS); err != nil {
		return 0, fmt.Errorf("parse last failure: %w", err)
	}
	if _, err := fmt.Sscan(fmt.Sprint(values[1]), &untilMS); err != nil {
		return 0, fmt.Errorf("parse cooldown: %w", err)
	}
	if nowMS-lastMS > g.policy.ResetWindow.Milliseconds() || untilMS <= nowMS {
		return 0, nil
	}
	return time.Duration(untilMS-nowMS) * time.Millisecond, nil
}

func (g *RedisLoginGuard) keys(email, ip string) []string {
	return []string{
		fmt.Sprintf("%s:%s", g.prefix, hashKey(guardKey("email", email))),
		fmt.Sprintf("%s:%s", g.prefix, hashKey(guardKey("ip", ip))),
	}
}

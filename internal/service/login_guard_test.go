package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testGuardPolicy() LoginGuardPolicy {
	return LoginGuardPolicy{
		FreeAttempts: 1,
		BaseDelay:    time.Second,
		Multiplier:   2,
		MaxDelay:     3 * time.Second,
		ResetWindow:  time.Minute,
	}
}

func TestInMemoryLoginGuardExponentialCooldown(t *testing.T) {
	guard := NewInMemoryLoginGuard(testGuardPolicy())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	guard.now = func() time.Time { return now }
	ctx := context.Background()

	want := []time.Duration{0, time.Second, 2 * time.Second, 3 * time.Second}
	for i, w := range want {
		got, err := guard.RegisterFailure(ctx, "a@example.com", "10.0.0.1")
		if err != nil {
			t.Fatalf("register failure #%d: %v", i+1, err)
		}
		if got != w {
			t.Fatalf("failure #%d: expected delay %v, got %v", i+1, w, got)
		}
	}
	if retry, _ := guard.Check(ctx, "a@example.com", "10.0.0.1"); retry != 3*time.Second {
		t.Fatalf("expected active cooldown of 3s, got %v", retry)
	}

	now = now.Add(2 * time.Minute)
	if retry, _ := guard.Check(ctx, "a@example.com", "10.0.0.1"); retry != 0 {
		t.Fatalf("expected counters to reset after window, got %v", retry)
	}
}

func TestInMemoryLoginGuardResetAndDimensions(t *testing.T) {
	guard := NewInMemoryLoginGuard(LoginGuardPolicy{BaseDelay: time.Second, MaxDelay: 10 * time.Second, ResetWindow: time.Minute})
	ctx := context.Background()
	_, _ = guard.RegisterFailure(ctx, "c@example.com", "10.0.0.3")

	if retry, _ := guard.Check(ctx, "c@example.com", "10.0.0.9"); retry <= 0 {
		t.Fatal("expected email dimension to trigger cooldown")
	}
	if retry, _ := guard.Check(ctx, "z@example.com", "10.0.0.3"); retry <= 0 {
		t.Fatal("expected ip dimension to trigger cooldown")
	}
	if retry, _ := guard.Check(ctx, "z@example.com", "10.0.0.9"); retry != 0 {
		t.Fatalf("expected unrelated email and ip to be unaffected, got %v", retry)
	}
	if err := guard.Reset(ctx, "c@example.com", "10.0.0.3"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if retry, _ := guard.Check(ctx, "c@example.com", "10.0.0.3"); retry != 0 {
		t.Fatalf("expected cooldown cleared by reset, got %v", retry)
	}
}

func TestRedisLoginGuardSharesState(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	now := time.Now()
	replicaA := NewRedisLoginGuard(client, "test", testGuardPolicy())
	replicaB := NewRedisLoginGuard(client, "test", testGuardPolicy())
	replicaA.now = func() time.Time { return now }
	replicaB.now = func() time.Time { return now }

	if d, err := replicaA.RegisterFailure(ctx, "d@example.com", "10.0.0.4"); err != nil || d != 0 {
		t.Fatalf("first failure should be free, got %v err=%v", d, err)
	}
	if d, err := replicaB.RegisterFailure(ctx, "d@example.com", "10.0.0.4"); err != nil || d != time.Second {
		t.Fatalf("second failure should see shared count, got %v err=%v", d, err)
	}
	retry, err := replicaA.Check(ctx, "d@example.com", "10.0.0.4")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if retry != time.Second {
		t.Fatalf("expected 1s cooldown, got %v", retry)
	}
	if err := replicaB.Reset(ctx, "d@example.com", "10.0.0.4"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if retry, _ := replicaA.Check(ctx, "d@example.com", "10.0.0.4"); retry != 0 {
		t.Fatalf("expected cooldown cleared, got %v", retry)
	}
}

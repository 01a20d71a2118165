package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterBurstAndRefill(t *testing.T) {
	now := time.Unix(0, 0)
	l := New(2, 3)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !l.Allow("a") {
			t.Fatalf("request %d should pass", i)
		}
	}
	if l.Allow("a") {
		t.Fatalf("bucket should be empty")
	}
	if !l.Allow("b") {
		t.Fatalf("keys must not share a bucket")
	}

	now = now.Add(500 * time.Millisecond)
	if !l.Allow("a") {
		t.Fatalf("one token should have refilled")
	}
	if l.Allow("a") {
		t.Fatalf("only one token should have refilled")
	}

	now = now.Add(time.Hour)
	for i := 0; i < 3; i++ {
		if !l.Allow("a") {
			t.Fatalf("refill must cap at capacity, request %d", i)
		}
	}
	if l.Allow("a") {
		t.Fatalf("capacity exceeded")
	}
}

func TestLimiterSweep(t *testing.T) {
	now := time.Unix(100, 0)
	l := New(1, 1)
	l.now = func() time.Time { return now }
	l.Allow("old")
	now = now.Add(time.Minute)
	l.Allow("new")

	if n := l.Sweep(30 * time.Second); n != 1 {
		t.Fatalf("expected 1 swept, got %d", n)
	}
	if !l.Allow("old") {
		t.Fatalf("swept key should start full")
	}
}

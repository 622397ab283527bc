package domain

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// TestNewSession_InitializesTimestamps は NewSession がタイムスタンプを初期化することを確認します。
func TestNewSession_InitializesTimestamps(t *testing.T) {
	s := NewSession()

	if s.lastRead.Load() == 0 {
		t.Errorf("lastRead is not initialized")
	}
	if s.lastWrite.Load() == 0 {
		t.Errorf("lastWrite is not initialized")
	}
	if s.lastPong.Load() == 0 {
		t.Errorf("lastPong is not initialized")
	}
	if s.ID().IsZero() {
		t.Errorf("session id is empty")
	}
}

func TestSession_IsIdle(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	s := newSessionWithClock(clock.Now)

	if idle, reason := s.IsIdle(0); idle || reason != IdleDisabled {
		t.Fatalf("zero timeout disables idle detection, got %v %s", idle, reason)
	}

	clock.Advance(20 * time.Second)
	s.TouchPong()
	clock.Advance(15 * time.Second)
	idle, reason := s.IsIdle(30 * time.Second)
	if idle {
		t.Fatalf("recent pong keeps the session alive, reason=%s", reason)
	}
	if reason&IdleRead == 0 {
		t.Fatalf("read idleness should still be reported, got %s", reason)
	}

	clock.Advance(20 * time.Second)
	if idle, reason := s.IsIdle(30 * time.Second); !idle || reason&IdlePong == 0 {
		t.Fatalf("expected pong idle, got %v %s", idle, reason)
	}
}

func TestSession_CloseOnce(t *testing.T) {
	s := NewSession()
	if !s.Close() {
		t.Fatalf("first close should succeed")
	}
	if s.Close() {
		t.Fatalf("second close must report false")
	}
	if !s.IsClosed() {
		t.Fatalf("session should be closed")
	}
}

func TestSessionIDBytesRoundTrip(t *testing.T) {
	id := NewSessionID()
	if got := SessionIDFromBytes(id.Bytes()); got != id {
		t.Fatalf("round trip mismatch: %s != %s", got, id)
	}
}

package domain_test

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"spiders/server/domain"
)

type recordingApplication struct {
	mu       sync.Mutex
	received [][]byte
	tick     [][]byte
	frame    [][]byte
}

func (a *recordingApplication) HandleMessage(_ context.Context, _ domain.SessionID, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.received = append(a.received, data)
	return nil
}

func (a *recordingApplication) Tick(context.Context) [][]byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.tick
	a.tick = nil
	return out
}

func (a *recordingApplication) Frame(context.Context) [][]byte { return a.frame }

func (a *recordingApplication) receivedCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.received)
}

func expectMessage(t *testing.T, ch <-chan domain.Message, want []byte) {
	t.Helper()
	select {
	case msg := <-ch:
		if !bytes.Equal(msg.Data, want) {
			t.Fatalf("got %q, want %q", msg.Data, want)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for %q", want)
	}
}

func TestRoom_JoinSendsFrameAndTickBroadcasts(t *testing.T) {
	ps := domain.NewSimplePubSub()
	app := &recordingApplication{
		frame: [][]byte{[]byte("frame")},
	}
	room := domain.NewRoom("arena", ps, app).WithTickInterval(5 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- room.Run(ctx) }()
	// Run が購読を始めるまで待つ
	time.Sleep(20 * time.Millisecond)

	id := domain.NewSessionID()
	inbox := ps.Subscribe(domain.SessionTopic(id))
	domain.Join(ctx, ps, "arena", id)
	expectMessage(t, inbox, []byte("frame"))

	app.mu.Lock()
	app.tick = [][]byte{[]byte("delta")}
	app.mu.Unlock()
	expectMessage(t, inbox, []byte("delta"))

	ps.Publish(ctx, domain.RoomTopic("arena"), domain.Message{SessionID: id, Data: []byte("input")})
	deadline := time.Now().Add(time.Second)
	for app.receivedCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("application did not receive the input")
		}
		time.Sleep(5 * time.Millisecond)
	}

	domain.Leave(ctx, ps, "arena", id)
	time.Sleep(20 * time.Millisecond)
	app.mu.Lock()
	app.tick = [][]byte{[]byte("after-leave")}
	app.mu.Unlock()
	time.Sleep(20 * time.Millisecond)
	select {
	case msg := <-inbox:
		t.Fatalf("left session received %q", msg.Data)
	default:
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

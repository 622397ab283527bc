package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"spiders/application/agent"
	"spiders/application/request"
	"spiders/application/state/mocks"
	"spiders/domain"
)

// gatePacer はクモが freezeAfter 回待機したあと ctx がキャンセルされるまで止める。
// freezePatrons が true のときパトロンは最初の待機で止まる。
type gatePacer struct {
	freezeAfter   int32
	freezePatrons bool
	spiderPauses  atomic.Int32
}

func (p *gatePacer) Pause(ctx context.Context, kind domain.Occupant) error {
	switch kind {
	case domain.OccupantSpider:
		if p.freezeAfter > 0 && p.spiderPauses.Add(1) >= p.freezeAfter {
			<-ctx.Done()
		}
	case domain.OccupantPatron:
		if p.freezePatrons {
			<-ctx.Done()
		}
	}
	return ctx.Err()
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("session did not finish")
	}
}

func shutdown(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func winLayout() domain.Layout {
	return domain.Layout{
		Height:      10,
		Width:       10,
		Walls:       []domain.Position{{Row: 3, Col: 3}},
		Exit:        domain.Position{Row: 9, Col: 9},
		PlayerStart: domain.Position{Row: 0, Col: 0},
		Spiders: []domain.SpiderPlan{{
			Name:     "s1",
			Route:    []domain.Position{{Row: 0, Col: 5}, {Row: 0, Col: 6}, {Row: 0, Col: 7}},
			Boundary: []domain.Position{{Row: 0, Col: 5}},
			Passing:  domain.PassingLoop,
		}},
	}
}

func TestNewSession_RejectsInvalidLayout(t *testing.T) {
	l := winLayout()
	l.Exit = domain.Position{Row: 3, Col: 3}
	if _, err := NewSession(l, Options{}); !errors.Is(err, ErrInvalidLayout) {
		t.Fatalf("expected ErrInvalidLayout, got %v", err)
	}
}

func TestSession_PlayerReachesExit(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	notifier.EXPECT().GridChanged().AnyTimes()
	notifier.EXPECT().PlayerWon().Times(1)
	notifier.EXPECT().PlayerKilled().Times(0)

	metrics := NewInMemoryMetrics()
	s, err := NewSession(winLayout(), Options{
		Notifier: notifier,
		Pacer:    &gatePacer{freezeAfter: 1},
		Metrics:  metrics,
	})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer shutdown(t, s)

	// 最初の DOWN と RIGHT は向きを変えるだけ。
	var last agent.PlayerAction
	for i := 0; i < 10; i++ {
		if last, err = s.Move(ctx, domain.DirectionDown); err != nil {
			t.Fatalf("move down: %v", err)
		}
	}
	if got := s.Player().Position(); got != (domain.Position{Row: 9, Col: 0}) {
		t.Fatalf("unexpected position after moving down: %s", got)
	}
	for i := 0; i < 10; i++ {
		if last, err = s.Move(ctx, domain.DirectionRight); err != nil {
			t.Fatalf("move right: %v", err)
		}
	}
	if last != agent.PlayerWon {
		t.Fatalf("expected last action to be won, got %s", last)
	}
	waitDone(t, s)

	if !s.Won() || s.Killed() {
		t.Fatalf("expected won only, got won=%v killed=%v", s.Won(), s.Killed())
	}
	if got := s.Player().Position(); got != (domain.Position{Row: 9, Col: 9}) {
		t.Fatalf("player should occupy exit, got %s", got)
	}
	if got := s.Snapshot()[9][9].Occupant; got != domain.OccupantPlayer {
		t.Fatalf("exit cell should hold player, got %s", got)
	}
	if action, _ := s.Move(ctx, domain.DirectionUp); action != agent.PlayerRejected {
		t.Fatalf("moves after win must be rejected, got %s", action)
	}
	if got := metrics.Counter("requests.move"); got != 21 {
		t.Fatalf("unexpected move count: %d", got)
	}
}

func TestSession_SpiderKillsPlayer(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	notifier.EXPECT().GridChanged().AnyTimes()
	notifier.EXPECT().PlayerKilled().Times(1)
	notifier.EXPECT().PlayerWon().Times(0)

	layout := domain.Layout{
		Height:      1,
		Width:       5,
		Exit:        domain.Position{Row: 0, Col: 4},
		PlayerStart: domain.Position{Row: 0, Col: 0},
		Spiders: []domain.SpiderPlan{{
			Name:     "hunter",
			Route:    []domain.Position{{Row: 0, Col: 2}},
			Boundary: []domain.Position{{Row: 0, Col: 3}},
		}},
	}
	s, err := NewSession(layout, Options{Notifier: notifier, Pacer: &gatePacer{}})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer shutdown(t, s)
	waitDone(t, s)

	if !s.Killed() || s.Won() {
		t.Fatalf("expected killed only, got won=%v killed=%v", s.Won(), s.Killed())
	}
	cell := s.Snapshot()[0][0]
	if cell.Occupant != domain.OccupantPlayer || !cell.Killed {
		t.Fatalf("player cell should be marked killed, got %+v", cell)
	}
	if pos, _ := s.Spiders()[0].Position(); pos != (domain.Position{Row: 0, Col: 1}) {
		t.Fatalf("spider should kill in place from (0,1), got %s", pos)
	}
}

func TestSession_FireDroppedWhenPoolSaturated(t *testing.T) {
	layout := domain.Layout{
		Height:      3,
		Width:       3,
		Exit:        domain.Position{Row: 0, Col: 0},
		PlayerStart: domain.Position{Row: 1, Col: 1},
	}
	metrics := NewInMemoryMetrics()
	s, err := NewSession(layout, Options{Pacer: &gatePacer{freezePatrons: true}, Metrics: metrics})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	ctx := context.Background()
	if _, err := s.Fire(ctx); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted before start, got %v", err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	// 3x3 でクモなしのときプールの上限は 3+3-2 = 4。初期の向きは RIGHT なので各 Move は向きを変えるだけ。
	for _, dir := range []domain.Direction{domain.DirectionUp, domain.DirectionLeft, domain.DirectionDown, domain.DirectionRight} {
		if _, err := s.Move(ctx, dir); err != nil {
			t.Fatalf("turn %s: %v", dir, err)
		}
		fired, err := s.Fire(ctx)
		if err != nil || !fired {
			t.Fatalf("fire %s: fired=%v err=%v", dir, fired, err)
		}
	}
	fired, err := s.Fire(ctx)
	if err != nil {
		t.Fatalf("fire: %v", err)
	}
	if fired {
		t.Fatalf("fire should be dropped when the pool is saturated")
	}
	if got := metrics.Counter("patrons.dropped"); got != 1 {
		t.Fatalf("unexpected dropped count: %d", got)
	}

	shutdown(t, s)
	for r, row := range s.Snapshot() {
		for c, cell := range row {
			if cell.Occupant == domain.OccupantPatron {
				t.Fatalf("cancelled patron left at (%d,%d)", r, c)
			}
		}
	}
}

func TestSession_SubmitSerialisesInput(t *testing.T) {
	s, err := NewSession(winLayout(), Options{Pacer: &gatePacer{freezeAfter: 1}})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	ctx := context.Background()
	if err := s.Submit(ctx, request.Move{Direction: domain.DirectionDown}); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer shutdown(t, s)

	for i := 0; i < 3; i++ {
		if err := s.Submit(ctx, request.Move{Direction: domain.DirectionDown}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	want := domain.Position{Row: 2, Col: 0}
	deadline := time.Now().Add(5 * time.Second)
	for s.Player().Position() != want {
		if time.Now().After(deadline) {
			t.Fatalf("player did not reach %s, at %s", want, s.Player().Position())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := s.Player().Facing(); got != domain.DirectionDown {
		t.Fatalf("unexpected facing: %s", got)
	}
}

func TestSession_StartTwice(t *testing.T) {
	s, err := NewSession(winLayout(), Options{Pacer: &gatePacer{freezeAfter: 1}})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer shutdown(t, s)
	if err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

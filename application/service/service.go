package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"spiders/application/agent"
	"spiders/application/request"
	"spiders/application/state"
	"spiders/application/state/memory"
	"spiders/domain"
	"spiders/internal/handler"
	"spiders/internal/scheduler"
)

var (
	ErrNotStarted     = errors.New("service: session not started")
	ErrAlreadyStarted = errors.New("service: session already started")
	ErrUnknownRequest = errors.New("service: unknown request")
)

type Clock interface {
	Now() time.Time
	Since(time.Time) time.Duration
}

type Validator interface {
	Layout(domain.Layout) error
}

type systemClock struct{}

func (systemClock) Now() time.Time                  { return time.Now() }
func (systemClock) Since(t time.Time) time.Duration { return time.Since(t) }

// Options はセッションの差し替え可能な依存です。ゼロ値の項目は既定値になる。
type Options struct {
	Notifier  state.Notifier
	Pacer     agent.Pacer
	Metrics   state.MetricsRecorder
	Clock     Clock
	Validator Validator
	// QueueSize は入力ループのキュー長。
	QueueSize int
}

// Session は1回のゲームを表します。
// 盤面・エージェント・ワーカープール・入力ループを所有し、勝敗が決まるまで動かす。
type Session struct {
	ID     string
	layout domain.Layout

	grid    *memory.ConcurrentGrid
	outcome *agent.Outcome
	player  *agent.Player
	spiders []*agent.Spider
	deps    agent.Deps

	metrics state.MetricsRecorder
	clock   Clock
	loop    *handler.Loop

	started atomic.Bool
	mu      sync.Mutex
	pool    *scheduler.Pool
}

// NewSession は layout を検証し、盤面とエージェントを配置します。
// クモは Start まで盤面に現れない。
func NewSession(layout domain.Layout, opts Options) (*Session, error) {
	if opts.Validator == nil {
		opts.Validator = SimpleValidator{}
	}
	if err := opts.Validator.Layout(layout); err != nil {
		return nil, err
	}
	if opts.Notifier == nil {
		opts.Notifier = state.NopNotifier{}
	}
	if opts.Pacer == nil {
		opts.Pacer = agent.SleepPacer{Delays: agent.DefaultDelays()}
	}
	if opts.Metrics == nil {
		opts.Metrics = state.NopMetrics{}
	}
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}

	store, err := memory.NewStore(layout.Height, layout.Width, layout.Walls, layout.Exit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}
	grid := memory.NewConcurrentGrid(store).WithMetrics(opts.Metrics)
	outcome := agent.NewOutcome(opts.Notifier)
	deps := agent.Deps{
		Grid:     grid,
		Notifier: opts.Notifier,
		Pacer:    opts.Pacer,
		Outcome:  outcome,
		Metrics:  opts.Metrics,
	}

	player, err := agent.NewPlayer(deps, layout.PlayerStart)
	if err != nil {
		return nil, err
	}
	spiders := make([]*agent.Spider, 0, len(layout.Spiders))
	for _, plan := range layout.Spiders {
		sp, err := agent.NewSpider(deps, plan, player)
		if err != nil {
			return nil, err
		}
		spiders = append(spiders, sp)
	}

	s := &Session{
		ID:      uuid.NewString(),
		layout:  layout,
		grid:    grid,
		outcome: outcome,
		player:  player,
		spiders: spiders,
		deps:    deps,
		metrics: opts.Metrics,
		clock:   opts.Clock,
	}
	loop, err := handler.New(handler.Config{Handler: handler.HandlerFunc(s.handle), QueueSize: opts.QueueSize})
	if err != nil {
		return nil, err
	}
	s.loop = loop
	return s, nil
}

// Start はクモを起動し、入力ループを開始します。
// プールの大きさは同時に飛び得るパトロン数とクモの数の和。
func (s *Session) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	pool := scheduler.New(ctx, s.layout.MaxPatrons()+len(s.spiders))
	pool.OnFailure(func(name string, err error) {
		s.metrics.IncrementCounter(pool.Context(), "tasks.failed", 1)
	})
	s.mu.Lock()
	s.pool = pool
	s.mu.Unlock()

	for _, sp := range s.spiders {
		if !pool.Go("spider:"+sp.Name, sp.Run) {
			slog.WarnContext(ctx, "spider not scheduled", "sessionID", s.ID, "spider", sp.Name)
		}
	}
	slog.InfoContext(ctx, "session started", "sessionID", s.ID, "spiders", len(s.spiders),
		"height", s.layout.Height, "width", s.layout.Width)
	return s.loop.Start(pool.Context())
}

func (s *Session) currentPool() *scheduler.Pool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool
}

// Submit は入力を入力ループに積みます。処理は到着順に1件ずつ行われる。
func (s *Session) Submit(ctx context.Context, req any) error {
	if !s.started.Load() {
		return ErrNotStarted
	}
	return s.loop.Submit(ctx, req)
}

func (s *Session) handle(ctx context.Context, req any) error {
	switch r := req.(type) {
	case request.Move:
		_, err := s.Move(ctx, r.Direction)
		return err
	case request.Fire:
		_, err := s.Fire(ctx)
		return err
	default:
		return fmt.Errorf("%w: %T", ErrUnknownRequest, req)
	}
}

// Move はプレイヤーに方向コマンドを適用します。
func (s *Session) Move(ctx context.Context, dir domain.Direction) (agent.PlayerAction, error) {
	start := s.clock.Now()
	defer s.record(ctx, "move", start)
	return s.player.Move(ctx, dir)
}

// Fire はプレイヤーの向きにパトロンを撃ちます。
// プールが埋まっている場合や勝敗が決まった後は何もせず false を返す。
func (s *Session) Fire(ctx context.Context) (bool, error) {
	start := s.clock.Now()
	defer s.record(ctx, "fire", start)

	pool := s.currentPool()
	if pool == nil {
		return false, ErrNotStarted
	}
	if s.outcome.Over() {
		return false, nil
	}
	pos, facing := s.player.Aim()
	patron, err := agent.NewPatron(s.deps, pos, facing)
	if err != nil {
		return false, err
	}
	if !pool.Go("patron:"+patron.ID, patron.Run) {
		s.metrics.IncrementCounter(ctx, "patrons.dropped", 1)
		slog.WarnContext(ctx, "pool saturated, patron dropped", "sessionID", s.ID, "running", pool.Running())
		return false, nil
	}
	s.metrics.IncrementCounter(ctx, "patrons.fired", 1)
	return true, nil
}

func (s *Session) record(ctx context.Context, endpoint string, started time.Time) {
	s.metrics.RecordLatency(ctx, endpoint, s.clock.Since(started))
	s.metrics.IncrementCounter(ctx, "requests."+endpoint, 1)
}

// Done は勝敗が決まると閉じられます。
func (s *Session) Done() <-chan struct{} { return s.outcome.Done() }

func (s *Session) Killed() bool { return s.outcome.Killed() }
func (s *Session) Won() bool    { return s.outcome.Won() }

func (s *Session) Layout() domain.Layout { return s.layout }

// Snapshot は描画用に盤面のコピーを返します。
func (s *Session) Snapshot() [][]domain.Cell { return s.grid.Snapshot() }

func (s *Session) Player() *agent.Player { return s.player }

func (s *Session) Spiders() []*agent.Spider { return s.spiders }

// Shutdown は入力ループを止め、すべてのエージェントのキャンセルと終了待ちを行います。
func (s *Session) Shutdown(ctx context.Context) error {
	var errs []error
	if pool := s.currentPool(); pool != nil {
		if err := pool.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.started.Load() {
		if err := s.loop.Stop(ctx); err != nil && !errors.Is(err, handler.ErrStopped) {
			errs = append(errs, err)
		}
	}
	slog.InfoContext(ctx, "session stopped", "sessionID", s.ID, "won", s.Won(), "killed", s.Killed())
	return errors.Join(errs...)
}

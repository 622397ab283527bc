package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"spiders/application/pursuit"
	"spiders/application/state"
	"spiders/domain"
)

var ErrEmptyRoute = errors.New("agent: spider route is empty")

// Phase はクモの行動段階です。PATROL から HUNT への一方向のみ遷移する。
type Phase uint8

const (
	PhasePatrol Phase = iota
	PhaseHunt
)

func (p Phase) String() string {
	if p == PhaseHunt {
		return "HUNT"
	}
	return "PATROL"
}

// Target はクモが追う対象です。
type Target interface {
	Position() domain.Position
}

// Spider は境界が保たれている間ルートを巡回し、境界が崩れるとプレイヤーを追い続けるエージェントです。
type Spider struct {
	ID   string
	Name string

	deps   Deps
	plan   domain.SpiderPlan
	target Target

	mu     sync.Mutex
	phase  Phase
	pos    domain.Position
	placed bool
}

func NewSpider(deps Deps, plan domain.SpiderPlan, target Target) (*Spider, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrMissingDependency
	}
	if len(plan.Route) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyRoute, plan.Name)
	}
	return &Spider{
		ID:     uuid.NewString(),
		Name:   plan.Name,
		deps:   deps.withDefaults(),
		plan:   plan,
		target: target,
		pos:    plan.Route[0],
	}, nil
}

func (s *Spider) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Position はクモの現在位置と、盤面に配置済みかを返します。
func (s *Spider) Position() (domain.Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos, s.placed
}

// Run は巡回のあと、勝敗が決まるまで追跡を続けます。
func (s *Spider) Run(ctx context.Context) error {
	if err := s.patrol(ctx); err != nil {
		return err
	}
	if s.deps.Outcome.Over() {
		return nil
	}
	s.mu.Lock()
	s.phase = PhaseHunt
	s.mu.Unlock()
	slog.InfoContext(ctx, "spider boundary broken, hunting", "spider", s.Name, "spiderID", s.ID, "pos", s.pos)
	return s.hunt(ctx)
}

// patrol は境界のセルがすべて埋まっている間だけルートを往復または周回する。
func (s *Spider) patrol(ctx context.Context) error {
	route := s.plan.Route
	idx := 0
	forward := true

	for s.deps.Grid.BoundaryIntact(s.plan.Boundary) && !s.deps.Outcome.Over() {
		if err := s.tick(ctx, route[idx]); err != nil {
			return err
		}
		idx, forward = nextPatrolIndex(idx, len(route), forward, s.plan.Passing)
	}
	return nil
}

// nextPatrolIndex は巡回ルート上の次の添字を返します。
func nextPatrolIndex(idx, length int, forward bool, mode domain.PassingMode) (int, bool) {
	if length <= 1 {
		return 0, forward
	}
	if forward {
		if idx < length-1 {
			return idx + 1, true
		}
		if mode == domain.PassingBounce {
			return idx - 1, false
		}
		return 0, true
	}
	if idx > 0 {
		return idx - 1, false
	}
	return idx + 1, true
}

// hunt は毎ティック経路を作り直し、その最初の1歩だけを使う。
func (s *Spider) hunt(ctx context.Context) error {
	for !s.deps.Outcome.Over() {
		origin, _ := s.Position()
		target := s.target.Position()

		route := pursuit.BuildRoute(pursuit.Snapshot(s.deps.Grid.Snapshot()), origin, target)
		hop, ok := route.FirstHop()
		if !ok {
			if err := s.deps.Pacer.Pause(ctx, domain.OccupantSpider); err != nil {
				return err
			}
			continue
		}
		if err := s.tick(ctx, hop); err != nil {
			return err
		}
	}
	return nil
}

// tick は to への移動または攻撃を1回行い、ロックの外で待機する。
// 塞がれていた場合も待機して、再計画で空回りしないようにする。
func (s *Spider) tick(ctx context.Context, to domain.Position) error {
	s.mu.Lock()
	from, placed := s.pos, s.placed
	s.mu.Unlock()

	switch s.deps.Grid.StepSpider(from, placed, to) {
	case state.SpiderMoved:
		s.mu.Lock()
		s.pos, s.placed = to, true
		s.mu.Unlock()
		s.deps.Notifier.GridChanged()
		s.deps.Metrics.IncrementCounter(ctx, "steps.spider", 1)
	case state.SpiderKilledPlayer:
		s.deps.Notifier.GridChanged()
		if s.deps.Outcome.Kill() {
			slog.InfoContext(ctx, "spider killed player", "spider", s.Name, "spiderID", s.ID, "pos", to)
		}
		return nil
	case state.SpiderBlocked:
		s.deps.Metrics.IncrementCounter(ctx, "steps.spider.blocked", 1)
	}
	return s.deps.Pacer.Pause(ctx, domain.OccupantSpider)
}

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"spiders/application/state"
	"spiders/domain"
)

// PlayerAction はプレイヤーへの方向コマンドの結果です。
type PlayerAction uint8

const (
	PlayerRejected PlayerAction = iota
	PlayerTurned
	PlayerMoved
	PlayerWon
)

func (a PlayerAction) String() string {
	switch a {
	case PlayerTurned:
		return "turned"
	case PlayerMoved:
		return "moved"
	case PlayerWon:
		return "won"
	default:
		return "rejected"
	}
}

// Player は外部入力で操作されるエージェントです。
// 位置と向きはクモから並行に読まれるため mu で保護する。
type Player struct {
	deps Deps

	mu     sync.Mutex
	pos    domain.Position
	facing domain.Direction
}

// NewPlayer は start にプレイヤーを右向きで配置します。
func NewPlayer(deps Deps, start domain.Position) (*Player, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	deps = deps.withDefaults()
	if err := deps.Grid.Place(domain.OccupantPlayer, domain.DirectionRight, start); err != nil {
		return nil, fmt.Errorf("agent: place player: %w", err)
	}
	return &Player{
		deps:   deps,
		pos:    start,
		facing: domain.DirectionRight,
	}, nil
}

func (p *Player) Position() domain.Position {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pos
}

func (p *Player) Facing() domain.Direction {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.facing
}

// Aim は発射に必要な位置と向きを一度に返します。
func (p *Player) Aim() (domain.Position, domain.Direction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pos, p.facing
}

// Move は向きと同じ方向なら1セル進み、違う方向なら向きだけを変えます。
// 進めない場合は何もしない。移動が確定したあとはロックの外で待機する。
func (p *Player) Move(ctx context.Context, dir domain.Direction) (PlayerAction, error) {
	if dir == domain.DirectionNone || p.deps.Outcome.Over() {
		return PlayerRejected, nil
	}

	p.mu.Lock()
	if dir != p.facing {
		p.facing = dir
		p.deps.Grid.Turn(p.pos, dir)
		p.mu.Unlock()
		p.deps.Notifier.GridChanged()
		return PlayerTurned, nil
	}
	from := p.pos
	to := from.Next(dir)
	step := p.deps.Grid.StepPlayer(from, to, dir)
	if step != state.PlayerBlocked {
		p.pos = to
	}
	p.mu.Unlock()

	switch step {
	case state.PlayerMoved:
		p.deps.Notifier.GridChanged()
		p.deps.Metrics.IncrementCounter(ctx, "steps.player", 1)
		return PlayerMoved, p.deps.Pacer.Pause(ctx, domain.OccupantPlayer)
	case state.PlayerReachedExit:
		p.deps.Notifier.GridChanged()
		p.deps.Metrics.IncrementCounter(ctx, "steps.player", 1)
		if !p.deps.Outcome.Win() {
			return PlayerRejected, nil
		}
		slog.InfoContext(ctx, "player reached exit", "pos", to)
		return PlayerWon, nil
	default:
		return PlayerRejected, nil
	}
}

package agent

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"spiders/application/state"
	"spiders/domain"
)

// Patron はプレイヤーが撃つ直進弾です。壁に当たるとその壁を壊して消える。
type Patron struct {
	ID     string
	deps   Deps
	start  domain.Position
	facing domain.Direction
}

// NewPatron は shooter の facing 方向の隣のセルから飛ぶパトロンを作ります。
func NewPatron(deps Deps, shooter domain.Position, facing domain.Direction) (*Patron, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	return &Patron{
		ID:     uuid.NewString(),
		deps:   deps.withDefaults(),
		start:  shooter.Next(facing),
		facing: facing,
	}, nil
}

func (p *Patron) Start() domain.Position   { return p.start }
func (p *Patron) Facing() domain.Direction { return p.facing }

// Run は盤外に出るか何かに衝突するまで1セルずつ進みます。
func (p *Patron) Run(ctx context.Context) error {
	var prev domain.Position
	hasPrev := false
	cur := p.start

	for {
		step := p.deps.Grid.StepPatron(prev, hasPrev, cur, p.facing)
		// 盤外への出現や出現直後の衝突では盤面は変わらない
		if step == state.PatronFlew || step == state.PatronDestroyedWall || hasPrev {
			p.deps.Notifier.GridChanged()
		}
		p.deps.Metrics.IncrementCounter(ctx, "steps.patron", 1)
		if step.Terminal() {
			if step == state.PatronDestroyedWall {
				p.deps.Metrics.IncrementCounter(ctx, "walls.destroyed", 1)
				slog.DebugContext(ctx, "patron destroyed wall", "patronID", p.ID, "pos", cur)
			}
			return nil
		}
		prev, hasPrev = cur, true
		cur = cur.Next(p.facing)

		if err := p.deps.Pacer.Pause(ctx, domain.OccupantPatron); err != nil {
			p.deps.Grid.Vacate(domain.OccupantPatron, prev)
			p.deps.Notifier.GridChanged()
			return err
		}
	}
}

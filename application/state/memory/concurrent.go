package memory

import (
	"context"
	"sync"
	"time"

	"spiders/application/state"
	"spiders/domain"
)

// ConcurrentGrid は Store をラップし、単一の排他ロックで state.Grid を実装する。
// 呼び出し側に Lock/Unlock を意識させないよう、確認と更新を1つの操作にまとめて公開する。
type ConcurrentGrid struct {
	base    *Store
	metrics state.MetricsRecorder
	clk     func() time.Time
	mu      sync.Mutex
}

// NewConcurrentGrid は新しい ConcurrentGrid を生成する。
func NewConcurrentGrid(base *Store) *ConcurrentGrid {
	return &ConcurrentGrid{
		base:    base,
		metrics: state.NopMetrics{},
		clk:     time.Now,
	}
}

// WithClock はテスト用に時間ソースを差し替える。
func (c *ConcurrentGrid) WithClock(clock func() time.Time) *ConcurrentGrid {
	if clock != nil {
		c.clk = clock
	}
	return c
}

// WithMetrics はロック待ち時間の記録先を設定する。
func (c *ConcurrentGrid) WithMetrics(m state.MetricsRecorder) *ConcurrentGrid {
	if m != nil {
		c.metrics = m
	}
	return c
}

func (c *ConcurrentGrid) lock(op string) {
	start := c.now()
	c.mu.Lock()
	if wait := c.now().Sub(start); wait > 0 {
		c.metrics.RecordContention(context.Background(), op, wait)
	}
}

func (c *ConcurrentGrid) Dimensions() (int, int) {
	// 寸法は生成後に変わらないためロック不要
	return c.base.height, c.base.width
}

func (c *ConcurrentGrid) Occupant(pos domain.Position) domain.Occupant {
	c.lock("occupant")
	defer c.mu.Unlock()
	if !c.base.valid(pos) {
		return domain.OccupantWall
	}
	return c.base.occupant(pos)
}

func (c *ConcurrentGrid) Cell(pos domain.Position) domain.Cell {
	c.lock("cell")
	defer c.mu.Unlock()
	if !c.base.valid(pos) {
		return domain.Cell{Occupant: domain.OccupantWall}
	}
	return c.base.cells[pos.Row][pos.Col]
}

func (c *ConcurrentGrid) Snapshot() [][]domain.Cell {
	c.lock("snapshot")
	defer c.mu.Unlock()
	return c.base.snapshot()
}

func (c *ConcurrentGrid) Place(kind domain.Occupant, facing domain.Direction, pos domain.Position) error {
	c.lock("place")
	defer c.mu.Unlock()
	return c.base.place(kind, facing, pos)
}

func (c *ConcurrentGrid) Turn(pos domain.Position, facing domain.Direction) {
	c.lock("turn")
	defer c.mu.Unlock()
	if c.base.valid(pos) {
		c.base.setFacing(facing, pos)
	}
}

// Vacate は kind がまだ pos にいる場合だけ空ける。
func (c *ConcurrentGrid) Vacate(kind domain.Occupant, pos domain.Position) {
	c.lock("vacate")
	defer c.mu.Unlock()
	c.base.vacate(kind, pos)
}

func (c *ConcurrentGrid) BoundaryIntact(boundary []domain.Position) bool {
	c.lock("boundary")
	defer c.mu.Unlock()
	return c.base.boundaryIntact(boundary)
}

func (c *ConcurrentGrid) StepSpider(from domain.Position, hasFrom bool, to domain.Position) state.SpiderStep {
	c.lock("spider")
	defer c.mu.Unlock()
	return c.base.applySpider(from, hasFrom, to)
}

func (c *ConcurrentGrid) StepPatron(from domain.Position, hasFrom bool, to domain.Position, facing domain.Direction) state.PatronStep {
	c.lock("patron")
	defer c.mu.Unlock()
	return c.base.applyPatron(from, hasFrom, to, facing)
}

func (c *ConcurrentGrid) StepPlayer(from, to domain.Position, facing domain.Direction) state.PlayerStep {
	c.lock("player")
	defer c.mu.Unlock()
	return c.base.applyPlayer(from, to, facing)
}

func (c *ConcurrentGrid) now() time.Time {
	if c.clk == nil {
		return time.Now()
	}
	return c.clk()
}

var _ state.Grid = (*ConcurrentGrid)(nil)

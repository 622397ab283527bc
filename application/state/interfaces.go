package state

import (
	"context"
	"time"

	"spiders/domain"
)

//go:generate go tool mockgen -destination=./mocks/notifier_mock.go -package=mocks . Notifier

// Reader は経路計画が参照する読み取り専用ビューです。
type Reader interface {
	Dimensions() (height, width int)
	Occupant(pos domain.Position) domain.Occupant
}

// Grid はエージェントが共有する占有グリッドです。
// 複数セルにまたがる確認と更新はすべて1回のロック取得内で行われます。
type Grid interface {
	Reader
	Cell(pos domain.Position) domain.Cell
	Snapshot() [][]domain.Cell

	Place(kind domain.Occupant, facing domain.Direction, pos domain.Position) error
	Turn(pos domain.Position, facing domain.Direction)
	Vacate(kind domain.Occupant, pos domain.Position)
	BoundaryIntact(boundary []domain.Position) bool

	StepSpider(from domain.Position, hasFrom bool, to domain.Position) SpiderStep
	StepPatron(from domain.Position, hasFrom bool, to domain.Position, facing domain.Direction) PatronStep
	StepPlayer(from, to domain.Position, facing domain.Direction) PlayerStep
}

// Notifier はコア外部（描画・通知）への出口です。
type Notifier interface {
	// GridChanged はグリッドの更新が確定するたびに呼ばれます。
	GridChanged()
	// PlayerKilled はセッション中に一度だけ呼ばれます。
	PlayerKilled()
	// PlayerWon はセッション中に一度だけ呼ばれます。
	PlayerWon()
}

// SpiderStep はクモの1ステップの結果です。
type SpiderStep uint8

const (
	SpiderBlocked SpiderStep = iota
	SpiderMoved
	SpiderKilledPlayer
)

// PatronStep はパトロンの1ステップの結果です。
type PatronStep uint8

const (
	PatronFlew PatronStep = iota
	PatronLeftGrid
	PatronCollided
	PatronDestroyedWall
)

// Terminal はパトロンがこのステップで消滅したかを返します。
func (s PatronStep) Terminal() bool {
	return s != PatronFlew
}

// PlayerStep はプレイヤー移動の結果です。
type PlayerStep uint8

const (
	PlayerBlocked PlayerStep = iota
	PlayerMoved
	PlayerReachedExit
)

// NopNotifier は何もしない Notifier です。
type NopNotifier struct{}

func (NopNotifier) GridChanged()  {}
func (NopNotifier) PlayerKilled() {}
func (NopNotifier) PlayerWon()    {}

var _ Notifier = NopNotifier{}

// MultiNotifier は登録順にすべての Notifier へ通知を配ります。
type MultiNotifier []Notifier

func (m MultiNotifier) GridChanged() {
	for _, n := range m {
		n.GridChanged()
	}
}

func (m MultiNotifier) PlayerKilled() {
	for _, n := range m {
		n.PlayerKilled()
	}
}

func (m MultiNotifier) PlayerWon() {
	for _, n := range m {
		n.PlayerWon()
	}
}

var _ Notifier = MultiNotifier{}

// MetricsRecorder はシミュレーションの計測値の記録先です。
type MetricsRecorder interface {
	RecordLatency(ctx context.Context, endpoint string, duration time.Duration)
	RecordContention(ctx context.Context, endpoint string, wait time.Duration)
	IncrementCounter(ctx context.Context, name string, delta int)
}

// NopMetrics は計測値を捨てる MetricsRecorder です。
type NopMetrics struct{}

func (NopMetrics) RecordLatency(ctx context.Context, endpoint string, duration time.Duration) {}

func (NopMetrics) RecordContention(ctx context.Context, endpoint string, wait time.Duration) {}

func (NopMetrics) IncrementCounter(ctx context.Context, name string, delta int) {}

var _ MetricsRecorder = NopMetrics{}

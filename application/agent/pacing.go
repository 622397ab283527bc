package agent

import (
	"context"
	"time"

	"spiders/domain"
)

// Delays は種別ごとの1ステップ後の待ち時間です。
type Delays struct {
	Spider time.Duration
	Patron time.Duration
	Player time.Duration
}

// DefaultDelays はクモ 750ms、パトロン 100ms、プレイヤー 200ms。
func DefaultDelays() Delays {
	return Delays{
		Spider: 750 * time.Millisecond,
		Patron: 100 * time.Millisecond,
		Player: 200 * time.Millisecond,
	}
}

// For は種別に対応する待ち時間を返します。
func (d Delays) For(kind domain.Occupant) time.Duration {
	switch kind {
	case domain.OccupantPlayer:
		return d.Player
	case domain.OccupantPatron:
		return d.Patron
	default:
		return d.Spider
	}
}

// Pacer はステップ間の待機を担当します。グリッドのロックを保持したまま呼んではならない。
type Pacer interface {
	Pause(ctx context.Context, kind domain.Occupant) error
}

// SleepPacer は Delays に従って実時間で待機します。ctx のキャンセルで即座に戻る。
type SleepPacer struct {
	Delays Delays
}

func (p SleepPacer) Pause(ctx context.Context, kind domain.Occupant) error {
	d := p.Delays.For(kind)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ Pacer = SleepPacer{}

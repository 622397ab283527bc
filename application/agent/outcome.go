package agent

import (
	"sync"
	"sync/atomic"

	"spiders/application/state"
)

const (
	outcomeRunning int32 = iota
	outcomeKilled
	outcomeWon
)

// Outcome はプレイヤーの死亡/勝利フラグです。どちらか一方が一度だけ立ちます。
type Outcome struct {
	state    atomic.Int32
	notifier state.Notifier

	done     chan struct{}
	doneOnce sync.Once
}

func NewOutcome(notifier state.Notifier) *Outcome {
	if notifier == nil {
		notifier = state.NopNotifier{}
	}
	return &Outcome{
		notifier: notifier,
		done:     make(chan struct{}),
	}
}

// Kill は死亡を記録し、最初の呼び出しのときだけ PlayerKilled を通知して true を返します。
func (o *Outcome) Kill() bool {
	if !o.state.CompareAndSwap(outcomeRunning, outcomeKilled) {
		return false
	}
	o.notifier.PlayerKilled()
	o.finish()
	return true
}

// Win は勝利を記録し、最初の呼び出しのときだけ PlayerWon を通知して true を返します。
func (o *Outcome) Win() bool {
	if !o.state.CompareAndSwap(outcomeRunning, outcomeWon) {
		return false
	}
	o.notifier.PlayerWon()
	o.finish()
	return true
}

func (o *Outcome) Killed() bool { return o.state.Load() == outcomeKilled }
func (o *Outcome) Won() bool    { return o.state.Load() == outcomeWon }
func (o *Outcome) Over() bool   { return o.state.Load() != outcomeRunning }

// Done は勝敗が決まると閉じられます。
func (o *Outcome) Done() <-chan struct{} {
	return o.done
}

func (o *Outcome) finish() {
	o.doneOnce.Do(func() { close(o.done) })
}

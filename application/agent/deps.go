package agent

import (
	"errors"

	"spiders/application/state"
)

var ErrMissingDependency = errors.New("agent: missing dependency")

// Deps はすべてのエージェントが共有する依存です。
type Deps struct {
	Grid     state.Grid
	Notifier state.Notifier
	Pacer    Pacer
	Outcome  *Outcome
	Metrics  state.MetricsRecorder
}

func (d Deps) validate() error {
	if d.Grid == nil || d.Pacer == nil || d.Outcome == nil {
		return ErrMissingDependency
	}
	return nil
}

func (d Deps) withDefaults() Deps {
	if d.Notifier == nil {
		d.Notifier = state.NopNotifier{}
	}
	if d.Metrics == nil {
		d.Metrics = state.NopMetrics{}
	}
	return d
}

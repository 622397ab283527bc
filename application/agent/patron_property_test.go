package agent

import (
	"context"
	"testing"

	"pgregory.net/rapid"

	"spiders/application/state/memory"
	"spiders/domain"
)

// パトロンは必ず消滅し、壊す壁は高々1つ。
func TestPatron_TerminatesAndDestroysAtMostOneWall(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		height := rapid.IntRange(2, 10).Draw(t, "height")
		width := rapid.IntRange(2, 10).Draw(t, "width")
		exit := pos(rapid.IntRange(0, height-1).Draw(t, "exitRow"), rapid.IntRange(0, width-1).Draw(t, "exitCol"))
		shooter := pos(rapid.IntRange(0, height-1).Draw(t, "row"), rapid.IntRange(0, width-1).Draw(t, "col"))
		facing := rapid.SampledFrom(domain.Directions[:]).Draw(t, "facing")

		var walls []domain.Position
		for _, w := range rapid.SliceOfN(rapid.IntRange(0, height*width-1), 0, height*width).Draw(t, "walls") {
			p := pos(w/width, w%width)
			if p != exit && p != shooter {
				walls = append(walls, p)
			}
		}
		store, err := memory.NewStore(height, width, walls, exit)
		if err != nil {
			t.Fatalf("NewStore: %v", err)
		}
		grid := memory.NewConcurrentGrid(store)
		pacer := &countingPacer{}
		deps := Deps{Grid: grid, Pacer: pacer, Outcome: NewOutcome(nil)}

		wallsBefore := countOccupant(grid.Snapshot(), domain.OccupantWall)
		patron, err := NewPatron(deps, shooter, facing)
		if err != nil {
			t.Fatalf("NewPatron: %v", err)
		}
		if err := patron.Run(context.Background()); err != nil {
			t.Fatalf("Run: %v", err)
		}

		snap := grid.Snapshot()
		destroyed := wallsBefore - countOccupant(snap, domain.OccupantWall)
		if destroyed < 0 || destroyed > 1 {
			t.Fatalf("patron destroyed %d walls", destroyed)
		}
		if n := countOccupant(snap, domain.OccupantPatron); n != 0 {
			t.Fatalf("terminated patron left %d cells", n)
		}
		if ticks := pacer.count(domain.OccupantPatron); ticks > height+width {
			t.Fatalf("patron flew %d ticks on a %dx%d grid", ticks, height, width)
		}
	})
}

func countOccupant(cells [][]domain.Cell, kind domain.Occupant) int {
	n := 0
	for _, row := range cells {
		for _, c := range row {
			if c.Occupant == kind {
				n++
			}
		}
	}
	return n
}

package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pgregory.net/rapid"

	"spiders/application/state"
	"spiders/domain"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

type contentionRecorder struct {
	mu    sync.Mutex
	waits map[string]time.Duration
}

func (r *contentionRecorder) RecordLatency(context.Context, string, time.Duration) {}

func (r *contentionRecorder) RecordContention(_ context.Context, endpoint string, wait time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.waits == nil {
		r.waits = make(map[string]time.Duration)
	}
	r.waits[endpoint] += wait
}

func (r *contentionRecorder) IncrementCounter(context.Context, string, int) {}

func TestConcurrentGrid_RecordsContention(t *testing.T) {
	store := newTestStore(t)
	rec := &contentionRecorder{}
	grid := NewConcurrentGrid(store).WithClock((&stepClock{}).Now).WithMetrics(rec)

	grid.StepSpider(domain.Position{}, false, pos(0, 0))
	if rec.waits["spider"] != time.Millisecond {
		t.Fatalf("unexpected contention record: %+v", rec.waits)
	}
}

func TestConcurrentGrid_OutOfBoundsReadsAsWall(t *testing.T) {
	grid := NewConcurrentGrid(newTestStore(t))
	if got := grid.Occupant(pos(-1, 0)); got != domain.OccupantWall {
		t.Fatalf("expected wall, got %s", got)
	}
	if got := grid.Cell(pos(0, 9)); got.Occupant != domain.OccupantWall {
		t.Fatalf("expected wall, got %+v", got)
	}
}

// 並行に動くクモ・パトロン・プレイヤーの後でも、クモとプレイヤーの数は変わらず、
// パトロンは残らず、壁はパトロンに壊された分だけ減る。
func TestConcurrentGrid_OccupancyPreserved(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		height := rapid.IntRange(3, 8).Draw(t, "height")
		width := rapid.IntRange(3, 8).Draw(t, "width")
		exit := domain.Position{Row: height - 1, Col: width - 1}

		wallSet := map[domain.Position]bool{}
		for _, i := range rapid.SliceOfN(rapid.IntRange(0, (height-2)*width-1), 0, 6).Draw(t, "walls") {
			wallSet[domain.Position{Row: 1 + i/width, Col: i % width}] = true
		}
		walls := make([]domain.Position, 0, len(wallSet))
		for w := range wallSet {
			walls = append(walls, w)
		}
		store, err := NewStore(height, width, walls, exit)
		if err != nil {
			t.Fatalf("NewStore: %v", err)
		}
		grid := NewConcurrentGrid(store)

		playerStart := domain.Position{Row: height - 1, Col: 0}
		if err := grid.Place(domain.OccupantPlayer, domain.DirectionRight, playerStart); err != nil {
			t.Fatalf("place player: %v", err)
		}
		playerWalk := rapid.SliceOfN(rapid.SampledFrom(domain.Directions[:]), 1, 30).Draw(t, "player")

		spiders := rapid.IntRange(1, width-1).Draw(t, "spiders")
		walks := make([][]domain.Direction, spiders)
		for i := range walks {
			walks[i] = rapid.SliceOfN(rapid.SampledFrom(domain.Directions[:]), 1, 30).Draw(t, "walk")
		}
		shots := rapid.SliceOfN(rapid.IntRange(0, height-1), 0, 10).Draw(t, "shots")

		var (
			wg        sync.WaitGroup
			destroyed atomic.Int32
			finals    = make([]domain.Position, spiders)
			playerEnd domain.Position
			reached   bool
		)
		for i, walk := range walks {
			start := domain.Position{Row: 0, Col: i}
			if err := grid.Place(domain.OccupantSpider, domain.DirectionNone, start); err != nil {
				t.Fatalf("place spider: %v", err)
			}
			wg.Add(1)
			go func(i int, cur domain.Position, walk []domain.Direction) {
				defer wg.Done()
				for _, d := range walk {
					next := cur.Next(d)
					if grid.StepSpider(cur, true, next) == state.SpiderMoved {
						cur = next
					}
				}
				finals[i] = cur
			}(i, start, walk)
		}
		for _, row := range shots {
			wg.Add(1)
			go func(row int) {
				defer wg.Done()
				var prev domain.Position
				hasPrev := false
				cur := domain.Position{Row: row, Col: 0}
				for {
					step := grid.StepPatron(prev, hasPrev, cur, domain.DirectionRight)
					if step == state.PatronDestroyedWall {
						destroyed.Add(1)
					}
					if step.Terminal() {
						return
					}
					prev, hasPrev = cur, true
					cur = cur.Next(domain.DirectionRight)
				}
			}(row)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			cur := playerStart
			for _, d := range playerWalk {
				next := cur.Next(d)
				switch grid.StepPlayer(cur, next, d) {
				case state.PlayerMoved:
					cur = next
				case state.PlayerReachedExit:
					cur, reached = next, true
				}
				if reached {
					break
				}
			}
			playerEnd = cur
		}()
		wg.Wait()

		counts := map[domain.Occupant]int{}
		for _, row := range grid.Snapshot() {
			for _, c := range row {
				counts[c.Occupant]++
			}
		}
		if counts[domain.OccupantSpider] != spiders {
			t.Fatalf("spider count changed: got %d want %d", counts[domain.OccupantSpider], spiders)
		}
		if counts[domain.OccupantPlayer] != 1 {
			t.Fatalf("player must stay unique, got %d", counts[domain.OccupantPlayer])
		}
		if counts[domain.OccupantPatron] != 0 {
			t.Fatalf("terminated patrons left %d cells", counts[domain.OccupantPatron])
		}
		exits := counts[domain.OccupantExit]
		if reached {
			exits++
		}
		if exits != 1 {
			t.Fatalf("exit must stay unique, got %d (player reached it: %v)", counts[domain.OccupantExit], reached)
		}
		if want := len(walls) - int(destroyed.Load()); counts[domain.OccupantWall] != want {
			t.Fatalf("walls may only disappear by patron hits: got %d want %d", counts[domain.OccupantWall], want)
		}
		for i, p := range finals {
			if got := grid.Occupant(p); got != domain.OccupantSpider {
				t.Fatalf("spider %d should end on %s, found %s", i, p, got)
			}
		}
		if got := grid.Occupant(playerEnd); got != domain.OccupantPlayer {
			t.Fatalf("player should end on %s, found %s", playerEnd, got)
		}
	})
}

// Package terminal draws the board with tcell and maps keys to player commands.
package terminal

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"

	"spiders/application/state"
	"spiders/domain"
)

// Source supplies the board to draw.
type Source interface {
	Snapshot() [][]domain.Cell
}

type status int32

const (
	statusPlaying status = iota
	statusWon
	statusKilled
)

// Each cell is drawn two columns wide so the board looks square.
const cellWidth = 2

var (
	styleEmpty  = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleWall   = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleSpider = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	stylePlayer = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	styleDead   = tcell.StyleDefault.Foreground(tcell.ColorRed).Reverse(true)
	stylePatron = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleExit   = tcell.StyleDefault.Foreground(tcell.ColorBlue).Bold(true)
	styleText   = tcell.StyleDefault
)

// Renderer redraws the screen whenever the grid changes. It implements
// state.Notifier; notifications only schedule a redraw and never block.
type Renderer struct {
	screen tcell.Screen

	mu     sync.RWMutex
	source Source

	redraw chan struct{}
	status atomic.Int32
}

var _ state.Notifier = (*Renderer)(nil)

func NewRenderer(screen tcell.Screen) *Renderer {
	return &Renderer{
		screen: screen,
		redraw: make(chan struct{}, 1),
	}
}

// Attach sets the board source and schedules the first draw.
func (r *Renderer) Attach(src Source) {
	r.mu.Lock()
	r.source = src
	r.mu.Unlock()
	r.schedule()
}

func (r *Renderer) GridChanged() { r.schedule() }

func (r *Renderer) PlayerKilled() {
	r.status.CompareAndSwap(int32(statusPlaying), int32(statusKilled))
	r.schedule()
}

func (r *Renderer) PlayerWon() {
	r.status.CompareAndSwap(int32(statusPlaying), int32(statusWon))
	r.schedule()
}

func (r *Renderer) schedule() {
	select {
	case r.redraw <- struct{}{}:
	default:
	}
}

// Run draws on every scheduled redraw until ctx is done.
func (r *Renderer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.redraw:
			r.Draw()
		}
	}
}

// Draw renders the current board and the status line.
func (r *Renderer) Draw() {
	r.mu.RLock()
	src := r.source
	r.mu.RUnlock()

	r.screen.Clear()
	rows := 0
	if src != nil {
		cells := src.Snapshot()
		rows = len(cells)
		for y, row := range cells {
			for x, c := range row {
				ch, style := Glyph(c)
				r.screen.SetContent(x*cellWidth, y, ch, nil, style)
			}
		}
	}
	r.drawText(0, rows+1, r.statusLine())
	r.drawText(0, rows+2, "arrows/hjkl: turn or move  space/enter: fire  q/esc: quit")
	r.screen.Show()
}

func (r *Renderer) statusLine() string {
	switch status(r.status.Load()) {
	case statusWon:
		return "You escaped! Press any key to exit."
	case statusKilled:
		return "A spider got you. Press any key to exit."
	default:
		return "Reach the exit without meeting a spider."
	}
}

func (r *Renderer) drawText(x, y int, s string) {
	for _, ch := range s {
		r.screen.SetContent(x, y, ch, nil, styleText)
		x++
	}
}

// Glyph returns the rune and style used for a cell.
func Glyph(c domain.Cell) (rune, tcell.Style) {
	switch c.Occupant {
	case domain.OccupantWall:
		return '█', styleWall
	case domain.OccupantSpider:
		return 'X', styleSpider
	case domain.OccupantPlayer:
		if c.Killed {
			return '✖', styleDead
		}
		return facingGlyph(c.Facing), stylePlayer
	case domain.OccupantPatron:
		return '•', stylePatron
	case domain.OccupantExit:
		return 'E', styleExit
	default:
		return '·', styleEmpty
	}
}

func facingGlyph(d domain.Direction) rune {
	switch d {
	case domain.DirectionUp:
		return '▲'
	case domain.DirectionDown:
		return '▼'
	case domain.DirectionLeft:
		return '◀'
	default:
		return '▶'
	}
}

package main

import (
	"testing"

	game "spiders/domain"
)

func parseBoard(rows ...string) [][]game.Cell {
	cells := make([][]game.Cell, len(rows))
	for r, row := range rows {
		cells[r] = make([]game.Cell, len(row))
		for c, ch := range row {
			var o game.Occupant
			switch ch {
			case '#':
				o = game.OccupantWall
			case 'P':
				o = game.OccupantPlayer
			case 'E':
				o = game.OccupantExit
			case 'S':
				o = game.OccupantSpider
			}
			cells[r][c] = game.Cell{Occupant: o}
		}
	}
	return cells
}

func TestNextMove(t *testing.T) {
	tests := []struct {
		name  string
		board []string
		want  game.Direction
		ok    bool
	}{
		{"straight right", []string{"P..E"}, game.DirectionRight, true},
		{"around a wall", []string{
			"P#E",
			"...",
		}, game.DirectionDown, true},
		{"spider blocks the corridor", []string{
			"PS.E",
			"....",
		}, game.DirectionDown, true},
		{"walled in", []string{
			"P#.",
			"##E",
		}, game.DirectionNone, false},
		{"no player", []string{"..E"}, game.DirectionNone, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NextMove(parseBoard(tt.board...))
			if got != tt.want || ok != tt.ok {
				t.Errorf("NextMove() = %v, %v; want %v, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

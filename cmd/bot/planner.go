package main

import (
	game "spiders/domain"
)

// NextMove は盤面上のプレイヤーから出口への最短経路の最初の一歩を返す。
// 空きセルと出口だけを通り、経路がなければ false を返す。
func NextMove(cells [][]game.Cell) (game.Direction, bool) {
	start, ok := find(cells, game.OccupantPlayer)
	if !ok {
		return game.DirectionNone, false
	}
	height, width := len(cells), len(cells[0])

	first := map[game.Position]game.Direction{}
	queue := []game.Position{start}
	seen := map[game.Position]bool{start: true}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range game.Directions {
			next := cur.Next(d)
			if !next.Valid(height, width) || seen[next] {
				continue
			}
			seen[next] = true
			step := d
			if cur != start {
				step = first[cur]
			}
			switch cells[next.Row][next.Col].Occupant {
			case game.OccupantExit:
				return step, true
			case game.OccupantEmpty:
				first[next] = step
				queue = append(queue, next)
			}
		}
	}
	return game.DirectionNone, false
}

func find(cells [][]game.Cell, kind game.Occupant) (game.Position, bool) {
	for r, row := range cells {
		for c, cell := range row {
			if cell.Occupant == kind {
				return game.Position{Row: r, Col: c}, true
			}
		}
	}
	return game.Position{}, false
}

package pursuit

import (
	"spiders/application/state"
	"spiders/domain"
)

// Snapshot はグリッドのコピーを state.Reader として読むためのビューです。
// 計画はロックの外でこのコピーに対して行う。
type Snapshot [][]domain.Cell

func (s Snapshot) Dimensions() (int, int) {
	if len(s) == 0 {
		return 0, 0
	}
	return len(s), len(s[0])
}

func (s Snapshot) Occupant(pos domain.Position) domain.Occupant {
	h, w := s.Dimensions()
	if !pos.Valid(h, w) {
		return domain.OccupantWall
	}
	return s[pos.Row][pos.Col].Occupant
}

var _ state.Reader = Snapshot(nil)

package memory

import (
	"errors"
	"fmt"

	"spiders/application/state"
	"spiders/domain"
)

var (
	ErrInvalidDimensions = errors.New("memory: grid dimensions must be positive")
	ErrOutOfBounds       = errors.New("memory: position out of bounds")
	ErrCellOccupied      = errors.New("memory: cell is not empty")
)

// Store はロックを持たない素のセル配列です。
// 排他制御は ConcurrentGrid が担当し、Store 自身は状態遷移の規則のみに集中する。
type Store struct {
	height, width int
	cells         [][]domain.Cell
}

// NewStore は壁と出口を配置した盤面を生成する。残りのセルはすべて EMPTY。
func NewStore(height, width int, walls []domain.Position, exit domain.Position) (*Store, error) {
	if height <= 0 || width <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, height, width)
	}
	s := &Store{
		height: height,
		width:  width,
		cells:  make([][]domain.Cell, height),
	}
	for row := range s.cells {
		s.cells[row] = make([]domain.Cell, width)
	}
	for _, w := range walls {
		if !s.valid(w) {
			return nil, fmt.Errorf("%w: wall %s", ErrOutOfBounds, w)
		}
		s.setOccupant(domain.OccupantWall, w)
	}
	if !s.valid(exit) {
		return nil, fmt.Errorf("%w: exit %s", ErrOutOfBounds, exit)
	}
	s.setOccupant(domain.OccupantExit, exit)
	return s, nil
}

func (s *Store) valid(pos domain.Position) bool {
	return pos.Valid(s.height, s.width)
}

func (s *Store) occupant(pos domain.Position) domain.Occupant {
	return s.cells[pos.Row][pos.Col].Occupant
}

// setOccupant は EMPTY / WALL になったセルの向きを消去する。
func (s *Store) setOccupant(kind domain.Occupant, pos domain.Position) {
	c := &s.cells[pos.Row][pos.Col]
	c.Occupant = kind
	if kind == domain.OccupantEmpty || kind == domain.OccupantWall {
		c.Facing = domain.DirectionNone
	}
}

func (s *Store) setFacing(facing domain.Direction, pos domain.Position) {
	s.cells[pos.Row][pos.Col].Facing = facing
}

func (s *Store) markKilled(pos domain.Position) {
	s.cells[pos.Row][pos.Col].Killed = true
}

// vacate は kind がまだそのセルにいる場合のみ EMPTY に戻す。
func (s *Store) vacate(kind domain.Occupant, pos domain.Position) {
	if s.valid(pos) && s.occupant(pos) == kind {
		s.setOccupant(domain.OccupantEmpty, pos)
	}
}

func (s *Store) place(kind domain.Occupant, facing domain.Direction, pos domain.Position) error {
	if !s.valid(pos) {
		return fmt.Errorf("%w: %s", ErrOutOfBounds, pos)
	}
	if s.occupant(pos) != domain.OccupantEmpty {
		return fmt.Errorf("%w: %s holds %s", ErrCellOccupied, pos, s.occupant(pos))
	}
	s.setOccupant(kind, pos)
	s.setFacing(facing, pos)
	return nil
}

// applySpider はクモの移動または攻撃を行う。
// 移動先がプレイヤーなら移動せずその場で倒す。
func (s *Store) applySpider(from domain.Position, hasFrom bool, to domain.Position) state.SpiderStep {
	if !s.valid(to) || !s.occupant(to).PassableForSpider() {
		return state.SpiderBlocked
	}
	if s.occupant(to) == domain.OccupantPlayer {
		s.markKilled(to)
		return state.SpiderKilledPlayer
	}
	s.setOccupant(domain.OccupantSpider, to)
	s.setFacing(domain.DirectionNone, to)
	if hasFrom && from != to {
		s.vacate(domain.OccupantSpider, from)
	}
	return state.SpiderMoved
}

// applyPatron はパトロンを1セル進める。壁に当たった場合はその壁を壊して消滅する。
func (s *Store) applyPatron(from domain.Position, hasFrom bool, to domain.Position, facing domain.Direction) state.PatronStep {
	if !s.valid(to) {
		if hasFrom {
			s.vacate(domain.OccupantPatron, from)
		}
		return state.PatronLeftGrid
	}
	switch s.occupant(to) {
	case domain.OccupantEmpty:
		s.setOccupant(domain.OccupantPatron, to)
		s.setFacing(facing, to)
		if hasFrom {
			s.vacate(domain.OccupantPatron, from)
		}
		return state.PatronFlew
	case domain.OccupantWall:
		s.setOccupant(domain.OccupantEmpty, to)
		if hasFrom {
			s.vacate(domain.OccupantPatron, from)
		}
		return state.PatronDestroyedWall
	default:
		if hasFrom {
			s.vacate(domain.OccupantPatron, from)
		}
		return state.PatronCollided
	}
}

// applyPlayer はプレイヤーを移動させる。出口に入ると出口セルへ移って勝利となる。
// 既に捕食されたセルからは動けない。
func (s *Store) applyPlayer(from, to domain.Position, facing domain.Direction) state.PlayerStep {
	if !s.valid(to) {
		return state.PlayerBlocked
	}
	if s.valid(from) && s.cells[from.Row][from.Col].Killed {
		return state.PlayerBlocked
	}
	switch s.occupant(to) {
	case domain.OccupantEmpty:
		s.setOccupant(domain.OccupantPlayer, to)
		s.setFacing(facing, to)
		s.vacate(domain.OccupantPlayer, from)
		return state.PlayerMoved
	case domain.OccupantExit:
		s.setOccupant(domain.OccupantPlayer, to)
		s.setFacing(facing, to)
		s.vacate(domain.OccupantPlayer, from)
		return state.PlayerReachedExit
	default:
		return state.PlayerBlocked
	}
}

func (s *Store) boundaryIntact(boundary []domain.Position) bool {
	for _, pos := range boundary {
		if s.valid(pos) && s.occupant(pos) == domain.OccupantEmpty {
			return false
		}
	}
	return true
}

func (s *Store) snapshot() [][]domain.Cell {
	out := make([][]domain.Cell, s.height)
	for row := range s.cells {
		out[row] = append([]domain.Cell(nil), s.cells[row]...)
	}
	return out
}

package domain

import "fmt"

// Occupant はセルを占有しているものの種別です。
type Occupant uint8

const (
	OccupantEmpty Occupant = iota
	OccupantWall
	OccupantSpider
	OccupantPlayer
	OccupantPatron
	OccupantExit
)

// PassableForSpider はクモが進入（または攻撃）できる種別かを返します。
func (o Occupant) PassableForSpider() bool {
	return o == OccupantEmpty || o == OccupantPlayer
}

func (o Occupant) String() string {
	switch o {
	case OccupantEmpty:
		return "EMPTY"
	case OccupantWall:
		return "WALL"
	case OccupantSpider:
		return "SPIDER"
	case OccupantPlayer:
		return "PLAYER"
	case OccupantPatron:
		return "PATRON"
	case OccupantExit:
		return "EXIT"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(o))
	}
}

// Cell はグリッドの1セルの状態です。
// Facing は PLAYER / PATRON / SPIDER のときのみ意味を持ちます。
// Killed は一度立つと戻りません。
type Cell struct {
	Occupant Occupant
	Facing   Direction
	Killed   bool
}

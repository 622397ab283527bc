package domain

import (
	"fmt"
	"strings"
)

// Direction はグリッド上の移動方向を表します。
type Direction uint8

const (
	DirectionNone Direction = iota
	DirectionUp
	DirectionDown
	DirectionLeft
	DirectionRight
)

// Directions は有効な4方向です。
var Directions = [...]Direction{DirectionUp, DirectionDown, DirectionLeft, DirectionRight}

// Contra は逆方向を返します。DirectionNone の逆は DirectionNone です。
func (d Direction) Contra() Direction {
	switch d {
	case DirectionUp:
		return DirectionDown
	case DirectionDown:
		return DirectionUp
	case DirectionLeft:
		return DirectionRight
	case DirectionRight:
		return DirectionLeft
	default:
		return DirectionNone
	}
}

// Delta は (行, 列) の変化量を返します。
func (d Direction) Delta() (int, int) {
	switch d {
	case DirectionUp:
		return -1, 0
	case DirectionDown:
		return 1, 0
	case DirectionLeft:
		return 0, -1
	case DirectionRight:
		return 0, 1
	default:
		return 0, 0
	}
}

func (d Direction) IsHorizontal() bool { return d == DirectionLeft || d == DirectionRight }
func (d Direction) IsVertical() bool   { return d == DirectionUp || d == DirectionDown }

func (d Direction) String() string {
	switch d {
	case DirectionNone:
		return "NONE"
	case DirectionUp:
		return "UP"
	case DirectionDown:
		return "DOWN"
	case DirectionLeft:
		return "LEFT"
	case DirectionRight:
		return "RIGHT"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(d))
	}
}

// ParseDirection は "UP" などの名前から方向を得ます。
func ParseDirection(s string) (Direction, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for _, d := range Directions {
		if d.String() == name {
			return d, nil
		}
	}
	return DirectionNone, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
}

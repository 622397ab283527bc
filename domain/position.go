package domain

import (
	"fmt"
	"math"
)

// Position はグリッド上のセル座標 (行, 列) を表す値オブジェクトです。
type Position struct {
	Row, Col int
}

// Valid は 0 <= Row < height かつ 0 <= Col < width のとき true を返します。
func (p Position) Valid(height, width int) bool {
	return p.Row >= 0 && p.Row < height && p.Col >= 0 && p.Col < width
}

// Next は方向 d に1セル進んだ座標を返します。
func (p Position) Next(d Direction) Position {
	dr, dc := d.Delta()
	return Position{Row: p.Row + dr, Col: p.Col + dc}
}

// Distance はユークリッド距離を返します。
func (p Position) Distance(q Position) float64 {
	return math.Hypot(float64(absInt(p.Col-q.Col)), float64(absInt(p.Row-q.Row)))
}

// Adjacent は p と q が上下左右で隣接しているかを返します。
func (p Position) Adjacent(q Position) bool {
	return absInt(p.Row-q.Row)+absInt(p.Col-q.Col) == 1
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

package pursuit

import (
	"spiders/application/state"
	"spiders/domain"
)

const (
	defaultHorizontal = domain.DirectionLeft
	defaultVertical   = domain.DirectionUp
)

// directionSet は方向の小さな集合です。
type directionSet uint8

func (s directionSet) has(d domain.Direction) bool { return s&(1<<d) != 0 }
func (s *directionSet) add(d domain.Direction)     { *s |= 1 << d }
func (s *directionSet) clear()                     { *s = 0 }

// Heuristic は1回の経路計画のあいだだけ使われる方向優先度エンジンです。
// 起点と目標のスナップショットから主方向・逆方向・軸ごとの残り距離を決め、
// 障害物に当たるたびに次に試す方向を選びます。計画ごとに新しく生成し、使い回さない。
type Heuristic struct {
	horizontal, vertical             domain.Direction
	horizontalContra, verticalContra domain.Direction
	horizontalIsDefault              bool

	horizontalDiff, verticalDiff int

	actual domain.Direction
	tested domain.Direction
	failed directionSet
}

// NewHeuristic は origin から target へ向かう方向優先度を計算します。
func NewHeuristic(origin, target domain.Position) *Heuristic {
	h := &Heuristic{}

	switch {
	case target.Col > origin.Col:
		h.horizontal = domain.DirectionRight
	case target.Col < origin.Col:
		h.horizontal = domain.DirectionLeft
	default:
		h.horizontal = defaultHorizontal
		h.horizontalIsDefault = true
	}
	switch {
	case target.Row > origin.Row:
		h.vertical = domain.DirectionDown
	case target.Row < origin.Row:
		h.vertical = domain.DirectionUp
	default:
		h.vertical = defaultVertical
	}
	h.horizontalContra = h.horizontal.Contra()
	h.verticalContra = h.vertical.Contra()

	h.horizontalDiff = absInt(origin.Col - target.Col)
	h.verticalDiff = absInt(origin.Row - target.Row)
	return h
}

func (h *Heuristic) Horizontal() domain.Direction       { return h.horizontal }
func (h *Heuristic) Vertical() domain.Direction         { return h.vertical }
func (h *Heuristic) HorizontalContra() domain.Direction { return h.horizontalContra }
func (h *Heuristic) VerticalContra() domain.Direction   { return h.verticalContra }
func (h *Heuristic) HorizontalIsDefault() bool          { return h.horizontalIsDefault }
func (h *Heuristic) Actual() domain.Direction           { return h.actual }
func (h *Heuristic) Diffs() (horizontal, vertical int)  { return h.horizontalDiff, h.verticalDiff }

// SetActual は現在進んでいる方向を設定します。
func (h *Heuristic) SetActual(d domain.Direction) {
	h.actual = d
}

// MarkFailed は d が許可されなかったことを記録します。
func (h *Heuristic) MarkFailed(d domain.Direction) {
	h.tested = d
	h.failed.add(d)
}

// ClearFailed は1セル進めたときに失敗記録を消去します。
func (h *Heuristic) ClearFailed() {
	h.failed.clear()
}

// Failed は現在位置で d が失敗済みかを返します。
func (h *Heuristic) Failed(d domain.Direction) bool {
	return h.failed.has(d)
}

// ActualIsContra は現在の方向が逆方向かを返します。
func (h *Heuristic) ActualIsContra() bool {
	return h.actual == h.verticalContra || h.actual == h.horizontalContra
}

// ChangeDiff は現在の方向へ1セル進んだぶん残り距離を更新します。
// 主方向なら減らし、逆方向なら増やす。
func (h *Heuristic) ChangeDiff() {
	switch h.actual {
	case h.horizontal:
		h.horizontalDiff--
	case h.vertical:
		h.verticalDiff--
	case h.verticalContra:
		h.verticalDiff++
	default:
		h.horizontalDiff++
	}
}

// ActualDiff は現在の方向の軸に残っている符号付きの距離を返します。
func (h *Heuristic) ActualDiff() int {
	switch h.actual {
	case h.horizontal:
		return h.horizontalDiff
	case h.vertical:
		return h.verticalDiff
	case h.verticalContra:
		return -h.verticalDiff
	default:
		return -h.horizontalDiff
	}
}

// Next は優先度に従って次に試す方向を返します。
// blocked は現在の方向にそのまま進んだセルが許可されなかったことを表し、
// その場合は現在の方向を失敗として記録します。
func (h *Heuristic) Next(last, target domain.Position, blocked bool) domain.Direction {
	// 主方向2つを続けて試したまま1セルも進めていない
	pingPong := (h.actual == h.horizontal && h.tested == h.vertical) ||
		(h.actual == h.vertical && h.tested == h.horizontal)
	testedHorizontal := h.tested == h.horizontal
	testedVertical := h.tested == h.vertical

	var next domain.Direction
	switch {
	case pingPong:
		switch {
		case h.horizontalDiff == 0:
			next = h.horizontal
			if h.failed.has(h.horizontal) {
				next = h.horizontalContra
			}
		case h.verticalDiff == 0:
			next = h.vertical
			if h.failed.has(h.vertical) {
				next = h.verticalContra
			}
		default:
			hc := last.Next(h.horizontalContra).Distance(target)
			vc := last.Next(h.verticalContra).Distance(target)
			if hc < vc {
				next = h.horizontalContra
			} else {
				next = h.verticalContra
			}
		}
	case h.actual == h.horizontal:
		if h.verticalDiff > 0 {
			next = h.vertical
		} else {
			next = h.verticalContra
		}
	case h.actual == h.vertical:
		if h.horizontalDiff > 0 {
			next = h.horizontal
		} else {
			next = h.horizontalContra
		}
	case h.actual == h.verticalContra:
		if testedHorizontal {
			next = h.actual
		} else {
			next = h.horizontal
		}
	case h.actual == h.horizontalContra:
		if testedVertical {
			next = h.actual
		} else {
			next = h.vertical
		}
	default:
		next = h.horizontal
	}

	h.tested = domain.DirectionNone
	if blocked {
		h.failed.add(h.actual)
	}
	return next
}

// ChooseFirst は最初の1歩の方向とそのセルを選びます。
// 水平主方向（既定値でない場合）、垂直主方向の順に通行可能なものを選び、
// どちらも塞がっていれば盤内にある逆方向セルのうち target に近い方を選ぶ。同距離なら垂直側。
func (h *Heuristic) ChooseFirst(r state.Reader, origin, target domain.Position) (domain.Direction, domain.Position) {
	height, width := r.Dimensions()
	passable := func(p domain.Position) bool {
		return p.Valid(height, width) && r.Occupant(p).PassableForSpider()
	}

	if hp := origin.Next(h.horizontal); !h.horizontalIsDefault && passable(hp) {
		return h.horizontal, hp
	}
	if vp := origin.Next(h.vertical); passable(vp) {
		return h.vertical, vp
	}

	vc := origin.Next(h.verticalContra)
	hc := origin.Next(h.horizontalContra)
	vcExists := vc.Valid(height, width)
	hcExists := hc.Valid(height, width)
	switch {
	case vcExists && hcExists:
		if vc.Distance(target) <= hc.Distance(target) {
			return h.verticalContra, vc
		}
		return h.horizontalContra, hc
	case vcExists:
		return h.verticalContra, vc
	default:
		return h.horizontalContra, hc
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

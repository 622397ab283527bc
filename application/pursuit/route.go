package pursuit

import (
	"spiders/application/state"
	"spiders/domain"
)

// 1ステップで試す方向の上限。ヒューリスティックが同じ方向を返し続けても止まるようにする。
const maxDirectionAttempts = 8

// Route は1回の計画で得られた座標列です。先頭は起点。
type Route []domain.Position

// FirstHop は起点の次のセルを返します。
func (r Route) FirstHop() (domain.Position, bool) {
	if len(r) < 2 {
		return domain.Position{}, false
	}
	return r[1], true
}

// BuildRoute は origin から target までの候補経路を1セルずつ貪欲に組み立てます。
// グリッドは読むだけで変更しない。計画中に origin 自身へ戻ったときは経路を起点から作り直す。
// 目標に着くか、どの方向にも進めなくなるか、盤面サイズに比例した上限に達したら終了する。
func BuildRoute(r state.Reader, origin, target domain.Position) Route {
	if origin == target {
		return nil
	}
	height, width := r.Dimensions()
	permitted := func(p domain.Position) bool {
		if !p.Valid(height, width) {
			return false
		}
		return r.Occupant(p).PassableForSpider() || p == origin
	}

	h := NewHeuristic(origin, target)

	route := make(Route, 0, absInt(origin.Row-target.Row)+absInt(origin.Col-target.Col)+2)
	route = append(route, origin)

	dir, cur := h.ChooseFirst(r, origin, target)
	if !permitted(cur) {
		// 4方向とも進めない
		return route
	}
	route = append(route, cur)
	h.SetActual(dir)
	h.ChangeDiff()

	maxSteps := height * width * 4
	for steps := 0; cur != target && steps < maxSteps; steps++ {
		switch {
		case h.ActualDiff() <= 0:
			ahead := cur.Next(h.Actual())
			dir = h.Next(cur, target, !permitted(ahead))
		case h.ActualIsContra():
			dir = h.Next(cur, target, false)
		default:
			dir = h.Actual()
		}

		found := false
		for attempt := 0; attempt < maxDirectionAttempts; attempt++ {
			candidate := cur.Next(dir)
			if !permitted(candidate) {
				h.MarkFailed(dir)
				dir = h.Next(cur, target, false)
				continue
			}
			if candidate == origin {
				route = route[:0]
			}
			route = append(route, candidate)
			h.SetActual(dir)
			h.ChangeDiff()
			h.ClearFailed()
			cur = candidate
			found = true
			break
		}
		if !found {
			break
		}
	}
	return route
}

package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownDirection   = errors.New("domain: unknown direction")
	ErrUnknownPassingMode = errors.New("domain: unknown passing mode")
)

// PassingMode は巡回ルートの端での振る舞いです。
type PassingMode uint8

const (
	// PassingLoop は末尾に達すると先頭へ戻ります。
	PassingLoop PassingMode = iota
	// PassingBounce は端で折り返します。
	PassingBounce
)

func (m PassingMode) String() string {
	if m == PassingBounce {
		return "BOUNCE"
	}
	return "LOOP"
}

// ParsePassingMode は設定値から PassingMode を得ます。
// TO_THE_END_AND_BACK は BOUNCE の別名です。
func ParsePassingMode(s string) (PassingMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "LOOP":
		return PassingLoop, nil
	case "BOUNCE", "TO_THE_END_AND_BACK":
		return PassingBounce, nil
	default:
		return PassingLoop, fmt.Errorf("%w: %q", ErrUnknownPassingMode, s)
	}
}

// SpiderPlan は1匹のクモの巡回設定です。
type SpiderPlan struct {
	Name     string
	Route    []Position
	Boundary []Position
	Passing  PassingMode
}

// Layout はセッション開始時に一度だけ読み込まれる盤面構成です。
type Layout struct {
	Height, Width int
	Walls         []Position
	Exit          Position
	PlayerStart   Position
	Spiders       []SpiderPlan
}

// MaxPatrons は同時に飛行し得るパトロン数の上限です。
func (l Layout) MaxPatrons() int {
	return l.Height + l.Width - 2
}

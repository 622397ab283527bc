package service

import (
	"errors"
	"fmt"

	"spiders/domain"
)

var ErrInvalidLayout = errors.New("service: invalid layout")

// SimpleValidator は盤面構成の整合性を検証するデフォルト実装。
type SimpleValidator struct{}

func (SimpleValidator) Layout(l domain.Layout) error {
	if l.Height <= 0 || l.Width <= 0 {
		return fmt.Errorf("%w: play field must be positive, got %dx%d", ErrInvalidLayout, l.Height, l.Width)
	}
	inBounds := func(what string, p domain.Position) error {
		if !p.Valid(l.Height, l.Width) {
			return fmt.Errorf("%w: %s %s is outside %dx%d", ErrInvalidLayout, what, p, l.Height, l.Width)
		}
		return nil
	}

	walls := make(map[domain.Position]struct{}, len(l.Walls))
	for _, w := range l.Walls {
		if err := inBounds("wall", w); err != nil {
			return err
		}
		walls[w] = struct{}{}
	}
	if err := inBounds("exit", l.Exit); err != nil {
		return err
	}
	if _, ok := walls[l.Exit]; ok {
		return fmt.Errorf("%w: exit %s is a wall", ErrInvalidLayout, l.Exit)
	}
	if err := inBounds("player", l.PlayerStart); err != nil {
		return err
	}
	if _, ok := walls[l.PlayerStart]; ok {
		return fmt.Errorf("%w: player %s is on a wall", ErrInvalidLayout, l.PlayerStart)
	}
	if l.PlayerStart == l.Exit {
		return fmt.Errorf("%w: player starts on the exit", ErrInvalidLayout)
	}

	names := make(map[string]struct{}, len(l.Spiders))
	for _, sp := range l.Spiders {
		if _, dup := names[sp.Name]; dup {
			return fmt.Errorf("%w: duplicate spider %q", ErrInvalidLayout, sp.Name)
		}
		names[sp.Name] = struct{}{}
		if len(sp.Route) == 0 {
			return fmt.Errorf("%w: spider %q has an empty route", ErrInvalidLayout, sp.Name)
		}
		for _, p := range sp.Route {
			if err := inBounds("route of "+sp.Name, p); err != nil {
				return err
			}
			if _, ok := walls[p]; ok {
				return fmt.Errorf("%w: route of %q crosses wall %s", ErrInvalidLayout, sp.Name, p)
			}
			if p == l.Exit {
				return fmt.Errorf("%w: route of %q crosses the exit", ErrInvalidLayout, sp.Name)
			}
		}
		for _, p := range sp.Boundary {
			if err := inBounds("boundary of "+sp.Name, p); err != nil {
				return err
			}
		}
	}

	if !reachable(l, walls) {
		return fmt.Errorf("%w: exit %s is unreachable from %s", ErrInvalidLayout, l.Exit, l.PlayerStart)
	}
	return nil
}

// reachable は壁以外のセルだけを通ってプレイヤーが出口へ着けるかを幅優先で調べる。
func reachable(l domain.Layout, walls map[domain.Position]struct{}) bool {
	seen := map[domain.Position]bool{l.PlayerStart: true}
	queue := []domain.Position{l.PlayerStart}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == l.Exit {
			return true
		}
		for _, d := range domain.Directions {
			next := cur.Next(d)
			if !next.Valid(l.Height, l.Width) || seen[next] {
				continue
			}
			if _, ok := walls[next]; ok {
				continue
			}
			seen[next] = true
			queue = append(queue, next)
		}
	}
	return false
}

package service

import (
	"errors"
	"testing"

	"spiders/domain"
)

func TestSimpleValidator_Layout(t *testing.T) {
	base := func() domain.Layout {
		return domain.Layout{
			Height:      4,
			Width:       4,
			Walls:       []domain.Position{{Row: 1, Col: 1}},
			Exit:        domain.Position{Row: 3, Col: 3},
			PlayerStart: domain.Position{Row: 0, Col: 0},
			Spiders: []domain.SpiderPlan{{
				Name:     "s",
				Route:    []domain.Position{{Row: 0, Col: 2}, {Row: 0, Col: 3}},
				Boundary: []domain.Position{{Row: 1, Col: 1}},
			}},
		}
	}

	tests := []struct {
		name   string
		mutate func(*domain.Layout)
		ok     bool
	}{
		{name: "valid", mutate: func(*domain.Layout) {}, ok: true},
		{name: "zero height", mutate: func(l *domain.Layout) { l.Height = 0 }},
		{name: "wall out of bounds", mutate: func(l *domain.Layout) { l.Walls = append(l.Walls, domain.Position{Row: 4, Col: 0}) }},
		{name: "exit on wall", mutate: func(l *domain.Layout) { l.Exit = domain.Position{Row: 1, Col: 1} }},
		{name: "player on wall", mutate: func(l *domain.Layout) { l.PlayerStart = domain.Position{Row: 1, Col: 1} }},
		{name: "player on exit", mutate: func(l *domain.Layout) { l.PlayerStart = l.Exit }},
		{name: "empty route", mutate: func(l *domain.Layout) { l.Spiders[0].Route = nil }},
		{name: "route on wall", mutate: func(l *domain.Layout) { l.Spiders[0].Route[1] = domain.Position{Row: 1, Col: 1} }},
		{name: "boundary out of bounds", mutate: func(l *domain.Layout) { l.Spiders[0].Boundary[0] = domain.Position{Row: -1, Col: 0} }},
		{name: "duplicate spider", mutate: func(l *domain.Layout) { l.Spiders = append(l.Spiders, l.Spiders[0]) }},
		{name: "exit walled in", mutate: func(l *domain.Layout) {
			l.Walls = append(l.Walls, domain.Position{Row: 2, Col: 3}, domain.Position{Row: 3, Col: 2})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := base()
			tt.mutate(&l)
			err := SimpleValidator{}.Layout(l)
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidLayout) {
				t.Fatalf("expected ErrInvalidLayout, got %v", err)
			}
		})
	}
}

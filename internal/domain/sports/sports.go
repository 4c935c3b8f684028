// Package sports holds the static registry of rated sports.
package sports

import (
	"fmt"
	"strings"

	"github.com/okian/sportselo/internal/domain/model"
)

// Kind selects the rating law a sport's contests are applied with.
type Kind string

// Sport kinds.
const (
	KindIndividual Kind = "individual"
	KindTeam       Kind = "team"
	KindMotorsport Kind = "motorsport"
)

// Sport is one registry entry.
type Sport struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
	Route  string `json:"route"`
	Kind   Kind   `json:"kind"`
}

// Accepts reports whether contests of kind k may be rated under s.
func (s Sport) Accepts(k model.Kind) bool {
	switch s.Kind {
	case KindIndividual:
		return k == model.KindPairwise
	case KindTeam:
		return k == model.KindTeam
	case KindMotorsport:
		return k == model.KindRace
	}
	return false
}

// Defaults returns the built-in registry entries.
func Defaults() []Sport {
	return []Sport{
		{ID: "formula-one", Name: "Formula One", Active: true, Route: "/formula-one", Kind: KindMotorsport},
		{ID: "motogp", Name: "MotoGP", Active: false, Route: "/motogp", Kind: KindMotorsport},
		{ID: "boxing", Name: "Boxing", Active: false, Route: "/boxing", Kind: KindIndividual},
	}
}

// Registry is an immutable, ordered set of sports.
type Registry struct {
	order []Sport
	byID  map[string]Sport
}

// NewRegistry builds a registry, rejecting empty or repeated ids and unknown kinds.
func NewRegistry(list []Sport) (*Registry, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: no sports", ErrInvalidRegistry)
	}
	r := &Registry{
		order: make([]Sport, 0, len(list)),
		byID:  make(map[string]Sport, len(list)),
	}
	for _, s := range list {
		s.ID = strings.TrimSpace(s.ID)
		if s.ID == "" {
			return nil, fmt.Errorf("%w: empty id", ErrInvalidRegistry)
		}
		if _, dup := r.byID[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidRegistry, s.ID)
		}
		switch s.Kind {
		case KindIndividual, KindTeam, KindMotorsport:
		default:
			return nil, fmt.Errorf("%w: sport %q has unknown kind %q", ErrInvalidRegistry, s.ID, s.Kind)
		}
		if s.Route == "" {
			s.Route = "/" + s.ID
		}
		if s.Name == "" {
			s.Name = s.ID
		}
		r.order = append(r.order, s)
		r.byID[s.ID] = s
	}
	return r, nil
}

// Lookup returns the sport with the given id.
func (r *Registry) Lookup(id string) (Sport, bool) {
	s, ok := r.byID[id]
	return s, ok
}

// All returns every sport in registration order.
func (r *Registry) All() []Sport {
	out := make([]Sport, len(r.order))
	copy(out, r.order)
	return out
}

// Active returns the active sports in registration order.
func (r *Registry) Active() []Sport {
	var out []Sport
	for _, s := range r.order {
		if s.Active {
			out = append(out, s)
		}
	}
	return out
}

// Check resolves id and verifies the sport is active and accepts kind.
func (r *Registry) Check(id string, kind model.Kind) (Sport, error) {
	s, ok := r.byID[id]
	if !ok {
		return Sport{}, fmt.Errorf("%w: %q", ErrUnknownSport, id)
	}
	if !s.Active {
		return s, fmt.Errorf("%w: %q", ErrInactiveSport, id)
	}
	if !s.Accepts(kind) {
		return s, fmt.Errorf("%w: %s contests in %s", ErrKindNotAccepted, kind, s.Kind)
	}
	return s, nil
}

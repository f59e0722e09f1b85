// Package lifecycle implements a transition-table state machine shared by
// table reservations, room bookings and orders. The tables are data; the
// validation code is the same for every kind.
package lifecycle

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when a (from, to) pair is not in the
// machine's table, including every transition out of a terminal state.
var ErrInvalidTransition = errors.New("invalid status transition")

// Effect is the side effect a transition has on the booked resource's
// denormalized status. It is attached to transitions, not to states: the
// same target state can be reached through paths with different effects.
type Effect int

const (
	EffectNone    Effect = iota // resource status untouched
	EffectReserve               // resource becomes RESERVED
	EffectOccupy                // resource becomes OCCUPIED
	EffectRelease               // booking stops holding the resource
)

func (e Effect) String() string {
	switch e {
	case EffectReserve:
		return "reserve"
	case EffectOccupy:
		return "occupy"
	case EffectRelease:
		return "release"
	}
	return "none"
}

// Edge is one allowed transition and its side effect.
type Edge[S ~string] struct {
	From   S
	To     S
	Effect Effect
}

// Machine validates status changes against a fixed transition table.
// The zero value knows no states; build one with New.
type Machine[S ~string] struct {
	name    string
	next    map[S][]S
	effects map[[2]S]Effect
}

// New builds a machine from its edges. States listed in terminal have no
// outgoing edges but are still known to the machine.
func New[S ~string](name string, edges []Edge[S], terminal ...S) *Machine[S] {
	m := &Machine[S]{
		name:    name,
		next:    make(map[S][]S),
		effects: make(map[[2]S]Effect),
	}
	for _, e := range edges {
		m.next[e.From] = append(m.next[e.From], e.To)
		if _, ok := m.next[e.To]; !ok {
			m.next[e.To] = nil
		}
		m.effects[[2]S{e.From, e.To}] = e.Effect
	}
	for _, s := range terminal {
		if _, ok := m.next[s]; !ok {
			m.next[s] = nil
		}
	}
	return m
}

// Name identifies the machine in error messages.
func (m *Machine[S]) Name() string { return m.name }

// Known reports whether s is a state of this machine.
func (m *Machine[S]) Known(s S) bool {
	_, ok := m.next[s]
	return ok
}

// IsTerminal reports whether no transition leaves s. Unknown states are
// treated as terminal so nothing can be applied to them.
func (m *Machine[S]) IsTerminal(s S) bool {
	return len(m.next[s]) == 0
}

// Next lists the states reachable from s in table order.
func (m *Machine[S]) Next(s S) []S {
	out := make([]S, len(m.next[s]))
	copy(out, m.next[s])
	return out
}

// CanTransition reports whether from → to is in the table.
func (m *Machine[S]) CanTransition(from, to S) bool {
	_, ok := m.effects[[2]S{from, to}]
	return ok
}

// Apply validates from → to and returns the transition's effect.
func (m *Machine[S]) Apply(from, to S) (Effect, error) {
	eff, ok := m.effects[[2]S{from, to}]
	if !ok {
		return EffectNone, fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, m.name, from, to)
	}
	return eff, nil
}

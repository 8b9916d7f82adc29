// Package space implements the verified state space: a
// labeled multidigraph of machine states keyed by stable integer IDs,
// deduplicated by structural hash, left-total (every state has at least
// one outgoing edge, self-loops inserted where the machine has none),
// and garbage-collectible without ever renumbering surviving IDs — other
// structures (the precision store) key off the same IDs across
// refinement rounds and must not be invalidated by a sweep.
package space

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/onderjan/machine-check-sub001/internal/bv/abstr"
	"github.com/onderjan/machine-check-sub001/internal/valuation"
)

// StateID is a stable identifier for one state in the space.
type StateID uint64

// NodeID generalizes StateID in the original design to also address
// pre-initial markers; since every reachable node in this implementation
// is an ordinary state reached via Init or Step, the two are unified into
// a single integer namespace.
type NodeID = StateID

// State and Input are bitvector valuations over a machine's state/input
// shapes (see package machine); space itself is agnostic to which
// machine produced them.
type State = valuation.Record[abstr.Bitvector]
type Input = valuation.Record[abstr.Bitvector]

// Edge is one outgoing transition: the representative input that was
// used to reach To (the precision store may admit several inputs that
// all lead to the same successor; one representative suffices for
// culprit extraction and reporting).
type Edge struct {
	Input Input
	To    StateID
}

// Space is the verified state space under construction.
type Space struct {
	nextID    StateID
	states    map[StateID]State
	hashIndex map[string]StateID
	roots     map[StateID]struct{}
	outgoing  map[StateID][]Edge
}

// New returns an empty Space.
func New() *Space {
	return &Space{
		states:    make(map[StateID]State),
		hashIndex: make(map[string]StateID),
		roots:     make(map[StateID]struct{}),
		outgoing:  make(map[StateID][]Edge),
	}
}

func hashState(s State) string {
	buf := make([]byte, 0, 24*len(s.Values))
	for i, v := range s.Values {
		width := s.Shape.Fields()[i].Width
		buf = binary.LittleEndian.AppendUint64(buf, uint64(width))
		buf = binary.LittleEndian.AppendUint64(buf, v.Zeros())
		buf = binary.LittleEndian.AppendUint64(buf, v.Ones())
	}
	sum := sha256.Sum256(buf)
	return string(sum[:])
}

// intern finds the existing ID for a structurally-equal state, or
// allocates a fresh one.
func (s *Space) intern(state State) (id StateID, isNew bool) {
	h := hashState(state)
	if existing, ok := s.hashIndex[h]; ok {
		return existing, false
	}
	id = s.nextID
	s.nextID++
	s.states[id] = state
	s.hashIndex[h] = id
	return id, true
}

// AddRoot interns an initial state and marks it as a root. isNew reports
// whether the state was not already present, for the framework's
// generated-vs-final state bookkeeping (Stats).
func (s *Space) AddRoot(state State) (id StateID, isNew bool) {
	id, isNew = s.intern(state)
	s.roots[id] = struct{}{}
	return id, isNew
}

// AddStep interns a successor state and records the edge from -> to with
// the given representative input. isNew reports whether the successor
// state was not already present.
func (s *Space) AddStep(from StateID, input Input, to State) (toID StateID, isNew bool) {
	toID, isNew = s.intern(to)
	s.outgoing[from] = append(s.outgoing[from], Edge{Input: input, To: toID})
	return toID, isNew
}

// AddSelfLoop records a from -> from edge, used to keep the space
// left-total for states the machine gives no real successor to (a
// panicking state, to keep the space left-total).
func (s *Space) AddSelfLoop(id StateID, input Input) {
	s.outgoing[id] = append(s.outgoing[id], Edge{Input: input, To: id})
}

// RemoveOutgoing clears a state's outgoing edges, the first step of
// regenerating its successors under a (possibly refined) precision.
func (s *Space) RemoveOutgoing(id StateID) {
	delete(s.outgoing, id)
}

// ResetRoots clears every recorded root, the first step of a full
// regenerate pass that recomputes initial states from scratch.
func (s *Space) ResetRoots() {
	s.roots = make(map[StateID]struct{})
}

func (s *Space) State(id StateID) (State, bool) {
	st, ok := s.states[id]
	return st, ok
}

func (s *Space) Outgoing(id StateID) []Edge { return s.outgoing[id] }

func (s *Space) Roots() []StateID {
	ids := make([]StateID, 0, len(s.roots))
	for id := range s.roots {
		ids = append(ids, id)
	}
	return ids
}

func (s *Space) IsRoot(id StateID) bool {
	_, ok := s.roots[id]
	return ok
}

// AllStateIDs returns every state ID currently in the space, in no
// particular order.
func (s *Space) AllStateIDs() []StateID {
	ids := make([]StateID, 0, len(s.states))
	for id := range s.states {
		ids = append(ids, id)
	}
	return ids
}

func (s *Space) NumStates() int { return len(s.states) }

func (s *Space) NumEdges() int {
	n := 0
	for _, edges := range s.outgoing {
		n += len(edges)
	}
	return n
}

// GarbageCollect removes every state unreachable from a root via
// outgoing edges, along with its outgoing edges and hash-index entry.
// Surviving IDs are never renumbered, so any other structure indexed by
// StateID (the precision store) remains valid for the states that
// survive; the returned retained set tells callers which IDs survived so
// they can drop their own per-ID entries for the rest.
func (s *Space) GarbageCollect() (retained map[StateID]struct{}) {
	retained = make(map[StateID]struct{})
	var stack []StateID
	for root := range s.roots {
		if _, seen := retained[root]; !seen {
			retained[root] = struct{}{}
			stack = append(stack, root)
		}
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range s.outgoing[id] {
			if _, seen := retained[e.To]; !seen {
				retained[e.To] = struct{}{}
				stack = append(stack, e.To)
			}
		}
	}

	for id := range s.states {
		if _, keep := retained[id]; !keep {
			delete(s.states, id)
			delete(s.outgoing, id)
		}
	}
	for h, id := range s.hashIndex {
		if _, keep := retained[id]; !keep {
			delete(s.hashIndex, h)
		}
	}
	return retained
}

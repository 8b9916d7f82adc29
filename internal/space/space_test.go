package space

import (
	"testing"

	"github.com/onderjan/machine-check-sub001/internal/bv/abstr"
	"github.com/onderjan/machine-check-sub001/internal/bv/concr"
	"github.com/onderjan/machine-check-sub001/internal/valuation"
)

func testShape() *valuation.Shape {
	return valuation.NewShape(valuation.Field{Name: "count", Width: 8})
}

func stateWith(shape *valuation.Shape, value uint64) State {
	return valuation.NewRecord(shape, []abstr.Bitvector{abstr.Exact(concr.New(8, value))})
}

func TestAddRootInternsAndMarksRoot(t *testing.T) {
	s := New()
	shape := testShape()
	id, isNew := s.AddRoot(stateWith(shape, 0))
	if !isNew {
		t.Error("expected the first root to be new")
	}
	if !s.IsRoot(id) {
		t.Error("expected AddRoot to mark the state as a root")
	}
}

func TestAddRootDeduplicatesStructurallyEqualStates(t *testing.T) {
	s := New()
	shape := testShape()
	id1, _ := s.AddRoot(stateWith(shape, 5))
	id2, isNew := s.AddRoot(stateWith(shape, 5))
	if isNew {
		t.Error("expected a structurally-equal state to not be new")
	}
	if id1 != id2 {
		t.Errorf("expected the same ID for structurally-equal states, got %d and %d", id1, id2)
	}
	if s.NumStates() != 1 {
		t.Errorf("expected exactly one interned state, got %d", s.NumStates())
	}
}

func TestAddStepRecordsEdge(t *testing.T) {
	s := New()
	shape := testShape()
	from, _ := s.AddRoot(stateWith(shape, 0))
	input := stateWith(shape, 1)
	to, isNew := s.AddStep(from, input, stateWith(shape, 1))
	if !isNew {
		t.Error("expected the successor state to be new")
	}
	edges := s.Outgoing(from)
	if len(edges) != 1 || edges[0].To != to {
		t.Fatalf("expected one outgoing edge to %d, got %+v", to, edges)
	}
}

func TestAddSelfLoopKeepsSpaceLeftTotal(t *testing.T) {
	s := New()
	shape := testShape()
	id, _ := s.AddRoot(stateWith(shape, 0))
	s.AddSelfLoop(id, stateWith(shape, 0))
	edges := s.Outgoing(id)
	if len(edges) != 1 || edges[0].To != id {
		t.Fatalf("expected a self-loop edge, got %+v", edges)
	}
}

func TestRemoveOutgoingClearsEdges(t *testing.T) {
	s := New()
	shape := testShape()
	from, _ := s.AddRoot(stateWith(shape, 0))
	s.AddStep(from, stateWith(shape, 1), stateWith(shape, 1))
	s.RemoveOutgoing(from)
	if edges := s.Outgoing(from); len(edges) != 0 {
		t.Errorf("expected no outgoing edges after RemoveOutgoing, got %+v", edges)
	}
}

func TestResetRootsClearsRootSet(t *testing.T) {
	s := New()
	shape := testShape()
	id, _ := s.AddRoot(stateWith(shape, 0))
	s.ResetRoots()
	if s.IsRoot(id) {
		t.Error("expected ResetRoots to clear the root marking")
	}
	if len(s.Roots()) != 0 {
		t.Errorf("expected no roots after ResetRoots, got %v", s.Roots())
	}
}

func TestNumStatesAndNumEdges(t *testing.T) {
	s := New()
	shape := testShape()
	a, _ := s.AddRoot(stateWith(shape, 0))
	b, _ := s.AddStep(a, stateWith(shape, 1), stateWith(shape, 1))
	s.AddStep(b, stateWith(shape, 2), stateWith(shape, 2))
	if s.NumStates() != 3 {
		t.Errorf("expected 3 states, got %d", s.NumStates())
	}
	if s.NumEdges() != 2 {
		t.Errorf("expected 2 edges, got %d", s.NumEdges())
	}
}

func TestGarbageCollectDropsUnreachableStates(t *testing.T) {
	s := New()
	shape := testShape()
	root, _ := s.AddRoot(stateWith(shape, 0))
	reachable, _ := s.AddStep(root, stateWith(shape, 1), stateWith(shape, 1))

	// Simulate a stale state left over from a prior regeneration: interned
	// directly (not reachable from any root via outgoing edges).
	orphan, _ := s.intern(stateWith(shape, 99))

	retained := s.GarbageCollect()

	if _, ok := retained[root]; !ok {
		t.Error("expected the root to be retained")
	}
	if _, ok := retained[reachable]; !ok {
		t.Error("expected the reachable successor to be retained")
	}
	if _, ok := retained[orphan]; ok {
		t.Error("expected the unreachable orphan to not be retained")
	}
	if _, ok := s.State(orphan); ok {
		t.Error("expected the orphan state to be removed from the space")
	}
	if _, ok := s.State(root); !ok {
		t.Error("expected the root state to survive garbage collection")
	}
}

func TestGarbageCollectPreservesSurvivingIDs(t *testing.T) {
	s := New()
	shape := testShape()
	root, _ := s.AddRoot(stateWith(shape, 0))
	s.intern(stateWith(shape, 99)) // orphan, will be swept

	s.GarbageCollect()

	// The root's ID must be unchanged after the sweep, since other
	// structures (the precision store) key off it across rounds.
	if _, ok := s.State(root); !ok {
		t.Error("expected the root's original ID to still resolve after GarbageCollect")
	}
}

func TestAllStateIDsCoversEveryState(t *testing.T) {
	s := New()
	shape := testShape()
	a, _ := s.AddRoot(stateWith(shape, 0))
	b, _ := s.AddStep(a, stateWith(shape, 1), stateWith(shape, 1))
	ids := s.AllStateIDs()
	found := map[StateID]bool{}
	for _, id := range ids {
		found[id] = true
	}
	if !found[a] || !found[b] {
		t.Errorf("expected AllStateIDs to include both states, got %v", ids)
	}
}

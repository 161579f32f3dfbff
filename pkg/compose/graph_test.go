package compose

import (
	"strings"
	"testing"
)

func unit(kind Kind, name string, requires ...Handle) PlanUnit {
	return PlanUnit{
		ID:       Handle{Kind: kind, Name: name}.ID(),
		Kind:     kind,
		Name:     name,
		Requires: requires,
	}
}

func handle(kind Kind, name string) Handle {
	return Handle{Kind: kind, Name: name}
}

func TestGraphBuilder_Build_Empty(t *testing.T) {
	g, err := NewGraphBuilder().Build(nil)
	if err != nil {
		t.Fatalf("Expected no error for empty input, got: %v", err)
	}
	if len(g.Nodes) != 0 || g.Depth != 0 {
		t.Errorf("Expected empty graph, got %d nodes, depth %d", len(g.Nodes), g.Depth)
	}
}

func TestGraphBuilder_Build_TopologicalInvariant(t *testing.T) {
	units := []PlanUnit{
		unit(KindUser, "agent", handle(KindRoutingProfile, "basic")),
		unit(KindRoutingProfile, "basic", handle(KindQueue, "support")),
		unit(KindQueue, "support", handle(KindHoursOfOperation, "weekdays")),
		unit(KindHoursOfOperation, "weekdays"),
	}

	g, err := NewGraphBuilder().Build(units)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	pos := make(map[string]int)
	for i, id := range g.Ordered() {
		pos[id] = i
	}

	// For every edge A requires B, B must precede A.
	for _, edge := range g.Edges {
		if pos[edge.To] >= pos[edge.From] {
			t.Errorf("Prerequisite %s does not precede %s", edge.To, edge.From)
		}
	}

	if g.Depth != 4 {
		t.Errorf("Expected depth 4, got %d", g.Depth)
	}
}

func TestGraphBuilder_Build_DeclarationOrderBreaksTies(t *testing.T) {
	units := []PlanUnit{
		unit(KindQueue, "zeta"),
		unit(KindQueue, "alpha"),
		unit(KindQueue, "mid"),
	}

	g, err := NewGraphBuilder().Build(units)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	want := []string{"queue/zeta", "queue/alpha", "queue/mid"}
	got := g.Ordered()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected declaration order %v, got %v", want, got)
		}
	}
}

func TestGraphBuilder_Build_Reproducible(t *testing.T) {
	build := func() []string {
		units := []PlanUnit{
			unit(KindHoursOfOperation, "weekdays"),
			unit(KindQueue, "sales", handle(KindHoursOfOperation, "weekdays")),
			unit(KindQueue, "support", handle(KindHoursOfOperation, "weekdays")),
			unit(KindRoutingProfile, "basic", handle(KindQueue, "support"), handle(KindQueue, "sales")),
		}
		g, err := NewGraphBuilder().Build(units)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		return g.Ordered()
	}

	first := build()
	for i := 0; i < 10; i++ {
		next := build()
		for j := range first {
			if first[j] != next[j] {
				t.Fatalf("Expected reproducible order, got %v then %v", first, next)
			}
		}
	}
}

func TestGraphBuilder_Build_TwoNodeCycleRejected(t *testing.T) {
	units := []PlanUnit{
		unit(KindQueue, "a", handle(KindQueue, "b")),
		unit(KindQueue, "b", handle(KindQueue, "a")),
	}

	_, err := NewGraphBuilder().Build(units)
	if err == nil {
		t.Fatal("Expected cycle error, got nil")
	}
	if !HasCode(err, ErrCodeCyclicDependency) {
		t.Errorf("Expected code %s, got: %v", ErrCodeCyclicDependency, err)
	}
	if !strings.Contains(err.Error(), "->") {
		t.Errorf("Expected cycle path in message, got: %v", err)
	}
}

func TestGraphBuilder_Build_UnknownRequirementRejected(t *testing.T) {
	units := []PlanUnit{
		unit(KindQueue, "support", handle(KindHoursOfOperation, "missing")),
	}

	_, err := NewGraphBuilder().Build(units)
	if err == nil {
		t.Fatal("Expected unresolved reference error, got nil")
	}
	if !HasCode(err, ErrCodeUnresolvedReference) {
		t.Errorf("Expected code %s, got: %v", ErrCodeUnresolvedReference, err)
	}
}

func TestGraph_ToDOT(t *testing.T) {
	units := []PlanUnit{
		unit(KindHoursOfOperation, "weekdays"),
		unit(KindQueue, "support", handle(KindHoursOfOperation, "weekdays")),
	}

	g, err := NewGraphBuilder().Build(units)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	dot := g.ToDOT()
	if !strings.Contains(dot, "digraph") {
		t.Errorf("Expected DOT output, got: %s", dot)
	}
	if !strings.Contains(dot, `"hours_of_operation/weekdays" -> "queue/support"`) {
		t.Errorf("Expected provisioning edge in DOT output, got: %s", dot)
	}
}

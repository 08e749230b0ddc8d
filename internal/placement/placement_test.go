package placement

import (
	"context"
	"testing"

	"github.com/awslabs/placement-core/internal/node"
	"github.com/awslabs/placement-core/internal/resource"
	"github.com/awslabs/placement-core/internal/score"
)

// newCluster builds a collective with nClones instances and the given
// node weights, each instance having an independent allowed-nodes view
// seeded identically (mirroring how the source scheduler gives each
// instance its own per-resource Node views over the same global nodes).
func newCluster(t *testing.T, nodeWeights map[node.ID]int32, nInstances int) (*resource.Resource, []*resource.Resource) {
	t.Helper()
	collective := resource.NewResource("web-clone", resource.Clone)
	collective.Flags |= resource.Managed
	for id, w := range nodeWeights {
		collective.AllowedNodes[id] = &node.View{Node: &node.Global{ID: id, Online: true}, Weight: score.Finite(w)}
	}

	instances := make([]*resource.Resource, 0, nInstances)
	for i := 0; i < nInstances; i++ {
		inst := resource.NewResource(collective.ID+"-inst"+string(rune('0'+i)), resource.Primitive)
		inst.Parent = collective
		inst.Flags |= resource.Managed | resource.Provisional
		inst.AllowedNodes = node.Table{}
		for id, w := range nodeWeights {
			inst.AllowedNodes[id] = &node.View{Node: collective.AllowedNodes[id].Node, Weight: score.Finite(w)}
		}
		collective.Children = append(collective.Children, inst)
		instances = append(instances, inst)
	}
	return collective, instances
}

func TestEvenSpreadAcrossThreeNodes(t *testing.T) {
	collective, instances := newCluster(t, map[node.ID]int32{"a": 0, "b": 0, "c": 0}, 3)
	eng := NewEngine(nil)
	if err := eng.AssignInstances(context.Background(), collective, instances, 3, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seen := map[node.ID]bool{}
	for _, inst := range instances {
		n, ok := inst.Chosen()
		if !ok {
			t.Fatalf("instance %s was not placed", inst.ID)
		}
		if seen[n] {
			t.Fatalf("node %s used twice, max_per_node=1 violated", n)
		}
		seen[n] = true
	}
	if len(seen) != 3 {
		t.Fatalf("expected 3 distinct nodes used, got %d", len(seen))
	}
}

func TestStickyCurrentNodeKept(t *testing.T) {
	collective, instances := newCluster(t, map[node.ID]int32{"a": 0, "b": 0}, 2)
	instances[0].RunningOn = map[node.ID]struct{}{"a": {}}
	instances[1].RunningOn = map[node.ID]struct{}{"b": {}}

	eng := NewEngine(nil)
	if err := eng.AssignInstances(context.Background(), collective, instances, 2, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n0, _ := instances[0].Chosen()
	n1, _ := instances[1].Chosen()
	if n0 != "a" || n1 != "b" {
		t.Fatalf("expected sticky placement a,b; got %s,%s", n0, n1)
	}
}

func TestCapHonoredOneInstanceLeftProvisional(t *testing.T) {
	collective, instances := newCluster(t, map[node.ID]int32{"a": 0, "b": 0}, 3)
	eng := NewEngine(nil)
	if err := eng.AssignInstances(context.Background(), collective, instances, 3, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	placed, unplaced := 0, 0
	for _, inst := range instances {
		if _, ok := inst.Chosen(); ok {
			placed++
		} else {
			unplaced++
			if inst.LocationReason() == "" {
				t.Fatalf("expected an explicit -INFINITY location reason for %s", inst.ID)
			}
		}
	}
	if placed != 2 || unplaced != 1 {
		t.Fatalf("expected 2 placed/1 unplaced, got %d/%d", placed, unplaced)
	}
}

func TestBanCascadeNeverPlacesOnBannedNode(t *testing.T) {
	collective, instances := newCluster(t, map[node.ID]int32{"a": 0, "b": 0}, 2)
	collective.AllowedNodes["a"].Weight = score.MinusInfinity
	for _, inst := range instances {
		inst.AllowedNodes["a"].Weight = score.MinusInfinity
	}
	eng := NewEngine(nil)
	if err := eng.AssignInstances(context.Background(), collective, instances, 2, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, inst := range instances {
		if n, ok := inst.Chosen(); ok && n == "a" {
			t.Fatalf("instance %s placed on banned node a", inst.ID)
		}
	}
}

func TestFiniteNegativeTopWeightBansNode(t *testing.T) {
	// bannedTopWeight must ban on any top weight < 0, not just -INFINITY
	// (spec §4.1); a collective-level weight of -5 on node "a" should
	// keep every instance off it even though no instance's own view is
	// -INFINITY.
	collective, instances := newCluster(t, map[node.ID]int32{"a": 0, "b": 0}, 2)
	collective.AllowedNodes["a"].Weight = score.Finite(-5)
	eng := NewEngine(nil)
	if err := eng.AssignInstances(context.Background(), collective, instances, 2, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, inst := range instances {
		if n, ok := inst.Chosen(); ok && n == "a" {
			t.Fatalf("instance %s placed on node a despite finite-negative top weight", inst.ID)
		}
	}
}

func TestNoInstanceAssignedToMinusInfinityNode(t *testing.T) {
	// Invariant 3 from §8: sweep a few shapes and confirm no chosen node
	// ever carries -INFINITY weight at decision time.
	collective, instances := newCluster(t, map[node.ID]int32{"a": -1, "b": 5, "c": 0}, 3)
	collective.AllowedNodes["a"].Weight = score.MinusInfinity
	for _, inst := range instances {
		inst.AllowedNodes["a"].Weight = score.MinusInfinity
	}
	eng := NewEngine(nil)
	if err := eng.AssignInstances(context.Background(), collective, instances, 3, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, inst := range instances {
		n, ok := inst.Chosen()
		if !ok {
			continue
		}
		if inst.AllowedNodes[n].Weight.IsMinusInfinity() {
			t.Fatalf("instance %s chosen node %s has -INFINITY weight", inst.ID, n)
		}
	}
}

func TestDeterminismAcrossTwoIdenticalRuns(t *testing.T) {
	run := func() map[string]node.ID {
		collective, instances := newCluster(t, map[node.ID]int32{"a": 3, "b": 1, "c": 1}, 3)
		eng := NewEngine(nil)
		if err := eng.AssignInstances(context.Background(), collective, instances, 3, 1); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := map[string]node.ID{}
		for _, inst := range instances {
			if n, ok := inst.Chosen(); ok {
				out[inst.ID] = n
			}
		}
		return out
	}
	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("non-deterministic placement counts: %d vs %d", len(a), len(b))
	}
	for id, n := range a {
		if b[id] != n {
			t.Fatalf("non-deterministic placement for %s: %s vs %s", id, n, b[id])
		}
	}
}

package ordering

import (
	"context"
	"testing"

	"github.com/awslabs/placement-core/internal/action"
	"github.com/awslabs/placement-core/internal/node"
	"github.com/awslabs/placement-core/internal/resource"
	"github.com/awslabs/placement-core/internal/score"
)

// cloneWithChild builds a one-child clone whose child is "running" on
// node n, with a Start action already attached to the child.
func cloneWithChild(id string, n node.ID, interleave bool) (*resource.Resource, *resource.Resource) {
	c := resource.NewResource(id, resource.Clone)
	c.Flags |= resource.Managed
	if interleave {
		c.Meta["interleave"] = "true"
	}
	child := resource.NewResource(id+"-0", resource.Primitive)
	child.Parent = c
	child.Flags |= resource.Managed
	child.RunningOn = map[node.ID]struct{}{n: {}}
	child.Actions = []*action.Action{action.NewSynthetic(action.ResourceID(child.ID), action.Start)}
	c.Children = append(c.Children, child)
	return c, child
}

func TestInterleavePairCreatesSingleEdgeBetweenSameNodeChildren(t *testing.T) {
	c1, c1child := cloneWithChild("c1", "a", false)
	c2, c2child := cloneWithChild("c2", "a", true) // governing: c2 (then side, task=start)

	g := action.NewGraph()
	u := NewUpdater(nil)

	c1Start := action.NewSynthetic(action.ResourceID(c1.ID), action.Start)
	c2Start := action.NewSynthetic(action.ResourceID(c2.ID), action.Start)

	pair := Pair{First: c1Start, Then: c2Start, FirstResource: c1, ThenResource: c2}
	if !u.Update(context.Background(), g, pair, nil, action.RunnableLeft) {
		t.Fatalf("expected Update to report a change")
	}

	c1childStart := c1child.Actions[0]
	c2childStart := c2child.Actions[0]
	edges := g.Edges(c1childStart)
	if len(edges) != 1 {
		t.Fatalf("expected exactly one edge from c1's child, got %d", len(edges))
	}
	if edges[0].Then != c2childStart {
		t.Fatalf("expected the edge to land on c2's child action")
	}
	if edges[0].Flags&action.PairedInterleave == 0 {
		t.Fatalf("expected the edge to carry PairedInterleave")
	}
}

func TestInterleaveInhibitPinsUnmatchedChildToMinusInfinity(t *testing.T) {
	c1, _ := cloneWithChild("c1", "a", false)
	c2, c2child := cloneWithChild("c2", "b", true) // c2's child is on b, no match on c1

	c2child.AllowedNodes["b"] = &node.View{Node: &node.Global{ID: "b", Online: true}, Weight: score.Finite(5)}

	g := action.NewGraph()
	u := NewUpdater(nil)

	c1Start := action.NewSynthetic(action.ResourceID(c1.ID), action.Start)
	c2Start := action.NewSynthetic(action.ResourceID(c2.ID), action.Start)

	pair := Pair{First: c1Start, Then: c2Start, FirstResource: c1, ThenResource: c2}
	if !u.Update(context.Background(), g, pair, nil, action.RunnableLeft) {
		t.Fatalf("expected Update to report a change (the pin)")
	}

	v := c2child.AllowedNodes["b"]
	if !v.Weight.IsMinusInfinity() {
		t.Fatalf("expected unmatched child to be pinned to -INFINITY, got %s", v.Weight)
	}
	if len(g.Edges(c1Start)) != 0 {
		t.Fatalf("expected no edges to be created when no compatible child exists")
	}
}

// bundleWithContainer builds a one-container bundle running on node n,
// where the container itself (Variant=Bundle, per Contained()'s
// "r.Variant != Bundle" check) hosts a contained primitive. Both the
// container and the contained primitive carry their own action for
// task, so a test can distinguish which one resolveAction landed on.
func bundleWithContainer(id string, n node.ID, task action.Task, interleave bool) (bundle, container, contained *resource.Resource) {
	bundle = resource.NewResource(id, resource.Bundle)
	bundle.Flags |= resource.Managed
	if interleave {
		bundle.Meta["interleave"] = "true"
	}
	container = resource.NewResource(id+"-container", resource.Bundle)
	container.Parent = bundle
	container.Flags |= resource.Managed
	container.RunningOn = map[node.ID]struct{}{n: {}}
	container.Actions = []*action.Action{action.NewSynthetic(action.ResourceID(container.ID), task)}

	contained = resource.NewResource(id+"-primitive", resource.Primitive)
	contained.Parent = container
	contained.Flags |= resource.Managed
	contained.Actions = []*action.Action{action.NewSynthetic(action.ResourceID(contained.ID), task)}

	container.Children = append(container.Children, contained)
	bundle.Children = append(bundle.Children, container)
	return bundle, container, contained
}

// TestInterleavePairingRoutesBundleContainersAsymmetrically covers spec
// §4.4.1's asymmetric routing rule: on the first side only stop/stopped
// route through a bundle container's contained resource, while on the
// then side only promote/promoted/demote/demoted do. Using Promote on
// both sides here means first_action must resolve to the container's
// own action and then_action must resolve to the contained primitive's.
func TestInterleavePairingRoutesBundleContainersAsymmetrically(t *testing.T) {
	b1, b1Container, b1Contained := bundleWithContainer("b1", "a", action.Promote, false)
	b2, _, b2Contained := bundleWithContainer("b2", "a", action.Promote, true) // governing: b2

	g := action.NewGraph()
	u := NewUpdater(nil)

	b1Promote := action.NewSynthetic(action.ResourceID(b1.ID), action.Promote)
	b2Promote := action.NewSynthetic(action.ResourceID(b2.ID), action.Promote)

	pair := Pair{First: b1Promote, Then: b2Promote, FirstResource: b1, ThenResource: b2}
	if !u.Update(context.Background(), g, pair, nil, action.RunnableLeft) {
		t.Fatalf("expected Update to report a change")
	}

	edges := g.Edges(b1Container.Actions[0])
	if len(edges) != 1 {
		t.Fatalf("expected first_action to resolve to the container's own Promote action, got %d edges from it", len(edges))
	}
	if edges[0].Then != b2Contained.Actions[0] {
		t.Fatalf("expected then_action to resolve to the contained primitive's Promote action")
	}
	if len(g.Edges(b1Contained.Actions[0])) != 0 {
		t.Fatalf("first side must not route Promote through the contained resource")
	}
}

func TestSummaryActionFlagsClearsOptionalWhenAnyChildRequired(t *testing.T) {
	collective := action.NewSynthetic("web-clone", action.Start)
	collective.Flags = collective.Flags.Set(action.Optional).Set(action.Runnable)

	optionalChild := action.New("web-clone-0", action.Start)
	optionalChild.Flags = optionalChild.Flags.Set(action.Optional)
	requiredChild := action.New("web-clone-1", action.Start)
	requiredChild.Flags = requiredChild.Flags.Set(action.Runnable)

	summary := SummaryActionFlags(collective, []*action.Action{optionalChild, requiredChild}, action.Start, nil)

	if summary.Has(action.Optional) {
		t.Fatalf("expected summary optional to be cleared since requiredChild lacks optional")
	}
	if collective.Flags.Has(action.Optional) {
		t.Fatalf("expected the underlying collective action's optional flag to be cleared too")
	}
}

func TestSummaryActionFlagsClearsRunnableOnlyForUnspecifiedNode(t *testing.T) {
	collective := action.NewSynthetic("web-clone", action.Start)
	collective.Flags = collective.Flags.Set(action.Runnable)

	notRunnable := action.New("web-clone-0", action.Start)

	n := node.ID("a")
	summary := SummaryActionFlags(collective, []*action.Action{notRunnable}, action.Start, &n)
	if summary.Has(action.Runnable) {
		t.Fatalf("expected summary runnable cleared: no child runnable")
	}
	if !collective.Flags.Has(action.Runnable) {
		t.Fatalf("node-specific call must not clear the underlying action's runnable flag")
	}

	summary = SummaryActionFlags(collective, []*action.Action{notRunnable}, action.Start, nil)
	if summary.Has(action.Runnable) || collective.Flags.Has(action.Runnable) {
		t.Fatalf("node-unspecified call must clear both summary and underlying action")
	}
}

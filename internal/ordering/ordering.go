// Package ordering implements the Ordering Updater (spec §4.4, component
// C9): propagating ordering-flag constraints across the action graph,
// including the interleaved-pairing optimization for colocated clones
// and bundles.
package ordering

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/awslabs/placement-core/internal/action"
	"github.com/awslabs/placement-core/internal/metrics"
	"github.com/awslabs/placement-core/internal/node"
	"github.com/awslabs/placement-core/internal/resource"
	"github.com/awslabs/placement-core/internal/score"
)

// Pair is spec §4.4's (first, then) ordering request: each side names
// both the action being ordered and the resource that owns it, since
// interleaved pairing and compatibility search both need the resource
// (location, children, role) while primitive ordering only needs the
// actions.
type Pair struct {
	First         *action.Action
	Then          *action.Action
	FirstResource *resource.Resource
	ThenResource  *resource.Resource
}

// Updater runs update() calls against a shared ordering graph.
type Updater struct {
	Metrics *metrics.Recorder
}

// NewUpdater returns a ready-to-use Updater. metrics may be nil.
func NewUpdater(m *metrics.Recorder) *Updater {
	return &Updater{Metrics: m}
}

// Update is spec §4.4's entry point: update(first, then, node?,
// first_flags, filter, type) -> updated_mask, collapsed here to a single
// bool ("was anything changed by this call or its recursion").
func (u *Updater) Update(ctx context.Context, g *action.Graph, p Pair, n *node.ID, flags action.OrderingFlag) bool {
	if u.interleaveEligible(p) {
		return u.interleavedPairing(ctx, g, p, n, flags)
	}
	return u.recursivePrimitiveOrdering(ctx, g, p, n, flags)
}

// interleaveEligible implements spec §4.4 step 1. The governing resource
// is first.resource when then's uuid marks a stop/demote pseudo-action,
// else then.resource.
func (u *Updater) interleaveEligible(p Pair) bool {
	if p.FirstResource == nil || p.ThenResource == nil || p.FirstResource == p.ThenResource {
		return false
	}
	if !p.FirstResource.Variant.IsAtLeastClone() || !p.ThenResource.Variant.IsAtLeastClone() {
		return false
	}
	governing := p.ThenResource
	if action.EndsIn(p.Then.UUID, "_stop_0") || action.EndsIn(p.Then.UUID, "_demote_0") {
		governing = p.FirstResource
	}
	return governing.MetaBool("interleave")
}

// interleavedPairing implements spec §4.4.1.
func (u *Updater) interleavedPairing(ctx context.Context, g *action.Graph, p Pair, n *node.ID, flags action.OrderingFlag) bool {
	log := logr.FromContextOrDiscard(ctx)
	thenCurrent := action.EndsIn(p.Then.UUID, "_stopped_0") || action.EndsIn(p.Then.UUID, "_demoted_0")

	updated := false
	for _, thenChild := range childrenOf(p.ThenResource) {
		firstChild := FindCompatibleChild(thenChild, p.FirstResource, resource.RoleUnknown, thenCurrent)
		if firstChild == nil {
			if thenCurrent {
				continue
			}
			if flags&(action.RunnableLeft|action.ImpliesThen) != 0 {
				pinToMinusInfinity(thenChild)
				updated = true
			}
			continue
		}

		firstAction := resolveAction(firstChild, p.First.Task, SideFirst)
		thenAction := resolveAction(thenChild, p.Then.Task, SideThen)
		if firstAction == nil || thenAction == nil {
			if !thenChild.Flags.Has(resource.Orphan) && p.Then.Task != action.Stop && p.Then.Task != action.Demote {
				log.Error(ErrMissingChildAction, "interleave pairing could not resolve an action",
					"resource", thenChild.ID, "task", p.Then.Task.String())
			}
			continue
		}

		// order_actions(first_action, then_action, type): recursing into
		// update_ordered_actions both creates this edge (via
		// primitiveUpdate's graph-add-with-dedup) and continues
		// primitive-level propagation into the children below it.
		child := Pair{First: firstAction, Then: thenAction, FirstResource: firstChild, ThenResource: thenChild}
		if u.recursivePrimitiveOrdering(ctx, g, child, n, flags|action.PairedInterleave) {
			updated = true
		}
	}
	return updated
}

// pinToMinusInfinity inhibits a resource from activating by banning it
// on every node its own (private) view still considers (spec §4.4.1:
// "force then_child to score -∞", spec §8 invariant 7).
func pinToMinusInfinity(r *resource.Resource) {
	for _, v := range r.AllowedNodes {
		v.Weight = score.MinusInfinity
	}
}

// recursivePrimitiveOrdering implements spec §4.4.2: order the pair
// itself, then recurse into then's runnable children of the same task,
// re-propagating any existing outgoing edges those children changed.
func (u *Updater) recursivePrimitiveOrdering(ctx context.Context, g *action.Graph, p Pair, n *node.ID, flags action.OrderingFlag) bool {
	updated := u.primitiveUpdate(g, p.First, p.Then, n, flags)

	if p.ThenResource == nil {
		return updated
	}
	for _, child := range childrenOf(p.ThenResource) {
		childAction := findActionByTask(child, p.Then.Task)
		if childAction == nil || !childAction.Flags.Has(action.Runnable) {
			continue
		}
		childPair := Pair{First: p.First, Then: childAction, FirstResource: p.FirstResource, ThenResource: child}
		if !u.recursivePrimitiveOrdering(ctx, g, childPair, n, flags) {
			continue
		}
		updated = true
		for _, edge := range g.Edges(childAction) {
			if u.primitiveUpdate(g, childAction, edge.Then, edge.Node, edge.Flags) {
				updated = true
			}
		}
	}
	return updated
}

// primitiveUpdate is the base case every ordering request eventually
// reduces to: graph-add with dedup, plus the two flag-propagation rules
// spec §3 attaches to an ordering (runnable_left, implies_then).
func (u *Updater) primitiveUpdate(g *action.Graph, first, then *action.Action, n *node.ID, flags action.OrderingFlag) bool {
	added := g.AddOrdering(first, then, n, flags)
	if added && u.Metrics != nil {
		u.Metrics.OrderingEdgeAdded()
	}
	changed := added

	if flags&action.RunnableLeft != 0 && !first.Flags.Has(action.Runnable) && then.Flags.Has(action.Runnable) {
		then.Flags = then.Flags.Clear(action.Runnable)
		changed = true
	}
	if flags&action.ImpliesThen != 0 && !then.Flags.Has(action.Optional) && first.Flags.Has(action.Optional) {
		first.Flags = first.Flags.Clear(action.Optional)
		changed = true
	}
	return changed
}

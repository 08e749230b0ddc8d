// Package placement implements the Instance Placement Engine (spec
// §4.1, component C5): assigning up to N instances of a collective
// resource across eligible nodes.
package placement

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/mitchellh/hashstructure/v2"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/multierr"

	"github.com/awslabs/placement-core/internal/constraint"
	"github.com/awslabs/placement-core/internal/metrics"
	"github.com/awslabs/placement-core/internal/node"
	"github.com/awslabs/placement-core/internal/resource"
	"github.com/awslabs/placement-core/internal/score"
)

// reasonLimitReached is the -INFINITY location reason spec §4.1 Phase 2
// assigns when a collective has exhausted max_total.
const reasonLimitReached = "collective limit reached"

// Engine runs placement rounds. It is stateless across calls; everything
// it needs lives in the arguments to AssignInstances, matching the "pure
// transformation" contract from spec §1.
type Engine struct {
	Metrics *metrics.Recorder

	// topCache memoizes TopAllowedNode's parent-chain walk for the
	// duration of one AssignInstances call (spec §3: "top-allowed node
	// lookup walks the parent chain to find the outermost ancestor's
	// view"). It is reset at the start of every round so stale entries
	// never leak across rounds.
	topCache *gocache.Cache
}

// NewEngine returns a ready-to-use Engine. metrics may be nil.
func NewEngine(m *metrics.Recorder) *Engine {
	return &Engine{Metrics: m, topCache: gocache.New(gocache.NoExpiration, gocache.NoExpiration)}
}

// topAllowedNode is the memoized wrapper around inst.TopAllowedNode.
func (e *Engine) topAllowedNode(inst *resource.Resource, id node.ID) *node.View {
	key := fmt.Sprintf("%p/%s", inst, id)
	if v, ok := e.topCache.Get(key); ok {
		return v.(*node.View)
	}
	top := inst.TopAllowedNode(id)
	e.topCache.Set(key, top, gocache.NoExpiration)
	return top
}

// AssignInstances is spec §4.1's assign_instances entry point. instances
// are tried in the supplied order and are mutated in place: on success
// SetChosen(&n, "") records the winning node; on failure SetChosen(nil,
// reason) records why none was picked. Any instance that already has a
// non-provisional placement is left untouched.
func (e *Engine) AssignInstances(ctx context.Context, collective *resource.Resource, instances []*resource.Resource, maxTotal, maxPerNode int) error {
	log := logr.FromContextOrDiscard(ctx)

	// Phase 0 — reset. The top-allowed-node cache is scoped to a single
	// round: resources are never re-parented mid-round, so cached
	// parent-chain walks stay valid until the next AssignInstances call.
	e.topCache.Flush()
	collective.AllowedNodes.Reset()
	available := collective.AllowedNodes.CountAvailable()
	optimalPerNode := 1
	if available > 0 {
		optimalPerNode = maxTotal / available
	}
	if optimalPerNode < 1 {
		optimalPerNode = 1
	}
	allColoc := maxTotal < available

	assigned := 0
	var errs error

	// Phase 1 — early assignment to current node.
	for _, inst := range instances {
		if assigned >= maxTotal {
			break
		}
		applyParentColocations(inst, allColoc)
		preferred := e.preferredNode(inst, optimalPerNode)
		if preferred == nil {
			continue
		}
		ok, err := e.assignSingle(ctx, collective, inst, preferred, maxPerNode)
		if err != nil {
			errs = multierr.Append(errs, err)
		}
		if ok {
			assigned++
			if e.Metrics != nil {
				e.Metrics.InstancePlaced()
			}
		}
	}

	// Phase 2 — final assignment for everything still provisional.
	for _, inst := range instances {
		if !inst.Flags.Has(resource.Provisional) {
			continue
		}
		if assigned >= maxTotal {
			inst.SetChosen(nil, reasonLimitReached)
			log.V(1).Info("collective limit reached, leaving instance unplaced", "resource", inst.ID)
			if e.Metrics != nil {
				e.Metrics.InstanceBanned()
			}
			continue
		}
		ok, err := e.assignSingle(ctx, collective, inst, nil, maxPerNode)
		if err != nil {
			errs = multierr.Append(errs, err)
		}
		switch {
		case ok:
			assigned++
			if e.Metrics != nil {
				e.Metrics.InstancePlaced()
			}
		case err == nil:
			// Failure semantics (spec §4.1): every instance that cannot
			// be assigned is left provisional with an explicit -INFINITY
			// location record, not just the max_total-reached case.
			inst.SetChosen(nil, "no viable node")
			if e.Metrics != nil {
				e.Metrics.InstanceBanned()
			}
		}
	}

	return errs
}

// applyParentColocations copies the collective's colocation edges down
// onto inst per spec §4.1 step 1.
func applyParentColocations(inst *resource.Resource, allColoc bool) {
	parent := inst.Parent
	if parent == nil {
		return
	}
	inst.RscCons = append(inst.RscCons[:0:0], constraint.Filter(parent.RscCons, allColoc)...)
	inst.RscConsLHS = append(inst.RscConsLHS[:0:0],
		constraint.FilterIncoming(parent.RscConsLHS, inst.IsManaged(), allColoc, constraint.DefaultInfluence)...)
}

// preferredNode implements spec §4.1 step 2: the instance's current node
// iff the instance is active, provisional, not failed, the node is
// strictly available, and its top-allowed count is under optimal.
func (e *Engine) preferredNode(inst *resource.Resource, optimalPerNode int) *node.ID {
	if !inst.Flags.Has(resource.Provisional) || inst.Flags.Has(resource.Failed) {
		return nil
	}
	cur, ok := inst.Location(true)
	if !ok {
		return nil
	}
	view, ok := inst.AllowedNodes[cur]
	if !ok || !view.Node.Available(true, false) {
		return nil
	}
	top := e.topAllowedNode(inst, cur)
	if top == nil || int(top.Count) >= optimalPerNode {
		return nil
	}
	return &cur
}

// assignSingle implements spec §4.1's "Single-instance assign".
func (e *Engine) assignSingle(ctx context.Context, collective *resource.Resource, inst *resource.Resource, prefer *node.ID, maxPerNode int) (bool, error) {
	log := logr.FromContextOrDiscard(ctx)

	if !inst.Flags.Has(resource.Provisional) {
		_, ok := inst.Chosen()
		return ok, nil
	}
	if inst.Flags.Has(resource.Allocating) {
		return false, WrapCycle(inst.ID)
	}
	if prefer != nil {
		v, ok := inst.AllowedNodes[*prefer]
		if !ok || v.Weight.Negative() {
			return false, nil
		}
	}

	inst.Flags |= resource.Allocating
	defer func() { inst.Flags &^= resource.Allocating }()

	snapshot := inst.AllowedNodes.Clone()
	preSnapshotHash, _ := hashstructure.Hash(snapshot, hashstructure.FormatV2, nil)
	e.banUnavailable(inst, maxPerNode)
	postBanHash, _ := hashstructure.Hash(inst.AllowedNodes, hashstructure.FormatV2, nil)
	if postBanHash != preSnapshotHash {
		log.V(2).Info("banning changed instance's allowed-node view", "resource", inst.ID)
	}

	chosen, ok := nativeAssign(inst, prefer)
	if !ok {
		log.V(1).Info("no viable node for instance", "resource", inst.ID)
		return false, nil
	}
	if prefer != nil && chosen != *prefer {
		// Roll back: restore the pre-ban snapshot and leave the
		// resource unassigned (spec §4.1: "If prefer was set and chosen
		// != prefer: roll back").
		inst.AllowedNodes = snapshot
		inst.SetChosen(nil, "")
		return false, nil
	}

	inst.Flags &^= resource.Provisional
	inst.SetChosen(&chosen, "")

	top := e.topAllowedNode(inst, chosen)
	if top != nil {
		top.Count++
	} else if inst.IsManaged() {
		log.Error(fmt.Errorf("%w: resource %q node %q", ErrAssertionFailed, inst.ID, chosen), "invariant violated",
			"collective", collective.ID)
	}
	return true, nil
}

// banUnavailable sets a node's score to -INFINITY on inst's allowed-node
// table when any of the disqualifying conditions in spec §4.1 hold.
func (e *Engine) banUnavailable(inst *resource.Resource, maxPerNode int) {
	for id, v := range inst.AllowedNodes {
		if inst.Flags.Has(resource.Orphan) ||
			!v.Node.Available(true, false) ||
			e.topAllowedNode(inst, id) == nil ||
			e.bannedTopWeight(inst, id) ||
			e.bannedTopCount(inst, id, maxPerNode) {
			v.Weight = score.MinusInfinity
		}
	}
}

func (e *Engine) bannedTopWeight(inst *resource.Resource, id node.ID) bool {
	top := e.topAllowedNode(inst, id)
	return top != nil && top.Weight.Negative()
}

func (e *Engine) bannedTopCount(inst *resource.Resource, id node.ID, maxPerNode int) bool {
	top := e.topAllowedNode(inst, id)
	return top != nil && int(top.Count) >= maxPerNode
}

// nativeAssign is the resource's own "assign" capability (spec §9
// "Dynamic dispatch on variant"): pick prefer if it is still viable,
// else the highest-scoring available node under the standard comparator.
func nativeAssign(inst *resource.Resource, prefer *node.ID) (node.ID, bool) {
	if prefer != nil {
		if v, ok := inst.AllowedNodes[*prefer]; ok && !v.Weight.IsMinusInfinity() {
			return *prefer, true
		}
	}
	for _, v := range inst.AllowedNodes.Sorted() {
		if !v.Weight.IsMinusInfinity() {
			return v.ID(), true
		}
	}
	return "", false
}

// Package node models cluster nodes and the per-resource view a resource
// holds of them (spec §3 "Per-resource vs global node"; §9 design note:
// each resource has its own Node view with private weight and count).
package node

import (
	"sort"

	"github.com/samber/lo"

	"github.com/awslabs/placement-core/internal/score"
)

// ID is an opaque node identifier.
type ID string

// Global is the cluster-wide record for a node: identity and the raw
// availability bits a placement decision consults. It is intentionally
// free of any resource-specific weight or count — those live in View,
// one per (resource, node) pair, per §9.
type Global struct {
	ID ID

	Online   bool
	Standby  bool
	Unclean  bool
	Shutdown bool
	Maintain bool // maintenance mode: reachable but must not change state
	Fenced   bool
}

// Available reports whether this node may receive a new assignment.
//
//   - strict=false is used to size optimal_per_node (spec §4.1 Phase 0):
//     a node merely needs to be online and not shut down.
//   - strict=true additionally requires the node not be unclean, fenced,
//     in maintenance mode, or (unless allowStandby) in standby — used when checking whether a
//     resource's *current* node is still a valid "prefer" candidate
//     (spec §4.1 Phase 1 step 2).
func (g Global) Available(strict, allowStandby bool) bool {
	if !g.Online || g.Shutdown {
		return false
	}
	if !strict {
		return true
	}
	if g.Unclean || g.Fenced || g.Maintain {
		return false
	}
	if g.Standby && !allowStandby {
		return false
	}
	return true
}

// View is a single resource's private opinion of a node: its placement
// weight for that resource and how many instances of the owning
// collective have already landed there this pass.
type View struct {
	Node   *Global
	Weight score.Score
	Count  uint32
}

// ID is a convenience accessor onto the underlying Global's identifier.
func (v *View) ID() ID { return v.Node.ID }

// Table is a resource's allowed_nodes map: node id -> its View. Map
// iteration order is never observable directly; callers needing a
// deterministic traversal must go through Sorted.
type Table map[ID]*View

// Clone returns a deep-enough copy of the table suitable for the
// "restore the pre-ban snapshot" rollback in spec §4.1's single-instance
// assign: each View is copied by value so mutating Weight/Count on the
// clone never touches the original.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for id, v := range t {
		cp := *v
		out[id] = &cp
	}
	return out
}

// Reset sets every view's Count to zero, per spec §4.1 Phase 0.
func (t Table) Reset() {
	for _, v := range t {
		v.Count = 0
	}
}

// CountAvailable returns |{n : n.available(strict=false)}|, used to
// compute optimal_per_node in spec §4.1 Phase 0.
func (t Table) CountAvailable() int {
	return lo.CountBy(lo.Values(t), func(v *View) bool {
		return v.Node.Available(false, false)
	})
}

// Sorted returns the table's views ordered by the standard comparator:
// higher weight first, then node id ascending as a stable tie-break
// (spec §5 "Tie-breaks use stable node comparators").
func (t Table) Sorted() []*View {
	out := lo.Values(t)
	SortViews(out)
	return out
}

// SortViews sorts views in place by Compare.
func SortViews(views []*View) {
	sort.SliceStable(views, func(i, j int) bool {
		return Compare(views[i], views[j]) < 0
	})
}

// Compare implements the standard node comparator: weight descending,
// then node id lexicographically ascending. It returns a negative number
// if a should sort before b, zero if equal, positive otherwise.
func Compare(a, b *View) int {
	if c := score.Compare(b.Weight, a.Weight); c != 0 {
		// Note the swap (b, a): we want weight descending.
		return c
	}
	switch {
	case a.ID() < b.ID():
		return -1
	case a.ID() > b.ID():
		return 1
	default:
		return 0
	}
}

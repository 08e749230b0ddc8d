// Package constraint models the colocation graph (spec §3 "Colocation",
// §4.1's "copy parent colocations onto the instance"): directed edges
// between resources that push (or forbid) placing them on the same node.
package constraint

import (
	"github.com/samber/lo"

	"github.com/awslabs/placement-core/internal/score"
)

// ResourceID identifies a resource without importing the resource
// package, avoiding an import cycle (resource.Resource embeds edges of
// this type).
type ResourceID string

// Colocation is a directed edge: Left ("this") wants to run with Right
// ("with-this") at the given Score. Influence gates whether an incoming
// edge affects a particular child of a collective (spec §3 "Influence").
type Colocation struct {
	ID        string
	Left      ResourceID
	Right     ResourceID
	Score     score.Score
	Influence bool
}

// InfluencePredicate decides whether edge e, arriving at collective c,
// has influence on one particular child of c. Supplied as a predicate
// per spec §3 ("supplied as a predicate") rather than hardcoded, since
// the real policy depends on the edge's configured influence mode and
// the child's managedness — both are caller concerns, not this
// package's.
type InfluencePredicate func(e Colocation, childManaged bool) bool

// DefaultInfluence implements the common policy: an edge influences a
// child iff the edge itself was marked influential, or the child is
// unmanaged (an unmanaged child's placement is effectively fixed, so any
// colocation touching it is informational only and always "has
// influence" in the sense of being safe to copy down).
func DefaultInfluence(e Colocation, childManaged bool) bool {
	return e.Influence || !childManaged
}

// Filter selects edges from edges matching the "keep" rule used when
// copying parent colocations onto an instance (spec §4.1 step 1):
// negative score, +INFINITY score, or — when allAll is true (the
// collective has slack: max_total is below the available node count,
// §4.1 Phase 0) — every edge regardless of sign.
func Filter(edges []Colocation, allAll bool) []Colocation {
	return lo.Filter(edges, func(e Colocation, _ int) bool {
		return allAll || e.Score.Negative() || e.Score.IsPlusInfinity()
	})
}

// FilterIncoming selects incoming ("with-this") edges that both pass the
// sign filter and have influence on childManaged, per spec §4.1 step 1
// ("only those with influence on this child, filtered the same way").
func FilterIncoming(edges []Colocation, childManaged bool, allAll bool, influence InfluencePredicate) []Colocation {
	if influence == nil {
		influence = DefaultInfluence
	}
	return lo.Filter(edges, func(e Colocation, _ int) bool {
		if !influence(e, childManaged) {
			return false
		}
		return allAll || e.Score.Negative() || e.Score.IsPlusInfinity()
	})
}

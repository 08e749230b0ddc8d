// Package resource implements the shared data model (spec §3): a tree of
// primitive/group/clone/bundle resources, their per-resource node tables,
// colocation edges, running locations, and flags. Placement (C5), the
// action model (C6/C7/C8) and ordering (C9) all operate on this tree.
package resource

import (
	"sort"

	"github.com/awslabs/placement-core/internal/action"
	"github.com/awslabs/placement-core/internal/constraint"
	"github.com/awslabs/placement-core/internal/node"
)

// Variant tags which of the four resource shapes a Resource is (spec §9
// "Dynamic dispatch on variant": "the source uses virtual-method tables
// ... abstract as a tagged union").
type Variant int

const (
	Primitive Variant = iota
	Group
	Clone
	Bundle
)

func (v Variant) String() string {
	switch v {
	case Primitive:
		return "primitive"
	case Group:
		return "group"
	case Clone:
		return "clone"
	case Bundle:
		return "bundle"
	default:
		return "unknown"
	}
}

// IsCollective reports whether the variant runs multiple instances.
func (v Variant) IsCollective() bool { return v == Clone || v == Bundle }

// IsAtLeastClone reports the "both at least clone-variant" test used by
// the interleave-eligibility check (spec §4.4: "both at least
// clone-variant"). Bundles qualify as well as clones; groups/primitives
// don't.
func (v Variant) IsAtLeastClone() bool { return v == Clone || v == Bundle }

// Flag is a bitmask over the resource flag set from spec §3.
type Flag uint16

const (
	Orphan Flag = 1 << iota
	Provisional
	Allocating
	Managed
	Failed
	Block
)

func (f Flag) Has(bit Flag) bool { return f&bit != 0 }

// Resource is a node in the resource tree (spec §3 "Resource").
type Resource struct {
	ID      string
	Variant Variant
	Flags   Flag

	// AllowedNodes is this resource's own private view of candidate
	// nodes — weight and count are per-resource, not global (spec §9
	// "Per-resource vs global node").
	AllowedNodes node.Table

	Parent   *Resource
	Children []*Resource

	// RscCons are outgoing colocation edges: "this resource with other".
	RscCons []constraint.Colocation
	// RscConsLHS are incoming edges: "other resource with this one".
	RscConsLHS []constraint.Colocation

	// RunningOn is the set of nodes where this resource is currently
	// active, prior to this scheduling pass.
	RunningOn map[node.ID]struct{}

	Meta map[string]string

	Actions []*action.Action

	// MaxPerNode / MaxTotal are only meaningful on a collective
	// (spec §4.1 assign_instances parameters).
	MaxPerNode int
	MaxTotal   int

	// chosen is set once placement decides a concrete node for this
	// resource; locationReason records why none was chosen (e.g.
	// "collective limit reached") when chosen is nil.
	chosen         *node.ID
	locationReason string
}

// NewResource constructs an empty resource of the given variant and id.
func NewResource(id string, v Variant) *Resource {
	return &Resource{
		ID:           id,
		Variant:      v,
		AllowedNodes: node.Table{},
		RunningOn:    map[node.ID]struct{}{},
		Meta:         map[string]string{},
	}
}

// IsManaged reports whether the resource participates in scheduling at
// all (spec §3 flag "managed").
func (r *Resource) IsManaged() bool { return r.Flags.Has(Managed) }

// SetChosen records the concrete node a placement decided on, clearing
// any prior -INFINITY reason. SetChosen(nil, reason) is how a failed
// placement pins the explicit "-INFINITY" location record (spec §3
// invariant 4, §4.1 "Failure semantics").
func (r *Resource) SetChosen(n *node.ID, reason string) {
	r.chosen = n
	r.locationReason = reason
}

// Chosen returns the node this resource was assigned to, if any.
func (r *Resource) Chosen() (node.ID, bool) {
	if r.chosen == nil {
		return "", false
	}
	return *r.chosen, true
}

// LocationReason returns the human-readable reason a resource was left
// unplaced, if SetChosen(nil, reason) was called.
func (r *Resource) LocationReason() string { return r.locationReason }

// Location returns the node this resource should be considered "at" for
// ordering/compatibility purposes (spec §4.4.1, §4.5): if current is
// true, prefer RunningOn (the pre-pass state); otherwise prefer the
// freshly Chosen node, falling back to RunningOn.
func (r *Resource) Location(current bool) (node.ID, bool) {
	if current {
		if id, ok := onlyRunningOn(r); ok {
			return id, true
		}
		if n, ok := r.Chosen(); ok {
			return n, true
		}
		return "", false
	}
	if n, ok := r.Chosen(); ok {
		return n, true
	}
	return onlyRunningOn(r)
}

func onlyRunningOn(r *Resource) (node.ID, bool) {
	for id := range r.RunningOn {
		return id, true
	}
	return "", false
}

// TopAllowedNode walks the parent chain to find the outermost ancestor's
// view of a node (spec §9 "Per-resource vs global node": "the
// top-allowed-node lookup walks the parent chain to find the outermost
// ancestor's view"). This is the count that enforces a collective's
// per-host cap across all of its instances.
func (r *Resource) TopAllowedNode(n node.ID) *node.View {
	top := r
	for top.Parent != nil {
		top = top.Parent
	}
	return top.AllowedNodes[n]
}

// SortedChildren returns Children ordered by ID, the deterministic
// traversal order spec §5 requires at every observable decision point.
func (r *Resource) SortedChildren() []*Resource {
	out := append([]*Resource(nil), r.Children...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Containers returns the child containers of a bundle, in the same
// iteration role a clone's Children play (spec §4.4.1: "for each child
// ... containers if variant=bundle, else children"). For non-bundles
// this is simply Children.
func (r *Resource) Containers() []*Resource {
	return r.SortedChildren()
}

// Contained returns the single primitive a bundle container hosts, if
// any — used when an interleaved pair needs "the contained resource's
// action" (spec §4.4.1). A plain clone child has no contained resource
// and this returns nil.
func (r *Resource) Contained() *Resource {
	if r.Variant != Bundle {
		return nil
	}
	for _, c := range r.Children {
		if c.Variant == Primitive {
			return c
		}
	}
	return nil
}

// Role is a coarse role marker used by compatibility search's role
// filter (spec §4.5). Most resources are RoleUnknown; promoted clone
// instances may be RolePromoted.
type Role int

const (
	RoleUnknown Role = iota
	RoleStarted
	RolePromoted
	RoleUnpromoted
)

// role is stored out-of-band on a per-resource basis via Meta, since the
// spec doesn't otherwise model roles on every Resource.
func (r *Resource) Role() Role {
	switch r.Meta["role"] {
	case "Promoted":
		return RolePromoted
	case "Unpromoted":
		return RoleUnpromoted
	case "Started":
		return RoleStarted
	default:
		return RoleUnknown
	}
}

// MetaBool reads a boolean resource meta attribute, spec §3's
// "meta (... includes interleave flag)".
func (r *Resource) MetaBool(key string) bool {
	return r.Meta[key] == "true"
}

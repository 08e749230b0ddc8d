package ordering

import (
	"github.com/awslabs/placement-core/internal/action"
	"github.com/awslabs/placement-core/internal/node"
	"github.com/awslabs/placement-core/internal/resource"
)

// childrenOf is spec §4.4.1's "containers if variant=bundle, else
// children" iteration target.
func childrenOf(r *resource.Resource) []*resource.Resource {
	if r.Variant == resource.Bundle {
		return r.Containers()
	}
	return r.SortedChildren()
}

// FindCompatibleChild implements spec §4.5: find the child of peer whose
// location matches local_child's (current or prospective), restricted to
// roleFilter when it isn't RoleUnknown, skipping blocked children.
func FindCompatibleChild(localChild, peer *resource.Resource, roleFilter resource.Role, current bool) *resource.Resource {
	matches := func(n node.ID, c *resource.Resource) bool {
		if c.Flags.Has(resource.Block) {
			return false
		}
		cn, ok := c.Location(current)
		if !ok || cn != n {
			return false
		}
		if roleFilter != resource.RoleUnknown && c.Role() != roleFilter {
			return false
		}
		return true
	}

	if n, ok := localChild.Location(current); ok {
		for _, c := range childrenOf(peer) {
			if matches(n, c) {
				return c
			}
		}
		return nil
	}

	for _, v := range localChild.AllowedNodes.Sorted() {
		for _, c := range childrenOf(peer) {
			if matches(v.ID(), c) {
				return c
			}
		}
	}
	return nil
}

// Side tags which end of a Pair resolveAction is resolving, since the
// containerized-child routing rule in spec §4.4.1 is asymmetric: the
// first_action side only routes through the contained resource for
// {stop, stopped}, the then_action side only for the
// {promote, promoted, demote, demoted} family.
type Side int

const (
	SideFirst Side = iota
	SideThen
)

// resolveAction implements the first_action/then_action selection rule
// in spec §4.4.1: on the first side, stop/stopped route through a
// containerized child's contained resource; on the then side,
// promote/promoted/demote/demoted do. Every other task resolves
// against child directly, on both sides.
func resolveAction(child *resource.Resource, task action.Task, side Side) *action.Action {
	target := child
	routes := false
	switch side {
	case SideFirst:
		routes = task == action.Stop || task == action.Stopped
	case SideThen:
		routes = task == action.Promote || task == action.Promoted || task == action.Demote || task == action.Demoted
	}
	if routes {
		if contained := child.Contained(); contained != nil {
			target = contained
		}
	}
	return findActionByTask(target, task)
}

func findActionByTask(r *resource.Resource, task action.Task) *action.Action {
	for _, a := range r.Actions {
		if a.Task == task {
			return a
		}
	}
	return nil
}

// SummaryActionFlags implements spec §4.4.3: fold the flags of every
// child action sharing task into a collective's aggregated action. The
// passed-in collective action is mutated in place (optional is cleared
// the moment a non-optional child is seen; runnable is cleared, if no
// child is runnable, only when node is nil) and the resulting summary
// mask is returned.
func SummaryActionFlags(collective *action.Action, children []*action.Action, task action.Task, n *node.ID) action.Flag {
	summary := action.Optional | action.Runnable | action.Pseudo
	anyRunnable := false
	for _, c := range children {
		if c.Task != task {
			continue
		}
		if !c.Flags.Has(action.Optional) {
			summary = summary.Clear(action.Optional)
			collective.Flags = collective.Flags.Clear(action.Optional)
		}
		if c.Flags.Has(action.Runnable) {
			anyRunnable = true
		}
	}
	if !anyRunnable {
		summary = summary.Clear(action.Runnable)
		if n == nil {
			collective.Flags = collective.Flags.Clear(action.Runnable)
		}
	}
	return summary
}

// Package state implements the collective state summarizer (spec §4.2,
// component C7): folding {starting, stopping, restarting, active} over a
// resource subtree.
package state

import (
	"github.com/awslabs/placement-core/internal/action"
	"github.com/awslabs/placement-core/internal/resource"
)

// Flags is the {starting, stopping, restarting, active} bitset spec §4.2
// folds over a resource subtree.
type Flags uint8

const (
	Starting Flags = 1 << iota
	Stopping
	Restarting
	Active
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// all4 is used by the short-circuit check below.
const all4 = Starting | Stopping | Restarting | Active

// CheckInstanceState folds state over the subtree rooted at r, per spec
// §4.2's check_instance_state. Collectives simply recurse into their
// children; primitives derive state from RunningOn and their own
// actions. Restarting is set whenever both Starting and Stopping end up
// set on the same primitive.
func CheckInstanceState(r *resource.Resource, acc *Flags) {
	if *acc&all4 == all4 {
		return
	}
	if r.Variant.IsCollective() || r.Variant == resource.Group {
		for _, child := range r.SortedChildren() {
			CheckInstanceState(child, acc)
			if *acc&all4 == all4 {
				return
			}
		}
		return
	}
	checkPrimitive(r, acc)
}

func checkPrimitive(r *resource.Resource, acc *Flags) {
	if len(r.RunningOn) > 0 {
		*acc |= Active
	}
	var starting, stopping bool
	for _, a := range r.Actions {
		switch a.Task {
		case action.Start:
			if !a.Flags.Has(action.Optional) && a.Flags.Has(action.Runnable) {
				starting = true
			}
		case action.Stop:
			// Pseudo stops arise when the node is being fenced; the
			// stop is implied even though it will never run as a real
			// action (spec §4.2).
			if !a.Flags.Has(action.Optional) && (a.Flags.Has(action.Runnable) || a.Flags.Has(action.Pseudo)) {
				stopping = true
			}
		}
	}
	if starting {
		*acc |= Starting
	}
	if stopping {
		*acc |= Stopping
	}
	if starting && stopping {
		*acc |= Restarting
	}
}

// Package pseudo implements the pseudo-action builder (spec §4.3,
// component C8): given a collective and its summarized state, it
// synthesizes the start/started/stop/stopped pseudo-actions that
// ordering hangs off of.
package pseudo

import (
	"github.com/awslabs/placement-core/internal/action"
	"github.com/awslabs/placement-core/internal/resource"
	"github.com/awslabs/placement-core/internal/score"
	"github.com/awslabs/placement-core/internal/state"
)

// NotifyBuilder is the external notification-pair collaborator spec
// §4.3 references ("caller requested notify hooks ... via the external
// notification builder"). It is out of scope for this core (§1); we
// only shape the boundary.
type NotifyBuilder interface {
	BuildNotifyPair(r *resource.Resource, task action.Task) (pre, post *action.Action)
}

// Set is the four pseudo-actions a collective gets from one Build call.
type Set struct {
	Start   *action.Action
	Started *action.Action
	Stop    *action.Action
	Stopped *action.Action
}

// Build creates start/started/stop/stopped pseudo-actions for a
// collective from its summarized state, per spec §4.3. When notify is
// non-nil and requestNotify is true, the pre/post notify pair is ordered
// stop_notify.post_done -> start_notify.pre as optional (spec §4.3 last
// bullet); that ordering edge is recorded on graph g.
func Build(r *resource.Resource, st state.Flags, requestNotify bool, notify NotifyBuilder, g *action.Graph) Set {
	rid := action.ResourceID(r.ID)

	start := action.NewSynthetic(rid, action.Start)
	start.Flags = start.Flags.Set(action.Pseudo)
	start.Flags = start.Flags.With(action.Optional, !st.Has(state.Starting))

	started := action.NewSynthetic(rid, action.Started)
	started.Flags = started.Flags.Set(action.Pseudo)
	started.Flags = started.Flags.With(action.Optional, !st.Has(state.Starting))
	started.Priority = score.Infinity
	started.Flags = started.Flags.With(action.Runnable, st.Has(state.Active) || st.Has(state.Starting))

	stop := action.NewSynthetic(rid, action.Stop)
	stop.Flags = stop.Flags.Set(action.Pseudo)
	stop.Flags = stop.Flags.With(action.Optional, !st.Has(state.Stopping))
	// A pure stop without a following start permits migration shortcuts
	// (spec §4.3).
	stop.Flags = stop.Flags.With(action.MigrateRunnable, !st.Has(state.Restarting))

	stopped := action.NewSynthetic(rid, action.Stopped)
	stopped.Flags = stopped.Flags.Set(action.Pseudo)
	stopped.Flags = stopped.Flags.With(action.Optional, !st.Has(state.Stopping))
	stopped.Priority = score.Infinity

	set := Set{Start: start, Started: started, Stop: stop, Stopped: stopped}

	if requestNotify && notify != nil {
		stopPre, stopPostDone := notify.BuildNotifyPair(r, action.Stop)
		startPre, startPostDone := notify.BuildNotifyPair(r, action.Start)
		_ = stopPre
		_ = startPostDone
		if stopPostDone != nil && startPre != nil {
			g.AddOrdering(stopPostDone, startPre, nil, action.OrderOptional)
		}
	}

	return set
}

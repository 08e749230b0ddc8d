// Package action implements the per-resource action model (spec §3
// "Action", §4.2). Actions are the nodes of the ordering graph that C9
// links and propagates runnability across.
package action

import (
	"github.com/google/uuid"

	"github.com/awslabs/placement-core/internal/node"
	"github.com/awslabs/placement-core/internal/score"
)

// Task enumerates the action verbs spec §3 lists.
type Task int

const (
	Monitor Task = iota
	Start
	Started
	Stop
	Stopped
	Promote
	Promoted
	Demote
	Demoted
	Notify
	Notified
	Shutdown
	Fence
)

func (t Task) String() string {
	switch t {
	case Monitor:
		return "monitor"
	case Start:
		return "start"
	case Started:
		return "started"
	case Stop:
		return "stop"
	case Stopped:
		return "stopped"
	case Promote:
		return "promote"
	case Promoted:
		return "promoted"
	case Demote:
		return "demote"
	case Demoted:
		return "demoted"
	case Notify:
		return "notify"
	case Notified:
		return "notified"
	case Shutdown:
		return "shutdown"
	case Fence:
		return "fence"
	default:
		return "unknown"
	}
}

// Flag is a bitmask over the action flags in spec §3.
type Flag uint8

const (
	Optional Flag = 1 << iota
	Runnable
	Pseudo
	MigrateRunnable
)

func (f Flag) Has(bit Flag) bool     { return f&bit != 0 }
func (f Flag) Set(bit Flag) Flag     { return f | bit }
func (f Flag) Clear(bit Flag) Flag   { return f &^ bit }
func (f Flag) With(bit Flag, on bool) Flag {
	if on {
		return f.Set(bit)
	}
	return f.Clear(bit)
}

// ResourceID names the owning resource without importing package
// resource (which itself holds *Action), avoiding an import cycle.
type ResourceID string

// Action is (resource, task, node?, flags, uuid) from spec §3.
type Action struct {
	ResourceID ResourceID
	Task       Task
	Node       *node.ID
	Flags      Flag
	UUID       string

	// Priority orders tie-breaks among otherwise-equal pseudo-actions;
	// spec §4.3 sets Priority to +INFINITY on "started"/"stopped".
	Priority score.Score
}

// New creates an action with a fresh uuid and no flags set.
func New(rid ResourceID, task Task) *Action {
	return &Action{
		ResourceID: rid,
		Task:       task,
		UUID:       uuid.NewString(),
		Priority:   score.Zero,
	}
}

// Key identifies an action uniquely enough for ordering-edge dedup
// purposes: by uuid, which New guarantees is unique per action.
func (a *Action) Key() string { return a.UUID }

// EndsIn reports whether this action's uuid was synthesized for the
// given suffix (spec §4.4 dispatch: "then.uuid ends in _stop_0 or
// _demote_0"). Actions built via NewSynthetic carry that convention;
// plain New-created actions never match.
func EndsIn(uuidStr, suffix string) bool {
	if len(uuidStr) < len(suffix) {
		return false
	}
	return uuidStr[len(uuidStr)-len(suffix):] == suffix
}

// NewSynthetic creates an action whose uuid is built from the resource
// id and task the way the source scheduler names per-instance actions,
// so that EndsIn("..._stop_0") style dispatch (spec §4.4) can recognize
// it. Interval 0 is the only interval this core schedules (recurring
// monitors are out of scope).
func NewSynthetic(rid ResourceID, task Task) *Action {
	a := New(rid, task)
	a.UUID = string(rid) + "_" + task.String() + "_0"
	return a
}

// Package snapshot (de)serializes a WorkingSet (spec §6 "Input —
// WorkingSet"): a rooted resource tree plus node table, colocation
// edges, precomputed actions, and an ordering list. The spec only says
// "already-materialized"; this package supplies the YAML/JSON schema and
// loader a real binary (cmd/schedcore) needs to have any input at all,
// using sigs.k8s.io/yaml so the same document can be written as either
// YAML or JSON, the way the teacher's test fixtures load NodePools.
package snapshot

import (
	"fmt"
	"os"
	"strconv"

	"sigs.k8s.io/yaml"

	"github.com/awslabs/placement-core/internal/action"
	"github.com/awslabs/placement-core/internal/constraint"
	"github.com/awslabs/placement-core/internal/node"
	"github.com/awslabs/placement-core/internal/resource"
	"github.com/awslabs/placement-core/internal/score"
)

// NodeDoc is one row of the global node table.
type NodeDoc struct {
	ID       string `json:"id"`
	Online   bool   `json:"online,omitempty"`
	Standby  bool   `json:"standby,omitempty"`
	Unclean  bool   `json:"unclean,omitempty"`
	Shutdown bool   `json:"shutdown,omitempty"`
	Maintain bool   `json:"maintain,omitempty"`
	Fenced   bool   `json:"fenced,omitempty"`
}

// WeightDoc is a resource's private opinion of one node.
type WeightDoc struct {
	Weight string `json:"weight,omitempty"` // integer, "+inf", or "-inf"; defaults to "0"
	Count  uint32 `json:"count,omitempty"`
}

// ColocationDoc is one edge of spec §3's Colocation.
type ColocationDoc struct {
	ID        string `json:"id"`
	Left      string `json:"left"`
	Right     string `json:"right"`
	Score     string `json:"score,omitempty"`
	Influence bool   `json:"influence,omitempty"`
}

// ActionDoc is one precomputed action attached to a resource.
type ActionDoc struct {
	Task            string `json:"task"`
	UUID            string `json:"uuid,omitempty"`
	Node            string `json:"node,omitempty"`
	Optional        bool   `json:"optional,omitempty"`
	Runnable        bool   `json:"runnable,omitempty"`
	Pseudo          bool   `json:"pseudo,omitempty"`
	MigrateRunnable bool   `json:"migrateRunnable,omitempty"`
	Priority        string `json:"priority,omitempty"`
}

// ResourceDoc is one node of the resource tree.
type ResourceDoc struct {
	ID           string               `json:"id"`
	Variant      string               `json:"variant"`
	Flags        []string             `json:"flags,omitempty"`
	AllowedNodes map[string]WeightDoc `json:"allowedNodes,omitempty"`
	Children     []ResourceDoc        `json:"children,omitempty"`
	RscCons      []ColocationDoc      `json:"rscCons,omitempty"`
	RscConsLHS   []ColocationDoc      `json:"rscConsLHS,omitempty"`
	RunningOn    []string             `json:"runningOn,omitempty"`
	Meta         map[string]string    `json:"meta,omitempty"`
	Actions      []ActionDoc          `json:"actions,omitempty"`
	MaxPerNode   int                  `json:"maxPerNode,omitempty"`
	MaxTotal     int                  `json:"maxTotal,omitempty"`

	// ChosenNode and LocationReason are placement's output (spec §6
	// "Output — mutations"): the node a round assigned this resource to,
	// or why none was chosen. Both are empty on a freshly-loaded
	// document and only populated by Unbuild after a round.
	ChosenNode     string `json:"chosenNode,omitempty"`
	LocationReason string `json:"locationReason,omitempty"`
}

// OrderingDoc is one entry of spec §3's ordering list.
type OrderingDoc struct {
	First string `json:"first"`
	Then  string `json:"then"`
	Node  string `json:"node,omitempty"`
}

// WorkingSet is the top-level document.
type WorkingSet struct {
	Nodes     []NodeDoc     `json:"nodes"`
	Root      ResourceDoc   `json:"root"`
	Orderings []OrderingDoc `json:"orderings,omitempty"`
}

// Load reads and parses a WorkingSet from path. sigs.k8s.io/yaml
// round-trips plain JSON too, so either extension works.
func Load(path string) (*WorkingSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", path, err)
	}
	var ws WorkingSet
	if err := yaml.Unmarshal(raw, &ws); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", path, err)
	}
	return &ws, nil
}

// Save writes ws back out as YAML, used by round-trip determinism
// fixtures (spec §8 "Running twice on deep-copied inputs").
func Save(path string, ws *WorkingSet) error {
	raw, err := yaml.Marshal(ws)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	return os.WriteFile(path, raw, 0o644)
}

// ParseScore parses a WeightDoc/ColocationDoc score string.
func ParseScore(s string) (score.Score, error) {
	switch s {
	case "", "0":
		return score.Zero, nil
	case "+inf", "inf", "INFINITY":
		return score.Infinity, nil
	case "-inf", "-INFINITY":
		return score.MinusInfinity, nil
	default:
		v, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return score.Score{}, fmt.Errorf("invalid score %q: %w", s, err)
		}
		return score.Finite(int32(v)), nil
	}
}

var taskByName = map[string]action.Task{
	"monitor": action.Monitor, "start": action.Start, "started": action.Started,
	"stop": action.Stop, "stopped": action.Stopped, "promote": action.Promote,
	"promoted": action.Promoted, "demote": action.Demote, "demoted": action.Demoted,
	"notify": action.Notify, "notified": action.Notified,
	"shutdown": action.Shutdown, "fence": action.Fence,
}

var flagByName = map[string]resource.Flag{
	"orphan": resource.Orphan, "provisional": resource.Provisional,
	"allocating": resource.Allocating, "managed": resource.Managed,
	"failed": resource.Failed, "block": resource.Block,
}

var variantByName = map[string]resource.Variant{
	"primitive": resource.Primitive, "group": resource.Group,
	"clone": resource.Clone, "bundle": resource.Bundle,
}

// Build materializes a WorkingSet document into the pointer-based tree
// the engines operate on, plus the flat global node table.
func Build(ws *WorkingSet) (*resource.Resource, node.Table, error) {
	globalNodes := node.Table{}
	for _, nd := range ws.Nodes {
		globalNodes[node.ID(nd.ID)] = &node.View{Node: &node.Global{
			ID: node.ID(nd.ID), Online: nd.Online, Standby: nd.Standby,
			Unclean: nd.Unclean, Shutdown: nd.Shutdown, Maintain: nd.Maintain, Fenced: nd.Fenced,
		}}
	}

	root, err := buildResource(ws.Root, globalNodes, nil)
	if err != nil {
		return nil, nil, err
	}
	return root, globalNodes, nil
}

func buildResource(doc ResourceDoc, globalNodes node.Table, parent *resource.Resource) (*resource.Resource, error) {
	variant, ok := variantByName[doc.Variant]
	if !ok {
		return nil, fmt.Errorf("resource %s: unknown variant %q", doc.ID, doc.Variant)
	}
	r := resource.NewResource(doc.ID, variant)
	r.Parent = parent
	r.MaxPerNode = doc.MaxPerNode
	r.MaxTotal = doc.MaxTotal
	for k, v := range doc.Meta {
		r.Meta[k] = v
	}
	for _, name := range doc.Flags {
		f, ok := flagByName[name]
		if !ok {
			return nil, fmt.Errorf("resource %s: unknown flag %q", doc.ID, name)
		}
		r.Flags |= f
	}
	for _, id := range doc.RunningOn {
		r.RunningOn[node.ID(id)] = struct{}{}
	}
	for id, w := range doc.AllowedNodes {
		weight, err := ParseScore(w.Weight)
		if err != nil {
			return nil, fmt.Errorf("resource %s: %w", doc.ID, err)
		}
		global := globalNodes[node.ID(id)]
		if global == nil {
			return nil, fmt.Errorf("resource %s: allowed node %q not in node table", doc.ID, id)
		}
		r.AllowedNodes[node.ID(id)] = &node.View{Node: global.Node, Weight: weight, Count: w.Count}
	}
	for _, c := range doc.RscCons {
		edge, err := buildColocation(c)
		if err != nil {
			return nil, err
		}
		r.RscCons = append(r.RscCons, edge)
	}
	for _, c := range doc.RscConsLHS {
		edge, err := buildColocation(c)
		if err != nil {
			return nil, err
		}
		r.RscConsLHS = append(r.RscConsLHS, edge)
	}
	for _, a := range doc.Actions {
		act, err := buildAction(doc.ID, a)
		if err != nil {
			return nil, err
		}
		r.Actions = append(r.Actions, act)
	}
	for _, childDoc := range doc.Children {
		child, err := buildResource(childDoc, globalNodes, r)
		if err != nil {
			return nil, err
		}
		r.Children = append(r.Children, child)
	}
	return r, nil
}

// flagNames lists resource.Flag bits in a fixed order (their
// declaration order in internal/resource) so Unbuild's serialization
// never depends on map iteration.
var flagNames = []struct {
	bit  resource.Flag
	name string
}{
	{resource.Orphan, "orphan"},
	{resource.Provisional, "provisional"},
	{resource.Allocating, "allocating"},
	{resource.Managed, "managed"},
	{resource.Failed, "failed"},
	{resource.Block, "block"},
}

// Unbuild projects a materialized resource tree and its ordering graph
// back onto the WorkingSet document that produced it, in place: the
// Output section of spec §6 ("mutations to the supplied working set:
// instance assignments, action flag changes, new pseudo-actions, new
// ordering edges"). Call it after a placement/ordering round, before
// Save, so --out reflects the round's results instead of re-emitting
// the untouched input.
func Unbuild(ws *WorkingSet, root *resource.Resource, g *action.Graph) error {
	if err := unbuildResource(&ws.Root, root); err != nil {
		return err
	}
	ws.Orderings = ws.Orderings[:0]
	for _, o := range g.AllOrderings() {
		doc := OrderingDoc{
			First: string(o.First.ResourceID),
			Then:  string(o.Then.ResourceID),
		}
		if o.Node != nil {
			doc.Node = string(*o.Node)
		}
		ws.Orderings = append(ws.Orderings, doc)
	}
	return nil
}

func unbuildResource(doc *ResourceDoc, r *resource.Resource) error {
	if doc.ID != r.ID {
		return fmt.Errorf("unbuild: document/tree id mismatch: %q vs %q", doc.ID, r.ID)
	}

	doc.Flags = doc.Flags[:0]
	for _, f := range flagNames {
		if r.Flags.Has(f.bit) {
			doc.Flags = append(doc.Flags, f.name)
		}
	}

	if n, ok := r.Chosen(); ok {
		doc.ChosenNode = string(n)
		doc.LocationReason = ""
	} else {
		doc.ChosenNode = ""
		doc.LocationReason = r.LocationReason()
	}

	for id, v := range r.AllowedNodes {
		if doc.AllowedNodes == nil {
			doc.AllowedNodes = map[string]WeightDoc{}
		}
		doc.AllowedNodes[string(id)] = WeightDoc{Weight: v.Weight.String(), Count: v.Count}
	}

	doc.Actions = doc.Actions[:0]
	for _, a := range r.Actions {
		ad := ActionDoc{
			Task:            a.Task.String(),
			UUID:            a.UUID,
			Optional:        a.Flags.Has(action.Optional),
			Runnable:        a.Flags.Has(action.Runnable),
			Pseudo:          a.Flags.Has(action.Pseudo),
			MigrateRunnable: a.Flags.Has(action.MigrateRunnable),
		}
		if a.Node != nil {
			ad.Node = string(*a.Node)
		}
		if score.Compare(a.Priority, score.Zero) != 0 {
			ad.Priority = a.Priority.String()
		}
		doc.Actions = append(doc.Actions, ad)
	}

	if len(doc.Children) != len(r.Children) {
		return fmt.Errorf("unbuild: resource %s: document has %d children, tree has %d", r.ID, len(doc.Children), len(r.Children))
	}
	for i := range r.Children {
		if err := unbuildResource(&doc.Children[i], r.Children[i]); err != nil {
			return err
		}
	}
	return nil
}

func buildColocation(c ColocationDoc) (constraint.Colocation, error) {
	s, err := ParseScore(c.Score)
	if err != nil {
		return constraint.Colocation{}, fmt.Errorf("colocation %s: %w", c.ID, err)
	}
	return constraint.Colocation{
		ID: c.ID, Left: constraint.ResourceID(c.Left), Right: constraint.ResourceID(c.Right),
		Score: s, Influence: c.Influence,
	}, nil
}

func buildAction(resourceID string, a ActionDoc) (*action.Action, error) {
	task, ok := taskByName[a.Task]
	if !ok {
		return nil, fmt.Errorf("resource %s: unknown task %q", resourceID, a.Task)
	}
	act := action.New(action.ResourceID(resourceID), task)
	if a.UUID != "" {
		act.UUID = a.UUID
	}
	if a.Node != "" {
		n := node.ID(a.Node)
		act.Node = &n
	}
	act.Flags = act.Flags.With(action.Optional, a.Optional).
		With(action.Runnable, a.Runnable).
		With(action.Pseudo, a.Pseudo).
		With(action.MigrateRunnable, a.MigrateRunnable)
	if a.Priority != "" {
		p, err := ParseScore(a.Priority)
		if err != nil {
			return nil, fmt.Errorf("resource %s action %s: %w", resourceID, a.Task, err)
		}
		act.Priority = p
	}
	return act, nil
}

package action

import (
	"sort"
	"strconv"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/awslabs/placement-core/internal/node"
)

// OrderingFlag is a bitmask over spec §3's ordering-flag set.
type OrderingFlag uint16

const (
	// RunnableLeft: first's runnability implies then's.
	RunnableLeft OrderingFlag = 1 << iota
	// ImpliesThen: then's required-ness implies first's required-ness.
	ImpliesThen
	// OrderOptional marks the ordering edge itself as optional (it
	// constrains relative timing only when both ends are non-optional).
	OrderOptional
	// PairedInterleave marks an edge produced by interleaved pairing
	// (spec §4.4.1), as opposed to recursive primitive ordering.
	PairedInterleave
)

// Edge is one entry of actions_after[first]: (first, then, ordering
// flags), with an optional node qualifier (spec §3 "An ordering is a
// tuple (first, then, node?, type)").
type Edge struct {
	Then  *Action
	Node  *node.ID
	Flags OrderingFlag
}

// Graph is the ordering graph: actions_after[a] for every action a,
// keyed by action Key() so edges can be deduplicated cheaply.
type Graph struct {
	after map[string][]Edge
	// first tracks the *Action a given key was first added under, so
	// AllOrderings can report a full (first, then) triple rather than
	// just the "then" side of each edge.
	first map[string]*Action
	// seen dedups (first.Key(), then.Key(), node, flags) keys so repeated
	// update() calls over the same pair — which happens naturally when
	// recursion revisits shared children — don't pile up duplicate
	// edges (spec §8 "re-running ordering adds no new edges").
	seen sets.Set[string]
}

// NewGraph returns an empty ordering graph.
func NewGraph() *Graph {
	return &Graph{after: map[string][]Edge{}, first: map[string]*Action{}, seen: sets.New[string]()}
}

// Edges returns the outgoing edges of a, in insertion order.
func (g *Graph) Edges(a *Action) []Edge {
	return g.after[a.Key()]
}

// Ordering is one fully-resolved (first, then) edge, the shape a
// caller projecting the graph back onto a WorkingSet document needs.
type Ordering struct {
	First *Action
	Then  *Action
	Node  *node.ID
	Flags OrderingFlag
}

// AllOrderings returns every edge in the graph as a fully-resolved
// (first, then) triple, sorted by first-action key so the result never
// depends on map iteration order (spec §5).
func (g *Graph) AllOrderings() []Ordering {
	keys := make([]string, 0, len(g.after))
	for key := range g.after {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var out []Ordering
	for _, key := range keys {
		first := g.first[key]
		for _, e := range g.after[key] {
			out = append(out, Ordering{First: first, Then: e.Then, Node: e.Node, Flags: e.Flags})
		}
	}
	return out
}

// dedupKey builds the identity used to detect an edge already present.
func dedupKey(first, then *Action, n *node.ID, flags OrderingFlag) string {
	nodePart := ""
	if n != nil {
		nodePart = string(*n)
	}
	return first.Key() + "|" + then.Key() + "|" + nodePart + "|" + strconv.Itoa(int(flags))
}

// AddOrdering adds the edge (first -> then, node, flags) if it is not
// already present, returning true iff a new edge was added. This is the
// graph-add-with-dedup primitive spec §4.4.1 calls "order_actions".
func (g *Graph) AddOrdering(first, then *Action, n *node.ID, flags OrderingFlag) bool {
	key := dedupKey(first, then, n, flags)
	if g.seen.Has(key) {
		return false
	}
	g.seen.Insert(key)
	g.after[first.Key()] = append(g.after[first.Key()], Edge{Then: then, Node: n, Flags: flags})
	if _, ok := g.first[first.Key()]; !ok {
		g.first[first.Key()] = first
	}
	return true
}

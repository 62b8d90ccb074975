// Package indexer ports grandcypher's indexer.py: sorted per-attribute
// indices over the host graph's nodes, with an O(log N) comparator querier
// for indexed keys and a linear-scan fallback for the rest. It exists only
// to pre-narrow the matcher's search frontier — see ToIndexerAST and
// internal/engine for how its output becomes hints.
package indexer

import (
	"sort"

	"github.com/ritamzico/cyql/internal/graph"
)

// Querier answers a single comparison operator against an attribute's
// values, returning the set of node ids whose value satisfies it.
type Querier interface {
	Eq(v graph.Value) map[graph.NodeID]struct{}
	Neq(v graph.Value) map[graph.NodeID]struct{}
	Lt(v graph.Value) map[graph.NodeID]struct{}
	Lte(v graph.Value) map[graph.NodeID]struct{}
	Gt(v graph.Value) map[graph.NodeID]struct{}
	Gte(v graph.Value) map[graph.NodeID]struct{}
}

func toSet(ids []graph.NodeID) map[graph.NodeID]struct{} {
	out := make(map[graph.NodeID]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

// rank groups values into a total preorder compatible with graph.Equal so
// sorting and bisecting agree with equality: Null < Bool < numeric <
// String < everything else (label sets/lists are never realistically
// indexed attribute values, so they sort last and compare unequal to
// anything but themselves via graph.Equal in the linear fallback).
func rank(v graph.Value) int {
	switch v.Kind {
	case graph.NullVal:
		return 0
	case graph.BoolVal:
		return 1
	case graph.IntVal, graph.FloatVal:
		return 2
	case graph.StringVal:
		return 3
	default:
		return 4
	}
}

func lessValue(a, b graph.Value) bool {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra < rb
	}
	switch a.Kind {
	case graph.IntVal, graph.FloatVal:
		return numeric(a) < numeric(b)
	case graph.StringVal:
		return a.S < b.S
	case graph.BoolVal:
		return !a.B && b.B
	default:
		return false
	}
}

func numeric(v graph.Value) float64 {
	if v.Kind == graph.IntVal {
		return float64(v.I)
	}
	return v.F
}

// IncrementIndexQuerier answers comparisons via two binary searches over
// attribute values pre-sorted ascending, the Go analogue of Python's
// bisect_left/bisect_right pair. Nodes whose value is missing (Null) are
// left out of the index, as NoIndexQuerier's scan skips them.
type IncrementIndexQuerier struct {
	ids  []graph.NodeID
	vals []graph.Value
}

func newIncrementQuerier(ids []graph.NodeID, vals []graph.Value) *IncrementIndexQuerier {
	order := make([]int, 0, len(ids))
	for i, v := range vals {
		if !v.IsNull() {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return lessValue(vals[order[i]], vals[order[j]]) })
	sortedIDs := make([]graph.NodeID, len(order))
	sortedVals := make([]graph.Value, len(order))
	for i, idx := range order {
		sortedIDs[i] = ids[idx]
		sortedVals[i] = vals[idx]
	}
	return &IncrementIndexQuerier{ids: sortedIDs, vals: sortedVals}
}

func (q *IncrementIndexQuerier) bisectLeft(v graph.Value) int {
	return sort.Search(len(q.vals), func(i int) bool { return !lessValue(q.vals[i], v) })
}

func (q *IncrementIndexQuerier) bisectRight(v graph.Value) int {
	return sort.Search(len(q.vals), func(i int) bool { return lessValue(v, q.vals[i]) })
}

func (q *IncrementIndexQuerier) Lt(v graph.Value) map[graph.NodeID]struct{} {
	return toSet(q.ids[:q.bisectLeft(v)])
}

func (q *IncrementIndexQuerier) Gt(v graph.Value) map[graph.NodeID]struct{} {
	return toSet(q.ids[q.bisectRight(v):])
}

func (q *IncrementIndexQuerier) Ge(v graph.Value) map[graph.NodeID]struct{} {
	return toSet(q.ids[q.bisectLeft(v):])
}

func (q *IncrementIndexQuerier) Gte(v graph.Value) map[graph.NodeID]struct{} { return q.Ge(v) }

func (q *IncrementIndexQuerier) Le(v graph.Value) map[graph.NodeID]struct{} {
	return toSet(q.ids[:q.bisectRight(v)])
}

func (q *IncrementIndexQuerier) Lte(v graph.Value) map[graph.NodeID]struct{} { return q.Le(v) }

func (q *IncrementIndexQuerier) Eq(v graph.Value) map[graph.NodeID]struct{} {
	lo, hi := q.bisectLeft(v), q.bisectRight(v)
	if lo >= hi {
		return map[graph.NodeID]struct{}{}
	}
	return toSet(q.ids[lo:hi])
}

func (q *IncrementIndexQuerier) Neq(v graph.Value) map[graph.NodeID]struct{} {
	lo, hi := q.bisectLeft(v), q.bisectRight(v)
	out := make(map[graph.NodeID]struct{}, len(q.ids)-(hi-lo))
	for i, id := range q.ids {
		if i < lo || i >= hi {
			out[id] = struct{}{}
		}
	}
	return out
}

// NoIndexQuerier performs the equivalent linear scan for an attribute key
// with no sorted index. It compares with graph.Equal and graph.Compare, the
// same primitives predicate.CompareScalars uses, so a type-mismatched value
// fails an ordering comparison here as it does in WHERE; nodes missing the
// attribute are skipped for every operator.
type NoIndexQuerier struct {
	ids  []graph.NodeID
	vals []graph.Value
}

func (q *NoIndexQuerier) scan(f func(graph.Value) bool) map[graph.NodeID]struct{} {
	out := map[graph.NodeID]struct{}{}
	for i, v := range q.vals {
		if v.IsNull() {
			continue
		}
		if f(v) {
			out[q.ids[i]] = struct{}{}
		}
	}
	return out
}

func (q *NoIndexQuerier) Eq(v graph.Value) map[graph.NodeID]struct{} {
	return q.scan(func(x graph.Value) bool { return graph.Equal(x, v) })
}
func (q *NoIndexQuerier) Neq(v graph.Value) map[graph.NodeID]struct{} {
	return q.scan(func(x graph.Value) bool { return !graph.Equal(x, v) })
}
func (q *NoIndexQuerier) Lt(v graph.Value) map[graph.NodeID]struct{} {
	return q.scan(func(x graph.Value) bool { ord, ok := graph.Compare(x, v); return ok && ord < 0 })
}
func (q *NoIndexQuerier) Lte(v graph.Value) map[graph.NodeID]struct{} {
	return q.scan(func(x graph.Value) bool { ord, ok := graph.Compare(x, v); return ok && ord <= 0 })
}
func (q *NoIndexQuerier) Gt(v graph.Value) map[graph.NodeID]struct{} {
	return q.scan(func(x graph.Value) bool { ord, ok := graph.Compare(x, v); return ok && ord > 0 })
}
func (q *NoIndexQuerier) Gte(v graph.Value) map[graph.NodeID]struct{} {
	return q.scan(func(x graph.Value) bool { ord, ok := graph.Compare(x, v); return ok && ord >= 0 })
}

// ArrayAttributeIndexer holds the full node-id/attribute-map snapshot of a
// host graph at the moment it was built, plus whatever sorted indices
// CreateIndices has built so far. It is constructed fresh per query Run
// and discarded afterward — never shared mutable state across queries.
type ArrayAttributeIndexer struct {
	ids   []graph.NodeID
	attrs []graph.Attrs

	indexedIDs  map[string][]graph.NodeID
	indexedVals map[string][]graph.Value

	querierCache map[string]Querier
}

// NewNodeIndexer snapshots host's nodes for indexing.
func NewNodeIndexer(host graph.HostGraph) *ArrayAttributeIndexer {
	ids := host.Nodes()
	attrs := make([]graph.Attrs, len(ids))
	for i, id := range ids {
		attrs[i] = host.NodeAttrs(id)
	}
	return &ArrayAttributeIndexer{
		ids:          ids,
		attrs:        attrs,
		indexedIDs:   make(map[string][]graph.NodeID),
		indexedVals:  make(map[string][]graph.Value),
		querierCache: make(map[string]Querier),
	}
}

// CreateIndices builds a sorted index for each of keys, so that a later
// Querier(key) returns an IncrementIndexQuerier instead of a NoIndexQuerier.
func (ix *ArrayAttributeIndexer) CreateIndices(keys []string) {
	for _, key := range keys {
		if _, ok := ix.indexedIDs[key]; ok {
			continue
		}
		vals := make([]graph.Value, len(ix.attrs))
		for i, a := range ix.attrs {
			if v, ok := a[key]; ok {
				vals[i] = v
			} else {
				vals[i] = graph.Null()
			}
		}
		ix.indexedIDs[key] = ix.ids
		ix.indexedVals[key] = vals
	}
}

// Querier returns the indexed querier for key if CreateIndices built one,
// otherwise a linear-scan fallback. Results are cached per indexer.
func (ix *ArrayAttributeIndexer) Querier(key string) Querier {
	if q, ok := ix.querierCache[key]; ok {
		return q
	}
	var q Querier
	if _, ok := ix.indexedIDs[key]; ok {
		q = newIncrementQuerier(ix.indexedIDs[key], ix.indexedVals[key])
	} else {
		vals := make([]graph.Value, len(ix.attrs))
		for i, a := range ix.attrs {
			if v, ok := a[key]; ok {
				vals[i] = v
			} else {
				vals[i] = graph.Null()
			}
		}
		q = &NoIndexQuerier{ids: ix.ids, vals: vals}
	}
	ix.querierCache[key] = q
	return q
}

// Package match enumerates subgraph monomorphisms of an expanded motif
// against a host graph, honoring externally supplied hints.
package match

import (
	"context"
	"sort"

	"github.com/mitchellh/hashstructure/v2"
	"github.com/ritamzico/cyql/internal/graph"
	"github.com/ritamzico/cyql/internal/motif"
)

// Binding maps every motif variable to the host node it is bound to.
type Binding map[motif.VarID]graph.NodeID

// Hint is a partial binding supplied by the caller (or derived from the
// attribute indexer) to restrict enumeration.
type Hint map[motif.VarID]graph.NodeID

func (b Binding) clone() Binding {
	c := make(Binding, len(b))
	for k, v := range b {
		c[k] = v
	}
	return c
}

// NodeCompatible reports whether host node h may be bound to motif node m:
// every non-labels attribute constraint equals the host value, and m's
// required label set is a subset of h's labels (an empty requirement
// matches anything).
func NodeCompatible(rec motif.NodeRec, attrs graph.Attrs) bool {
	if !attrs.HasAllLabels(rec.RequiredLabels) {
		return false
	}
	for k, want := range rec.Attrs {
		got, ok := attrs[k]
		if !ok || !graph.Equal(want, got) {
			return false
		}
	}
	return true
}

// EdgeCompatible reports whether an aggregated host edge satisfies a
// motif edge's type requirement: non-empty intersection when the motif
// requires any type, otherwise always true.
func EdgeCompatible(rec motif.EdgeRec, merged graph.Attrs) bool {
	if len(rec.RequiredTypes) == 0 {
		return true
	}
	have := merged.Labels()
	for t := range rec.RequiredTypes {
		if _, ok := have[t]; ok {
			return true
		}
	}
	return false
}

// memoKey identifies one (motif element, host id) attribute-match check
// for the per-Cursor memo cache.
type memoKey struct {
	Kind  string
	Elem  int
	HostA graph.NodeID
	HostB graph.NodeID
}

func hashKey(k memoKey) (uint64, error) {
	return hashstructure.Hash(k, hashstructure.FormatV2, nil)
}

// Cursor is a pull-based iterator over the complete bindings of one
// expanded motif against a host graph. Dropping it (simply letting it be
// garbage collected once Next stops being called) is how a caller
// cooperatively cancels enumeration early, e.g. to honor LIMIT.
type Cursor struct {
	host  graph.HostGraph
	m     *motif.Motif
	hints []Hint

	components [][]motif.VarID
	results    [][]Binding // per-component enumeration, computed lazily
	combo      []int
	started    bool
	exhausted  bool

	memo map[uint64]bool
}

// NewCursor builds a cursor over m against host, honoring hints (already
// normalized/doublechecked by internal/hint).
func NewCursor(host graph.HostGraph, m *motif.Motif, hints []Hint) *Cursor {
	return &Cursor{
		host:  host,
		m:     m,
		hints: hints,
		memo:  make(map[uint64]bool),
	}
}

func (c *Cursor) memoNode(v motif.VarID, h graph.NodeID) bool {
	key := memoKey{Kind: "node", Elem: int(v), HostA: h}
	hk, err := hashKey(key)
	if err != nil {
		return NodeCompatible(c.m.Nodes[v], c.host.NodeAttrs(h))
	}
	if v, ok := c.memo[hk]; ok {
		return v
	}
	ok := NodeCompatible(c.m.Nodes[v], c.host.NodeAttrs(h))
	c.memo[hk] = ok
	return ok
}

func (c *Cursor) memoEdge(pos motif.EdgePos, hu, hv graph.NodeID) bool {
	key := memoKey{Kind: "edge", Elem: int(pos), HostA: hu, HostB: hv}
	hk, err := hashKey(key)
	rec := c.m.Edges[pos]
	eval := func() bool {
		if !c.host.HasEdge(hu, hv) {
			return false
		}
		merged, _, ok := c.host.AggregatedEdge(hu, hv)
		return ok && EdgeCompatible(rec, merged)
	}
	if err != nil {
		return eval()
	}
	if v, ok := c.memo[hk]; ok {
		return v
	}
	ok := eval()
	c.memo[hk] = ok
	return ok
}

// weaklyConnectedComponents partitions the motif's variables via union-
// find over its edges (including ZeroHop edges, which still connect their
// endpoints for component purposes).
func weaklyConnectedComponents(m *motif.Motif) [][]motif.VarID {
	parent := make([]int, len(m.Nodes))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}
	for _, e := range m.Edges {
		union(int(e.From), int(e.To))
	}

	groups := make(map[int][]motif.VarID)
	for i := range m.Nodes {
		root := find(i)
		groups[root] = append(groups[root], motif.VarID(i))
	}
	var out [][]motif.VarID
	for _, g := range groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// hintConsistent reports whether h agrees with the current partial
// binding on every variable h constrains other than v itself.
func hintConsistent(h Hint, cur Binding, v motif.VarID) bool {
	for hv, hid := range h {
		if hv == v {
			continue
		}
		if bound, ok := cur[hv]; ok && bound != hid {
			return false
		}
	}
	return true
}

// enumerateComponent performs most-constrained-first backtracking search
// over one weakly-connected component's variables, yielding every
// node-injective homomorphism into host that respects edge presence,
// direction, and the attribute/label compatibility rules.
func (c *Cursor) enumerateComponent(vars []motif.VarID) []Binding {
	order := append([]motif.VarID(nil), vars...)
	sort.Slice(order, func(i, j int) bool {
		return c.m.Degree(order[i]) > c.m.Degree(order[j])
	})

	var results []Binding
	used := make(map[graph.NodeID]bool)
	cur := Binding{}

	// zeroHopPartner maps each endpoint of a ZeroHop edge to its opposite
	// endpoint: per §4.5(5), bind(u) must equal bind(v) for such an edge, so
	// whichever of the two is decided second is forced onto the first's
	// host node rather than drawn from the ordinary candidate pool — and
	// that forced pick must bypass the injective `used` guard below, since
	// the two variables are deliberately meant to collide.
	zeroHopPartner := make(map[motif.VarID]motif.VarID)
	for _, e := range c.m.Edges {
		if e.ZeroHop {
			zeroHopPartner[e.From] = e.To
			zeroHopPartner[e.To] = e.From
		}
	}

	edgesWithin := func(decided map[motif.VarID]struct{}, v motif.VarID) []motif.EdgePos {
		var out []motif.EdgePos
		for i, e := range c.m.Edges {
			u, w := e.Endpoints()
			if e.ZeroHop {
				u, w = e.From, e.To
			}
			if u == v {
				if _, ok := decided[w]; ok {
					out = append(out, motif.EdgePos(i))
				}
			} else if w == v {
				if _, ok := decided[u]; ok {
					out = append(out, motif.EdgePos(i))
				}
			}
		}
		return out
	}

	// candidatesFor returns the host nodes v may bind to, and whether that
	// set is a forced zero-hop equality (in which case the caller must not
	// apply the injective `used` filter to it).
	candidatesFor := func(v motif.VarID) ([]graph.NodeID, bool) {
		if partner, ok := zeroHopPartner[v]; ok {
			if hid, ok := cur[partner]; ok {
				return []graph.NodeID{hid}, true
			}
		}
		for _, h := range c.hints {
			if id, ok := h[v]; ok && hintConsistent(h, cur, v) {
				return []graph.NodeID{id}, false
			}
		}
		return c.host.Nodes(), false
	}

	var backtrack func(i int, decided map[motif.VarID]struct{})
	backtrack = func(i int, decided map[motif.VarID]struct{}) {
		if i == len(order) {
			results = append(results, cur.clone())
			return
		}
		v := order[i]
		cands, forced := candidatesFor(v)
		for _, h := range cands {
			if !forced && used[h] {
				continue
			}
			if !c.memoNode(v, h) {
				continue
			}
			ok := true
			for _, pos := range edgesWithin(decided, v) {
				e := c.m.Edges[pos]
				u, w := e.Endpoints()
				if e.ZeroHop {
					u, w = e.From, e.To
				}
				other := u
				if u == v {
					other = w
				}
				otherHost := cur[other]
				var hu, hv graph.NodeID
				if u == v {
					hu, hv = h, otherHost
				} else {
					hu, hv = otherHost, h
				}
				if e.ZeroHop {
					if hu != hv {
						ok = false
						break
					}
					continue
				}
				if !c.memoEdge(pos, hu, hv) {
					ok = false
					break
				}
			}
			if !ok {
				continue
			}

			cur[v] = h
			if !forced {
				used[h] = true
			}
			decided[v] = struct{}{}

			backtrack(i+1, decided)

			delete(decided, v)
			if !forced {
				used[h] = false
			}
			delete(cur, v)
		}
	}

	backtrack(0, map[motif.VarID]struct{}{})
	return results
}

// Next advances the cursor and returns the next complete binding, or false
// once enumeration is exhausted. Components are computed and enumerated
// once, lazily, on the first call.
func (c *Cursor) Next(ctx context.Context) (Binding, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if c.exhausted {
		return nil, false, nil
	}
	if !c.started {
		c.started = true
		c.components = weaklyConnectedComponents(c.m)
		c.results = make([][]Binding, len(c.components))
		for i, comp := range c.components {
			c.results[i] = c.enumerateComponent(comp)
			if len(c.results[i]) == 0 {
				c.exhausted = true
				return nil, false, nil
			}
		}
		c.combo = make([]int, len(c.components))
		c.combo[len(c.combo)-1] = -1
	}

	for {
		if !c.advanceCombo() {
			c.exhausted = true
			return nil, false, nil
		}

		// A weakly-connected component enumerates its own variables
		// injectively, but nothing so far has stopped two DIFFERENT
		// components from independently binding to the same host node.
		// Per §8.1, the whole motif must be node-injective, so the join
		// here rejects any combo where a host node claimed by one
		// component is claimed again by another (same-component reuse,
		// i.e. a zero-hop merge, is already legal and stays untouched).
		out := Binding{}
		used := make(map[graph.NodeID]bool)
		clash := false
		for i, idx := range c.combo {
			comp := c.results[i][idx]
			for _, h := range comp {
				if used[h] {
					clash = true
					break
				}
			}
			if clash {
				break
			}
			for v, h := range comp {
				used[h] = true
				out[v] = h
			}
		}
		if clash {
			continue
		}
		return out, true, nil
	}
}

func (c *Cursor) advanceCombo() bool {
	for i := len(c.combo) - 1; i >= 0; i-- {
		c.combo[i]++
		if c.combo[i] < len(c.results[i]) {
			return true
		}
		if i == 0 {
			return false
		}
		c.combo[i] = 0
	}
	return len(c.components) == 0
}

// Collect drains the cursor into a slice, stopping early once limit rows
// have been produced (limit<=0 means unlimited). The engine does not use
// it: Engine.runCore calls Next directly and applies its own early stop.
func (c *Cursor) Collect(ctx context.Context, limit int) ([]Binding, error) {
	var out []Binding
	for {
		b, ok, err := c.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, b)
		if limit > 0 && len(out) >= limit {
			return out, nil
		}
	}
}

// Package hint normalises the caller-supplied and indexer-derived partial
// bindings ("hints") that restrict the matcher's search. Ported from
// grandcypher's hinter.py: superset elimination, attribute doublecheck,
// key projection, and domain-to-hint expansion.
package hint

import (
	"sort"

	"github.com/ritamzico/cyql/internal/graph"
	"github.com/ritamzico/cyql/internal/match"
	"github.com/ritamzico/cyql/internal/motif"
)

// isSubsumed reports whether small ⊆ big.
func isSubsumed(small, big match.Hint) bool {
	for k, v := range small {
		bv, ok := big[k]
		if !ok || bv != v {
			return false
		}
	}
	return true
}

// EliminateSupersets keeps only the smallest hints in an antichain under
// the subset order: a hint is dropped if some already-kept, smaller hint
// is a subset of it. Applying this twice is a no-op (the result is already
// an antichain, so nothing further is subsumed).
func EliminateSupersets(hints []match.Hint) []match.Hint {
	sorted := append([]match.Hint(nil), hints...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) < len(sorted[j]) })

	var result []match.Hint
	for _, h := range sorted {
		subsumed := false
		for _, kept := range result {
			if isSubsumed(kept, h) {
				subsumed = true
				break
			}
		}
		if !subsumed {
			result = append(result, h)
		}
	}
	return result
}

// Doublecheck reports whether every hinted variable's bound host node
// satisfies the motif's node constraints, and every motif edge whose both
// endpoints are hinted has a matching host edge. A failing hint set should
// be dropped by the caller before it reaches the matcher.
func Doublecheck(host graph.HostGraph, m *motif.Motif, hints []match.Hint) bool {
	if len(hints) == 0 {
		return true
	}
	hintedVars := make(map[motif.VarID]struct{})
	for _, h := range hints {
		for v := range h {
			hintedVars[v] = struct{}{}
		}
	}

	merged := match.Hint{}
	for _, h := range hints {
		for v, id := range h {
			merged[v] = id
		}
	}

	for v := range hintedVars {
		hostID, ok := merged[v]
		if !ok {
			continue
		}
		if !match.NodeCompatible(m.Nodes[v], host.NodeAttrs(hostID)) {
			return false
		}
	}

	for _, e := range m.Edges {
		u, w := e.Endpoints()
		_, uok := hintedVars[u]
		_, wok := hintedVars[w]
		if !uok || !wok {
			continue
		}
		hu, hw := merged[u], merged[w]
		if !host.HasEdge(hu, hw) {
			return false
		}
		aggAttrs, _, ok := host.AggregatedEdge(hu, hw)
		if !ok || !match.EdgeCompatible(e, aggAttrs) {
			return false
		}
	}

	return true
}

// ProjectKeys restricts every hint to the given variable set, dropping
// hints that become empty. The engine's EXISTS evaluation does not call it:
// it builds its child hint with projectSharedBinding in internal/engine.
func ProjectKeys(hints []match.Hint, keys map[motif.VarID]struct{}) []match.Hint {
	var out []match.Hint
	for _, h := range hints {
		p := match.Hint{}
		for k, v := range h {
			if _, ok := keys[k]; ok {
				p[k] = v
			}
		}
		if len(p) > 0 {
			out = append(out, p)
		}
	}
	return out
}

// maxDomainProduct defensively bounds the Cartesian product DomainToHints
// builds, mirroring the Python original's unguarded itertools.product with
// a logged cutoff instead of an unbounded allocation (see DESIGN.md).
const maxDomainProduct = 200_000

// Domain maps a motif variable to its candidate host-node set, as produced
// by the attribute indexer's predicate-tree translation.
type Domain map[motif.VarID]map[graph.NodeID]struct{}

// DomainToHints expands domain into the Cartesian product of one hint per
// combination of candidate ids. A nil or empty domain yields nil (no
// hints, i.e. no pre-filter). If the product would exceed the defensive
// cap, overflow reports true and the returned hints are truncated to an
// empty pre-filter (the caller should proceed without hints rather than
// block on the product).
func DomainToHints(domain Domain) (hints []match.Hint, overflow bool) {
	if len(domain) == 0 {
		return nil, false
	}
	keys := make([]motif.VarID, 0, len(domain))
	for k := range domain {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	total := 1
	for _, k := range keys {
		total *= len(domain[k])
		if total > maxDomainProduct {
			return nil, true
		}
	}

	ret := []match.Hint{{}}
	for _, k := range keys {
		var ids []graph.NodeID
		for id := range domain[k] {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		next := make([]match.Hint, 0, len(ret)*len(ids))
		for _, r := range ret {
			for _, id := range ids {
				c := make(match.Hint, len(r)+1)
				for k2, v2 := range r {
					c[k2] = v2
				}
				c[k] = id
				next = append(next, c)
			}
		}
		ret = next
	}
	return ret, false
}

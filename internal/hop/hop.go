// Package hop expands the variable-length edges ("*min..max") of a motif
// into a finite family of fixed-length motifs, each paired with a map from
// the original edge position to the chain of variables it expanded to.
package hop

import "github.com/ritamzico/cyql/internal/motif"

// maxCombinations is a defensive cap on the Cartesian product across a
// query's variable-length edges. The motif builder already rejects any
// single edge's hop range above 100, so a query with even a handful of
// variable-length edges cannot legitimately reach this; tripping it
// indicates an invariant was broken upstream.
const maxCombinations = 1_000_000

// PathMap records, for each named variable-length edge, the full chain of
// VarIDs (u, h1, ..., v) a given expansion branch instantiated. A
// zero-hop branch records (u, u).
type PathMap map[motif.EdgePos][]motif.VarID

// ExpandedMotif is one fixed-length member of the expansion family.
type ExpandedMotif struct {
	Motif   *motif.Motif
	PathMap PathMap
}

type branch struct {
	zeroHop bool
	length  int
}

func branchesFor(e motif.EdgeRec) []branch {
	var bs []branch
	if e.MinHop == 0 {
		bs = append(bs, branch{zeroHop: true})
	}
	start := e.MinHop
	if start < 1 {
		start = 1
	}
	for k := start; k <= e.MaxHop; k++ {
		bs = append(bs, branch{length: k})
	}
	return bs
}

// Expand turns m into the finite list of fixed-length expansions.
func Expand(m *motif.Motif) ([]ExpandedMotif, error) {
	var varEdges []motif.EdgePos
	for i, e := range m.Edges {
		if !e.IsHop {
			varEdges = append(varEdges, motif.EdgePos(i))
		}
	}

	if len(varEdges) == 0 {
		return []ExpandedMotif{{Motif: m, PathMap: map[motif.EdgePos][]motif.VarID{}}}, nil
	}

	branchLists := make([][]branch, len(varEdges))
	total := 1
	for i, pos := range varEdges {
		bs := branchesFor(m.Edges[pos])
		branchLists[i] = bs
		total *= len(bs)
		if total > maxCombinations {
			return nil, RuntimeError{
				Kind:    "HopExpansionOverflow",
				Message: "variable-length edge expansion exceeded the defensive combination cap",
			}
		}
	}

	var combos [][]int
	var build func(i int, cur []int)
	build = func(i int, cur []int) {
		if i == len(varEdges) {
			combos = append(combos, append([]int(nil), cur...))
			return
		}
		for b := range branchLists[i] {
			build(i+1, append(cur, b))
		}
	}
	build(0, nil)

	out := make([]ExpandedMotif, 0, len(combos))
	for _, combo := range combos {
		clone := m.Clone()
		pathMap := make(map[motif.EdgePos][]motif.VarID)

		for i, pos := range varEdges {
			orig := m.Edges[pos]
			b := branchLists[i][combo[i]]
			src, dst := orig.Endpoints()

			if b.zeroHop {
				clone.ReplaceEdge(pos, motif.EdgeRec{
					From: src, To: dst, Name: orig.Name, Anon: orig.Anon,
					Direction: motif.DirForward, ZeroHop: true,
				})
				if !orig.Anon {
					pathMap[pos] = []motif.VarID{src, src}
				}
				continue
			}

			chain := make([]motif.VarID, 0, b.length+1)
			chain = append(chain, src)
			prev := src
			for h := 1; h < b.length; h++ {
				hn := clone.AddAnonNode()
				chain = append(chain, hn)
				clone.AddEdge(motif.EdgeRec{
					From: prev, To: hn, RequiredTypes: orig.RequiredTypes,
					Direction: motif.DirForward, MinHop: 1, MaxHop: 1, IsHop: true,
				})
				prev = hn
			}
			clone.ReplaceEdge(pos, motif.EdgeRec{
				From: prev, To: dst, Name: orig.Name, Anon: orig.Anon,
				RequiredTypes: orig.RequiredTypes, Direction: motif.DirForward,
				MinHop: 1, MaxHop: 1, IsHop: true,
			})
			chain = append(chain, dst)
			if !orig.Anon {
				pathMap[pos] = chain
			}
		}

		out = append(out, ExpandedMotif{Motif: clone, PathMap: pathMap})
	}

	return out, nil
}

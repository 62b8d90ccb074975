// Package motif builds the query-local pattern graph ("motif") that the
// matcher enumerates against a host graph. Following the index-arena idiom
// used for the original adjacency-list graph, motif nodes and edges live in
// flat slices addressed by index (VarID / edge position) rather than
// pointers, so the structure never needs back-references that would create
// ownership cycles.
package motif

import (
	"fmt"

	"github.com/ritamzico/cyql/internal/graph"
	uuid "github.com/satori/go.uuid"
)

// VarID indexes into Motif.Nodes.
type VarID int

// Direction of a motif edge as written in the query.
type Direction int

const (
	DirForward Direction = iota
	DirBackward
	DirBoth
)

// NodeRec is one motif node: a query variable plus its matching
// constraints.
type NodeRec struct {
	Name           string
	Anon           bool
	RequiredLabels map[string]struct{}
	Attrs          graph.Attrs // inline {k: v} constraints, "labels" never set here
}

// EdgeRec is one motif edge. Bidirectional patterns ("--") are represented
// as a pair of EdgeRecs (u,v) and (v,u) sharing Attrs/RequiredTypes, both
// flagged Bidirectional. The matcher treats each of the pair as an ordinary
// directed edge, so a match needs host edges in both directions; a bound
// name's ReturnEdges entry points at the first of the pair only.
type EdgeRec struct {
	From, To      VarID
	Name          string
	Anon          bool
	RequiredTypes map[string]struct{}
	Direction     Direction
	MinHop        int
	MaxHop        int
	IsHop         bool
	Bidirectional bool
	// ZeroHop marks an edge produced by the hop expander's min=0 branch:
	// no host edge is required between From and To, only that they bind
	// to the same host node (and that node independently satisfies both
	// endpoints' node constraints).
	ZeroHop bool
}

// Motif is the query-local pattern graph.
type Motif struct {
	Nodes    []NodeRec
	Edges    []EdgeRec
	varIndex map[string]VarID
}

// EdgePos names a motif edge by its index into Motif.Edges.
type EdgePos int

// Lookup resolves a variable name to its VarID.
func (m *Motif) Lookup(name string) (VarID, bool) {
	id, ok := m.varIndex[name]
	return id, ok
}

// OutEdges returns the indices of edges leaving v (respecting Direction:
// an edge whose Direction is DirBackward is an out-edge of its To node
// instead).
func (m *Motif) OutEdges(v VarID) []EdgePos {
	var out []EdgePos
	for i, e := range m.Edges {
		switch e.Direction {
		case DirBackward:
			if e.To == v {
				out = append(out, EdgePos(i))
			}
		default:
			if e.From == v {
				out = append(out, EdgePos(i))
			}
		}
	}
	return out
}

// Endpoints returns the (source, target) pair an edge should be matched
// against in the host graph, honoring Direction.
func (e EdgeRec) Endpoints() (VarID, VarID) {
	if e.Direction == DirBackward {
		return e.To, e.From
	}
	return e.From, e.To
}

// Degree counts edges touching v, used by the matcher's most-constrained-
// first search ordering.
func (m *Motif) Degree(v VarID) int {
	n := 0
	for _, e := range m.Edges {
		if e.From == v || e.To == v {
			n++
		}
	}
	return n
}

// Clone returns a deep-enough copy of m: the node/edge slices are
// duplicated (constraint maps are shared, since they are never mutated
// after Build), so callers can append hop-expanded nodes/edges to the
// clone without disturbing m. Used by internal/hop to build one motif per
// expansion branch combination.
func (m *Motif) Clone() *Motif {
	c := &Motif{
		Nodes:    append([]NodeRec(nil), m.Nodes...),
		Edges:    append([]EdgeRec(nil), m.Edges...),
		varIndex: make(map[string]VarID, len(m.varIndex)),
	}
	for k, v := range m.varIndex {
		c.varIndex[k] = v
	}
	return c
}

// AddAnonNode appends a fresh anonymous node and returns its VarID.
func (m *Motif) AddAnonNode() VarID {
	name := fmt.Sprintf("_anon_hop_%s", uuid.NewV4().String())
	id := VarID(len(m.Nodes))
	m.Nodes = append(m.Nodes, NodeRec{Name: name, Anon: true})
	m.varIndex[name] = id
	return id
}

// AddEdge appends a motif edge and returns its position.
func (m *Motif) AddEdge(rec EdgeRec) EdgePos {
	pos := EdgePos(len(m.Edges))
	m.Edges = append(m.Edges, rec)
	return pos
}

// ReplaceEdge overwrites the edge at pos in place, preserving its index so
// that a pre-expansion EdgePos (e.g. from a ReturnEdges table) stays valid
// after hop expansion substitutes a variable-length edge for the first
// link of its expanded chain.
func (m *Motif) ReplaceEdge(pos EdgePos, rec EdgeRec) {
	m.Edges[pos] = rec
}

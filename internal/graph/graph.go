package graph

import "sort"

// HostGraph is the uniform read interface the query engine runs against.
// A caller may have multiple edges between the same ordered node pair
// (IsMulti() true) or at most one (IsMulti() false); both shapes are
// addressed through the same EdgeKey-indexed API.
type HostGraph interface {
	Nodes() []NodeID
	HasNode(id NodeID) bool
	// NodeAttrs never fails: an absent node yields an empty map.
	NodeAttrs(id NodeID) Attrs

	OutEdges(u NodeID) []EdgeRef
	InEdges(v NodeID) []EdgeRef
	HasEdge(u, v NodeID) bool
	// Edges returns every parallel edge on (u,v), keyed by EdgeKey. A
	// single-edge graph yields at most the {0: attrs} entry.
	Edges(u, v NodeID) map[EdgeKey]Attrs

	IsMulti() bool

	// AggregatedEdge merges the union of all parallel edges' labels into
	// one set, keeping each key's own attribute map available verbatim.
	// ok is false when (u,v) has no edge at all.
	AggregatedEdge(u, v NodeID) (merged Attrs, perKey map[EdgeKey]Attrs, ok bool)
}

// AdjacencyListGraph is the default HostGraph implementation: a directed,
// optionally-multi, in-memory property graph kept as nested adjacency
// maps. It is not internally synchronized; callers sharing one across
// goroutines must serialize writes themselves (queries, which only read,
// are safe to run concurrently over an otherwise-quiescent graph).
type AdjacencyListGraph struct {
	multi bool

	nodeOrder []NodeID
	nodeMap   map[NodeID]*Node

	// out[u][v][key] and in[v][u][key] always point at the same *Edge.
	out map[NodeID]map[NodeID]map[EdgeKey]*Edge
	in  map[NodeID]map[NodeID]map[EdgeKey]*Edge
}

// NewGraph creates an empty host graph. multi selects whether AddEdge
// allows parallel edges on the same ordered pair.
func NewGraph(multi bool) *AdjacencyListGraph {
	return &AdjacencyListGraph{
		multi:   multi,
		nodeMap: make(map[NodeID]*Node),
		out:     make(map[NodeID]map[NodeID]map[EdgeKey]*Edge),
		in:      make(map[NodeID]map[NodeID]map[EdgeKey]*Edge),
	}
}

func (g *AdjacencyListGraph) IsMulti() bool { return g.multi }

func (g *AdjacencyListGraph) AddNode(id NodeID, attrs Attrs) error {
	if g.HasNode(id) {
		return NodeAlreadyExists(id)
	}
	g.nodeMap[id] = &Node{ID: id, Attrs: attrs.Clone()}
	g.nodeOrder = append(g.nodeOrder, id)
	g.out[id] = make(map[NodeID]map[EdgeKey]*Edge)
	g.in[id] = make(map[NodeID]map[EdgeKey]*Edge)
	return nil
}

func (g *AdjacencyListGraph) RemoveNode(id NodeID) error {
	if !g.HasNode(id) {
		return NodeDoesNotExist(id)
	}
	for v := range g.out[id] {
		delete(g.in[v], id)
	}
	for u := range g.in[id] {
		delete(g.out[u], id)
	}
	delete(g.out, id)
	delete(g.in, id)
	delete(g.nodeMap, id)
	for i, n := range g.nodeOrder {
		if n == id {
			g.nodeOrder = append(g.nodeOrder[:i], g.nodeOrder[i+1:]...)
			break
		}
	}
	return nil
}

// AddEdge adds a new edge from u to v. If the graph is single-edge and an
// edge already exists on (u,v), MultiEdgeNotAllowed is returned. If the
// graph is multi-edge, the next free EdgeKey on (u,v) is assigned and
// returned.
func (g *AdjacencyListGraph) AddEdge(u, v NodeID, attrs Attrs) (EdgeKey, error) {
	if !g.HasNode(u) {
		return 0, NodeDoesNotExist(u)
	}
	if !g.HasNode(v) {
		return 0, NodeDoesNotExist(v)
	}
	existing := g.out[u][v]
	if len(existing) > 0 && !g.multi {
		return 0, MultiEdgeNotAllowed(u, v)
	}
	key := EdgeKey(0)
	if g.multi {
		for { // first free key
			if _, taken := existing[key]; !taken {
				break
			}
			key++
		}
	}
	e := &Edge{From: u, To: v, Key: key, Attrs: attrs.Clone()}
	if g.out[u] == nil {
		g.out[u] = make(map[NodeID]map[EdgeKey]*Edge)
	}
	if g.out[u][v] == nil {
		g.out[u][v] = make(map[EdgeKey]*Edge)
	}
	g.out[u][v][key] = e
	if g.in[v] == nil {
		g.in[v] = make(map[NodeID]map[EdgeKey]*Edge)
	}
	if g.in[v][u] == nil {
		g.in[v][u] = make(map[EdgeKey]*Edge)
	}
	g.in[v][u][key] = e
	return key, nil
}

func (g *AdjacencyListGraph) RemoveEdge(u, v NodeID, key EdgeKey) error {
	if _, ok := g.out[u][v][key]; !ok {
		return EdgeDoesNotExist(u, v)
	}
	delete(g.out[u][v], key)
	delete(g.in[v][u], key)
	return nil
}

func (g *AdjacencyListGraph) Nodes() []NodeID {
	out := make([]NodeID, len(g.nodeOrder))
	copy(out, g.nodeOrder)
	return out
}

func (g *AdjacencyListGraph) HasNode(id NodeID) bool {
	_, ok := g.nodeMap[id]
	return ok
}

func (g *AdjacencyListGraph) NodeAttrs(id NodeID) Attrs {
	n, ok := g.nodeMap[id]
	if !ok {
		return Attrs{}
	}
	return n.Attrs
}

func (g *AdjacencyListGraph) OutEdges(u NodeID) []EdgeRef {
	var refs []EdgeRef
	for v, byKey := range g.out[u] {
		for k := range byKey {
			refs = append(refs, EdgeRef{From: u, To: v, Key: k})
		}
	}
	sortEdgeRefs(refs)
	return refs
}

func (g *AdjacencyListGraph) InEdges(v NodeID) []EdgeRef {
	var refs []EdgeRef
	for u, byKey := range g.in[v] {
		for k := range byKey {
			refs = append(refs, EdgeRef{From: u, To: v, Key: k})
		}
	}
	sortEdgeRefs(refs)
	return refs
}

func sortEdgeRefs(refs []EdgeRef) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].From != refs[j].From {
			return refs[i].From < refs[j].From
		}
		if refs[i].To != refs[j].To {
			return refs[i].To < refs[j].To
		}
		return refs[i].Key < refs[j].Key
	})
}

func (g *AdjacencyListGraph) HasEdge(u, v NodeID) bool {
	return len(g.out[u][v]) > 0
}

func (g *AdjacencyListGraph) Edges(u, v NodeID) map[EdgeKey]Attrs {
	byKey := g.out[u][v]
	out := make(map[EdgeKey]Attrs, len(byKey))
	for k, e := range byKey {
		out[k] = e.Attrs
	}
	return out
}

func (g *AdjacencyListGraph) AggregatedEdge(u, v NodeID) (Attrs, map[EdgeKey]Attrs, bool) {
	byKey := g.out[u][v]
	if len(byKey) == 0 {
		return nil, nil, false
	}
	perKey := make(map[EdgeKey]Attrs, len(byKey))
	mergedLabels := make(map[string]struct{})
	merged := Attrs{}
	first := true
	for k, e := range byKey {
		perKey[k] = e.Attrs
		for l := range e.Attrs.Labels() {
			mergedLabels[l] = struct{}{}
		}
		if first {
			for attrKey, v := range e.Attrs {
				if attrKey != "labels" {
					merged[attrKey] = v
				}
			}
			first = false
		}
	}
	merged["labels"] = Value{Kind: LabelSetVal, Labels: mergedLabels}
	return merged, perKey, true
}

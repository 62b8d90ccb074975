package motif

import (
	"fmt"

	"github.com/ritamzico/cyql/internal/cypher"
	"github.com/ritamzico/cyql/internal/graph"
	uuid "github.com/satori/go.uuid"
)

const maxHopCap = 100

// ReturnEdges maps a bound edge-variable name to its position in the
// originating Motif's Edges slice.
type ReturnEdges map[string]EdgePos

// Result is everything Build derives from a query's MATCH clauses.
type Result struct {
	Motif        *Motif
	ReturnEdges  ReturnEdges
	PathBindings map[string][]VarID
}

// Build converts a parsed query's MATCH clauses into a motif, a table of
// named return-edges, and the set of path-binding names declared via
// "P = (...)" prefixes. Anonymous node/edge names are replaced by fresh
// UUID-derived tokens; a node appearing under the same name across
// multiple MATCH clauses is unified onto one VarID.
func Build(matches []cypher.MatchClause) (*Result, error) {
	m := &Motif{varIndex: make(map[string]VarID)}
	returnEdges := make(map[string]EdgePos)
	pathBindings := make(map[string][]VarID)

	for _, mc := range matches {
		var varIDs []VarID

		nodeIDs := make([]VarID, len(mc.Nodes))
		for i, np := range mc.Nodes {
			id, err := internVarOrAnon(m, np.Name, "_anon_node")
			if err != nil {
				return nil, err
			}
			if err := applyNodeConstraints(m, id, np); err != nil {
				return nil, err
			}
			nodeIDs[i] = id
		}
		varIDs = append(varIDs, nodeIDs...)

		for i, ep := range mc.Edges {
			u, v := nodeIDs[i], nodeIDs[i+1]
			if err := addEdge(m, u, v, ep, returnEdges); err != nil {
				return nil, err
			}
		}

		if mc.PathName != "" {
			pathBindings[mc.PathName] = nodeIDs
		}
	}

	return &Result{Motif: m, ReturnEdges: returnEdges, PathBindings: pathBindings}, nil
}

func internVarOrAnon(m *Motif, name, anonPrefix string) (VarID, error) {
	anon := name == ""
	if anon {
		name = fmt.Sprintf("%s_%s", anonPrefix, uuid.NewV4().String())
	}
	if id, ok := m.varIndex[name]; ok {
		return id, nil
	}
	id := VarID(len(m.Nodes))
	m.Nodes = append(m.Nodes, NodeRec{Name: name, Anon: anon})
	m.varIndex[name] = id
	return id, nil
}

func applyNodeConstraints(m *Motif, id VarID, np cypher.NodePattern) error {
	rec := &m.Nodes[id]
	if np.Type != "" {
		if rec.RequiredLabels == nil {
			rec.RequiredLabels = make(map[string]struct{})
		}
		rec.RequiredLabels[np.Type] = struct{}{}
	}
	if len(np.Props) == 0 {
		return nil
	}
	if rec.Attrs == nil {
		rec.Attrs = graph.Attrs{}
	}
	for _, p := range np.Props {
		rec.Attrs[p.Key] = literalToValue(p.Value)
	}
	return nil
}

func addEdge(m *Motif, u, v VarID, ep cypher.EdgePattern, returnEdges map[string]EdgePos) error {
	if err := validateHopRange(ep); err != nil {
		return err
	}
	if ep.Direction == cypher.DirBoth && !ep.IsHop {
		name := ep.Name
		if name == "" {
			name = "(anonymous)"
		}
		return bidirectionalWithHop(name)
	}

	var types map[string]struct{}
	if len(ep.Types) > 0 {
		types = make(map[string]struct{}, len(ep.Types))
		for _, t := range ep.Types {
			types[t] = struct{}{}
		}
	}

	name := ep.Name
	anon := name == ""
	if anon {
		name = fmt.Sprintf("_anon_edge_%s", uuid.NewV4().String())
	} else if _, exists := returnEdges[name]; exists {
		return duplicateEdgeName(name)
	}

	mkRec := func(from, to VarID, dir Direction, bidi bool) EdgeRec {
		return EdgeRec{
			From: from, To: to, Name: name, Anon: anon,
			RequiredTypes: types, Direction: dir,
			MinHop: ep.MinHop, MaxHop: ep.MaxHop, IsHop: ep.IsHop,
			Bidirectional: bidi,
		}
	}

	switch ep.Direction {
	case cypher.DirForward:
		pos := EdgePos(len(m.Edges))
		m.Edges = append(m.Edges, mkRec(u, v, DirForward, false))
		if !anon {
			returnEdges[name] = pos
		}
	case cypher.DirBackward:
		pos := EdgePos(len(m.Edges))
		m.Edges = append(m.Edges, mkRec(u, v, DirBackward, false))
		if !anon {
			returnEdges[name] = pos
		}
	case cypher.DirBoth:
		pos := EdgePos(len(m.Edges))
		m.Edges = append(m.Edges, mkRec(u, v, DirForward, true))
		m.Edges = append(m.Edges, mkRec(v, u, DirForward, true))
		if !anon {
			returnEdges[name] = pos
		}
	}
	return nil
}

func validateHopRange(ep cypher.EdgePattern) error {
	min, max := ep.MinHop, ep.MaxHop
	if min < 0 || max < min || max < 1 || max > maxHopCap {
		return badHopRange(min, max)
	}
	return nil
}

func literalToValue(l cypher.Literal) graph.Value {
	switch l.Kind {
	case cypher.LitString:
		return graph.String(l.Str)
	case cypher.LitInt:
		return graph.Int(l.Int)
	case cypher.LitFloat:
		return graph.Float(l.Float)
	case cypher.LitBool:
		return graph.Bool(l.Bool)
	default:
		return graph.Null()
	}
}

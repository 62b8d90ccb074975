// Package predicate models a WHERE clause as a tagged-variant tree and
// evaluates it against a single candidate binding. Evaluation never fails:
// a missing attribute or a type mismatch between the two sides of a
// comparison is absorbed as "false" rather than surfaced as an error, the
// same open-ended-attribute-matching contract the host interpreter this
// engine is modeled on relies on.
package predicate

import (
	"strings"

	"github.com/ritamzico/cyql/internal/cypher"
	"github.com/ritamzico/cyql/internal/graph"
	"github.com/ritamzico/cyql/internal/hop"
	"github.com/ritamzico/cyql/internal/match"
	"github.com/ritamzico/cyql/internal/motif"
	"github.com/spf13/cast"
)

// Node is a predicate-tree variant. The unexported marker method keeps the
// set closed to this package, mirroring the tagged-union treatment used
// for grammar productions and indexer AST nodes.
type Node interface{ isNode() }

// AttrRef is "var" (Attr == "") or "var.attr".
type AttrRef struct {
	Var  string
	Attr string
}

// Operand is one side of a Compare: an attribute path, id(var), a literal,
// or a list literal (valid only on an IN right-hand side).
type Operand struct {
	Attr *AttrRef
	IdFn string
	Lit  *graph.Value
	List []graph.Value
}

// Compare is "lhs OP rhs".
type Compare struct {
	Op  cypher.CompareOp
	LHS Operand
	RHS Operand
}

type And struct{ Left, Right Node }
type Or struct{ Left, Right Node }
type Not struct{ Inner Node }

// ExistsRunner runs a pre-compiled child query against the outer binding,
// already projected onto the variables it references, and reports whether
// it produced at least one row. A NOT EXISTS is modeled by wrapping the
// Exists node in a Not, never by a flag on Exists itself.
type ExistsRunner func(outer match.Binding) (bool, error)

type Exists struct {
	Run ExistsRunner
}

func (*Compare) isNode() {}
func (*And) isNode()     {}
func (*Or) isNode()      {}
func (*Not) isNode()     {}
func (*Exists) isNode()  {}

// EdgeMask records, for a multigraph edge variable, which parallel edge
// keys independently satisfied a Compare. nil means "no edge variable was
// involved; the scalar bool is the whole story".
type EdgeMask map[graph.EdgeKey]bool

// Eval evaluates n against binding b. pathMap and returnEdges let a Compare
// resolve a bound edge variable's attribute against the possibly-multiple
// parallel host edges on its endpoints; mot resolves variable names to
// motif nodes/edges.
func Eval(n Node, b match.Binding, pm hop.PathMap, host graph.HostGraph, mot *motif.Motif, returnEdges motif.ReturnEdges) (bool, EdgeMask) {
	switch t := n.(type) {
	case *Compare:
		return evalCompare(t, b, pm, host, mot, returnEdges)
	case *And:
		lb, lm := Eval(t.Left, b, pm, host, mot, returnEdges)
		rb, rm := Eval(t.Right, b, pm, host, mot, returnEdges)
		return lb && rb, combineMask(lm, rm, lb, rb, true)
	case *Or:
		lb, lm := Eval(t.Left, b, pm, host, mot, returnEdges)
		rb, rm := Eval(t.Right, b, pm, host, mot, returnEdges)
		return lb || rb, combineMask(lm, rm, lb, rb, false)
	case *Not:
		inner, mask := Eval(t.Inner, b, pm, host, mot, returnEdges)
		return !inner, mask
	case *Exists:
		ok, err := t.Run(b)
		if err != nil {
			return false, nil
		}
		return ok, nil
	default:
		return false, nil
	}
}

func combineMask(lm, rm EdgeMask, lb, rb bool, and bool) EdgeMask {
	if lm == nil && rm == nil {
		return nil
	}
	out := make(EdgeMask, len(lm)+len(rm))
	seen := make(map[graph.EdgeKey]struct{}, len(lm)+len(rm))
	for k := range lm {
		seen[k] = struct{}{}
	}
	for k := range rm {
		seen[k] = struct{}{}
	}
	for k := range seen {
		lv, ok := lm[k]
		if !ok {
			lv = lb
		}
		rv, ok := rm[k]
		if !ok {
			rv = rb
		}
		if and {
			out[k] = lv && rv
		} else {
			out[k] = lv || rv
		}
	}
	return out
}

func evalCompare(c *Compare, b match.Binding, pm hop.PathMap, host graph.HostGraph, mot *motif.Motif, returnEdges motif.ReturnEdges) (bool, EdgeMask) {
	lhsEdge, lhsIsEdge := resolveEdgeAttr(c.LHS, b, pm, host, mot, returnEdges)
	rhsEdge, rhsIsEdge := resolveEdgeAttr(c.RHS, b, pm, host, mot, returnEdges)

	if !lhsIsEdge && !rhsIsEdge {
		lv := resolveScalar(c.LHS, b, host, mot)
		rv := resolveScalar(c.RHS, b, host, mot)
		return CompareScalars(c.Op, lv, rv), nil
	}

	keys := make(map[graph.EdgeKey]struct{})
	for k := range lhsEdge {
		keys[k] = struct{}{}
	}
	for k := range rhsEdge {
		keys[k] = struct{}{}
	}

	var lhsScalar, rhsScalar graph.Value
	if !lhsIsEdge {
		lhsScalar = resolveScalar(c.LHS, b, host, mot)
	}
	if !rhsIsEdge {
		rhsScalar = resolveScalar(c.RHS, b, host, mot)
	}

	mask := make(EdgeMask, len(keys))
	any := false
	for k := range keys {
		lv := lhsScalar
		if lhsIsEdge {
			lv = lhsEdge[k]
		}
		rv := rhsScalar
		if rhsIsEdge {
			rv = rhsEdge[k]
		}
		ok := CompareScalars(c.Op, lv, rv)
		mask[k] = ok
		any = any || ok
	}
	return any, mask
}

// resolveScalar resolves a literal, id(var), or a node attribute path to a
// single Value. A bare edge variable or a reference to an unbound/unknown
// variable resolves to Null rather than erroring.
func resolveScalar(o Operand, b match.Binding, host graph.HostGraph, mot *motif.Motif) graph.Value {
	switch {
	case o.Lit != nil:
		return *o.Lit
	case o.List != nil:
		return graph.List(o.List...)
	case o.IdFn != "":
		id, ok := mot.Lookup(o.IdFn)
		if !ok {
			return graph.Null()
		}
		hostID, ok := b[id]
		if !ok {
			return graph.Null()
		}
		return graph.String(string(hostID))
	case o.Attr != nil:
		id, ok := mot.Lookup(o.Attr.Var)
		if !ok {
			return graph.Null()
		}
		hostID, ok := b[id]
		if !ok {
			return graph.Null()
		}
		if o.Attr.Attr == "" {
			return graph.Null()
		}
		attrs := host.NodeAttrs(hostID)
		v, ok := attrs[o.Attr.Attr]
		if !ok {
			return graph.Null()
		}
		return v
	default:
		return graph.Null()
	}
}

// resolveEdgeAttr reports whether o names a bound edge variable's
// attribute and, if so, the per-parallel-edge-key values on its endpoints.
// Named variable-length edges (those whose motif edge position appears in
// pm) are excluded: WHERE over the "whole path" of a multi-hop bound edge
// has no single scalar per key, so such a reference resolves through the
// scalar path instead (and lands on Null there, since Attr.Var's motif
// node lookup will miss — this is a deliberate scope limit, see DESIGN.md).
func resolveEdgeAttr(o Operand, b match.Binding, pm hop.PathMap, host graph.HostGraph, mot *motif.Motif, returnEdges motif.ReturnEdges) (map[graph.EdgeKey]graph.Value, bool) {
	if o.Attr == nil || o.Attr.Attr == "" {
		return nil, false
	}
	pos, ok := returnEdges[o.Attr.Var]
	if !ok {
		return nil, false
	}
	if _, multiHop := pm[pos]; multiHop {
		return nil, false
	}
	edge := mot.Edges[pos]
	src, dst := edge.Endpoints()
	hu, ok1 := b[src]
	hv, ok2 := b[dst]
	if !ok1 || !ok2 {
		return nil, false
	}
	_, perKey, ok := host.AggregatedEdge(hu, hv)
	if !ok {
		return nil, false
	}
	out := make(map[graph.EdgeKey]graph.Value, len(perKey))
	for k, attrs := range perKey {
		v, ok := attrs[o.Attr.Attr]
		if !ok {
			v = graph.Null()
		}
		out[k] = v
	}
	return out, true
}

// CompareScalars applies op to a pair of resolved values. It is exported so
// internal/indexer's unindexed linear-scan querier can reuse the exact same
// semantics the predicate tree uses, rather than a second hand-rolled copy.
func CompareScalars(op cypher.CompareOp, a, b graph.Value) bool {
	switch op {
	case cypher.OpEq:
		return graph.Equal(a, b)
	case cypher.OpNeq:
		return !graph.Equal(a, b)
	case cypher.OpIs:
		return graph.Equal(a, b)
	case cypher.OpLt, cypher.OpLte, cypher.OpGt, cypher.OpGte:
		ord, ok := graph.Compare(a, b)
		if !ok {
			return false
		}
		switch op {
		case cypher.OpLt:
			return ord < 0
		case cypher.OpLte:
			return ord <= 0
		case cypher.OpGt:
			return ord > 0
		default:
			return ord >= 0
		}
	case cypher.OpIn:
		return graph.Contains(b, a)
	case cypher.OpContains:
		return stringOp(a, b, strings.Contains)
	case cypher.OpStartsWith:
		return stringOp(a, b, strings.HasPrefix)
	case cypher.OpEndsWith:
		return stringOp(a, b, strings.HasSuffix)
	default:
		return false
	}
}

func stringOp(a, b graph.Value, f func(s, substr string) bool) bool {
	as, aerr := stringOf(a)
	bs, berr := stringOf(b)
	if aerr != nil || berr != nil {
		return false
	}
	return f(as, bs)
}

func stringOf(v graph.Value) (string, error) {
	if v.Kind != graph.StringVal {
		if v.IsNull() {
			return "", errNotAString
		}
		return cast.ToStringE(v.Native())
	}
	return v.S, nil
}

var errNotAString = strErr("value is not a string")

type strErr string

func (e strErr) Error() string { return string(e) }

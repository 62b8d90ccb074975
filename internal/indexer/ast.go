package indexer

import (
	"github.com/ritamzico/cyql/internal/cypher"
	"github.com/ritamzico/cyql/internal/graph"
	"github.com/ritamzico/cyql/internal/hint"
	"github.com/ritamzico/cyql/internal/motif"
	"github.com/ritamzico/cyql/internal/predicate"
)

// indexerNode is the predicate-tree subset the indexer can evaluate without
// touching the host graph: a Compare against a single node variable's
// attribute, or And/Or of such. Everything else (Not, Exists, an edge-
// variable reference, an unsupported operator, a RHS that is itself an
// attribute path) becomes unsupportedNode, which always yields a nil
// domain — "this branch cannot narrow the search".
type indexerNode interface {
	eval(ix *ArrayAttributeIndexer) hint.Domain
}

type unsupportedNode struct{}

func (unsupportedNode) eval(*ArrayAttributeIndexer) hint.Domain { return nil }

type compareNode struct {
	v    motif.VarID
	attr string
	op   cypher.CompareOp
	lit  graph.Value
	list []graph.Value
}

func (c *compareNode) eval(ix *ArrayAttributeIndexer) hint.Domain {
	q := ix.Querier(c.attr)
	var ids map[graph.NodeID]struct{}
	switch c.op {
	case cypher.OpEq, cypher.OpIs:
		ids = q.Eq(c.lit)
	case cypher.OpNeq:
		ids = q.Neq(c.lit)
	case cypher.OpLt:
		ids = q.Lt(c.lit)
	case cypher.OpLte:
		ids = q.Lte(c.lit)
	case cypher.OpGt:
		ids = q.Gt(c.lit)
	case cypher.OpGte:
		ids = q.Gte(c.lit)
	case cypher.OpIn:
		ids = map[graph.NodeID]struct{}{}
		for _, v := range c.list {
			for id := range q.Eq(v) {
				ids[id] = struct{}{}
			}
		}
	default:
		return nil
	}
	return hint.Domain{c.v: ids}
}

type andNode struct{ left, right indexerNode }

func (n *andNode) eval(ix *ArrayAttributeIndexer) hint.Domain {
	return combineAnd(n.left.eval(ix), n.right.eval(ix))
}

type orNode struct{ left, right indexerNode }

func (n *orNode) eval(ix *ArrayAttributeIndexer) hint.Domain {
	return combineOr(n.left.eval(ix), n.right.eval(ix))
}

func intersectIDs(a, b map[graph.NodeID]struct{}) map[graph.NodeID]struct{} {
	out := make(map[graph.NodeID]struct{})
	for id := range a {
		if _, ok := b[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}

func unionIDs(a, b map[graph.NodeID]struct{}) map[graph.NodeID]struct{} {
	out := make(map[graph.NodeID]struct{}, len(a)+len(b))
	for id := range a {
		out[id] = struct{}{}
	}
	for id := range b {
		out[id] = struct{}{}
	}
	return out
}

// combineAnd intersects the candidate sets of variables both branches
// constrain, and carries through unmodified the sets of variables only one
// branch mentions — ported from grandcypher's indexer.py AND semantics.
func combineAnd(a, b hint.Domain) hint.Domain {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	out := make(hint.Domain, len(a)+len(b))
	for v, ids := range a {
		out[v] = ids
	}
	for v, ids := range b {
		if existing, ok := out[v]; ok {
			out[v] = intersectIDs(existing, ids)
		} else {
			out[v] = ids
		}
	}
	return out
}

// combineOr unions the candidate sets of variables both branches constrain
// and drops any variable only one branch mentions (an OR cannot narrow a
// variable the other side leaves unconstrained). Either branch being nil
// (unsupported/unindexable) collapses the whole disjunction to nil, since
// an OR is only as narrow as its weakest arm.
func combineOr(a, b hint.Domain) hint.Domain {
	if a == nil || b == nil {
		return nil
	}
	out := make(hint.Domain)
	for v, ids := range a {
		if other, ok := b[v]; ok {
			out[v] = unionIDs(ids, other)
		}
	}
	return out
}

// ToIndexerAST walks a WHERE predicate tree and returns the largest subset
// the attribute indexer can evaluate directly, grounded on the motif's
// variable table and edge-variable set (a Compare on a bound edge variable
// is never indexable — the indexer only ever narrows node candidates).
func ToIndexerAST(n predicate.Node, mot *motif.Motif, returnEdges motif.ReturnEdges) indexerNode {
	switch t := n.(type) {
	case *predicate.Compare:
		return compareToIndexer(t, mot, returnEdges)
	case *predicate.And:
		return &andNode{left: ToIndexerAST(t.Left, mot, returnEdges), right: ToIndexerAST(t.Right, mot, returnEdges)}
	case *predicate.Or:
		return &orNode{left: ToIndexerAST(t.Left, mot, returnEdges), right: ToIndexerAST(t.Right, mot, returnEdges)}
	default:
		// Not and Exists are never indexable: a negation or an existence
		// subquery cannot be rewritten into a monotone candidate-id set.
		return unsupportedNode{}
	}
}

func compareToIndexer(c *predicate.Compare, mot *motif.Motif, returnEdges motif.ReturnEdges) indexerNode {
	switch c.Op {
	case cypher.OpEq, cypher.OpIs, cypher.OpNeq, cypher.OpLt, cypher.OpLte, cypher.OpGt, cypher.OpGte, cypher.OpIn:
	default:
		return unsupportedNode{}
	}

	lhsRef, lhsOK := nodeAttrVar(c.LHS, mot, returnEdges)
	rhsRef, rhsOK := nodeAttrVar(c.RHS, mot, returnEdges)

	switch {
	case lhsOK && !rhsOK && rhsLiteralOnly(c.RHS):
		return buildCompareNode(lhsRef, c.Op, c.RHS)
	case rhsOK && !lhsOK && rhsLiteralOnly(c.LHS):
		return buildCompareNode(rhsRef, flipOp(c.Op), c.LHS)
	default:
		// Both sides are attribute paths (or neither is), or one side
		// references an id() function or a list RHS under a non-IN op:
		// none of these narrow a single variable's candidate set.
		return unsupportedNode{}
	}
}

// nodeAttrVar reports the motif variable o resolves to, provided it is a
// var.attr path on a *node* variable (never an edge variable, never a bare
// id() reference).
func nodeAttrVar(o predicate.Operand, mot *motif.Motif, returnEdges motif.ReturnEdges) (struct {
	v    motif.VarID
	attr string
}, bool) {
	var zero struct {
		v    motif.VarID
		attr string
	}
	if o.Attr == nil || o.Attr.Attr == "" {
		return zero, false
	}
	if _, isEdge := returnEdges[o.Attr.Var]; isEdge {
		return zero, false
	}
	v, ok := mot.Lookup(o.Attr.Var)
	if !ok {
		return zero, false
	}
	return struct {
		v    motif.VarID
		attr string
	}{v: v, attr: o.Attr.Attr}, true
}

func rhsLiteralOnly(o predicate.Operand) bool {
	return o.Lit != nil || o.List != nil
}

func buildCompareNode(ref struct {
	v    motif.VarID
	attr string
}, op cypher.CompareOp, lit predicate.Operand) indexerNode {
	if op == cypher.OpIn {
		if lit.List == nil {
			return unsupportedNode{}
		}
		return &compareNode{v: ref.v, attr: ref.attr, op: op, list: lit.List}
	}
	if lit.Lit == nil {
		return unsupportedNode{}
	}
	return &compareNode{v: ref.v, attr: ref.attr, op: op, lit: *lit.Lit}
}

func flipOp(op cypher.CompareOp) cypher.CompareOp {
	switch op {
	case cypher.OpLt:
		return cypher.OpGt
	case cypher.OpLte:
		return cypher.OpGte
	case cypher.OpGt:
		return cypher.OpLt
	case cypher.OpGte:
		return cypher.OpLte
	default:
		return op
	}
}

// Evaluate runs the translated AST against ix, returning the narrowed
// per-variable candidate domain (nil if the predicate could not be
// narrowed at all).
func Evaluate(n indexerNode, ix *ArrayAttributeIndexer) hint.Domain {
	return n.eval(ix)
}

// CollectKeys gathers the attribute keys referenced by every compareNode
// in n, so the caller can pre-build sorted indices for exactly the keys a
// WHERE clause will query before Evaluate walks the tree.
func CollectKeys(n indexerNode) []string {
	seen := map[string]struct{}{}
	var walk func(indexerNode)
	walk = func(n indexerNode) {
		switch t := n.(type) {
		case *compareNode:
			seen[t.attr] = struct{}{}
		case *andNode:
			walk(t.left)
			walk(t.right)
		case *orNode:
			walk(t.left)
			walk(t.right)
		}
	}
	walk(n)
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	return keys
}

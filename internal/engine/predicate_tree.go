package engine

import (
	"github.com/pkg/errors"

	"github.com/ritamzico/cyql/internal/cypher"
	"github.com/ritamzico/cyql/internal/graph"
	"github.com/ritamzico/cyql/internal/motif"
	"github.com/ritamzico/cyql/internal/predicate"
)

// predTree mirrors cypher.Expr one-to-one, except an ExistsExpr is
// replaced by its already-compiled child query plus the outer variable
// names the two motifs share. It is built once at Compile time;
// instantiatePredicate turns it into an executable predicate.Node per
// Run (since an Exists node's closure needs that Run's host graph and
// context, which a predTree built at Compile time cannot see yet).
type predTree interface{ isPredTree() }

type predAnd struct{ L, R predTree }
type predOr struct{ L, R predTree }
type predNot struct{ Inner predTree }
type predCompare struct{ Expr *cypher.CompareExpr }
type predExists struct {
	Child  *CompiledQuery
	Shared []string
}

func (*predAnd) isPredTree()     {}
func (*predOr) isPredTree()      {}
func (*predNot) isPredTree()     {}
func (*predCompare) isPredTree() {}
func (*predExists) isPredTree()  {}

func (e *Engine) buildPredTree(expr cypher.Expr, outerMotif *motif.Motif, depth int) (predTree, error) {
	switch t := expr.(type) {
	case nil:
		return nil, nil
	case *cypher.AndExpr:
		l, err := e.buildPredTree(t.Left, outerMotif, depth)
		if err != nil {
			return nil, err
		}
		r, err := e.buildPredTree(t.Right, outerMotif, depth)
		if err != nil {
			return nil, err
		}
		return &predAnd{L: l, R: r}, nil
	case *cypher.OrExpr:
		l, err := e.buildPredTree(t.Left, outerMotif, depth)
		if err != nil {
			return nil, err
		}
		r, err := e.buildPredTree(t.Right, outerMotif, depth)
		if err != nil {
			return nil, err
		}
		return &predOr{L: l, R: r}, nil
	case *cypher.NotExpr:
		inner, err := e.buildPredTree(t.Inner, outerMotif, depth)
		if err != nil {
			return nil, err
		}
		return &predNot{Inner: inner}, nil
	case *cypher.CompareExpr:
		return &predCompare{Expr: t}, nil
	case *cypher.ExistsExpr:
		child, err := e.compileQuery(t.Sub, depth+1)
		if err != nil {
			return nil, errors.Wrapf(err, "compiling EXISTS subquery at depth %d", depth+1)
		}
		return &predExists{Child: child, Shared: sharedVarNames(outerMotif, child.Motif)}, nil
	default:
		return nil, motif.ValidationError{Kind: "UnsupportedExpr", Message: "unrecognised WHERE expression node"}
	}
}

// sharedVarNames returns the non-anonymous node names a child motif
// declares that the outer motif also declares — the variables a
// correlated EXISTS subquery can inherit a binding for.
func sharedVarNames(outer, inner *motif.Motif) []string {
	var names []string
	for _, n := range inner.Nodes {
		if n.Anon {
			continue
		}
		if _, ok := outer.Lookup(n.Name); ok {
			names = append(names, n.Name)
		}
	}
	return names
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

func convertOperand(o cypher.Operand) predicate.Operand {
	switch {
	case o.IdFn != "":
		return predicate.Operand{IdFn: o.IdFn}
	case o.List != nil:
		vals := make([]graph.Value, len(o.List))
		for i, l := range o.List {
			vals[i] = literalToValue(l)
		}
		return predicate.Operand{List: vals}
	case o.AttrPath != nil:
		return predicate.Operand{Attr: &predicate.AttrRef{Var: o.AttrPath.Var, Attr: o.AttrPath.Attr}}
	case o.Literal != nil:
		v := literalToValue(*o.Literal)
		return predicate.Operand{Lit: &v}
	default:
		v := graph.Null()
		return predicate.Operand{Lit: &v}
	}
}

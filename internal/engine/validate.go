package engine

import (
	"github.com/ritamzico/cyql/internal/cypher"
	"github.com/ritamzico/cyql/internal/motif"
	"github.com/ritamzico/cyql/internal/shape"
)

func declaredVar(name string, res *motif.Result) bool {
	if _, ok := res.Motif.Lookup(name); ok {
		return true
	}
	if _, ok := res.ReturnEdges[name]; ok {
		return true
	}
	if _, ok := res.PathBindings[name]; ok {
		return true
	}
	return false
}

func checkAttrPath(ap *cypher.AttrPath, res *motif.Result) error {
	if ap == nil {
		return nil
	}
	if !declaredVar(ap.Var, res) {
		return motif.UnknownVariable(ap.Var)
	}
	return nil
}

func checkOperand(o cypher.Operand, res *motif.Result) error {
	if o.AttrPath != nil {
		return checkAttrPath(o.AttrPath, res)
	}
	if o.IdFn != "" && !declaredVar(o.IdFn, res) {
		return motif.UnknownVariable(o.IdFn)
	}
	return nil
}

// walkWhereVars checks every attribute path and id() reference in expr
// against res, but never descends into an ExistsExpr's subquery — that
// subquery has its own scope and is validated independently when its own
// motif is compiled.
func walkWhereVars(expr cypher.Expr, res *motif.Result) error {
	switch t := expr.(type) {
	case nil:
		return nil
	case *cypher.AndExpr:
		if err := walkWhereVars(t.Left, res); err != nil {
			return err
		}
		return walkWhereVars(t.Right, res)
	case *cypher.OrExpr:
		if err := walkWhereVars(t.Left, res); err != nil {
			return err
		}
		return walkWhereVars(t.Right, res)
	case *cypher.NotExpr:
		return walkWhereVars(t.Inner, res)
	case *cypher.ExistsExpr:
		return nil
	case *cypher.CompareExpr:
		if err := checkOperand(t.LHS, res); err != nil {
			return err
		}
		return checkOperand(t.RHS, res)
	default:
		return nil
	}
}

// validateVariables checks that every variable referenced in WHERE,
// RETURN, and ORDER BY is either a motif node/edge variable or a path
// binding — catching a typo'd or forward-referenced name before
// expansion and matching ever run.
func validateVariables(q *cypher.Query, res *motif.Result) error {
	if err := walkWhereVars(q.Where, res); err != nil {
		return err
	}
	for _, it := range q.Return.Items {
		if it.AttrPath != nil {
			if err := checkAttrPath(it.AttrPath, res); err != nil {
				return err
			}
		}
		if it.IdFn != "" && !declaredVar(it.IdFn, res) {
			return motif.UnknownVariable(it.IdFn)
		}
	}
	for _, oi := range q.OrderBy {
		if oi.Item.AttrPath != nil {
			if err := checkAttrPath(oi.Item.AttrPath, res); err != nil {
				return err
			}
		}
		if oi.Item.IdFn != "" && !declaredVar(oi.Item.IdFn, res) {
			return motif.UnknownVariable(oi.Item.IdFn)
		}
	}
	return nil
}

// validateOrderBy enforces that, once DISTINCT or an aggregation is in
// play, every ORDER BY item must name something the RETURN clause
// already produces (by canonical key or alias) — a query that sorts by
// a column DISTINCT has already collapsed, or an aggregation never
// grouped by, has no well-defined per-row value to sort on. Without
// DISTINCT or aggregation, an ORDER BY item is free to reference an
// attribute the RETURN clause never mentions; the engine builds that
// column transiently for sorting and drops it before returning (see
// Engine.shapeResult in run.go and DESIGN.md).
func validateOrderBy(q *cypher.Query) error {
	hasAgg := false
	for _, it := range q.Return.Items {
		if it.Agg != cypher.NoAgg {
			hasAgg = true
			break
		}
	}
	if !q.Return.Distinct && !hasAgg {
		return nil
	}

	returnKeys := make(map[string]bool, 2*len(q.Return.Items))
	for _, it := range q.Return.Items {
		returnKeys[shape.ItemKey(it)] = true
		if it.Alias != "" {
			returnKeys[it.Alias] = true
		}
	}
	for _, oi := range q.OrderBy {
		key := shape.ItemKey(oi.Item)
		if !returnKeys[key] {
			return motif.ValidationError{
				Kind:    "InvalidOrderBy",
				Message: "ORDER BY " + key + " must reference a returned or aliased item once DISTINCT or an aggregation is used",
			}
		}
	}
	return nil
}

package cypher

func convertQuery(raw *grammarQuery) (*Query, error) {
	q := &Query{}

	for _, m := range raw.Matches {
		mc, err := convertMatch(m)
		if err != nil {
			return nil, err
		}
		q.Matches = append(q.Matches, mc)
	}

	if raw.Where != nil {
		expr, err := convertBoolExpr(raw.Where)
		if err != nil {
			return nil, err
		}
		q.Where = expr
	}

	ret, err := convertReturn(raw.Return)
	if err != nil {
		return nil, err
	}
	q.Return = ret

	for _, o := range raw.OrderBy {
		oi, err := convertOrderItem(o)
		if err != nil {
			return nil, err
		}
		q.OrderBy = append(q.OrderBy, oi)
	}

	q.Skip = raw.Skip
	q.Limit = raw.Limit
	return q, nil
}

func convertMatch(m *grammarMatch) (MatchClause, error) {
	mc := MatchClause{PathName: m.PathName}

	first, err := convertNodePat(m.First)
	if err != nil {
		return mc, err
	}
	mc.Nodes = append(mc.Nodes, first)

	for _, hop := range m.Hops {
		ep, err := convertEdgePat(hop.Edge)
		if err != nil {
			return mc, err
		}
		mc.Edges = append(mc.Edges, ep)

		np, err := convertNodePat(hop.Node)
		if err != nil {
			return mc, err
		}
		mc.Nodes = append(mc.Nodes, np)
	}

	return mc, nil
}

func convertNodePat(n *grammarNodePat) (NodePattern, error) {
	np := NodePattern{Name: n.Name, Type: n.Type}
	for _, p := range n.Props {
		lit, err := convertValue(p.Value)
		if err != nil {
			return np, err
		}
		np.Props = append(np.Props, PropConstraint{Key: p.Key, Value: lit})
	}
	return np, nil
}

func convertEdgePat(e *grammarEdgePat) (EdgePattern, error) {
	ep := EdgePattern{}

	switch {
	case e.Left && e.Right:
		return ep, SyntaxError{Kind: "AmbiguousDirection", Message: "edge pattern cannot have arrows on both ends"}
	case e.Left:
		ep.Direction = DirBackward
	case e.Right:
		ep.Direction = DirForward
	default:
		ep.Direction = DirBoth
	}

	if e.Bracket == nil {
		ep.IsHop = true
		ep.MinHop, ep.MaxHop = 1, 1
		return ep, nil
	}

	b := e.Bracket
	ep.Name = b.Name
	ep.Types = b.Types

	if b.Hop == nil {
		ep.IsHop = true
		ep.MinHop, ep.MaxHop = 1, 1
		return ep, nil
	}

	ep.IsHop = false
	ep.MinHop = int(b.Hop.Min)
	if b.Hop.Max != nil {
		ep.MaxHop = int(*b.Hop.Max)
	} else {
		ep.MaxHop = ep.MinHop
	}
	return ep, nil
}

func convertValue(v *grammarValue) (Literal, error) {
	switch {
	case v.Str != nil:
		return Literal{Kind: LitString, Str: unquote(*v.Str)}, nil
	case v.Float != nil:
		return Literal{Kind: LitFloat, Float: *v.Float}, nil
	case v.Int != nil:
		return Literal{Kind: LitInt, Int: *v.Int}, nil
	case v.Null:
		return Literal{Kind: LitNull}, nil
	case v.True:
		return Literal{Kind: LitBool, Bool: true}, nil
	case v.False:
		return Literal{Kind: LitBool, Bool: false}, nil
	default:
		return Literal{}, SyntaxError{Kind: "InvalidLiteral", Message: "empty literal production"}
	}
}

func unquote(s string) string {
	if len(s) >= 2 {
		return s[1 : len(s)-1]
	}
	return s
}

func convertAttrPath(a *grammarAttrPath) *AttrPath {
	ap := &AttrPath{Var: a.Var}
	if a.Attr != nil {
		ap.Attr = *a.Attr
	}
	return ap
}

func convertBoolExpr(b *grammarBoolExpr) (Expr, error) {
	left, err := convertAndExpr(b.Left)
	if err != nil {
		return nil, err
	}
	for _, r := range b.Rest {
		right, err := convertAndExpr(r)
		if err != nil {
			return nil, err
		}
		left = &OrExpr{Left: left, Right: right}
	}
	return left, nil
}

func convertAndExpr(a *grammarAndExpr) (Expr, error) {
	left, err := convertNotExpr(a.Left)
	if err != nil {
		return nil, err
	}
	for _, r := range a.Rest {
		right, err := convertNotExpr(r)
		if err != nil {
			return nil, err
		}
		left = &AndExpr{Left: left, Right: right}
	}
	return left, nil
}

func convertNotExpr(n *grammarNotExpr) (Expr, error) {
	inner, err := convertPrimary(n.Primary)
	if err != nil {
		return nil, err
	}
	if n.Not {
		return &NotExpr{Inner: inner}, nil
	}
	return inner, nil
}

func convertPrimary(p *grammarPrimary) (Expr, error) {
	switch {
	case p.Paren != nil:
		return convertBoolExpr(p.Paren)
	case p.Exists != nil:
		sub, err := convertQuery(p.Exists.Sub)
		if err != nil {
			return nil, err
		}
		return &ExistsExpr{Sub: sub}, nil
	case p.Cmp != nil:
		return convertCmp(p.Cmp)
	default:
		return nil, SyntaxError{Kind: "InvalidSyntax", Message: "empty boolean primary"}
	}
}

func convertCmp(c *grammarCmp) (Expr, error) {
	lhs, err := convertOperand(c.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := convertOperand(c.RHS)
	if err != nil {
		return nil, err
	}
	op, err := convertOperator(c.Op)
	if err != nil {
		return nil, err
	}
	return &CompareExpr{Op: op, LHS: lhs, RHS: rhs}, nil
}

func convertOperator(o *grammarOperator) (CompareOp, error) {
	switch {
	case o.Eq, o.Eq1:
		return OpEq, nil
	case o.Neq, o.Neq1:
		return OpNeq, nil
	case o.Lt:
		return OpLt, nil
	case o.Lte:
		return OpLte, nil
	case o.Gt:
		return OpGt, nil
	case o.Gte:
		return OpGte, nil
	case o.Is:
		return OpIs, nil
	case o.In:
		return OpIn, nil
	case o.Contains:
		return OpContains, nil
	case o.StartsWith:
		return OpStartsWith, nil
	case o.EndsWith:
		return OpEndsWith, nil
	default:
		return 0, SyntaxError{Kind: "InvalidOperator", Message: "unrecognised comparison operator"}
	}
}

func convertOperand(o *grammarOperand) (Operand, error) {
	switch {
	case o.IdFn != nil:
		return Operand{IdFn: *o.IdFn}, nil
	case o.List != nil:
		lits := make([]Literal, 0, len(o.List))
		for _, v := range o.List {
			lit, err := convertValue(v)
			if err != nil {
				return Operand{}, err
			}
			lits = append(lits, lit)
		}
		return Operand{List: lits}, nil
	case o.AttrPath != nil:
		return Operand{AttrPath: convertAttrPath(o.AttrPath)}, nil
	case o.Value != nil:
		lit, err := convertValue(o.Value)
		if err != nil {
			return Operand{}, err
		}
		return Operand{Literal: &lit}, nil
	default:
		return Operand{}, SyntaxError{Kind: "InvalidSyntax", Message: "empty operand production"}
	}
}

func convertReturn(r *grammarReturn) (ReturnClause, error) {
	rc := ReturnClause{Distinct: r.Distinct}
	for _, item := range r.Items {
		ri, err := convertReturnItem(item)
		if err != nil {
			return rc, err
		}
		rc.Items = append(rc.Items, ri)
	}
	return rc, nil
}

func convertReturnItem(item *grammarReturnItem) (ReturnItem, error) {
	ri := ReturnItem{}
	switch {
	case item.Agg != nil:
		kind, err := convertAggKind(item.Agg)
		if err != nil {
			return ri, err
		}
		ri.Agg = kind
		ri.AttrPath = convertAttrPath(item.Agg.Path)
	case item.IdFn != nil:
		ri.IdFn = *item.IdFn
	case item.AttrPath != nil:
		ri.AttrPath = convertAttrPath(item.AttrPath)
	default:
		return ri, SyntaxError{Kind: "InvalidSyntax", Message: "empty return item"}
	}
	if item.Alias != nil {
		ri.Alias = *item.Alias
	}
	return ri, nil
}

func convertAggKind(a *grammarAgg) (AggKind, error) {
	switch {
	case a.Count:
		return AggCount, nil
	case a.Sum:
		return AggSum, nil
	case a.Avg:
		return AggAvg, nil
	case a.Min:
		return AggMin, nil
	case a.Max:
		return AggMax, nil
	default:
		return NoAgg, SyntaxError{Kind: "InvalidAggregate", Message: "unrecognised aggregation function"}
	}
}

func convertOrderItem(o *grammarOrderBy) (OrderItem, error) {
	oi := OrderItem{Descending: o.Desc}
	switch {
	case o.Agg != nil:
		kind, err := convertAggKind(o.Agg)
		if err != nil {
			return oi, err
		}
		oi.Item = ReturnItem{Agg: kind, AttrPath: convertAttrPath(o.Agg.Path)}
	case o.AttrPath != nil:
		oi.Item = ReturnItem{AttrPath: convertAttrPath(o.AttrPath)}
	default:
		return oi, SyntaxError{Kind: "InvalidSyntax", Message: "empty order-by item"}
	}
	return oi, nil
}

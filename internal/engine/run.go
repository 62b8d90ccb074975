package engine

import (
	"context"
	"time"

	"github.com/ritamzico/cyql/internal/cypher"
	"github.com/ritamzico/cyql/internal/graph"
	"github.com/ritamzico/cyql/internal/hint"
	"github.com/ritamzico/cyql/internal/indexer"
	"github.com/ritamzico/cyql/internal/match"
	"github.com/ritamzico/cyql/internal/motif"
	"github.com/ritamzico/cyql/internal/predicate"
	"github.com/ritamzico/cyql/internal/shape"
)

// Result is the tabular result of a completed query: one value per row per
// named column, every column the same length.
type Result struct {
	Columns []string
	Data    map[string][]any
	Len     int
}

// RunOptions parameterises one Run call: externally supplied partial
// bindings that restrict enumeration (§4.6), keyed by the query's own
// variable names, and a row-count cap overriding the engine's configured
// default.
type RunOptions struct {
	Hints []map[string]graph.NodeID
	Limit *int
}

// Run executes a compiled query against host, honouring opts. This is the
// top-level C9 orchestration: build hints (caller-supplied plus, if
// enabled, the attribute indexer's pre-filter), enumerate every expanded
// motif, apply WHERE, then shape the surviving rows into a Result.
func (e *Engine) Run(ctx context.Context, cq *CompiledQuery, host graph.HostGraph, opts RunOptions) (res *Result, err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		e.observe(outcome, time.Since(start))
	}()

	callerHints, err := convertCallerHints(cq.Motif, opts.Hints)
	if err != nil {
		return nil, err
	}

	limit := e.effectiveLimit(cq, opts.Limit)

	stopAt := 0
	if limit > 0 && canEarlyStop(cq) {
		stopAt = limit
		if cq.raw.Skip != nil && *cq.raw.Skip > 0 {
			stopAt += int(*cq.raw.Skip)
		}
	}

	rows, err := e.runCore(ctx, cq, host, callerHints, stopAt)
	if err != nil {
		return nil, err
	}

	e.Log.WithField("rows", len(rows)).Debug("match enumeration complete")

	return e.shapeResult(cq, host, rows, limit)
}

// effectiveLimit resolves the row cap a Run should stop producing bindings
// past: the query's own LIMIT clause, else an explicit per-call override,
// else the engine's configured default, else unbounded (0).
func (e *Engine) effectiveLimit(cq *CompiledQuery, override *int) int {
	if cq.raw.Limit != nil {
		if *cq.raw.Limit < 0 {
			return 0
		}
		return int(*cq.raw.Limit)
	}
	if override != nil {
		if *override < 0 {
			return 0
		}
		return *override
	}
	if e.cfg.DefaultLimit != nil {
		if *e.cfg.DefaultLimit < 0 {
			return 0
		}
		return *e.cfg.DefaultLimit
	}
	return 0
}

// canEarlyStop reports whether a query's result rows may be truncated as
// soon as skip+limit of them have been produced: true only when nothing
// downstream needs the complete candidate set first (no ORDER BY, no
// aggregation, no DISTINCT — each of those is a global operation over every
// row). Besides this early stop, enumeration ends early only when ctx is
// cancelled, which match.Cursor.Next checks on every call.
func canEarlyStop(cq *CompiledQuery) bool {
	if len(cq.raw.OrderBy) > 0 || cq.raw.Return.Distinct {
		return false
	}
	for _, it := range cq.raw.Return.Items {
		if it.Agg != cypher.NoAgg {
			return false
		}
	}
	return true
}

// runCore enumerates every expanded motif of cq against host, honouring
// presetHints plus (if the engine is configured to) the attribute
// indexer's own derived hints, and returns every binding whose WHERE
// predicate evaluates true. stopAt, if positive, caps the number of rows
// collected — used both for LIMIT-bearing top-level queries with no
// global post-processing, and unconditionally for EXISTS subqueries (which
// only ever need to know whether at least one row exists).
func (e *Engine) runCore(ctx context.Context, cq *CompiledQuery, host graph.HostGraph, presetHints []match.Hint, stopAt int) ([]shape.Row, error) {
	predNode, err := e.instantiatePredicate(ctx, host, cq.Motif, cq.whereTree)
	if err != nil {
		return nil, err
	}

	hints := e.prepareHints(host, cq, predNode, presetHints)

	var rows []shape.Row
	for _, em := range cq.Expanded {
		cur := match.NewCursor(host, em.Motif, hints)
		for {
			b, ok, nerr := cur.Next(ctx)
			if nerr != nil {
				return rows, nerr
			}
			if !ok {
				break
			}
			if predNode != nil {
				pass, _ := predicate.Eval(predNode, b, em.PathMap, host, cq.Motif, cq.ReturnEdges)
				if !pass {
					continue
				}
			}
			rows = append(rows, shape.Row{Binding: b, PathMap: em.PathMap})
			if stopAt > 0 && len(rows) >= stopAt {
				return rows, nil
			}
		}
	}
	return rows, nil
}

// prepareHints merges the caller-supplied hints with the attribute
// indexer's own narrowed candidate domain (when e.cfg.UseIndexer), then
// runs the combined set through superset elimination and the doublecheck
// so the matcher never sees a hint it would immediately have to refute
// itself. The indexer is purely an accelerator: skipping it (UseIndexer
// false, or its translation finding nothing to narrow) only ever widens
// the search, never changes which rows are found.
func (e *Engine) prepareHints(host graph.HostGraph, cq *CompiledQuery, predNode predicate.Node, presetHints []match.Hint) []match.Hint {
	all := append([]match.Hint(nil), presetHints...)

	if e.cfg.UseIndexer && predNode != nil {
		ast := indexer.ToIndexerAST(predNode, cq.Motif, cq.ReturnEdges)
		keys := indexer.CollectKeys(ast)
		if len(keys) > 0 {
			ix := indexer.NewNodeIndexer(host)
			ix.CreateIndices(keys)
			domain := indexer.Evaluate(ast, ix)
			domainHints, overflow := hint.DomainToHints(domain)
			if overflow {
				e.Log.Warn("indexer candidate-domain product exceeded the defensive cap; skipping indexer pre-filter for this query")
			} else {
				all = append(all, domainHints...)
			}
		}
	}

	if len(all) == 0 {
		return nil
	}

	all = hint.EliminateSupersets(all)
	kept := make([]match.Hint, 0, len(all))
	for _, h := range all {
		if hint.Doublecheck(host, cq.Motif, []match.Hint{h}) {
			kept = append(kept, h)
		}
	}
	return kept
}

// instantiatePredicate turns cq's compile-time predTree into an executable
// predicate.Node: every Exists node gets a closure that projects the outer
// binding onto the child's shared variables, passes it to the child as
// hints, and runs the child query (stopping at the first row, or — under a
// wrapping Not — still only ever needing to know if one exists).
func (e *Engine) instantiatePredicate(ctx context.Context, host graph.HostGraph, outerMotif *motif.Motif, t predTree) (predicate.Node, error) {
	switch n := t.(type) {
	case nil:
		return nil, nil
	case *predAnd:
		l, err := e.instantiatePredicate(ctx, host, outerMotif, n.L)
		if err != nil {
			return nil, err
		}
		r, err := e.instantiatePredicate(ctx, host, outerMotif, n.R)
		if err != nil {
			return nil, err
		}
		return &predicate.And{Left: l, Right: r}, nil
	case *predOr:
		l, err := e.instantiatePredicate(ctx, host, outerMotif, n.L)
		if err != nil {
			return nil, err
		}
		r, err := e.instantiatePredicate(ctx, host, outerMotif, n.R)
		if err != nil {
			return nil, err
		}
		return &predicate.Or{Left: l, Right: r}, nil
	case *predNot:
		inner, err := e.instantiatePredicate(ctx, host, outerMotif, n.Inner)
		if err != nil {
			return nil, err
		}
		return &predicate.Not{Inner: inner}, nil
	case *predCompare:
		return &predicate.Compare{
			Op:  n.Expr.Op,
			LHS: convertOperand(n.Expr.LHS),
			RHS: convertOperand(n.Expr.RHS),
		}, nil
	case *predExists:
		child := n.Child
		shared := n.Shared
		return &predicate.Exists{Run: func(outer match.Binding) (bool, error) {
			childHints, err := projectSharedBinding(outerMotif, outer, child.Motif, shared)
			if err != nil {
				return false, err
			}
			rows, err := e.runCore(ctx, child, host, childHints, 1)
			if err != nil {
				return false, err
			}
			return len(rows) > 0, nil
		}}, nil
	default:
		return nil, UnsupportedFeatureError{Kind: "UnknownPredicate", Message: "unrecognised compiled WHERE node"}
	}
}

// projectSharedBinding converts an outer binding into a single hint scoped
// to the child motif's own VarIDs, restricted to the variable names the two
// motifs share (see sharedVarNames in predicate_tree.go).
func projectSharedBinding(outerMotif *motif.Motif, outer match.Binding, childMotif *motif.Motif, shared []string) ([]match.Hint, error) {
	if len(shared) == 0 {
		return nil, nil
	}
	h := match.Hint{}
	for _, name := range shared {
		ov, ok := outerMotif.Lookup(name)
		if !ok {
			continue
		}
		hostID, ok := outer[ov]
		if !ok {
			continue
		}
		cv, ok := childMotif.Lookup(name)
		if !ok {
			continue
		}
		h[cv] = hostID
	}
	if len(h) == 0 {
		return nil, nil
	}
	return []match.Hint{h}, nil
}

// convertCallerHints maps an API-level hint (var name -> host id) onto the
// compiled query's VarIDs, silently discarding any key the motif never
// declared, per §3's hint invariants.
func convertCallerHints(m *motif.Motif, raw []map[string]graph.NodeID) ([]match.Hint, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]match.Hint, 0, len(raw))
	for _, r := range raw {
		h := match.Hint{}
		for name, id := range r {
			v, ok := m.Lookup(name)
			if !ok {
				continue
			}
			h[v] = id
		}
		if len(h) > 0 {
			out = append(out, h)
		}
	}
	return out, nil
}

// shapeResult runs the surviving rows through the full C8 pipeline:
// lookup, aggregation, alias rewrite, ORDER BY, DISTINCT, SKIP/LIMIT, and
// the final post-projection drop of any column kept only for an earlier
// stage.
func (e *Engine) shapeResult(cq *CompiledQuery, host graph.HostGraph, rows []shape.Row, limit int) (*Result, error) {
	q := cq.raw

	// When ORDER BY references an item outside RETURN, that column must be
	// computed for sorting and dropped afterward; validateOrderBy already
	// rejected this combination whenever DISTINCT or aggregation is also in
	// play, so it is only ever reachable on a plain, unaggregated query.
	allItems := append([]cypher.ReturnItem(nil), q.Return.Items...)
	returnKeys := make(map[string]bool, len(allItems))
	for _, it := range allItems {
		returnKeys[shape.ItemKey(it)] = true
	}
	var extra []cypher.ReturnItem
	for _, oi := range q.OrderBy {
		if !returnKeys[shape.ItemKey(oi.Item)] {
			extra = append(extra, oi.Item)
			returnKeys[shape.ItemKey(oi.Item)] = true
		}
	}
	allItems = append(allItems, extra...)

	t := shape.Columns(allItems, rows, host, cq.Motif, cq.ReturnEdges)
	t = shape.Aggregate(t, allItems)
	shape.AliasRewrite(t, allItems)

	if len(q.OrderBy) > 0 {
		keys := make([]shape.OrderKey, len(q.OrderBy))
		for i, oi := range q.OrderBy {
			keys[i] = shape.OrderKey{Column: outputKeyFor(oi.Item, allItems), Descending: oi.Descending}
		}
		shape.OrderBy(t, keys)
	}

	if q.Return.Distinct {
		keep := make([]string, len(q.Return.Items))
		for i, it := range q.Return.Items {
			keep[i] = shape.OutputKey(it)
		}
		shape.Distinct(t, keep)
	}

	var skip, lim *int64
	if q.Skip != nil {
		skip = q.Skip
	}
	if q.Limit != nil {
		lim = q.Limit
	} else if limit > 0 {
		l := int64(limit)
		lim = &l
	}
	shape.SkipLimit(t, skip, lim)

	keep := make([]string, len(q.Return.Items))
	for i, it := range q.Return.Items {
		keep[i] = shape.OutputKey(it)
	}
	shape.Project(t, keep)

	return &Result{Columns: append([]string(nil), t.Order...), Data: t.Columns, Len: t.Len}, nil
}

// outputKeyFor resolves an ORDER BY item to the column name it ends up
// under in t after AliasRewrite: the alias of whichever RETURN item shares
// its canonical key, or its own canonical key if it was only added to
// support sorting.
func outputKeyFor(item cypher.ReturnItem, allItems []cypher.ReturnItem) string {
	key := shape.ItemKey(item)
	for _, it := range allItems {
		if shape.ItemKey(it) == key {
			return shape.OutputKey(it)
		}
	}
	return key
}

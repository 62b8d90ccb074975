package engine

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/ritamzico/cyql/internal/cypher"
	"github.com/ritamzico/cyql/internal/hop"
	"github.com/ritamzico/cyql/internal/motif"
)

// CompiledQuery is a parsed, validated, hop-expanded query, not yet bound
// to any host graph. Its WHERE clause is kept as a predTree: everything
// except EXISTS subqueries is a direct structural mirror of cypher.Expr,
// but every EXISTS has already been recursively compiled into its own
// CompiledQuery here, at Compile time — only the host-graph-dependent
// part of evaluating it (building the match cursor and running WHERE)
// waits for Run.
type CompiledQuery struct {
	raw          *cypher.Query
	Motif        *motif.Motif
	ReturnEdges  motif.ReturnEdges
	PathBindings map[string][]motif.VarID
	Expanded     []hop.ExpandedMotif

	whereTree predTree
}

// Compile parses query and builds a CompiledQuery against e's
// configuration (hop-cap override, and whatever EXISTS subqueries need
// to recursively compile against).
func (e *Engine) Compile(query string) (*CompiledQuery, error) {
	q, err := cypher.Parse(query)
	if err != nil {
		return nil, err
	}
	return e.compileQuery(q, 0)
}

func (e *Engine) compileQuery(q *cypher.Query, depth int) (*CompiledQuery, error) {
	res, err := motif.Build(q.Matches)
	if err != nil {
		return nil, errors.Wrapf(err, "building motif at depth %d", depth)
	}
	if err := e.checkHopCap(res.Motif); err != nil {
		return nil, err
	}
	if err := validateVariables(q, res); err != nil {
		return nil, err
	}
	if err := validateOrderBy(q); err != nil {
		return nil, err
	}

	tree, err := e.buildPredTree(q.Where, res.Motif, depth)
	if err != nil {
		return nil, err
	}

	expanded, err := hop.Expand(res.Motif)
	if err != nil {
		return nil, errors.Wrap(err, "expanding variable-length edges")
	}

	return &CompiledQuery{
		raw:          q,
		Motif:        res.Motif,
		ReturnEdges:  res.ReturnEdges,
		PathBindings: res.PathBindings,
		Expanded:     expanded,
		whereTree:    tree,
	}, nil
}

// checkHopCap enforces the engine's configured hop-range ceiling, which
// can only ever be tighter than the 100 motif.Build itself enforces.
func (e *Engine) checkHopCap(m *motif.Motif) error {
	cap := e.cfg.MaxHopCap
	if cap <= 0 || cap > 100 {
		cap = 100
	}
	for _, edge := range m.Edges {
		if !edge.IsHop && edge.MaxHop > cap {
			return motif.ValidationError{
				Kind:    "HopCapExceeded",
				Message: fmt.Sprintf("hop range max %d exceeds configured cap %d", edge.MaxHop, cap),
			}
		}
	}
	return nil
}

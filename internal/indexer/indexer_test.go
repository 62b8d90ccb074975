package indexer

import (
	"testing"

	"github.com/ritamzico/cyql/internal/cypher"
	"github.com/ritamzico/cyql/internal/graph"
	"github.com/ritamzico/cyql/internal/motif"
	"github.com/ritamzico/cyql/internal/predicate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildHost(t *testing.T) *graph.AdjacencyListGraph {
	t.Helper()
	host := graph.NewGraph(false)
	require.NoError(t, host.AddNode("a", graph.Attrs{"age": graph.Int(20)}))
	require.NoError(t, host.AddNode("b", graph.Attrs{"age": graph.Int(30)}))
	require.NoError(t, host.AddNode("c", graph.Attrs{"age": graph.Int(40)}))
	require.NoError(t, host.AddNode("d", graph.Attrs{}))
	return host
}

func lit(v graph.Value) predicate.Operand { return predicate.Operand{Lit: &v} }
func attr(v, a string) predicate.Operand {
	return predicate.Operand{Attr: &predicate.AttrRef{Var: v, Attr: a}}
}

func ids(set map[graph.NodeID]struct{}) []graph.NodeID {
	out := make([]graph.NodeID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

func TestIncrementIndexQuerierComparisons(t *testing.T) {
	host := buildHost(t)
	ix := NewNodeIndexer(host)
	ix.CreateIndices([]string{"age"})
	q := ix.Querier("age")

	assert.ElementsMatch(t, []graph.NodeID{"b"}, ids(q.Eq(graph.Int(30))))
	assert.ElementsMatch(t, []graph.NodeID{"a", "c"}, ids(q.Neq(graph.Int(30))))
	assert.ElementsMatch(t, []graph.NodeID{"a"}, ids(q.Lt(graph.Int(30))))
	assert.ElementsMatch(t, []graph.NodeID{"a", "b"}, ids(q.Lte(graph.Int(30))))
	assert.ElementsMatch(t, []graph.NodeID{"c"}, ids(q.Gt(graph.Int(30))))
	assert.ElementsMatch(t, []graph.NodeID{"b", "c"}, ids(q.Gte(graph.Int(30))))
}

func TestNoIndexQuerierMatchesIndexedResults(t *testing.T) {
	host := buildHost(t)
	indexed := NewNodeIndexer(host)
	indexed.CreateIndices([]string{"age"})

	unindexed := NewNodeIndexer(host)

	for _, v := range []int64{20, 30, 40, 99} {
		assert.ElementsMatch(t,
			ids(indexed.Querier("age").Eq(graph.Int(v))),
			ids(unindexed.Querier("age").Eq(graph.Int(v))),
		)
		assert.ElementsMatch(t,
			ids(indexed.Querier("age").Gt(graph.Int(v))),
			ids(unindexed.Querier("age").Gt(graph.Int(v))),
		)
	}
}

func TestNoIndexQuerierSkipsMissingAttr(t *testing.T) {
	host := buildHost(t)
	ix := NewNodeIndexer(host)
	q := ix.Querier("age")
	assert.NotContains(t, ids(q.Eq(graph.Int(20))), graph.NodeID("d"))
	assert.NotContains(t, ids(q.Neq(graph.Int(20))), graph.NodeID("d"))
}

func buildMotif(t *testing.T, query string) (*motif.Motif, motif.ReturnEdges) {
	t.Helper()
	q, err := cypher.Parse(query)
	require.NoError(t, err)
	res, err := motif.Build(q.Matches)
	require.NoError(t, err)
	return res.Motif, res.ReturnEdges
}

func TestToIndexerASTSingleCompare(t *testing.T) {
	mot, re := buildMotif(t, `MATCH (n) RETURN id(n)`)
	host := buildHost(t)
	ix := NewNodeIndexer(host)
	ix.CreateIndices([]string{"age"})

	c := &predicate.Compare{Op: cypher.OpGt, LHS: attr("n", "age"), RHS: lit(graph.Int(25))}
	ast := ToIndexerAST(c, mot, re)
	n, _ := mot.Lookup("n")
	domain := Evaluate(ast, ix)
	require.Contains(t, domain, n)
	assert.ElementsMatch(t, []graph.NodeID{"b", "c"}, ids(domain[n]))
}

func TestToIndexerASTFlipsReversedOperands(t *testing.T) {
	mot, re := buildMotif(t, `MATCH (n) RETURN id(n)`)
	host := buildHost(t)
	ix := NewNodeIndexer(host)
	ix.CreateIndices([]string{"age"})

	c := &predicate.Compare{Op: cypher.OpLt, LHS: lit(graph.Int(25)), RHS: attr("n", "age")}
	ast := ToIndexerAST(c, mot, re)
	n, _ := mot.Lookup("n")
	domain := Evaluate(ast, ix)
	assert.ElementsMatch(t, []graph.NodeID{"b", "c"}, ids(domain[n]))
}

func TestToIndexerASTUnsupportedOpYieldsNilDomain(t *testing.T) {
	mot, re := buildMotif(t, `MATCH (n) RETURN id(n)`)
	host := buildHost(t)
	ix := NewNodeIndexer(host)

	c := &predicate.Compare{Op: cypher.OpContains, LHS: attr("n", "name"), RHS: lit(graph.String("a"))}
	ast := ToIndexerAST(c, mot, re)
	assert.Nil(t, Evaluate(ast, ix))

	not := &predicate.Not{Inner: c}
	assert.Nil(t, Evaluate(ToIndexerAST(not, mot, re), ix))
}

func TestToIndexerASTEdgeVariableIsUnsupported(t *testing.T) {
	mot, re := buildMotif(t, `MATCH (a)-[r]->(b) RETURN id(a)`)
	host := buildHost(t)
	ix := NewNodeIndexer(host)

	c := &predicate.Compare{Op: cypher.OpEq, LHS: attr("r", "weight"), RHS: lit(graph.Int(1))}
	ast := ToIndexerAST(c, mot, re)
	assert.Nil(t, Evaluate(ast, ix))
}

func TestCombineAndIntersectsCommonUnionsRest(t *testing.T) {
	mot, re := buildMotif(t, `MATCH (n) RETURN id(n)`)
	host := buildHost(t)
	ix := NewNodeIndexer(host)
	ix.CreateIndices([]string{"age"})
	n, _ := mot.Lookup("n")

	left := &compareNode{v: n, attr: "age", op: cypher.OpGte, lit: graph.Int(20)}
	right := &compareNode{v: n, attr: "age", op: cypher.OpLte, lit: graph.Int(30)}
	and := &andNode{left: left, right: right}
	domain := Evaluate(and, ix)
	assert.ElementsMatch(t, []graph.NodeID{"a", "b"}, ids(domain[n]))
}

func TestCombineOrDropsNonCommonKeysAndNilPropagates(t *testing.T) {
	mot, re := buildMotif(t, `MATCH (n) RETURN id(n)`)
	_ = re
	host := buildHost(t)
	ix := NewNodeIndexer(host)
	ix.CreateIndices([]string{"age"})
	n, _ := mot.Lookup("n")

	left := &compareNode{v: n, attr: "age", op: cypher.OpEq, lit: graph.Int(20)}
	right := &compareNode{v: n, attr: "age", op: cypher.OpEq, lit: graph.Int(40)}
	or := &orNode{left: left, right: right}
	domain := Evaluate(or, ix)
	assert.ElementsMatch(t, []graph.NodeID{"a", "c"}, ids(domain[n]))

	orWithUnsupported := &orNode{left: left, right: unsupportedNode{}}
	assert.Nil(t, Evaluate(orWithUnsupported, ix))
}

func TestCollectKeysGathersAllCompareAttrs(t *testing.T) {
	mot, re := buildMotif(t, `MATCH (n) RETURN id(n)`)
	n, _ := mot.Lookup("n")
	left := &compareNode{v: n, attr: "age", op: cypher.OpGt, lit: graph.Int(1)}
	right := &compareNode{v: n, attr: "name", op: cypher.OpEq, lit: graph.String("x")}
	tree := &andNode{left: left, right: &orNode{left: right, right: unsupportedNode{}}}
	_ = re
	assert.ElementsMatch(t, []string{"age", "name"}, CollectKeys(tree))
}

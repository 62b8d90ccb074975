package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritamzico/cyql/internal/config"
	"github.com/ritamzico/cyql/internal/graph"
)

func mustAddNode(t *testing.T, g *graph.AdjacencyListGraph, id graph.NodeID, attrs graph.Attrs) {
	t.Helper()
	require.NoError(t, g.AddNode(id, attrs))
}

func mustAddEdge(t *testing.T, g *graph.AdjacencyListGraph, from, to graph.NodeID, attrs graph.Attrs) {
	t.Helper()
	_, err := g.AddEdge(from, to, attrs)
	require.NoError(t, err)
}

func nativeStrings(t *testing.T, col []any) []string {
	t.Helper()
	out := make([]string, len(col))
	for i, c := range col {
		v, ok := c.(graph.Value)
		require.True(t, ok, "expected graph.Value, got %T", c)
		out[i] = v.String()
	}
	return out
}

// TestTwoHopChain is scenario S1: a straight-line three-node path returns
// exactly the endpoints of the two-hop chain.
func TestTwoHopChain(t *testing.T) {
	g := graph.NewGraph(false)
	mustAddNode(t, g, "x", nil)
	mustAddNode(t, g, "y", nil)
	mustAddNode(t, g, "z", nil)
	mustAddEdge(t, g, "x", "y", nil)
	mustAddEdge(t, g, "y", "z", nil)

	e := New(config.Default())
	cq, err := e.Compile(`MATCH (a)-[]->(b)-[]->(c) RETURN id(a), id(c)`)
	require.NoError(t, err)

	res, err := e.Run(context.Background(), cq, g, RunOptions{})
	require.NoError(t, err)

	require.Equal(t, 1, res.Len)
	assert.Equal(t, []string{"x"}, nativeStrings(t, res.Data["id(a)"]))
	assert.Equal(t, []string{"z"}, nativeStrings(t, res.Data["id(c)"]))
}

// TestVariableHopUpToTwo is scenario S2: a 3-cycle expanded over hop range
// [0,2] yields 9 (a,b) pairs, three per source node.
func TestVariableHopUpToTwo(t *testing.T) {
	g := graph.NewGraph(false)
	mustAddNode(t, g, "x", nil)
	mustAddNode(t, g, "y", nil)
	mustAddNode(t, g, "z", nil)
	mustAddEdge(t, g, "x", "y", nil)
	mustAddEdge(t, g, "y", "z", nil)
	mustAddEdge(t, g, "z", "x", nil)

	e := New(config.Default())
	cq, err := e.Compile(`MATCH (a)-[*0..2]->(b) RETURN id(a), id(b)`)
	require.NoError(t, err)

	res, err := e.Run(context.Background(), cq, g, RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 9, res.Len)
}

// TestEdgeTypeOr is scenario S3: an edge-type alternation matches either
// labeled relationship.
func TestEdgeTypeOr(t *testing.T) {
	g := graph.NewGraph(false)
	mustAddNode(t, g, "a", graph.Attrs{"name": graph.String("Alice")})
	mustAddNode(t, g, "b", graph.Attrs{"name": graph.String("Bob")})
	mustAddNode(t, g, "c", graph.Attrs{"name": graph.String("Carol")})
	mustAddEdge(t, g, "a", "b", graph.Attrs{"labels": graph.LabelSet("LOVES")})
	mustAddEdge(t, g, "b", "c", graph.Attrs{"labels": graph.LabelSet("WORKS_WITH")})

	e := New(config.Default())
	cq, err := e.Compile(`MATCH ()-[r:LOVES|WORKS_WITH]->(m) RETURN m.name`)
	require.NoError(t, err)

	res, err := e.Run(context.Background(), cq, g, RunOptions{})
	require.NoError(t, err)

	require.Equal(t, 2, res.Len)
	assert.ElementsMatch(t, []string{"Bob", "Carol"}, nativeStrings(t, res.Data["m.name"]))
}

// TestAggregationGroupsBySourceOrderedBySum is scenario S4: SUM over a
// multigraph's parallel "paid" edges, ordered ascending by the sum.
func TestAggregationGroupsBySourceOrderedBySum(t *testing.T) {
	g := graph.NewGraph(true)
	mustAddNode(t, g, "a", graph.Attrs{"name": graph.String("Alice")})
	mustAddNode(t, g, "b", graph.Attrs{"name": graph.String("Bob")})
	mustAddEdge(t, g, "a", "b", graph.Attrs{"labels": graph.LabelSet("paid"), "v": graph.Int(9)})
	mustAddEdge(t, g, "a", "b", graph.Attrs{"labels": graph.LabelSet("paid"), "v": graph.Int(40)})
	mustAddEdge(t, g, "b", "a", graph.Attrs{"labels": graph.LabelSet("paid"), "v": graph.Int(14)})

	e := New(config.Default())
	cq, err := e.Compile(`MATCH (n)-[r:paid]->() RETURN n.name, SUM(r.v) ORDER BY SUM(r.v) ASC`)
	require.NoError(t, err)

	res, err := e.Run(context.Background(), cq, g, RunOptions{})
	require.NoError(t, err)

	require.Equal(t, 2, res.Len)
	assert.Equal(t, []string{"Bob", "Alice"}, nativeStrings(t, res.Data["n.name"]))

	sums := res.Data["SUM(r.v)"]
	require.Len(t, sums, 2)
	v0, ok := sums[0].(graph.Value)
	require.True(t, ok)
	v1, ok := sums[1].(graph.Value)
	require.True(t, ok)
	assert.InDelta(t, 14.0, v0.Native(), 0.0001)
	assert.InDelta(t, 49.0, v1.Native(), 0.0001)
}

// TestExistsSubquery is scenario S5: a correlated EXISTS subquery filters
// the outer match by whether any of its neighbors is over 30.
func TestExistsSubquery(t *testing.T) {
	g := graph.NewGraph(false)
	mustAddNode(t, g, "x", nil)
	mustAddNode(t, g, "y", nil)
	mustAddNode(t, g, "z", graph.Attrs{"age": graph.Int(35)})
	mustAddNode(t, g, "zz", graph.Attrs{"age": graph.Int(45)})
	mustAddEdge(t, g, "x", "z", nil)
	mustAddEdge(t, g, "x", "zz", nil)
	mustAddEdge(t, g, "y", "z", nil)

	e := New(config.Default())
	cq, err := e.Compile(`MATCH (a) WHERE EXISTS { MATCH (a)-->(b) WHERE b.age>30 } RETURN id(a)`)
	require.NoError(t, err)

	res, err := e.Run(context.Background(), cq, g, RunOptions{})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"x", "y"}, nativeStrings(t, res.Data["id(a)"]))
}

// TestHintRestrictsEnumerationToSubset is scenario S6: a caller-supplied
// hint pins variable a to node "3", so only that row survives even though
// two other nodes would also satisfy the WHERE clause and motif shape.
func TestHintRestrictsEnumerationToSubset(t *testing.T) {
	g := graph.NewGraph(false)
	mustAddNode(t, g, "1", graph.Attrs{"type": graph.String("alien"), "name": graph.String("one")})
	mustAddNode(t, g, "2", graph.Attrs{"type": graph.String("human"), "name": graph.String("two")})
	mustAddNode(t, g, "3", graph.Attrs{"type": graph.String("alien"), "name": graph.String("three")})
	mustAddNode(t, g, "4", nil)
	mustAddEdge(t, g, "1", "4", nil)
	mustAddEdge(t, g, "2", "4", nil)
	mustAddEdge(t, g, "3", "4", nil)

	e := New(config.Default())
	cq, err := e.Compile(`MATCH (a)-[]->(b) WHERE a.type<>"human" RETURN a.name`)
	require.NoError(t, err)

	opts := RunOptions{Hints: []map[string]graph.NodeID{{"a": "3"}}}
	res, err := e.Run(context.Background(), cq, g, opts)
	require.NoError(t, err)

	require.Equal(t, 1, res.Len)
	assert.Equal(t, []string{"three"}, nativeStrings(t, res.Data["a.name"]))
}

// TestDistinctOrderByCollapsesDuplicates is scenario S7: DISTINCT collapses
// the repeated (Alice,25) row, and ORDER BY sorts the survivors by age
// descending.
func TestDistinctOrderByCollapsesDuplicates(t *testing.T) {
	g := graph.NewGraph(false)
	mustAddNode(t, g, "n1", graph.Attrs{"name": graph.String("Alice"), "age": graph.Int(25)})
	mustAddNode(t, g, "n2", graph.Attrs{"name": graph.String("Bob"), "age": graph.Int(30)})
	mustAddNode(t, g, "n3", graph.Attrs{"name": graph.String("Carol"), "age": graph.Int(25)})
	mustAddNode(t, g, "n4", graph.Attrs{"name": graph.String("Alice"), "age": graph.Int(25)})
	mustAddNode(t, g, "n5", graph.Attrs{"name": graph.String("Greg"), "age": graph.Int(32)})

	e := New(config.Default())
	cq, err := e.Compile(`MATCH (n) RETURN DISTINCT n.name, n.age ORDER BY n.age DESC`)
	require.NoError(t, err)

	res, err := e.Run(context.Background(), cq, g, RunOptions{})
	require.NoError(t, err)

	require.Equal(t, 4, res.Len)
	assert.Equal(t, []string{"Greg", "Bob", "Alice", "Carol"}, nativeStrings(t, res.Data["n.name"]))

	ages := res.Data["n.age"]
	require.Len(t, ages, 4)
	got := make([]int64, len(ages))
	for i, a := range ages {
		v, ok := a.(graph.Value)
		require.True(t, ok)
		got[i] = v.I
	}
	assert.Equal(t, []int64{32, 30, 25, 25}, got)
}

// TestLimitStopsEarlyWithoutOrderingOrAggregation confirms Run's
// early-stop path (no ORDER BY, DISTINCT, or aggregation) still returns
// exactly LIMIT rows rather than enumerating the whole match set.
func TestLimitStopsEarlyWithoutOrderingOrAggregation(t *testing.T) {
	g := graph.NewGraph(false)
	mustAddNode(t, g, "src", nil)
	for i := 0; i < 5; i++ {
		id := graph.NodeID(string(rune('a' + i)))
		mustAddNode(t, g, id, nil)
		mustAddEdge(t, g, "src", id, nil)
	}

	e := New(config.Default())
	cq, err := e.Compile(`MATCH (a)-[]->(b) RETURN id(b) LIMIT 2`)
	require.NoError(t, err)

	res, err := e.Run(context.Background(), cq, g, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Len)
}

// TestQueryWithoutWhereClauseMatchesEveryBinding guards against a nil
// WHERE predicate tree being mistaken for an always-false filter.
func TestQueryWithoutWhereClauseMatchesEveryBinding(t *testing.T) {
	g := graph.NewGraph(false)
	mustAddNode(t, g, "x", nil)
	mustAddNode(t, g, "y", nil)
	mustAddEdge(t, g, "x", "y", nil)

	e := New(config.Default())
	cq, err := e.Compile(`MATCH (a)-[]->(b) RETURN id(a), id(b)`)
	require.NoError(t, err)

	res, err := e.Run(context.Background(), cq, g, RunOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, res.Len)
}

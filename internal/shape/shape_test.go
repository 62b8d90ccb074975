package shape

import (
	"testing"

	"github.com/ritamzico/cyql/internal/cypher"
	"github.com/ritamzico/cyql/internal/graph"
	"github.com/ritamzico/cyql/internal/hop"
	"github.com/ritamzico/cyql/internal/match"
	"github.com/ritamzico/cyql/internal/motif"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildMotif(t *testing.T, query string) (*motif.Motif, motif.ReturnEdges) {
	t.Helper()
	q, err := cypher.Parse(query)
	require.NoError(t, err)
	res, err := motif.Build(q.Matches)
	require.NoError(t, err)
	return res.Motif, res.ReturnEdges
}

func attrPathItem(v, a string) cypher.ReturnItem {
	return cypher.ReturnItem{AttrPath: &cypher.AttrPath{Var: v, Attr: a}}
}

func TestColumnsResolvesNodeAttrAndBareVar(t *testing.T) {
	mot, re := buildMotif(t, `MATCH (n) RETURN n.age`)
	host := graph.NewGraph(false)
	require.NoError(t, host.AddNode("x", graph.Attrs{"age": graph.Int(30)}))
	n, _ := mot.Lookup("n")

	rows := []Row{{Binding: match.Binding{n: "x"}}}
	items := []cypher.ReturnItem{attrPathItem("n", "age")}
	tbl := Columns(items, rows, host, mot, re)
	assert.Equal(t, graph.Int(30), tbl.Columns["n.age"][0])
}

func TestColumnsMissingAttrIsNull(t *testing.T) {
	mot, re := buildMotif(t, `MATCH (n) RETURN n.age`)
	host := graph.NewGraph(false)
	require.NoError(t, host.AddNode("x", graph.Attrs{}))
	n, _ := mot.Lookup("n")

	rows := []Row{{Binding: match.Binding{n: "x"}}}
	tbl := Columns([]cypher.ReturnItem{attrPathItem("n", "age")}, rows, host, mot, re)
	v, ok := tbl.Columns["n.age"][0].(graph.Value)
	require.True(t, ok)
	assert.True(t, v.IsNull())
}

func TestColumnsIdFn(t *testing.T) {
	mot, re := buildMotif(t, `MATCH (n) RETURN id(n)`)
	host := graph.NewGraph(false)
	require.NoError(t, host.AddNode("x", graph.Attrs{}))
	n, _ := mot.Lookup("n")

	rows := []Row{{Binding: match.Binding{n: "x"}}}
	item := cypher.ReturnItem{IdFn: "n"}
	tbl := Columns([]cypher.ReturnItem{item}, rows, host, mot, re)
	assert.Equal(t, graph.String("x"), tbl.Columns["id(n)"][0])
}

func TestColumnsMultiEdgeAttrYieldsEdgeCellMap(t *testing.T) {
	mot, re := buildMotif(t, `MATCH (a)-[r]->(b) RETURN r.weight`)
	host := graph.NewGraph(true)
	require.NoError(t, host.AddNode("x", graph.Attrs{}))
	require.NoError(t, host.AddNode("y", graph.Attrs{}))
	_, err := host.AddEdge("x", "y", graph.Attrs{"weight": graph.Int(1)})
	require.NoError(t, err)
	_, err = host.AddEdge("x", "y", graph.Attrs{"weight": graph.Int(2)})
	require.NoError(t, err)

	a, _ := mot.Lookup("a")
	b, _ := mot.Lookup("b")
	rows := []Row{{Binding: match.Binding{a: "x", b: "y"}}}
	tbl := Columns([]cypher.ReturnItem{attrPathItem("r", "weight")}, rows, host, mot, re)
	cells, ok := tbl.Columns["r.weight"][0].(map[EdgeCell]graph.Value)
	require.True(t, ok)
	assert.Len(t, cells, 2)
}

func TestColumnsSingleEdgeAttrIsScalar(t *testing.T) {
	mot, re := buildMotif(t, `MATCH (a)-[r]->(b) RETURN r.weight`)
	host := graph.NewGraph(false)
	require.NoError(t, host.AddNode("x", graph.Attrs{}))
	require.NoError(t, host.AddNode("y", graph.Attrs{}))
	_, err := host.AddEdge("x", "y", graph.Attrs{"weight": graph.Int(7)})
	require.NoError(t, err)

	a, _ := mot.Lookup("a")
	b, _ := mot.Lookup("b")
	rows := []Row{{Binding: match.Binding{a: "x", b: "y"}}}
	tbl := Columns([]cypher.ReturnItem{attrPathItem("r", "weight")}, rows, host, mot, re)
	assert.Equal(t, graph.Int(7), tbl.Columns["r.weight"][0])
}

func TestColumnsMultiHopEdgeYieldsList(t *testing.T) {
	mot, re := buildMotif(t, `MATCH (a)-[r*2..2]->(b) RETURN r.weight`)
	host := graph.NewGraph(false)
	for _, id := range []graph.NodeID{"x", "y", "z"} {
		require.NoError(t, host.AddNode(id, graph.Attrs{}))
	}
	_, err := host.AddEdge("x", "y", graph.Attrs{"weight": graph.Int(1)})
	require.NoError(t, err)
	_, err = host.AddEdge("y", "z", graph.Attrs{"weight": graph.Int(2)})
	require.NoError(t, err)

	expansions, err := hop.Expand(mot)
	require.NoError(t, err)
	require.Len(t, expansions, 1)
	exp := expansions[0]

	pos, ok := re["r"]
	require.True(t, ok)
	chain, ok := exp.PathMap[pos]
	require.True(t, ok)
	require.Len(t, chain, 3)

	a, _ := exp.Motif.Lookup("a")
	b, _ := exp.Motif.Lookup("b")
	binding := match.Binding{a: "x", chain[1]: "y", b: "z"}
	binding[chain[0]] = "x"
	binding[chain[2]] = "z"

	rows := []Row{{Binding: binding, PathMap: exp.PathMap}}
	tbl := Columns([]cypher.ReturnItem{attrPathItem("r", "weight")}, rows, host, exp.Motif, re)
	vals, ok := tbl.Columns["r.weight"][0].([]any)
	require.True(t, ok)
	require.Len(t, vals, 2)
	assert.Equal(t, graph.Int(1), vals[0])
	assert.Equal(t, graph.Int(2), vals[1])
}

func TestAggregateCountAndSum(t *testing.T) {
	tbl := newTable(3)
	tbl.addColumn("n")
	tbl.addColumn("COUNT(n.age)")
	tbl.addColumn("SUM(n.age)")
	tbl.Columns["n"] = []any{graph.String("g1"), graph.String("g1"), graph.String("g2")}
	tbl.Columns["COUNT(n.age)"] = []any{graph.Int(30), graph.Int(40), graph.Int(50)}
	tbl.Columns["SUM(n.age)"] = []any{graph.Int(30), graph.Int(40), graph.Int(50)}

	items := []cypher.ReturnItem{
		{AttrPath: &cypher.AttrPath{Var: "n"}},
		{AttrPath: &cypher.AttrPath{Var: "n", Attr: "age"}, Agg: cypher.AggCount},
		{AttrPath: &cypher.AttrPath{Var: "n", Attr: "age"}, Agg: cypher.AggSum},
	}

	out := Aggregate(tbl, items)
	require.Equal(t, 2, out.Len)
}

func TestAliasRewriteRenamesColumn(t *testing.T) {
	tbl := newTable(1)
	tbl.addColumn("n.age")
	tbl.Columns["n.age"][0] = graph.Int(5)
	items := []cypher.ReturnItem{{AttrPath: &cypher.AttrPath{Var: "n", Attr: "age"}, Alias: "age"}}
	AliasRewrite(tbl, items)
	assert.Equal(t, graph.Int(5), tbl.Columns["age"][0])
	assert.NotContains(t, tbl.Columns, "n.age")
}

func TestOrderByStableAscending(t *testing.T) {
	tbl := newTable(3)
	tbl.addColumn("age")
	tbl.Columns["age"] = []any{graph.Int(30), graph.Int(10), graph.Int(20)}
	OrderBy(tbl, []OrderKey{{Column: "age"}})
	got := []int64{
		tbl.Columns["age"][0].(graph.Value).I,
		tbl.Columns["age"][1].(graph.Value).I,
		tbl.Columns["age"][2].(graph.Value).I,
	}
	assert.Equal(t, []int64{10, 20, 30}, got)
}

func TestOrderByEdgeCellUsesSmallestEntry(t *testing.T) {
	tbl := newTable(2)
	tbl.addColumn("w")
	tbl.Columns["w"] = []any{
		map[EdgeCell]graph.Value{{Key: 0}: graph.Int(9)},
		map[EdgeCell]graph.Value{{Key: 0}: graph.Int(1), {Key: 1}: graph.Int(2)},
	}
	OrderBy(tbl, []OrderKey{{Column: "w"}})
	second := tbl.Columns["w"][1].(map[EdgeCell]graph.Value)
	assert.Contains(t, second, EdgeCell{Key: 0})
}

func TestDistinctIsIdempotent(t *testing.T) {
	tbl := newTable(3)
	tbl.addColumn("x")
	tbl.Columns["x"] = []any{graph.Int(1), graph.Int(1), graph.Int(2)}
	Distinct(tbl, []string{"x"})
	require.Equal(t, 2, tbl.Len)
	once := append([]any(nil), tbl.Columns["x"]...)
	Distinct(tbl, []string{"x"})
	assert.Equal(t, once, tbl.Columns["x"])
}

func TestSkipLimitWindow(t *testing.T) {
	tbl := newTable(5)
	tbl.addColumn("x")
	tbl.Columns["x"] = []any{graph.Int(0), graph.Int(1), graph.Int(2), graph.Int(3), graph.Int(4)}
	skip, limit := int64(1), int64(2)
	SkipLimit(tbl, &skip, &limit)
	require.Equal(t, 2, tbl.Len)
	assert.Equal(t, graph.Int(1), tbl.Columns["x"][0])
	assert.Equal(t, graph.Int(2), tbl.Columns["x"][1])
}

func TestProjectDropsUnkeptColumns(t *testing.T) {
	tbl := newTable(1)
	tbl.addColumn("keep")
	tbl.addColumn("drop")
	Project(tbl, []string{"keep"})
	assert.Contains(t, tbl.Columns, "keep")
	assert.NotContains(t, tbl.Columns, "drop")
}

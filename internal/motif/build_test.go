package motif

import (
	"testing"

	"github.com/ritamzico/cyql/internal/cypher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, q string) *cypher.Query {
	t.Helper()
	parsed, err := cypher.Parse(q)
	require.NoError(t, err)
	return parsed
}

func TestBuildTwoHopChain(t *testing.T) {
	q := mustParse(t, `MATCH (a)-[]->(b)-[]->(c) RETURN id(a), id(c)`)
	res, err := Build(q.Matches)
	require.NoError(t, err)
	assert.Len(t, res.Motif.Nodes, 3)
	assert.Len(t, res.Motif.Edges, 2)

	aID, ok := res.Motif.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, 1, res.Motif.Degree(aID))
}

func TestBuildUnifiesRepeatedVariable(t *testing.T) {
	q := mustParse(t, `MATCH (a)-[]->(b) MATCH (b)-[]->(c) RETURN id(a)`)
	res, err := Build(q.Matches)
	require.NoError(t, err)
	assert.Len(t, res.Motif.Nodes, 3)
}

func TestBuildBidirectionalEdgeDoublesMotifEdges(t *testing.T) {
	q := mustParse(t, `MATCH (a)--(b) RETURN id(a)`)
	res, err := Build(q.Matches)
	require.NoError(t, err)
	assert.Len(t, res.Motif.Edges, 2)
	assert.True(t, res.Motif.Edges[0].Bidirectional)
	assert.True(t, res.Motif.Edges[1].Bidirectional)
}

func TestBuildRejectsHopCapOverflow(t *testing.T) {
	q := mustParse(t, `MATCH (a)-[*0..200]->(b) RETURN id(a)`)
	_, err := Build(q.Matches)
	require.Error(t, err)
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "InvalidHopRange", verr.Kind)
}

func TestBuildRejectsDuplicateEdgeName(t *testing.T) {
	q := mustParse(t, `MATCH (a)-[r]->(b)-[r]->(c) RETURN id(a)`)
	_, err := Build(q.Matches)
	require.Error(t, err)
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "DuplicateEdgeName", verr.Kind)
}

func TestBuildNamedReturnEdges(t *testing.T) {
	q := mustParse(t, `MATCH (n)-[r:paid]->() RETURN n.name`)
	res, err := Build(q.Matches)
	require.NoError(t, err)
	pos, ok := res.ReturnEdges["r"]
	require.True(t, ok)
	assert.Equal(t, "paid", firstType(res.Motif.Edges[pos].RequiredTypes))
}

func firstType(set map[string]struct{}) string {
	for t := range set {
		return t
	}
	return ""
}

func TestBuildPathBinding(t *testing.T) {
	q := mustParse(t, `MATCH p = (a)-[]->(b) RETURN id(a)`)
	res, err := Build(q.Matches)
	require.NoError(t, err)
	ids, ok := res.PathBindings["p"]
	require.True(t, ok)
	assert.Len(t, ids, 2)
}

func TestBuildInlinePropsAndLabel(t *testing.T) {
	q := mustParse(t, `MATCH (a:Person {name: "Ada", age: 36}) RETURN id(a)`)
	res, err := Build(q.Matches)
	require.NoError(t, err)
	aID, _ := res.Motif.Lookup("a")
	rec := res.Motif.Nodes[aID]
	_, hasLabel := rec.RequiredLabels["Person"]
	assert.True(t, hasLabel)
	assert.Equal(t, "Ada", rec.Attrs["name"].S)
	assert.Equal(t, int64(36), rec.Attrs["age"].I)
}

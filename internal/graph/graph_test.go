package graph

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddNodeAndEdge(t *testing.T) {
	g := NewGraph(false)
	require.NoError(t, g.AddNode("a", Attrs{"labels": LabelSet("Person")}))
	require.NoError(t, g.AddNode("b", Attrs{"labels": LabelSet("Person")}))

	key, err := g.AddEdge("a", "b", Attrs{"labels": LabelSet("KNOWS")})
	require.NoError(t, err)
	assert.Equal(t, EdgeKey(0), key)

	assert.True(t, g.HasEdge("a", "b"))
	assert.False(t, g.HasEdge("b", "a"))

	out := g.OutEdges("a")
	require.Len(t, out, 1)
	assert.Equal(t, NodeID("b"), out[0].To)

	in := g.InEdges("b")
	require.Len(t, in, 1)
	assert.Equal(t, NodeID("a"), in[0].From)
}

func TestAddNodeDuplicate(t *testing.T) {
	g := NewGraph(false)
	require.NoError(t, g.AddNode("a", nil))
	err := g.AddNode("a", nil)
	require.Error(t, err)
	var gerr GraphError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "NodeAlreadyExists", gerr.Kind)
}

func TestAddEdgeMissingNode(t *testing.T) {
	g := NewGraph(false)
	require.NoError(t, g.AddNode("a", nil))
	_, err := g.AddEdge("a", "ghost", nil)
	require.Error(t, err)
	var gerr GraphError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "NodeDoesNotExist", gerr.Kind)
}

func TestSingleEdgeGraphRejectsParallelEdges(t *testing.T) {
	g := NewGraph(false)
	require.NoError(t, g.AddNode("a", nil))
	require.NoError(t, g.AddNode("b", nil))
	_, err := g.AddEdge("a", "b", nil)
	require.NoError(t, err)

	_, err = g.AddEdge("a", "b", nil)
	require.Error(t, err)
	var gerr GraphError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "MultiEdgeNotAllowed", gerr.Kind)
}

func TestMultiEdgeGraphAssignsKeys(t *testing.T) {
	g := NewGraph(true)
	require.NoError(t, g.AddNode("a", nil))
	require.NoError(t, g.AddNode("b", nil))

	k0, err := g.AddEdge("a", "b", Attrs{"labels": LabelSet("LIKES")})
	require.NoError(t, err)
	k1, err := g.AddEdge("a", "b", Attrs{"labels": LabelSet("FOLLOWS")})
	require.NoError(t, err)
	assert.Equal(t, EdgeKey(0), k0)
	assert.Equal(t, EdgeKey(1), k1)

	edges := g.Edges("a", "b")
	require.Len(t, edges, 2)
	assert.Contains(t, edges[0].Labels(), "LIKES")
	assert.Contains(t, edges[1].Labels(), "FOLLOWS")
}

func TestRemoveEdgeFreesKeyButLeavesOthers(t *testing.T) {
	g := NewGraph(true)
	require.NoError(t, g.AddNode("a", nil))
	require.NoError(t, g.AddNode("b", nil))
	k0, _ := g.AddEdge("a", "b", Attrs{"labels": LabelSet("LIKES")})
	_, _ = g.AddEdge("a", "b", Attrs{"labels": LabelSet("FOLLOWS")})

	require.NoError(t, g.RemoveEdge("a", "b", k0))
	edges := g.Edges("a", "b")
	require.Len(t, edges, 1)
	_, stillThere := edges[k0]
	assert.False(t, stillThere)
}

func TestRemoveNodeClearsAdjacency(t *testing.T) {
	g := NewGraph(false)
	require.NoError(t, g.AddNode("a", nil))
	require.NoError(t, g.AddNode("b", nil))
	_, err := g.AddEdge("a", "b", nil)
	require.NoError(t, err)

	require.NoError(t, g.RemoveNode("a"))
	assert.False(t, g.HasNode("a"))
	assert.False(t, g.HasEdge("a", "b"))
	assert.Empty(t, g.InEdges("b"))
}

func TestAggregatedEdgeMergesLabelsAcrossKeys(t *testing.T) {
	g := NewGraph(true)
	require.NoError(t, g.AddNode("a", nil))
	require.NoError(t, g.AddNode("b", nil))
	_, _ = g.AddEdge("a", "b", Attrs{"labels": LabelSet("LIKES"), "weight": Int(1)})
	_, _ = g.AddEdge("a", "b", Attrs{"labels": LabelSet("FOLLOWS")})

	merged, perKey, ok := g.AggregatedEdge("a", "b")
	require.True(t, ok)
	assert.Len(t, perKey, 2)
	labels := merged.Labels()
	assert.Contains(t, labels, "LIKES")
	assert.Contains(t, labels, "FOLLOWS")
}

func TestAggregatedEdgeNoEdge(t *testing.T) {
	g := NewGraph(true)
	require.NoError(t, g.AddNode("a", nil))
	require.NoError(t, g.AddNode("b", nil))
	_, _, ok := g.AggregatedEdge("a", "b")
	assert.False(t, ok)
}

func TestJSONRoundTrip(t *testing.T) {
	g := NewGraph(true)
	require.NoError(t, g.AddNode("a", Attrs{
		"labels": LabelSet("Person"),
		"name":   String("Ada"),
		"age":    Int(36),
		"score":  Float(9.5),
		"active": Bool(true),
		"tags":   List(String("x"), String("y")),
	}))
	require.NoError(t, g.AddNode("b", Attrs{"labels": LabelSet("Person")}))
	_, err := g.AddEdge("a", "b", Attrs{"labels": LabelSet("KNOWS"), "since": Int(2020)})
	require.NoError(t, err)
	_, err = g.AddEdge("a", "b", Attrs{"labels": LabelSet("FOLLOWS")})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(g, &buf))

	g2, err := ReadJSON(&buf)
	require.NoError(t, err)

	assert.True(t, g2.IsMulti())
	assert.ElementsMatch(t, g.Nodes(), g2.Nodes())

	aAttrs := g2.NodeAttrs("a")
	assert.Contains(t, aAttrs["labels"].Labels(), "Person")
	assert.Equal(t, "Ada", aAttrs["name"].S)
	assert.Equal(t, int64(36), aAttrs["age"].I)
	assert.Equal(t, 9.5, aAttrs["score"].F)
	assert.Equal(t, true, aAttrs["active"].B)
	require.Len(t, aAttrs["tags"].List, 2)

	edges := g2.Edges("a", "b")
	assert.Len(t, edges, 2)
}

func TestNodeAttrsAbsentNodeIsEmptyNotNil(t *testing.T) {
	g := NewGraph(false)
	attrs := g.NodeAttrs("ghost")
	assert.Empty(t, attrs)
}

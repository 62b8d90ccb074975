package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
)

type serializedValue struct {
	Kind  string `json:"kind"`
	Value any    `json:"value,omitempty"`
}

type serializedNode struct {
	ID    string                     `json:"id"`
	Attrs map[string]serializedValue `json:"attrs,omitempty"`
}

type serializedEdge struct {
	From  string                     `json:"from"`
	To    string                     `json:"to"`
	Key   int                        `json:"key"`
	Attrs map[string]serializedValue `json:"attrs,omitempty"`
}

type serializedGraph struct {
	Multi bool             `json:"multi"`
	Nodes []serializedNode `json:"nodes"`
	Edges []serializedEdge `json:"edges"`
}

func marshalValue(v Value) serializedValue {
	switch v.Kind {
	case IntVal:
		return serializedValue{Kind: "int", Value: v.I}
	case FloatVal:
		return serializedValue{Kind: "float", Value: v.F}
	case StringVal:
		return serializedValue{Kind: "string", Value: v.S}
	case BoolVal:
		return serializedValue{Kind: "bool", Value: v.B}
	case LabelSetVal:
		return serializedValue{Kind: "labels", Value: v.Native()}
	case ListVal:
		raw := make([]serializedValue, len(v.List))
		for i, e := range v.List {
			raw[i] = marshalValue(e)
		}
		return serializedValue{Kind: "list", Value: raw}
	default:
		return serializedValue{Kind: "null"}
	}
}

func unmarshalValue(sv serializedValue) (Value, error) {
	switch sv.Kind {
	case "int":
		f, ok := sv.Value.(float64)
		if !ok {
			return Value{}, fmt.Errorf("expected number for int, got %T", sv.Value)
		}
		return Int(int64(f)), nil
	case "float":
		f, ok := sv.Value.(float64)
		if !ok {
			return Value{}, fmt.Errorf("expected number for float, got %T", sv.Value)
		}
		return Float(f), nil
	case "string":
		s, ok := sv.Value.(string)
		if !ok {
			return Value{}, fmt.Errorf("expected string, got %T", sv.Value)
		}
		return String(s), nil
	case "bool":
		b, ok := sv.Value.(bool)
		if !ok {
			return Value{}, fmt.Errorf("expected bool, got %T", sv.Value)
		}
		return Bool(b), nil
	case "labels":
		raw, ok := sv.Value.([]any)
		if !ok {
			return Value{}, fmt.Errorf("expected array for labels, got %T", sv.Value)
		}
		labels := make([]string, 0, len(raw))
		for _, r := range raw {
			s, ok := r.(string)
			if !ok {
				return Value{}, fmt.Errorf("label entry must be a string, got %T", r)
			}
			labels = append(labels, s)
		}
		return LabelSet(labels...), nil
	case "list":
		raw, ok := sv.Value.([]any)
		if !ok {
			return Value{}, fmt.Errorf("expected array for list, got %T", sv.Value)
		}
		out := make([]Value, 0, len(raw))
		for _, r := range raw {
			b, err := json.Marshal(r)
			if err != nil {
				return Value{}, err
			}
			var inner serializedValue
			if err := json.Unmarshal(b, &inner); err != nil {
				return Value{}, err
			}
			v, err := unmarshalValue(inner)
			if err != nil {
				return Value{}, err
			}
			out = append(out, v)
		}
		return List(out...), nil
	case "null", "":
		return Null(), nil
	default:
		return Value{}, fmt.Errorf("unknown serialized value kind %q", sv.Kind)
	}
}

func toSerializedGraph(g *AdjacencyListGraph) serializedGraph {
	nodes := g.Nodes()
	sNodes := make([]serializedNode, 0, len(nodes))
	for _, id := range nodes {
		attrs := g.NodeAttrs(id)
		sAttrs := make(map[string]serializedValue, len(attrs))
		for k, v := range attrs {
			sAttrs[k] = marshalValue(v)
		}
		sNodes = append(sNodes, serializedNode{ID: string(id), Attrs: sAttrs})
	}

	var sEdges []serializedEdge
	for _, u := range nodes {
		for _, ref := range g.OutEdges(u) {
			attrs := g.Edges(ref.From, ref.To)[ref.Key]
			sAttrs := make(map[string]serializedValue, len(attrs))
			for k, v := range attrs {
				sAttrs[k] = marshalValue(v)
			}
			sEdges = append(sEdges, serializedEdge{
				From:  string(ref.From),
				To:    string(ref.To),
				Key:   int(ref.Key),
				Attrs: sAttrs,
			})
		}
	}

	return serializedGraph{Multi: g.multi, Nodes: sNodes, Edges: sEdges}
}

func fromSerializedGraph(sg serializedGraph) (*AdjacencyListGraph, error) {
	g := NewGraph(sg.Multi)

	for _, sn := range sg.Nodes {
		attrs := make(Attrs, len(sn.Attrs))
		for k, sv := range sn.Attrs {
			v, err := unmarshalValue(sv)
			if err != nil {
				return nil, errors.Wrapf(err, "node %s attr %s", sn.ID, k)
			}
			attrs[k] = v
		}
		if err := g.AddNode(NodeID(sn.ID), attrs); err != nil {
			return nil, errors.Wrapf(err, "adding node %s", sn.ID)
		}
	}

	for _, se := range sg.Edges {
		attrs := make(Attrs, len(se.Attrs))
		for k, sv := range se.Attrs {
			v, err := unmarshalValue(sv)
			if err != nil {
				return nil, errors.Wrapf(err, "edge %s->%s attr %s", se.From, se.To, k)
			}
			attrs[k] = v
		}
		if _, err := g.AddEdge(NodeID(se.From), NodeID(se.To), attrs); err != nil {
			return nil, errors.Wrapf(err, "adding edge %s->%s", se.From, se.To)
		}
	}

	return g, nil
}

// WriteJSON encodes a graph to JSON and writes it to w.
func WriteJSON(g *AdjacencyListGraph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(toSerializedGraph(g))
}

// ReadJSON decodes a graph from JSON read from r.
func ReadJSON(r io.Reader) (*AdjacencyListGraph, error) {
	var sg serializedGraph
	if err := json.NewDecoder(r).Decode(&sg); err != nil {
		return nil, errors.Wrap(err, "decoding graph JSON")
	}
	return fromSerializedGraph(sg)
}

// SaveJSON writes a graph to a JSON file at path.
func SaveJSON(g *AdjacencyListGraph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating file %s", path)
	}
	defer f.Close()
	return WriteJSON(g, f)
}

// LoadJSON reads a graph from a JSON file at path.
func LoadJSON(path string) (*AdjacencyListGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening file %s", path)
	}
	defer f.Close()
	return ReadJSON(f)
}

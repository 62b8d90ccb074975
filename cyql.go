// Package cyql is the root facade: load or build a host graph, compile and
// run Cypher-subset queries against it, and marshal the tabular result to
// JSON. Grounded on the teacher's own pgraph.go, generalized from its
// single probabilistic graph + DSL parser pair to a graph plus a
// configurable query engine.
package cyql

import (
	"context"
	"encoding/json"
	"io"

	"github.com/ritamzico/cyql/internal/config"
	"github.com/ritamzico/cyql/internal/engine"
	"github.com/ritamzico/cyql/internal/graph"
	"github.com/ritamzico/cyql/internal/shape"
)

// Result is the tabular outcome of a Query call.
type Result = engine.Result

// RunOptions forwards caller-supplied partial bindings and a result-row cap
// to the engine, the same as engine.RunOptions.
type RunOptions = engine.RunOptions

// Instance pairs one host graph with the engine configured to query it.
// The engine carries its own logger and Prometheus registry, so two
// Instances in the same process never collide on metric names.
type Instance struct {
	Graph  *graph.AdjacencyListGraph
	Engine *engine.Engine
}

// New builds an empty, single-edge (non-multigraph) Instance under the
// default engine configuration.
func New() *Instance {
	return &Instance{
		Graph:  graph.NewGraph(false),
		Engine: engine.New(config.Default()),
	}
}

// NewMulti builds an empty multigraph Instance under cfg.
func NewMulti(cfg config.Config) *Instance {
	return &Instance{
		Graph:  graph.NewGraph(true),
		Engine: engine.New(cfg),
	}
}

// Load reads a graph from JSON on r and wires it to an engine under cfg.
func Load(r io.Reader, cfg config.Config) (*Instance, error) {
	g, err := graph.ReadJSON(r)
	if err != nil {
		return nil, err
	}
	return &Instance{Graph: g, Engine: engine.New(cfg)}, nil
}

// LoadFile is Load against a path on disk.
func LoadFile(path string, cfg config.Config) (*Instance, error) {
	g, err := graph.LoadJSON(path)
	if err != nil {
		return nil, err
	}
	return &Instance{Graph: g, Engine: engine.New(cfg)}, nil
}

// Save writes the Instance's graph as JSON to w.
func (i *Instance) Save(w io.Writer) error {
	return graph.WriteJSON(i.Graph, w)
}

// SaveFile writes the Instance's graph as JSON to path.
func (i *Instance) SaveFile(path string) error {
	return graph.SaveJSON(i.Graph, path)
}

// Compile parses and validates query against the Instance's engine
// configuration, independent of any host graph — the returned
// *engine.CompiledQuery may be reused across many Run calls, including
// against a different Instance sharing the same engine.
func (i *Instance) Compile(query string) (*engine.CompiledQuery, error) {
	return i.Engine.Compile(query)
}

// Query compiles and immediately runs query against the Instance's graph.
// Prefer Compile+Run directly when the same query text runs repeatedly.
func (i *Instance) Query(ctx context.Context, query string) (*Result, error) {
	cq, err := i.Engine.Compile(query)
	if err != nil {
		return nil, err
	}
	return i.Engine.Run(ctx, cq, i.Graph, RunOptions{})
}

// Run executes an already-compiled query against the Instance's graph.
func (i *Instance) Run(ctx context.Context, cq *engine.CompiledQuery, opts RunOptions) (*Result, error) {
	return i.Engine.Run(ctx, cq, i.Graph, opts)
}

type jsonResult struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
	Len     int              `json:"len"`
}

// MarshalResultJSON renders a Result as a JSON object with "columns" (the
// column order), "rows" (an array of row objects keyed by return column)
// and "len" (the row count), each cell reduced to plain JSON-native data via
// shape.ToNative (graph.Value collapses to its native form, edge cells key
// by "<edgeKey>" or "<edgeKey>:<label>", multi-hop paths become arrays).
func MarshalResultJSON(r *Result) ([]byte, error) {
	rows := make([]map[string]any, r.Len)
	for i := 0; i < r.Len; i++ {
		row := make(map[string]any, len(r.Columns))
		for _, col := range r.Columns {
			row[col] = shape.ToNative(r.Data[col][i])
		}
		rows[i] = row
	}
	jr := jsonResult{
		Columns: append([]string(nil), r.Columns...),
		Rows:    rows,
		Len:     r.Len,
	}
	return json.Marshal(jr)
}

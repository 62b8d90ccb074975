// Package shape turns surviving candidate bindings into the named, ordered
// result columns RETURN describes: lookup, aggregation, alias rewriting,
// ORDER BY, DISTINCT, SKIP/LIMIT, and the final drop of any column kept
// only to support an earlier stage. Ground truth for the operation order
// is the distilled spec's result-shaping pipeline; the edge-cell keying
// (4) is this engine's own multigraph-specific addition (see DESIGN.md).
package shape

import (
	"fmt"
	"sort"

	"github.com/mitchellh/hashstructure/v2"
	"github.com/ritamzico/cyql/internal/cypher"
	"github.com/ritamzico/cyql/internal/graph"
	"github.com/ritamzico/cyql/internal/hop"
	"github.com/ritamzico/cyql/internal/match"
	"github.com/ritamzico/cyql/internal/motif"
	"github.com/spf13/cast"
)

// Row is one candidate binding that survived WHERE filtering, paired with
// the path map that produced it so a bound variable-length edge/path name
// can be resolved to its full hop chain.
type Row struct {
	Binding match.Binding
	PathMap hop.PathMap
}

// EdgeCell names one cell of a multigraph edge-attribute column: a
// parallel edge's key and one of the labels it carries. A single-edge host
// pair never produces this shape — only a multi-edge pair does, since
// otherwise there is nothing to disambiguate.
type EdgeCell struct {
	Key   graph.EdgeKey
	Label string
}

// Table is an ordered set of named columns, one value per row, threaded
// through the shaping pipeline. Cell values are one of: graph.Value,
// graph.Attrs (bare node/single-edge variable), map[EdgeCell]graph.Attrs
// (bare edge variable bound to several parallel host edges),
// map[EdgeCell]graph.Value (an attribute path on such an edge variable),
// or []any holding one of those per hop (variable-length edge path).
type Table struct {
	Order   []string
	Columns map[string][]any
	Len     int
}

func newTable(n int) *Table {
	return &Table{Columns: map[string][]any{}, Len: n}
}

func (t *Table) addColumn(name string) {
	if _, ok := t.Columns[name]; ok {
		return
	}
	t.Order = append(t.Order, name)
	t.Columns[name] = make([]any, t.Len)
}

// ItemKey is the canonical, pre-alias name for a return/order-by item:
// "var", "var.attr", "id(var)", or "AGG(var.attr)".
func ItemKey(item cypher.ReturnItem) string {
	base := ""
	switch {
	case item.IdFn != "":
		base = fmt.Sprintf("id(%s)", item.IdFn)
	case item.AttrPath != nil && item.AttrPath.IsBareVar():
		base = item.AttrPath.Var
	case item.AttrPath != nil:
		base = fmt.Sprintf("%s.%s", item.AttrPath.Var, item.AttrPath.Attr)
	}
	switch item.Agg {
	case cypher.AggCount:
		return "COUNT(" + base + ")"
	case cypher.AggSum:
		return "SUM(" + base + ")"
	case cypher.AggAvg:
		return "AVG(" + base + ")"
	case cypher.AggMin:
		return "MIN(" + base + ")"
	case cypher.AggMax:
		return "MAX(" + base + ")"
	default:
		return base
	}
}

// OutputKey is the column name an item should end up under after alias
// rewriting: the alias if given, otherwise ItemKey.
func OutputKey(item cypher.ReturnItem) string {
	if item.Alias != "" {
		return item.Alias
	}
	return ItemKey(item)
}

// Columns resolves every item against every row, producing one column per
// item keyed by ItemKey (pre-alias — AliasRewrite renames afterward, once
// aggregation and ordering no longer need the canonical key).
func Columns(items []cypher.ReturnItem, rows []Row, host graph.HostGraph, mot *motif.Motif, returnEdges motif.ReturnEdges) *Table {
	t := newTable(len(rows))
	for _, item := range items {
		key := ItemKey(item)
		t.addColumn(key)
		col := t.Columns[key]
		for i, r := range rows {
			col[i] = resolveItem(item, r, host, mot, returnEdges)
		}
	}
	return t
}

func resolveItem(item cypher.ReturnItem, r Row, host graph.HostGraph, mot *motif.Motif, returnEdges motif.ReturnEdges) any {
	if item.IdFn != "" {
		return idOf(item.IdFn, r, mot)
	}
	if item.AttrPath == nil {
		return graph.Null()
	}
	return resolveAttrPath(*item.AttrPath, r, host, mot, returnEdges)
}

func idOf(varName string, r Row, mot *motif.Motif) graph.Value {
	v, ok := mot.Lookup(varName)
	if !ok {
		return graph.Null()
	}
	hostID, ok := r.Binding[v]
	if !ok {
		return graph.Null()
	}
	return graph.String(string(hostID))
}

func resolveAttrPath(p cypher.AttrPath, r Row, host graph.HostGraph, mot *motif.Motif, returnEdges motif.ReturnEdges) any {
	if pos, isEdge := returnEdges[p.Var]; isEdge {
		return resolveEdgeVar(p, pos, r, host, mot)
	}
	v, ok := mot.Lookup(p.Var)
	if !ok {
		return graph.Null()
	}
	hostID, ok := r.Binding[v]
	if !ok {
		return graph.Null()
	}
	attrs := host.NodeAttrs(hostID)
	if p.IsBareVar() {
		return attrs
	}
	val, ok := attrs[p.Attr]
	if !ok {
		return graph.Null()
	}
	return val
}

// resolveEdgeVar resolves a bound edge variable, bare or with an attribute
// path, honouring IsHop/PathMap and the host graph's multiplicity: a
// single host edge always collapses to a plain value/attrs map, and only a
// multi-edge pair (or a hop chain of such pairs) produces an EdgeCell map
// or a list.
func resolveEdgeVar(p cypher.AttrPath, pos motif.EdgePos, r Row, host graph.HostGraph, mot *motif.Motif) any {
	chain, multiHop := r.PathMap[pos]
	edge := mot.Edges[pos]

	if !multiHop {
		src, dst := edge.Endpoints()
		hu, ok1 := r.Binding[src]
		hv, ok2 := r.Binding[dst]
		if !ok1 || !ok2 {
			return graph.Null()
		}
		return edgeCell(p, hu, hv, host)
	}

	var out []any
	for i := 0; i+1 < len(chain); i++ {
		hu, ok1 := r.Binding[chain[i]]
		hv, ok2 := r.Binding[chain[i+1]]
		if !ok1 || !ok2 {
			out = append(out, graph.Null())
			continue
		}
		out = append(out, edgeCell(p, hu, hv, host))
	}
	return out
}

// edgeCell resolves one (u,v) hop's value for an edge variable reference.
// A single parallel edge collapses to a plain attrs map / value; several
// parallel edges keep every edge's contribution distinguishable via
// EdgeCell, one entry per (key, label) pair the edge carries (an edge with
// no labels contributes a single cell under the empty-string label).
func edgeCell(p cypher.AttrPath, hu, hv graph.NodeID, host graph.HostGraph) any {
	perKey := host.Edges(hu, hv)
	if len(perKey) == 0 {
		return graph.Null()
	}
	if len(perKey) == 1 {
		for _, attrs := range perKey {
			if p.IsBareVar() {
				return attrs
			}
			v, ok := attrs[p.Attr]
			if !ok {
				return graph.Null()
			}
			return v
		}
	}
	if p.IsBareVar() {
		// Bare multi-edge variable: expose the full attrs map per key,
		// one cell per label it carries (unlabelled edges get one cell
		// under the empty label).
		attrsOut := make(map[EdgeCell]graph.Attrs, len(perKey))
		for key, attrs := range perKey {
			labels := attrs.Labels()
			if len(labels) == 0 {
				attrsOut[EdgeCell{Key: key}] = attrs
				continue
			}
			for l := range labels {
				attrsOut[EdgeCell{Key: key, Label: l}] = attrs
			}
		}
		return attrsOut
	}

	out := make(map[EdgeCell]graph.Value)
	for key, attrs := range perKey {
		val, ok := attrs[p.Attr]
		if !ok {
			val = graph.Null()
		}
		labels := attrs.Labels()
		if len(labels) == 0 {
			out[EdgeCell{Key: key, Label: ""}] = val
			continue
		}
		for l := range labels {
			out[EdgeCell{Key: key, Label: l}] = val
		}
	}
	return out
}

// Aggregate partitions rows by the tuple of non-aggregated items' values
// and reduces every aggregated item within each partition. If no item
// carries an Agg, t is returned unchanged (no grouping takes place).
func Aggregate(t *Table, items []cypher.ReturnItem) *Table {
	hasAgg := false
	for _, it := range items {
		if it.Agg != cypher.NoAgg {
			hasAgg = true
			break
		}
	}
	if !hasAgg {
		return t
	}

	type group struct {
		order int
		rows  []int
	}
	groups := map[string]*group{}
	var groupOrder []string

	groupKeys := make([]string, 0, len(items))
	for _, it := range items {
		if it.Agg == cypher.NoAgg {
			groupKeys = append(groupKeys, ItemKey(it))
		}
	}

	for i := 0; i < t.Len; i++ {
		parts := make([]any, len(groupKeys))
		for j, k := range groupKeys {
			parts[j] = t.Columns[k][i]
		}
		h, _ := hashstructure.Hash(fmt.Sprintf("%v", parts), hashstructure.FormatV2, nil)
		gk := fmt.Sprintf("%x", h)
		g, ok := groups[gk]
		if !ok {
			g = &group{order: len(groupOrder)}
			groups[gk] = g
			groupOrder = append(groupOrder, gk)
		}
		g.rows = append(g.rows, i)
	}

	out := newTable(len(groupOrder))
	for _, it := range items {
		out.addColumn(ItemKey(it))
	}

	for gi, gk := range groupOrder {
		g := groups[gk]
		for _, it := range items {
			key := ItemKey(it)
			if it.Agg == cypher.NoAgg {
				out.Columns[key][gi] = t.Columns[key][g.rows[0]]
				continue
			}
			out.Columns[key][gi] = reduce(it.Agg, t.Columns[key], g.rows)
		}
	}
	return out
}

func reduce(agg cypher.AggKind, col []any, rows []int) graph.Value {
	switch agg {
	case cypher.AggCount:
		n := 0
		for _, i := range rows {
			if !isNullCell(col[i]) {
				n++
			}
		}
		return graph.Int(int64(n))
	case cypher.AggSum:
		var sum float64
		for _, i := range rows {
			if cells, ok := col[i].(map[EdgeCell]graph.Value); ok {
				// Parallel edges: add each edge key's value once, however
				// many label cells that edge contributes.
				seen := map[graph.EdgeKey]bool{}
				for cell, v := range cells {
					if f, ok := numericOf(v); ok && !seen[cell.Key] {
						seen[cell.Key] = true
						sum += f
					}
				}
				continue
			}
			if f, ok := numericOf(col[i]); ok {
				sum += f
			}
		}
		return graph.Float(sum)
	case cypher.AggAvg:
		var sum float64
		n := 0
		for _, i := range rows {
			if f, ok := numericOf(col[i]); ok {
				sum += f
				n++
			}
		}
		if n == 0 {
			return graph.Null()
		}
		return graph.Float(sum / float64(n))
	case cypher.AggMin, cypher.AggMax:
		var best graph.Value
		has := false
		for _, i := range rows {
			v, ok := col[i].(graph.Value)
			if !ok || v.IsNull() {
				continue
			}
			if !has {
				best, has = v, true
				continue
			}
			ord, cmpOK := graph.Compare(v, best)
			if !cmpOK {
				continue
			}
			if (agg == cypher.AggMin && ord < 0) || (agg == cypher.AggMax && ord > 0) {
				best = v
			}
		}
		if !has {
			return graph.Null()
		}
		return best
	default:
		return graph.Null()
	}
}

func isNullCell(c any) bool {
	v, ok := c.(graph.Value)
	return ok && v.IsNull()
}

func numericOf(c any) (float64, bool) {
	v, ok := c.(graph.Value)
	if !ok || v.IsNull() {
		return 0, false
	}
	f, err := cast.ToFloat64E(v.Native())
	if err != nil {
		return 0, false
	}
	return f, true
}

// AliasRewrite renames every item's column from ItemKey to OutputKey.
func AliasRewrite(t *Table, items []cypher.ReturnItem) {
	newOrder := make([]string, 0, len(t.Order))
	newColumns := make(map[string][]any, len(t.Columns))
	seen := map[string]bool{}
	for _, it := range items {
		from, to := ItemKey(it), OutputKey(it)
		if col, ok := t.Columns[from]; ok && !seen[to] {
			newColumns[to] = col
			newOrder = append(newOrder, to)
			seen[to] = true
		}
	}
	for _, name := range t.Order {
		if _, already := newColumns[name]; already {
			continue
		}
		if col, ok := t.Columns[name]; ok {
			newColumns[name] = col
			newOrder = append(newOrder, name)
		}
	}
	t.Order = newOrder
	t.Columns = newColumns
}

// OrderKey is one ORDER BY term resolved to a table column name.
type OrderKey struct {
	Column     string
	Descending bool
}

// OrderBy stably sorts every column in t in place according to keys,
// applied left to right.
func OrderBy(t *Table, keys []OrderKey) {
	if t.Len == 0 || len(keys) == 0 {
		return
	}
	idx := make([]int, t.Len)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ia, ib := idx[a], idx[b]
		for _, k := range keys {
			col, ok := t.Columns[k.Column]
			if !ok {
				continue
			}
			cmp := compareCells(col[ia], col[ib])
			if cmp == 0 {
				continue
			}
			if k.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	permute(t, idx)
}

func permute(t *Table, idx []int) {
	for name, col := range t.Columns {
		out := make([]any, len(idx))
		for i, j := range idx {
			out[i] = col[j]
		}
		t.Columns[name] = out
	}
}

// compareCells orders two resolved cell values. map[EdgeCell]graph.Value
// cells reduce to their smallest entry's value first (sorted by value,
// Null sorting as the numeric zero value), per the spec's edge-cell
// ordering rule; anything else that cannot be compared sorts as equal.
func compareCells(a, b any) int {
	av, aok := reduceForOrder(a)
	bv, bok := reduceForOrder(b)
	if !aok || !bok {
		return 0
	}
	if av.IsNull() && bv.IsNull() {
		return 0
	}
	if av.IsNull() {
		av = graph.Int(0)
	}
	if bv.IsNull() {
		bv = graph.Int(0)
	}
	if ord, ok := graph.Compare(av, bv); ok {
		return ord
	}
	if graph.Equal(av, bv) {
		return 0
	}
	return 0
}

func reduceForOrder(c any) (graph.Value, bool) {
	switch t := c.(type) {
	case graph.Value:
		return t, true
	case map[EdgeCell]graph.Value:
		var cells []EdgeCell
		for k := range t {
			cells = append(cells, k)
		}
		sort.Slice(cells, func(i, j int) bool {
			vi, vj := t[cells[i]], t[cells[j]]
			if vi.IsNull() {
				vi = graph.Int(0)
			}
			if vj.IsNull() {
				vj = graph.Int(0)
			}
			ord, ok := graph.Compare(vi, vj)
			return ok && ord < 0
		})
		if len(cells) == 0 {
			return graph.Null(), true
		}
		return t[cells[0]], true
	default:
		return graph.Null(), false
	}
}

// Distinct drops every row whose hash of the given columns duplicates an
// earlier row's, preserving first occurrence. Hashing only the returned
// columns (never hidden grouping/order-only columns) makes this idempotent:
// re-running Distinct on an already-deduplicated table changes nothing.
func Distinct(t *Table, keys []string) {
	seen := map[uint64]struct{}{}
	var keep []int
	for i := 0; i < t.Len; i++ {
		parts := make([]any, len(keys))
		for j, k := range keys {
			if col, ok := t.Columns[k]; ok {
				parts[j] = fmt.Sprintf("%v", col[i])
			}
		}
		h, err := hashstructure.Hash(parts, hashstructure.FormatV2, nil)
		if err != nil {
			keep = append(keep, i)
			continue
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		keep = append(keep, i)
	}
	permute(t, keep)
	t.Len = len(keep)
}

// SkipLimit truncates every column to the [skip, skip+limit) window. A nil
// skip is 0; a nil limit means unbounded.
func SkipLimit(t *Table, skip, limit *int64) {
	from := 0
	if skip != nil && *skip > 0 {
		from = int(*skip)
	}
	if from > t.Len {
		from = t.Len
	}
	to := t.Len
	if limit != nil {
		want := from + int(*limit)
		if want < to {
			to = want
		}
	}
	if from == 0 && to == t.Len {
		return
	}
	idx := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		idx = append(idx, i)
	}
	permute(t, idx)
	t.Len = len(idx)
}

// Project drops every column not named in keep, preserving keep's order.
func Project(t *Table, keep []string) {
	newColumns := make(map[string][]any, len(keep))
	for _, k := range keep {
		if col, ok := t.Columns[k]; ok {
			newColumns[k] = col
		}
	}
	t.Order = append([]string(nil), keep...)
	t.Columns = newColumns
}

// edgeCellKey renders an EdgeCell as a single JSON object key, since JSON
// has no tuple-keyed map shape: "<key>" when the edge carries no label, or
// "<key>:<label>" for one of several coexisting parallel labels.
func edgeCellKey(c EdgeCell) string {
	if c.Label == "" {
		return fmt.Sprintf("%d", c.Key)
	}
	return fmt.Sprintf("%d:%s", c.Key, c.Label)
}

// ToNative renders one resolved cell value (as produced by Columns/
// resolveEdgeVar) into a plain JSON-marshalable Go value: graph.Value
// collapses to its native form, graph.Attrs and the EdgeCell-keyed maps
// become string-keyed maps, and a bare multi-hop edge path becomes a slice
// of such values, recursively.
func ToNative(cell any) any {
	switch t := cell.(type) {
	case graph.Value:
		return t.Native()
	case graph.Attrs:
		out := make(map[string]any, len(t))
		for k, v := range t {
			out[k] = v.Native()
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = ToNative(e)
		}
		return out
	case map[EdgeCell]graph.Value:
		out := make(map[string]any, len(t))
		for k, v := range t {
			out[edgeCellKey(k)] = v.Native()
		}
		return out
	case map[EdgeCell]graph.Attrs:
		out := make(map[string]any, len(t))
		for k, attrs := range t {
			inner := make(map[string]any, len(attrs))
			for ak, av := range attrs {
				inner[ak] = av.Native()
			}
			out[edgeCellKey(k)] = inner
		}
		return out
	default:
		return t
	}
}

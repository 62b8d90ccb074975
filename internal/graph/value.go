package graph

import (
	"fmt"
	"sort"

	"github.com/spf13/cast"
)

// ValueKind tags the variant held by a Value. Attribute storage uses a
// tagged union (rather than bare `any`) so predicate evaluation and
// indexing can dispatch on kind without runtime type assertions scattered
// across the engine.
type ValueKind int

const (
	NullVal ValueKind = iota
	IntVal
	FloatVal
	StringVal
	BoolVal
	LabelSetVal
	ListVal
)

// Value is a single attribute value: a node/edge property, a `labels` set,
// or a heterogeneous list (used for the RHS of an IN predicate and for
// list-typed return columns).
type Value struct {
	Kind   ValueKind
	I      int64
	F      float64
	S      string
	B      bool
	Labels map[string]struct{}
	List   []Value
}

func Null() Value           { return Value{Kind: NullVal} }
func Int(i int64) Value     { return Value{Kind: IntVal, I: i} }
func Float(f float64) Value { return Value{Kind: FloatVal, F: f} }
func String(s string) Value { return Value{Kind: StringVal, S: s} }
func Bool(b bool) Value     { return Value{Kind: BoolVal, B: b} }
func List(vs ...Value) Value {
	return Value{Kind: ListVal, List: vs}
}

func LabelSet(labels ...string) Value {
	m := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		m[l] = struct{}{}
	}
	return Value{Kind: LabelSetVal, Labels: m}
}

func (v Value) IsNull() bool { return v.Kind == NullVal }

// Native renders the value as a plain Go value suitable for JSON encoding
// or for feeding to spf13/cast during comparisons.
func (v Value) Native() any {
	switch v.Kind {
	case NullVal:
		return nil
	case IntVal:
		return v.I
	case FloatVal:
		return v.F
	case StringVal:
		return v.S
	case BoolVal:
		return v.B
	case LabelSetVal:
		out := make([]string, 0, len(v.Labels))
		for l := range v.Labels {
			out = append(out, l)
		}
		sort.Strings(out)
		return out
	case ListVal:
		out := make([]any, len(v.List))
		for i, e := range v.List {
			out[i] = e.Native()
		}
		return out
	default:
		return nil
	}
}

func (v Value) String() string {
	return fmt.Sprintf("%v", v.Native())
}

// Equal implements equality used by `=`/`==`, `<>`/`!=` and IS.
func Equal(a, b Value) bool {
	if a.Kind == NullVal || b.Kind == NullVal {
		return a.Kind == NullVal && b.Kind == NullVal
	}
	switch a.Kind {
	case IntVal, FloatVal:
		if b.Kind != IntVal && b.Kind != FloatVal {
			return false
		}
		af, aerr := cast.ToFloat64E(a.Native())
		bf, berr := cast.ToFloat64E(b.Native())
		return aerr == nil && berr == nil && af == bf
	case StringVal:
		return b.Kind == StringVal && a.S == b.S
	case BoolVal:
		return b.Kind == BoolVal && a.B == b.B
	case LabelSetVal:
		if b.Kind != LabelSetVal || len(a.Labels) != len(b.Labels) {
			return false
		}
		for l := range a.Labels {
			if _, ok := b.Labels[l]; !ok {
				return false
			}
		}
		return true
	case ListVal:
		if b.Kind != ListVal || len(a.List) != len(b.List) {
			return false
		}
		for i := range a.List {
			if !Equal(a.List[i], b.List[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Compare returns (-1, 0, 1, true) for orderable pairs, or (0, false) when
// the two values cannot be ordered against each other. WHERE evaluation
// and ORDER BY both treat "not orderable" as "comparison is false" /
// "sorts as equal", per the open-ended-attribute-matching design note.
func Compare(a, b Value) (int, bool) {
	if a.IsNull() || b.IsNull() {
		return 0, false
	}
	switch a.Kind {
	case IntVal, FloatVal:
		if b.Kind != IntVal && b.Kind != FloatVal {
			return 0, false
		}
		af, aerr := cast.ToFloat64E(a.Native())
		bf, berr := cast.ToFloat64E(b.Native())
		if aerr != nil || berr != nil {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	case StringVal:
		if b.Kind != StringVal {
			return 0, false
		}
		switch {
		case a.S < b.S:
			return -1, true
		case a.S > b.S:
			return 1, true
		default:
			return 0, true
		}
	case BoolVal:
		if b.Kind != BoolVal {
			return 0, false
		}
		switch {
		case a.B == b.B:
			return 0, true
		case !a.B && b.B:
			return -1, true
		default:
			return 1, true
		}
	default:
		return 0, false
	}
}

// Contains reports whether needle appears in haystack (for IN predicates).
func Contains(haystack Value, needle Value) bool {
	if haystack.Kind != ListVal {
		return false
	}
	for _, e := range haystack.List {
		if Equal(e, needle) {
			return true
		}
	}
	return false
}

// FromNative converts a plain Go value (as produced by a parsed literal or
// loaded from JSON) into a tagged Value.
func FromNative(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case int:
		return Int(int64(t))
	case int64:
		return Int(t)
	case float64:
		return Float(t)
	case []string:
		return LabelSet(t...)
	case []any:
		out := make([]Value, len(t))
		for i, e := range t {
			out[i] = FromNative(e)
		}
		return List(out...)
	default:
		s, err := cast.ToStringE(v)
		if err != nil {
			return Null()
		}
		return String(s)
	}
}

package hop

import "fmt"

// RuntimeError reports an internal invariant broken by the expander. It
// must never occur for well-formed, validated motifs; internal/engine
// re-exports this type as engine.RuntimeError so callers never need to
// import internal/hop directly for error handling.
type RuntimeError struct {
	Kind    string
	Message string
}

func (e RuntimeError) Error() string {
	return fmt.Sprintf("runtime error (%v): %v", e.Kind, e.Message)
}

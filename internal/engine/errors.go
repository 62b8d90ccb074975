package engine

import (
	"fmt"

	"github.com/ritamzico/cyql/internal/hop"
)

// RuntimeError re-exports hop.RuntimeError: an internal invariant broken
// by the hop expander, which should never occur for a motif that already
// passed validation. Callers never need to import internal/hop directly
// to recognise it.
type RuntimeError = hop.RuntimeError

// UnsupportedFeatureError reports a syntactically valid query the engine
// cannot run against the given host graph or configuration — e.g. a
// RETURN of an edge variable against a HostGraph implementation that
// cannot expose per-parallel-edge attributes.
type UnsupportedFeatureError struct {
	Kind    string
	Message string
}

func (e UnsupportedFeatureError) Error() string {
	return fmt.Sprintf("unsupported feature (%v): %v", e.Kind, e.Message)
}

package motif

import "fmt"

// ValidationError reports a semantic violation caught while building or
// cross-checking the motif: a bad hop range, a bidirectional edge carrying
// a hop range, a duplicate bound-edge name, or an unknown variable
// reference.
type ValidationError struct {
	Kind    string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error (%v): %v", e.Kind, e.Message)
}

func badHopRange(min, max int) error {
	return ValidationError{
		Kind:    "InvalidHopRange",
		Message: fmt.Sprintf("hop range [%d,%d] invalid: require min>=0, max>=max(min,1), max<=100", min, max),
	}
}

func bidirectionalWithHop(name string) error {
	return ValidationError{
		Kind:    "BidirectionalHopRange",
		Message: fmt.Sprintf("edge %q is bidirectional and cannot carry a hop range", name),
	}
}

func duplicateEdgeName(name string) error {
	return ValidationError{
		Kind:    "DuplicateEdgeName",
		Message: fmt.Sprintf("edge variable %q is bound more than once", name),
	}
}

// UnknownVariable reports a WHERE/RETURN/ORDER BY reference to a variable
// the motif never declared.
func UnknownVariable(name string) error {
	return ValidationError{
		Kind:    "UnknownVariable",
		Message: fmt.Sprintf("variable %q is not bound by any MATCH clause", name),
	}
}

package cypher

import "fmt"

// SyntaxError reports a malformed query. It mirrors the teacher's
// Kind/Message error shape used across the codebase.
type SyntaxError struct {
	Kind    string
	Message string
}

func (e SyntaxError) Error() string {
	return fmt.Sprintf("syntax error (%v): %v", e.Kind, e.Message)
}

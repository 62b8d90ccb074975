package cypher

import "fmt"

// Parse compiles a Cypher-subset query string into its clean AST. Any
// malformed input is reported as a SyntaxError; a nil *Query is returned in
// that case.
func Parse(input string) (*Query, error) {
	raw, err := cypherParser.ParseString("", input)
	if err != nil {
		return nil, enrichSyntaxError(input, err)
	}
	q, err := convertQuery(raw)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func enrichSyntaxError(input string, err error) error {
	return SyntaxError{
		Kind:    "InvalidSyntax",
		Message: fmt.Sprintf("%v (query: %q)", err, input),
	}
}

package graph

import "fmt"

type GraphError struct {
	Kind    string
	Message string
}

func (e GraphError) Error() string {
	return fmt.Sprintf("graph error (%v): %v", e.Kind, e.Message)
}

func NodeAlreadyExists(id NodeID) error {
	return GraphError{
		Kind:    "NodeAlreadyExists",
		Message: fmt.Sprintf("node %v already exists", id),
	}
}

func NodeDoesNotExist(id NodeID) error {
	return GraphError{
		Kind:    "NodeDoesNotExist",
		Message: fmt.Sprintf("node %v does not exist", id),
	}
}

func EdgeAlreadyExists(from, to NodeID, key EdgeKey) error {
	return GraphError{
		Kind:    "EdgeAlreadyExists",
		Message: fmt.Sprintf("edge %v->%v (key %d) already exists", from, to, key),
	}
}

func EdgeDoesNotExist(from, to NodeID) error {
	return GraphError{
		Kind:    "EdgeDoesNotExist",
		Message: fmt.Sprintf("edge from %v to %v does not exist", from, to),
	}
}

func MultiEdgeNotAllowed(from, to NodeID) error {
	return GraphError{
		Kind:    "MultiEdgeNotAllowed",
		Message: fmt.Sprintf("graph is single-edge: edge from %v to %v already exists", from, to),
	}
}

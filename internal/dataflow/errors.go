package dataflow

import "fmt"

// SemanticError signals a graph-construction mistake: an unknown node
// type, a port that does not exist on a node, or a Connect call with
// the ports in the wrong directions (§7).
type SemanticError struct {
	Msg string
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("dataflow: %s", e.Msg)
}

func errUnknownNodeType(name string) error {
	return &SemanticError{Msg: fmt.Sprintf("unknown node type %q", name)}
}

func errNoSuchPort(nodeType, port string) error {
	return &SemanticError{Msg: fmt.Sprintf("node type %q has no port %q", nodeType, port)}
}

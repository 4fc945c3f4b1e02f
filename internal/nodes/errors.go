package nodes

import "fmt"

// SemanticError mirrors dataflow.SemanticError for failures that
// originate inside a node type implementation rather than the
// Manager itself (an attribute a node type requires but was not
// supplied, a malformed attribute value, an unknown subfilter type,
// a port name the node does not have).
type SemanticError struct {
	Msg string
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("nodes: %s", e.Msg)
}

func errWrongNodeValue(typeName string) error {
	return &SemanticError{Msg: fmt.Sprintf("%s: node was not created by its own NodeType", typeName)}
}

func errNoSuchPort(typeName, port string) error {
	return &SemanticError{Msg: fmt.Sprintf("%s: no such port %q", typeName, port)}
}

func errMissingAttr(typeName, attr string) error {
	return &SemanticError{Msg: fmt.Sprintf("%s: missing %q attribute", typeName, attr)}
}

// CanceledError is returned by a Node's Process when it notices its
// Monitor was canceled partway through a scan that would otherwise run
// to completion in one call (§5, §8 Property 7).
type CanceledError struct {
	NodeType string
}

func (e *CanceledError) Error() string {
	return fmt.Sprintf("%s: canceled", e.NodeType)
}

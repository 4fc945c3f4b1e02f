package nodes

import (
	"fmt"

	"github.com/mbyrenh/omnetpp-resultfiles/internal/dataflow"
	"github.com/mbyrenh/omnetpp-resultfiles/internal/model"
)

// Subfilter is one link of a Compound Filter's fixed inner chain: the
// name of a registered node type plus the attribute assignments to
// pass it. An assignment value that equals one of the compound type's
// own attribute names is substituted with that outer attribute's
// value at construction time (§9 "Compound filter attribute
// substitution") — a pure rewrite, no late binding.
type Subfilter struct {
	NodeType        string
	AttrAssignments *model.StringMap
}

// CompoundFilterType defines a node type as a fixed chain of inner
// filter nodes exposing a single in/out port pair, grounded directly
// on CompoundFilterType::create in compoundfilter.cc. Unlike the
// original, subfilters are not editable at runtime: authoring compound
// filters is one of the query/filter surfaces this subsystem treats
// as an external collaborator (§1).
type CompoundFilterType struct {
	name       string
	subfilters []Subfilter
}

// NewCompoundFilterType defines a new compound filter node type and
// registers it under name.
func NewCompoundFilterType(name string, subfilters []Subfilter) *CompoundFilterType {
	t := &CompoundFilterType{name: name, subfilters: subfilters}
	dataflow.Register(t)
	return t
}

func (t *CompoundFilterType) Name() string { return t.name }

func (t *CompoundFilterType) Create(mgr *dataflow.Manager, attrs *model.StringMap) (dataflow.Node, error) {
	node := &CompoundFilter{typeName: t.name}

	if len(t.subfilters) == 0 {
		nopType, ok := dataflow.Lookup("nopnode")
		if !ok {
			return nil, &SemanticError{Msg: "compound filter: nopnode type not registered"}
		}
		sub, err := nopType.Create(mgr, model.NewStringMap())
		if err != nil {
			return nil, err
		}
		mgr.Adopt(sub)
		node.first, node.last = sub, sub
		node.inner = []dataflow.Node{sub}
		return node, nil
	}

	var prev dataflow.Node
	for i, sf := range t.subfilters {
		subType, ok := dataflow.Lookup(sf.NodeType)
		if !ok {
			return nil, &SemanticError{Msg: fmt.Sprintf("%s: unknown subfilter type %q", t.name, sf.NodeType)}
		}

		subAttrs := substituteAttrs(sf.AttrAssignments, attrs)
		subNode, err := subType.Create(mgr, subAttrs)
		if err != nil {
			return nil, err
		}
		mgr.Adopt(subNode)
		node.inner = append(node.inner, subNode)

		if i == 0 {
			node.first = subNode
		}
		if i == len(t.subfilters)-1 {
			node.last = subNode
		}

		if prev != nil {
			if err := connectPorts(prev, subNode); err != nil {
				return nil, err
			}
		}
		prev = subNode
	}

	return node, nil
}

// substituteAttrs rewrites a subfilter's attribute assignments: any
// value that names one of the compound's own attributes is replaced
// by that attribute's value; anything else is passed through literally.
func substituteAttrs(assignments, outer *model.StringMap) *model.StringMap {
	result := model.NewStringMap()
	if assignments == nil {
		return result
	}
	for _, k := range assignments.Keys() {
		v, _ := assignments.Get(k)
		if outerVal, ok := outer.Get(v); ok {
			result.Set(k, outerVal)
		} else {
			result.Set(k, v)
		}
	}
	return result
}

func connectPorts(from, to dataflow.Node) error {
	fromType, ok := dataflow.Lookup(from.Type())
	if !ok {
		return &SemanticError{Msg: fmt.Sprintf("unknown node type %q", from.Type())}
	}
	toType, ok := dataflow.Lookup(to.Type())
	if !ok {
		return &SemanticError{Msg: fmt.Sprintf("unknown node type %q", to.Type())}
	}
	outPort, err := fromType.GetPort(from, "out")
	if err != nil {
		return err
	}
	inPort, err := toType.GetPort(to, "in")
	if err != nil {
		return err
	}
	return dataflow.Connect(outPort, inPort)
}

func (t *CompoundFilterType) GetPort(n dataflow.Node, name string) (*dataflow.Port, error) {
	cf, ok := n.(*CompoundFilter)
	if !ok {
		return nil, errWrongNodeValue(t.name)
	}
	return cf.Port(name)
}

// CompoundFilter is the runtime node created by CompoundFilterType: it
// owns references to its first and last inner node for port
// resolution, but the inner nodes themselves are scheduled directly
// by the Manager (adopted alongside the compound node, mirroring the
// original's mgr->addNode(subnode) for every link of the chain).
type CompoundFilter struct {
	typeName    string
	first, last dataflow.Node
	inner       []dataflow.Node
}

func (c *CompoundFilter) Type() string { return c.typeName }

func (c *CompoundFilter) Port(name string) (*dataflow.Port, error) {
	var sub dataflow.Node
	switch name {
	case "in":
		sub = c.first
	case "out":
		sub = c.last
	default:
		return nil, errNoSuchPort(c.typeName, name)
	}
	subType, ok := dataflow.Lookup(sub.Type())
	if !ok {
		return nil, &SemanticError{Msg: fmt.Sprintf("unknown node type %q", sub.Type())}
	}
	return subType.GetPort(sub, name)
}

func (c *CompoundFilter) CanProduce() bool {
	for _, n := range c.inner {
		if n.CanProduce() {
			return true
		}
	}
	return false
}

func (c *CompoundFilter) IsFinished() bool {
	for _, n := range c.inner {
		if !n.IsFinished() {
			return false
		}
	}
	return true
}

func (c *CompoundFilter) Process() error {
	for _, n := range c.inner {
		if n.CanProduce() {
			if err := n.Process(); err != nil {
				return err
			}
		}
	}
	return nil
}

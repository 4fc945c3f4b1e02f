// Package nodes provides the stock dataflow.NodeType implementations:
// the vector file reader and writer used by the rebuild pipeline
// (§4.5, §4.7), a pass-through node, an in-memory test sink, and the
// compound filter node type.
package nodes

import (
	"github.com/mbyrenh/omnetpp-resultfiles/internal/dataflow"
	"github.com/mbyrenh/omnetpp-resultfiles/internal/model"
)

// nopType registers under one or more names, all constructing the
// same pass-through node; the original registry carries a second
// alias ("identitynode") for the same behaviour, which this preserves.
type nopType struct {
	name string
}

func (t nopType) Name() string { return t.name }

func (t nopType) Create(mgr *dataflow.Manager, attrs *model.StringMap) (dataflow.Node, error) {
	return &Nop{
		typeName: t.name,
		in:       dataflow.NewPort("in", dataflow.In),
		out:      dataflow.NewPort("out", dataflow.Out),
	}, nil
}

func (t nopType) GetPort(n dataflow.Node, name string) (*dataflow.Port, error) {
	nop, ok := n.(*Nop)
	if !ok {
		return nil, errWrongNodeValue(t.name)
	}
	return nop.Port(name)
}

func init() {
	dataflow.Register(nopType{name: "nopnode"})
	dataflow.Register(nopType{name: "identitynode"})
}

// Nop forwards every sample from its "in" port to its "out" port
// unchanged. A Compound Filter with zero subfilters uses one of these
// so it remains a legal, connectable graph (§4.5).
type Nop struct {
	typeName string
	in       *dataflow.Port
	out      *dataflow.Port
	finished bool
}

func (n *Nop) Type() string { return n.typeName }

func (n *Nop) Port(name string) (*dataflow.Port, error) {
	switch name {
	case "in":
		return n.in, nil
	case "out":
		return n.out, nil
	default:
		return nil, errNoSuchPort(n.typeName, name)
	}
}

func (n *Nop) CanProduce() bool {
	return n.in.HasData() || (n.in.Eof() && !n.finished)
}

func (n *Nop) IsFinished() bool { return n.finished }

func (n *Nop) Process() error {
	for n.in.HasData() {
		s, _ := n.in.Pop()
		n.out.Push(s)
	}
	if n.in.Eof() {
		n.out.Close()
		n.finished = true
	}
	return nil
}

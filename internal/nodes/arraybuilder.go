package nodes

import (
	"github.com/mbyrenh/omnetpp-resultfiles/internal/dataflow"
	"github.com/mbyrenh/omnetpp-resultfiles/internal/model"
)

// arrayBuilderType registers the in-memory sink node used by tests to
// assert on the sample stream a node or filter chain produces,
// standing in for the original's ArrayBuilderNode test fixture.
type arrayBuilderType struct{}

func (arrayBuilderType) Name() string { return "arraybuilder" }

func (arrayBuilderType) Create(mgr *dataflow.Manager, attrs *model.StringMap) (dataflow.Node, error) {
	return &ArrayBuilder{in: dataflow.NewPort("in", dataflow.In)}, nil
}

func (arrayBuilderType) GetPort(n dataflow.Node, name string) (*dataflow.Port, error) {
	ab, ok := n.(*ArrayBuilder)
	if !ok {
		return nil, errWrongNodeValue("arraybuilder")
	}
	return ab.Port(name)
}

func init() {
	dataflow.Register(arrayBuilderType{})
}

// ArrayBuilder accumulates every sample it receives, in arrival order.
type ArrayBuilder struct {
	in       *dataflow.Port
	samples  []dataflow.Sample
	finished bool
}

func (b *ArrayBuilder) Type() string { return "arraybuilder" }

func (b *ArrayBuilder) Port(name string) (*dataflow.Port, error) {
	if name != "in" {
		return nil, errNoSuchPort("arraybuilder", name)
	}
	return b.in, nil
}

// Samples returns the samples collected so far, in arrival order.
func (b *ArrayBuilder) Samples() []dataflow.Sample { return b.samples }

func (b *ArrayBuilder) CanProduce() bool {
	return b.in.HasData() || (b.in.Eof() && !b.finished)
}

func (b *ArrayBuilder) IsFinished() bool { return b.finished }

func (b *ArrayBuilder) Process() error {
	for b.in.HasData() {
		s, _ := b.in.Pop()
		b.samples = append(b.samples, s)
	}
	if b.in.Eof() {
		b.finished = true
	}
	return nil
}

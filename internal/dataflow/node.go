package dataflow

import (
	"github.com/mbyrenh/omnetpp-resultfiles/internal/model"
	"github.com/mbyrenh/omnetpp-resultfiles/internal/progress"
)

// Node is one stage of a dataflow graph. Process performs one bounded
// unit of work: consume what is currently available on its input
// ports and push whatever that yields to its output ports. The
// Manager calls Process repeatedly only while CanProduce reports
// true, so a Node must not block waiting for more input than is
// already queued.
type Node interface {
	Type() string
	Port(name string) (*Port, error)
	CanProduce() bool
	IsFinished() bool
	Process() error
}

// NodeType is a named factory for Nodes, registered once at init time
// and looked up thereafter by the graph builder (§4.5, §5 "Shared
// resources"). GetPort is split out from Node.Port so that compound
// node types (§4.5's compound filter) can expose ports belonging to
// an inner node without the outer Node itself holding them.
type NodeType interface {
	Name() string
	Create(mgr *Manager, attrs *model.StringMap) (Node, error)
	GetPort(n Node, name string) (*Port, error)
}

// MonitorAware is implemented by Nodes whose Process does enough work
// in one call (a whole file scan, say) that it must poll the
// Monitor itself rather than rely on the Manager's once-per-pass check
// (§5 "nodes yield cooperatively between samples or blocks"). The
// Manager calls SetMonitor on every such Node once, before the first
// scheduling pass.
type MonitorAware interface {
	SetMonitor(mon progress.Monitor)
}

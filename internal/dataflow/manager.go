package dataflow

import (
	"fmt"

	"github.com/mbyrenh/omnetpp-resultfiles/internal/model"
	"github.com/mbyrenh/omnetpp-resultfiles/internal/progress"
)

// Manager owns a graph's Nodes and runs the single-threaded
// cooperative scheduling loop described in §5: on every pass it
// offers every unfinished Node a chance to Process if CanProduce
// reports true, and stops once every Node reports IsFinished or the
// supplied Monitor is canceled.
type Manager struct {
	nodes []Node
}

// NewManager returns an empty graph manager.
func NewManager() *Manager {
	return &Manager{}
}

// CreateNode instantiates and registers a Node of the named type,
// looked up in the global registry (§4.5).
func (m *Manager) CreateNode(typeName string, attrs *model.StringMap) (Node, error) {
	nt, ok := Lookup(typeName)
	if !ok {
		return nil, errUnknownNodeType(typeName)
	}
	n, err := nt.Create(m, attrs)
	if err != nil {
		return nil, err
	}
	m.nodes = append(m.nodes, n)
	return n, nil
}

// Adopt registers a Node that a compound NodeType's Create constructed
// internally (an inner subfilter node, say) so the scheduler runs it
// too, without it being the value returned to the original caller.
func (m *Manager) Adopt(n Node) {
	m.nodes = append(m.nodes, n)
}

// Port resolves a named port on n via its registered NodeType,
// supporting node types (such as the compound filter) whose ports
// belong to an inner node.
func (m *Manager) Port(n Node, name string) (*Port, error) {
	nt, ok := Lookup(n.Type())
	if !ok {
		return nil, errUnknownNodeType(n.Type())
	}
	p, err := nt.GetPort(n, name)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errNoSuchPort(n.Type(), name)
	}
	return p, nil
}

// Connect wires outNode's named output port to inNode's named input
// port.
func (m *Manager) Connect(outNode Node, outPort string, inNode Node, inPort string) error {
	op, err := m.Port(outNode, outPort)
	if err != nil {
		return err
	}
	ip, err := m.Port(inNode, inPort)
	if err != nil {
		return err
	}
	return Connect(op, ip)
}

// stallError is raised when a full scheduling pass makes no progress
// while Nodes remain unfinished, which only happens if the graph was
// built with a cycle or a dangling required input.
type stallError struct{}

func (stallError) Error() string { return "dataflow: graph execution stalled with no runnable node" }

// Execute runs the scheduling loop to completion. It returns nil once
// every Node reports IsFinished, or once mon is canceled.
func (m *Manager) Execute(mon progress.Monitor) error {
	if mon == nil {
		mon = progress.Noop{}
	}
	mon.BeginTask("Executing dataflow graph", len(m.nodes))

	for _, n := range m.nodes {
		if aware, ok := n.(MonitorAware); ok {
			aware.SetMonitor(mon)
		}
	}

	for {
		if mon.IsCanceled() {
			mon.Done()
			return nil
		}

		allFinished := true
		progressed := false
		finishedThisPass := 0

		for _, n := range m.nodes {
			if n.IsFinished() {
				finishedThisPass++
				continue
			}
			allFinished = false
			if n.CanProduce() {
				if err := n.Process(); err != nil {
					mon.Done()
					return fmt.Errorf("dataflow: node %s: %w", n.Type(), err)
				}
				progressed = true
			}
		}

		mon.Worked(finishedThisPass)

		if allFinished {
			mon.Done()
			return nil
		}
		if !progressed {
			mon.Done()
			return stallError{}
		}
	}
}

// Package dataflow implements the small pull/push node graph used by
// the rebuild pipeline (§4.5): typed Nodes connected by named Ports,
// each carrying a stream of (time, value, event) Samples, scheduled
// by a single-threaded cooperative Manager.
package dataflow

import "github.com/mbyrenh/omnetpp-resultfiles/internal/model"

// Sample is one (time, value[, event]) tuple flowing between two
// connected ports.
type Sample struct {
	Time     model.SimTime
	Value    float64
	Event    int64
	HasEvent bool
}

// Package progress defines the progress-monitor collaborator
// interface consumed by the indexer and the dataflow runtime (§6),
// plus a couple of trivial implementations.
package progress

// Monitor is the injected progress-reporting collaborator. Indexing
// allocates 100 work units to reading and 10 to writing (§6);
// rebuilding allocates its units across the dataflow graph's
// execution.
type Monitor interface {
	BeginTask(name string, totalWork int)
	Worked(delta int)
	IsCanceled() bool
	Done()
}

// Noop is a Monitor that does nothing and never cancels. It is the
// default when a caller has no progress collaborator to inject.
type Noop struct{}

func (Noop) BeginTask(string, int) {}
func (Noop) Worked(int)            {}
func (Noop) IsCanceled() bool      { return false }
func (Noop) Done()                 {}

// Canceler is a Monitor that can be told to cancel from outside
// (e.g. by a test, or by a caller reacting to a user request), on top
// of otherwise doing nothing.
type Canceler struct {
	Noop
	canceled bool
}

// Cancel marks the monitor as canceled; subsequent IsCanceled calls
// return true.
func (c *Canceler) Cancel() { c.canceled = true }

func (c *Canceler) IsCanceled() bool { return c.canceled }

// Ticking reports BeginTask/Worked/Done calls to a callback, the way
// the teacher's Indexer.printStatus reports scanner progress — except
// invoked synchronously from the caller's own progress calls rather
// than from a background ticker goroutine, since indexing and
// rebuilding are single-threaded cooperative operations (§5).
type Ticking struct {
	OnUpdate func(taskName string, worked, total int)

	name  string
	total int
	done  int
}

func (t *Ticking) BeginTask(name string, totalWork int) {
	t.name = name
	t.total = totalWork
	t.done = 0
	if t.OnUpdate != nil {
		t.OnUpdate(t.name, t.done, t.total)
	}
}

func (t *Ticking) Worked(delta int) {
	t.done += delta
	if t.OnUpdate != nil {
		t.OnUpdate(t.name, t.done, t.total)
	}
}

func (t *Ticking) IsCanceled() bool { return false }

func (t *Ticking) Done() {
	if t.OnUpdate != nil {
		t.OnUpdate(t.name, t.total, t.total)
	}
}

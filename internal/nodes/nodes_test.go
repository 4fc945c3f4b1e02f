package nodes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mbyrenh/omnetpp-resultfiles/internal/dataflow"
	"github.com/mbyrenh/omnetpp-resultfiles/internal/indexer"
	"github.com/mbyrenh/omnetpp-resultfiles/internal/model"
	"github.com/mbyrenh/omnetpp-resultfiles/internal/progress"
)

func writeVectorFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.vec")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestNopForwardsSamples(t *testing.T) {
	mgr := dataflow.NewManager()
	n, err := mgr.CreateNode("nopnode", model.NewStringMap())
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	nop := n.(*Nop)

	src := newFakeSource([]dataflow.Sample{{Value: 1}, {Value: 2}})
	mgr.Adopt(src)
	if err := dataflow.Connect(src.out, nop.in); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	abNode, err := mgr.CreateNode("arraybuilder", model.NewStringMap())
	if err != nil {
		t.Fatalf("CreateNode(arraybuilder): %v", err)
	}
	ab := abNode.(*ArrayBuilder)
	if err := dataflow.Connect(nop.out, ab.in); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if err := mgr.Execute(nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	got := ab.Samples()
	if len(got) != 2 || got[0].Value != 1 || got[1].Value != 2 {
		t.Errorf("ArrayBuilder.Samples() = %v, want [1 2]", got)
	}
}

// identitynode must behave exactly like nopnode (§4.5's supplemented
// alias registration).
func TestIdentityNodeAliasesNop(t *testing.T) {
	nt, ok := dataflow.Lookup("identitynode")
	if !ok {
		t.Fatal("identitynode should be registered")
	}
	mgr := dataflow.NewManager()
	n, err := nt.Create(mgr, model.NewStringMap())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if n.Type() != "identitynode" {
		t.Errorf("Type() = %q, want identitynode", n.Type())
	}
}

func TestCompoundFilterWithZeroSubfiltersIsLegal(t *testing.T) {
	ct := NewCompoundFilterType("passthrough", nil)
	mgr := dataflow.NewManager()
	node, err := mgr.CreateNode("passthrough", model.NewStringMap())
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}

	inPort, err := ct.GetPort(node, "in")
	if err != nil {
		t.Fatalf("GetPort(in): %v", err)
	}
	outPort, err := ct.GetPort(node, "out")
	if err != nil {
		t.Fatalf("GetPort(out): %v", err)
	}

	src := newFakeSource([]dataflow.Sample{{Value: 42}})
	mgr.Adopt(src)
	if err := dataflow.Connect(src.out, inPort); err != nil {
		t.Fatalf("Connect in: %v", err)
	}
	abNode, _ := mgr.CreateNode("arraybuilder", model.NewStringMap())
	ab := abNode.(*ArrayBuilder)
	if err := dataflow.Connect(outPort, ab.in); err != nil {
		t.Fatalf("Connect out: %v", err)
	}

	if err := mgr.Execute(nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(ab.Samples()) != 1 || ab.Samples()[0].Value != 42 {
		t.Errorf("Samples() = %v, want [42]", ab.Samples())
	}
}

func TestCompoundFilterChainsInnerNodes(t *testing.T) {
	sub := Subfilter{NodeType: "nopnode", AttrAssignments: model.NewStringMap()}
	NewCompoundFilterType("double-nop", []Subfilter{sub, sub})

	mgr := dataflow.NewManager()
	node, err := mgr.CreateNode("double-nop", model.NewStringMap())
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	cf := node.(*CompoundFilter)
	if len(cf.inner) != 2 {
		t.Fatalf("len(inner) = %d, want 2", len(cf.inner))
	}

	inPort, err := cf.Port("in")
	if err != nil {
		t.Fatalf("Port(in): %v", err)
	}
	outPort, err := cf.Port("out")
	if err != nil {
		t.Fatalf("Port(out): %v", err)
	}

	src := newFakeSource([]dataflow.Sample{{Value: 7}})
	mgr.Adopt(src)
	dataflow.Connect(src.out, inPort)
	abNode, _ := mgr.CreateNode("arraybuilder", model.NewStringMap())
	ab := abNode.(*ArrayBuilder)
	dataflow.Connect(outPort, ab.in)

	if err := mgr.Execute(nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(ab.Samples()) != 1 || ab.Samples()[0].Value != 7 {
		t.Errorf("Samples() = %v, want [7]", ab.Samples())
	}
}

func TestReaderScansWholeFileWithoutIndex(t *testing.T) {
	path := writeVectorFile(t, "run run-0\nvector 3 mod sig TV\n3 0.0 1.0\n3 1.0 2.0\n")

	mgr := dataflow.NewManager()
	attrs := model.NewStringMap()
	attrs.Set("path", path)
	readerNode, err := mgr.CreateNode("vectorfilereader", attrs)
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	reader := readerNode.(*Reader)

	outPort, err := reader.Port("3")
	if err != nil {
		t.Fatalf("Port(3): %v", err)
	}
	abNode, _ := mgr.CreateNode("arraybuilder", model.NewStringMap())
	ab := abNode.(*ArrayBuilder)
	dataflow.Connect(outPort, ab.in)

	if err := mgr.Execute(nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(ab.Samples()) != 2 {
		t.Fatalf("len(Samples()) = %d, want 2", len(ab.Samples()))
	}
	if ab.Samples()[0].Value != 1.0 || ab.Samples()[1].Value != 2.0 {
		t.Errorf("Samples() = %v, want [1 2]", ab.Samples())
	}
}

func TestReaderScansViaIndexBlockRanges(t *testing.T) {
	path := writeVectorFile(t, "run run-0\nvector 3 mod sig TV\n3 0.0 1.0\n3 1.0 2.0\n3 2.0 3.0\n")
	idx, err := indexer.Index(path, nil)
	if err != nil {
		t.Fatalf("indexer.Index: %v", err)
	}

	reader := NewReader(path, idx)
	outPort, err := reader.Port("3")
	if err != nil {
		t.Fatalf("Port(3): %v", err)
	}

	mgr := dataflow.NewManager()
	mgr.Adopt(reader)
	abNode, _ := mgr.CreateNode("arraybuilder", model.NewStringMap())
	ab := abNode.(*ArrayBuilder)
	dataflow.Connect(outPort, ab.in)

	if err := mgr.Execute(nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(ab.Samples()) != 3 {
		t.Fatalf("len(Samples()) = %d, want 3", len(ab.Samples()))
	}
	if ab.Samples()[2].Value != 3.0 {
		t.Errorf("Samples()[2].Value = %v, want 3", ab.Samples()[2].Value)
	}
}

// TestReaderStopsEarlyWhenCanceled pins the cooperative-cancellation
// contract (§5, §8 Property 7): a Reader whose Monitor is already
// canceled must bail out of its scan immediately with a distinct
// error rather than running to completion.
func TestReaderStopsEarlyWhenCanceled(t *testing.T) {
	path := writeVectorFile(t, "run run-0\nvector 3 mod sig TV\n3 0.0 1.0\n3 1.0 2.0\n3 2.0 3.0\n")
	idx, err := indexer.Index(path, nil)
	if err != nil {
		t.Fatalf("indexer.Index: %v", err)
	}

	reader := NewReader(path, idx)
	if _, err := reader.Port("3"); err != nil {
		t.Fatalf("Port(3): %v", err)
	}

	mon := &progress.Canceler{}
	mon.Cancel()
	reader.SetMonitor(mon)

	err = reader.Process()
	if _, ok := err.(*CanceledError); !ok {
		t.Fatalf("err = %T (%v), want *CanceledError", err, err)
	}
	if !reader.IsFinished() {
		t.Errorf("reader should still report finished so the Manager does not retry it")
	}
}

func TestWriterPartitionsIntoBlocksAtBlockSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.vec")
	attrs := model.NewStringMap()
	attrs.Set("path", path)
	attrs.Set("blocksize", "10")

	mgr := dataflow.NewManager()
	n, err := mgr.CreateNode("indexedvectorfilewriter", attrs)
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	w := n.(*Writer)

	port, err := w.AddVector(1, "mod", "sig", "V")
	if err != nil {
		t.Fatalf("AddVector: %v", err)
	}
	for i := 0; i < 5; i++ {
		port.Push(dataflow.Sample{Value: float64(i)})
	}
	port.Close()

	if err := mgr.Execute(nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !w.IsFinished() {
		t.Fatal("writer should be finished")
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	w.File().Close()

	idx, err := w.Index()
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	v := idx.VectorByID(1)
	if v == nil {
		t.Fatal("expected vector 1 in written index")
	}
	if len(v.Blocks) < 2 {
		t.Errorf("expected writing 5 short lines past a blocksize of 10 to produce more than one block, got %d", len(v.Blocks))
	}
	total := int64(0)
	for _, b := range v.Blocks {
		total += b.Count
	}
	if total != 5 {
		t.Errorf("total sample count across blocks = %d, want 5", total)
	}

	reindexed, err := indexer.Index(path, nil)
	if err != nil {
		t.Fatalf("re-indexing written file: %v", err)
	}
	rv := reindexed.VectorByID(1)
	if rv == nil || len(rv.Blocks) == 0 {
		t.Fatalf("re-indexed file has no vector 1 blocks: %+v", reindexed)
	}
}

// fakeSource is the same minimal test double as dataflow_test.go's,
// duplicated locally since internal test helpers are not exported
// across packages.
type fakeSource struct {
	out     *dataflow.Port
	samples []dataflow.Sample
	done    bool
}

func newFakeSource(samples []dataflow.Sample) *fakeSource {
	return &fakeSource{out: dataflow.NewPort("out", dataflow.Out), samples: samples}
}

func (s *fakeSource) Type() string { return "fakesource" }
func (s *fakeSource) Port(name string) (*dataflow.Port, error) {
	if name != "out" {
		return nil, &SemanticError{Msg: "no such port"}
	}
	return s.out, nil
}
func (s *fakeSource) CanProduce() bool { return !s.done }
func (s *fakeSource) IsFinished() bool { return s.done }
func (s *fakeSource) Process() error {
	for _, smp := range s.samples {
		s.out.Push(smp)
	}
	s.out.Close()
	s.done = true
	return nil
}

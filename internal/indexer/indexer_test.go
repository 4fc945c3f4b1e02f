package indexer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mbyrenh/omnetpp-resultfiles/internal/model"
	"github.com/mbyrenh/omnetpp-resultfiles/internal/progress"
)

// cancelAfterNLines reports canceled starting with the (n+1)th call to
// IsCanceled, and counts Done calls so tests can pin Property 7's
// "exactly one done() call" guarantee.
type cancelAfterNLines struct {
	progress.Noop
	n         int
	calls     int
	doneCalls int
}

func (c *cancelAfterNLines) IsCanceled() bool {
	c.calls++
	return c.calls > c.n
}

func (c *cancelAfterNLines) Done() { c.doneCalls++ }

func writeTempVectorFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "run.vec")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

// TestScenarioS1BasicBlock covers §8 scenario S1.
func TestScenarioS1BasicBlock(t *testing.T) {
	path := writeTempVectorFile(t, "version 2\nrun run-0\nvector 3 mod sig TV\n3 0.0 1.0\n3 1.0 2.0\n3 2.0 4.0\n")

	idx, err := Index(path, nil)
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if len(idx.Vectors) != 1 {
		t.Fatalf("len(Vectors) = %d, want 1", len(idx.Vectors))
	}
	v := idx.Vectors[0]
	if v.VectorID != 3 {
		t.Errorf("VectorID = %d, want 3", v.VectorID)
	}
	if len(v.Blocks) != 1 {
		t.Fatalf("len(Blocks) = %d, want 1", len(v.Blocks))
	}
	b := v.Blocks[0]
	if b.Count != 3 {
		t.Errorf("Count = %d, want 3", b.Count)
	}
	if b.Min != 1 || b.Max != 4 || b.Sum != 7 || b.SumSqr != 21 {
		t.Errorf("aggregates = min=%v max=%v sum=%v sumSqr=%v, want 1/4/7/21", b.Min, b.Max, b.Sum, b.SumSqr)
	}
	wantFirst, _ := model.ParseSimTime("0.0")
	wantLast, _ := model.ParseSimTime("2.0")
	if b.FirstTime.Compare(wantFirst) != 0 {
		t.Errorf("FirstTime = %v, want 0.0", b.FirstTime)
	}
	if b.LastTime.Compare(wantLast) != 0 {
		t.Errorf("LastTime = %v, want 2.0", b.LastTime)
	}
}

// TestScenarioS2InterleavedVectors covers §8 scenario S2.
func TestScenarioS2InterleavedVectors(t *testing.T) {
	contents := "version 2\n" +
		"run run-0\n" +
		"vector 3 mod sig TV\n" +
		"3 0.0 1.0\n" +
		"vector 4 m2 s2 TV\n" +
		"3 1.0 2.0\n" +
		"4 0.5 10.0\n" +
		"3 2.0 4.0\n"
	path := writeTempVectorFile(t, contents)

	idx, err := Index(path, nil)
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if len(idx.Vectors) != 2 {
		t.Fatalf("len(Vectors) = %d, want 2", len(idx.Vectors))
	}
	v3 := idx.VectorByID(3)
	v4 := idx.VectorByID(4)
	if v3 == nil || v4 == nil {
		t.Fatalf("expected vectors 3 and 4 to be declared")
	}
	if len(v3.Blocks) != 2 {
		t.Fatalf("vector 3: len(Blocks) = %d, want 2", len(v3.Blocks))
	}
	if v3.Blocks[0].Count != 2 {
		t.Errorf("vector 3 block 0 Count = %d, want 2", v3.Blocks[0].Count)
	}
	if v3.Blocks[1].Count != 1 {
		t.Errorf("vector 3 block 1 Count = %d, want 1", v3.Blocks[1].Count)
	}
	if len(v4.Blocks) != 1 || v4.Blocks[0].Count != 1 {
		t.Errorf("vector 4 blocks = %+v, want one block of count 1", v4.Blocks)
	}
}

// TestScenarioS3UnrecognisedLine covers §8 scenario S3.
func TestScenarioS3UnrecognisedLine(t *testing.T) {
	contents := "run run-0\nvector 3 mod sig TV\n3 0.0 1.0\nhello world\n3 1.0 2.0\n"
	path := writeTempVectorFile(t, contents)

	idx, err := Index(path, nil)
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if idx.UnrecognisedLines != 1 {
		t.Errorf("UnrecognisedLines = %d, want 1", idx.UnrecognisedLines)
	}
	v := idx.VectorByID(3)
	if v == nil || len(v.Blocks) != 1 || v.Blocks[0].Count != 2 {
		t.Errorf("expected one block of count 2 despite the unrecognised line, got %+v", v)
	}
}

// TestScenarioS4UnknownColumnChars covers §8 scenario S4 and resolves
// the §9 open question: unknown columns characters are accepted and
// positionally ignored.
func TestScenarioS4UnknownColumnChars(t *testing.T) {
	// columns "TXV": X is outside {T,V,E} and must be skipped
	// positionally without aborting indexing or disturbing the
	// T/V columns around it (§9 open question).
	contents := "run run-0\nvector 3 m s TXV\n3 0.5 ignored 5.0\n"
	path := writeTempVectorFile(t, contents)

	idx, err := Index(path, nil)
	if err != nil {
		t.Fatalf("Index should accept unknown columns characters, got error: %v", err)
	}
	v := idx.VectorByID(3)
	if v == nil || len(v.Blocks) != 1 {
		t.Fatalf("expected one block, got %+v", v)
	}
	b := v.Blocks[0]
	if b.Count != 1 {
		t.Fatalf("Count = %d, want 1", b.Count)
	}
	if b.Min != 5.0 || b.Max != 5.0 {
		t.Errorf("the skipped X column should not disturb the V column, got min=%v max=%v", b.Min, b.Max)
	}
	want, _ := model.ParseSimTime("0.5")
	if b.FirstTime.Compare(want) != 0 {
		t.Errorf("the skipped X column should not disturb the T column, FirstTime = %v, want 0.5", b.FirstTime)
	}
}

// TestScenarioS5UnsupportedVersion covers §8 scenario S5.
func TestScenarioS5UnsupportedVersion(t *testing.T) {
	path := writeTempVectorFile(t, "version 3\n")

	_, err := Index(path, nil)
	if err == nil {
		t.Fatal("expected an error for an unsupported version")
	}
	fe, ok := err.(*FormatError)
	if !ok {
		t.Fatalf("err = %T, want *FormatError", err)
	}
	if fe.Kind != UnsupportedVersion {
		t.Errorf("Kind = %v, want UnsupportedVersion", fe.Kind)
	}

	if _, statErr := os.Stat(path[:len(path)-len(".vec")] + ".vci"); statErr == nil {
		t.Errorf("no sidecar file should have been created")
	}
}

func TestMissingVectorDeclarationFails(t *testing.T) {
	path := writeTempVectorFile(t, "run run-0\n3 0.0 1.0\n")

	_, err := Index(path, nil)
	fe, ok := err.(*FormatError)
	if !ok {
		t.Fatalf("err = %T (%v), want *FormatError", err, err)
	}
	if fe.Kind != MissingVectorDecl {
		t.Errorf("Kind = %v, want MissingVectorDecl", fe.Kind)
	}
}

// TestScenarioCancellationDuringIndex covers §8 Property 7: a cancel
// signalled mid-scan, after at least one vector has already been
// declared and a sample scanned, must surface as a distinct error (not
// a successful, truncated Index) and must not leave a sidecar or any
// leftover temp files behind.
func TestScenarioCancellationDuringIndex(t *testing.T) {
	contents := "run run-0\nvector 3 mod sig TV\n3 0.0 1.0\n3 1.0 2.0\n3 2.0 3.0\n"
	path := writeTempVectorFile(t, contents)
	mon := &cancelAfterNLines{n: 3}

	idx, err := GenerateIndex(path, mon)
	if idx != nil {
		t.Errorf("expected a nil Index on cancellation, got %+v", idx)
	}
	if _, ok := err.(*CanceledError); !ok {
		t.Fatalf("err = %T (%v), want *CanceledError", err, err)
	}
	if mon.doneCalls != 1 {
		t.Errorf("Done() called %d times, want exactly 1", mon.doneCalls)
	}

	sidecar := path[:len(path)-len(".vec")] + ".vci"
	if _, statErr := os.Stat(sidecar); statErr == nil {
		t.Errorf("no sidecar file should exist at the target path after a cancellation")
	}
	matches, _ := filepath.Glob(sidecar + ".temp*")
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestGenerateIndexWritesSidecarAtomically(t *testing.T) {
	path := writeTempVectorFile(t, "run run-0\nvector 3 mod sig TV\n3 0.0 1.0\n3 1.0 2.0\n")

	idx, err := GenerateIndex(path, nil)
	if err != nil {
		t.Fatalf("GenerateIndex: %v", err)
	}
	if len(idx.Vectors) != 1 {
		t.Fatalf("len(Vectors) = %d, want 1", len(idx.Vectors))
	}

	sidecar := path[:len(path)-len(".vec")] + ".vci"
	if _, err := os.Stat(sidecar); err != nil {
		t.Fatalf("expected sidecar at %s: %v", sidecar, err)
	}
	matches, _ := filepath.Glob(sidecar + ".temp*")
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

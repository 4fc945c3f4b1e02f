// Package rebuild implements the Rebuilder (§4.7): it re-indexes a
// vector file, streams its samples through a fresh reader/writer
// dataflow graph, and atomically replaces both the source file and
// its sidecar index with the rewritten, block-aligned output.
package rebuild

import (
	"fmt"
	"os"
	"strconv"

	"github.com/mbyrenh/omnetpp-resultfiles/internal/atomicfile"
	"github.com/mbyrenh/omnetpp-resultfiles/internal/dataflow"
	"github.com/mbyrenh/omnetpp-resultfiles/internal/indexer"
	"github.com/mbyrenh/omnetpp-resultfiles/internal/indexfile"
	"github.com/mbyrenh/omnetpp-resultfiles/internal/model"
	"github.com/mbyrenh/omnetpp-resultfiles/internal/nodes"
	"github.com/mbyrenh/omnetpp-resultfiles/internal/progress"
)

// SemanticErrorKind enumerates the Rebuilder's own semantic failures
// (§7's SemanticError, the rebuild-specific case).
type SemanticErrorKind int

const (
	MultipleRuns SemanticErrorKind = iota
)

// SemanticError signals that vectorFileName cannot be rebuilt as-is.
type SemanticError struct {
	Kind SemanticErrorKind
	Path string
}

func (e *SemanticError) Error() string {
	switch e.Kind {
	case MultipleRuns:
		return fmt.Sprintf("rebuild: %s: contains more than one run", e.Path)
	default:
		return fmt.Sprintf("rebuild: %s: semantic error", e.Path)
	}
}

// Rebuild re-indexes vectorFileName (the index is always regenerated
// wholesale — incremental reuse of a stale sidecar is out of scope,
// §1 Non-goals) and, if the file is well-formed and non-empty,
// rewrites it through a reader/writer dataflow graph into fresh,
// block-aligned temp files, then atomically replaces the sidecar
// index and the vector file with them (in that order).
//
// A file declaring more than one run fails with *SemanticError
// (MultipleRuns). A file with zero declared vectors is left untouched
// and Rebuild returns nil.
func Rebuild(vectorFileName string, mon progress.Monitor) error {
	if mon == nil {
		mon = progress.Noop{}
	}

	idx, err := indexer.Index(vectorFileName, mon)
	if err != nil {
		return err
	}
	if idx.RunCount > 1 {
		return &SemanticError{Kind: MultipleRuns, Path: vectorFileName}
	}
	if len(idx.Vectors) == 0 {
		return nil
	}

	indexPath := indexfile.FileName(vectorFileName)

	tempVectorPath, err := atomicfile.TempName(vectorFileName)
	if err != nil {
		return err
	}
	tempIndexPath, err := atomicfile.TempName(indexPath)
	if err != nil {
		return err
	}

	cleanup := func() {
		os.Remove(tempVectorPath)
		os.Remove(tempIndexPath)
	}

	writer, err := buildGraph(vectorFileName, tempVectorPath, idx, mon)
	if err != nil {
		cleanup()
		return err
	}
	if !writer.IsFinished() {
		// mon was canceled mid-execution (§5): discard partial output,
		// leave both source files untouched.
		writer.File().Close()
		cleanup()
		return nil
	}

	if err := writer.Flush(); err != nil {
		cleanup()
		return err
	}
	if err := atomicfile.FsyncAndClose(writer.File()); err != nil {
		cleanup()
		return err
	}

	outIdx, err := writer.Index()
	if err != nil {
		cleanup()
		return err
	}
	outIdx.VectorFileName = vectorFileName

	if err := writeAndSyncIndex(tempIndexPath, outIdx); err != nil {
		cleanup()
		return err
	}

	if err := atomicfile.Commit(tempIndexPath, indexPath); err != nil {
		os.Remove(tempVectorPath)
		return err
	}
	if err := atomicfile.Commit(tempVectorPath, vectorFileName); err != nil {
		return err
	}

	return nil
}

// buildGraph wires one reader output port and one writer input port
// per declared vector (§4.7 step 2), executes the graph, and returns
// the writer for the caller to finalise. If mon is canceled mid-flight
// (either between scheduling passes, or mid-scan inside the reader
// itself — see nodes.Reader.SetMonitor) the writer may come back
// unfinished, or buildGraph may return an error; either way the
// caller treats it as "no rebuild happened," and buildGraph itself
// closes the writer's file handle on any error exit (§5 "file-handle
// discipline") so the caller only has its two temp paths left to
// remove.
func buildGraph(vectorFileName, tempVectorPath string, idx *model.Index, mon progress.Monitor) (writer *nodes.Writer, err error) {
	mgr := dataflow.NewManager()

	reader := nodes.NewReader(vectorFileName, idx)
	mgr.Adopt(reader)

	writerAttrs := model.NewStringMap()
	writerAttrs.Set("path", tempVectorPath)
	writerNode, err := mgr.CreateNode("indexedvectorfilewriter", writerAttrs)
	if err != nil {
		return nil, err
	}
	writer = writerNode.(*nodes.Writer)
	w := writer
	defer func() {
		if err != nil {
			w.File().Close()
		}
	}()

	if idx.Run != nil {
		writer.SetRun(idx.Run.RunID, idx.Run.Attributes, idx.Run.ModuleParams)
	}

	for _, v := range idx.Vectors {
		outPort, portErr := reader.Port(strconv.Itoa(v.VectorID))
		if portErr != nil {
			return nil, portErr
		}
		inPort, addErr := writer.AddVector(v.VectorID, v.ModuleName, v.Name, v.Columns)
		if addErr != nil {
			return nil, addErr
		}
		if connectErr := dataflow.Connect(outPort, inPort); connectErr != nil {
			return nil, connectErr
		}
	}

	if execErr := mgr.Execute(mon); execErr != nil {
		return nil, execErr
	}

	return writer, nil
}

func writeAndSyncIndex(tempIndexPath string, idx *model.Index) error {
	f, err := os.OpenFile(tempIndexPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return &atomicfile.IOError{Path: tempIndexPath, Op: "create", Err: err}
	}
	if err := indexfile.Write(f, idx); err != nil {
		f.Close()
		return err
	}
	return atomicfile.FsyncAndClose(f)
}

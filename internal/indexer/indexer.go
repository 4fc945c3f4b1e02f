// Package indexer implements the single-pass streaming parser that
// builds an Index Model from a vector file (§4.3), and the top-level
// operation that also commits the resulting sidecar index file
// (§4.4, §4.6).
package indexer

import (
	"fmt"
	"io"
	"os"

	"github.com/mbyrenh/omnetpp-resultfiles/internal/atomicfile"
	"github.com/mbyrenh/omnetpp-resultfiles/internal/indexfile"
	ioutil2 "github.com/mbyrenh/omnetpp-resultfiles/internal/ioutil"
	"github.com/mbyrenh/omnetpp-resultfiles/internal/model"
	"github.com/mbyrenh/omnetpp-resultfiles/internal/progress"
)

// FormatErrorKind enumerates the grammar-level failures the indexer
// can raise (§7).
type FormatErrorKind int

const (
	UnsupportedVersion FormatErrorKind = iota
	MissingVectorDecl
	TruncatedData
	MalformedDirective
)

// FormatError aborts indexing; callers must treat the sidecar index
// as absent (§4.3 "Error policy").
type FormatError struct {
	Kind FormatErrorKind
	Path string
	Line int64
	Msg  string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("indexer: %s:%d: %s", e.Path, e.Line, e.Msg)
}

// CanceledError is returned by Index when the supplied monitor reports
// IsCanceled mid-scan. It carries no partial Index: per §8 Property 7
// a cancel must leave no sidecar at the target path, so callers treat
// it the same as any other indexing failure rather than a successful,
// truncated result.
type CanceledError struct {
	Path string
}

func (e *CanceledError) Error() string {
	return fmt.Sprintf("indexer: %s: canceled", e.Path)
}

// maxSupportedVersion is the highest `version` directive this indexer
// accepts (§4.3).
const maxSupportedVersion = 2

// Index performs a single forward pass over vectorFileName and
// returns the resulting Index Model. It does not write a sidecar
// file; see GenerateIndex for the full operation.
func Index(vectorFileName string, mon progress.Monitor) (*model.Index, error) {
	if mon == nil {
		mon = progress.Noop{}
	}

	r, err := ioutil2.Open(vectorFileName)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	idx := model.NewIndex(vectorFileName)
	tok := ioutil2.NewTokenizer()

	var (
		currentVector   *model.Vector
		lastVectorDecl  *model.Vector
		currentBlock    *model.Block
		currentBlockSet bool
	)

	onePercent := r.FileSize() / 100
	readPercentage := int64(0)

	mon.BeginTask("Indexing "+vectorFileName, 110)

	closeCurrentBlock := func(endOffset int64) {
		if !currentBlockSet {
			return
		}
		currentBlock.Size = endOffset - currentBlock.StartOffset
		currentVector.AddBlock(currentBlock)
		currentBlockSet = false
	}

	for {
		if mon.IsCanceled() {
			mon.Done()
			return nil, &CanceledError{Path: vectorFileName}
		}
		if onePercent > 0 {
			cur := r.NumReadBytes() / onePercent
			if cur > readPercentage {
				mon.Worked(int(cur - readPercentage))
				readPercentage = cur
			}
		}

		line, err := r.NextLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			mon.Done()
			return nil, err
		}

		lineNo := r.NumReadLines()
		tokens := tok.Tokenize(line)
		if len(tokens) == 0 || ioutil2.IsComment(tokens) {
			continue
		}

		switch tokens[0] {
		case "run", "param":
			if idx.Run == nil {
				idx.Run = model.NewRun("")
			}
			if tokens[0] == "run" {
				idx.RunCount++
				if len(tokens) >= 2 {
					idx.Run.RunID = tokens[1]
				}
			} else {
				if len(tokens) < 3 {
					mon.Done()
					return nil, &FormatError{Kind: MalformedDirective, Path: vectorFileName, Line: lineNo, Msg: "missing param name or value"}
				}
				idx.Run.SetParam(tokens[1], tokens[2])
			}

		case "attr":
			if len(tokens) < 3 {
				mon.Done()
				return nil, &FormatError{Kind: MalformedDirective, Path: vectorFileName, Line: lineNo, Msg: "missing attribute name or value"}
			}
			if lastVectorDecl == nil {
				if idx.Run == nil {
					idx.Run = model.NewRun("")
				}
				idx.Run.Attributes.Set(tokens[1], tokens[2])
			} else {
				lastVectorDecl.Attributes.Set(tokens[1], tokens[2])
			}

		case "vector":
			if len(tokens) < 4 {
				mon.Done()
				return nil, &FormatError{Kind: MalformedDirective, Path: vectorFileName, Line: lineNo, Msg: "broken vector declaration"}
			}
			id, ok := ioutil2.ParseInt(tokens[1])
			if !ok {
				mon.Done()
				return nil, &FormatError{Kind: MalformedDirective, Path: vectorFileName, Line: lineNo, Msg: "malformed vector id"}
			}
			v := model.NewVector(id, tokens[2], tokens[3])
			if len(tokens) >= 5 && !startsWithDigit(tokens[4]) {
				v.Columns = tokens[4]
			}
			if err := idx.AddVector(v); err != nil {
				mon.Done()
				return nil, &FormatError{Kind: MalformedDirective, Path: vectorFileName, Line: lineNo, Msg: err.Error()}
			}
			lastVectorDecl = v

		case "version":
			if len(tokens) < 2 {
				mon.Done()
				return nil, &FormatError{Kind: MalformedDirective, Path: vectorFileName, Line: lineNo, Msg: "missing version number"}
			}
			version, ok := ioutil2.ParseInt(tokens[1])
			if !ok {
				mon.Done()
				return nil, &FormatError{Kind: MalformedDirective, Path: vectorFileName, Line: lineNo, Msg: "version is not a number"}
			}
			if version > maxSupportedVersion {
				mon.Done()
				return nil, &FormatError{Kind: UnsupportedVersion, Path: vectorFileName, Line: lineNo, Msg: "expects version 2 or lower"}
			}

		default:
			vectorID, ok := ioutil2.ParseInt(tokens[0])
			if !ok {
				idx.UnrecognisedLines++
				continue
			}

			if currentVector == nil || vectorID != currentVector.VectorID {
				closeCurrentBlock(r.CurrentLineStartOffset())

				v := idx.VectorByID(vectorID)
				if v == nil {
					mon.Done()
					return nil, &FormatError{Kind: MissingVectorDecl, Path: vectorFileName, Line: lineNo, Msg: fmt.Sprintf("missing vector declaration for %d", vectorID)}
				}
				currentVector = v
				currentBlock = &model.Block{StartOffset: r.CurrentLineStartOffset()}
				currentBlockSet = true
			}

			var (
				simTime  model.SimTime
				value    float64
				event    int64
				hasEvent bool
			)
			for i, col := range currentVector.Columns {
				if i+1 >= len(tokens) {
					mon.Done()
					return nil, &FormatError{Kind: TruncatedData, Path: vectorFileName, Line: lineNo, Msg: "data line too short"}
				}
				tokStr := tokens[i+1]
				switch col {
				case 'T':
					t, ok := ioutil2.ParseSimTime(tokStr)
					if !ok {
						mon.Done()
						return nil, &FormatError{Kind: MalformedDirective, Path: vectorFileName, Line: lineNo, Msg: "malformed simulation time"}
					}
					simTime = t
				case 'V':
					v, ok := ioutil2.ParseDouble(tokStr)
					if !ok {
						mon.Done()
						return nil, &FormatError{Kind: MalformedDirective, Path: vectorFileName, Line: lineNo, Msg: "malformed data value"}
					}
					value = v
				case 'E':
					e, ok := ioutil2.ParseInt64(tokStr)
					if !ok {
						mon.Done()
						return nil, &FormatError{Kind: MalformedDirective, Path: vectorFileName, Line: lineNo, Msg: "malformed event number"}
					}
					event = e
					hasEvent = true
				default:
					// §9 Open Question: unrecognised columns characters
					// consume a positional token with no effect.
				}
			}

			currentBlock.Collect(hasEvent, event, simTime, value)
		}
	}

	closeCurrentBlock(r.FileSize())

	if readPercentage < 100 {
		mon.Worked(int(100 - readPercentage))
	}
	mon.Done()

	return idx, nil
}

func startsWithDigit(s string) bool {
	return len(s) > 0 && s[0] >= '0' && s[0] <= '9'
}

// GenerateIndex indexes vectorFileName and commits the resulting
// sidecar index file via the write-temp/fsync/rename protocol (§4.4,
// §4.6), mirroring the original VectorFileIndexer::generateIndex.
func GenerateIndex(vectorFileName string, mon progress.Monitor) (*model.Index, error) {
	idx, err := Index(vectorFileName, mon)
	if err != nil {
		return nil, err
	}

	indexPath := indexfile.FileName(vectorFileName)
	if err := atomicfile.Replace(indexPath, func(f *os.File) error {
		return indexfile.Write(f, idx)
	}); err != nil {
		return nil, err
	}

	return idx, nil
}

// Package model holds the in-memory representation of a vector
// file's table of contents: the Run, the declared Vectors, and each
// Vector's ordered Blocks. Values here are built exclusively by the
// indexer during a single streaming pass (see internal/indexer) and
// are treated as immutable once handed to a writer.
package model

import "fmt"

// Run is a single simulation invocation: its recognised/unrecognised
// attributes plus module-parameter assignments, keyed by
// fully-qualified dotted names.
type Run struct {
	RunID        string
	Attributes   *StringMap
	ModuleParams *StringMap
}

// NewRun returns an empty Run.
func NewRun(runID string) *Run {
	return &Run{
		RunID:        runID,
		Attributes:   NewStringMap(),
		ModuleParams: NewStringMap(),
	}
}

// SetParam records a module-parameter assignment. Names are expected
// to be fully-qualified dotted names; neither SetParam nor the indexer
// checks that name contains a '.'.
func (r *Run) SetParam(name, value string) {
	r.ModuleParams.Set(name, value)
}

// Block is a contiguous byte range of the vector file holding samples
// for exactly one Vector, plus its running aggregates.
type Block struct {
	StartOffset int64
	Size        int64

	Count         int64
	FirstEventNum int64
	LastEventNum  int64
	FirstTime     SimTime
	LastTime      SimTime

	Min    float64
	Max    float64
	Sum    float64
	SumSqr float64

	// hasEventNum/hasSample track whether any E-column or sample has
	// been collected yet, so First* fields are only set on first
	// contact (§4.3).
	hasEventNum bool
	hasSample   bool
}

// Collect folds one sample into the block's running aggregates. event
// is ignored (pass 0) when the vector's columns string has no 'E'.
func (b *Block) Collect(hasEvent bool, event int64, t SimTime, value float64) {
	if !b.hasSample {
		b.FirstTime = t
		b.Min, b.Max, b.Sum, b.SumSqr = value, value, 0, 0
	}
	if hasEvent && !b.hasEventNum {
		b.FirstEventNum = event
		b.hasEventNum = true
	}
	b.LastTime = t
	if hasEvent {
		b.LastEventNum = event
	}

	if !b.hasSample || value < b.Min {
		b.Min = value
	}
	if !b.hasSample || value > b.Max {
		b.Max = value
	}
	b.Sum += value
	b.SumSqr += value * value
	b.Count++
	b.hasSample = true
}

// Vector is identified by an integer id unique within a file.
type Vector struct {
	VectorID   int
	ModuleName string
	Name       string
	Columns    string // layout letters from "TVE", default "TV"; other letters are kept as given
	Attributes *StringMap
	BlockSize  int64 // max Block.Size observed
	Blocks     []*Block
}

// NewVector returns a Vector with default columns "TV".
func NewVector(id int, moduleName, name string) *Vector {
	return &Vector{
		VectorID:   id,
		ModuleName: moduleName,
		Name:       name,
		Columns:    "TV",
		Attributes: NewStringMap(),
	}
}

// AddBlock appends a finished block and bumps BlockSize.
func (v *Vector) AddBlock(b *Block) {
	v.Blocks = append(v.Blocks, b)
	if b.Size > v.BlockSize {
		v.BlockSize = b.Size
	}
}

// HasValueColumn reports whether the columns string includes 'V'.
func (v *Vector) HasValueColumn() bool {
	for _, c := range v.Columns {
		if c == 'V' {
			return true
		}
	}
	return false
}

// HasEventColumn reports whether the columns string includes 'E'.
func (v *Vector) HasEventColumn() bool {
	for _, c := range v.Columns {
		if c == 'E' {
			return true
		}
	}
	return false
}

// Index is a vector file's full table of contents: its name, Run,
// and ordered Vectors.
type Index struct {
	VectorFileName string
	Run            *Run
	Vectors        []*Vector

	// UnrecognisedLines counts data-shaped lines whose first token
	// did not parse as a vector id (§4.3 finalisation).
	UnrecognisedLines int64

	// RunCount counts `run` directives seen while indexing, as opposed
	// to Run which only ever reflects the most recent one. The
	// Rebuilder uses this to detect a file holding more than one run.
	RunCount int

	byID map[int]*Vector
}

// NewIndex returns an empty Index for vectorFileName.
func NewIndex(vectorFileName string) *Index {
	return &Index{
		VectorFileName: vectorFileName,
		byID:           make(map[int]*Vector),
	}
}

// AddVector declares a new Vector. Adding a vectorId already present
// returns an error and leaves the Index unchanged.
func (idx *Index) AddVector(v *Vector) error {
	if idx.byID == nil {
		idx.byID = make(map[int]*Vector)
	}
	if _, exists := idx.byID[v.VectorID]; exists {
		return fmt.Errorf("model: duplicate vectorId %d", v.VectorID)
	}
	idx.Vectors = append(idx.Vectors, v)
	idx.byID[v.VectorID] = v
	return nil
}

// VectorByID looks up a previously declared Vector, or nil.
func (idx *Index) VectorByID(id int) *Vector {
	if idx.byID == nil {
		return nil
	}
	return idx.byID[id]
}

// LastVector returns the most recently declared Vector, or nil if
// none have been declared yet. Used by indexfile.Read to resolve the
// context-sensitive `attr` directive (§4.3).
func (idx *Index) LastVector() *Vector {
	if len(idx.Vectors) == 0 {
		return nil
	}
	return idx.Vectors[len(idx.Vectors)-1]
}

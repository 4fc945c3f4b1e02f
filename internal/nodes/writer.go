package nodes

import (
	"bufio"
	"fmt"
	"os"
	"strconv"

	"github.com/mbyrenh/omnetpp-resultfiles/internal/dataflow"
	"github.com/mbyrenh/omnetpp-resultfiles/internal/model"
)

// defaultBlockSize is indexedvectorfilewriter's default block-size
// threshold (§4.5).
const defaultBlockSize = 65536

// writerType registers "indexedvectorfilewriter" (§4.5): a sink node
// whose input ports are created explicitly via AddVector (not lazily,
// unlike the reader's output ports), which writes sample lines to its
// output vector file and partitions them into blocks as it goes.
type writerType struct{}

func (writerType) Name() string { return "indexedvectorfilewriter" }

// Create opens the file named by the required "path" attribute for
// writing and honours an optional "blocksize" attribute.
func (writerType) Create(mgr *dataflow.Manager, attrs *model.StringMap) (dataflow.Node, error) {
	path, ok := attrs.Get("path")
	if !ok || path == "" {
		return nil, errMissingAttr("indexedvectorfilewriter", "path")
	}
	blockSize := int64(defaultBlockSize)
	if s, ok := attrs.Get("blocksize"); ok && s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n <= 0 {
			return nil, &SemanticError{Msg: fmt.Sprintf("indexedvectorfilewriter: malformed blocksize %q", s)}
		}
		blockSize = n
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}

	return &Writer{
		path:      path,
		blockSize: blockSize,
		file:      f,
		bw:        bufio.NewWriter(f),
		ports:     map[string]*dataflow.Port{},
		vectors:   map[int]*model.Vector{},
		current:   map[int]*model.Block{},
	}, nil
}

func (writerType) GetPort(n dataflow.Node, name string) (*dataflow.Port, error) {
	w, ok := n.(*Writer)
	if !ok {
		return nil, errWrongNodeValue("indexedvectorfilewriter")
	}
	return w.Port(name)
}

func init() {
	dataflow.Register(writerType{})
}

// Writer is the indexedvectorfilewriter node: it drains samples
// arriving on its per-vector input ports, appends them as text lines
// to its output vector file, and tracks per-vector blocks with the
// same aggregate statistics the Indexer computes. A block starts at
// its first sample line and is closed once it spans at least
// blockSize bytes (or when all inputs end). Samples are drained one
// input port at a time per Process call; a block is not split when
// another vector's lines are written inside its byte range.
type Writer struct {
	path      string
	blockSize int64
	file      *os.File
	bw        *bufio.Writer
	offset    int64

	order   []int
	ports   map[string]*dataflow.Port
	vectors map[int]*model.Vector
	current map[int]*model.Block

	run      *model.Run
	finished bool
	writeErr error
}

func (w *Writer) Type() string { return "indexedvectorfilewriter" }

func (w *Writer) Port(name string) (*dataflow.Port, error) {
	p, ok := w.ports[name]
	if !ok {
		return nil, errNoSuchPort("indexedvectorfilewriter", name)
	}
	return p, nil
}

// AddVector allocates an input port for vectorId, declaring its
// module/name/columns metadata up front, and returns the port for the
// caller to connect a producer to. Must be called before Execute.
func (w *Writer) AddVector(vectorID int, moduleName, name, columns string) (*dataflow.Port, error) {
	if _, exists := w.vectors[vectorID]; exists {
		return nil, &SemanticError{Msg: fmt.Sprintf("indexedvectorfilewriter: duplicate vectorId %d", vectorID)}
	}
	v := model.NewVector(vectorID, moduleName, name)
	if columns != "" {
		v.Columns = columns
	}
	w.vectors[vectorID] = v
	w.order = append(w.order, vectorID)
	w.current[vectorID] = &model.Block{StartOffset: w.offset}

	portName := strconv.Itoa(vectorID)
	port := dataflow.NewPort(portName, dataflow.In)
	w.ports[portName] = port

	line := fmt.Sprintf("vector %d %s %s %s\n", vectorID, quoteToken(moduleName), quoteToken(name), v.Columns)
	if _, err := w.bw.WriteString(line); err != nil {
		return nil, err
	}
	w.offset += int64(len(line))

	return port, nil
}

// SetRun records the Run metadata the writer should declare in its
// output vector file. It must be invoked before Execute.
func (w *Writer) SetRun(runID string, attrs, moduleParams *model.StringMap) {
	w.run = model.NewRun(runID)
	if attrs != nil {
		w.run.Attributes = attrs.Clone()
	}
	if moduleParams != nil {
		w.run.ModuleParams = moduleParams.Clone()
	}
	w.flushRunHeader()
}

func (w *Writer) flushRunHeader() {
	w.writeHeaderLine(fmt.Sprintf("run %s\n", quoteToken(w.run.RunID)))
	for _, k := range w.run.Attributes.Keys() {
		v, _ := w.run.Attributes.Get(k)
		w.writeHeaderLine(fmt.Sprintf("attr %s %s\n", quoteToken(k), quoteToken(v)))
	}
	for _, k := range w.run.ModuleParams.Keys() {
		v, _ := w.run.ModuleParams.Get(k)
		w.writeHeaderLine(fmt.Sprintf("param %s %s\n", quoteToken(k), quoteToken(v)))
	}
}

func (w *Writer) writeHeaderLine(line string) {
	if w.writeErr != nil {
		return
	}
	if _, err := w.bw.WriteString(line); err != nil {
		w.writeErr = err
		return
	}
	w.offset += int64(len(line))
}

func (w *Writer) CanProduce() bool {
	if w.finished {
		return false
	}
	for _, id := range w.order {
		p := w.ports[strconv.Itoa(id)]
		if p.HasData() {
			return true
		}
	}
	return w.allPortsEOF()
}

func (w *Writer) IsFinished() bool { return w.finished }

func (w *Writer) allPortsEOF() bool {
	if len(w.order) == 0 {
		return false
	}
	for _, id := range w.order {
		if !w.ports[strconv.Itoa(id)].Eof() {
			return false
		}
	}
	return true
}

func (w *Writer) Process() error {
	if w.writeErr != nil {
		return w.writeErr
	}
	for _, id := range w.order {
		port := w.ports[strconv.Itoa(id)]
		for port.HasData() {
			s, _ := port.Pop()
			if err := w.writeSample(id, s); err != nil {
				w.writeErr = err
				return err
			}
		}
	}
	if w.allPortsEOF() {
		w.finalize()
	}
	return nil
}

func (w *Writer) writeSample(vectorID int, s dataflow.Sample) error {
	v := w.vectors[vectorID]
	line := fmt.Sprintf("%d", vectorID)
	for _, col := range v.Columns {
		switch col {
		case 'T':
			line += " " + s.Time.String()
		case 'V':
			line += " " + strconv.FormatFloat(s.Value, 'g', -1, 64)
		case 'E':
			line += " " + strconv.FormatInt(s.Event, 10)
		}
	}
	line += "\n"
	n, err := w.bw.WriteString(line)
	if err != nil {
		return err
	}

	block := w.current[vectorID]
	if block.Count == 0 {
		block.StartOffset = w.offset
	}
	block.Collect(s.HasEvent, s.Event, s.Time, s.Value)
	w.offset += int64(n)

	if w.offset-block.StartOffset >= w.blockSize {
		w.closeCurrentBlock(vectorID)
	}
	return nil
}

func (w *Writer) closeCurrentBlock(vectorID int) {
	block := w.current[vectorID]
	if block.Count == 0 {
		return
	}
	block.Size = w.offset - block.StartOffset
	w.vectors[vectorID].AddBlock(block)
	w.current[vectorID] = &model.Block{StartOffset: w.offset}
}

func (w *Writer) finalize() {
	for _, id := range w.order {
		w.closeCurrentBlock(id)
	}
	w.finished = true
}

// Flush writes any buffered output to the underlying file. The
// caller (the Rebuilder) is responsible for fsyncing, closing, and
// committing the resulting temp file (§4.6).
func (w *Writer) Flush() error {
	return w.bw.Flush()
}

// File returns the writer's open output file, so the caller can fsync
// it as part of the write-temp/fsync/rename protocol (§4.6).
func (w *Writer) File() *os.File { return w.file }

// Index assembles the Index Model describing the file just written.
// Call only after IsFinished reports true.
func (w *Writer) Index() (*model.Index, error) {
	idx := model.NewIndex(w.path)
	idx.Run = w.run
	for _, id := range w.order {
		if err := idx.AddVector(w.vectors[id]); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

func quoteToken(s string) string {
	needsQuote := s == ""
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' || s[i] == '\t' || s[i] == '"' || s[i] == '\\' {
			needsQuote = true
			break
		}
	}
	if !needsQuote {
		return s
	}
	out := make([]byte, 0, len(s)+2)
	out = append(out, '"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	out = append(out, '"')
	return string(out)
}

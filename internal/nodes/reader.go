package nodes

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/mbyrenh/omnetpp-resultfiles/internal/dataflow"
	"github.com/mbyrenh/omnetpp-resultfiles/internal/indexfile"
	ioutil2 "github.com/mbyrenh/omnetpp-resultfiles/internal/ioutil"
	"github.com/mbyrenh/omnetpp-resultfiles/internal/model"
	"github.com/mbyrenh/omnetpp-resultfiles/internal/progress"
)

// readerType registers "vectorfilereader" (§4.5): a source node whose
// output ports are created lazily, one per requested vectorId, and
// which scans the source vector file once on Process to deliver every
// requested vector's samples to its port.
type readerType struct{}

func (readerType) Name() string { return "vectorfilereader" }

// Create builds a Reader from a required "path" attribute (the source
// vector file) and an optional "indexPath" attribute naming an
// already-built sidecar; when present the reader scans only the
// requested vectors' block ranges instead of the whole file (§4.5).
func (readerType) Create(mgr *dataflow.Manager, attrs *model.StringMap) (dataflow.Node, error) {
	path, ok := attrs.Get("path")
	if !ok || path == "" {
		return nil, errMissingAttr("vectorfilereader", "path")
	}
	r := &Reader{
		path:  path,
		ports: map[string]*dataflow.Port{},
		mon:   progress.Noop{},
	}
	if idxPath, ok := attrs.Get("indexPath"); ok && idxPath != "" {
		f, err := os.Open(idxPath)
		if err != nil {
			return nil, err
		}
		idx, err := indexfile.Read(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		r.index = idx
	}
	return r, nil
}

func (readerType) GetPort(n dataflow.Node, name string) (*dataflow.Port, error) {
	r, ok := n.(*Reader)
	if !ok {
		return nil, errWrongNodeValue("vectorfilereader")
	}
	return r.Port(name)
}

func init() {
	dataflow.Register(readerType{})
}

// declaredVector is the subset of vector metadata the reader needs to
// parse sample lines when no sidecar index is available to consult.
type declaredVector struct {
	columns string
}

// NewReader builds a vectorfilereader node directly from an
// already-parsed Index, bypassing the string-attrs registry path.
// The Rebuilder uses this: it already holds the Index it just built
// and has no reason to serialise it to a sidecar just to read it back.
func NewReader(path string, idx *model.Index) *Reader {
	return &Reader{path: path, index: idx, ports: map[string]*dataflow.Port{}, mon: progress.Noop{}}
}

// Reader is the vectorfilereader node: a pure source that emits
// (time, value[, event]) Samples on one lazily-created output port
// per requested vectorId.
type Reader struct {
	path  string
	index *model.Index
	mon   progress.Monitor

	ports     map[string]*dataflow.Port
	requested []string

	done bool
}

func (r *Reader) Type() string { return "vectorfilereader" }

// SetMonitor implements dataflow.MonitorAware: a full scan happens
// inside a single Process call, so the Reader polls mon itself
// between blocks/lines rather than relying on the Manager's
// once-per-pass check (§5).
func (r *Reader) SetMonitor(mon progress.Monitor) {
	if mon != nil {
		r.mon = mon
	}
}

// Port returns the output port for a decimal vectorId, creating it on
// first request.
func (r *Reader) Port(name string) (*dataflow.Port, error) {
	if p, ok := r.ports[name]; ok {
		return p, nil
	}
	if _, err := strconv.Atoi(name); err != nil {
		return nil, errNoSuchPort("vectorfilereader", name)
	}
	p := dataflow.NewPort(name, dataflow.Out)
	r.ports[name] = p
	r.requested = append(r.requested, name)
	return p, nil
}

func (r *Reader) CanProduce() bool { return !r.done }

func (r *Reader) IsFinished() bool { return r.done }

// Process performs the entire scan in one call: a source has nothing
// useful to interleave with, since every requested port is known by
// the time the graph is executed.
func (r *Reader) Process() error {
	defer func() {
		for _, name := range r.requested {
			r.ports[name].Close()
		}
		r.done = true
	}()

	if r.index != nil {
		return r.scanViaIndex()
	}
	return r.scanWholeFile()
}

func (r *Reader) scanViaIndex() error {
	if len(r.requested) == 0 {
		return nil
	}
	f, err := os.Open(r.path)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, name := range r.requested {
		if r.mon.IsCanceled() {
			return &CanceledError{NodeType: "vectorfilereader"}
		}
		id, _ := strconv.Atoi(name)
		v := r.index.VectorByID(id)
		if v == nil {
			continue
		}
		port := r.ports[name]
		for _, b := range v.Blocks {
			if r.mon.IsCanceled() {
				return &CanceledError{NodeType: "vectorfilereader"}
			}
			if err := r.emitBlock(f, v, b, port); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Reader) emitBlock(f *os.File, v *model.Vector, b *model.Block, port *dataflow.Port) error {
	if _, err := f.Seek(b.StartOffset, io.SeekStart); err != nil {
		return err
	}
	lr := bufio.NewReader(io.LimitReader(f, b.Size))
	tok := ioutil2.NewTokenizer()
	for {
		if r.mon.IsCanceled() {
			return &CanceledError{NodeType: "vectorfilereader"}
		}
		line, err := lr.ReadString('\n')
		if err != nil && line == "" {
			break
		}
		tokens := tok.Tokenize([]byte(trimNewline(line)))
		if len(tokens) == 0 || ioutil2.IsComment(tokens) {
			if err == io.EOF {
				break
			}
			continue
		}
		s, ok := parseSample(tokens[1:], v.Columns)
		if ok {
			port.Push(s)
		}
		if err == io.EOF {
			break
		}
	}
	return nil
}

func trimNewline(s string) string {
	n := len(s)
	for n > 0 && (s[n-1] == '\n' || s[n-1] == '\r') {
		n--
	}
	return s[:n]
}

// scanWholeFile is the fallback used when no sidecar index was
// supplied: it replays the full grammar (§4.3's dispatch table) far
// enough to learn each vector's columns layout, emitting a Sample to
// any port that was actually requested.
func (r *Reader) scanWholeFile() error {
	lr, err := ioutil2.Open(r.path)
	if err != nil {
		return err
	}
	defer lr.Close()

	tok := ioutil2.NewTokenizer()
	declared := map[int]declaredVector{}

	for {
		if r.mon.IsCanceled() {
			return &CanceledError{NodeType: "vectorfilereader"}
		}
		line, err := lr.NextLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		tokens := tok.Tokenize(line)
		if len(tokens) == 0 || ioutil2.IsComment(tokens) {
			continue
		}
		switch tokens[0] {
		case "vector":
			if len(tokens) < 4 {
				continue
			}
			id, ok := ioutil2.ParseInt(tokens[1])
			if !ok {
				continue
			}
			columns := "TV"
			if len(tokens) >= 5 && !startsWithDigit(tokens[4]) {
				columns = tokens[4]
			}
			declared[id] = declaredVector{columns: columns}
		case "run", "param", "attr", "version":
			// not needed for sample replay
		default:
			id, ok := ioutil2.ParseInt(tokens[0])
			if !ok {
				continue
			}
			port, requested := r.ports[strconv.Itoa(id)]
			if !requested {
				continue
			}
			dv, known := declared[id]
			if !known {
				return fmt.Errorf("vectorfilereader: sample for undeclared vector %d", id)
			}
			s, ok := parseSample(tokens[1:], dv.columns)
			if ok {
				port.Push(s)
			}
		}
	}
	return nil
}

func startsWithDigit(s string) bool {
	return len(s) > 0 && s[0] >= '0' && s[0] <= '9'
}

// parseSample interprets valueTokens positionally against columns,
// the same T/V/E layout the Indexer uses (§4.3).
func parseSample(valueTokens []string, columns string) (dataflow.Sample, bool) {
	var s dataflow.Sample
	for i, col := range columns {
		if i >= len(valueTokens) {
			return s, false
		}
		tokStr := valueTokens[i]
		switch col {
		case 'T':
			t, ok := ioutil2.ParseSimTime(tokStr)
			if !ok {
				return s, false
			}
			s.Time = t
		case 'V':
			v, ok := ioutil2.ParseDouble(tokStr)
			if !ok {
				return s, false
			}
			s.Value = v
		case 'E':
			e, ok := ioutil2.ParseInt64(tokStr)
			if !ok {
				return s, false
			}
			s.Event = e
			s.HasEvent = true
		}
	}
	return s, true
}

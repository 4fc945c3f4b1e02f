// Package indexfile encodes and decodes the textual sidecar index
// schema documented in §6: vectorFileName, the full Run block, and
// one stanza per Vector carrying its metadata and block list.
package indexfile

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mbyrenh/omnetpp-resultfiles/internal/ioutil"
	"github.com/mbyrenh/omnetpp-resultfiles/internal/model"
)

// Ext is the sidecar file extension appended to (or replacing) the
// vector file's own extension, deterministically and injectively
// modulo the source path (§6).
const Ext = ".vci"

// FileName derives the sidecar path for a vector file, mirroring the
// teacher's sibling-path derivation idiom (schema.getHeaderPath,
// Indexer.saveMeta) generalised to extension replacement instead of
// basename suffixing.
func FileName(vectorFileName string) string {
	if ext := filepath.Ext(vectorFileName); ext != "" {
		return vectorFileName[:len(vectorFileName)-len(ext)] + Ext
	}
	return vectorFileName + Ext
}

// Write serialises idx to w using the documented textual schema.
func Write(w io.Writer, idx *model.Index) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "vectorFileName %s\n", quote(idx.VectorFileName))

	if idx.Run != nil {
		fmt.Fprintf(bw, "run %s\n", quote(idx.Run.RunID))
		for _, k := range idx.Run.Attributes.Keys() {
			v, _ := idx.Run.Attributes.Get(k)
			fmt.Fprintf(bw, "attr %s %s\n", quote(k), quote(v))
		}
		for _, k := range idx.Run.ModuleParams.Keys() {
			v, _ := idx.Run.ModuleParams.Get(k)
			fmt.Fprintf(bw, "param %s %s\n", quote(k), quote(v))
		}
	}

	for _, v := range idx.Vectors {
		fmt.Fprintf(bw, "vector %d %s %s %s\n", v.VectorID, quote(v.ModuleName), quote(v.Name), v.Columns)
		for _, k := range v.Attributes.Keys() {
			val, _ := v.Attributes.Get(k)
			fmt.Fprintf(bw, "attr %s %s\n", quote(k), quote(val))
		}
		for _, b := range v.Blocks {
			fmt.Fprintf(bw, "%d %d %d %d %d %d %s %s %s %s %s %s\n",
				v.VectorID,
				b.StartOffset, b.Size, b.Count,
				b.FirstEventNum, b.LastEventNum,
				b.FirstTime.String(), b.LastTime.String(),
				formatFloat(b.Min), formatFloat(b.Max), formatFloat(b.Sum), formatFloat(b.SumSqr))
		}
	}

	return bw.Flush()
}

func quote(s string) string {
	if s == "" {
		return `""`
	}
	needsQuote := false
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' || s[i] == '\t' || s[i] == '"' || s[i] == '\\' {
			needsQuote = true
			break
		}
	}
	if !needsQuote {
		return s
	}
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('"')
	return b.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Read parses a sidecar index file previously written by Write.
func Read(r io.Reader) (*model.Index, error) {
	idx := model.NewIndex("")
	tok := ioutil.NewTokenizer()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		tokens := tok.Tokenize(scanner.Bytes())
		if len(tokens) == 0 || ioutil.IsComment(tokens) {
			continue
		}

		switch tokens[0] {
		case "vectorFileName":
			if len(tokens) < 2 {
				return nil, fmt.Errorf("indexfile: line %d: missing vectorFileName value", lineNo)
			}
			idx.VectorFileName = tokens[1]
		case "run":
			if len(tokens) < 2 {
				return nil, fmt.Errorf("indexfile: line %d: missing run id", lineNo)
			}
			idx.Run = model.NewRun(tokens[1])
		case "attr":
			if len(tokens) < 3 {
				return nil, fmt.Errorf("indexfile: line %d: malformed attr line", lineNo)
			}
			if v := idx.LastVector(); v != nil {
				v.Attributes.Set(tokens[1], tokens[2])
			} else if idx.Run != nil {
				idx.Run.Attributes.Set(tokens[1], tokens[2])
			}
		case "param":
			if len(tokens) < 3 {
				return nil, fmt.Errorf("indexfile: line %d: malformed param line", lineNo)
			}
			if idx.Run != nil {
				idx.Run.SetParam(tokens[1], tokens[2])
			}
		case "vector":
			if len(tokens) < 4 {
				return nil, fmt.Errorf("indexfile: line %d: malformed vector line", lineNo)
			}
			id, ok := ioutil.ParseInt(tokens[1])
			if !ok {
				return nil, fmt.Errorf("indexfile: line %d: malformed vector id %q", lineNo, tokens[1])
			}
			v := model.NewVector(id, tokens[2], tokens[3])
			if len(tokens) >= 5 {
				v.Columns = tokens[4]
			}
			if err := idx.AddVector(v); err != nil {
				return nil, fmt.Errorf("indexfile: line %d: %w", lineNo, err)
			}
		default:
			id, ok := ioutil.ParseInt(tokens[0])
			if !ok {
				return nil, fmt.Errorf("indexfile: line %d: unexpected line %q", lineNo, tokens[0])
			}
			v := idx.VectorByID(id)
			if v == nil {
				return nil, fmt.Errorf("indexfile: line %d: block for undeclared vector %d", lineNo, id)
			}
			b, err := parseBlockLine(tokens)
			if err != nil {
				return nil, fmt.Errorf("indexfile: line %d: %w", lineNo, err)
			}
			v.AddBlock(b)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return idx, nil
}

func parseBlockLine(tokens []string) (*model.Block, error) {
	if len(tokens) != 12 {
		return nil, fmt.Errorf("malformed block line (want 12 fields, got %d)", len(tokens))
	}
	ints := make([]int64, 5)
	for i := 0; i < 5; i++ {
		v, ok := ioutil.ParseInt64(tokens[i+1])
		if !ok {
			return nil, fmt.Errorf("malformed integer field %q", tokens[i+1])
		}
		ints[i] = v
	}
	firstTime, ok := ioutil.ParseSimTime(tokens[6])
	if !ok {
		return nil, fmt.Errorf("malformed firstTime %q", tokens[6])
	}
	lastTime, ok := ioutil.ParseSimTime(tokens[7])
	if !ok {
		return nil, fmt.Errorf("malformed lastTime %q", tokens[7])
	}
	floats := make([]float64, 4)
	for i := 0; i < 4; i++ {
		v, ok := ioutil.ParseDouble(tokens[i+8])
		if !ok {
			return nil, fmt.Errorf("malformed float field %q", tokens[i+8])
		}
		floats[i] = v
	}

	b := &model.Block{
		StartOffset:   ints[0],
		Size:          ints[1],
		Count:         ints[2],
		FirstEventNum: ints[3],
		LastEventNum:  ints[4],
		FirstTime:     firstTime,
		LastTime:      lastTime,
		Min:           floats[0],
		Max:           floats[1],
		Sum:           floats[2],
		SumSqr:        floats[3],
	}
	return b, nil
}

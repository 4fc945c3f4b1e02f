// Package atomicfile implements the write-temp/fsync/rename commit
// protocol mandated by §4.6: every persisted output (sidecar index,
// rebuilt vector file) is written to a sibling temp path, fsynced and
// closed, then atomically renamed over the target.
package atomicfile

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// IOError wraps an OS-level failure during the commit protocol.
type IOError struct {
	Path string
	Op   string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("atomicfile: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ResourceError signals that no temp-file name could be allocated.
type ResourceError struct {
	Path string
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("atomicfile: exhausted temp file names for %s", e.Path)
}

// maxTempSerial bounds the search for an unused temp name (§4.6 step
// 1: "the lowest non-negative integer making the temp path not
// exist").
const maxTempSerial = 1 << 20

// TempName returns an unused sibling temp path for target, of the
// form "target.tempN" for the lowest non-negative N not already
// present on disk.
func TempName(target string) (string, error) {
	base := target + ".temp"
	for n := 0; n < maxTempSerial; n++ {
		candidate := fmt.Sprintf("%s%d", base, n)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		}
	}
	return "", &ResourceError{Path: target}
}

// Replace writes new content to target via the write-temp/fsync/
// rename protocol: write calls writeTo with an *os.File open for
// writing at a temp path; on success the temp file is fsynced and
// closed, any pre-existing target is removed, and the temp file is
// renamed into place. On any failure the temp file is removed and the
// error is returned; target is left untouched.
func Replace(target string, writeTo func(f *os.File) error) (err error) {
	tempPath, err := TempName(target)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return &IOError{Path: tempPath, Op: "create", Err: err}
	}

	defer func() {
		if err != nil {
			os.Remove(tempPath)
		}
	}()

	if err = writeTo(f); err != nil {
		f.Close()
		return err
	}

	if err = unix.Fsync(int(f.Fd())); err != nil {
		f.Close()
		return &IOError{Path: tempPath, Op: "fsync", Err: err}
	}
	if err = f.Close(); err != nil {
		return &IOError{Path: tempPath, Op: "close", Err: err}
	}

	if rmErr := os.Remove(target); rmErr != nil && !os.IsNotExist(rmErr) {
		err = &IOError{Path: target, Op: "remove", Err: rmErr}
		return err
	}

	if err = os.Rename(tempPath, target); err != nil {
		err = &IOError{Path: target, Op: "rename", Err: err}
		return err
	}

	return nil
}

// FsyncAndClose fsyncs then closes f, wrapping either failure as an
// IOError. Callers that stream into a temp file across many steps
// (the Rebuilder's dataflow-graph output, as opposed to Replace's
// single-shot writeTo) use this plus Commit instead of Replace.
func FsyncAndClose(f *os.File) error {
	if err := unix.Fsync(int(f.Fd())); err != nil {
		f.Close()
		return &IOError{Path: f.Name(), Op: "fsync", Err: err}
	}
	if err := f.Close(); err != nil {
		return &IOError{Path: f.Name(), Op: "close", Err: err}
	}
	return nil
}

// Commit performs steps 3-4 of the write-temp/fsync/rename protocol
// (§4.6) for a temp file the caller has already written and fsynced:
// remove any pre-existing target, then rename the temp file into
// place.
func Commit(tempPath, target string) error {
	if rmErr := os.Remove(target); rmErr != nil && !os.IsNotExist(rmErr) {
		return &IOError{Path: target, Op: "remove", Err: rmErr}
	}
	if err := os.Rename(tempPath, target); err != nil {
		return &IOError{Path: target, Op: "rename", Err: err}
	}
	return nil
}

// EnsureDir creates the parent directory of path if it does not
// already exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &IOError{Path: dir, Op: "mkdir", Err: err}
	}
	return nil
}

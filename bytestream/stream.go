// Package bytestream defines the narrow byte-stream capability that every
// core puffin component reads and writes through, plus three concrete
// backings: a file, an in-memory buffer, and a restricted extent view
// over a parent Stream. This replaces the C++ byte-stream interface
// hierarchy with a single small interface, per SPEC_FULL.md §5.8.
package bytestream

import (
	"io"

	"github.com/n-peugnet/puffin/perror"
)

// Stream is the capability every puffin backing store must provide: size
// and offset introspection, seeking, and ordinary byte I/O.
type Stream interface {
	io.Reader
	io.Writer
	io.Closer
	Size() (int64, error)
	Offset() (int64, error)
	Seek(offset int64) error
}

// wrapStreamIO turns an *os.File- or bytes.Reader-style error into a
// *perror.Error tagged StreamIO, leaving perror errors (from higher layers
// feeding through the same Stream implementations) untouched.
func wrapStreamIO(err error) error {
	if err == nil || err == io.EOF {
		return err
	}
	if _, ok := err.(*perror.Error); ok {
		return err
	}
	return perror.Wrap(perror.StreamIO, err, "byte stream operation failed")
}

package bytestream

import "github.com/n-peugnet/puffin/perror"

// Extent is a Stream view restricted to a fixed byte range of a parent
// Stream, used to hand the Puffer/Huffer a self-contained window onto one
// deflate sub-block without copying it out of the host stream first.
// Adapted from the teacher's track-indexed Pool view over a backing
// file descriptor.
type Extent struct {
	parent Stream
	base   int64
	length int64
	pos    int64
}

// NewExtent returns a Stream over parent restricted to [base, base+length).
func NewExtent(parent Stream, base, length int64) *Extent {
	return &Extent{parent: parent, base: base, length: length}
}

func (e *Extent) Size() (int64, error) {
	return e.length, nil
}

func (e *Extent) Offset() (int64, error) {
	return e.pos, nil
}

func (e *Extent) Seek(offset int64) error {
	if offset < 0 || offset > e.length {
		return perror.New(perror.InvalidInput, "seek out of extent range")
	}
	if err := e.parent.Seek(e.base + offset); err != nil {
		return err
	}
	e.pos = offset
	return nil
}

func (e *Extent) Read(p []byte) (int, error) {
	if e.pos >= e.length {
		return 0, perror.New(perror.InsufficientInput, "read past end of extent")
	}
	if err := e.parent.Seek(e.base + e.pos); err != nil {
		return 0, err
	}
	remain := e.length - e.pos
	if int64(len(p)) > remain {
		p = p[:remain]
	}
	n, err := e.parent.Read(p)
	e.pos += int64(n)
	return n, err
}

func (e *Extent) Write(p []byte) (int, error) {
	remain := e.length - e.pos
	if int64(len(p)) > remain {
		return 0, perror.New(perror.InsufficientOutput, "write past end of extent")
	}
	if err := e.parent.Seek(e.base + e.pos); err != nil {
		return 0, err
	}
	n, err := e.parent.Write(p)
	e.pos += int64(n)
	return n, err
}

func (e *Extent) Close() error {
	return nil
}

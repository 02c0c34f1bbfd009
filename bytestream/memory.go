package bytestream

import "github.com/n-peugnet/puffin/perror"

// Memory is a Stream backed by an in-memory byte slice that grows on
// write, matching the in-memory backing named in SPEC_FULL.md §5.8.
type Memory struct {
	buf []byte
	pos int64
}

// NewMemory returns a Memory stream seeded with the contents of buf (not
// copied; callers that need an independent copy should clone buf first).
func NewMemory(buf []byte) *Memory {
	return &Memory{buf: buf}
}

// Bytes returns the stream's current backing slice.
func (m *Memory) Bytes() []byte {
	return m.buf
}

func (m *Memory) Size() (int64, error) {
	return int64(len(m.buf)), nil
}

func (m *Memory) Offset() (int64, error) {
	return m.pos, nil
}

func (m *Memory) Seek(offset int64) error {
	if offset < 0 || offset > int64(len(m.buf)) {
		return perror.New(perror.InvalidInput, "seek out of range")
	}
	m.pos = offset
	return nil
}

func (m *Memory) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.buf)) {
		return 0, perror.New(perror.InsufficientInput, "read past end of memory stream")
	}
	n := copy(p, m.buf[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *Memory) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	n := copy(m.buf[m.pos:end], p)
	m.pos += int64(n)
	return n, nil
}

func (m *Memory) Close() error {
	return nil
}

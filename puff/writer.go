package puff

import "github.com/n-peugnet/puffin/perror"

// Writer accumulates Records into a byte buffer using the compact,
// diff-friendly encoding of wire.go, auto-coalescing individual literal
// inserts into Literals runs.
//
// Constructing with a nil buf puts the Writer into discovery mode: it
// never reports InsufficientOutput, just counts the bytes a real buffer
// would need (Size()). This is how callers implement the
// null-sink-then-allocate pattern described in SPEC_FULL.md §5.2.
type Writer struct {
	buf       []byte
	pos       int
	discovery bool
	pending   []byte
}

// NewWriter returns a Writer that fills buf from the start, or a discovery
// writer if buf is nil.
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf, discovery: buf == nil}
}

// Size returns the number of bytes written (or, in discovery mode, the
// number of bytes a real buffer would need) so far. Any pending
// coalescing literals are not yet counted until flushed by the next
// non-literal Put call.
func (w *Writer) Size() int {
	return w.pos
}

func (w *Writer) emit(b []byte) error {
	if !w.discovery {
		if w.pos+len(b) > len(w.buf) {
			return perror.New(perror.InsufficientOutput, "puff writer buffer exhausted")
		}
		copy(w.buf[w.pos:], b)
	}
	w.pos += len(b)
	return nil
}

func (w *Writer) flushPending() error {
	if len(w.pending) == 0 {
		return nil
	}
	data := w.pending
	w.pending = nil
	n := len(data)
	if n <= shortLiteralCap {
		if err := w.emit([]byte{tagLiteralsShort, byte(n)}); err != nil {
			return err
		}
	} else {
		if err := w.emit([]byte{tagLiteralsLong, byte(n >> 8), byte(n)}); err != nil {
			return err
		}
	}
	return w.emit(data)
}

// PutLiteral appends a single literal byte, coalescing it into the
// in-flight Literals run.
func (w *Writer) PutLiteral(b byte) error {
	return w.PutLiterals([]byte{b})
}

// PutLiterals appends a run of literal bytes, coalescing with any
// in-flight run and splitting automatically at the 65535-byte cap.
func (w *Writer) PutLiterals(data []byte) error {
	for len(data) > 0 {
		room := maxLiteralsRun - len(w.pending)
		take := room
		if take > len(data) {
			take = len(data)
		}
		w.pending = append(w.pending, data[:take]...)
		data = data[take:]
		if len(w.pending) == maxLiteralsRun {
			if err := w.flushPending(); err != nil {
				return err
			}
		}
	}
	return nil
}

// PutBlockMetadata flushes any pending literals and writes a BlockMetadata
// record. payload must have length in [1, 138].
func (w *Writer) PutBlockMetadata(payload []byte) error {
	if len(payload) == 0 || len(payload) > 138 {
		return perror.New(perror.InvalidInput, "BlockMetadata length out of range")
	}
	if err := w.flushPending(); err != nil {
		return err
	}
	if err := w.emit([]byte{tagBlockMetadata, byte(len(payload))}); err != nil {
		return err
	}
	return w.emit(payload)
}

// PutLenDist flushes any pending literals and writes a LenDist record.
func (w *Writer) PutLenDist(length, distance int) error {
	if length < 3 || length > 258 {
		return perror.New(perror.InvalidInput, "LenDist length out of range")
	}
	if distance < 1 || distance > 32768 {
		return perror.New(perror.InvalidInput, "LenDist distance out of range")
	}
	if err := w.flushPending(); err != nil {
		return err
	}
	if length <= shortLenDistCap {
		if err := w.emit([]byte{tagLenDistShort, byte(length)}); err != nil {
			return err
		}
	} else {
		if err := w.emit([]byte{tagLenDistLong, byte(length >> 8), byte(length)}); err != nil {
			return err
		}
	}
	return w.emit([]byte{byte(distance >> 8), byte(distance)})
}

// PutEndOfBlock flushes any pending literals and writes an EndOfBlock
// record.
func (w *Writer) PutEndOfBlock(trailing byte) error {
	if err := w.flushPending(); err != nil {
		return err
	}
	return w.emit([]byte{tagEndOfBlock, trailing})
}

package puff

import (
	"io"

	"github.com/n-peugnet/puffin/perror"
)

// Reader iterates puff Records out of a byte buffer in encoding order.
type Reader struct {
	buf []byte
	pos int
}

// NewReader returns a Reader over buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int {
	return r.pos
}

func (r *Reader) readByte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, perror.New(perror.InsufficientInput, "truncated puff record")
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *Reader) readN(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, perror.New(perror.InsufficientInput, "truncated puff record payload")
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *Reader) readUint16() (int, error) {
	b, err := r.readN(2)
	if err != nil {
		return 0, err
	}
	return int(b[0])<<8 | int(b[1]), nil
}

// Next decodes the next Record. It returns io.EOF when the buffer has been
// fully consumed at a record boundary.
func (r *Reader) Next() (*Record, error) {
	if r.pos >= len(r.buf) {
		return nil, io.EOF
	}
	tag, err := r.readByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagBlockMetadata:
		length, err := r.readByte()
		if err != nil {
			return nil, err
		}
		if length == 0 || int(length) > 138 {
			return nil, perror.New(perror.InvalidInput, "BlockMetadata length out of range")
		}
		payload, err := r.readN(int(length))
		if err != nil {
			return nil, err
		}
		return &Record{Kind: KindBlockMetadata, Metadata: append([]byte(nil), payload...)}, nil

	case tagLiteralsShort, tagLiteralsLong:
		var length int
		if tag == tagLiteralsShort {
			b, err := r.readByte()
			if err != nil {
				return nil, err
			}
			length = int(b)
		} else {
			length, err = r.readUint16()
			if err != nil {
				return nil, err
			}
		}
		if length == 0 || length > maxLiteralsRun {
			return nil, perror.New(perror.InvalidInput, "Literals length out of range")
		}
		payload, err := r.readN(length)
		if err != nil {
			return nil, err
		}
		return &Record{Kind: KindLiterals, Literals: append([]byte(nil), payload...)}, nil

	case tagLenDistShort, tagLenDistLong:
		var length int
		if tag == tagLenDistShort {
			b, err := r.readByte()
			if err != nil {
				return nil, err
			}
			length = int(b)
		} else {
			length, err = r.readUint16()
			if err != nil {
				return nil, err
			}
		}
		distance, err := r.readUint16()
		if err != nil {
			return nil, err
		}
		if length < 3 || length > 258 {
			return nil, perror.New(perror.InvalidInput, "LenDist length out of range")
		}
		if distance < 1 || distance > 32768 {
			return nil, perror.New(perror.InvalidInput, "LenDist distance out of range")
		}
		return &Record{Kind: KindLenDist, Length: length, Distance: distance}, nil

	case tagEndOfBlock:
		b, err := r.readByte()
		if err != nil {
			return nil, err
		}
		return &Record{Kind: KindEndOfBlock, Trailing: b}, nil

	default:
		return nil, perror.New(perror.InvalidInput, "unknown puff record tag")
	}
}

// Package bitio implements LSB-first bit I/O over in-memory byte buffers,
// matching the DEFLATE bit-packing conventions of RFC 1951.
package bitio

import "github.com/n-peugnet/puffin/perror"

// Reader reads bits least-significant-bit first from a byte buffer.
type Reader struct {
	buf          []byte
	pos          int    // index of the next byte not yet pulled into cache
	cache        uint64 // bits already pulled from buf, LSB-aligned
	nbits        uint   // number of valid bits currently in cache
	consumedBits uint64 // total number of bits dropped so far
}

// NewReader returns a Reader over buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// CacheBits ensures at least n bits (n <= 32) are available to ReadBits
// without advancing the reader.
func (r *Reader) CacheBits(n uint) error {
	for r.nbits < n {
		if r.pos >= len(r.buf) {
			return perror.New(perror.InsufficientInput, "not enough bits to cache")
		}
		r.cache |= uint64(r.buf[r.pos]) << r.nbits
		r.pos++
		r.nbits += 8
	}
	return nil
}

// ReadBits returns the next n cached bits as an unsigned integer without
// advancing the reader. CacheBits(n) must have succeeded first.
func (r *Reader) ReadBits(n uint) uint32 {
	if n == 0 {
		return 0
	}
	return uint32(r.cache & ((uint64(1) << n) - 1))
}

// DropBits advances past n previously cached bits.
func (r *Reader) DropBits(n uint) {
	r.cache >>= n
	r.nbits -= n
	r.consumedBits += uint64(n)
}

// ReadBoundaryBits returns the number of bits remaining in the current
// partially-consumed byte, without advancing the reader.
func (r *Reader) ReadBoundaryBits() uint {
	rem := uint(r.consumedBits % 8)
	if rem == 0 {
		return 0
	}
	return 8 - rem
}

// SkipBoundaryBits advances exactly n bits, forcing the stream back onto a
// byte boundary. n should be the value previously returned by
// ReadBoundaryBits. CacheBits(n) must have succeeded first.
func (r *Reader) SkipBoundaryBits(n uint) {
	r.DropBits(n)
}

// Offset returns the current byte offset past the last fully consumed
// byte.
func (r *Reader) Offset() int64 {
	return int64(r.consumedBits / 8)
}

// BitOffset returns the total number of bits consumed so far, for callers
// (e.g. puff.PuffDeflateBlocks and locate.subBlocks) that need bit-precise sub-block
// extents rather than byte offsets.
func (r *Reader) BitOffset() int64 {
	return int64(r.consumedBits)
}

// ByteReader is the one-shot callable handed out by GetByteReader; it
// copies raw, byte-aligned bytes from the underlying buffer into dst and
// may be invoked exactly once.
type ByteReader func(dst []byte) (int, error)

// GetByteReader hands out a ByteReader that copies length byte-aligned raw
// bytes from the underlying buffer. The reader must currently be
// byte-aligned (consumedBits % 8 == 0).
func (r *Reader) GetByteReader(length int) (ByteReader, error) {
	if r.consumedBits%8 != 0 {
		return nil, perror.New(perror.InvalidInput, "byte reader requested on unaligned boundary")
	}
	if r.nbits%8 != 0 {
		return nil, perror.New(perror.InvalidInput, "cache holds a partial byte")
	}
	used := false
	return func(dst []byte) (int, error) {
		if used {
			return 0, perror.New(perror.InvalidInput, "byte reader already drained")
		}
		used = true
		if len(dst) < length {
			return 0, perror.New(perror.InvalidInput, "destination smaller than requested length")
		}
		n := 0
		for n < length && r.nbits > 0 {
			dst[n] = byte(r.cache)
			r.cache >>= 8
			r.nbits -= 8
			r.consumedBits += 8
			n++
		}
		remain := length - n
		if remain > 0 {
			if r.pos+remain > len(r.buf) {
				return n, perror.New(perror.InsufficientInput, "not enough bytes for byte reader")
			}
			copy(dst[n:length], r.buf[r.pos:r.pos+remain])
			r.pos += remain
			r.consumedBits += uint64(remain) * 8
		}
		return length, nil
	}, nil
}

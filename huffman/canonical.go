package huffman

import "github.com/n-peugnet/puffin/perror"

// canonicalTable is a decode/encode pair built from a code-length array by
// the canonical Huffman assignment of RFC 1951 §3.2.2. The same lengths
// array deterministically produces the same codes everywhere, which is what
// lets the dynamic code-length alphabet be rebuilt from scratch (see
// table.go) while the literal/length and distance alphabets are instead
// carried verbatim through a re-serialized preamble.
type canonicalTable struct {
	lengths []int // per symbol, 0 if unused
	codes   []uint16
	decode  []uint32 // indexed by the low maxBits reversed-code bits
	maxBits uint
}

// buildCanonical assigns canonical codes to lengths and builds both the
// encode (codes[]) and decode (decode[]) sides.
func buildCanonical(lengths []int) *canonicalTable {
	t := &canonicalTable{lengths: lengths}
	t.codes = assignCanonicalCodes(lengths)
	t.decode, t.maxBits = buildDecodeTable(lengths, t.codes)
	return t
}

// assignCanonicalCodes implements the RFC 1951 §3.2.2 algorithm.
func assignCanonicalCodes(lengths []int) []uint16 {
	var blCount [maxCodeBits + 1]int
	for _, l := range lengths {
		if l > 0 {
			blCount[l]++
		}
	}
	var nextCode [maxCodeBits + 2]int
	code := 0
	for bits := 1; bits <= maxCodeBits; bits++ {
		code = (code + blCount[bits-1]) << 1
		nextCode[bits] = code
	}
	codes := make([]uint16, len(lengths))
	for sym, l := range lengths {
		if l > 0 {
			codes[sym] = uint16(nextCode[l])
			nextCode[l]++
		}
	}
	return codes
}

// reverseBits reverses the low n bits of v.
func reverseBits(v uint32, n uint) uint32 {
	var r uint32
	for i := uint(0); i < n; i++ {
		r = (r << 1) | (v & 1)
		v >>= 1
	}
	return r
}

// buildDecodeTable builds a flat table indexed by the next maxBits bits as
// they come out of a bitio.Reader (i.e. bit-reversed relative to the
// MSB-first code values RFC 1951 defines), packing (symbol<<5)|length into
// each entry. A zero entry means "no code of this pattern", which is safe
// because no valid code has length 0.
func buildDecodeTable(lengths []int, codes []uint16) ([]uint32, uint) {
	maxBits := 0
	for _, l := range lengths {
		if l > maxBits {
			maxBits = l
		}
	}
	if maxBits == 0 {
		return nil, 0
	}
	size := 1 << uint(maxBits)
	table := make([]uint32, size)
	for sym, l := range lengths {
		if l == 0 {
			continue
		}
		rev := reverseBits(uint32(codes[sym]), uint(l))
		entry := uint32(sym)<<5 | uint32(l)
		step := uint32(1) << uint(l)
		for idx := rev; idx < uint32(size); idx += step {
			table[idx] = entry
		}
	}
	return table, uint(maxBits)
}

// decodeBits looks up the symbol encoded by the low t.maxBits bits of bits,
// which the caller obtained via bitio.Reader.ReadBits(t.maxBits) (it is fine
// for fewer than maxBits to have actually been validly cached, as long as
// at least as many bits as the resolved code's length were cached: every
// entry covering a given low-bits pattern agrees regardless of the
// uncached, zero-filled high bits).
func (t *canonicalTable) decodeBits(bits uint32) (symbol uint16, nbits uint, err error) {
	if t.maxBits == 0 {
		return 0, 0, perror.New(perror.InvalidInput, "huffman table has no codes")
	}
	entry := t.decode[bits&((1<<t.maxBits)-1)]
	nbits = uint(entry & 0x1F)
	if nbits == 0 {
		return 0, 0, perror.New(perror.InvalidInput, "no huffman code matches the next bits")
	}
	return uint16(entry >> 5), nbits, nil
}

// encode returns the bit-reversed code and length ready to feed directly
// into bitio.Writer.WriteBits, so that the first bit the writer flushes is
// the code's most-significant bit as RFC 1951 §3.2.2 requires.
func (t *canonicalTable) encode(symbol uint16) (codeBits uint32, nbits uint, ok bool) {
	if int(symbol) >= len(t.lengths) || t.lengths[symbol] == 0 {
		return 0, 0, false
	}
	l := uint(t.lengths[symbol])
	return reverseBits(uint32(t.codes[symbol]), l), l, true
}

// Package huffman builds the canonical Huffman decode and encode tables
// that back a single deflate block: the fixed tables of RFC 1951 §3.2.6,
// and the dynamic tables of §3.2.7 whose preamble bits a Table can
// re-serialize byte-aligned (for the Puffer) and later replay verbatim (for
// the Huffer) so that the same tree is never independently reconstructed
// twice from the same bits.
package huffman

import (
	"github.com/n-peugnet/puffin/bitio"
	"github.com/n-peugnet/puffin/perror"
)

// Table holds the literal/length and distance alphabets currently in
// effect for one deflate block. The code-length alphabet of a dynamic
// preamble is built inside parseDynamicHeader and is not kept here.
type Table struct {
	litLen   *canonicalTable
	distance *canonicalTable
}

// BuildFixed constructs the RFC 1951 §3.2.6 fixed tables.
func BuildFixed() *Table {
	litLenLengths := make([]int, NumLitLenSymbols)
	for i := 0; i <= 143; i++ {
		litLenLengths[i] = 8
	}
	for i := 144; i <= 255; i++ {
		litLenLengths[i] = 9
	}
	for i := 256; i <= 279; i++ {
		litLenLengths[i] = 7
	}
	for i := 280; i <= 287; i++ {
		litLenLengths[i] = 8
	}
	distLengths := make([]int, NumDistSymbols)
	for i := 0; i <= 29; i++ {
		distLengths[i] = 5
	}
	return &Table{
		litLen:   buildCanonical(litLenLengths),
		distance: buildCanonical(distLengths),
	}
}

// LitLenMaxBits returns the longest literal/length code currently in
// effect; callers must CacheBits at least this many bits before calling
// LitLenAlphabet (falling back to EndOfBlockBitLength at end of stream).
func (t *Table) LitLenMaxBits() uint {
	return t.litLen.maxBits
}

// DistanceMaxBits returns the longest distance code currently in effect.
func (t *Table) DistanceMaxBits() uint {
	return t.distance.maxBits
}

// EndOfBlockBitLength returns the bit length of the end-of-block symbol
// (256) in the current literal/length table.
func (t *Table) EndOfBlockBitLength() (uint, error) {
	if int(256) >= len(t.litLen.lengths) || t.litLen.lengths[256] == 0 {
		return 0, perror.New(perror.InvalidInput, "current table has no end-of-block code")
	}
	return uint(t.litLen.lengths[256]), nil
}

// LitLenAlphabet decodes the literal/length symbol encoded by bits, which
// the caller obtained via ReadBits(LitLenMaxBits()) (or fewer, at end of
// stream, per EndOfBlockBitLength). The caller must DropBits(nbits).
func (t *Table) LitLenAlphabet(bits uint32) (symbol uint16, nbits uint, err error) {
	return t.litLen.decodeBits(bits)
}

// DistanceAlphabet decodes the distance symbol encoded by bits.
func (t *Table) DistanceAlphabet(bits uint32) (symbol uint16, nbits uint, err error) {
	return t.distance.decodeBits(bits)
}

// LitLenHuffman returns the bit-reversed code and length for symbol, ready
// to pass to bitio.Writer.WriteBits.
func (t *Table) LitLenHuffman(symbol uint16) (codeBits uint32, nbits uint, err error) {
	codeBits, nbits, ok := t.litLen.encode(symbol)
	if !ok {
		return 0, 0, perror.New(perror.InvalidInput, "symbol has no code in the current lit/len table")
	}
	return codeBits, nbits, nil
}

// DistanceHuffman returns the bit-reversed code and length for a distance
// symbol.
func (t *Table) DistanceHuffman(symbol uint16) (codeBits uint32, nbits uint, err error) {
	codeBits, nbits, ok := t.distance.encode(symbol)
	if !ok {
		return 0, 0, perror.New(perror.InvalidInput, "symbol has no code in the current distance table")
	}
	return codeBits, nbits, nil
}

// mirrorWriteBits writes n bits of value to w if w is non-nil; a nil
// mirror is a no-op, letting parseDynamicHeader serve both directions (see
// BuildDynamicFromBits and BuildDynamicFromPreamble) with one code path.
func mirrorWriteBits(w *bitio.Writer, n uint, value uint32) error {
	if w == nil {
		return nil
	}
	return w.WriteBits(n, value)
}

// parseDynamicHeader parses a dynamic block preamble from br (RFC 1951
// §3.2.7), returning the decoded literal/length and distance code-length
// arrays. If mirror is non-nil, every bit consumed from br is immediately
// re-encoded with the (deterministically rebuilt) code-length canonical
// table and written to mirror, producing a bit-identical copy of the
// preamble regardless of whether br reads the original compressed stream
// (BuildDynamicFromBits, mirror = scratch buffer) or a previously captured
// preamble buffer (BuildDynamicFromPreamble, mirror = the real output
// stream).
func parseDynamicHeader(br *bitio.Reader, mirror *bitio.Writer) (litLenLengths, distLengths []int, err error) {
	if err := br.CacheBits(5); err != nil {
		return nil, nil, err
	}
	hlit := br.ReadBits(5)
	br.DropBits(5)
	if err := mirrorWriteBits(mirror, 5, hlit); err != nil {
		return nil, nil, err
	}

	if err := br.CacheBits(5); err != nil {
		return nil, nil, err
	}
	hdist := br.ReadBits(5)
	br.DropBits(5)
	if err := mirrorWriteBits(mirror, 5, hdist); err != nil {
		return nil, nil, err
	}

	if err := br.CacheBits(4); err != nil {
		return nil, nil, err
	}
	hclen := br.ReadBits(4)
	br.DropBits(4)
	if err := mirrorWriteBits(mirror, 4, hclen); err != nil {
		return nil, nil, err
	}

	numCodeLenCodes := int(hclen) + 4
	clcLengths := make([]int, NumCodeLenSymbols)
	for i := 0; i < numCodeLenCodes; i++ {
		if err := br.CacheBits(3); err != nil {
			return nil, nil, err
		}
		v := br.ReadBits(3)
		br.DropBits(3)
		if err := mirrorWriteBits(mirror, 3, v); err != nil {
			return nil, nil, err
		}
		clcLengths[codeLengthOrder[i]] = int(v)
	}
	codeLenTable := buildCanonical(clcLengths)
	if codeLenTable.maxBits == 0 {
		return nil, nil, perror.New(perror.InvalidInput, "dynamic preamble has an empty code-length alphabet")
	}

	numLitLen := int(hlit) + 257
	numDist := int(hdist) + 1
	total := numLitLen + numDist
	lengths := make([]int, 0, total)
	for len(lengths) < total {
		if err := br.CacheBits(codeLenTable.maxBits); err != nil {
			return nil, nil, err
		}
		sym, nbits, err := codeLenTable.decodeBits(br.ReadBits(codeLenTable.maxBits))
		if err != nil {
			return nil, nil, err
		}
		br.DropBits(nbits)
		codeBits, _, ok := codeLenTable.encode(sym)
		if !ok {
			return nil, nil, perror.New(perror.InvalidInput, "code-length symbol has no canonical code")
		}
		if err := mirrorWriteBits(mirror, nbits, codeBits); err != nil {
			return nil, nil, err
		}

		switch {
		case sym <= 15:
			lengths = append(lengths, int(sym))
		case sym == 16:
			if len(lengths) == 0 {
				return nil, nil, perror.New(perror.InvalidInput, "repeat-previous code with no previous code length")
			}
			if err := br.CacheBits(2); err != nil {
				return nil, nil, err
			}
			extra := br.ReadBits(2)
			br.DropBits(2)
			if err := mirrorWriteBits(mirror, 2, extra); err != nil {
				return nil, nil, err
			}
			prev := lengths[len(lengths)-1]
			for i := 0; i < int(extra)+3; i++ {
				lengths = append(lengths, prev)
			}
		case sym == 17:
			if err := br.CacheBits(3); err != nil {
				return nil, nil, err
			}
			extra := br.ReadBits(3)
			br.DropBits(3)
			if err := mirrorWriteBits(mirror, 3, extra); err != nil {
				return nil, nil, err
			}
			for i := 0; i < int(extra)+3; i++ {
				lengths = append(lengths, 0)
			}
		case sym == 18:
			if err := br.CacheBits(7); err != nil {
				return nil, nil, err
			}
			extra := br.ReadBits(7)
			br.DropBits(7)
			if err := mirrorWriteBits(mirror, 7, extra); err != nil {
				return nil, nil, err
			}
			for i := 0; i < int(extra)+11; i++ {
				lengths = append(lengths, 0)
			}
		default:
			return nil, nil, perror.New(perror.InvalidInput, "code-length alphabet produced an out-of-range symbol")
		}
	}
	if len(lengths) != total {
		return nil, nil, perror.New(perror.InvalidInput, "dynamic preamble code length run overshot its declared count")
	}
	return lengths[:numLitLen], lengths[numLitLen:], nil
}

// BuildDynamicFromBits parses a dynamic preamble from br (the real deflate
// bitstream being puffed) and returns both the resulting Table and a
// byte-aligned, re-serialized copy of the preamble bits suitable for
// storing in a BlockMetadata record. Passing that copy back through
// BuildDynamicFromPreamble later reproduces the exact original bits.
func BuildDynamicFromBits(br *bitio.Reader) (*Table, []byte, error) {
	scratch := make([]byte, MaxPreambleBytes)
	bw := bitio.NewWriter(scratch)
	litLenLengths, distLengths, err := parseDynamicHeader(br, bw)
	if err != nil {
		return nil, nil, err
	}
	if err := bw.Flush(); err != nil {
		return nil, nil, err
	}
	preamble := make([]byte, bw.Size())
	copy(preamble, scratch[:bw.Size()])
	return &Table{
		litLen:   buildCanonical(litLenLengths),
		distance: buildCanonical(distLengths),
	}, preamble, nil
}

// BuildDynamicFromPreamble replays a preamble captured by
// BuildDynamicFromBits, writing its exact original bits into bw (the real
// deflate bitstream being huffed) and returning the Table those bits
// describe.
func BuildDynamicFromPreamble(preamble []byte, bw *bitio.Writer) (*Table, error) {
	br := bitio.NewReader(preamble)
	litLenLengths, distLengths, err := parseDynamicHeader(br, bw)
	if err != nil {
		return nil, err
	}
	return &Table{
		litLen:   buildCanonical(litLenLengths),
		distance: buildCanonical(distLengths),
	}, nil
}

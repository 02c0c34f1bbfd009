package puff

import (
	"github.com/n-peugnet/puffin/bitio"
	"github.com/n-peugnet/puffin/extent"
	"github.com/n-peugnet/puffin/huffman"
	"github.com/n-peugnet/puffin/perror"
)

// PuffDeflate decodes one or more deflate blocks from br, writing the
// equivalent puff records to pw, until a block with its final bit set has
// been consumed.
func PuffDeflate(br *bitio.Reader, pw *Writer) error {
	return PuffDeflateBlocks(br, pw, nil)
}

// PuffDeflateBlocks behaves like PuffDeflate, additionally invoking onBlock
// with the precise BitExtent of each deflate block as it is consumed. It is
// the basis for locate.subBlocks, which needs per-block bit
// ranges rather than just the fully-decoded puff stream.
func PuffDeflateBlocks(br *bitio.Reader, pw *Writer, onBlock func(extent.BitExtent)) error {
	for {
		blockStart := br.BitOffset()
		if err := br.CacheBits(3); err != nil {
			return err
		}
		bits := br.ReadBits(3)
		br.DropBits(3)
		final := bits&1 != 0
		blockType := int(bits>>1) & 0x3

		reportBlock := func() {
			if onBlock != nil {
				onBlock(extent.BitExtent{Offset: blockStart, Length: br.BitOffset() - blockStart})
			}
		}

		switch blockType {
		case BlockTypeStored:
			if err := puffStoredBlock(br, pw, final); err != nil {
				return err
			}
			reportBlock()
			if final {
				return nil
			}
			continue

		case BlockTypeFixed:
			table := huffman.BuildFixed()
			header := PackBlockHeader(final, blockType, 0)
			if err := pw.PutBlockMetadata([]byte{header}); err != nil {
				return err
			}
			if err := puffSymbolLoop(br, pw, table, final); err != nil {
				return err
			}

		case BlockTypeDynamic:
			table, preamble, err := huffman.BuildDynamicFromBits(br)
			if err != nil {
				return err
			}
			header := PackBlockHeader(final, blockType, 0)
			metadata := make([]byte, 0, 1+len(preamble))
			metadata = append(metadata, header)
			metadata = append(metadata, preamble...)
			if err := pw.PutBlockMetadata(metadata); err != nil {
				return err
			}
			if err := puffSymbolLoop(br, pw, table, final); err != nil {
				return err
			}

		default:
			return perror.New(perror.InvalidInput, "reserved deflate block type")
		}

		reportBlock()
		if final {
			return nil
		}
	}
}

func puffStoredBlock(br *bitio.Reader, pw *Writer, final bool) error {
	skip := br.ReadBoundaryBits()
	br.SkipBoundaryBits(skip)
	header := PackBlockHeader(final, BlockTypeStored, int(skip))

	if err := br.CacheBits(32); err != nil {
		return err
	}
	length := br.ReadBits(16)
	br.DropBits(16)
	nlength := br.ReadBits(16)
	br.DropBits(16)
	if length^nlength != 0xFFFF {
		return perror.New(perror.InvalidInput, "stored block LEN/NLEN mismatch")
	}

	if err := pw.PutBlockMetadata([]byte{header}); err != nil {
		return err
	}

	readFn, err := br.GetByteReader(int(length))
	if err != nil {
		return err
	}
	payload := make([]byte, length)
	n, err := readFn(payload)
	if err != nil {
		return err
	}
	if n != int(length) {
		return perror.New(perror.InsufficientInput, "short read of stored block payload")
	}
	if length > 0 {
		if err := pw.PutLiterals(payload); err != nil {
			return err
		}
	}
	return pw.PutEndOfBlock(0)
}

// decodeLitLen decodes the next literal/length symbol, falling back to the
// shorter end-of-block code length when fewer bits remain in the stream
// than the table's longest code requires (see
// huffman.Table.EndOfBlockBitLength).
func decodeLitLen(br *bitio.Reader, table *huffman.Table) (symbol uint16, nbits uint, err error) {
	maxBits := table.LitLenMaxBits()
	if cacheErr := br.CacheBits(maxBits); cacheErr == nil {
		return table.LitLenAlphabet(br.ReadBits(maxBits))
	} else {
		eobBits, eobErr := table.EndOfBlockBitLength()
		if eobErr != nil {
			return 0, 0, cacheErr
		}
		if err := br.CacheBits(eobBits); err != nil {
			return 0, 0, cacheErr
		}
		symbol, nbits, decErr := table.LitLenAlphabet(br.ReadBits(eobBits))
		if decErr != nil || symbol != 256 {
			return 0, 0, cacheErr
		}
		return symbol, nbits, nil
	}
}

func puffSymbolLoop(br *bitio.Reader, pw *Writer, table *huffman.Table, final bool) error {
	for {
		symbol, nbits, err := decodeLitLen(br, table)
		if err != nil {
			return err
		}
		br.DropBits(nbits)

		switch {
		case symbol < 256:
			if err := pw.PutLiteral(byte(symbol)); err != nil {
				return err
			}

		case symbol == 256:
			var trailing byte
			if final {
				tb := br.ReadBoundaryBits()
				br.SkipBoundaryBits(tb)
				trailing = byte(tb)
			}
			return pw.PutEndOfBlock(trailing)

		case symbol <= 285:
			idx := symbol - 257
			extraBits := uint(huffman.LengthExtraBits[idx])
			if err := br.CacheBits(extraBits); err != nil {
				return err
			}
			extra := br.ReadBits(extraBits)
			br.DropBits(extraBits)
			length := int(huffman.LengthBase[idx]) + int(extra)

			if err := br.CacheBits(table.DistanceMaxBits()); err != nil {
				return err
			}
			distSym, distNbits, err := table.DistanceAlphabet(br.ReadBits(table.DistanceMaxBits()))
			if err != nil {
				return err
			}
			br.DropBits(distNbits)
			if int(distSym) >= len(huffman.DistanceBase) {
				return perror.New(perror.InvalidInput, "distance symbol out of range")
			}
			distExtraBits := uint(huffman.DistanceExtraBits[distSym])
			if err := br.CacheBits(distExtraBits); err != nil {
				return err
			}
			distExtra := br.ReadBits(distExtraBits)
			br.DropBits(distExtraBits)
			distance := int(huffman.DistanceBase[distSym]) + int(distExtra)

			if err := pw.PutLenDist(length, distance); err != nil {
				return err
			}

		default:
			return perror.New(perror.InvalidInput, "lit/len symbol out of range")
		}
	}
}

package puff

import (
	"io"

	"github.com/n-peugnet/puffin/bitio"
	"github.com/n-peugnet/puffin/huffman"
	"github.com/n-peugnet/puffin/perror"
)

// HuffDeflate reconstructs deflate bits from the puff records read off pr,
// writing them to bw, until the block with its final bit set has been
// written and the output flushed.
func HuffDeflate(pr *Reader, bw *bitio.Writer) error {
	for {
		rec, err := pr.Next()
		if err != nil {
			if err == io.EOF {
				return perror.New(perror.InsufficientInput, "expected a BlockMetadata record")
			}
			return err
		}
		if rec.Kind != KindBlockMetadata {
			return perror.New(perror.InvalidInput, "expected a BlockMetadata record")
		}
		final, blockType, skipBits := UnpackBlockHeader(rec.Metadata[0])
		if err := bw.WriteBits(1, boolToBit(final)); err != nil {
			return err
		}
		if err := bw.WriteBits(2, uint32(blockType)); err != nil {
			return err
		}

		var table *huffman.Table
		uncompressed := false
		switch blockType {
		case BlockTypeStored:
			if err := bw.WriteBoundaryBits(uint(skipBits)); err != nil {
				return err
			}
			uncompressed = true
		case BlockTypeFixed:
			table = huffman.BuildFixed()
		case BlockTypeDynamic:
			table, err = huffman.BuildDynamicFromPreamble(rec.Metadata[1:], bw)
			if err != nil {
				return err
			}
		default:
			return perror.New(perror.InvalidInput, "BlockMetadata carries an invalid block type")
		}

		wroteLen := false
		for {
			rec, err := pr.Next()
			if err != nil {
				if err == io.EOF {
					return perror.New(perror.InsufficientInput, "puff stream ended mid-block")
				}
				return err
			}
			switch rec.Kind {
			case KindLiterals:
				if uncompressed {
					if wroteLen {
						return perror.New(perror.InvalidInput, "stored block carries more than one Literals record")
					}
					if err := writeStoredHeader(bw, len(rec.Literals)); err != nil {
						return err
					}
					wroteLen = true
					data := rec.Literals
					if err := bw.WriteBytes(len(data), func(dst []byte) (int, error) {
						return copy(dst, data), nil
					}); err != nil {
						return err
					}
				} else {
					for _, b := range rec.Literals {
						codeBits, nbits, err := table.LitLenHuffman(uint16(b))
						if err != nil {
							return err
						}
						if err := bw.WriteBits(nbits, codeBits); err != nil {
							return err
						}
					}
				}

			case KindLenDist:
				if uncompressed {
					return perror.New(perror.InvalidInput, "LenDist record inside a stored block")
				}
				if err := huffLenDist(bw, table, rec.Length, rec.Distance); err != nil {
					return err
				}

			case KindEndOfBlock:
				if uncompressed && !wroteLen {
					if err := writeStoredHeader(bw, 0); err != nil {
						return err
					}
				}
				if !uncompressed {
					codeBits, nbits, err := table.LitLenHuffman(256)
					if err != nil {
						return err
					}
					if err := bw.WriteBits(nbits, codeBits); err != nil {
						return err
					}
				}
				if final {
					if err := bw.WriteBoundaryBits(uint(rec.Trailing)); err != nil {
						return err
					}
				}
				goto blockDone

			default:
				return perror.New(perror.InvalidInput, "unexpected record kind inside a block")
			}
		}
	blockDone:
		if final {
			return bw.Flush()
		}
	}
}

func writeStoredHeader(bw *bitio.Writer, length int) error {
	if err := bw.WriteBits(16, uint32(length)); err != nil {
		return err
	}
	return bw.WriteBits(16, uint32(^uint16(length)))
}

func huffLenDist(bw *bitio.Writer, table *huffman.Table, length, distance int) error {
	lenIdx, err := findLengthIndex(length)
	if err != nil {
		return err
	}
	codeBits, nbits, err := table.LitLenHuffman(uint16(257 + lenIdx))
	if err != nil {
		return err
	}
	if err := bw.WriteBits(nbits, codeBits); err != nil {
		return err
	}
	extraBits := uint(huffman.LengthExtraBits[lenIdx])
	extra := uint32(length - int(huffman.LengthBase[lenIdx]))
	if err := bw.WriteBits(extraBits, extra); err != nil {
		return err
	}

	distIdx, err := findDistanceIndex(distance)
	if err != nil {
		return err
	}
	distCodeBits, distNbits, err := table.DistanceHuffman(uint16(distIdx))
	if err != nil {
		return err
	}
	if err := bw.WriteBits(distNbits, distCodeBits); err != nil {
		return err
	}
	distExtraBits := uint(huffman.DistanceExtraBits[distIdx])
	distExtra := uint32(distance - int(huffman.DistanceBase[distIdx]))
	return bw.WriteBits(distExtraBits, distExtra)
}

func findLengthIndex(length int) (int, error) {
	for i := len(huffman.LengthBase) - 1; i >= 0; i-- {
		if length >= int(huffman.LengthBase[i]) {
			return i, nil
		}
	}
	return 0, perror.New(perror.InvalidInput, "LenDist length out of range")
}

func findDistanceIndex(distance int) (int, error) {
	for i := len(huffman.DistanceBase) - 1; i >= 0; i-- {
		if distance >= int(huffman.DistanceBase[i]) {
			return i, nil
		}
	}
	return 0, perror.New(perror.InvalidInput, "LenDist distance out of range")
}

func boolToBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

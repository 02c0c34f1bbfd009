// Package puff implements the byte-aligned puff representation of a
// deflate stream: the typed PuffData records (BlockMetadata, Literals,
// LenDist, EndOfBlock), the Reader/Writer that encode them to and from a
// byte buffer, and the Puffer/Huffer engines that translate between this
// representation and real deflate bits.
package puff

// Kind tags the variant a Record carries.
type Kind int

const (
	KindBlockMetadata Kind = iota
	KindLiterals
	KindLenDist
	KindEndOfBlock
)

func (k Kind) String() string {
	switch k {
	case KindBlockMetadata:
		return "BlockMetadata"
	case KindLiterals:
		return "Literals"
	case KindLenDist:
		return "LenDist"
	case KindEndOfBlock:
		return "EndOfBlock"
	default:
		return "Unknown"
	}
}

// Record is the symbol exchanged between the Puffer/Huffer and the
// Reader/Writer. Only the fields relevant to Kind are meaningful; see
// SPEC_FULL.md §4 for the invariants each field must satisfy.
type Record struct {
	Kind Kind

	// Metadata holds the BlockMetadata payload: byte 0 is
	// final_bit(1b)|type(2b)|skipped_boundary_bits(5b), bytes 1..len are
	// the re-serialized dynamic Huffman preamble (absent for fixed and
	// uncompressed blocks).
	Metadata []byte

	// Literals holds a coalesced run of raw bytes (1..65535 of them).
	Literals []byte

	// Length and Distance hold a LenDist back-reference.
	Length   int
	Distance int

	// Trailing holds an EndOfBlock's boundary bits.
	Trailing byte
}

// Header bits packed into Metadata[0].
const (
	BlockFinalBitMask  = 0x80
	BlockTypeMask      = 0x60
	BlockTypeShift     = 5
	BlockSkipBitsMask  = 0x1F
	BlockTypeStored    = 0
	BlockTypeFixed     = 1
	BlockTypeDynamic   = 2
	BlockTypeReserved  = 3
)

// PackBlockHeader builds Metadata[0] from its three fields.
func PackBlockHeader(final bool, blockType int, skippedBoundaryBits int) byte {
	var b byte
	if final {
		b |= BlockFinalBitMask
	}
	b |= byte(blockType&0x3) << BlockTypeShift
	b |= byte(skippedBoundaryBits) & BlockSkipBitsMask
	return b
}

// UnpackBlockHeader splits a Metadata[0] byte into its three fields.
func UnpackBlockHeader(b byte) (final bool, blockType int, skippedBoundaryBits int) {
	final = b&BlockFinalBitMask != 0
	blockType = int(b&BlockTypeMask) >> BlockTypeShift
	skippedBoundaryBits = int(b & BlockSkipBitsMask)
	return
}

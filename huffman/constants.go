package huffman

// Constant tables from RFC 1951 §3.2.5, shared by the Puffer and Huffer for
// translating length/distance symbols to and from their bases and extra
// bit counts.

// LengthBase[i] is the smallest match length encoded by lit/len symbol
// 257+i.
var LengthBase = [29]uint16{
	3, 4, 5, 6, 7, 8, 9, 10, 11, 13,
	15, 17, 19, 23, 27, 31, 35, 43, 51, 59,
	67, 83, 99, 115, 131, 163, 195, 227, 258,
}

// LengthExtraBits[i] is the number of extra bits that follow lit/len
// symbol 257+i to refine the match length.
var LengthExtraBits = [29]uint8{
	0, 0, 0, 0, 0, 0, 0, 0, 1, 1,
	1, 1, 2, 2, 2, 2, 3, 3, 3, 3,
	4, 4, 4, 4, 5, 5, 5, 5, 0,
}

// DistanceBase[i] is the smallest match distance encoded by distance
// symbol i.
var DistanceBase = [30]uint16{
	1, 2, 3, 4, 5, 7, 9, 13, 17, 25,
	33, 49, 65, 97, 129, 193, 257, 385, 513, 769,
	1025, 1537, 2049, 3073, 4097, 6145, 8193, 12289, 16385, 24577,
}

// DistanceExtraBits[i] is the number of extra bits that follow distance
// symbol i to refine the match distance.
var DistanceExtraBits = [30]uint8{
	0, 0, 0, 0, 1, 1, 2, 2, 3, 3,
	4, 4, 5, 5, 6, 6, 7, 7, 8, 8,
	9, 9, 10, 10, 11, 11, 12, 12, 13, 13,
}

// codeLengthOrder is the order in which the code-length-code lengths are
// transmitted in a dynamic block preamble (RFC 1951 §3.2.7).
var codeLengthOrder = [19]int{
	16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15,
}

const (
	// NumLitLenSymbols is the size of the literal/length alphabet (0-285,
	// 286-287 reserved but present in the fixed table construction).
	NumLitLenSymbols = 288
	// NumDistSymbols is the size of the distance alphabet (0-29, 30-31
	// reserved but present in the fixed table construction).
	NumDistSymbols = 32
	// NumCodeLenSymbols is the size of the code-length alphabet.
	NumCodeLenSymbols = 19
	// MaxPreambleBytes bounds the re-serialized dynamic preamble payload,
	// matching the BlockMetadata invariant (length in [1, 138], 1 byte for
	// the block header itself).
	MaxPreambleBytes = 137
	// maxCodeBits is the longest Huffman code DEFLATE allows.
	maxCodeBits = 15
)

package puff

// Wire tags. Each Record kind maps to one or two tags depending on whether
// its length field needs one or two bytes, so the reader never has to
// guess a field width from a marker bit. This keeps encoding/decoding
// branch-free per tag and keeps identical records byte-identical across
// two puff outputs, which is what the downstream differ exploits.
const (
	tagBlockMetadata = 0x00
	tagLiteralsShort = 0x01 // length byte, 1..127
	tagLiteralsLong  = 0x02 // length uint16 big-endian, 128..65535
	tagLenDistShort  = 0x03 // length byte, 3..255; distance uint16 big-endian
	tagLenDistLong   = 0x04 // length uint16 big-endian, 256..258; distance uint16 big-endian
	tagEndOfBlock    = 0x05 // trailing_bits byte
)

const (
	maxLiteralsRun  = 65535
	shortLiteralCap = 127
	shortLenDistCap = 255
)

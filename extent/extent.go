// Package extent defines the half-open byte and bit ranges used to locate
// deflate sub-blocks and puff records inside a host stream.
package extent

import "fmt"

// ByteExtent is a half-open range [Offset, Offset+Length) measured in
// bytes.
type ByteExtent struct {
	Offset int64
	Length int64
}

// End returns the first byte past the extent.
func (e ByteExtent) End() int64 {
	return e.Offset + e.Length
}

func (e ByteExtent) String() string {
	return fmt.Sprintf("%d:%d", e.Offset, e.Length)
}

// BitExtent is a half-open range [Offset, Offset+Length) measured in bits.
// Multiple deflate sub-blocks frequently share a byte, so bit-level
// granularity is required to locate them precisely.
type BitExtent struct {
	Offset int64
	Length int64
}

// End returns the first bit past the extent.
func (e BitExtent) End() int64 {
	return e.Offset + e.Length
}

func (e BitExtent) String() string {
	return fmt.Sprintf("%d:%d", e.Offset, e.Length)
}

// ByteExtent returns the smallest byte-aligned extent that fully contains
// e, i.e. the bytes an implementation must read to have every bit of e
// available.
func (e BitExtent) ByteExtent() ByteExtent {
	start := e.Offset / 8
	end := (e.Offset + e.Length + 7) / 8
	return ByteExtent{Offset: start, Length: end - start}
}

// MergeContiguous merges adjacent entries of a sorted-by-offset BitExtent
// list wherever one extent's End() exactly touches the next extent's
// Offset, combining each run into a single spanning extent. This turns a
// deflate locator's per-sub-block BitExtent list back into one entry per
// deflate container, which is what must be fed to a single continuous
// bitio.Reader/Writer session: sub-blocks of one container routinely
// share a byte at their boundary, and puffing or huffing a rounded
// per-sub-block ByteExtent on its own would start a fresh bit-0-aligned
// session mid-byte.
func MergeContiguous(bits []BitExtent) []BitExtent {
	if len(bits) == 0 {
		return nil
	}
	merged := make([]BitExtent, 0, len(bits))
	cur := bits[0]
	for _, b := range bits[1:] {
		if b.Offset == cur.End() {
			cur.Length = b.End() - cur.Offset
			continue
		}
		merged = append(merged, cur)
		cur = b
	}
	return append(merged, cur)
}

// MergeContiguousPairs merges bits the same way as MergeContiguous, while
// merging the parallel bytes list in lockstep: whenever a run of bits
// entries is merged into one, the corresponding run of bytes entries is
// merged into one spanning byte extent too. This assumes, as always holds
// for a deflate container's own sub-blocks, that bytes produced by
// puffing or huffing one contiguous bits run are themselves contiguous.
func MergeContiguousPairs(bits []BitExtent, bytes []ByteExtent) ([]BitExtent, []ByteExtent, error) {
	if len(bits) != len(bytes) {
		return nil, nil, fmt.Errorf("extent: MergeContiguousPairs: length mismatch (%d bits, %d bytes)", len(bits), len(bytes))
	}
	if len(bits) == 0 {
		return nil, nil, nil
	}
	mergedBits := make([]BitExtent, 0, len(bits))
	mergedBytes := make([]ByteExtent, 0, len(bytes))
	curBit, curByte := bits[0], bytes[0]
	for i := 1; i < len(bits); i++ {
		if bits[i].Offset == curBit.End() {
			curBit.Length = bits[i].End() - curBit.Offset
			curByte.Length = bytes[i].End() - curByte.Offset
			continue
		}
		mergedBits = append(mergedBits, curBit)
		mergedBytes = append(mergedBytes, curByte)
		curBit, curByte = bits[i], bytes[i]
	}
	mergedBits = append(mergedBits, curBit)
	mergedBytes = append(mergedBytes, curByte)
	return mergedBits, mergedBytes, nil
}

// TotalBytes sums the lengths of a list of ByteExtents.
func TotalBytes(extents []ByteExtent) int64 {
	var total int64
	for _, e := range extents {
		total += e.Length
	}
	return total
}

// TotalBits sums the lengths of a list of BitExtents.
func TotalBits(extents []BitExtent) int64 {
	var total int64
	for _, e := range extents {
		total += e.Length
	}
	return total
}

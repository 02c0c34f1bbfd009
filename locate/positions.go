package locate

import (
	"io"

	"github.com/n-peugnet/puffin/bytestream"
	"github.com/n-peugnet/puffin/extent"
	"github.com/n-peugnet/puffin/perror"
	"github.com/n-peugnet/puffin/puff"
)

// PuffLocations maps each deflate stream's ByteExtent in the host file to
// the ByteExtent it will occupy in the resulting whole-file puff stream,
// given the byte length puffing each one actually produces. Bytes outside
// every deflate extent pass through unchanged, so each substitution shifts
// every extent that follows it by a running size difference — the same
// bookkeeping original_source/src/utils.cc's FindPuffLocations performs
// with its total_size_difference accumulator. deflates must be sorted by
// offset and non-overlapping; puffedLens[i] is the size locate.Zlib/Gzip's
// caller obtained by running the Puffer over deflates[i] in discovery
// mode. It returns the puff-stream ByteExtent of each deflate substitution,
// in the same order as deflates, plus the total size of the resulting
// puff stream.
func PuffLocations(srcSize int64, deflates []extent.ByteExtent, puffedLens []int64) ([]extent.ByteExtent, int64, error) {
	if len(deflates) != len(puffedLens) {
		return nil, 0, perror.New(perror.InvalidInput, "deflates and puffedLens length mismatch")
	}
	puffExtents := make([]extent.ByteExtent, len(deflates))
	var totalSizeDifference int64
	for i, d := range deflates {
		puffOffset := d.Offset + totalSizeDifference
		puffExtents[i] = extent.ByteExtent{Offset: puffOffset, Length: puffedLens[i]}
		totalSizeDifference += puffedLens[i] - d.Length
	}
	return puffExtents, srcSize + totalSizeDifference, nil
}

// ComputePuffLocations is PuffLocations's caller-facing counterpart: given
// only the located deflate BitExtents, it puffs each one to learn its
// actual puffed byte length, then derives the resulting puff-stream
// ByteExtents and total size. This is what patch.Driver calls to build
// the PatchHeader.Src/.Dst fields before handing src/dst off to
// puffinstream.
//
// deflates is first merged with extent.MergeContiguous: locate.Zlib/Gzip
// report one BitExtent per deflate sub-block, and adjacent sub-blocks of
// the same container routinely share a byte at their boundary. Puffing
// each sub-block's independently byte-rounded extent would start a fresh
// bit-0-aligned Puffer session mid-byte for every sub-block after the
// first, corrupting the decode. Merging contiguous sub-blocks back into
// one per-container extent first means each one is puffed in a single
// continuous session, exactly as locate.subBlocks already does
// internally to discover them. The merged deflates list is returned
// alongside the puff locations so callers store the same, mutually
// consistent pair rather than the original, possibly overlapping one.
func ComputePuffLocations(src bytestream.Stream, deflates []extent.BitExtent) ([]extent.BitExtent, []extent.ByteExtent, int64, error) {
	merged := extent.MergeContiguous(deflates)
	srcSize, err := src.Size()
	if err != nil {
		return nil, nil, 0, err
	}
	byteExtents := make([]extent.ByteExtent, len(merged))
	puffedLens := make([]int64, len(merged))
	for i, d := range merged {
		be := d.ByteExtent()
		byteExtents[i] = be
		raw := make([]byte, be.Length)
		window := bytestream.NewExtent(src, be.Offset, be.Length)
		if _, err := io.ReadFull(window, raw); err != nil {
			return nil, nil, 0, perror.Wrap(perror.InsufficientInput, err, "reading deflate extent for puff sizing")
		}
		puffed, err := puff.PuffBuffer(raw)
		if err != nil {
			return nil, nil, 0, err
		}
		puffedLens[i] = int64(len(puffed))
	}
	puffs, puffLength, err := PuffLocations(srcSize, byteExtents, puffedLens)
	if err != nil {
		return nil, nil, 0, err
	}
	return merged, puffs, puffLength, nil
}

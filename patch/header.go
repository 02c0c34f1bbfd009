package patch

import "github.com/n-peugnet/puffin/extent"

// headerVersion is the only PatchHeader.Version this driver produces or
// accepts.
const headerVersion = 1

// Side describes the deflate locations of one side (source or
// destination) of a patch, mirroring spec.md §6's PatchHeader.src/.dst.
type Side struct {
	Deflates   []extent.BitExtent
	Puffs      []extent.ByteExtent
	PuffLength int64
}

// Header is puffin's PatchHeader: the logical fields spec.md §6 names,
// gob-encoded rather than the historical wire schema (spec.md §9 allows
// this when interop with existing patches isn't required).
type Header struct {
	Version int
	Src     Side
	Dst     Side
}

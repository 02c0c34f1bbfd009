// Package patch implements spec.md §4.7's patch envelope and the
// diff/patch driver built on top of it: PuffDiff puffs both sides of a
// deflate pair and hands the two puff streams to an external binary
// differ; PuffPatch reverses the process, huffing the differ's output
// back into a real deflate stream.
package patch

import (
	"bytes"

	"github.com/n-peugnet/puffin/bytestream"
	"github.com/n-peugnet/puffin/delta"
	"github.com/n-peugnet/puffin/extent"
	"github.com/n-peugnet/puffin/locate"
	"github.com/n-peugnet/puffin/puffinstream"
)

// Driver runs PuffDiff/PuffPatch with a chosen delta.Codec, letting the
// CLI select bsdiff or fdelta (SPEC_FULL.md §5.10) rather than hard-coding
// one engine.
type Driver struct {
	Codec delta.Codec

	// Cache bounds how many bytes of puffed deflate regions of the source
	// side stay buffered while an external differ re-reads it non-
	// sequentially (spec.md §5's bounded cache_size). Defaults to a
	// DefaultCacheSize Cache when nil.
	Cache *Cache
}

// NewDriver returns a Driver using codec for both diff and patch, with a
// default-sized puff cache.
func NewDriver(codec delta.Codec) *Driver {
	return &Driver{Codec: codec, Cache: NewCache(DefaultCacheSize)}
}

// PuffDiff produces a PUF1-enveloped patch turning src into dst, given
// each side's located deflate BitExtents (see locate.Zlib/Gzip).
func (d *Driver) PuffDiff(src, dst bytestream.Stream, srcDeflates, dstDeflates []extent.BitExtent) ([]byte, error) {
	srcSide, err := buildSide(src, srcDeflates)
	if err != nil {
		return nil, err
	}
	dstSide, err := buildSide(dst, dstDeflates)
	if err != nil {
		return nil, err
	}

	cache := d.Cache
	if cache == nil {
		cache = NewCache(DefaultCacheSize)
	}
	srcPuff, err := puffinstream.CreateForPuffCached(src, srcSide.PuffLength, srcSide.Deflates, srcSide.Puffs, cache)
	if err != nil {
		return nil, err
	}
	dstPuff, err := puffinstream.CreateForPuff(dst, dstSide.PuffLength, dstSide.Deflates, dstSide.Puffs)
	if err != nil {
		return nil, err
	}

	var patchBuf bytes.Buffer
	if err := d.Codec.Diff(srcPuff, dstPuff, &patchBuf); err != nil {
		return nil, err
	}

	env := &Envelope{
		Header: Header{Version: headerVersion, Src: srcSide, Dst: dstSide},
		Patch:  patchBuf.Bytes(),
	}
	return env.Marshal()
}

// PuffPatch applies a PUF1-enveloped patch previously produced by
// PuffDiff, reading src and writing the reconstructed deflate stream into
// dst.
func (d *Driver) PuffPatch(src bytestream.Stream, dst bytestream.Stream, patchBytes []byte) error {
	env, err := Unmarshal(patchBytes)
	if err != nil {
		return err
	}

	cache := d.Cache
	if cache == nil {
		cache = NewCache(DefaultCacheSize)
	}
	srcPuff, err := puffinstream.CreateForPuffCached(src, env.Header.Src.PuffLength, env.Header.Src.Deflates, env.Header.Src.Puffs, cache)
	if err != nil {
		return err
	}
	dstPuff, err := puffinstream.CreateForHuff(dst, env.Header.Dst.PuffLength, env.Header.Dst.Deflates, env.Header.Dst.Puffs)
	if err != nil {
		return err
	}

	return d.Codec.Patch(srcPuff, dstPuff, bytes.NewReader(env.Patch))
}

func buildSide(stream bytestream.Stream, deflates []extent.BitExtent) (Side, error) {
	merged, puffs, puffLength, err := locate.ComputePuffLocations(stream, deflates)
	if err != nil {
		return Side{}, err
	}
	return Side{Deflates: merged, Puffs: puffs, PuffLength: puffLength}, nil
}

// Package locate finds DEFLATE sub-blocks inside the container formats
// puffin knows how to puff: zlib streams and gzip members. It deliberately
// does not attempt heuristic discovery of deflate data inside arbitrary
// binaries (spec.md §1 Non-goals) — only these two well-known envelopes,
// matching original_source/src/utils.cc's LocateDeflatesInZlibBlocks.
package locate

import (
	"io"

	"github.com/n-peugnet/puffin/bitio"
	"github.com/n-peugnet/puffin/bytestream"
	"github.com/n-peugnet/puffin/extent"
	"github.com/n-peugnet/puffin/perror"
	"github.com/n-peugnet/puffin/puff"
)

// subBlocks reads the deflate stream occupying deflateExtent out of src and
// returns the BitExtent of each individual deflate block within it, by
// running the Puffer in discovery mode and recording block boundaries as
// they're consumed. It mirrors FindDeflateSubBlocks's use of a null-output
// PuffWriter purely to harvest block locations.
func subBlocks(src bytestream.Stream, deflateExtent extent.ByteExtent) ([]extent.BitExtent, error) {
	raw := make([]byte, deflateExtent.Length)
	window := bytestream.NewExtent(src, deflateExtent.Offset, deflateExtent.Length)
	if _, err := io.ReadFull(window, raw); err != nil {
		return nil, perror.Wrap(perror.InsufficientInput, err, "reading deflate extent")
	}

	br := bitio.NewReader(raw)
	pw := puff.NewWriter(nil)
	var blocks []extent.BitExtent
	onBlock := func(b extent.BitExtent) {
		blocks = append(blocks, extent.BitExtent{
			Offset: b.Offset + deflateExtent.Offset*8,
			Length: b.Length,
		})
	}
	if err := puff.PuffDeflateBlocks(br, pw, onBlock); err != nil {
		return nil, err
	}
	if br.Offset() != deflateExtent.Length {
		return nil, perror.New(perror.InvalidInput, "deflate stream did not consume its whole extent")
	}
	return blocks, nil
}

// Package puffinstream presents an "imaginary" puff stream view over a
// real deflate-bearing bytestream.Stream: reading from it yields puffed
// bytes, writing to it huffs puff bytes back into the underlying deflate
// stream, without ever materializing the whole puff representation of a
// large host file at once. Grounded on
// original_source/src/puffin_stream.h/.cc's PuffinStream.
package puffinstream

import (
	"io"
	"sort"

	"github.com/n-peugnet/puffin/bytestream"
	"github.com/n-peugnet/puffin/extent"
	"github.com/n-peugnet/puffin/perror"
	"github.com/n-peugnet/puffin/puff"
)

// segment is one contiguous run of the imaginary puff stream: either a
// byte-for-byte passthrough of stream_ bytes outside any deflate (deflate
// == nil), or the puffed form of one deflate region (deflate != nil). This
// replaces the original's per-bit last_byte/extra_byte bookkeeping: each
// deflate region is puffed or huffed as one complete byte buffer, since
// locate.subBlocks already resolved every sub-block's exact bit extent
// during discovery, so PuffinStream itself never has to reason about
// sub-byte boundaries.
type segment struct {
	puff    extent.ByteExtent
	stream  extent.ByteExtent // passthrough: raw stream bytes. deflate: the byte span containing it.
	deflate *extent.BitExtent // nil for passthrough segments
}

// segmentCache is the bound the caller may plug in to avoid re-puffing a
// deflate region every time a non-sequential reader (an external bsdiff
// engine, in particular) revisits it. patch.Cache satisfies this
// interface; it is expressed locally, duck-typed, so that puffinstream
// does not need to import patch.
type segmentCache interface {
	Get(offset int64) ([]byte, bool)
	Set(offset int64, value []byte)
}

// Stream is a bytestream.Stream that reads or writes the imaginary puff
// form of stream. An instance is either puff-mode (backed by a Puffer,
// read-only) or huff-mode (backed by a Huffer, write-only); using the
// wrong direction returns an error rather than silently doing nothing, per
// the original's documented single-direction-per-instance caveat.
type Stream struct {
	stream   bytestream.Stream
	puffSize int64
	segments []segment
	pos      int64

	forPuff bool // true: Read puffs; false: Write huffs.

	cache      segmentCache // optional; falls back to a single-slot cache when nil
	cached     *segment
	cachedData []byte // puffed bytes of cached, only valid when forPuff

	writeBuf    []byte // accumulated puff bytes for the segment currently being written
	writeSegIdx int
}

// CreateForPuff returns a Stream that reads the puffed form of stream.
// deflates and puffs must be parallel, sorted-by-offset lists describing
// where each deflate region sits in stream and where its puffed form lands
// in the imaginary puff stream (see locate.Zlib/Gzip and
// locate.PuffLocations), and puffSize is the total size of that imaginary
// stream.
func CreateForPuff(stream bytestream.Stream, puffSize int64, deflates []extent.BitExtent, puffs []extent.ByteExtent) (*Stream, error) {
	segs, err := buildSegments(puffSize, deflates, puffs)
	if err != nil {
		return nil, err
	}
	return &Stream{stream: stream, puffSize: puffSize, segments: segs, forPuff: true}, nil
}

// CreateForPuffCached is CreateForPuff with a shared segmentCache (such as
// a *patch.Cache) bounding how many puffed deflate regions stay buffered
// across repeated, non-sequential reads — see spec.md §5's bounded
// cache_size requirement.
func CreateForPuffCached(stream bytestream.Stream, puffSize int64, deflates []extent.BitExtent, puffs []extent.ByteExtent, cache segmentCache) (*Stream, error) {
	s, err := CreateForPuff(stream, puffSize, deflates, puffs)
	if err != nil {
		return nil, err
	}
	s.cache = cache
	return s, nil
}

// CreateForHuff returns a Stream that, when written to sequentially from
// offset 0, huffs the incoming puff bytes and writes the resulting
// deflate bytes into stream at the right offsets, passing non-deflate
// bytes straight through.
func CreateForHuff(stream bytestream.Stream, puffSize int64, deflates []extent.BitExtent, puffs []extent.ByteExtent) (*Stream, error) {
	segs, err := buildSegments(puffSize, deflates, puffs)
	if err != nil {
		return nil, err
	}
	return &Stream{stream: stream, puffSize: puffSize, segments: segs, forPuff: false}, nil
}

// buildSegments derives the segment list purely from puffSize and the
// deflates/puffs location lists, without consulting the backing stream's
// current size: for CreateForHuff, the destination stream is typically a
// freshly created, empty file whose eventual size is exactly what this
// function is computing, so it cannot be queried in advance. Any puff-space
// span not covered by a deflate's puffs[i] extent is a byte-for-byte
// passthrough, so its stream-space length always equals its puff-space
// length; this lets the trailing gap (and any gap between two deflates) be
// derived from puffSize alone.
func buildSegments(puffSize int64, deflates []extent.BitExtent, puffs []extent.ByteExtent) ([]segment, error) {
	if len(deflates) != len(puffs) {
		return nil, perror.New(perror.InvalidInput, "deflates and puffs length mismatch")
	}

	// deflates may still be at per-sub-block granularity (a deflate
	// locator reports one BitExtent per sub-block, and adjacent sub-blocks
	// of one container routinely share a byte). Merge contiguous runs back
	// into one per-container extent so each segment below is puffed or
	// huffed in a single continuous session instead of re-decoding a
	// rounded, possibly mid-byte-starting range in isolation.
	var err error
	deflates, puffs, err = extent.MergeContiguousPairs(deflates, puffs)
	if err != nil {
		return nil, perror.Wrap(perror.InvalidInput, err, "merging deflate extents")
	}

	segs := make([]segment, 0, 2*len(deflates)+1)
	var streamCursor, puffCursor int64
	for i, d := range deflates {
		dByte := d.ByteExtent()
		if dByte.Offset > streamCursor {
			gap := dByte.Offset - streamCursor
			segs = append(segs, segment{
				puff:   extent.ByteExtent{Offset: puffCursor, Length: gap},
				stream: extent.ByteExtent{Offset: streamCursor, Length: gap},
			})
			puffCursor += gap
		}
		segs = append(segs, segment{
			puff:    puffs[i],
			stream:  dByte,
			deflate: &deflates[i],
		})
		puffCursor = puffs[i].End()
		streamCursor = dByte.End()
	}
	if puffCursor < puffSize {
		gap := puffSize - puffCursor
		segs = append(segs, segment{
			puff:   extent.ByteExtent{Offset: puffCursor, Length: gap},
			stream: extent.ByteExtent{Offset: streamCursor, Length: gap},
		})
		puffCursor += gap
	}
	if puffCursor != puffSize {
		return nil, perror.New(perror.InvalidInput, "computed puff segments do not sum to puffSize")
	}
	return segs, nil
}

func (s *Stream) Size() (int64, error) {
	return s.puffSize, nil
}

func (s *Stream) Offset() (int64, error) {
	return s.pos, nil
}

func (s *Stream) Seek(offset int64) error {
	if offset < 0 || offset > s.puffSize {
		return perror.New(perror.InvalidInput, "seek out of puff stream range")
	}
	if !s.forPuff && offset != s.pos {
		return perror.New(perror.InvalidInput, "puffinstream write mode only supports sequential offsets")
	}
	s.pos = offset
	return nil
}

func (s *Stream) Close() error {
	return s.stream.Close()
}

// segmentAt returns the index of the segment containing puff offset pos.
func (s *Stream) segmentAt(pos int64) int {
	return sort.Search(len(s.segments), func(i int) bool {
		return s.segments[i].puff.End() > pos
	})
}

func (s *Stream) Read(p []byte) (int, error) {
	if !s.forPuff {
		return 0, perror.New(perror.InvalidInput, "puffinstream: Read called on a write-mode stream")
	}
	if s.pos >= s.puffSize {
		return 0, io.EOF
	}
	total := 0
	for total < len(p) && s.pos < s.puffSize {
		idx := s.segmentAt(s.pos)
		seg := &s.segments[idx]
		data, err := s.segmentPuffBytes(seg)
		if err != nil {
			return total, err
		}
		within := s.pos - seg.puff.Offset
		n := copy(p[total:], data[within:])
		total += n
		s.pos += int64(n)
	}
	return total, nil
}

// segmentPuffBytes returns the puffed bytes of seg, puffing it on demand
// and caching the result since a caller may Read it in several small
// chunks.
func (s *Stream) segmentPuffBytes(seg *segment) ([]byte, error) {
	if seg.deflate == nil {
		buf := make([]byte, seg.stream.Length)
		window := bytestream.NewExtent(s.stream, seg.stream.Offset, seg.stream.Length)
		if _, err := io.ReadFull(window, buf); err != nil {
			return nil, err
		}
		return buf, nil
	}
	if s.cache != nil {
		if data, ok := s.cache.Get(seg.puff.Offset); ok {
			return data, nil
		}
	} else if s.cached != nil && s.cached.puff == seg.puff {
		return s.cachedData, nil
	}

	raw := make([]byte, seg.stream.Length)
	window := bytestream.NewExtent(s.stream, seg.stream.Offset, seg.stream.Length)
	if _, err := io.ReadFull(window, raw); err != nil {
		return nil, err
	}
	puffed, err := puff.PuffBuffer(raw)
	if err != nil {
		return nil, err
	}
	if int64(len(puffed)) != seg.puff.Length {
		return nil, perror.New(perror.InvalidInput, "puffed deflate region did not match its located size")
	}

	if s.cache != nil {
		s.cache.Set(seg.puff.Offset, puffed)
	} else {
		s.cached = seg
		s.cachedData = puffed
	}
	return puffed, nil
}

func (s *Stream) Write(p []byte) (int, error) {
	if s.forPuff {
		return 0, perror.New(perror.InvalidInput, "puffinstream: Write called on a read-mode stream")
	}
	if s.pos+int64(len(p)) > s.puffSize {
		return 0, perror.New(perror.InsufficientOutput, "write past end of puff stream")
	}
	total := 0
	for total < len(p) {
		idx := s.segmentAt(s.pos)
		seg := &s.segments[idx]
		if seg.deflate == nil {
			remain := seg.puff.End() - s.pos
			take := int64(len(p) - total)
			if take > remain {
				take = remain
			}
			window := bytestream.NewExtent(s.stream, seg.stream.Offset, seg.stream.Length)
			if err := window.Seek(s.pos - seg.puff.Offset); err != nil {
				return total, err
			}
			n, err := window.Write(p[total : total+int(take)])
			total += n
			s.pos += int64(n)
			if err != nil {
				return total, err
			}
			continue
		}

		if s.writeBuf == nil || s.writeSegIdx != idx {
			s.writeBuf = make([]byte, 0, seg.puff.Length)
			s.writeSegIdx = idx
		}
		remain := seg.puff.Length - int64(len(s.writeBuf))
		take := int64(len(p) - total)
		if take > remain {
			take = remain
		}
		s.writeBuf = append(s.writeBuf, p[total:total+int(take)]...)
		total += int(take)
		s.pos += take

		if int64(len(s.writeBuf)) == seg.puff.Length {
			deflateBytes, err := puff.HuffBuffer(s.writeBuf)
			if err != nil {
				return total, err
			}
			if int64(len(deflateBytes)) != seg.stream.Length {
				return total, perror.New(perror.InvalidInput, "huffed deflate region did not match its located size")
			}
			window := bytestream.NewExtent(s.stream, seg.stream.Offset, seg.stream.Length)
			if _, err := window.Write(deflateBytes); err != nil {
				return total, err
			}
			s.writeBuf = nil
		}
	}
	return total, nil
}


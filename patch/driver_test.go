package patch

import (
	"bytes"
	"testing"

	"github.com/n-peugnet/puffin/bitio"
	"github.com/n-peugnet/puffin/bytestream"
	"github.com/n-peugnet/puffin/delta"
	"github.com/n-peugnet/puffin/extent"
	"github.com/n-peugnet/puffin/locate"
)

// storedDeflate builds a one-block stored deflate stream carrying payload.
func storedDeflate(payload []byte) []byte {
	n := len(payload)
	out := []byte{0x01, byte(n), byte(n >> 8), byte(^uint16(n)), byte(^uint16(n) >> 8)}
	return append(out, payload...)
}

// reverseBitsFixture MSB<->LSB-reverses the low n bits of v, matching fixed
// Huffman codes' RFC 1951 §3.2.6 bit order against bitio's LSB-first writer.
func reverseBitsFixture(v uint32, n uint) uint32 {
	var r uint32
	for i := uint(0); i < n; i++ {
		r = (r << 1) | (v & 1)
		v >>= 1
	}
	return r
}

// twoFixedBlocksSharingAByte hand-assembles a two-block fixed-Huffman
// deflate stream whose first block is not final: the first block's literal
// a and EOB plus the second block's header routinely land inside the same
// byte, which only a "stored" block boundary would avoid.
func twoFixedBlocksSharingAByte(t *testing.T, a, b byte) []byte {
	t.Helper()
	buf := make([]byte, 8)
	bw := bitio.NewWriter(buf)
	must := func(err error) {
		if err != nil {
			t.Fatalf("building fixture: %v", err)
		}
	}
	litCode := func(lit byte) (uint32, uint) {
		v := uint32(0x30) + uint32(lit)
		return reverseBitsFixture(v, 8), 8
	}
	eobCode := func() (uint32, uint) {
		return reverseBitsFixture(0, 7), 7
	}

	must(bw.WriteBits(1, 0)) // final=0
	must(bw.WriteBits(2, 1)) // type=fixed
	code, n := litCode(a)
	must(bw.WriteBits(n, code))
	code, n = eobCode()
	must(bw.WriteBits(n, code))

	must(bw.WriteBits(1, 1)) // final=1
	must(bw.WriteBits(2, 1)) // type=fixed
	code, n = litCode(b)
	must(bw.WriteBits(n, code))
	code, n = eobCode()
	must(bw.WriteBits(n, code))
	must(bw.Flush())

	return buf[:bw.Size()]
}

// zlibWrap wraps deflate in a minimal RFC 1950 zlib container: a valid
// 2-byte CMF/FLG header and a placeholder 4-byte Adler-32 trailer, which
// locate.Zlib never checksum-validates, only strips by length.
func zlibWrap(deflate []byte) []byte {
	out := append([]byte{0x78, 0x9C}, deflate...)
	return append(out, 0, 0, 0, 0)
}

// TestDriverPuffDiffPuffPatchRoundTripMultiBlockSharedByte pins the fix for
// locate.Zlib reporting one BitExtent per deflate sub-block: adjacent
// fixed-Huffman sub-blocks of the same zlib container share a byte at
// their boundary, and puffing each sub-block's independently rounded byte
// range in isolation used to corrupt the decode (the second sub-block's
// leading bits were actually the tail bits of the shared byte from the
// first). This drives the real locate.Zlib -> patch.Driver.PuffDiff /
// PuffPatch pipeline end to end, rather than PuffDeflate/HuffDeflate
// directly, so it actually exercises where the bug lived.
func TestDriverPuffDiffPuffPatchRoundTripMultiBlockSharedByte(t *testing.T) {
	srcDeflate := twoFixedBlocksSharingAByte(t, 'a', 'b')
	dstDeflate := twoFixedBlocksSharingAByte(t, 'a', 'c')

	srcZlib := zlibWrap(srcDeflate)
	dstZlib := zlibWrap(dstDeflate)

	srcHost := append(append([]byte("HEAD"), srcZlib...), []byte("TAIL")...)
	dstHost := append(append([]byte("HEAD"), dstZlib...), []byte("TAIL")...)

	src := bytestream.NewMemory(append([]byte(nil), srcHost...))
	dst := bytestream.NewMemory(append([]byte(nil), dstHost...))

	srcDeflates, err := locate.Zlib(src, []extent.ByteExtent{{Offset: 4, Length: int64(len(srcZlib))}})
	if err != nil {
		t.Fatalf("locate.Zlib(src): %v", err)
	}
	dstDeflates, err := locate.Zlib(dst, []extent.ByteExtent{{Offset: 4, Length: int64(len(dstZlib))}})
	if err != nil {
		t.Fatalf("locate.Zlib(dst): %v", err)
	}
	if len(srcDeflates) < 2 || len(dstDeflates) < 2 {
		t.Fatalf("fixture did not produce multiple sub-blocks: src=%d dst=%d", len(srcDeflates), len(dstDeflates))
	}
	for i := 1; i < len(srcDeflates); i++ {
		if srcDeflates[i].Offset != srcDeflates[i-1].End() {
			t.Fatalf("fixture sub-blocks do not share a byte boundary: %+v then %+v", srcDeflates[i-1], srcDeflates[i])
		}
	}

	driver := NewDriver(delta.Fdelta{})
	patchBytes, err := driver.PuffDiff(src, dst, srcDeflates, dstDeflates)
	if err != nil {
		t.Fatalf("PuffDiff: %v", err)
	}

	sink := bytestream.NewMemory(make([]byte, len(dstHost)))
	src2 := bytestream.NewMemory(append([]byte(nil), srcHost...))
	if err := driver.PuffPatch(src2, sink, patchBytes); err != nil {
		t.Fatalf("PuffPatch: %v", err)
	}

	if !bytes.Equal(sink.Bytes(), dstHost) {
		t.Fatalf("patched output = %x, want %x", sink.Bytes(), dstHost)
	}
}

func TestDriverPuffDiffPuffPatchRoundTrip(t *testing.T) {
	srcDeflate := storedDeflate([]byte("hello world"))
	dstDeflate := storedDeflate([]byte("hello there, a longer world"))

	srcHost := append(append([]byte("HEAD"), srcDeflate...), []byte("TAIL")...)
	dstHost := append(append([]byte("HEAD"), dstDeflate...), []byte("TAIL")...)

	srcDeflateBit := extent.BitExtent{Offset: 4 * 8, Length: int64(len(srcDeflate)) * 8}
	dstDeflateBit := extent.BitExtent{Offset: 4 * 8, Length: int64(len(dstDeflate)) * 8}

	src := bytestream.NewMemory(append([]byte(nil), srcHost...))
	dst := bytestream.NewMemory(append([]byte(nil), dstHost...))

	driver := NewDriver(delta.Fdelta{})
	patchBytes, err := driver.PuffDiff(src, dst, []extent.BitExtent{srcDeflateBit}, []extent.BitExtent{dstDeflateBit})
	if err != nil {
		t.Fatalf("PuffDiff: %v", err)
	}

	sink := bytestream.NewMemory(make([]byte, len(dstHost)))
	src2 := bytestream.NewMemory(append([]byte(nil), srcHost...))
	if err := driver.PuffPatch(src2, sink, patchBytes); err != nil {
		t.Fatalf("PuffPatch: %v", err)
	}

	if !bytes.Equal(sink.Bytes(), dstHost) {
		t.Fatalf("patched output = %q, want %q", sink.Bytes(), dstHost)
	}
}

func TestDriverPuffDiffIsDeterministic(t *testing.T) {
	srcDeflate := storedDeflate([]byte("hello world"))
	dstDeflate := storedDeflate([]byte("hello there, a longer world"))

	srcHost := append(append([]byte("HEAD"), srcDeflate...), []byte("TAIL")...)
	dstHost := append(append([]byte("HEAD"), dstDeflate...), []byte("TAIL")...)

	srcDeflateBit := extent.BitExtent{Offset: 4 * 8, Length: int64(len(srcDeflate)) * 8}
	dstDeflateBit := extent.BitExtent{Offset: 4 * 8, Length: int64(len(dstDeflate)) * 8}

	driver := NewDriver(delta.Fdelta{})
	run := func() []byte {
		src := bytestream.NewMemory(append([]byte(nil), srcHost...))
		dst := bytestream.NewMemory(append([]byte(nil), dstHost...))
		patchBytes, err := driver.PuffDiff(src, dst, []extent.BitExtent{srcDeflateBit}, []extent.BitExtent{dstDeflateBit})
		if err != nil {
			t.Fatalf("PuffDiff: %v", err)
		}
		return patchBytes
	}

	first := run()
	second := run()
	if !bytes.Equal(first, second) {
		t.Fatalf("PuffDiff is not deterministic: got two different patches for the same inputs")
	}
}

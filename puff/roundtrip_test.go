package puff

import (
	"bytes"
	"io"
	"testing"

	"github.com/n-peugnet/puffin/bitio"
	"github.com/n-peugnet/puffin/extent"
	"github.com/n-peugnet/puffin/perror"
)

func puffThenHuff(t *testing.T, d []byte) []byte {
	t.Helper()
	pw := NewWriter(nil)
	if err := PuffDeflate(bitio.NewReader(d), pw); err != nil {
		t.Fatalf("PuffDeflate (discovery pass): %v", err)
	}
	size := pw.Size()

	puffBuf := make([]byte, size)
	pw2 := NewWriter(puffBuf)
	if err := PuffDeflate(bitio.NewReader(d), pw2); err != nil {
		t.Fatalf("PuffDeflate: %v", err)
	}
	if pw2.Size() != size {
		t.Fatalf("discovery size %d did not match real run size %d", size, pw2.Size())
	}

	out := make([]byte, len(d)+8)
	bw := bitio.NewWriter(out)
	if err := HuffDeflate(NewReader(puffBuf), bw); err != nil {
		t.Fatalf("HuffDeflate: %v", err)
	}
	return out[:bw.Size()]
}

func TestRoundTripSingleUncompressedBlock(t *testing.T) {
	d := []byte{0x01, 0x02, 0x00, 0xFD, 0xFF, 0x11, 0x22}
	got := puffThenHuff(t, d)
	if !bytes.Equal(got, d) {
		t.Fatalf("round trip = %x, want %x", got, d)
	}
}

func TestRoundTripFixedSingleLiteral(t *testing.T) {
	d := []byte{0x4B, 0x04, 0x00}
	got := puffThenHuff(t, d)
	if !bytes.Equal(got, d) {
		t.Fatalf("round trip = %x, want %x", got, d)
	}
}

func TestRoundTripEmptyFinalBlock(t *testing.T) {
	d := []byte{0x03, 0x00}
	got := puffThenHuff(t, d)
	if !bytes.Equal(got, d) {
		t.Fatalf("round trip = %x, want %x", got, d)
	}
}

func TestRoundTripTwoFixedBlocksSharingAByte(t *testing.T) {
	// First block: not final, fixed, single literal 'a' (0x61), no EOB extra
	// padding since the second block's header starts immediately after.
	// Second block: final, fixed, single literal 'b', then EOB.
	// Hand-assemble so the two blocks' header/content bits straddle a byte
	// boundary, matching scenario 5's "two-block stream sharing a byte".
	buf := make([]byte, 8)
	bw := bitio.NewWriter(buf)
	must := func(err error) {
		if err != nil {
			t.Fatalf("building fixture: %v", err)
		}
	}
	litCode := func(b byte) (uint32, uint) {
		// Fixed literal/length codes 0-143 are 8 bits: value 0x30+sym,
		// MSB-first per RFC 1951 §3.2.6, so bit-reversed for our
		// LSB-first writer.
		v := uint32(0x30) + uint32(b)
		return reverseBitsFixture(v, 8), 8
	}
	eobCode := func() (uint32, uint) {
		// Symbol 256 is 7 bits, value 0x0000000.
		return reverseBitsFixture(0, 7), 7
	}

	must(bw.WriteBits(1, 0)) // final=0
	must(bw.WriteBits(2, 1)) // type=fixed
	code, n := litCode('a')
	must(bw.WriteBits(n, code))
	code, n = eobCode()
	must(bw.WriteBits(n, code))

	must(bw.WriteBits(1, 1)) // final=1
	must(bw.WriteBits(2, 1)) // type=fixed
	code, n = litCode('b')
	must(bw.WriteBits(n, code))
	code, n = eobCode()
	must(bw.WriteBits(n, code))
	must(bw.Flush())

	d := buf[:bw.Size()]
	got := puffThenHuff(t, d)
	if !bytes.Equal(got, d) {
		t.Fatalf("round trip = %x, want %x", got, d)
	}
}

func reverseBitsFixture(v uint32, n uint) uint32 {
	var r uint32
	for i := uint(0); i < n; i++ {
		r = (r << 1) | (v & 1)
		v >>= 1
	}
	return r
}

func TestPuffDeterminism(t *testing.T) {
	d := []byte{0x4B, 0x04, 0x00}
	a := mustPuff(t, d)
	b := mustPuff(t, d)
	if !bytes.Equal(a, b) {
		t.Fatalf("two puff runs differ: %x vs %x", a, b)
	}
}

func mustPuff(t *testing.T, d []byte) []byte {
	t.Helper()
	pw := NewWriter(nil)
	if err := PuffDeflate(bitio.NewReader(d), pw); err != nil {
		t.Fatalf("PuffDeflate: %v", err)
	}
	buf := make([]byte, pw.Size())
	pw2 := NewWriter(buf)
	if err := PuffDeflate(bitio.NewReader(d), pw2); err != nil {
		t.Fatalf("PuffDeflate: %v", err)
	}
	return buf
}

func TestLiteralsCoalescing(t *testing.T) {
	w := NewWriter(nil)
	n := 65535*2 + 17
	for i := 0; i < n; i++ {
		if err := w.PutLiteral(byte(i)); err != nil {
			t.Fatalf("PutLiteral: %v", err)
		}
	}
	if err := w.PutEndOfBlock(0); err != nil {
		t.Fatalf("PutEndOfBlock: %v", err)
	}
	buf := make([]byte, w.Size())
	w2 := NewWriter(buf)
	for i := 0; i < n; i++ {
		if err := w2.PutLiteral(byte(i)); err != nil {
			t.Fatalf("PutLiteral: %v", err)
		}
	}
	if err := w2.PutEndOfBlock(0); err != nil {
		t.Fatalf("PutEndOfBlock: %v", err)
	}

	r := NewReader(buf)
	var assembled []byte
	var runs int
	for {
		rec, err := r.Next()
		if err != nil {
			break
		}
		if rec.Kind == KindLiterals {
			runs++
			assembled = append(assembled, rec.Literals...)
		}
	}
	if runs != 3 {
		t.Errorf("got %d Literals records, want 3 (ceil(%d/65535))", runs, n)
	}
	if len(assembled) != n {
		t.Fatalf("assembled %d bytes, want %d", len(assembled), n)
	}
	for i := 0; i < n; i++ {
		if assembled[i] != byte(i) {
			t.Fatalf("byte %d = %#x, want %#x", i, assembled[i], byte(i))
		}
	}
}

func TestPuffWriterInsufficientOutput(t *testing.T) {
	w := NewWriter(make([]byte, 2))
	err := w.PutBlockMetadata([]byte{0xA0})
	if !perror.Is(err, perror.InsufficientOutput) {
		t.Fatalf("PutBlockMetadata into a 2-byte buffer: got %v, want InsufficientOutput", err)
	}
}

func TestPuffReaderInsufficientInput(t *testing.T) {
	r := NewReader([]byte{tagLiteralsShort, 0x05, 0x01, 0x02})
	_, err := r.Next()
	if !perror.Is(err, perror.InsufficientInput) {
		t.Fatalf("truncated Literals record: got %v, want InsufficientInput", err)
	}
}

func TestStoredBlockLenMismatchIsInvalidInput(t *testing.T) {
	d := []byte{0x01, 0x02, 0x00, 0x00, 0x00, 0x11, 0x22} // NLEN should be ~LEN, here it's wrong
	err := PuffDeflate(bitio.NewReader(d), NewWriter(nil))
	if !perror.Is(err, perror.InvalidInput) {
		t.Fatalf("LEN/NLEN mismatch: got %v, want InvalidInput", err)
	}
}

func TestPuffBufferHuffBufferRoundTrip(t *testing.T) {
	d := []byte{0x01, 0x02, 0x00, 0xFD, 0xFF, 0x11, 0x22}
	puffed, err := PuffBuffer(d)
	if err != nil {
		t.Fatalf("PuffBuffer: %v", err)
	}
	back, err := HuffBuffer(puffed)
	if err != nil {
		t.Fatalf("HuffBuffer: %v", err)
	}
	if !bytes.Equal(back, d) {
		t.Fatalf("HuffBuffer(PuffBuffer(d)) = %x, want %x", back, d)
	}
}

func TestHuffBufferGrowsPastInitialGuess(t *testing.T) {
	// A final fixed block of 100 literal 0xFF bytes: each literal takes a
	// 9-bit fixed code in the deflate stream but one byte in the puff
	// stream, so the deflate (114 bytes) is longer than the puff buffer
	// (107 bytes) that HuffBuffer sizes its first attempt from, forcing
	// its doubling retry to kick in at least once.
	buf := make([]byte, 128)
	bw := bitio.NewWriter(buf)
	must := func(err error) {
		if err != nil {
			t.Fatalf("building fixture: %v", err)
		}
	}
	must(bw.WriteBits(1, 1)) // final=1
	must(bw.WriteBits(2, 1)) // type=fixed
	for i := 0; i < 100; i++ {
		// Fixed literal codes 144-255 are 9 bits: 0x190+(sym-144).
		must(bw.WriteBits(9, reverseBitsFixture(0x190+0xFF-144, 9)))
	}
	must(bw.WriteBits(7, reverseBitsFixture(0, 7))) // EOB
	must(bw.Flush())
	d := buf[:bw.Size()]

	puffed, err := PuffBuffer(d)
	if err != nil {
		t.Fatalf("PuffBuffer: %v", err)
	}
	if len(puffed) >= len(d) {
		t.Fatalf("fixture puff size %d is not below deflate size %d", len(puffed), len(d))
	}
	back, err := HuffBuffer(puffed)
	if err != nil {
		t.Fatalf("HuffBuffer: %v", err)
	}
	if !bytes.Equal(back, d) {
		t.Fatalf("HuffBuffer(PuffBuffer(d)) = %x, want %x", back, d)
	}
}

func TestRoundTripDynamicBlockWithBackReferences(t *testing.T) {
	// A real zlib-encoded dynamic block (type bits == 2) over text that
	// repeats "abcabcabc" along with other phrases, so the encoder is
	// forced to emit at least one LenDist back-reference.
	d := []byte{
		0xe5, 0x8d, 0xcb, 0x0d, 0x80, 0x20, 0x10, 0x44, 0x5b, 0x99,
		0x0a, 0xa8, 0xc5, 0x83, 0x0d, 0x2c, 0x8a, 0x88, 0x1f, 0x56,
		0x40, 0x54, 0xa8, 0xde, 0x4d, 0xbc, 0xd9, 0x81, 0x31, 0x99,
		0xdb, 0xbc, 0x37, 0xd3, 0x8e, 0x06, 0x21, 0xbb, 0x6e, 0x86,
		0x8e, 0x7c, 0x7a, 0x0c, 0x7c, 0x61, 0xca, 0xeb, 0x96, 0xc0,
		0x87, 0x89, 0xd8, 0xa5, 0x5e, 0xa8, 0x16, 0xf4, 0x6c, 0x15,
		0xda, 0x0f, 0xc2, 0xa4, 0xbb, 0x27, 0x68, 0x48, 0x8c, 0xb5,
		0x40, 0x0b, 0x7e, 0xba, 0x7d, 0xc4, 0xe0, 0x0e, 0x23, 0x50,
		0x35, 0x1e, 0x8b, 0x0b, 0x99, 0xa3, 0xac, 0xd8, 0x04, 0xf2,
		0x3d, 0xe8, 0x7d, 0xa0, 0xf0, 0x77, 0xff, 0x06,
	}
	blockType := (d[0] >> 1) & 0x3
	if blockType != 2 {
		t.Fatalf("fixture is not a dynamic block: type bits = %d", blockType)
	}

	puffBuf, err := PuffBuffer(d)
	if err != nil {
		t.Fatalf("PuffBuffer: %v", err)
	}
	pr := NewReader(puffBuf)
	var sawLenDist bool
	for {
		rec, err := pr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if rec.Kind == KindLenDist {
			sawLenDist = true
		}
	}
	if !sawLenDist {
		t.Fatal("expected at least one LenDist record in the puffed output")
	}

	got, err := HuffBuffer(puffBuf)
	if err != nil {
		t.Fatalf("HuffBuffer: %v", err)
	}
	if !bytes.Equal(got, d) {
		t.Fatalf("round trip = %x, want %x", got, d)
	}
}

func TestPuffDeflateBlocksReportsPerBlockExtents(t *testing.T) {
	d := []byte{
		0x00, 0x01, 0x00, 0xFE, 0xFF, 0x41, // block 1: not final, stored, LEN=1, payload 'A'
		0x01, 0x01, 0x00, 0xFE, 0xFF, 0x42, // block 2: final, stored, LEN=1, payload 'B'
	}
	var got []extent.BitExtent
	onBlock := func(b extent.BitExtent) { got = append(got, b) }
	if err := PuffDeflateBlocks(bitio.NewReader(d), NewWriter(nil), onBlock); err != nil {
		t.Fatalf("PuffDeflateBlocks: %v", err)
	}
	want := []extent.BitExtent{{Offset: 0, Length: 48}, {Offset: 48, Length: 48}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("blocks = %+v, want %+v", got, want)
	}
}

package patch

import (
	"bytes"
	"testing"

	"github.com/n-peugnet/puffin/extent"
)

func TestEnvelopeMarshalUnmarshalRoundTrip(t *testing.T) {
	env := &Envelope{
		Header: Header{
			Version: headerVersion,
			Src: Side{
				Deflates:   []extent.BitExtent{{Offset: 16, Length: 56}},
				Puffs:      []extent.ByteExtent{{Offset: 2, Length: 12}},
				PuffLength: 20,
			},
			Dst: Side{
				Deflates:   []extent.BitExtent{{Offset: 0, Length: 24}},
				Puffs:      []extent.ByteExtent{{Offset: 0, Length: 9}},
				PuffLength: 9,
			},
		},
		Patch: []byte("opaque bsdiff bytes"),
	}

	buf, err := env.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(buf[:4], []byte("PUF1")) {
		t.Fatalf("magic = %q, want PUF1", buf[:4])
	}

	got, err := Unmarshal(buf)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Header.Version != env.Header.Version {
		t.Errorf("Version = %d, want %d", got.Header.Version, env.Header.Version)
	}
	if got.Header.Src.PuffLength != 20 || got.Header.Dst.PuffLength != 9 {
		t.Errorf("Side lengths did not survive round trip: %+v", got.Header)
	}
	if !bytes.Equal(got.Patch, env.Patch) {
		t.Errorf("Patch = %q, want %q", got.Patch, env.Patch)
	}
}

func TestUnmarshalRejectsBadMagic(t *testing.T) {
	buf := []byte{'X', 'X', 'X', 'X', 0, 0, 0, 0}
	if _, err := Unmarshal(buf); err == nil {
		t.Error("expected an error for bad magic")
	}
}

func TestUnmarshalRejectsTruncatedHeader(t *testing.T) {
	buf := []byte{'P', 'U', 'F', '1', 0, 0, 0, 100}
	if _, err := Unmarshal(buf); err == nil {
		t.Error("expected an error for a header size past the buffer end")
	}
}

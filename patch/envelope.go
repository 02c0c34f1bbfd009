package patch

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"

	"github.com/n-peugnet/puffin/perror"
)

// magic is the 4-byte ASCII tag every puffin patch file starts with.
var magic = [4]byte{'P', 'U', 'F', '1'}

// Envelope is the wire format spec.md §6 names: magic, a big-endian
// uint32 header length, the gob-encoded Header, then the opaque inner
// patch bytes produced by a delta.Differ.
type Envelope struct {
	Header Header
	Patch  []byte
}

// Marshal serializes e following writeFile's gob-on-disk convention
// (repo.go), but into the PUF1 envelope rather than directly to a file.
func (e *Envelope) Marshal() ([]byte, error) {
	var headerBuf bytes.Buffer
	if err := gob.NewEncoder(&headerBuf).Encode(e.Header); err != nil {
		return nil, perror.Wrap(perror.InvalidInput, err, "encoding patch header")
	}
	if headerBuf.Len() > 0xFFFFFFFF {
		return nil, perror.New(perror.InvalidInput, "patch header too large to encode")
	}

	out := make([]byte, 0, 8+headerBuf.Len()+len(e.Patch))
	out = append(out, magic[:]...)
	var sizeField [4]byte
	binary.BigEndian.PutUint32(sizeField[:], uint32(headerBuf.Len()))
	out = append(out, sizeField[:]...)
	out = append(out, headerBuf.Bytes()...)
	out = append(out, e.Patch...)
	return out, nil
}

// Unmarshal parses an Envelope out of buf, following readFile's gob
// decoding convention (repo.go) for the header portion.
func Unmarshal(buf []byte) (*Envelope, error) {
	if len(buf) < 8 {
		return nil, perror.New(perror.InsufficientInput, "patch file too small for envelope header")
	}
	if !bytes.Equal(buf[:4], magic[:]) {
		return nil, perror.New(perror.InvalidInput, "bad patch envelope magic")
	}
	headerSize := binary.BigEndian.Uint32(buf[4:8])
	if int64(8)+int64(headerSize) > int64(len(buf)) {
		return nil, perror.New(perror.InsufficientInput, "patch file truncated before header end")
	}

	var header Header
	dec := gob.NewDecoder(bytes.NewReader(buf[8 : 8+headerSize]))
	if err := dec.Decode(&header); err != nil {
		return nil, perror.Wrap(perror.InvalidInput, err, "decoding patch header")
	}
	if header.Version != headerVersion {
		return nil, perror.New(perror.InvalidInput, "unsupported patch header version")
	}

	return &Envelope{Header: header, Patch: buf[8+headerSize:]}, nil
}

package puff

import (
	"github.com/n-peugnet/puffin/bitio"
	"github.com/n-peugnet/puffin/perror"
)

// PuffBuffer is the single-shot buffer-to-buffer convenience entry point
// named in spec.md §7: since the puffed size of d is not known up front,
// it first runs PuffDeflate in discovery mode to learn the exact size,
// then allocates and runs it again for real — the doubling-retry policy
// spec.md §7 describes becomes unnecessary once a caller goes through
// puff.Writer's discovery mode, which this always does.
func PuffBuffer(d []byte) ([]byte, error) {
	discovery := NewWriter(nil)
	if err := PuffDeflate(bitio.NewReader(d), discovery); err != nil {
		return nil, err
	}
	out := make([]byte, discovery.Size())
	w := NewWriter(out)
	if err := PuffDeflate(bitio.NewReader(d), w); err != nil {
		return nil, err
	}
	return out[:w.Size()], nil
}

// HuffBuffer is PuffBuffer's inverse. bitio.Writer has no discovery mode
// (deflate output is bit-packed, not a self-describing record stream), so
// this exercises the once-per-doubling retry policy spec.md §7 calls for
// instead: start from a guess sized off the puff buffer itself and double
// on InsufficientOutput until HuffDeflate succeeds.
func HuffBuffer(puffBuf []byte) ([]byte, error) {
	size := len(puffBuf)
	if size == 0 {
		size = 16
	}
	for {
		out := make([]byte, size)
		bw := bitio.NewWriter(out)
		err := HuffDeflate(NewReader(puffBuf), bw)
		if err == nil {
			return out[:bw.Size()], nil
		}
		if !perror.Is(err, perror.InsufficientOutput) {
			return nil, err
		}
		size *= 2
	}
}

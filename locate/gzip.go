package locate

import (
	"github.com/n-peugnet/puffin/bytestream"
	"github.com/n-peugnet/puffin/extent"
	"github.com/n-peugnet/puffin/perror"
)

const (
	gzipFixedHeaderLen = 10 // ID1,ID2,CM,FLG,MTIME(4),XFL,OS
	gzipTrailerLen     = 8  // CRC32(4) + ISIZE(4)

	gzipFlagFtext    = 1 << 0
	gzipFlagFhcrc    = 1 << 1
	gzipFlagFextra   = 1 << 2
	gzipFlagFname    = 1 << 3
	gzipFlagFcomment = 1 << 4
)

// Gzip locates every DEFLATE sub-block inside each RFC 1952 gzip member
// named by members, supplementing the zlib container support spec.md
// spells out verbatim: original_source's usage patterns also locate
// deflate data inside gzip members, so this adapter follows the same
// header/trailer-stripping shape as Zlib.
func Gzip(src bytestream.Stream, members []extent.ByteExtent) ([]extent.BitExtent, error) {
	var all []extent.BitExtent
	for _, m := range members {
		deflate, err := gzipDeflateExtent(src, m)
		if err != nil {
			return nil, err
		}
		blocks, err := subBlocks(src, deflate)
		if err != nil {
			return nil, err
		}
		all = append(all, blocks...)
	}
	return all, nil
}

func gzipDeflateExtent(src bytestream.Stream, m extent.ByteExtent) (extent.ByteExtent, error) {
	if m.Length < gzipFixedHeaderLen+gzipTrailerLen {
		return extent.ByteExtent{}, perror.New(perror.InvalidInput, "gzip extent too small for header and trailer")
	}
	if err := src.Seek(m.Offset); err != nil {
		return extent.ByteExtent{}, err
	}
	header := make([]byte, gzipFixedHeaderLen)
	if n, err := src.Read(header); err != nil || n != gzipFixedHeaderLen {
		return extent.ByteExtent{}, perror.Wrap(perror.InsufficientInput, err, "reading gzip header")
	}
	if header[0] != 0x1F || header[1] != 0x8B {
		return extent.ByteExtent{}, perror.New(perror.InvalidInput, "bad gzip magic")
	}
	if header[2] != 8 {
		return extent.ByteExtent{}, perror.New(perror.InvalidInput, "unsupported gzip compression method")
	}
	flg := header[3]

	headerLen := int64(gzipFixedHeaderLen)
	if flg&gzipFlagFextra != 0 {
		xlenBuf := make([]byte, 2)
		if err := src.Seek(m.Offset + headerLen); err != nil {
			return extent.ByteExtent{}, err
		}
		if n, err := src.Read(xlenBuf); err != nil || n != 2 {
			return extent.ByteExtent{}, perror.Wrap(perror.InsufficientInput, err, "reading gzip FEXTRA length")
		}
		xlen := int64(xlenBuf[0]) | int64(xlenBuf[1])<<8
		headerLen += 2 + xlen
	}
	if flg&gzipFlagFname != 0 {
		n, err := skipNulTerminated(src, m.Offset+headerLen)
		if err != nil {
			return extent.ByteExtent{}, err
		}
		headerLen += n
	}
	if flg&gzipFlagFcomment != 0 {
		n, err := skipNulTerminated(src, m.Offset+headerLen)
		if err != nil {
			return extent.ByteExtent{}, err
		}
		headerLen += n
	}
	if flg&gzipFlagFhcrc != 0 {
		headerLen += 2
	}

	payloadStart := m.Offset + headerLen
	payloadLen := m.Length - headerLen - gzipTrailerLen
	if payloadLen <= 0 {
		return extent.ByteExtent{}, perror.New(perror.InvalidInput, "gzip extent has no deflate payload")
	}
	return extent.ByteExtent{Offset: payloadStart, Length: payloadLen}, nil
}

// skipNulTerminated returns the length, including the terminating NUL, of
// the string starting at offset.
func skipNulTerminated(src bytestream.Stream, offset int64) (int64, error) {
	if err := src.Seek(offset); err != nil {
		return 0, err
	}
	var n int64
	buf := make([]byte, 1)
	for {
		if cnt, err := src.Read(buf); err != nil || cnt != 1 {
			return 0, perror.Wrap(perror.InsufficientInput, err, "reading gzip NUL-terminated field")
		}
		n++
		if buf[0] == 0 {
			return n, nil
		}
	}
}

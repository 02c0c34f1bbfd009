package locate

import (
	"github.com/n-peugnet/puffin/bytestream"
	"github.com/n-peugnet/puffin/extent"
	"github.com/n-peugnet/puffin/perror"
)

const (
	zlibHeaderLen  = 2
	zlibDictIDLen  = 4
	zlibTrailerLen = 4 // Adler-32
)

// Zlib locates every DEFLATE sub-block inside each RFC 1950 zlib stream
// named by zlibs, a caller-supplied list of byte extents within src (each
// spanning one complete zlib stream: 2-byte header, optional 4-byte
// DICTID, deflate payload, 4-byte Adler-32 trailer). It validates the
// zlib header bit pattern the way
// original_source/src/utils.cc's LocateDeflatesInZlibBlocks does, then
// delegates to subBlocks for the contained deflate data.
func Zlib(src bytestream.Stream, zlibs []extent.ByteExtent) ([]extent.BitExtent, error) {
	var all []extent.BitExtent
	for _, z := range zlibs {
		deflate, err := zlibDeflateExtent(src, z)
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

// zlibDeflateExtent validates z's 2-byte zlib header (and skips the
// optional DICTID) and returns the ByteExtent of the deflate payload it
// wraps, i.e. z with the header stripped off the front and the 4-byte
// Adler-32 checksum stripped off the back.
func zlibDeflateExtent(src bytestream.Stream, z extent.ByteExtent) (extent.ByteExtent, error) {
	if z.Length < zlibHeaderLen+zlibTrailerLen {
		return extent.ByteExtent{}, perror.New(perror.InvalidInput, "zlib extent too small for header and trailer")
	}
	if err := src.Seek(z.Offset); err != nil {
		return extent.ByteExtent{}, err
	}
	header := make([]byte, zlibHeaderLen)
	if n, err := src.Read(header); err != nil || n != zlibHeaderLen {
		return extent.ByteExtent{}, perror.Wrap(perror.InsufficientInput, err, "reading zlib header")
	}

	cmf, flg := header[0], header[1]
	cm := cmf & 0x0F
	if cm != 8 {
		return extent.ByteExtent{}, perror.New(perror.InvalidInput, "unsupported zlib compression method")
	}
	if (uint(cmf)*256+uint(flg))%31 != 0 {
		return extent.ByteExtent{}, perror.New(perror.InvalidInput, "zlib header FCHECK mismatch")
	}

	headerLen := int64(zlibHeaderLen)
	if flg&0x20 != 0 { // FDICT
		headerLen += zlibDictIDLen
	}

	payloadStart := z.Offset + headerLen
	payloadLen := z.Length - headerLen - zlibTrailerLen
	if payloadLen <= 0 {
		return extent.ByteExtent{}, perror.New(perror.InvalidInput, "zlib extent has no deflate payload")
	}
	return extent.ByteExtent{Offset: payloadStart, Length: payloadLen}, nil
}

package signature

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"io"
)

// Compressed streams (zlib, gzip). Xbox 360 builds embed zlib-wrapped
// asset blobs directly in memory with no outer container; the size-finder
// inflates the stream to learn both how many compressed bytes it consumed
// and how many bytes the decompressed payload occupies. LZX-compressed
// XMA/WMA audio is deliberately not decoded here — determining payload
// length for those formats is covered by the RIFF size-finder instead,
// since the container's declared chunk size already bounds the compressed
// frame regardless of the codec inside it.

const maxInflatedSize = 128 * 1024 * 1024

var zlibStreamDescriptor = Descriptor{
	Name:       "zlib_stream",
	Extension:  ".bin",
	Magics:     [][]byte{{0x78, 0x9C}, {0x78, 0x01}, {0x78, 0xDA}, {0x78, 0x5E}},
	MinSize:    8,
	MaxSize:    maxInflatedSize,
	Endianness: EitherEndian,
	SizeFinder: zlibSizeFinder,
	Decoder:    zlibDecode,
}

var gzipStreamDescriptor = Descriptor{
	Name:       "gzip_stream",
	Extension:  ".bin",
	Magics:     [][]byte{{0x1F, 0x8B}},
	MinSize:    18,
	MaxSize:    maxInflatedSize,
	Endianness: EitherEndian,
	SizeFinder: gzipSizeFinder,
	Decoder:    gzipDecode,
}

// zlibDecode and gzipDecode re-inflate a raw match's bytes for output; the
// SizeFinder pass above already proved the stream inflates cleanly within
// maxInflatedSize, so the only new failure mode here is a changed input
// between the two passes, which surfaces as a plain error.
func zlibDecode(raw []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(io.LimitReader(zr, maxInflatedSize+1))
}

func gzipDecode(raw []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer gr.Close()
	return io.ReadAll(io.LimitReader(gr, maxInflatedSize+1))
}

// countingReader wraps a *bytes.Reader and tracks exactly how many bytes
// have been consumed from it. It implements io.ByteReader so compress/flate
// uses it directly instead of wrapping it in its own buffered reader,
// which would otherwise over-read past the true end of the stream.
type countingReader struct {
	r   *bytes.Reader
	pos int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.pos += int64(n)
	return n, err
}

func (c *countingReader) ReadByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err == nil {
		c.pos++
	}
	return b, err
}

func zlibSizeFinder(dump []byte, off int) (Extent, bool) {
	if off >= len(dump) {
		return Extent{}, false
	}
	cr := &countingReader{r: bytes.NewReader(dump[off:])}
	zr, err := zlib.NewReader(cr)
	if err != nil {
		return Extent{}, false
	}
	defer zr.Close()

	n, err := io.Copy(io.Discard, io.LimitReader(zr, maxInflatedSize+1))
	if err != nil || n > maxInflatedSize || n == 0 {
		return Extent{}, false
	}

	return Extent{
		SizeInDump: cr.pos,
		SizeOutput: n,
		Compressed: true,
	}, true
}

func gzipSizeFinder(dump []byte, off int) (Extent, bool) {
	if off >= len(dump) {
		return Extent{}, false
	}
	cr := &countingReader{r: bytes.NewReader(dump[off:])}
	gr, err := gzip.NewReader(cr)
	if err != nil {
		return Extent{}, false
	}
	defer gr.Close()

	n, err := io.Copy(io.Discard, io.LimitReader(gr, maxInflatedSize+1))
	if err != nil || n > maxInflatedSize || n == 0 {
		return Extent{}, false
	}

	return Extent{
		SizeInDump: cr.pos,
		SizeOutput: n,
		Compressed: true,
	}, true
}

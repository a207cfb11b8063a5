// Package diskio provides a read-only, offset-addressed view over a dump
// file, shared by the carving engine, the minidump reassembler, and the
// coverage analyzer.
package diskio

import (
	"fmt"
	"io"
	"os"
)

// MinDumpSize rejects obviously-too-small inputs before any parser runs.
const MinDumpSize = 64

// Reader is a read-only, random-access view over a dump file or device.
type Reader struct {
	file *os.File
	size int64
}

// Open opens path for reading and determines its size. For regular files
// this is just Stat; for block devices (size 0 from Stat) it falls back to
// seeking to the end, mirroring how raw device files report size on most
// platforms.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dump: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat dump: %w", err)
	}

	size := stat.Size()
	if size == 0 {
		size, err = file.Seek(0, io.SeekEnd)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to determine dump size: %w", err)
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to rewind dump: %w", err)
		}
	}

	if size < MinDumpSize {
		file.Close()
		return nil, fmt.Errorf("%w: dump is only %d bytes", ErrTooSmall, size)
	}

	return &Reader{file: file, size: size}, nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	return r.file.Close()
}

// Size returns the total length of the dump in bytes.
func (r *Reader) Size() int64 {
	return r.size
}

// ReadAt reads len(buf) bytes starting at offset, same contract as
// io.ReaderAt except that io.EOF on a short final read is not an error here
// — callers inspect the returned n instead, matching how the carving
// engine and reassembler both tolerate a short last chunk.
func (r *Reader) ReadAt(buf []byte, offset int64) (int, error) {
	n, err := r.file.ReadAt(buf, offset)
	if err == io.EOF {
		err = nil
	}
	return n, err
}

// ReadRange reads up to size bytes at offset into a freshly allocated
// slice, clamping to the dump's end rather than erroring — used by callers
// that only know an upper bound on how much data they want (the
// reassembler's per-fragment copies, the coverage analyzer's gap samples).
func (r *Reader) ReadRange(offset, size int64) ([]byte, error) {
	if offset < 0 || offset >= r.size || size <= 0 {
		return nil, nil
	}
	if offset+size > r.size {
		size = r.size - offset
	}
	buf := make([]byte, size)
	n, err := r.ReadAt(buf, offset)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// Package binutil provides the small binary-decoding and hashing helpers
// shared by the MRXS and TIFF plug-ins: little-endian integer reads,
// zlib inflate, and the SHA-256 quickhash builder.
package binutil

import (
	"bytes"
	"compress/zlib"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"hash"
	"io"
)

// ReadLEInt32 reads a little-endian signed 32-bit integer.
func ReadLEInt32(r io.Reader) (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(buf[:])), nil
}

// ReadLEUint32 reads a little-endian unsigned 32-bit integer.
func ReadLEUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// InflateAll decompresses a zlib-framed buffer in full. MRXS camera-position
// buffers and TIFF Deflate-compressed tiles both use this framing.
func InflateAll(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// LooksZlibCompressed reports whether data starts with a zlib stream header
// (0x78 0x9C being the common "default compression" variant used by MRXS
// camera-position buffers).
func LooksZlibCompressed(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x78 && (data[1] == 0x9C || data[1] == 0x01 || data[1] == 0xDA || data[1] == 0x5E)
}

// QuickHashBuilder accumulates bytes into a running SHA-256 digest and
// renders the final lower-hex digest exactly once. Subsequent calls to
// Finalize after the first return an empty string, mirroring the
// one-shot semantics of the original hash.cpp implementation.
type QuickHashBuilder struct {
	h        hash.Hash
	finished bool
}

// NewQuickHashBuilder creates an empty hash builder.
func NewQuickHashBuilder() *QuickHashBuilder {
	return &QuickHashBuilder{h: sha256.New()}
}

// Write feeds raw bytes into the digest.
func (b *QuickHashBuilder) Write(p []byte) {
	if b.finished {
		return
	}
	b.h.Write(p)
}

// WriteFilePart seeks to offset in r and feeds length bytes into the digest.
func (b *QuickHashBuilder) WriteFilePart(r io.ReaderAt, offset int64, length int) error {
	if b.finished {
		return nil
	}
	buf := make([]byte, length)
	if _, err := r.ReadAt(buf, offset); err != nil {
		return err
	}
	b.h.Write(buf)
	return nil
}

// Finalize renders the accumulated digest as lowercase hex. Calling it more
// than once returns "".
func (b *QuickHashBuilder) Finalize() string {
	if b.finished {
		return ""
	}
	b.finished = true
	return fmt.Sprintf("%x", b.h.Sum(nil))
}

package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// Values at or above compressThreshold are stored as an lz4 block behind
// an 8-byte magic and a 4-byte little-endian uncompressed size.
const compressThreshold = 1 << 10

var lz4Magic = []byte("cdLz40\x00\x00")

// An lz4 block expands by at most 255x, and nothing stored here comes
// close to maxValueSize.
const (
	maxExpansion = 255
	maxValueSize = 64 << 20
)

// Compress frames data as an lz4 block when it is large enough and
// actually shrinks. Otherwise data is returned unchanged.
func Compress(data []byte) []byte {
	if len(data) < compressThreshold {
		return data
	}
	dst := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, dst, nil)
	if err != nil || n == 0 || n+len(lz4Magic)+4 >= len(data) {
		return data
	}

	out := make([]byte, 0, len(lz4Magic)+4+n)
	out = append(out, lz4Magic...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(data)))
	return append(out, dst[:n]...)
}

// Decompress reverses Compress. Unframed data is returned as is.
func Decompress(data []byte) ([]byte, error) {
	const headerSize = 12 // 8 magic + 4 size

	if !bytes.HasPrefix(data, lz4Magic) {
		return data, nil
	}
	if len(data) < headerSize {
		return nil, fmt.Errorf("lz4 value: data too short (%d bytes)", len(data))
	}

	payload := data[headerSize:]
	size := int(binary.LittleEndian.Uint32(data[8:12]))
	if size > maxValueSize || size > maxExpansion*len(payload) {
		return nil, fmt.Errorf("lz4 value: implausible size %d for %d-byte payload", size, len(payload))
	}
	dst := make([]byte, size)
	n, err := lz4.UncompressBlock(payload, dst)
	if err != nil {
		return nil, fmt.Errorf("lz4 value: decompress failed: %w", err)
	}
	if n != size {
		return nil, fmt.Errorf("lz4 value: got %d bytes, header says %d", n, size)
	}
	return dst, nil
}

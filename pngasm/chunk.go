// Package pngasm assembles minimal PNG byte streams by hand: a signature,
// one IHDR chunk, one IDAT chunk and one IEND chunk. It only needs a zlib
// compressor and CRC-32, no image encoder.
package pngasm

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/pkg/errors"
)

// Chunk type tags used by the assembler.
const (
	TypeIHDR = "IHDR"
	TypeIDAT = "IDAT"
	TypeIEND = "IEND"
)

// Signature is the fixed 8-byte PNG file signature.
var Signature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// Chunk is a decoded chunk as read back from a PNG stream.
type Chunk struct {
	Type string
	Data []byte
	CRC  uint32
}

// Checksum recomputes the CRC-32 over type || data.
func (c Chunk) Checksum() uint32 {
	return chunkCRC(c.Type, c.Data)
}

// IsCritical reports whether the chunk is critical (uppercase first letter).
func (c Chunk) IsCritical() bool {
	return len(c.Type) == 4 && c.Type[0] >= 'A' && c.Type[0] <= 'Z'
}

// BuildChunk frames data as a PNG chunk:
// length(4, big-endian) || type || data || crc32(type || data)(4, big-endian).
// Type tags that are not exactly 4 bytes are rejected.
func BuildChunk(typ string, data []byte) ([]byte, error) {
	if len(typ) != 4 {
		return nil, &AssemblyError{Op: "chunk", Err: errors.Wrapf(ErrInvalidChunkType, "got %q", typ)}
	}
	return appendChunk(make([]byte, 0, 12+len(data)), typ, data), nil
}

// appendChunk writes a framed chunk to dst. typ must already be validated.
func appendChunk(dst []byte, typ string, data []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(data)))
	dst = append(dst, typ...)
	dst = append(dst, data...)
	return binary.BigEndian.AppendUint32(dst, chunkCRC(typ, data))
}

func chunkCRC(typ string, data []byte) uint32 {
	h := crc32.NewIEEE()
	h.Write([]byte(typ))
	h.Write(data)
	return h.Sum32()
}

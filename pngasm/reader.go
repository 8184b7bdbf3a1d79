package pngasm

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// ReadChunks checks the PNG signature, then reads chunks up to and including
// IEND, verifying every CRC.
func ReadChunks(r io.Reader) ([]Chunk, error) {
	sig := make([]byte, len(Signature))
	if _, err := io.ReadFull(r, sig); err != nil {
		return nil, errors.Wrap(ErrBadSignature, err.Error())
	}
	if !bytes.Equal(sig, Signature) {
		return nil, ErrBadSignature
	}

	var chunks []Chunk
	var head [8]byte
	for {
		if _, err := io.ReadFull(r, head[:]); err != nil {
			return chunks, errors.Wrapf(ErrTruncated, "chunk %d header", len(chunks))
		}
		length := binary.BigEndian.Uint32(head[:4])
		if length > MaxBufferSize {
			return chunks, errors.Wrapf(ErrTruncated, "chunk %d claims %d bytes", len(chunks), length)
		}

		c := Chunk{Type: string(head[4:]), Data: make([]byte, length)}
		if _, err := io.ReadFull(r, c.Data); err != nil {
			return chunks, errors.Wrapf(ErrTruncated, "%s data", c.Type)
		}

		var trailer [4]byte
		if _, err := io.ReadFull(r, trailer[:]); err != nil {
			return chunks, errors.Wrapf(ErrTruncated, "%s crc", c.Type)
		}
		c.CRC = binary.BigEndian.Uint32(trailer[:])
		if got := c.Checksum(); got != c.CRC {
			return chunks, errors.Wrapf(ErrChecksumMismatch, "%s: stored %08x, computed %08x", c.Type, c.CRC, got)
		}

		chunks = append(chunks, c)
		if c.Type == TypeIEND {
			return chunks, nil
		}
	}
}

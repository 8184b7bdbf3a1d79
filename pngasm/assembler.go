package pngasm

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
)

// IHDR format fields: bit depth 8, colour type 6 (RGBA), compression 0,
// filter 0, interlace 0.
var headerFormat = []byte{8, 6, 0, 0, 0}

// MaxBufferSize caps the uncompressed scanline buffer (256 MiB).
const MaxBufferSize = 256 << 20

// Assembler produces fully transparent RGBA PNG streams.
type Assembler struct {
	level int
}

// NewAssembler returns an Assembler compressing at the given zlib level.
// An invalid level surfaces as an AssemblyError from the compress step.
func NewAssembler(level int) *Assembler {
	return &Assembler{level: level}
}

var defaultAssembler = NewAssembler(zlib.DefaultCompression)

// Assemble builds a width x height transparent PNG at the default level.
func Assemble(width, height int) ([]byte, error) {
	return defaultAssembler.Assemble(width, height)
}

// BuildImageDataChunk compresses the scanline buffer into an IDAT chunk at
// the default level.
func BuildImageDataChunk(width, height int) ([]byte, error) {
	return defaultAssembler.BuildImageDataChunk(width, height)
}

// Assemble concatenates signature, IHDR, IDAT and IEND in that order.
func (a *Assembler) Assemble(width, height int) ([]byte, error) {
	if err := checkDimensions(width, height); err != nil {
		return nil, &AssemblyError{Op: "assemble", Err: err}
	}

	idat, err := a.BuildImageDataChunk(width, height)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(Signature)+25+len(idat)+12)
	out = append(out, Signature...)
	out = append(out, BuildHeaderChunk(uint32(width), uint32(height))...)
	out = append(out, idat...)
	out = append(out, BuildEndChunk()...)
	return out, nil
}

// BuildImageDataChunk compresses the scanline buffer with zlib and frames it
// as IDAT.
func (a *Assembler) BuildImageDataChunk(width, height int) ([]byte, error) {
	if err := checkDimensions(width, height); err != nil {
		return nil, &AssemblyError{Op: "compress", Err: err}
	}

	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, a.level)
	if err != nil {
		return nil, &AssemblyError{Op: "compress", Err: errors.Wrap(err, "create zlib writer")}
	}
	if _, err := zw.Write(BuildPixelBuffer(width, height)); err != nil {
		return nil, &AssemblyError{Op: "compress", Err: errors.Wrap(err, "deflate scanlines")}
	}
	if err := zw.Close(); err != nil {
		return nil, &AssemblyError{Op: "compress", Err: errors.Wrap(err, "flush zlib stream")}
	}

	return appendChunk(make([]byte, 0, buf.Len()+12), TypeIDAT, buf.Bytes()), nil
}

// BuildHeaderChunk encodes the IHDR chunk for an 8-bit RGBA image.
func BuildHeaderChunk(width, height uint32) []byte {
	data := make([]byte, 0, 13)
	data = binary.BigEndian.AppendUint32(data, width)
	data = binary.BigEndian.AppendUint32(data, height)
	data = append(data, headerFormat...)
	return appendChunk(make([]byte, 0, 25), TypeIHDR, data)
}

// BuildPixelBuffer returns the uncompressed scanlines: height rows of one
// filter byte (0, none) followed by width transparent black pixels.
// Length is height * (1 + 4*width). It returns nil for dimensions that
// Assemble would reject.
func BuildPixelBuffer(width, height int) []byte {
	if checkDimensions(width, height) != nil {
		return nil
	}
	// A zeroed buffer already holds filter type 0 and RGBA (0,0,0,0).
	return make([]byte, height*(1+4*width))
}

// BuildEndChunk returns the empty IEND chunk.
func BuildEndChunk() []byte {
	return appendChunk(make([]byte, 0, 12), TypeIEND, nil)
}

func checkDimensions(width, height int) error {
	if width < 1 || height < 1 || width > math.MaxInt32 || height > math.MaxInt32 {
		return errors.Wrapf(ErrInvalidDimensions, "%dx%d", width, height)
	}
	if uint64(height)*(1+4*uint64(width)) > MaxBufferSize {
		return errors.Wrapf(ErrImageTooLarge, "%dx%d", width, height)
	}
	return nil
}

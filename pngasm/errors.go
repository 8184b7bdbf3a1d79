package pngasm

import (
	"github.com/pkg/errors"
)

// Common errors
var (
	ErrInvalidChunkType  = errors.New("chunk type must be exactly 4 bytes")
	ErrInvalidDimensions = errors.New("width and height must be between 1 and 2147483647")
	ErrImageTooLarge     = errors.New("scanline buffer exceeds size limit")
	ErrBadSignature      = errors.New("missing PNG signature")
	ErrChecksumMismatch  = errors.New("chunk CRC mismatch")
	ErrTruncated         = errors.New("truncated chunk")
)

// AssemblyError is the single failure class of the assembler. Op names the
// step that failed ("chunk", "header", "compress", "assemble").
type AssemblyError struct {
	Op  string
	Err error
}

func (e *AssemblyError) Error() string {
	return "png assembly failed at " + e.Op + ": " + e.Err.Error()
}

func (e *AssemblyError) Unwrap() error {
	return e.Err
}

// IsAssemblyError reports whether err (or anything it wraps) is an *AssemblyError.
func IsAssemblyError(err error) bool {
	var ae *AssemblyError
	return errors.As(err, &ae)
}

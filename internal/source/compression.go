package source

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"

	"github.com/ulikunitz/xz"
)

// ErrTooLarge is returned when a payload exceeds its size limit
var ErrTooLarge = errors.New("payload too large")

// Compression is the container format wrapping an uploaded table
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionBzip2
	CompressionXZ
)

// String returns the format name
func (c Compression) String() string {
	switch c {
	case CompressionGzip:
		return "gzip"
	case CompressionBzip2:
		return "bzip2"
	case CompressionXZ:
		return "xz"
	default:
		return "none"
	}
}

var (
	gzipMagic  = []byte{0x1f, 0x8b}
	bzip2Magic = []byte{0x42, 0x5a, 0x68}
	xzMagic    = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}
	zipMagic   = []byte{0x50, 0x4b, 0x03, 0x04}
)

// DetectCompression inspects the leading magic bytes of data
func DetectCompression(data []byte) Compression {
	switch {
	case bytes.HasPrefix(data, gzipMagic):
		return CompressionGzip
	case bytes.HasPrefix(data, bzip2Magic):
		return CompressionBzip2
	case bytes.HasPrefix(data, xzMagic):
		return CompressionXZ
	default:
		return CompressionNone
	}
}

// Decompress unwraps data according to its magic bytes. The output is capped
// at limit bytes when limit is positive.
func Decompress(data []byte, limit int64) ([]byte, Compression, error) {
	kind := DetectCompression(data)
	var r io.Reader
	switch kind {
	case CompressionNone:
		return data, kind, nil
	case CompressionGzip:
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, kind, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	case CompressionBzip2:
		r = bzip2.NewReader(bytes.NewReader(data))
	case CompressionXZ:
		xr, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, kind, fmt.Errorf("failed to create xz reader: %w", err)
		}
		r = xr
	}

	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, kind, fmt.Errorf("failed to decompress %s data: %w", kind, err)
	}
	if limit > 0 && int64(len(out)) > limit {
		return nil, kind, fmt.Errorf("decompressed %s data exceeds %d bytes: %w", kind, limit, ErrTooLarge)
	}
	return out, kind, nil
}

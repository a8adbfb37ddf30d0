package cache

import (
	"bytes"
	"compress/gzip"
	"io"

	"github.com/pkg/errors"
)

// Compressor is a pluggable payload compression strategy. The cache layer
// selects it through a size-threshold predicate rather than hardwiring a
// codec, so the codec can be swapped without touching callers.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// GzipCompressor compresses payloads with gzip.
type GzipCompressor struct{}

func (GzipCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, errors.Wrap(err, "gzip write")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "gzip close")
	}
	return buf.Bytes(), nil
}

func (GzipCompressor) Decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "gzip reader")
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "gzip read")
	}
	return out, nil
}

// IdentityCompressor passes payloads through unchanged.
type IdentityCompressor struct{}

func (IdentityCompressor) Compress(data []byte) ([]byte, error)   { return data, nil }
func (IdentityCompressor) Decompress(data []byte) ([]byte, error) { return data, nil }

var (
	_ Compressor = GzipCompressor{}
	_ Compressor = IdentityCompressor{}
)

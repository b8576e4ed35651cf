package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/veclust/blobstore"
	"github.com/hupe1980/veclust/codec"
	"github.com/hupe1980/veclust/internal/compress"
)

const (
	magic         = "VCLM"
	formatVersion = 1
)

// ErrInvalidFormat is returned when a blob is not a model written by Save.
var ErrInvalidFormat = errors.New("model: invalid format")

type saveOptions struct {
	codec       codec.Codec
	compression compress.Type
	err         error
}

// SaveOption configures Save and Encode.
type SaveOption func(*saveOptions)

// WithCodec sets the payload codec. The default is codec.Default.
func WithCodec(c codec.Codec) SaveOption {
	return func(o *saveOptions) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithCompression sets the payload compression by name ("none", "lz4" or
// "zstd"). The default is zstd. Unknown names are reported by Save.
func WithCompression(name string) SaveOption {
	return func(o *saveOptions) {
		t, err := compress.ParseType(name)
		if err != nil {
			o.err = err
			return
		}
		o.compression = t
	}
}

// Encode serializes m into the self-describing model format.
func Encode(m *Model, opts ...SaveOption) ([]byte, error) {
	o := saveOptions{codec: codec.Default, compression: compress.ZSTD}
	for _, opt := range opts {
		opt(&o)
	}
	if o.err != nil {
		return nil, fmt.Errorf("model: %w", o.err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	name := o.codec.Name()
	if len(name) > 255 {
		return nil, fmt.Errorf("model: codec name %q too long", name)
	}

	payload, err := o.codec.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("model: encode with %s: %w", name, err)
	}
	block, err := compress.Encode(payload, o.compression)
	if err != nil {
		return nil, fmt.Errorf("model: compress: %w", err)
	}

	buf := make([]byte, 0, len(magic)+3+len(name)+len(block))
	buf = append(buf, magic...)
	buf = append(buf, formatVersion, byte(len(name)))
	buf = append(buf, name...)
	buf = append(buf, byte(o.compression))
	buf = append(buf, block...)
	return buf, nil
}

// Decode parses a blob written by Encode.
func Decode(data []byte) (*Model, error) {
	if len(data) < len(magic)+2 || string(data[:len(magic)]) != magic {
		return nil, fmt.Errorf("%w: bad magic", ErrInvalidFormat)
	}
	off := len(magic)

	if v := data[off]; v != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidFormat, v)
	}
	nameLen := int(data[off+1])
	off += 2

	if len(data) < off+nameLen+1 {
		return nil, fmt.Errorf("%w: truncated header", ErrInvalidFormat)
	}
	name := string(data[off : off+nameLen])
	off += nameLen

	c, ok := codec.ByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown codec %q", ErrInvalidFormat, name)
	}
	compression := compress.Type(data[off])
	off++

	payload, err := compress.Decode(data[off:], compression)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	m := &Model{}
	if err := c.Unmarshal(payload, m); err != nil {
		return nil, fmt.Errorf("%w: decode with %s: %v", ErrInvalidFormat, name, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return m, nil
}

// Save encodes m and writes it to store under name.
func Save(ctx context.Context, store blobstore.Store, name string, m *Model, opts ...SaveOption) error {
	data, err := Encode(m, opts...)
	if err != nil {
		return err
	}
	if err := store.Put(ctx, name, data); err != nil {
		return fmt.Errorf("model: save %q: %w", name, err)
	}
	return nil
}

// Load reads and decodes the model stored under name.
// A missing model satisfies errors.Is(err, blobstore.ErrNotFound).
func Load(ctx context.Context, store blobstore.Store, name string) (*Model, error) {
	data, err := store.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("model: load %q: %w", name, err)
	}
	return Decode(data)
}

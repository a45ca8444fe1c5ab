package codec

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Frame markers written as the first byte of a compressed payload.
const (
	frameRaw  byte = 0
	frameZstd byte = 1
)

// MinCompressSize is the payload size below which compression is skipped.
const MinCompressSize = 1024

// ErrBadFrame is returned when a payload has an unknown frame marker.
var ErrBadFrame = errors.New("unknown payload frame")

// Compressor frames payloads, zstd-compressing the ones worth compressing.
// A nil *Compressor frames everything raw.
type Compressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCompressor creates a Compressor at the given zstd level (1-22).
// Level 0 disables compression but still reads compressed frames.
func NewCompressor(level int) (*Compressor, error) {
	c := &Compressor{}
	var err error
	if level > 0 {
		c.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
	}
	c.decoder, err = zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return c, nil
}

// Pack frames data, compressing it when that makes it smaller.
func (c *Compressor) Pack(data []byte) []byte {
	if c != nil && c.encoder != nil && len(data) > MinCompressSize {
		out := c.encoder.EncodeAll(data, []byte{frameZstd})
		if len(out) < len(data)+1 {
			return out
		}
	}
	out := make([]byte, 0, len(data)+1)
	out = append(out, frameRaw)
	return append(out, data...)
}

// Unpack reverses Pack.
func (c *Compressor) Unpack(framed []byte) ([]byte, error) {
	if len(framed) == 0 {
		return nil, ErrBadFrame
	}
	switch framed[0] {
	case frameRaw:
		return framed[1:], nil
	case frameZstd:
		if c == nil || c.decoder == nil {
			return nil, fmt.Errorf("zstd frame without decoder: %w", ErrBadFrame)
		}
		data, err := c.decoder.DecodeAll(framed[1:], nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decode: %w", err)
		}
		return data, nil
	default:
		return nil, ErrBadFrame
	}
}

// Close releases the zstd encoder and decoder.
func (c *Compressor) Close() {
	if c == nil {
		return
	}
	if c.encoder != nil {
		_ = c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
}

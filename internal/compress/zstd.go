// Package compress wraps klauspost/compress/zstd behind the level set the
// backup engine exposes to callers: named presets plus an escape hatch for
// a raw zstd level.
package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Level is one of the named presets the engine's config accepts, or
// LevelCustom with an explicit zstd level attached.
type Level int

const (
	LevelNone     Level = 0
	LevelFast     Level = 1
	LevelBalanced Level = 3
	LevelGood     Level = 6
	LevelBest     Level = 9
	LevelCustom   Level = -1
)

// zstdLevel maps a Level to the underlying zstd.EncoderLevel, clamping a
// custom value to the library's supported range.
func zstdLevel(l Level, custom int) zstd.EncoderLevel {
	v := int(l)
	if l == LevelCustom {
		v = custom
	}
	switch {
	case v <= 1:
		return zstd.SpeedFastest
	case v <= 3:
		return zstd.SpeedDefault
	case v <= 6:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

// Compress encodes plaintext at level, returning the compressed bytes. If
// level is LevelNone, compress is a no-op (still grounded on the
// transparency rule: callers decide separately whether to keep the
// result based on size).
func Compress(plaintext []byte, level Level, customLevel int) ([]byte, error) {
	if level == LevelNone {
		return plaintext, nil
	}
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstdLevel(level, customLevel)))
	if err != nil {
		return nil, fmt.Errorf("compress: new encoder: %w", err)
	}
	if _, err := enc.Write(plaintext); err != nil {
		enc.Close()
		return nil, fmt.Errorf("compress: write: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("compress: close: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress.
func Decompress(compressed []byte) ([]byte, error) {
	dec, err := zstd.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("compress: new decoder: %w", err)
	}
	defer dec.Close()
	out, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("compress: read: %w", err)
	}
	return out, nil
}

// ShouldKeep implements the transparency rule from the engine's compress
// stage: compression is discarded if it did not actually shrink the data.
func ShouldKeep(plaintextLen, compressedLen int) bool {
	return compressedLen < plaintextLen
}

// MinSizeToAttempt is the plaintext size threshold above which the engine
// attempts compression at all.
const MinSizeToAttempt = 10 << 20

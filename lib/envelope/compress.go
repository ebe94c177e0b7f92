// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package envelope

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Encoding identifies the payload compression applied before
// encryption. These values are protocol constants — changing them
// breaks envelope compatibility.
type Encoding uint8

const (
	// EncodingNone indicates an uncompressed payload. Small payloads
	// and incompressible ones ship this way.
	EncodingNone Encoding = 0

	// EncodingLZ4 indicates LZ4 block compression. Fast fallback when
	// zstd does not pay for itself on the payload.
	EncodingLZ4 Encoding = 1

	// EncodingZstd indicates zstd at the default level. Preferred for
	// the JSON-shaped payloads envelopes usually carry.
	EncodingZstd Encoding = 2
)

// String returns the wire name of the encoding.
func (e Encoding) String() string {
	switch e {
	case EncodingNone:
		return "none"
	case EncodingLZ4:
		return "lz4"
	case EncodingZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(e))
	}
}

// ParseEncoding parses an encoding from its wire name.
func ParseEncoding(name string) (Encoding, error) {
	switch name {
	case "none":
		return EncodingNone, nil
	case "lz4":
		return EncodingLZ4, nil
	case "zstd":
		return EncodingZstd, nil
	default:
		return 0, fmt.Errorf("envelope: unknown encoding %q", name)
	}
}

// MarshalText implements encoding.TextMarshaler so encodings
// serialize by wire name in JSON and CBOR. Unknown values marshal as
// their String form rather than failing, for the same reason as
// Domain.MarshalText: signing bases must encode for any envelope.
func (e Encoding) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown names
// decode to an out-of-range value so the structural check rejects the
// envelope, mirroring Domain's decode behavior.
func (e *Encoding) UnmarshalText(text []byte) error {
	parsed, err := ParseEncoding(string(text))
	if err != nil {
		*e = Encoding(^uint8(0))
		return nil
	}
	*e = parsed
	return nil
}

// zstdEncoder and zstdDecoder are shared across all envelopes. Both
// are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		panic("envelope: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("envelope: zstd decoder initialization failed: " + err.Error())
	}
}

// compressPayload compresses plaintext for sealing, choosing the
// encoding by probe: zstd when the ratio clears 1.5x, LZ4 when it
// clears 1.1x, otherwise none. Never fails — incompressible payloads
// ship unchanged.
func compressPayload(plaintext []byte) ([]byte, Encoding) {
	if len(plaintext) == 0 {
		return plaintext, EncodingNone
	}

	zstdCompressed := zstdEncoder.EncodeAll(plaintext, nil)
	ratio := float64(len(plaintext)) / float64(len(zstdCompressed))

	switch {
	case ratio >= 1.5:
		return zstdCompressed, EncodingZstd

	case ratio >= 1.1:
		bound := lz4.CompressBlockBound(len(plaintext))
		destination := make([]byte, bound)
		written, err := lz4.CompressBlock(plaintext, destination, nil)
		// CompressBlock reports incompressible data as written == 0.
		if err != nil || written == 0 || written >= len(plaintext) {
			return plaintext, EncodingNone
		}
		return destination[:written], EncodingLZ4

	default:
		return plaintext, EncodingNone
	}
}

// decompressPayload reverses compressPayload. The plaintextSize must
// match the original length exactly — a mismatch is an error, not a
// truncation.
func decompressPayload(data []byte, encoding Encoding, plaintextSize int) ([]byte, error) {
	switch encoding {
	case EncodingNone:
		if len(data) != plaintextSize {
			return nil, fmt.Errorf("uncompressed payload: size %d does not match declared %d",
				len(data), plaintextSize)
		}
		return data, nil

	case EncodingLZ4:
		destination := make([]byte, plaintextSize)
		read, err := lz4.UncompressBlock(data, destination)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if read != plaintextSize {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, plaintextSize)
		}
		return destination, nil

	case EncodingZstd:
		result, err := zstdDecoder.DecodeAll(data, make([]byte, 0, plaintextSize))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(result) != plaintextSize {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), plaintextSize)
		}
		return result, nil

	default:
		return nil, fmt.Errorf("envelope: unsupported encoding %d", encoding)
	}
}

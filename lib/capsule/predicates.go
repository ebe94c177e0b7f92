// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package capsule

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/warrant-foundation/warrant/lib/codec"
	"github.com/warrant-foundation/warrant/lib/keyset"
	"github.com/warrant-foundation/warrant/lib/secret"
)

// Derivation labels, one per predicate category plus the final key.
// Versioned: changing any encoding means a new label, not a silent
// reinterpretation of old capsules.
var (
	labelIdentity = []byte("warrant.capsule.identity.v1")
	labelPoint    = []byte("warrant.capsule.point.v1")
	labelPath     = []byte("warrant.capsule.path.v1")
	labelQuorum   = []byte("warrant.capsule.quorum.v1")
	labelKey      = []byte("warrant.capsule.key.v1")
)

// Float bit patterns used by point normalization.
const (
	negativeZeroBits = 0x8000000000000000
	quietNaNBits     = 0x7ff8000000000000
)

// ErrNaNCoordinate is returned by Seal for a committed point with a
// NaN coordinate. A NaN commitment could never be satisfied (NaN
// compares unequal to itself), so sealing one is a caller bug.
var ErrNaNCoordinate = errors.New("capsule: point coordinate is NaN")

// Point is a geometric coordinate vector. Equality is bit-exact over
// the big-endian IEEE-754 encoding after normalization: negative zero
// equals zero, and nothing else is approximate.
type Point []float64

// Share is one quorum share: a stable holder id and the share secret.
type Share struct {
	ID     string `json:"id"`
	Secret []byte `json:"secret"`
}

// Predicates carries the four predicate values, committed at seal time
// and claimed at attempt time. All four always contribute to the key —
// an unused category contributes its zero value, which is still a
// commitment (the claimant must present the same zero value).
type Predicates struct {
	// Identity is the claimant identity string, compared as raw UTF-8.
	Identity string

	// Point is the geometric predicate.
	Point Point

	// Path is the ordered traversal history. Order is part of the
	// commitment; nil and empty are equivalent.
	Path []string

	// Shares is the quorum share set. The committed set names the
	// required holders; a claim must present exactly that set (any
	// missing, extra, or corrupted share degrades to a uniformly wrong
	// key). Presentation order does not matter.
	Shares []Share
}

// encodePoint produces the canonical point encoding: one big-endian
// IEEE-754 word per coordinate, negative zero normalized to zero. At
// seal time a NaN coordinate is an error; at attempt time it folds to
// a fixed bit pattern, giving a deterministic wrong key instead of a
// distinguishable failure.
func encodePoint(point Point, sealing bool) ([]byte, error) {
	encoded := make([]byte, 8*len(point))
	for index, coordinate := range point {
		bits := math.Float64bits(coordinate)
		switch {
		case math.IsNaN(coordinate):
			if sealing {
				return nil, fmt.Errorf("%w (coordinate %d)", ErrNaNCoordinate, index)
			}
			bits = quietNaNBits
		case bits == negativeZeroBits:
			bits = 0
		}
		binary.BigEndian.PutUint64(encoded[8*index:], bits)
	}
	return encoded, nil
}

// encodePath produces the canonical path encoding: deterministic CBOR
// of the ordered list. Nil normalizes to empty so the two spellings of
// "no history" commit identically.
func encodePath(path []string) ([]byte, error) {
	if path == nil {
		path = []string{}
	}
	return codec.Marshal(path)
}

// quorumFold is the committed shape of a share set: the sorted holder
// ids and the XOR fold of the share secrets.
type quorumFold struct {
	IDs  []string `cbor:"1,keyasint"`
	Fold []byte   `cbor:"2,keyasint"`
}

// encodeShares produces the canonical quorum encoding. Shares are
// sorted by id, the secrets XOR-combined into a fixed-width
// accumulator, and the result serialized with the id list. Too few
// shares, too many, or a corrupted secret all yield a different
// encoding — and therefore a uniformly wrong key — never an error.
func encodeShares(shares []Share) ([]byte, error) {
	sorted := slices.Clone(shares)
	slices.SortFunc(sorted, func(a, b Share) int {
		return strings.Compare(a.ID, b.ID)
	})

	fold := make([]byte, keyset.KeySize)
	ids := make([]string, 0, len(sorted))
	for _, share := range sorted {
		for index, b := range share.Secret {
			fold[index%keyset.KeySize] ^= b
		}
		ids = append(ids, share.ID)
	}

	return codec.Marshal(quorumFold{IDs: ids, Fold: fold})
}

// deriveKey computes the capsule AEAD key for a predicate set: one
// sub-key per category under its own label, concatenated in fixed
// category order as input keying material for the final salted
// derivation. Any single differing predicate value changes its
// sub-key entirely, which changes the final key entirely.
func deriveKey(predicates Predicates, salt []byte, sealing bool) (*secret.Buffer, error) {
	pointBytes, err := encodePoint(predicates.Point, sealing)
	if err != nil {
		return nil, err
	}
	pathBytes, err := encodePath(predicates.Path)
	if err != nil {
		return nil, err
	}
	shareBytes, err := encodeShares(predicates.Shares)
	if err != nil {
		return nil, err
	}

	contributions := []struct {
		label []byte
		value []byte
	}{
		{labelIdentity, []byte(predicates.Identity)},
		{labelPoint, pointBytes},
		{labelPath, pathBytes},
		{labelQuorum, shareBytes},
	}

	keyMaterial := make([]byte, 0, len(contributions)*keyset.KeySize)
	defer func() { secret.Zero(keyMaterial) }()
	for _, contribution := range contributions {
		subKey, err := keyset.Derive(contribution.value, nil, contribution.label)
		if err != nil {
			return nil, err
		}
		keyMaterial = append(keyMaterial, subKey.Bytes()...)
		subKey.Close()
	}

	return keyset.Derive(keyMaterial, salt, labelKey)
}

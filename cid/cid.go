// Package cid implements Orbit's content identifiers: the 32-byte strong
// hash used to address chunk contents, and the cheap rolling weak hash used
// by the chunker and delta engine to find candidate boundaries and matches
// before paying for a strong hash.
package cid

import (
	"encoding/hex"
	"encoding/json"
	"errors"

	"golang.org/x/crypto/blake2b"
)

// Size is the length in bytes of a content ID.
const Size = 32

// CID is a 32-byte strong-hash digest of a chunk's bytes. Equality of CIDs
// is equality of chunk contents (collision resistance is assumed).
type CID [Size]byte

// ErrWrongLength is returned when decoding a hex string of the wrong length.
var ErrWrongLength = errors.New("cid: encoded value has the wrong length")

// Sum computes the CID of data.
func Sum(data []byte) CID {
	return CID(blake2b.Sum256(data))
}

// SumAll concatenates and hashes every input in order, equivalent to
// Sum(concat(parts...)) without the intermediate allocation for each part.
func SumAll(parts ...[]byte) CID {
	h, _ := blake2b.New256(nil)
	for _, p := range parts {
		h.Write(p)
	}
	var out CID
	copy(out[:], h.Sum(nil))
	return out
}

// String returns the lowercase hex encoding of the CID.
func (c CID) String() string {
	return hex.EncodeToString(c[:])
}

// IsZero reports whether c is the zero CID.
func (c CID) IsZero() bool {
	return c == CID{}
}

// MarshalJSON encodes the CID as a hex string.
func (c CID) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes a hex string produced by MarshalJSON.
func (c *CID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(decoded) != Size {
		return ErrWrongLength
	}
	copy(c[:], decoded)
	return nil
}

// FromHex parses a hex-encoded CID.
func FromHex(s string) (CID, error) {
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return CID{}, err
	}
	if len(decoded) != Size {
		return CID{}, ErrWrongLength
	}
	var c CID
	copy(c[:], decoded)
	return c, nil
}

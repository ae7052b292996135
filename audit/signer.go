package audit

import (
	"os"

	"github.com/saworbit/orbit-sub003/orbiterrors"
)

// Signer is a write-only wrapper around the HMAC-SHA256 secret used for
// audit chain integrity. It is never logged or serialized: both String
// and GoString are overridden to redact the key material.
type Signer struct {
	key []byte
}

// ErrMissingSecret is returned by SignerFromEnv when ORBIT_AUDIT_SECRET is
// unset or empty.
var ErrMissingSecret = orbiterrors.New(orbiterrors.PolicyViolation, "audit: ORBIT_AUDIT_SECRET not set")

// SignerFromEnv loads the secret from ORBIT_AUDIT_SECRET. An unset or
// empty variable returns ErrMissingSecret; callers may treat this as
// "disable integrity chaining" per the environment-variable contract.
func SignerFromEnv() (*Signer, error) {
	secret, ok := os.LookupEnv("ORBIT_AUDIT_SECRET")
	if !ok || secret == "" {
		return nil, ErrMissingSecret
	}
	return SignerFromBytes([]byte(secret)), nil
}

// SignerFromBytes builds a signer from explicit key material, primarily
// for tests and embedding applications that source the secret themselves.
func SignerFromBytes(secret []byte) *Signer {
	return &Signer{key: append([]byte(nil), secret...)}
}

// String redacts the key so accidental logging (%v, %s) never leaks it.
func (s *Signer) String() string { return "<redacted>" }

// GoString redacts the key under %#v as well.
func (s *Signer) GoString() string { return "<redacted>" }

// Package transfer issues and verifies short-lived bearer tokens that let
// one Star read a specific file's bytes from another Star without either
// side needing a shared database or a full authentication service.
package transfer

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/saworbit/orbit-sub003/orbiterrors"
)

const (
	subjectTransfer = "transfer"
	issuerNucleus   = "orbit-nucleus"

	// DefaultValidity matches the one-hour window Nucleus grants a
	// ReplicateFile command to complete before its token expires.
	DefaultValidity = time.Hour
)

var (
	ErrWrongFile    = orbiterrors.New(orbiterrors.AccessDenied, "transfer: token does not authorize the requested file")
	ErrInvalidToken = orbiterrors.New(orbiterrors.AccessDenied, "transfer: invalid transfer token")
	ErrTokenExpired = orbiterrors.New(orbiterrors.AccessDenied, "transfer: transfer token expired")
)

// Claims is the payload of a transfer token: a bearer capability scoped
// to exactly one file path.
type Claims struct {
	jwt.RegisteredClaims
	AllowFile string `json:"allow_file"`
}

// Issuer mints transfer tokens signed with a shared HMAC secret. Nucleus
// holds one of these and hands out tokens as it orchestrates P2P
// replication between Stars.
type Issuer struct {
	secret   []byte
	validity time.Duration
}

// NewIssuer builds an Issuer with the default one-hour token validity.
func NewIssuer(secret []byte) *Issuer {
	return NewIssuerWithValidity(secret, DefaultValidity)
}

// NewIssuerWithValidity builds an Issuer whose tokens expire after validity.
func NewIssuerWithValidity(secret []byte, validity time.Duration) *Issuer {
	return &Issuer{secret: append([]byte(nil), secret...), validity: validity}
}

// Issue mints a token authorizing the bearer to fetch exactly filePath.
func (iss *Issuer) Issue(filePath string) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectTransfer,
			Issuer:    issuerNucleus,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(iss.validity)),
		},
		AllowFile: filepath.Clean(filePath),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(iss.secret)
	if err != nil {
		return "", orbiterrors.Wrap(orbiterrors.IO, "transfer: sign token", err)
	}
	return signed, nil
}

// Verify checks tokenString's signature, issuer, expiry, and subject, and
// confirms it authorizes requestedPath specifically. A source node calls
// this before serving any bytes of a requested file. Both the token's
// allow_file and requestedPath are cleaned with filepath.Clean before
// comparison, so "a/b" and "a//b" refer to the same authorization.
func Verify(secret []byte, tokenString, requestedPath string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithIssuer(issuerNucleus))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, orbiterrors.Wrap(orbiterrors.AccessDenied, "transfer: parse token", err)
	}
	if !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	if claims.Subject != subjectTransfer {
		return Claims{}, ErrInvalidToken
	}
	if claims.AllowFile != filepath.Clean(requestedPath) {
		return Claims{}, ErrWrongFile
	}
	return claims, nil
}

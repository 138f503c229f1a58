// Package sigverify defines the signature verifier port (spec.md §4.3): a
// small interface consumed by the chain validator and CRL/OCSP validators,
// supplied by the caller. The core never verifies a signature itself
// without going through this port.
package sigverify

import (
	"fmt"

	"github.com/tourze/tls-certificate/core"
)

// CryptoErrorKind distinguishes "the algorithm isn't supported" from "the
// signature didn't verify" -- spec.md §4.3 requires these stay distinct.
type CryptoErrorKind int

const (
	UnsupportedAlgorithm CryptoErrorKind = iota
)

// CryptoError is returned only for verifier-port failures that are not a
// plain "signature invalid" result.
type CryptoError struct {
	Kind   CryptoErrorKind
	Detail string
}

func (e *CryptoError) Error() string {
	return e.Detail
}

// NewUnsupportedAlgorithm builds the CryptoError spec.md §4.3 names.
func NewUnsupportedAlgorithm(algo core.SignatureAlgorithm) error {
	return &CryptoError{
		Kind:   UnsupportedAlgorithm,
		Detail: fmt.Sprintf("unsupported signature algorithm: %v", algo),
	}
}

// Verifier is the signature verifier port. Implementations return
// (false, nil) for an invalid signature and (_, *CryptoError) only when the
// algorithm itself is unsupported or the key is malformed -- the two are
// never conflated.
type Verifier interface {
	Verify(tbs, signature []byte, publicKey core.PublicKey, algo core.SignatureAlgorithm) (bool, error)
}

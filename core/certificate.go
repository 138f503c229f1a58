// Copyright 2014 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package core

import (
	"bytes"
	"math/big"
	"time"
)

// PublicKeyAlgorithm tags the algorithm family of a decoded public key.
type PublicKeyAlgorithm int

const (
	PublicKeyUnknown PublicKeyAlgorithm = iota
	PublicKeyRSA
	PublicKeyECDSA
	PublicKeyEd25519
)

// PublicKey is the algorithm-tagged, opaque public key carried by a
// Certificate (spec.md §3).
type PublicKey struct {
	Algorithm PublicKeyAlgorithm
	// Raw is algorithm-specific: for RSA/ECDSA this is the parsed
	// crypto.PublicKey handed to the signature verifier port; SPKIDER is
	// always the original SubjectPublicKeyInfo DER, used for the AIA
	// issuer-key-hash computation (spec.md §4.8) and independent of how
	// Raw is represented.
	Raw     interface{}
	SPKIDER []byte
}

// SignatureAlgorithm identifies one of the algorithms the signature
// verifier port (spec.md §4.3) is expected to support.
type SignatureAlgorithm int

const (
	SignatureUnknown SignatureAlgorithm = iota
	SignatureRSAPKCS1SHA1
	SignatureRSAPKCS1SHA256
	SignatureRSAPKCS1SHA384
	SignatureRSAPKCS1SHA512
	SignatureECDSASHA1
	SignatureECDSASHA256
	SignatureECDSASHA384
	SignatureECDSASHA512
)

// Certificate is the immutable, decoded view of an X.509 certificate that
// flows through the core (spec.md §3, §4.1). It is produced exclusively by
// the codec package (the "external codec" boundary spec.md §1 names) and is
// never mutated after construction.
type Certificate struct {
	Serial    *big.Int
	IssuerDN  string
	SubjectDN string

	// IssuerDNDER and SubjectDNDER are the raw DER encodings of the
	// corresponding Name values. They MUST be populated by the codec layer;
	// a missing DER form is a decode failure, never silently substituted
	// (spec.md §9 Open Questions -- the getSubjectDNDER() placeholder bug
	// this repository deliberately does not reproduce).
	IssuerDNDER  []byte
	SubjectDNDER []byte

	NotBefore time.Time
	NotAfter  time.Time

	PublicKey PublicKey

	TBSBytes           []byte
	SignatureBytes     []byte
	SignatureAlgorithm SignatureAlgorithm

	// RawDER is the full certificate encoding as decoded by the codec
	// layer, retained so later stages (the zlint conformance pass) can
	// re-parse it without threading the original bytes alongside the
	// decoded Certificate everywhere.
	RawDER []byte

	Extensions Extensions

	// EmbeddedSCTs holds raw Signed Certificate Timestamp blobs found in the
	// CT Poison / SCT List extension, if any. They are carried but never
	// verified -- CT-log verification is out of scope (see DESIGN.md).
	EmbeddedSCTs [][]byte
}

// IsCA reports whether the certificate's Basic Constraints mark it as a CA.
func (c *Certificate) IsCA() bool {
	return c.Extensions.BasicConstraints != nil && c.Extensions.BasicConstraints.IsCA
}

// PathLenConstraint returns the path length constraint and whether one is
// present.
func (c *Certificate) PathLenConstraint() (int, bool) {
	if c.Extensions.BasicConstraints == nil {
		return 0, false
	}
	return c.Extensions.BasicConstraints.PathLenConstraint, c.Extensions.BasicConstraints.HasPathLenConstraint
}

// SameIdentity reports whether c and other share the same (subject_dn,
// serial) pair -- the identity spec.md §4.10 uses for cycle detection,
// deliberately narrower than serial alone.
func (c *Certificate) SameIdentity(other *Certificate) bool {
	if other == nil {
		return false
	}
	if c.SubjectDN != other.SubjectDN {
		return false
	}
	if c.Serial == nil || other.Serial == nil {
		return c.Serial == other.Serial
	}
	return c.Serial.Cmp(other.Serial) == 0
}

// SelfSignedCandidate reports the weak, forgeable notion of self-signed:
// issuer_dn == subject_dn. Callers that need the real predicate (DN
// equality AND the signature verifying under the certificate's own public
// key) must use chainvalidate's verified self-signed check --
// see spec.md §4.1's warning that DN equality alone is attacker-controlled.
func (c *Certificate) SelfSignedCandidate() bool {
	return c.SubjectDN == c.IssuerDN
}

// SerialEqual reports whether the certificate's serial equals s.
func (c *Certificate) SerialEqual(s *big.Int) bool {
	if c.Serial == nil || s == nil {
		return c.Serial == s
	}
	return c.Serial.Cmp(s) == 0
}

// bytesEqual is a small helper kept local to avoid importing bytes package
// in every caller that compares DER forms.
func bytesEqual(a, b []byte) bool {
	return bytes.Equal(a, b)
}

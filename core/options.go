// Copyright 2014 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package core

import "encoding/asn1"

// RevocationPolicy drives the revocation checker's orchestration (spec.md
// §4.9).
type RevocationPolicy int

const (
	RevocationDisabled RevocationPolicy = iota
	RevocationSoftFail
	RevocationHardFail
	RevocationCrlOnly
	RevocationOcspOnly
	RevocationOcspPreferred
	RevocationCrlPreferred
)

// ValidationOptions configures a single validate() call (spec.md §6). Zero
// value is NOT the documented default -- callers should start from
// DefaultValidationOptions().
type ValidationOptions struct {
	ValidateChain             bool
	ValidateKeyUsage          bool
	ValidateExtendedKeyUsage  bool
	RequireCompleteChain      bool
	AllowSelfSigned           bool
	ExpectedKeyUsage          KeyUsage
	ExpectedEKU               []asn1.ObjectIdentifier
	CheckRevocation           bool
	ValidateSAN               bool
	ExpectedHostname          string
	RevocationPolicy          RevocationPolicy
	MaxChainLength            int

	// ExpectedPolicies, when non-empty, gates spec.md §4.11's policy
	// validator; OIDAnyPolicy in either the certificate or this list
	// satisfies the match (P6).
	ExpectedPolicies []asn1.ObjectIdentifier

	// ValidatePolicyMapping gates the optional policy-mapping pass
	// (SPEC_FULL.md §5.13); default off, matching the source's untested
	// state per spec.md §9 Open Questions.
	ValidatePolicyMapping bool

	// RunLints gates the supplemental zlint conformance pass
	// (SPEC_FULL.md §3); purely informational, appended to
	// ValidationResult.Lints, never affects is_valid.
	RunLints bool
}

// DefaultValidationOptions returns the documented defaults from spec.md §6.
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{
		ValidateChain:            true,
		ValidateKeyUsage:         true,
		ValidateExtendedKeyUsage: true,
		RequireCompleteChain:     true,
		AllowSelfSigned:          false,
		CheckRevocation:          false,
		ValidateSAN:              true,
		RevocationPolicy:         RevocationOcspPreferred,
		MaxChainLength:           MaxChainLength,
	}
}

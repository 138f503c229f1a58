// Copyright 2014 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package core

import "encoding/asn1"

// Well-known extension OIDs, decoded by the codec layer and recognized by
// the chain validator's critical-extension check (spec.md §4.11).
var (
	OIDBasicConstraints     = asn1.ObjectIdentifier{2, 5, 29, 19}
	OIDKeyUsage             = asn1.ObjectIdentifier{2, 5, 29, 15}
	OIDExtKeyUsage          = asn1.ObjectIdentifier{2, 5, 29, 37}
	OIDSubjectAltName       = asn1.ObjectIdentifier{2, 5, 29, 17}
	OIDCRLDistributionPoint = asn1.ObjectIdentifier{2, 5, 29, 31}
	OIDAuthorityInfoAccess  = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 1, 1}
	OIDCertificatePolicies  = asn1.ObjectIdentifier{2, 5, 29, 32}
	OIDNameConstraints      = asn1.ObjectIdentifier{2, 5, 29, 30}
	OIDPolicyMappings       = asn1.ObjectIdentifier{2, 5, 29, 33}
	OIDIssuingDistPoint     = asn1.ObjectIdentifier{2, 5, 29, 28}

	// OIDAnyPolicy is the special certificate-policy OID that matches any
	// expected policy OID (spec.md §4.11, P6).
	OIDAnyPolicy = asn1.ObjectIdentifier{2, 5, 29, 32, 0}

	// OIDKeyPurposeOCSPSigning marks a delegated OCSP-signing certificate
	// (spec.md §4.8).
	OIDKeyPurposeOCSPSigning = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 9}
)

// recognizedCriticalExtensions is the set spec.md §4.11 allows to be marked
// critical without failing validation.
var recognizedCriticalExtensions = map[string]bool{
	OIDBasicConstraints.String():     true,
	OIDKeyUsage.String():             true,
	OIDExtKeyUsage.String():          true,
	OIDSubjectAltName.String():       true,
	OIDCertificatePolicies.String():  true,
	OIDNameConstraints.String():      true,
}

// IsRecognizedCriticalExtension reports whether oid is in the set of
// extensions the chain validator understands when it is marked critical.
func IsRecognizedCriticalExtension(oid asn1.ObjectIdentifier) bool {
	return recognizedCriticalExtensions[oid.String()]
}

// KeyUsage is a bitset mirroring RFC 5280 §4.2.1.3.
type KeyUsage int

const (
	KeyUsageDigitalSignature KeyUsage = 1 << iota
	KeyUsageContentCommitment
	KeyUsageKeyEncipherment
	KeyUsageDataEncipherment
	KeyUsageKeyAgreement
	KeyUsageCertSign
	KeyUsageCRLSign
	KeyUsageEncipherOnly
	KeyUsageDecipherOnly
)

// Has reports whether all bits in want are set in ku.
func (ku KeyUsage) Has(want KeyUsage) bool {
	return ku&want == want
}

// BasicConstraints mirrors RFC 5280 §4.2.1.9.
type BasicConstraints struct {
	IsCA                bool
	PathLenConstraint   int
	HasPathLenConstraint bool
}

// PolicyQualifier is a single qualifier attached to a certificate policy
// (e.g. a CPS URI or user notice).
type PolicyQualifier struct {
	OID   asn1.ObjectIdentifier
	Value string
}

// PolicyInformation is one entry of the Certificate Policies extension.
type PolicyInformation struct {
	OID        asn1.ObjectIdentifier
	Qualifiers []PolicyQualifier
}

// PolicyMapping maps an issuer-domain policy OID to a subject-domain one
// (RFC 5280 §4.2.1.5), used by the optional policy-mapping validation pass
// (spec.md §9 Open Questions, §5.13 in SPEC_FULL.md).
type PolicyMapping struct {
	IssuerDomainPolicy  asn1.ObjectIdentifier
	SubjectDomainPolicy asn1.ObjectIdentifier
}

// Extensions is the decoded OID -> value map carried by Certificate.
type Extensions struct {
	BasicConstraints        *BasicConstraints
	KeyUsage                KeyUsage
	HasKeyUsage             bool
	ExtKeyUsage             []asn1.ObjectIdentifier
	SubjectAltNames         []string // DNS names only; IPs/emails tracked separately if needed
	CRLDistributionPoints   []string
	OCSPURLs                []string
	CertificatePolicies     []PolicyInformation
	PolicyMappings          []PolicyMapping
	IssuingDistributionPoint string // set only on CRLs

	// Critical records, by OID string, which extensions were marked
	// critical in the source certificate -- used by the unknown-critical-
	// extension check regardless of whether the extension was decoded.
	Critical map[string]bool
}

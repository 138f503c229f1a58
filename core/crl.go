// Copyright 2014 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package core

import (
	"math/big"
	"time"
)

// ReasonCode mirrors RFC 5280 §5.3.1 CRL reason codes.
type ReasonCode int

const (
	ReasonUnspecified ReasonCode = 0
	ReasonKeyCompromise ReasonCode = 1
	ReasonCACompromise ReasonCode = 2
	ReasonAffiliationChanged ReasonCode = 3
	ReasonSuperseded ReasonCode = 4
	ReasonCessationOfOperation ReasonCode = 5
	ReasonCertificateHold ReasonCode = 6
	// 7 is unused (RFC 5280)
	ReasonRemoveFromCRL ReasonCode = 8
	ReasonPrivilegeWithdrawn ReasonCode = 9
	ReasonAACompromise ReasonCode = 10
)

// ReasonNames maps a ReasonCode to the human string used in error messages
// (spec.md scenario 3 expects "KeyCompromise" to appear literally).
var ReasonNames = map[ReasonCode]string{
	ReasonUnspecified:          "Unspecified",
	ReasonKeyCompromise:        "KeyCompromise",
	ReasonCACompromise:         "CACompromise",
	ReasonAffiliationChanged:   "AffiliationChanged",
	ReasonSuperseded:           "Superseded",
	ReasonCessationOfOperation: "CessationOfOperation",
	ReasonCertificateHold:      "CertificateHold",
	ReasonRemoveFromCRL:        "RemoveFromCRL",
	ReasonPrivilegeWithdrawn:   "PrivilegeWithdrawn",
	ReasonAACompromise:         "AACompromise",
}

// RevokedEntry is one serial's entry in a CRL (spec.md §3).
type RevokedEntry struct {
	Serial         *big.Int
	RevocationDate time.Time
	ReasonCode     ReasonCode
	HasReasonCode  bool
	InvalidityDate time.Time
	HasInvalidityDate bool
}

// CRL is the decoded view of a Certificate Revocation List (spec.md §3).
// It owns only its own bytes; the issuer certificate it chains against is
// passed in by the caller at validation time rather than embedded, per
// DESIGN NOTES §9's "object graphs with back-references" guidance.
type CRL struct {
	IssuerDN   string
	ThisUpdate time.Time
	NextUpdate time.Time
	HasNextUpdate bool
	CRLNumber  *big.Int

	SignatureAlgorithm SignatureAlgorithm
	SignatureBytes     []byte
	TBSBytes           []byte

	// IssuingDistributionPoint is not filled in by codec.DecodeCRLDER and
	// not read by any check; indirect/partitioned CRLs are not supported
	// (spec.md Non-goals, unchanged).
	IssuingDistributionPoint string

	Entries map[string]*RevokedEntry // keyed by serial.Text(16)
}

// Lookup returns the RevokedEntry for serial, if present.
func (c *CRL) Lookup(serial *big.Int) (*RevokedEntry, bool) {
	if c.Entries == nil || serial == nil {
		return nil, false
	}
	e, ok := c.Entries[serial.Text(16)]
	return e, ok
}

// Copyright 2014 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package core

import (
	"math/big"
	"time"
)

// OCSPResponseStatus mirrors RFC 6960 §4.2.1's OCSPResponseStatus.
type OCSPResponseStatus int

const (
	OCSPStatusSuccessful OCSPResponseStatus = iota
	OCSPStatusMalformedRequest
	OCSPStatusInternalError
	OCSPStatusTryLater
	_ // 4 is reserved in RFC 6960
	OCSPStatusSigRequired
	OCSPStatusUnauthorized
)

// OCSPResponseStatusNames gives the status text used in error messages.
var OCSPResponseStatusNames = map[OCSPResponseStatus]string{
	OCSPStatusSuccessful:       "successful",
	OCSPStatusMalformedRequest: "malformed",
	OCSPStatusInternalError:    "internal error",
	OCSPStatusTryLater:         "try-later",
	OCSPStatusSigRequired:      "sig-required",
	OCSPStatusUnauthorized:     "unauthorized",
}

// CertStatusKind is the OCSP cert status (spec.md §3).
type CertStatusKind int

const (
	CertStatusGood CertStatusKind = iota
	CertStatusRevoked
	CertStatusUnknown
)

// OCSPResponse is the decoded view of a single-certificate OCSP response
// (spec.md §3). For non-successful ResponseStatus most fields are zero.
type OCSPResponse struct {
	ResponseStatus OCSPResponseStatus

	CertStatus     CertStatusKind
	RevokedAt      time.Time
	RevokedReason  ReasonCode
	HasRevokedReason bool

	ProducedAt time.Time
	ThisUpdate time.Time
	NextUpdate time.Time
	HasNextUpdate bool

	IssuerNameHash []byte
	IssuerKeyHash  []byte
	HashAlgorithm  string // e.g. "SHA1", "SHA256" -- must match the request's
	Serial         *big.Int

	Nonce []byte

	SignatureAlgorithm SignatureAlgorithm
	SignatureBytes     []byte
	TBSBytes           []byte

	// EmbeddedResponderCerts holds any delegated OCSP-signing certificates
	// bundled in the response (spec.md §4.8).
	EmbeddedResponderCerts []*Certificate
}

// OCSPRequest is the request this engine builds and sends through the
// RevocationFetcher port (spec.md §4.8).
type OCSPRequest struct {
	Serial         *big.Int
	IssuerNameHash []byte
	IssuerKeyHash  []byte
	HashAlgorithm  string
	Nonce          []byte
}

// Package crlvalidate validates a fetched CRL's signature against its
// issuer and answers "is this serial revoked" against a validated CRL
// (spec.md §4.10, P4).
package crlvalidate

import (
	"fmt"
	"math/big"

	"github.com/tourze/tls-certificate/core"
	cerrors "github.com/tourze/tls-certificate/errors"
	"github.com/tourze/tls-certificate/sigverify"
)

// Validate checks that crl was signed by issuer's public key, that
// issuer's subject DN matches the CRL's issuer DN, and that the CRL's own
// temporal bounds hold (spec.md §4.7): this_update must not be in the
// future, and a past next_update is a warning rather than an error, since
// a stale CRL is still more useful than none. verifier may be nil, in
// which case the signature is not checked and a warning is returned
// instead of an error.
func Validate(crl *core.CRL, issuer *core.Certificate, verifier sigverify.Verifier, clk core.Clock) ([]string, error) {
	var warnings []string

	now := clk.Now()
	if crl.ThisUpdate.After(now) {
		return warnings, cerrors.NewValidationError(cerrors.NotYetValid, "CRL this_update %s is in the future", crl.ThisUpdate)
	}
	if crl.HasNextUpdate && crl.NextUpdate.Before(now) {
		warnings = append(warnings, fmt.Sprintf("CRL next_update %s has passed; relying on a stale CRL", crl.NextUpdate))
	}

	if !core.DNEqual(crl.IssuerDN, issuer.SubjectDN) {
		return warnings, cerrors.NewValidationError(cerrors.IssuerMismatch,
			"CRL issuer %q does not match certificate issuer %q", crl.IssuerDN, issuer.SubjectDN)
	}

	if verifier == nil {
		warnings = append(warnings, "no CRL signature verifier configured; CRL signature was not checked")
		return warnings, nil
	}

	ok, err := verifier.Verify(crl.TBSBytes, crl.SignatureBytes, issuer.PublicKey, crl.SignatureAlgorithm)
	if err != nil {
		return warnings, cerrors.NewValidationError(cerrors.UnsupportedAlgorithm, "CRL signature: %s", err.Error())
	}
	if !ok {
		return warnings, cerrors.NewValidationError(cerrors.SignatureInvalid, "CRL signature does not verify against issuer %q", issuer.SubjectDN)
	}
	return warnings, nil
}

// CheckRevocation answers whether serial is revoked according to crl. An
// entry whose reason code is RemoveFromCRL (8) is treated as NOT revoked
// -- RFC 5280 §5.3.1 defines reason 8 as "the certificate was previously
// on hold and that hold has been lifted", so its presence on a CRL is a
// (rare, delta-CRL-style) un-revocation rather than a revocation (spec.md
// scenario 3).
func CheckRevocation(crl *core.CRL, serial *big.Int) (revoked bool, entry *core.RevokedEntry) {
	e, ok := crl.Lookup(serial)
	if !ok {
		return false, nil
	}
	if e.HasReasonCode && e.ReasonCode == core.ReasonRemoveFromCRL {
		return false, e
	}
	return true, e
}

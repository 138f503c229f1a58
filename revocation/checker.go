// Package revocation orchestrates the CRL and OCSP checks according to the
// configured RevocationPolicy (spec.md §4.9), producing a structured
// core.RevocationCheckStatus regardless of which path was taken.
package revocation

import (
	"context"
	"math/big"

	"github.com/tourze/tls-certificate/core"
	"github.com/tourze/tls-certificate/crlcache"
	"github.com/tourze/tls-certificate/crlupdate"
	"github.com/tourze/tls-certificate/crlvalidate"
	cerrors "github.com/tourze/tls-certificate/errors"
	"github.com/tourze/tls-certificate/ocspclient"
	"github.com/tourze/tls-certificate/sigverify"
)

// hexSerial renders a certificate serial the conventional "0x"-prefixed,
// even-length way operators expect in logs and error messages.
func hexSerial(s *big.Int) string {
	if s == nil {
		return "0x"
	}
	h := s.Text(16)
	if len(h)%2 == 1 {
		h = "0" + h
	}
	return "0x" + h
}

// Checker ties together the CRL and OCSP subsystems behind the single
// entry point chainvalidate calls.
type Checker struct {
	crlCache  *crlcache.Cache
	crlUpdate *crlupdate.Updater
	ocsp      *ocspclient.Client
	verifier  sigverify.Verifier
	clock     core.Clock
}

// New returns a Checker.
func New(crlCache *crlcache.Cache, crlUpdate *crlupdate.Updater, ocspClient *ocspclient.Client, verifier sigverify.Verifier, clk core.Clock) *Checker {
	return &Checker{crlCache: crlCache, crlUpdate: crlUpdate, ocsp: ocspClient, verifier: verifier, clock: clk}
}

func (c *Checker) checkOCSP(ctx context.Context, cert, issuer *core.Certificate) core.MethodResult {
	if len(cert.Extensions.OCSPURLs) == 0 {
		return core.MethodResult{Method: core.MethodOCSP, Conclusive: false, Err: cerrors.NewRevocationError(cerrors.NoCRLAvailable, "certificate carries no OCSP responder URL")}
	}
	resp, err := c.ocsp.Check(ctx, cert, issuer, cert.Extensions.OCSPURLs[0])
	if err != nil {
		return core.MethodResult{Method: core.MethodOCSP, Conclusive: false, Err: err}
	}
	return core.MethodResult{Method: core.MethodOCSP, Conclusive: true, Good: resp.CertStatus == core.CertStatusGood}
}

func (c *Checker) checkCRL(ctx context.Context, cert, issuer *core.Certificate) core.MethodResult {
	crl, haveCached := c.crlCache.Get(issuer.SubjectDN)
	if !haveCached || c.crlCache.IsExpiringSoon(issuer.SubjectDN) {
		fetched, err := c.crlUpdate.UpdateFromCertificate(ctx, cert, issuer.SubjectDN)
		switch {
		case err == nil:
			crl = fetched
		case haveCached:
			// a stale cached CRL beats no CRL at all (spec.md §4.9 soft-fail intent)
		default:
			return core.MethodResult{Method: core.MethodCRL, Conclusive: false, Err: err}
		}
	}

	warnings, err := crlvalidate.Validate(crl, issuer, c.verifier, c.clock)
	if err != nil {
		return core.MethodResult{Method: core.MethodCRL, Conclusive: false, Err: err, Warnings: warnings}
	}

	revoked, entry := crlvalidate.CheckRevocation(crl, cert.Serial)
	if revoked {
		reason := "unspecified"
		if entry.HasReasonCode {
			reason = core.ReasonNames[entry.ReasonCode]
		}
		return core.MethodResult{
			Method:     core.MethodCRL,
			Conclusive: true,
			Good:       false,
			Warnings:   warnings,
			Err: cerrors.NewRevocationError(cerrors.CertRevoked,
				"certificate %s revoked (reason %s) at %s", hexSerial(cert.Serial), reason, entry.RevocationDate),
		}
	}
	return core.MethodResult{Method: core.MethodCRL, Conclusive: true, Good: true, Warnings: warnings}
}

// Check runs the revocation check for cert (issued by issuer) according to
// policy, returning a structured status. policy == RevocationDisabled
// short-circuits to an empty, trivially-good status.
func (c *Checker) Check(ctx context.Context, cert, issuer *core.Certificate, policy core.RevocationPolicy) *core.RevocationCheckStatus {
	status := &core.RevocationCheckStatus{}

	switch policy {
	case core.RevocationDisabled:
		status.Result = true
		return status

	case core.RevocationOcspOnly:
		r := c.checkOCSP(ctx, cert, issuer)
		status.MethodsTried = append(status.MethodsTried, r.Method)
		status.Results = append(status.Results, r)
		status.Result = r.Conclusive && r.Good
		return status

	case core.RevocationCrlOnly:
		r := c.checkCRL(ctx, cert, issuer)
		status.MethodsTried = append(status.MethodsTried, r.Method)
		status.Results = append(status.Results, r)
		status.Result = r.Conclusive && r.Good
		return status

	case core.RevocationOcspPreferred, core.RevocationCrlPreferred:
		var first, second core.MethodResult
		if policy == core.RevocationOcspPreferred {
			first, second = c.checkOCSP(ctx, cert, issuer), core.MethodResult{}
		} else {
			first, second = c.checkCRL(ctx, cert, issuer), core.MethodResult{}
		}
		status.MethodsTried = append(status.MethodsTried, first.Method)
		status.Results = append(status.Results, first)
		if first.Conclusive {
			status.Result = first.Good
			return status
		}
		if policy == core.RevocationOcspPreferred {
			second = c.checkCRL(ctx, cert, issuer)
		} else {
			second = c.checkOCSP(ctx, cert, issuer)
		}
		status.MethodsTried = append(status.MethodsTried, second.Method)
		status.Results = append(status.Results, second)
		status.Result = second.Conclusive && second.Good
		return status

	case core.RevocationSoftFail, core.RevocationHardFail:
		// both policies try OCSP and CRL unconditionally (spec.md §4.9's
		// "try OCSP then CRL" table entry) and only differ in how they
		// treat a result where neither method was conclusive.
		ocspResult := c.checkOCSP(ctx, cert, issuer)
		crlResult := c.checkCRL(ctx, cert, issuer)
		status.MethodsTried = append(status.MethodsTried, ocspResult.Method, crlResult.Method)
		status.Results = append(status.Results, ocspResult, crlResult)

		conclusiveGood := true
		anyConclusive := false
		for _, r := range status.Results {
			if !r.Conclusive {
				continue
			}
			anyConclusive = true
			if !r.Good {
				conclusiveGood = false
			}
		}

		if !anyConclusive {
			// liveness over strictness for SoftFail; err on safety for HardFail
			status.Result = policy == core.RevocationSoftFail
			return status
		}
		status.Result = conclusiveGood
		return status
	}

	status.Result = false
	return status
}

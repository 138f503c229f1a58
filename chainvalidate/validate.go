// Package chainvalidate walks an already-built core.Chain and checks every
// structural, temporal, cryptographic, and policy invariant spec.md §4.11
// names, dispatching to revocation.Checker for the per-certificate
// revocation check.
package chainvalidate

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/idna"

	"github.com/tourze/tls-certificate/core"
	cerrors "github.com/tourze/tls-certificate/errors"
	"github.com/tourze/tls-certificate/policy"
	"github.com/tourze/tls-certificate/revocation"
	"github.com/tourze/tls-certificate/sigverify"
)

// Validator walks a built chain against a fixed set of ValidationOptions.
type Validator struct {
	verifier   sigverify.Verifier
	revocation *revocation.Checker
	clock      core.Clock
}

// New returns a Validator.
func New(verifier sigverify.Verifier, revocationChecker *revocation.Checker, clock core.Clock) *Validator {
	return &Validator{verifier: verifier, revocation: revocationChecker, clock: clock}
}

// Clock returns the clock the validator treats as "now", so that
// collaborators needing the same notion of time (e.g. the chain builder's
// remaining-validity tie-break) don't need their own, possibly-divergent,
// clock wired in separately.
func (v *Validator) Clock() core.Clock {
	return v.clock
}

// Validate checks chain against opts, accumulating every finding into a
// single core.ValidationResult rather than stopping at the first error
// (spec.md §4.11, P7).
func (v *Validator) Validate(ctx context.Context, chain *core.Chain, opts core.ValidationOptions) *core.ValidationResult {
	result := core.NewValidationResult()

	if chain == nil || chain.Len() == 0 {
		result.AddError(cerrors.NewValidationError(cerrors.IncompleteChain, "empty chain"))
		return result
	}

	if opts.RequireCompleteChain {
		root := chain.Root()
		if !root.SelfSignedCandidate() && !opts.AllowSelfSigned {
			result.AddWarning("chain does not terminate in a self-signed root; trust anchor must be supplied externally")
		}
	}

	v.validateTemporal(chain, result)
	v.validateStructure(chain, opts, result)
	if opts.ValidateChain {
		v.validateSignatures(chain, result)
	}
	v.validateCriticalExtensions(chain, result)

	leaf := chain.Leaf()
	if opts.ValidateKeyUsage && leaf.Extensions.HasKeyUsage {
		if !leaf.Extensions.KeyUsage.Has(opts.ExpectedKeyUsage) && opts.ExpectedKeyUsage != 0 {
			result.AddError(cerrors.NewValidationError(cerrors.MissingKeyUsage, "leaf certificate lacks required key usage"))
		}
	}
	if opts.ValidateExtendedKeyUsage && len(opts.ExpectedEKU) > 0 {
		v.validateEKU(leaf, opts, result)
	}
	if opts.ValidateSAN && opts.ExpectedHostname != "" {
		if err := MatchHostname(leaf, opts.ExpectedHostname); err != nil {
			result.AddError(err)
		} else {
			result.AddSuccess("hostname matched")
		}
	}
	if len(opts.ExpectedPolicies) > 0 {
		if err := policy.Matches(leaf, opts.ExpectedPolicies); err != nil {
			result.AddError(err)
		}
	}
	if opts.ValidatePolicyMapping {
		for _, c := range chain.Certificates {
			if err := policy.ValidateMapping(c); err != nil {
				result.AddError(err)
			}
		}
	}

	if opts.CheckRevocation && v.revocation != nil {
		for i := 0; i < chain.Len()-1; i++ {
			cert := chain.Certificates[i]
			issuer := chain.Certificates[i+1]
			status := v.revocation.Check(ctx, cert, issuer, opts.RevocationPolicy)
			result.LastCheckStatus = status

			propagated := false
			for _, mr := range status.Results {
				for _, w := range mr.Warnings {
					result.AddWarning(fmt.Sprintf("%s check for certificate with serial %v: %s", mr.Method, cert.Serial, w))
				}
				if mr.Err == nil {
					continue
				}
				if status.Result {
					// the overall check still passed (a soft-fail policy
					// tolerating an inconclusive method, or a preferred
					// method falling back successfully): demote to warning
					result.AddWarning(fmt.Sprintf("revocation check via %s inconclusive for certificate with serial %v: %s", mr.Method, cert.Serial, mr.Err.Error()))
					continue
				}
				// the overall check failed: carry the specific per-method
				// reason (revoked, nonce mismatch, ...) instead of a bare
				// generic message
				result.AddError(mr.Err)
				propagated = true
			}
			if !status.Result && !propagated {
				result.AddError(cerrors.NewRevocationError(cerrors.CertRevoked,
					"revocation check failed for certificate with serial %v", cert.Serial))
			}
			if status.Result {
				result.AddSuccess("revocation check passed")
			}
		}
	}

	if result.IsValid() {
		result.AddSuccess("chain validated")
	}
	return result
}

func (v *Validator) validateTemporal(chain *core.Chain, result *core.ValidationResult) {
	now := v.clock.Now()
	for _, c := range chain.Certificates {
		if now.Before(c.NotBefore) {
			result.AddError(cerrors.NewValidationError(cerrors.NotYetValid, "certificate %q not yet valid (not_before %s)", c.SubjectDN, c.NotBefore))
		}
		if now.After(c.NotAfter) {
			result.AddError(cerrors.NewValidationError(cerrors.Expired, "certificate %q expired (not_after %s)", c.SubjectDN, c.NotAfter))
		}
	}
}

func (v *Validator) validateStructure(chain *core.Chain, opts core.ValidationOptions, result *core.ValidationResult) {
	for i := 1; i < chain.Len(); i++ {
		child := chain.Certificates[i-1]
		parent := chain.Certificates[i]
		if !core.DNEqual(child.IssuerDN, parent.SubjectDN) {
			result.AddError(cerrors.NewValidationError(cerrors.IssuerMismatch, "%q issuer does not match %q subject", child.SubjectDN, parent.SubjectDN))
		}
		if !parent.IsCA() {
			result.AddError(cerrors.NewValidationError(cerrors.NotCA, "%q is not marked as a CA but signs another certificate", parent.SubjectDN))
			continue
		}
		if parent.Extensions.HasKeyUsage && !parent.Extensions.KeyUsage.Has(core.KeyUsageCertSign) {
			result.AddError(cerrors.NewValidationError(cerrors.MissingKeyUsage, "%q key usage does not include keyCertSign but signs another certificate", parent.SubjectDN))
		}
		if pathLen, has := parent.PathLenConstraint(); has {
			// the number of CA certificates allowed below parent, excluding parent itself
			remaining := i - 1
			if remaining > pathLen {
				result.AddError(cerrors.NewValidationError(cerrors.PathLenExceeded, "%q path length constraint %d exceeded", parent.SubjectDN, pathLen))
			}
		}
	}
}

func (v *Validator) validateSignatures(chain *core.Chain, result *core.ValidationResult) {
	for i := 0; i < chain.Len()-1; i++ {
		child := chain.Certificates[i]
		parent := chain.Certificates[i+1]
		ok, err := v.verifier.Verify(child.TBSBytes, child.SignatureBytes, parent.PublicKey, child.SignatureAlgorithm)
		if err != nil {
			result.AddError(cerrors.NewValidationError(cerrors.UnsupportedAlgorithm, "%q: %s", child.SubjectDN, err.Error()))
			continue
		}
		if !ok {
			result.AddError(cerrors.NewValidationError(cerrors.SignatureInvalid, "%q signature does not verify against issuer %q", child.SubjectDN, parent.SubjectDN))
		}
	}
	root := chain.Root()
	if root.SelfSignedCandidate() {
		ok, err := v.verifier.Verify(root.TBSBytes, root.SignatureBytes, root.PublicKey, root.SignatureAlgorithm)
		if err != nil {
			result.AddError(cerrors.NewValidationError(cerrors.UnsupportedAlgorithm, "root %q: %s", root.SubjectDN, err.Error()))
		} else if !ok {
			result.AddError(cerrors.NewValidationError(cerrors.UntrustedRoot, "root %q does not self-verify", root.SubjectDN))
		}
	}
}

func (v *Validator) validateCriticalExtensions(chain *core.Chain, result *core.ValidationResult) {
	for _, c := range chain.Certificates {
		for oidStr, critical := range c.Extensions.Critical {
			if !critical {
				continue
			}
			if !recognizedByString(oidStr) {
				result.AddError(cerrors.NewValidationError(cerrors.UnknownCriticalExtension, "%q carries unrecognized critical extension %s", c.SubjectDN, oidStr))
			}
		}
	}
}

func recognizedByString(oidStr string) bool {
	for _, known := range []string{
		core.OIDBasicConstraints.String(),
		core.OIDKeyUsage.String(),
		core.OIDExtKeyUsage.String(),
		core.OIDSubjectAltName.String(),
		core.OIDCertificatePolicies.String(),
		core.OIDNameConstraints.String(),
	} {
		if oidStr == known {
			return true
		}
	}
	return false
}

func (v *Validator) validateEKU(leaf *core.Certificate, opts core.ValidationOptions, result *core.ValidationResult) {
	have := make(map[string]bool, len(leaf.Extensions.ExtKeyUsage))
	for _, oid := range leaf.Extensions.ExtKeyUsage {
		have[oid.String()] = true
	}
	for _, want := range opts.ExpectedEKU {
		if !have[want.String()] {
			result.AddError(cerrors.NewValidationError(cerrors.MissingExtendedKeyUsage, "leaf certificate lacks required extended key usage %s", want.String()))
			return
		}
	}
}

// MatchHostname checks hostname (RFC 6125) against leaf's Subject
// Alternative Names, normalizing both sides through IDNA and supporting a
// single leftmost wildcard label. A wildcard that would cover an entire
// public suffix (e.g. "*.co.uk") is rejected outright, regardless of
// whether the requested hostname would otherwise match.
func MatchHostname(leaf *core.Certificate, hostname string) error {
	normalizedHost, err := idna.Lookup.ToASCII(hostname)
	if err != nil {
		normalizedHost = strings.ToLower(hostname)
	}

	for _, san := range leaf.Extensions.SubjectAltNames {
		normalizedSAN, err := idna.Lookup.ToASCII(san)
		if err != nil {
			normalizedSAN = strings.ToLower(san)
		}
		if matchesSAN(normalizedSAN, normalizedHost) {
			return nil
		}
	}
	return cerrors.NewValidationError(cerrors.HostnameMismatch, "hostname %q does not match any subject alternative name", hostname)
}

func matchesSAN(san, host string) bool {
	if !strings.HasPrefix(san, "*.") {
		return strings.EqualFold(san, host)
	}
	if isWildcardOverPublicSuffix(san[2:]) {
		return false
	}
	labelEnd := strings.IndexByte(host, '.')
	if labelEnd < 0 {
		return false
	}
	return strings.EqualFold(san[2:], host[labelEnd+1:])
}

// Package policy implements certificate-policy OID matching (spec.md
// §4.11, P6) and the optional policy-mapping validation pass
// (SPEC_FULL.md §5.13), generalizing Boulder's policy authority package
// from "which challenge types are allowed for this identifier" to "does
// this certificate assert an acceptable policy".
package policy

import (
	"encoding/asn1"

	"github.com/tourze/tls-certificate/core"
	cerrors "github.com/tourze/tls-certificate/errors"
)

// Matches reports whether cert's Certificate Policies extension satisfies
// expected: every OID in expected must appear in cert's policy list, or be
// satisfied by an anyPolicy assertion on either side (P6). An empty
// expected list always matches -- policy checking is opt-in.
func Matches(cert *core.Certificate, expected []asn1.ObjectIdentifier) error {
	if len(expected) == 0 {
		return nil
	}

	certPolicies := make(map[string]bool, len(cert.Extensions.CertificatePolicies))
	hasAnyPolicy := false
	for _, p := range cert.Extensions.CertificatePolicies {
		certPolicies[p.OID.String()] = true
		if p.OID.Equal(core.OIDAnyPolicy) {
			hasAnyPolicy = true
		}
	}

	for _, want := range expected {
		if want.Equal(core.OIDAnyPolicy) {
			continue
		}
		if hasAnyPolicy || certPolicies[want.String()] {
			continue
		}
		return cerrors.NewValidationError(cerrors.PolicyMismatch,
			"certificate does not assert required policy %s", want.String())
	}
	return nil
}

// ValidateMapping walks cert's Policy Mappings extension (RFC 5280
// §4.2.1.5) and confirms neither side maps to or from anyPolicy, which
// RFC 5280 forbids explicitly. This pass is optional
// (ValidationOptions.ValidatePolicyMapping) and defaults off (DESIGN.md
// Open Question decisions).
func ValidateMapping(cert *core.Certificate) error {
	for _, m := range cert.Extensions.PolicyMappings {
		if m.IssuerDomainPolicy.Equal(core.OIDAnyPolicy) || m.SubjectDomainPolicy.Equal(core.OIDAnyPolicy) {
			return cerrors.NewValidationError(cerrors.PolicyMismatch,
				"policy mapping must not reference anyPolicy (issuer=%s subject=%s)",
				m.IssuerDomainPolicy.String(), m.SubjectDomainPolicy.String())
		}
	}
	return nil
}

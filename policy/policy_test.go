package policy

import (
	"encoding/asn1"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tourze/tls-certificate/core"
)

var (
	oidEVPolicy   = asn1.ObjectIdentifier{2, 23, 140, 1, 1}
	oidDVPolicy   = asn1.ObjectIdentifier{2, 23, 140, 1, 2, 1}
	oidOtherCAPol = asn1.ObjectIdentifier{1, 2, 3, 4, 5}
)

func TestMatchesEmptyExpectedAlwaysPasses(t *testing.T) {
	cert := &core.Certificate{}
	assert.NoError(t, Matches(cert, nil))
}

func TestMatchesRequiresAssertedPolicy(t *testing.T) {
	cert := &core.Certificate{Extensions: core.Extensions{
		CertificatePolicies: []core.PolicyInformation{{OID: oidDVPolicy}},
	}}
	assert.NoError(t, Matches(cert, []asn1.ObjectIdentifier{oidDVPolicy}))
	assert.Error(t, Matches(cert, []asn1.ObjectIdentifier{oidEVPolicy}))
}

func TestMatchesAnyPolicyOnCertificateSatisfiesAnyExpectation(t *testing.T) {
	cert := &core.Certificate{Extensions: core.Extensions{
		CertificatePolicies: []core.PolicyInformation{{OID: core.OIDAnyPolicy}},
	}}
	assert.NoError(t, Matches(cert, []asn1.ObjectIdentifier{oidEVPolicy, oidOtherCAPol}))
}

func TestMatchesAnyPolicyInExpectedAlwaysSatisfied(t *testing.T) {
	cert := &core.Certificate{}
	assert.NoError(t, Matches(cert, []asn1.ObjectIdentifier{core.OIDAnyPolicy}))
}

func TestValidateMappingRejectsAnyPolicyMapping(t *testing.T) {
	cert := &core.Certificate{Extensions: core.Extensions{
		PolicyMappings: []core.PolicyMapping{
			{IssuerDomainPolicy: core.OIDAnyPolicy, SubjectDomainPolicy: oidDVPolicy},
		},
	}}
	assert.Error(t, ValidateMapping(cert))
}

func TestValidateMappingAcceptsOrdinaryMapping(t *testing.T) {
	cert := &core.Certificate{Extensions: core.Extensions{
		PolicyMappings: []core.PolicyMapping{
			{IssuerDomainPolicy: oidOtherCAPol, SubjectDomainPolicy: oidDVPolicy},
		},
	}}
	assert.NoError(t, ValidateMapping(cert))
}

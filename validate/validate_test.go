package validate

import (
	"context"
	"testing"
	"time"

	"github.com/jmhodges/clock"
	"github.com/stretchr/testify/assert"

	"github.com/tourze/tls-certificate/audit"
	"github.com/tourze/tls-certificate/chainvalidate"
	"github.com/tourze/tls-certificate/core"
	"github.com/tourze/tls-certificate/metrics"
)

type passVerifier struct{}

func (passVerifier) Verify(tbs, signature []byte, publicKey core.PublicKey, algo core.SignatureAlgorithm) (bool, error) {
	return true, nil
}

func TestEngineValidateHappyPath(t *testing.T) {
	fc := clock.NewFake()
	now := fc.Now()

	root := &core.Certificate{
		SubjectDN: "CN=Root", IssuerDN: "CN=Root",
		NotBefore:  now.Add(-time.Hour),
		NotAfter:   now.Add(365 * 24 * time.Hour),
		Extensions: core.Extensions{BasicConstraints: &core.BasicConstraints{IsCA: true}, Critical: map[string]bool{}},
	}
	leaf := &core.Certificate{
		SubjectDN: "CN=leaf.example.com", IssuerDN: "CN=Root",
		NotBefore: now.Add(-time.Hour), NotAfter: now.Add(30 * 24 * time.Hour),
		Extensions: core.Extensions{
			SubjectAltNames: []string{"leaf.example.com"},
			Critical:        map[string]bool{},
		},
	}

	cv := chainvalidate.New(passVerifier{}, nil, fc)
	engine := New(cv, []*core.Certificate{root}, 0, audit.NewMock(), metrics.NewNoopScope())

	opts := core.DefaultValidationOptions()
	opts.CheckRevocation = false

	result := engine.Validate(context.Background(), leaf, nil, opts)
	assert.True(t, result.IsValid(), "%v", result.Errors)
}

func TestEngineValidateNoChainFound(t *testing.T) {
	fc := clock.NewFake()
	now := fc.Now()

	leaf := &core.Certificate{
		SubjectDN: "CN=leaf.example.com", IssuerDN: "CN=Unknown Issuer",
		NotBefore: now.Add(-time.Hour), NotAfter: now.Add(30 * 24 * time.Hour),
	}

	cv := chainvalidate.New(passVerifier{}, nil, fc)
	engine := New(cv, nil, 0, audit.NewMock(), metrics.NewNoopScope())

	opts := core.DefaultValidationOptions()
	opts.CheckRevocation = false

	result := engine.Validate(context.Background(), leaf, nil, opts)
	assert.False(t, result.IsValid())
}

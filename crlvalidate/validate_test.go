package crlvalidate

import (
	"crypto/ecdsa"
	"math/big"
	"testing"
	"time"

	"github.com/jmhodges/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tourze/tls-certificate/core"
)

type fakeVerifier struct {
	ok  bool
	err error
}

func (f *fakeVerifier) Verify(tbs, signature []byte, publicKey core.PublicKey, algo core.SignatureAlgorithm) (bool, error) {
	return f.ok, f.err
}

func fakeClockAt(t time.Time) core.Clock {
	fc := clock.NewFake()
	fc.Set(t)
	return fc
}

func TestValidateIssuerMismatch(t *testing.T) {
	crl := &core.CRL{IssuerDN: "CN=Real Issuer", ThisUpdate: time.Now().Add(-time.Hour)}
	issuer := &core.Certificate{SubjectDN: "CN=Someone Else"}
	_, err := Validate(crl, issuer, &fakeVerifier{ok: true}, fakeClockAt(time.Now()))
	require.Error(t, err)
}

func TestValidateSignatureInvalid(t *testing.T) {
	crl := &core.CRL{IssuerDN: "CN=Issuer", ThisUpdate: time.Now().Add(-time.Hour)}
	issuer := &core.Certificate{SubjectDN: "CN=Issuer", PublicKey: core.PublicKey{Raw: &ecdsa.PublicKey{}}}
	_, err := Validate(crl, issuer, &fakeVerifier{ok: false}, fakeClockAt(time.Now()))
	require.Error(t, err)
}

func TestValidateSuccess(t *testing.T) {
	crl := &core.CRL{IssuerDN: "CN=Issuer", ThisUpdate: time.Now().Add(-time.Hour)}
	issuer := &core.Certificate{SubjectDN: "CN=Issuer", PublicKey: core.PublicKey{Raw: &ecdsa.PublicKey{}}}
	warnings, err := Validate(crl, issuer, &fakeVerifier{ok: true}, fakeClockAt(time.Now()))
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestValidateThisUpdateInFuture(t *testing.T) {
	now := time.Now()
	crl := &core.CRL{IssuerDN: "CN=Issuer", ThisUpdate: now.Add(time.Hour)}
	issuer := &core.Certificate{SubjectDN: "CN=Issuer", PublicKey: core.PublicKey{Raw: &ecdsa.PublicKey{}}}
	_, err := Validate(crl, issuer, &fakeVerifier{ok: true}, fakeClockAt(now))
	require.Error(t, err)
}

func TestValidateNextUpdatePastIsWarningNotError(t *testing.T) {
	now := time.Now()
	crl := &core.CRL{
		IssuerDN:      "CN=Issuer",
		ThisUpdate:    now.Add(-48 * time.Hour),
		NextUpdate:    now.Add(-time.Hour),
		HasNextUpdate: true,
	}
	issuer := &core.Certificate{SubjectDN: "CN=Issuer", PublicKey: core.PublicKey{Raw: &ecdsa.PublicKey{}}}
	warnings, err := Validate(crl, issuer, &fakeVerifier{ok: true}, fakeClockAt(now))
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "next_update")
}

func TestValidateNilVerifierIsWarningNotPanic(t *testing.T) {
	now := time.Now()
	crl := &core.CRL{IssuerDN: "CN=Issuer", ThisUpdate: now.Add(-time.Hour)}
	issuer := &core.Certificate{SubjectDN: "CN=Issuer"}
	warnings, err := Validate(crl, issuer, nil, fakeClockAt(now))
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "verifier")
}

func TestCheckRevocationNotPresent(t *testing.T) {
	crl := &core.CRL{Entries: map[string]*core.RevokedEntry{}}
	revoked, entry := CheckRevocation(crl, big.NewInt(1))
	assert.False(t, revoked)
	assert.Nil(t, entry)
}

func TestCheckRevocationRevoked(t *testing.T) {
	serial := big.NewInt(42)
	crl := &core.CRL{Entries: map[string]*core.RevokedEntry{
		serial.Text(16): {Serial: serial, RevocationDate: time.Now(), ReasonCode: core.ReasonKeyCompromise, HasReasonCode: true},
	}}
	revoked, entry := CheckRevocation(crl, serial)
	assert.True(t, revoked)
	require.NotNil(t, entry)
	assert.Equal(t, "KeyCompromise", core.ReasonNames[entry.ReasonCode])
}

func TestCheckRevocationRemoveFromCRLIsNotRevoked(t *testing.T) {
	serial := big.NewInt(7)
	crl := &core.CRL{Entries: map[string]*core.RevokedEntry{
		serial.Text(16): {Serial: serial, ReasonCode: core.ReasonRemoveFromCRL, HasReasonCode: true},
	}}
	revoked, _ := CheckRevocation(crl, serial)
	assert.False(t, revoked)
}

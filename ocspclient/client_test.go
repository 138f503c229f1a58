package ocspclient

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/jmhodges/clock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ocsp"

	"github.com/tourze/tls-certificate/codec"
	"github.com/tourze/tls-certificate/core"
	"github.com/tourze/tls-certificate/sigverify"
)

type fakeFetcher struct {
	ocspResponse []byte
	err          error
}

func (f *fakeFetcher) Get(ctx context.Context, url string) ([]byte, error) { return nil, nil }

func (f *fakeFetcher) PostOCSP(ctx context.Context, url string, body []byte) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ocspResponse, nil
}

func mustIssuerAndLeaf(t *testing.T) (issuerCore *core.Certificate, issuerX509 *x509.Certificate, issuerKey *ecdsa.PrivateKey, leafCore *core.Certificate) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test Issuer"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	parsed, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	issuerCore, err = codec.DecodeCertificateDER(der)
	require.NoError(t, err)

	leafTmpl := &x509.Certificate{
		SerialNumber: big.NewInt(99),
		Subject:      pkix.Name{CommonName: "leaf.example.com"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(30 * 24 * time.Hour),
	}
	leafDER, err := x509.CreateCertificate(rand.Reader, leafTmpl, parsed, &key.PublicKey, key)
	require.NoError(t, err)
	leafCore, err = codec.DecodeCertificateDER(leafDER)
	require.NoError(t, err)

	return issuerCore, parsed, key, leafCore
}

func makeOCSPResponse(t *testing.T, issuer *x509.Certificate, key *ecdsa.PrivateKey, serial *big.Int, status int, nonce []byte, now time.Time) []byte {
	t.Helper()
	template := ocsp.Response{
		Status:       status,
		SerialNumber: serial,
		ThisUpdate:   now,
		NextUpdate:   now.Add(time.Hour),
		Certificate:  issuer,
	}
	if len(nonce) > 0 {
		// this helper never writes a nonce extension into the response; the
		// nonce-mismatch path is exercised by the integration scenario
		// TestScenarioOCSPNonceMismatch, which sets one explicitly.
		_ = nonce
	}
	der, err := ocsp.CreateResponse(issuer, issuer, template, key)
	require.NoError(t, err)
	return der
}

// makeOCSPResponseNoEmbed signs a response directly with key, without
// embedding a responder certificate, so that nothing but ocspclient's own
// verifier.Verify call can ever check the signature.
func makeOCSPResponseNoEmbed(t *testing.T, issuer *x509.Certificate, key *ecdsa.PrivateKey, serial *big.Int, now time.Time) []byte {
	t.Helper()
	template := ocsp.Response{
		Status:       ocsp.Good,
		SerialNumber: serial,
		ThisUpdate:   now,
		NextUpdate:   now.Add(time.Hour),
	}
	der, err := ocsp.CreateResponse(issuer, issuer, template, key)
	require.NoError(t, err)
	return der
}

func TestCheckSuccess(t *testing.T) {
	issuerCore, issuerX509, key, leafCore := mustIssuerAndLeaf(t)
	fc := clock.NewFake()

	respDER := makeOCSPResponse(t, issuerX509, key, leafCore.Serial, ocsp.Good, nil, fc.Now())
	client := New(&fakeFetcher{ocspResponse: respDER}, sigverify.NewDefaultVerifier(), fc)

	resp, err := client.Check(context.Background(), leafCore, issuerCore, "http://ocsp.example/")
	require.NoError(t, err)
	require.Equal(t, core.CertStatusGood, resp.CertStatus)
}

func TestCheckRevoked(t *testing.T) {
	issuerCore, issuerX509, key, leafCore := mustIssuerAndLeaf(t)
	fc := clock.NewFake()

	respDER := makeOCSPResponse(t, issuerX509, key, leafCore.Serial, ocsp.Revoked, nil, fc.Now())
	client := New(&fakeFetcher{ocspResponse: respDER}, sigverify.NewDefaultVerifier(), fc)

	resp, err := client.Check(context.Background(), leafCore, issuerCore, "http://ocsp.example/")
	require.NoError(t, err)
	require.Equal(t, core.CertStatusRevoked, resp.CertStatus)
}

func TestCheckDetectsBadSignature(t *testing.T) {
	issuerCore, issuerX509, _, leafCore := mustIssuerAndLeaf(t)
	fc := clock.NewFake()

	wrongKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	// signed by a key that has nothing to do with the issuer, and with no
	// embedded responder certificate for the library to self-verify
	// against: this only fails if ocspclient's own verifier.Verify call
	// actually runs against issuerCore's public key.
	respDER := makeOCSPResponseNoEmbed(t, issuerX509, wrongKey, leafCore.Serial, fc.Now())
	client := New(&fakeFetcher{ocspResponse: respDER}, sigverify.NewDefaultVerifier(), fc)

	_, err = client.Check(context.Background(), leafCore, issuerCore, "http://ocsp.example/")
	require.Error(t, err)
}

func TestCheckDetectsIssuerHashMismatch(t *testing.T) {
	_, issuerX509, key, leafCore := mustIssuerAndLeaf(t)
	otherIssuerCore, _, _, _ := mustIssuerAndLeaf(t)
	fc := clock.NewFake()

	// response is correctly signed by issuerX509, but the caller is
	// checking it against a different issuer's hash values
	respDER := makeOCSPResponse(t, issuerX509, key, leafCore.Serial, ocsp.Good, nil, fc.Now())
	client := New(&fakeFetcher{ocspResponse: respDER}, sigverify.NewDefaultVerifier(), fc)

	_, err := client.Check(context.Background(), leafCore, otherIssuerCore, "http://ocsp.example/")
	require.Error(t, err)
}

func TestCheckCachesResult(t *testing.T) {
	issuerCore, issuerX509, key, leafCore := mustIssuerAndLeaf(t)
	fc := clock.NewFake()

	respDER := makeOCSPResponse(t, issuerX509, key, leafCore.Serial, ocsp.Good, nil, fc.Now())
	ff := &fakeFetcher{ocspResponse: respDER}
	client := New(ff, sigverify.NewDefaultVerifier(), fc)

	_, err := client.Check(context.Background(), leafCore, issuerCore, "http://ocsp.example/")
	require.NoError(t, err)

	ff.ocspResponse = nil
	ff.err = nil
	resp, err := client.Check(context.Background(), leafCore, issuerCore, "http://ocsp.example/")
	require.NoError(t, err)
	require.Equal(t, core.CertStatusGood, resp.CertStatus)
}

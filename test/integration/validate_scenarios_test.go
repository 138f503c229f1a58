// Package integration exercises the full validate() pipeline --
// chainbuild, chainvalidate, and revocation wired together exactly as
// cmd/x509validate assembles them -- against real, cryptographically
// signed fixtures rather than literal core.Certificate structs. Each test
// corresponds to one of the end-to-end scenarios this engine is expected
// to produce a specific, reproducible verdict for.
package integration

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/jmhodges/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ocsp"

	"github.com/tourze/tls-certificate/audit"
	"github.com/tourze/tls-certificate/chainbuild"
	"github.com/tourze/tls-certificate/chainvalidate"
	"github.com/tourze/tls-certificate/codec"
	"github.com/tourze/tls-certificate/core"
	"github.com/tourze/tls-certificate/crlcache"
	"github.com/tourze/tls-certificate/crlupdate"
	"github.com/tourze/tls-certificate/fetcher"
	"github.com/tourze/tls-certificate/metrics"
	"github.com/tourze/tls-certificate/ocspclient"
	"github.com/tourze/tls-certificate/revocation"
	"github.com/tourze/tls-certificate/sigverify"
	"github.com/tourze/tls-certificate/validate"
)

// --- fixture construction -------------------------------------------------

type fixture struct {
	rootCore, intCore, leafCore    *core.Certificate
	rootX509, intX509, leafX509    *x509.Certificate
	rootKey, intKey, leafKey       *ecdsa.PrivateKey
}

type fixtureOpts struct {
	leafSerial              int64
	leafNotBefore, leafNotAfter time.Time
	leafCRLURL, leafOCSPURL string
}

func genKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

func decodeCore(t *testing.T, der []byte) *core.Certificate {
	t.Helper()
	c, err := codec.DecodeCertificateDER(der)
	require.NoError(t, err)
	return c
}

// buildFixture assembles a three-tier chain: a self-signed root, an
// intermediate it signs, and a leaf the intermediate signs. The
// intermediate carries no CRL/OCSP endpoints of its own -- these scenarios
// are about the leaf's revocation status, not the intermediate's.
func buildFixture(t *testing.T, o fixtureOpts) fixture {
	t.Helper()

	rootKey := genKey(t)
	rootTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(0x100),
		Subject:               pkix.Name{CommonName: "Root CA"},
		NotBefore:             o.leafNotBefore.Add(-365 * 24 * time.Hour),
		NotAfter:              o.leafNotAfter.Add(365 * 24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature,
	}
	rootDER, err := x509.CreateCertificate(rand.Reader, rootTmpl, rootTmpl, &rootKey.PublicKey, rootKey)
	require.NoError(t, err)
	rootX509, err := x509.ParseCertificate(rootDER)
	require.NoError(t, err)
	rootCore := decodeCore(t, rootDER)

	intKey := genKey(t)
	intTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(0x10),
		Subject:               pkix.Name{CommonName: "Int CA"},
		NotBefore:             o.leafNotBefore.Add(-180 * 24 * time.Hour),
		NotAfter:              o.leafNotAfter.Add(180 * 24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature,
	}
	intDER, err := x509.CreateCertificate(rand.Reader, intTmpl, rootX509, &intKey.PublicKey, rootKey)
	require.NoError(t, err)
	intX509, err := x509.ParseCertificate(intDER)
	require.NoError(t, err)
	intCore := decodeCore(t, intDER)

	leafKey := genKey(t)
	leafTmpl := &x509.Certificate{
		SerialNumber: big.NewInt(o.leafSerial),
		Subject:      pkix.Name{CommonName: "example.com"},
		DNSNames:     []string{"example.com"},
		NotBefore:    o.leafNotBefore,
		NotAfter:     o.leafNotAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	if o.leafCRLURL != "" {
		leafTmpl.CRLDistributionPoints = []string{o.leafCRLURL}
	}
	if o.leafOCSPURL != "" {
		leafTmpl.OCSPServer = []string{o.leafOCSPURL}
	}
	leafDER, err := x509.CreateCertificate(rand.Reader, leafTmpl, intX509, &leafKey.PublicKey, intKey)
	require.NoError(t, err)
	leafX509, err := x509.ParseCertificate(leafDER)
	require.NoError(t, err)
	leafCore := decodeCore(t, leafDER)

	return fixture{
		rootCore: rootCore, intCore: intCore, leafCore: leafCore,
		rootX509: rootX509, intX509: intX509, leafX509: leafX509,
		rootKey: rootKey, intKey: intKey, leafKey: leafKey,
	}
}

func buildChain(t *testing.T, f fixture, fc clock.Clock) *core.Chain {
	t.Helper()
	builder := chainbuild.New([]*core.Certificate{f.intCore}, []*core.Certificate{f.rootCore}, 0, fc)
	chain, err := builder.Build(f.leafCore)
	require.NoError(t, err)
	return chain
}

func buildCRL(t *testing.T, issuer *x509.Certificate, issuerKey *ecdsa.PrivateKey, number int64, thisUpdate, nextUpdate time.Time, revoked []x509.RevocationListEntry) []byte {
	t.Helper()
	tmpl := &x509.RevocationList{
		Number:                    big.NewInt(number),
		ThisUpdate:                thisUpdate,
		NextUpdate:                nextUpdate,
		RevokedCertificateEntries: revoked,
	}
	der, err := x509.CreateRevocationList(rand.Reader, tmpl, issuer, issuerKey)
	require.NoError(t, err)
	return der
}

var oidOCSPNonce = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 1, 2}

func buildOCSPResponse(t *testing.T, responder *x509.Certificate, responderKey *ecdsa.PrivateKey, serial *big.Int, status int, thisUpdate, nextUpdate time.Time, nonce []byte) []byte {
	t.Helper()
	tmpl := ocsp.Response{
		Status:       status,
		SerialNumber: serial,
		ThisUpdate:   thisUpdate,
		NextUpdate:   nextUpdate,
		Certificate:  responder,
	}
	if len(nonce) > 0 {
		val, err := asn1.Marshal(nonce)
		require.NoError(t, err)
		tmpl.ExtraExtensions = []pkix.Extension{{Id: oidOCSPNonce, Value: val}}
	}
	der, err := ocsp.CreateResponse(responder, responder, tmpl, responderKey)
	require.NoError(t, err)
	return der
}

// routedFetcher dispatches Get/PostOCSP by exact URL match, the way a real
// HTTP fetcher would route to distinct distribution points and responders.
type routedFetcher struct {
	getBody map[string][]byte
	getErr  map[string]error
	postBody map[string][]byte
	postErr map[string]error
}

func newRoutedFetcher() *routedFetcher {
	return &routedFetcher{
		getBody:  map[string][]byte{},
		getErr:   map[string]error{},
		postBody: map[string][]byte{},
		postErr:  map[string]error{},
	}
}

func (f *routedFetcher) Get(ctx context.Context, url string) ([]byte, error) {
	if err, ok := f.getErr[url]; ok {
		return nil, err
	}
	if body, ok := f.getBody[url]; ok {
		return body, nil
	}
	return nil, &fetcher.FetchError{Kind: fetcher.ConnectionRefused, URL: url, Detail: "no fixture registered for this URL"}
}

func (f *routedFetcher) PostOCSP(ctx context.Context, url string, body []byte) ([]byte, error) {
	if err, ok := f.postErr[url]; ok {
		return nil, err
	}
	if resp, ok := f.postBody[url]; ok {
		return resp, nil
	}
	return nil, &fetcher.FetchError{Kind: fetcher.ConnectionRefused, URL: url, Detail: "no fixture registered for this URL"}
}

// newStack wires the same dependency graph cmd/x509validate assembles,
// minus the HTTP transport: sigverify.DefaultVerifier, the given fetcher,
// and a fresh crlcache/ocspclient/revocation.Checker pair per test so
// cache state never leaks between scenarios.
func newStack(fc clock.Clock, fetch fetcher.Fetcher) *chainvalidate.Validator {
	verifier := sigverify.NewDefaultVerifier()
	cache := crlcache.New(fc, 0)
	updater := crlupdate.New(cache, fetch)
	ocspClient := ocspclient.New(fetch, verifier, fc)
	revChecker := revocation.New(cache, updater, ocspClient, verifier, fc)
	return chainvalidate.New(verifier, revChecker, fc)
}

func newEngine(validator *chainvalidate.Validator, anchors []*core.Certificate) *validate.Engine {
	return validate.New(validator, anchors, 0, audit.NewMock(), metrics.NewNoopScope())
}

func errsContaining(result *core.ValidationResult, substr string) int {
	n := 0
	for _, e := range result.Errors {
		if strings.Contains(e.Error(), substr) {
			n++
		}
	}
	return n
}

// --- scenario 1: happy path -----------------------------------------------

func TestScenarioHappyPath(t *testing.T) {
	fc := clock.NewFake()
	fc.Set(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	f := buildFixture(t, fixtureOpts{
		leafSerial:    1,
		leafNotBefore: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		leafNotAfter:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	validator := newStack(fc, newRoutedFetcher())
	engine := newEngine(validator, []*core.Certificate{f.rootCore})

	result := engine.Validate(context.Background(), f.leafCore, []*core.Certificate{f.intCore}, core.DefaultValidationOptions())
	assert.True(t, result.IsValid(), "%v", result.Errors)
}

// --- scenario 2: expired leaf ----------------------------------------------

func TestScenarioExpiredLeaf(t *testing.T) {
	fc := clock.NewFake()
	fc.Set(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	f := buildFixture(t, fixtureOpts{
		leafSerial:    1,
		leafNotBefore: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		leafNotAfter:  time.Date(2024, 5, 31, 23, 59, 59, 0, time.UTC),
	})

	validator := newStack(fc, newRoutedFetcher())
	engine := newEngine(validator, []*core.Certificate{f.rootCore})

	result := engine.Validate(context.Background(), f.leafCore, []*core.Certificate{f.intCore}, core.DefaultValidationOptions())
	assert.False(t, result.IsValid())
	assert.GreaterOrEqual(t, errsContaining(result, "expired"), 1, "%v", result.Errors)
}

// --- scenario 3: revoked via CRL --------------------------------------------

func TestScenarioRevokedViaCRL(t *testing.T) {
	fc := clock.NewFake()
	fc.Set(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	const crlURL = "http://crl.example/int-ca.crl"
	f := buildFixture(t, fixtureOpts{
		leafSerial:    1,
		leafNotBefore: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		leafNotAfter:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		leafCRLURL:    crlURL,
	})

	crlDER := buildCRL(t, f.intX509, f.intKey, 5,
		time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		[]x509.RevocationListEntry{
			{SerialNumber: f.leafCore.Serial, RevocationTime: time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC), ReasonCode: 1},
		})

	fetch := newRoutedFetcher()
	fetch.getBody[crlURL] = crlDER

	validator := newStack(fc, fetch)
	engine := newEngine(validator, []*core.Certificate{f.rootCore})

	opts := core.DefaultValidationOptions()
	opts.CheckRevocation = true
	opts.RevocationPolicy = core.RevocationCrlOnly

	result := engine.Validate(context.Background(), f.leafCore, []*core.Certificate{f.intCore}, opts)
	assert.False(t, result.IsValid())
	assert.Equal(t, 1, errsContaining(result, "0x01"), "%v", result.Errors)
	assert.Equal(t, 1, errsContaining(result, "KeyCompromise"), "%v", result.Errors)
	assert.Equal(t, 1, errsContaining(result, "2024-04-15"), "%v", result.Errors)
}

// --- scenario 4: CRL number regression --------------------------------------

func TestScenarioCRLNumberRegressionRefused(t *testing.T) {
	fc := clock.NewFake()
	fc.Set(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	const crlURL = "http://crl.example/int-ca.crl"
	f := buildFixture(t, fixtureOpts{
		leafSerial:    1,
		leafNotBefore: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		leafNotAfter:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		leafCRLURL:    crlURL,
	})

	cache := crlcache.New(fc, 0)
	current := buildCRL(t, f.intX509, f.intKey, 5,
		time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), nil)
	decodedCurrent, err := codec.DecodeCRLDER(current)
	require.NoError(t, err)
	cache.Put(f.intCore.SubjectDN, decodedCurrent)

	regressed := buildCRL(t, f.intX509, f.intKey, 4,
		time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC), nil)

	fetch := newRoutedFetcher()
	fetch.getBody[crlURL] = regressed

	updater := crlupdate.New(cache, fetch)
	_, err = updater.UpdateFromCertificate(context.Background(), f.leafCore, f.intCore.SubjectDN)
	assert.Error(t, err, "a crl_number regression must be refused")

	cached, ok := cache.Get(f.intCore.SubjectDN)
	require.True(t, ok)
	assert.Equal(t, int64(5), cached.CRLNumber.Int64(), "cache must still hold the higher crl_number")
}

// --- scenario 5: OCSP nonce mismatch -----------------------------------------

func TestScenarioOCSPNonceMismatch(t *testing.T) {
	fc := clock.NewFake()
	fc.Set(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	const ocspURL = "http://ocsp.example/int-ca"
	f := buildFixture(t, fixtureOpts{
		leafSerial:    1,
		leafNotBefore: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		leafNotAfter:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		leafOCSPURL:   ocspURL,
	})

	// the responder echoes a nonce that can never match the client's
	// freshly generated random one, simulating a misbehaving or replayed
	// responder (RFC 6960 §4.4.1).
	wrongNonce := []byte("0000000000000000")
	respDER := buildOCSPResponse(t, f.intX509, f.intKey, f.leafCore.Serial, ocsp.Good, fc.Now(), fc.Now().Add(time.Hour), wrongNonce)

	fetch := newRoutedFetcher()
	fetch.postBody[ocspURL] = respDER

	validator := newStack(fc, fetch)
	engine := newEngine(validator, []*core.Certificate{f.rootCore})

	opts := core.DefaultValidationOptions()
	opts.CheckRevocation = true
	opts.RevocationPolicy = core.RevocationOcspOnly

	result := engine.Validate(context.Background(), f.leafCore, []*core.Certificate{f.intCore}, opts)
	assert.False(t, result.IsValid())
	assert.Equal(t, 1, errsContaining(result, "nonce"), "%v", result.Errors)
	for _, s := range result.Successes {
		assert.NotContains(t, s, "revocation check passed")
	}
}

// --- scenario 6: soft-fail with unreachable endpoints ------------------------

func TestScenarioSoftFailUnreachable(t *testing.T) {
	fc := clock.NewFake()
	fc.Set(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	const ocspURL = "http://ocsp.example/int-ca"
	const crlURL1 = "http://crl1.example/int-ca.crl"
	f := buildFixture(t, fixtureOpts{
		leafSerial:    1,
		leafNotBefore: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		leafNotAfter:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		leafOCSPURL:   ocspURL,
		leafCRLURL:    crlURL1,
	})

	fetch := newRoutedFetcher()
	fetch.postErr[ocspURL] = &fetcher.FetchError{Kind: fetcher.ConnectionRefused, URL: ocspURL, Detail: "connection refused"}
	fetch.getErr[crlURL1] = &fetcher.FetchError{Kind: fetcher.Timeout, URL: crlURL1, Detail: "timed out"}

	validator := newStack(fc, fetch)
	engine := newEngine(validator, []*core.Certificate{f.rootCore})

	opts := core.DefaultValidationOptions()
	opts.CheckRevocation = true
	opts.RevocationPolicy = core.RevocationSoftFail

	result := engine.Validate(context.Background(), f.leafCore, []*core.Certificate{f.intCore}, opts)
	assert.True(t, result.IsValid(), "%v", result.Errors)
	assert.GreaterOrEqual(t, len(result.Warnings), 2, "%v", result.Warnings)

	require.NotNil(t, result.LastCheckStatus)
	assert.True(t, result.LastCheckStatus.Result)
	var sawOCSP, sawCRL bool
	for _, m := range result.LastCheckStatus.MethodsTried {
		if m == core.MethodOCSP {
			sawOCSP = true
		}
		if m == core.MethodCRL {
			sawCRL = true
		}
	}
	assert.True(t, sawOCSP && sawCRL, "%v", result.LastCheckStatus.MethodsTried)
}

// --- scenario 7: chain build with ambiguity ---------------------------------

func TestScenarioChainBuildAmbiguityPrefersAnchor(t *testing.T) {
	notBefore := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	notAfter := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	rootKey := genKey(t)
	rootTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(0x100),
		Subject:               pkix.Name{CommonName: "Root CA"},
		NotBefore:             notBefore.Add(-365 * 24 * time.Hour),
		NotAfter:              notAfter.Add(365 * 24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
	}
	rootDER, err := x509.CreateCertificate(rand.Reader, rootTmpl, rootTmpl, &rootKey.PublicKey, rootKey)
	require.NoError(t, err)
	rootX509, err := x509.ParseCertificate(rootDER)
	require.NoError(t, err)
	rootCore := decodeCore(t, rootDER)

	// two candidate intermediates share the exact same subject DN but
	// carry distinct serials; one of the two is also present in the
	// anchor pool (an operator-pinned copy of the same logical CA).
	intKey := genKey(t)
	intTmplShared := func(serial int64) *x509.Certificate {
		return &x509.Certificate{
			SerialNumber:          big.NewInt(serial),
			Subject:               pkix.Name{CommonName: "Int CA"},
			NotBefore:             notBefore.Add(-180 * 24 * time.Hour),
			NotAfter:              notAfter.Add(180 * 24 * time.Hour),
			IsCA:                  true,
			BasicConstraintsValid: true,
			KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		}
	}
	pooledDER, err := x509.CreateCertificate(rand.Reader, intTmplShared(0x11), rootX509, &intKey.PublicKey, rootKey)
	require.NoError(t, err)
	pooledCore := decodeCore(t, pooledDER)

	anchoredDER, err := x509.CreateCertificate(rand.Reader, intTmplShared(0x22), rootX509, &intKey.PublicKey, rootKey)
	require.NoError(t, err)
	anchoredX509, err := x509.ParseCertificate(anchoredDER)
	require.NoError(t, err)
	anchoredCore := decodeCore(t, anchoredDER)

	leafKey := genKey(t)
	leafTmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "example.com"},
		DNSNames:     []string{"example.com"},
		NotBefore:    notBefore,
		NotAfter:     notAfter,
	}
	leafDER, err := x509.CreateCertificate(rand.Reader, leafTmpl, anchoredX509, &leafKey.PublicKey, intKey)
	require.NoError(t, err)
	leafCore := decodeCore(t, leafDER)

	fc := clock.NewFake()
	fc.Set(notBefore.Add(30 * 24 * time.Hour))
	builder := chainbuild.New(
		[]*core.Certificate{pooledCore},
		[]*core.Certificate{rootCore, anchoredCore},
		0,
		fc,
	)
	chain, err := builder.Build(leafCore)
	require.NoError(t, err)
	// the chosen intermediate is itself a trust anchor, so Build stops as
	// soon as it reaches it rather than continuing on to the root.
	require.Equal(t, 2, chain.Len())
	assert.True(t, chain.Certificates[1].SameIdentity(anchoredCore), "builder must pick the anchor copy of the ambiguous intermediate")
}

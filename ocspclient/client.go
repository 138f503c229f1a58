// Package ocspclient implements the OCSP revocation check (spec.md §4.8,
// §4.9): build a request, probe a process-local response cache, fetch over
// HTTP on a miss, decode and validate the response (nonce echo, issuer
// binding, freshness, signature), and cache the validated result.
package ocspclient

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/tourze/tls-certificate/codec"
	"github.com/tourze/tls-certificate/core"
	cerrors "github.com/tourze/tls-certificate/errors"
	"github.com/tourze/tls-certificate/fetcher"
	"github.com/tourze/tls-certificate/sigverify"
)

// MaxResponseAge bounds how stale a cached-or-fetched OCSP response that
// carries no NextUpdate may be, relative to its ThisUpdate, before it is
// treated as expired; a response with a NextUpdate expires at NextUpdate
// (SPEC_FULL.md §6).
const MaxResponseAge = 24 * time.Hour

type cacheKey [32]byte

func keyFor(serial []byte, issuerSerial []byte) cacheKey {
	h := sha256.New()
	h.Write(serial)
	h.Write(issuerSerial)
	var k cacheKey
	copy(k[:], h.Sum(nil))
	return k
}

type cacheEntry struct {
	resp *core.OCSPResponse
}

// Client performs OCSP checks with an internal, process-local response
// cache keyed by sha256(serial || issuer_serial), per spec.md §5.
type Client struct {
	fetch    fetcher.Fetcher
	verifier sigverify.Verifier
	clock    core.Clock

	mu    sync.Mutex
	cache map[cacheKey]cacheEntry
}

// New returns a Client.
func New(fetch fetcher.Fetcher, verifier sigverify.Verifier, clock core.Clock) *Client {
	return &Client{
		fetch:    fetch,
		verifier: verifier,
		clock:    clock,
		cache:    make(map[cacheKey]cacheEntry),
	}
}

func newNonce() ([]byte, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return nonce, nil
}

// Check performs an OCSP check for cert against issuer, using responderURL
// (normally cert.Extensions.OCSPURLs[0]).
func (c *Client) Check(ctx context.Context, cert, issuer *core.Certificate, responderURL string) (*core.OCSPResponse, error) {
	key := keyFor(cert.Serial.Bytes(), issuer.Serial.Bytes())

	c.mu.Lock()
	cached, ok := c.cache[key]
	c.mu.Unlock()
	if ok && !c.isExpired(cached.resp) {
		return cached.resp, nil
	}

	nonce, err := newNonce()
	if err != nil {
		return nil, err
	}

	reqDER, req, err := codec.BuildOCSPRequest(cert.Serial, issuer, nonce)
	if err != nil {
		return nil, err
	}

	respDER, err := c.fetch.PostOCSP(ctx, responderURL, reqDER)
	if err != nil {
		return nil, cerrors.NewRevocationError(cerrors.OCSPUnreachable, "ocsp responder %s: %s", responderURL, err.Error())
	}

	resp, err := codec.DecodeOCSPResponse(respDER)
	if err != nil {
		return nil, cerrors.NewRevocationError(cerrors.OCSPMalformed, "ocsp response from %s: %s", responderURL, err.Error())
	}

	if resp.ResponseStatus != core.OCSPStatusSuccessful {
		return nil, cerrors.NewRevocationError(cerrors.OCSPMalformed,
			"ocsp responder %s returned non-successful status %s", responderURL, core.OCSPResponseStatusNames[resp.ResponseStatus])
	}

	if len(nonce) > 0 && len(resp.Nonce) > 0 && !bytes.Equal(nonce, resp.Nonce) {
		return nil, cerrors.NewRevocationError(cerrors.NonceMismatch, "ocsp response nonce does not match request nonce")
	}

	if err := checkBinding(req, resp, cert); err != nil {
		return nil, err
	}

	signerKey, err := c.responderKey(resp, issuer)
	if err != nil {
		return nil, err
	}
	ok, err := c.verifier.Verify(resp.TBSBytes, resp.SignatureBytes, signerKey, resp.SignatureAlgorithm)
	if err != nil {
		return nil, cerrors.NewRevocationError(cerrors.OCSPSignatureInvalid, "ocsp response from %s: %s", responderURL, err.Error())
	}
	if !ok {
		return nil, cerrors.NewRevocationError(cerrors.OCSPSignatureInvalid,
			"ocsp response from %s does not verify against issuer %q", responderURL, issuer.SubjectDN)
	}

	if c.isExpired(resp) {
		return nil, cerrors.NewRevocationError(cerrors.ResponseExpired,
			"ocsp response for serial %s is stale (this_update %s)", hex.EncodeToString(cert.Serial.Bytes()), resp.ThisUpdate)
	}

	c.mu.Lock()
	c.cache[key] = cacheEntry{resp: resp}
	c.mu.Unlock()

	return resp, nil
}

// checkBinding enforces RFC 6960 §4.1.1's CertID match: the response must be
// about the same (issuer_name_hash, issuer_key_hash, serial) the request
// asked about, not merely carry a matching serial (spec.md §4.8).
func checkBinding(req *core.OCSPRequest, resp *core.OCSPResponse, cert *core.Certificate) error {
	if resp.Serial == nil || cert.Serial == nil || resp.Serial.Cmp(cert.Serial) != 0 {
		return cerrors.NewRevocationError(cerrors.IssuerBindingMismatch, "ocsp response serial does not match requested certificate")
	}
	if len(req.IssuerNameHash) == 0 || !bytes.Equal(req.IssuerNameHash, resp.IssuerNameHash) {
		return cerrors.NewRevocationError(cerrors.IssuerBindingMismatch, "ocsp response issuer_name_hash does not match request")
	}
	if len(req.IssuerKeyHash) == 0 || !bytes.Equal(req.IssuerKeyHash, resp.IssuerKeyHash) {
		return cerrors.NewRevocationError(cerrors.IssuerBindingMismatch, "ocsp response issuer_key_hash does not match request")
	}
	return nil
}

// responderKey returns the public key the response's signature must verify
// against: the issuer's own key, unless the response embeds a delegated
// OCSP-signing certificate, in which case that certificate must itself
// chain to issuer and carry the id-kp-OCSPSigning extended key usage
// (spec.md §4.8) before its key is trusted.
func (c *Client) responderKey(resp *core.OCSPResponse, issuer *core.Certificate) (core.PublicKey, error) {
	if len(resp.EmbeddedResponderCerts) == 0 {
		return issuer.PublicKey, nil
	}

	responder := resp.EmbeddedResponderCerts[0]
	if responder.SameIdentity(issuer) {
		return issuer.PublicKey, nil
	}

	ok, err := c.verifier.Verify(responder.TBSBytes, responder.SignatureBytes, issuer.PublicKey, responder.SignatureAlgorithm)
	if err != nil {
		return core.PublicKey{}, cerrors.NewRevocationError(cerrors.OCSPSignatureInvalid, "delegated ocsp responder certificate: %s", err.Error())
	}
	if !ok {
		return core.PublicKey{}, cerrors.NewRevocationError(cerrors.IssuerBindingMismatch,
			"delegated ocsp responder certificate %q does not chain to issuer %q", responder.SubjectDN, issuer.SubjectDN)
	}
	if !hasOCSPSigningEKU(responder) {
		return core.PublicKey{}, cerrors.NewRevocationError(cerrors.IssuerBindingMismatch,
			"delegated ocsp responder certificate %q lacks id-kp-OCSPSigning extended key usage", responder.SubjectDN)
	}
	return responder.PublicKey, nil
}

func hasOCSPSigningEKU(cert *core.Certificate) bool {
	for _, oid := range cert.Extensions.ExtKeyUsage {
		if oid.Equal(core.OIDKeyPurposeOCSPSigning) {
			return true
		}
	}
	return false
}

func (c *Client) isExpired(resp *core.OCSPResponse) bool {
	now := c.clock.Now()
	if resp.HasNextUpdate {
		return now.After(resp.NextUpdate)
	}
	return now.Sub(resp.ThisUpdate) > MaxResponseAge
}

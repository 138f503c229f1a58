package codec

import (
	"crypto"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"time"

	"golang.org/x/crypto/ocsp"

	"github.com/tourze/tls-certificate/core"
	cerrors "github.com/tourze/tls-certificate/errors"
)

var ocspCertStatusFromLib = map[int]core.CertStatusKind{
	ocsp.Good:    core.CertStatusGood,
	ocsp.Revoked: core.CertStatusRevoked,
	ocsp.Unknown: core.CertStatusUnknown,
}

// ocspSignatureAlgorithmOIDs maps the RFC 5280 signature algorithm OIDs an
// OCSP response's BasicOCSPResponse.signatureAlgorithm carries to this
// engine's own core.SignatureAlgorithm enum. golang.org/x/crypto/ocsp's
// Response does not expose this -- it only exposes the bytes its internal
// verification needs -- so this engine decodes it independently, the same
// way it decodes the response's CertID hashes below.
var ocspSignatureAlgorithmOIDs = map[string]core.SignatureAlgorithm{
	"1.2.840.113549.1.1.5":  core.SignatureRSAPKCS1SHA1,
	"1.2.840.113549.1.1.11": core.SignatureRSAPKCS1SHA256,
	"1.2.840.113549.1.1.12": core.SignatureRSAPKCS1SHA384,
	"1.2.840.113549.1.1.13": core.SignatureRSAPKCS1SHA512,
	"1.2.840.10045.4.1":     core.SignatureECDSASHA1,
	"1.2.840.10045.4.3.2":   core.SignatureECDSASHA256,
	"1.2.840.10045.4.3.3":   core.SignatureECDSASHA384,
	"1.2.840.10045.4.3.4":   core.SignatureECDSASHA512,
}

// The types below mirror (field-for-field) the unexported ASN.1 shapes
// golang.org/x/crypto/ocsp itself parses BasicOCSPResponse with -- the same
// technique the gosnowflake driver uses ("copied from crypto/ocsp.go") to
// recover CertID fields the public ocsp.Response doesn't surface. This
// engine needs the response's own issuer_name_hash/issuer_key_hash (RFC
// 6960 §4.1.1) to bind it to the request per spec.md §4.8, and the library
// only exposes ResponderKeyHash (the responder's own identity, a different
// value entirely) and SerialNumber.
type ocspCertID struct {
	HashAlgorithm pkix.AlgorithmIdentifier
	NameHash      []byte
	IssuerKeyHash []byte
	SerialNumber  *big.Int
}

type ocspRevokedInfo struct {
	RevocationTime time.Time       `asn1:"generalized"`
	Reason         asn1.Enumerated `asn1:"explicit,tag:0,optional"`
}

type ocspSingleResponse struct {
	CertID           ocspCertID
	Good             asn1.Flag        `asn1:"tag:0,optional"`
	Revoked          ocspRevokedInfo  `asn1:"tag:1,optional"`
	Unknown          asn1.Flag        `asn1:"tag:2,optional"`
	ThisUpdate       time.Time        `asn1:"generalized"`
	NextUpdate       time.Time        `asn1:"generalized,explicit,tag:0,optional"`
	SingleExtensions []pkix.Extension `asn1:"explicit,tag:1,optional"`
}

type ocspResponseData struct {
	Raw                asn1.RawContent
	Version            int `asn1:"optional,default:0,explicit,tag:0"`
	RawResponderID     asn1.RawValue
	ProducedAt         time.Time `asn1:"generalized"`
	Responses          []ocspSingleResponse
	ResponseExtensions []pkix.Extension `asn1:"explicit,tag:1,optional"`
}

type ocspBasicResponse struct {
	TBSResponseData    ocspResponseData
	SignatureAlgorithm pkix.AlgorithmIdentifier
	Signature          asn1.BitString
	Certificates       []asn1.RawValue `asn1:"explicit,tag:0,optional"`
}

type ocspResponseBytes struct {
	ResponseType asn1.ObjectIdentifier
	Response     []byte
}

type ocspResponseASN1 struct {
	Status   asn1.Enumerated
	Response ocspResponseBytes `asn1:"explicit,tag:0,optional"`
}

// certIDBinding independently decodes der's first SingleResponse and
// returns the CertID's issuer name/key hash and the response's own
// signature algorithm OID, all of which RFC 6960 §4.1.1 binds the response
// to a specific (issuer, serial) pair but which golang.org/x/crypto/ocsp
// discards after using them for its own internal verification.
func certIDBinding(der []byte) (nameHash, keyHash []byte, sigAlgo core.SignatureAlgorithm, err error) {
	var resp ocspResponseASN1
	if _, err = asn1.Unmarshal(der, &resp); err != nil {
		return nil, nil, core.SignatureUnknown, cerrors.NewDecodeError(cerrors.BadASN1Structure, "ocsp response envelope: %s", err.Error())
	}

	var basic ocspBasicResponse
	if _, err = asn1.Unmarshal(resp.Response.Response, &basic); err != nil {
		return nil, nil, core.SignatureUnknown, cerrors.NewDecodeError(cerrors.BadASN1Structure, "ocsp basic response: %s", err.Error())
	}

	if len(basic.TBSResponseData.Responses) == 0 {
		return nil, nil, core.SignatureUnknown, cerrors.NewDecodeError(cerrors.BadASN1Structure, "ocsp response contains no single responses")
	}

	certID := basic.TBSResponseData.Responses[0].CertID
	algo := ocspSignatureAlgorithmOIDs[basic.SignatureAlgorithm.Algorithm.String()]
	return certID.NameHash, certID.IssuerKeyHash, algo, nil
}

// x509CertificateFromCore rebuilds just enough of a stdlib *x509.Certificate
// to drive golang.org/x/crypto/ocsp's request/response functions, which take
// *x509.Certificate rather than this engine's own core.Certificate. Only the
// fields those functions actually read (RawSubject, RawSubjectPublicKeyInfo,
// PublicKey, SerialNumber) need to be populated.
func x509CertificateFromCore(c *core.Certificate) (*x509.Certificate, error) {
	if c == nil {
		return nil, cerrors.NewDecodeError(cerrors.BadASN1Structure, "ocsp: nil issuer certificate")
	}
	return &x509.Certificate{
		RawSubject:              c.SubjectDNDER,
		RawSubjectPublicKeyInfo: c.PublicKey.SPKIDER,
		SerialNumber:            c.Serial,
		PublicKey:               c.PublicKey.Raw,
	}, nil
}

// BuildOCSPRequest builds the DER bytes of an OCSP request for serial,
// identified against its issuer's name/key hash (RFC 6960 §4.1.1), via
// golang.org/x/crypto/ocsp -- the wire codec this engine uses for the
// entire OCSP request/response boundary (SPEC_FULL.md §3 Domain Stack).
func BuildOCSPRequest(serial *big.Int, issuer *core.Certificate, nonce []byte) ([]byte, *core.OCSPRequest, error) {
	issuerCert, err := x509CertificateFromCore(issuer)
	if err != nil {
		return nil, nil, err
	}

	opts := &ocsp.RequestOptions{Hash: crypto.SHA1}
	leaf := &x509.Certificate{SerialNumber: serial}

	der, err := ocsp.CreateRequest(leaf, issuerCert, opts)
	if err != nil {
		return nil, nil, cerrors.NewDecodeError(cerrors.BadASN1Structure, "ocsp request: %s", err.Error())
	}

	parsedReq, err := ocsp.ParseRequest(der)
	if err != nil {
		return nil, nil, cerrors.NewDecodeError(cerrors.BadASN1Structure, "ocsp request round-trip: %s", err.Error())
	}

	req := &core.OCSPRequest{
		Serial:         parsedReq.SerialNumber,
		IssuerNameHash: parsedReq.IssuerNameHash,
		IssuerKeyHash:  parsedReq.IssuerKeyHash,
		HashAlgorithm:  "SHA1",
		Nonce:          nonce,
	}
	return der, req, nil
}

// DecodeOCSPResponse parses a DER-encoded OCSP response. It passes no issuer
// to ocsp.ParseResponse, so the library checks a signature only when the
// response embeds a responder certificate (against that certificate); the
// engine's own check against the issuer happens in ocspclient.Client,
// routed through the injected sigverify.Verifier port (spec.md Design
// Notes §9). The CertID hash bytes this engine's binding check (spec.md
// §4.8) needs are decoded separately by certIDBinding.
func DecodeOCSPResponse(der []byte) (*core.OCSPResponse, error) {
	resp, err := ocsp.ParseResponse(der, nil)
	if err != nil {
		return nil, cerrors.NewDecodeError(cerrors.BadASN1Structure, "ocsp response: %s", err.Error())
	}

	nameHash, keyHash, sigAlgo, err := certIDBinding(der)
	if err != nil {
		return nil, err
	}

	out := fromLibResponse(resp)
	out.IssuerNameHash = nameHash
	out.IssuerKeyHash = keyHash
	out.SignatureAlgorithm = sigAlgo
	return out, nil
}

func fromLibResponse(resp *ocsp.Response) *core.OCSPResponse {
	out := &core.OCSPResponse{
		ResponseStatus: core.OCSPStatusSuccessful,
		CertStatus:     ocspCertStatusFromLib[resp.Status],
		ProducedAt:     resp.ProducedAt,
		ThisUpdate:     resp.ThisUpdate,
		HashAlgorithm:  resp.IssuerHash.String(),
		Serial:         resp.SerialNumber,
		SignatureBytes: resp.Signature,
		TBSBytes:       resp.TBSResponseData,
	}
	// the nonce extension (id-pkix-ocsp-nonce) arrives in the single
	// response's extensions; its value is a DER OCTET STRING
	nonceOID := asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 1, 2}
	for _, ext := range resp.Extensions {
		if ext.Id.Equal(nonceOID) {
			var nonce []byte
			if _, err := asn1.Unmarshal(ext.Value, &nonce); err != nil {
				nonce = ext.Value
			}
			out.Nonce = nonce
		}
	}
	if !resp.NextUpdate.IsZero() {
		out.NextUpdate = resp.NextUpdate
		out.HasNextUpdate = true
	}
	if resp.Status == ocsp.Revoked {
		out.RevokedAt = resp.RevokedAt
		if resp.RevocationReason != 0 {
			out.RevokedReason = core.ReasonCode(resp.RevocationReason)
			out.HasRevokedReason = true
		}
	}
	if resp.Certificate != nil {
		if cert, cerr := fromStdCertificate(resp.Certificate); cerr == nil {
			out.EmbeddedResponderCerts = []*core.Certificate{cert}
		}
	}
	return out
}

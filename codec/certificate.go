// Package codec is the "external codec" boundary spec.md §1 names: the only
// place DER/PEM bytes are parsed into the core's decoded types. Nothing
// downstream of this package touches encoding/asn1 or crypto/x509 parsing
// directly.
package codec

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"

	zx509 "github.com/zmap/zcrypto/x509"

	"github.com/tourze/tls-certificate/core"
	cerrors "github.com/tourze/tls-certificate/errors"
)

// DecodeCertificatePEM decodes a single PEM-encoded "CERTIFICATE" block.
func DecodeCertificatePEM(data []byte) (*core.Certificate, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, cerrors.NewDecodeError(cerrors.BadPEM, "no PEM block found")
	}
	if block.Type != "CERTIFICATE" {
		return nil, cerrors.NewDecodeError(cerrors.BadPEM, "unexpected PEM block type %q", block.Type)
	}
	cert, err := DecodeCertificateDER(block.Bytes)
	if err != nil {
		return nil, err
	}
	cert.RawDER = block.Bytes
	return cert, nil
}

// DecodeCertificateDER decodes a DER-encoded certificate. It tries the
// standard library first; on failure it retries with zmap/zcrypto's more
// lenient X.509 parser, which tolerates the malformed-but-common
// certificates seen in the wild (SPEC_FULL.md §3 Domain Stack) before
// giving up with a DecodeError.
func DecodeCertificateDER(der []byte) (*core.Certificate, error) {
	stdCert, stdErr := x509.ParseCertificate(der)
	if stdErr == nil {
		cert, err := fromStdCertificate(stdCert)
		if err != nil {
			return nil, err
		}
		if len(cert.SubjectDNDER) == 0 || len(cert.IssuerDNDER) == 0 {
			return nil, cerrors.NewDecodeError(cerrors.BadASN1Structure, "certificate: raw subject/issuer DN DER unavailable")
		}
		cert.RawDER = der
		return cert, nil
	}

	lenientCert, lenientErr := zx509.ParseCertificate(der)
	if lenientErr != nil {
		return nil, cerrors.NewDecodeError(cerrors.BadASN1Structure, "certificate: %s", stdErr.Error())
	}
	cert, err := fromLenientCertificate(lenientCert)
	if err != nil {
		return nil, err
	}
	if len(cert.SubjectDNDER) == 0 || len(cert.IssuerDNDER) == 0 {
		return nil, cerrors.NewDecodeError(cerrors.BadASN1Structure, "certificate: raw subject/issuer DN DER unavailable")
	}
	cert.RawDER = der
	return cert, nil
}

func publicKeyFromStd(pub interface{}) (core.PublicKey, error) {
	spki, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return core.PublicKey{}, cerrors.NewDecodeError(cerrors.BadASN1Structure, "subject public key info: %s", err.Error())
	}

	switch k := pub.(type) {
	case *rsa.PublicKey:
		return core.PublicKey{Algorithm: core.PublicKeyRSA, Raw: k, SPKIDER: spki}, nil
	case *ecdsa.PublicKey:
		return core.PublicKey{Algorithm: core.PublicKeyECDSA, Raw: k, SPKIDER: spki}, nil
	case ed25519.PublicKey:
		return core.PublicKey{Algorithm: core.PublicKeyEd25519, Raw: k, SPKIDER: spki}, nil
	default:
		return core.PublicKey{Algorithm: core.PublicKeyUnknown, Raw: k, SPKIDER: spki}, nil
	}
}

var stdSignatureAlgorithms = map[x509.SignatureAlgorithm]core.SignatureAlgorithm{
	x509.SHA1WithRSA:     core.SignatureRSAPKCS1SHA1,
	x509.SHA256WithRSA:   core.SignatureRSAPKCS1SHA256,
	x509.SHA384WithRSA:   core.SignatureRSAPKCS1SHA384,
	x509.SHA512WithRSA:   core.SignatureRSAPKCS1SHA512,
	x509.ECDSAWithSHA1:   core.SignatureECDSASHA1,
	x509.ECDSAWithSHA256: core.SignatureECDSASHA256,
	x509.ECDSAWithSHA384: core.SignatureECDSASHA384,
	x509.ECDSAWithSHA512: core.SignatureECDSASHA512,
}

// extKeyUsageOIDs mirrors the well-known OID table from RFC 5280 §4.2.1.12
// -- the standard library exposes EKUs only as an internal enum, so this
// engine carries its own mapping back to OIDs for ValidationOptions.ExpectedEKU
// comparisons.
var extKeyUsageOIDs = map[x509.ExtKeyUsage]asn1.ObjectIdentifier{
	x509.ExtKeyUsageServerAuth:      {1, 3, 6, 1, 5, 5, 7, 3, 1},
	x509.ExtKeyUsageClientAuth:      {1, 3, 6, 1, 5, 5, 7, 3, 2},
	x509.ExtKeyUsageCodeSigning:     {1, 3, 6, 1, 5, 5, 7, 3, 3},
	x509.ExtKeyUsageEmailProtection: {1, 3, 6, 1, 5, 5, 7, 3, 4},
	x509.ExtKeyUsageTimeStamping:    {1, 3, 6, 1, 5, 5, 7, 3, 8},
	x509.ExtKeyUsageOCSPSigning:     {1, 3, 6, 1, 5, 5, 7, 3, 9},
	x509.ExtKeyUsageAny:             {2, 5, 29, 37, 0},
}

func extKeyUsageToOIDs(c *x509.Certificate) []asn1.ObjectIdentifier {
	out := make([]asn1.ObjectIdentifier, 0, len(c.ExtKeyUsage)+len(c.UnknownExtKeyUsage))
	for _, eku := range c.ExtKeyUsage {
		if oid, ok := extKeyUsageOIDs[eku]; ok {
			out = append(out, oid)
		}
	}
	out = append(out, c.UnknownExtKeyUsage...)
	return out
}

// oidSCTList is the X.509v3 extension OID carrying the embedded SCT list
// (RFC 6962 §3.3).
var oidSCTList = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 11129, 2, 4, 2}

func criticalExtensionSet(exts []pkix.Extension) map[string]bool {
	out := make(map[string]bool, len(exts))
	for _, e := range exts {
		if e.Critical {
			out[e.Id.String()] = true
		}
	}
	return out
}

func embeddedSCTs(exts []pkix.Extension) [][]byte {
	var out [][]byte
	for _, e := range exts {
		if e.Id.Equal(oidSCTList) {
			out = append(out, e.Value)
		}
	}
	return out
}

func policyInformation(c *x509.Certificate) []core.PolicyInformation {
	out := make([]core.PolicyInformation, 0, len(c.PolicyIdentifiers))
	for _, oid := range c.PolicyIdentifiers {
		out = append(out, core.PolicyInformation{OID: oid})
	}
	return out
}

func fromStdCertificate(c *x509.Certificate) (*core.Certificate, error) {
	pub, err := publicKeyFromStd(c.PublicKey)
	if err != nil {
		return nil, err
	}

	ext := core.Extensions{
		ExtKeyUsage:           extKeyUsageToOIDs(c),
		SubjectAltNames:       c.DNSNames,
		CRLDistributionPoints: c.CRLDistributionPoints,
		OCSPURLs:              c.OCSPServer,
		CertificatePolicies:   policyInformation(c),
		Critical:              criticalExtensionSet(c.Extensions),
	}
	if c.BasicConstraintsValid {
		ext.BasicConstraints = &core.BasicConstraints{
			IsCA:                 c.IsCA,
			PathLenConstraint:    c.MaxPathLen,
			HasPathLenConstraint: c.MaxPathLen > 0 || c.MaxPathLenZero,
		}
	}
	if c.KeyUsage != 0 {
		ext.KeyUsage = core.KeyUsage(c.KeyUsage)
		ext.HasKeyUsage = true
	}

	sigAlgo, ok := stdSignatureAlgorithms[c.SignatureAlgorithm]
	if !ok {
		sigAlgo = core.SignatureUnknown
	}

	return &core.Certificate{
		Serial:             c.SerialNumber,
		IssuerDN:           c.Issuer.String(),
		SubjectDN:          c.Subject.String(),
		IssuerDNDER:        c.RawIssuer,
		SubjectDNDER:       c.RawSubject,
		NotBefore:          c.NotBefore,
		NotAfter:           c.NotAfter,
		PublicKey:          pub,
		TBSBytes:           c.RawTBSCertificate,
		SignatureBytes:     c.Signature,
		SignatureAlgorithm: sigAlgo,
		Extensions:         ext,
		EmbeddedSCTs:       embeddedSCTs(c.Extensions),
	}, nil
}

// fromLenientCertificate adapts a zcrypto-parsed certificate. zcrypto's
// x509.Certificate embeds most of the same RFC 5280 fields as the standard
// library's, which is why this engine keeps it only as a fallback rather
// than the primary path: it tolerates malformed encodings the stdlib
// parser rejects outright.
func fromLenientCertificate(c *zx509.Certificate) (*core.Certificate, error) {
	pub, err := publicKeyFromStd(c.PublicKey)
	if err != nil {
		return nil, err
	}

	sigAlgo := core.SignatureUnknown
	switch c.SignatureAlgorithm.String() {
	case "SHA1-RSA":
		sigAlgo = core.SignatureRSAPKCS1SHA1
	case "SHA256-RSA":
		sigAlgo = core.SignatureRSAPKCS1SHA256
	case "SHA384-RSA":
		sigAlgo = core.SignatureRSAPKCS1SHA384
	case "SHA512-RSA":
		sigAlgo = core.SignatureRSAPKCS1SHA512
	case "ECDSA-SHA1":
		sigAlgo = core.SignatureECDSASHA1
	case "ECDSA-SHA256":
		sigAlgo = core.SignatureECDSASHA256
	case "ECDSA-SHA384":
		sigAlgo = core.SignatureECDSASHA384
	case "ECDSA-SHA512":
		sigAlgo = core.SignatureECDSASHA512
	}

	ext := core.Extensions{
		SubjectAltNames:       c.DNSNames,
		CRLDistributionPoints: c.CRLDistributionPoints,
		OCSPURLs:              c.OCSPServer,
		Critical:              map[string]bool{},
	}
	if c.BasicConstraintsValid {
		ext.BasicConstraints = &core.BasicConstraints{
			IsCA:                 c.IsCA,
			PathLenConstraint:    c.MaxPathLen,
			HasPathLenConstraint: c.MaxPathLen > 0,
		}
	}
	if c.KeyUsage != 0 {
		ext.KeyUsage = core.KeyUsage(c.KeyUsage)
		ext.HasKeyUsage = true
	}

	return &core.Certificate{
		Serial:             c.SerialNumber,
		IssuerDN:           c.Issuer.String(),
		SubjectDN:          c.Subject.String(),
		IssuerDNDER:        c.RawIssuer,
		SubjectDNDER:       c.RawSubject,
		NotBefore:          c.NotBefore,
		NotAfter:           c.NotAfter,
		PublicKey:          pub,
		TBSBytes:           c.RawTBSCertificate,
		SignatureBytes:     c.Signature,
		SignatureAlgorithm: sigAlgo,
		Extensions:         ext,
	}, nil
}

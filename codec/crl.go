package codec

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"time"

	"github.com/tourze/tls-certificate/core"
	cerrors "github.com/tourze/tls-certificate/errors"
)

// oidInvalidityDate is the RFC 5280 §5.3.2 CRL entry extension giving the
// date a key compromise or other invalidating event actually occurred,
// which may predate the revocation_date recorded on the CRL itself.
var oidInvalidityDate = asn1.ObjectIdentifier{2, 5, 29, 24}

// invalidityDateFrom scans a CRL entry's extensions for the invalidity
// date extension; x509.RevocationListEntry carries extensions as raw
// pkix.Extension values rather than a parsed field, so this engine
// extracts it the same way it extracts any other extension it cares about
// that the standard library leaves unparsed.
func invalidityDateFrom(exts []pkix.Extension) (time.Time, bool) {
	for _, ext := range exts {
		if !ext.Id.Equal(oidInvalidityDate) {
			continue
		}
		var t time.Time
		if _, err := asn1.UnmarshalWithParams(ext.Value, &t, "generalized"); err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}

// DecodeCRLPEM decodes a single PEM-encoded "X509 CRL" block.
func DecodeCRLPEM(data []byte) (*core.CRL, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, cerrors.NewDecodeError(cerrors.BadPEM, "no PEM block found")
	}
	if block.Type != "X509 CRL" {
		return nil, cerrors.NewDecodeError(cerrors.BadPEM, "unexpected PEM block type %q", block.Type)
	}
	return DecodeCRLDER(block.Bytes)
}

// DecodeCRLDER decodes a DER-encoded CertificateList (RFC 5280 §5.1) via
// the standard library's RFC 5280-conformant parser.
func DecodeCRLDER(der []byte) (*core.CRL, error) {
	rl, err := x509.ParseRevocationList(der)
	if err != nil {
		return nil, cerrors.NewDecodeError(cerrors.BadASN1Structure, "crl: %s", err.Error())
	}

	sigAlgo, ok := stdSignatureAlgorithms[rl.SignatureAlgorithm]
	if !ok {
		sigAlgo = core.SignatureUnknown
	}

	entries := make(map[string]*core.RevokedEntry, len(rl.RevokedCertificateEntries))
	for _, e := range rl.RevokedCertificateEntries {
		if e.SerialNumber == nil {
			continue
		}
		entry := &core.RevokedEntry{
			Serial:         e.SerialNumber,
			RevocationDate: e.RevocationTime,
		}
		if e.ReasonCode != 0 {
			entry.ReasonCode = core.ReasonCode(e.ReasonCode)
			entry.HasReasonCode = true
		}
		if when, ok := invalidityDateFrom(e.Extensions); ok {
			entry.InvalidityDate = when
			entry.HasInvalidityDate = true
		}
		entries[e.SerialNumber.Text(16)] = entry
	}

	crl := &core.CRL{
		IssuerDN:           rl.Issuer.String(),
		ThisUpdate:         rl.ThisUpdate,
		CRLNumber:          rl.Number,
		SignatureAlgorithm: sigAlgo,
		SignatureBytes:     rl.Signature,
		TBSBytes:           rl.RawTBSRevocationList,
		Entries:            entries,
	}
	if !rl.NextUpdate.IsZero() {
		crl.NextUpdate = rl.NextUpdate
		crl.HasNextUpdate = true
	}
	return crl, nil
}

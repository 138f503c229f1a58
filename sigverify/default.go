package sigverify

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/sha1" //nolint:gosec // SHA-1 support is required for legacy chains (spec.md §4.3)
	"crypto/sha256"
	"crypto/sha512"

	"github.com/tourze/tls-certificate/core"
)

// hashForAlgorithm is the allow-list of supported signature algorithms
// (adapted from Boulder's ca/certificate-authority.go
// badSignatureAlgorithms deny-list) and the hash each one uses. Any
// algorithm missing from it, SignatureUnknown included, is reported as
// unsupported. RSA/ECDSA with SHA-1 remain supported for baseline interop
// per spec.md §4.3, even though Boulder's CA-issuance side refuses to issue
// with them.
var hashForAlgorithm = map[core.SignatureAlgorithm]crypto.Hash{
	core.SignatureRSAPKCS1SHA1:   crypto.SHA1,
	core.SignatureRSAPKCS1SHA256: crypto.SHA256,
	core.SignatureRSAPKCS1SHA384: crypto.SHA384,
	core.SignatureRSAPKCS1SHA512: crypto.SHA512,
	core.SignatureECDSASHA1:      crypto.SHA1,
	core.SignatureECDSASHA256:    crypto.SHA256,
	core.SignatureECDSASHA384:    crypto.SHA384,
	core.SignatureECDSASHA512:    crypto.SHA512,
}

func isRSAAlgorithm(algo core.SignatureAlgorithm) bool {
	switch algo {
	case core.SignatureRSAPKCS1SHA1, core.SignatureRSAPKCS1SHA256, core.SignatureRSAPKCS1SHA384, core.SignatureRSAPKCS1SHA512:
		return true
	}
	return false
}

func isECDSAAlgorithm(algo core.SignatureAlgorithm) bool {
	switch algo {
	case core.SignatureECDSASHA1, core.SignatureECDSASHA256, core.SignatureECDSASHA384, core.SignatureECDSASHA512:
		return true
	}
	return false
}

// DefaultVerifier implements Verifier using the standard library's
// crypto/rsa and crypto/ecdsa primitives -- RSA-PKCS1-v1.5 and ECDSA with
// SHA-1/256/384/512, the baseline algorithm set spec.md §4.3 requires.
type DefaultVerifier struct{}

// NewDefaultVerifier returns the stdlib-backed Verifier.
func NewDefaultVerifier() *DefaultVerifier {
	return &DefaultVerifier{}
}

func sumHash(h crypto.Hash, data []byte) []byte {
	switch h {
	case crypto.SHA1:
		sum := sha1.Sum(data) //nolint:gosec
		return sum[:]
	case crypto.SHA256:
		sum := sha256.Sum256(data)
		return sum[:]
	case crypto.SHA384:
		sum := sha512.Sum384(data)
		return sum[:]
	case crypto.SHA512:
		sum := sha512.Sum512(data)
		return sum[:]
	}
	return nil
}

// Verify implements Verifier.
func (v *DefaultVerifier) Verify(tbs, signature []byte, publicKey core.PublicKey, algo core.SignatureAlgorithm) (bool, error) {
	hash, ok := hashForAlgorithm[algo]
	if !ok {
		return false, NewUnsupportedAlgorithm(algo)
	}
	digest := sumHash(hash, tbs)

	switch {
	case isRSAAlgorithm(algo):
		pub, ok := publicKey.Raw.(*rsa.PublicKey)
		if !ok {
			return false, NewUnsupportedAlgorithm(algo)
		}
		err := rsa.VerifyPKCS1v15(pub, hash, digest, signature)
		return err == nil, nil

	case isECDSAAlgorithm(algo):
		pub, ok := publicKey.Raw.(*ecdsa.PublicKey)
		if !ok {
			return false, NewUnsupportedAlgorithm(algo)
		}
		return ecdsa.VerifyASN1(pub, digest, signature), nil
	}

	return false, NewUnsupportedAlgorithm(algo)
}

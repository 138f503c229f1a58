package codec

import (
	"github.com/zmap/zcrypto/x509"
	"github.com/zmap/zlint/v3"
	"github.com/zmap/zlint/v3/lint"

	"github.com/tourze/tls-certificate/core"
)

// RunLints runs the zlint v3 registry against a re-parsed copy of der and
// appends its findings to result as non-blocking core.LintResult entries
// (SPEC_FULL.md §3 Domain Stack, §5.14). Lint findings never affect
// ValidationResult.IsValid -- they are strictly supplemental conformance
// information, only emitted when the caller opts in via
// ValidationOptions.RunLints.
func RunLints(der []byte, result *core.ValidationResult) error {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return err
	}

	registry := lint.GlobalRegistry()
	zlintResult := zlint.LintCertificateEx(cert, registry)
	if zlintResult == nil {
		return nil
	}

	for name, res := range zlintResult.Results {
		if res == nil || res.Status == lint.NA {
			continue
		}
		result.Lints = append(result.Lints, core.LintResult{
			LintName: name,
			Status:   res.Status.String(),
			Detail:   res.Details,
		})
	}
	return nil
}

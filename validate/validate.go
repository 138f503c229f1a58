// Package validate is the top-level orchestrator tying chainbuild,
// chainvalidate, and revocation together into the single validate()
// operation spec.md §6 describes: leaf + intermediates + trust anchors +
// options in, a *core.ValidationResult out.
package validate

import (
	"context"
	"time"

	"github.com/tourze/tls-certificate/audit"
	"github.com/tourze/tls-certificate/chainbuild"
	"github.com/tourze/tls-certificate/chainvalidate"
	"github.com/tourze/tls-certificate/codec"
	"github.com/tourze/tls-certificate/core"
	derrors "github.com/tourze/tls-certificate/errors"
	"github.com/tourze/tls-certificate/goodkey"
	"github.com/tourze/tls-certificate/metrics"
)

// Engine wires the chain builder, chain validator, and a Logger/Scope pair
// so every validate() call is both timed and logged the way the teacher's
// RPC-handling code wraps each request.
type Engine struct {
	validator *chainvalidate.Validator
	anchors   []*core.Certificate
	maxLength int
	weakKeys  *goodkey.Checker
	log       audit.Logger
	stats     metrics.Scope
}

// New returns an Engine. anchors is the trust anchor pool; maxLength <= 0
// uses core.MaxChainLength. No weak-key checker is attached until
// WithWeakKeyChecker is called; until then no key is flagged as weak
// (goodkey.Checker's own nil-safe default).
func New(validator *chainvalidate.Validator, anchors []*core.Certificate, maxLength int, log audit.Logger, stats metrics.Scope) *Engine {
	if stats == nil {
		stats = metrics.NewNoopScope()
	}
	return &Engine{validator: validator, anchors: anchors, maxLength: maxLength, log: log, stats: stats.NewScope("Validate")}
}

// WithWeakKeyChecker attaches a goodkey.Checker, returning e for chaining.
func (e *Engine) WithWeakKeyChecker(checker *goodkey.Checker) *Engine {
	e.weakKeys = checker
	return e
}

// Validate runs the full pipeline: build a chain from leaf through
// intermediates to a trust anchor, then validate the assembled chain per
// opts. Chain-build failure short-circuits straight to an invalid result
// (spec.md's chain_builder errors surface the same way chain_validator
// errors do -- both append to ValidationResult.Errors).
func (e *Engine) Validate(ctx context.Context, leaf *core.Certificate, intermediates []*core.Certificate, opts core.ValidationOptions) *core.ValidationResult {
	start := time.Now()
	result := core.NewValidationResult()

	builder := chainbuild.New(intermediates, e.anchors, e.maxLength, e.validator.Clock())
	chain, err := builder.Build(leaf)
	if err != nil {
		e.stats.Inc("ChainBuildFailures", 1)
		result.AddError(err)
		return result
	}
	result.AddSuccess("chain assembled")

	chainResult := e.validator.Validate(ctx, chain, opts)
	result.Merge(chainResult)

	if e.weakKeys.IsWeak(leaf) {
		result.AddWarning("leaf public key matches known-weak key blacklist")
	}

	if opts.RunLints && leaf.RawDER != nil {
		if err := codec.RunLints(leaf.RawDER, result); err != nil {
			result.AddWarning("lint pass failed: " + err.Error())
		}
	}

	e.stats.Timing("Duration", int64(time.Since(start)))
	if result.IsValid() {
		e.stats.Inc("Valid", 1)
		if e.log != nil {
			e.log.Info("validate: chain valid for " + leaf.SubjectDN)
		}
	} else {
		e.stats.Inc("Invalid", 1)
		if e.log != nil {
			e.log.Warning("validate: chain invalid for " + leaf.SubjectDN)
		}
	}
	return result
}

// ResultJSON adapts a core.ValidationResult to a JSON-friendly shape:
// []error doesn't marshal usefully (error is an interface with no
// exported fields), so errors become their string form. Shared by the
// web HTTP surface and the x509validate CLI's -json output so the two
// presentations never drift apart.
func ResultJSON(r *core.ValidationResult) map[string]interface{} {
	errs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, e.Error())
	}
	return map[string]interface{}{
		"is_valid":          r.IsValid(),
		"errors":            errs,
		"warnings":          r.Warnings,
		"infos":             r.Infos,
		"successes":         r.Successes,
		"lints":             r.Lints,
		"last_check_status": r.LastCheckStatus,
	}
}

// DecodeLeaf is a convenience wrapper around codec.DecodeCertificatePEM
// that tags decode failures distinctly from validation failures, matching
// spec.md §7's error-taxonomy split between malformed input and an
// untrusted/expired/revoked verdict.
func DecodeLeaf(pemBytes []byte) (*core.Certificate, error) {
	cert, err := codec.DecodeCertificatePEM(pemBytes)
	if err != nil {
		return nil, derrors.NewDecodeError(derrors.BadPEM, "leaf certificate: %v", err)
	}
	return cert, nil
}

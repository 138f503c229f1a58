// Copyright 2014 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package core

// LintResult is one supplemental, non-blocking conformance finding emitted
// when ValidationOptions.RunLints is set (SPEC_FULL.md §3).
type LintResult struct {
	LintName string
	Status   string
	Detail   string
}

// ValidationResult is the message-accumulator result object (spec.md §3,
// §9 DESIGN NOTES): four ordered, append-only message lists plus a boolean
// derived from errors being empty. It is passed by pointer through the
// validators and never threaded through global state.
type ValidationResult struct {
	Errors     []error
	Warnings   []string
	Infos      []string
	Successes  []string
	Lints      []LintResult

	// LastCheckStatus records the structured outcome of the most recent
	// revocation check performed while building this result (spec.md §4.9).
	LastCheckStatus *RevocationCheckStatus
}

// NewValidationResult returns an empty, valid result.
func NewValidationResult() *ValidationResult {
	return &ValidationResult{}
}

// AddError appends err to Errors. Once any error is present, IsValid
// becomes false; this method never clears prior state.
func (r *ValidationResult) AddError(err error) {
	r.Errors = append(r.Errors, err)
}

// AddWarning appends a warning message.
func (r *ValidationResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// AddInfo appends an informational message.
func (r *ValidationResult) AddInfo(msg string) {
	r.Infos = append(r.Infos, msg)
}

// AddSuccess appends a success message.
func (r *ValidationResult) AddSuccess(msg string) {
	r.Successes = append(r.Successes, msg)
}

// IsValid reports whether the result currently has zero errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Merge concatenates each of other's four message lists onto r, in order,
// satisfying P7: merge(A, B).errors == A.errors ++ B.errors (and likewise
// for warnings/infos/successes). The receiver's LastCheckStatus is
// overwritten by other's only if other has one.
func (r *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	r.Infos = append(r.Infos, other.Infos...)
	r.Successes = append(r.Successes, other.Successes...)
	r.Lints = append(r.Lints, other.Lints...)
	if other.LastCheckStatus != nil {
		r.LastCheckStatus = other.LastCheckStatus
	}
}

// RevocationMethod identifies which revocation-check mechanism produced a
// MethodResult.
type RevocationMethod string

const (
	MethodOCSP RevocationMethod = "ocsp"
	MethodCRL  RevocationMethod = "crl"
)

// MethodResult is the per-method outcome captured inside
// RevocationCheckStatus (spec.md §4.9).
type MethodResult struct {
	Method     RevocationMethod
	Conclusive bool
	Good       bool // meaningful only when Conclusive
	Err        error
	Warnings   []string
}

// RevocationCheckStatus is the structured record spec.md §4.9 requires:
// which methods were tried, whether each was conclusive, any per-method
// errors, and the final boolean.
type RevocationCheckStatus struct {
	MethodsTried []RevocationMethod
	Results      []MethodResult
	Result       bool
}

// Package web is the thin administrative HTTP surface wrapping
// validate.Engine: POST /v1/validate accepts a leaf, intermediates, and
// validation options as JSON/PEM and returns a core.ValidationResult,
// with RFC 7807 application/problem+json error rendering reproducing
// Boulder's web.ProblemDetails/SendError shape (SPEC_FULL.md §5.14).
package web

import (
	"encoding/json"
	"net/http"

	"github.com/tourze/tls-certificate/audit"
	derrors "github.com/tourze/tls-certificate/errors"
)

// ProblemType identifies an RFC 7807 problem "type" member. These are
// namespaced under the engine's own URN rather than Boulder's ACME
// "urn:ietf:params:acme:error:" namespace, since this surface isn't ACME.
type ProblemType string

const (
	ProblemMalformed     ProblemType = "x509validate:problem:malformed"
	ProblemServerInternal ProblemType = "x509validate:problem:serverInternal"
	ProblemNotFound      ProblemType = "x509validate:problem:notFound"
)

// ProblemDetails is the RFC 7807 response body.
type ProblemDetails struct {
	Type   ProblemType `json:"type"`
	Detail string      `json:"detail"`
	Status int         `json:"status"`
}

func (p *ProblemDetails) Error() string {
	return p.Detail
}

// ProblemDetailsForError classifies err into a ProblemDetails, mirroring
// the teacher's ProblemDetailsForError: decode errors are the caller's
// fault (400), everything else not already a ProblemDetails is an opaque
// 500 so internal detail never leaks to a client.
func ProblemDetailsForError(err error, msg string) *ProblemDetails {
	if pd, ok := err.(*ProblemDetails); ok {
		return pd
	}
	if _, ok := err.(*derrors.DecodeError); ok {
		return &ProblemDetails{Type: ProblemMalformed, Detail: msg + " :: " + err.Error(), Status: http.StatusBadRequest}
	}
	return &ProblemDetails{Type: ProblemServerInternal, Detail: msg, Status: http.StatusInternalServerError}
}

// SendError writes prob as application/problem+json and logs the
// underlying error (which may carry detail the client should not see).
func SendError(logger audit.Logger, w http.ResponseWriter, prob *ProblemDetails, internalErr error) {
	if internalErr != nil && logger != nil {
		logger.Warningf("sending problem %s: %s (internal: %v)", prob.Type, prob.Detail, internalErr)
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(prob.Status)
	body, err := json.Marshal(prob)
	if err != nil {
		// Marshaling a ProblemDetails cannot fail in practice; fall back to
		// a fixed body rather than panicking mid-response.
		w.Write([]byte(`{"type":"x509validate:problem:serverInternal","detail":"failed to marshal problem","status":500}`))
		return
	}
	w.Write(body)
}

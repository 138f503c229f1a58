package web

import (
	"encoding/json"
	"net/http"

	"github.com/cactus/go-statsd-client/statsd"
	"github.com/jmhodges/clock"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tourze/tls-certificate/audit"
	"github.com/tourze/tls-certificate/codec"
	"github.com/tourze/tls-certificate/core"
	"github.com/tourze/tls-certificate/metrics"
	"github.com/tourze/tls-certificate/metrics/measured_http"
	"github.com/tourze/tls-certificate/validate"
)

// ValidateRequest is the POST /v1/validate body: a leaf certificate, its
// supporting intermediates, and the subset of core.ValidationOptions a
// caller is allowed to override. Trust anchors are server-side
// configuration, never caller-supplied, so an untrusted client can't
// widen what the server considers trusted.
type ValidateRequest struct {
	LeafPEM          string   `json:"leaf_pem"`
	IntermediatePEMs []string `json:"intermediate_pems"`
	Hostname         string   `json:"hostname,omitempty"`
	CheckRevocation  bool     `json:"check_revocation"`
	RunLints         bool     `json:"run_lints"`
}

// Handler serves the administrative validate HTTP surface
// (SPEC_FULL.md §5.14, §7.3).
type Handler struct {
	engine *validate.Engine
	log    audit.Logger
}

// NewHandler returns a Handler wrapping engine.
func NewHandler(engine *validate.Engine, log audit.Logger) *Handler {
	return &Handler{engine: engine, log: log}
}

// Mux returns an http.Handler with /v1/validate registered, wrapped in
// three layers: measured_http's per-route Prometheus timing (innermost,
// since it needs the raw *http.ServeMux to resolve the matched pattern),
// otelhttp tracing (so server-side spans join the same trace as the
// outbound CRL/OCSP fetches the validation triggers), and, if stats is
// non-nil, metrics.HTTPMonitor for the legacy statsd sink
// (SPEC_FULL.md §3 Domain Stack) -- matching Boulder's
// dual-metrics-backend pattern of Prometheus for internal scopes and
// statsd for the request path.
func (h *Handler) Mux(clk clock.Clock, stats statsd.Statter) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/v1/validate", h)
	measured := measured_http.New(mux, clk)
	traced := otelhttp.NewHandler(measured, "x509validate")
	if stats != nil {
		return metrics.NewHTTPMonitor(stats, traced, "x509validate")
	}
	return traced
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		SendError(h.log, w, &ProblemDetails{Type: ProblemNotFound, Detail: "method not allowed", Status: http.StatusMethodNotAllowed}, nil)
		return
	}

	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendError(h.log, w, ProblemDetailsForError(err, "could not parse request body"), err)
		return
	}

	leaf, err := validate.DecodeLeaf([]byte(req.LeafPEM))
	if err != nil {
		SendError(h.log, w, ProblemDetailsForError(err, "could not decode leaf_pem"), err)
		return
	}

	intermediates := make([]*core.Certificate, 0, len(req.IntermediatePEMs))
	for _, pemStr := range req.IntermediatePEMs {
		cert, err := codec.DecodeCertificatePEM([]byte(pemStr))
		if err != nil {
			SendError(h.log, w, ProblemDetailsForError(err, "could not decode intermediate_pems"), err)
			return
		}
		intermediates = append(intermediates, cert)
	}

	opts := core.DefaultValidationOptions()
	opts.CheckRevocation = req.CheckRevocation
	opts.RunLints = req.RunLints
	if req.Hostname != "" {
		opts.ExpectedHostname = req.Hostname
	}

	result := h.engine.Validate(r.Context(), leaf, intermediates, opts)

	w.Header().Set("Content-Type", "application/json")
	if !result.IsValid() {
		w.WriteHeader(http.StatusOK) // a conclusive "invalid" is a successful validate() call
	}
	_ = json.NewEncoder(w).Encode(validate.ResultJSON(result))
}

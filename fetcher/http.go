package fetcher

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultTimeout is applied to every request through http.Client.Timeout;
// a shorter deadline on the caller's context still ends the request first
// (spec.md §6 "network operations are bounded").
const DefaultTimeout = 10 * time.Second

// OCSPContentType is the media type RFC 6960 §4.1.1 requires.
const OCSPContentType = "application/ocsp-request"

// HTTPFetcher is the default Fetcher, instrumented with OpenTelemetry so
// CRL/OCSP round-trips show up in the same trace as the validate() call
// that triggered them.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher returns an HTTPFetcher whose RoundTripper is wrapped with
// otelhttp, grounded on the teacher's use of go.opentelemetry.io/contrib
// instrumentation (SPEC_FULL.md §3 Domain Stack).
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func classifyError(url string, err error) error {
	if err == nil {
		return nil
	}
	kind := ConnectionRefused
	if errors.Is(err, context.DeadlineExceeded) {
		kind = Timeout
	} else if errors.Is(err, context.Canceled) {
		kind = Canceled
	}
	return &FetchError{Kind: kind, URL: url, Detail: err.Error()}
}

func (f *HTTPFetcher) do(ctx context.Context, req *http.Request) ([]byte, error) {
	resp, err := f.client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, classifyError(req.URL.String(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Kind: ConnectionRefused, URL: req.URL.String(), Detail: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{
			Kind:       HTTPStatus,
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Detail:     "non-200 response",
		}
	}
	return body, nil
}

// Get implements Fetcher.
func (f *HTTPFetcher) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Kind: ConnectionRefused, URL: url, Detail: err.Error()}
	}
	return f.do(ctx, req)
}

// PostOCSP implements Fetcher.
func (f *HTTPFetcher) PostOCSP(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{Kind: ConnectionRefused, URL: url, Detail: err.Error()}
	}
	req.Header.Set("Content-Type", OCSPContentType)
	req.Header.Set("Accept", OCSPContentType)
	return f.do(ctx, req)
}

// Package fetcher defines the network-fetch port (spec.md §1, §4.8, §4.9):
// the chain validator and revocation checker never touch the network
// directly, they ask a RevocationFetcher for CRL/OCSP bytes over HTTP.
package fetcher

import (
	"context"
	"fmt"
)

// ErrorKind classifies why a fetch failed, mirroring the distinctions
// spec.md §4.9 draws between an inconclusive "unreachable" outcome (feeds
// soft-fail/hard-fail policy) and a malformed response (a decode concern
// instead).
type ErrorKind int

const (
	Timeout ErrorKind = iota
	DNSFailure
	ConnectionRefused
	HTTPStatus
	Canceled
)

// FetchError is returned by a Fetcher when it could not retrieve bytes at
// all -- as opposed to retrieving bytes that later fail to decode.
type FetchError struct {
	Kind       ErrorKind
	URL        string
	StatusCode int
	Detail     string
}

func (e *FetchError) Error() string {
	if e.Kind == HTTPStatus {
		return fmt.Sprintf("fetch %s: unexpected status %d: %s", e.URL, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Detail)
}

// IsKind reports whether err is a *FetchError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	fe, ok := err.(*FetchError)
	if !ok {
		return false
	}
	return fe.Kind == kind
}

// Fetcher is the network-fetch port. Get performs a plain HTTP GET (used
// for CRL distribution points); PostOCSP performs the OCSP-over-HTTP POST
// spec.md §4.8 describes (Content-Type: application/ocsp-request).
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
	PostOCSP(ctx context.Context, url string, body []byte) ([]byte, error)
}

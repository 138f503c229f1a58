// Package chainbuild assembles a certificate chain from a leaf certificate
// up to a trust anchor, given a pool of intermediate certificates and a
// pool of trusted roots (spec.md §4.10, P5).
package chainbuild

import (
	"sort"

	"github.com/tourze/tls-certificate/core"
)

// Builder assembles chains from a fixed intermediate pool and anchor pool.
type Builder struct {
	intermediates []*core.Certificate
	anchors       []*core.Certificate
	maxLength     int
	clock         core.Clock
}

// New returns a Builder. maxLength <= 0 uses core.MaxChainLength.
func New(intermediates, anchors []*core.Certificate, maxLength int, clk core.Clock) *Builder {
	if maxLength <= 0 {
		maxLength = core.MaxChainLength
	}
	return &Builder{intermediates: intermediates, anchors: anchors, maxLength: maxLength, clock: clk}
}

func issuedBy(child, candidate *core.Certificate) bool {
	return core.DNEqual(child.IssuerDN, candidate.SubjectDN)
}

// candidatesFor returns every certificate (intermediate or anchor) whose
// subject DN matches child's issuer DN, deterministically ordered by tie-
// break rules: (a) anchors are preferred over intermediates when both
// match a self-signed cut point, (b) among equally-eligible candidates,
// the one with more remaining validity (not_after - now) is preferred,
// (c) ties broken by subject DN then serial for full determinism.
type candidate struct {
	cert       *core.Certificate
	fromAnchor bool
}

func (b *Builder) candidatesFor(child *core.Certificate, excludeAnchors bool) []*core.Certificate {
	var candidates []candidate
	// anchors are collected first and sorted ahead of intermediates (tie-
	// break rule (a)): the same cut point reachable either via a supplied
	// intermediate or directly via a trust anchor should resolve to the
	// anchor copy, since that's the one the caller has actually vetted.
	if !excludeAnchors {
		for _, c := range b.anchors {
			if issuedBy(child, c) {
				candidates = append(candidates, candidate{cert: c, fromAnchor: true})
			}
		}
	}
	for _, c := range b.intermediates {
		if issuedBy(child, c) && !c.SameIdentity(child) {
			candidates = append(candidates, candidate{cert: c})
		}
	}

	now := b.clock.Now()
	sort.SliceStable(candidates, func(i, j int) bool {
		a, c := candidates[i], candidates[j]
		if a.fromAnchor != c.fromAnchor {
			return a.fromAnchor
		}
		aRemaining := a.cert.NotAfter.Sub(now)
		cRemaining := c.cert.NotAfter.Sub(now)
		if aRemaining != cRemaining {
			return aRemaining > cRemaining
		}
		if a.cert.SubjectDN != c.cert.SubjectDN {
			return a.cert.SubjectDN < c.cert.SubjectDN
		}
		if a.cert.Serial == nil || c.cert.Serial == nil {
			return false
		}
		return a.cert.Serial.Cmp(c.cert.Serial) < 0
	})

	out := make([]*core.Certificate, len(candidates))
	for i, cand := range candidates {
		out[i] = cand.cert
	}
	return out
}

func isAnchor(cert *core.Certificate, anchors []*core.Certificate) bool {
	for _, a := range anchors {
		if a.SameIdentity(cert) {
			return true
		}
	}
	return false
}

// Build assembles a chain starting at leaf. It stops as soon as it reaches
// a certificate present in the anchor pool, detects a cycle by
// (subject_dn, serial) identity (spec.md §4.10), and fails as soon as the
// chain grows past maxLength certificates, even when the certificate that
// would exceed it is an anchor.
func (b *Builder) Build(leaf *core.Certificate) (*core.Chain, error) {
	chain := &core.Chain{Certificates: []*core.Certificate{leaf}}

	if isAnchor(leaf, b.anchors) {
		return chain, nil
	}

	current := leaf
	for {
		if chain.Len() > b.maxLength {
			return nil, &core.ChainError{Reason: "chain exceeds maximum length", Partial: chain}
		}

		candidates := b.candidatesFor(current, false)
		if len(candidates) == 0 {
			return nil, &core.ChainError{Reason: "no issuer found to extend chain", Partial: chain}
		}

		var next *core.Certificate
		for _, cand := range candidates {
			if chain.Contains(cand) {
				continue
			}
			next = cand
			break
		}
		if next == nil {
			return nil, &core.ChainError{Reason: "cycle detected while building chain", Partial: chain}
		}

		chain.Certificates = append(chain.Certificates, next)
		if chain.Len() > b.maxLength {
			return nil, &core.ChainError{Reason: "chain exceeds maximum length", Partial: chain}
		}
		if isAnchor(next, b.anchors) {
			return chain, nil
		}
		if next.SelfSignedCandidate() {
			// reached a self-signed certificate that isn't in the anchor
			// pool -- stop here rather than looping on it as its own issuer.
			return nil, &core.ChainError{Reason: "chain terminates in an untrusted self-signed certificate", Partial: chain}
		}
		current = next
	}
}

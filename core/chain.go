// Copyright 2014 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package core

// MaxChainLength is the default hard depth cap (spec.md §3, §6).
const MaxChainLength = 10

// Chain is an ordered sequence of certificates from leaf (index 0) to a
// trust anchor (the last element), as built by chainbuild.Builder and
// walked by chainvalidate.
type Chain struct {
	Certificates []*Certificate
}

// Leaf returns the end-entity certificate, or nil if the chain is empty.
func (c *Chain) Leaf() *Certificate {
	if len(c.Certificates) == 0 {
		return nil
	}
	return c.Certificates[0]
}

// Root returns the last certificate in the chain (a trust anchor or a
// self-signed root), or nil if the chain is empty.
func (c *Chain) Root() *Certificate {
	if len(c.Certificates) == 0 {
		return nil
	}
	return c.Certificates[len(c.Certificates)-1]
}

// Len returns the number of certificates in the chain.
func (c *Chain) Len() int {
	return len(c.Certificates)
}

// Contains reports whether cert's (subject_dn, serial) identity is already
// present in the chain -- the cycle check spec.md §4.10 requires.
func (c *Chain) Contains(cert *Certificate) bool {
	for _, existing := range c.Certificates {
		if existing.SameIdentity(cert) {
			return true
		}
	}
	return false
}

// ChainError is returned by chainbuild.Builder.Build when no valid chain
// could be assembled. It preserves the partial chain for diagnostics, per
// spec.md §4.10.
type ChainError struct {
	Reason  string
	Partial *Chain
}

func (e *ChainError) Error() string {
	return e.Reason
}

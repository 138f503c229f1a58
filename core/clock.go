// Copyright 2014 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package core

import "github.com/jmhodges/clock"

// Clock is the injectable notion of "now" threaded through the chain
// validator, CRL cache, revocation checker, OCSP client and chain builder. Using
// jmhodges/clock (rather than time.Now directly) makes the boundary
// properties in spec.md §8 ("not_before = now exactly: accepted", "now +
// 1ns: rejected") exactly reproducible in tests via clock.NewFake.
type Clock = clock.Clock

// NewClock returns the real wall clock.
func NewClock() Clock {
	return clock.New()
}

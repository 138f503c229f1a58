// Copyright 2014 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package core

import "golang.org/x/text/unicode/norm"

// NormalizeDN applies Unicode NFC normalization to a distinguished-name
// string before it is used for equality comparison (chain linking in
// chainbuild, issuer-DN structural checks in chainvalidate, and CRL issuer
// binding). RFC 5280 distinguished names are compared by X.500 rules that
// are Unicode-normalization-sensitive in practice; without this, two DNs
// that render identically but use different composed/decomposed forms
// would fail to chain. Grounded on the teacher's golang.org/x/text
// dependency, which this repository otherwise had no use for.
func NormalizeDN(dn string) string {
	return norm.NFC.String(dn)
}

// DNEqual reports whether two distinguished names are equal after
// normalization.
func DNEqual(a, b string) bool {
	return NormalizeDN(a) == NormalizeDN(b)
}

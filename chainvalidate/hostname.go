package chainvalidate

import (
	"github.com/weppos/publicsuffix-go/publicsuffix"
)

// isWildcardOverPublicSuffix reports whether domain (the part of a SAN
// after "*.") is itself exactly a public suffix, e.g. "co.uk" or "com" --
// in which case a wildcard covering it would match every domain registered
// under that suffix, which RFC 6125 implementations must reject.
func isWildcardOverPublicSuffix(domain string) bool {
	parsed, err := publicsuffix.Parse(domain)
	if err != nil {
		// Parse refuses a name that is itself a public suffix ("co.uk is a
		// suffix"), so a parse failure is treated as "over a public suffix".
		return true
	}
	return parsed.SLD == "" && parsed.TRD == ""
}

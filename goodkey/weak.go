// Package goodkey checks a certificate's public key against a blacklist of
// known-weak keys (SPEC_FULL.md §5.12), generalizing Boulder's
// goodkey.weakKeys suffix-matching database away from "reject key at
// issuance time" and toward "flag key as weak during validation".
package goodkey

import (
	"bufio"
	"crypto/rsa"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tourze/tls-certificate/core"
)

const suffixLen = 10

// weakKeys holds the last suffixLen bytes of known-weak RSA moduli,
// matching Boulder's approach of shipping only truncated suffixes rather
// than full moduli (the blacklist only needs to be big enough to make
// collision with a real modulus implausible).
type weakKeys struct {
	suffixes map[[suffixLen]byte]struct{}
}

func newWeakKeys() *weakKeys {
	return &weakKeys{suffixes: make(map[[suffixLen]byte]struct{})}
}

func (wk *weakKeys) addSuffix(hexSuffix string) error {
	b, err := hex.DecodeString(hexSuffix)
	if err != nil {
		return fmt.Errorf("goodkey: invalid weak-key suffix %q: %w", hexSuffix, err)
	}
	if len(b) != suffixLen {
		return fmt.Errorf("goodkey: weak-key suffix %q is %d bytes, want %d", hexSuffix, len(b), suffixLen)
	}
	var key [suffixLen]byte
	copy(key[:], b)
	wk.suffixes[key] = struct{}{}
	return nil
}

// Known reports whether modulus's trailing suffixLen bytes match a known
// weak key.
func (wk *weakKeys) Known(modulus []byte) bool {
	if len(modulus) < suffixLen {
		return false
	}
	var key [suffixLen]byte
	copy(key[:], modulus[len(modulus)-suffixLen:])
	_, ok := wk.suffixes[key]
	return ok
}

// loadSuffixes reads every file in dir, one hex suffix per non-comment
// line, matching Boulder's weak-key-database layout.
func loadSuffixes(dir string) (*weakKeys, error) {
	wk := newWeakKeys()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("goodkey: reading weak-key directory %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		f, err := os.Open(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if err := wk.addSuffix(line); err != nil {
				f.Close()
				return nil, err
			}
		}
		err = scanner.Err()
		f.Close()
		if err != nil {
			return nil, err
		}
	}
	return wk, nil
}

// Checker flags weak or blacklisted public keys encountered during
// validation (SPEC_FULL.md §5.12). A zero-value Checker has an empty
// blacklist and never flags anything, which is the right default for
// callers who never load one -- key-blacklist checking is purely
// supplemental, never required to reach is_valid.
type Checker struct {
	weak *weakKeys
}

// NewChecker returns a Checker with an empty blacklist.
func NewChecker() *Checker {
	return &Checker{weak: newWeakKeys()}
}

// LoadBlacklistDir loads a directory of weak-key suffix files, in
// Boulder's format, into the Checker.
func LoadBlacklistDir(dir string) (*Checker, error) {
	wk, err := loadSuffixes(dir)
	if err != nil {
		return nil, err
	}
	return &Checker{weak: wk}, nil
}

// IsWeak reports whether cert's public key modulus (RSA only; other
// algorithms are never flagged by this check) matches a known-weak
// suffix.
func (c *Checker) IsWeak(cert *core.Certificate) bool {
	if c == nil || c.weak == nil {
		return false
	}
	rsaKey, ok := cert.PublicKey.Raw.(*rsa.PublicKey)
	if !ok {
		return false
	}
	return c.weak.Known(rsaKey.N.Bytes())
}

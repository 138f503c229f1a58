// Package crlcache implements the process-local, in-memory CRL cache
// spec.md §5 describes: keyed by issuer DN, holding the most recently
// fetched CRL per issuer, evicted on an LRU basis once MaxEntries is
// reached. Nothing here is persisted -- the spec's Non-goals explicitly
// rule out durable storage, so this is a plain mutex-protected map rather
// than the teacher's Redis/MySQL-backed caches.
package crlcache

import (
	"container/list"
	"sync"
	"time"

	"github.com/tourze/tls-certificate/core"
)

// MaxEntries is the default cache size cap (SPEC_FULL.md §6).
const MaxEntries = 100

// RefreshThreshold is how far ahead of NextUpdate a CRL is considered
// "expiring soon" and due for proactive refresh (SPEC_FULL.md §6).
const RefreshThreshold = 3600 * time.Second

type entry struct {
	issuerDN string
	crl      *core.CRL
}

// Cache is a mutex-protected, clock-injectable LRU cache of CRLs keyed by
// issuer distinguished name.
type Cache struct {
	mu       sync.Mutex
	clock    core.Clock
	max      int
	order    *list.List
	elements map[string]*list.Element
}

// New returns an empty Cache bounded at max entries (MaxEntries if max <= 0).
func New(clock core.Clock, max int) *Cache {
	if max <= 0 {
		max = MaxEntries
	}
	return &Cache{
		clock:    clock,
		max:      max,
		order:    list.New(),
		elements: make(map[string]*list.Element),
	}
}

// Get returns the cached CRL for issuerDN, if present, and promotes it to
// most-recently-used.
func (c *Cache) Get(issuerDN string) (*core.CRL, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.elements[issuerDN]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).crl, true
}

// Put inserts or replaces the cached CRL for issuerDN, evicting the
// least-recently-used entry if the cache is at capacity. A replacement whose
// CRLNumber is lower than the cached entry's is ignored, so the stored
// crl_number never goes backwards.
func (c *Cache) Put(issuerDN string, crl *core.CRL) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.elements[issuerDN]; ok {
		current := el.Value.(*entry).crl
		if current.CRLNumber != nil && crl.CRLNumber != nil && crl.CRLNumber.Cmp(current.CRLNumber) < 0 {
			c.order.MoveToFront(el)
			return
		}
		el.Value.(*entry).crl = crl
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&entry{issuerDN: issuerDN, crl: crl})
	c.elements[issuerDN] = el

	for c.order.Len() > c.max {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.elements, oldest.Value.(*entry).issuerDN)
	}
}

// IsExpiringSoon reports whether the cached CRL for issuerDN has no
// NextUpdate, is already past NextUpdate, or is within
// RefreshThreshold of it -- any of which should trigger a proactive
// crlupdate.Updater refresh.
func (c *Cache) IsExpiringSoon(issuerDN string) bool {
	crl, ok := c.Get(issuerDN)
	if !ok {
		return true
	}
	if !crl.HasNextUpdate {
		return true
	}
	now := c.clock.Now()
	remaining := crl.NextUpdate.Sub(now)
	return remaining <= RefreshThreshold
}

// RemoveExpired evicts every cached CRL whose NextUpdate has already
// passed.
func (c *Cache) RemoveExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*entry)
		if e.crl.HasNextUpdate && now.After(e.crl.NextUpdate) {
			c.order.Remove(el)
			delete(c.elements, e.issuerDN)
			removed++
		}
		el = next
	}
	return removed
}

// Len returns the number of entries currently cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

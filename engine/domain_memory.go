package engine

import (
	"sync"
	"time"
)

type domainEntry struct {
	engineName string
	expiresAt  time.Time
}

// DomainMemory remembers which engine last produced a page for each host,
// so "auto" sources stop paying for failed attempts on every title.
// Entries expire lazily on read.
type DomainMemory struct {
	mu    sync.Mutex
	store map[string]domainEntry
	ttl   time.Duration
	now   func() time.Time
}

// NewDomainMemory creates a DomainMemory whose entries live for ttl.
func NewDomainMemory(ttl time.Duration) *DomainMemory {
	return &DomainMemory{
		store: make(map[string]domainEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get returns the remembered engine name for a host, or "" if not found / expired.
func (dm *DomainMemory) Get(host string) string {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	entry, ok := dm.store[host]
	if !ok {
		return ""
	}
	if dm.now().After(entry.expiresAt) {
		delete(dm.store, host)
		return ""
	}
	return entry.engineName
}

// Set records which engine succeeded for a host.
func (dm *DomainMemory) Set(host, engineName string) {
	dm.mu.Lock()
	dm.store[host] = domainEntry{engineName: engineName, expiresAt: dm.now().Add(dm.ttl)}
	dm.mu.Unlock()
}

// Delete forgets a host (e.g. after the remembered engine fails).
func (dm *DomainMemory) Delete(host string) {
	dm.mu.Lock()
	delete(dm.store, host)
	dm.mu.Unlock()
}

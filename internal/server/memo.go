package server

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jonathan/jd-highlighter/internal/highlight"
)

// memo maps content hashes to segmented documents, evicting the least
// recently used entry when full. Cached documents are shared and must not
// be modified. A nil memo caches nothing.
type memo struct {
	cache  *lru.Cache[string, *highlight.Document]
	hits   atomic.Int64
	misses atomic.Int64
}

// newMemo returns nil when capacity is not positive.
func newMemo(capacity int) *memo {
	if capacity <= 0 {
		return nil
	}
	cache, err := lru.New[string, *highlight.Document](capacity)
	if err != nil {
		return nil
	}
	return &memo{cache: cache}
}

func (m *memo) get(key string) (*highlight.Document, bool) {
	if m == nil {
		return nil, false
	}
	doc, ok := m.cache.Get(key)
	if ok {
		m.hits.Add(1)
	} else {
		m.misses.Add(1)
	}
	return doc, ok
}

// put keeps the first document stored under key.
func (m *memo) put(key string, doc *highlight.Document) {
	if m == nil {
		return
	}
	m.cache.ContainsOrAdd(key, doc)
}

// stats returns the entry count and hit/miss counters.
func (m *memo) stats() (size, hits, misses int) {
	if m == nil {
		return 0, 0, 0
	}
	return m.cache.Len(), int(m.hits.Load()), int(m.misses.Load())
}

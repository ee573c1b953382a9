package server

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jd-highlighter/internal/highlight"
)

func TestMemo_EvictsLeastRecentlyUsed(t *testing.T) {
	m := newMemo(2)
	docs := make([]*highlight.Document, 3)
	for i := range docs {
		docs[i] = &highlight.Document{}
	}

	m.put("k0", docs[0])
	m.put("k1", docs[1])
	_, ok := m.get("k0")
	require.True(t, ok)
	m.put("k2", docs[2])

	_, ok = m.get("k1")
	assert.False(t, ok, "least recently used entry is evicted")

	got, ok := m.get("k0")
	require.True(t, ok, "recently read entry survives")
	assert.Same(t, docs[0], got)

	got, ok = m.get("k2")
	require.True(t, ok)
	assert.Same(t, docs[2], got)

	size, hits, misses := m.stats()
	assert.Equal(t, 2, size)
	assert.Equal(t, 3, hits)
	assert.Equal(t, 1, misses)
}

func TestMemo_Concurrent(t *testing.T) {
	m := newMemo(8)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%4)
			m.put(key, &highlight.Document{})
			_, _ = m.get(key)
		}(i)
	}
	wg.Wait()

	size, hits, misses := m.stats()
	assert.Equal(t, 4, size)
	assert.Equal(t, 16, hits+misses)
}

func TestMemo_DuplicatePutKeepsFirst(t *testing.T) {
	m := newMemo(2)
	first := &highlight.Document{}
	m.put("k", first)
	m.put("k", &highlight.Document{Degraded: true})

	got, ok := m.get("k")
	require.True(t, ok)
	assert.Same(t, first, got)

	size, _, _ := m.stats()
	assert.Equal(t, 1, size)
}

func TestMemo_Disabled(t *testing.T) {
	m := newMemo(0)
	assert.Nil(t, m)
	m.put("k", &highlight.Document{})

	_, ok := m.get("k")
	assert.False(t, ok)

	var nilMemo *memo
	assert.NotPanics(t, func() {
		nilMemo.put("k", &highlight.Document{})
		_, _ = nilMemo.get("k")
	})
}

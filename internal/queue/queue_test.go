package queue

import (
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingFIFO(t *testing.T) {
	q := NewPending()
	q.Push(Item{Filekey: "a"}, Item{Filekey: "b"})
	q.Push(Item{Filekey: "c"})

	require.Equal(t, 3, q.Len())

	for _, want := range []string{"a", "b", "c"} {
		item, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, want, item.Filekey)
	}

	_, ok := q.Pop()
	assert.False(t, ok, "pop on empty queue must report false")
	assert.Equal(t, 0, q.Len())
}

func TestPendingClear(t *testing.T) {
	q := NewPending()
	q.Push(Item{Filekey: "a"}, Item{Filekey: "b"})
	q.Clear()

	assert.Equal(t, 0, q.Len())
	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestPendingConcurrentPopTakesEachItemOnce(t *testing.T) {
	const n = 500
	q := NewPending()
	for i := 0; i < n; i++ {
		q.Push(Item{Filekey: fmt.Sprintf("file-%03d", i)})
	}

	var (
		mu   sync.Mutex
		seen []string
		wg   sync.WaitGroup
	)
	for w := 0; w < 10; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for q.Len() > 0 {
				item, ok := q.Pop()
				if !ok {
					continue
				}
				mu.Lock()
				seen = append(seen, item.Filekey)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, n)
	sort.Strings(seen)
	for i := 1; i < len(seen); i++ {
		assert.NotEqual(t, seen[i-1], seen[i], "item popped twice")
	}
}

func TestCompleted(t *testing.T) {
	c := NewCompleted()
	assert.Equal(t, 1, c.Add("a.txt"))
	assert.Equal(t, 2, c.Add("dir/b.txt"))

	keys := c.Keys()
	assert.Equal(t, []string{"a.txt", "dir/b.txt"}, keys)

	keys[0] = "mutated"
	assert.Equal(t, "a.txt", c.Keys()[0], "Keys must return a copy")

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestCompletedConcurrentAdd(t *testing.T) {
	c := NewCompleted()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Add(fmt.Sprintf("k%d", i))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, c.Len())
}

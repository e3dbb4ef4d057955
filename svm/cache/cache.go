// Package cache implements the least-recently-used kernel row cache shared by
// the kernel matrix variants.
//
// Rows are variable-length prefixes: a row of length L holds valid values for
// columns [0, L). The LRU list is an index arena whose last slot is the
// sentinel, so no per-entry allocation is needed besides the row data.
package cache

import "fmt"

// Cache stores kernel rows for l training examples within a fixed element
// budget. A Cache is owned by exactly one kernel matrix and is not safe for
// concurrent use.
type Cache struct {
	l      int
	budget int64 // total elements
	free   int64

	data [][]float64
	prev []int
	next []int
}

// New creates a cache for l rows using at most bytes of row storage. The
// budget never drops below two full rows, the minimum the solver needs to
// hold a working pair.
func New(l int, bytes int64) *Cache {
	budget := bytes / 8
	if floor := int64(2 * l); budget < floor {
		budget = floor
	}
	c := &Cache{
		l:      l,
		budget: budget,
		free:   budget,
		data:   make([][]float64, l),
		prev:   make([]int, l+1),
		next:   make([]int, l+1),
	}
	c.prev[l] = l
	c.next[l] = l
	return c
}

func (c *Cache) unlink(h int) {
	c.next[c.prev[h]] = c.next[h]
	c.prev[c.next[h]] = c.prev[h]
}

// link inserts h at the most-recently-used end.
func (c *Cache) link(h int) {
	s := c.l
	c.next[h] = s
	c.prev[h] = c.prev[s]
	c.next[c.prev[h]] = h
	c.prev[s] = h
}

func (c *Cache) evict(h int) {
	c.unlink(h)
	c.free += int64(len(c.data[h]))
	c.data[h] = nil
}

// Data returns row index grown to at least length elements and the number of
// leading elements that already hold valid values. The caller fills
// [valid, length) in place; the written values persist until the row is
// evicted.
func (c *Cache) Data(index, length int) (row []float64, valid int) {
	if length > c.l {
		panic(fmt.Sprintf("cache: row length %d exceeds %d", length, c.l))
	}
	old := len(c.data[index])
	if old > 0 {
		c.unlink(index)
	}

	if more := int64(length - old); more > 0 {
		for c.free < more {
			c.evict(c.next[c.l])
		}
		grown := make([]float64, length)
		copy(grown, c.data[index])
		c.data[index] = grown
		c.free -= more
	}

	if len(c.data[index]) > 0 {
		c.link(index)
	}
	return c.data[index], old
}

// SwapIndex exchanges the identities of rows i and j, including column i and
// column j of every other cached row. A row that covers only the smaller of
// the two columns cannot be patched and is evicted.
func (c *Cache) SwapIndex(i, j int) {
	if i == j {
		return
	}

	if len(c.data[i]) > 0 {
		c.unlink(i)
	}
	if len(c.data[j]) > 0 {
		c.unlink(j)
	}
	c.data[i], c.data[j] = c.data[j], c.data[i]
	if len(c.data[i]) > 0 {
		c.link(i)
	}
	if len(c.data[j]) > 0 {
		c.link(j)
	}

	if i > j {
		i, j = j, i
	}
	for h := c.next[c.l]; h != c.l; {
		next := c.next[h]
		if row := c.data[h]; len(row) > i {
			if len(row) > j {
				row[i], row[j] = row[j], row[i]
			} else {
				// give up
				c.evict(h)
			}
		}
		h = next
	}
}

// Budget returns the total number of elements the cache may hold.
func (c *Cache) Budget() int64 { return c.budget }

// Used returns the number of elements currently held.
func (c *Cache) Used() int64 { return c.budget - c.free }

// Len returns the cached length of row index.
func (c *Cache) Len(index int) int { return len(c.data[index]) }

// Package symtab provides the hashed symbol table used for the states DSL's
// enum table and function table: a mapping from a qualified name (spec §3:
// "<enum>::<member>", "<block>::<label>", or a bare function name) to a
// small integer. The bucket/chaining design is adapted from the teacher's
// value-store hash map, keyed on strings instead of uint64 numeric keys.
package symtab

import (
	"fmt"
	"hash/fnv"
)

// Table is a hash map from string key to int32 value with separate chaining,
// grown by doubling once the load factor passes 0.75.
type Table struct {
	buckets []bucket
	size    int
	count   int
}

type bucket struct {
	key      string
	value    int32
	occupied bool
	next     *bucket
}

// New creates a Table with at least the given initial bucket count.
func New(initialSize int) *Table {
	if initialSize < 16 {
		initialSize = 16
	}
	return &Table{
		buckets: make([]bucket, initialSize),
		size:    initialSize,
	}
}

func (t *Table) hash(key string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return h.Sum64()
}

// Get retrieves the value stored for key.
func (t *Table) Get(key string) (int32, bool) {
	idx := t.hash(key) % uint64(t.size)
	b := &t.buckets[idx]

	if b.occupied && b.key == key {
		return b.value, true
	}
	for cur := b.next; cur != nil; cur = cur.next {
		if cur.key == key {
			return cur.value, true
		}
	}
	return 0, false
}

// Set stores value under key, overwriting any existing entry.
func (t *Table) Set(key string, value int32) {
	idx := t.hash(key) % uint64(t.size)
	b := &t.buckets[idx]

	if !b.occupied {
		b.key, b.value, b.occupied = key, value, true
		t.count++
		if float64(t.count)/float64(t.size) > 0.75 {
			t.resize()
		}
		return
	}
	if b.key == key {
		b.value = value
		return
	}

	prev := b
	for cur := b.next; cur != nil; cur = cur.next {
		if cur.key == key {
			cur.value = value
			return
		}
		prev = cur
	}

	prev.next = &bucket{key: key, value: value, occupied: true}
	t.count++

	if float64(t.count)/float64(t.size) > 0.75 {
		t.resize()
	}
}

func (t *Table) resize() {
	old := t.buckets
	t.size *= 2
	t.buckets = make([]bucket, t.size)
	t.count = 0

	for i := range old {
		b := &old[i]
		if b.occupied {
			t.Set(b.key, b.value)
		}
		for cur := b.next; cur != nil; cur = cur.next {
			t.Set(cur.key, cur.value)
		}
	}
}

// Keys returns every key currently stored, in unspecified order.
func (t *Table) Keys() []string {
	keys := make([]string, 0, t.count)
	for i := range t.buckets {
		b := &t.buckets[i]
		if b.occupied {
			keys = append(keys, b.key)
		}
		for cur := b.next; cur != nil; cur = cur.next {
			keys = append(keys, cur.key)
		}
	}
	return keys
}

// Count returns the number of entries stored.
func (t *Table) Count() int { return t.count }

func (t *Table) String() string {
	return fmt.Sprintf("symtab.Table{count: %d, size: %d}", t.count, t.size)
}

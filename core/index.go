package core

import (
	"sort"

	"github.com/google/btree"
)

// valueEntry pairs a live value with the offset of the data file record that
// introduced it, so a delete can flip that record's tombstone directly.
type valueEntry struct {
	value  int32
	offset int64
}

// keyEntry holds the live values for a single key, sorted ascending by value
// and unique.
type keyEntry struct {
	entries []valueEntry
}

// search returns the sort position of value and whether it is present.
func (e *keyEntry) search(value int32) (int, bool) {
	i := sort.Search(len(e.entries), func(i int) bool {
		return e.entries[i].value >= value
	})
	return i, i < len(e.entries) && e.entries[i].value == value
}

// insertAt places a new entry at its sort position.
func (e *keyEntry) insertAt(i int, entry valueEntry) {
	e.entries = append(e.entries, valueEntry{})
	copy(e.entries[i+1:], e.entries[i:])
	e.entries[i] = entry
}

func (e *keyEntry) removeAt(i int) {
	e.entries = append(e.entries[:i], e.entries[i+1:]...)
}

func (e *keyEntry) values() []int32 {
	values := make([]int32, len(e.entries))
	for i, entry := range e.entries {
		values[i] = entry.value
	}
	return values
}

// keyIndex is the in-memory index mapping keys to their live values.
//
// It is a cache over the data file: the (key, value) pairs it holds are in
// exact bijection with the non-tombstoned records on disk between operations,
// and it can be reconstructed at any time by replaying the file.
//
// A B-tree over the keys backs ordered key listings; the map serves point
// lookups.
type keyIndex struct {
	byKey map[string]*keyEntry
	keys  *btree.BTreeG[string]
	pairs int
}

func newKeyIndex() *keyIndex {
	return &keyIndex{
		byKey: make(map[string]*keyEntry),
		keys:  btree.NewOrderedG[string](keyTreeDegree),
	}
}

func (idx *keyIndex) get(key string) *keyEntry {
	return idx.byKey[key]
}

// insert adds (key, value, offset) to the index. It reports false when the
// pair is already present.
func (idx *keyIndex) insert(key string, value int32, offset int64) bool {
	entry, ok := idx.byKey[key]
	if !ok {
		entry = &keyEntry{}
		idx.byKey[key] = entry
		idx.keys.ReplaceOrInsert(key)
	}

	i, found := entry.search(value)
	if found {
		return false
	}

	entry.insertAt(i, valueEntry{value: value, offset: offset})
	idx.pairs++
	return true
}

// remove drops (key, value) from the index and returns the offset of the
// record that introduced it. It reports false when the pair is absent.
// A key whose last value is removed disappears from the index entirely.
func (idx *keyIndex) remove(key string, value int32) (int64, bool) {
	entry, ok := idx.byKey[key]
	if !ok {
		return 0, false
	}

	i, found := entry.search(value)
	if !found {
		return 0, false
	}

	offset := entry.entries[i].offset
	entry.removeAt(i)
	idx.pairs--

	if len(entry.entries) == 0 {
		delete(idx.byKey, key)
		idx.keys.Delete(key)
	}

	return offset, true
}

func (idx *keyIndex) keyCount() int {
	return len(idx.byKey)
}

func (idx *keyIndex) pairCount() int {
	return idx.pairs
}

// sortedKeys returns all live keys in ascending order.
func (idx *keyIndex) sortedKeys() []string {
	keys := make([]string, 0, idx.keys.Len())
	idx.keys.Ascend(func(key string) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

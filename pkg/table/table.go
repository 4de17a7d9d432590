// Package table implements the open-addressing hash table glox uses for
// globals, class method tables, instance field tables, and the VM's
// string-interning set. Go's built-in map can't stand in for it: it
// can't expose the tombstone-preserving probe-chain behavior that
// FindString (used only by interning) depends on, nor the stable,
// mark-and-sweep-friendly iteration the collector's weak-reference sweep
// relies on (see pkg/gc).
package table

import "github.com/gloxlang/glox/pkg/value"

const maxLoad = 0.75

// entry is a single slot. A live entry has a non-nil Key (always a
// KindString Obj). An empty slot has Key == nil and Value is the zero
// Value (nil). A tombstone has Key == nil and Value is Bool(true) — this
// is how deletions are told apart from never-used slots without
// shrinking the probe sequence.
type entry struct {
	key *value.Obj
	val value.Value
}

// Table is an open-addressing, linear-probing hash table keyed by
// interned strings.
type Table struct {
	count   int // live entries + tombstones
	entries []entry
}

// New returns an empty table.
func New() *Table { return &Table{} }

// Set stores key -> v, growing the table first if the load factor would
// exceed 0.75. Returns true if key was not already present.
func (t *Table) Set(key *value.Obj, v value.Value) bool {
	if key == nil {
		return false
	}
	if float64(t.count+1) > float64(len(t.entries))*maxLoad {
		t.grow(growCapacity(len(t.entries)))
	}
	e := findEntry(t.entries, key)
	isNew := e.key == nil
	if isNew && e.val.IsNil() {
		// Only a genuinely empty slot (not a reused tombstone) grows count.
		t.count++
	}
	e.key = key
	e.val = v
	return isNew
}

// Get looks up key, returning its value and whether it was present.
func (t *Table) Get(key *value.Obj) (value.Value, bool) {
	if len(t.entries) == 0 || key == nil {
		return value.Nil(), false
	}
	e := findEntry(t.entries, key)
	if e.key == nil {
		return value.Nil(), false
	}
	return e.val, true
}

// Delete writes a tombstone at key's slot, preserving the probe chain
// for any key that hashed to the same bucket and probed past it. count
// is not decremented: resize is the only place tombstones disappear.
func (t *Table) Delete(key *value.Obj) bool {
	if len(t.entries) == 0 || key == nil {
		return false
	}
	e := findEntry(t.entries, key)
	if e.key == nil {
		return false
	}
	e.key = nil
	e.val = value.Bool(true) // tombstone marker
	return true
}

// AddAll copies every live entry of src into t.
func (t *Table) AddAll(src *Table) {
	for i := range src.entries {
		e := &src.entries[i]
		if e.key != nil {
			t.Set(e.key, e.val)
		}
	}
}

// Each calls fn for every live entry, in table (not insertion) order.
// Satisfies value.Table for GC blackening and for field/method dumps.
func (t *Table) Each(fn func(key *value.Obj, v value.Value)) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.key != nil {
			fn(e.key, e.val)
		}
	}
}

// FindString is the only lookup that doesn't take an already-interned
// key: it probes by hash, comparing length+hash+bytes, so the VM's
// string-interning path can detect "this raw byte slice already has a
// canonical Obj" without allocating one first.
func (t *Table) FindString(s string, hash uint32) *value.Obj {
	if len(t.entries) == 0 {
		return nil
	}
	capacity := uint32(len(t.entries))
	index := hash % capacity
	for {
		e := &t.entries[index]
		if e.key == nil {
			// Stop at a true empty slot, but tombstones (Value==true)
			// don't terminate the probe — the string might be beyond one.
			if e.val.IsNil() {
				return nil
			}
		} else {
			str := e.key.AsString()
			if str.Hash == hash && str.Chars == s {
				return e.key
			}
		}
		index = (index + 1) % capacity
	}
}

// RemoveUnmarked drops every entry whose key is unreachable, called by
// the collector before sweep so the intern table doesn't keep otherwise
// -dead strings alive (spec.md §4.1 step 3).
func (t *Table) RemoveUnmarked(isDead func(key *value.Obj) bool) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.key != nil && isDead(e.key) {
			e.key = nil
			e.val = value.Bool(true)
		}
	}
}

func findEntry(entries []entry, key *value.Obj) *entry {
	capacity := uint32(len(entries))
	hash := key.AsString().Hash
	index := hash % capacity
	var tombstone *entry
	for {
		e := &entries[index]
		if e.key == nil {
			if e.val.IsNil() {
				// Empty slot: return the first tombstone we passed, if any,
				// so reinsertion reuses it instead of growing the chain.
				if tombstone != nil {
					return tombstone
				}
				return e
			}
			if tombstone == nil {
				tombstone = e
			}
		} else if e.key == key {
			return e
		}
		index = (index + 1) % capacity
	}
}

func growCapacity(cap int) int {
	if cap < 8 {
		return 8
	}
	return cap * 2
}

// grow reallocates entries at newCap, rehashing every live entry and
// resetting count to the live count (collapsing tombstones, exactly as
// spec.md §4.3 requires).
func (t *Table) grow(newCap int) {
	fresh := make([]entry, newCap)
	liveCount := 0
	for i := range t.entries {
		e := &t.entries[i]
		if e.key == nil {
			continue
		}
		dest := findEntry(fresh, e.key)
		dest.key = e.key
		dest.val = e.val
		liveCount++
	}
	t.entries = fresh
	t.count = liveCount
}

// Count returns the number of live entries (tombstones excluded), for
// tests and diagnostics.
func (t *Table) Count() int {
	n := 0
	for i := range t.entries {
		if t.entries[i].key != nil {
			n++
		}
	}
	return n
}

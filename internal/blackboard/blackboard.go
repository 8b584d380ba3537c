// Package blackboard provides the shared world state of an agent: a store
// that sensors and async lifecycle callbacks write into from any goroutine,
// and that tree logic reads each tick.
package blackboard

import (
	"maps"
	"slices"
	"sync"
)

// Blackboard is a concurrency safe key-value store. The zero value is ready
// to use; the map is allocated on first write.
type Blackboard struct {
	mu      sync.RWMutex
	data    map[string]any
	version uint64
}

func (b *Blackboard) init() {
	if b.data == nil {
		b.data = make(map[string]any)
	}
}

// Get returns the value stored under key, or nil.
func (b *Blackboard) Get(key string) any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.data[key]
}

// Lookup returns the value stored under key if it is present and of type T.
func Lookup[T any](b *Blackboard, key string) (T, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[key].(T)
	return v, ok
}

// GetOr returns the value stored under key, or def if it is missing or not a T.
func GetOr[T any](b *Blackboard, key string, def T) T {
	if v, ok := Lookup[T](b, key); ok {
		return v
	}
	return def
}

func (b *Blackboard) Set(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.init()
	b.data[key] = value
	b.version++
}

// Update replaces the value under key with fn applied to the current value
// (nil when missing), atomically with respect to other writers.
func (b *Blackboard) Update(key string, fn func(any) any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.init()
	b.data[key] = fn(b.data[key])
	b.version++
}

func (b *Blackboard) Has(key string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.data[key]
	return ok
}

func (b *Blackboard) Delete(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.data[key]; !ok {
		return
	}
	delete(b.data, key)
	b.version++
}

// Keys returns the stored keys, sorted.
func (b *Blackboard) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.data) == 0 {
		return nil
	}
	return slices.Sorted(maps.Keys(b.data))
}

func (b *Blackboard) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = make(map[string]any)
	b.version++
}

func (b *Blackboard) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data)
}

// Version increases with every write. Tree nodes can watch it (for example
// with tree.ValueChanged) to react to any change of the world state.
func (b *Blackboard) Version() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// Snapshot returns a shallow copy of the stored data. Mutable values such as
// slices are shared with the blackboard, and must not be modified.
func (b *Blackboard) Snapshot() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.data == nil {
		return nil
	}
	return maps.Clone(b.data)
}

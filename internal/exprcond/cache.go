package exprcond

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/expr-lang/expr/vm"
)

// DefaultCacheSize bounds the shared program cache unless configured otherwise.
const DefaultCacheSize = 1000

// Cache is a bounded, concurrency safe LRU of compiled programs keyed by
// their source.
type Cache struct {
	mu      sync.Mutex
	items   map[string]*list.Element
	lru     *list.List
	maxSize int
	hits    int64
	misses  int64
}

type cacheEntry struct {
	source  string
	program *vm.Program
}

// NewCache returns an empty cache holding at most maxSize programs. A size
// below one selects DefaultCacheSize.
func NewCache(maxSize int) *Cache {
	if maxSize < 1 {
		maxSize = DefaultCacheSize
	}
	return &Cache{
		items:   make(map[string]*list.Element, maxSize),
		lru:     list.New(),
		maxSize: maxSize,
	}
}

// Get returns the program compiled from source, marking it recently used.
func (c *Cache) Get(source string) (*vm.Program, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.items[source]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.lru.MoveToFront(elem)
	return elem.Value.(*cacheEntry).program, true
}

// Put stores program, evicting the least recently used entries over capacity.
func (c *Cache) Put(source string, program *vm.Program) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[source]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).program = program
		return
	}
	c.items[source] = c.lru.PushFront(&cacheEntry{source: source, program: program})
	c.evict()
}

// Resize changes the capacity, evicting immediately if it shrank.
func (c *Cache) Resize(maxSize int) {
	if maxSize < 1 {
		maxSize = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxSize = maxSize
	c.evict()
}

func (c *Cache) evict() {
	for c.lru.Len() > c.maxSize {
		elem := c.lru.Back()
		delete(c.items, elem.Value.(*cacheEntry).source)
		c.lru.Remove(elem)
	}
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.lru.Init()
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats is a point in time view of cache usage.
type Stats struct {
	Size   int
	Hits   int64
	Misses int64
}

// HitRatio is the fraction of lookups that hit, or zero before any lookup.
func (s Stats) HitRatio() float64 {
	if total := s.Hits + s.Misses; total > 0 {
		return float64(s.Hits) / float64(total)
	}
	return 0
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Size: c.lru.Len(), Hits: c.hits, Misses: c.misses}
}

func (c *Cache) String() string {
	s := c.Stats()
	return fmt.Sprintf("exprcond.Cache{size=%d, hits=%d, misses=%d, hit_ratio=%.2f%%}",
		s.Size, s.Hits, s.Misses, s.HitRatio()*100)
}

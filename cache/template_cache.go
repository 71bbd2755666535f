package cache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultTemplateCacheSize bounds the number of compiled templates kept.
const DefaultTemplateCacheSize = 512

// CachedTemplate is a query template split around its placeholders:
// Literals[0] Names[0] Literals[1] ... Names[n-1] Literals[n].
type CachedTemplate struct {
	SQL      string
	Literals []string
	Names    []string
}

type TemplateCache struct {
	cache *lru.Cache[uint64, *CachedTemplate]
	mu    sync.Mutex
}

func NewTemplateCache(size int) *TemplateCache {
	if size <= 0 {
		size = DefaultTemplateCacheSize
	}
	cache, _ := lru.New[uint64, *CachedTemplate](size)

	return &TemplateCache{
		cache: cache,
	}
}

// Get returns the template cached under key. The SQL text is compared so a
// fingerprint collision is treated as a miss.
func (t *TemplateCache) Get(key uint64, sql string) (*CachedTemplate, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tpl, ok := t.cache.Get(key); ok && tpl.SQL == sql {
		return tpl, true
	}
	return nil, false
}

func (t *TemplateCache) Set(key uint64, tpl *CachedTemplate) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cache.Add(key, tpl)
}

// GetOrCompile returns the cached template for sql, compiling and caching
// it on a miss.
func (t *TemplateCache) GetOrCompile(key uint64, sql string, compile func(string) *CachedTemplate) *CachedTemplate {
	if tpl, ok := t.Get(key, sql); ok {
		return tpl
	}

	tpl := compile(sql)
	t.Set(key, tpl)
	return tpl
}

func (t *TemplateCache) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.cache.Len()
}

func (t *TemplateCache) Purge() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cache.Purge()
}

package constraint

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"metaprops/internal/metadata"
)

// DefaultCacheSize bounds the number of compiled constraints kept in memory.
const DefaultCacheSize = 1024

type cacheKey struct {
	dataType    metadata.DataType
	patternType metadata.PatternType
	spec        string
}

// Compiler compiles constraints through a bounded LRU cache. Keys are the
// full (DataType, PatternType, spec) triple, so entries never go stale.
type Compiler struct {
	cache *lru.Cache[cacheKey, *Constraint]
}

// NewCompiler creates a caching compiler. size <= 0 disables caching.
func NewCompiler(size int) *Compiler {
	if size <= 0 {
		return &Compiler{}
	}
	cache, err := lru.New[cacheKey, *Constraint](size)
	if err != nil {
		return &Compiler{}
	}
	return &Compiler{cache: cache}
}

// Compile returns a cached constraint or compiles and caches a new one.
// Failures are not cached.
func (c *Compiler) Compile(dt metadata.DataType, patternType metadata.PatternType, spec string) (*Constraint, error) {
	if c.cache == nil {
		return Compile(dt, patternType, spec)
	}
	key := cacheKey{dataType: dt, patternType: patternType, spec: spec}
	if cached, ok := c.cache.Get(key); ok {
		return cached, nil
	}
	compiled, err := Compile(dt, patternType, spec)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, compiled)
	return compiled, nil
}

// CompileAssignment compiles the constraint attached to an assignment.
func (c *Compiler) CompileAssignment(a metadata.PropertyAssignment) (*Constraint, error) {
	return c.Compile(a.PropertyType.DataType, a.PatternType, a.Pattern)
}

// Len returns the number of cached constraints.
func (c *Compiler) Len() int {
	if c.cache == nil {
		return 0
	}
	return c.cache.Len()
}

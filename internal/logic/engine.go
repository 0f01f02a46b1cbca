package logic

import (
	"sync"

	"github.com/bcchr/detbuilder/internal/types"
)

// DefaultCacheSize bounds the number of compiled expressions an Engine keeps.
const DefaultCacheSize = 256

// Engine compiles each distinct condition once and evaluates the cached
// tree on later calls. Safe for concurrent use.
type Engine struct {
	mu    sync.RWMutex
	cache map[string]*Expression
	order []string // insertion order for eviction
	size  int
}

// NewEngine creates an engine caching up to size expressions
// (DefaultCacheSize when size <= 0).
func NewEngine(size int) *Engine {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Engine{
		cache: make(map[string]*Expression, size),
		size:  size,
	}
}

// Compile returns the cached expression for cond, compiling on first use.
// Compilation failures are not cached.
func (e *Engine) Compile(cond string) (*Expression, error) {
	e.mu.RLock()
	expr, ok := e.cache[cond]
	e.mu.RUnlock()
	if ok {
		return expr, nil
	}

	expr, err := Compile(cond)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if cached, ok := e.cache[cond]; ok {
		return cached, nil
	}
	if len(e.order) >= e.size {
		oldest := e.order[0]
		e.order = e.order[1:]
		delete(e.cache, oldest)
	}
	e.cache[cond] = expr
	e.order = append(e.order, cond)
	return expr, nil
}

// EvaluateTrigger compiles (or reuses) cond and evaluates it against data.
func (e *Engine) EvaluateTrigger(cond string, data types.RecordData, opts Options) (bool, error) {
	expr, err := e.Compile(cond)
	if err != nil {
		return false, err
	}
	return Evaluate(expr, data, opts)
}

// Len returns the number of cached expressions.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}

package feature

import "sync"

// Extractor turns a domain element into named numeric features.
//
// Implementations must be deterministic for a given element if clustering
// results are expected to be reproducible.
type Extractor[E any] interface {
	Features(e E) (map[string]float64, error)
}

// ExtractorFunc adapts an ordinary function to the Extractor interface.
type ExtractorFunc[E any] func(e E) (map[string]float64, error)

// Features implements Extractor.
func (f ExtractorFunc[E]) Features(e E) (map[string]float64, error) { return f(e) }

// SymbolTable assigns dense dimension indices to feature names.
//
// Indices start at zero and grow by one for every new name. A table is only
// appended to while elements are vectorized; afterwards it is read-only.
type SymbolTable interface {
	// GetOrAddSymbol returns the index of name, adding it if unseen.
	GetOrAddSymbol(name string) int
	// NumSymbols returns the number of names in the table.
	NumSymbols() int
}

// MapSymbolTable is the default SymbolTable backed by a map.
// It is safe for concurrent use.
type MapSymbolTable struct {
	mu      sync.RWMutex
	indices map[string]int
	names   []string
}

// NewMapSymbolTable creates an empty symbol table.
func NewMapSymbolTable() *MapSymbolTable {
	return &MapSymbolTable{
		indices: make(map[string]int),
	}
}

// NewSymbolTable returns a fresh SymbolTable. It is the default factory used
// by the clusterer.
func NewSymbolTable() SymbolTable {
	return NewMapSymbolTable()
}

// GetOrAddSymbol implements SymbolTable.
func (t *MapSymbolTable) GetOrAddSymbol(name string) int {
	t.mu.RLock()
	idx, ok := t.indices[name]
	t.mu.RUnlock()
	if ok {
		return idx
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if idx, ok := t.indices[name]; ok {
		return idx
	}
	idx = len(t.names)
	t.indices[name] = idx
	t.names = append(t.names, name)
	return idx
}

// Lookup returns the index of name without adding it.
func (t *MapSymbolTable) Lookup(name string) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	idx, ok := t.indices[name]
	return idx, ok
}

// NumSymbols implements SymbolTable.
func (t *MapSymbolTable) NumSymbols() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.names)
}

// Symbols returns a copy of all names in index order.
func (t *MapSymbolTable) Symbols() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

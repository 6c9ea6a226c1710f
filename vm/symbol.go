package vm

import "sync"

// ---------------------------------------------------------------------------
// SymbolTable: Interned symbols
// ---------------------------------------------------------------------------

// Symbol is an interned identifier. Symbols are cheap to copy and compare
// and are never collected.
type Symbol uint32

// SymbolTable interns byte strings to unique IDs.
type SymbolTable struct {
	mu     sync.RWMutex
	byName map[string]Symbol
	byID   []string
}

// NewSymbolTable creates a new empty symbol table.
// Symbol 0 is reserved so that a zero Symbol never names anything.
func NewSymbolTable() *SymbolTable {
	st := &SymbolTable{
		byName: make(map[string]Symbol),
		byID:   make([]string, 1, 256),
	}
	return st
}

// Intern returns the symbol for name, creating a new one if needed.
func (st *SymbolTable) Intern(name string) Symbol {
	// Fast path: read-only lookup
	st.mu.RLock()
	if id, ok := st.byName[name]; ok {
		st.mu.RUnlock()
		return id
	}
	st.mu.RUnlock()

	st.mu.Lock()
	defer st.mu.Unlock()

	// Double-check after acquiring write lock
	if id, ok := st.byName[name]; ok {
		return id
	}

	id := Symbol(len(st.byID))
	st.byName[name] = id
	st.byID = append(st.byID, name)
	return id
}

// InternBytes interns a byte string.
func (st *SymbolTable) InternBytes(name []byte) Symbol {
	return st.Intern(string(name))
}

// Lookup returns the symbol for name without interning it.
func (st *SymbolTable) Lookup(name string) (Symbol, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	id, ok := st.byName[name]
	return id, ok
}

// Name returns the symbol name, or "" if sym was never interned.
func (st *SymbolTable) Name(sym Symbol) string {
	st.mu.RLock()
	defer st.mu.RUnlock()

	if sym == 0 || int(sym) >= len(st.byID) {
		return ""
	}
	return st.byID[sym]
}

// Len returns the number of interned symbols.
func (st *SymbolTable) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.byID) - 1
}

// Package alias holds the shell's alias table.
package alias

import (
	"sort"
	"strings"
	"sync"
)

// Alias is a single name to replacement mapping.
type Alias struct {
	Name  string
	Value string
}

// Table is a concurrency safe alias table. The zero value is ready to use.
type Table struct {
	rw      sync.RWMutex
	aliases map[string]string
}

// NewTable creates a table seeded with the given aliases.
func NewTable(initial map[string]string) *Table {
	t := &Table{}
	for k, v := range initial {
		t.Set(k, v)
	}
	return t
}

// Set adds or replaces an alias. One layer of surrounding quotes is removed
// from the value.
func (t *Table) Set(name, value string) {
	t.rw.Lock()
	defer t.rw.Unlock()

	if t.aliases == nil {
		t.aliases = make(map[string]string)
	}
	t.aliases[name] = trimQuotes(value)
}

// Remove deletes an alias, reporting whether it existed.
func (t *Table) Remove(name string) bool {
	t.rw.Lock()
	defer t.rw.Unlock()

	_, ok := t.aliases[name]
	delete(t.aliases, name)
	return ok
}

// Resolve looks up the replacement text for name. Matching is exact and case
// sensitive.
func (t *Table) Resolve(name string) (string, bool) {
	t.rw.RLock()
	defer t.rw.RUnlock()

	val, ok := t.aliases[name]
	return val, ok
}

// List returns all aliases sorted by name.
func (t *Table) List() []Alias {
	t.rw.RLock()
	defer t.rw.RUnlock()

	out := make([]Alias, 0, len(t.aliases))
	for k, v := range t.aliases {
		out = append(out, Alias{Name: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

func trimQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

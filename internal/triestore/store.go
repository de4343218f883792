// Package triestore implements the trie store of spec.md §4.G: a
// single current trie root shared by unbounded concurrent readers and
// serialized writers, each read or write working against its own
// private snapshot of the root rather than the trie itself.
//
// Grounded on bustub's primer/trie_store.cpp: a root mutex guards only
// the root reference, never trie traversal or construction, and a
// separate write mutex serializes writers so at most one Put/Remove
// builds a new root at a time. Go has no generic methods, so the
// source's TrieStore::Get<T>/Put<T> become package-level functions
// taking *Store.
package triestore

import (
	"sync"

	"github.com/haduyet/bustubgo/internal/trie"
)

// Store holds the current trie root behind two mutexes: rootMu for the
// reference swap, writeMu for writer serialization.
type Store struct {
	rootMu  sync.Mutex
	writeMu sync.Mutex
	root    trie.Trie
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// ValueGuard is the scoped accessor of spec.md §4.G: it holds the trie
// root the value was read from alongside the value itself, so the root
// (and therefore every node on the value's path) stays reachable for
// as long as the guard is held, mirroring the source's RAII contract
// even though Go's GC would keep the nodes alive regardless.
type ValueGuard[T any] struct {
	root  trie.Trie
	value T
}

// Value returns the guarded value.
func (g ValueGuard[T]) Value() T { return g.value }

// Get copies the current root under rootMu, releases the lock, then
// traverses the copy lock-free. Matches the source's "don't lookup the
// value in the trie while holding the root lock."
func Get[T any](s *Store, key string) (ValueGuard[T], bool) {
	s.rootMu.Lock()
	root := s.root
	s.rootMu.Unlock()

	v, ok := trie.Get[T](root, key)
	if !ok {
		return ValueGuard[T]{}, false
	}
	return ValueGuard[T]{root: root, value: v}, true
}

// Put serializes with other writers via writeMu, reads the current
// root, builds the new trie without holding any lock, then swaps the
// root back in under rootMu.
func Put[T any](s *Store, key string, value T) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.rootMu.Lock()
	root := s.root
	s.rootMu.Unlock()

	newRoot := trie.Put(root, key, value)

	s.rootMu.Lock()
	s.root = newRoot
	s.rootMu.Unlock()
}

// Remove mirrors Put's locking discipline.
func (s *Store) Remove(key string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.rootMu.Lock()
	root := s.root
	s.rootMu.Unlock()

	newRoot := trie.Remove(root, key)

	s.rootMu.Lock()
	s.root = newRoot
	s.rootMu.Unlock()
}

package trie

import (
	"errors"
	"fmt"

	"shopchain/storage"
)

// Trie is a content-addressed Merkle trie over Keccak256-hashed keys. Every
// Update path-copies the touched nodes and returns a new Trie value pointing
// at the new root; the previous Trie remains fully readable, which gives the
// copy-on-write snapshot semantics the state layer depends on.
//
// Keys passed into Get/Update are expected to be fully hashed (32 bytes)
// before insertion.
//
// A Trie value is immutable and therefore safe to share across goroutines.
type Trie struct {
	db   storage.Database
	root []byte
}

// ErrKeyLength is returned when a key is not a 32-byte hash.
var ErrKeyLength = errors.New("trie: key must be a 32-byte hash")

const keyLength = 32

// NewTrie creates a trie backed by the provided storage and optional root. A
// nil or empty root denotes the empty trie.
func NewTrie(db storage.Database, root []byte) *Trie {
	if len(root) == 0 {
		root = nil
	}
	return &Trie{db: db, root: append([]byte(nil), root...)}
}

// Root returns the root hash identifying this snapshot. The empty trie has a
// nil root.
func (t *Trie) Root() []byte {
	return append([]byte(nil), t.root...)
}

// Get retrieves the value stored under key, or nil when absent.
func (t *Trie) Get(key []byte) ([]byte, error) {
	if len(key) != keyLength {
		return nil, ErrKeyLength
	}
	current := t.root
	for _, nibble := range nibbles(key) {
		if len(current) == 0 {
			return nil, nil
		}
		n, err := loadNode(t.db, current)
		if err != nil {
			return nil, fmt.Errorf("trie: load node: %w", err)
		}
		current = n.Children[nibble]
	}
	if len(current) == 0 {
		return nil, nil
	}
	leaf, err := loadNode(t.db, current)
	if err != nil {
		return nil, fmt.Errorf("trie: load leaf: %w", err)
	}
	return append([]byte(nil), leaf.Value...), nil
}

// Update stores value under key and returns the trie rooted at the resulting
// state. The receiver is left untouched.
func (t *Trie) Update(key, value []byte) (*Trie, error) {
	if len(key) != keyLength {
		return nil, ErrKeyLength
	}
	newRoot, err := t.insert(t.root, nibbles(key), value)
	if err != nil {
		return nil, err
	}
	return &Trie{db: t.db, root: newRoot}, nil
}

func (t *Trie) insert(hash []byte, path []byte, value []byte) ([]byte, error) {
	var current *node
	if len(hash) == 0 {
		current = &node{}
	} else {
		loaded, err := loadNode(t.db, hash)
		if err != nil {
			return nil, fmt.Errorf("trie: load node: %w", err)
		}
		current = loaded.clone()
	}
	if len(path) == 0 {
		current.Value = append([]byte(nil), value...)
		return current.persist(t.db)
	}
	childHash, err := t.insert(current.Children[path[0]], path[1:], value)
	if err != nil {
		return nil, err
	}
	current.Children[path[0]] = childHash
	return current.persist(t.db)
}

// nibbles expands a key into its 4-bit path components.
func nibbles(key []byte) []byte {
	out := make([]byte, 0, len(key)*2)
	for _, b := range key {
		out = append(out, b>>4, b&0x0f)
	}
	return out
}

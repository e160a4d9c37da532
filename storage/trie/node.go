package trie

import (
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"shopchain/storage"
)

const branchWidth = 16

// node is a single trie node. Branch slots hold the hashes of child nodes;
// Value carries the payload when the node terminates a key path. Nodes are
// immutable once persisted: they are stored under the Keccak256 hash of their
// RLP encoding, so structurally-shared snapshots never overwrite each other.
type node struct {
	Children [branchWidth][]byte
	Value    []byte
}

func (n *node) encode() ([]byte, error) {
	return rlp.EncodeToBytes(n)
}

// persist writes the node to the backing store and returns its content hash.
// Writing an already-present node is a no-op because the key is the hash.
func (n *node) persist(db storage.Database) ([]byte, error) {
	raw, err := n.encode()
	if err != nil {
		return nil, err
	}
	h := ethcrypto.Keccak256(raw)
	if ok, err := db.Has(h); err != nil {
		return nil, err
	} else if ok {
		return h, nil
	}
	if err := db.Put(h, raw); err != nil {
		return nil, err
	}
	return h, nil
}

func loadNode(db storage.Database, hash []byte) (*node, error) {
	raw, err := db.Get(hash)
	if err != nil {
		return nil, err
	}
	decoded := new(node)
	if err := rlp.DecodeBytes(raw, decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}

func (n *node) clone() *node {
	copied := &node{Value: n.Value}
	copied.Children = n.Children
	return copied
}

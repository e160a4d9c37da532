package market

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/google/uuid"

	"shopchain/core/state"
	"shopchain/core/types"
)

// OrderDigest is the read-optimized projection of an order held in a shard
// bucket for listing display.
type OrderDigest struct {
	SellerAgentAddress types.Address
	StartedBlockIndex  int64
	ExpiredBlockIndex  int64
	OrderID            uuid.UUID
	TradableID         uuid.UUID
	Price              types.FungibleAssetValue
	CombatPoint        uint32
	Level              uint32
	SheetID            uint32
	ItemCount          int
}

// OrderDigestList is one shard bucket: the ordered digests of every listing
// assigned to the bucket's address. No two digests share an order id.
type OrderDigestList struct {
	Address types.Address
	Digests []OrderDigest
}

// NewOrderDigestList creates an empty bucket at addr.
func NewOrderDigestList(addr types.Address) *OrderDigestList {
	return &OrderDigestList{Address: addr}
}

// LoadOrderDigestList reads the bucket at addr, returning an empty bucket
// when none has been stored yet.
func LoadOrderDigestList(st *state.Store, addr types.Address) (*OrderDigestList, error) {
	raw := st.GetState(addr)
	if raw == nil {
		return NewOrderDigestList(addr), nil
	}
	return DeserializeOrderDigestList(addr, raw)
}

// Add appends a digest, rejecting order ids already present in the bucket.
func (l *OrderDigestList) Add(digest OrderDigest) error {
	if _, ok := l.Find(digest.OrderID); ok {
		return fmt.Errorf("%w: %s", ErrDuplicateOrderID, digest.OrderID)
	}
	l.Digests = append(l.Digests, digest)
	return nil
}

// Find returns the digest with the given order id.
func (l *OrderDigestList) Find(orderID uuid.UUID) (OrderDigest, bool) {
	for _, digest := range l.Digests {
		if digest.OrderID == orderID {
			return digest, true
		}
	}
	return OrderDigest{}, false
}

// FindBySeller returns the digest matching both the order id and the seller
// agent, the tuple buyers present when resolving a listing.
func (l *OrderDigestList) FindBySeller(orderID uuid.UUID, sellerAgent types.Address) (OrderDigest, bool) {
	digest, ok := l.Find(orderID)
	if !ok || digest.SellerAgentAddress != sellerAgent {
		return OrderDigest{}, false
	}
	return digest, true
}

// Remove deletes the digest with the given order id, reporting whether it was
// present.
func (l *OrderDigestList) Remove(orderID uuid.UUID) bool {
	for i, digest := range l.Digests {
		if digest.OrderID == orderID {
			l.Digests = append(l.Digests[:i], l.Digests[i+1:]...)
			return true
		}
	}
	return false
}

type storedDigest struct {
	SellerAgent       types.Address
	StartedBlockIndex uint64
	ExpiredBlockIndex uint64
	OrderID           uuid.UUID
	TradableID        uuid.UUID
	Price             storedAsset
	CombatPoint       uint32
	Level             uint32
	SheetID           uint32
	ItemCount         uint32
}

type storedDigestList struct {
	Digests []storedDigest
}

// Serialize encodes the bucket into its canonical stored form. Digest order
// is part of the state, so the encoding is stable across nodes.
func (l *OrderDigestList) Serialize() ([]byte, error) {
	stored := storedDigestList{Digests: make([]storedDigest, 0, len(l.Digests))}
	for _, digest := range l.Digests {
		stored.Digests = append(stored.Digests, storedDigest{
			SellerAgent:       digest.SellerAgentAddress,
			StartedBlockIndex: uint64(digest.StartedBlockIndex),
			ExpiredBlockIndex: uint64(digest.ExpiredBlockIndex),
			OrderID:           digest.OrderID,
			TradableID:        digest.TradableID,
			Price:             newStoredAsset(digest.Price),
			CombatPoint:       digest.CombatPoint,
			Level:             digest.Level,
			SheetID:           digest.SheetID,
			ItemCount:         uint32(digest.ItemCount),
		})
	}
	return rlp.EncodeToBytes(&stored)
}

// DeserializeOrderDigestList decodes a bucket stored at addr.
func DeserializeOrderDigestList(addr types.Address, raw []byte) (*OrderDigestList, error) {
	stored := new(storedDigestList)
	if err := rlp.DecodeBytes(raw, stored); err != nil {
		return nil, fmt.Errorf("market: decode digest list: %w", err)
	}
	list := NewOrderDigestList(addr)
	for _, entry := range stored.Digests {
		list.Digests = append(list.Digests, OrderDigest{
			SellerAgentAddress: entry.SellerAgent,
			StartedBlockIndex:  int64(entry.StartedBlockIndex),
			ExpiredBlockIndex:  int64(entry.ExpiredBlockIndex),
			OrderID:            entry.OrderID,
			TradableID:         entry.TradableID,
			Price:              entry.Price.toAsset(),
			CombatPoint:        entry.CombatPoint,
			Level:              entry.Level,
			SheetID:            entry.SheetID,
			ItemCount:          int(entry.ItemCount),
		})
	}
	return list, nil
}

// setDigestList persists the bucket under its address.
func setDigestList(st *state.Store, list *OrderDigestList) (*state.Store, error) {
	raw, err := list.Serialize()
	if err != nil {
		return nil, err
	}
	return st.SetState(list.Address, raw), nil
}

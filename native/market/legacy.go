package market

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/google/uuid"

	"shopchain/core/state"
	"shopchain/core/types"
)

// LegacyListing is one record of the pre-sharding monolithic shop container.
// New listings never target it; buy and cancel drain it on first touch.
type LegacyListing struct {
	ProductID           uuid.UUID
	SellerAgentAddress  types.Address
	SellerAvatarAddress types.Address
	Price               types.FungibleAssetValue
	Item                TradableItem
	ItemCount           int
	ExpiredBlockIndex   int64
}

// LegacyShopState is the single global container of legacy listings, kept
// sorted by product id so its encoding is canonical.
type LegacyShopState struct {
	Listings []LegacyListing
}

// LoadLegacyShop reads the legacy container, returning an empty one when it
// was never written (or has been fully drained).
func LoadLegacyShop(st *state.Store) (*LegacyShopState, error) {
	raw := st.GetState(ShopAddress)
	if raw == nil {
		return &LegacyShopState{}, nil
	}
	return DeserializeLegacyShop(raw)
}

// Add inserts a listing, keeping the container sorted by product id. Only
// migration fixtures call this; the marketplace itself never writes new
// legacy listings.
func (s *LegacyShopState) Add(listing LegacyListing) {
	i := sort.Search(len(s.Listings), func(i int) bool {
		return bytes.Compare(s.Listings[i].ProductID[:], listing.ProductID[:]) >= 0
	})
	s.Listings = append(s.Listings, LegacyListing{})
	copy(s.Listings[i+1:], s.Listings[i:])
	s.Listings[i] = listing
}

// Find returns the listing with the given product id.
func (s *LegacyShopState) Find(productID uuid.UUID) (LegacyListing, bool) {
	for _, listing := range s.Listings {
		if listing.ProductID == productID {
			return listing, true
		}
	}
	return LegacyListing{}, false
}

// Remove deletes the listing with the given product id, reporting whether it
// was present.
func (s *LegacyShopState) Remove(productID uuid.UUID) bool {
	for i, listing := range s.Listings {
		if listing.ProductID == productID {
			s.Listings = append(s.Listings[:i], s.Listings[i+1:]...)
			return true
		}
	}
	return false
}

type storedLegacyListing struct {
	ProductID         uuid.UUID
	SellerAgent       types.Address
	SellerAvatar      types.Address
	Price             storedAsset
	Item              storedItem
	ItemCount         uint32
	ExpiredBlockIndex uint64
}

type storedLegacyShop struct {
	Listings []storedLegacyListing
}

// Serialize encodes the container into its canonical stored form.
func (s *LegacyShopState) Serialize() ([]byte, error) {
	stored := storedLegacyShop{Listings: make([]storedLegacyListing, 0, len(s.Listings))}
	for _, listing := range s.Listings {
		stored.Listings = append(stored.Listings, storedLegacyListing{
			ProductID:         listing.ProductID,
			SellerAgent:       listing.SellerAgentAddress,
			SellerAvatar:      listing.SellerAvatarAddress,
			Price:             newStoredAsset(listing.Price),
			Item:              newStoredItem(listing.Item),
			ItemCount:         uint32(listing.ItemCount),
			ExpiredBlockIndex: uint64(listing.ExpiredBlockIndex),
		})
	}
	return rlp.EncodeToBytes(&stored)
}

// DeserializeLegacyShop decodes the legacy container.
func DeserializeLegacyShop(raw []byte) (*LegacyShopState, error) {
	stored := new(storedLegacyShop)
	if err := rlp.DecodeBytes(raw, stored); err != nil {
		return nil, fmt.Errorf("market: decode legacy shop: %w", err)
	}
	shop := &LegacyShopState{}
	for _, entry := range stored.Listings {
		item, err := entry.Item.toItem()
		if err != nil {
			return nil, err
		}
		shop.Listings = append(shop.Listings, LegacyListing{
			ProductID:           entry.ProductID,
			SellerAgentAddress:  entry.SellerAgent,
			SellerAvatarAddress: entry.SellerAvatar,
			Price:               entry.Price.toAsset(),
			Item:                item,
			ItemCount:           int(entry.ItemCount),
			ExpiredBlockIndex:   int64(entry.ExpiredBlockIndex),
		})
	}
	return shop, nil
}

// setLegacyShop persists the container at the shop root.
func setLegacyShop(st *state.Store, shop *LegacyShopState) (*state.Store, error) {
	raw, err := shop.Serialize()
	if err != nil {
		return nil, err
	}
	return st.SetState(ShopAddress, raw), nil
}

// listingQuery names a listing the way buyers and cancelling sellers do.
type listingQuery struct {
	orderID      uuid.UUID
	sellerAgent  types.Address
	sellerAvatar types.Address
	itemSubType  ItemSubType
}

// resolvedListing is the outcome of the dual-path lookup. When fromLegacy is
// set, the listing was drained out of the legacy container as part of the
// same state transition and item/itemCount carry its payload.
type resolvedListing struct {
	order      *Order
	fromLegacy bool
	item       *TradableItem
	itemCount  int
}

// listingSource is one lookup path for a listing. Sources are tried in a
// fixed priority order; a source signals a clean miss with ok=false and may
// return an updated store when resolution itself migrates state.
type listingSource interface {
	resolve(st *state.Store, q listingQuery) (*resolvedListing, *state.Store, bool, error)
}

// shardedSource resolves listings from the shard bucket registry.
type shardedSource struct{}

func (shardedSource) resolve(st *state.Store, q listingQuery) (*resolvedListing, *state.Store, bool, error) {
	shardAddr, err := ShardAddress(q.itemSubType, q.orderID)
	if err != nil {
		return nil, nil, false, err
	}
	list, err := LoadOrderDigestList(st, shardAddr)
	if err != nil {
		return nil, nil, false, err
	}
	if _, ok := list.FindBySeller(q.orderID, q.sellerAgent); !ok {
		return nil, nil, false, nil
	}
	order, err := LoadOrder(st, q.orderID)
	if err != nil {
		return nil, nil, false, err
	}
	if order == nil {
		return nil, nil, false, nil
	}
	if order.SellerAgentAddress != q.sellerAgent || order.SellerAvatarAddress != q.sellerAvatar {
		return nil, nil, false, nil
	}
	return &resolvedListing{order: order}, st, true, nil
}

// legacySource resolves listings from the pre-sharding container and drains
// the matched record as part of resolution, the one-time migration-on-touch.
type legacySource struct{}

func (legacySource) resolve(st *state.Store, q listingQuery) (*resolvedListing, *state.Store, bool, error) {
	if q.itemSubType.ShardedOnly() {
		return nil, nil, false, nil
	}
	shop, err := LoadLegacyShop(st)
	if err != nil {
		return nil, nil, false, err
	}
	listing, ok := shop.Find(q.orderID)
	if !ok || listing.SellerAgentAddress != q.sellerAgent {
		return nil, nil, false, nil
	}
	shop.Remove(q.orderID)
	st, err = setLegacyShop(st, shop)
	if err != nil {
		return nil, nil, false, err
	}
	item := listing.Item
	order := &Order{
		Type:                OrderTypeNonFungible,
		SellerAgentAddress:  listing.SellerAgentAddress,
		SellerAvatarAddress: listing.SellerAvatarAddress,
		OrderID:             listing.ProductID,
		TradableID:          listing.Item.TradableID,
		Price:               listing.Price.Clone(),
		ItemSubType:         listing.Item.SubType,
		StartedBlockIndex:   0,
		ExpiredBlockIndex:   listing.ExpiredBlockIndex,
		ItemCount:           listing.ItemCount,
	}
	if listing.Item.SubType.Fungible() {
		order.Type = OrderTypeFungible
	}
	return &resolvedListing{order: order, fromLegacy: true, item: &item, itemCount: listing.ItemCount}, st, true, nil
}

var buyListingSources = []listingSource{shardedSource{}, legacySource{}}

// resolveListing performs the dual-path lookup: the shard registry first,
// then the legacy container for subtypes that predate sharding. A miss on
// every source yields ErrItemDoesNotExist.
func resolveListing(st *state.Store, q listingQuery) (*resolvedListing, *state.Store, error) {
	for _, source := range buyListingSources {
		resolved, next, ok, err := source.resolve(st, q)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			return resolved, next, nil
		}
	}
	return nil, nil, fmt.Errorf("%w: listing %s", ErrItemDoesNotExist, q.orderID)
}

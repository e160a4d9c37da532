package market

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/google/uuid"

	"shopchain/core/state"
	"shopchain/core/types"
)

const (
	// ExpirationInterval is the listing lifetime in blocks. ExpiredBlockIndex
	// is always StartedBlockIndex + ExpirationInterval.
	ExpirationInterval int64 = 36000
	// TaxRate is the percentage points of every purchase routed to the
	// treasury: tax = floor(price/100) * TaxRate.
	TaxRate int64 = 8
)

// OrderType discriminates the two order variants. Fungible orders carry an
// item count; non-fungible orders implicitly trade a single item.
type OrderType uint8

const (
	OrderTypeFungible OrderType = iota + 1
	OrderTypeNonFungible
)

// Order is a listing of a tradable item at a fixed price until an expiration
// block. All fields are immutable once created; mutating operations
// re-validate the seller identity against the acting avatar.
type Order struct {
	Type                OrderType
	SellerAgentAddress  types.Address
	SellerAvatarAddress types.Address
	OrderID             uuid.UUID
	TradableID          uuid.UUID
	Price               types.FungibleAssetValue
	ItemSubType         ItemSubType
	StartedBlockIndex   int64
	ExpiredBlockIndex   int64
	ItemCount           int
}

// CreateOrder dispatches on the item subtype to build the right order
// variant. Fungible subtypes carry the supplied count; every other known
// subtype trades exactly one item.
func CreateOrder(sellerAgent, sellerAvatar types.Address, orderID uuid.UUID, price types.FungibleAssetValue, tradableID uuid.UUID, startedBlockIndex int64, subType ItemSubType, count int) (*Order, error) {
	if price.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPrice, price)
	}
	if !subType.Valid() {
		return nil, fmt.Errorf("%w: unsupported subtype %d", ErrInvalidItemType, subType)
	}
	order := &Order{
		SellerAgentAddress:  sellerAgent,
		SellerAvatarAddress: sellerAvatar,
		OrderID:             orderID,
		TradableID:          tradableID,
		Price:               price.Clone(),
		ItemSubType:         subType,
		StartedBlockIndex:   startedBlockIndex,
		ExpiredBlockIndex:   startedBlockIndex + ExpirationInterval,
	}
	if subType.Fungible() {
		order.Type = OrderTypeFungible
		order.ItemCount = count
	} else {
		order.Type = OrderTypeNonFungible
		order.ItemCount = 1
	}
	return order, nil
}

// Validate checks the acting avatar and count against the order and locates
// the backing inventory stacks, without mutating anything.
func (o *Order) Validate(avatar *AvatarState, count int) error {
	if avatar.AvatarAddress != o.SellerAvatarAddress || avatar.AgentAddress != o.SellerAgentAddress {
		return fmt.Errorf("%w: expected %s/%s, got %s/%s", ErrInvalidAddress,
			o.SellerAgentAddress, o.SellerAvatarAddress, avatar.AgentAddress, avatar.AvatarAddress)
	}
	if count < 1 {
		return fmt.Errorf("%w: count must be greater than 0", ErrInvalidItemCount)
	}
	switch o.Type {
	case OrderTypeFungible:
		if o.ItemCount != count {
			return fmt.Errorf("%w: order holds %d, got %d", ErrInvalidItemCount, o.ItemCount, count)
		}
	default:
		if count != 1 {
			return fmt.Errorf("%w: count must be 1 for non-fungible item %s", ErrInvalidItemCount, o.TradableID)
		}
	}
	stacks, ok := avatar.Inventory.TradableStacks(o.TradableID, o.StartedBlockIndex, o.ItemCount)
	if !ok {
		return fmt.Errorf("%w: tradable %s not available in seller inventory", ErrItemDoesNotExist, o.TradableID)
	}
	for _, stack := range stacks {
		if stack.Item.SubType != o.ItemSubType {
			return fmt.Errorf("%w: expected %s, got %s", ErrInvalidItemType, o.ItemSubType, stack.Item.SubType)
		}
	}
	return nil
}

// Sell moves the order's quantity out of general inventory into a
// custody-locked stack whose availability is gated until the expiration
// block. It returns the locked copy.
func (o *Order) Sell(avatar *AvatarState) (*TradableItem, error) {
	stacks, ok := avatar.Inventory.TradableStacks(o.TradableID, o.StartedBlockIndex, o.ItemCount)
	if !ok {
		return nil, fmt.Errorf("%w: tradable %s, required block <= %d, count %d",
			ErrItemDoesNotExist, o.TradableID, o.StartedBlockIndex, o.ItemCount)
	}
	locked := stacks[0].Item
	if !avatar.Inventory.RemoveTradable(o.TradableID, o.StartedBlockIndex, o.ItemCount) {
		return nil, fmt.Errorf("%w: tradable %s", ErrItemDoesNotExist, o.TradableID)
	}
	locked.RequiredBlockIndex = o.ExpiredBlockIndex
	avatar.Inventory.AddLocked(locked, o.ItemCount, o.OrderID)
	return &locked, nil
}

// Digest recomputes the read-optimized shard projection from the seller's
// current locked stack. Digests are derived, never hand-constructed.
func (o *Order) Digest(avatar *AvatarState) (*OrderDigest, error) {
	stack, ok := avatar.Inventory.LockedStack(o.OrderID)
	if !ok {
		return nil, fmt.Errorf("%w: no custody lock for order %s", ErrItemDoesNotExist, o.OrderID)
	}
	return &OrderDigest{
		SellerAgentAddress: o.SellerAgentAddress,
		StartedBlockIndex:  o.StartedBlockIndex,
		ExpiredBlockIndex:  o.ExpiredBlockIndex,
		OrderID:            o.OrderID,
		TradableID:         o.TradableID,
		Price:              o.Price.Clone(),
		CombatPoint:        stack.Item.CombatPoint,
		Level:              stack.Item.Level,
		SheetID:            stack.Item.SheetID,
		ItemCount:          o.ItemCount,
	}, nil
}

// ValidateCancel re-validates seller identity, tradable id and the custody
// lock ahead of a cancellation. Expiration is deliberately not checked:
// cancellation stays available after the listing lapses.
func (o *Order) ValidateCancel(avatar *AvatarState, tradableID uuid.UUID) error {
	if avatar.AvatarAddress != o.SellerAvatarAddress || avatar.AgentAddress != o.SellerAgentAddress {
		return fmt.Errorf("%w: expected %s/%s, got %s/%s", ErrInvalidAddress,
			o.SellerAgentAddress, o.SellerAvatarAddress, avatar.AgentAddress, avatar.AvatarAddress)
	}
	if tradableID != o.TradableID {
		return fmt.Errorf("%w: %s is not %s", ErrInvalidTradableID, tradableID, o.TradableID)
	}
	stack, ok := avatar.Inventory.LockedStack(o.OrderID)
	if !ok {
		return fmt.Errorf("%w: no custody lock for order %s", ErrItemDoesNotExist, o.OrderID)
	}
	if stack.Count != o.ItemCount {
		return fmt.Errorf("%w: locked count %d does not match order count %d", ErrItemDoesNotExist, stack.Count, o.ItemCount)
	}
	if stack.Item.SubType != o.ItemSubType {
		return fmt.Errorf("%w: expected %s, got %s", ErrInvalidItemType, o.ItemSubType, stack.Item.SubType)
	}
	return nil
}

// Cancel releases the custody lock and returns the item to general inventory,
// immediately usable at blockIndex. Cancellation is free at any point before
// a successful buy, including after nominal expiration.
func (o *Order) Cancel(avatar *AvatarState, blockIndex int64) (*TradableItem, error) {
	stack, ok := avatar.Inventory.RemoveLocked(o.OrderID)
	if !ok {
		return nil, fmt.Errorf("%w: no custody lock for order %s", ErrItemDoesNotExist, o.OrderID)
	}
	item := stack.Item
	item.RequiredBlockIndex = blockIndex
	avatar.Inventory.AddItem(item, stack.Count)
	return &item, nil
}

// ValidateTransfer is the pure purchase predicate: it reports a per-item
// result code and never mutates state, so one bad item cannot abort a batch.
func (o *Order) ValidateTransfer(sellerAgent, sellerAvatar types.Address, tradableID uuid.UUID, price types.FungibleAssetValue, blockIndex int64) BuyErrorCode {
	if sellerAvatar != o.SellerAvatarAddress || sellerAgent != o.SellerAgentAddress {
		return BuyErrorInvalidAddress
	}
	if tradableID != o.TradableID {
		return BuyErrorInvalidTradableID
	}
	if !o.Price.Equal(price) {
		return BuyErrorInvalidPrice
	}
	// A zero expiration never lapses; some pre-sharding records carry one.
	if o.ExpiredBlockIndex > 0 && o.ExpiredBlockIndex < blockIndex {
		return BuyErrorShopItemExpired
	}
	return BuyErrorNone
}

// Transfer moves the custody-locked stack from seller to buyer, making it
// immediately usable. ok is false when the seller holds no matching lock;
// the legacy migration path tolerates that once.
func (o *Order) Transfer(seller, buyer *AvatarState, blockIndex int64) (*TradableItem, bool) {
	stack, ok := seller.Inventory.RemoveLocked(o.OrderID)
	if !ok {
		return nil, false
	}
	item := stack.Item
	item.RequiredBlockIndex = blockIndex
	buyer.Inventory.AddItem(item, stack.Count)
	return &item, true
}

// Tax is the treasury cut: floor(price/100) * TaxRate.
func (o *Order) Tax() types.FungibleAssetValue {
	return o.Price.DivFloor(100).MulInt(TaxRate)
}

// TaxedPrice is the seller's net proceeds.
func (o *Order) TaxedPrice() types.FungibleAssetValue {
	return o.Price.Sub(o.Tax())
}

// OrderReceipt records a completed purchase at the order's receipt key.
type OrderReceipt struct {
	OrderID               uuid.UUID
	BuyerAgentAddress     types.Address
	BuyerAvatarAddress    types.Address
	TransferredBlockIndex int64
}

type storedOrder struct {
	Type              uint8
	SellerAgent       types.Address
	SellerAvatar      types.Address
	OrderID           uuid.UUID
	TradableID        uuid.UUID
	Price             storedAsset
	ItemSubType       uint8
	StartedBlockIndex uint64
	ExpiredBlockIndex uint64
	ItemCount         uint32
}

type storedReceipt struct {
	OrderID               uuid.UUID
	BuyerAgent            types.Address
	BuyerAvatar           types.Address
	TransferredBlockIndex uint64
}

// Serialize encodes the order into its canonical stored form.
func (o *Order) Serialize() ([]byte, error) {
	return rlp.EncodeToBytes(&storedOrder{
		Type:              uint8(o.Type),
		SellerAgent:       o.SellerAgentAddress,
		SellerAvatar:      o.SellerAvatarAddress,
		OrderID:           o.OrderID,
		TradableID:        o.TradableID,
		Price:             newStoredAsset(o.Price),
		ItemSubType:       uint8(o.ItemSubType),
		StartedBlockIndex: uint64(o.StartedBlockIndex),
		ExpiredBlockIndex: uint64(o.ExpiredBlockIndex),
		ItemCount:         uint32(o.ItemCount),
	})
}

// DeserializeOrder decodes an order record, restoring the right variant from
// the stored type tag.
func DeserializeOrder(raw []byte) (*Order, error) {
	stored := new(storedOrder)
	if err := rlp.DecodeBytes(raw, stored); err != nil {
		return nil, fmt.Errorf("market: decode order: %w", err)
	}
	orderType := OrderType(stored.Type)
	if orderType != OrderTypeFungible && orderType != OrderTypeNonFungible {
		return nil, fmt.Errorf("market: decode order: unknown type %d", stored.Type)
	}
	subType := ItemSubType(stored.ItemSubType)
	if !subType.Valid() {
		return nil, fmt.Errorf("%w: stored subtype %d", ErrInvalidItemType, stored.ItemSubType)
	}
	return &Order{
		Type:                orderType,
		SellerAgentAddress:  stored.SellerAgent,
		SellerAvatarAddress: stored.SellerAvatar,
		OrderID:             stored.OrderID,
		TradableID:          stored.TradableID,
		Price:               stored.Price.toAsset(),
		ItemSubType:         subType,
		StartedBlockIndex:   int64(stored.StartedBlockIndex),
		ExpiredBlockIndex:   int64(stored.ExpiredBlockIndex),
		ItemCount:           int(stored.ItemCount),
	}, nil
}

// LoadOrder reads the order stored for orderID, or nil when absent.
func LoadOrder(st *state.Store, orderID uuid.UUID) (*Order, error) {
	raw := st.GetState(OrderAddress(orderID))
	if raw == nil {
		return nil, nil
	}
	return DeserializeOrder(raw)
}

// Serialize encodes the receipt into its canonical stored form.
func (r *OrderReceipt) Serialize() ([]byte, error) {
	return rlp.EncodeToBytes(&storedReceipt{
		OrderID:               r.OrderID,
		BuyerAgent:            r.BuyerAgentAddress,
		BuyerAvatar:           r.BuyerAvatarAddress,
		TransferredBlockIndex: uint64(r.TransferredBlockIndex),
	})
}

// DeserializeOrderReceipt decodes a receipt record.
func DeserializeOrderReceipt(raw []byte) (*OrderReceipt, error) {
	stored := new(storedReceipt)
	if err := rlp.DecodeBytes(raw, stored); err != nil {
		return nil, fmt.Errorf("market: decode receipt: %w", err)
	}
	return &OrderReceipt{
		OrderID:               stored.OrderID,
		BuyerAgentAddress:     stored.BuyerAgent,
		BuyerAvatarAddress:    stored.BuyerAvatar,
		TransferredBlockIndex: int64(stored.TransferredBlockIndex),
	}, nil
}

// serializeItem persists a tradable item's custody record.
func serializeItem(item TradableItem) ([]byte, error) {
	stored := newStoredItem(item)
	return rlp.EncodeToBytes(&stored)
}

// DeserializeItem decodes a tradable item custody record.
func DeserializeItem(raw []byte) (TradableItem, error) {
	stored := new(storedItem)
	if err := rlp.DecodeBytes(raw, stored); err != nil {
		return TradableItem{}, fmt.Errorf("market: decode item: %w", err)
	}
	return stored.toItem()
}

package events

import (
	"strconv"

	"shopchain/core/types"
)

const (
	TypeOrderListed           = "market.listed"
	TypeOrderSold             = "market.sold"
	TypeOrderCancelled        = "market.cancelled"
	TypeExpiredListingTouched = "market.expired_listing_touched"
)

// OrderListed is emitted when a sell order is registered in a shard bucket.
type OrderListed struct {
	OrderID           string
	SellerAgent       types.Address
	SellerAvatar      types.Address
	Price             types.FungibleAssetValue
	StartedBlockIndex int64
	ExpiredBlockIndex int64
}

func (OrderListed) EventType() string { return TypeOrderListed }

func (e OrderListed) Event() *types.Event {
	return &types.Event{
		Type: TypeOrderListed,
		Attributes: map[string]string{
			"orderId":           e.OrderID,
			"sellerAgent":       e.SellerAgent.String(),
			"sellerAvatar":      e.SellerAvatar.String(),
			"price":             e.Price.String(),
			"startedBlockIndex": strconv.FormatInt(e.StartedBlockIndex, 10),
			"expiredBlockIndex": strconv.FormatInt(e.ExpiredBlockIndex, 10),
		},
	}
}

// OrderSold is emitted once per successfully purchased item in a buy batch.
type OrderSold struct {
	OrderID     string
	BuyerAgent  types.Address
	SellerAgent types.Address
	Price       types.FungibleAssetValue
	Tax         types.FungibleAssetValue
	BlockIndex  int64
	FromLegacy  bool
}

func (OrderSold) EventType() string { return TypeOrderSold }

func (e OrderSold) Event() *types.Event {
	return &types.Event{
		Type: TypeOrderSold,
		Attributes: map[string]string{
			"orderId":     e.OrderID,
			"buyerAgent":  e.BuyerAgent.String(),
			"sellerAgent": e.SellerAgent.String(),
			"price":       e.Price.String(),
			"tax":         e.Tax.String(),
			"blockIndex":  strconv.FormatInt(e.BlockIndex, 10),
			"fromLegacy":  strconv.FormatBool(e.FromLegacy),
		},
	}
}

// ExpiredListingTouched is emitted when a purchase lands on a listing past
// its expiration block. The listing stays in place for its seller to cancel.
type ExpiredListingTouched struct {
	OrderID           string
	BuyerAgent        types.Address
	BlockIndex        int64
	ExpiredBlockIndex int64
}

func (ExpiredListingTouched) EventType() string { return TypeExpiredListingTouched }

func (e ExpiredListingTouched) Event() *types.Event {
	return &types.Event{
		Type: TypeExpiredListingTouched,
		Attributes: map[string]string{
			"orderId":           e.OrderID,
			"buyerAgent":        e.BuyerAgent.String(),
			"blockIndex":        strconv.FormatInt(e.BlockIndex, 10),
			"expiredBlockIndex": strconv.FormatInt(e.ExpiredBlockIndex, 10),
		},
	}
}

// OrderCancelled is emitted when a listing is delisted and its item unlocked.
type OrderCancelled struct {
	OrderID      string
	SellerAgent  types.Address
	SellerAvatar types.Address
	BlockIndex   int64
	FromLegacy   bool
}

func (OrderCancelled) EventType() string { return TypeOrderCancelled }

func (e OrderCancelled) Event() *types.Event {
	return &types.Event{
		Type: TypeOrderCancelled,
		Attributes: map[string]string{
			"orderId":      e.OrderID,
			"sellerAgent":  e.SellerAgent.String(),
			"sellerAvatar": e.SellerAvatar.String(),
			"blockIndex":   strconv.FormatInt(e.BlockIndex, 10),
			"fromLegacy":   strconv.FormatBool(e.FromLegacy),
		},
	}
}

package market

import (
	"github.com/google/uuid"

	"shopchain/core/types"
)

// BuyErrorCode classifies the outcome of one purchase inside a Buy batch.
// Zero means the purchase succeeded; non-zero codes are recorded on the
// per-item result and never abort the batch.
type BuyErrorCode int

const (
	BuyErrorNone                BuyErrorCode = 0
	BuyErrorFailedLoadingState  BuyErrorCode = 1
	BuyErrorItemDoesNotExist    BuyErrorCode = 2
	BuyErrorShopItemExpired     BuyErrorCode = 3
	BuyErrorInsufficientBalance BuyErrorCode = 4
	BuyErrorInvalidAddress      BuyErrorCode = 5
	BuyErrorInvalidPrice        BuyErrorCode = 6
	BuyErrorInvalidOrderID      BuyErrorCode = 7
	BuyErrorInvalidTradableID   BuyErrorCode = 8
	BuyErrorInvalidItemType     BuyErrorCode = 9
)

func (c BuyErrorCode) String() string {
	switch c {
	case BuyErrorNone:
		return "ok"
	case BuyErrorFailedLoadingState:
		return "failed loading state"
	case BuyErrorItemDoesNotExist:
		return "item does not exist"
	case BuyErrorShopItemExpired:
		return "shop item expired"
	case BuyErrorInsufficientBalance:
		return "insufficient balance"
	case BuyErrorInvalidAddress:
		return "invalid address"
	case BuyErrorInvalidPrice:
		return "invalid price"
	case BuyErrorInvalidOrderID:
		return "invalid order id"
	case BuyErrorInvalidTradableID:
		return "invalid tradable id"
	case BuyErrorInvalidItemType:
		return "invalid item type"
	default:
		return "unknown"
	}
}

// PurchaseResult is the buyer-side outcome for one order in a Buy batch.
type PurchaseResult struct {
	OrderID   uuid.UUID
	ErrorCode BuyErrorCode
	MailID    uuid.UUID
	Item      *TradableItem
	ItemCount int
}

// Succeeded reports whether this purchase completed.
func (r PurchaseResult) Succeeded() bool { return r.ErrorCode == BuyErrorNone }

// SellerResult is the seller-side outcome for one completed purchase: what
// sold and the net proceeds after tax.
type SellerResult struct {
	OrderID      uuid.UUID
	SellerAgent  types.Address
	SellerAvatar types.Address
	MailID       uuid.UUID
	Gold         types.FungibleAssetValue
	Item         *TradableItem
	ItemCount    int
}

// CancelResult is the outcome of a SellCancellation: the unlocked item
// returned to the seller, or nil when the cancellation was a no-op.
type CancelResult struct {
	OrderID   uuid.UUID
	Item      *TradableItem
	ItemCount int
}

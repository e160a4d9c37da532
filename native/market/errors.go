package market

import "errors"

var (
	// ErrInvalidPrice marks a negative or mismatched listing price.
	ErrInvalidPrice = errors.New("market: invalid price")
	// ErrInvalidItemCount marks a non-positive or mismatched item count.
	ErrInvalidItemCount = errors.New("market: invalid item count")
	// ErrInvalidAddress marks an acting avatar that is not the order's seller.
	ErrInvalidAddress = errors.New("market: invalid seller address")
	// ErrInvalidTradableID marks a tradable id that does not match the order.
	ErrInvalidTradableID = errors.New("market: invalid tradable id")
	// ErrInvalidItemType marks an item whose subtype disagrees with the order.
	ErrInvalidItemType = errors.New("market: invalid item type")
	// ErrItemDoesNotExist marks a missing listing or inventory stack.
	ErrItemDoesNotExist = errors.New("market: item does not exist")
	// ErrDuplicateOrderID marks an order id already present in a shard bucket.
	ErrDuplicateOrderID = errors.New("market: duplicate order id")
	// ErrFailedLoadState marks an avatar record that could not be loaded.
	ErrFailedLoadState = errors.New("market: failed to load state")
	// ErrNotEnoughClearedStage marks an actor below the shop progress gate.
	ErrNotEnoughClearedStage = errors.New("market: not enough cleared stage")
	// ErrShopItemExpired marks a listing past its expiration block.
	ErrShopItemExpired = errors.New("market: shop item expired")
)

// ErrorKind buckets the sentinel errors into the coarse taxonomy callers use
// to decide whether an aborted action was their own mistake or a state
// conflict. Per-item buy outcomes never surface as errors; they are result
// codes on PurchaseResult.
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	// KindValidation covers caller mistakes: bad price, count, address, type.
	KindValidation
	// KindNotFound covers missing orders, avatars, and listings.
	KindNotFound
	// KindState covers conflicts with current state: duplicates, expiry,
	// funds, progress gates.
	KindState
)

// Kind classifies an error returned by a marketplace action.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInvalidPrice),
		errors.Is(err, ErrInvalidItemCount),
		errors.Is(err, ErrInvalidAddress),
		errors.Is(err, ErrInvalidTradableID),
		errors.Is(err, ErrInvalidItemType):
		return KindValidation
	case errors.Is(err, ErrItemDoesNotExist),
		errors.Is(err, ErrFailedLoadState):
		return KindNotFound
	case errors.Is(err, ErrDuplicateOrderID),
		errors.Is(err, ErrShopItemExpired),
		errors.Is(err, ErrNotEnoughClearedStage):
		return KindState
	default:
		return KindUnknown
	}
}

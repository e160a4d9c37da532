package market

import (
	"github.com/google/uuid"

	"shopchain/core/types"
)

// MailKind discriminates the typed records appended to an avatar's mailbox.
type MailKind uint8

const (
	// MailKindOrderExpiration is appended to the seller on listing, recording
	// when the order will lapse.
	MailKindOrderExpiration MailKind = iota + 1
	// MailKindPurchase is appended to the buyer for each purchased item.
	MailKindPurchase
	// MailKindSale is appended to the seller for each sold item, recording
	// the taxed proceeds.
	MailKindSale
	// MailKindCancel is appended to the seller when a listing is delisted.
	MailKindCancel
)

// Mail is one mailbox record. Identifiers come from the action context's
// seeded random stream, so replaying nodes mint identical ids.
type Mail struct {
	ID         uuid.UUID
	Kind       MailKind
	BlockIndex int64
	OrderID    uuid.UUID

	// ExpiredBlockIndex is set for order-expiration mail.
	ExpiredBlockIndex int64
	// Item and ItemCount describe the traded stack for purchase, sale and
	// cancel mail.
	Item      *TradableItem
	ItemCount int
	// Gold is the seller's taxed proceeds on sale mail.
	Gold *types.FungibleAssetValue
}

// NewOrderExpirationMail records a listing's expiration for its seller.
// Listing mail ids reuse the order id, matching the historical format.
func NewOrderExpirationMail(orderID uuid.UUID, blockIndex, expiredBlockIndex int64) Mail {
	return Mail{
		ID:                orderID,
		Kind:              MailKindOrderExpiration,
		BlockIndex:        blockIndex,
		OrderID:           orderID,
		ExpiredBlockIndex: expiredBlockIndex,
	}
}

// NewPurchaseMail records a bought item for the buyer.
func NewPurchaseMail(id, orderID uuid.UUID, blockIndex int64, item TradableItem, count int) Mail {
	return Mail{
		ID:         id,
		Kind:       MailKindPurchase,
		BlockIndex: blockIndex,
		OrderID:    orderID,
		Item:       &item,
		ItemCount:  count,
	}
}

// NewSaleMail records a sold item and its taxed proceeds for the seller.
func NewSaleMail(id, orderID uuid.UUID, blockIndex int64, item TradableItem, count int, gold types.FungibleAssetValue) Mail {
	proceeds := gold.Clone()
	return Mail{
		ID:         id,
		Kind:       MailKindSale,
		BlockIndex: blockIndex,
		OrderID:    orderID,
		Item:       &item,
		ItemCount:  count,
		Gold:       &proceeds,
	}
}

// NewCancelMail records a delisted item returned to the seller.
func NewCancelMail(id, orderID uuid.UUID, blockIndex int64, item TradableItem, count int) Mail {
	return Mail{
		ID:         id,
		Kind:       MailKindCancel,
		BlockIndex: blockIndex,
		OrderID:    orderID,
		Item:       &item,
		ItemCount:  count,
	}
}

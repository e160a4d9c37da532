package market

import (
	"fmt"

	"github.com/google/uuid"

	"shopchain/core/types"
)

var (
	// ShopAddress is the marketplace namespace root. The legacy monolithic
	// listing container lives directly under this key.
	ShopAddress = types.NamedAddress("market/shop")
	// TreasuryAddress receives the tax cut of every purchase.
	TreasuryAddress = types.NamedAddress("market/treasury")
)

// ShardAddress derives the shard bucket key for a listing. High-volume
// subtypes partition by the first hex character of the order id; low-volume
// costume and title classes share one bucket per subtype. The derivation is a
// pure function of its inputs so rehearsal and replay agree on it without any
// state lookups.
func ShardAddress(subType ItemSubType, orderID uuid.UUID) (types.Address, error) {
	if !subType.Valid() {
		return types.Address{}, fmt.Errorf("%w: unsupported subtype %d", ErrInvalidItemType, subType)
	}
	if subType.shardsByNonce() {
		return ShardNonceAddress(subType, orderID.String()[:1])
	}
	return ShopAddress.Derive(subType.String()), nil
}

// ShardNonceAddress derives a shard bucket key from an explicit nonce. Used
// by indexers enumerating all buckets of a subtype.
func ShardNonceAddress(subType ItemSubType, nonce string) (types.Address, error) {
	if !subType.Valid() {
		return types.Address{}, fmt.Errorf("%w: unsupported subtype %d", ErrInvalidItemType, subType)
	}
	if subType.shardsByNonce() {
		return ShopAddress.Derive(fmt.Sprintf("%s-%s", subType, nonce)), nil
	}
	return ShopAddress.Derive(subType.String()), nil
}

// OrderAddress derives the key holding an order record.
func OrderAddress(orderID uuid.UUID) types.Address {
	return ShopAddress.Derive(orderID.String())
}

// ItemAddress derives the key holding the custody record of a tradable item.
func ItemAddress(tradableID uuid.UUID) types.Address {
	return ShopAddress.Derive("item/" + tradableID.String())
}

// ReceiptAddress derives the key holding the receipt written on a successful
// purchase.
func ReceiptAddress(orderID uuid.UUID) types.Address {
	return ShopAddress.Derive("receipt/" + orderID.String())
}

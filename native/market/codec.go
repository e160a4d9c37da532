package market

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"shopchain/core/types"
)

// Stored record layouts. Every persisted marketplace record round-trips
// through one of these fixed schemas; RLP keeps the encoding canonical, so
// serialize -> deserialize -> serialize is byte-identical and state roots are
// stable across nodes.

type storedAsset struct {
	Ticker        string
	DecimalPlaces uint8
	Amount        *big.Int
}

func newStoredAsset(v types.FungibleAssetValue) storedAsset {
	amount := big.NewInt(0)
	if v.Amount != nil {
		amount = new(big.Int).Set(v.Amount)
	}
	return storedAsset{Ticker: v.Currency.Ticker, DecimalPlaces: v.Currency.DecimalPlaces, Amount: amount}
}

func (s storedAsset) toAsset() types.FungibleAssetValue {
	return types.NewAssetValueFromBig(types.Currency{Ticker: s.Ticker, DecimalPlaces: s.DecimalPlaces}, s.Amount)
}

type storedItem struct {
	SheetID            uint32
	TradableID         uuid.UUID
	SubType            uint8
	Level              uint32
	CombatPoint        uint32
	RequiredBlockIndex uint64
}

func newStoredItem(item TradableItem) storedItem {
	return storedItem{
		SheetID:            item.SheetID,
		TradableID:         item.TradableID,
		SubType:            uint8(item.SubType),
		Level:              item.Level,
		CombatPoint:        item.CombatPoint,
		RequiredBlockIndex: uint64(item.RequiredBlockIndex),
	}
}

func (s storedItem) toItem() (TradableItem, error) {
	subType := ItemSubType(s.SubType)
	if !subType.Valid() {
		return TradableItem{}, fmt.Errorf("%w: stored subtype %d", ErrInvalidItemType, s.SubType)
	}
	return TradableItem{
		SheetID:            s.SheetID,
		TradableID:         s.TradableID,
		SubType:            subType,
		Level:              s.Level,
		CombatPoint:        s.CombatPoint,
		RequiredBlockIndex: int64(s.RequiredBlockIndex),
	}, nil
}

package market

import (
	"fmt"

	"github.com/google/uuid"

	"shopchain/core/events"
	"shopchain/core/state"
	"shopchain/core/types"
)

// Sell lists an item for sale: it validates the seller, moves the stack into
// custody, writes the order record, and registers a digest in the item's
// shard bucket. The whole action aborts on any failure.
type Sell struct {
	SellerAvatarAddress types.Address
	TradableID          uuid.UUID
	ItemCount           int
	Price               types.FungibleAssetValue
	OrderID             uuid.UUID
	ItemSubType         ItemSubType
}

// Execute implements the Action interface.
func (a *Sell) Execute(ctx *ActionContext) (*state.Store, error) {
	if ctx.Rehearsal {
		return ctx.PriorState, nil
	}
	st := ctx.PriorState

	if a.Price.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPrice, a.Price)
	}

	avatar, err := LoadAvatarState(st, ctx.Signer, a.SellerAvatarAddress)
	if err != nil {
		return nil, err
	}
	if !avatar.StageCleared(StageRequirementShop) {
		return nil, fmt.Errorf("%w: cleared %d, need %d",
			ErrNotEnoughClearedStage, avatar.LastClearedStage, StageRequirementShop)
	}

	existing, err := LoadOrder(st, a.OrderID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateOrderID, a.OrderID)
	}

	order, err := CreateOrder(ctx.Signer, a.SellerAvatarAddress, a.OrderID, a.Price,
		a.TradableID, ctx.BlockIndex, a.ItemSubType, a.ItemCount)
	if err != nil {
		return nil, err
	}
	if err := order.Validate(avatar, a.ItemCount); err != nil {
		return nil, err
	}

	locked, err := order.Sell(avatar)
	if err != nil {
		return nil, err
	}
	digest, err := order.Digest(avatar)
	if err != nil {
		return nil, err
	}

	shardAddr, err := ShardAddress(order.ItemSubType, order.OrderID)
	if err != nil {
		return nil, err
	}
	bucket, err := LoadOrderDigestList(st, shardAddr)
	if err != nil {
		return nil, err
	}
	if err := bucket.Add(*digest); err != nil {
		return nil, err
	}

	avatar.AppendMail(NewOrderExpirationMail(order.OrderID, ctx.BlockIndex, order.ExpiredBlockIndex))
	avatar.UpdatedAt = ctx.BlockIndex

	orderRaw, err := order.Serialize()
	if err != nil {
		return nil, err
	}
	itemRaw, err := serializeItem(*locked)
	if err != nil {
		return nil, err
	}
	st = st.SetState(OrderAddress(order.OrderID), orderRaw)
	st = st.SetState(ItemAddress(order.TradableID), itemRaw)
	if st, err = setAvatar(st, avatar); err != nil {
		return nil, err
	}
	if st, err = setDigestList(st, bucket); err != nil {
		return nil, err
	}

	ctx.emitter().Emit(events.OrderListed{
		OrderID:           order.OrderID.String(),
		SellerAgent:       order.SellerAgentAddress,
		SellerAvatar:      order.SellerAvatarAddress,
		Price:             order.Price.Clone(),
		StartedBlockIndex: order.StartedBlockIndex,
		ExpiredBlockIndex: order.ExpiredBlockIndex,
	})
	return st, nil
}

// Rehearse implements the Action interface. The write set is derived from the
// parameters alone; unknown subtypes contribute no shard key and fail in
// Execute instead.
func (a *Sell) Rehearse(ctx *ActionContext) RehearsalReport {
	report := RehearsalReport{
		States: []types.Address{
			a.SellerAvatarAddress,
			OrderAddress(a.OrderID),
			ItemAddress(a.TradableID),
		},
	}
	if shardAddr, err := ShardAddress(a.ItemSubType, a.OrderID); err == nil {
		report.States = append(report.States, shardAddr)
	}
	return report
}

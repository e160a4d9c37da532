package market

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"shopchain/core/events"
	"shopchain/core/state"
	"shopchain/core/types"
)

// SellCancellation delists an order and returns the custody-locked stack to
// the seller's inventory, immediately usable. A listing that is not the
// signer's, or that no longer exists in any container, leaves the state
// untouched so stale cancellations replayed out of order stay harmless.
type SellCancellation struct {
	SellerAvatarAddress types.Address
	OrderID             uuid.UUID
	TradableID          uuid.UUID
	ItemSubType         ItemSubType

	Result *CancelResult
}

// Execute implements the Action interface.
func (a *SellCancellation) Execute(ctx *ActionContext) (*state.Store, error) {
	if ctx.Rehearsal {
		return ctx.PriorState, nil
	}
	st := ctx.PriorState
	a.Result = nil

	avatar, err := LoadAvatarState(st, ctx.Signer, a.SellerAvatarAddress)
	if err != nil {
		return nil, err
	}
	if !avatar.StageCleared(StageRequirementShop) {
		return nil, fmt.Errorf("%w: cleared %d, need %d",
			ErrNotEnoughClearedStage, avatar.LastClearedStage, StageRequirementShop)
	}

	shardAddr, err := ShardAddress(a.ItemSubType, a.OrderID)
	if err != nil {
		return nil, err
	}
	bucket, err := LoadOrderDigestList(st, shardAddr)
	if err != nil {
		return nil, err
	}

	var (
		item       *TradableItem
		itemCount  int
		fromLegacy bool
	)
	if _, ok := bucket.FindBySeller(a.OrderID, ctx.Signer); ok {
		order, err := LoadOrder(st, a.OrderID)
		if err != nil {
			return nil, err
		}
		if order == nil {
			return st, nil
		}
		switch err := order.ValidateCancel(avatar, a.TradableID); {
		case err == nil:
			if item, err = order.Cancel(avatar, ctx.BlockIndex); err != nil {
				return nil, err
			}
			itemCount = order.ItemCount
		case errors.Is(err, ErrItemDoesNotExist):
			// The shard bucket says the listing exists, yet the custody lock
			// is gone. The payload must live in the legacy container; absent
			// from there too means the state is inconsistent, which is a hard
			// failure rather than a no-op.
			if st, item, itemCount, err = a.drainLegacy(st, avatar, ctx.BlockIndex); err != nil {
				return nil, err
			}
			fromLegacy = true
		default:
			return nil, err
		}
		bucket.Remove(a.OrderID)
	} else {
		// No digest for this seller. Listings older than sharding live only
		// in the legacy container; anything else is already gone and the
		// cancellation is a no-op.
		if a.ItemSubType.ShardedOnly() {
			return st, nil
		}
		drained, legacyItem, count, err := a.drainLegacy(st, avatar, ctx.BlockIndex)
		if errors.Is(err, ErrItemDoesNotExist) {
			return st, nil
		}
		if err != nil {
			return nil, err
		}
		st, item, itemCount, fromLegacy = drained, legacyItem, count, true
	}

	avatar.AppendMail(NewCancelMail(ctx.Random.UUID(), a.OrderID, ctx.BlockIndex, *item, itemCount))
	avatar.UpdatedAt = ctx.BlockIndex

	itemRaw, err := serializeItem(*item)
	if err != nil {
		return nil, err
	}
	st = st.SetState(ItemAddress(a.TradableID), itemRaw)
	if st, err = setAvatar(st, avatar); err != nil {
		return nil, err
	}
	if st, err = setDigestList(st, bucket); err != nil {
		return nil, err
	}

	a.Result = &CancelResult{OrderID: a.OrderID, Item: item, ItemCount: itemCount}
	ctx.emitter().Emit(events.OrderCancelled{
		OrderID:      a.OrderID.String(),
		SellerAgent:  ctx.Signer,
		SellerAvatar: a.SellerAvatarAddress,
		BlockIndex:   ctx.BlockIndex,
		FromLegacy:   fromLegacy,
	})
	return st, nil
}

// drainLegacy removes the order's record from the legacy container and hands
// its payload back to the seller, immediately usable at blockIndex.
func (a *SellCancellation) drainLegacy(st *state.Store, avatar *AvatarState, blockIndex int64) (*state.Store, *TradableItem, int, error) {
	if a.ItemSubType.ShardedOnly() {
		return nil, nil, 0, fmt.Errorf("%w: no custody lock for order %s", ErrItemDoesNotExist, a.OrderID)
	}
	shop, err := LoadLegacyShop(st)
	if err != nil {
		return nil, nil, 0, err
	}
	listing, ok := shop.Find(a.OrderID)
	if !ok || listing.SellerAgentAddress != avatar.AgentAddress {
		return nil, nil, 0, fmt.Errorf("%w: order %s absent from every container", ErrItemDoesNotExist, a.OrderID)
	}
	shop.Remove(a.OrderID)
	if st, err = setLegacyShop(st, shop); err != nil {
		return nil, nil, 0, err
	}
	item := listing.Item
	item.RequiredBlockIndex = blockIndex
	avatar.Inventory.AddItem(item, listing.ItemCount)
	return st, &item, listing.ItemCount, nil
}

// Rehearse implements the Action interface.
func (a *SellCancellation) Rehearse(ctx *ActionContext) RehearsalReport {
	report := RehearsalReport{
		States: []types.Address{
			a.SellerAvatarAddress,
			OrderAddress(a.OrderID),
			ItemAddress(a.TradableID),
			ShopAddress,
		},
	}
	if shardAddr, err := ShardAddress(a.ItemSubType, a.OrderID); err == nil {
		report.States = append(report.States, shardAddr)
	}
	return report
}

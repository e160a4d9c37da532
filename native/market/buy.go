package market

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"shopchain/core/events"
	"shopchain/core/state"
	"shopchain/core/types"
)

// PurchaseInfo names one listing a buyer wants, including the expected price.
// The price is part of the request so a seller cannot repriced-swap a listing
// between the buyer's quote and the purchase landing on chain.
type PurchaseInfo struct {
	OrderID             uuid.UUID
	TradableID          uuid.UUID
	SellerAgentAddress  types.Address
	SellerAvatarAddress types.Address
	ItemSubType         ItemSubType
	Price               types.FungibleAssetValue
}

// Buy purchases a batch of listings. Failures before the loop (buyer avatar,
// progress gate) abort the whole action; inside the loop every failure is
// recorded as a per-item result code and the batch carries on. Results for
// each purchase, in processed order, are left on the action after Execute.
type Buy struct {
	BuyerAvatarAddress types.Address
	Purchases          []PurchaseInfo

	PurchaseResults []PurchaseResult
	SellerResults   []SellerResult
}

// Execute implements the Action interface.
func (a *Buy) Execute(ctx *ActionContext) (*state.Store, error) {
	if ctx.Rehearsal {
		return ctx.PriorState, nil
	}
	st := ctx.PriorState
	a.PurchaseResults = nil
	a.SellerResults = nil

	buyer, err := LoadAvatarState(st, ctx.Signer, a.BuyerAvatarAddress)
	if err != nil {
		return nil, err
	}
	if !buyer.StageCleared(StageRequirementShop) {
		return nil, fmt.Errorf("%w: cleared %d, need %d",
			ErrNotEnoughClearedStage, buyer.LastClearedStage, StageRequirementShop)
	}

	// Fixed processing order regardless of how the caller assembled the batch.
	purchases := make([]PurchaseInfo, len(a.Purchases))
	copy(purchases, a.Purchases)
	sort.SliceStable(purchases, func(i, j int) bool {
		return bytes.Compare(purchases[i].OrderID[:], purchases[j].OrderID[:]) < 0
	})

	for _, purchase := range purchases {
		next, result, err := a.purchaseOne(ctx, st, buyer, purchase)
		if err != nil {
			return nil, err
		}
		st = next
		a.PurchaseResults = append(a.PurchaseResults, result)
	}

	buyer.UpdatedAt = ctx.BlockIndex
	if st, err = setAvatar(st, buyer); err != nil {
		return nil, err
	}
	return st, nil
}

// purchaseOne settles a single order. A non-nil error aborts the batch; every
// per-item failure comes back as a result code instead. The returned store
// may differ from the input even on failure: a legacy listing drained during
// lookup stays drained.
func (a *Buy) purchaseOne(ctx *ActionContext, st *state.Store, buyer *AvatarState, purchase PurchaseInfo) (*state.Store, PurchaseResult, error) {
	result := PurchaseResult{OrderID: purchase.OrderID}
	fail := func(code BuyErrorCode) (*state.Store, PurchaseResult, error) {
		result.ErrorCode = code
		return st, result, nil
	}

	if purchase.SellerAgentAddress == ctx.Signer || purchase.SellerAvatarAddress == a.BuyerAvatarAddress {
		return fail(BuyErrorInvalidAddress)
	}

	resolved, next, err := resolveListing(st, listingQuery{
		orderID:      purchase.OrderID,
		sellerAgent:  purchase.SellerAgentAddress,
		sellerAvatar: purchase.SellerAvatarAddress,
		itemSubType:  purchase.ItemSubType,
	})
	if errors.Is(err, ErrItemDoesNotExist) {
		return fail(BuyErrorItemDoesNotExist)
	}
	if err != nil {
		return nil, result, err
	}
	st = next
	order := resolved.order

	if code := order.ValidateTransfer(purchase.SellerAgentAddress, purchase.SellerAvatarAddress,
		purchase.TradableID, purchase.Price, ctx.BlockIndex); code != BuyErrorNone {
		if code == BuyErrorShopItemExpired {
			ctx.emitter().Emit(events.ExpiredListingTouched{
				OrderID:           order.OrderID.String(),
				BuyerAgent:        ctx.Signer,
				BlockIndex:        ctx.BlockIndex,
				ExpiredBlockIndex: order.ExpiredBlockIndex,
			})
		}
		result.ErrorCode = code
		return st, result, nil
	}

	seller, err := LoadAvatarState(st, order.SellerAgentAddress, order.SellerAvatarAddress)
	if err != nil {
		if errors.Is(err, ErrFailedLoadState) {
			result.ErrorCode = BuyErrorFailedLoadingState
			return st, result, nil
		}
		return nil, result, err
	}

	if st.GetBalance(ctx.Signer, order.Price.Currency).Cmp(order.Price.Amount) < 0 {
		result.ErrorCode = BuyErrorInsufficientBalance
		return st, result, nil
	}

	item, ok := order.Transfer(seller, buyer, ctx.BlockIndex)
	if !ok {
		if !resolved.fromLegacy {
			result.ErrorCode = BuyErrorItemDoesNotExist
			return st, result, nil
		}
		// Legacy listings predate custody locks; the payload travels with the
		// container record instead of the seller's inventory.
		legacyItem := *resolved.item
		legacyItem.RequiredBlockIndex = ctx.BlockIndex
		buyer.Inventory.AddItem(legacyItem, resolved.itemCount)
		item = &legacyItem
	}

	tax := order.Tax()
	taxedPrice := order.TaxedPrice()
	if st, err = st.TransferAsset(ctx.Signer, TreasuryAddress, tax); err != nil {
		return nil, result, err
	}
	if st, err = st.TransferAsset(ctx.Signer, order.SellerAgentAddress, taxedPrice); err != nil {
		return nil, result, err
	}

	itemRaw, err := serializeItem(*item)
	if err != nil {
		return nil, result, err
	}
	receipt := &OrderReceipt{
		OrderID:               order.OrderID,
		BuyerAgentAddress:     ctx.Signer,
		BuyerAvatarAddress:    a.BuyerAvatarAddress,
		TransferredBlockIndex: ctx.BlockIndex,
	}
	receiptRaw, err := receipt.Serialize()
	if err != nil {
		return nil, result, err
	}
	st = st.SetState(ItemAddress(order.TradableID), itemRaw)
	st = st.SetState(ReceiptAddress(order.OrderID), receiptRaw)

	buyerMail := NewPurchaseMail(ctx.Random.UUID(), order.OrderID, ctx.BlockIndex, *item, order.ItemCount)
	sellerMail := NewSaleMail(ctx.Random.UUID(), order.OrderID, ctx.BlockIndex, *item, order.ItemCount, taxedPrice)
	buyer.AppendMail(buyerMail)
	seller.AppendMail(sellerMail)
	seller.UpdatedAt = ctx.BlockIndex
	if st, err = setAvatar(st, seller); err != nil {
		return nil, result, err
	}

	if !resolved.fromLegacy {
		shardAddr, err := ShardAddress(order.ItemSubType, order.OrderID)
		if err != nil {
			return nil, result, err
		}
		bucket, err := LoadOrderDigestList(st, shardAddr)
		if err != nil {
			return nil, result, err
		}
		bucket.Remove(order.OrderID)
		if st, err = setDigestList(st, bucket); err != nil {
			return nil, result, err
		}
	}

	result.MailID = buyerMail.ID
	result.Item = item
	result.ItemCount = order.ItemCount
	a.SellerResults = append(a.SellerResults, SellerResult{
		OrderID:      order.OrderID,
		SellerAgent:  order.SellerAgentAddress,
		SellerAvatar: order.SellerAvatarAddress,
		MailID:       sellerMail.ID,
		Gold:         taxedPrice,
		Item:         item,
		ItemCount:    order.ItemCount,
	})

	ctx.emitter().Emit(events.OrderSold{
		OrderID:     order.OrderID.String(),
		BuyerAgent:  ctx.Signer,
		SellerAgent: order.SellerAgentAddress,
		Price:       order.Price.Clone(),
		Tax:         tax,
		BlockIndex:  ctx.BlockIndex,
		FromLegacy:  resolved.fromLegacy,
	})
	return st, result, nil
}

// Rehearse implements the Action interface.
func (a *Buy) Rehearse(ctx *ActionContext) RehearsalReport {
	report := RehearsalReport{
		States:   []types.Address{a.BuyerAvatarAddress, ShopAddress},
		Balances: []types.Address{ctx.Signer, TreasuryAddress},
	}
	for _, purchase := range a.Purchases {
		report.States = append(report.States,
			purchase.SellerAvatarAddress,
			OrderAddress(purchase.OrderID),
			ItemAddress(purchase.TradableID),
			ReceiptAddress(purchase.OrderID),
		)
		if shardAddr, err := ShardAddress(purchase.ItemSubType, purchase.OrderID); err == nil {
			report.States = append(report.States, shardAddr)
		}
		report.Balances = append(report.Balances, purchase.SellerAgentAddress)
	}
	return report
}

package market

import (
	"errors"
	"math/big"
	"testing"

	"shopchain/core/types"
)

func TestBuyTransfersItemTaxAndProceeds(t *testing.T) {
	f := listWeapon(t)
	action, ctx := f.buy(200)
	emitter := &recordingEmitter{}
	ctx.Emitter = emitter

	st, err := action.Execute(ctx)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if len(action.PurchaseResults) != 1 || !action.PurchaseResults[0].Succeeded() {
		t.Fatalf("results = %+v", action.PurchaseResults)
	}

	// Tax on a 100 gold order is floor(100/100)*8 = 8; the seller nets 92.
	if got := st.GetBalance(f.buyerAgent, gold); got.Cmp(big.NewInt(900)) != 0 {
		t.Fatalf("buyer balance = %s, want 900", got)
	}
	if got := st.GetBalance(TreasuryAddress, gold); got.Cmp(big.NewInt(8)) != 0 {
		t.Fatalf("treasury balance = %s, want 8", got)
	}
	if got := st.GetBalance(f.sellerAgent, gold); got.Cmp(big.NewInt(92)) != 0 {
		t.Fatalf("seller balance = %s, want 92", got)
	}

	buyer := loadAvatar(t, st, f.buyerAgent, f.buyerAvatar)
	if !buyer.Inventory.HasTradable(f.tradableID, 200, 1) {
		t.Fatal("buyer did not receive the item usable at the purchase block")
	}
	if len(buyer.Mailbox) != 1 || buyer.Mailbox[0].Kind != MailKindPurchase {
		t.Fatalf("buyer mailbox = %+v", buyer.Mailbox)
	}

	seller := loadAvatar(t, st, f.sellerAgent, f.sellerAvatar)
	if _, ok := seller.Inventory.LockedStack(f.orderID); ok {
		t.Fatal("custody lock survived the sale")
	}
	var saleMail *Mail
	for i := range seller.Mailbox {
		if seller.Mailbox[i].Kind == MailKindSale {
			saleMail = &seller.Mailbox[i]
		}
	}
	if saleMail == nil || saleMail.Gold == nil || saleMail.Gold.Amount.Cmp(big.NewInt(92)) != 0 {
		t.Fatalf("sale mail = %+v, want taxed proceeds of 92", saleMail)
	}

	if _, ok := f.shardBucket(t, st).Find(f.orderID); ok {
		t.Fatal("digest not removed after sale")
	}
	raw := st.GetState(ReceiptAddress(f.orderID))
	if raw == nil {
		t.Fatal("receipt missing")
	}
	receipt, err := DeserializeOrderReceipt(raw)
	if err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	if receipt.BuyerAgentAddress != f.buyerAgent || receipt.TransferredBlockIndex != 200 {
		t.Fatalf("receipt = %+v", receipt)
	}

	if len(emitter.events) != 1 || emitter.events[0].EventType() != "market.sold" {
		t.Fatalf("events = %+v", emitter.events)
	}

	// The snapshot the buy started from still shows the listing.
	if _, ok := f.shardBucket(t, f.st).Find(f.orderID); !ok {
		t.Fatal("prior snapshot lost the listing")
	}
}

func TestBuyTaxRoundsDown(t *testing.T) {
	cases := []struct {
		price int64
		tax   int64
	}{
		{99, 0},
		{100, 8},
		{150, 8},
		{250, 16},
	}
	for _, tc := range cases {
		order := &Order{Price: types.NewAssetValue(gold, tc.price)}
		if got := order.Tax().Amount.Int64(); got != tc.tax {
			t.Errorf("tax(%d) = %d, want %d", tc.price, got, tc.tax)
		}
		if got := order.TaxedPrice().Amount.Int64(); got != tc.price-tc.tax {
			t.Errorf("taxed(%d) = %d, want %d", tc.price, got, tc.price-tc.tax)
		}
	}
}

func TestBuyExpiredListing(t *testing.T) {
	f := listWeapon(t)
	expiredAt := f.listedAt + ExpirationInterval

	action, ctx := f.buy(expiredAt + 1)
	emitter := &recordingEmitter{}
	ctx.Emitter = emitter
	st, err := action.Execute(ctx)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if got := action.PurchaseResults[0].ErrorCode; got != BuyErrorShopItemExpired {
		t.Fatalf("code = %v, want ShopItemExpired", got)
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType() != "market.expired_listing_touched" {
		t.Fatalf("events = %+v, want an expired-listing touch", emitter.events)
	}

	// Expiration blocks the purchase but never the cancellation.
	f.st = st
	cancel, cctx := f.cancel(expiredAt + 2)
	st, err = cancel.Execute(cctx)
	if err != nil {
		t.Fatalf("cancel after expiry: %v", err)
	}
	if cancel.Result == nil {
		t.Fatal("cancel after expiry was a no-op")
	}
	seller := loadAvatar(t, st, f.sellerAgent, f.sellerAvatar)
	if !seller.Inventory.HasTradable(f.tradableID, expiredAt+2, 1) {
		t.Fatal("item not returned to seller inventory")
	}
}

func TestBuyAtExactExpirationBlockSucceeds(t *testing.T) {
	f := listWeapon(t)
	action, ctx := f.buy(f.listedAt + ExpirationInterval)
	if _, err := action.Execute(ctx); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if !action.PurchaseResults[0].Succeeded() {
		t.Fatalf("code = %v, want success at the expiration block itself", action.PurchaseResults[0].ErrorCode)
	}
}

func TestBuyOwnListingRejected(t *testing.T) {
	f := listWeapon(t)
	action, ctx := f.buy(200)
	ctx.Signer = f.sellerAgent
	action.BuyerAvatarAddress = f.sellerAvatar

	if _, err := action.Execute(ctx); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if got := action.PurchaseResults[0].ErrorCode; got != BuyErrorInvalidAddress {
		t.Fatalf("code = %v, want InvalidAddress", got)
	}
}

func TestBuyInsufficientBalance(t *testing.T) {
	f := listWeapon(t)
	poorAgent := addrOf(0x05)
	poorAvatar := addrOf(0x06)
	f.st = seedAvatar(t, f.st, poorAgent, poorAvatar, StageRequirementShop)
	f.st = mint(t, f.st, poorAgent, 99)

	action, ctx := f.buy(200)
	ctx.Signer = poorAgent
	action.BuyerAvatarAddress = poorAvatar

	st, err := action.Execute(ctx)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if got := action.PurchaseResults[0].ErrorCode; got != BuyErrorInsufficientBalance {
		t.Fatalf("code = %v, want InsufficientBalance", got)
	}
	// The listing survives the failed purchase.
	if _, ok := f.shardBucket(t, st).Find(f.orderID); !ok {
		t.Fatal("listing lost on failed purchase")
	}
}

func TestBuyUnknownBuyerAvatarAborts(t *testing.T) {
	f := listWeapon(t)
	action, ctx := f.buy(200)
	action.BuyerAvatarAddress = addrOf(0x77)

	_, err := action.Execute(ctx)
	if !errors.Is(err, ErrFailedLoadState) {
		t.Fatalf("err = %v, want ErrFailedLoadState", err)
	}
}

func TestBuyBatchContinuesPastFailures(t *testing.T) {
	f := listWeapon(t)

	// Second listing from the same seller, plus a phantom order id between
	// the two real ones so the sorted batch fails in the middle.
	secondTradable := mustUUID("aaaaaaaa-0000-0000-0000-000000000002")
	secondOrder := mustUUID("31111111-0000-0000-0000-000000000001")
	phantomOrder := mustUUID("21111111-0000-0000-0000-000000000001")

	seller := loadAvatar(t, f.st, f.sellerAgent, f.sellerAvatar)
	seller.Inventory.AddItem(weaponItem(secondTradable), 1)
	st, err := setAvatar(f.st, seller)
	if err != nil {
		t.Fatalf("seed second item: %v", err)
	}
	sell := &Sell{
		SellerAvatarAddress: f.sellerAvatar,
		TradableID:          secondTradable,
		ItemCount:           1,
		Price:               types.NewAssetValue(gold, 100),
		OrderID:             secondOrder,
		ItemSubType:         ItemSubTypeWeapon,
	}
	if st, err = sell.Execute(newContext(st, 150, f.sellerAgent)); err != nil {
		t.Fatalf("second sell: %v", err)
	}

	action := &Buy{
		BuyerAvatarAddress: f.buyerAvatar,
		Purchases: []PurchaseInfo{
			{
				OrderID:             secondOrder,
				TradableID:          secondTradable,
				SellerAgentAddress:  f.sellerAgent,
				SellerAvatarAddress: f.sellerAvatar,
				ItemSubType:         ItemSubTypeWeapon,
				Price:               types.NewAssetValue(gold, 100),
			},
			{
				OrderID:             phantomOrder,
				TradableID:          mustUUID("aaaaaaaa-0000-0000-0000-000000000003"),
				SellerAgentAddress:  f.sellerAgent,
				SellerAvatarAddress: f.sellerAvatar,
				ItemSubType:         ItemSubTypeWeapon,
				Price:               types.NewAssetValue(gold, 100),
			},
			{
				OrderID:             f.orderID,
				TradableID:          f.tradableID,
				SellerAgentAddress:  f.sellerAgent,
				SellerAvatarAddress: f.sellerAvatar,
				ItemSubType:         ItemSubTypeWeapon,
				Price:               f.price.Clone(),
			},
		},
	}
	st, err = action.Execute(newContext(st, 200, f.buyerAgent))
	if err != nil {
		t.Fatalf("batch buy: %v", err)
	}

	// Processing order is by order id, independent of request order.
	want := []struct {
		order string
		code  BuyErrorCode
	}{
		{f.orderID.String(), BuyErrorNone},
		{phantomOrder.String(), BuyErrorItemDoesNotExist},
		{secondOrder.String(), BuyErrorNone},
	}
	if len(action.PurchaseResults) != len(want) {
		t.Fatalf("results = %+v", action.PurchaseResults)
	}
	for i, w := range want {
		got := action.PurchaseResults[i]
		if got.OrderID.String() != w.order || got.ErrorCode != w.code {
			t.Fatalf("result[%d] = %s/%v, want %s/%v", i, got.OrderID, got.ErrorCode, w.order, w.code)
		}
	}

	// Both successes settled: 2 x (8 tax + 92 proceeds).
	if got := st.GetBalance(TreasuryAddress, gold); got.Cmp(big.NewInt(16)) != 0 {
		t.Fatalf("treasury = %s, want 16", got)
	}
	if got := st.GetBalance(f.sellerAgent, gold); got.Cmp(big.NewInt(184)) != 0 {
		t.Fatalf("seller = %s, want 184", got)
	}
	buyer := loadAvatar(t, st, f.buyerAgent, f.buyerAvatar)
	if len(buyer.Mailbox) != 2 {
		t.Fatalf("buyer mailbox = %+v, want two purchase mails", buyer.Mailbox)
	}
}

func TestBuyRequiresClearedStage(t *testing.T) {
	f := listWeapon(t)
	gatedAgent := addrOf(0x07)
	gatedAvatar := addrOf(0x08)
	f.st = seedAvatar(t, f.st, gatedAgent, gatedAvatar, StageRequirementShop-1)
	f.st = mint(t, f.st, gatedAgent, 1000)

	action, ctx := f.buy(200)
	ctx.Signer = gatedAgent
	action.BuyerAvatarAddress = gatedAvatar

	_, err := action.Execute(ctx)
	if !errors.Is(err, ErrNotEnoughClearedStage) {
		t.Fatalf("err = %v, want ErrNotEnoughClearedStage", err)
	}
}

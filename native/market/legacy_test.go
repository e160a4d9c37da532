package market

import (
	"errors"
	"math/big"
	"testing"

	"github.com/google/uuid"

	"shopchain/core/state"
	"shopchain/core/types"
)

var legacyTradableID = mustUUID("aaaaaaaa-0000-0000-0000-00000000000a")

func seedLegacyListing(t *testing.T, st *state.Store, f *fixture, orderID uuid.UUID, price int64) *state.Store {
	t.Helper()
	shop, err := LoadLegacyShop(st)
	if err != nil {
		t.Fatalf("load legacy shop: %v", err)
	}
	shop.Add(LegacyListing{
		ProductID:           orderID,
		SellerAgentAddress:  f.sellerAgent,
		SellerAvatarAddress: f.sellerAvatar,
		Price:               types.NewAssetValue(gold, price),
		Item:                weaponItem(legacyTradableID),
		ItemCount:           1,
		ExpiredBlockIndex:   50000,
	})
	st, err = setLegacyShop(st, shop)
	if err != nil {
		t.Fatalf("seed legacy shop: %v", err)
	}
	return st
}

func TestBuyLegacyListingMigratesOnTouch(t *testing.T) {
	f := listWeapon(t)
	legacyOrder := mustUUID("51111111-0000-0000-0000-000000000001")
	f.st = seedLegacyListing(t, f.st, f, legacyOrder, 100)

	action := &Buy{
		BuyerAvatarAddress: f.buyerAvatar,
		Purchases: []PurchaseInfo{{
			OrderID:             legacyOrder,
			TradableID:          legacyTradableID,
			SellerAgentAddress:  f.sellerAgent,
			SellerAvatarAddress: f.sellerAvatar,
			ItemSubType:         ItemSubTypeWeapon,
			Price:               types.NewAssetValue(gold, 100),
		}},
	}
	st, err := action.Execute(newContext(f.st, 200, f.buyerAgent))
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if !action.PurchaseResults[0].Succeeded() {
		t.Fatalf("code = %v", action.PurchaseResults[0].ErrorCode)
	}

	buyer := loadAvatar(t, st, f.buyerAgent, f.buyerAvatar)
	if !buyer.Inventory.HasTradable(legacyTradableID, 200, 1) {
		t.Fatal("buyer did not receive the legacy item")
	}
	if got := st.GetBalance(f.sellerAgent, gold); got.Cmp(big.NewInt(92)) != 0 {
		t.Fatalf("seller proceeds = %s, want 92", got)
	}

	shop, err := LoadLegacyShop(st)
	if err != nil {
		t.Fatalf("reload legacy shop: %v", err)
	}
	if _, ok := shop.Find(legacyOrder); ok {
		t.Fatal("legacy record survived the purchase")
	}

	// The record migrated out exactly once: a replayed purchase misses.
	again := &Buy{BuyerAvatarAddress: f.buyerAvatar, Purchases: action.Purchases}
	if _, err := again.Execute(newContext(st, 201, f.buyerAgent)); err != nil {
		t.Fatalf("second buy: %v", err)
	}
	if got := again.PurchaseResults[0].ErrorCode; got != BuyErrorItemDoesNotExist {
		t.Fatalf("code = %v, want ItemDoesNotExist", got)
	}
}

func TestBuyLegacyDrainPersistsPastItemFailure(t *testing.T) {
	f := listWeapon(t)
	legacyOrder := mustUUID("61111111-0000-0000-0000-000000000001")
	f.st = seedLegacyListing(t, f.st, f, legacyOrder, 100)

	action := &Buy{
		BuyerAvatarAddress: f.buyerAvatar,
		Purchases: []PurchaseInfo{{
			OrderID:             legacyOrder,
			TradableID:          legacyTradableID,
			SellerAgentAddress:  f.sellerAgent,
			SellerAvatarAddress: f.sellerAvatar,
			ItemSubType:         ItemSubTypeWeapon,
			Price:               types.NewAssetValue(gold, 42), // stale quote
		}},
	}
	st, err := action.Execute(newContext(f.st, 200, f.buyerAgent))
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if got := action.PurchaseResults[0].ErrorCode; got != BuyErrorInvalidPrice {
		t.Fatalf("code = %v, want InvalidPrice", got)
	}

	// The migration out of the legacy container sticks even though the
	// purchase itself failed.
	shop, err := LoadLegacyShop(st)
	if err != nil {
		t.Fatalf("reload legacy shop: %v", err)
	}
	if _, ok := shop.Find(legacyOrder); ok {
		t.Fatal("legacy record should be drained by the lookup")
	}
}

func TestSellCancellationLegacyOnlyListing(t *testing.T) {
	f := listWeapon(t)
	legacyOrder := mustUUID("71111111-0000-0000-0000-000000000001")
	f.st = seedLegacyListing(t, f.st, f, legacyOrder, 100)

	cancel := &SellCancellation{
		SellerAvatarAddress: f.sellerAvatar,
		OrderID:             legacyOrder,
		TradableID:          legacyTradableID,
		ItemSubType:         ItemSubTypeWeapon,
	}
	st, err := cancel.Execute(newContext(f.st, 300, f.sellerAgent))
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancel.Result == nil || cancel.Result.ItemCount != 1 {
		t.Fatalf("result = %+v", cancel.Result)
	}

	seller := loadAvatar(t, st, f.sellerAgent, f.sellerAvatar)
	if !seller.Inventory.HasTradable(legacyTradableID, 300, 1) {
		t.Fatal("legacy item not returned to inventory")
	}
	shop, err := LoadLegacyShop(st)
	if err != nil {
		t.Fatalf("reload legacy shop: %v", err)
	}
	if _, ok := shop.Find(legacyOrder); ok {
		t.Fatal("legacy record survived the cancellation")
	}
}

func TestSellCancellationLegacyMissingEverywhereFails(t *testing.T) {
	f := listWeapon(t)

	// Corrupt the seller: digest and order exist, custody lock does not, and
	// there is no legacy record to fall back to.
	seller := loadAvatar(t, f.st, f.sellerAgent, f.sellerAvatar)
	if _, ok := seller.Inventory.RemoveLocked(f.orderID); !ok {
		t.Fatal("fixture lock missing")
	}
	st, err := setAvatar(f.st, seller)
	if err != nil {
		t.Fatalf("corrupt avatar: %v", err)
	}
	f.st = st

	cancel, ctx := f.cancel(300)
	_, err = cancel.Execute(ctx)
	if !errors.Is(err, ErrItemDoesNotExist) {
		t.Fatalf("err = %v, want ErrItemDoesNotExist", err)
	}
}

func TestLegacyShopRoundTrip(t *testing.T) {
	shop := &LegacyShopState{}
	a := mustUUID("22222222-0000-0000-0000-000000000001")
	b := mustUUID("11111111-0000-0000-0000-000000000001")
	for _, id := range []uuid.UUID{a, b} {
		shop.Add(LegacyListing{
			ProductID:          id,
			SellerAgentAddress: addrOf(0x01),
			Price:              types.NewAssetValue(gold, 10),
			Item:               weaponItem(id),
			ItemCount:          1,
			ExpiredBlockIndex:  100,
		})
	}
	// Insertion keeps product id order regardless of Add order.
	if shop.Listings[0].ProductID != b {
		t.Fatalf("listings not sorted: %+v", shop.Listings)
	}
	raw, err := shop.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	decoded, err := DeserializeLegacyShop(raw)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	raw2, err := decoded.Serialize()
	if err != nil {
		t.Fatalf("reserialize: %v", err)
	}
	if string(raw) != string(raw2) {
		t.Fatal("encoding is not canonical across a round trip")
	}
}

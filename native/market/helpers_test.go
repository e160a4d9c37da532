package market

import (
	"testing"

	"github.com/google/uuid"

	"shopchain/core/events"
	"shopchain/core/state"
	"shopchain/core/types"
)

var gold = types.Currency{Ticker: "GOLD", DecimalPlaces: 2}

func addrOf(b byte) types.Address {
	var a types.Address
	a[types.AddressLength-1] = b
	return a
}

func mustUUID(s string) uuid.UUID { return uuid.MustParse(s) }

func weaponItem(tradableID uuid.UUID) TradableItem {
	return TradableItem{
		SheetID:     10100000,
		TradableID:  tradableID,
		SubType:     ItemSubTypeWeapon,
		Level:       3,
		CombatPoint: 500,
	}
}

func seedAvatar(t *testing.T, st *state.Store, agent, avatarAddr types.Address, stage uint32, stacks ...Stack) *state.Store {
	t.Helper()
	avatar := NewAvatarState(agent, avatarAddr, stage)
	avatar.Inventory.Stacks = stacks
	st, err := setAvatar(st, avatar)
	if err != nil {
		t.Fatalf("seed avatar: %v", err)
	}
	return st
}

func loadAvatar(t *testing.T, st *state.Store, agent, avatarAddr types.Address) *AvatarState {
	t.Helper()
	avatar, err := LoadAvatarState(st, agent, avatarAddr)
	if err != nil {
		t.Fatalf("load avatar: %v", err)
	}
	return avatar
}

func mint(t *testing.T, st *state.Store, addr types.Address, amount int64) *state.Store {
	t.Helper()
	st, err := st.MintAsset(addr, types.NewAssetValue(gold, amount))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	return st
}

type recordingEmitter struct {
	events []events.Event
}

func (e *recordingEmitter) Emit(ev events.Event) { e.events = append(e.events, ev) }

func newContext(st *state.Store, blockIndex int64, signer types.Address) *ActionContext {
	return &ActionContext{
		PriorState: st,
		BlockIndex: blockIndex,
		Signer:     signer,
		Random:     NewRandom(blockIndex),
	}
}

// fixture is a listed weapon ready to be bought or cancelled.
type fixture struct {
	sellerAgent  types.Address
	sellerAvatar types.Address
	buyerAgent   types.Address
	buyerAvatar  types.Address
	tradableID   uuid.UUID
	orderID      uuid.UUID
	price        types.FungibleAssetValue
	listedAt     int64
	st           *state.Store
}

// listWeapon seeds a seller with one weapon and lists it at block 100 for 100
// gold, plus a funded buyer ready to purchase.
func listWeapon(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		sellerAgent:  addrOf(0x01),
		sellerAvatar: addrOf(0x02),
		buyerAgent:   addrOf(0x03),
		buyerAvatar:  addrOf(0x04),
		tradableID:   mustUUID("aaaaaaaa-0000-0000-0000-000000000001"),
		orderID:      mustUUID("11111111-0000-0000-0000-000000000001"),
		price:        types.NewAssetValue(gold, 100),
		listedAt:     100,
	}
	st := state.NewStore()
	st = seedAvatar(t, st, f.sellerAgent, f.sellerAvatar, StageRequirementShop,
		Stack{Item: weaponItem(f.tradableID), Count: 1})
	st = seedAvatar(t, st, f.buyerAgent, f.buyerAvatar, StageRequirementShop)
	st = mint(t, st, f.buyerAgent, 1000)

	sell := &Sell{
		SellerAvatarAddress: f.sellerAvatar,
		TradableID:          f.tradableID,
		ItemCount:           1,
		Price:               f.price.Clone(),
		OrderID:             f.orderID,
		ItemSubType:         ItemSubTypeWeapon,
	}
	next, err := sell.Execute(newContext(st, f.listedAt, f.sellerAgent))
	if err != nil {
		t.Fatalf("list weapon: %v", err)
	}
	f.st = next
	return f
}

func (f *fixture) shardBucket(t *testing.T, st *state.Store) *OrderDigestList {
	t.Helper()
	shardAddr, err := ShardAddress(ItemSubTypeWeapon, f.orderID)
	if err != nil {
		t.Fatalf("shard address: %v", err)
	}
	bucket, err := LoadOrderDigestList(st, shardAddr)
	if err != nil {
		t.Fatalf("load bucket: %v", err)
	}
	return bucket
}

func (f *fixture) buy(blockIndex int64) (*Buy, *ActionContext) {
	action := &Buy{
		BuyerAvatarAddress: f.buyerAvatar,
		Purchases: []PurchaseInfo{{
			OrderID:             f.orderID,
			TradableID:          f.tradableID,
			SellerAgentAddress:  f.sellerAgent,
			SellerAvatarAddress: f.sellerAvatar,
			ItemSubType:         ItemSubTypeWeapon,
			Price:               f.price.Clone(),
		}},
	}
	return action, newContext(f.st, blockIndex, f.buyerAgent)
}

func (f *fixture) cancel(blockIndex int64) (*SellCancellation, *ActionContext) {
	action := &SellCancellation{
		SellerAvatarAddress: f.sellerAvatar,
		OrderID:             f.orderID,
		TradableID:          f.tradableID,
		ItemSubType:         ItemSubTypeWeapon,
	}
	return action, newContext(f.st, blockIndex, f.sellerAgent)
}

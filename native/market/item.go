package market

import (
	"github.com/google/uuid"
)

// ItemSubType drives which shard bucket a listing lives in and whether the
// underlying stack is fungible.
type ItemSubType uint8

const (
	ItemSubTypeWeapon ItemSubType = iota + 1
	ItemSubTypeArmor
	ItemSubTypeBelt
	ItemSubTypeNecklace
	ItemSubTypeRing
	ItemSubTypeFood
	ItemSubTypeFullCostume
	ItemSubTypeHairCostume
	ItemSubTypeEarCostume
	ItemSubTypeEyeCostume
	ItemSubTypeTailCostume
	ItemSubTypeTitle
	ItemSubTypeHourglass
	ItemSubTypeApStone
)

// Valid reports whether the subtype is a known value.
func (t ItemSubType) Valid() bool {
	return t >= ItemSubTypeWeapon && t <= ItemSubTypeApStone
}

// Fungible reports whether stacks of this subtype carry a count greater than
// one. Everything else trades as a single non-fungible item.
func (t ItemSubType) Fungible() bool {
	return t == ItemSubTypeHourglass || t == ItemSubTypeApStone
}

// ShardedOnly reports whether listings of this subtype were introduced after
// sharding and therefore never have a legacy-container fallback.
func (t ItemSubType) ShardedOnly() bool {
	return t.Fungible()
}

// shardsByNonce reports whether the subtype's bucket is partitioned by the
// first hex character of the order id. Low-volume costume and title classes
// share one bucket per subtype instead.
func (t ItemSubType) shardsByNonce() bool {
	switch t {
	case ItemSubTypeWeapon, ItemSubTypeArmor, ItemSubTypeBelt, ItemSubTypeNecklace,
		ItemSubTypeRing, ItemSubTypeFood, ItemSubTypeHourglass, ItemSubTypeApStone:
		return true
	default:
		return false
	}
}

func (t ItemSubType) String() string {
	switch t {
	case ItemSubTypeWeapon:
		return "Weapon"
	case ItemSubTypeArmor:
		return "Armor"
	case ItemSubTypeBelt:
		return "Belt"
	case ItemSubTypeNecklace:
		return "Necklace"
	case ItemSubTypeRing:
		return "Ring"
	case ItemSubTypeFood:
		return "Food"
	case ItemSubTypeFullCostume:
		return "FullCostume"
	case ItemSubTypeHairCostume:
		return "HairCostume"
	case ItemSubTypeEarCostume:
		return "EarCostume"
	case ItemSubTypeEyeCostume:
		return "EyeCostume"
	case ItemSubTypeTailCostume:
		return "TailCostume"
	case ItemSubTypeTitle:
		return "Title"
	case ItemSubTypeHourglass:
		return "Hourglass"
	case ItemSubTypeApStone:
		return "ApStone"
	default:
		return "Unknown"
	}
}

// TradableItem is one tradable inventory entry. RequiredBlockIndex gates when
// the item becomes usable; custody locking sets it to the order's expiration.
type TradableItem struct {
	SheetID            uint32
	TradableID         uuid.UUID
	SubType            ItemSubType
	Level              uint32
	CombatPoint        uint32
	RequiredBlockIndex int64
}

// Stack is a quantity of one tradable item, optionally custody-locked by an
// order id while listed for sale.
type Stack struct {
	Item  TradableItem
	Count int
	Lock  *uuid.UUID
}

// Locked reports whether the stack is under a custody lock.
func (s *Stack) Locked() bool { return s.Lock != nil }

// Inventory holds an avatar's tradable stacks. Slice order is part of the
// persisted state, so traversals are deterministic by construction.
type Inventory struct {
	Stacks []Stack
}

// findTradable returns the indices of unlocked stacks matching tradableID
// whose availability gate is at or before maxRequired, stopping once count is
// covered. ok is false when the available quantity is insufficient.
func (inv *Inventory) findTradable(tradableID uuid.UUID, maxRequired int64, count int) ([]int, bool) {
	var indices []int
	remaining := count
	for i := range inv.Stacks {
		stack := &inv.Stacks[i]
		if stack.Locked() || stack.Item.TradableID != tradableID || stack.Item.RequiredBlockIndex > maxRequired {
			continue
		}
		indices = append(indices, i)
		remaining -= stack.Count
		if remaining <= 0 {
			return indices, true
		}
	}
	return nil, false
}

// HasTradable reports whether count units of tradableID are available (not
// locked, usable at or before maxRequired).
func (inv *Inventory) HasTradable(tradableID uuid.UUID, maxRequired int64, count int) bool {
	_, ok := inv.findTradable(tradableID, maxRequired, count)
	return ok
}

// TradableStacks returns the stacks that would satisfy a removal of count
// units, in traversal order.
func (inv *Inventory) TradableStacks(tradableID uuid.UUID, maxRequired int64, count int) ([]*Stack, bool) {
	indices, ok := inv.findTradable(tradableID, maxRequired, count)
	if !ok {
		return nil, false
	}
	stacks := make([]*Stack, 0, len(indices))
	for _, i := range indices {
		stacks = append(stacks, &inv.Stacks[i])
	}
	return stacks, true
}

// RemoveTradable consumes count units across matching unlocked stacks,
// dropping emptied stacks. It returns false (and leaves the inventory
// untouched) when the available quantity is insufficient.
func (inv *Inventory) RemoveTradable(tradableID uuid.UUID, maxRequired int64, count int) bool {
	indices, ok := inv.findTradable(tradableID, maxRequired, count)
	if !ok {
		return false
	}
	remaining := count
	for _, i := range indices {
		stack := &inv.Stacks[i]
		take := stack.Count
		if take > remaining {
			take = remaining
		}
		stack.Count -= take
		remaining -= take
		if remaining == 0 {
			break
		}
	}
	inv.compact()
	return true
}

// AddItem merges count units into an unlocked stack with the same tradable id
// and availability gate, or appends a new stack.
func (inv *Inventory) AddItem(item TradableItem, count int) {
	for i := range inv.Stacks {
		stack := &inv.Stacks[i]
		if stack.Locked() {
			continue
		}
		if stack.Item.TradableID == item.TradableID && stack.Item.RequiredBlockIndex == item.RequiredBlockIndex {
			stack.Count += count
			return
		}
	}
	inv.Stacks = append(inv.Stacks, Stack{Item: item, Count: count})
}

// AddLocked appends a custody-locked stack tagged with orderID.
func (inv *Inventory) AddLocked(item TradableItem, count int, orderID uuid.UUID) {
	lock := orderID
	inv.Stacks = append(inv.Stacks, Stack{Item: item, Count: count, Lock: &lock})
}

// LockedStack returns the stack custody-locked by orderID.
func (inv *Inventory) LockedStack(orderID uuid.UUID) (*Stack, bool) {
	for i := range inv.Stacks {
		stack := &inv.Stacks[i]
		if stack.Locked() && *stack.Lock == orderID {
			return stack, true
		}
	}
	return nil, false
}

// RemoveLocked removes and returns the stack custody-locked by orderID.
func (inv *Inventory) RemoveLocked(orderID uuid.UUID) (Stack, bool) {
	for i := range inv.Stacks {
		stack := inv.Stacks[i]
		if stack.Locked() && *stack.Lock == orderID {
			inv.Stacks = append(inv.Stacks[:i], inv.Stacks[i+1:]...)
			return stack, true
		}
	}
	return Stack{}, false
}

func (inv *Inventory) compact() {
	kept := inv.Stacks[:0]
	for _, stack := range inv.Stacks {
		if stack.Count > 0 {
			kept = append(kept, stack)
		}
	}
	inv.Stacks = kept
}

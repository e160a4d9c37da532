package market

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/google/uuid"

	"shopchain/core/state"
	"shopchain/core/types"
)

// StageRequirementShop is the minimum cleared stage before an avatar may act
// in the shop, applied to sellers and buyers alike.
const StageRequirementShop uint32 = 17

// AvatarState is the slice of an avatar the marketplace touches: identity,
// tradable inventory, mailbox, and world progress. It is stored under the
// avatar address; the agent address binds it to its owning account.
type AvatarState struct {
	AgentAddress     types.Address
	AvatarAddress    types.Address
	LastClearedStage uint32
	UpdatedAt        int64
	Inventory        Inventory
	Mailbox          []Mail
}

// NewAvatarState creates an empty avatar owned by agent.
func NewAvatarState(agent, avatar types.Address, lastClearedStage uint32) *AvatarState {
	return &AvatarState{
		AgentAddress:     agent,
		AvatarAddress:    avatar,
		LastClearedStage: lastClearedStage,
	}
}

// StageCleared reports whether the avatar's world progress reaches stage.
func (a *AvatarState) StageCleared(stage uint32) bool {
	return a.LastClearedStage >= stage
}

// AppendMail adds a typed record to the avatar's mailbox.
func (a *AvatarState) AppendMail(mail Mail) {
	a.Mailbox = append(a.Mailbox, mail)
}

// LoadAvatarState reads the avatar at avatarAddr and verifies it belongs to
// agent. A missing record or ownership mismatch yields ErrFailedLoadState.
func LoadAvatarState(st *state.Store, agent, avatarAddr types.Address) (*AvatarState, error) {
	raw := st.GetState(avatarAddr)
	if raw == nil {
		return nil, fmt.Errorf("%w: avatar %s", ErrFailedLoadState, avatarAddr)
	}
	avatar, err := DeserializeAvatarState(raw)
	if err != nil {
		return nil, err
	}
	if avatar.AgentAddress != agent || avatar.AvatarAddress != avatarAddr {
		return nil, fmt.Errorf("%w: avatar %s is not owned by %s", ErrFailedLoadState, avatarAddr, agent)
	}
	return avatar, nil
}

type storedStack struct {
	Item   storedItem
	Count  uint32
	Locked bool
	LockID uuid.UUID
}

type storedMail struct {
	ID                uuid.UUID
	Kind              uint8
	BlockIndex        uint64
	OrderID           uuid.UUID
	ExpiredBlockIndex uint64
	HasItem           bool
	Item              storedItem
	ItemCount         uint32
	HasGold           bool
	Gold              storedAsset
}

type storedAvatar struct {
	AgentAddress     types.Address
	AvatarAddress    types.Address
	LastClearedStage uint32
	UpdatedAt        uint64
	Stacks           []storedStack
	Mails            []storedMail
}

// Serialize encodes the avatar into its canonical stored form.
func (a *AvatarState) Serialize() ([]byte, error) {
	stored := storedAvatar{
		AgentAddress:     a.AgentAddress,
		AvatarAddress:    a.AvatarAddress,
		LastClearedStage: a.LastClearedStage,
		UpdatedAt:        uint64(a.UpdatedAt),
		Stacks:           make([]storedStack, 0, len(a.Inventory.Stacks)),
		Mails:            make([]storedMail, 0, len(a.Mailbox)),
	}
	for _, stack := range a.Inventory.Stacks {
		entry := storedStack{Item: newStoredItem(stack.Item), Count: uint32(stack.Count)}
		if stack.Lock != nil {
			entry.Locked = true
			entry.LockID = *stack.Lock
		}
		stored.Stacks = append(stored.Stacks, entry)
	}
	for _, mail := range a.Mailbox {
		entry := storedMail{
			ID:                mail.ID,
			Kind:              uint8(mail.Kind),
			BlockIndex:        uint64(mail.BlockIndex),
			OrderID:           mail.OrderID,
			ExpiredBlockIndex: uint64(mail.ExpiredBlockIndex),
			ItemCount:         uint32(mail.ItemCount),
		}
		if mail.Item != nil {
			entry.HasItem = true
			entry.Item = newStoredItem(*mail.Item)
		}
		if mail.Gold != nil {
			entry.HasGold = true
			entry.Gold = newStoredAsset(*mail.Gold)
		}
		stored.Mails = append(stored.Mails, entry)
	}
	return rlp.EncodeToBytes(&stored)
}

// DeserializeAvatarState decodes an avatar record.
func DeserializeAvatarState(raw []byte) (*AvatarState, error) {
	stored := new(storedAvatar)
	if err := rlp.DecodeBytes(raw, stored); err != nil {
		return nil, fmt.Errorf("market: decode avatar: %w", err)
	}
	avatar := &AvatarState{
		AgentAddress:     stored.AgentAddress,
		AvatarAddress:    stored.AvatarAddress,
		LastClearedStage: stored.LastClearedStage,
		UpdatedAt:        int64(stored.UpdatedAt),
	}
	for _, entry := range stored.Stacks {
		item, err := entry.Item.toItem()
		if err != nil {
			return nil, err
		}
		stack := Stack{Item: item, Count: int(entry.Count)}
		if entry.Locked {
			lock := entry.LockID
			stack.Lock = &lock
		}
		avatar.Inventory.Stacks = append(avatar.Inventory.Stacks, stack)
	}
	for _, entry := range stored.Mails {
		mail := Mail{
			ID:                entry.ID,
			Kind:              MailKind(entry.Kind),
			BlockIndex:        int64(entry.BlockIndex),
			OrderID:           entry.OrderID,
			ExpiredBlockIndex: int64(entry.ExpiredBlockIndex),
			ItemCount:         int(entry.ItemCount),
		}
		if entry.HasItem {
			item, err := entry.Item.toItem()
			if err != nil {
				return nil, err
			}
			mail.Item = &item
		}
		if entry.HasGold {
			gold := entry.Gold.toAsset()
			mail.Gold = &gold
		}
		avatar.Mailbox = append(avatar.Mailbox, mail)
	}
	return avatar, nil
}

// setAvatar persists the avatar under its address.
func setAvatar(st *state.Store, avatar *AvatarState) (*state.Store, error) {
	raw, err := avatar.Serialize()
	if err != nil {
		return nil, err
	}
	return st.SetState(avatar.AvatarAddress, raw), nil
}

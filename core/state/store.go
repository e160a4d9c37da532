package state

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"shopchain/core/types"
	"shopchain/storage/trie"
)

var (
	// ErrInsufficientBalance marks transfers exceeding the sender's funds.
	ErrInsufficientBalance = errors.New("state: insufficient balance")
	// ErrNegativeAmount marks transfers or mints of a negative amount.
	ErrNegativeAmount = errors.New("state: negative amount")
)

// BalanceKey identifies one (address, currency) ledger entry.
type BalanceKey struct {
	Address types.Address
	Ticker  string
}

// Store is a persistent key/value state snapshot. Every mutation returns a new
// Store sharing structure with its parent; the old value stays valid, so a
// failed action simply discards the child snapshots and the prior state
// stands. A Store is immutable after construction and safe to share.
type Store struct {
	parent   *Store
	states   map[types.Address][]byte
	balances map[BalanceKey]*big.Int
}

// NewStore returns an empty state snapshot.
func NewStore() *Store {
	return &Store{}
}

// GetState returns the raw record stored at addr, or nil when absent. The
// returned slice must not be mutated.
func (s *Store) GetState(addr types.Address) []byte {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.states == nil {
			continue
		}
		if raw, ok := cur.states[addr]; ok {
			return raw
		}
	}
	return nil
}

// SetState returns a new snapshot with addr bound to raw.
func (s *Store) SetState(addr types.Address, raw []byte) *Store {
	return &Store{
		parent: s,
		states: map[types.Address][]byte{addr: append([]byte(nil), raw...)},
	}
}

// GetBalance returns the balance of addr in the given currency. Unknown
// entries are zero. The result is a copy the caller may mutate.
func (s *Store) GetBalance(addr types.Address, currency types.Currency) *big.Int {
	key := BalanceKey{Address: addr, Ticker: currency.Ticker}
	for cur := s; cur != nil; cur = cur.parent {
		if cur.balances == nil {
			continue
		}
		if amount, ok := cur.balances[key]; ok {
			return new(big.Int).Set(amount)
		}
	}
	return big.NewInt(0)
}

// MintAsset credits value to addr out of thin air. It exists for genesis and
// test funding; marketplace actions only ever move existing funds.
func (s *Store) MintAsset(addr types.Address, value types.FungibleAssetValue) (*Store, error) {
	if value.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	balance := new(big.Int).Add(s.GetBalance(addr, value.Currency), value.Amount)
	return s.withBalances(map[BalanceKey]*big.Int{
		{Address: addr, Ticker: value.Currency.Ticker}: balance,
	}), nil
}

// TransferAsset moves value from one address to another, returning the
// resulting snapshot. Zero-amount transfers still validate the sender's
// funds but produce ledger entries unchanged in value.
func (s *Store) TransferAsset(from, to types.Address, value types.FungibleAssetValue) (*Store, error) {
	if value.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	fromBalance := s.GetBalance(from, value.Currency)
	if fromBalance.Cmp(value.Amount) < 0 {
		return nil, fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from, fromBalance, value.Amount)
	}
	toBalance := s.GetBalance(to, value.Currency)
	return s.withBalances(map[BalanceKey]*big.Int{
		{Address: from, Ticker: value.Currency.Ticker}: fromBalance.Sub(fromBalance, value.Amount),
		{Address: to, Ticker: value.Currency.Ticker}:   toBalance.Add(toBalance, value.Amount),
	}), nil
}

func (s *Store) withBalances(balances map[BalanceKey]*big.Int) *Store {
	return &Store{parent: s, balances: balances}
}

// Changes enumerates the state keys and balance entries written after the
// given ancestor snapshot, sorted for deterministic consumption. A nil since
// enumerates the whole chain.
func (s *Store) Changes(since *Store) ([]types.Address, []BalanceKey) {
	stateSet := make(map[types.Address]struct{})
	balanceSet := make(map[BalanceKey]struct{})
	for cur := s; cur != nil && cur != since; cur = cur.parent {
		for addr := range cur.states {
			stateSet[addr] = struct{}{}
		}
		for key := range cur.balances {
			balanceSet[key] = struct{}{}
		}
	}
	states := make([]types.Address, 0, len(stateSet))
	for addr := range stateSet {
		states = append(states, addr)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Cmp(states[j]) < 0 })
	balances := make([]BalanceKey, 0, len(balanceSet))
	for key := range balanceSet {
		balances = append(balances, key)
	}
	sort.Slice(balances, func(i, j int) bool {
		if c := balances[i].Address.Cmp(balances[j].Address); c != 0 {
			return c < 0
		}
		return balances[i].Ticker < balances[j].Ticker
	})
	return states, balances
}

// Commit folds the snapshot into the trie and returns the committed trie and
// its root. Two nodes replaying the same actions against the same prior state
// arrive at byte-identical roots.
func (s *Store) Commit(tr *trie.Trie) (*trie.Trie, []byte, error) {
	states, balances := s.Changes(nil)
	for _, addr := range states {
		next, err := tr.Update(stateTrieKey(addr), s.GetState(addr))
		if err != nil {
			return nil, nil, err
		}
		tr = next
	}
	for _, key := range balances {
		amount := big.NewInt(0)
		for cur := s; cur != nil; cur = cur.parent {
			if stored, ok := cur.balances[key]; ok {
				amount = stored
				break
			}
		}
		next, err := tr.Update(balanceTrieKey(key), amount.Bytes())
		if err != nil {
			return nil, nil, err
		}
		tr = next
	}
	return tr, tr.Root(), nil
}

func stateTrieKey(addr types.Address) []byte {
	return ethcrypto.Keccak256(addr.Bytes())
}

func balanceTrieKey(key BalanceKey) []byte {
	buf := make([]byte, 0, len("balance:")+len(key.Ticker)+1+types.AddressLength)
	buf = append(buf, "balance:"...)
	buf = append(buf, key.Ticker...)
	buf = append(buf, ':')
	buf = append(buf, key.Address.Bytes()...)
	return ethcrypto.Keccak256(buf)
}

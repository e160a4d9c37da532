package types

import (
	"fmt"
	"math/big"
	"strings"
)

// Currency describes a fungible asset denomination. DecimalPlaces is carried
// for display only; every amount is an integer count of minor units so no
// floating point ever enters a state transition.
type Currency struct {
	Ticker        string
	DecimalPlaces uint8
}

// NewCurrency validates and normalises a currency definition.
func NewCurrency(ticker string, decimalPlaces uint8) (Currency, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(ticker))
	if trimmed == "" {
		return Currency{}, fmt.Errorf("types: currency ticker must not be empty")
	}
	return Currency{Ticker: trimmed, DecimalPlaces: decimalPlaces}, nil
}

// Equal reports whether two currency definitions match exactly.
func (c Currency) Equal(other Currency) bool {
	return c.Ticker == other.Ticker && c.DecimalPlaces == other.DecimalPlaces
}

// FungibleAssetValue is an amount of a specific currency. The amount is always
// non-nil after construction via the helpers below.
type FungibleAssetValue struct {
	Currency Currency
	Amount   *big.Int
}

// NewAssetValue builds a value from an int64 count of minor units.
func NewAssetValue(currency Currency, amount int64) FungibleAssetValue {
	return FungibleAssetValue{Currency: currency, Amount: big.NewInt(amount)}
}

// NewAssetValueFromBig builds a value from a big integer, cloning the input.
func NewAssetValueFromBig(currency Currency, amount *big.Int) FungibleAssetValue {
	if amount == nil {
		amount = big.NewInt(0)
	}
	return FungibleAssetValue{Currency: currency, Amount: new(big.Int).Set(amount)}
}

// Clone returns a deep copy so callers can mutate the result without touching
// the stored instance.
func (v FungibleAssetValue) Clone() FungibleAssetValue {
	return NewAssetValueFromBig(v.Currency, v.Amount)
}

func (v FungibleAssetValue) amount() *big.Int {
	if v.Amount == nil {
		return big.NewInt(0)
	}
	return v.Amount
}

// Sign reports the sign of the amount.
func (v FungibleAssetValue) Sign() int { return v.amount().Sign() }

// Cmp compares the receiver's amount with other's. Currencies must already be
// known to match; mismatched currencies are a programming error surfaced via
// Equal checks at the call sites.
func (v FungibleAssetValue) Cmp(other FungibleAssetValue) int {
	return v.amount().Cmp(other.amount())
}

// Equal reports whether currency and amount match exactly.
func (v FungibleAssetValue) Equal(other FungibleAssetValue) bool {
	return v.Currency.Equal(other.Currency) && v.amount().Cmp(other.amount()) == 0
}

// Add returns v + other in v's currency.
func (v FungibleAssetValue) Add(other FungibleAssetValue) FungibleAssetValue {
	return FungibleAssetValue{Currency: v.Currency, Amount: new(big.Int).Add(v.amount(), other.amount())}
}

// Sub returns v - other in v's currency.
func (v FungibleAssetValue) Sub(other FungibleAssetValue) FungibleAssetValue {
	return FungibleAssetValue{Currency: v.Currency, Amount: new(big.Int).Sub(v.amount(), other.amount())}
}

// DivFloor returns the floored quotient of the amount by divisor.
func (v FungibleAssetValue) DivFloor(divisor int64) FungibleAssetValue {
	return FungibleAssetValue{Currency: v.Currency, Amount: new(big.Int).Quo(v.amount(), big.NewInt(divisor))}
}

// MulInt returns the amount multiplied by factor.
func (v FungibleAssetValue) MulInt(factor int64) FungibleAssetValue {
	return FungibleAssetValue{Currency: v.Currency, Amount: new(big.Int).Mul(v.amount(), big.NewInt(factor))}
}

func (v FungibleAssetValue) String() string {
	return fmt.Sprintf("%s %s", v.amount().String(), v.Currency.Ticker)
}

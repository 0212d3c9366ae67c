package vending

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Denominations accepted by the bill validator, in whole dollars.
var Denominations = []decimal.Decimal{
	decimal.NewFromInt(1),
	decimal.NewFromInt(2),
	decimal.NewFromInt(5),
	decimal.NewFromInt(10),
}

const (
	quarterCents = 25
	dimeCents    = 10
	nickelCents  = 5
)

// Change is the coin breakdown handed back at the end of a transaction.
type Change struct {
	Quarters int `json:"quarters"`
	Dimes    int `json:"dimes"`
	Nickels  int `json:"nickels"`
}

// Total returns the value of the coins.
func (c Change) Total() decimal.Decimal {
	cents := int64(c.Quarters*quarterCents + c.Dimes*dimeCents + c.Nickels*nickelCents)
	return decimal.New(cents, -2)
}

// IsValidDenomination reports whether amount is one of Denominations.
func IsValidDenomination(amount decimal.Decimal) bool {
	for _, d := range Denominations {
		if amount.Equal(d) {
			return true
		}
	}
	return false
}

// Ledger tracks the money deposited during a transaction
type Ledger struct {
	balance decimal.Decimal
}

// NewLedger cria um ledger com saldo zero
func NewLedger() *Ledger {
	return &Ledger{balance: decimal.Zero}
}

// Deposit adds one bill to the balance.
func (l *Ledger) Deposit(amount decimal.Decimal) error {
	if !IsValidDenomination(amount) {
		return fmt.Errorf("%w: %s", ErrInvalidDenomination, amount.StringFixed(2))
	}

	l.balance = l.balance.Add(amount)
	return nil
}

// Balance returns the money currently available.
func (l *Ledger) Balance() decimal.Decimal {
	return l.balance
}

// Debit pays for a product. The balance never goes below zero.
func (l *Ledger) Debit(amount decimal.Decimal) error {
	if l.balance.LessThan(amount) {
		return fmt.Errorf("%w: balance %s, price %s",
			ErrInsufficientFunds, l.balance.StringFixed(2), amount.StringFixed(2))
	}

	l.balance = l.balance.Sub(amount)
	return nil
}

// absorb moves the other ledger's balance into this one.
func (l *Ledger) absorb(other *Ledger) {
	l.balance = l.balance.Add(other.balance)
	other.balance = decimal.Zero
}

// ComputeChange breaks the balance into quarters, dimes and nickels, largest
// coin first, and resets the balance to zero. Anything below a nickel is
// dropped.
func (l *Ledger) ComputeChange() Change {
	remaining := l.balance.Shift(2).Floor().IntPart()
	l.balance = decimal.Zero

	var change Change
	change.Quarters = int(remaining / quarterCents)
	remaining %= quarterCents
	change.Dimes = int(remaining / dimeCents)
	remaining %= dimeCents
	change.Nickels = int(remaining / nickelCents)

	return change
}

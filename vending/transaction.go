package vending

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// State of a purchase transaction
type State string

const (
	StateAwaitingAction State = "awaiting_action"
	StateCompleted      State = "completed"
)

// Receipt is what Finish hands back: the coins owed and what was bought.
type Receipt struct {
	Change    Change    `json:"change"`
	Purchased []Product `json:"purchased"`
}

// Messages returns the dispense message of every purchased product that has
// one, in purchase order.
func (r Receipt) Messages() []string {
	var msgs []string
	for _, p := range r.Purchased {
		if msg := p.Category.DispenseMessage(); msg != "" {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

// Transaction is one user's purchase session: deposits, selections and a
// final Finish. It is not safe for concurrent use.
type Transaction struct {
	inventory *Inventory
	ledger    *Ledger
	purchased []Product
	state     State
}

// NewTransaction opens a transaction with an empty ledger.
func NewTransaction(inventory *Inventory) *Transaction {
	return newTransaction(inventory, NewLedger(), nil)
}

func newTransaction(inventory *Inventory, ledger *Ledger, purchased []Product) *Transaction {
	return &Transaction{
		inventory: inventory,
		ledger:    ledger,
		purchased: purchased,
		state:     StateAwaitingAction,
	}
}

// State returns the current state.
func (t *Transaction) State() State {
	return t.state
}

// IsOpen reports whether the transaction still accepts deposits and selections.
func (t *Transaction) IsOpen() bool {
	return t.state == StateAwaitingAction
}

// CurrentBalance returns the money available for purchases.
func (t *Transaction) CurrentBalance() decimal.Decimal {
	return t.ledger.Balance()
}

// Purchased returns a copy of the products dispensed so far.
func (t *Transaction) Purchased() []Product {
	out := make([]Product, len(t.purchased))
	copy(out, t.purchased)
	return out
}

// Deposit feeds one bill into the machine.
func (t *Transaction) Deposit(amount decimal.Decimal) error {
	if !t.IsOpen() {
		return ErrTransactionClosed
	}
	return t.ledger.Deposit(amount)
}

// SelectProduct dispenses the product in slotID. Checks run in order: the
// slot must exist, hold stock and be affordable. Nothing changes unless all
// three pass.
func (t *Transaction) SelectProduct(slotID string) (Product, error) {
	if !t.IsOpen() {
		return Product{}, ErrTransactionClosed
	}

	slot, err := t.inventory.Lookup(slotID)
	if err != nil {
		return Product{}, err
	}
	if slot.Quantity < 1 {
		return Product{}, fmt.Errorf("%w: %s", ErrOutOfStock, slotID)
	}
	if t.ledger.Balance().LessThan(slot.Product.Price) {
		return Product{}, fmt.Errorf("%w: %s costs %s", ErrInsufficientFunds, slotID, slot.Product.Price.StringFixed(2))
	}

	if err := t.inventory.Decrement(slotID); err != nil {
		return Product{}, err
	}
	if err := t.ledger.Debit(slot.Product.Price); err != nil {
		return Product{}, fmt.Errorf("debit after stock check: %w", err)
	}
	t.purchased = append(t.purchased, slot.Product)

	return slot.Product, nil
}

// Finish closes the transaction and pays out the remaining balance as coins.
func (t *Transaction) Finish() (Receipt, error) {
	if !t.IsOpen() {
		return Receipt{}, ErrTransactionClosed
	}

	t.state = StateCompleted
	receipt := Receipt{
		Change:    t.ledger.ComputeChange(),
		Purchased: t.purchased,
	}
	t.purchased = nil

	return receipt, nil
}

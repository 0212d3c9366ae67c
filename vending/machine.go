package vending

import "errors"

// AbandonPolicy decides what happens to a transaction the user walks away
// from without finishing it.
type AbandonPolicy string

const (
	// RetainOnAbandon parks the balance and purchased list on the machine.
	// The next Begin resumes them.
	RetainOnAbandon AbandonPolicy = "retain"
	// RefundOnAbandon finishes the transaction for the user and pays out
	// the change.
	RefundOnAbandon AbandonPolicy = "refund"
)

// ParseAbandonPolicy accepts "retain" or "refund".
func ParseAbandonPolicy(s string) (AbandonPolicy, error) {
	switch p := AbandonPolicy(s); p {
	case RetainOnAbandon, RefundOnAbandon:
		return p, nil
	}
	return "", errors.New("unknown abandon policy: " + s)
}

// Machine owns the inventory for the lifetime of the process and hands out
// transactions over it.
type Machine struct {
	inventory *Inventory
	policy    AbandonPolicy

	parkedLedger    *Ledger
	parkedPurchases []Product
}

// Option configura uma Machine
type Option func(*Machine)

// WithAbandonPolicy sets the policy applied by Abandon.
func WithAbandonPolicy(p AbandonPolicy) Option {
	return func(m *Machine) {
		m.policy = p
	}
}

// NewMachine cria uma nova instância de Machine
func NewMachine(inventory *Inventory, opts ...Option) *Machine {
	m := &Machine{
		inventory: inventory,
		policy:    RetainOnAbandon,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Inventory exposes the stock for listings.
func (m *Machine) Inventory() *Inventory {
	return m.inventory
}

// Policy returns the configured abandon policy.
func (m *Machine) Policy() AbandonPolicy {
	return m.policy
}

// HasParked reports whether an abandoned transaction is waiting to be resumed.
func (m *Machine) HasParked() bool {
	return m.parkedLedger != nil
}

// Begin opens a transaction, resuming whatever was parked by Abandon.
func (m *Machine) Begin() *Transaction {
	if m.parkedLedger == nil {
		return NewTransaction(m.inventory)
	}

	tx := newTransaction(m.inventory, m.parkedLedger, m.parkedPurchases)
	m.parkedLedger = nil
	m.parkedPurchases = nil
	return tx
}

// Abandon is the "quit to main menu" path. Under RetainOnAbandon it returns
// an empty receipt and false, adding to anything already parked; under RefundOnAbandon it finishes the
// transaction and returns its receipt and true.
func (m *Machine) Abandon(tx *Transaction) (Receipt, bool, error) {
	if !tx.IsOpen() {
		return Receipt{}, false, ErrTransactionClosed
	}

	if m.policy == RefundOnAbandon {
		receipt, err := tx.Finish()
		if err != nil {
			return Receipt{}, false, err
		}
		return receipt, true, nil
	}

	if m.parkedLedger == nil {
		m.parkedLedger = NewLedger()
	}
	m.parkedLedger.absorb(tx.ledger)
	m.parkedPurchases = append(m.parkedPurchases, tx.purchased...)
	tx.state = StateCompleted
	tx.ledger = NewLedger()
	tx.purchased = nil
	return Receipt{}, false, nil
}

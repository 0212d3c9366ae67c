package main

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/matheusmosca/vending-machine/vending"
)

// JournalEntry representa um movimento auditável da máquina
type JournalEntry struct {
	ID          string    `json:"id" db:"id"`
	SessionID   string    `json:"session_id" db:"session_id"`
	Kind        string    `json:"kind" db:"kind"`
	SlotID      string    `json:"slot_id,omitempty" db:"slot_id"`
	AmountCents int64     `json:"amount_cents" db:"amount_cents"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// NewJournalEntry cria uma nova instância de JournalEntry
func NewJournalEntry(sessionID, kind, slotID string, amount decimal.Decimal) *JournalEntry {
	return &JournalEntry{
		ID:          uuid.New().String(),
		SessionID:   sessionID,
		Kind:        kind,
		SlotID:      slotID,
		AmountCents: amount.Shift(2).IntPart(),
		CreatedAt:   time.Now(),
	}
}

// JournalKind representa os tipos de movimento registrados
const (
	JournalKindDeposit  = "deposit"
	JournalKindDispense = "dispense"
	JournalKindChange   = "change"
)

// DepositRequest representa a requisição para inserir uma nota
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// SelectProductRequest representa a requisição para escolher um produto
type SelectProductRequest struct {
	SlotID string `json:"slot_id" binding:"required"`
}

// SessionView é o estado de uma sessão devolvido ao cliente
type SessionView struct {
	SessionID string            `json:"session_id"`
	State     vending.State     `json:"state"`
	Balance   string            `json:"balance"`
	Purchased []vending.Product `json:"purchased"`
	Resumed   bool              `json:"resumed,omitempty"`
}

// SelectionResult é a resposta de uma compra bem sucedida
type SelectionResult struct {
	Product vending.Product `json:"product"`
	Session SessionView     `json:"session"`
}

// FinishResult é a resposta do fechamento de uma sessão
type FinishResult struct {
	SessionID   string            `json:"session_id"`
	Change      vending.Change    `json:"change"`
	ChangeTotal string            `json:"change_total"`
	Purchased   []vending.Product `json:"purchased"`
	Messages    []string          `json:"messages"`
}

// AbandonResult é a resposta de "voltar ao menu principal"
type AbandonResult struct {
	SessionID string                `json:"session_id"`
	Policy    vending.AbandonPolicy `json:"policy"`
	Refunded  bool                  `json:"refunded"`
	Receipt   *FinishResult         `json:"receipt,omitempty"`
}

func newSessionView(id string, tx *vending.Transaction) SessionView {
	return SessionView{
		SessionID: id,
		State:     tx.State(),
		Balance:   tx.CurrentBalance().StringFixed(2),
		Purchased: tx.Purchased(),
	}
}

func newFinishResult(id string, receipt vending.Receipt) FinishResult {
	purchased := receipt.Purchased
	if purchased == nil {
		purchased = []vending.Product{}
	}
	messages := receipt.Messages()
	if messages == nil {
		messages = []string{}
	}

	return FinishResult{
		SessionID:   id,
		Change:      receipt.Change,
		ChangeTotal: receipt.Change.Total().StringFixed(2),
		Purchased:   purchased,
		Messages:    messages,
	}
}

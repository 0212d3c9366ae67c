package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/matheusmosca/vending-machine/vending"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrMachineBusy     = errors.New("another session is already open")
)

// VendingUseCase contém a lógica de aplicação da máquina: sessões, journal,
// métricas e display. Uma máquina atende um usuário por vez.
type VendingUseCase struct {
	mu       sync.Mutex
	machine  *vending.Machine
	sessions map[string]*vending.Transaction
	activeID string

	journal JournalRepository
	display DisplaySink
	logger  *zap.Logger

	depositCounter  metric.Int64Counter
	dispenseCounter metric.Int64Counter
	rejectedCounter metric.Int64Counter
	finishCounter   metric.Int64Counter
}

// NewVendingUseCase cria uma nova instância de VendingUseCase
func NewVendingUseCase(
	machine *vending.Machine,
	journal JournalRepository,
	display DisplaySink,
	logger *zap.Logger,
) *VendingUseCase {
	meter := otel.Meter("vending-service")

	return &VendingUseCase{
		machine:         machine,
		sessions:        make(map[string]*vending.Transaction),
		journal:         journal,
		display:         display,
		logger:          logger,
		depositCounter:  newCounter(meter, "vending.deposits", "Bills accepted"),
		dispenseCounter: newCounter(meter, "vending.dispenses", "Products dispensed"),
		rejectedCounter: newCounter(meter, "vending.selections.rejected", "Selections that failed validation"),
		finishCounter:   newCounter(meter, "vending.sessions.finished", "Sessions closed with change paid out"),
	}
}

func newCounter(meter metric.Meter, name, description string) metric.Int64Counter {
	counter, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		return noop.Int64Counter{}
	}
	return counter
}

// ListProducts devolve os slots na ordem do arquivo de estoque
func (uc *VendingUseCase) ListProducts(ctx context.Context) []vending.Slot {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	return uc.machine.Inventory().Slots()
}

// OpenSession abre uma transação, retomando o saldo deixado por um abandono
func (uc *VendingUseCase) OpenSession(ctx context.Context) (SessionView, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.activeID != "" {
		return SessionView{}, fmt.Errorf("%w: %s", ErrMachineBusy, uc.activeID)
	}

	// Sessões fechadas só ficam visíveis até a próxima abertura
	for id, tx := range uc.sessions {
		if !tx.IsOpen() {
			delete(uc.sessions, id)
		}
	}

	resumed := uc.machine.HasParked()
	tx := uc.machine.Begin()
	id := uuid.New().String()
	uc.sessions[id] = tx
	uc.activeID = id

	uc.logger.Info("[OPEN SESSION]",
		zap.String("session_id", id),
		zap.Bool("resumed", resumed),
		zap.String("balance", tx.CurrentBalance().StringFixed(2)))

	view := newSessionView(id, tx)
	view.Resumed = resumed
	return view, nil
}

// GetSession devolve o saldo e as compras de uma sessão
func (uc *VendingUseCase) GetSession(ctx context.Context, sessionID string) (SessionView, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	tx, err := uc.session(sessionID)
	if err != nil {
		return SessionView{}, err
	}
	return newSessionView(sessionID, tx), nil
}

// Deposit insere uma nota na sessão
func (uc *VendingUseCase) Deposit(ctx context.Context, sessionID string, amount decimal.Decimal) (SessionView, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	tx, err := uc.session(sessionID)
	if err != nil {
		return SessionView{}, err
	}

	if err := tx.Deposit(amount); err != nil {
		uc.logger.Info("[DEPOSIT] rejected",
			zap.String("session_id", sessionID),
			zap.String("amount", amount.String()),
			zap.Error(err))
		return SessionView{}, err
	}

	uc.depositCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("denomination", amount.StringFixed(0))))
	uc.record(ctx, NewJournalEntry(sessionID, JournalKindDeposit, "", amount))

	uc.logger.Info("[DEPOSIT] accepted",
		zap.String("session_id", sessionID),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("balance", tx.CurrentBalance().StringFixed(2)))

	return newSessionView(sessionID, tx), nil
}

// SelectProduct compra o produto de um slot
func (uc *VendingUseCase) SelectProduct(ctx context.Context, sessionID, slotID string) (SelectionResult, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	tx, err := uc.session(sessionID)
	if err != nil {
		return SelectionResult{}, err
	}

	product, err := tx.SelectProduct(slotID)
	if err != nil {
		uc.rejectedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", rejectionReason(err))))
		uc.logger.Info("[SELECT] rejected",
			zap.String("session_id", sessionID),
			zap.String("slot_id", slotID),
			zap.Error(err))
		return SelectionResult{}, err
	}

	uc.dispenseCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("category", product.Category.String())))
	uc.record(ctx, NewJournalEntry(sessionID, JournalKindDispense, slotID, product.Price))

	uc.logger.Info("[SELECT] dispensed",
		zap.String("session_id", sessionID),
		zap.String("slot_id", slotID),
		zap.String("product", product.Name),
		zap.String("balance", tx.CurrentBalance().StringFixed(2)))

	return SelectionResult{
		Product: product,
		Session: newSessionView(sessionID, tx),
	}, nil
}

// Finish fecha a sessão e devolve o troco
func (uc *VendingUseCase) Finish(ctx context.Context, sessionID string) (FinishResult, error) {
	result, err := uc.finish(ctx, sessionID)
	if err != nil {
		return FinishResult{}, err
	}

	uc.show(ctx, sessionID, result.Messages)
	return result, nil
}

func (uc *VendingUseCase) finish(ctx context.Context, sessionID string) (FinishResult, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	tx, err := uc.session(sessionID)
	if err != nil {
		return FinishResult{}, err
	}

	receipt, err := tx.Finish()
	if err != nil {
		return FinishResult{}, err
	}

	return uc.closeSession(ctx, sessionID, receipt), nil
}

// Abandon é o "voltar ao menu principal" sem finalizar a transação
func (uc *VendingUseCase) Abandon(ctx context.Context, sessionID string) (AbandonResult, error) {
	result, err := uc.abandon(ctx, sessionID)
	if err != nil {
		return AbandonResult{}, err
	}

	if result.Receipt != nil {
		uc.show(ctx, sessionID, result.Receipt.Messages)
	}
	return result, nil
}

func (uc *VendingUseCase) abandon(ctx context.Context, sessionID string) (AbandonResult, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	tx, err := uc.session(sessionID)
	if err != nil {
		return AbandonResult{}, err
	}

	receipt, refunded, err := uc.machine.Abandon(tx)
	if err != nil {
		return AbandonResult{}, err
	}

	result := AbandonResult{
		SessionID: sessionID,
		Policy:    uc.machine.Policy(),
		Refunded:  refunded,
	}
	if refunded {
		finish := uc.closeSession(ctx, sessionID, receipt)
		result.Receipt = &finish
		return result, nil
	}

	uc.activeID = ""
	uc.logger.Info("[ABANDON] balance parked on machine",
		zap.String("session_id", sessionID))
	return result, nil
}

// closeSession roda com uc.mu travado; o display fica de fora
func (uc *VendingUseCase) closeSession(ctx context.Context, sessionID string, receipt vending.Receipt) FinishResult {
	if uc.activeID == sessionID {
		uc.activeID = ""
	}

	result := newFinishResult(sessionID, receipt)

	uc.finishCounter.Add(ctx, 1)
	uc.record(ctx, NewJournalEntry(sessionID, JournalKindChange, "", receipt.Change.Total()))

	uc.logger.Info("[FINISH] change returned",
		zap.String("session_id", sessionID),
		zap.Int("quarters", receipt.Change.Quarters),
		zap.Int("dimes", receipt.Change.Dimes),
		zap.Int("nickels", receipt.Change.Nickels),
		zap.Int("products", len(receipt.Purchased)))

	return result
}

// show é chamado sem uc.mu para que um display lento não trave a máquina
func (uc *VendingUseCase) show(ctx context.Context, sessionID string, messages []string) {
	if err := uc.display.Show(ctx, sessionID, messages); err != nil {
		uc.logger.Warn("[FINISH] display failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}
}

func (uc *VendingUseCase) session(id string) (*vending.Transaction, error) {
	tx, ok := uc.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return tx, nil
}

// record grava no journal sem falhar a operação: a máquina já mudou de estado
func (uc *VendingUseCase) record(ctx context.Context, entry *JournalEntry) {
	if err := uc.journal.Record(ctx, entry); err != nil {
		uc.logger.Error("[JOURNAL] failed to record entry",
			zap.String("session_id", entry.SessionID),
			zap.String("kind", entry.Kind),
			zap.Error(err))
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, vending.ErrSlotNotFound):
		return "slot_not_found"
	case errors.Is(err, vending.ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, vending.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, vending.ErrTransactionClosed):
		return "transaction_closed"
	default:
		return "unknown"
	}
}

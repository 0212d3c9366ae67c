package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/matheusmosca/vending-machine/vending"
)

// MockJournalRepository para testes que não precisam de banco real
type MockJournalRepository struct {
	mock.Mock
}

func (m *MockJournalRepository) EnsureSchema(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockJournalRepository) Record(ctx context.Context, entry *JournalEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// MockDisplaySink captura as mensagens enviadas ao display
type MockDisplaySink struct {
	mock.Mock
}

func (m *MockDisplaySink) Show(ctx context.Context, sessionID string, messages []string) error {
	args := m.Called(ctx, sessionID, messages)
	return args.Error(0)
}

func newTestMachine(t *testing.T, opts ...vending.Option) *vending.Machine {
	t.Helper()

	inv := vending.NewInventory()
	require.NoError(t, inv.Add("A1", vending.NewProduct("Chips", decimal.RequireFromString("1.00"), vending.CategoryChip), 1))
	require.NoError(t, inv.Add("B1", vending.NewProduct("Cola", decimal.RequireFromString("1.25"), vending.CategoryDrink), 3))
	return vending.NewMachine(inv, opts...)
}

func entryOfKind(kind string) interface{} {
	return mock.MatchedBy(func(e *JournalEntry) bool { return e.Kind == kind })
}

func TestVendingUseCase_FullPurchase(t *testing.T) {
	// Arrange
	ctx := context.Background()
	journal := new(MockJournalRepository)
	display := new(MockDisplaySink)
	uc := NewVendingUseCase(newTestMachine(t), journal, display, zap.NewNop())

	journal.On("Record", ctx, entryOfKind(JournalKindDeposit)).Return(nil).Twice()
	journal.On("Record", ctx, entryOfKind(JournalKindDispense)).Return(nil).Once()
	journal.On("Record", ctx, mock.MatchedBy(func(e *JournalEntry) bool {
		return e.Kind == JournalKindChange && e.AmountCents == 100
	})).Return(nil).Once()

	// Act
	session, err := uc.OpenSession(ctx)
	require.NoError(t, err)
	display.On("Show", ctx, session.SessionID, []string{"Crunch Crunch, Yum!"}).Return(nil).Once()

	_, err = uc.Deposit(ctx, session.SessionID, decimal.NewFromInt(1))
	require.NoError(t, err)
	_, err = uc.Deposit(ctx, session.SessionID, decimal.NewFromInt(1))
	require.NoError(t, err)

	selection, err := uc.SelectProduct(ctx, session.SessionID, "A1")
	require.NoError(t, err)

	_, err = uc.SelectProduct(ctx, session.SessionID, "A1")
	assert.ErrorIs(t, err, vending.ErrOutOfStock)

	result, err := uc.Finish(ctx, session.SessionID)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, "Chips", selection.Product.Name)
	assert.Equal(t, "1.00", selection.Session.Balance)
	assert.Equal(t, vending.Change{Quarters: 4}, result.Change)
	assert.Equal(t, "1.00", result.ChangeTotal)
	assert.Equal(t, []string{"Crunch Crunch, Yum!"}, result.Messages)
	require.Len(t, result.Purchased, 1)
	journal.AssertExpectations(t)
	display.AssertExpectations(t)
}

func TestVendingUseCase_ClosedSessionRejectsCalls(t *testing.T) {
	ctx := context.Background()
	display := new(MockDisplaySink)
	display.On("Show", ctx, mock.Anything, []string{}).Return(nil)
	uc := NewVendingUseCase(newTestMachine(t), nopJournalRepository{}, display, zap.NewNop())

	session, err := uc.OpenSession(ctx)
	require.NoError(t, err)
	_, err = uc.Finish(ctx, session.SessionID)
	require.NoError(t, err)

	_, err = uc.Deposit(ctx, session.SessionID, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, vending.ErrTransactionClosed)
	_, err = uc.SelectProduct(ctx, session.SessionID, "A1")
	assert.ErrorIs(t, err, vending.ErrTransactionClosed)
	_, err = uc.Finish(ctx, session.SessionID)
	assert.ErrorIs(t, err, vending.ErrTransactionClosed)

	view, err := uc.GetSession(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, vending.StateCompleted, view.State)
}

func TestVendingUseCase_OneSessionAtATime(t *testing.T) {
	ctx := context.Background()
	uc := NewVendingUseCase(newTestMachine(t), nopJournalRepository{}, new(MockDisplaySink), zap.NewNop())

	_, err := uc.OpenSession(ctx)
	require.NoError(t, err)

	_, err = uc.OpenSession(ctx)
	assert.ErrorIs(t, err, ErrMachineBusy)
}

func TestVendingUseCase_UnknownSession(t *testing.T) {
	ctx := context.Background()
	uc := NewVendingUseCase(newTestMachine(t), nopJournalRepository{}, new(MockDisplaySink), zap.NewNop())

	_, err := uc.GetSession(ctx, "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = uc.Deposit(ctx, "nope", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestVendingUseCase_AbandonRetainResumesBalance(t *testing.T) {
	ctx := context.Background()
	uc := NewVendingUseCase(newTestMachine(t), nopJournalRepository{}, new(MockDisplaySink), zap.NewNop())

	first, err := uc.OpenSession(ctx)
	require.NoError(t, err)
	_, err = uc.Deposit(ctx, first.SessionID, decimal.NewFromInt(5))
	require.NoError(t, err)

	result, err := uc.Abandon(ctx, first.SessionID)
	require.NoError(t, err)
	assert.Equal(t, vending.RetainOnAbandon, result.Policy)
	assert.False(t, result.Refunded)
	assert.Nil(t, result.Receipt)

	second, err := uc.OpenSession(ctx)
	require.NoError(t, err)
	assert.True(t, second.Resumed)
	assert.Equal(t, "5.00", second.Balance)

	// The abandoned session was pruned when the next one opened.
	_, err = uc.GetSession(ctx, first.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestVendingUseCase_AbandonRefund(t *testing.T) {
	ctx := context.Background()
	display := new(MockDisplaySink)
	display.On("Show", ctx, mock.Anything, []string{"Glug Glug Yum!"}).Return(nil).Once()
	uc := NewVendingUseCase(newTestMachine(t, vending.WithAbandonPolicy(vending.RefundOnAbandon)),
		nopJournalRepository{}, display, zap.NewNop())

	session, err := uc.OpenSession(ctx)
	require.NoError(t, err)
	_, err = uc.Deposit(ctx, session.SessionID, decimal.NewFromInt(2))
	require.NoError(t, err)
	_, err = uc.SelectProduct(ctx, session.SessionID, "B1")
	require.NoError(t, err)

	result, err := uc.Abandon(ctx, session.SessionID)

	require.NoError(t, err)
	assert.True(t, result.Refunded)
	require.NotNil(t, result.Receipt)
	assert.Equal(t, vending.Change{Quarters: 3}, result.Receipt.Change)
	display.AssertExpectations(t)

	next, err := uc.OpenSession(ctx)
	require.NoError(t, err)
	assert.False(t, next.Resumed)
	assert.Equal(t, "0.00", next.Balance)
}

func TestVendingUseCase_JournalAndDisplayFailuresDoNotFailPurchase(t *testing.T) {
	ctx := context.Background()
	journal := new(MockJournalRepository)
	journal.On("Record", ctx, mock.Anything).Return(errors.New("connection refused"))
	display := new(MockDisplaySink)
	display.On("Show", ctx, mock.Anything, mock.Anything).Return(errors.New("display offline"))
	uc := NewVendingUseCase(newTestMachine(t), journal, display, zap.NewNop())

	session, err := uc.OpenSession(ctx)
	require.NoError(t, err)
	_, err = uc.Deposit(ctx, session.SessionID, decimal.NewFromInt(1))
	require.NoError(t, err)
	_, err = uc.SelectProduct(ctx, session.SessionID, "A1")
	require.NoError(t, err)

	result, err := uc.Finish(ctx, session.SessionID)

	require.NoError(t, err)
	assert.Equal(t, vending.Change{}, result.Change)
	journal.AssertNumberOfCalls(t, "Record", 3)
}

func TestVendingUseCase_DisplayDoesNotHoldMachine(t *testing.T) {
	// Arrange
	ctx := context.Background()
	display := new(MockDisplaySink)
	uc := NewVendingUseCase(newTestMachine(t), nopJournalRepository{}, display, zap.NewNop())

	listedDuringShow := 0
	display.On("Show", ctx, mock.Anything, mock.Anything).Return(nil).Run(func(mock.Arguments) {
		listed := make(chan int, 1)
		go func() { listed <- len(uc.ListProducts(ctx)) }()
		select {
		case listedDuringShow = <-listed:
		case <-time.After(time.Second):
		}
	}).Once()

	session, err := uc.OpenSession(ctx)
	require.NoError(t, err)

	// Act
	_, err = uc.Finish(ctx, session.SessionID)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, listedDuringShow, "ListProducts must not wait for the display")
	display.AssertExpectations(t)
}

func TestRejectionReason(t *testing.T) {
	assert.Equal(t, "slot_not_found", rejectionReason(vending.ErrSlotNotFound))
	assert.Equal(t, "out_of_stock", rejectionReason(vending.ErrOutOfStock))
	assert.Equal(t, "insufficient_funds", rejectionReason(vending.ErrInsufficientFunds))
	assert.Equal(t, "transaction_closed", rejectionReason(vending.ErrTransactionClosed))
	assert.Equal(t, "unknown", rejectionReason(errors.New("boom")))
}

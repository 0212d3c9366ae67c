package main

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockPgxPool simula o pool de conexões PostgreSQL
type MockPgxPool struct {
	mock.Mock
}

func (m *MockPgxPool) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

// MockSQLDB simula o *sql.DB usado com lib/pq
type MockSQLDB struct {
	mock.Mock
}

func (m *MockSQLDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	mockArgs := m.Called(ctx, query, args)
	result, _ := mockArgs.Get(0).(sql.Result)
	return result, mockArgs.Error(1)
}

func journalArgs(entry *JournalEntry) []any {
	return []any{entry.ID, entry.SessionID, entry.Kind, entry.SlotID, entry.AmountCents, entry.CreatedAt}
}

func TestNewPostgresJournalRepository(t *testing.T) {
	// Arrange
	var db *pgxpool.Pool

	// Act
	repo := NewPostgresJournalRepository(db)

	// Assert
	assert.NotNil(t, repo)
	assert.IsType(t, &PostgresJournalRepository{}, repo)
}

func TestPostgresJournalRepository_Record(t *testing.T) {
	// Arrange
	ctx := context.Background()
	pool := new(MockPgxPool)
	repo := &PostgresJournalRepository{db: pool}
	entry := NewJournalEntry("session-1", JournalKindDispense, "A1", decimal.RequireFromString("1.25"))

	pool.On("Exec", ctx, insertJournalEntry, journalArgs(entry)).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil).Once()

	// Act
	err := repo.Record(ctx, entry)

	// Assert
	assert.NoError(t, err)
	pool.AssertExpectations(t)
}

func TestPostgresJournalRepository_RecordError(t *testing.T) {
	// Arrange
	ctx := context.Background()
	pool := new(MockPgxPool)
	repo := &PostgresJournalRepository{db: pool}
	entry := NewJournalEntry("session-1", JournalKindDeposit, "", decimal.NewFromInt(5))
	dbErr := errors.New("connection refused")

	pool.On("Exec", ctx, insertJournalEntry, mock.Anything).
		Return(pgconn.CommandTag{}, dbErr).Once()

	// Act
	err := repo.Record(ctx, entry)

	// Assert
	assert.ErrorIs(t, err, dbErr)
	assert.Contains(t, err.Error(), "failed to insert journal entry")
}

func TestPostgresJournalRepository_EnsureSchema(t *testing.T) {
	ctx := context.Background()
	pool := new(MockPgxPool)
	repo := &PostgresJournalRepository{db: pool}

	pool.On("Exec", ctx, journalSchema, []any(nil)).
		Return(pgconn.NewCommandTag("CREATE TABLE"), nil).Once()

	assert.NoError(t, repo.EnsureSchema(ctx))
	pool.AssertExpectations(t)
}

func TestSQLJournalRepository_Record(t *testing.T) {
	// Arrange
	ctx := context.Background()
	db := new(MockSQLDB)
	repo := &SQLJournalRepository{db: db}
	entry := NewJournalEntry("session-1", JournalKindChange, "", decimal.RequireFromString("0.35"))

	db.On("ExecContext", ctx, insertJournalEntry, journalArgs(entry)).
		Return(driver.RowsAffected(1), nil).Once()

	// Act
	err := repo.Record(ctx, entry)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, int64(35), entry.AmountCents)
	db.AssertExpectations(t)
}

func TestSQLJournalRepository_EnsureSchemaError(t *testing.T) {
	ctx := context.Background()
	db := new(MockSQLDB)
	repo := &SQLJournalRepository{db: db}
	dbErr := errors.New("permission denied")

	db.On("ExecContext", ctx, journalSchema, mock.Anything).Return(nil, dbErr).Once()

	err := repo.EnsureSchema(ctx)

	assert.ErrorIs(t, err, dbErr)
	assert.Contains(t, err.Error(), "failed to create journal table")
}

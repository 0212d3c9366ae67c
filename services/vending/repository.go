package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
)

const journalSchema = `
	CREATE TABLE IF NOT EXISTS vending_journal (
		id           UUID PRIMARY KEY,
		session_id   UUID NOT NULL,
		kind         VARCHAR(16) NOT NULL,
		slot_id      VARCHAR(16),
		amount_cents BIGINT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

const insertJournalEntry = `
	INSERT INTO vending_journal (id, session_id, kind, slot_id, amount_cents, created_at)
	VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
`

// JournalRepository define a interface para o registro de auditoria
type JournalRepository interface {
	// EnsureSchema cria a tabela do journal se ela não existir
	EnsureSchema(ctx context.Context) error

	// Record grava um movimento
	Record(ctx context.Context, entry *JournalEntry) error
}

// pgxExecer é o subconjunto do pgxpool.Pool usado pelo journal
type pgxExecer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// sqlExecer é o subconjunto do *sql.DB usado pelo journal
type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// PostgresJournalRepository implementa JournalRepository usando pgxpool
type PostgresJournalRepository struct {
	db pgxExecer
}

// NewPostgresJournalRepository cria uma nova instância de PostgresJournalRepository
func NewPostgresJournalRepository(db *pgxpool.Pool) JournalRepository {
	return &PostgresJournalRepository{
		db: db,
	}
}

func (r *PostgresJournalRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, journalSchema); err != nil {
		return fmt.Errorf("failed to create journal table: %w", err)
	}
	return nil
}

func (r *PostgresJournalRepository) Record(ctx context.Context, entry *JournalEntry) error {
	_, err := r.db.Exec(ctx, insertJournalEntry,
		entry.ID, entry.SessionID, entry.Kind, entry.SlotID, entry.AmountCents, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert journal entry: %w", err)
	}
	return nil
}

// SQLJournalRepository implementa JournalRepository usando database/sql (lib/pq)
type SQLJournalRepository struct {
	db sqlExecer
}

// NewSQLJournalRepository cria uma nova instância de SQLJournalRepository
func NewSQLJournalRepository(db *sql.DB) JournalRepository {
	return &SQLJournalRepository{
		db: db,
	}
}

func (r *SQLJournalRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, journalSchema); err != nil {
		return fmt.Errorf("failed to create journal table: %w", err)
	}
	return nil
}

func (r *SQLJournalRepository) Record(ctx context.Context, entry *JournalEntry) error {
	_, err := r.db.ExecContext(ctx, insertJournalEntry,
		entry.ID, entry.SessionID, entry.Kind, entry.SlotID, entry.AmountCents, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert journal entry: %w", err)
	}
	return nil
}

// nopJournalRepository é usado quando JOURNAL_DRIVER=none
type nopJournalRepository struct{}

func (nopJournalRepository) EnsureSchema(context.Context) error { return nil }

func (nopJournalRepository) Record(context.Context, *JournalEntry) error { return nil }

package memory

import (
	"context"
	"errors"

	"balance-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var errTxDone = errors.New("memory: transaction already closed")

// Tx buffers writes until Commit. Reads made through the same Tx see its own
// pending account rows.
type Tx struct {
	store   *Store
	created []domain.Account
	updated map[string]domain.Account
	entries []domain.Transaction
	done    bool
}

func newTx(s *Store) *Tx {
	return &Tx{store: s, updated: make(map[string]domain.Account)}
}

func (t *Tx) isCreated(number string) bool {
	for _, a := range t.created {
		if a.AccountNumber == number {
			return true
		}
	}
	return false
}

func (t *Tx) pendingAccount(number string) (domain.Account, bool) {
	if a, ok := t.updated[number]; ok {
		return a, true
	}
	for _, a := range t.created {
		if a.AccountNumber == number {
			return a, true
		}
	}
	return domain.Account{}, false
}

func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return errTxDone
	}
	t.done = true
	return t.store.apply(t)
}

// Rollback discards pending writes. Rolling back a finished Tx is a no-op,
// matching pgx.
func (t *Tx) Rollback(ctx context.Context) error {
	t.done = true
	return nil
}

// asTx unwraps the repository tx argument.
func asTx(tx pgx.Tx) (*Tx, error) {
	mt, ok := tx.(*Tx)
	if !ok || mt == nil {
		return nil, errors.New("memory: foreign transaction")
	}
	if mt.done {
		return nil, errTxDone
	}
	return mt, nil
}

// The rest of pgx.Tx is not used by the memory repositories.

func (t *Tx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *Tx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, errors.ErrUnsupported
}
func (t *Tx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *Tx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *Tx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, errors.ErrUnsupported
}
func (t *Tx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), errors.ErrUnsupported
}
func (t *Tx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.ErrUnsupported
}
func (t *Tx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *Tx) Conn() *pgx.Conn                                               { return nil }

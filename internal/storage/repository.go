// Package storage is the SQL ledger backend. The same repository serves
// an embedded SQLite file and a hosted Postgres database.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"flatshare/internal/core"
	"flatshare/internal/ledger"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects driver name and placeholder style.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

type Repository struct {
	db      *sql.DB
	dialect Dialect
}

var (
	_ ledger.ExpenseStore  = (*Repository)(nil)
	_ ledger.ShoppingStore = (*Repository)(nil)
	_ ledger.Pinger        = (*Repository)(nil)
)

// NewSQLiteRepository opens (creating if needed) a SQLite database file
// and applies migrations.
func NewSQLiteRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(SQLite, dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY on concurrent requests.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}

	return &Repository{db: db, dialect: SQLite}, nil
}

// NewPostgresRepository connects to Postgres and applies migrations.
func NewPostgresRepository(ctx context.Context, dsn string) (*Repository, error) {
	if err := RunMigrations(Postgres, dsn); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Repository{db: db, dialect: Postgres}, nil
}

// sqliteDSN makes the driver write times in a sortable layout.
func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_time_format=sqlite"
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Dialect() Dialect { return r.dialect }

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// rebind rewrites ? placeholders to $n for Postgres.
func (r *Repository) rebind(q string) string {
	if r.dialect != Postgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

const expenseColumns = `id, description, amount, paid_by, date, category, notes, split_type, participants, custom_splits`

type rowScanner interface {
	Scan(dest ...any) error
}

// errMalformedRow marks a row that was read but could not be decoded.
var errMalformedRow = errors.New("malformed row")

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e      core.Expense
		amount string
		paidBy string
		date   any
		cols   splitColumns
	)
	if err := row.Scan(&e.ID, &e.Description, &amount, &paidBy, &date, &e.Category, &e.Notes,
		&cols.Type, &cols.Participants, &cols.Shares); err != nil {
		return core.Expense{}, err
	}

	amt, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: expense %s amount %q: %w", errMalformedRow, e.ID, amount, err)
	}
	e.Amount = amt
	e.PaidBy = core.UserID(paidBy)

	if e.Date, err = parseTime(date); err != nil {
		return core.Expense{}, fmt.Errorf("%w: expense %s date: %w", errMalformedRow, e.ID, err)
	}

	split, err := decodeSplit(cols)
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: expense %s: %w", errMalformedRow, e.ID, err)
	}
	if split == nil {
		slog.Warn("Expense has unknown split type, it will not affect balances",
			"id", e.ID, "split_type", cols.Type)
	}
	e.Split = split
	return e, nil
}

// ListExpenses implements ledger.ExpenseLister
func (r *Repository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses ORDER BY date DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if errors.Is(err, errMalformedRow) {
			// One bad row must not hide the rest of the ledger.
			slog.WarnContext(ctx, "Skipping malformed expense row", "error", err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

// GetExpense implements ledger.ExpenseReader
func (r *Repository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		r.rebind(`SELECT `+expenseColumns+` FROM expenses WHERE id = ?`), id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("expense %s: %w", id, ledger.ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// AddExpense implements ledger.ExpenseWriter
func (r *Repository) AddExpense(ctx context.Context, e core.Expense) error {
	cols, err := encodeSplit(e.Split)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, r.rebind(`INSERT INTO expenses (`+expenseColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		e.ID, e.Description, e.Amount.String(), string(e.PaidBy), e.Date.UTC(),
		e.Category, e.Notes, cols.Type, cols.Participants, cols.Shares)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"dialect", r.dialect,
		"amount", e.Amount.String(),
		"paid_by", e.PaidBy,
		"split_type", cols.Type)
	return nil
}

// DeleteExpense implements ledger.ExpenseWriter
func (r *Repository) DeleteExpense(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM expenses WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return checkAffected(res, "expense", id)
}

const itemColumns = `id, name, quantity, completed, added_by, assigned_to, priority, notes, date`

func scanItem(row rowScanner) (core.ShoppingItem, error) {
	var (
		it                          core.ShoppingItem
		addedBy, assigned, priority string
		date                        any
	)
	if err := row.Scan(&it.ID, &it.Name, &it.Quantity, &it.Completed, &addedBy, &assigned,
		&priority, &it.Notes, &date); err != nil {
		return core.ShoppingItem{}, err
	}
	it.AddedBy = core.UserID(addedBy)
	it.AssignedTo = core.UserID(assigned)
	it.Priority = core.Priority(priority)
	var err error
	if it.Date, err = parseTime(date); err != nil {
		return core.ShoppingItem{}, fmt.Errorf("item %s date: %w", it.ID, err)
	}
	return it, nil
}

// ListItems implements ledger.ShoppingStore
func (r *Repository) ListItems(ctx context.Context) ([]core.ShoppingItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM shopping_items ORDER BY date DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query shopping items: %w", err)
	}
	defer rows.Close()

	var out []core.ShoppingItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shopping item: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shopping items: %w", err)
	}
	return out, nil
}

// GetItem implements ledger.ShoppingStore
func (r *Repository) GetItem(ctx context.Context, id string) (core.ShoppingItem, error) {
	row := r.db.QueryRowContext(ctx,
		r.rebind(`SELECT `+itemColumns+` FROM shopping_items WHERE id = ?`), id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ShoppingItem{}, fmt.Errorf("item %s: %w", id, ledger.ErrNotFound)
	}
	if err != nil {
		return core.ShoppingItem{}, fmt.Errorf("get shopping item: %w", err)
	}
	return it, nil
}

// AddItem implements ledger.ShoppingStore
func (r *Repository) AddItem(ctx context.Context, it core.ShoppingItem) error {
	_, err := r.db.ExecContext(ctx, r.rebind(`INSERT INTO shopping_items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		it.ID, it.Name, it.Quantity, it.Completed, string(it.AddedBy), string(it.AssignedTo),
		string(it.Priority), it.Notes, it.Date.UTC())
	if err != nil {
		return fmt.Errorf("insert shopping item: %w", err)
	}
	return nil
}

// UpdateItem implements ledger.ShoppingStore
func (r *Repository) UpdateItem(ctx context.Context, it core.ShoppingItem) error {
	res, err := r.db.ExecContext(ctx, r.rebind(`UPDATE shopping_items
		SET name = ?, quantity = ?, completed = ?, assigned_to = ?, priority = ?, notes = ?
		WHERE id = ?`),
		it.Name, it.Quantity, it.Completed, string(it.AssignedTo), string(it.Priority), it.Notes, it.ID)
	if err != nil {
		return fmt.Errorf("update shopping item: %w", err)
	}
	return checkAffected(res, "item", it.ID)
}

// DeleteItem implements ledger.ShoppingStore
func (r *Repository) DeleteItem(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM shopping_items WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete shopping item: %w", err)
	}
	return checkAffected(res, "item", id)
}

func checkAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ledger.ErrNotFound)
	}
	return nil
}

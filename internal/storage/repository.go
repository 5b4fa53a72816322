package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"emitrack/internal/core"

	_ "modernc.org/sqlite"
)

// Times are stored as fixed-width UTC text so that range comparisons in SQL
// order the same way the instants do.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db *sql.DB
}

var _ Store = (*SQLiteRepository)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Immediate transactions take the write lock up front, so two payments on
	// the same loan queue behind each other instead of failing on lock upgrade.
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// EnsureUser returns the user mapped to the identity-provider subject,
// creating it on first sight.
func (r *SQLiteRepository) EnsureUser(ctx context.Context, externalID string) (core.User, error) {
	now := time.Now()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, external_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT(external_id) DO NOTHING`,
		uuid.NewString(), externalID, formatTime(now))
	if err != nil {
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.InfoContext(ctx, "User provisioned", "external_id", externalID)
	}

	var u core.User
	var created string
	err = r.db.QueryRowContext(ctx,
		`SELECT id, external_id, created_at FROM users WHERE external_id = ?`, externalID).
		Scan(&u.ID, &u.ExternalID, &created)
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	if u.CreatedAt, err = parseTime(created); err != nil {
		return core.User{}, err
	}
	return u, nil
}

// EMIs

const emiColumns = `id, user_id, title, amount_cents, due_day, start_date, total_installments,
	paid_installments, remaining_installments, last_payment_date, credit_card_id, created_at, updated_at`

func (r *SQLiteRepository) CreateEMI(ctx context.Context, e core.EMI) (core.EMI, error) {
	now := time.Now().UTC()
	e.ID = uuid.NewString()
	e.CreatedAt, e.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO emis (`+emiColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Title, e.Amount.Cents, e.DueDay, e.StartDate.Format(dateLayout),
		e.TotalInstallments, e.PaidInstallments, e.RemainingInstallments,
		nullableTime(e.LastPaymentDate), nullableString(e.CreditCardID),
		formatTime(e.CreatedAt), formatTime(e.UpdatedAt))
	if err != nil {
		return core.EMI{}, fmt.Errorf("create emi: %w", err)
	}

	slog.InfoContext(ctx, "EMI saved to SQLite",
		"id", e.ID,
		"title", e.Title,
		"amount_cents", e.Amount.Cents,
		"total_installments", e.TotalInstallments)
	return e, nil
}

func (r *SQLiteRepository) GetEMI(ctx context.Context, userID, id string) (core.EMI, error) {
	return getEMI(ctx, r.db, userID, id)
}

func getEMI(ctx context.Context, q querier, userID, id string) (core.EMI, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+emiColumns+` FROM emis WHERE id = ? AND user_id = ?`, id, userID)
	e, err := scanEMI(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.EMI{}, ErrNotFound
	}
	if err != nil {
		return core.EMI{}, fmt.Errorf("get emi: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) ListEMIs(ctx context.Context, userID string) ([]core.EMI, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+emiColumns+` FROM emis WHERE user_id = ? ORDER BY due_day ASC, created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list emis: %w", err)
	}
	defer rows.Close()

	var out []core.EMI
	for rows.Next() {
		e, err := scanEMI(rows)
		if err != nil {
			return nil, fmt.Errorf("scan emi: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateEMI(ctx context.Context, e core.EMI) (core.EMI, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE emis SET title = ?, amount_cents = ?, due_day = ?, start_date = ?, credit_card_id = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		e.Title, e.Amount.Cents, e.DueDay, e.StartDate.Format(dateLayout), nullableString(e.CreditCardID),
		formatTime(time.Now()), e.ID, e.UserID)
	if err != nil {
		return core.EMI{}, fmt.Errorf("update emi: %w", err)
	}
	if err := expectRow(res); err != nil {
		return core.EMI{}, err
	}
	return r.GetEMI(ctx, e.UserID, e.ID)
}

func (r *SQLiteRepository) DeleteEMI(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM emis WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete emi: %w", err)
	}
	return expectRow(res)
}

func (r *SQLiteRepository) ApplyEMIPayment(ctx context.Context, userID, id string, fn PaymentFunc) (core.EMI, core.LedgerEntry, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.EMI{}, core.LedgerEntry{}, fmt.Errorf("begin payment tx: %w", err)
	}
	defer tx.Rollback()

	current, err := getEMI(ctx, tx, userID, id)
	if err != nil {
		return core.EMI{}, core.LedgerEntry{}, err
	}

	updated, entry := fn(current)
	if err := updateEMIPayment(ctx, tx, current.PaidInstallments, updated); err != nil {
		return core.EMI{}, core.LedgerEntry{}, err
	}

	entry.UserID = current.UserID
	entry, err = insertLedgerEntry(ctx, tx, entry)
	if err != nil {
		return core.EMI{}, core.LedgerEntry{}, err
	}

	if err := tx.Commit(); err != nil {
		return core.EMI{}, core.LedgerEntry{}, fmt.Errorf("commit payment tx: %w", err)
	}

	slog.InfoContext(ctx, "EMI payment committed",
		"emi_id", updated.ID,
		"paid_installments", updated.PaidInstallments,
		"remaining_installments", updated.RemainingInstallments,
		"ledger_entry_id", entry.ID)
	return updated, entry, nil
}

// updateEMIPayment writes the payment counters only if the stored paid count
// is still expectedPaid.
func updateEMIPayment(ctx context.Context, q querier, expectedPaid int, e core.EMI) error {
	res, err := q.ExecContext(ctx,
		`UPDATE emis SET paid_installments = ?, remaining_installments = ?, last_payment_date = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND paid_installments = ?`,
		e.PaidInstallments, e.RemainingInstallments, nullableTime(e.LastPaymentDate), formatTime(e.UpdatedAt),
		e.ID, e.UserID, expectedPaid)
	if err != nil {
		return fmt.Errorf("update emi payment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

func scanEMI(s scanner) (core.EMI, error) {
	var (
		e                       core.EMI
		start, created, updated string
		lastPayment, creditCard sql.NullString
	)
	err := s.Scan(&e.ID, &e.UserID, &e.Title, &e.Amount.Cents, &e.DueDay, &start,
		&e.TotalInstallments, &e.PaidInstallments, &e.RemainingInstallments,
		&lastPayment, &creditCard, &created, &updated)
	if err != nil {
		return core.EMI{}, err
	}
	if e.StartDate, err = core.ParseDate(start); err != nil {
		return core.EMI{}, fmt.Errorf("parse start date: %w", err)
	}
	if e.LastPaymentDate, err = parseNullTime(lastPayment); err != nil {
		return core.EMI{}, err
	}
	e.CreditCardID = creditCard.String
	if e.CreatedAt, err = parseTime(created); err != nil {
		return core.EMI{}, err
	}
	if e.UpdatedAt, err = parseTime(updated); err != nil {
		return core.EMI{}, err
	}
	return e, nil
}

// Ledger entries

const ledgerColumns = `id, user_id, title, amount_cents, due_day, category, is_recurring, is_paid,
	paid_at, source, destination, credit_card_id, created_at, updated_at`

func (r *SQLiteRepository) CreateLedgerEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	return insertLedgerEntry(ctx, r.db, e)
}

func insertLedgerEntry(ctx context.Context, q querier, e core.LedgerEntry) (core.LedgerEntry, error) {
	now := time.Now().UTC()
	e.ID = uuid.NewString()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	_, err := q.ExecContext(ctx,
		`INSERT INTO ledger_entries (`+ledgerColumns+`, entry_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Title, e.Amount.Cents, e.DueDay, string(e.Category), e.IsRecurring, e.IsPaid,
		nullableTime(e.PaidAt), e.Source, e.Destination, nullableString(e.CreditCardID),
		formatTime(e.CreatedAt), formatTime(e.UpdatedAt), formatTime(EntryDate(e)))
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("create ledger entry: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) GetLedgerEntry(ctx context.Context, id string) (core.LedgerEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+ledgerColumns+` FROM ledger_entries WHERE id = ?`, id)
	e, err := scanLedgerEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.LedgerEntry{}, ErrNotFound
	}
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("get ledger entry: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) ListLedgerEntries(ctx context.Context, userID string, from, to time.Time) ([]core.LedgerEntry, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE user_id = ?`)
	args := []any{userID}
	if !from.IsZero() {
		sb.WriteString(` AND entry_date >= ?`)
		args = append(args, formatTime(from))
	}
	if !to.IsZero() {
		sb.WriteString(` AND entry_date < ?`)
		args = append(args, formatTime(to))
	}
	sb.WriteString(` ORDER BY entry_date DESC`)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var out []core.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateLedgerEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	existing, err := r.getOwnedLedgerEntry(ctx, e.UserID, e.ID)
	if err != nil {
		return core.LedgerEntry{}, err
	}
	e.CreatedAt = existing.CreatedAt

	res, err := r.db.ExecContext(ctx,
		`UPDATE ledger_entries SET title = ?, amount_cents = ?, due_day = ?, category = ?, is_recurring = ?,
		is_paid = ?, paid_at = ?, source = ?, destination = ?, credit_card_id = ?, entry_date = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		e.Title, e.Amount.Cents, e.DueDay, string(e.Category), e.IsRecurring, e.IsPaid,
		nullableTime(e.PaidAt), e.Source, e.Destination, nullableString(e.CreditCardID),
		formatTime(EntryDate(e)), formatTime(time.Now()), e.ID, e.UserID)
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("update ledger entry: %w", err)
	}
	if err := expectRow(res); err != nil {
		return core.LedgerEntry{}, err
	}
	return r.getOwnedLedgerEntry(ctx, e.UserID, e.ID)
}

func (r *SQLiteRepository) getOwnedLedgerEntry(ctx context.Context, userID, id string) (core.LedgerEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries WHERE id = ? AND user_id = ?`, id, userID)
	e, err := scanLedgerEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.LedgerEntry{}, ErrNotFound
	}
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("get ledger entry: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) DeleteLedgerEntry(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ledger_entries WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete ledger entry: %w", err)
	}
	return expectRow(res)
}

func scanLedgerEntry(s scanner) (core.LedgerEntry, error) {
	var (
		e                  core.LedgerEntry
		category           string
		created, updated   string
		paidAt, creditCard sql.NullString
	)
	err := s.Scan(&e.ID, &e.UserID, &e.Title, &e.Amount.Cents, &e.DueDay, &category, &e.IsRecurring, &e.IsPaid,
		&paidAt, &e.Source, &e.Destination, &creditCard, &created, &updated)
	if err != nil {
		return core.LedgerEntry{}, err
	}
	e.Category = core.EntryCategory(category)
	e.CreditCardID = creditCard.String
	if e.PaidAt, err = parseNullTime(paidAt); err != nil {
		return core.LedgerEntry{}, err
	}
	if e.CreatedAt, err = parseTime(created); err != nil {
		return core.LedgerEntry{}, err
	}
	if e.UpdatedAt, err = parseTime(updated); err != nil {
		return core.LedgerEntry{}, err
	}
	return e, nil
}

// Incomes

const incomeColumns = `id, user_id, source, amount_cents, is_recurring, frequency, category, description,
	next_payment_date, created_at, updated_at`

func (r *SQLiteRepository) CreateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	now := time.Now().UTC()
	in.ID = uuid.NewString()
	in.CreatedAt, in.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO incomes (`+incomeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.UserID, in.Source, in.Amount.Cents, in.IsRecurring, string(in.Frequency), in.Category,
		in.Description, nullableDate(in.NextPaymentDate), formatTime(in.CreatedAt), formatTime(in.UpdatedAt))
	if err != nil {
		return core.Income{}, fmt.Errorf("create income: %w", err)
	}
	return in, nil
}

func (r *SQLiteRepository) ListIncomes(ctx context.Context, userID string) ([]core.Income, error) {
	return r.queryIncomes(ctx,
		`SELECT `+incomeColumns+` FROM incomes WHERE user_id = ? ORDER BY created_at DESC`, userID)
}

func (r *SQLiteRepository) ListRecurringIncomesDue(ctx context.Context, now time.Time) ([]core.Income, error) {
	return r.queryIncomes(ctx,
		`SELECT `+incomeColumns+` FROM incomes
		WHERE is_recurring = 1 AND frequency <> ? AND next_payment_date IS NOT NULL AND next_payment_date <= ?
		ORDER BY next_payment_date ASC`,
		string(core.OneTime), now.Format(dateLayout))
}

func (r *SQLiteRepository) queryIncomes(ctx context.Context, query string, args ...any) ([]core.Income, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	var out []core.Income
	for rows.Next() {
		in, err := scanIncome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE incomes SET source = ?, amount_cents = ?, is_recurring = ?, frequency = ?, category = ?,
		description = ?, next_payment_date = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		in.Source, in.Amount.Cents, in.IsRecurring, string(in.Frequency), in.Category, in.Description,
		nullableDate(in.NextPaymentDate), formatTime(time.Now()), in.ID, in.UserID)
	if err != nil {
		return core.Income{}, fmt.Errorf("update income: %w", err)
	}
	if err := expectRow(res); err != nil {
		return core.Income{}, err
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT `+incomeColumns+` FROM incomes WHERE id = ? AND user_id = ?`, in.ID, in.UserID)
	updated, err := scanIncome(row)
	if err != nil {
		return core.Income{}, fmt.Errorf("get income: %w", err)
	}
	return updated, nil
}

func (r *SQLiteRepository) DeleteIncome(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM incomes WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	return expectRow(res)
}

func (r *SQLiteRepository) AdvanceIncome(ctx context.Context, id string, next core.Date) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE incomes SET next_payment_date = ?, updated_at = ? WHERE id = ?`,
		next.Format(dateLayout), formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("advance income: %w", err)
	}
	return expectRow(res)
}

func scanIncome(s scanner) (core.Income, error) {
	var (
		in               core.Income
		frequency        string
		created, updated string
		next             sql.NullString
	)
	err := s.Scan(&in.ID, &in.UserID, &in.Source, &in.Amount.Cents, &in.IsRecurring, &frequency, &in.Category,
		&in.Description, &next, &created, &updated)
	if err != nil {
		return core.Income{}, err
	}
	in.Frequency = core.Frequency(frequency)
	if next.Valid && next.String != "" {
		d, err := core.ParseDate(next.String)
		if err != nil {
			return core.Income{}, fmt.Errorf("parse next payment date: %w", err)
		}
		in.NextPaymentDate = &d
	}
	if in.CreatedAt, err = parseTime(created); err != nil {
		return core.Income{}, err
	}
	if in.UpdatedAt, err = parseTime(updated); err != nil {
		return core.Income{}, err
	}
	return in, nil
}

// Credit cards

const cardColumns = `id, user_id, name, limit_cents, used_cents, available_cents, due_day, created_at, updated_at`

func (r *SQLiteRepository) CreateCreditCard(ctx context.Context, c core.CreditCard) (core.CreditCard, error) {
	now := time.Now().UTC()
	c.ID = uuid.NewString()
	c.CreatedAt, c.UpdatedAt = now, now
	c.Recompute()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO credit_cards (`+cardColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, c.Limit.Cents, c.UsedAmount.Cents, c.AvailableAmount.Cents, c.DueDay,
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	if err != nil {
		return core.CreditCard{}, fmt.Errorf("create credit card: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) GetCreditCard(ctx context.Context, userID, id string) (core.CreditCard, error) {
	return getCreditCard(ctx, r.db, userID, id)
}

func getCreditCard(ctx context.Context, q querier, userID, id string) (core.CreditCard, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM credit_cards WHERE id = ? AND user_id = ?`, id, userID)
	c, err := scanCreditCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CreditCard{}, ErrNotFound
	}
	if err != nil {
		return core.CreditCard{}, fmt.Errorf("get credit card: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListCreditCards(ctx context.Context, userID string) ([]core.CreditCard, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM credit_cards WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list credit cards: %w", err)
	}
	defer rows.Close()

	var out []core.CreditCard
	for rows.Next() {
		c, err := scanCreditCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credit card: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateCreditCard(ctx context.Context, c core.CreditCard) (core.CreditCard, error) {
	c.Recompute()
	res, err := r.db.ExecContext(ctx,
		`UPDATE credit_cards SET name = ?, limit_cents = ?, used_cents = ?, available_cents = ?, due_day = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		c.Name, c.Limit.Cents, c.UsedAmount.Cents, c.AvailableAmount.Cents, c.DueDay, formatTime(time.Now()),
		c.ID, c.UserID)
	if err != nil {
		return core.CreditCard{}, fmt.Errorf("update credit card: %w", err)
	}
	if err := expectRow(res); err != nil {
		return core.CreditCard{}, err
	}
	return r.GetCreditCard(ctx, c.UserID, c.ID)
}

func (r *SQLiteRepository) DeleteCreditCard(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM credit_cards WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete credit card: %w", err)
	}
	return expectRow(res)
}

func (r *SQLiteRepository) ApplyCardPayment(ctx context.Context, userID, id string, fn CardPaymentFunc) (core.CreditCard, core.LedgerEntry, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.CreditCard{}, core.LedgerEntry{}, fmt.Errorf("begin card payment tx: %w", err)
	}
	defer tx.Rollback()

	current, err := getCreditCard(ctx, tx, userID, id)
	if err != nil {
		return core.CreditCard{}, core.LedgerEntry{}, err
	}

	updated, entry, err := fn(current)
	if err != nil {
		return core.CreditCard{}, core.LedgerEntry{}, err
	}
	updated.Recompute()

	res, err := tx.ExecContext(ctx,
		`UPDATE credit_cards SET used_cents = ?, available_cents = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND used_cents = ?`,
		updated.UsedAmount.Cents, updated.AvailableAmount.Cents, formatTime(updated.UpdatedAt),
		current.ID, userID, current.UsedAmount.Cents)
	if err != nil {
		return core.CreditCard{}, core.LedgerEntry{}, fmt.Errorf("update card balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.CreditCard{}, core.LedgerEntry{}, ErrConflict
	}

	entry.UserID = current.UserID
	entry, err = insertLedgerEntry(ctx, tx, entry)
	if err != nil {
		return core.CreditCard{}, core.LedgerEntry{}, err
	}

	if err := tx.Commit(); err != nil {
		return core.CreditCard{}, core.LedgerEntry{}, fmt.Errorf("commit card payment tx: %w", err)
	}
	return updated, entry, nil
}

func scanCreditCard(s scanner) (core.CreditCard, error) {
	var (
		c                core.CreditCard
		created, updated string
	)
	err := s.Scan(&c.ID, &c.UserID, &c.Name, &c.Limit.Cents, &c.UsedAmount.Cents, &c.AvailableAmount.Cents,
		&c.DueDay, &created, &updated)
	if err != nil {
		return core.CreditCard{}, err
	}
	if c.CreatedAt, err = parseTime(created); err != nil {
		return core.CreditCard{}, err
	}
	if c.UpdatedAt, err = parseTime(updated); err != nil {
		return core.CreditCard{}, err
	}
	return c, nil
}

// helpers

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil || t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullableDate(d *core.Date) sql.NullString {
	if d == nil || d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Format(dateLayout), Valid: true}
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

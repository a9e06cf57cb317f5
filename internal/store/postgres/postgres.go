// Package postgres implements the repository on PostgreSQL through the
// pgx stdlib driver. Multi-step mutations run in serializable
// transactions so stock checks and ledger appends cannot interleave.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"padelclub/backend/internal/domain"
	"padelclub/backend/internal/store"
	"padelclub/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

var _ store.Repository = (*Store)(nil)

func Open(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			price BIGINT NOT NULL,
			stock INTEGER NOT NULL DEFAULT 0,
			min_stock INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS products_name_key ON products (LOWER(name))`,
		`CREATE TABLE IF NOT EXISTS courts (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS court_services (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			price BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS turns (
			id TEXT PRIMARY KEY,
			admin_name TEXT NOT NULL,
			status TEXT NOT NULL,
			opening_cash BIGINT NOT NULL DEFAULT 0,
			totals JSONB NOT NULL DEFAULT '{}',
			started_at TIMESTAMPTZ NOT NULL,
			closed_at TIMESTAMPTZ
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS turns_single_active ON turns ((TRUE)) WHERE status = 'active'`,
		`CREATE TABLE IF NOT EXISTS turn_closures (
			id TEXT PRIMARY KEY,
			turn_id TEXT NOT NULL REFERENCES turns(id),
			admin_name TEXT NOT NULL,
			totals JSONB NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			closed_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sales (
			id TEXT PRIMARY KEY,
			receipt_number TEXT NOT NULL,
			kind TEXT NOT NULL,
			customer_name TEXT NOT NULL DEFAULT '',
			lot_number TEXT NOT NULL DEFAULT '',
			court_id TEXT NOT NULL DEFAULT '',
			items JSONB NOT NULL DEFAULT '[]',
			total BIGINT NOT NULL,
			payment_method TEXT NOT NULL,
			breakdown JSONB NOT NULL,
			admin_name TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS court_bills (
			id TEXT PRIMARY KEY,
			receipt_number TEXT NOT NULL,
			reservation_id TEXT NOT NULL,
			court_id TEXT NOT NULL DEFAULT '',
			court_name TEXT NOT NULL DEFAULT '',
			customer_name TEXT NOT NULL DEFAULT '',
			lot_number TEXT NOT NULL DEFAULT '',
			items JSONB NOT NULL DEFAULT '[]',
			raw_items JSONB NOT NULL DEFAULT '[]',
			total BIGINT NOT NULL,
			payment_method TEXT NOT NULL,
			breakdown JSONB NOT NULL,
			admin_name TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS withdrawals (
			id TEXT PRIMARY KEY,
			withdrawal_id TEXT NOT NULL,
			turn_id TEXT NOT NULL REFERENCES turns(id),
			amount BIGINT NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			admin_name TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS expenses (
			id TEXT PRIMARY KEY,
			turn_id TEXT NOT NULL REFERENCES turns(id),
			concept TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			amount BIGINT NOT NULL,
			admin_name TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS open_bills (
			reservation_id TEXT PRIMARY KEY,
			court_id TEXT NOT NULL,
			court_name TEXT NOT NULL DEFAULT '',
			customer_name TEXT NOT NULL DEFAULT '',
			lot_number TEXT NOT NULL DEFAULT '',
			lines JSONB NOT NULL DEFAULT '[]',
			total BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS stock_movements (
			id TEXT PRIMARY KEY,
			product_id TEXT NOT NULL REFERENCES products(id),
			delta INTEGER NOT NULL,
			resulting INTEGER NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			actor_name TEXT NOT NULL DEFAULT '',
			occurred_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS reversed_records (
			id TEXT PRIMARY KEY,
			reversed_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id TEXT PRIMARY KEY,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			entity TEXT NOT NULL,
			entity_id TEXT NOT NULL DEFAULT '',
			detail TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS counters (
			name TEXT PRIMARY KEY,
			value BIGINT NOT NULL DEFAULT 0
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *Store) beginSerializable(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func nextCounter(ctx context.Context, q execer, name string) (int64, error) {
	var value int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO counters (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
		RETURNING value`, name).Scan(&value)
	return value, err
}

func nextReceipt(ctx context.Context, q execer) (string, error) {
	seq, err := nextCounter(ctx, q, "receipt")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("VP-%d-%06d", time.Now().UTC().Year(), seq), nil
}

func nextWithdrawalNumber(ctx context.Context, q execer) (string, error) {
	seq, err := nextCounter(ctx, q, "withdrawal")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("RET-%04d", seq), nil
}

// ---- catalogs ----

const productColumns = `id, name, category, price, stock, min_stock, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Stock, &p.MinStock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return scanProduct(s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

func (s *Store) FindProductByName(ctx context.Context, name string) (*domain.Product, error) {
	return scanProduct(s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE LOWER(name) = LOWER($1)`, strings.TrimSpace(name)))
}

func (s *Store) CreateProduct(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(p.Name) == "" || p.Price < 0 {
		return nil, store.ErrInvalidRecord
	}
	if p.ID == "" {
		p.ID = xid.New("prd")
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, category, price, stock, min_stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.Name, p.Category, p.Price, p.Stock, p.MinStock, p.CreatedAt, p.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, store.ErrDuplicate
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, p domain.Product) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE products SET name = $2, category = $3, price = $4, min_stock = $5, updated_at = $6
		WHERE id = $1
		RETURNING `+productColumns,
		p.ID, p.Name, p.Category, p.Price, p.MinStock, time.Now().UTC())
	return scanProduct(row)
}

func (s *Store) ListCourts(ctx context.Context) ([]domain.Court, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, active FROM courts ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Court
	for rows.Next() {
		var c domain.Court
		if err := rows.Scan(&c.ID, &c.Name, &c.Active); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetCourt(ctx context.Context, id string) (*domain.Court, error) {
	var c domain.Court
	err := s.db.QueryRowContext(ctx, `SELECT id, name, active FROM courts WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) ListCourtServices(ctx context.Context) ([]domain.CourtService, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, category, description, price FROM court_services ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.CourtService
	for rows.Next() {
		var sv domain.CourtService
		if err := rows.Scan(&sv.ID, &sv.Name, &sv.Category, &sv.Description, &sv.Price); err != nil {
			return nil, err
		}
		out = append(out, sv)
	}
	return out, rows.Err()
}

func (s *Store) GetCourtService(ctx context.Context, id string) (*domain.CourtService, error) {
	var sv domain.CourtService
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, category, description, price FROM court_services WHERE id = $1`, id).
		Scan(&sv.ID, &sv.Name, &sv.Category, &sv.Description, &sv.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sv, nil
}

// ---- stock ----

// adjustStockTx clamps the resulting level at zero and records the
// movement with the applied delta.
func adjustStockTx(ctx context.Context, q execer, productID string, delta int, reason, actor string) (*domain.Product, error) {
	var before int
	err := q.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&before)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, productID)
	}
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	row := q.QueryRowContext(ctx, `
		UPDATE products SET stock = GREATEST(0, stock + $2), updated_at = $3
		WHERE id = $1
		RETURNING `+productColumns, productID, delta, now)
	p, err := scanProduct(row)
	if err != nil {
		return nil, err
	}
	applied := p.Stock - before
	_, err = q.ExecContext(ctx, `
		INSERT INTO stock_movements (id, product_id, delta, resulting, reason, actor_name, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		xid.New("mov"), productID, applied, p.Stock, reason, actor, now)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) AdjustStock(ctx context.Context, productID string, delta int, reason, actor string) (*domain.Product, error) {
	tx, err := s.beginSerializable(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	p, err := adjustStockTx(ctx, tx, productID, delta, reason, actor)
	if err != nil {
		return nil, err
	}
	return p, tx.Commit()
}

func (s *Store) ApplyStockAdjustments(ctx context.Context, adjs []domain.StockAdjustment, actor string) error {
	tx, err := s.beginSerializable(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, adj := range adjs {
		if _, err := adjustStockTx(ctx, tx, adj.ProductID, adj.Delta, adj.Reason, actor); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) ListStockMovements(ctx context.Context, productID string) ([]domain.StockMovement, error) {
	query := `SELECT id, product_id, delta, resulting, reason, actor_name, occurred_at FROM stock_movements`
	args := []any{}
	if productID != "" {
		query += ` WHERE product_id = $1`
		args = append(args, productID)
	}
	query += ` ORDER BY occurred_at`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.StockMovement
	for rows.Next() {
		var m domain.StockMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Delta, &m.Resulting, &m.Reason, &m.ActorName, &m.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// debitStockTx fails with ErrOutOfStock instead of clamping. Used by
// sale and bill-close paths where overselling must be rejected.
func debitStockTx(ctx context.Context, q execer, needed map[string]int, reason, actor string) error {
	for id, qty := range needed {
		var name string
		var stock int
		err := q.QueryRowContext(ctx, `SELECT name, stock FROM products WHERE id = $1 FOR UPDATE`, id).
			Scan(&name, &stock)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: product %s", store.ErrNotFound, id)
		}
		if err != nil {
			return err
		}
		if stock < qty {
			return fmt.Errorf("%w: %s", store.ErrOutOfStock, name)
		}
		if _, err := adjustStockTx(ctx, q, id, -qty, reason, actor); err != nil {
			return err
		}
	}
	return nil
}

// ---- turns ----

const turnColumns = `id, admin_name, status, opening_cash, totals, started_at, closed_at`

func scanTurn(row interface{ Scan(...any) error }) (*domain.AdminTurn, error) {
	var (
		t         domain.AdminTurn
		totalsRaw []byte
		closedAt  sql.NullTime
	)
	err := row.Scan(&t.ID, &t.AdminName, &t.Status, &t.OpeningCash, &totalsRaw, &t.StartedAt, &closedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(totalsRaw, &t.Totals); err != nil {
		return nil, fmt.Errorf("decode turn totals: %w", err)
	}
	if closedAt.Valid {
		at := closedAt.Time
		t.ClosedAt = &at
	}
	return &t, nil
}

func (s *Store) CreateTurn(ctx context.Context, turn domain.AdminTurn) (*domain.AdminTurn, error) {
	if turn.ID == "" {
		turn.ID = xid.New("trn")
	}
	turn.Status = domain.TurnStatusActive
	totalsRaw, err := json.Marshal(turn.Totals)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO turns (id, admin_name, status, opening_cash, totals, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		turn.ID, turn.AdminName, turn.Status, turn.OpeningCash, totalsRaw, turn.StartedAt)
	if isUniqueViolation(err) {
		return nil, store.ErrTurnActive
	}
	if err != nil {
		return nil, err
	}
	return &turn, nil
}

func (s *Store) GetActiveTurn(ctx context.Context) (*domain.AdminTurn, error) {
	t, err := scanTurn(s.db.QueryRowContext(ctx,
		`SELECT `+turnColumns+` FROM turns WHERE status = $1`, domain.TurnStatusActive))
	if errors.Is(err, store.ErrNotFound) {
		return nil, store.ErrNoActiveTurn
	}
	return t, err
}

func (s *Store) GetTurn(ctx context.Context, id string) (*domain.AdminTurn, error) {
	return scanTurn(s.db.QueryRowContext(ctx, `SELECT `+turnColumns+` FROM turns WHERE id = $1`, id))
}

func (s *Store) ListTurns(ctx context.Context) ([]domain.AdminTurn, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+turnColumns+` FROM turns ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.AdminTurn
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *Store) UpdateTurnTotals(ctx context.Context, turnID string, totals domain.TurnTotals) error {
	totalsRaw, err := json.Marshal(totals)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE turns SET totals = $2 WHERE id = $1`, turnID, totalsRaw)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CloseTurn(ctx context.Context, turnID string, totals domain.TurnTotals, closedAt time.Time) (*domain.AdminTurn, error) {
	totalsRaw, err := json.Marshal(totals)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `
		UPDATE turns SET status = $2, totals = $3, closed_at = $4
		WHERE id = $1 AND status = $5
		RETURNING `+turnColumns,
		turnID, domain.TurnStatusClosed, totalsRaw, closedAt, domain.TurnStatusActive)
	t, err := scanTurn(row)
	if errors.Is(err, store.ErrNotFound) {
		return nil, store.ErrNoActiveTurn
	}
	return t, err
}

func (s *Store) CreateTurnClosure(ctx context.Context, closure domain.TurnClosure) (*domain.TurnClosure, error) {
	if closure.ID == "" {
		closure.ID = xid.New("cls")
	}
	totalsRaw, err := json.Marshal(closure.Totals)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO turn_closures (id, turn_id, admin_name, totals, notes, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		closure.ID, closure.TurnID, closure.AdminName, totalsRaw, closure.Notes, closure.ClosedAt)
	if err != nil {
		return nil, err
	}
	return &closure, nil
}

func (s *Store) ListTurnClosures(ctx context.Context) ([]domain.TurnClosure, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, turn_id, admin_name, totals, notes, closed_at
		FROM turn_closures ORDER BY closed_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.TurnClosure
	for rows.Next() {
		var (
			c         domain.TurnClosure
			totalsRaw []byte
		)
		if err := rows.Scan(&c.ID, &c.TurnID, &c.AdminName, &totalsRaw, &c.Notes, &c.ClosedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(totalsRaw, &c.Totals); err != nil {
			return nil, fmt.Errorf("decode closure totals: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ---- ledger records ----

const saleColumns = `id, receipt_number, kind, customer_name, lot_number, court_id, items, total, payment_method, breakdown, admin_name, status, created_at`

func scanSale(row interface{ Scan(...any) error }) (*domain.Sale, error) {
	var (
		sale         domain.Sale
		itemsRaw     []byte
		breakdownRaw []byte
	)
	err := row.Scan(&sale.ID, &sale.ReceiptNumber, &sale.Kind, &sale.CustomerName, &sale.LotNumber,
		&sale.CourtID, &itemsRaw, &sale.Total, &sale.PaymentMethod, &breakdownRaw,
		&sale.AdminName, &sale.Status, &sale.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(itemsRaw, &sale.Items); err != nil {
		return nil, fmt.Errorf("decode sale items: %w", err)
	}
	if err := json.Unmarshal(breakdownRaw, &sale.Breakdown); err != nil {
		return nil, fmt.Errorf("decode sale breakdown: %w", err)
	}
	return &sale, nil
}

func (s *Store) AppendSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.ID == "" {
		sale.ID = xid.New("sal")
	}
	if sale.Status == "" {
		sale.Status = domain.RecordStatusActive
	}
	tx, err := s.beginSerializable(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if sale.Kind == domain.TxKindKioskSale {
		needed := make(map[string]int)
		for _, it := range sale.Items {
			if it.ItemID != "" {
				needed[it.ItemID] += it.Qty
			}
		}
		if err := debitStockTx(ctx, tx, needed, "sale "+sale.ID, sale.AdminName); err != nil {
			return nil, err
		}
	}

	sale.ReceiptNumber, err = nextReceipt(ctx, tx)
	if err != nil {
		return nil, err
	}
	itemsRaw, err := json.Marshal(sale.Items)
	if err != nil {
		return nil, err
	}
	breakdownRaw, err := json.Marshal(sale.Breakdown)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (`+saleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		sale.ID, sale.ReceiptNumber, sale.Kind, sale.CustomerName, sale.LotNumber, sale.CourtID,
		itemsRaw, sale.Total, sale.PaymentMethod, breakdownRaw, sale.AdminName, sale.Status, sale.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) ListSales(ctx context.Context) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+saleColumns+` FROM sales ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sale)
	}
	return out, rows.Err()
}

func (s *Store) AppendWithdrawal(ctx context.Context, w domain.Withdrawal) (*domain.Withdrawal, error) {
	if w.ID == "" {
		w.ID = xid.New("wdr")
	}
	if w.Status == "" {
		w.Status = domain.RecordStatusActive
	}
	tx, err := s.beginSerializable(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	w.WithdrawalID, err = nextWithdrawalNumber(ctx, tx)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO withdrawals (id, withdrawal_id, turn_id, amount, notes, admin_name, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		w.ID, w.WithdrawalID, w.TurnID, w.Amount, w.Notes, w.AdminName, w.Status, w.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *Store) ListWithdrawals(ctx context.Context, turnID string) ([]domain.Withdrawal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, withdrawal_id, turn_id, amount, notes, admin_name, status, created_at
		FROM withdrawals WHERE turn_id = $1 ORDER BY created_at`, turnID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWithdrawals(rows)
}

func collectWithdrawals(rows *sql.Rows) ([]domain.Withdrawal, error) {
	var out []domain.Withdrawal
	for rows.Next() {
		var w domain.Withdrawal
		if err := rows.Scan(&w.ID, &w.WithdrawalID, &w.TurnID, &w.Amount, &w.Notes, &w.AdminName, &w.Status, &w.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *Store) AppendExpense(ctx context.Context, e domain.ExpenseEntry) (*domain.ExpenseEntry, error) {
	if e.ID == "" {
		e.ID = xid.New("exp")
	}
	if e.Status == "" {
		e.Status = domain.RecordStatusActive
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, turn_id, concept, detail, amount, admin_name, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.TurnID, e.Concept, e.Detail, e.Amount, e.AdminName, e.Status, e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) ListExpenses(ctx context.Context, turnID string) ([]domain.ExpenseEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, turn_id, concept, detail, amount, admin_name, status, created_at
		FROM expenses WHERE turn_id = $1 ORDER BY created_at`, turnID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectExpenses(rows)
}

func collectExpenses(rows *sql.Rows) ([]domain.ExpenseEntry, error) {
	var out []domain.ExpenseEntry
	for rows.Next() {
		var e domain.ExpenseEntry
		if err := rows.Scan(&e.ID, &e.TurnID, &e.Concept, &e.Detail, &e.Amount, &e.AdminName, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

const billColumns = `id, receipt_number, reservation_id, court_id, court_name, customer_name, lot_number, items, raw_items, total, payment_method, breakdown, admin_name, status, created_at`

func scanBill(row interface{ Scan(...any) error }) (*domain.CourtBill, error) {
	var (
		b            domain.CourtBill
		itemsRaw     []byte
		rawItemsRaw  []byte
		breakdownRaw []byte
	)
	err := row.Scan(&b.ID, &b.ReceiptNumber, &b.ReservationID, &b.CourtID, &b.CourtName,
		&b.CustomerName, &b.LotNumber, &itemsRaw, &rawItemsRaw, &b.Total,
		&b.PaymentMethod, &breakdownRaw, &b.AdminName, &b.Status, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(itemsRaw, &b.Items); err != nil {
		return nil, fmt.Errorf("decode bill items: %w", err)
	}
	if err := json.Unmarshal(rawItemsRaw, &b.RawItems); err != nil {
		return nil, fmt.Errorf("decode bill raw items: %w", err)
	}
	if err := json.Unmarshal(breakdownRaw, &b.Breakdown); err != nil {
		return nil, fmt.Errorf("decode bill breakdown: %w", err)
	}
	return &b, nil
}

func (s *Store) ListCourtBills(ctx context.Context) ([]domain.CourtBill, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+billColumns+` FROM court_bills ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.CourtBill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (s *Store) LedgerView(ctx context.Context, turnID string) (*store.LedgerSnapshot, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	turn, err := scanTurn(tx.QueryRowContext(ctx, `SELECT `+turnColumns+` FROM turns WHERE id = $1`, turnID))
	if err != nil {
		return nil, err
	}
	snap := &store.LedgerSnapshot{Turn: *turn}

	rows, err := tx.QueryContext(ctx, `SELECT `+saleColumns+` FROM sales ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		sale, serr := scanSale(rows)
		if serr != nil {
			rows.Close()
			return nil, serr
		}
		snap.Sales = append(snap.Sales, *sale)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	rows, err = tx.QueryContext(ctx, `SELECT `+billColumns+` FROM court_bills ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		b, berr := scanBill(rows)
		if berr != nil {
			rows.Close()
			return nil, berr
		}
		snap.Bills = append(snap.Bills, *b)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	rows, err = tx.QueryContext(ctx, `
		SELECT id, withdrawal_id, turn_id, amount, notes, admin_name, status, created_at
		FROM withdrawals WHERE turn_id = $1 ORDER BY created_at`, turnID)
	if err != nil {
		return nil, err
	}
	snap.Withdrawals, err = collectWithdrawals(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	rows, err = tx.QueryContext(ctx, `
		SELECT id, turn_id, concept, detail, amount, admin_name, status, created_at
		FROM expenses WHERE turn_id = $1 ORDER BY created_at`, turnID)
	if err != nil {
		return nil, err
	}
	snap.Expenses, err = collectExpenses(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	rows, err = tx.QueryContext(ctx, `SELECT id FROM reversed_records ORDER BY id`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		snap.ReversedIDs = append(snap.ReversedIDs, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	return snap, tx.Commit()
}

// ---- open bills ----

const openBillColumns = `reservation_id, court_id, court_name, customer_name, lot_number, lines, total, created_at, updated_at`

func scanOpenBill(row interface{ Scan(...any) error }) (*domain.OpenBill, error) {
	var (
		b        domain.OpenBill
		linesRaw []byte
	)
	err := row.Scan(&b.ReservationID, &b.CourtID, &b.CourtName, &b.CustomerName, &b.LotNumber,
		&linesRaw, &b.Total, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(linesRaw, &b.Lines); err != nil {
		return nil, fmt.Errorf("decode open bill lines: %w", err)
	}
	return &b, nil
}

func (s *Store) PutOpenBill(ctx context.Context, bill domain.OpenBill) (*domain.OpenBill, error) {
	if bill.ReservationID == "" {
		return nil, store.ErrInvalidRecord
	}
	linesRaw, err := json.Marshal(bill.Lines)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO open_bills (`+openBillColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (reservation_id) DO UPDATE SET
			customer_name = EXCLUDED.customer_name,
			lot_number = EXCLUDED.lot_number,
			lines = EXCLUDED.lines,
			total = EXCLUDED.total,
			updated_at = EXCLUDED.updated_at`,
		bill.ReservationID, bill.CourtID, bill.CourtName, bill.CustomerName, bill.LotNumber,
		linesRaw, bill.Total, bill.CreatedAt, bill.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

func (s *Store) GetOpenBill(ctx context.Context, reservationID string) (*domain.OpenBill, error) {
	return scanOpenBill(s.db.QueryRowContext(ctx,
		`SELECT `+openBillColumns+` FROM open_bills WHERE reservation_id = $1`, reservationID))
}

func (s *Store) ListOpenBills(ctx context.Context) ([]domain.OpenBill, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+openBillColumns+` FROM open_bills ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.OpenBill
	for rows.Next() {
		b, err := scanOpenBill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (s *Store) RemoveOpenBill(ctx context.Context, reservationID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM open_bills WHERE reservation_id = $1`, reservationID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CloseOpenBill(ctx context.Context, reservationID string, bill domain.CourtBill) (*domain.CourtBill, error) {
	tx, err := s.beginSerializable(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	open, err := scanOpenBill(tx.QueryRowContext(ctx,
		`SELECT `+openBillColumns+` FROM open_bills WHERE reservation_id = $1 FOR UPDATE`, reservationID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, store.ErrBillClosed
	}
	if err != nil {
		return nil, err
	}

	if bill.Total != open.Total || !store.SameBillLines(open.Lines, bill.RawItems) {
		return nil, store.ErrStaleBill
	}

	needed := make(map[string]int)
	for _, ln := range open.Lines {
		if ln.Kind == domain.LineKindCatalogProduct && ln.RefID != "" {
			needed[ln.RefID] += ln.Qty
		}
	}
	if bill.ID == "" {
		bill.ID = xid.New("bil")
	}
	if bill.Status == "" {
		bill.Status = domain.RecordStatusActive
	}
	if err := debitStockTx(ctx, tx, needed, "court bill "+bill.ID, bill.AdminName); err != nil {
		return nil, err
	}

	bill.ReceiptNumber, err = nextReceipt(ctx, tx)
	if err != nil {
		return nil, err
	}
	itemsRaw, err := json.Marshal(bill.Items)
	if err != nil {
		return nil, err
	}
	rawItemsRaw, err := json.Marshal(bill.RawItems)
	if err != nil {
		return nil, err
	}
	breakdownRaw, err := json.Marshal(bill.Breakdown)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO court_bills (`+billColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		bill.ID, bill.ReceiptNumber, bill.ReservationID, bill.CourtID, bill.CourtName,
		bill.CustomerName, bill.LotNumber, itemsRaw, rawItemsRaw, bill.Total,
		bill.PaymentMethod, breakdownRaw, bill.AdminName, bill.Status, bill.CreatedAt)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM open_bills WHERE reservation_id = $1`, reservationID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &bill, nil
}

// ---- reversal ----

func (s *Store) FindReversible(ctx context.Context, id string) (*store.ReversibleRecord, error) {
	sale, err := scanSale(s.db.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id))
	if err == nil {
		return &store.ReversibleRecord{ID: id, Kind: sale.Kind, Status: sale.Status, OccurredAt: sale.CreatedAt, RawItems: sale.Items}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	bill, err := scanBill(s.db.QueryRowContext(ctx, `SELECT `+billColumns+` FROM court_bills WHERE id = $1`, id))
	if err == nil {
		var raw []domain.LineItem
		for _, ln := range bill.RawItems {
			raw = append(raw, domain.LineItem{ItemID: ln.RefID, Name: ln.Name, UnitPrice: ln.UnitPrice, Qty: ln.Qty, Subtotal: ln.Subtotal})
		}
		return &store.ReversibleRecord{ID: id, Kind: domain.TxKindCourtBill, Status: bill.Status, OccurredAt: bill.CreatedAt, RawItems: raw}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	var (
		status    string
		turnID    string
		createdAt time.Time
	)
	err = s.db.QueryRowContext(ctx, `SELECT status, turn_id, created_at FROM withdrawals WHERE id = $1`, id).
		Scan(&status, &turnID, &createdAt)
	if err == nil {
		return &store.ReversibleRecord{ID: id, Kind: domain.TxKindWithdrawal, Status: status, TurnID: turnID, OccurredAt: createdAt}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx, `SELECT status, turn_id, created_at FROM expenses WHERE id = $1`, id).
		Scan(&status, &turnID, &createdAt)
	if err == nil {
		return &store.ReversibleRecord{ID: id, Kind: domain.TxKindExpense, Status: status, TurnID: turnID, OccurredAt: createdAt}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return nil, store.ErrNotFound
}

func (s *Store) MarkReversed(ctx context.Context, id string) error {
	tx, err := s.beginSerializable(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	updated := false
	for _, table := range []string{"sales", "court_bills", "withdrawals", "expenses"} {
		res, err := tx.ExecContext(ctx,
			`UPDATE `+table+` SET status = $2 WHERE id = $1`, id, domain.RecordStatusReversed)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			updated = true
			break
		}
	}
	if !updated {
		return store.ErrNotFound
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO reversed_records (id, reversed_at) VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING`, id, time.Now().UTC())
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) ListReversedIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM reversed_records ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ---- accounts and audit ----

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error) {
	var u domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, role, created_at FROM users WHERE username = $1`, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u domain.UserAccount) (*domain.UserAccount, error) {
	if u.ID == "" {
		u.ID = xid.New("usr")
	}
	u.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Username, u.PasswordHash, u.Role, u.CreatedAt)
	if isUniqueViolation(err) {
		return nil, store.ErrDuplicate
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("aud")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor, action, entity, entity_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.Actor, entry.Action, entry.Entity, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor, action, entity, entity_id, detail, created_at
		FROM audit_logs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.AuditLog
	for rows.Next() {
		var a domain.AuditLog
		if err := rows.Scan(&a.ID, &a.Actor, &a.Action, &a.Entity, &a.EntityID, &a.Detail, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

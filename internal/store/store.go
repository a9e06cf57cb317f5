package store

import (
	"context"
	"errors"
	"time"

	"padelclub/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidRecord     = errors.New("invalid record")
	ErrOutOfStock        = errors.New("out of stock")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrPaymentMismatch   = errors.New("payment breakdown does not match total")
	ErrInsufficientCash  = errors.New("insufficient cash in register")
	ErrTurnActive        = errors.New("a turn is already active")
	ErrNoActiveTurn      = errors.New("no active turn")
	ErrBillClosed        = errors.New("bill already closed")
	ErrStaleBill         = errors.New("bill changed since it was read")
	ErrDuplicate         = errors.New("duplicate record")
)

// SameBillLines reports whether two line sets are the same bill content:
// same lines in order, by id, quantity and unit price.
func SameBillLines(a, b []domain.BillLine) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Qty != b[i].Qty || a[i].UnitPrice != b[i].UnitPrice {
			return false
		}
	}
	return true
}

// LedgerSnapshot is everything the ledger aggregator needs for one turn,
// read in a single consistent view.
type LedgerSnapshot struct {
	Turn        domain.AdminTurn
	Sales       []domain.Sale
	Bills       []domain.CourtBill
	Withdrawals []domain.Withdrawal
	Expenses    []domain.ExpenseEntry
	ReversedIDs []string
}

// ReversibleRecord is the store's view of a record a reversal targets.
// Withdrawals and expenses carry their TurnID directly; sales and bills
// have no stored turn, so OccurredAt lets the caller locate the turn
// whose window holds the record.
type ReversibleRecord struct {
	ID         string
	Kind       string
	Status     string
	TurnID     string
	OccurredAt time.Time
	RawItems   []domain.LineItem
}

// Repository is the persistence boundary. Implementations must be safe
// for concurrent use.
type Repository interface {
	// Catalogs.
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	FindProductByName(ctx context.Context, name string) (*domain.Product, error)
	CreateProduct(ctx context.Context, p domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, p domain.Product) (*domain.Product, error)
	ListCourts(ctx context.Context) ([]domain.Court, error)
	GetCourt(ctx context.Context, id string) (*domain.Court, error)
	ListCourtServices(ctx context.Context) ([]domain.CourtService, error)
	GetCourtService(ctx context.Context, id string) (*domain.CourtService, error)

	// Stock. AdjustStock clamps the resulting level at zero and records a
	// movement. ApplyStockAdjustments applies the whole batch atomically.
	AdjustStock(ctx context.Context, productID string, delta int, reason, actor string) (*domain.Product, error)
	ApplyStockAdjustments(ctx context.Context, adjs []domain.StockAdjustment, actor string) error
	ListStockMovements(ctx context.Context, productID string) ([]domain.StockMovement, error)

	// Turns.
	CreateTurn(ctx context.Context, turn domain.AdminTurn) (*domain.AdminTurn, error)
	GetActiveTurn(ctx context.Context) (*domain.AdminTurn, error)
	GetTurn(ctx context.Context, id string) (*domain.AdminTurn, error)
	ListTurns(ctx context.Context) ([]domain.AdminTurn, error)
	UpdateTurnTotals(ctx context.Context, turnID string, totals domain.TurnTotals) error
	CloseTurn(ctx context.Context, turnID string, totals domain.TurnTotals, closedAt time.Time) (*domain.AdminTurn, error)
	CreateTurnClosure(ctx context.Context, closure domain.TurnClosure) (*domain.TurnClosure, error)
	ListTurnClosures(ctx context.Context) ([]domain.TurnClosure, error)

	// Ledger records. AppendSale assigns the receipt number and, for
	// stock-bearing sales, debits stock in the same step or fails with
	// ErrOutOfStock.
	AppendSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	ListSales(ctx context.Context) ([]domain.Sale, error)
	AppendWithdrawal(ctx context.Context, w domain.Withdrawal) (*domain.Withdrawal, error)
	ListWithdrawals(ctx context.Context, turnID string) ([]domain.Withdrawal, error)
	AppendExpense(ctx context.Context, e domain.ExpenseEntry) (*domain.ExpenseEntry, error)
	ListExpenses(ctx context.Context, turnID string) ([]domain.ExpenseEntry, error)
	ListCourtBills(ctx context.Context) ([]domain.CourtBill, error)

	// LedgerView reads one consistent snapshot for the given turn.
	LedgerView(ctx context.Context, turnID string) (*LedgerSnapshot, error)

	// Open bills.
	PutOpenBill(ctx context.Context, bill domain.OpenBill) (*domain.OpenBill, error)
	GetOpenBill(ctx context.Context, reservationID string) (*domain.OpenBill, error)
	ListOpenBills(ctx context.Context) ([]domain.OpenBill, error)
	RemoveOpenBill(ctx context.Context, reservationID string) error
	// CloseOpenBill atomically re-checks and debits stock for catalog
	// lines, appends the paid bill with a fresh receipt number, and
	// removes the open bill. The submitted bill must match the stored
	// open bill (lines and total) or the close fails with ErrStaleBill,
	// so a payment validated against a stale read can never land.
	CloseOpenBill(ctx context.Context, reservationID string, bill domain.CourtBill) (*domain.CourtBill, error)

	// Reversal. FindReversible locates a sale, court bill, withdrawal or
	// expense by id. MarkReversed flips its status and records the id;
	// reversing an already reversed record is a no-op.
	FindReversible(ctx context.Context, id string) (*ReversibleRecord, error)
	MarkReversed(ctx context.Context, id string) error
	ListReversedIDs(ctx context.Context) ([]string, error)

	// Accounts and audit.
	GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error)
	CreateUser(ctx context.Context, u domain.UserAccount) (*domain.UserAccount, error)
	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error)

	Close() error
}

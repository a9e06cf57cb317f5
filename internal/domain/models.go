package domain

import "time"

// Transaction kinds as they appear in the turn ledger.
const (
	TxKindKioskSale    = "kiosk-sale"
	TxKindCourtBill    = "court-bill"
	TxKindWithdrawal   = "cash-withdrawal"
	TxKindExpense      = "misc-expense"
	TxKindOpeningFloat = "opening-float"
)

// Payment methods.
const (
	PayMethodCash     = "cash"
	PayMethodTransfer = "transfer"
	PayMethodInKind   = "in-kind"
	PayMethodSplit    = "split"
)

// Record status. Reversed records stay stored but are excluded from the
// ledger and from totals.
const (
	RecordStatusActive   = "active"
	RecordStatusReversed = "reversed"
)

const (
	TurnStatusActive = "active"
	TurnStatusClosed = "closed"
)

// Open-bill line kinds.
const (
	LineKindCatalogProduct = "catalog-product"
	LineKindCustomCharge   = "custom-charge"
	LineKindService        = "service"
)

const (
	RoleOperator   = "operator"
	RoleSupervisor = "supervisor"
)

// Product is a kiosk catalog item. Price is in whole currency units.
type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Price     int64     `json:"price"`
	Stock     int       `json:"stock"`
	MinStock  int       `json:"min_stock"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Court is a bookable court.
type Court struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// CourtService is a fixed add-on charge (racket rental, lights, guest fee).
// Its price becomes editable once placed on a bill.
type CourtService struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	Price       int64  `json:"price"`
}

// PaymentBreakdown decomposes a gross amount by payment method. For
// single-method payments the matching bucket carries the full amount;
// for split payments the buckets must sum exactly to the gross.
type PaymentBreakdown struct {
	Cash     int64 `json:"cash"`
	Transfer int64 `json:"transfer"`
	InKind   int64 `json:"in_kind"`
}

// Sum returns the signed total across all buckets.
func (b PaymentBreakdown) Sum() int64 {
	return b.Cash + b.Transfer + b.InKind
}

// SingleMethodBreakdown fills the bucket for a non-split method.
func SingleMethodBreakdown(method string, amount int64) PaymentBreakdown {
	switch method {
	case PayMethodTransfer:
		return PaymentBreakdown{Transfer: amount}
	case PayMethodInKind:
		return PaymentBreakdown{InKind: amount}
	default:
		return PaymentBreakdown{Cash: amount}
	}
}

// LineItem is one product or service line on a sale or bill. For catalog
// products ItemID is the product id; for services it is the service id;
// custom charges carry no id.
type LineItem struct {
	ItemID    string `json:"item_id,omitempty"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Qty       int    `json:"qty"`
	Subtotal  int64  `json:"subtotal"`
}

// Sale is a persisted kiosk checkout. Opening floats are stored as sales
// with Kind TxKindOpeningFloat so they flow through the same ledger path.
type Sale struct {
	ID            string           `json:"id"`
	ReceiptNumber string           `json:"receipt_number"`
	Kind          string           `json:"kind"`
	CustomerName  string           `json:"customer_name,omitempty"`
	LotNumber     string           `json:"lot_number,omitempty"`
	CourtID       string           `json:"court_id,omitempty"`
	Items         []LineItem       `json:"items"`
	Total         int64            `json:"total"`
	PaymentMethod string           `json:"payment_method"`
	Breakdown     PaymentBreakdown `json:"breakdown"`
	AdminName     string           `json:"admin_name"`
	Status        string           `json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
}

// CourtBill is a closed (paid) court bill. RawItems keeps the original
// lines with their catalog ids so a reversal can restock; Items is the
// display copy.
type CourtBill struct {
	ID            string           `json:"id"`
	ReceiptNumber string           `json:"receipt_number"`
	ReservationID string           `json:"reservation_id"`
	CourtID       string           `json:"court_id"`
	CourtName     string           `json:"court_name"`
	CustomerName  string           `json:"customer_name"`
	LotNumber     string           `json:"lot_number,omitempty"`
	Items         []LineItem       `json:"items"`
	RawItems      []BillLine       `json:"raw_items"`
	Total         int64            `json:"total"`
	PaymentMethod string           `json:"payment_method"`
	Breakdown     PaymentBreakdown `json:"breakdown"`
	AdminName     string           `json:"admin_name"`
	Status        string           `json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
}

// Withdrawal is cash taken out of the register during a turn.
type Withdrawal struct {
	ID           string    `json:"id"`
	WithdrawalID string    `json:"withdrawal_id"`
	TurnID       string    `json:"turn_id"`
	Amount       int64     `json:"amount"`
	Notes        string    `json:"notes,omitempty"`
	AdminName    string    `json:"admin_name"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// ExpenseEntry is a miscellaneous expense paid from the register.
type ExpenseEntry struct {
	ID        string    `json:"id"`
	TurnID    string    `json:"turn_id"`
	Concept   string    `json:"concept"`
	Detail    string    `json:"detail,omitempty"`
	Amount    int64     `json:"amount"`
	AdminName string    `json:"admin_name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// TurnTotals is a per-method cash position. On an active turn it is the
// incrementally maintained audit snapshot; at close it is recomputed from
// the ledger and frozen. Display totals are always recomputed, never read
// from here.
type TurnTotals struct {
	Cash     int64 `json:"cash"`
	Transfer int64 `json:"transfer"`
	InKind   int64 `json:"in_kind"`
	Grand    int64 `json:"grand"`
}

// AdminTurn is one register shift.
type AdminTurn struct {
	ID          string     `json:"id"`
	AdminName   string     `json:"admin_name"`
	Status      string     `json:"status"`
	OpeningCash int64      `json:"opening_cash"`
	Totals      TurnTotals `json:"totals"`
	StartedAt   time.Time  `json:"started_at"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
}

// TurnClosure is the immutable record written when a turn closes.
type TurnClosure struct {
	ID        string     `json:"id"`
	TurnID    string     `json:"turn_id"`
	AdminName string     `json:"admin_name"`
	Totals    TurnTotals `json:"totals"`
	Notes     string     `json:"notes,omitempty"`
	ClosedAt  time.Time  `json:"closed_at"`
}

// BillLine is one editable line on an open bill.
type BillLine struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	RefID     string `json:"ref_id,omitempty"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Qty       int    `json:"qty"`
	Subtotal  int64  `json:"subtotal"`
	Editable  bool   `json:"editable"`
}

// OpenBill is an in-progress court bill keyed by reservation id. It holds
// no stock and produces no ledger entry until closed.
type OpenBill struct {
	ReservationID string     `json:"reservation_id"`
	CourtID       string     `json:"court_id"`
	CourtName     string     `json:"court_name"`
	CustomerName  string     `json:"customer_name"`
	LotNumber     string     `json:"lot_number,omitempty"`
	Lines         []BillLine `json:"lines"`
	Total         int64      `json:"total"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Transaction is a normalized ledger entry projected from the stored
// records. LineItems is the canonical display copy; RawLineItems keeps
// original catalog ids for restock on reversal.
type Transaction struct {
	ID            string           `json:"id"`
	Kind          string           `json:"kind"`
	ReceiptNumber string           `json:"receipt_number,omitempty"`
	WithdrawalID  string           `json:"withdrawal_id,omitempty"`
	CustomerName  string           `json:"customer_name,omitempty"`
	LotNumber     string           `json:"lot_number,omitempty"`
	Origin        string           `json:"origin"`
	Concept       string           `json:"concept,omitempty"`
	Notes         string           `json:"notes,omitempty"`
	Gross         int64            `json:"gross"`
	PaymentMethod string           `json:"payment_method"`
	Breakdown     PaymentBreakdown `json:"breakdown"`
	LineItems     []LineItem       `json:"line_items,omitempty"`
	RawLineItems  []LineItem       `json:"raw_line_items,omitempty"`
	AdminName     string           `json:"admin_name,omitempty"`
	OccurredAt    time.Time        `json:"occurred_at"`
}

// StockAdjustment is one signed stock delta, applied clamped at zero.
type StockAdjustment struct {
	ProductID string `json:"product_id"`
	Delta     int    `json:"delta"`
	Reason    string `json:"reason,omitempty"`
}

// StockMovement is the audit trail row written for every stock change.
type StockMovement struct {
	ID         string    `json:"id"`
	ProductID  string    `json:"product_id"`
	Delta      int       `json:"delta"`
	Resulting  int       `json:"resulting"`
	Reason     string    `json:"reason"`
	ActorName  string    `json:"actor_name,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Actor is the authenticated caller, carried in context by the service.
type Actor struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// UserAccount is a login account. PasswordHash is bcrypt.
type UserAccount struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuditLog records who did what.
type AuditLog struct {
	ID        string    `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Entity    string    `json:"entity"`
	EntityID  string    `json:"entity_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ---- request/response DTOs ----

type StartTurnRequest struct {
	AdminName   string `json:"admin_name"`
	OpeningCash int64  `json:"opening_cash"`
}

type CloseTurnRequest struct {
	Notes string `json:"notes"`
}

type WithdrawalRequest struct {
	Amount int64  `json:"amount"`
	Notes  string `json:"notes"`
}

type ExpenseRequest struct {
	Concept string `json:"concept"`
	Detail  string `json:"detail"`
	Amount  int64  `json:"amount"`
}

type CartItem struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type CheckoutRequest struct {
	Items         []CartItem        `json:"items"`
	PaymentMethod string            `json:"payment_method"`
	Breakdown     *PaymentBreakdown `json:"breakdown,omitempty"`
	CustomerName  string            `json:"customer_name"`
	LotNumber     string            `json:"lot_number"`
	CourtID       string            `json:"court_id"`
}

type OpenBillRequest struct {
	ReservationID string `json:"reservation_id"`
	CourtID       string `json:"court_id"`
	CustomerName  string `json:"customer_name"`
	LotNumber     string `json:"lot_number"`
}

type CatalogLineRequest struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type CustomChargeRequest struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type ServiceLineRequest struct {
	ServiceID string `json:"service_id"`
}

type EditLinePriceRequest struct {
	Price float64 `json:"price"`
}

type CloseBillRequest struct {
	PaymentMethod string            `json:"payment_method"`
	Breakdown     *PaymentBreakdown `json:"breakdown,omitempty"`
}

// LedgerFilter narrows the aggregated ledger. DateFrom/DateTo are
// inclusive day bounds in the club's local time; zero values mean open.
type LedgerFilter struct {
	Search   string    `json:"search"`
	Method   string    `json:"method"`
	Kind     string    `json:"kind"`
	DateFrom time.Time `json:"date_from"`
	DateTo   time.Time `json:"date_to"`
}

type ProductRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Price    int64  `json:"price"`
	Stock    int    `json:"stock"`
	MinStock int    `json:"min_stock"`
}

// ProductUpdateRequest is a partial update. Pointer fields distinguish
// an omitted field from an explicit zero.
type ProductUpdateRequest struct {
	Name     *string `json:"name,omitempty"`
	Category *string `json:"category,omitempty"`
	Price    *int64  `json:"price,omitempty"`
	MinStock *int    `json:"min_stock,omitempty"`
}

type StockAdjustRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Role      string    `json:"role"`
	Username  string    `json:"username"`
}

type ElevateRequest struct {
	PIN string `json:"pin"`
}

// IsSupportedPaymentMethod reports whether m is a recognized method.
func IsSupportedPaymentMethod(m string) bool {
	switch m {
	case PayMethodCash, PayMethodTransfer, PayMethodInKind, PayMethodSplit:
		return true
	}
	return false
}

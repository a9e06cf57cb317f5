// Package service orchestrates register operations: turn lifecycle,
// kiosk checkout, court bills, withdrawals, reversals and ledger reads.
package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"padelclub/backend/internal/cache"
	"padelclub/backend/internal/domain"
	"padelclub/backend/internal/ledger"
	"padelclub/backend/internal/store"
	"padelclub/backend/internal/xid"
)

// ErrSupervisorRequired is returned when a supervisor-only operation is
// attempted by a lesser role. The HTTP layer also gates these routes;
// the service rechecks because the gate is a business rule, not a
// transport detail.
var ErrSupervisorRequired = errors.New("supervisor role required")

type actorContextKey struct{}

// WithActor attaches the authenticated caller to the context.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the caller, or a zero Actor when absent.
func ActorFromContext(ctx context.Context) domain.Actor {
	if a, ok := ctx.Value(actorContextKey{}).(domain.Actor); ok {
		return a
	}
	return domain.Actor{}
}

type Service struct {
	repo  store.Repository
	cache cache.LedgerCache
}

func New(repo store.Repository, c cache.LedgerCache) *Service {
	if c == nil {
		c = cache.Noop{}
	}
	return &Service{repo: repo, cache: c}
}

func (s *Service) logAudit(ctx context.Context, action, entity, entityID, detail string) {
	actor := ActorFromContext(ctx)
	err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:        xid.New("aud"),
		Actor:     defaultString(actor.Username, "system"),
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		log.Printf("[service] WARN: audit log write failed: %v", err)
	}
}

// ---- turn lifecycle ----

// StartTurn opens a register shift. The opening cash float is written as
// a ledger entry so recomputed totals already include it.
func (s *Service) StartTurn(ctx context.Context, req domain.StartTurnRequest) (*domain.AdminTurn, error) {
	adminName := strings.TrimSpace(req.AdminName)
	if adminName == "" {
		return nil, fmt.Errorf("%w: admin name required", store.ErrInvalidRecord)
	}
	if req.OpeningCash < 0 {
		return nil, fmt.Errorf("%w: opening cash must not be negative", store.ErrInvalidRecord)
	}
	now := time.Now().UTC()
	turn, err := s.repo.CreateTurn(ctx, domain.AdminTurn{
		ID:          xid.New("trn"),
		AdminName:   adminName,
		OpeningCash: req.OpeningCash,
		Totals:      domain.TurnTotals{Cash: req.OpeningCash, Grand: req.OpeningCash},
		StartedAt:   now,
	})
	if err != nil {
		return nil, err
	}
	if req.OpeningCash > 0 {
		_, err = s.repo.AppendSale(ctx, domain.Sale{
			ID:            xid.New("sal"),
			Kind:          domain.TxKindOpeningFloat,
			CustomerName:  "Caja Inicial",
			Total:         req.OpeningCash,
			PaymentMethod: domain.PayMethodCash,
			Breakdown:     domain.SingleMethodBreakdown(domain.PayMethodCash, req.OpeningCash),
			AdminName:     adminName,
			Status:        domain.RecordStatusActive,
			CreatedAt:     now,
		})
		if err != nil {
			return nil, fmt.Errorf("record opening float: %w", err)
		}
	}
	s.cache.Invalidate(ctx, turn.ID)
	s.logAudit(ctx, "turn.start", "turn", turn.ID, adminName)
	return turn, nil
}

func (s *Service) ActiveTurn(ctx context.Context) (*domain.AdminTurn, error) {
	return s.repo.GetActiveTurn(ctx)
}

func (s *Service) ListTurns(ctx context.Context) ([]domain.AdminTurn, error) {
	return s.repo.ListTurns(ctx)
}

// CloseTurn recomputes the final totals from the ledger, freezes them on
// the turn and writes the closure record.
func (s *Service) CloseTurn(ctx context.Context, req domain.CloseTurnRequest) (*domain.TurnClosure, error) {
	turn, err := s.repo.GetActiveTurn(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.ledgerForTurn(ctx, turn.ID)
	if err != nil {
		return nil, err
	}
	totals := ledger.Reconcile(entries)
	now := time.Now().UTC()
	closed, err := s.repo.CloseTurn(ctx, turn.ID, totals, now)
	if err != nil {
		return nil, err
	}
	closure, err := s.repo.CreateTurnClosure(ctx, domain.TurnClosure{
		ID:        xid.New("cls"),
		TurnID:    closed.ID,
		AdminName: closed.AdminName,
		Totals:    totals,
		Notes:     strings.TrimSpace(req.Notes),
		ClosedAt:  now,
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, turn.ID)
	s.logAudit(ctx, "turn.close", "turn", turn.ID, fmt.Sprintf("grand=%d", totals.Grand))
	return closure, nil
}

func (s *Service) ListTurnClosures(ctx context.Context) ([]domain.TurnClosure, error) {
	return s.repo.ListTurnClosures(ctx)
}

// WithdrawCash takes cash out of the register. The amount is checked
// against the recomputed cash position, not the audit snapshot.
func (s *Service) WithdrawCash(ctx context.Context, req domain.WithdrawalRequest) (*domain.Withdrawal, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", store.ErrInvalidRecord)
	}
	turn, err := s.repo.GetActiveTurn(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.ledgerForTurn(ctx, turn.ID)
	if err != nil {
		return nil, err
	}
	if available := ledger.Reconcile(entries).Cash; req.Amount > available {
		return nil, fmt.Errorf("%w: requested %d, available %d", store.ErrInsufficientCash, req.Amount, available)
	}
	actor := ActorFromContext(ctx)
	w, err := s.repo.AppendWithdrawal(ctx, domain.Withdrawal{
		ID:        xid.New("wdr"),
		TurnID:    turn.ID,
		Amount:    req.Amount,
		Notes:     strings.TrimSpace(req.Notes),
		AdminName: defaultString(actor.Username, turn.AdminName),
		Status:    domain.RecordStatusActive,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	s.bumpTurnTotals(ctx, turn, domain.PaymentBreakdown{Cash: -req.Amount})
	s.cache.Invalidate(ctx, turn.ID)
	s.logAudit(ctx, "withdrawal.create", "withdrawal", w.ID, w.WithdrawalID)
	return w, nil
}

// AddExpense records a miscellaneous expense paid in cash from the
// register.
func (s *Service) AddExpense(ctx context.Context, req domain.ExpenseRequest) (*domain.ExpenseEntry, error) {
	if strings.TrimSpace(req.Concept) == "" {
		return nil, fmt.Errorf("%w: concept required", store.ErrInvalidRecord)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", store.ErrInvalidRecord)
	}
	turn, err := s.repo.GetActiveTurn(ctx)
	if err != nil {
		return nil, err
	}
	actor := ActorFromContext(ctx)
	e, err := s.repo.AppendExpense(ctx, domain.ExpenseEntry{
		ID:        xid.New("exp"),
		TurnID:    turn.ID,
		Concept:   strings.TrimSpace(req.Concept),
		Detail:    strings.TrimSpace(req.Detail),
		Amount:    req.Amount,
		AdminName: defaultString(actor.Username, turn.AdminName),
		Status:    domain.RecordStatusActive,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	s.bumpTurnTotals(ctx, turn, domain.PaymentBreakdown{Cash: -req.Amount})
	s.cache.Invalidate(ctx, turn.ID)
	s.logAudit(ctx, "expense.create", "expense", e.ID, e.Concept)
	return e, nil
}

// bumpTurnTotals maintains the incremental audit snapshot on the active
// turn. Display totals never read it.
func (s *Service) bumpTurnTotals(ctx context.Context, turn *domain.AdminTurn, delta domain.PaymentBreakdown) {
	totals := turn.Totals
	totals.Cash += delta.Cash
	totals.Transfer += delta.Transfer
	totals.InKind += delta.InKind
	totals.Grand = totals.Cash + totals.Transfer + totals.InKind
	if err := s.repo.UpdateTurnTotals(ctx, turn.ID, totals); err != nil {
		log.Printf("[service] WARN: turn totals update failed: %v", err)
		return
	}
	turn.Totals = totals
}

// ---- kiosk checkout ----

func (s *Service) CheckoutSale(ctx context.Context, req domain.CheckoutRequest) (*domain.Sale, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: empty cart", store.ErrInvalidRecord)
	}
	if !domain.IsSupportedPaymentMethod(req.PaymentMethod) {
		return nil, fmt.Errorf("%w: unsupported payment method %q", store.ErrInvalidRecord, req.PaymentMethod)
	}
	turn, err := s.repo.GetActiveTurn(ctx)
	if err != nil {
		return nil, err
	}

	var (
		items []domain.LineItem
		total int64
	)
	for _, ci := range req.Items {
		if ci.Qty <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive", store.ErrInvalidRecord)
		}
		p, err := s.repo.GetProduct(ctx, ci.ProductID)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", ci.ProductID, err)
		}
		sub := p.Price * int64(ci.Qty)
		items = append(items, domain.LineItem{
			ItemID:    p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Qty:       ci.Qty,
			Subtotal:  sub,
		})
		total += sub
	}

	breakdown, err := resolveBreakdown(req.PaymentMethod, req.Breakdown, total)
	if err != nil {
		return nil, err
	}

	actor := ActorFromContext(ctx)
	sale, err := s.repo.AppendSale(ctx, domain.Sale{
		ID:            xid.New("sal"),
		Kind:          domain.TxKindKioskSale,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		LotNumber:     strings.TrimSpace(req.LotNumber),
		CourtID:       req.CourtID,
		Items:         items,
		Total:         total,
		PaymentMethod: req.PaymentMethod,
		Breakdown:     breakdown,
		AdminName:     defaultString(actor.Username, turn.AdminName),
		Status:        domain.RecordStatusActive,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	s.bumpTurnTotals(ctx, turn, breakdown)
	s.cache.Invalidate(ctx, turn.ID)
	s.logAudit(ctx, "sale.create", "sale", sale.ID, sale.ReceiptNumber)
	return sale, nil
}

// resolveBreakdown fills the single-method breakdown or validates a
// split against the total.
func resolveBreakdown(method string, given *domain.PaymentBreakdown, total int64) (domain.PaymentBreakdown, error) {
	if method != domain.PayMethodSplit {
		return domain.SingleMethodBreakdown(method, total), nil
	}
	if given == nil {
		return domain.PaymentBreakdown{}, fmt.Errorf("%w: split payment requires a breakdown", store.ErrPaymentMismatch)
	}
	if given.Cash < 0 || given.Transfer < 0 || given.InKind < 0 {
		return domain.PaymentBreakdown{}, fmt.Errorf("%w: negative component", store.ErrPaymentMismatch)
	}
	if given.Sum() != total {
		return domain.PaymentBreakdown{}, fmt.Errorf("%w: components sum %d, total %d", store.ErrPaymentMismatch, given.Sum(), total)
	}
	return *given, nil
}

// ---- ledger reads ----

func (s *Service) ledgerForTurn(ctx context.Context, turnID string) ([]domain.Transaction, error) {
	if entries, ok := s.cache.GetLedger(ctx, turnID); ok {
		return entries, nil
	}
	snap, err := s.repo.LedgerView(ctx, turnID)
	if err != nil {
		return nil, err
	}
	entries := ledger.Aggregate(snap)
	s.cache.SetLedger(ctx, turnID, entries)
	return entries, nil
}

// TurnLedger returns the aggregated ledger. An empty turnID means the
// active turn.
func (s *Service) TurnLedger(ctx context.Context, turnID string) ([]domain.Transaction, error) {
	if turnID == "" {
		turn, err := s.repo.GetActiveTurn(ctx)
		if err != nil {
			return nil, err
		}
		turnID = turn.ID
	}
	return s.ledgerForTurn(ctx, turnID)
}

// LedgerTotals recomputes the reconciliation totals from the ledger.
func (s *Service) LedgerTotals(ctx context.Context, turnID string) (domain.TurnTotals, error) {
	entries, err := s.TurnLedger(ctx, turnID)
	if err != nil {
		return domain.TurnTotals{}, err
	}
	return ledger.Reconcile(entries), nil
}

// FilteredLedger applies the filter to the aggregated ledger.
func (s *Service) FilteredLedger(ctx context.Context, turnID string, f domain.LedgerFilter) ([]domain.Transaction, error) {
	entries, err := s.TurnLedger(ctx, turnID)
	if err != nil {
		return nil, err
	}
	return ledger.Filter(entries, f), nil
}

// ExportLedgerCSV renders the filtered ledger as CSV. The rows derive
// from the same aggregation the screen shows.
func (s *Service) ExportLedgerCSV(ctx context.Context, turnID string, f domain.LedgerFilter) ([]byte, error) {
	entries, err := s.FilteredLedger(ctx, turnID, f)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(ledger.CSVRows(entries)); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ---- reversal ----

// ReverseTransaction soft-deletes a ledger record and, for stock-bearing
// kinds, restocks its lines. Restock is all-or-nothing: every line is
// resolved first, then the whole batch is applied through one store
// call. Lines whose product cannot be resolved by id or name are skipped
// with a warning. Reversing an already reversed record is a no-op.
func (s *Service) ReverseTransaction(ctx context.Context, id string) error {
	actor := ActorFromContext(ctx)
	if actor.Role != domain.RoleSupervisor {
		return ErrSupervisorRequired
	}
	rec, err := s.repo.FindReversible(ctx, id)
	if err != nil {
		return err
	}
	if rec.Status == domain.RecordStatusReversed {
		return nil
	}

	if rec.Kind == domain.TxKindKioskSale || rec.Kind == domain.TxKindCourtBill {
		adjs, err := s.restockAdjustments(ctx, id, rec.RawItems)
		if err != nil {
			return err
		}
		if len(adjs) > 0 {
			if err := s.repo.ApplyStockAdjustments(ctx, adjs, actor.Username); err != nil {
				return fmt.Errorf("restock: %w", err)
			}
		}
	}

	if err := s.repo.MarkReversed(ctx, id); err != nil {
		return err
	}
	s.invalidateOwningTurn(ctx, rec)
	if turn, terr := s.repo.GetActiveTurn(ctx); terr == nil {
		s.cache.Invalidate(ctx, turn.ID)
		if entries, lerr := s.ledgerForTurn(ctx, turn.ID); lerr == nil {
			totals := ledger.Reconcile(entries)
			if uerr := s.repo.UpdateTurnTotals(ctx, turn.ID, totals); uerr != nil {
				log.Printf("[service] WARN: turn totals refresh failed: %v", uerr)
			}
		}
	}
	s.logAudit(ctx, "transaction.reverse", rec.Kind, id, "")
	return nil
}

// invalidateOwningTurn drops the cached ledger of the turn the reversed
// record belongs to, so closed-turn reads do not serve the entry until
// the cache expires. Sales and bills carry no turn id; their turn is the
// one whose window holds OccurredAt.
func (s *Service) invalidateOwningTurn(ctx context.Context, rec *store.ReversibleRecord) {
	if rec.TurnID != "" {
		s.cache.Invalidate(ctx, rec.TurnID)
		return
	}
	if rec.OccurredAt.IsZero() {
		return
	}
	turns, err := s.repo.ListTurns(ctx)
	if err != nil {
		log.Printf("[service] WARN: listing turns for cache invalidation failed: %v", err)
		return
	}
	for _, t := range turns {
		if rec.OccurredAt.Before(t.StartedAt) {
			continue
		}
		if t.ClosedAt != nil && rec.OccurredAt.After(*t.ClosedAt) {
			continue
		}
		s.cache.Invalidate(ctx, t.ID)
	}
}

// restockAdjustments resolves raw lines to products. Resolution order:
// catalog id, then case-insensitive name. Unresolvable lines do not fail
// the reversal; they are logged and skipped.
func (s *Service) restockAdjustments(ctx context.Context, recordID string, raw []domain.LineItem) ([]domain.StockAdjustment, error) {
	var adjs []domain.StockAdjustment
	for _, it := range raw {
		qty := it.Qty
		if qty <= 0 {
			continue
		}
		var p *domain.Product
		var err error
		if it.ItemID != "" {
			p, err = s.repo.GetProduct(ctx, it.ItemID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return nil, err
			}
		}
		if p == nil && strings.TrimSpace(it.Name) != "" {
			p, err = s.repo.FindProductByName(ctx, it.Name)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return nil, err
			}
		}
		if p == nil {
			// Service and custom lines land here too; only lines that
			// look like catalog products are worth a warning.
			if it.ItemID != "" {
				log.Printf("[service] WARN: reversal %s: cannot resolve product for line %q, stock not restored", recordID, it.Name)
			}
			continue
		}
		adjs = append(adjs, domain.StockAdjustment{
			ProductID: p.ID,
			Delta:     qty,
			Reason:    "reversal " + recordID,
		})
	}
	return adjs, nil
}

// ---- open bills ----

func (s *Service) CreateOpenBill(ctx context.Context, req domain.OpenBillRequest) (*domain.OpenBill, error) {
	if strings.TrimSpace(req.ReservationID) == "" {
		return nil, fmt.Errorf("%w: reservation id required", store.ErrInvalidRecord)
	}
	if _, err := s.repo.GetOpenBill(ctx, req.ReservationID); err == nil {
		return nil, fmt.Errorf("%w: open bill for reservation %s", store.ErrDuplicate, req.ReservationID)
	}
	court, err := s.repo.GetCourt(ctx, req.CourtID)
	if err != nil {
		return nil, fmt.Errorf("court %s: %w", req.CourtID, err)
	}
	now := time.Now().UTC()
	bill, err := s.repo.PutOpenBill(ctx, domain.OpenBill{
		ReservationID: req.ReservationID,
		CourtID:       court.ID,
		CourtName:     court.Name,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		LotNumber:     strings.TrimSpace(req.LotNumber),
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "bill.open", "open_bill", bill.ReservationID, court.Name)
	return bill, nil
}

func (s *Service) GetOpenBill(ctx context.Context, reservationID string) (*domain.OpenBill, error) {
	return s.repo.GetOpenBill(ctx, reservationID)
}

func (s *Service) ListOpenBills(ctx context.Context) ([]domain.OpenBill, error) {
	return s.repo.ListOpenBills(ctx)
}

// AddCatalogItem puts a product line on an open bill. Availability is
// the live stock minus what this bill already holds; the bill reserves
// nothing until it closes.
func (s *Service) AddCatalogItem(ctx context.Context, reservationID string, req domain.CatalogLineRequest) (*domain.OpenBill, error) {
	bill, err := s.repo.GetOpenBill(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	qty := req.Qty
	if qty <= 0 {
		qty = 1
	}
	p, err := s.repo.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", req.ProductID, err)
	}
	onBill := 0
	for _, ln := range bill.Lines {
		if ln.Kind == domain.LineKindCatalogProduct && ln.RefID == p.ID {
			onBill += ln.Qty
		}
	}
	if qty > p.Stock-onBill {
		return nil, fmt.Errorf("%w: %s", store.ErrOutOfStock, p.Name)
	}

	merged := false
	for i := range bill.Lines {
		ln := &bill.Lines[i]
		if ln.Kind == domain.LineKindCatalogProduct && ln.RefID == p.ID && ln.UnitPrice == p.Price {
			ln.Qty += qty
			ln.Subtotal = ln.UnitPrice * int64(ln.Qty)
			merged = true
			break
		}
	}
	if !merged {
		bill.Lines = append(bill.Lines, domain.BillLine{
			ID:        xid.New("lin"),
			Kind:      domain.LineKindCatalogProduct,
			RefID:     p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Qty:       qty,
			Subtotal:  p.Price * int64(qty),
			Editable:  false,
		})
	}
	return s.saveBill(ctx, bill)
}

// AddCustomCharge adds a free-form line. The price is rounded to the
// whole unit and the line stays editable.
func (s *Service) AddCustomCharge(ctx context.Context, reservationID string, req domain.CustomChargeRequest) (*domain.OpenBill, error) {
	bill, err := s.repo.GetOpenBill(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: charge name required", store.ErrInvalidRecord)
	}
	price := roundUnit(req.Price)
	if price < 0 {
		price = 0
	}
	bill.Lines = append(bill.Lines, domain.BillLine{
		ID:        xid.New("lin"),
		Kind:      domain.LineKindCustomCharge,
		Name:      name,
		UnitPrice: price,
		Qty:       1,
		Subtotal:  price,
		Editable:  true,
	})
	return s.saveBill(ctx, bill)
}

// AddServiceLine adds a fixed club service at its catalog price. Once on
// the bill the line is editable.
func (s *Service) AddServiceLine(ctx context.Context, reservationID string, req domain.ServiceLineRequest) (*domain.OpenBill, error) {
	bill, err := s.repo.GetOpenBill(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	sv, err := s.repo.GetCourtService(ctx, req.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("service %s: %w", req.ServiceID, err)
	}
	bill.Lines = append(bill.Lines, domain.BillLine{
		ID:        xid.New("lin"),
		Kind:      domain.LineKindService,
		RefID:     sv.ID,
		Name:      sv.Name,
		UnitPrice: sv.Price,
		Qty:       1,
		Subtotal:  sv.Price,
		Editable:  true,
	})
	return s.saveBill(ctx, bill)
}

// EditLinePrice changes the unit price of an editable line. The new
// price is rounded to the whole unit and clamped at zero.
func (s *Service) EditLinePrice(ctx context.Context, reservationID, lineID string, req domain.EditLinePriceRequest) (*domain.OpenBill, error) {
	bill, err := s.repo.GetOpenBill(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	for i := range bill.Lines {
		ln := &bill.Lines[i]
		if ln.ID != lineID {
			continue
		}
		if !ln.Editable {
			return nil, fmt.Errorf("%w: line %s is not editable", store.ErrInvalidRecord, lineID)
		}
		price := roundUnit(req.Price)
		if price < 0 {
			price = 0
		}
		ln.UnitPrice = price
		ln.Subtotal = price * int64(ln.Qty)
		return s.saveBill(ctx, bill)
	}
	return nil, fmt.Errorf("line %s: %w", lineID, store.ErrNotFound)
}

func (s *Service) RemoveLine(ctx context.Context, reservationID, lineID string) (*domain.OpenBill, error) {
	bill, err := s.repo.GetOpenBill(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	kept := bill.Lines[:0]
	found := false
	for _, ln := range bill.Lines {
		if ln.ID == lineID {
			found = true
			continue
		}
		kept = append(kept, ln)
	}
	if !found {
		return nil, fmt.Errorf("line %s: %w", lineID, store.ErrNotFound)
	}
	bill.Lines = kept
	return s.saveBill(ctx, bill)
}

func (s *Service) saveBill(ctx context.Context, bill *domain.OpenBill) (*domain.OpenBill, error) {
	var total int64
	for _, ln := range bill.Lines {
		total += ln.Subtotal
	}
	bill.Total = total
	bill.UpdatedAt = time.Now().UTC()
	return s.repo.PutOpenBill(ctx, *bill)
}

// CloseBill charges an open bill: the payment must match the bill total
// exactly, stock for catalog lines is re-checked live, and the debit,
// the paid bill and the open-bill removal land in one atomic store call.
func (s *Service) CloseBill(ctx context.Context, reservationID string, req domain.CloseBillRequest) (*domain.CourtBill, error) {
	bill, err := s.repo.GetOpenBill(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if !domain.IsSupportedPaymentMethod(req.PaymentMethod) {
		return nil, fmt.Errorf("%w: unsupported payment method %q", store.ErrInvalidRecord, req.PaymentMethod)
	}
	turn, err := s.repo.GetActiveTurn(ctx)
	if err != nil {
		return nil, err
	}
	breakdown, err := resolveBreakdown(req.PaymentMethod, req.Breakdown, bill.Total)
	if err != nil {
		return nil, err
	}

	actor := ActorFromContext(ctx)
	closed, err := s.repo.CloseOpenBill(ctx, reservationID, domain.CourtBill{
		ID:            xid.New("bil"),
		ReservationID: bill.ReservationID,
		CourtID:       bill.CourtID,
		CourtName:     bill.CourtName,
		CustomerName:  bill.CustomerName,
		LotNumber:     bill.LotNumber,
		Items:         ledger.NormalizeLineItems(ledger.BillLinesAsItems(bill.Lines)),
		RawItems:      bill.Lines,
		Total:         bill.Total,
		PaymentMethod: req.PaymentMethod,
		Breakdown:     breakdown,
		AdminName:     defaultString(actor.Username, turn.AdminName),
		Status:        domain.RecordStatusActive,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	s.bumpTurnTotals(ctx, turn, breakdown)
	s.cache.Invalidate(ctx, turn.ID)
	s.logAudit(ctx, "bill.close", "court_bill", closed.ID, closed.ReceiptNumber)
	return closed, nil
}

// CancelBill discards an open bill. Nothing was charged or debited, so
// there is nothing to roll back.
func (s *Service) CancelBill(ctx context.Context, reservationID string) error {
	if err := s.repo.RemoveOpenBill(ctx, reservationID); err != nil {
		return err
	}
	s.logAudit(ctx, "bill.cancel", "open_bill", reservationID, "")
	return nil
}

// ---- catalogs ----

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductRequest) (*domain.Product, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name required", store.ErrInvalidRecord)
	}
	if req.Price < 0 || req.Stock < 0 {
		return nil, fmt.Errorf("%w: price and stock must not be negative", store.ErrInvalidRecord)
	}
	p, err := s.repo.CreateProduct(ctx, domain.Product{
		ID:       xid.New("prd"),
		Name:     strings.TrimSpace(req.Name),
		Category: strings.TrimSpace(req.Category),
		Price:    req.Price,
		Stock:    req.Stock,
		MinStock: req.MinStock,
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "product.create", "product", p.ID, p.Name)
	return p, nil
}

// UpdateProduct applies a partial update. Only fields present in the
// request change; an omitted price or min stock keeps its value.
func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (*domain.Product, error) {
	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name required", store.ErrInvalidRecord)
		}
		existing.Name = name
	}
	if req.Category != nil {
		existing.Category = strings.TrimSpace(*req.Category)
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return nil, fmt.Errorf("%w: price must not be negative", store.ErrInvalidRecord)
		}
		existing.Price = *req.Price
	}
	if req.MinStock != nil {
		if *req.MinStock < 0 {
			return nil, fmt.Errorf("%w: min stock must not be negative", store.ErrInvalidRecord)
		}
		existing.MinStock = *req.MinStock
	}
	p, err := s.repo.UpdateProduct(ctx, *existing)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "product.update", "product", p.ID, p.Name)
	return p, nil
}

// AdjustStock applies a manual signed stock delta, clamped at zero.
func (s *Service) AdjustStock(ctx context.Context, productID string, req domain.StockAdjustRequest) (*domain.Product, error) {
	actor := ActorFromContext(ctx)
	p, err := s.repo.AdjustStock(ctx, productID, req.Delta, defaultString(req.Reason, "manual adjustment"), actor.Username)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "stock.adjust", "product", productID, fmt.Sprintf("delta=%d", req.Delta))
	return p, nil
}

func (s *Service) StockMovements(ctx context.Context, productID string) ([]domain.StockMovement, error) {
	return s.repo.ListStockMovements(ctx, productID)
}

func (s *Service) ListCourts(ctx context.Context) ([]domain.Court, error) {
	return s.repo.ListCourts(ctx)
}

func (s *Service) ListCourtServices(ctx context.Context) ([]domain.CourtService, error) {
	return s.repo.ListCourtServices(ctx)
}

func (s *Service) AuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	return s.repo.ListAuditLogs(ctx, limit)
}

// ---- helpers ----

func defaultString(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func roundUnit(v float64) int64 {
	return int64(math.Round(v))
}

// Package memory is the in-memory repository used by tests and by dev
// mode when no database is configured.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"padelclub/backend/internal/domain"
	"padelclub/backend/internal/store"
	"padelclub/backend/internal/xid"
)

type Store struct {
	mu sync.RWMutex

	products map[string]*domain.Product
	courts   map[string]*domain.Court
	services map[string]*domain.CourtService

	sales       []*domain.Sale
	bills       []*domain.CourtBill
	withdrawals []*domain.Withdrawal
	expenses    []*domain.ExpenseEntry

	turns    map[string]*domain.AdminTurn
	closures []*domain.TurnClosure

	openBills map[string]*domain.OpenBill
	movements []*domain.StockMovement
	users     map[string]*domain.UserAccount
	audits    []*domain.AuditLog

	reversed map[string]struct{}

	receiptSeq    int64
	withdrawalSeq int64
}

var _ store.Repository = (*Store)(nil)

func New() *Store {
	return &Store{
		products:  make(map[string]*domain.Product),
		courts:    make(map[string]*domain.Court),
		services:  make(map[string]*domain.CourtService),
		turns:     make(map[string]*domain.AdminTurn),
		openBills: make(map[string]*domain.OpenBill),
		users:     make(map[string]*domain.UserAccount),
		reversed:  make(map[string]struct{}),
	}
}

// NewSeeded returns a store preloaded with the club's default catalogs
// and two login accounts (admin/admin123, super/super123).
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	seedProducts := []domain.Product{
		{Name: "Agua Mineral 500ml", Category: "bebidas", Price: 500, Stock: 20, MinStock: 5},
		{Name: "Gatorade", Category: "bebidas", Price: 800, Stock: 15, MinStock: 5},
		{Name: "Coca Cola", Category: "bebidas", Price: 600, Stock: 25, MinStock: 5},
		{Name: "Barrita Cereal", Category: "snacks", Price: 400, Stock: 30, MinStock: 10},
		{Name: "Toalla Deportiva", Category: "accesorios", Price: 1500, Stock: 10, MinStock: 2},
	}
	for _, p := range seedProducts {
		p.ID = xid.New("prd")
		p.CreatedAt = now
		p.UpdatedAt = now
		cp := p
		s.products[p.ID] = &cp
	}

	for _, name := range []string{"SILICON", "REMAX", "PHIA RENTAL"} {
		c := domain.Court{ID: xid.New("crt"), Name: name, Active: true}
		s.courts[c.ID] = &c
	}

	seedServices := []domain.CourtService{
		{Name: "Alquiler de Paletas", Category: "alquiler", Price: 2000},
		{Name: "Uso de Luz", Category: "cancha", Price: 1500},
		{Name: "Entrada Invitado", Category: "cancha", Price: 1000},
		{Name: "Toallas", Category: "alquiler", Price: 500},
		{Name: "Pelotas", Category: "alquiler", Price: 800},
	}
	for _, sv := range seedServices {
		sv.ID = xid.New("svc")
		cp := sv
		s.services[sv.ID] = &cp
	}

	for _, u := range []struct {
		name, pass, role string
	}{
		{"admin", "admin123", domain.RoleOperator},
		{"super", "super123", domain.RoleSupervisor},
	} {
		hash, _ := bcrypt.GenerateFromPassword([]byte(u.pass), bcrypt.DefaultCost)
		s.users[u.name] = &domain.UserAccount{
			ID:           xid.New("usr"),
			Username:     u.name,
			PasswordHash: string(hash),
			Role:         u.role,
			CreatedAt:    now,
		}
	}
	return s
}

// ---- catalogs ----

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) FindProductByName(ctx context.Context, name string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	needle := strings.ToLower(strings.TrimSpace(name))
	for _, p := range s.products {
		if strings.ToLower(p.Name) == needle {
			cp := *p
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateProduct(ctx context.Context, p domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(p.Name) == "" || p.Price < 0 {
		return nil, store.ErrInvalidRecord
	}
	if p.ID == "" {
		p.ID = xid.New("prd")
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	cp := p
	s.products[p.ID] = &cp
	out := cp
	return &out, nil
}

func (s *Store) UpdateProduct(ctx context.Context, p domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.products[p.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	cp := p
	s.products[p.ID] = &cp
	out := cp
	return &out, nil
}

func (s *Store) ListCourts(ctx context.Context) ([]domain.Court, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Court, 0, len(s.courts))
	for _, c := range s.courts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetCourt(ctx context.Context, id string) (*domain.Court, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Store) ListCourtServices(ctx context.Context) ([]domain.CourtService, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CourtService, 0, len(s.services))
	for _, sv := range s.services {
		out = append(out, *sv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetCourtService(ctx context.Context, id string) (*domain.CourtService, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sv, ok := s.services[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *sv
	return &cp, nil
}

// ---- stock ----

func (s *Store) AdjustStock(ctx context.Context, productID string, delta int, reason, actor string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return nil, store.ErrNotFound
	}
	s.applyDeltaLocked(p, delta, reason, actor)
	cp := *p
	return &cp, nil
}

func (s *Store) ApplyStockAdjustments(ctx context.Context, adjs []domain.StockAdjustment, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, adj := range adjs {
		if _, ok := s.products[adj.ProductID]; !ok {
			return fmt.Errorf("%w: product %s", store.ErrNotFound, adj.ProductID)
		}
	}
	for _, adj := range adjs {
		s.applyDeltaLocked(s.products[adj.ProductID], adj.Delta, adj.Reason, actor)
	}
	return nil
}

// applyDeltaLocked clamps the resulting level at zero and records the
// movement with the applied (possibly clamped) delta.
func (s *Store) applyDeltaLocked(p *domain.Product, delta int, reason, actor string) {
	next := p.Stock + delta
	if next < 0 {
		next = 0
	}
	applied := next - p.Stock
	p.Stock = next
	p.UpdatedAt = time.Now().UTC()
	s.movements = append(s.movements, &domain.StockMovement{
		ID:         xid.New("mov"),
		ProductID:  p.ID,
		Delta:      applied,
		Resulting:  next,
		Reason:     reason,
		ActorName:  actor,
		OccurredAt: p.UpdatedAt,
	})
}

func (s *Store) ListStockMovements(ctx context.Context, productID string) ([]domain.StockMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.StockMovement
	for _, m := range s.movements {
		if productID == "" || m.ProductID == productID {
			out = append(out, *m)
		}
	}
	return out, nil
}

// ---- turns ----

func (s *Store) CreateTurn(ctx context.Context, turn domain.AdminTurn) (*domain.AdminTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.turns {
		if t.Status == domain.TurnStatusActive {
			return nil, store.ErrTurnActive
		}
	}
	if turn.ID == "" {
		turn.ID = xid.New("trn")
	}
	turn.Status = domain.TurnStatusActive
	cp := turn
	s.turns[turn.ID] = &cp
	out := cp
	return &out, nil
}

func (s *Store) GetActiveTurn(ctx context.Context) (*domain.AdminTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t := s.activeTurnLocked()
	if t == nil {
		return nil, store.ErrNoActiveTurn
	}
	cp := *t
	return &cp, nil
}

func (s *Store) activeTurnLocked() *domain.AdminTurn {
	for _, t := range s.turns {
		if t.Status == domain.TurnStatusActive {
			return t
		}
	}
	return nil
}

func (s *Store) GetTurn(ctx context.Context, id string) (*domain.AdminTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.turns[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *Store) ListTurns(ctx context.Context) ([]domain.AdminTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AdminTurn, 0, len(s.turns))
	for _, t := range s.turns {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (s *Store) UpdateTurnTotals(ctx context.Context, turnID string, totals domain.TurnTotals) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.turns[turnID]
	if !ok {
		return store.ErrNotFound
	}
	t.Totals = totals
	return nil
}

func (s *Store) CloseTurn(ctx context.Context, turnID string, totals domain.TurnTotals, closedAt time.Time) (*domain.AdminTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.turns[turnID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if t.Status != domain.TurnStatusActive {
		return nil, store.ErrNoActiveTurn
	}
	t.Status = domain.TurnStatusClosed
	t.Totals = totals
	at := closedAt
	t.ClosedAt = &at
	cp := *t
	return &cp, nil
}

func (s *Store) CreateTurnClosure(ctx context.Context, closure domain.TurnClosure) (*domain.TurnClosure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if closure.ID == "" {
		closure.ID = xid.New("cls")
	}
	cp := closure
	s.closures = append(s.closures, &cp)
	out := cp
	return &out, nil
}

func (s *Store) ListTurnClosures(ctx context.Context) ([]domain.TurnClosure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.TurnClosure, 0, len(s.closures))
	for _, c := range s.closures {
		out = append(out, *c)
	}
	return out, nil
}

// ---- ledger records ----

func (s *Store) nextReceiptLocked() string {
	s.receiptSeq++
	return fmt.Sprintf("VP-%d-%06d", time.Now().UTC().Year(), s.receiptSeq)
}

func (s *Store) nextWithdrawalLocked() string {
	s.withdrawalSeq++
	return fmt.Sprintf("RET-%04d", s.withdrawalSeq)
}

func (s *Store) AppendSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sale.ID == "" {
		sale.ID = xid.New("sal")
	}
	if sale.Status == "" {
		sale.Status = domain.RecordStatusActive
	}
	if sale.Kind == domain.TxKindKioskSale {
		needed := make(map[string]int)
		for _, it := range sale.Items {
			if it.ItemID != "" {
				needed[it.ItemID] += it.Qty
			}
		}
		for id, qty := range needed {
			p, ok := s.products[id]
			if !ok {
				return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, id)
			}
			if p.Stock < qty {
				return nil, fmt.Errorf("%w: %s", store.ErrOutOfStock, p.Name)
			}
		}
		for id, qty := range needed {
			s.applyDeltaLocked(s.products[id], -qty, "sale "+sale.ID, sale.AdminName)
		}
	}
	sale.ReceiptNumber = s.nextReceiptLocked()
	cp := sale
	cp.Items = append([]domain.LineItem(nil), sale.Items...)
	s.sales = append(s.sales, &cp)
	out := cp
	out.Items = append([]domain.LineItem(nil), cp.Items...)
	return &out, nil
}

func (s *Store) ListSales(ctx context.Context) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Sale, 0, len(s.sales))
	for _, sl := range s.sales {
		cp := *sl
		cp.Items = append([]domain.LineItem(nil), sl.Items...)
		out = append(out, cp)
	}
	return out, nil
}

func (s *Store) AppendWithdrawal(ctx context.Context, w domain.Withdrawal) (*domain.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.ID == "" {
		w.ID = xid.New("wdr")
	}
	if w.Status == "" {
		w.Status = domain.RecordStatusActive
	}
	w.WithdrawalID = s.nextWithdrawalLocked()
	cp := w
	s.withdrawals = append(s.withdrawals, &cp)
	out := cp
	return &out, nil
}

func (s *Store) ListWithdrawals(ctx context.Context, turnID string) ([]domain.Withdrawal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Withdrawal
	for _, w := range s.withdrawals {
		if turnID == "" || w.TurnID == turnID {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (s *Store) AppendExpense(ctx context.Context, e domain.ExpenseEntry) (*domain.ExpenseEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = xid.New("exp")
	}
	if e.Status == "" {
		e.Status = domain.RecordStatusActive
	}
	cp := e
	s.expenses = append(s.expenses, &cp)
	out := cp
	return &out, nil
}

func (s *Store) ListExpenses(ctx context.Context, turnID string) ([]domain.ExpenseEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ExpenseEntry
	for _, e := range s.expenses {
		if turnID == "" || e.TurnID == turnID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *Store) ListCourtBills(ctx context.Context) ([]domain.CourtBill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CourtBill, 0, len(s.bills))
	for _, b := range s.bills {
		out = append(out, cloneBill(b))
	}
	return out, nil
}

func cloneBill(b *domain.CourtBill) domain.CourtBill {
	cp := *b
	cp.Items = append([]domain.LineItem(nil), b.Items...)
	cp.RawItems = append([]domain.BillLine(nil), b.RawItems...)
	return cp
}

func (s *Store) LedgerView(ctx context.Context, turnID string) (*store.LedgerSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.turns[turnID]
	if !ok {
		return nil, store.ErrNotFound
	}
	snap := &store.LedgerSnapshot{Turn: *t}
	for _, sl := range s.sales {
		cp := *sl
		cp.Items = append([]domain.LineItem(nil), sl.Items...)
		snap.Sales = append(snap.Sales, cp)
	}
	for _, b := range s.bills {
		snap.Bills = append(snap.Bills, cloneBill(b))
	}
	for _, w := range s.withdrawals {
		if w.TurnID == turnID {
			snap.Withdrawals = append(snap.Withdrawals, *w)
		}
	}
	for _, e := range s.expenses {
		if e.TurnID == turnID {
			snap.Expenses = append(snap.Expenses, *e)
		}
	}
	for id := range s.reversed {
		snap.ReversedIDs = append(snap.ReversedIDs, id)
	}
	sort.Strings(snap.ReversedIDs)
	return snap, nil
}

// ---- open bills ----

func (s *Store) PutOpenBill(ctx context.Context, bill domain.OpenBill) (*domain.OpenBill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bill.ReservationID == "" {
		return nil, store.ErrInvalidRecord
	}
	cp := bill
	cp.Lines = append([]domain.BillLine(nil), bill.Lines...)
	s.openBills[bill.ReservationID] = &cp
	out := cp
	out.Lines = append([]domain.BillLine(nil), cp.Lines...)
	return &out, nil
}

func (s *Store) GetOpenBill(ctx context.Context, reservationID string) (*domain.OpenBill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.openBills[reservationID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *b
	cp.Lines = append([]domain.BillLine(nil), b.Lines...)
	return &cp, nil
}

func (s *Store) ListOpenBills(ctx context.Context) ([]domain.OpenBill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.OpenBill, 0, len(s.openBills))
	for _, b := range s.openBills {
		cp := *b
		cp.Lines = append([]domain.BillLine(nil), b.Lines...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) RemoveOpenBill(ctx context.Context, reservationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.openBills[reservationID]; !ok {
		return store.ErrNotFound
	}
	delete(s.openBills, reservationID)
	return nil
}

func (s *Store) CloseOpenBill(ctx context.Context, reservationID string, bill domain.CourtBill) (*domain.CourtBill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	open, ok := s.openBills[reservationID]
	if !ok {
		return nil, store.ErrBillClosed
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
	for id, qty := range needed {
		p, okp := s.products[id]
		if !okp {
			return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, id)
		}
		if p.Stock < qty {
			return nil, fmt.Errorf("%w: %s", store.ErrOutOfStock, p.Name)
		}
	}
	for id, qty := range needed {
		s.applyDeltaLocked(s.products[id], -qty, "court bill "+bill.ID, bill.AdminName)
	}
	if bill.ID == "" {
		bill.ID = xid.New("bil")
	}
	if bill.Status == "" {
		bill.Status = domain.RecordStatusActive
	}
	bill.ReceiptNumber = s.nextReceiptLocked()
	cp := bill
	cp.Items = append([]domain.LineItem(nil), bill.Items...)
	cp.RawItems = append([]domain.BillLine(nil), bill.RawItems...)
	s.bills = append(s.bills, &cp)
	delete(s.openBills, reservationID)
	out := cloneBill(&cp)
	return &out, nil
}

// ---- reversal ----

func (s *Store) FindReversible(ctx context.Context, id string) (*store.ReversibleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sl := range s.sales {
		if sl.ID == id {
			return &store.ReversibleRecord{
				ID:         id,
				Kind:       sl.Kind,
				Status:     sl.Status,
				OccurredAt: sl.CreatedAt,
				RawItems:   append([]domain.LineItem(nil), sl.Items...),
			}, nil
		}
	}
	for _, b := range s.bills {
		if b.ID == id {
			var raw []domain.LineItem
			for _, ln := range b.RawItems {
				raw = append(raw, domain.LineItem{ItemID: ln.RefID, Name: ln.Name, UnitPrice: ln.UnitPrice, Qty: ln.Qty, Subtotal: ln.Subtotal})
			}
			return &store.ReversibleRecord{ID: id, Kind: domain.TxKindCourtBill, Status: b.Status, OccurredAt: b.CreatedAt, RawItems: raw}, nil
		}
	}
	for _, w := range s.withdrawals {
		if w.ID == id {
			return &store.ReversibleRecord{ID: id, Kind: domain.TxKindWithdrawal, Status: w.Status, TurnID: w.TurnID, OccurredAt: w.CreatedAt}, nil
		}
	}
	for _, e := range s.expenses {
		if e.ID == id {
			return &store.ReversibleRecord{ID: id, Kind: domain.TxKindExpense, Status: e.Status, TurnID: e.TurnID, OccurredAt: e.CreatedAt}, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) MarkReversed(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sl := range s.sales {
		if sl.ID == id {
			sl.Status = domain.RecordStatusReversed
			s.reversed[id] = struct{}{}
			return nil
		}
	}
	for _, b := range s.bills {
		if b.ID == id {
			b.Status = domain.RecordStatusReversed
			s.reversed[id] = struct{}{}
			return nil
		}
	}
	for _, w := range s.withdrawals {
		if w.ID == id {
			w.Status = domain.RecordStatusReversed
			s.reversed[id] = struct{}{}
			return nil
		}
	}
	for _, e := range s.expenses {
		if e.ID == id {
			e.Status = domain.RecordStatusReversed
			s.reversed[id] = struct{}{}
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) ListReversedIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.reversed))
	for id := range s.reversed {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// ---- accounts and audit ----

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) CreateUser(ctx context.Context, u domain.UserAccount) (*domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[u.Username]; exists {
		return nil, store.ErrDuplicate
	}
	if u.ID == "" {
		u.ID = xid.New("usr")
	}
	u.CreatedAt = time.Now().UTC()
	cp := u
	s.users[u.Username] = &cp
	out := cp
	return &out, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = xid.New("aud")
	}
	cp := entry
	s.audits = append(s.audits, &cp)
	return nil
}

func (s *Store) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AuditLog, 0, len(s.audits))
	for i := len(s.audits) - 1; i >= 0; i-- {
		out = append(out, *s.audits[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) Close() error { return nil }

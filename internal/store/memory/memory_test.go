package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"padelclub/backend/internal/domain"
	"padelclub/backend/internal/store"
)

func seedProductID(t *testing.T, s *Store, name string) string {
	t.Helper()
	products, err := s.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	for _, p := range products {
		if p.Name == name {
			return p.ID
		}
	}
	t.Fatalf("seed product %q missing", name)
	return ""
}

func TestAdjustStockClampsAtZero(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	id := seedProductID(t, s, "Toalla Deportiva") // stock 10

	p, err := s.AdjustStock(ctx, id, -25, "shrinkage", "lucia")
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if p.Stock != 0 {
		t.Fatalf("stock must clamp at zero, got %d", p.Stock)
	}
	movements, err := s.ListStockMovements(ctx, id)
	if err != nil {
		t.Fatalf("movements: %v", err)
	}
	if len(movements) != 1 || movements[0].Delta != -10 || movements[0].Resulting != 0 {
		t.Fatalf("movement must record the applied delta: %+v", movements)
	}
}

func TestApplyStockAdjustmentsIsAllOrNothing(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	id := seedProductID(t, s, "Gatorade") // stock 15

	err := s.ApplyStockAdjustments(ctx, []domain.StockAdjustment{
		{ProductID: id, Delta: 5},
		{ProductID: "prd_missing", Delta: 2},
	}, "lucia")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	p, _ := s.GetProduct(ctx, id)
	if p.Stock != 15 {
		t.Fatalf("no adjustment may land when one fails, got stock %d", p.Stock)
	}
}

func TestReceiptNumbersAreSequential(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	var receipts []string
	for i := 0; i < 3; i++ {
		sale, err := s.AppendSale(ctx, domain.Sale{
			Kind:          domain.TxKindOpeningFloat,
			Total:         100,
			PaymentMethod: domain.PayMethodCash,
			CreatedAt:     time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("append sale: %v", err)
		}
		receipts = append(receipts, sale.ReceiptNumber)
	}
	for i, r := range receipts {
		want := fmt.Sprintf("-%06d", i+1)
		if !strings.HasPrefix(r, "VP-") || !strings.HasSuffix(r, want) {
			t.Fatalf("receipt %d: got %q", i, r)
		}
	}
}

func TestFindProductByNameIsCaseInsensitive(t *testing.T) {
	s := NewSeeded()
	p, err := s.FindProductByName(context.Background(), "  COCA COLA ")
	if err != nil {
		t.Fatalf("find by name: %v", err)
	}
	if p.Name != "Coca Cola" {
		t.Fatalf("got %q", p.Name)
	}
}

func TestCreateTurnRejectsSecondActive(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	if _, err := s.CreateTurn(ctx, domain.AdminTurn{AdminName: "lucia", StartedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("first turn: %v", err)
	}
	if _, err := s.CreateTurn(ctx, domain.AdminTurn{AdminName: "pedro", StartedAt: time.Now().UTC()}); !errors.Is(err, store.ErrTurnActive) {
		t.Fatalf("expected ErrTurnActive, got %v", err)
	}
}

func TestCloseOpenBillRejectsStaleSnapshot(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	now := time.Now().UTC()

	stale, err := s.PutOpenBill(ctx, domain.OpenBill{
		ReservationID: "res-7",
		CourtID:       "crt_1",
		CourtName:     "SILICON",
		Lines: []domain.BillLine{
			{ID: "lin_1", Kind: domain.LineKindCustomCharge, Name: "Recargo", UnitPrice: 500, Qty: 1, Subtotal: 500, Editable: true},
		},
		Total:     500,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("put open bill: %v", err)
	}

	// The bill changes after the snapshot was read.
	edited := *stale
	edited.Lines = []domain.BillLine{
		{ID: "lin_1", Kind: domain.LineKindCustomCharge, Name: "Recargo", UnitPrice: 800, Qty: 1, Subtotal: 800, Editable: true},
	}
	edited.Total = 800
	if _, err := s.PutOpenBill(ctx, edited); err != nil {
		t.Fatalf("edit open bill: %v", err)
	}

	_, err = s.CloseOpenBill(ctx, "res-7", domain.CourtBill{
		ReservationID: "res-7",
		RawItems:      stale.Lines,
		Total:         stale.Total,
		PaymentMethod: domain.PayMethodCash,
		Breakdown:     domain.PaymentBreakdown{Cash: stale.Total},
		CreatedAt:     now,
	})
	if !errors.Is(err, store.ErrStaleBill) {
		t.Fatalf("expected ErrStaleBill, got %v", err)
	}
	if _, err := s.GetOpenBill(ctx, "res-7"); err != nil {
		t.Fatalf("bill must remain open, got %v", err)
	}
	bills, _ := s.ListCourtBills(ctx)
	if len(bills) != 0 {
		t.Fatalf("no court bill may land on a stale close, got %d", len(bills))
	}
}

func TestMarkReversedIsVisibleInLedgerView(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	turn, err := s.CreateTurn(ctx, domain.AdminTurn{AdminName: "lucia", StartedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("turn: %v", err)
	}
	sale, err := s.AppendSale(ctx, domain.Sale{
		Kind: domain.TxKindOpeningFloat, Total: 500,
		PaymentMethod: domain.PayMethodCash, CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("sale: %v", err)
	}
	if err := s.MarkReversed(ctx, sale.ID); err != nil {
		t.Fatalf("mark reversed: %v", err)
	}
	snap, err := s.LedgerView(ctx, turn.ID)
	if err != nil {
		t.Fatalf("ledger view: %v", err)
	}
	if len(snap.ReversedIDs) != 1 || snap.ReversedIDs[0] != sale.ID {
		t.Fatalf("reversed ids: %+v", snap.ReversedIDs)
	}
	if snap.Sales[0].Status != domain.RecordStatusReversed {
		t.Fatalf("record status not flipped: %+v", snap.Sales[0])
	}
}

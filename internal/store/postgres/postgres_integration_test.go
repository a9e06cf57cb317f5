package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"padelclub/backend/internal/domain"
	"padelclub/backend/internal/store"
)

// Runs only against a throwaway database:
//
//	TEST_DATABASE_URL=postgres://... go test ./internal/store/postgres/
func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	s, err := Open(context.Background(), url)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaleDebitAndReversalRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p, err := s.CreateProduct(ctx, domain.Product{
		Name:  "it-" + time.Now().UTC().Format("150405.000000000"),
		Price: 700,
		Stock: 4,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	sale, err := s.AppendSale(ctx, domain.Sale{
		Kind: domain.TxKindKioskSale,
		Items: []domain.LineItem{
			{ItemID: p.ID, Name: p.Name, UnitPrice: p.Price, Qty: 3, Subtotal: 2100},
		},
		Total:         2100,
		PaymentMethod: domain.PayMethodCash,
		Breakdown:     domain.PaymentBreakdown{Cash: 2100},
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("append sale: %v", err)
	}
	got, err := s.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.Stock != 1 {
		t.Fatalf("stock after sale: expected 1, got %d", got.Stock)
	}

	// Overselling leaves everything untouched.
	_, err = s.AppendSale(ctx, domain.Sale{
		Kind: domain.TxKindKioskSale,
		Items: []domain.LineItem{
			{ItemID: p.ID, Name: p.Name, UnitPrice: p.Price, Qty: 5, Subtotal: 3500},
		},
		Total:         3500,
		PaymentMethod: domain.PayMethodCash,
		Breakdown:     domain.PaymentBreakdown{Cash: 3500},
		CreatedAt:     time.Now().UTC(),
	})
	if !errors.Is(err, store.ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock, got %v", err)
	}

	if err := s.ApplyStockAdjustments(ctx, []domain.StockAdjustment{
		{ProductID: p.ID, Delta: 3, Reason: "reversal " + sale.ID},
	}, "it"); err != nil {
		t.Fatalf("restock: %v", err)
	}
	if err := s.MarkReversed(ctx, sale.ID); err != nil {
		t.Fatalf("mark reversed: %v", err)
	}

	rec, err := s.FindReversible(ctx, sale.ID)
	if err != nil {
		t.Fatalf("find reversible: %v", err)
	}
	if rec.Status != domain.RecordStatusReversed {
		t.Fatalf("status: expected reversed, got %q", rec.Status)
	}
	ids, err := s.ListReversedIDs(ctx)
	if err != nil {
		t.Fatalf("reversed ids: %v", err)
	}
	found := false
	for _, id := range ids {
		if id == sale.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("sale id missing from reversed set")
	}
	got, _ = s.GetProduct(ctx, p.ID)
	if got.Stock != 4 {
		t.Fatalf("stock after reversal: expected 4, got %d", got.Stock)
	}
}

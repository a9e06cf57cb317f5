package ledger

import (
	"math/rand"
	"testing"
	"time"

	"padelclub/backend/internal/domain"
	"padelclub/backend/internal/store"
)

func baseTurn(start time.Time) domain.AdminTurn {
	return domain.AdminTurn{
		ID:        "trn_test",
		AdminName: "lucia",
		Status:    domain.TurnStatusActive,
		StartedAt: start,
	}
}

func TestAggregateExcludesReversedAndOutOfWindow(t *testing.T) {
	start := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	snap := &store.LedgerSnapshot{
		Turn: baseTurn(start),
		Sales: []domain.Sale{
			{ID: "sal_before", Kind: domain.TxKindKioskSale, Total: 100, PaymentMethod: domain.PayMethodCash,
				Breakdown: domain.PaymentBreakdown{Cash: 100}, Status: domain.RecordStatusActive,
				CreatedAt: start.Add(-time.Hour)},
			{ID: "sal_ok", Kind: domain.TxKindKioskSale, Total: 200, PaymentMethod: domain.PayMethodCash,
				Breakdown: domain.PaymentBreakdown{Cash: 200}, Status: domain.RecordStatusActive,
				CreatedAt: start.Add(time.Hour)},
			{ID: "sal_reversed", Kind: domain.TxKindKioskSale, Total: 300, PaymentMethod: domain.PayMethodCash,
				Breakdown: domain.PaymentBreakdown{Cash: 300}, Status: domain.RecordStatusReversed,
				CreatedAt: start.Add(2 * time.Hour)},
		},
		ReversedIDs: []string{"sal_reversed"},
	}
	entries := Aggregate(snap)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].ID != "sal_ok" {
		t.Fatalf("expected sal_ok, got %s", entries[0].ID)
	}
}

func TestAggregateSkipsUnusableTimestamps(t *testing.T) {
	start := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	snap := &store.LedgerSnapshot{
		Turn: baseTurn(start),
		Sales: []domain.Sale{
			{ID: "sal_broken", Kind: domain.TxKindKioskSale, Total: 100,
				PaymentMethod: domain.PayMethodCash, Status: domain.RecordStatusActive},
			{ID: "sal_ok", Kind: domain.TxKindKioskSale, Total: 200, PaymentMethod: domain.PayMethodCash,
				Breakdown: domain.PaymentBreakdown{Cash: 200}, Status: domain.RecordStatusActive,
				CreatedAt: start.Add(time.Minute)},
		},
	}
	entries := Aggregate(snap)
	if len(entries) != 1 || entries[0].ID != "sal_ok" {
		t.Fatalf("expected only sal_ok, got %+v", entries)
	}
}

func TestAggregateSortsNewestFirst(t *testing.T) {
	start := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	snap := &store.LedgerSnapshot{
		Turn: baseTurn(start),
		Sales: []domain.Sale{
			{ID: "sal_1", Kind: domain.TxKindKioskSale, Total: 1, PaymentMethod: domain.PayMethodCash,
				Status: domain.RecordStatusActive, CreatedAt: start.Add(time.Minute)},
			{ID: "sal_2", Kind: domain.TxKindKioskSale, Total: 2, PaymentMethod: domain.PayMethodCash,
				Status: domain.RecordStatusActive, CreatedAt: start.Add(3 * time.Minute)},
		},
		Withdrawals: []domain.Withdrawal{
			{ID: "wdr_1", WithdrawalID: "RET-0001", Amount: 500,
				Status: domain.RecordStatusActive, CreatedAt: start.Add(2 * time.Minute)},
		},
	}
	entries := Aggregate(snap)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	want := []string{"sal_2", "wdr_1", "sal_1"}
	for i, id := range want {
		if entries[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, entries[i].ID)
		}
	}
	if entries[1].Gross != -500 {
		t.Fatalf("withdrawal gross should be -500, got %d", entries[1].Gross)
	}
}

func TestReconcileBucketsByMethodAndSplit(t *testing.T) {
	entries := []domain.Transaction{
		{Gross: 1000, PaymentMethod: domain.PayMethodCash},
		{Gross: 2000, PaymentMethod: domain.PayMethodTransfer},
		{Gross: 1500, PaymentMethod: domain.PayMethodInKind},
		{Gross: 3000, PaymentMethod: domain.PayMethodSplit,
			Breakdown: domain.PaymentBreakdown{Cash: 1000, Transfer: 1500, InKind: 500}},
		{Gross: -400, PaymentMethod: domain.PayMethodCash,
			Breakdown: domain.PaymentBreakdown{Cash: -400}},
	}
	totals := Reconcile(entries)
	if totals.Cash != 1600 {
		t.Fatalf("cash: expected 1600, got %d", totals.Cash)
	}
	if totals.Transfer != 3500 {
		t.Fatalf("transfer: expected 3500, got %d", totals.Transfer)
	}
	if totals.InKind != 2000 {
		t.Fatalf("in kind: expected 2000, got %d", totals.InKind)
	}
	if totals.Grand != 7100 {
		t.Fatalf("grand: expected 7100, got %d", totals.Grand)
	}
}

// Randomized consistency check: the grand total always equals the sum of
// entry gross amounts, and per-method buckets always sum to the grand.
func TestReconcileConsistencyRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	methods := []string{domain.PayMethodCash, domain.PayMethodTransfer, domain.PayMethodInKind, domain.PayMethodSplit}
	for round := 0; round < 200; round++ {
		n := rng.Intn(30)
		entries := make([]domain.Transaction, 0, n)
		var wantGrand int64
		for i := 0; i < n; i++ {
			gross := int64(rng.Intn(10000) - 2000)
			method := methods[rng.Intn(len(methods))]
			e := domain.Transaction{Gross: gross, PaymentMethod: method}
			if method == domain.PayMethodSplit {
				cash := gross / 2
				transfer := gross / 3
				e.Breakdown = domain.PaymentBreakdown{Cash: cash, Transfer: transfer, InKind: gross - cash - transfer}
			} else {
				e.Breakdown = domain.SingleMethodBreakdown(method, gross)
			}
			wantGrand += gross
			entries = append(entries, e)
		}
		totals := Reconcile(entries)
		if totals.Grand != wantGrand {
			t.Fatalf("round %d: grand %d, want %d", round, totals.Grand, wantGrand)
		}
		if totals.Cash+totals.Transfer+totals.InKind != totals.Grand {
			t.Fatalf("round %d: buckets %d+%d+%d do not sum to grand %d",
				round, totals.Cash, totals.Transfer, totals.InKind, totals.Grand)
		}
	}
}

func TestFilterMethodMatchesSplitComponents(t *testing.T) {
	entries := []domain.Transaction{
		{ID: "a", PaymentMethod: domain.PayMethodCash, Gross: 100},
		{ID: "b", PaymentMethod: domain.PayMethodSplit,
			Breakdown: domain.PaymentBreakdown{Cash: 50, Transfer: 50}, Gross: 100},
		{ID: "c", PaymentMethod: domain.PayMethodSplit,
			Breakdown: domain.PaymentBreakdown{Transfer: 100}, Gross: 100},
	}
	got := Filter(entries, domain.LedgerFilter{Method: domain.PayMethodCash})
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("unexpected cash filter result: %+v", got)
	}
}

func TestFilterSearchAndDateRange(t *testing.T) {
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	entries := []domain.Transaction{
		{ID: "a", CustomerName: "Maria Gomez", OccurredAt: day.Add(10 * time.Hour)},
		{ID: "b", CustomerName: "Pedro Ruiz", OccurredAt: day.Add(36 * time.Hour)},
		{ID: "c", ReceiptNumber: "VP-2026-000007", OccurredAt: day.Add(12 * time.Hour)},
	}
	got := Filter(entries, domain.LedgerFilter{Search: "maria"})
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("search: expected only a, got %+v", got)
	}
	got = Filter(entries, domain.LedgerFilter{Search: "vp-2026"})
	if len(got) != 1 || got[0].ID != "c" {
		t.Fatalf("receipt search: expected only c, got %+v", got)
	}
	got = Filter(entries, domain.LedgerFilter{DateFrom: day, DateTo: day.Add(24*time.Hour - time.Nanosecond)})
	if len(got) != 2 {
		t.Fatalf("date range: expected 2 entries, got %d", len(got))
	}
}

func TestNormalizeLineItems(t *testing.T) {
	items := NormalizeLineItems([]domain.LineItem{
		{Name: "", Qty: 0, UnitPrice: 500},
		{Name: "Gatorade", Qty: 3, UnitPrice: 800},
	})
	if items[0].Name != "Item" || items[0].Qty != 1 || items[0].Subtotal != 500 {
		t.Fatalf("unexpected normalization of blank line: %+v", items[0])
	}
	if items[1].Subtotal != 2400 {
		t.Fatalf("subtotal: expected 2400, got %d", items[1].Subtotal)
	}
}

func TestCSVRowsFillEntryColumnsOnFirstRowOnly(t *testing.T) {
	entries := []domain.Transaction{{
		ID:            "sal_1",
		Kind:          domain.TxKindKioskSale,
		ReceiptNumber: "VP-2026-000001",
		Gross:         1400,
		PaymentMethod: domain.PayMethodCash,
		Breakdown:     domain.PaymentBreakdown{Cash: 1400},
		OccurredAt:    time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
		LineItems: []domain.LineItem{
			{Name: "Agua Mineral 500ml", Qty: 2, UnitPrice: 500, Subtotal: 1000},
			{Name: "Barrita Cereal", Qty: 1, UnitPrice: 400, Subtotal: 400},
		},
	}}
	rows := CSVRows(entries)
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[1][11] != "1400" {
		t.Fatalf("first row total: expected 1400, got %q", rows[1][11])
	}
	if rows[2][11] != "" {
		t.Fatalf("second row total column must be blank, got %q", rows[2][11])
	}
	if rows[2][12] != "Barrita Cereal" {
		t.Fatalf("second row item: got %q", rows[2][12])
	}
}

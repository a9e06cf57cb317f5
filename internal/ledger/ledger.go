// Package ledger projects stored register records into the unified turn
// ledger and computes reconciliation totals. Everything here is pure: it
// reads a snapshot and returns derived values, so every caller (screen,
// export, close) sees the same numbers.
package ledger

import (
	"log"
	"sort"
	"strings"
	"time"

	"padelclub/backend/internal/domain"
	"padelclub/backend/internal/store"
)

// Origins shown on ledger entries.
const (
	OriginKiosk    = "kiosk"
	OriginCourts   = "courts"
	OriginRegister = "register"
)

// NormalizeLineItems returns the canonical display copy of raw lines:
// qty defaults to 1, blank names become "Item", missing subtotals are
// computed from unit price and qty. The input is never mutated.
func NormalizeLineItems(items []domain.LineItem) []domain.LineItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]domain.LineItem, 0, len(items))
	for _, it := range items {
		if it.Qty <= 0 {
			it.Qty = 1
		}
		if strings.TrimSpace(it.Name) == "" {
			it.Name = "Item"
		}
		if it.Subtotal == 0 && it.UnitPrice != 0 {
			it.Subtotal = it.UnitPrice * int64(it.Qty)
		}
		out = append(out, it)
	}
	return out
}

// BillLinesAsItems converts open-bill lines to ledger line items, keeping
// catalog ids so reversals can restock.
func BillLinesAsItems(lines []domain.BillLine) []domain.LineItem {
	if len(lines) == 0 {
		return nil
	}
	out := make([]domain.LineItem, 0, len(lines))
	for _, ln := range lines {
		out = append(out, domain.LineItem{
			ItemID:    ln.RefID,
			Name:      ln.Name,
			UnitPrice: ln.UnitPrice,
			Qty:       ln.Qty,
			Subtotal:  ln.Subtotal,
		})
	}
	return out
}

// Aggregate builds the unified ledger for one turn: reversed records and
// records outside the turn window are excluded, entries with unusable
// timestamps are skipped with a warning, and the result is sorted newest
// first. Withdrawals and expenses appear as negative cash entries.
func Aggregate(snap *store.LedgerSnapshot) []domain.Transaction {
	if snap == nil {
		return nil
	}
	reversed := make(map[string]struct{}, len(snap.ReversedIDs))
	for _, id := range snap.ReversedIDs {
		reversed[id] = struct{}{}
	}

	start := snap.Turn.StartedAt
	var entries []domain.Transaction

	for _, s := range snap.Sales {
		if _, gone := reversed[s.ID]; gone || s.Status == domain.RecordStatusReversed {
			continue
		}
		if s.CreatedAt.IsZero() {
			log.Printf("[ledger] WARN: skipping sale %s with unusable timestamp", s.ID)
			continue
		}
		if s.CreatedAt.Before(start) || afterClose(snap.Turn, s.CreatedAt) {
			continue
		}
		origin := OriginKiosk
		if s.Kind == domain.TxKindOpeningFloat {
			origin = OriginRegister
		}
		entries = append(entries, domain.Transaction{
			ID:            s.ID,
			Kind:          s.Kind,
			ReceiptNumber: s.ReceiptNumber,
			CustomerName:  s.CustomerName,
			LotNumber:     s.LotNumber,
			Origin:        origin,
			Gross:         s.Total,
			PaymentMethod: s.PaymentMethod,
			Breakdown:     s.Breakdown,
			LineItems:     NormalizeLineItems(s.Items),
			RawLineItems:  s.Items,
			AdminName:     s.AdminName,
			OccurredAt:    s.CreatedAt,
		})
	}

	for _, b := range snap.Bills {
		if _, gone := reversed[b.ID]; gone || b.Status == domain.RecordStatusReversed {
			continue
		}
		if b.CreatedAt.IsZero() {
			log.Printf("[ledger] WARN: skipping court bill %s with unusable timestamp", b.ID)
			continue
		}
		if b.CreatedAt.Before(start) || afterClose(snap.Turn, b.CreatedAt) {
			continue
		}
		raw := BillLinesAsItems(b.RawItems)
		entries = append(entries, domain.Transaction{
			ID:            b.ID,
			Kind:          domain.TxKindCourtBill,
			ReceiptNumber: b.ReceiptNumber,
			CustomerName:  b.CustomerName,
			LotNumber:     b.LotNumber,
			Origin:        OriginCourts,
			Notes:         b.CourtName,
			Gross:         b.Total,
			PaymentMethod: b.PaymentMethod,
			Breakdown:     b.Breakdown,
			LineItems:     NormalizeLineItems(raw),
			RawLineItems:  raw,
			AdminName:     b.AdminName,
			OccurredAt:    b.CreatedAt,
		})
	}

	for _, w := range snap.Withdrawals {
		if _, gone := reversed[w.ID]; gone || w.Status == domain.RecordStatusReversed {
			continue
		}
		if w.CreatedAt.IsZero() {
			log.Printf("[ledger] WARN: skipping withdrawal %s with unusable timestamp", w.ID)
			continue
		}
		if w.CreatedAt.Before(start) || afterClose(snap.Turn, w.CreatedAt) {
			continue
		}
		entries = append(entries, domain.Transaction{
			ID:            w.ID,
			Kind:          domain.TxKindWithdrawal,
			WithdrawalID:  w.WithdrawalID,
			Origin:        OriginRegister,
			Notes:         w.Notes,
			Gross:         -w.Amount,
			PaymentMethod: domain.PayMethodCash,
			Breakdown:     domain.PaymentBreakdown{Cash: -w.Amount},
			AdminName:     w.AdminName,
			OccurredAt:    w.CreatedAt,
		})
	}

	for _, e := range snap.Expenses {
		if _, gone := reversed[e.ID]; gone || e.Status == domain.RecordStatusReversed {
			continue
		}
		if e.CreatedAt.IsZero() {
			log.Printf("[ledger] WARN: skipping expense %s with unusable timestamp", e.ID)
			continue
		}
		if e.CreatedAt.Before(start) || afterClose(snap.Turn, e.CreatedAt) {
			continue
		}
		entries = append(entries, domain.Transaction{
			ID:            e.ID,
			Kind:          domain.TxKindExpense,
			Origin:        OriginRegister,
			Concept:       e.Concept,
			Notes:         e.Detail,
			Gross:         -e.Amount,
			PaymentMethod: domain.PayMethodCash,
			Breakdown:     domain.PaymentBreakdown{Cash: -e.Amount},
			AdminName:     e.AdminName,
			OccurredAt:    e.CreatedAt,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].OccurredAt.Equal(entries[j].OccurredAt) {
			return entries[i].ID > entries[j].ID
		}
		return entries[i].OccurredAt.After(entries[j].OccurredAt)
	})
	return entries
}

// afterClose reports whether at falls past the end of a closed turn.
// Active turns have no upper bound.
func afterClose(turn domain.AdminTurn, at time.Time) bool {
	return turn.ClosedAt != nil && at.After(*turn.ClosedAt)
}

// Reconcile sums the ledger into per-method totals. Split payments use
// their breakdown; single-method entries bucket the gross amount.
func Reconcile(entries []domain.Transaction) domain.TurnTotals {
	var t domain.TurnTotals
	for _, e := range entries {
		if e.PaymentMethod == domain.PayMethodSplit {
			t.Cash += e.Breakdown.Cash
			t.Transfer += e.Breakdown.Transfer
			t.InKind += e.Breakdown.InKind
			continue
		}
		switch e.PaymentMethod {
		case domain.PayMethodTransfer:
			t.Transfer += e.Gross
		case domain.PayMethodInKind:
			t.InKind += e.Gross
		default:
			t.Cash += e.Gross
		}
	}
	t.Grand = t.Cash + t.Transfer + t.InKind
	return t
}

// Filter narrows entries by free-text search, payment method, kind and
// an inclusive date range.
func Filter(entries []domain.Transaction, f domain.LedgerFilter) []domain.Transaction {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]domain.Transaction, 0, len(entries))
	for _, e := range entries {
		if f.Kind != "" && e.Kind != f.Kind {
			continue
		}
		if f.Method != "" && !matchesMethod(e, f.Method) {
			continue
		}
		if !f.DateFrom.IsZero() && e.OccurredAt.Before(f.DateFrom) {
			continue
		}
		if !f.DateTo.IsZero() && e.OccurredAt.After(f.DateTo) {
			continue
		}
		if search != "" && !matchesSearch(e, search) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func matchesMethod(e domain.Transaction, method string) bool {
	if e.PaymentMethod == method {
		return true
	}
	if e.PaymentMethod != domain.PayMethodSplit {
		return false
	}
	// A split entry matches any method it actually moved money through.
	switch method {
	case domain.PayMethodCash:
		return e.Breakdown.Cash != 0
	case domain.PayMethodTransfer:
		return e.Breakdown.Transfer != 0
	case domain.PayMethodInKind:
		return e.Breakdown.InKind != 0
	}
	return false
}

func matchesSearch(e domain.Transaction, search string) bool {
	for _, field := range []string{
		e.CustomerName, e.ReceiptNumber, e.WithdrawalID,
		e.LotNumber, e.Concept, e.Notes, e.AdminName,
	} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	for _, it := range e.LineItems {
		if strings.Contains(strings.ToLower(it.Name), search) {
			return true
		}
	}
	return false
}

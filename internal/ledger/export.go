package ledger

import (
	"strconv"
	"time"

	"padelclub/backend/internal/domain"
)

// CSVHeader is the first row of every ledger export.
var CSVHeader = []string{
	"date", "time", "kind", "receipt", "customer", "lot", "origin",
	"method", "cash", "transfer", "in_kind", "total",
	"item", "qty", "unit_price", "subtotal",
}

// CSVRows renders ledger entries for export. Entries with line items get
// one row per item; the entry-level columns are filled on the first row
// only so totals are not double counted when the file is summed.
func CSVRows(entries []domain.Transaction) [][]string {
	rows := [][]string{CSVHeader}
	for _, e := range entries {
		base := []string{
			e.OccurredAt.Format("2006-01-02"),
			e.OccurredAt.Format("15:04:05"),
			e.Kind,
			receiptOf(e),
			e.CustomerName,
			e.LotNumber,
			e.Origin,
			e.PaymentMethod,
			strconv.FormatInt(e.Breakdown.Cash, 10),
			strconv.FormatInt(e.Breakdown.Transfer, 10),
			strconv.FormatInt(e.Breakdown.InKind, 10),
			strconv.FormatInt(e.Gross, 10),
		}
		if len(e.LineItems) == 0 {
			rows = append(rows, append(base, "", "", "", ""))
			continue
		}
		for i, it := range e.LineItems {
			prefix := base
			if i > 0 {
				prefix = blankEntryColumns(e.OccurredAt)
			}
			row := append(append([]string{}, prefix...),
				it.Name,
				strconv.Itoa(it.Qty),
				strconv.FormatInt(it.UnitPrice, 10),
				strconv.FormatInt(it.Subtotal, 10),
			)
			rows = append(rows, row)
		}
	}
	return rows
}

func receiptOf(e domain.Transaction) string {
	if e.ReceiptNumber != "" {
		return e.ReceiptNumber
	}
	return e.WithdrawalID
}

func blankEntryColumns(at time.Time) []string {
	return []string{
		at.Format("2006-01-02"),
		at.Format("15:04:05"),
		"", "", "", "", "", "", "", "", "", "",
	}
}

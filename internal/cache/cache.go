// Package cache holds the ledger snapshot cache. The aggregated ledger
// for a turn is rebuilt on every read otherwise; mutations invalidate.
package cache

import (
	"context"

	"padelclub/backend/internal/domain"
)

type LedgerCache interface {
	GetLedger(ctx context.Context, turnID string) ([]domain.Transaction, bool)
	SetLedger(ctx context.Context, turnID string, entries []domain.Transaction)
	Invalidate(ctx context.Context, turnID string)
	Close() error
}

// Noop satisfies LedgerCache without caching anything.
type Noop struct{}

func (Noop) GetLedger(ctx context.Context, turnID string) ([]domain.Transaction, bool) {
	return nil, false
}
func (Noop) SetLedger(ctx context.Context, turnID string, entries []domain.Transaction) {}
func (Noop) Invalidate(ctx context.Context, turnID string)                              {}
func (Noop) Close() error                                                               { return nil }

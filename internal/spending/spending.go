// Package spending computes how much left the accounts over a time window.
package spending

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"finbot/internal/core"
	"finbot/internal/storage"
)

type Aggregator struct {
	store storage.TransactionStore
}

func NewAggregator(store storage.TransactionStore) *Aggregator {
	return &Aggregator{store: store}
}

// ComputeSpent returns the absolute sum of outflows created in [start, end],
// rounded to 2 decimals. An empty iban covers every account. Rows without a
// numeric amount are skipped.
func (a *Aggregator) ComputeSpent(ctx context.Context, start, end time.Time, iban string) (decimal.Decimal, error) {
	txs, err := a.store.ListTransactions(ctx, storage.TransactionFilter{From: start, To: end, Account: iban})
	if err != nil {
		return decimal.Zero, fmt.Errorf("list transactions: %w", err)
	}
	return SumOutflows(txs), nil
}

// SumOutflows is the rounded absolute sum of the negative amounts in txs.
func SumOutflows(txs []core.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		if !t.Amount.Valid || !t.Amount.Decimal.IsNegative() {
			continue
		}
		total = total.Add(t.Amount.Decimal)
	}
	return total.Neg().Round(2)
}

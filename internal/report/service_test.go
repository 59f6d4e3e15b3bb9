package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

type stubLedger struct {
	rows    []domain.LedgerRow
	daily   []domain.DailySummary
	failing bool
}

func (s *stubLedger) Append(ctx context.Context, row domain.LedgerRow) error { return nil }

func (s *stubLedger) RowsInWindow(ctx context.Context, days int) ([]domain.LedgerRow, error) {
	if s.failing {
		return nil, errors.New("db caída")
	}
	return s.rows, nil
}

func (s *stubLedger) RecentRows(ctx context.Context, limit int) ([]domain.LedgerRow, error) {
	if s.failing {
		return nil, errors.New("db caída")
	}
	if len(s.rows) > limit {
		return s.rows[:limit], nil
	}
	return s.rows, nil
}

func (s *stubLedger) DailySummaries(ctx context.Context, days int) ([]domain.DailySummary, error) {
	if s.failing {
		return nil, errors.New("db caída")
	}
	return s.daily, nil
}

func (s *stubLedger) TodayRealizedCents(ctx context.Context, day string) (int64, error) {
	return 0, nil
}

func (s *stubLedger) LastEntry(ctx context.Context, ticker string, side domain.Side) (time.Time, bool, error) {
	return time.Time{}, false, nil
}

func (s *stubLedger) Close() error { return nil }

func TestService_Summary(t *testing.T) {
	ledger := &stubLedger{
		daily: []domain.DailySummary{
			{Day: "2026-09-01", BuyCents: 300, SellCents: 420, RealizedPnLCents: 120, Trades: 4},
			{Day: "2026-08-31", BuyCents: 200, SellCents: 150, RealizedPnLCents: -50, Trades: 2},
		},
		rows: []domain.LedgerRow{
			row(3, "KXBTC15M-A", domain.SideYes, domain.ActionSell, 40, 4, 158),
			row(2, "KXBTC15M-A", domain.SideYes, domain.ActionBuy, 25, 4, 102),
		},
	}

	sum, err := NewService(ledger).Summary(context.Background(), 7, 10)
	require.NoError(t, err)

	assert.Len(t, sum.Days, 2)
	assert.Len(t, sum.Recent, 2)
	assert.Equal(t, int64(500), sum.TotalBuyCents)
	assert.Equal(t, int64(570), sum.TotalSellCents)
	assert.Equal(t, int64(70), sum.RealizedCents)
	assert.Equal(t, 6, sum.TotalTrades)
}

func TestService_SummaryPropagatesErrors(t *testing.T) {
	_, err := NewService(&stubLedger{failing: true}).Summary(context.Background(), 7, 10)
	assert.Error(t, err)
}

func TestService_RoundTrips(t *testing.T) {
	ledger := &stubLedger{rows: []domain.LedgerRow{
		row(1, "KXBTC15M-A", domain.SideYes, domain.ActionBuy, 25, 4, 100),
		row(2, "KXBTC15M-A", domain.SideYes, domain.ActionSell, 40, 4, 158),
	}}

	trips, summary, err := NewService(ledger).RoundTrips(context.Background(), 7, 50)
	require.NoError(t, err)

	require.Len(t, trips, 1)
	assert.Equal(t, 4, trips[0].Qty)
	assert.Equal(t, int64(58), trips[0].PnLCents)
	assert.Equal(t, 1, summary.TotalTrips)
	assert.Equal(t, 1, summary.Wins)
}

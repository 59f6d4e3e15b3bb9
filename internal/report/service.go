package report

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/kalshibot/internal/domain"
	"github.com/alejandrodnm/kalshibot/internal/ports"
)

// LedgerSummary es la vista completa del ledger local para reporting:
// agregados por día, últimos fills y totales de la ventana.
type LedgerSummary struct {
	Days           []domain.DailySummary
	Recent         []domain.LedgerRow
	TotalBuyCents  int64
	TotalSellCents int64
	RealizedCents  int64
	TotalTrades    int
}

// Service expone las queries de reporting sobre el ledger. Todo es
// derivado de las filas append-only; no muta nada.
type Service struct {
	ledger ports.Ledger
}

func NewService(ledger ports.Ledger) *Service {
	return &Service{ledger: ledger}
}

// Summary arma el resumen del ledger: agregados diarios de los últimos
// `days` días más los últimos `recentLimit` fills.
func (s *Service) Summary(ctx context.Context, days, recentLimit int) (LedgerSummary, error) {
	var out LedgerSummary

	daily, err := s.ledger.DailySummaries(ctx, days)
	if err != nil {
		return out, fmt.Errorf("report.Summary: daily summaries: %w", err)
	}
	recent, err := s.ledger.RecentRows(ctx, recentLimit)
	if err != nil {
		return out, fmt.Errorf("report.Summary: recent rows: %w", err)
	}

	out.Days = daily
	out.Recent = recent
	for _, d := range daily {
		out.TotalBuyCents += d.BuyCents
		out.TotalSellCents += d.SellCents
		out.RealizedCents += d.RealizedPnLCents
		out.TotalTrades += d.Trades
	}
	return out, nil
}

// RoundTrips matchea FIFO las filas de los últimos `days` días y devuelve
// hasta `limit` trips más el resumen agregado.
func (s *Service) RoundTrips(ctx context.Context, days, limit int) ([]domain.RoundTrip, domain.TripSummary, error) {
	rows, err := s.ledger.RowsInWindow(ctx, days)
	if err != nil {
		return nil, domain.TripSummary{}, fmt.Errorf("report.RoundTrips: rows in window: %w", err)
	}
	trips, summary := MatchRoundTrips(rows, limit)
	return trips, summary, nil
}

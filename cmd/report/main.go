package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/kalshibot/config"
	"github.com/alejandrodnm/kalshibot/internal/adapters/storage"
	"github.com/alejandrodnm/kalshibot/internal/domain"
	"github.com/alejandrodnm/kalshibot/internal/report"
)

func main() {
	configPath := flag.String("config", "", "path to config file (empty = defaults + env)")
	ledgerPath := flag.String("ledger", "", "ledger sqlite path (overrides config)")
	days := flag.Int("days", 7, "day window for summaries and round trips")
	recent := flag.Int("recent", 20, "recent fills to print")
	trips := flag.Int("trips", 50, "max round trips to print")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}
	path := cfg.Storage.LedgerPath
	if *ledgerPath != "" {
		path = *ledgerPath
	}

	ledger, err := storage.NewSQLiteLedger(path)
	if err != nil {
		slog.Error("failed to open ledger", "err", err, "path", path)
		os.Exit(1)
	}
	defer ledger.Close()

	svc := report.NewService(ledger)
	ctx := context.Background()

	summary, err := svc.Summary(ctx, *days, *recent)
	if err != nil {
		slog.Error("ledger summary failed", "err", err)
		os.Exit(1)
	}
	printDaily(summary)
	printRecent(summary.Recent)

	tripList, tripSummary, err := svc.RoundTrips(ctx, *days, *trips)
	if err != nil {
		slog.Error("round trips failed", "err", err)
		os.Exit(1)
	}
	printTrips(tripList)
	printTripSummary(tripSummary)
}

func printDaily(s report.LedgerSummary) {
	fmt.Printf("\nResumen diario (últimos días)\n")
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Día", "Trades", "Compras", "Ventas", "Realizado")
	for _, d := range s.Days {
		table.Append(
			d.Day,
			fmt.Sprintf("%d", d.Trades),
			cents(d.BuyCents),
			cents(d.SellCents),
			cents(d.RealizedPnLCents),
		)
	}
	table.Append("TOTAL",
		fmt.Sprintf("%d", s.TotalTrades),
		cents(s.TotalBuyCents),
		cents(s.TotalSellCents),
		cents(s.RealizedCents),
	)
	table.Render()
}

func printRecent(rows []domain.LedgerRow) {
	if len(rows) == 0 {
		return
	}
	fmt.Printf("\nÚltimos fills\n")
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("TS", "Ticker", "Lado", "Acción", "Px", "Qty", "Costo", "Orden")
	for _, r := range rows {
		table.Append(
			r.TS.Format(time.DateTime),
			r.Ticker,
			string(r.Side),
			string(r.Action),
			fmt.Sprintf("%dc", r.PriceCents),
			fmt.Sprintf("%d", r.Qty),
			cents(r.CostCents),
			r.OrderID,
		)
	}
	table.Render()
}

func printTrips(trips []domain.RoundTrip) {
	if len(trips) == 0 {
		fmt.Printf("\nSin round trips cerrados en la ventana\n")
		return
	}
	fmt.Printf("\nRound trips (FIFO)\n")
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Ticker", "Lado", "Qty", "Entrada", "Salida", "Costo", "Proceeds", "PnL")
	for _, t := range trips {
		table.Append(
			t.Ticker,
			string(t.Side),
			fmt.Sprintf("%d", t.Qty),
			fmt.Sprintf("%dc", t.EntryPriceCents),
			fmt.Sprintf("%dc", t.ExitPriceCents),
			cents(t.EntryCostCents),
			cents(t.ExitProceedsCents),
			cents(t.PnLCents),
		)
	}
	table.Render()
}

func printTripSummary(s domain.TripSummary) {
	fmt.Printf("\nTrips: %d (W %d / L %d / BE %d)  abiertos: %d\n",
		s.TotalTrips, s.Wins, s.Losses, s.Breakeven, s.OpenPositions)
	fmt.Printf("PnL total: %s  win rate: %.1f%%  PnL medio: %.2fc\n",
		cents(s.TotalPnLCents), s.WinRate*100, s.AvgPnLCents)
}

func cents(v int64) string {
	return fmt.Sprintf("$%.2f", float64(v)/100.0)
}

package domain

import (
	"fmt"
	"time"
)

// Action es la acción de una fila del ledger.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// LedgerRow es una fila append-only del ledger local: exactamente una por
// fill. Nunca se actualiza ni borra después del insert — es la única
// fuente de verdad para reconstruir trades realizados localmente.
//
// CostCents tiene signo consistente por acción: costo total (notional +
// fees) para buys, proceeds netos (notional − fees) para sells.
type LedgerRow struct {
	ID         int64
	TS         time.Time
	Day        string // fecha calendario local, ISO (YYYY-MM-DD)
	Ticker     string
	Side       Side
	Action     Action
	PriceCents int
	Qty        int
	CostCents  int64
	OrderID    string
}

// Validate rechaza filas malformadas antes del insert. Una fila inválida
// es una violación de invariante (fatal para ese tick), nunca se corrige
// silenciosamente a un valor que parezca válido.
func (r LedgerRow) Validate() error {
	if r.Ticker == "" {
		return fmt.Errorf("ledger row: empty ticker")
	}
	if r.Side != SideYes && r.Side != SideNo {
		return fmt.Errorf("ledger row %s: invalid side %q", r.Ticker, r.Side)
	}
	if r.Action != ActionBuy && r.Action != ActionSell {
		return fmt.Errorf("ledger row %s: invalid action %q", r.Ticker, r.Action)
	}
	if r.PriceCents < 1 || r.PriceCents > 99 {
		return fmt.Errorf("ledger row %s: price %dc outside [1,99]", r.Ticker, r.PriceCents)
	}
	if r.Qty <= 0 {
		return fmt.Errorf("ledger row %s: non-positive qty %d", r.Ticker, r.Qty)
	}
	if r.Day == "" {
		return fmt.Errorf("ledger row %s: empty day", r.Ticker)
	}
	return nil
}

// Position es la vista derivada de una posición abierta, leída del
// snapshot de posiciones del exchange cada tick (no se almacena aparte).
type Position struct {
	Ticker             string
	Side               Side
	Quantity           int
	CostBasisCents     int64
	ExposureCents      int64
	UnrealizedPnLCents int64
}

// RoundTrip es un par buy→sell matcheado FIFO dentro de un (ticker, side).
// Derivado, nunca persistido; se recalcula en cada query.
type RoundTrip struct {
	Ticker            string
	Side              Side
	Qty               int
	EntryPriceCents   int
	ExitPriceCents    int
	EntryCostCents    int64
	ExitProceedsCents int64
	PnLCents          int64
	EntryTS           time.Time
	ExitTS            time.Time
	EntryOrderID      string
	ExitOrderID       string
}

// TripSummary agrega las métricas de una pasada de matching.
type TripSummary struct {
	TotalTrips             int
	Wins                   int
	Losses                 int
	Breakeven              int
	TotalPnLCents          int64
	TotalBuyCostCents      int64
	TotalSellProceedsCents int64
	// OpenPositions cuenta los grupos (ticker, side) con qty de buys
	// sin matchear al final — no es pérdida ni ganancia.
	OpenPositions int
	WinRate       float64
	AvgPnLCents   float64
}

// DailySummary es el agregado por día calendario del ledger.
type DailySummary struct {
	Day              string
	BuyCents         int64
	SellCents        int64
	RealizedPnLCents int64
	Trades           int
}

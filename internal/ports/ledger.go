package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// Ledger es el ledger local de fills: append-only, single-writer (el tick
// loop), con lectores concurrentes (reporting). Las lecturas son snapshots
// point-in-time que toleran un writer concurrente.
type Ledger interface {
	// Append inserta exactamente una fila por fill. La fila se valida
	// antes del insert; nunca se actualiza ni borra después.
	Append(ctx context.Context, row domain.LedgerRow) error

	// RowsInWindow devuelve las filas de los últimos `days` días en orden
	// de inserción (id asc = cronológico).
	RowsInWindow(ctx context.Context, days int) ([]domain.LedgerRow, error)

	// RecentRows devuelve las últimas filas, más recientes primero.
	RecentRows(ctx context.Context, limit int) ([]domain.LedgerRow, error)

	// DailySummaries agrega buy/sell/realizado por día calendario.
	DailySummaries(ctx context.Context, days int) ([]domain.DailySummary, error)

	// TodayRealizedCents devuelve sells − buys de las filas del día dado.
	TodayRealizedCents(ctx context.Context, day string) (int64, error)

	// LastEntry devuelve el timestamp del último buy de (ticker, side),
	// ok=false si no hay ninguno.
	LastEntry(ctx context.Context, ticker string, side domain.Side) (time.Time, bool, error)

	// Close cierra la conexión limpiamente.
	Close() error
}

// StateStore persiste el estado de riesgo diario. La escritura debe ser
// atómica (sobrevive un crash sin reabrir el presupuesto del día).
type StateStore interface {
	Load(ctx context.Context) (DayState, error)
	Save(ctx context.Context, st DayState) error
}

// DayState es el registro chico de riesgo con scope de día calendario.
// DayStartBalanceCents es nil hasta la primera lectura de balance exitosa
// del día — sin él no hay cap de gasto aplicable.
type DayState struct {
	Day                  string `json:"day"`
	DayStartBalanceCents *int64 `json:"day_start_balance_cents"`
}

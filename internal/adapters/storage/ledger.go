package storage

// ledger.go — ledger local de fills sobre SQLite.
//
// Estrategia:
//   - `live_trades`: una fila por fill, append-only. Nunca UPDATE ni
//     DELETE — es la fuente de verdad para reconstruir trades realizados.
//   - Single-writer (el tick loop) con lectores concurrentes (reporting):
//     las queries de lectura son snapshots point-in-time y toleran un
//     writer que sigue appendeando.
//   - Índices por día y por ticker para las queries de round trips.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/kalshibot/internal/domain"
	_ "modernc.org/sqlite"
)

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS live_trades (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    ts          TEXT    NOT NULL,
    day         TEXT    NOT NULL,
    ticker      TEXT    NOT NULL,
    side        TEXT    NOT NULL,  -- yes|no
    action      TEXT    NOT NULL,  -- buy|sell
    price_cents INTEGER NOT NULL,
    qty         INTEGER NOT NULL,
    cost_cents  INTEGER NOT NULL,  -- costo en buys, proceeds en sells
    order_id    TEXT
);

CREATE INDEX IF NOT EXISTS idx_live_trades_day    ON live_trades(day);
CREATE INDEX IF NOT EXISTS idx_live_trades_ticker ON live_trades(ticker);
`

// SQLiteLedger implementa ports.Ledger usando SQLite (pure Go, sin CGo).
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLiteLedger abre (o crea) la base en la ruta dada y aplica el schema.
func NewSQLiteLedger(path string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteLedger: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(ledgerSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteLedger: apply schema: %w", err)
	}

	return &SQLiteLedger{db: db}, nil
}

// Append inserta exactamente una fila por fill. Filas malformadas se
// rechazan antes de tocar la base — nunca se coercen a algo válido.
func (l *SQLiteLedger) Append(ctx context.Context, row domain.LedgerRow) error {
	if err := row.Validate(); err != nil {
		return fmt.Errorf("storage.Append: %w", err)
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO live_trades (ts, day, ticker, side, action, price_cents, qty, cost_cents, order_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.TS.Format(time.RFC3339), row.Day, row.Ticker, string(row.Side), string(row.Action),
		row.PriceCents, row.Qty, row.CostCents, row.OrderID,
	)
	if err != nil {
		return fmt.Errorf("storage.Append: insert %s: %w", row.Ticker, err)
	}
	return nil
}

// RowsInWindow devuelve las filas de los últimos days días en orden de
// inserción — id asc es el orden cronológico que asume el matcher FIFO.
func (l *SQLiteLedger) RowsInWindow(ctx context.Context, days int) ([]domain.LedgerRow, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, ts, day, ticker, side, action, price_cents, qty, cost_cents, COALESCE(order_id, '')
		FROM live_trades
		WHERE day >= date('now', ?)
		ORDER BY id ASC`,
		fmt.Sprintf("-%d day", days),
	)
	if err != nil {
		return nil, fmt.Errorf("storage.RowsInWindow: query: %w", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// RecentRows devuelve las últimas limit filas, más recientes primero.
func (l *SQLiteLedger) RecentRows(ctx context.Context, limit int) ([]domain.LedgerRow, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, ts, day, ticker, side, action, price_cents, qty, cost_cents, COALESCE(order_id, '')
		FROM live_trades
		ORDER BY id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage.RecentRows: query: %w", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// DailySummaries agrega buy/sell/realizado por día calendario, días más
// recientes primero.
func (l *SQLiteLedger) DailySummaries(ctx context.Context, days int) ([]domain.DailySummary, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT day,
		       SUM(CASE WHEN action='buy'  THEN cost_cents ELSE 0 END) AS buy_cents,
		       SUM(CASE WHEN action='sell' THEN cost_cents ELSE 0 END) AS sell_cents,
		       COUNT(*) AS trades
		FROM live_trades
		WHERE day >= date('now', ?)
		GROUP BY day
		ORDER BY day DESC`,
		fmt.Sprintf("-%d day", days),
	)
	if err != nil {
		return nil, fmt.Errorf("storage.DailySummaries: query: %w", err)
	}
	defer rows.Close()

	var out []domain.DailySummary
	for rows.Next() {
		var d domain.DailySummary
		if err := rows.Scan(&d.Day, &d.BuyCents, &d.SellCents, &d.Trades); err != nil {
			return nil, fmt.Errorf("storage.DailySummaries: scan: %w", err)
		}
		d.RealizedPnLCents = d.SellCents - d.BuyCents
		out = append(out, d)
	}
	return out, rows.Err()
}

// TodayRealizedCents devuelve sells − buys para el día dado. Aproximación
// suficiente como guardia de pérdida diaria.
func (l *SQLiteLedger) TodayRealizedCents(ctx context.Context, day string) (int64, error) {
	var realized sql.NullInt64
	err := l.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN action='sell' THEN cost_cents ELSE 0 END), 0)
		     - COALESCE(SUM(CASE WHEN action='buy'  THEN cost_cents ELSE 0 END), 0)
		FROM live_trades
		WHERE day = ?`,
		day,
	).Scan(&realized)
	if err != nil {
		return 0, fmt.Errorf("storage.TodayRealizedCents: %w", err)
	}
	return realized.Int64, nil
}

// LastEntry devuelve el timestamp del último buy de (ticker, side).
func (l *SQLiteLedger) LastEntry(ctx context.Context, ticker string, side domain.Side) (time.Time, bool, error) {
	var ts string
	err := l.db.QueryRowContext(ctx, `
		SELECT ts FROM live_trades
		WHERE ticker = ? AND side = ? AND action = 'buy'
		ORDER BY id DESC
		LIMIT 1`,
		ticker, string(side),
	).Scan(&ts)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("storage.LastEntry: %w", err)
	}

	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("storage.LastEntry: parse ts %q: %w", ts, err)
	}
	return t, true, nil
}

// Close cierra la conexión a la base de datos.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

// scanRows materializa el resultado de una query de filas del ledger.
func scanRows(rows *sql.Rows) ([]domain.LedgerRow, error) {
	var out []domain.LedgerRow
	for rows.Next() {
		var r domain.LedgerRow
		var ts, side, action string
		if err := rows.Scan(&r.ID, &ts, &r.Day, &r.Ticker, &side, &action,
			&r.PriceCents, &r.Qty, &r.CostCents, &r.OrderID); err != nil {
			return nil, fmt.Errorf("storage: scan row: %w", err)
		}
		r.Side = domain.Side(side)
		r.Action = domain.Action(action)
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			r.TS = t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

package trader

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/alejandrodnm/kalshibot/internal/domain"
	"github.com/alejandrodnm/kalshibot/internal/metrics"
	"github.com/alejandrodnm/kalshibot/internal/ports"
)

// exits.go — motor de salida/rotación.
//
// Cada tick, antes de evaluar entradas, se revisan las posiciones
// abiertas en tickers permitidos. Una posición se vende entera (IOC, a
// best bid menos slippage) cuando se cumple CUALQUIERA de:
//
//	(a) |edge actual| comprimido dentro de un epsilon — la ventaja
//	    informacional desapareció, rotamos el capital;
//	(b) tenencia más vieja que el max-hold desde la última entrada;
//	(c) P&L no realizado >= take profit;
//	(d) P&L no realizado <= −stop loss.
//
// Los errores acá nunca bloquean la evaluación de entradas del mismo tick.

// exitReason etiqueta el trigger que disparó la venta, para logs y métricas.
type exitReason string

const (
	exitEdgeCompressed exitReason = "edge_compressed"
	exitMaxHold        exitReason = "max_hold"
	exitTakeProfit     exitReason = "take_profit"
	exitStopLoss       exitReason = "stop_loss"
)

// runExits evalúa todas las posiciones abiertas y ejecuta las ventas que
// correspondan. Devuelve cuántas salidas se ejecutaron con fill.
func (e *Engine) runExits(ctx context.Context, now time.Time, positions []domain.Position, sig Signals) int {
	if !e.cfg.ExitsEnabled {
		return 0
	}

	exited := 0
	checked := 0
	for _, pos := range positions {
		if checked >= e.cfg.MaxExitChecksPerTick {
			break
		}
		if pos.Quantity <= 0 {
			continue
		}
		if len(e.cfg.AllowPrefixes) > 0 && !hasAllowedPrefix(pos.Ticker, e.cfg.AllowPrefixes) {
			continue
		}
		checked++

		if e.exitPosition(ctx, now, pos, sig) {
			exited++
		}
	}
	return exited
}

// exitPosition evalúa una posición y la vende si algún trigger aplica.
// Devuelve true solo cuando la venta tuvo fill.
func (e *Engine) exitPosition(ctx context.Context, now time.Time, pos domain.Position, sig Signals) bool {
	quote, err := e.exchange.GetQuote(ctx, pos.Ticker, e.cfg.OrderbookDepth)
	if err != nil {
		slog.Warn("trader: error leyendo libro para exit", "ticker", pos.Ticker, "err", err)
		return false
	}

	bestBid := quote.BestBid(pos.Side)
	if bestBid <= 0 {
		// sin bid no hay salida posible; se reintenta el próximo tick
		return false
	}

	// P(YES) implícita desde el bid de salida del lado propio
	pMktYes := float64(bestBid) / 100.0
	if pos.Side == domain.SideNo {
		pMktYes = 1.0 - float64(bestBid)/100.0
	}

	unreal := int64(bestBid)*int64(pos.Quantity) - pos.CostBasisCents

	var reason exitReason
	switch {
	case e.edgeCompressed(sig, pMktYes):
		reason = exitEdgeCompressed
	case e.heldTooLong(ctx, now, pos):
		reason = exitMaxHold
	case e.cfg.TakeProfitCents > 0 && unreal >= e.cfg.TakeProfitCents:
		reason = exitTakeProfit
	case e.cfg.StopLossCents != 0 && unreal <= -absInt64(e.cfg.StopLossCents):
		reason = exitStopLoss
	default:
		return false
	}

	sellPx := max(1, bestBid-max(0, e.cfg.ExitMaxSlippageCents))
	slog.Info("trader: señal de exit",
		"ticker", pos.Ticker, "side", pos.Side, "qty", pos.Quantity,
		"px", sellPx, "best_bid", bestBid, "unreal_cents", unreal, "reason", string(reason))

	res, err := e.exchange.SubmitOrder(ctx, ports.OrderRequest{
		Ticker:      pos.Ticker,
		Side:        pos.Side,
		Action:      domain.ActionSell,
		PriceCents:  sellPx,
		Count:       pos.Quantity,
		TimeInForce: ports.ImmediateOrCancel,
	})
	if err != nil {
		slog.Warn("trader: error enviando orden de exit", "ticker", pos.Ticker, "err", err)
		return false
	}
	metrics.Orders.WithLabelValues(string(pos.Side), string(domain.ActionSell)).Inc()

	if res.FillCount <= 0 {
		slog.Info("trader: exit sin fill", "ticker", pos.Ticker, "px", sellPx)
		return false
	}

	// para sells el "costo" del ledger son los proceeds netos de fees
	proceeds := res.TakerFillCostCents + res.MakerFillCostCents - res.TakerFeesCents - res.MakerFeesCents
	if !res.HasCosts {
		proceeds = int64(sellPx) * int64(res.FillCount)
	}

	row := domain.LedgerRow{
		TS:         now,
		Day:        dayKey(now),
		Ticker:     pos.Ticker,
		Side:       pos.Side,
		Action:     domain.ActionSell,
		PriceCents: sellPx,
		Qty:        res.FillCount,
		CostCents:  proceeds,
		OrderID:    res.OrderID,
	}
	if err := e.ledger.Append(ctx, row); err != nil {
		// fila inválida o ledger caído: fatal para este tick, nunca se
		// coerciona a un valor que parezca válido
		slog.Error("trader: error registrando exit en el ledger", "ticker", pos.Ticker, "err", err)
	}

	metrics.Fills.WithLabelValues(string(pos.Side), string(domain.ActionSell)).Inc()
	metrics.Exits.WithLabelValues(string(reason)).Inc()
	e.notify(ctx, fmt.Sprintf("EXIT: vendido %s %s qty=%d @ %dc (%s)",
		pos.Ticker, pos.Side, res.FillCount, sellPx, reason))
	return true
}

// edgeCompressed indica si el edge contra el fair direccional se achicó
// dentro del epsilon de rotación. Sin fair disponible no se rota por edge
// (quedan los triggers de hold y P&L).
func (e *Engine) edgeCompressed(sig Signals, pMktYes float64) bool {
	if !sig.HasFairDir {
		return false
	}
	edgeNow := (sig.FairDirYes - pMktYes) * 10000.0
	return math.Abs(edgeNow) <= e.cfg.ExitEdgeEpsBps
}

// heldTooLong consulta el ledger por la última entrada en (ticker, side)
// y compara la edad contra el max-hold.
func (e *Engine) heldTooLong(ctx context.Context, now time.Time, pos domain.Position) bool {
	if e.cfg.MaxHold <= 0 {
		return false
	}
	entered, ok, err := e.ledger.LastEntry(ctx, pos.Ticker, pos.Side)
	if err != nil {
		slog.Warn("trader: error leyendo última entrada", "ticker", pos.Ticker, "err", err)
		return false
	}
	if !ok {
		return false
	}
	return now.Sub(entered) >= e.cfg.MaxHold
}

func absInt64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

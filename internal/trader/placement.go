package trader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/kalshibot/internal/domain"
	"github.com/alejandrodnm/kalshibot/internal/metrics"
	"github.com/alejandrodnm/kalshibot/internal/ports"
)

// placement.go — envío de la orden de entrada admitida.
//
// Solo órdenes límite de ejecución inmediata (FOK): o se llena ya contra
// el libro o no existe. Un fill de cero contratos es un resultado normal
// del tick, no un error.

// placeEntry dimensiona y envía la orden de compra del candidato admitido
// y registra el fill en el ledger.
func (e *Engine) placeEntry(ctx context.Context, now time.Time, c domain.Candidate, d domain.Decision, spendCents int64, sig Signals) error {
	price := d.PriceCents
	count := sizeOrder(spendCents, price, e.opposingTopQty(ctx, c.Ticker, d.Side), e.cfg.TopQtyFraction)

	pMktYes := float64(price) / 100.0
	if d.Side == domain.SideNo {
		pMktYes = 1.0 - float64(price)/100.0
	}
	slog.Info("trader: candidato seleccionado",
		"ticker", c.Ticker,
		"side", d.Side,
		"px", price,
		"count", count,
		"buy_max_cost_cents", spendCents,
		"p_mkt_yes", pMktYes,
		"lottery", d.Lottery,
		"spot", sig.SpotPrice,
		"ret_bps", sig.RetBps,
		"vol_bps", sig.VolBps,
		"title", c.Title)

	res, err := e.exchange.SubmitOrder(ctx, ports.OrderRequest{
		Ticker:          c.Ticker,
		Side:            d.Side,
		Action:          domain.ActionBuy,
		PriceCents:      price,
		Count:           count,
		BuyMaxCostCents: spendCents,
		TimeInForce:     ports.FillOrKill,
	})
	if err != nil {
		return fmt.Errorf("trader.placeEntry: submit %s %s: %w", c.Ticker, d.Side, err)
	}
	metrics.Orders.WithLabelValues(string(d.Side), string(domain.ActionBuy)).Inc()

	if res.FillCount <= 0 {
		slog.Info("trader: sin fill", "ticker", c.Ticker, "side", d.Side, "px", price)
		return nil
	}

	cost := res.TakerFillCostCents + res.MakerFillCostCents + res.TakerFeesCents + res.MakerFeesCents
	if !res.HasCosts {
		// sin costos a nivel fill, el fallback es el max-spend solicitado
		cost = spendCents
	}

	e.state.MarkTraded(c.Ticker, d.Side, now)
	e.state.Fills++
	metrics.Fills.WithLabelValues(string(d.Side), string(domain.ActionBuy)).Inc()

	slog.Info("trader: FILL",
		"n", e.state.Fills,
		"ticker", c.Ticker,
		"side", d.Side,
		"px", price,
		"qty", res.FillCount,
		"cost_cents", cost,
		"net_spent_cents", e.state.NetSpentTodayCents)

	row := domain.LedgerRow{
		TS:         now,
		Day:        dayKey(now),
		Ticker:     c.Ticker,
		Side:       d.Side,
		Action:     domain.ActionBuy,
		PriceCents: price,
		Qty:        res.FillCount,
		CostCents:  cost,
		OrderID:    res.OrderID,
	}
	if err := e.ledger.Append(ctx, row); err != nil {
		return fmt.Errorf("trader.placeEntry: ledger append: %w", err)
	}

	e.notify(ctx, fmt.Sprintf("FILL: %s BUY %s qty=%d @ %dc costo=%dc",
		c.Ticker, d.Side, res.FillCount, price, cost))
	return nil
}

// opposingTopQty relee el libro justo antes de enviar para acotar el
// tamaño al top del lado que se cruza. Best-effort: si la lectura falla
// se mantiene el sizing por presupuesto.
func (e *Engine) opposingTopQty(ctx context.Context, ticker string, side domain.Side) int {
	quote, err := e.exchange.GetQuote(ctx, ticker, e.cfg.OrderbookDepth)
	if err != nil {
		slog.Warn("trader: error releyendo libro para sizing", "ticker", ticker, "err", err)
		return 0
	}
	return quote.TopQtyCrossed(side)
}

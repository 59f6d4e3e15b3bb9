package trader

// risk.go — presupuesto con scope de día calendario.
//
// El gasto neto del día se deriva del delta de balance contra el
// day-start persistido, nunca de sumar fills localmente: sobrevive
// restarts y captura fees. El cap se aplica ANTES de enviar la orden.

// maxSpendableCents calcula el techo de gasto de la próxima orden:
// min(cap por trade, resto del presupuesto diario, cash − buffer,
// cap lottery si aplica, resto del target de gasto si está configurado).
// Un resultado <= 0 es presupuesto agotado: condición terminal del loop,
// no un retry.
func (e *Engine) maxSpendableCents(st *TraderState, balanceCents int64, lottery bool) int64 {
	spend := e.cfg.MaxCostPerTradeCents

	if e.cfg.DailyMaxCostCents > 0 {
		spend = min(spend, max(0, e.cfg.DailyMaxCostCents-st.NetSpentTodayCents))
	}
	if lottery && e.cfg.LotteryMaxCostCents > 0 {
		spend = min(spend, e.cfg.LotteryMaxCostCents)
	}
	if e.cfg.TargetSpendCents > 0 {
		spend = min(spend, max(0, e.cfg.TargetSpendCents-st.NetSpentTodayCents))
	}
	if balanceCents > 0 {
		spend = min(spend, max(0, balanceCents-e.cfg.CashBufferCents))
	}
	return spend
}

// dailyCapReached indica si el gasto neto de hoy ya alcanzó el cap
// diario. Alcanzarlo pausa el loop (duerme), no lo termina: el cap se
// reabre con el rollover de medianoche.
func (e *Engine) dailyCapReached(st *TraderState) bool {
	return e.cfg.DailyMaxCostCents > 0 && st.NetSpentTodayCents >= e.cfg.DailyMaxCostCents
}

// lossLimitHit indica si el P&L realizado de hoy perforó el límite de
// pérdida diaria. También pausa, no termina.
func (e *Engine) lossLimitHit(realizedCents int64) bool {
	if e.cfg.DailyLossLimitCents <= 0 {
		return false
	}
	limit := e.cfg.DailyLossLimitCents
	if limit < 0 {
		limit = -limit
	}
	return realizedCents <= -limit
}

// sizeOrder calcula la cantidad de contratos: floor(spend/price) con piso
// en 1, acotado a una fracción del top-of-book del lado que se cruza para
// no caminar el libro en una sola orden.
func sizeOrder(spendCents int64, priceCents, opposingTopQty int, topQtyFraction float64) int {
	count := int(spendCents / int64(max(1, priceCents)))
	if count < 1 {
		count = 1
	}
	if topQtyFraction > 0 && opposingTopQty > 0 {
		qtyCap := max(1, int(float64(opposingTopQty)*topQtyFraction))
		count = max(1, min(count, qtyCap))
	}
	return count
}

package domain

// Side es el lado de un contrato binario.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// Opposite devuelve el lado contrario.
func (s Side) Opposite() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}

// BookLevel es un nivel de precio del orderbook: precio en cents y
// cantidad en contratos.
type BookLevel struct {
	PriceCents int
	Qty        int
}

// QuoteSnapshot es la foto del top del libro de un mercado en un tick.
// Se obtiene fresca por candidato por tick y nunca se cachea entre ticks.
//
// Kalshi publica solo bids por lado; el ask implícito de un lado es
// 100 menos el best bid del lado contrario.
type QuoteSnapshot struct {
	Yes []BookLevel // bids YES, ordenados mayor a menor precio
	No  []BookLevel // bids NO, ordenados mayor a menor precio
}

// HasBothSides indica si ambos lados del libro tienen al menos un nivel.
func (q QuoteSnapshot) HasBothSides() bool {
	return len(q.Yes) > 0 && len(q.No) > 0
}

// BestYesBid devuelve el mejor bid YES en cents (0 si el lado está vacío).
func (q QuoteSnapshot) BestYesBid() int {
	if len(q.Yes) == 0 {
		return 0
	}
	return q.Yes[0].PriceCents
}

// BestNoBid devuelve el mejor bid NO en cents (0 si el lado está vacío).
func (q QuoteSnapshot) BestNoBid() int {
	if len(q.No) == 0 {
		return 0
	}
	return q.No[0].PriceCents
}

// BestBid devuelve el mejor bid del lado dado.
func (q QuoteSnapshot) BestBid(side Side) int {
	if side == SideYes {
		return q.BestYesBid()
	}
	return q.BestNoBid()
}

// ImpliedAsk devuelve el ask implícito para comprar el lado dado:
// 100 − best bid del lado contrario.
func (q QuoteSnapshot) ImpliedAsk(side Side) int {
	if side == SideYes {
		return 100 - q.BestNoBid()
	}
	return 100 - q.BestYesBid()
}

// Spread devuelve ask implícito menos best bid para el lado dado.
func (q QuoteSnapshot) Spread(side Side) int {
	return q.ImpliedAsk(side) - q.BestBid(side)
}

// TopQtyCrossed devuelve la cantidad en el top del lado RESTING que se
// cruza al comprar `side`: comprar YES cruza bids NO (YES ask = 100 − NO bid)
// y comprar NO cruza bids YES.
func (q QuoteSnapshot) TopQtyCrossed(side Side) int {
	levels := q.No
	if side == SideNo {
		levels = q.Yes
	}
	if len(levels) == 0 {
		return 0
	}
	return levels[0].Qty
}

// DepthWithinCrossed suma la cantidad resting dentro de `withinCents`
// del best bid en el lado que se cruza al comprar `side`.
func (q QuoteSnapshot) DepthWithinCrossed(side Side, withinCents int) int {
	levels := q.No
	if side == SideNo {
		levels = q.Yes
	}
	if len(levels) == 0 {
		return 0
	}
	cutoff := levels[0].PriceCents - withinCents
	total := 0
	for _, lv := range levels {
		if lv.PriceCents >= cutoff {
			total += lv.Qty
		}
	}
	return total
}

// MarketImpliedYes devuelve la P(YES) implícita al comprar el lado dado
// a su ask implícito.
func (q QuoteSnapshot) MarketImpliedYes(side Side) float64 {
	if side == SideYes {
		return float64(q.ImpliedAsk(SideYes)) / 100.0
	}
	return 1.0 - float64(q.ImpliedAsk(SideNo))/100.0
}

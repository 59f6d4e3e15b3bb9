package report

// roundtrips.go — matching FIFO de buys→sells del ledger local.
//
// Por cada grupo (ticker, side) se consumen buys en orden de inserción y
// se matchean contra sells en orden de inserción. Sells parcialmente
// consumidos se re-encolan con qty y cost reducidos; buys sin matchear al
// final cuentan como posición abierta, no como pérdida ni ganancia.
//
// Todo es derivado: se recalcula en cada query y nunca se cachea, así que
// repetir la query sobre la misma ventana da exactamente el mismo resultado.

import (
	"math"
	"sort"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

type groupKey struct {
	ticker string
	side   domain.Side
}

// MatchRoundTrips empareja FIFO las filas del ledger y devuelve los round
// trips (hasta limit; 0 = sin límite) más el resumen agregado. El resumen
// siempre cuenta todos los trips aunque la lista esté acotada.
func MatchRoundTrips(rows []domain.LedgerRow, limit int) ([]domain.RoundTrip, domain.TripSummary) {
	groups := make(map[groupKey][]domain.LedgerRow)
	var order []groupKey
	for _, r := range rows {
		k := groupKey{ticker: r.Ticker, side: r.Side}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}
	// orden determinista de grupos, las filas ya vienen en orden de id
	sort.Slice(order, func(i, j int) bool {
		if order[i].ticker != order[j].ticker {
			return order[i].ticker < order[j].ticker
		}
		return order[i].side < order[j].side
	})

	var trips []domain.RoundTrip
	var summary domain.TripSummary

	for _, k := range order {
		trades := groups[k]
		var buys, sells []domain.LedgerRow
		for _, t := range trades {
			switch t.Action {
			case domain.ActionBuy:
				buys = append(buys, t)
			case domain.ActionSell:
				sells = append(sells, t)
			}
		}

		bi := 0
		si := 0
		buyRemaining := 0
		buyUnitCost := 0.0

		for bi < len(buys) && si < len(sells) {
			if buyRemaining <= 0 {
				b := buys[bi]
				buyRemaining = b.Qty
				buyUnitCost = float64(b.CostCents) / float64(max(1, b.Qty))
			}

			s := sells[si]
			sellQty := s.Qty
			sellUnitCost := float64(s.CostCents) / float64(max(1, sellQty))

			matched := min(buyRemaining, sellQty)
			if matched <= 0 {
				si++
				continue
			}

			entryCost := int64(math.Round(buyUnitCost * float64(matched)))
			exitProceeds := int64(math.Round(sellUnitCost * float64(matched)))
			pnl := exitProceeds - entryCost

			if limit <= 0 || len(trips) < limit {
				trips = append(trips, domain.RoundTrip{
					Ticker:            k.ticker,
					Side:              k.side,
					Qty:               matched,
					EntryPriceCents:   buys[bi].PriceCents,
					ExitPriceCents:    s.PriceCents,
					EntryCostCents:    entryCost,
					ExitProceedsCents: exitProceeds,
					PnLCents:          pnl,
					EntryTS:           buys[bi].TS,
					ExitTS:            s.TS,
					EntryOrderID:      buys[bi].OrderID,
					ExitOrderID:       s.OrderID,
				})
			}

			summary.TotalTrips++
			summary.TotalPnLCents += pnl
			summary.TotalBuyCostCents += entryCost
			summary.TotalSellProceedsCents += exitProceeds
			switch {
			case pnl > 0:
				summary.Wins++
			case pnl < 0:
				summary.Losses++
			default:
				summary.Breakeven++
			}

			buyRemaining -= matched
			sellQty -= matched

			if sellQty <= 0 {
				si++
			} else {
				// sell parcial: re-encolar con qty y cost reducidos
				sells[si].Qty = sellQty
				sells[si].CostCents = int64(math.Round(sellUnitCost * float64(sellQty)))
			}

			if buyRemaining <= 0 {
				bi++
			}
		}

		// qty de buys sin matchear → posición abierta del grupo.
		// Si buyRemaining > 0 el buy actual está parcialmente consumido y
		// ya lo contamos; si no, bi apunta al próximo buy sin tocar.
		openQty := buyRemaining
		start := bi
		if buyRemaining > 0 {
			start = bi + 1
		}
		for _, b := range buys[min(start, len(buys)):] {
			openQty += b.Qty
		}
		if openQty > 0 {
			summary.OpenPositions++
		}
	}

	closed := summary.Wins + summary.Losses + summary.Breakeven
	if closed > 0 {
		summary.WinRate = round4(float64(summary.Wins) / float64(closed))
		summary.AvgPnLCents = round2(float64(summary.TotalPnLCents) / float64(closed))
	}

	return trips, summary
}

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }

package kalshi

import (
	"time"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// mapOrderbook convierte los niveles crudos [price, qty] al snapshot de
// dominio. Niveles malformados (longitud != 2) se descartan.
func mapOrderbook(ob apiOrderbook) domain.QuoteSnapshot {
	return domain.QuoteSnapshot{
		Yes: mapLevels(ob.Yes),
		No:  mapLevels(ob.No),
	}
}

// mapLevels invierte el orden: Kalshi publica bids de menor a mayor precio,
// el dominio los quiere de mayor a menor (top of book primero).
func mapLevels(raw [][]int) []domain.BookLevel {
	if len(raw) == 0 {
		return nil
	}
	out := make([]domain.BookLevel, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		lv := raw[i]
		if len(lv) != 2 {
			continue
		}
		out = append(out, domain.BookLevel{PriceCents: lv[0], Qty: lv[1]})
	}
	return out
}

// mapPositions traduce el snapshot de posiciones: Position > 0 es una
// posición YES, < 0 una NO. Posiciones planas se omiten.
func mapPositions(resp positionsResponse) []domain.Position {
	out := make([]domain.Position, 0, len(resp.MarketPositions))
	for _, mp := range resp.MarketPositions {
		if mp.Ticker == "" || mp.Position == 0 {
			continue
		}
		pos := domain.Position{
			Ticker:         mp.Ticker,
			Side:           domain.SideYes,
			Quantity:       mp.Position,
			ExposureCents:  mp.MarketExposure,
			CostBasisCents: mp.TotalTraded,
		}
		if mp.Position < 0 {
			pos.Side = domain.SideNo
			pos.Quantity = -mp.Position
		}
		out = append(out, pos)
	}
	return out
}

// parseCloseTime parsea el close_time ISO de la API; zero si falta o es inválido.
func parseCloseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

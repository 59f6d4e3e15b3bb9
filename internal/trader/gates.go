package trader

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// gates.go — pipeline de admisión ordenado y con short-circuit.
//
// El primer gate que falla rechaza; el orden importa para la
// explicabilidad de los rechazos, no para la corrección. Cada rechazo
// lleva una distancia normalizada a pasar el gate (menor = más cerca)
// para que tunear umbrales no requiera re-derivar números de los logs.
//
// admit es determinista: mismas entradas, misma decisión. No hace I/O.

// ProbBand es la banda [Lo, Hi] de probabilidad de mercado aceptable.
type ProbBand struct {
	Lo float64
	Hi float64
}

// Outside indica si p cae fuera de la banda.
func (b ProbBand) Outside(p float64) bool {
	return p < b.Lo || p > b.Hi
}

// Distance devuelve cuánto le falta a p para entrar en la banda (0 si
// ya está dentro).
func (b ProbBand) Distance(p float64) float64 {
	switch {
	case p < b.Lo:
		return b.Lo - p
	case p > b.Hi:
		return p - b.Hi
	default:
		return 0
	}
}

// GateInput es todo lo que el pipeline necesita para decidir sobre un
// candidato. Se arma por tick y nunca se cachea.
type GateInput struct {
	Candidate domain.Candidate
	Quote     domain.QuoteSnapshot
	Signals   Signals
	Account   AccountState
	Now       time.Time
}

// admit evalúa los gates en orden y devuelve la primera decisión firme.
func (e *Engine) admit(in GateInput, st *TraderState) domain.Decision {
	c := in.Candidate
	q := in.Quote

	// 1. allow-list de prefijos de ticker
	if len(e.cfg.AllowPrefixes) > 0 && !hasAllowedPrefix(c.Ticker, e.cfg.AllowPrefixes) {
		return domain.Rejected(c.Ticker, domain.RejectAllowList, 1, "prefijo fuera de la allow-list")
	}

	// 2. cooldown por ticker (cualquiera de los dos lados cuenta)
	if e.cfg.Cooldown > 0 {
		if last, ok := st.LastTraded(c.Ticker); ok {
			elapsed := in.Now.Sub(last)
			if elapsed < e.cfg.Cooldown {
				remaining := (e.cfg.Cooldown - elapsed).Seconds()
				return domain.Rejected(c.Ticker, domain.RejectCooldown, remaining,
					fmt.Sprintf("faltan %.0fs de cooldown", remaining))
			}
		}
	}

	// 3. cap de posición por ticker
	if e.cfg.MaxPosPerTicker > 0 {
		cur := abs(in.Account.PosByTicker[c.Ticker])
		if cur >= e.cfg.MaxPosPerTicker {
			return domain.Rejected(c.Ticker, domain.RejectPositionCap, float64(cur-e.cfg.MaxPosPerTicker+1),
				fmt.Sprintf("posición %d >= cap %d", cur, e.cfg.MaxPosPerTicker))
		}
	}

	// 4. cap de exposición por subyacente correlacionado
	if strings.HasPrefix(c.Ticker, "KXETH") {
		if in.Account.ETHExposureCents >= e.cfg.MaxETHExposureCents {
			over := in.Account.ETHExposureCents - e.cfg.MaxETHExposureCents
			return domain.Rejected(c.Ticker, domain.RejectExposureCap, float64(over),
				fmt.Sprintf("exposición ETH %dc >= cap %dc", in.Account.ETHExposureCents, e.cfg.MaxETHExposureCents))
		}
	} else if strings.HasPrefix(c.Ticker, "KXBTC") {
		if in.Account.BTCExposureCents >= e.cfg.MaxBTCExposureCents {
			over := in.Account.BTCExposureCents - e.cfg.MaxBTCExposureCents
			return domain.Rejected(c.Ticker, domain.RejectExposureCap, float64(over),
				fmt.Sprintf("exposición BTC %dc >= cap %dc", in.Account.BTCExposureCents, e.cfg.MaxBTCExposureCents))
		}
	}

	// 5. sanidad del libro: ambos lados con al menos un nivel
	if !q.HasBothSides() {
		return domain.Rejected(c.Ticker, domain.RejectEmptyBook, 1, "libro sin niveles en algún lado")
	}

	// 6. disponibilidad de fair value: sin estimación no hay trade
	fairYes, rej, ok := e.fairYes(in)
	if !ok {
		return rej
	}

	// 7. banda de probabilidad de mercado / clasificación lottery
	band := e.cfg.BandRange
	if c.Kind == domain.KindDirectional15m {
		band = e.cfg.BandUp
	}
	pIfBuyYes := q.MarketImpliedYes(domain.SideYes)
	pIfBuyNo := q.MarketImpliedYes(domain.SideNo)
	lotYes := band.Outside(pIfBuyYes)
	lotNo := band.Outside(pIfBuyNo)
	if (lotYes || lotNo) && e.cfg.LotteryMaxCostCents <= 0 {
		// lottery deshabilitado: fuera de banda es rechazo duro
		p := pIfBuyYes
		if !lotYes {
			p = pIfBuyNo
		}
		return domain.Rejected(c.Ticker, domain.RejectProbBand, band.Distance(p),
			fmt.Sprintf("p_mkt %.3f fuera de banda [%.2f, %.2f]", p, band.Lo, band.Hi))
	}

	// 8. umbral de edge (y acuerdo de signo con el momentum en 15m)
	side, lottery, rej, ok := e.pickSide(c, fairYes, pIfBuyYes, pIfBuyNo, lotYes, lotNo, in.Signals)
	if !ok {
		return rej
	}

	// 9. liquidez de salida: best bid propio sobre el piso
	exitBid := q.BestBid(side)
	if e.cfg.MinExitBidCents > 0 && exitBid < e.cfg.MinExitBidCents {
		return domain.Rejected(c.Ticker, domain.RejectExitBid, float64(e.cfg.MinExitBidCents-exitBid),
			fmt.Sprintf("exit bid %dc < mínimo %dc", exitBid, e.cfg.MinExitBidCents))
	}

	// 10. spread máximo
	if spr := q.Spread(side); e.cfg.MaxSpreadCents > 0 && spr > e.cfg.MaxSpreadCents {
		return domain.Rejected(c.Ticker, domain.RejectSpread, float64(spr-e.cfg.MaxSpreadCents),
			fmt.Sprintf("spread %dc > máximo %dc", spr, e.cfg.MaxSpreadCents))
	}

	// 11. techo de precio de entrada
	price := q.ImpliedAsk(side)
	if price > e.cfg.MaxEntryPriceCents {
		return domain.Rejected(c.Ticker, domain.RejectEntryPrice, float64(price-e.cfg.MaxEntryPriceCents),
			fmt.Sprintf("entrada %dc > techo %dc", price, e.cfg.MaxEntryPriceCents))
	}

	// 12. piso de minutos al cierre
	if mins := c.MinutesToClose(in.Now); mins < e.cfg.MinMinutesToClose {
		return domain.Rejected(c.Ticker, domain.RejectTimeToClose, e.cfg.MinMinutesToClose-mins,
			fmt.Sprintf("%.1f min al cierre < mínimo %.1f", mins, e.cfg.MinMinutesToClose))
	}

	// 13. mínimos de top-of-book y profundidad del lado que se cruza
	if topQty := q.TopQtyCrossed(side); topQty < e.cfg.MinTopQty {
		return domain.Rejected(c.Ticker, domain.RejectTopQty, float64(e.cfg.MinTopQty-topQty),
			fmt.Sprintf("top qty %d < mínimo %d", topQty, e.cfg.MinTopQty))
	}
	if e.cfg.MinDepthWithinQty > 0 {
		depth := q.DepthWithinCrossed(side, e.cfg.DepthWithinCents)
		if depth < e.cfg.MinDepthWithinQty {
			return domain.Rejected(c.Ticker, domain.RejectDepth, float64(e.cfg.MinDepthWithinQty-depth),
				fmt.Sprintf("profundidad %d < mínimo %d dentro de %dc", depth, e.cfg.MinDepthWithinQty, e.cfg.DepthWithinCents))
		}
	}

	return domain.Admit(side, clampPrice(price), lottery)
}

// fairYes estima la probabilidad justa P(YES) según la forma del mercado.
// Las ausencias (sin spot, sin momentum, subtítulo imparseable, forma
// desconocida) son rechazos del candidato, nunca errores ni defaults.
func (e *Engine) fairYes(in GateInput) (float64, domain.Decision, bool) {
	c := in.Candidate
	sig := in.Signals

	if !sig.HasSpot {
		return 0, domain.Rejected(c.Ticker, domain.RejectNoSpot, 1, "sin precio spot de referencia"), false
	}

	switch c.Kind {
	case domain.KindDirectional15m:
		if !sig.HasFairDir {
			return 0, domain.Rejected(c.Ticker, domain.RejectNoFairProb, 1, "modelo direccional sin estimación"), false
		}
		return sig.FairDirYes, domain.Decision{}, true

	case domain.KindRangeBucket:
		bounds, ok := domain.ParseRangeSubtitle(c.Subtitle)
		if !ok {
			return 0, domain.Rejected(c.Ticker, domain.RejectBadSubtitle, 1,
				fmt.Sprintf("subtítulo imparseable %q", c.Subtitle)), false
		}

		// filtro near-the-money: solo buckets cerca del spot
		if e.cfg.RangeNearPct > 0 {
			anchor := bounds.Anchor()
			rel := math.Abs(anchor-sig.SpotPrice) / math.Max(1.0, sig.SpotPrice)
			if rel > e.cfg.RangeNearPct {
				return 0, domain.Rejected(c.Ticker, domain.RejectNotNearMoney, rel-e.cfg.RangeNearPct,
					fmt.Sprintf("bucket a %.2f%% del spot (límite %.2f%%)", rel*100, e.cfg.RangeNearPct*100)), false
			}
		}

		horizon := time.Hour
		if !c.CloseTime.IsZero() {
			horizon = c.CloseTime.Sub(in.Now)
			if horizon < time.Second {
				horizon = time.Second
			}
		}

		p, ok := e.cfg.Fair.EstimateRangeYes(sig.Series, bounds, horizon)
		if !ok {
			return 0, domain.Rejected(c.Ticker, domain.RejectNoFairProb, 1, "modelo de rango sin estimación"), false
		}
		return p, domain.Decision{}, true

	default:
		return 0, domain.Rejected(c.Ticker, domain.RejectUnsupported, 1,
			fmt.Sprintf("forma de mercado no modelada: %s", c.Title)), false
	}
}

// pickSide elige el lado a comprar según el edge firmado contra la
// probabilidad implícita del mercado. En mercados 15m el lado debe
// además acordar en signo con el momentum del spot.
func (e *Engine) pickSide(c domain.Candidate, fairYes, pIfBuyYes, pIfBuyNo float64, lotYes, lotNo bool, sig Signals) (domain.Side, bool, domain.Decision, bool) {
	edgeYes := domain.EdgeBps(fairYes, pIfBuyYes, domain.SideYes)
	edgeNo := domain.EdgeBps(fairYes, pIfBuyNo, domain.SideNo)

	if c.Kind == domain.KindDirectional15m {
		if !sig.HasRet {
			return "", false, domain.Rejected(c.Ticker, domain.RejectNoMomentum, e.cfg.MomentumThresholdBps,
				"sin retorno de lookback"), false
		}
		if math.Abs(sig.RetBps) < e.cfg.MomentumThresholdBps {
			short := e.cfg.MomentumThresholdBps - math.Abs(sig.RetBps)
			return "", false, domain.Rejected(c.Ticker, domain.RejectWeakMomentum, short,
				fmt.Sprintf("|momentum| %.1fbps < umbral %.1fbps", math.Abs(sig.RetBps), e.cfg.MomentumThresholdBps)), false
		}

		side, edge, lot := domain.SideYes, edgeYes, lotYes
		if sig.RetBps <= 0 {
			side, edge, lot = domain.SideNo, edgeNo, lotNo
		}
		if edge < e.cfg.MinEdgeBps {
			return "", false, domain.Rejected(c.Ticker, domain.RejectEdge, e.cfg.MinEdgeBps-edge,
				fmt.Sprintf("edge %s %.1fbps < mínimo %.1fbps", side, edge, e.cfg.MinEdgeBps)), false
		}
		return side, lot, domain.Decision{}, true
	}

	// rango: cualquiera de los dos lados con edge suficiente (YES primero)
	switch {
	case edgeYes >= e.cfg.MinEdgeBps:
		return domain.SideYes, lotYes, domain.Decision{}, true
	case edgeNo >= e.cfg.MinEdgeBps:
		return domain.SideNo, lotNo, domain.Decision{}, true
	default:
		best := math.Max(edgeYes, edgeNo)
		return "", false, domain.Rejected(c.Ticker, domain.RejectEdge, e.cfg.MinEdgeBps-best,
			fmt.Sprintf("mejor edge %.1fbps < mínimo %.1fbps", best, e.cfg.MinEdgeBps)), false
	}
}

func hasAllowedPrefix(ticker string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(ticker, p) {
			return true
		}
	}
	return false
}

func clampPrice(p int) int {
	return max(1, min(99, p))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

package domain

import "sort"

// RejectReason es el código máquina-legible de cada gate fallido.
type RejectReason string

const (
	RejectAllowList    RejectReason = "allow_list"
	RejectCooldown     RejectReason = "cooldown"
	RejectPositionCap  RejectReason = "position_cap"
	RejectExposureCap  RejectReason = "exposure_cap"
	RejectEmptyBook    RejectReason = "empty_book"
	RejectNoSpot       RejectReason = "no_spot"
	RejectNoFairProb   RejectReason = "no_fair_prob"
	RejectBadSubtitle  RejectReason = "bad_subtitle"
	RejectNotNearMoney RejectReason = "not_near_money"
	RejectUnsupported  RejectReason = "unsupported_market"
	RejectProbBand     RejectReason = "prob_band"
	RejectNoMomentum   RejectReason = "no_momentum"
	RejectWeakMomentum RejectReason = "momentum_too_small"
	RejectEdge         RejectReason = "edge"
	RejectExitBid      RejectReason = "exit_bid"
	RejectSpread       RejectReason = "spread"
	RejectEntryPrice   RejectReason = "entry_price"
	RejectTimeToClose  RejectReason = "time_to_close"
	RejectTopQty       RejectReason = "top_qty"
	RejectDepth        RejectReason = "depth"
)

// Decision es el resultado de evaluar un candidato contra el pipeline de
// gates: o bien una admisión con lado y precio, o un rechazo con razón y
// distancia numérica a pasar el gate.
type Decision struct {
	Admitted bool
	Side     Side
	// PriceCents es el ask implícito al que se cruzaría el libro.
	PriceCents int
	// Lottery marca admisiones fuera de la banda de probabilidad
	// (tamaño reducido).
	Lottery bool

	Reject Reject
}

// Reject describe por qué un candidato no pasó, con la distancia
// normalizada a pasar (menor = más cerca) para que un operador pueda
// tunear umbrales sin re-derivarlos de logs crudos.
type Reject struct {
	Ticker   string
	Reason   RejectReason
	Distance float64
	Detail   string
}

// Admit construye una decisión de admisión.
func Admit(side Side, priceCents int, lottery bool) Decision {
	return Decision{Admitted: true, Side: side, PriceCents: priceCents, Lottery: lottery}
}

// Rejected construye una decisión de rechazo.
func Rejected(ticker string, reason RejectReason, distance float64, detail string) Decision {
	return Decision{Reject: Reject{Ticker: ticker, Reason: reason, Distance: distance, Detail: detail}}
}

// RejectLog acumula rechazos de un tick con cota de tamaño. En heartbeat
// solo se loguean los top-K más cercanos a pasar — diagnóstico sin ruido.
type RejectLog struct {
	max     int
	rejects []Reject
	perTick map[RejectReason]int
}

// NewRejectLog crea un log acotado a max entradas (30 si max <= 0).
func NewRejectLog(max int) *RejectLog {
	if max <= 0 {
		max = 30
	}
	return &RejectLog{max: max, perTick: make(map[RejectReason]int)}
}

// Add registra un rechazo. Descarta silenciosamente al superar la cota,
// pero siempre cuenta por razón.
func (l *RejectLog) Add(r Reject) {
	l.perTick[r.Reason]++
	if len(l.rejects) >= l.max {
		return
	}
	l.rejects = append(l.rejects, r)
}

// Counts devuelve el conteo de rechazos por razón en este tick.
func (l *RejectLog) Counts() map[RejectReason]int {
	return l.perTick
}

// Closest devuelve los n rechazos con menor distancia a pasar.
func (l *RejectLog) Closest(n int) []Reject {
	out := make([]Reject, len(l.rejects))
	copy(out, l.rejects)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Distance < out[j].Distance
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

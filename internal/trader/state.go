package trader

import (
	"time"

	"github.com/alejandrodnm/kalshibot/internal/domain"
	"github.com/alejandrodnm/kalshibot/internal/ports"
)

// cooldownKey identifica un (ticker, side) tradeado recientemente.
type cooldownKey struct {
	ticker string
	side   domain.Side
}

// TraderState es el estado mutable explícito del loop: contadores con
// scope de día, cooldowns por ticker+side y totales de la corrida. Nada
// de esto vive en variables sueltas del loop; todo pasa por acá.
type TraderState struct {
	// Day es la fecha local (YYYY-MM-DD) del día contable en curso.
	Day string
	// DayStartBalanceCents se fija en la primera lectura de balance
	// exitosa del día y se persiste de inmediato. nil = todavía no hubo.
	DayStartBalanceCents *int64
	// NetSpentTodayCents = max(0, dayStart − balance actual).
	NetSpentTodayCents int64

	Fills int
	Loops int

	lastTrade map[cooldownKey]time.Time
}

// NewTraderState crea el estado para el día local de now.
func NewTraderState(now time.Time) *TraderState {
	return &TraderState{
		Day:       dayKey(now),
		lastTrade: make(map[cooldownKey]time.Time),
	}
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// RollDay resetea la contabilidad diaria si cambió el día calendario.
// Devuelve true cuando hubo rollover.
func (s *TraderState) RollDay(now time.Time) bool {
	today := dayKey(now)
	if s.Day == today {
		return false
	}
	s.Day = today
	s.DayStartBalanceCents = nil
	s.NetSpentTodayCents = 0
	return true
}

// ObserveBalance registra una lectura de balance: fija el day-start en la
// primera lectura del día y recomputa el gasto neto. Devuelve true si el
// day-start acaba de fijarse (el caller debe persistirlo).
func (s *TraderState) ObserveBalance(balanceCents int64) bool {
	if balanceCents <= 0 {
		return false
	}
	fresh := false
	if s.DayStartBalanceCents == nil {
		v := balanceCents
		s.DayStartBalanceCents = &v
		fresh = true
	}
	s.NetSpentTodayCents = max(0, *s.DayStartBalanceCents-balanceCents)
	return fresh
}

// MarkTraded registra un fill en (ticker, side) para el cooldown.
func (s *TraderState) MarkTraded(ticker string, side domain.Side, at time.Time) {
	s.lastTrade[cooldownKey{ticker: ticker, side: side}] = at
}

// LastTraded devuelve el último fill del ticker en cualquiera de los dos
// lados; ok=false si nunca tradeó.
func (s *TraderState) LastTraded(ticker string) (time.Time, bool) {
	var last time.Time
	found := false
	for _, side := range []domain.Side{domain.SideYes, domain.SideNo} {
		if ts, ok := s.lastTrade[cooldownKey{ticker: ticker, side: side}]; ok {
			if !found || ts.After(last) {
				last = ts
			}
			found = true
		}
	}
	return last, found
}

// DayState serializa los campos persistidos del estado de riesgo.
func (s *TraderState) DayState() ports.DayState {
	st := ports.DayState{Day: s.Day}
	if s.DayStartBalanceCents != nil {
		v := *s.DayStartBalanceCents
		st.DayStartBalanceCents = &v
	}
	return st
}

// Restore recupera el day-start persistido si corresponde al mismo día.
// Un estado de otro día se ignora: el presupuesto diario nunca se hereda.
func (s *TraderState) Restore(st ports.DayState) {
	if st.Day != s.Day || st.DayStartBalanceCents == nil {
		return
	}
	v := *st.DayStartBalanceCents
	s.DayStartBalanceCents = &v
}

// AccountState es el snapshot por tick de posiciones y exposición, leído
// fresco del exchange. Nunca se cachea entre ticks.
type AccountState struct {
	BalanceCents     int64
	PosByTicker      map[string]int
	BTCExposureCents int64
	ETHExposureCents int64
}

// Signals agrupa las señales derivadas del feed spot en este tick. Todo
// campo Has* en false significa ausencia de señal, nunca un default.
type Signals struct {
	Series *domain.PriceSeries

	SpotPrice float64
	HasSpot   bool

	RetBps float64
	HasRet bool

	VolBps float64
	HasVol bool

	// FairDirYes es la P(YES) del modelo direccional 15m, si hay momentum.
	FairDirYes float64
	HasFairDir bool
}

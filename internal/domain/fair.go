package domain

// fair.go — modelo de probabilidad justa por tipo de mercado.
//
// Dos variantes:
//   - Direccional 15m: 0.5 desplazado por el momentum reciente (bps),
//     amortiguado por la volatilidad realizada y con shift máximo acotado.
//   - Range bucket: proyección lognormal del spot al cierre del mercado;
//     la probabilidad justa es la masa dentro del bucket.
//
// Ninguna estimación se persiste; se recalcula cada tick.

import (
	"math"
	"time"
)

// Clamps de probabilidad para evitar certeza degenerada.
const (
	dirProbFloor   = 0.02
	dirProbCeil    = 0.98
	rangeProbFloor = 0.001
	rangeProbCeil  = 0.999
)

// FairModel contiene los parámetros tunables del modelo de fair value.
type FairModel struct {
	// SensitivityK mapea bps de momentum a shift de probabilidad.
	SensitivityK float64
	// MomentumLookback es la ventana del retorno de momentum.
	MomentumLookback time.Duration
	// VolWindow es la ventana de volatilidad realizada.
	VolWindow time.Duration
	// VolDampBps controla el amortiguamiento: damp = 1/(1+vol/VolDampBps).
	VolDampBps float64
	// MaxShiftProb acota |p − 0.5| para el modelo direccional.
	MaxShiftProb float64
	// DefaultVolBps se usa en el modelo de rango cuando la ventana de
	// volatilidad todavía no tiene suficientes muestras.
	DefaultVolBps float64
}

// EstimateDirectionalYes estima P(YES) para mercados "sube en 15 minutos".
// Devuelve ok=false cuando la serie no tiene señal de momentum: la ausencia
// de señal es un rechazo, nunca un default.
func (m FairModel) EstimateDirectionalYes(s *PriceSeries) (float64, bool) {
	retBps, ok := s.LookbackReturnBps(m.MomentumLookback)
	if !ok {
		return 0, false
	}

	damp := 1.0
	if volBps, okVol := s.RealizedVolBps(m.VolWindow); okVol && m.VolDampBps > 0 {
		// más volatilidad → menos confianza en el momentum
		damp = 1.0 / (1.0 + volBps/m.VolDampBps)
	}

	shift := m.SensitivityK * damp * (retBps / 10000.0)
	if maxShift := math.Abs(m.MaxShiftProb); maxShift > 0 {
		shift = math.Max(-maxShift, math.Min(maxShift, shift))
	}

	p := 0.5 + shift
	return math.Max(dirProbFloor, math.Min(dirProbCeil, p)), true
}

// EstimateRangeYes estima P(YES) de que el spot caiga dentro del bucket al
// cierre, con una difusión lognormal: drift desde el retorno reciente
// anualizado al horizonte y sigma desde la vol realizada escalada por
// sqrt(horizonte / minuto).
func (m FairModel) EstimateRangeYes(s *PriceSeries, bounds RangeBounds, horizon time.Duration) (float64, bool) {
	last, ok := s.Last()
	if !ok {
		return 0, false
	}
	if bounds.Lo == nil && bounds.Hi == nil {
		return 0, false
	}

	horizonS := math.Max(1.0, horizon.Seconds())

	mu := 0.0
	if retBps, okRet := s.LookbackReturnBps(m.MomentumLookback); okRet && m.MomentumLookback > 0 {
		mu = (retBps / 10000.0) * (horizonS / m.MomentumLookback.Seconds())
	}

	volBps := m.DefaultVolBps
	if v, okVol := s.RealizedVolBps(m.VolWindow); okVol {
		volBps = v
	}
	// vol tratada como por-minuto, escalada al horizonte
	sigma := math.Abs(volBps/10000.0) * math.Sqrt(horizonS/60.0)
	sigma = math.Max(1e-6, sigma)

	mlog := math.Log(last.Price) + mu
	cdf := func(x float64) float64 {
		return normCDF((math.Log(x) - mlog) / sigma)
	}

	var p float64
	switch {
	case bounds.Lo == nil:
		p = cdf(*bounds.Hi)
	case bounds.Hi == nil:
		p = 1.0 - cdf(*bounds.Lo)
	default:
		p = math.Max(0, math.Min(1, cdf(*bounds.Hi)-cdf(*bounds.Lo)))
	}

	return math.Max(rangeProbFloor, math.Min(rangeProbCeil, p)), true
}

// EdgeBps devuelve el edge en basis points de comprar un lado: positivo
// cuando la probabilidad justa favorece al lado evaluado.
func EdgeBps(fairYes, marketImpliedYes float64, side Side) float64 {
	if side == SideYes {
		return (fairYes - marketImpliedYes) * 10000.0
	}
	return (marketImpliedYes - fairYes) * 10000.0
}

// normCDF es la CDF de la normal estándar vía erf.
func normCDF(x float64) float64 {
	return 0.5 * (1.0 + math.Erf(x/math.Sqrt2))
}

package domain

import (
	"math"
	"time"
)

const defaultSeriesCapacity = 5000

// PriceSample es una observación (timestamp, precio) del feed de referencia.
type PriceSample struct {
	At    time.Time
	Price float64
}

// PriceSeries es la serie acotada de precios spot de un subyacente,
// ordenada por tiempo. Al llegar al límite de capacidad se descarta
// la muestra más vieja primero.
type PriceSeries struct {
	samples []PriceSample
	cap     int
}

// NewPriceSeries crea una serie con la capacidad dada (o la default si cap <= 0).
func NewPriceSeries(capacity int) *PriceSeries {
	if capacity <= 0 {
		capacity = defaultSeriesCapacity
	}
	return &PriceSeries{cap: capacity}
}

// Append agrega una muestra al final de la serie.
// Muestras con precio no positivo se ignoran.
func (s *PriceSeries) Append(at time.Time, price float64) {
	if price <= 0 {
		return
	}
	s.samples = append(s.samples, PriceSample{At: at, Price: price})
	if len(s.samples) > s.cap {
		s.samples = s.samples[len(s.samples)-s.cap:]
	}
}

// Len devuelve la cantidad de muestras almacenadas.
func (s *PriceSeries) Len() int {
	return len(s.samples)
}

// Last devuelve la última muestra y ok=false si la serie está vacía.
func (s *PriceSeries) Last() (PriceSample, bool) {
	if len(s.samples) == 0 {
		return PriceSample{}, false
	}
	return s.samples[len(s.samples)-1], true
}

// LookbackReturnBps devuelve el retorno en basis points entre el último
// precio y el primero con edad >= lookback. Devuelve ok=false cuando la
// serie no tiene una muestra lo suficientemente vieja — sin señal de
// momentum no hay trade.
func (s *PriceSeries) LookbackReturnBps(lookback time.Duration) (float64, bool) {
	last, ok := s.Last()
	if !ok {
		return 0, false
	}
	cut := last.At.Add(-lookback)

	// recorrer de atrás hacia adelante buscando la primera muestra <= cut
	for i := len(s.samples) - 1; i >= 0; i-- {
		p := s.samples[i]
		if p.At.After(cut) {
			continue
		}
		if p.Price <= 0 {
			return 0, false
		}
		return ((last.Price / p.Price) - 1.0) * 10000.0, true
	}
	return 0, false
}

// RealizedVolBps devuelve la desviación estándar muestral de los retornos
// consecutivos en bps dentro de la ventana dada. Necesita al menos 5
// muestras en ventana (4 retornos); si no, ok=false.
func (s *PriceSeries) RealizedVolBps(window time.Duration) (float64, bool) {
	last, ok := s.Last()
	if !ok {
		return 0, false
	}
	cut := last.At.Add(-window)

	var xs []float64
	for _, p := range s.samples {
		if p.At.Before(cut) {
			continue
		}
		xs = append(xs, p.Price)
	}
	if len(xs) < 5 {
		return 0, false
	}

	rets := make([]float64, 0, len(xs)-1)
	for i := 1; i < len(xs); i++ {
		if xs[i-1] <= 0 {
			continue
		}
		rets = append(rets, ((xs[i]/xs[i-1])-1.0)*10000.0)
	}
	if len(rets) < 4 {
		return 0, false
	}

	mean := 0.0
	for _, r := range rets {
		mean += r
	}
	mean /= float64(len(rets))

	variance := 0.0
	for _, r := range rets {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(rets) - 1)

	return math.Sqrt(math.Max(0, variance)), true
}

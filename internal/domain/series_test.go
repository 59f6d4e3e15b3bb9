package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

// flatSeries arma una serie con n muestras al mismo precio, una por
// segundo terminando en t0.
func flatSeries(n int, price float64) *PriceSeries {
	s := NewPriceSeries(0)
	for i := n - 1; i >= 0; i-- {
		s.Append(t0.Add(-time.Duration(i)*time.Second), price)
	}
	return s
}

func TestPriceSeries_Append_IgnoresBadPrices(t *testing.T) {
	s := NewPriceSeries(0)
	s.Append(t0, 0)
	s.Append(t0, -5)
	assert.Equal(t, 0, s.Len())
}

func TestPriceSeries_Append_BoundedCapacity(t *testing.T) {
	s := NewPriceSeries(3)
	for i := 0; i < 10; i++ {
		s.Append(t0.Add(time.Duration(i)*time.Second), 100+float64(i))
	}
	assert.Equal(t, 3, s.Len())

	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, 109.0, last.Price)
}

func TestPriceSeries_LookbackReturnBps(t *testing.T) {
	s := NewPriceSeries(0)
	s.Append(t0.Add(-180*time.Second), 100000)
	s.Append(t0.Add(-60*time.Second), 100200)
	s.Append(t0, 100500)

	// contra la muestra con edad >= 120s: 100000 → 100500 = +50bps
	ret, ok := s.LookbackReturnBps(120 * time.Second)
	require.True(t, ok)
	assert.InDelta(t, 50.0, ret, 0.01)
}

func TestPriceSeries_LookbackReturnBps_NoOldEnoughSample(t *testing.T) {
	s := NewPriceSeries(0)
	s.Append(t0.Add(-30*time.Second), 100000)
	s.Append(t0, 100100)

	_, ok := s.LookbackReturnBps(120 * time.Second)
	assert.False(t, ok, "sin muestra vieja no hay señal de momentum")

	_, ok = NewPriceSeries(0).LookbackReturnBps(120 * time.Second)
	assert.False(t, ok)
}

func TestPriceSeries_RealizedVolBps(t *testing.T) {
	// precios constantes: retornos cero, vol cero
	s := flatSeries(10, 100000)
	vol, ok := s.RealizedVolBps(time.Minute)
	require.True(t, ok)
	assert.InDelta(t, 0.0, vol, 1e-9)

	// precios que se mueven: vol positiva
	s2 := NewPriceSeries(0)
	prices := []float64{100000, 100100, 100000, 100200, 100100, 100300}
	for i, p := range prices {
		s2.Append(t0.Add(time.Duration(i-len(prices)+1)*time.Second), p)
	}
	vol2, ok := s2.RealizedVolBps(time.Minute)
	require.True(t, ok)
	assert.Greater(t, vol2, 0.0)
}

func TestPriceSeries_RealizedVolBps_NeedsEnoughSamples(t *testing.T) {
	s := flatSeries(4, 100000)
	_, ok := s.RealizedVolBps(time.Minute)
	assert.False(t, ok, "menos de 5 muestras en ventana no alcanza")
}

package trader

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/kalshibot/internal/domain"
	"github.com/alejandrodnm/kalshibot/internal/ports"
)

func TestTraderState_RollDay(t *testing.T) {
	st := NewTraderState(now)
	st.ObserveBalance(1000)
	st.ObserveBalance(700)
	require.Equal(t, int64(300), st.NetSpentTodayCents)

	// mismo día: no pasa nada
	assert.False(t, st.RollDay(now.Add(2*time.Hour)))
	assert.Equal(t, int64(300), st.NetSpentTodayCents)

	// medianoche: se resetea la contabilidad diaria, no los contadores
	// de la corrida
	st.Fills = 3
	tomorrow := now.Add(24 * time.Hour)
	assert.True(t, st.RollDay(tomorrow))
	assert.Equal(t, dayKey(tomorrow), st.Day)
	assert.Nil(t, st.DayStartBalanceCents)
	assert.Equal(t, int64(0), st.NetSpentTodayCents)
	assert.Equal(t, 3, st.Fills)
}

func TestTraderState_ObserveBalance(t *testing.T) {
	st := NewTraderState(now)

	// lecturas no positivas se ignoran y no fijan day-start
	assert.False(t, st.ObserveBalance(0))
	assert.False(t, st.ObserveBalance(-5))
	assert.Nil(t, st.DayStartBalanceCents)

	// la primera lectura válida fija el day-start (hay que persistir)
	assert.True(t, st.ObserveBalance(1000))
	require.NotNil(t, st.DayStartBalanceCents)
	assert.Equal(t, int64(1000), *st.DayStartBalanceCents)

	// las siguientes solo recomputan el gasto neto
	assert.False(t, st.ObserveBalance(600))
	assert.Equal(t, int64(1000), *st.DayStartBalanceCents)
	assert.Equal(t, int64(400), st.NetSpentTodayCents)

	// un depósito intradía no genera gasto negativo
	assert.False(t, st.ObserveBalance(1500))
	assert.Equal(t, int64(0), st.NetSpentTodayCents)
}

func TestTraderState_PersistRestore(t *testing.T) {
	st := NewTraderState(now)
	st.ObserveBalance(1000)

	snap := st.DayState()
	assert.Equal(t, st.Day, snap.Day)
	require.NotNil(t, snap.DayStartBalanceCents)
	assert.Equal(t, int64(1000), *snap.DayStartBalanceCents)

	// el snapshot es una copia, no un alias
	*snap.DayStartBalanceCents = 42
	assert.Equal(t, int64(1000), *st.DayStartBalanceCents)

	// restaurar en el mismo día recupera el day-start tras un restart
	fresh := NewTraderState(now)
	fresh.Restore(st.DayState())
	require.NotNil(t, fresh.DayStartBalanceCents)
	assert.Equal(t, int64(1000), *fresh.DayStartBalanceCents)
	fresh.ObserveBalance(600)
	assert.Equal(t, int64(400), fresh.NetSpentTodayCents)

	// estado de otro día se ignora: el presupuesto no se hereda
	stale := ports.DayState{Day: "2026-08-31", DayStartBalanceCents: snap.DayStartBalanceCents}
	other := NewTraderState(now)
	other.Restore(stale)
	assert.Nil(t, other.DayStartBalanceCents)
}

func TestTraderState_Cooldown(t *testing.T) {
	st := NewTraderState(now)

	_, ok := st.LastTraded("KXBTC15M-X")
	assert.False(t, ok)

	st.MarkTraded("KXBTC15M-X", domain.SideYes, now.Add(-time.Minute))
	st.MarkTraded("KXBTC15M-X", domain.SideNo, now.Add(-10*time.Second))

	// gana el fill más reciente entre ambos lados
	last, ok := st.LastTraded("KXBTC15M-X")
	require.True(t, ok)
	assert.Equal(t, now.Add(-10*time.Second), last)

	// otros tickers no se ven afectados
	_, ok = st.LastTraded("KXBTC15M-Y")
	assert.False(t, ok)
}

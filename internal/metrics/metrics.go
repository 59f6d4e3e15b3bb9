// Package metrics expone los contadores Prometheus del trader en
// /metrics (formato de exposición de texto):
//
//   - trader_ticks_total                    – ticks completados
//   - trader_orders_total{side,action}      – órdenes enviadas al exchange
//   - trader_fills_total{side,action}       – órdenes con fill > 0
//   - trader_rejects_total{reason}          – candidatos rechazados por gate
//   - trader_exits_total{reason}            – salidas por motivo
//   - trader_net_spent_cents                – gasto neto del día (gauge)
//   - trader_balance_cents                  – último balance leído (gauge)
//   - trader_open_positions                 – posiciones abiertas (gauge)
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Ticks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trader_ticks_total",
			Help: "Ticks del loop principal completados",
		},
	)

	Orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_orders_total",
			Help: "Órdenes enviadas al exchange",
		},
		[]string{"side", "action"},
	)

	Fills = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_fills_total",
			Help: "Órdenes con al menos un contrato ejecutado",
		},
		[]string{"side", "action"},
	)

	Rejects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_rejects_total",
			Help: "Candidatos rechazados por la pipeline de admisión",
		},
		[]string{"reason"},
	)

	Exits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_exits_total",
			Help: "Salidas de posición por motivo",
		},
		[]string{"reason"},
	)

	NetSpent = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trader_net_spent_cents",
			Help: "Gasto neto del día en cents (dayStart - balance, min 0)",
		},
	)

	Balance = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trader_balance_cents",
			Help: "Último balance leído del exchange en cents",
		},
	)

	OpenPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trader_open_positions",
			Help: "Posiciones abiertas según el último snapshot",
		},
	)
)

func init() {
	prometheus.MustRegister(Ticks, Orders, Fills)
	prometheus.MustRegister(Rejects, Exits)
	prometheus.MustRegister(NetSpent, Balance, OpenPositions)
}

// Handler devuelve el handler HTTP para montar en /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

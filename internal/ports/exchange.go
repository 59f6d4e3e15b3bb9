package ports

import (
	"context"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// OrderRequest es una orden de ejecución inmediata contra el exchange.
// Solo se cruzan libros: time-in-force FOK o IOC, nunca órdenes resting.
type OrderRequest struct {
	Ticker string
	Side   domain.Side
	Action domain.Action
	// PriceCents es el precio límite del lado correspondiente.
	PriceCents int
	Count      int
	// BuyMaxCostCents acota el notional worst-case en buys (0 = sin cota).
	BuyMaxCostCents int64
	TimeInForce     TimeInForce
	ClientOrderID   string
}

// TimeInForce son los únicos modos de ejecución soportados.
type TimeInForce string

const (
	FillOrKill        TimeInForce = "fill_or_kill"
	ImmediateOrCancel TimeInForce = "immediate_or_cancel"
)

// OrderResult es la respuesta del exchange a una orden.
// Un fill de cero contratos no es un error.
type OrderResult struct {
	OrderID   string
	FillCount int
	// Costos reportados por el exchange, en cents.
	TakerFillCostCents int64
	MakerFillCostCents int64
	TakerFeesCents     int64
	MakerFeesCents     int64
	// HasCosts indica si el exchange devolvió los campos de costo a nivel
	// fill; si no, el caller usa el max-spend solicitado como fallback.
	HasCosts bool
}

// ExchangeError distingue rechazos a nivel exchange (auth, trading
// deshabilitado, bad request) de fallas transitorias de I/O: los primeros
// no se curan reintentando.
type ExchangeError struct {
	StatusCode int
	Message    string
}

func (e *ExchangeError) Error() string {
	return e.Message
}

// Fatal indica si el error debe detener el loop en vez de reintentarse.
func (e *ExchangeError) Fatal() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// Exchange es el cliente firmado del exchange (detalle de transporte
// fuera de alcance). Todas las llamadas son síncronas y bloquean el tick.
type Exchange interface {
	// GetBalanceCents devuelve el balance disponible, normalizado a cents.
	// El contrato de unidades está fijado a cents: nunca se infiere.
	GetBalanceCents(ctx context.Context) (int64, error)

	// GetPositions devuelve el snapshot de posiciones abiertas por ticker.
	GetPositions(ctx context.Context) ([]domain.Position, error)

	// GetQuote devuelve el snapshot del orderbook a la profundidad dada.
	GetQuote(ctx context.Context, ticker string, depth int) (domain.QuoteSnapshot, error)

	// SubmitOrder envía una orden límite de ejecución inmediata.
	SubmitOrder(ctx context.Context, req OrderRequest) (OrderResult, error)

	// TradingActive indica si el exchange acepta órdenes. false es una
	// condición de stop, no de retry.
	TradingActive(ctx context.Context) (bool, error)
}

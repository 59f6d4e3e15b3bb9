package ports

import "context"

// PriceFeed obtiene el precio spot de referencia del subyacente.
type PriceFeed interface {
	// Spot devuelve el último precio en dólares.
	Spot(ctx context.Context) (float64, error)
}

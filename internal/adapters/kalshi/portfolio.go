package kalshi

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// GetBalanceCents devuelve el balance disponible del portfolio.
//
// El contrato de unidades está FIJADO a cents enteros: la heurística de la
// versión anterior ("valores chicos son dólares") era ambigua y peligrosa,
// así que un balance negativo acá es violación de invariante, no un dato.
func (c *Client) GetBalanceCents(ctx context.Context) (int64, error) {
	var resp balanceResponse
	if err := c.get(ctx, "/portfolio/balance", nil, &resp); err != nil {
		return 0, fmt.Errorf("kalshi.GetBalanceCents: %w", err)
	}
	if resp.BalanceCents < 0 {
		return 0, fmt.Errorf("kalshi.GetBalanceCents: negative balance %d", resp.BalanceCents)
	}
	return resp.BalanceCents, nil
}

// GetPositions devuelve el snapshot de posiciones abiertas por ticker.
// Se lee fresco cada tick; el trader nunca lo cachea.
func (c *Client) GetPositions(ctx context.Context) ([]domain.Position, error) {
	var resp positionsResponse
	if err := c.get(ctx, "/portfolio/positions", nil, &resp); err != nil {
		return nil, fmt.Errorf("kalshi.GetPositions: %w", err)
	}
	return mapPositions(resp), nil
}

package kalshi

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/kalshibot/internal/domain"
	"github.com/alejandrodnm/kalshibot/internal/ports"
	"github.com/google/uuid"
)

// SubmitOrder envía una orden límite de ejecución inmediata (FOK/IOC).
// Un fill de cero contratos no es un error: el caller decide avanzar al
// siguiente tick.
func (c *Client) SubmitOrder(ctx context.Context, req ports.OrderRequest) (ports.OrderResult, error) {
	if req.TimeInForce != ports.FillOrKill && req.TimeInForce != ports.ImmediateOrCancel {
		return ports.OrderResult{}, fmt.Errorf("kalshi.SubmitOrder: unsupported time_in_force %q", req.TimeInForce)
	}
	if req.PriceCents < 1 || req.PriceCents > 99 {
		return ports.OrderResult{}, fmt.Errorf("kalshi.SubmitOrder: price %dc outside [1,99]", req.PriceCents)
	}

	clientID := req.ClientOrderID
	if clientID == "" {
		clientID = uuid.NewString()
	}

	body := createOrderRequest{
		Ticker:        req.Ticker,
		Side:          string(req.Side),
		Action:        string(req.Action),
		Type:          "limit",
		Count:         req.Count,
		TimeInForce:   string(req.TimeInForce),
		ClientOrderID: clientID,
	}
	// el campo de precio depende del lado
	if req.Side == domain.SideYes {
		body.YesPrice = req.PriceCents
	} else {
		body.NoPrice = req.PriceCents
	}
	if req.Action == domain.ActionBuy && req.BuyMaxCostCents > 0 {
		body.BuyMaxCost = req.BuyMaxCostCents
	}

	var resp createOrderResponse
	if err := c.post(ctx, "/portfolio/orders", body, &resp); err != nil {
		return ports.OrderResult{}, fmt.Errorf("kalshi.SubmitOrder %s: %w", req.Ticker, err)
	}

	o := resp.Order
	res := ports.OrderResult{
		OrderID:   o.OrderID,
		FillCount: o.FillCount,
	}
	if o.TakerFillCost != nil || o.MakerFillCost != nil {
		res.HasCosts = true
		if o.TakerFillCost != nil {
			res.TakerFillCostCents = *o.TakerFillCost
		}
		if o.MakerFillCost != nil {
			res.MakerFillCostCents = *o.MakerFillCost
		}
		if o.TakerFees != nil {
			res.TakerFeesCents = *o.TakerFees
		}
		if o.MakerFees != nil {
			res.MakerFeesCents = *o.MakerFees
		}
	}
	return res, nil
}

package kalshi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

const marketsPageSize = 1000

// Market es la vista cruda de un mercado para el scorer: metadata de
// microestructura que la API expone en /markets sin tocar el orderbook.
type Market struct {
	Ticker    string
	Title     string
	Subtitle  string
	Status    string
	CloseTime string
	Liquidity float64
	Volume24h float64
}

// GetOpenMarkets devuelve todos los mercados abiertos, paginando con
// cursor hasta agotar los resultados.
func (c *Client) GetOpenMarkets(ctx context.Context) ([]Market, error) {
	var all []Market
	cursor := ""

	for {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(marketsPageSize))
		q.Set("status", "open")
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		var resp marketsResponse
		if err := c.get(ctx, "/markets", q, &resp); err != nil {
			return nil, fmt.Errorf("kalshi.GetOpenMarkets: %w", err)
		}

		for _, m := range resp.Markets {
			all = append(all, Market{
				Ticker:    m.Ticker,
				Title:     m.Title,
				Subtitle:  m.Subtitle,
				Status:    m.Status,
				CloseTime: m.CloseTime,
				Liquidity: m.Liquidity,
				Volume24h: m.Volume24h,
			})
		}

		if resp.Cursor == "" {
			break
		}
		cursor = resp.Cursor
	}

	return all, nil
}

// GetQuote devuelve el snapshot del orderbook del ticker a la profundidad
// dada. Se pide fresco por candidato por tick; nunca se cachea.
func (c *Client) GetQuote(ctx context.Context, ticker string, depth int) (domain.QuoteSnapshot, error) {
	q := url.Values{}
	if depth > 0 {
		q.Set("depth", strconv.Itoa(depth))
	}

	var resp orderbookResponse
	if err := c.get(ctx, "/markets/"+ticker+"/orderbook", q, &resp); err != nil {
		return domain.QuoteSnapshot{}, fmt.Errorf("kalshi.GetQuote %s: %w", ticker, err)
	}
	return mapOrderbook(resp.Orderbook), nil
}

// TradingActive consulta el estado del exchange. false implica stop del
// loop, no retry.
func (c *Client) TradingActive(ctx context.Context) (bool, error) {
	var resp exchangeStatusResponse
	if err := c.get(ctx, "/exchange/status", nil, &resp); err != nil {
		return false, fmt.Errorf("kalshi.TradingActive: %w", err)
	}
	return resp.ExchangeActive && resp.TradingActive, nil
}

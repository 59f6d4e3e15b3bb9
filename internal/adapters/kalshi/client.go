package kalshi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/alejandrodnm/kalshibot/internal/ports"
	"golang.org/x/time/rate"
)

const (
	demoBase = "https://demo-api.kalshi.co/trade-api/v2"
	prodBase = "https://api.elections.kalshi.com/trade-api/v2"

	// Rate limit conservador para el tier básico (10 req/s documentado;
	// corremos al 60%).
	requestsPerSec = 6

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Client es el HTTP client firmado de Kalshi con rate limiting y retries.
type Client struct {
	http    *http.Client
	base    string
	auth    *Auth
	limiter *rate.Limiter
}

// NewClient crea un Client contra el base URL dado. Si base está vacío se
// usa el entorno demo. auth puede ser nil para endpoints públicos.
func NewClient(base string, auth *Auth) *Client {
	if base == "" {
		base = demoBase
	}
	return &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		base:    base,
		auth:    auth,
		limiter: rate.NewLimiter(requestsPerSec, 5),
	}
}

// BaseURL devuelve el base URL por entorno ("prod" o cualquier otro = demo).
func BaseURL(env string) string {
	if env == "prod" {
		return prodBase
	}
	return demoBase
}

// get hace un GET firmado con rate limiting y retries.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return c.doWithRetry(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if err := c.sign(req, http.MethodGet, path); err != nil {
			return nil, err
		}
		return c.http.Do(req)
	}, out)
}

// post hace un POST JSON firmado con rate limiting y retries.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	return c.doWithRetry(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if err := c.sign(req, http.MethodPost, path); err != nil {
			return nil, err
		}
		return c.http.Do(req)
	}, out)
}

// sign agrega los headers KALSHI-ACCESS-* cuando hay credenciales.
func (c *Client) sign(req *http.Request, method, path string) error {
	if c.auth == nil {
		return nil
	}
	return c.auth.Sign(req, method, path)
}

// doWithRetry ejecuta la request con backoff exponencial. Errores 4xx no
// se reintentan: auth y bad request no se curan solos.
func (c *Client) doWithRetry(ctx context.Context, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("rate limited by kalshi", "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return &ports.ExchangeError{
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("kalshi: client error %d: %s", resp.StatusCode, string(body)),
			}
		}

		defer resp.Body.Close()
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}

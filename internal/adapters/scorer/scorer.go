package scorer

// scorer.go — descubrimiento y ranking de mercados candidatos.
//
// Heurísticas de microestructura sobre los campos de /markets (sin tocar
// el orderbook — eso lo hace el pipeline de gates por candidato):
// preferir liquidez y actividad reciente, preferir cierres cercanos pero
// no inminentes. El orden resultante es el orden de evaluación del engine.

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/alejandrodnm/kalshibot/internal/adapters/kalshi"
	"github.com/alejandrodnm/kalshibot/internal/domain"
)

var cryptoFocus = []string{"BTC", "BITCOIN", "ETH", "ETHEREUM"}

// Config controla el universo del scorer.
type Config struct {
	// TickerPrefixes limita el universo (ej. KXBTC, KXBTC15M).
	TickerPrefixes []string
	// MaxCandidates acota la lista devuelta.
	MaxCandidates int
}

// MarketLister es lo que el scorer necesita del exchange.
type MarketLister interface {
	GetOpenMarkets(ctx context.Context) ([]kalshi.Market, error)
}

// Scorer implementa ports.MarketScorer sobre la API de mercados.
type Scorer struct {
	markets MarketLister
	cfg     Config
}

// New crea un Scorer.
func New(markets MarketLister, cfg Config) *Scorer {
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 25
	}
	return &Scorer{markets: markets, cfg: cfg}
}

// ScoreMarkets devuelve candidatos crypto que cierran dentro de horizon,
// ordenados por score descendente.
func (s *Scorer) ScoreMarkets(ctx context.Context, now time.Time, horizon time.Duration) ([]domain.Candidate, error) {
	markets, err := s.markets.GetOpenMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("scorer.ScoreMarkets: %w", err)
	}

	cutoff := now.Add(horizon)
	var out []domain.Candidate

	for _, m := range markets {
		if !s.inUniverse(m) {
			continue
		}

		closeTime, err := time.Parse(time.RFC3339, m.CloseTime)
		if err != nil {
			continue
		}
		if !closeTime.After(now) || closeTime.After(cutoff) {
			continue
		}

		out = append(out, domain.Candidate{
			Ticker:    m.Ticker,
			Title:     m.Title,
			Subtitle:  m.Subtitle,
			Kind:      domain.ClassifyMarket(m.Ticker, m.Title),
			CloseTime: closeTime,
			Score:     scoreMarket(m, closeTime.Sub(now)),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if len(out) > s.cfg.MaxCandidates {
		out = out[:s.cfg.MaxCandidates]
	}

	slog.Debug("markets scored", "universe", len(markets), "candidates", len(out))
	return out, nil
}

// inUniverse filtra por prefijos de ticker y por foco crypto.
func (s *Scorer) inUniverse(m kalshi.Market) bool {
	if m.Status != "" && m.Status != "open" && m.Status != "active" {
		return false
	}

	if len(s.cfg.TickerPrefixes) > 0 {
		hit := false
		for _, p := range s.cfg.TickerPrefixes {
			if strings.HasPrefix(m.Ticker, p) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}

	text := strings.ToUpper(m.Title + " " + m.Ticker)
	for _, k := range cryptoFocus {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// scoreMarket puntúa un mercado por liquidez, volumen 24h y forma del
// tiempo al cierre.
func scoreMarket(m kalshi.Market, toClose time.Duration) float64 {
	score := 0.0

	// algo de liquidez
	score += math.Min(m.Liquidity/5000.0, 5.0)
	// actividad reciente
	score += math.Min(m.Volume24h/5000.0, 5.0)

	// preferir cierres cercanos, evitar el caos de fin de vida
	hrs := toClose.Hours()
	switch {
	case hrs >= 0.5 && hrs <= 12:
		score += 2.0
	case hrs < 0.5:
		score -= 2.0
	default:
		score += 0.5
	}

	return score
}

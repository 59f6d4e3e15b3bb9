package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// MarketScorer descubre y rankea mercados candidatos. Devuelve la lista
// ordenada por score descendente; el engine los evalúa en ese orden y se
// detiene en la primera admisión.
type MarketScorer interface {
	// ScoreMarkets devuelve candidatos que cierran dentro de horizon.
	ScoreMarkets(ctx context.Context, now time.Time, horizon time.Duration) ([]domain.Candidate, error)
}

package domain

import (
	"strconv"
	"strings"
	"time"
)

// MarketKind es el enum cerrado de formas de mercado que el trader modela.
// Cualquier mercado que no matchee explícitamente es KindUnsupported y
// nunca se tradea — el sistema no adivina semántica.
type MarketKind int

const (
	KindUnsupported MarketKind = iota
	KindDirectional15m
	KindRangeBucket
)

// String devuelve el nombre del kind para logs.
func (k MarketKind) String() string {
	switch k {
	case KindDirectional15m:
		return "directional_15m"
	case KindRangeBucket:
		return "range_bucket"
	default:
		return "unsupported"
	}
}

// Candidate es un mercado propuesto por el scorer, inmutable durante
// una pasada de gates. Subtitle lleva los bounds del bucket cuando
// Kind == KindRangeBucket.
type Candidate struct {
	Ticker    string
	Title     string
	Subtitle  string
	Kind      MarketKind
	CloseTime time.Time
	Score     float64
}

// MinutesToClose devuelve los minutos restantes hasta el cierre del mercado.
func (c Candidate) MinutesToClose(now time.Time) float64 {
	if c.CloseTime.IsZero() {
		return 0
	}
	return c.CloseTime.Sub(now).Minutes()
}

// ClassifyMarket infiere la forma del mercado desde ticker y título.
// Función pura: misma entrada, misma salida. Todo lo no reconocido
// es KindUnsupported, sin fallthrough silencioso.
func ClassifyMarket(ticker, title string) MarketKind {
	t := strings.ToUpper(ticker)
	u := strings.ToUpper(title)

	switch {
	case strings.HasPrefix(t, "KXBTC15M") && strings.Contains(u, "BTC") &&
		strings.Contains(u, "PRICE") && strings.Contains(u, "UP"):
		return KindDirectional15m
	case strings.HasPrefix(t, "KXBTC-") && strings.Contains(u, "PRICE RANGE"):
		return KindRangeBucket
	default:
		return KindUnsupported
	}
}

// RangeBounds son los límites de un bucket de precio. Lo y Hi son nil
// para buckets abiertos ("or above" / "or below").
type RangeBounds struct {
	Lo *float64
	Hi *float64
}

// ParseRangeSubtitle parsea los subtítulos de buckets de precio de Kalshi.
//
// Formatos soportados:
//
//	"$78,250 or above"     → (78250, nil)
//	"$59,999.99 or below"  → (nil, 59999.99)
//	"$77,500 to 77,749.99" → (77500, 77749.99)
//
// Devuelve ok=false cuando no se puede parsear — semántica no parseable
// implica rechazo del candidato, nunca un default.
func ParseRangeSubtitle(subtitle string) (RangeBounds, bool) {
	// Kalshi a veces usa NBSP en los subtítulos
	s := strings.TrimSpace(strings.ReplaceAll(subtitle, " ", " "))
	if s == "" {
		return RangeBounds{}, false
	}
	u := strings.ToUpper(s)

	switch {
	case strings.Contains(u, "OR ABOVE"):
		lo, ok := parseDollars(s[:strings.Index(u, "OR ABOVE")])
		if !ok {
			return RangeBounds{}, false
		}
		return RangeBounds{Lo: &lo}, true

	case strings.Contains(u, "OR BELOW"):
		hi, ok := parseDollars(s[:strings.Index(u, "OR BELOW")])
		if !ok {
			return RangeBounds{}, false
		}
		return RangeBounds{Hi: &hi}, true

	case strings.Contains(u, " TO "):
		i := strings.Index(u, " TO ")
		lo, okLo := parseDollars(s[:i])
		hi, okHi := parseDollars(s[i+4:])
		if !okLo || !okHi || lo >= hi {
			return RangeBounds{}, false
		}
		return RangeBounds{Lo: &lo, Hi: &hi}, true
	}

	return RangeBounds{}, false
}

// Anchor devuelve el precio representativo del bucket: el punto medio
// para rangos cerrados, el límite para buckets abiertos.
func (b RangeBounds) Anchor() float64 {
	switch {
	case b.Lo != nil && b.Hi != nil:
		return 0.5 * (*b.Lo + *b.Hi)
	case b.Lo != nil:
		return *b.Lo
	case b.Hi != nil:
		return *b.Hi
	default:
		return 0
	}
}

// parseDollars convierte "$77,500.25" a float64.
func parseDollars(s string) (float64, bool) {
	clean := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(s))
	if clean == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

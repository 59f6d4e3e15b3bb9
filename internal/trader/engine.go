package trader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alejandrodnm/kalshibot/config"
	"github.com/alejandrodnm/kalshibot/internal/domain"
	"github.com/alejandrodnm/kalshibot/internal/metrics"
	"github.com/alejandrodnm/kalshibot/internal/ports"
)

// Config contiene los parámetros ya resueltos del engine. Se construye
// una vez en el arranque vía FromConfig; el engine nunca relee entorno.
type Config struct {
	AllowPrefixes     []string
	Interval          time.Duration
	ScanHorizon       time.Duration
	CandidatesToCheck int
	Cooldown          time.Duration
	MaxPosPerTicker   int

	MaxBTCExposureCents int64
	MaxETHExposureCents int64

	Fair                 domain.FairModel
	SpotSeriesMaxSamples int

	MinEdgeBps           float64
	MomentumThresholdBps float64
	BandUp               ProbBand
	BandRange            ProbBand
	RangeNearPct         float64

	MaxSpreadCents     int
	MaxEntryPriceCents int
	MinExitBidCents    int
	MinMinutesToClose  float64
	MinTopQty          int
	DepthWithinCents   int
	MinDepthWithinQty  int
	TopQtyFraction     float64
	OrderbookDepth     int

	MaxCostPerTradeCents int64
	DailyMaxCostCents    int64
	CashBufferCents      int64
	LotteryMaxCostCents  int64
	DailyLossLimitCents  int64
	TargetSpendCents     int64
	TargetTrades         int
	MaxTrades            int

	ExitsEnabled         bool
	ExitEdgeEpsBps       float64
	MaxHold              time.Duration
	TakeProfitCents      int64
	StopLossCents        int64
	ExitMaxSlippageCents int
	MaxExitChecksPerTick int

	RejectTopN     int
	HeartbeatEvery int
}

// FromConfig traduce la configuración cargada a la del engine.
func FromConfig(c *config.Config) Config {
	return Config{
		AllowPrefixes:     c.Trader.AllowPrefixes,
		Interval:          c.TickInterval(),
		ScanHorizon:       c.ScanHorizon(),
		CandidatesToCheck: c.Trader.CandidatesToCheck,
		Cooldown:          c.Cooldown(),
		MaxPosPerTicker:   c.Trader.MaxPositionPerTicker,

		MaxBTCExposureCents: c.Trader.MaxBTCExposureCents,
		MaxETHExposureCents: c.Trader.MaxETHExposureCents,

		Fair: domain.FairModel{
			SensitivityK:     c.Fair.SensitivityK,
			MomentumLookback: time.Duration(c.Fair.MomentumLookbackSecs) * time.Second,
			VolWindow:        time.Duration(c.Fair.VolWindowSeconds) * time.Second,
			VolDampBps:       c.Fair.VolDampBps,
			MaxShiftProb:     c.Fair.MaxShiftProb,
			DefaultVolBps:    c.Fair.DefaultVolBps,
		},
		SpotSeriesMaxSamples: c.Fair.SpotSeriesMaxSamples,

		MinEdgeBps:           c.Trader.MinEdgeBps,
		MomentumThresholdBps: c.Trader.MomentumThresholdBps,
		BandUp:               ProbBand{Lo: c.Trader.MinMktProbUp, Hi: c.Trader.MaxMktProbUp},
		BandRange:            ProbBand{Lo: c.Trader.MinMktProbRange, Hi: c.Trader.MaxMktProbRange},
		RangeNearPct:         c.Trader.RangeNearPct,

		MaxSpreadCents:     c.Trader.MaxSpreadCents,
		MaxEntryPriceCents: c.Trader.MaxEntryPriceCents,
		MinExitBidCents:    c.Trader.MinExitBidCents,
		MinMinutesToClose:  c.Trader.MinMinutesToClose,
		MinTopQty:          c.Trader.MinTopQty,
		DepthWithinCents:   c.Trader.DepthWithinCents,
		MinDepthWithinQty:  c.Trader.MinDepthWithinQty,
		TopQtyFraction:     c.Trader.TopQtyFraction,
		OrderbookDepth:     c.Trader.OrderbookDepth,

		MaxCostPerTradeCents: c.Risk.MaxCostPerTradeCents,
		DailyMaxCostCents:    c.Risk.DailyMaxCostCents,
		CashBufferCents:      c.Risk.CashBufferCents,
		LotteryMaxCostCents:  c.Risk.LotteryMaxCostCents,
		DailyLossLimitCents:  c.Risk.DailyLossLimitCents,
		TargetSpendCents:     c.Risk.TargetSpendCents,
		TargetTrades:         c.Risk.TargetTrades,
		MaxTrades:            c.Risk.MaxTrades,

		ExitsEnabled:         c.Exits.Enabled,
		ExitEdgeEpsBps:       c.Exits.EdgeEpsBps,
		MaxHold:              c.MaxHold(),
		TakeProfitCents:      c.Exits.TakeProfitCents,
		StopLossCents:        c.Exits.StopLossCents,
		ExitMaxSlippageCents: c.Exits.MaxSlippageCents,
		MaxExitChecksPerTick: c.Exits.MaxPositionsPerTick,

		RejectTopN:     c.Trader.RejectLogTopN,
		HeartbeatEvery: c.Trader.HeartbeatEveryLoops,
	}
}

// ErrBudgetExhausted termina el loop cuando no queda presupuesto ni cash
// para una orden más. Deliberado, no un error operativo.
var ErrBudgetExhausted = errors.New("trader: presupuesto agotado")

// Engine es el autotrader: un único worker lógico, completamente
// secuencial por tick. Todas las llamadas externas son síncronas y
// bloquean el tick; no hay cacheo de quotes, balances ni estimaciones
// entre ticks — cada tick relee la verdad del exchange.
type Engine struct {
	exchange ports.Exchange
	scorer   ports.MarketScorer
	feed     ports.PriceFeed
	ledger   ports.Ledger
	days     ports.StateStore
	notifier ports.Notifier

	cfg    Config
	state  *TraderState
	series *domain.PriceSeries
}

// New arma el engine con sus colaboradores y restaura el day-start
// persistido si corresponde al día de hoy.
func New(
	exchange ports.Exchange,
	scorer ports.MarketScorer,
	feed ports.PriceFeed,
	ledger ports.Ledger,
	days ports.StateStore,
	notifier ports.Notifier,
	cfg Config,
	now time.Time,
) (*Engine, error) {
	e := &Engine{
		exchange: exchange,
		scorer:   scorer,
		feed:     feed,
		ledger:   ledger,
		days:     days,
		notifier: notifier,
		cfg:      cfg,
		state:    NewTraderState(now),
		series:   domain.NewPriceSeries(cfg.SpotSeriesMaxSamples),
	}

	st, err := days.Load(context.Background())
	if err != nil {
		return nil, fmt.Errorf("trader.New: load day state: %w", err)
	}
	e.state.Restore(st)
	return e, nil
}

// Run ejecuta ticks hasta que el contexto se cancele o el loop alcance
// una condición terminal (presupuesto agotado, target cumplido, rechazo
// fatal del exchange). Nunca aborta I/O a mitad de un tick.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("trader: arrancando",
		"allow_prefixes", strings.Join(e.cfg.AllowPrefixes, ","),
		"interval", e.cfg.Interval,
		"max_cost_trade_cents", e.cfg.MaxCostPerTradeCents,
		"daily_max_cost_cents", e.cfg.DailyMaxCostCents,
		"exits_enabled", e.cfg.ExitsEnabled)
	e.notify(ctx, "autotrader iniciado")

	active, err := e.exchange.TradingActive(ctx)
	if err != nil {
		slog.Warn("trader: no se pudo leer el estado del exchange", "err", err)
	} else if !active {
		return errors.New("trader: el exchange no acepta órdenes")
	}

	for {
		stop, err := e.Tick(ctx, time.Now())
		if err != nil && !stop {
			var exchErr *ports.ExchangeError
			if errors.As(err, &exchErr) && exchErr.Fatal() {
				// auth roto no se cura reintentando
				e.notify(ctx, fmt.Sprintf("autotrader detenido: %v", err))
				return err
			}
			// falla transitoria: se loguea y el próximo tick reintenta
			slog.Warn("trader: tick con error", "err", err)
		}
		if stop {
			e.notify(ctx, "autotrader detenido")
			if errors.Is(err, ErrBudgetExhausted) {
				return err
			}
			return nil
		}

		select {
		case <-ctx.Done():
			slog.Info("trader: contexto cancelado, cerrando")
			return ctx.Err()
		case <-time.After(e.cfg.Interval):
		}
	}
}

// Tick ejecuta un ciclo completo: contabilidad diaria → guardas de
// riesgo → snapshot de cuenta → señales → exits → gates → sizing →
// orden → registro. Devuelve stop=true en condiciones terminales.
func (e *Engine) Tick(ctx context.Context, now time.Time) (bool, error) {
	st := e.state
	st.Loops++
	defer metrics.Ticks.Inc()

	// 1. rollover de medianoche: resetea y persiste la contabilidad
	if st.RollDay(now) {
		slog.Info("trader: nuevo día, contabilidad diaria reseteada", "day", st.Day)
		e.notify(ctx, fmt.Sprintf("nuevo día %s: límites diarios reseteados", st.Day))
		if err := e.days.Save(ctx, st.DayState()); err != nil {
			slog.Warn("trader: error persistiendo estado de día", "err", err)
		}
	}

	// 2. guarda de pérdida realizada del día
	if e.cfg.DailyLossLimitCents > 0 {
		realized, err := e.ledger.TodayRealizedCents(ctx, st.Day)
		if err != nil {
			return false, fmt.Errorf("trader.Tick: today realized: %w", err)
		}
		if e.lossLimitHit(realized) {
			slog.Warn("trader: límite de pérdida diaria alcanzado, pausando",
				"realized_cents", realized, "limit_cents", e.cfg.DailyLossLimitCents)
			e.notify(ctx, fmt.Sprintf("límite de pérdida diaria alcanzado (%dc), pausando", realized))
			return false, nil
		}
	}

	// 3. condiciones de stop opcionales
	if e.cfg.TargetSpendCents > 0 && st.NetSpentTodayCents >= e.cfg.TargetSpendCents {
		slog.Info("trader: target de gasto alcanzado, deteniendo")
		return true, nil
	}
	if e.cfg.TargetTrades > 0 && st.Fills >= e.cfg.TargetTrades {
		slog.Info("trader: target de fills alcanzado, deteniendo")
		return true, nil
	}
	if e.cfg.MaxTrades > 0 && st.Fills >= e.cfg.MaxTrades {
		slog.Info("trader: máximo de trades alcanzado, deteniendo")
		return true, nil
	}

	// 4. snapshot de posiciones y exposición correlacionada
	acct, positions := e.accountSnapshot(ctx)
	metrics.OpenPositions.Set(float64(len(positions)))

	// 5. balance y gasto neto del día
	balance, err := e.exchange.GetBalanceCents(ctx)
	if err != nil {
		var exchErr *ports.ExchangeError
		if errors.As(err, &exchErr) && exchErr.Fatal() {
			return false, err
		}
		slog.Warn("trader: error leyendo balance", "err", err)
	} else {
		acct.BalanceCents = balance
		metrics.Balance.Set(float64(balance))
		if st.ObserveBalance(balance) {
			if err := e.days.Save(ctx, st.DayState()); err != nil {
				slog.Warn("trader: error persistiendo day-start", "err", err)
			}
			slog.Info("trader: day-start fijado", "day", st.Day, "balance_cents", balance)
		}
		metrics.NetSpent.Set(float64(st.NetSpentTodayCents))
	}

	// el cap diario pausa el loop completo hasta el próximo rollover
	if e.dailyCapReached(st) {
		slog.Info("trader: cap diario de gasto neto alcanzado, durmiendo",
			"net_spent_cents", st.NetSpentTodayCents, "cap_cents", e.cfg.DailyMaxCostCents)
		return false, nil
	}

	// 6. señales: spot fresco, momentum, vol y fair direccional
	sig := e.refreshSignals(ctx, now)

	// 7. exits primero; sus errores nunca bloquean las entradas
	e.runExits(ctx, now, positions, sig)

	// 8. descubrimiento: candidatos rankeados del scorer
	candidates, err := e.scorer.ScoreMarkets(ctx, now, e.cfg.ScanHorizon)
	if err != nil {
		return false, fmt.Errorf("trader.Tick: score markets: %w", err)
	}
	if len(candidates) == 0 {
		e.heartbeat(st, nil)
		slog.Debug("trader: sin candidatos este tick")
		return false, nil
	}

	// 9. gates en orden de ranking, primera admisión gana
	rlog := domain.NewRejectLog(0)
	var admitted *domain.Decision
	var chosen domain.Candidate
	checked := 0
	for _, c := range candidates {
		if checked >= e.cfg.CandidatesToCheck {
			break
		}
		checked++

		quote, err := e.exchange.GetQuote(ctx, c.Ticker, e.cfg.OrderbookDepth)
		if err != nil {
			slog.Warn("trader: error leyendo libro", "ticker", c.Ticker, "err", err)
			continue
		}

		d := e.admit(GateInput{Candidate: c, Quote: quote, Signals: sig, Account: acct, Now: now}, st)
		if d.Admitted {
			admitted = &d
			chosen = c
			break
		}
		rlog.Add(d.Reject)
		metrics.Rejects.WithLabelValues(string(d.Reject.Reason)).Inc()
	}

	if admitted == nil {
		e.heartbeat(st, rlog)
		slog.Debug("trader: ningún candidato pasó los gates")
		return false, nil
	}

	// 10. sizing contra el presupuesto; <= 0 es terminal
	spend := e.maxSpendableCents(st, acct.BalanceCents, admitted.Lottery)
	if spend <= 0 {
		slog.Info("trader: sin presupuesto ni cash restante, deteniendo")
		return true, ErrBudgetExhausted
	}

	// 11. orden de entrada
	return false, e.placeEntry(ctx, now, chosen, *admitted, spend, sig)
}

// accountSnapshot lee posiciones del exchange y deriva exposición por
// subyacente. En error devuelve snapshot vacío: los gates de exposición
// simplemente no frenan este tick (igual que no tener posiciones).
func (e *Engine) accountSnapshot(ctx context.Context) (AccountState, []domain.Position) {
	acct := AccountState{PosByTicker: make(map[string]int)}

	positions, err := e.exchange.GetPositions(ctx)
	if err != nil {
		slog.Warn("trader: error leyendo posiciones", "err", err)
		return acct, nil
	}

	for _, p := range positions {
		qty := p.Quantity
		if p.Side == domain.SideNo {
			qty = -qty
		}
		acct.PosByTicker[p.Ticker] = qty

		switch {
		case strings.HasPrefix(p.Ticker, "KXETH"):
			acct.ETHExposureCents += p.ExposureCents
		case strings.HasPrefix(p.Ticker, "KXBTC"):
			acct.BTCExposureCents += p.ExposureCents
		}
	}
	return acct, positions
}

// refreshSignals trae el spot, lo agrega a la serie y deriva momentum,
// vol realizada y la estimación direccional. Un feed caído deja las
// señales ausentes; los gates rechazan por no_spot sin crashear el loop.
func (e *Engine) refreshSignals(ctx context.Context, now time.Time) Signals {
	sig := Signals{Series: e.series}

	px, err := e.feed.Spot(ctx)
	if err != nil {
		slog.Warn("trader: error del feed spot", "err", err)
		return sig
	}

	e.series.Append(now, px)
	sig.SpotPrice = px
	sig.HasSpot = true

	if ret, ok := e.series.LookbackReturnBps(e.cfg.Fair.MomentumLookback); ok {
		sig.RetBps = ret
		sig.HasRet = true
	}
	if vol, ok := e.series.RealizedVolBps(e.cfg.Fair.VolWindow); ok {
		sig.VolBps = vol
		sig.HasVol = true
	}
	if p, ok := e.cfg.Fair.EstimateDirectionalYes(e.series); ok {
		sig.FairDirYes = p
		sig.HasFairDir = true
	}
	return sig
}

// heartbeat loguea el estado del loop cada N ticks, incluidos los
// rechazos más cercanos a pasar.
func (e *Engine) heartbeat(st *TraderState, rlog *domain.RejectLog) {
	if e.cfg.HeartbeatEvery <= 0 || st.Loops%e.cfg.HeartbeatEvery != 0 {
		return
	}

	budgetLeft := int64(-1)
	if e.cfg.DailyMaxCostCents > 0 {
		budgetLeft = e.cfg.DailyMaxCostCents - st.NetSpentTodayCents
	}
	slog.Info("trader: heartbeat",
		"loops", st.Loops,
		"fills", st.Fills,
		"net_spent_cents", st.NetSpentTodayCents,
		"budget_left_cents", budgetLeft)

	if rlog == nil || e.cfg.RejectTopN <= 0 {
		return
	}
	for _, rej := range rlog.Closest(e.cfg.RejectTopN) {
		slog.Info("trader: reject cercano",
			"ticker", rej.Ticker,
			"reason", string(rej.Reason),
			"distance", rej.Distance,
			"detail", rej.Detail)
	}
}

// notify manda un mensaje al operador; las fallas nunca afectan el tick.
func (e *Engine) notify(ctx context.Context, text string) {
	if e.notifier == nil {
		return
	}
	e.notifier.Notify(ctx, text)
}

package trader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/kalshibot/internal/domain"
	"github.com/alejandrodnm/kalshibot/internal/ports"
)

// --- fakes de los ports, en memoria ---

type fakeExchange struct {
	balance    int64
	balanceErr error
	positions  []domain.Position
	quotes     map[string]domain.QuoteSnapshot
	result     ports.OrderResult
	submitErr  error

	orders []ports.OrderRequest
}

func (f *fakeExchange) GetBalanceCents(ctx context.Context) (int64, error) {
	return f.balance, f.balanceErr
}

func (f *fakeExchange) GetPositions(ctx context.Context) ([]domain.Position, error) {
	return f.positions, nil
}

func (f *fakeExchange) GetQuote(ctx context.Context, ticker string, depth int) (domain.QuoteSnapshot, error) {
	q, ok := f.quotes[ticker]
	if !ok {
		return domain.QuoteSnapshot{}, errors.New("no quote")
	}
	return q, nil
}

func (f *fakeExchange) SubmitOrder(ctx context.Context, req ports.OrderRequest) (ports.OrderResult, error) {
	f.orders = append(f.orders, req)
	return f.result, f.submitErr
}

func (f *fakeExchange) TradingActive(ctx context.Context) (bool, error) {
	return true, nil
}

type fakeScorer struct {
	candidates []domain.Candidate
	calls      int
}

func (f *fakeScorer) ScoreMarkets(ctx context.Context, now time.Time, horizon time.Duration) ([]domain.Candidate, error) {
	f.calls++
	return f.candidates, nil
}

type fakeFeed struct {
	px  float64
	err error
}

func (f *fakeFeed) Spot(ctx context.Context) (float64, error) {
	return f.px, f.err
}

type fakeLedger struct {
	rows      []domain.LedgerRow
	lastEntry time.Time
	hasEntry  bool
	realized  int64
}

func (f *fakeLedger) Append(ctx context.Context, row domain.LedgerRow) error {
	if err := row.Validate(); err != nil {
		return err
	}
	f.rows = append(f.rows, row)
	return nil
}

func (f *fakeLedger) RowsInWindow(ctx context.Context, days int) ([]domain.LedgerRow, error) {
	return f.rows, nil
}

func (f *fakeLedger) RecentRows(ctx context.Context, limit int) ([]domain.LedgerRow, error) {
	return f.rows, nil
}

func (f *fakeLedger) DailySummaries(ctx context.Context, days int) ([]domain.DailySummary, error) {
	return nil, nil
}

func (f *fakeLedger) TodayRealizedCents(ctx context.Context, day string) (int64, error) {
	return f.realized, nil
}

func (f *fakeLedger) LastEntry(ctx context.Context, ticker string, side domain.Side) (time.Time, bool, error) {
	return f.lastEntry, f.hasEntry, nil
}

func (f *fakeLedger) Close() error { return nil }

type fakeStore struct {
	st    ports.DayState
	saved []ports.DayState
}

func (f *fakeStore) Load(ctx context.Context) (ports.DayState, error) { return f.st, nil }

func (f *fakeStore) Save(ctx context.Context, st ports.DayState) error {
	f.saved = append(f.saved, st)
	return nil
}

type fakeNotifier struct {
	msgs []string
}

func (f *fakeNotifier) Notify(ctx context.Context, text string) {
	f.msgs = append(f.msgs, text)
}

// --- armado común ---

type fixture struct {
	engine   *Engine
	exchange *fakeExchange
	scorer   *fakeScorer
	ledger   *fakeLedger
	store    *fakeStore
	notifier *fakeNotifier
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	c := upCandidate()
	f := &fixture{
		exchange: &fakeExchange{
			balance: 10000,
			quotes:  map[string]domain.QuoteSnapshot{c.Ticker: liquidQuote()},
			result: ports.OrderResult{
				OrderID:            "ord-1",
				FillCount:          8,
				TakerFillCostCents: 200,
				TakerFeesCents:     2,
				HasCosts:           true,
			},
		},
		scorer:   &fakeScorer{candidates: []domain.Candidate{c}},
		ledger:   &fakeLedger{},
		store:    &fakeStore{},
		notifier: &fakeNotifier{},
	}

	eng, err := New(f.exchange, f.scorer, &fakeFeed{px: 77500}, f.ledger, f.store, f.notifier, cfg, now)
	require.NoError(t, err)
	// historia mínima para que el lookback de momentum tenga señal
	eng.series.Append(now.Add(-3*time.Minute), 77000)
	f.engine = eng
	return f
}

func TestTick_FillAppendsBuyRow(t *testing.T) {
	f := newFixture(t, testCfg())

	stop, err := f.engine.Tick(context.Background(), now)
	require.NoError(t, err)
	assert.False(t, stop)

	require.Len(t, f.exchange.orders, 1)
	ord := f.exchange.orders[0]
	assert.Equal(t, domain.ActionBuy, ord.Action)
	assert.Equal(t, domain.SideYes, ord.Side)
	assert.Equal(t, 25, ord.PriceCents)
	assert.Equal(t, ports.FillOrKill, ord.TimeInForce)
	assert.Equal(t, int64(200), ord.BuyMaxCostCents)
	// floor(200/25)=8, muy por debajo del cap de fracción del top (90)
	assert.Equal(t, 8, ord.Count)

	require.Len(t, f.ledger.rows, 1)
	row := f.ledger.rows[0]
	assert.Equal(t, domain.ActionBuy, row.Action)
	assert.Equal(t, 25, row.PriceCents)
	assert.Equal(t, 8, row.Qty)
	// costo = fill cost + fees reportados por el exchange
	assert.Equal(t, int64(202), row.CostCents)
	assert.Equal(t, "2026-09-01", row.Day)
	assert.Equal(t, "ord-1", row.OrderID)

	assert.Equal(t, 1, f.engine.state.Fills)
	_, traded := f.engine.state.LastTraded(ord.Ticker)
	assert.True(t, traded)

	// el day-start se fijó en la primera lectura de balance y se persistió
	require.NotEmpty(t, f.store.saved)
	require.NotNil(t, f.store.saved[0].DayStartBalanceCents)
	assert.Equal(t, int64(10000), *f.store.saved[0].DayStartBalanceCents)

	// el tick siguiente cae en cooldown: no hay segunda orden
	stop, err = f.engine.Tick(context.Background(), now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, stop)
	assert.Len(t, f.exchange.orders, 1)
}

func TestTick_ZeroFillIsNotAnError(t *testing.T) {
	f := newFixture(t, testCfg())
	f.exchange.result = ports.OrderResult{OrderID: "ord-1", FillCount: 0}

	stop, err := f.engine.Tick(context.Background(), now)
	require.NoError(t, err)
	assert.False(t, stop)

	assert.Len(t, f.exchange.orders, 1)
	assert.Empty(t, f.ledger.rows)
	assert.Equal(t, 0, f.engine.state.Fills)
}

func TestTick_FallbackCostWithoutFillCosts(t *testing.T) {
	f := newFixture(t, testCfg())
	f.exchange.result = ports.OrderResult{OrderID: "ord-1", FillCount: 8, HasCosts: false}

	_, err := f.engine.Tick(context.Background(), now)
	require.NoError(t, err)

	require.Len(t, f.ledger.rows, 1)
	// sin costos a nivel fill el registro usa el max-spend solicitado
	assert.Equal(t, int64(200), f.ledger.rows[0].CostCents)
}

func TestTick_NoCashLeftIsTerminal(t *testing.T) {
	f := newFixture(t, testCfg())
	// balance bajo el buffer de cash: los gates admiten pero no hay
	// nada para gastar
	f.exchange.balance = 20

	stop, err := f.engine.Tick(context.Background(), now)
	assert.True(t, stop)
	assert.ErrorIs(t, err, ErrBudgetExhausted)
	assert.Empty(t, f.exchange.orders)
}

func TestTick_DailyCapPausesBeforeScoring(t *testing.T) {
	cfg := testCfg()
	f := newFixture(t, cfg)

	// day-start 1000c restaurado y balance actual 500c: gasto neto 500c
	// = cap diario
	start := int64(1000)
	f.engine.state.Restore(ports.DayState{Day: dayKey(now), DayStartBalanceCents: &start})
	f.exchange.balance = 500

	stop, err := f.engine.Tick(context.Background(), now)
	require.NoError(t, err)
	assert.False(t, stop)
	assert.Equal(t, 0, f.scorer.calls)
	assert.Empty(t, f.exchange.orders)
}

func TestTick_FatalExchangeErrorPropagates(t *testing.T) {
	f := newFixture(t, testCfg())
	f.exchange.balanceErr = &ports.ExchangeError{StatusCode: 401, Message: "unauthorized"}

	stop, err := f.engine.Tick(context.Background(), now)
	assert.False(t, stop)
	var exchErr *ports.ExchangeError
	require.ErrorAs(t, err, &exchErr)
	assert.True(t, exchErr.Fatal())
}

func TestTick_RollDayResetsAndPersists(t *testing.T) {
	f := newFixture(t, testCfg())
	f.engine.state.ObserveBalance(1000)
	f.engine.state.ObserveBalance(700)

	tomorrow := now.Add(24 * time.Hour)
	_, err := f.engine.Tick(context.Background(), tomorrow)
	require.NoError(t, err)

	assert.Equal(t, dayKey(tomorrow), f.engine.state.Day)
	require.NotEmpty(t, f.store.saved)
	assert.Equal(t, dayKey(tomorrow), f.store.saved[0].Day)
	// tras el rollover el primer balance del nuevo día fija el day-start
	require.NotNil(t, f.engine.state.DayStartBalanceCents)
	assert.Equal(t, int64(10000), *f.engine.state.DayStartBalanceCents)
}

func TestTick_LossLimitPauses(t *testing.T) {
	cfg := testCfg()
	cfg.DailyLossLimitCents = 300
	f := newFixture(t, cfg)
	f.ledger.realized = -350

	stop, err := f.engine.Tick(context.Background(), now)
	require.NoError(t, err)
	assert.False(t, stop)
	assert.Equal(t, 0, f.scorer.calls)
	assert.Empty(t, f.exchange.orders)
}

func TestRunExits_TakeProfit(t *testing.T) {
	f := newFixture(t, testCfg())
	pos := domain.Position{
		Ticker:         "KXBTC15M-26SEP011200",
		Side:           domain.SideYes,
		Quantity:       5,
		CostBasisCents: 50,
	}
	// best bid YES 40c: unrealizado = 200 − 50 = 150 >= TP 100
	f.exchange.quotes[pos.Ticker] = domain.QuoteSnapshot{
		Yes: []domain.BookLevel{{PriceCents: 40, Qty: 100}},
		No:  []domain.BookLevel{{PriceCents: 55, Qty: 100}},
	}
	f.exchange.result = ports.OrderResult{OrderID: "ord-x", FillCount: 5, HasCosts: false}

	exited := f.engine.runExits(context.Background(), now, []domain.Position{pos}, Signals{})
	assert.Equal(t, 1, exited)

	require.Len(t, f.exchange.orders, 1)
	ord := f.exchange.orders[0]
	assert.Equal(t, domain.ActionSell, ord.Action)
	assert.Equal(t, ports.ImmediateOrCancel, ord.TimeInForce)
	assert.Equal(t, 40, ord.PriceCents)
	assert.Equal(t, 5, ord.Count)

	require.Len(t, f.ledger.rows, 1)
	// sin costos a nivel fill los proceeds son px·qty
	assert.Equal(t, int64(200), f.ledger.rows[0].CostCents)
	assert.Equal(t, domain.ActionSell, f.ledger.rows[0].Action)
}

func TestRunExits_StopLoss(t *testing.T) {
	f := newFixture(t, testCfg())
	pos := domain.Position{
		Ticker:         "KXBTC15M-26SEP011200",
		Side:           domain.SideYes,
		Quantity:       10,
		CostBasisCents: 300,
	}
	// best bid 10c: unrealizado = 100 − 300 = −200 <= −SL 150
	f.exchange.quotes[pos.Ticker] = domain.QuoteSnapshot{
		Yes: []domain.BookLevel{{PriceCents: 10, Qty: 100}},
		No:  []domain.BookLevel{{PriceCents: 85, Qty: 100}},
	}
	f.exchange.result = ports.OrderResult{OrderID: "ord-x", FillCount: 10, HasCosts: false}

	exited := f.engine.runExits(context.Background(), now, []domain.Position{pos}, Signals{})
	assert.Equal(t, 1, exited)
	require.Len(t, f.exchange.orders, 1)
	assert.Equal(t, domain.ActionSell, f.exchange.orders[0].Action)
}

func TestRunExits_NoBidNoExit(t *testing.T) {
	f := newFixture(t, testCfg())
	pos := domain.Position{
		Ticker:         "KXBTC15M-26SEP011200",
		Side:           domain.SideYes,
		Quantity:       5,
		CostBasisCents: 50,
	}
	f.exchange.quotes[pos.Ticker] = domain.QuoteSnapshot{
		No: []domain.BookLevel{{PriceCents: 55, Qty: 100}},
	}

	exited := f.engine.runExits(context.Background(), now, []domain.Position{pos}, Signals{})
	assert.Equal(t, 0, exited)
	assert.Empty(t, f.exchange.orders)
}

func TestRunExits_EdgeCompressedRotates(t *testing.T) {
	f := newFixture(t, testCfg())
	pos := domain.Position{
		Ticker:         "KXBTC15M-26SEP011200",
		Side:           domain.SideYes,
		Quantity:       2,
		CostBasisCents: 80,
	}
	// fair 0.41 contra p_mkt 0.40: |edge| 100bps... con eps 4bps no rota;
	// con fair 0.4003 sí
	f.exchange.quotes[pos.Ticker] = domain.QuoteSnapshot{
		Yes: []domain.BookLevel{{PriceCents: 40, Qty: 100}},
		No:  []domain.BookLevel{{PriceCents: 55, Qty: 100}},
	}
	f.exchange.result = ports.OrderResult{OrderID: "ord-x", FillCount: 2, HasCosts: false}

	sig := Signals{FairDirYes: 0.41, HasFairDir: true}
	assert.Equal(t, 0, f.engine.runExits(context.Background(), now, []domain.Position{pos}, sig))

	sig.FairDirYes = 0.4003
	assert.Equal(t, 1, f.engine.runExits(context.Background(), now, []domain.Position{pos}, sig))
}

func TestRunExits_DisabledDoesNothing(t *testing.T) {
	cfg := testCfg()
	cfg.ExitsEnabled = false
	f := newFixture(t, cfg)
	pos := domain.Position{Ticker: "KXBTC15M-26SEP011200", Side: domain.SideYes, Quantity: 5}

	assert.Equal(t, 0, f.engine.runExits(context.Background(), now, []domain.Position{pos}, Signals{}))
	assert.Empty(t, f.exchange.orders)
}

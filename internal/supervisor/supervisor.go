// Package supervisor implements the System Supervisor (C8): a FSM driving
// the engine through population generation, backtesting, optimization and
// live trading, ported literally from original_source/system/system.py's
// System (spec.md §4.8).
package supervisor

import (
	"context"

	"github.com/atlas-desktop/squad-engine/internal/bus"
	"github.com/atlas-desktop/squad-engine/internal/datasource"
	"github.com/atlas-desktop/squad-engine/internal/message"
	"github.com/atlas-desktop/squad-engine/internal/strategystore"
	"github.com/atlas-desktop/squad-engine/pkg/model"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

type state int

const (
	stateInit state = iota
	stateGenerate
	stateBacktest
	stateOptimization
	stateTrading
)

func (s state) String() string {
	switch s {
	case stateInit:
		return "INIT"
	case stateGenerate:
		return "GENERATE"
	case stateBacktest:
		return "BACKTEST"
	case stateOptimization:
		return "OPTIMIZATION"
	case stateTrading:
		return "TRADING"
	default:
		return "UNKNOWN"
	}
}

type event int

const (
	eventGenerateComplete event = iota
	eventRunBacktest
	eventRegenerate
	eventBacktestComplete
	eventOptimizationComplete
	eventSystemStop
)

// Config collects the supervisor's tunables, ported from
// original_source/system/context.py's SystemContext.
type Config struct {
	ParallelNum       int // concurrent squads per backtest batch
	ActiveStrategyNum int // candidates requested from GetTopStrategy
	Lookback          int // bars fed per backtest replay, 0 = full history
	Leverage          int
	IsLive            bool
}

// Supervisor owns the FSM described in spec.md §4.8. It is driven by an
// internal event queue instead of asyncio.Queue, and is not itself an
// actor: it issues commands/queries against the bus like any other
// collaborator, but it is never subscribed to anything.
type Supervisor struct {
	logger *zap.Logger
	bus    *bus.Bus
	repo   *datasource.Repository
	store  *strategystore.Store

	squads    SquadFactory
	generator Generator
	optimizer Optimizer
	cfg       Config

	queue chan event
	state state

	active []*Squad
}

// New constructs a supervisor in state INIT.
func New(logger *zap.Logger, b *bus.Bus, repo *datasource.Repository, store *strategystore.Store, squads SquadFactory, generator Generator, optimizer Optimizer, cfg Config) *Supervisor {
	if cfg.ParallelNum <= 0 {
		cfg.ParallelNum = 1
	}
	return &Supervisor{
		logger: logger, bus: b, repo: repo, store: store,
		squads: squads, generator: generator, optimizer: optimizer, cfg: cfg,
		queue: make(chan event, 16), state: stateInit,
	}
}

// Run drives the FSM until Stop is called or ctx is cancelled, mirroring
// System.start's "await self.event_queue.put(REGENERATE)" kickoff followed
// by its match/case loop.
func (s *Supervisor) Run(ctx context.Context) error {
	s.queue <- eventRegenerate

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-s.queue:
			stop, err := s.transition(ctx, ev)
			if stop || err != nil {
				return err
			}
		}
	}
}

// Stop requests an orderly shutdown (System.stop's
// event_queue.put_nowait(SYSTEM_STOP)). It never blocks.
func (s *Supervisor) Stop() {
	select {
	case s.queue <- eventSystemStop:
	default:
	}
}

// State reports the FSM's current state, for observability.
func (s *Supervisor) State() string { return s.state.String() }

func (s *Supervisor) transition(ctx context.Context, ev event) (stop bool, err error) {
	if ev == eventSystemStop {
		return true, nil
	}

	switch s.state {
	case stateInit:
		if ev == eventRegenerate {
			s.state = stateGenerate
			return false, s.generate(ctx)
		}
	case stateGenerate:
		if ev == eventGenerateComplete {
			s.state = stateBacktest
			return false, s.runBacktest(ctx)
		}
	case stateBacktest:
		if ev == eventBacktestComplete {
			s.state = stateOptimization
			return false, s.runOptimization(ctx)
		}
	case stateOptimization:
		switch ev {
		case eventOptimizationComplete:
			s.state = stateTrading
			return false, s.runTrading(ctx)
		case eventRegenerate:
			s.state = stateGenerate
			return false, s.generate(ctx)
		case eventRunBacktest:
			s.state = stateBacktest
			return false, s.runBacktest(ctx)
		}
	}
	return false, nil
}

// generate queries the tradable symbols and seeds a fresh population
// (System._generate).
func (s *Supervisor) generate(ctx context.Context) error {
	s.logger.Info("supervisor: generating a new population")

	result, err := s.bus.Query(ctx, message.GetSymbols{})
	if err != nil {
		return err
	}
	symbols, _ := result.([]model.Symbol)

	population := s.generator.Init(symbols)
	s.optimizer.Seed(population)

	s.queue <- eventGenerateComplete
	return nil
}

// runBacktest replays history through every candidate's squad, parallel_num
// at a time (System._run_backtest / _generate_batch_actors, fanned out with
// conc's context pool in place of asyncio.gather).
func (s *Supervisor) runBacktest(ctx context.Context) error {
	population := s.optimizer.Population()
	s.logger.Info("supervisor: running backtest", zap.Int("candidates", len(population)))

	for _, batch := range batches(population, s.cfg.ParallelNum) {
		p := pool.New().WithMaxGoroutines(s.cfg.ParallelNum).WithErrors().WithContext(ctx)
		for _, c := range batch {
			c := c
			p.Go(func(ctx context.Context) error { return s.processBacktest(ctx, c) })
		}
		if err := p.Wait(); err != nil {
			return err
		}
	}

	s.queue <- eventBacktestComplete
	return nil
}

// processBacktest mirrors System._process_backtest: start the squad,
// refresh the account, replay the candidate's history, stop the squad.
func (s *Supervisor) processBacktest(ctx context.Context, c Candidate) error {
	squad := s.squads.CreateSquad(c.Symbol, c.Timeframe, c.Strategy, false)
	squad.Start(s.bus)
	defer squad.Stop(s.bus)

	if err := s.refreshAccount(ctx); err != nil {
		return err
	}
	if err := s.replay(c.Symbol, c.Timeframe, s.cfg.Lookback); err != nil {
		return err
	}
	return s.bus.Wait(ctx)
}

// replay dispatches every stored bar for (symbol, timeframe) in order,
// ending with BacktestEnded (original_source/executor/_paper_actor.py's
// replay loop plus spec.md §4.3's OPEN -> CLOSING on data exhaustion). Bars
// and BacktestEnded share the squad's group, so the event pool's per-group
// FIFO ordering (spec.md §4.1) guarantees BacktestEnded is processed last.
func (s *Supervisor) replay(symbol model.Symbol, timeframe model.Timeframe, lookback int) error {
	bars := s.repo.Bars(symbol, timeframe)
	if lookback > 0 && len(bars) > lookback {
		bars = bars[len(bars)-lookback:]
	}
	if len(bars) == 0 {
		return nil
	}

	for _, bar := range bars {
		s.bus.Dispatch(message.NewMarketDataReceived{Symbol: symbol, Timeframe: timeframe, OHLCV: bar, Closed: true})
	}
	s.bus.Dispatch(message.BacktestEnded{
		Symbol: symbol, Timeframe: timeframe, ExitPrice: bars[len(bars)-1].Close,
	})
	return nil
}

// runOptimization mirrors System._run_optimization exactly: regenerate on
// no survivors, finish on optimizer.done, otherwise evolve and re-backtest.
func (s *Supervisor) runOptimization(ctx context.Context) error {
	s.logger.Info("supervisor: running optimization")

	result, err := s.bus.Query(ctx, message.GetTopStrategy{Num: s.cfg.ActiveStrategyNum, PositivePnL: true})
	if err != nil {
		return err
	}
	top, _ := result.([]strategystore.Key)

	if len(top) == 0 {
		s.logger.Info("supervisor: no survivors above the cluster threshold, regenerating")
		s.queue <- eventRegenerate
		return nil
	}

	if s.optimizer.Done() {
		s.logger.Info("supervisor: optimization complete")
		s.queue <- eventOptimizationComplete
		return nil
	}

	if err := s.optimizer.Optimize(); err != nil {
		return err
	}
	s.queue <- eventRunBacktest
	return nil
}

// runTrading mirrors System._run_trading: pull the active roster, spin up
// each squad's live-or-paper executor, apply leverage/margin settings,
// refresh the account once more, then subscribe the websocket feed to
// every selected (symbol, timeframe) pair. TRADING is terminal: nothing in
// this FSM moves it onward besides SYSTEM_STOP.
func (s *Supervisor) runTrading(ctx context.Context) error {
	s.logger.Info("supervisor: running trading")

	result, err := s.bus.Query(ctx, message.GetTopStrategy{Num: s.cfg.ActiveStrategyNum, PositivePnL: true})
	if err != nil {
		return err
	}
	top, _ := result.([]strategystore.Key)

	subs := make([]message.SquadSubscription, 0, len(top))
	for _, k := range top {
		squad := s.squads.CreateSquad(k.Symbol, k.Timeframe, k.Strategy, s.cfg.IsLive)
		squad.Start(s.bus)
		s.active = append(s.active, squad)

		if err := s.bus.Execute(ctx, message.UpdateSettings{
			Symbol: k.Symbol, PositionMode: "ONE_WAY", MarginMode: "ISOLATED", Leverage: s.cfg.Leverage,
		}); err != nil {
			s.logger.Warn("supervisor: update settings failed", zap.String("symbol", k.Symbol.Name), zap.Error(err))
		}
		subs = append(subs, message.SquadSubscription{Symbol: k.Symbol, Timeframe: k.Timeframe})
	}

	if err := s.refreshAccount(ctx); err != nil {
		return err
	}
	if err := s.bus.Execute(ctx, message.Subscribe{Squads: subs}); err != nil {
		s.logger.Warn("supervisor: subscribe failed", zap.Error(err))
	}
	return nil
}

// refreshAccount mirrors System._refresh_account.
func (s *Supervisor) refreshAccount(ctx context.Context) error {
	result, err := s.bus.Query(ctx, message.GetBalance{Currency: "USDT"})
	if err != nil {
		return err
	}
	balance, ok := result.(decimal.Decimal)
	if !ok {
		return nil
	}
	return s.bus.Execute(ctx, message.UpdateAccountSize{AccountSize: balance})
}

// batches splits candidates into parallelNum-sized groups, preserving
// order (System._generate_batch_actors's yield-every-parallel_num loop).
func batches(candidates []Candidate, parallelNum int) [][]Candidate {
	if parallelNum <= 0 {
		parallelNum = 1
	}
	var out [][]Candidate
	for i := 0; i < len(candidates); i += parallelNum {
		end := i + parallelNum
		if end > len(candidates) {
			end = len(candidates)
		}
		out = append(out, candidates[i:end])
	}
	return out
}

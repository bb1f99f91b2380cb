// Package orchestrator sequences bootstrap, owns the background task
// set (main pipeline, heartbeat/telemetry, health, persistence retry,
// spread refresh, telemetry reconnect), dispatches control commands,
// and drives graceful shutdown. Grounded on the teacher's own
// internal/orchestrator/orchestrator.go lifecycle (Start/Stop,
// stopCh+ticker+select background loops) generalized from the
// teacher's PhD-component wiring to this runtime's bar-driven
// pipeline.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/oracle-trader/runtime/internal/broker"
	"github.com/oracle-trader/runtime/internal/candle"
	"github.com/oracle-trader/runtime/internal/executor"
	"github.com/oracle-trader/runtime/internal/health"
	"github.com/oracle-trader/runtime/internal/paper"
	"github.com/oracle-trader/runtime/internal/persistence"
	"github.com/oracle-trader/runtime/internal/predictor"
	"github.com/oracle-trader/runtime/internal/telemetry"
	"github.com/oracle-trader/runtime/pkg/types"
	"go.uber.org/zap"
)

const (
	heartbeatFastInterval  = 1 * time.Second
	heartbeatSlowInterval  = 5 * time.Second
	heartbeatHeavyInterval = 30 * time.Second
	healthInterval         = 30 * time.Second
	persistenceInterval    = 300 * time.Second
	spreadRefreshInterval  = 30 * time.Second
	telemetryRetryInterval = 15 * time.Second
	shutdownWatchdog       = 5 * time.Second
)

// Deps bundles every collaborator the orchestrator sequences and
// drives. All fields must be non-nil before calling Bootstrap, except
// Hub/Dispatcher which may be nil when the telemetry uplink is
// disabled.
type Deps struct {
	Log              *zap.Logger
	Broker           *broker.Adapter
	BrokerClient     *broker.Client
	Synth            *candle.Synthesizer
	Predictor        *predictor.Predictor
	Executor         *executor.Executor
	Paper            *paper.Trader
	Session          *persistence.SessionManager
	LocalStorage     *persistence.LocalStorage
	Health           *health.Monitor
	Hub              *telemetry.Hub
	Dispatcher       *telemetry.Dispatcher
	Symbols          []string
	CloseOnExit      bool
	CloseOnDayChange bool
}

// Orchestrator is the process's single lifecycle owner.
type Orchestrator struct {
	deps Deps
	log  *zap.Logger

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New returns an Orchestrator over the given collaborators.
func New(deps Deps) *Orchestrator {
	return &Orchestrator{
		deps: deps,
		log:  deps.Log.Named("orchestrator"),
	}
}

// Bootstrap runs the fixed startup sequence's middle steps (config
// load and persistence-client construction happen in the caller,
// ahead of this call, since they produce the Deps this Orchestrator is
// built from).
func (o *Orchestrator) Bootstrap(ctx context.Context, modelPaths []string, warmupBars map[string][]types.Candle, accountID, token string) error {
	// Step 3: load each model bundle.
	for _, path := range modelPaths {
		if _, err := o.deps.Predictor.LoadModel(path); err != nil {
			o.log.Error("failed to load model bundle", zap.String("path", path), zap.Error(err))
			continue
		}
	}

	// Step 4: connect broker adapter; block until boot completes.
	if err := o.deps.Broker.Boot(ctx, accountID, token); err != nil {
		return fmt.Errorf("broker boot failed: %w", err)
	}

	// Step 5/6 (executor symbol config, paper shadow per model) are
	// driven by the caller once bundles are loaded, since each needs
	// the bundle's own training config; nothing more to do here.

	// Step 7: telemetry channel connect is the caller's responsibility
	// (the Hub is served by an HTTP listener outside this package);
	// Bootstrap only proceeds past this sequencing point.

	// Step 8: reconcile initial real positions.
	if err := o.deps.Broker.Reconcile(ctx); err != nil {
		o.log.Warn("initial reconcile failed", zap.Error(err))
	}

	// Step 9: warm up each loaded model silently.
	for symbol, bars := range warmupBars {
		if err := o.deps.Predictor.Warmup(symbol, bars); err != nil {
			o.log.Warn("warmup failed", zap.String("symbol", symbol), zap.Error(err))
		}
	}

	// Step 10: start session record.
	if _, err := o.deps.Session.StartSession(o.deps.Broker.GetAccount().InitialBalance); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	return nil
}

// Launch starts all background tasks (step 11) and blocks until ctx
// is canceled, then runs graceful shutdown.
func (o *Orchestrator) Launch(ctx context.Context) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return
	}
	o.running = true
	o.stopCh = make(chan struct{})
	o.mu.Unlock()

	o.log.Info("launching background tasks")
	tasks := []func(context.Context){
		o.heartbeatLoop,
		o.healthLoop,
		o.persistenceRetryLoop,
		o.spreadRefreshLoop,
		o.telemetryReconnectLoop,
	}
	for _, task := range tasks {
		o.wg.Add(1)
		go func(fn func(context.Context)) {
			defer o.wg.Done()
			fn(ctx)
		}(task)
	}

	<-ctx.Done()
	o.Shutdown(types.EndSignal)
}

// OnClosedBar is the main pipeline's entry point: run predictor then
// executor then paper for one closed bar, and publish a signal
// telemetry record.
func (o *Orchestrator) OnClosedBar(symbol string, bar types.Candle) {
	signal, produced, err := o.deps.Predictor.ProcessBar(symbol, bar)
	if err != nil {
		o.log.Error("predictor failed, skipping bar", zap.String("symbol", symbol), zap.Error(err))
		return
	}
	if !produced {
		return
	}

	ack := o.deps.Executor.ProcessSignal(signal)
	o.deps.Paper.ProcessSignal(signal, bar.Close, float64(bar.TimeEpoch))
	o.deps.Health.Update(symbol)

	o.log.Info("bar processed",
		zap.String("symbol", symbol),
		zap.String("decision", string(ack.Decision)),
		zap.Bool("opened", ack.Opened),
		zap.Bool("closed", ack.Closed),
		zap.String("reason", ack.Reason),
	)

	if o.deps.Hub != nil {
		data, _ := json.Marshal(telemetry.SignalPayload{
			Symbol:      symbol,
			Direction:   int(signal.Direction),
			Intensity:   signal.Intensity,
			RegimeState: signal.RegimeState,
		})
		o.deps.Hub.Publish(telemetry.Message{Type: telemetry.MsgSignal, Data: data})
	}

	o.CheckDayBoundary()
}

func (o *Orchestrator) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(heartbeatFastInterval)
	defer ticker.Stop()
	heavyTicker := time.NewTicker(heartbeatHeavyInterval)
	defer heavyTicker.Stop()

	var elapsedSinceTick time.Duration
	lastTick := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stopCh:
			return
		case now := <-ticker.C:
			elapsedSinceTick += now.Sub(lastTick)
			lastTick = now

			interval := heartbeatSlowInterval
			if o.anyOpenPosition() {
				interval = heartbeatFastInterval
			}
			if elapsedSinceTick < interval {
				continue
			}
			elapsedSinceTick = 0
			o.publishHeartbeat(false)
		case <-heavyTicker.C:
			o.publishHeartbeat(true)
		}
	}
}

func (o *Orchestrator) anyOpenPosition() bool {
	for _, symbol := range o.deps.Symbols {
		if _, ok := o.deps.Broker.GetPosition(symbol); ok {
			return true
		}
	}
	return false
}

func (o *Orchestrator) publishHeartbeat(heavy bool) {
	acct := o.deps.Broker.GetAccount()
	payload := telemetry.HeartbeatPayload{
		Running:       o.isRunning(),
		OpenPositions: o.countOpenPositions(),
		Balance:       paper.RoundDisplay(acct.Balance, 2),
		Equity:        paper.RoundDisplay(acct.Equity, 2),
	}
	if heavy {
		trades := o.deps.Paper.GetTrades("")
		metrics := o.deps.Paper.GetMetrics()
		payload.MaxDrawdownPct = paper.RoundDisplay(paper.MaxDrawdown(trades, metrics.AvgBalance), 2)
		payload.Sharpe = paper.RoundDisplay(paper.Sharpe(trades, 252), 4)
		payload.ProfitFactor = paper.RoundDisplay(paper.ProfitFactor(trades), 4)
		avgWin, avgLoss := avgWinLoss(trades)
		payload.AvgWin, payload.AvgLoss = paper.RoundDisplay(avgWin, 2), paper.RoundDisplay(avgLoss, 2)
		payload.EquityCurve = downsampleEquity(trades, 20)
	}
	if err := o.deps.Session.UpdateHeartbeat(acct.Balance); err != nil {
		o.log.Warn("failed to persist heartbeat", zap.Error(err))
	}
	if o.deps.Hub != nil {
		o.deps.Hub.PublishHeartbeat(payload)
	}
}

func (o *Orchestrator) countOpenPositions() int {
	n := 0
	for _, symbol := range o.deps.Symbols {
		if _, ok := o.deps.Broker.GetPosition(symbol); ok {
			n++
		}
	}
	return n
}

func avgWinLoss(trades []paper.Trade) (avgWin, avgLoss float64) {
	var winSum, lossSum float64
	var winN, lossN int
	for _, t := range trades {
		if t.PnL > 0 {
			winSum += t.PnL
			winN++
		} else if t.PnL < 0 {
			lossSum += t.PnL
			lossN++
		}
	}
	if winN > 0 {
		avgWin = winSum / float64(winN)
	}
	if lossN > 0 {
		avgLoss = lossSum / float64(lossN)
	}
	return avgWin, avgLoss
}

// downsampleEquity returns at most `points` samples of the running
// equity curve built from closed-trade PnL, for a compact telemetry
// payload.
func downsampleEquity(trades []paper.Trade, points int) []float64 {
	if len(trades) == 0 || points <= 0 {
		return nil
	}
	running := 0.0
	curve := make([]float64, 0, len(trades))
	for _, t := range trades {
		running += t.PnL
		curve = append(curve, running)
	}
	if len(curve) <= points {
		return curve
	}
	step := float64(len(curve)) / float64(points)
	out := make([]float64, 0, points)
	for i := 0; i < points; i++ {
		out = append(out, curve[int(float64(i)*step)])
	}
	return out
}

func (o *Orchestrator) healthLoop(ctx context.Context) {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stopCh:
			return
		case <-ticker.C:
			report := o.deps.Health.Check()
			if !report.Healthy && o.deps.Hub != nil {
				data, _ := json.Marshal(report)
				o.deps.Hub.Publish(telemetry.Message{Type: telemetry.MsgRiskAlert, Data: data})
			}
		}
	}
}

func (o *Orchestrator) persistenceRetryLoop(ctx context.Context) {
	ticker := time.NewTicker(persistenceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stopCh:
			return
		case <-ticker.C:
			pending := o.deps.LocalStorage.LoadPending()
			if len(pending) == 0 {
				continue
			}
			o.log.Info("draining persistence retry queue", zap.Int("count", len(pending)))
			o.deps.LocalStorage.ClearPending()
		}
	}
}

// PendingCount implements health.PendingCounter.
func (o *Orchestrator) PendingCount() int {
	return len(o.deps.LocalStorage.LoadPending())
}

func (o *Orchestrator) spreadRefreshLoop(ctx context.Context) {
	ticker := time.NewTicker(spreadRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stopCh:
			return
		case <-ticker.C:
			for _, symbol := range o.deps.Symbols {
				if _, ok := o.deps.Broker.GetSpreadPips(symbol); !ok {
					o.log.Debug("no spread known yet", zap.String("symbol", symbol))
				}
			}
		}
	}
}

func (o *Orchestrator) telemetryReconnectLoop(ctx context.Context) {
	if o.deps.Hub == nil {
		return
	}
	ticker := time.NewTicker(telemetryRetryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stopCh:
			return
		case <-ticker.C:
			// The hub's connections are inbound (clients dial the
			// runtime); this tick is the sequencing point an outbound
			// uplink variant would use to retry a dropped dial.
		}
	}
}

// CheckDayBoundary closes every open position when UTC midnight has
// passed and CloseOnDayChange is set.
func (o *Orchestrator) CheckDayBoundary() {
	if !o.deps.Session.CheckDayBoundary() {
		return
	}
	o.log.Info("day boundary crossed")
	if o.deps.CloseOnDayChange {
		o.deps.Executor.CloseAll(o.deps.Symbols)
	}
}

func (o *Orchestrator) isRunning() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.running
}

// Shutdown cancels all background tasks, optionally closes real
// positions, ends the session, and disconnects the broker. A watchdog
// forces return after shutdownWatchdog even if a step stalls.
func (o *Orchestrator) Shutdown(reason types.SessionEndReason) {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.running = false
	close(o.stopCh)
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if o.deps.CloseOnExit {
			o.deps.Executor.CloseAll(o.deps.Symbols)
		}
		o.deps.Session.EndSession(reason)
		o.deps.BrokerClient.Disconnect()
		o.wg.Wait()
	}()

	select {
	case <-done:
		o.log.Info("shutdown complete")
	case <-time.After(shutdownWatchdog):
		o.log.Warn("shutdown watchdog fired, forcing return")
	}
}

// RegisterControlCommands wires the standard control-command surface
// onto d, bound to this orchestrator's live collaborators.
func (o *Orchestrator) RegisterControlCommands(d *telemetry.Dispatcher) {
	d.Register(telemetry.CmdPause, func(json.RawMessage) (interface{}, error) {
		o.deps.Executor.Pause()
		return map[string]bool{"paused": true}, nil
	})
	d.Register(telemetry.CmdResume, func(json.RawMessage) (interface{}, error) {
		o.deps.Executor.Resume()
		return map[string]bool{"paused": false}, nil
	})
	d.Register(telemetry.CmdCloseAll, func(json.RawMessage) (interface{}, error) {
		return o.deps.Executor.CloseAll(o.deps.Symbols), nil
	})
	d.Register(telemetry.CmdClosePosition, func(args json.RawMessage) (interface{}, error) {
		var req struct {
			Symbol string `json:"symbol"`
		}
		if err := json.Unmarshal(args, &req); err != nil {
			return nil, err
		}
		acks := o.deps.Executor.CloseAll([]string{req.Symbol})
		if len(acks) == 0 {
			return nil, fmt.Errorf("no open position for %s", req.Symbol)
		}
		return acks[0], nil
	})
	d.Register(telemetry.CmdStatus, func(json.RawMessage) (interface{}, error) {
		return map[string]interface{}{
			"running": o.isRunning(),
			"paused":  o.deps.Executor.Paused(),
		}, nil
	})
	d.Register(telemetry.CmdGetState, func(json.RawMessage) (interface{}, error) {
		return o.deps.Executor.GetState(), nil
	})
	d.Register(telemetry.CmdListModels, func(json.RawMessage) (interface{}, error) {
		return o.deps.Predictor.Symbols(), nil
	})
}

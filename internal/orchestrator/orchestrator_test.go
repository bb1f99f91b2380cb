package orchestrator

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/oracle-trader/runtime/internal/broker"
	"github.com/oracle-trader/runtime/internal/executor"
	"github.com/oracle-trader/runtime/internal/health"
	"github.com/oracle-trader/runtime/internal/paper"
	"github.com/oracle-trader/runtime/internal/persistence"
	"github.com/oracle-trader/runtime/internal/predictor"
	"github.com/oracle-trader/runtime/internal/telemetry"
	"github.com/oracle-trader/runtime/pkg/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func telemetryCommand(t *testing.T, command string) telemetry.Message {
	t.Helper()
	cmd := telemetry.CommandPayload{Command: command}
	data, err := json.Marshal(cmd)
	require.NoError(t, err)
	return telemetry.Message{Type: telemetry.MsgCommand, Data: data}
}

// stubCodec satisfies broker.MessageCodec with no-op behavior; tests in
// this package never exercise a live wire round trip, only the
// orchestrator's sequencing and its own collaborators' local state.
type stubCodec struct{}

func (stubCodec) EncodeAuth(accountID, token string) []byte    { return nil }
func (stubCodec) EncodeSymbolListRequest() []byte              { return nil }
func (stubCodec) DecodeSymbolList(payload []byte) ([]types.SymbolDescriptor, error) {
	return nil, nil
}
func (stubCodec) EncodeHistoryRequest(symbol string, periodCode int, fromEpoch, toEpoch int64) []byte {
	return nil
}
func (stubCodec) DecodeHistoryResponse(payload []byte) ([]types.Candle, error) { return nil, nil }
func (stubCodec) EncodeSubscribeSpot(symbol string) []byte                     { return nil }
func (stubCodec) DecodeSpotEvent(payload []byte) (types.Tick, error)           { return types.Tick{}, nil }
func (stubCodec) EncodeNewOrder(req executor.OrderRequest) []byte              { return nil }
func (stubCodec) DecodeOrderResult(payload []byte) (executor.OrderResult, error) {
	return executor.OrderResult{}, nil
}
func (stubCodec) EncodeClosePosition(ticket int64) []byte { return nil }
func (stubCodec) DecodeCloseResult(payload []byte) (executor.OrderResult, error) {
	return executor.OrderResult{}, nil
}
func (stubCodec) EncodeAmendPosition(ticket int64, stopPrice, takePrice float64) []byte { return nil }
func (stubCodec) EncodeReconcileRequest() []byte                                        { return nil }
func (stubCodec) DecodeReconcileReply(payload []byte) ([]types.RealPosition, error) {
	return nil, nil
}
func (stubCodec) EncodeDealsRequest(fromEpoch, toEpoch int64) []byte { return nil }
func (stubCodec) DecodeDealsReply(payload []byte) ([]broker.Deal, error) {
	return nil, nil
}
func (stubCodec) DecodeExecutionEvent(payload []byte) (broker.ExecutionEvent, error) {
	return broker.ExecutionEvent{}, nil
}

func newTestOrchestrator(t *testing.T, symbols []string) *Orchestrator {
	t.Helper()
	log := zap.NewNop()

	client := broker.NewClient(log, "localhost", 0)
	adapter := broker.NewAdapter(log, client, stubCodec{})

	lotMapper := executor.NewLotMapper(map[string]*types.SymbolConfig{})
	riskGate := executor.NewRiskGate(executor.RiskGateConfig{
		DrawdownLimitPct: 5, EmergencyStopPct: 10, MaxConsecutiveLoss: 3,
	})
	exec := executor.New(log, adapter, lotMapper, riskGate)

	return New(Deps{
		Log:          log,
		Broker:       adapter,
		BrokerClient: client,
		Predictor:    predictor.New(log, predictor.Pipeline{}),
		Executor:     exec,
		Paper:        paper.NewTrader(log, 10000),
		Session:      persistence.NewSessionManager(log, t.TempDir()),
		LocalStorage: persistence.NewLocalStorage(log, t.TempDir()),
		Health:       health.NewMonitor(log, time.Now(), adapter, nil, nil),
		Symbols:      symbols,
	})
}

func TestAvgWinLossSplitsSignsCorrectly(t *testing.T) {
	trades := []paper.Trade{{PnL: 10}, {PnL: -4}, {PnL: 20}, {PnL: -6}}
	win, loss := avgWinLoss(trades)
	require.InDelta(t, 15.0, win, 1e-9)
	require.InDelta(t, -5.0, loss, 1e-9)
}

func TestDownsampleEquityReturnsFullCurveWhenShort(t *testing.T) {
	trades := []paper.Trade{{PnL: 10}, {PnL: -5}}
	curve := downsampleEquity(trades, 20)
	require.Equal(t, []float64{10, 5}, curve)
}

func TestDownsampleEquityCapsAtRequestedPoints(t *testing.T) {
	trades := make([]paper.Trade, 100)
	for i := range trades {
		trades[i] = paper.Trade{PnL: 1}
	}
	curve := downsampleEquity(trades, 10)
	require.Len(t, curve, 10)
}

func TestRegisterControlCommandsPauseResumeRoundTrip(t *testing.T) {
	o := newTestOrchestrator(t, []string{"EURUSD"})
	d := telemetry.NewDispatcher()
	o.RegisterControlCommands(d)

	result := d.Dispatch(telemetryCommand(t, telemetry.CmdPause))
	require.True(t, result.OK)
	require.True(t, o.deps.Executor.Paused())

	result = d.Dispatch(telemetryCommand(t, telemetry.CmdResume))
	require.True(t, result.OK)
	require.False(t, o.deps.Executor.Paused())
}

func TestRegisterControlCommandsStatusReportsPauseState(t *testing.T) {
	o := newTestOrchestrator(t, []string{"EURUSD"})
	d := telemetry.NewDispatcher()
	o.RegisterControlCommands(d)

	o.deps.Executor.Pause()
	result := d.Dispatch(telemetryCommand(t, telemetry.CmdStatus))
	require.True(t, result.OK)
	require.Contains(t, string(result.Result), `"paused":true`)
}

func TestCheckDayBoundaryDoesNotFireOnSessionStartDay(t *testing.T) {
	o := newTestOrchestrator(t, []string{"EURUSD"})
	o.deps.CloseOnDayChange = true
	_, err := o.deps.Session.StartSession(10000)
	require.NoError(t, err)

	o.CheckDayBoundary() // StartSession already stored today's boundary, so no crossing is seen
	require.False(t, o.deps.Session.CheckDayBoundary())
}

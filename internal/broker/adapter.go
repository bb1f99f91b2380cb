// Adapter turns the raw correlated Client into the domain operations
// the rest of the runtime needs: boot sequence, history fetch,
// subscription, order placement/close/amend, reconciliation, and the
// live caches (symbol descriptors, last quote, open positions, account
// state) that let internal/executor read broker state synchronously.
// The wire message bodies themselves are opaque []byte the caller's
// MessageCodec (outside this runtime's control, since it encodes the
// trading server's actual schema) marshals and unmarshals.
package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oracle-trader/runtime/internal/errs"
	"github.com/oracle-trader/runtime/internal/executor"
	"github.com/oracle-trader/runtime/pkg/types"
	"go.uber.org/zap"
)

// ExecutionEvent is an unsolicited fill/rejection/stop-out notification
// from the trading server, decoded by the codec and handed to whatever
// the orchestrator wires as the fill handler.
type ExecutionEvent struct {
	Symbol    string
	Ticket    int64
	Kind      string // "FILLED", "REJECTED", "CLOSED", "STOPPED_OUT"
	Price     float64
	Volume    float64
	PnL       float64
	Comment   string
}

// Deal is one historical execution record, as returned by a deals
// query (FetchDeals).
type Deal struct {
	Ticket    int64
	Symbol    string
	Direction types.Direction
	Volume    float64
	Price     float64
	PnL       float64
	Comment   string
	ClosedAt  time.Time
}

// MessageCodec marshals/unmarshals the trading server's actual wire
// schema. A concrete deployment supplies one; this package only
// orchestrates request/response pairing and caching around it.
type MessageCodec interface {
	EncodeAuth(accountID, token string) []byte
	EncodeSymbolListRequest() []byte
	DecodeSymbolList(payload []byte) ([]types.SymbolDescriptor, error)
	EncodeHistoryRequest(symbol string, periodCode int, fromEpoch, toEpoch int64) []byte
	DecodeHistoryResponse(payload []byte) ([]types.Candle, error)
	EncodeSubscribeSpot(symbol string) []byte
	DecodeSpotEvent(payload []byte) (types.Tick, error)
	EncodeNewOrder(req executor.OrderRequest) []byte
	DecodeOrderResult(payload []byte) (executor.OrderResult, error)
	EncodeClosePosition(ticket int64) []byte
	DecodeCloseResult(payload []byte) (executor.OrderResult, error)
	EncodeAmendPosition(ticket int64, stopPrice, takePrice float64) []byte
	EncodeReconcileRequest() []byte
	DecodeReconcileReply(payload []byte) ([]types.RealPosition, error)
	EncodeDealsRequest(fromEpoch, toEpoch int64) []byte
	DecodeDealsReply(payload []byte) ([]Deal, error)
	DecodeExecutionEvent(payload []byte) (ExecutionEvent, error)
}

// Adapter is the concrete executor.BrokerPort implementation backed by
// a live Client.
type Adapter struct {
	log     *zap.Logger
	client  *Client
	codec   MessageCodec
	symbols *symbolRegistry
	quotes  *quoteCache
	positions *positionCache

	mu      sync.RWMutex
	account executor.AccountState

	spreadMu sync.RWMutex
	spreadPips map[string]float64

	onTick      func(types.Tick)
	onExecution func(ExecutionEvent)
}

// NewAdapter wires an Adapter around a connected Client.
func NewAdapter(log *zap.Logger, client *Client, codec MessageCodec) *Adapter {
	a := &Adapter{
		log:        log.Named("broker.adapter"),
		client:     client,
		codec:      codec,
		symbols:    newSymbolRegistry(),
		quotes:     newQuoteCache(),
		positions:  newPositionCache(),
		spreadPips: make(map[string]float64),
	}
	client.OnEvent(a.handleEvent)
	return a
}

// OnTick registers the handler invoked for every decoded spot price
// event, which the candle synthesizer consumes.
func (a *Adapter) OnTick(fn func(types.Tick)) { a.onTick = fn }

// OnExecution registers the handler invoked for fill/reject/close events.
func (a *Adapter) OnExecution(fn func(ExecutionEvent)) { a.onExecution = fn }

func (a *Adapter) handleEvent(env types.Envelope) {
	switch env.PayloadType {
	case payloadTypeSpotEvent:
		tick, err := a.codec.DecodeSpotEvent(env.Payload)
		if err != nil {
			a.log.Warn("decode spot event", zap.Error(err))
			return
		}
		a.quotes.set(tick)
		if tick.Ask > tick.Bid {
			pointSize := 0.00001
			if desc, ok := a.symbols.get(tick.Symbol); ok && desc.PointSize > 0 {
				pointSize = desc.PointSize
			}
			a.spreadMu.Lock()
			a.spreadPips[tick.Symbol] = (tick.Ask - tick.Bid) / pointSize / 10
			a.spreadMu.Unlock()
		}
		if a.onTick != nil {
			a.onTick(tick)
		}
	case payloadTypeExecutionEvent:
		ev, err := a.codec.DecodeExecutionEvent(env.Payload)
		if err != nil {
			a.log.Warn("decode execution event", zap.Error(err))
			return
		}
		a.applyExecutionEvent(ev)
		if a.onExecution != nil {
			a.onExecution(ev)
		}
	default:
		a.log.Debug("unhandled event payload type", zap.Uint32("type", env.PayloadType))
	}
}

func (a *Adapter) applyExecutionEvent(ev ExecutionEvent) {
	switch ev.Kind {
	case "CLOSED", "STOPPED_OUT":
		a.positions.clear(ev.Symbol)
	case "FILLED":
		a.positions.set(&types.RealPosition{
			Ticket: ev.Ticket, Symbol: ev.Symbol, VolumeLots: ev.Volume,
			OpenPrice: ev.Price, Comment: ev.Comment,
		})
	}
}

// Boot runs the login-then-symbol-list bootstrap sequence.
func (a *Adapter) Boot(ctx context.Context, accountID, token string) error {
	if _, err := a.client.SendRequest(ctx, payloadTypeAuth, a.codec.EncodeAuth(accountID, token)); err != nil {
		return errs.Wrap(errs.CodeAuthentication, "auth request failed", err)
	}
	env, err := a.client.SendRequest(ctx, payloadTypeSymbolList, a.codec.EncodeSymbolListRequest())
	if err != nil {
		return errs.Wrap(errs.CodeConnection, "symbol list request failed", err)
	}
	descs, err := a.codec.DecodeSymbolList(env.Payload)
	if err != nil {
		return errs.Wrap(errs.CodeProtocol, "decode symbol list", err)
	}
	a.symbols.set(descs)
	a.log.Info("boot complete", zap.Int("symbols", len(descs)))
	return nil
}

// FetchHistory requests historical bars for warmup.
func (a *Adapter) FetchHistory(ctx context.Context, symbol string, periodCode int, fromEpoch, toEpoch int64) ([]types.Candle, error) {
	env, err := a.client.SendRequest(ctx, payloadTypeHistoryRequest, a.codec.EncodeHistoryRequest(symbol, periodCode, fromEpoch, toEpoch))
	if err != nil {
		return nil, errs.Wrap(errs.CodeConnection, "history request failed", err)
	}
	bars, err := a.codec.DecodeHistoryResponse(env.Payload)
	if err != nil {
		return nil, errs.Wrap(errs.CodeProtocol, "decode history response", err)
	}
	return bars, nil
}

// SubscribeSpot subscribes to live tick updates for a symbol.
func (a *Adapter) SubscribeSpot(symbol string) error {
	return a.client.SendCommand(payloadTypeSubscribeSpot, a.codec.EncodeSubscribeSpot(symbol))
}

// Reconcile replaces the position cache with the broker's own record.
// The orchestrator calls it once, during bootstrap.
func (a *Adapter) Reconcile(ctx context.Context) error {
	env, err := a.client.SendRequest(ctx, payloadTypeReconcile, a.codec.EncodeReconcileRequest())
	if err != nil {
		return errs.Wrap(errs.CodeConnection, "reconcile request failed", err)
	}
	positions, err := a.codec.DecodeReconcileReply(env.Payload)
	if err != nil {
		return errs.Wrap(errs.CodeProtocol, "decode reconcile reply", err)
	}
	a.positions.reconcile(positions)
	return nil
}

// FetchDeals returns historical deals in a time range. The bootstrap
// and session-recovery paths do not call it.
func (a *Adapter) FetchDeals(ctx context.Context, fromEpoch, toEpoch int64) ([]Deal, error) {
	env, err := a.client.SendRequest(ctx, payloadTypeDealsRequest, a.codec.EncodeDealsRequest(fromEpoch, toEpoch))
	if err != nil {
		return nil, errs.Wrap(errs.CodeConnection, "deals request failed", err)
	}
	deals, err := a.codec.DecodeDealsReply(env.Payload)
	if err != nil {
		return nil, errs.Wrap(errs.CodeProtocol, "decode deals reply", err)
	}
	return deals, nil
}

// AmendPosition updates an open position's stop/take levels.
func (a *Adapter) AmendPosition(ctx context.Context, ticket int64, stopPrice, takePrice float64) error {
	return a.client.SendCommand(payloadTypeAmendPosition, a.codec.EncodeAmendPosition(ticket, stopPrice, takePrice))
}

// SetAccount replaces the cached account snapshot that GetAccount
// returns. The adapter never refreshes this snapshot itself: spot and
// execution events leave balance and equity unchanged.
func (a *Adapter) SetAccount(acct executor.AccountState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.account = acct
}

// --- executor.BrokerPort ---

// IsConnected implements health.ConnectivityProbe.
func (a *Adapter) IsConnected() bool {
	return a.client.IsConnected()
}

// SymbolInfo implements executor.SymbolInfoSource.
func (a *Adapter) SymbolInfo(symbol string) (types.SymbolDescriptor, bool) {
	return a.symbols.get(symbol)
}

// GetPosition implements executor.BrokerPort.
func (a *Adapter) GetPosition(symbol string) (*types.RealPosition, bool) {
	return a.positions.get(symbol)
}

// GetAccount implements executor.BrokerPort.
func (a *Adapter) GetAccount() executor.AccountState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.account
}

// GetSpreadPips implements executor.BrokerPort.
func (a *Adapter) GetSpreadPips(symbol string) (float64, bool) {
	a.spreadMu.RLock()
	defer a.spreadMu.RUnlock()
	v, ok := a.spreadPips[symbol]
	return v, ok
}

// LastQuote implements executor.BrokerPort.
func (a *Adapter) LastQuote(symbol string) (types.Tick, bool) {
	return a.quotes.get(symbol)
}

// OpenOrder implements executor.BrokerPort, blocking for the server's
// accept/reject reply on a background context since the executor's own
// call site doesn't carry one.
func (a *Adapter) OpenOrder(req executor.OrderRequest) executor.OrderResult {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	env, err := a.client.SendRequest(ctx, payloadTypeNewOrder, a.codec.EncodeNewOrder(req))
	if err != nil {
		return executor.OrderResult{OK: false, Reason: err.Error()}
	}
	res, err := a.codec.DecodeOrderResult(env.Payload)
	if err != nil {
		return executor.OrderResult{OK: false, Reason: fmt.Sprintf("decode order result: %v", err)}
	}
	if res.OK {
		a.positions.set(&types.RealPosition{
			Ticket: res.Ticket, Symbol: req.Symbol, Direction: req.Direction,
			VolumeLots: req.Volume, StopPrice: req.StopPrice, TakePrice: req.TakePrice,
			Comment: req.Comment,
		})
	}
	return res
}

// CloseOrder implements executor.BrokerPort.
func (a *Adapter) CloseOrder(ticket int64) executor.OrderResult {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	env, err := a.client.SendRequest(ctx, payloadTypeClosePosition, a.codec.EncodeClosePosition(ticket))
	if err != nil {
		return executor.OrderResult{OK: false, Reason: err.Error()}
	}
	res, err := a.codec.DecodeCloseResult(env.Payload)
	if err != nil {
		return executor.OrderResult{OK: false, Reason: fmt.Sprintf("decode close result: %v", err)}
	}
	return res
}

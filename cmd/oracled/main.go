// Command oracled is the trading runtime's entry point: it loads the
// YAML runtime config, wires every collaborator (broker, candle
// synthesizer, predictor, executor, paper shadow, persistence, health,
// telemetry), runs the orchestrator's bootstrap sequence, and blocks
// until an interrupt or terminate signal triggers graceful shutdown.
// Grounded on the teacher's cmd/server/main.go flag/logger/shutdown
// pattern, rebuilt around this runtime's own collaborator graph.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/oracle-trader/runtime/internal/broker"
	"github.com/oracle-trader/runtime/internal/candle"
	"github.com/oracle-trader/runtime/internal/config"
	"github.com/oracle-trader/runtime/internal/executor"
	"github.com/oracle-trader/runtime/internal/health"
	"github.com/oracle-trader/runtime/internal/orchestrator"
	"github.com/oracle-trader/runtime/internal/paper"
	"github.com/oracle-trader/runtime/internal/persistence"
	"github.com/oracle-trader/runtime/internal/predictor"
	"github.com/oracle-trader/runtime/internal/telemetry"
	"github.com/oracle-trader/runtime/pkg/ctypes"
	"github.com/oracle-trader/runtime/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Runtime config file")
	logLevel := flag.String("log-level", "", "Log level override (debug, info, warn, error)")
	dryRun := flag.Bool("dry-run", false, "Wire every collaborator but skip the live broker connect")
	dataDir := flag.String("data", "./data", "Session state, retry queue, and bar cache directory")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	level := cfg.Logging.Level
	if *logLevel != "" {
		level = *logLevel
	}
	logger := setupLogger(level, cfg.Logging.LogFile)
	defer logger.Sync()

	logger.Info("starting oracled",
		zap.String("config", *configPath),
		zap.String("broker_type", cfg.Broker.Type),
		zap.String("timeframe", cfg.Timeframe),
		zap.Bool("dry_run", *dryRun),
	)

	codec, err := newMessageCodec(cfg)
	if err != nil {
		logger.Fatal("broker wire codec not wired", zap.Error(err))
	}
	pipeline, err := newPipeline(cfg)
	if err != nil {
		logger.Fatal("inference pipeline not wired", zap.Error(err))
	}

	timeframeSeconds, ok := ctypes.TimeframeSeconds[ctypes.Timeframe(cfg.Timeframe)]
	if !ok {
		logger.Fatal("unknown timeframe in config", zap.String("timeframe", cfg.Timeframe))
	}
	periodCode, ok := ctypes.TimeframeToPeriod[ctypes.Timeframe(cfg.Timeframe)]
	if !ok {
		logger.Fatal("no broker period code for timeframe", zap.String("timeframe", cfg.Timeframe))
	}

	reg := prometheus.NewRegistry()

	sessions := persistence.NewSessionManager(logger, *dataDir)
	localStorage := persistence.NewLocalStorage(logger, *dataDir)

	client := broker.NewClient(logger, brokerHost(cfg.Broker.Environment), brokerPort)
	adapter := broker.NewAdapter(logger, client, codec)
	adapter.SetAccount(executor.AccountState{
		Balance:        cfg.InitialBalance,
		Equity:         cfg.InitialBalance,
		FreeMargin:     cfg.InitialBalance,
		InitialBalance: cfg.InitialBalance,
	})

	symbolConfigs, riskCfg, err := executor.LoadSymbolConfigs(cfg.Executor.ConfigFile)
	if err != nil {
		logger.Warn("failed to load symbol configs, starting with an empty set and default risk thresholds",
			zap.String("file", cfg.Executor.ConfigFile), zap.Error(err))
		symbolConfigs = map[string]*types.SymbolConfig{}
		riskCfg = executor.RiskGateConfig{DrawdownLimitPct: 5, EmergencyStopPct: 10, MaxConsecutiveLoss: 3}
	}
	lotMapper := executor.NewLotMapper(symbolConfigs)
	riskGate := executor.NewRiskGate(riskCfg)
	exec := executor.New(logger, adapter, lotMapper, riskGate)

	synth := candle.New(timeframeSeconds)
	pred := predictor.New(logger, pipeline)
	paperTrader := paper.NewTrader(logger, cfg.InitialBalance)

	monitor := health.NewMonitor(logger, time.Now(), adapter, localStorage, reg)

	var hub *telemetry.Hub
	dispatcher := telemetry.NewDispatcher()
	if cfg.Hub.Enabled {
		hub = telemetry.NewHub(logger, dispatcher)
	}

	deps := orchestrator.Deps{
		Log:              logger,
		Broker:           adapter,
		BrokerClient:     client,
		Synth:            synth,
		Predictor:        pred,
		Executor:         exec,
		Paper:            paperTrader,
		Session:          sessions,
		LocalStorage:     localStorage,
		Health:           monitor,
		Hub:              hub,
		Dispatcher:       dispatcher,
		CloseOnExit:      cfg.CloseOnExit,
		CloseOnDayChange: cfg.CloseOnDayChange,
	}

	modelPaths, err := filepath.Glob(filepath.Join(cfg.Predictor.ModelsDir, "*.zip"))
	if err != nil {
		logger.Fatal("glob model bundles", zap.Error(err))
	}

	var symbols []string
	for _, path := range modelPaths {
		sym, err := pred.LoadModel(path)
		if err != nil {
			logger.Error("failed to load model bundle", zap.String("path", path), zap.Error(err))
			continue
		}
		tc := sym.Bundle.Metadata.TrainingConfig
		paperTrader.LoadConfig(sym.Name, paper.CostModel{
			SpreadPoints:     tc.SpreadPoints,
			SlippagePoints:   tc.SlippagePoints,
			CommissionPerLot: tc.CommissionPerLot,
			Point:            tc.Point,
			PipValue:         tc.PipValue,
			Digits:           tc.Digits,
			LotSizes:         tc.LotSizes,
		})
		synth.Register(sym.Name)
		symbols = append(symbols, sym.Name)
	}
	deps.Symbols = symbols
	orch := orchestrator.New(deps)
	orch.RegisterControlCommands(dispatcher)

	adapter.OnTick(func(tick types.Tick) {
		bar, closed := synth.OnTick(tick.Symbol, tick.TimeEpoch, tick.Bid, tick.Ask, tick.Volume)
		if closed {
			orch.OnClosedBar(tick.Symbol, bar)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *dryRun {
		logger.Info("dry-run: skipping live broker connect", zap.Strings("symbols", symbols))
	} else {
		if err := client.Connect(ctx); err != nil {
			logger.Fatal("broker connect failed", zap.Error(err))
		}

		warmupBars := make(map[string][]types.Candle, len(symbols))
		now := time.Now().Unix() * 1000
		warmupSpan := int64(cfg.Predictor.WarmupBars) * timeframeSeconds * 1000
		for _, sym := range symbols {
			bars, err := adapter.FetchHistory(ctx, sym, periodCode, now-warmupSpan, now)
			if err != nil {
				logger.Warn("warmup history fetch failed", zap.String("symbol", sym), zap.Error(err))
				continue
			}
			warmupBars[sym] = bars
		}

		// Model bundles were already loaded above (needed to know the
		// symbol set before fetching warmup history), so Bootstrap's own
		// load step is a no-op here.
		if err := orch.Bootstrap(ctx, nil, warmupBars, cfg.Broker.AccountID, cfg.Broker.AccessToken); err != nil {
			logger.Fatal("bootstrap failed", zap.Error(err))
		}
		for _, sym := range symbols {
			if err := adapter.SubscribeSpot(sym); err != nil {
				logger.Error("subscribe failed", zap.String("symbol", sym), zap.Error(err))
			}
		}
	}

	if hub != nil {
		go hub.Run(ctx.Done())
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		mux.HandleFunc("/telemetry", func(w http.ResponseWriter, r *http.Request) {
			if cfg.Hub.Token != "" && r.URL.Query().Get("token") != cfg.Hub.Token {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			conn, err := telemetry.Upgrader.Upgrade(w, r, nil)
			if err != nil {
				logger.Warn("telemetry upgrade failed", zap.Error(err))
				return
			}
			hub.ServeClient(conn)
		})
		srv := &http.Server{Addr: cfg.Hub.URL, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("telemetry server stopped", zap.Error(err))
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	launchDone := make(chan struct{})
	go func() {
		orch.Launch(ctx)
		close(launchDone)
	}()

	<-sigCh
	logger.Info("shutdown signal received")
	cancel()
	<-launchDone

	logger.Info("oracled stopped")
}

// brokerPort is the trading server's raw-protocol port, grounded on
// raw_client.py's CTraderConnector (host:5035 regardless of environment).
const brokerPort = 5035

// brokerHost maps the configured environment to the trading server's
// host, grounded on CTraderConnector.__init__'s demo/live host split.
func brokerHost(environment string) string {
	if environment == "live" {
		return "live.ctraderapi.com"
	}
	return "demo.ctraderapi.com"
}

// newMessageCodec returns the concrete wire-schema codec for the
// configured broker type. The trading server's actual protobuf schema
// is not part of this repository — the original Python connector leans
// on the external ctrader_open_api package for the same reason
// (connector/ctrader/messages.py imports ProtoOA* message classes from
// it rather than defining them) — so a deployment supplies its own
// codec package and wires it in here before building this binary.
func newMessageCodec(cfg *config.Config) (broker.MessageCodec, error) {
	switch cfg.Broker.Type {
	default:
		return nil, fmt.Errorf("no MessageCodec wired for broker type %q; see internal/broker.MessageCodec", cfg.Broker.Type)
	}
}

// newPipeline returns the inference callbacks for the predictor. The
// regime/policy weights, and the feature formulas that must reproduce
// training arithmetic bit-for-bit, are trained artifacts that live
// outside this repository (see internal/predictor's package doc) — a
// deployment supplies its own implementations here before building.
func newPipeline(cfg *config.Config) (predictor.Pipeline, error) {
	return predictor.Pipeline{}, fmt.Errorf("no inference pipeline wired for models dir %q; see internal/predictor.Pipeline", cfg.Predictor.ModelsDir)
}

func setupLogger(level, logFile string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	outputs := []string{"stdout"}
	if logFile != "" {
		outputs = append(outputs, logFile)
	}

	zapCfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Encoding:    "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapCfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}
	return logger
}

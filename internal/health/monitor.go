// Package health tracks per-symbol bar-arrival liveness, process
// memory usage, connector connectivity, and the persistence retry
// queue depth, folding them into a single healthy/unhealthy verdict.
// Grounded on original_source/orchestrator/health.py.
package health

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// HeartbeatTimeout is how long a symbol may go without a bar before
// it's flagged stale; wide enough to absorb M15+ delivery delays.
const HeartbeatTimeout = 1200 * time.Second

// MemoryWarnMB is the resident-set-size threshold above which a
// memory-pressure issue is reported.
const MemoryWarnMB = 1000.0

// ConnectivityProbe reports whether the upstream broker connection is
// currently alive.
type ConnectivityProbe interface {
	IsConnected() bool
}

// PendingCounter reports how many records are queued for retry.
type PendingCounter interface {
	PendingCount() int
}

// Report is the outcome of a single Check.
type Report struct {
	Healthy  bool
	Issues   []string
	MemoryMB float64
	UptimeS  float64
}

// Monitor aggregates liveness signals from across the running system.
type Monitor struct {
	log        *zap.Logger
	startTime  time.Time
	connector  ConnectivityProbe
	persistence PendingCounter

	mu         sync.Mutex
	heartbeats map[string]time.Time

	memoryGauge     prometheus.Gauge
	healthyGauge    prometheus.Gauge
	pendingGauge    prometheus.Gauge
	heartbeatGauge  *prometheus.GaugeVec
}

// NewMonitor returns a Monitor wired to the given connectivity and
// persistence-depth sources, registering its metrics on reg.
func NewMonitor(log *zap.Logger, startTime time.Time, connector ConnectivityProbe, persistence PendingCounter, reg prometheus.Registerer) *Monitor {
	m := &Monitor{
		log:         log.Named("health"),
		startTime:   startTime,
		connector:   connector,
		persistence: persistence,
		heartbeats:  make(map[string]time.Time),
		memoryGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "oracle_process_memory_mb",
			Help: "Resident set size of the running process, in megabytes.",
		}),
		healthyGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "oracle_health_status",
			Help: "1 if the last health check found no issues, 0 otherwise.",
		}),
		pendingGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "oracle_persistence_pending",
			Help: "Number of records queued in the persistence retry queue.",
		}),
		heartbeatGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "oracle_symbol_heartbeat_age_seconds",
			Help: "Seconds since the last bar was observed for a symbol.",
		}, []string{"symbol"}),
	}
	if reg != nil {
		reg.MustRegister(m.memoryGauge, m.healthyGauge, m.pendingGauge, m.heartbeatGauge)
	}
	return m
}

// Update records a fresh bar arrival for symbol.
func (m *Monitor) Update(symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.heartbeats[symbol] = time.Now()
}

// ResetSymbol clears a symbol's heartbeat, e.g. on unsubscribe.
func (m *Monitor) ResetSymbol(symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.heartbeats, symbol)
	m.heartbeatGauge.DeleteLabelValues(symbol)
}

// Check runs the full liveness sweep and returns a Report, updating
// the exported gauges as a side effect.
func (m *Monitor) Check() Report {
	var issues []string
	now := time.Now()

	if m.connector != nil && !m.connector.IsConnected() {
		issues = append(issues, "connector disconnected")
	}

	m.mu.Lock()
	for symbol, last := range m.heartbeats {
		elapsed := now.Sub(last)
		m.heartbeatGauge.WithLabelValues(symbol).Set(elapsed.Seconds())
		if elapsed > HeartbeatTimeout {
			issues = append(issues, symbol+": no heartbeat for "+strconv.Itoa(int(elapsed.Seconds()))+"s")
		}
	}
	m.mu.Unlock()

	memoryMB := processMemoryMB()
	m.memoryGauge.Set(memoryMB)
	if memoryMB > MemoryWarnMB {
		issues = append(issues, "high memory: "+strconv.FormatFloat(memoryMB, 'f', 0, 64)+"MB")
	}

	if m.persistence != nil {
		pending := m.persistence.PendingCount()
		m.pendingGauge.Set(float64(pending))
		if pending > 100 {
			issues = append(issues, "persistence backlog: "+strconv.Itoa(pending)+" pending")
		}
	}

	uptime := now.Sub(m.startTime).Seconds()
	healthy := len(issues) == 0
	if healthy {
		m.healthyGauge.Set(1)
	} else {
		m.healthyGauge.Set(0)
		m.log.Warn("health check found issues", zap.Strings("issues", issues))
	}

	return Report{Healthy: healthy, Issues: issues, MemoryMB: round1(memoryMB), UptimeS: round1(uptime)}
}

// processMemoryMB reads the running process's resident set size from
// /proc/self/status; returns 0 on any platform where that's unavailable.
func processMemoryMB() float64 {
	data, err := os.ReadFile("/proc/self/status")
	if err != nil {
		return 0
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "VmRSS:") {
			fields := strings.Fields(line)
			if len(fields) < 2 {
				return 0
			}
			kb, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return 0
			}
			return kb / 1024
		}
	}
	return 0
}

func round1(v float64) float64 {
	return float64(int64(v*10)) / 10
}

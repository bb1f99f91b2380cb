package health

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeConnector struct{ connected bool }

func (f fakeConnector) IsConnected() bool { return f.connected }

type fakePersistence struct{ count int }

func (f fakePersistence) PendingCount() int { return f.count }

func TestCheckHealthyWhenNothingWrong(t *testing.T) {
	m := NewMonitor(zap.NewNop(), time.Now(), fakeConnector{connected: true}, fakePersistence{count: 0}, prometheus.NewRegistry())
	m.Update("EURUSD")

	report := m.Check()
	require.True(t, report.Healthy)
	require.Empty(t, report.Issues)
}

func TestCheckFlagsDisconnectedConnector(t *testing.T) {
	m := NewMonitor(zap.NewNop(), time.Now(), fakeConnector{connected: false}, fakePersistence{count: 0}, prometheus.NewRegistry())

	report := m.Check()
	require.False(t, report.Healthy)
	require.Contains(t, report.Issues[0], "connector disconnected")
}

func TestCheckFlagsStaleSymbolHeartbeat(t *testing.T) {
	m := NewMonitor(zap.NewNop(), time.Now(), fakeConnector{connected: true}, fakePersistence{count: 0}, prometheus.NewRegistry())
	m.mu.Lock()
	m.heartbeats["EURUSD"] = time.Now().Add(-2 * HeartbeatTimeout)
	m.mu.Unlock()

	report := m.Check()
	require.False(t, report.Healthy)
	require.Contains(t, report.Issues[0], "EURUSD")
}

func TestCheckFlagsPersistenceBacklog(t *testing.T) {
	m := NewMonitor(zap.NewNop(), time.Now(), fakeConnector{connected: true}, fakePersistence{count: 150}, prometheus.NewRegistry())

	report := m.Check()
	require.False(t, report.Healthy)
	require.Contains(t, report.Issues[0], "persistence backlog")
}

func TestResetSymbolRemovesHeartbeat(t *testing.T) {
	m := NewMonitor(zap.NewNop(), time.Now(), fakeConnector{connected: true}, fakePersistence{count: 0}, prometheus.NewRegistry())
	m.Update("EURUSD")
	m.ResetSymbol("EURUSD")

	m.mu.Lock()
	_, found := m.heartbeats["EURUSD"]
	m.mu.Unlock()
	require.False(t, found)
}

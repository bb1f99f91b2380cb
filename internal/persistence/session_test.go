package persistence

import (
	"testing"
	"time"

	"github.com/oracle-trader/runtime/pkg/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStartSessionGeneratesNewID(t *testing.T) {
	dir := t.TempDir()
	m := NewSessionManager(zap.NewNop(), dir)

	id, err := m.StartSession(10000)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.False(t, m.IsRecovered())
}

func TestStartSessionRecoversWhenStatusRunning(t *testing.T) {
	dir := t.TempDir()
	first := NewSessionManager(zap.NewNop(), dir)
	id, err := first.StartSession(10000)
	require.NoError(t, err)

	second := NewSessionManager(zap.NewNop(), dir)
	recoveredID, err := second.StartSession(5000)
	require.NoError(t, err)
	require.Equal(t, id, recoveredID)
	require.True(t, second.IsRecovered())
}

func TestEndSessionClearsStateFile(t *testing.T) {
	dir := t.TempDir()
	m := NewSessionManager(zap.NewNop(), dir)
	_, err := m.StartSession(10000)
	require.NoError(t, err)

	m.EndSession(types.EndNormal)

	fresh := NewSessionManager(zap.NewNop(), dir)
	_, err = fresh.StartSession(10000)
	require.NoError(t, err)
	require.False(t, fresh.IsRecovered())
}

func TestUpdateHeartbeatPersistsState(t *testing.T) {
	dir := t.TempDir()
	m := NewSessionManager(zap.NewNop(), dir)
	_, err := m.StartSession(10000)
	require.NoError(t, err)

	require.NoError(t, m.UpdateHeartbeat(9500))

	loaded, err := m.loadState()
	require.NoError(t, err)
	require.Equal(t, types.SessionRunning, loaded.Status)
}

func TestCheckDayBoundaryDetectsUTCMidnightCrossing(t *testing.T) {
	dir := t.TempDir()
	m := NewSessionManager(zap.NewNop(), dir)
	_, err := m.StartSession(10000)
	require.NoError(t, err)

	require.False(t, m.CheckDayBoundary())

	m.session.CurrentDayBoundary = dayStart(time.Now().UTC().AddDate(0, 0, -1))
	require.True(t, m.CheckDayBoundary())
	require.False(t, m.CheckDayBoundary())
}

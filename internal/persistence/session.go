// Package persistence owns the two on-disk durability mechanisms: the
// crash-recoverable session record and the local cache/retry-queue used
// when the telemetry uplink is unavailable. Grounded on
// persistence/session_manager.py and persistence/local_storage.py.
package persistence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/oracle-trader/runtime/pkg/types"
	"go.uber.org/zap"
)

// StateFileName is the crash-recovery marker file's name, written in
// baseDir.
const StateFileName = ".session_state.json"

// SessionManager tracks the running session's lifecycle: start (fresh
// or recovered), periodic heartbeat, day-boundary detection, and
// end-of-session cleanup.
type SessionManager struct {
	log       *zap.Logger
	stateFile string

	session     types.Session
	isRecovered bool
	running     bool
}

// NewSessionManager returns a manager rooted at baseDir.
func NewSessionManager(log *zap.Logger, baseDir string) *SessionManager {
	return &SessionManager{
		log:       log.Named("persistence.session"),
		stateFile: filepath.Join(baseDir, StateFileName),
	}
}

// StartSession starts a fresh session, or recovers an interrupted one
// if a RUNNING state file is found on disk from a prior crash.
func (m *SessionManager) StartSession(initialBalance float64) (string, error) {
	if state, err := m.loadState(); err == nil && state != nil && state.Status == types.SessionRunning {
		m.session = *state
		m.isRecovered = true
		m.running = true
		m.log.Info("session recovered", zap.String("session_id", m.session.ID))
		return m.session.ID, nil
	}

	now := time.Now().UTC()
	m.session = types.Session{
		ID:                 uuid.NewString()[:8],
		StartTime:          now,
		InitialBalance:     initialBalance,
		Status:             types.SessionRunning,
		CurrentDayBoundary: dayStart(now),
	}
	m.isRecovered = false
	m.running = true

	if err := m.saveState(m.session); err != nil {
		return "", err
	}
	m.log.Info("new session", zap.String("session_id", m.session.ID))
	return m.session.ID, nil
}

// IsRecovered reports whether StartSession resumed a prior session.
func (m *SessionManager) IsRecovered() bool { return m.isRecovered }

// SessionID returns the current session's id.
func (m *SessionManager) SessionID() string { return m.session.ID }

// UpdateHeartbeat refreshes the on-disk state file, intended to be
// called periodically from a background loop.
func (m *SessionManager) UpdateHeartbeat(balance float64) error {
	if !m.running {
		return nil
	}
	m.session.Status = types.SessionRunning
	return m.saveState(m.session)
}

// CheckDayBoundary reports whether UTC midnight has passed since the
// session's stored boundary, updating it as a side effect.
func (m *SessionManager) CheckDayBoundary() bool {
	now := dayStart(time.Now().UTC())
	if m.session.CurrentDayBoundary.IsZero() {
		m.session.CurrentDayBoundary = now
		return false
	}
	if now.After(m.session.CurrentDayBoundary) {
		m.session.CurrentDayBoundary = now
		return true
	}
	return false
}

// EndSession marks the session stopped and removes the crash-recovery
// state file.
func (m *SessionManager) EndSession(reason types.SessionEndReason) {
	if !m.running {
		return
	}
	m.running = false
	m.session.Status = types.SessionStopped
	m.session.EndReason = reason
	m.clearState()
	m.log.Info("session ended", zap.String("session_id", m.session.ID), zap.String("reason", string(reason)))
}

func (m *SessionManager) saveState(session types.Session) error {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(m.stateFile, data, 0o644); err != nil {
		m.log.Warn("failed to persist session state", zap.Error(err))
		return err
	}
	return nil
}

func (m *SessionManager) loadState() (*types.Session, error) {
	data, err := os.ReadFile(m.stateFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		m.log.Warn("failed to read session state", zap.Error(err))
		return nil, err
	}
	var session types.Session
	if err := json.Unmarshal(data, &session); err != nil {
		m.log.Warn("failed to parse session state", zap.Error(err))
		return nil, err
	}
	return &session, nil
}

func (m *SessionManager) clearState() {
	if err := os.Remove(m.stateFile); err != nil && !os.IsNotExist(err) {
		m.log.Warn("failed to clear session state", zap.Error(err))
	}
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

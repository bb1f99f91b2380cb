// Decision table and edge-rule state machine comparing a predictor
// signal against the real broker position, grounded on sync_logic.py's
// decide() and SyncState.should_open().
package executor

import "github.com/oracle-trader/runtime/pkg/types"

// Decision is one of the four outcomes of comparing signal vs. real
// position direction.
type Decision string

const (
	DecisionNoop          Decision = "NOOP"
	DecisionClose         Decision = "CLOSE"
	DecisionOpen          Decision = "OPEN"
	DecisionCloseAndOpen  Decision = "CLOSE_AND_OPEN"
)

// Decide compares a signal's direction against the real position's
// direction (Flat if none is open) and returns the decision table
// entry: both flat → NOOP; real flat, signal set → OPEN; aligned → NOOP;
// signal flat, real set → CLOSE; opposite directions → CLOSE_AND_OPEN.
func Decide(signal types.Signal, realPos *types.RealPosition) Decision {
	signalDir := signal.Direction
	realDir := types.Flat
	if realPos != nil {
		realDir = realPos.Direction
	}

	if realDir == types.Flat && signalDir == types.Flat {
		return DecisionNoop
	}
	if realDir == types.Flat && signalDir != types.Flat {
		return DecisionOpen
	}
	if realDir == signalDir {
		return DecisionNoop
	}
	if signalDir == types.Flat && realDir != types.Flat {
		return DecisionClose
	}
	return DecisionCloseAndOpen
}

// SyncState implements the edge rule: an OPEN half of a decision is
// only honored on a genuine transition in (direction, intensity), except
// that the very first live signal after warmup always passes through.
type SyncState struct {
	state types.SyncState
}

// NewSyncState returns a SyncState with FirstLiveSignal set.
func NewSyncState() *SyncState {
	return &SyncState{state: types.NewSyncState()}
}

// Snapshot returns the current bookkeeping, for telemetry/control reads.
func (s *SyncState) Snapshot() types.SyncState { return s.state }

// Reset restores the initial state.
func (s *SyncState) Reset() { s.state = types.NewSyncState() }

// ShouldOpen evaluates the edge rule for a given signal and decision,
// updating internal bookkeeping as a side effect exactly as the source
// does: NOOP/CLOSE always record the signal's (direction,intensity) but
// clear FirstLiveSignal only when the signal is a WAIT (direction==Flat);
// otherwise FirstLiveSignal is cleared when the first non-WAIT signal
// reaches the OPEN branch and passes through.
func (s *SyncState) ShouldOpen(signal types.Signal, decision Decision) bool {
	currentDir := signal.Direction
	currentIntensity := signal.Intensity

	if decision == DecisionNoop || decision == DecisionClose {
		if currentDir == types.Flat {
			s.state.FirstLiveSignal = false
		}
		s.state.LastSignalDirection = currentDir
		s.state.LastSignalIntensity = currentIntensity
		s.state.WaitingForEdge = false
		return false
	}

	isTransition := currentDir != s.state.LastSignalDirection || currentIntensity != s.state.LastSignalIntensity

	if s.state.FirstLiveSignal && currentDir != types.Flat {
		s.state.FirstLiveSignal = false
		s.state.LastSignalDirection = currentDir
		s.state.LastSignalIntensity = currentIntensity
		s.state.WaitingForEdge = false
		return true
	}

	if isTransition && currentDir != types.Flat {
		s.state.LastSignalDirection = currentDir
		s.state.LastSignalIntensity = currentIntensity
		s.state.WaitingForEdge = false
		return true
	}

	s.state.LastSignalDirection = currentDir
	s.state.LastSignalIntensity = currentIntensity
	s.state.WaitingForEdge = true
	return false
}

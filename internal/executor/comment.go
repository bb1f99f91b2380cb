// Order comment build/parse, grounded on comment_builder.py's
// CommentBuilder. The comment is the only channel for stamping policy
// provenance onto a broker order, so round-tripping it back out of a
// reconciled position is how the paper-shadow layer and crash recovery
// recognize which signal produced which ticket.
package executor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/oracle-trader/runtime/pkg/ctypes"
)

const commentPrefix = "O|"
const commentMaxLen = 100
const commentMinParts = 8

// CommentFields is the decoded form of an order comment.
type CommentFields struct {
	Version       string
	RegimeState   int
	ActionIndex   int
	Intensity     int
	Balance       int64
	DrawdownPct   float64
	VirtualPnL    float64
}

// BuildComment formats the fixed-shape order comment, truncating to the
// broker's 100-character comment limit if necessary.
func BuildComment(regimeState, actionIndex, intensity int, balance float64, drawdownPct, virtualPnL float64) string {
	s := fmt.Sprintf("O|%s|%d|%d|%d|%d|%.1f|%.2f",
		ctypes.Version, regimeState, actionIndex, intensity, int64(balance), drawdownPct, virtualPnL)
	if len(s) > commentMaxLen {
		s = s[:commentMaxLen]
	}
	return s
}

// ParseComment decodes a comment string built by BuildComment. It
// requires the "O|" prefix and at least 8 pipe-separated fields; a
// truncated tail field is tolerated (numeric parse failures there fall
// back to zero), matching the source's lenient reconciliation parser.
func ParseComment(comment string) (CommentFields, bool) {
	if !strings.HasPrefix(comment, commentPrefix) {
		return CommentFields{}, false
	}
	parts := strings.Split(comment, "|")
	if len(parts) < commentMinParts {
		return CommentFields{}, false
	}

	regimeState, _ := strconv.Atoi(parts[2])
	actionIndex, _ := strconv.Atoi(parts[3])
	intensity, _ := strconv.Atoi(parts[4])
	balance, _ := strconv.ParseInt(parts[5], 10, 64)
	drawdownPct, _ := strconv.ParseFloat(parts[6], 64)
	virtualPnL, _ := strconv.ParseFloat(parts[7], 64)

	return CommentFields{
		Version:     parts[1],
		RegimeState: regimeState,
		ActionIndex: actionIndex,
		Intensity:   intensity,
		Balance:     balance,
		DrawdownPct: drawdownPct,
		VirtualPnL:  virtualPnL,
	}, true
}

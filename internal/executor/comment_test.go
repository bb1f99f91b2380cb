package executor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommentBuildParseRoundTrip(t *testing.T) {
	c := BuildComment(1, 2, 2, 10543, 3.7, -12.34)
	require.Contains(t, c, "O|")

	fields, ok := ParseComment(c)
	require.True(t, ok)
	require.Equal(t, 1, fields.RegimeState)
	require.Equal(t, 2, fields.ActionIndex)
	require.Equal(t, 2, fields.Intensity)
	require.Equal(t, int64(10543), fields.Balance)
	require.InDelta(t, 3.7, fields.DrawdownPct, 1e-9)
	require.InDelta(t, -12.34, fields.VirtualPnL, 1e-9)
}

func TestCommentTruncatesToMaxLength(t *testing.T) {
	c := BuildComment(999999, 999999, 999999, 999999999, 999999.9, 999999.99)
	require.LessOrEqual(t, len(c), commentMaxLen)
}

func TestParseCommentRejectsMissingPrefix(t *testing.T) {
	_, ok := ParseComment("X|2.0.0|1|2|2|100|1.0|2.0")
	require.False(t, ok)
}

func TestParseCommentRejectsTooFewFields(t *testing.T) {
	_, ok := ParseComment("O|2.0.0|1|2")
	require.False(t, ok)
}

package telemetry

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func commandMessage(t *testing.T, command string, args interface{}) Message {
	t.Helper()
	argsData, err := json.Marshal(args)
	require.NoError(t, err)
	cmd := CommandPayload{Command: command, Args: argsData}
	data, err := json.Marshal(cmd)
	require.NoError(t, err)
	return Message{Type: MsgCommand, CorrelationID: "corr-1", Data: data}
}

func TestDispatchInvokesRegisteredHandler(t *testing.T) {
	d := NewDispatcher()
	d.Register(CmdPause, func(args json.RawMessage) (interface{}, error) {
		return map[string]bool{"paused": true}, nil
	})

	result := d.Dispatch(commandMessage(t, CmdPause, nil))
	require.True(t, result.OK)
	require.JSONEq(t, `{"paused":true}`, string(result.Result))
}

func TestDispatchUnknownCommandFails(t *testing.T) {
	d := NewDispatcher()
	result := d.Dispatch(commandMessage(t, "not_a_command", nil))
	require.False(t, result.OK)
	require.Contains(t, result.Error, "unknown command")
}

func TestDispatchHandlerErrorSurfaces(t *testing.T) {
	d := NewDispatcher()
	d.Register(CmdClosePosition, func(args json.RawMessage) (interface{}, error) {
		return nil, errors.New("symbol not found")
	})

	result := d.Dispatch(commandMessage(t, CmdClosePosition, map[string]string{"symbol": "XAUUSD"}))
	require.False(t, result.OK)
	require.Equal(t, "symbol not found", result.Error)
}

func TestDispatchMalformedPayloadFails(t *testing.T) {
	d := NewDispatcher()
	result := d.Dispatch(Message{Type: MsgCommand, Data: json.RawMessage(`not json`)})
	require.False(t, result.OK)
}

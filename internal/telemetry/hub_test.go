package telemetry

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		hub.ServeClient(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubPublishReachesConnectedClient(t *testing.T) {
	d := NewDispatcher()
	hub := NewHub(zap.NewNop(), d)
	stop := make(chan struct{})
	go hub.Run(stop)
	t.Cleanup(func() { close(stop) })

	srv := newTestServer(t, hub)
	conn := dial(t, srv)

	time.Sleep(20 * time.Millisecond) // allow registration to land
	hub.PublishHeartbeat(HeartbeatPayload{Running: true, OpenPositions: 1, Balance: 10000})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	require.Equal(t, MsgHeartbeat, msg.Type)

	var hb HeartbeatPayload
	require.NoError(t, json.Unmarshal(msg.Data, &hb))
	require.True(t, hb.Running)
}

func TestHubRoutesCommandToDispatcherAndRepliesWithCorrelationID(t *testing.T) {
	d := NewDispatcher()
	d.Register(CmdStatus, func(args json.RawMessage) (interface{}, error) {
		return map[string]string{"state": "running"}, nil
	})
	hub := NewHub(zap.NewNop(), d)
	stop := make(chan struct{})
	go hub.Run(stop)
	t.Cleanup(func() { close(stop) })

	srv := newTestServer(t, hub)
	conn := dial(t, srv)

	cmd := CommandPayload{Command: CmdStatus}
	cmdData, err := json.Marshal(cmd)
	require.NoError(t, err)
	req := Message{Type: MsgCommand, CorrelationID: "abc-123", Data: cmdData}
	reqData, err := json.Marshal(req)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, reqData))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var resp Message
	require.NoError(t, json.Unmarshal(raw, &resp))
	require.Equal(t, MsgCommandResult, resp.Type)
	require.Equal(t, "abc-123", resp.CorrelationID)

	var result CommandResultPayload
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	require.True(t, result.OK)
}

package server

import (
	"context"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rustyeddy/tradesim/ledger"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/session"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type flat struct{}

func (flat) NormFloat64() float64 { return 0 }
func (flat) Intn(n int) int       { return 0 }

func newTestServer(t *testing.T, interval time.Duration) *Server {
	t.Helper()
	sess, err := session.New(session.Config{
		MaxCandles: 10,
		Process: market.ProcessConfig{
			InitialPrice: decimal.NewFromInt(100),
			Sigma:        0.0025,
			MaxJumpPct:   0.03,
			VolumeMin:    100,
			VolumeMax:    500,
		},
		Ledger: ledger.Config{InitialBalance: decimal.NewFromInt(10000), QuantityPrecision: 4},
	}, session.WithSource(flat{}))
	require.NoError(t, err)
	return New(sess, interval, nil)
}

func TestParseCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		msg     string
		op      string
		amount  float64
		nan     bool
		wantErr bool
	}{
		{name: "numeric amount", msg: `{"op":"buy","amount":1000}`, op: "buy", amount: 1000},
		{name: "string amount", msg: `{"op":"SHORT","amount":" 250.5 "}`, op: "short", amount: 250.5},
		{name: "garbage amount", msg: `{"op":"fund","amount":"lots"}`, op: "fund", nan: true},
		{name: "no amount", msg: `{"op":"exit"}`, op: "exit", nan: true},
		{name: "negative passes through", msg: `{"op":"buy","amount":-5}`, op: "buy", amount: -5},
		{name: "missing op", msg: `{"amount":5}`, wantErr: true},
		{name: "numeric op", msg: `{"op":5}`, wantErr: true},
		{name: "not json", msg: `buy 100`, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cmd, err := ParseCommand([]byte(tt.msg))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.op, cmd.Op)
			if tt.nan {
				assert.True(t, math.IsNaN(cmd.Amount))
			} else {
				assert.Equal(t, tt.amount, cmd.Amount)
			}
		})
	}
}

func TestApply(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, time.Second)

	res := s.Apply(Command{Op: "buy", Amount: 1000})
	assert.False(t, res.OK)
	assert.Equal(t, "no_price_available", res.Error)

	s.Tick()

	res = s.Apply(Command{Op: "buy", Amount: math.NaN()})
	assert.Equal(t, "invalid_amount", res.Error)

	res = s.Apply(Command{Op: "buy", Amount: 1000})
	require.True(t, res.OK, res.Error)
	require.NotNil(t, res.Record)
	assert.Equal(t, ledger.KindBuy, res.Record.Kind)

	res = s.Apply(Command{Op: "short", Amount: 1000})
	assert.Equal(t, "position_already_open", res.Error)

	res = s.Apply(Command{Op: "exit"})
	require.True(t, res.OK)
	assert.Equal(t, ledger.KindExitLong, res.Record.Kind)

	res = s.Apply(Command{Op: "fund", Amount: 5})
	require.True(t, res.OK)

	res = s.Apply(Command{Op: "reset"})
	assert.True(t, res.OK)
	assert.Nil(t, res.Record)
	assert.True(t, s.Snapshot().Cash.Equal(decimal.NewFromInt(10000)))
	assert.Len(t, s.Snapshot().Candles, 1)

	res = s.Apply(Command{Op: "sell"})
	assert.Equal(t, "unknown_op", res.Error)
}

func TestRunTicksUntilCancelled(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(s.Snapshot().Candles) >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	snap := s.Snapshot()
	assert.LessOrEqual(t, len(snap.Candles), 10)
	assert.True(t, snap.Change.Valid)
}

func TestSnapshotEndpoint(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, time.Second)
	s.Tick()
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/snapshot")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	doc := string(body)
	assert.Equal(t, "snapshot", gjson.Get(doc, "type").String())
	assert.Equal(t, int64(1), gjson.Get(doc, "candles.#").Int())
	assert.Equal(t, "100", gjson.Get(doc, "price").String())
	assert.Equal(t, "none", gjson.Get(doc, "position.direction").String())
	assert.True(t, gjson.Get(doc, "can_enter").Bool())

	post, err := http.Post(ts.URL+"/snapshot", "application/json", nil)
	require.NoError(t, err)
	post.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, post.StatusCode)
}

func readType(t *testing.T, conn *websocket.Conn, want string) string {
	t.Helper()
	for i := 0; i < 10; i++ {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		if gjson.GetBytes(msg, "type").String() == want {
			return string(msg)
		}
	}
	t.Fatalf("no %s message received", want)
	return ""
}

func TestWebSocketCommands(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, time.Second)
	s.Tick()
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readType(t, conn, "snapshot")
	assert.Equal(t, "10000", gjson.Get(first, "cash").String())

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"op":"fund","amount":"250"}`)))
	res := readType(t, conn, "result")
	assert.True(t, gjson.Get(res, "ok").Bool())
	assert.Equal(t, "FUND", gjson.Get(res, "record.kind").String())

	snap := readType(t, conn, "snapshot")
	assert.Equal(t, "10250", gjson.Get(snap, "cash").String())
	assert.Equal(t, int64(1), gjson.Get(snap, "history.#").Int())

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"op":"exit"}`)))
	res = readType(t, conn, "result")
	assert.False(t, gjson.Get(res, "ok").Bool())
	assert.Equal(t, "no_open_position", gjson.Get(res, "error").String())

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`nonsense`)))
	res = readType(t, conn, "result")
	assert.Equal(t, "bad_command", gjson.Get(res, "error").String())

	assert.Equal(t, 1, s.Clients())
}

func TestTickBroadcastsToClients(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, time.Second)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readType(t, conn, "snapshot")
	assert.Equal(t, int64(0), gjson.Get(first, "candles.#").Int())

	require.Eventually(t, func() bool { return s.Clients() == 1 }, time.Second, 5*time.Millisecond)
	s.Tick()

	next := readType(t, conn, "snapshot")
	assert.Equal(t, int64(1), gjson.Get(next, "candles.#").Int())
	assert.Equal(t, "0", gjson.Get(next, "change").String())
}

package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksred/coinkong/internal/types"
)

func sampleSwap(status types.SwapStatus) types.Swap {
	return types.Swap{
		ID:                 "KONG-1700000000-1",
		UserID:             "u1",
		FromCurrency:       "BTC",
		ToCurrency:         "ETH",
		USDAmount:          100,
		FromAmount:         100.0 / 35000.0,
		ToAmount:           0.0431,
		ExchangeRate:       15.2,
		PlatformFeePercent: 0.5,
		ExchangeFeePercent: 0.2,
		PlatformFee:        0.000217,
		ExchangeFee:        0.0000868,
		Status:             status,
		DexName:            "Uniswap",
		DexTxID:            "uniswap-12345",
	}
}

func fieldValue(n Notification, name string) (string, bool) {
	for _, f := range n.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

func TestNew_Kinds(t *testing.T) {
	at := time.Unix(1700000000, 0)

	initiated := New(KindInitiated, sampleSwap(types.StatusInitiating), at)
	assert.Equal(t, "u1", initiated.UserID)
	assert.Equal(t, "initiating", initiated.Status)
	assert.NotEmpty(t, initiated.ID)
	assert.Equal(t, at, initiated.Timestamp)

	processing := New(KindProcessing, sampleSwap(types.StatusProcessing), at)
	assert.Equal(t, "Your swap is now processing.", processing.Description)
	tx, ok := fieldValue(processing, "Transaction ID")
	assert.True(t, ok)
	assert.Equal(t, "uniswap-12345", tx)

	completed := New(KindCompleted, sampleSwap(types.StatusCompleted), at)
	assert.Equal(t, "Swap Completed", completed.Title)
	from, _ := fieldValue(completed, "From")
	assert.Equal(t, "0.00285714 BTC", from)
	total, ok := fieldValue(completed, "Total Fees")
	assert.True(t, ok)
	assert.True(t, strings.HasPrefix(total, "0.7%"))

	failedSwap := sampleSwap(types.StatusFailed)
	failedSwap.Error = "execution failed on exchange Uniswap"
	failed := New(KindFailed, failedSwap, at)
	assert.Equal(t, "Swap Failed", failed.Title)
	errField, ok := fieldValue(failed, "Error")
	assert.True(t, ok)
	assert.Equal(t, failedSwap.Error, errField)
}

func TestMulti(t *testing.T) {
	var calls int
	ok := NotifierFunc(func(context.Context, Notification) error { calls++; return nil })
	bad := NotifierFunc(func(context.Context, Notification) error { calls++; return ErrNoSubscriber })

	n := New(KindInitiated, sampleSwap(types.StatusInitiating), time.Now())

	require.NoError(t, Multi{ok, LogNotifier{}}.Notify(context.Background(), n))

	err := Multi{bad, ok}.Notify(context.Background(), n)
	assert.True(t, errors.Is(err, ErrNoSubscriber))
	assert.Equal(t, 3, calls)
}

func newWSServer(t *testing.T, m *Manager, userKey string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = m.Serve(w, r, userKey)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestManager_DeliversToUser(t *testing.T) {
	m := NewManager()
	conn := dial(t, newWSServer(t, m, "u1"))
	require.Eventually(t, func() bool { return m.Count() == 1 }, time.Second, 10*time.Millisecond)

	n := New(KindProcessing, sampleSwap(types.StatusProcessing), time.Now())
	require.NoError(t, m.Notify(context.Background(), n))

	var got Notification
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, n.ID, got.ID)
	assert.Equal(t, KindProcessing, got.Kind)
	assert.Equal(t, "KONG-1700000000-1", got.Swap.ID)
}

func TestManager_AllUsersSubscription(t *testing.T) {
	m := NewManager()
	conn := dial(t, newWSServer(t, m, AllUsers))
	require.Eventually(t, func() bool { return m.Count() == 1 }, time.Second, 10*time.Millisecond)

	swap := sampleSwap(types.StatusCompleted)
	swap.UserID = "someone-else"
	require.NoError(t, m.Notify(context.Background(), New(KindCompleted, swap, time.Now())))

	var got Notification
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "someone-else", got.UserID)
}

func TestManager_NoSubscriber(t *testing.T) {
	m := NewManager()
	err := m.Notify(context.Background(), New(KindInitiated, sampleSwap(types.StatusInitiating), time.Now()))
	assert.ErrorIs(t, err, ErrNoSubscriber)
}

func TestManager_RemovesClosedConnection(t *testing.T) {
	m := NewManager()
	conn := dial(t, newWSServer(t, m, "u1"))
	require.Eventually(t, func() bool { return m.Count() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return m.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestManager_GinHandlerNarrowsByUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewManager()
	router := gin.New()
	router.GET("/ws", m.Handler())
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?user_id=u2"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return m.Count() == 1 }, time.Second, 10*time.Millisecond)

	// u1 has no listener
	err = m.Notify(context.Background(), New(KindInitiated, sampleSwap(types.StatusInitiating), time.Now()))
	assert.True(t, errors.Is(err, ErrNoSubscriber))

	other := sampleSwap(types.StatusInitiating)
	other.UserID = "u2"
	require.NoError(t, m.Notify(context.Background(), New(KindInitiated, other, time.Now())))

	var got Notification
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "u2", got.UserID)
}

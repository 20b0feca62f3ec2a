package wss

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/prajyotgorlewar/BattleIDE/internal/global"
	"github.com/prajyotgorlewar/BattleIDE/internal/repo"
	"github.com/prajyotgorlewar/BattleIDE/internal/state"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const presenceKey = "presence:user:u1"

func TestPresenceOutlivesTTLWhileConnected(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	presence := repo.NewRedisRepository(client, repo.DefaultPresenceTTL)

	st := &global.State{Registry: state.NewRegistry(), Presence: presence}
	d := NewDispatcher(nil)
	RegisterDefaultHandlers(d, nil)
	srv := httptest.NewServer(WsHandler(d, st, HandlerConfig{PingInterval: 20 * time.Millisecond}))
	t.Cleanup(srv.Close)

	dial := func() *websocket.Conn {
		conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws?userId=u1", nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.Close() })
		readEvent(t, conn)
		return conn
	}
	first := dial()
	second := dial()

	ctx := context.Background()
	online := func() bool {
		ok, err := presence.IsOnline(ctx, "u1")
		require.NoError(t, err)
		return ok
	}
	require.True(t, online())

	// no PING frames are sent; only the server keepalive refreshes the key
	for i := 0; i < 3; i++ {
		mr.FastForward(90 * time.Second)
		require.Eventually(t, func() bool { return mr.TTL(presenceKey) > time.Minute }, 2*time.Second, 10*time.Millisecond)
	}
	assert.True(t, online())
	count, err := mr.Get(presenceKey)
	require.NoError(t, err)
	assert.Equal(t, "2", count)

	require.NoError(t, first.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	require.Eventually(t, func() bool { return len(st.Registry.Clients("u1")) == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		v, err := mr.Get(presenceKey)
		return err == nil && v == "1"
	}, 2*time.Second, 10*time.Millisecond)

	mr.FastForward(90 * time.Second)
	require.Eventually(t, func() bool { return mr.TTL(presenceKey) > time.Minute }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, online())

	require.NoError(t, second.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	require.Eventually(t, func() bool { return !st.Registry.IsOnline("u1") }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return !mr.Exists(presenceKey) }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, online())
}

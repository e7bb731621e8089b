package main

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialWS(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readView(t *testing.T, conn *websocket.Conn) MarketView {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var view MarketView
	require.NoError(t, conn.ReadJSON(&view))
	return view
}

func TestHubSendsCurrentViewOnConnect(t *testing.T) {
	s, _ := newTestServer(t, nil)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	conn := dialWS(t, srv, "")
	view := readView(t, conn)
	assert.Equal(t, "TEST", view.Pair)
	assert.True(t, view.Batch.Matched)
	assert.Equal(t, "9.50", view.Batch.ClearingPrice.String())
}

func TestHubBroadcastFiltersByPair(t *testing.T) {
	s, _ := newTestServer(t, nil)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	all := dialWS(t, srv, "")
	readView(t, all)
	pending := dialWS(t, srv, "?pair=PENDING")
	require.Eventually(t, func() bool { return s.hub.Len() == 2 }, 2*time.Second, 10*time.Millisecond)

	s.hub.Broadcast(MarketView{Pair: "TEST", UpdatedAt: 7})
	s.hub.Broadcast(MarketView{Pair: "PENDING", UpdatedAt: 8})

	assert.Equal(t, int64(7), readView(t, all).UpdatedAt)
	assert.Equal(t, int64(8), readView(t, all).UpdatedAt)
	assert.Equal(t, int64(8), readView(t, pending).UpdatedAt, "只收到订阅的交易对")
}

func TestHubDropsClosedClients(t *testing.T) {
	s, _ := newTestServer(t, nil)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	conn := dialWS(t, srv, "?pair=TEST")
	readView(t, conn)
	require.Eventually(t, func() bool { return s.hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return s.hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubBroadcastDoesNotWaitForSlowClients(t *testing.T) {
	s, _ := newTestServer(t, nil)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	// 登记但不启动写协程，队列只进不出
	hub := NewHub()
	slow := hub.add(dialWS(t, srv, "?pair=NONE"), "")

	done := make(chan struct{})
	go func() {
		for i := 0; i < wsSendBuffer+1; i++ {
			hub.Broadcast(MarketView{Pair: "TEST", UpdatedAt: int64(i)})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast 被慢客户端阻塞")
	}

	assert.Equal(t, 0, hub.Len(), "队列满的客户端被断开")
	n := 0
	for range slow.send {
		n++
	}
	assert.Equal(t, wsSendBuffer, n)
}

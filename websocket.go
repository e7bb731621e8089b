package main

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsSendBuffer   = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsClient 单个连接及其发送队列，队列只由 writeLoop 写出
type wsClient struct {
	conn *websocket.Conn
	pair string // 空表示全部交易对
	send chan MarketView
}

// Hub WebSocket 客户端管理
type Hub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*wsClient]struct{})}
}

// add 登记连接，但不启动写协程
func (h *Hub) add(conn *websocket.Conn, pair string) *wsClient {
	c := &wsClient{conn: conn, pair: pair, send: make(chan MarketView, wsSendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) register(conn *websocket.Conn, pair string) *wsClient {
	c := h.add(conn, pair)
	go h.writeLoop(c)
	return c
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	h.dropLocked(c)
	h.mu.Unlock()
}

// dropLocked 调用方需持有 h.mu
func (h *Hub) dropLocked(c *wsClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	c.conn.Close()
}

func (h *Hub) writeLoop(c *wsClient) {
	for view := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := c.conn.WriteJSON(view); err != nil {
			h.unregister(c)
			return
		}
	}
}

// Len 当前连接数
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast 把盘口视图放入订阅该交易对的客户端队列，不等待写出。
// 队列已满的客户端直接断开。
func (h *Hub) Broadcast(view MarketView) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.pair != "" && c.pair != view.Pair {
			continue
		}
		select {
		case c.send <- view:
		default:
			log.Printf("WebSocket 客户端发送队列已满，断开连接")
			h.dropLocked(c)
		}
	}
}

// ServeWS GET /ws?pair=BTC_USDT，连接后先推送一次当前视图
func (h *Hub) ServeWS(cache *viewCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pair := r.URL.Query().Get("pair")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket 升级失败: %v", err)
			return
		}

		for _, view := range cache.All() {
			if pair != "" && view.Pair != pair {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(view); err != nil {
				conn.Close()
				return
			}
		}
		c := h.register(conn, pair)

		// 只读不处理，读失败即客户端断开
		go func() {
			defer h.unregister(c)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}

package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"batchbook/matcheng"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

var (
	errUnknownPair    = errors.New("未知的交易对")
	errNotReady       = errors.New("盘口尚未刷新")
	errHistoryOff     = errors.New("未启用历史记录")
	errInvalidLimit   = errors.New("无效的 limit 参数")
	errHistoryFailure = errors.New("查询历史记录失败")
)

// Server HTTP 接口
type Server struct {
	markets []Market
	byPair  map[string]Market
	cache   *viewCache
	hub     *Hub
	metrics *Metrics
	history HistoryStore // 可为 nil
}

func NewServer(markets []Market, cache *viewCache, hub *Hub, metrics *Metrics, history HistoryStore) *Server {
	byPair := make(map[string]Market, len(markets))
	for _, m := range markets {
		byPair[m.Pair] = m
	}
	return &Server{
		markets: markets,
		byPair:  byPair,
		cache:   cache,
		hub:     hub,
		metrics: metrics,
		history: history,
	}
}

// Router 注册全部路由
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(logging)
	router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	router.HandleFunc("/markets", s.handleMarkets).Methods("GET")
	router.HandleFunc("/markets/{pair}/depth", s.withView(s.handleDepth)).Methods("GET")
	router.HandleFunc("/markets/{pair}/batch", s.withView(s.handleBatch)).Methods("GET")
	router.HandleFunc("/markets/{pair}/book", s.withView(s.handleBook)).Methods("GET")
	router.HandleFunc("/markets/{pair}/fills", s.withView(s.handleFills)).Methods("GET")
	router.HandleFunc("/markets/{pair}/plot", s.withView(s.handlePlot)).Methods("GET")
	router.HandleFunc("/markets/{pair}/history", s.handleHistory).Methods("GET")
	router.HandleFunc("/ws", s.hub.ServeWS(s.cache)).Methods("GET")
	router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	return router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.markets)
}

// withView 解析 {pair} 并取出缓存的视图，未知交易对 404，尚无视图 503
func (s *Server) withView(next func(http.ResponseWriter, *http.Request, MarketView)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pair := mux.Vars(r)["pair"]
		if _, ok := s.byPair[pair]; !ok {
			writeJSONError(w, http.StatusNotFound, fmt.Errorf("%w: %s", errUnknownPair, pair))
			return
		}
		view, ok := s.cache.Get(pair)
		if !ok {
			writeJSONError(w, http.StatusServiceUnavailable, fmt.Errorf("%w: %s", errNotReady, pair))
			return
		}
		next(w, r, view)
	}
}

func (s *Server) handleDepth(w http.ResponseWriter, r *http.Request, view MarketView) {
	writeJSON(w, http.StatusOK, DepthResponse{
		Pair:      view.Pair,
		Bids:      view.BidDepth,
		Asks:      view.AskDepth,
		UpdatedAt: view.UpdatedAt,
	})
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request, view MarketView) {
	writeJSON(w, http.StatusOK, BatchResponse{
		Pair:      view.Pair,
		Batch:     view.Batch,
		UpdatedAt: view.UpdatedAt,
	})
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request, view MarketView) {
	writeJSON(w, http.StatusOK, BookResponse{
		Pair:      view.Pair,
		Bids:      view.BidLevels,
		Asks:      view.AskLevels,
		Top:       view.Top,
		UpdatedAt: view.UpdatedAt,
	})
}

func (s *Server) handleFills(w http.ResponseWriter, r *http.Request, view MarketView) {
	fills := view.Fills
	if fills == nil {
		fills = []matcheng.Fill{}
	}
	writeJSON(w, http.StatusOK, FillsResponse{
		Pair:      view.Pair,
		Matched:   view.Batch.Matched,
		Fills:     fills,
		UpdatedAt: view.UpdatedAt,
	})
}

func (s *Server) handlePlot(w http.ResponseWriter, r *http.Request, view MarketView) {
	plot := matcheng.PlotCurves(matcheng.Cumulate(view.BidLevels), matcheng.Cumulate(view.AskLevels))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(plot))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	pair := mux.Vars(r)["pair"]
	if _, ok := s.byPair[pair]; !ok {
		writeJSONError(w, http.StatusNotFound, fmt.Errorf("%w: %s", errUnknownPair, pair))
		return
	}
	if s.history == nil {
		writeJSONError(w, http.StatusNotFound, errHistoryOff)
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	rows, err := s.history.RecentEstimates(r.Context(), pair, limit)
	if err != nil {
		log.Printf("查询 %s 历史记录失败: %v", pair, err)
		writeJSONError(w, http.StatusInternalServerError, errHistoryFailure)
		return
	}
	if rows == nil {
		rows = []BatchModel{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// parseLimit 为空取默认值，超过上限按上限处理
func parseLimit(s string) (int, error) {
	if s == "" {
		return defaultHistoryLimit, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", errInvalidLimit, s)
	}
	if n > maxHistoryLimit {
		n = maxHistoryLimit
	}
	return n, nil
}

type statusWriter struct {
	http.ResponseWriter
	status int
	n      int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.n += n
	return n, err
}

// Hijack WebSocket 升级需要
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("ResponseWriter 不支持 Hijack")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(sw, r)
		log.Printf("%s %s %d %dB %s", r.Method, r.URL.Path, sw.status, sw.n, time.Since(start))
	})
}

// writeJSON 序列化 v 并写入状态码与 Content-Type
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(v)
}

// writeJSONError 以 JSON 返回错误
func writeJSONError(w http.ResponseWriter, status int, err error) {
	type errorResp struct {
		Error   string `json:"error"`
		Status  int    `json:"status"`
		Message string `json:"message,omitempty"`
	}
	writeJSON(w, status, errorResp{
		Error:   http.StatusText(status),
		Status:  status,
		Message: err.Error(),
	})
}

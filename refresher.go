package main

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"batchbook/matcheng"
)

// Broadcaster 视图广播（WebSocket）
type Broadcaster interface {
	Broadcast(view MarketView)
}

// viewCache 各交易对最新的盘口视图
type viewCache struct {
	mu    sync.RWMutex
	views map[string]MarketView
}

func newViewCache() *viewCache {
	return &viewCache{views: make(map[string]MarketView)}
}

func (c *viewCache) Get(pair string) (MarketView, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.views[pair]
	return v, ok
}

func (c *viewCache) Set(view MarketView) {
	c.mu.Lock()
	c.views[view.Pair] = view
	c.mu.Unlock()
}

// All 按交易对名称排序
func (c *viewCache) All() []MarketView {
	c.mu.RLock()
	out := make([]MarketView, 0, len(c.views))
	for _, v := range c.views {
		out = append(out, v)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Pair < out[j].Pair })
	return out
}

// BuildView 由快照计算深度、档位与集合竞价估算
func BuildView(market Market, snap Snapshot, now time.Time) (MarketView, error) {
	bidDepth, err := matcheng.ReduceDepth(snap.Bids, market.PriceScale, market.QuantityScale)
	if err != nil {
		return MarketView{}, err
	}
	askDepth, err := matcheng.ReduceDepth(snap.Asks, market.PriceScale, market.QuantityScale)
	if err != nil {
		return MarketView{}, err
	}
	bidLevels, err := matcheng.AggregateLevels(snap.Bids, matcheng.Bid)
	if err != nil {
		return MarketView{}, err
	}
	askLevels, err := matcheng.AggregateLevels(snap.Asks, matcheng.Ask)
	if err != nil {
		return MarketView{}, err
	}
	res, err := matcheng.EstimateBatch(snap.Bids, snap.Asks, market.QuantityScale, market.PriceScale)
	if err != nil {
		return MarketView{}, err
	}
	fills, err := matcheng.Fills(snap.Bids, snap.Asks, res)
	if err != nil {
		return MarketView{}, err
	}

	return MarketView{
		Pair:          market.Pair,
		PriceScale:    market.PriceScale,
		QuantityScale: market.QuantityScale,
		BidDepth:      bidDepth,
		AskDepth:      askDepth,
		BidLevels:     bidLevels,
		AskLevels:     askLevels,
		Top:           matcheng.Top(bidLevels, askLevels),
		Batch: BatchView{
			ClearingResult: res,
			BidFillPercent: res.BidRatio.Float64() * 100,
			AskFillPercent: res.AskRatio.Float64() * 100,
		},
		Fills:     fills,
		BidOrders: len(snap.Bids),
		AskOrders: len(snap.Asks),
		UpdatedAt: now.UnixMilli(),
	}, nil
}

// Refresher 定时从快照来源重算各交易对的盘口视图
type Refresher struct {
	markets  []Market
	interval time.Duration
	source   SnapshotSource
	cache    *viewCache
	metrics  *Metrics

	// 以下输出均可为 nil
	hub       Broadcaster
	publisher ViewPublisher
	history   HistoryStore

	now func() time.Time
}

func NewRefresher(cfg Config, source SnapshotSource, cache *viewCache, metrics *Metrics) *Refresher {
	return &Refresher{
		markets:  cfg.Markets,
		interval: cfg.RefreshInterval,
		source:   source,
		cache:    cache,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Run 立即刷新一次，之后按间隔刷新直到 ctx 取消
func (r *Refresher) Run(ctx context.Context) {
	r.RefreshAll(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("盘口刷新已停止")
			return
		case <-ticker.C:
			r.RefreshAll(ctx)
		}
	}
}

// RefreshAll 依次刷新所有交易对，单个失败不影响其他交易对，失败时保留上一次的视图
func (r *Refresher) RefreshAll(ctx context.Context) {
	for _, m := range r.markets {
		if err := r.refresh(ctx, m); err != nil {
			r.metrics.RefreshErrors.WithLabelValues(m.Pair).Inc()
			log.Printf("刷新 %s 失败: %v", m.Pair, err)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context, m Market) error {
	start := time.Now()
	snap, err := r.source.LoadSnapshot(ctx, m)
	if err != nil {
		return err
	}
	view, err := BuildView(m, snap, r.now())
	if err != nil {
		return err
	}
	r.metrics.RefreshDuration.WithLabelValues(m.Pair).Observe(float64(time.Since(start).Microseconds()) / 1000)
	r.metrics.OrdersProcessed.WithLabelValues(m.Pair).Observe(float64(view.BidOrders + view.AskOrders))

	r.cache.Set(view)
	if r.hub != nil {
		r.hub.Broadcast(view)
	}
	if r.publisher != nil {
		if err := r.publisher.PublishView(ctx, view); err != nil {
			log.Printf("推送 %s 视图到 Redis 失败: %v", m.Pair, err)
		}
	}
	if r.history != nil {
		if err := r.history.SaveEstimate(ctx, view); err != nil {
			log.Printf("保存 %s 估算记录失败: %v", m.Pair, err)
		}
	}
	return nil
}

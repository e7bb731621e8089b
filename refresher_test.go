package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"batchbook/fixed"
	"batchbook/matcheng"
)

func units(t *testing.T, s string, scale int32) fixed.Int {
	t.Helper()
	v, err := fixed.ParseUnits(s, scale)
	require.NoError(t, err)
	return v
}

// crossingSnapshot 买 10@10.00，卖 4@9.00（精度 2/2）
func crossingSnapshot(t *testing.T) Snapshot {
	return Snapshot{
		Pair: testMarket.Pair,
		Bids: []matcheng.Order{
			matcheng.NewOrder("b1", matcheng.Bid, units(t, "10", 2), units(t, "10", 2)),
		},
		Asks: []matcheng.Order{
			matcheng.NewOrder("a1", matcheng.Ask, units(t, "9", 2), units(t, "4", 2)),
		},
	}
}

type fakeSource struct {
	mu        sync.Mutex
	snapshots map[string]Snapshot
	errs      map[string]error
}

func (f *fakeSource) LoadSnapshot(ctx context.Context, market Market) (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[market.Pair]; err != nil {
		return Snapshot{}, err
	}
	return f.snapshots[market.Pair], nil
}

type recorder struct {
	mu        sync.Mutex
	broadcast []MarketView
	published []MarketView
	saved     []MarketView
	saveErr   error
}

func (r *recorder) Broadcast(view MarketView) {
	r.mu.Lock()
	r.broadcast = append(r.broadcast, view)
	r.mu.Unlock()
}

func (r *recorder) PublishView(ctx context.Context, view MarketView) error {
	r.mu.Lock()
	r.published = append(r.published, view)
	r.mu.Unlock()
	return nil
}

func (r *recorder) SaveEstimate(ctx context.Context, view MarketView) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved = append(r.saved, view)
	return nil
}

func (r *recorder) RecentEstimates(ctx context.Context, pair string, limit int) ([]BatchModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var rows []BatchModel
	for i := len(r.saved) - 1; i >= 0 && len(rows) < limit; i-- {
		if r.saved[i].Pair == pair {
			rows = append(rows, newBatchModel(r.saved[i]))
		}
	}
	return rows, nil
}

func TestBuildView(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	view, err := BuildView(testMarket, crossingSnapshot(t), now)
	require.NoError(t, err)

	assert.Equal(t, "TEST", view.Pair)
	assert.Equal(t, int64(1700000000123), view.UpdatedAt)
	assert.Equal(t, 1, view.BidOrders)
	assert.Equal(t, 1, view.AskOrders)

	require.Len(t, view.BidDepth, 1)
	assert.Equal(t, "10.00", view.BidDepth[0].Price.String())
	assert.Equal(t, "100.0000", view.BidDepth[0].CumulativeValue.String())
	require.Len(t, view.AskDepth, 1)
	assert.Equal(t, "36.0000", view.AskDepth[0].CumulativeValue.String())

	// 最大可成交量区间 [9.00, 10.00]，取中间价 9.50
	b := view.Batch
	assert.True(t, b.Matched)
	assert.Equal(t, "9.50", b.ClearingPrice.String())
	assert.Equal(t, "4.00", b.MatchedQuantity.String())
	assert.Equal(t, "0.400000000000000000", b.BidRatio.String())
	assert.Equal(t, "1.000000000000000000", b.AskRatio.String())
	assert.InDelta(t, 40, b.BidFillPercent, 1e-9)
	assert.InDelta(t, 100, b.AskFillPercent, 1e-9)

	require.Len(t, view.Fills, 2)
	for _, f := range view.Fills {
		assert.Equal(t, "400", f.QtyFilled.String(), f.OrderID)
	}

	require.NotNil(t, view.Top.Spread)
	assert.Equal(t, "-100", view.Top.Spread.String())
}

func TestBuildViewEmptyBook(t *testing.T) {
	view, err := BuildView(testMarket, Snapshot{Pair: testMarket.Pair}, time.Now())
	require.NoError(t, err)
	assert.Empty(t, view.BidDepth)
	assert.Empty(t, view.AskDepth)
	assert.False(t, view.Batch.Matched)
	assert.Equal(t, "0.00", view.Batch.ClearingPrice.String())
	assert.Empty(t, view.Fills)
	assert.Nil(t, view.Top.Spread)
}

func TestBuildViewRejectsMismatchedSide(t *testing.T) {
	snap := crossingSnapshot(t)
	snap.Bids = append(snap.Bids, snap.Asks[0])
	_, err := BuildView(testMarket, snap, time.Now())
	assert.ErrorIs(t, err, matcheng.ErrInvalidInput)
}

func TestRefreshAll(t *testing.T) {
	other := Market{Pair: "BROKEN", PriceScale: 2, QuantityScale: 2}
	source := &fakeSource{
		snapshots: map[string]Snapshot{testMarket.Pair: crossingSnapshot(t)},
		errs:      map[string]error{other.Pair: errors.New("连接被拒绝")},
	}
	sink := &recorder{}
	cache := newViewCache()
	metrics := NewMetrics()

	cfg := Config{Markets: []Market{testMarket, other}, RefreshInterval: time.Second}
	r := NewRefresher(cfg, source, cache, metrics)
	r.hub = sink
	r.publisher = sink
	r.history = sink
	r.now = func() time.Time { return time.UnixMilli(42) }

	r.RefreshAll(context.Background())

	view, ok := cache.Get(testMarket.Pair)
	require.True(t, ok)
	assert.Equal(t, int64(42), view.UpdatedAt)
	_, ok = cache.Get(other.Pair)
	assert.False(t, ok)

	assert.Len(t, sink.broadcast, 1)
	assert.Len(t, sink.published, 1)
	assert.Len(t, sink.saved, 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.RefreshErrors.WithLabelValues(other.Pair)))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.RefreshErrors.WithLabelValues(testMarket.Pair)))
}

func TestRefreshKeepsPreviousViewOnError(t *testing.T) {
	source := &fakeSource{
		snapshots: map[string]Snapshot{testMarket.Pair: crossingSnapshot(t)},
		errs:      map[string]error{},
	}
	cache := newViewCache()
	r := NewRefresher(Config{Markets: []Market{testMarket}, RefreshInterval: time.Second}, source, cache, NewMetrics())
	r.now = func() time.Time { return time.UnixMilli(1) }
	r.RefreshAll(context.Background())

	source.mu.Lock()
	source.errs[testMarket.Pair] = errors.New("timeout")
	source.mu.Unlock()
	r.now = func() time.Time { return time.UnixMilli(2) }
	r.RefreshAll(context.Background())

	view, ok := cache.Get(testMarket.Pair)
	require.True(t, ok)
	assert.Equal(t, int64(1), view.UpdatedAt)
}

func TestRefreshSinkErrorsDoNotFail(t *testing.T) {
	source := &fakeSource{snapshots: map[string]Snapshot{testMarket.Pair: crossingSnapshot(t)}}
	sink := &recorder{saveErr: errors.New("db down")}
	cache := newViewCache()
	r := NewRefresher(Config{Markets: []Market{testMarket}, RefreshInterval: time.Second}, source, cache, NewMetrics())
	r.history = sink

	require.NoError(t, r.refresh(context.Background(), testMarket))
	_, ok := cache.Get(testMarket.Pair)
	assert.True(t, ok)
}

func TestRefresherRunStopsOnCancel(t *testing.T) {
	source := &fakeSource{snapshots: map[string]Snapshot{testMarket.Pair: crossingSnapshot(t)}}
	cache := newViewCache()
	r := NewRefresher(Config{Markets: []Market{testMarket}, RefreshInterval: 10 * time.Millisecond}, source, cache, NewMetrics())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		_, ok := cache.Get(testMarket.Pair)
		return ok
	}, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run 未在取消后退出")
	}
}

func TestViewCacheAllSorted(t *testing.T) {
	c := newViewCache()
	c.Set(MarketView{Pair: "ETH_USDT"})
	c.Set(MarketView{Pair: "BTC_USDT"})
	c.Set(MarketView{Pair: "ETH_USDT", UpdatedAt: 5})

	all := c.All()
	require.Len(t, all, 2)
	assert.Equal(t, "BTC_USDT", all[0].Pair)
	assert.Equal(t, int64(5), all[1].UpdatedAt)
}

package main

import (
	"time"

	"github.com/shopspring/decimal"

	"batchbook/matcheng"
)

// BookEntry Redis 订单簿有序集合中的成员（JSON）
type BookEntry struct {
	OrderID   string          `json:"order_id"`
	OrderType string          `json:"order_type"` // BID or ASK
	Price     decimal.Decimal `json:"price"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp int64           `json:"timestamp"`
}

// Snapshot 某一时刻某交易对的全部挂单
type Snapshot struct {
	Pair      string
	Bids      []matcheng.Order
	Asks      []matcheng.Order
	FetchedAt time.Time
}

// MarketView 一次刷新的全部计算结果，供 HTTP、WebSocket 与历史记录使用
type MarketView struct {
	Pair          string `json:"pair"`
	PriceScale    int32  `json:"priceScale"`
	QuantityScale int32  `json:"quantityScale"`

	BidDepth  []matcheng.DepthPoint     `json:"bidDepth"`
	AskDepth  []matcheng.DepthPoint     `json:"askDepth"`
	BidLevels []matcheng.AggregatePrice `json:"bidLevels"`
	AskLevels []matcheng.AggregatePrice `json:"askLevels"`
	Top       matcheng.TopOfBook        `json:"top"`
	Batch     BatchView                 `json:"batch"`
	Fills     []matcheng.Fill           `json:"-"`

	BidOrders int   `json:"bidOrders"`
	AskOrders int   `json:"askOrders"`
	UpdatedAt int64 `json:"updatedAt"` // 毫秒
}

// BatchView 集合竞价估算结果，附带用于展示的百分比
type BatchView struct {
	matcheng.ClearingResult
	BidFillPercent float64 `json:"bidFillPercent"`
	AskFillPercent float64 `json:"askFillPercent"`
}

// DepthResponse GET /markets/{pair}/depth
type DepthResponse struct {
	Pair      string                `json:"pair"`
	Bids      []matcheng.DepthPoint `json:"bids"`
	Asks      []matcheng.DepthPoint `json:"asks"`
	UpdatedAt int64                 `json:"updatedAt"`
}

// BookResponse GET /markets/{pair}/book
type BookResponse struct {
	Pair      string                    `json:"pair"`
	Bids      []matcheng.AggregatePrice `json:"bids"`
	Asks      []matcheng.AggregatePrice `json:"asks"`
	Top       matcheng.TopOfBook        `json:"top"`
	UpdatedAt int64                     `json:"updatedAt"`
}

// FillsResponse GET /markets/{pair}/fills
type FillsResponse struct {
	Pair      string          `json:"pair"`
	Matched   bool            `json:"matched"`
	Fills     []matcheng.Fill `json:"fills"`
	UpdatedAt int64           `json:"updatedAt"`
}

// BatchResponse GET /markets/{pair}/batch
type BatchResponse struct {
	Pair      string    `json:"pair"`
	Batch     BatchView `json:"batch"`
	UpdatedAt int64     `json:"updatedAt"`
}

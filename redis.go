package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"batchbook/fixed"
	"batchbook/matcheng"
)

const viewChannelPrefix = "market_views:"

// SnapshotSource 订单簿快照来源
type SnapshotSource interface {
	LoadSnapshot(ctx context.Context, market Market) (Snapshot, error)
}

// ViewPublisher 刷新后的盘口视图推送目标
type ViewPublisher interface {
	PublishView(ctx context.Context, view MarketView) error
}

// RedisClient 封装Redis客户端
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient 初始化Redis客户端
func NewRedisClient(cfg Config) *RedisClient {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return &RedisClient{client: rdb}
}

// Close 关闭Redis客户端
func (rc *RedisClient) Close() error {
	return rc.client.Close()
}

func (rc *RedisClient) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// bookKey 订单簿有序集合的键
func bookKey(side matcheng.Side, pair string) string {
	if side == matcheng.Ask {
		return "asks:" + pair
	}
	return "bids:" + pair
}

// LoadSnapshot 在同一个 MULTI/EXEC 中读取交易对两侧的全部挂单，避免买卖两侧来自不同版本
func (rc *RedisClient) LoadSnapshot(ctx context.Context, market Market) (Snapshot, error) {
	bidKey, askKey := bookKey(matcheng.Bid, market.Pair), bookKey(matcheng.Ask, market.Pair)
	var bidsCmd, asksCmd *redis.ZSliceCmd
	_, err := rc.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		bidsCmd = pipe.ZRangeWithScores(ctx, bidKey, 0, -1)
		asksCmd = pipe.ZRangeWithScores(ctx, askKey, 0, -1)
		return nil
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("读取 %s 订单簿失败: %w", market.Pair, err)
	}
	return snapshotFromMembers(market, bidsCmd.Val(), asksCmd.Val(), time.Now())
}

// snapshotFromMembers 由两侧有序集合成员构造快照
func snapshotFromMembers(market Market, bidMembers, askMembers []redis.Z, now time.Time) (Snapshot, error) {
	bids, err := membersToOrders(bidMembers, matcheng.Bid, market)
	if err != nil {
		return Snapshot{}, err
	}
	asks, err := membersToOrders(askMembers, matcheng.Ask, market)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Pair: market.Pair, Bids: bids, Asks: asks, FetchedAt: now}, nil
}

func membersToOrders(members []redis.Z, side matcheng.Side, market Market) ([]matcheng.Order, error) {
	key := bookKey(side, market.Pair)
	entries, err := decodeEntries(members)
	if err != nil {
		return nil, fmt.Errorf("解析 %s 失败: %w", key, err)
	}
	orders, err := entriesToOrders(entries, side, market)
	if err != nil {
		return nil, fmt.Errorf("解析 %s 失败: %w", key, err)
	}
	return orders, nil
}

// decodeEntries 解析有序集合成员，任一成员无效则整体失败
func decodeEntries(members []redis.Z) ([]BookEntry, error) {
	entries := make([]BookEntry, 0, len(members))
	for _, z := range members {
		var raw []byte
		switch m := z.Member.(type) {
		case string:
			raw = []byte(m)
		case []byte:
			raw = m
		default:
			return nil, fmt.Errorf("无效的成员类型 %T", z.Member)
		}
		var entry BookEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("解析订单失败: %w, 消息: %s", err, raw)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// entriesToOrders 按交易对精度把十进制价格与数量转为最小单位
func entriesToOrders(entries []BookEntry, side matcheng.Side, market Market) ([]matcheng.Order, error) {
	orders := make([]matcheng.Order, 0, len(entries))
	for _, e := range entries {
		entrySide, err := matcheng.ParseSide(e.OrderType)
		if err != nil {
			return nil, fmt.Errorf("订单 %s: %w", e.OrderID, err)
		}
		if entrySide != side {
			return nil, fmt.Errorf("订单 %s 类型 %s 与订单簿 %s 不符", e.OrderID, e.OrderType, side)
		}
		price, err := fixed.ParseUnits(e.Price.String(), market.PriceScale)
		if err != nil {
			return nil, fmt.Errorf("订单 %s 价格: %w", e.OrderID, err)
		}
		qty, err := fixed.ParseUnits(e.Amount.String(), market.QuantityScale)
		if err != nil {
			return nil, fmt.Errorf("订单 %s 数量: %w", e.OrderID, err)
		}
		o := matcheng.NewOrder(e.OrderID, side, price, qty)
		if err := o.Validate(); err != nil {
			return nil, fmt.Errorf("订单 %s: %w", e.OrderID, err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// PublishView 推送盘口视图到 market_views:<pair>
func (rc *RedisClient) PublishView(ctx context.Context, view MarketView) error {
	viewJSON, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return rc.client.Publish(ctx, viewChannelPrefix+view.Pair, viewJSON).Err()
}

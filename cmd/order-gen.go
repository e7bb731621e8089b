package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookEntry 订单簿成员结构体，与主程序保持一致
type BookEntry struct {
	OrderID   string          `json:"order_id"`
	OrderType string          `json:"order_type"`
	Price     decimal.Decimal `json:"price"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp int64           `json:"timestamp"`
}

// generateRandomOrder 在中间价附近生成随机挂单，买卖价格区间部分重叠
func generateRandomOrder(r *rand.Rand, mid, spread decimal.Decimal, priceScale, amountScale int32) BookEntry {
	orderTypes := []string{"BID", "ASK"}
	orderType := orderTypes[r.Intn(len(orderTypes))]

	// 买单 [mid-spread, mid+spread/4]，卖单 [mid-spread/4, mid+spread]
	offset := spread.Mul(decimal.NewFromFloat(r.Float64() * 1.25))
	var price decimal.Decimal
	if orderType == "BID" {
		price = mid.Add(spread.Div(decimal.NewFromInt(4))).Sub(offset)
	} else {
		price = mid.Sub(spread.Div(decimal.NewFromInt(4))).Add(offset)
	}
	amount := decimal.NewFromFloat(0.01 + r.Float64()*0.99).Truncate(amountScale)
	if amount.IsZero() {
		amount = decimal.New(1, -amountScale)
	}

	return BookEntry{
		OrderID:   uuid.New().String(),
		OrderType: orderType,
		Price:     price.Truncate(priceScale),
		Amount:    amount,
		Timestamp: time.Now().UTC().UnixMilli(),
	}
}

// seedBook 原子地替换交易对的订单簿
func seedBook(ctx context.Context, rdb *redis.Client, pair string, entries []BookEntry) error {
	// 清空与写入在同一事务内，读取方不会看到空订单簿
	pipe := rdb.TxPipeline()
	pipe.Del(ctx, "bids:"+pair, "asks:"+pair)
	for _, e := range entries {
		key := "bids:" + pair
		if e.OrderType == "ASK" {
			key = "asks:" + pair
		}
		entryJSON, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("序列化订单失败: %v", err)
		}
		score, _ := e.Price.Float64()
		pipe.ZAdd(ctx, key, &redis.Z{Score: score, Member: entryJSON})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("写入订单簿失败: %v", err)
	}
	return nil
}

func main() {
	addr := flag.String("redis-addr", "127.0.0.1:6379", "Redis 地址")
	password := flag.String("redis-password", "", "Redis 密码")
	pair := flag.String("pair", "BTC_USDT", "交易对")
	count := flag.Int("count", 200, "每轮生成的订单数")
	midStr := flag.String("mid", "40500", "中间价")
	spreadStr := flag.String("spread", "500", "价格浮动范围")
	priceScale := flag.Int("price-scale", 8, "价格精度")
	amountScale := flag.Int("amount-scale", 8, "数量精度")
	interval := flag.Duration("interval", 0, "重新生成间隔，0 表示只生成一次")
	flag.Parse()

	mid, err := decimal.NewFromString(*midStr)
	if err != nil {
		log.Fatalf("无效的中间价: %v", err)
	}
	spread, err := decimal.NewFromString(*spreadStr)
	if err != nil {
		log.Fatalf("无效的价格浮动范围: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: *addr, Password: *password})
	defer rdb.Close()

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	ctx := context.Background()
	generate := func() {
		entries := make([]BookEntry, 0, *count)
		for i := 0; i < *count; i++ {
			entries = append(entries, generateRandomOrder(r, mid, spread, int32(*priceScale), int32(*amountScale)))
		}
		if err := seedBook(ctx, rdb, *pair, entries); err != nil {
			log.Printf("生成订单簿失败: %v", err)
			return
		}
		log.Printf("已写入 %s 订单 %d 笔", *pair, len(entries))
	}

	generate()
	if *interval <= 0 {
		return
	}
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for range ticker.C {
		generate()
	}
}

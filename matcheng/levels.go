package matcheng

import "batchbook/fixed"

// AggregatePrice 某一价格档位上的总量
type AggregatePrice struct {
	Price    fixed.Int `json:"price"`
	Quantity fixed.Int `json:"quantity"`
}

// AggregateLevels 按价格合并一侧订单的数量，档位顺序与 Sort 一致（最优价在前）。
// 零数量订单不产生档位。
func AggregateLevels(orders []Order, side Side) ([]AggregatePrice, error) {
	if err := validateOrders(orders, side); err != nil {
		return nil, err
	}
	sorted, err := Sort(orders, side)
	if err != nil {
		return nil, err
	}

	levels := make([]AggregatePrice, 0, len(sorted))
	for _, o := range sorted {
		if o.Quantity.IsZero() {
			continue
		}
		if n := len(levels); n > 0 && levels[n-1].Price.Equal(o.Price) {
			levels[n-1].Quantity = levels[n-1].Quantity.Add(o.Quantity)
			continue
		}
		levels = append(levels, AggregatePrice{Price: o.Price, Quantity: o.Quantity})
	}
	return levels, nil
}

// Cumulate 把档位数量转为从最优价开始的累计量
func Cumulate(levels []AggregatePrice) []AggregatePrice {
	out := make([]AggregatePrice, len(levels))
	acc := fixed.ZeroInt()
	for i, l := range levels {
		acc = acc.Add(l.Quantity)
		out[i] = AggregatePrice{Price: l.Price, Quantity: acc}
	}
	return out
}

// TopOfBook 买一、卖一及价差
type TopOfBook struct {
	BestBid *AggregatePrice `json:"bestBid"`
	BestAsk *AggregatePrice `json:"bestAsk"`
	// Spread = 卖一 - 买一，任一侧为空时为 nil，盘口交叉时为负
	Spread *fixed.Int `json:"spread"`
}

// Top levels 需为 AggregateLevels 的输出
func Top(bids, asks []AggregatePrice) TopOfBook {
	var tob TopOfBook
	if len(bids) > 0 {
		b := bids[0]
		tob.BestBid = &b
	}
	if len(asks) > 0 {
		a := asks[0]
		tob.BestAsk = &a
	}
	if tob.BestBid != nil && tob.BestAsk != nil {
		s := tob.BestAsk.Price.Sub(tob.BestBid.Price)
		tob.Spread = &s
	}
	return tob
}

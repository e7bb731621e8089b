package matcheng

import (
	"github.com/google/btree"

	"batchbook/fixed"
)

// RatioScale 分摊比例的小数位数
const RatioScale = 18

// ClearingResult 集合竞价的估算结果。
// Matched 为 false 表示盘口不交叉（无成交），此时价格与数量为 0、比例为 0，
// 与“以 0 价格成交”的交叉盘口可以区分。
type ClearingResult struct {
	Matched         bool          `json:"matched"`
	ClearingPrice   fixed.Decimal `json:"clearingPrice"`
	MatchedQuantity fixed.Decimal `json:"matchedQuantity"`
	// BidVolume / AskVolume 为清算价处的累计需求 D(p) 与累计供给 S(p)
	BidVolume fixed.Decimal `json:"bidVolume"`
	AskVolume fixed.Decimal `json:"askVolume"`
	BidRatio  fixed.Decimal `json:"bidRatio"`
	AskRatio  fixed.Decimal `json:"askRatio"`
}

// NoMatch 盘口是否不交叉
func (r ClearingResult) NoMatch() bool {
	return !r.Matched
}

func noMatch(baseScale, quoteScale int32) ClearingResult {
	return ClearingResult{
		ClearingPrice:   fixed.ZeroDecimal(quoteScale),
		MatchedQuantity: fixed.ZeroDecimal(baseScale),
		BidVolume:       fixed.ZeroDecimal(baseScale),
		AskVolume:       fixed.ZeroDecimal(baseScale),
		BidRatio:        fixed.ZeroDecimal(RatioScale),
		AskRatio:        fixed.ZeroDecimal(RatioScale),
	}
}

// priceLevel 某一价格上的买卖挂单量，以及扫描时填入的累计需求/供给
type priceLevel struct {
	price  fixed.Int
	bidQty fixed.Int
	askQty fixed.Int
	demand fixed.Int // 价格 >= price 的买单总量
	supply fixed.Int // 价格 <= price 的卖单总量
}

func (l *priceLevel) executable() fixed.Int {
	return fixed.MinInt(l.demand, l.supply)
}

func priceLevelLess(a, b *priceLevel) bool {
	return a.price.LT(b.price)
}

// EstimateBatch 计算统一价格集合竞价的清算价与分摊比例。
//
// 清算价取使可成交量 min(D(p), S(p)) 最大的价格。多个价格并列时，
// 取并列区间内最接近买一卖一中间价的价格（按报价最小单位），仍并列取较低者。
// 在清算价处累计量较大的一侧为多头，其比例为 短边总量/长边总量（向零截断），
// 另一侧为 1。空盘口或不交叉的盘口返回 Matched=false，不是错误。
func EstimateBatch(bids, asks []Order, baseScale, quoteScale int32) (ClearingResult, error) {
	if err := validateScale("baseScale", baseScale); err != nil {
		return ClearingResult{}, err
	}
	if err := validateScale("quoteScale", quoteScale); err != nil {
		return ClearingResult{}, err
	}
	if err := validateOrders(bids, Bid); err != nil {
		return ClearingResult{}, err
	}
	if err := validateOrders(asks, Ask); err != nil {
		return ClearingResult{}, err
	}

	sortedBids, err := Sort(bids, Bid)
	if err != nil {
		return ClearingResult{}, err
	}
	sortedAsks, err := Sort(asks, Ask)
	if err != nil {
		return ClearingResult{}, err
	}

	bestBid, hasBid := bestPrice(sortedBids)
	bestAsk, hasAsk := bestPrice(sortedAsks)
	if !hasBid || !hasAsk || bestBid.LT(bestAsk) {
		return noMatch(baseScale, quoteScale), nil
	}

	levels := buildLevels(sortedBids, sortedAsks)

	// 找最大可成交量及其所在的价格区间 [lo, hi]
	best := fixed.ZeroInt()
	var lo, hi fixed.Int
	for _, l := range levels {
		e := l.executable()
		if e.IsZero() {
			continue
		}
		switch e.Cmp(best) {
		case 1:
			best, lo, hi = e, l.price, l.price
		case 0:
			hi = l.price
		}
	}
	if best.IsZero() {
		return noMatch(baseScale, quoteScale), nil
	}

	// 中间价向下取整即为等距时偏向较低价格
	mid := bestBid.Add(bestAsk).Quo(fixed.NewInt(2))
	price := fixed.MaxInt(lo, fixed.MinInt(mid, hi))

	demand, supply := volumesAt(levels, price)
	res := ClearingResult{
		Matched:         true,
		ClearingPrice:   fixed.NewDecimal(price, quoteScale),
		MatchedQuantity: fixed.NewDecimal(fixed.MinInt(demand, supply), baseScale),
		BidVolume:       fixed.NewDecimal(demand, baseScale),
		AskVolume:       fixed.NewDecimal(supply, baseScale),
		BidRatio:        fixed.OneDecimal(RatioScale),
		AskRatio:        fixed.OneDecimal(RatioScale),
	}
	switch demand.Cmp(supply) {
	case 1:
		res.BidRatio = prorate(supply, demand)
	case -1:
		res.AskRatio = prorate(demand, supply)
	}
	return res, nil
}

// bestPrice 第一个非零数量订单的价格，订单需已排序
func bestPrice(sorted []Order) (fixed.Int, bool) {
	for _, o := range sorted {
		if !o.Quantity.IsZero() {
			return o.Price, true
		}
	}
	return fixed.Int{}, false
}

// buildLevels 合并买卖两侧的价格档位（升序），并填入累计需求与供给
func buildLevels(sortedBids, sortedAsks []Order) []*priceLevel {
	tree := btree.NewG[*priceLevel](32, priceLevelLess)
	add := func(o Order) {
		if o.Quantity.IsZero() {
			return
		}
		lvl, ok := tree.Get(&priceLevel{price: o.Price})
		if !ok {
			lvl = &priceLevel{price: o.Price}
			tree.ReplaceOrInsert(lvl)
		}
		if o.Side == Bid {
			lvl.bidQty = lvl.bidQty.Add(o.Quantity)
		} else {
			lvl.askQty = lvl.askQty.Add(o.Quantity)
		}
	}
	for _, o := range sortedBids {
		add(o)
	}
	for _, o := range sortedAsks {
		add(o)
	}

	levels := make([]*priceLevel, 0, tree.Len())
	supply := fixed.ZeroInt()
	tree.Ascend(func(l *priceLevel) bool {
		supply = supply.Add(l.askQty)
		l.supply = supply
		levels = append(levels, l)
		return true
	})
	demand := fixed.ZeroInt()
	for i := len(levels) - 1; i >= 0; i-- {
		demand = demand.Add(levels[i].bidQty)
		levels[i].demand = demand
	}
	return levels
}

// volumesAt 任意价格（不必是档位价格）处的 D(p) 与 S(p)
func volumesAt(levels []*priceLevel, price fixed.Int) (demand, supply fixed.Int) {
	for _, l := range levels {
		if l.price.GTE(price) {
			demand = demand.Add(l.bidQty)
		}
		if l.price.LTE(price) {
			supply = supply.Add(l.askQty)
		}
	}
	return demand, supply
}

// prorate short/long，向零截断并限制在 [0, 1]，分母为 0 时为 0
func prorate(short, long fixed.Int) fixed.Decimal {
	if long.IsZero() {
		return fixed.ZeroDecimal(RatioScale)
	}
	r := fixed.NewDecimal(short, 0).QuoTrunc(fixed.NewDecimal(long, 0), RatioScale)
	one := fixed.OneDecimal(RatioScale)
	if r.Cmp(one) > 0 {
		return one
	}
	if r.Sign() < 0 {
		return fixed.ZeroDecimal(RatioScale)
	}
	return r
}

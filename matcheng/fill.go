package matcheng

import "batchbook/fixed"

// Fill 按估算结果分配给单笔订单的成交量
type Fill struct {
	OrderID     string    `json:"orderId"`
	Side        Side      `json:"side"`
	QtyFilled   fixed.Int `json:"qtyFilled"`
	QtyUnfilled fixed.Int `json:"qtyUnfilled"`
}

// Fills 把 EstimateBatch 的结果落到每笔订单上。
// 参与成交的订单（买价 >= 清算价、卖价 <= 清算价）中，短边全部成交，
// 长边每笔按 数量 × 短边总量 / 长边总量 向下取整，保证每侧成交总量不超过可成交量。
// 未成交的订单不出现在结果中。
func Fills(bids, asks []Order, res ClearingResult) ([]Fill, error) {
	if err := validateOrders(bids, Bid); err != nil {
		return nil, err
	}
	if err := validateOrders(asks, Ask); err != nil {
		return nil, err
	}
	fills := make([]Fill, 0)
	if !res.Matched {
		return fills, nil
	}

	sortedBids, err := Sort(bids, Bid)
	if err != nil {
		return nil, err
	}
	sortedAsks, err := Sort(asks, Ask)
	if err != nil {
		return nil, err
	}

	price := res.ClearingPrice.Units()
	demand := res.BidVolume.Units()
	supply := res.AskVolume.Units()

	fillSide := func(orders []Order, participates func(Order) bool, short, long fixed.Int) {
		for _, o := range orders {
			if o.Quantity.IsZero() || !participates(o) {
				continue
			}
			filled := o.Quantity
			if long.GT(short) {
				filled = o.Quantity.Mul(short).Quo(long)
			}
			if filled.IsZero() {
				continue
			}
			fills = append(fills, Fill{
				OrderID:     o.ID,
				Side:        o.Side,
				QtyFilled:   filled,
				QtyUnfilled: o.Quantity.Sub(filled),
			})
		}
	}
	fillSide(sortedBids, func(o Order) bool { return o.Price.GTE(price) }, supply, demand)
	fillSide(sortedAsks, func(o Order) bool { return o.Price.LTE(price) }, demand, supply)
	return fills, nil
}

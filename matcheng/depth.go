package matcheng

import "batchbook/fixed"

// DepthPoint 深度曲线上的一点：价格及该价格（含）以优的累计成交额
type DepthPoint struct {
	Price           fixed.Decimal `json:"price"`
	CumulativeValue fixed.Decimal `json:"value"`
}

// ReduceDepth 把一侧订单归约为累计深度曲线。
//
// 订单先按 Sort 重新排序，然后从最优价开始单次遍历，
// 累加 price × quantity / 10^quantityScale。零数量订单跳过。
// 结果精度：价格为 priceScale，累计额为 priceScale+quantityScale，全程无截断。
// 任一订单非法时返回 nil 和错误，不返回部分曲线。
func ReduceDepth(orders []Order, priceScale, quantityScale int32) ([]DepthPoint, error) {
	if err := validateScale("priceScale", priceScale); err != nil {
		return nil, err
	}
	if err := validateScale("quantityScale", quantityScale); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return []DepthPoint{}, nil
	}

	side := orders[0].Side
	if err := validateOrders(orders, side); err != nil {
		return nil, err
	}
	sorted, err := Sort(orders, side)
	if err != nil {
		return nil, err
	}

	points := make([]DepthPoint, 0, len(sorted))
	acc := fixed.ZeroDecimal(priceScale + quantityScale)
	for _, o := range sorted {
		if o.Quantity.IsZero() {
			continue
		}
		price := fixed.NewDecimal(o.Price, priceScale)
		acc = acc.Add(price.Mul(fixed.NewDecimal(o.Quantity, quantityScale)))
		points = append(points, DepthPoint{
			Price:           price,
			CumulativeValue: acc,
		})
	}
	return points, nil
}

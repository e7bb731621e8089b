package matcheng

import (
	"fmt"
	"sort"
)

// Sort 按价格排序：买单从高到低，卖单从低到高。
// 同价订单保持输入顺序（稳定排序），不过滤零数量订单，不修改输入。
func Sort(orders []Order, side Side) ([]Order, error) {
	if !side.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSide, side)
	}
	for _, o := range orders {
		if o.Side != side {
			return nil, fmt.Errorf("%w: 订单 %s 为 %s，期望 %s", ErrInvalidInput, o.ID, o.Side, side)
		}
	}

	sorted := make([]Order, len(orders))
	copy(sorted, orders)
	if side == Bid {
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Price.GT(sorted[j].Price)
		})
	} else {
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Price.LT(sorted[j].Price)
		})
	}
	return sorted, nil
}

func SortBids(bids []Order) ([]Order, error) { return Sort(bids, Bid) }

func SortAsks(asks []Order) ([]Order, error) { return Sort(asks, Ask) }

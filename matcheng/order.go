package matcheng

import (
	"fmt"

	"batchbook/fixed"
)

// Order 挂单快照中的一笔订单，不可变。
// Price 为报价资产最小单位（priceScale），Quantity 为基础资产最小单位（quantityScale）。
// ID 只用于标识，不参与排序。
type Order struct {
	ID       string    `json:"id"`
	Side     Side      `json:"side"`
	Price    fixed.Int `json:"price"`
	Quantity fixed.Int `json:"quantity"`
}

// NewOrder 构造订单，不做校验
func NewOrder(id string, side Side, price, quantity fixed.Int) Order {
	return Order{ID: id, Side: side, Price: price, Quantity: quantity}
}

// Validate 价格和数量必须非负
func (o Order) Validate() error {
	if o.Price.IsNegative() {
		return fmt.Errorf("%w: 订单 %s 价格为负 %s", ErrInvalidOrder, o.ID, o.Price)
	}
	if o.Quantity.IsNegative() {
		return fmt.Errorf("%w: 订单 %s 数量为负 %s", ErrInvalidOrder, o.ID, o.Quantity)
	}
	return nil
}

// validateOrders 在任何累加之前检查整组订单，任一失败则整体失败
func validateOrders(orders []Order, side Side) error {
	if !side.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidSide, side)
	}
	for _, o := range orders {
		if o.Side != side {
			return fmt.Errorf("%w: 订单 %s 为 %s，期望 %s", ErrInvalidInput, o.ID, o.Side, side)
		}
		if err := o.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func validateScale(name string, scale int32) error {
	if scale < 0 || scale > fixed.MaxScale {
		return fmt.Errorf("%w: %s=%d", ErrInvalidInput, name, scale)
	}
	return nil
}

package matcheng

import (
	"fmt"
	"math/big"

	"batchbook/fixed"
)

// NormalizeQuoteQuantity 计算 price × quantity / 10^quantityScale（向零截断），
// 即按价格成交 quantity 所需的报价资产最小单位数量。
// 非零输入换算为 0 时返回 ErrQuantityTooSmall。
func NormalizeQuoteQuantity(price, quantity fixed.Int, quantityScale int32) (fixed.Int, error) {
	if err := validateScale("quantityScale", quantityScale); err != nil {
		return fixed.Int{}, err
	}
	if price.IsNegative() || quantity.IsNegative() {
		return fixed.Int{}, fmt.Errorf("%w: price=%s quantity=%s", ErrInvalidOrder, price, quantity)
	}
	den := fixed.NewIntFromBig(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(quantityScale)), nil))
	out := price.Mul(quantity).Quo(den)
	if out.IsZero() && !price.IsZero() && !quantity.IsZero() {
		return fixed.Int{}, fmt.Errorf("%w: price=%s quantity=%s", ErrQuantityTooSmall, price, quantity)
	}
	return out, nil
}

package fixed

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// Int 不可变的任意精度整数，用于最小单位金额。
// 零值表示 0，可直接使用。所有运算都返回新值，不会修改接收者。
type Int struct {
	i *big.Int
}

// NewInt 由 int64 构造
func NewInt(n int64) Int {
	return Int{i: big.NewInt(n)}
}

// NewIntFromUint64 由 uint64 构造
func NewIntFromUint64(n uint64) Int {
	return Int{i: new(big.Int).SetUint64(n)}
}

// NewIntFromBig 复制 b，之后修改 b 不影响返回值
func NewIntFromBig(b *big.Int) Int {
	if b == nil {
		return Int{}
	}
	return Int{i: new(big.Int).Set(b)}
}

// ParseInt 解析十进制整数字符串
func ParseInt(s string) (Int, error) {
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Int{}, fmt.Errorf("%w: %q", ErrSyntax, s)
	}
	return Int{i: b}, nil
}

// ZeroInt 返回 0
func ZeroInt() Int {
	return Int{}
}

func (x Int) big() *big.Int {
	if x.i == nil {
		return new(big.Int)
	}
	return x.i
}

// BigInt 返回内部值的副本
func (x Int) BigInt() *big.Int {
	return new(big.Int).Set(x.big())
}

// Add 返回 x + y
func (x Int) Add(y Int) Int {
	return Int{i: new(big.Int).Add(x.big(), y.big())}
}

// Sub 返回 x - y
func (x Int) Sub(y Int) Int {
	return Int{i: new(big.Int).Sub(x.big(), y.big())}
}

// Mul 返回 x * y
func (x Int) Mul(y Int) Int {
	return Int{i: new(big.Int).Mul(x.big(), y.big())}
}

// Quo 向零截断的整数除法，除数为 0 时返回 0
func (x Int) Quo(y Int) Int {
	if y.IsZero() {
		return Int{}
	}
	return Int{i: new(big.Int).Quo(x.big(), y.big())}
}

// Cmp 比较大小，返回 -1、0、1
func (x Int) Cmp(y Int) int {
	return x.big().Cmp(y.big())
}

// Sign 返回 -1、0、1
func (x Int) Sign() int {
	return x.big().Sign()
}

// 比较与判断
func (x Int) IsZero() bool { return x.Sign() == 0 }
func (x Int) IsNegative() bool { return x.Sign() < 0 }
func (x Int) Equal(y Int) bool { return x.Cmp(y) == 0 }
func (x Int) LT(y Int) bool { return x.Cmp(y) < 0 }
func (x Int) LTE(y Int) bool { return x.Cmp(y) <= 0 }
func (x Int) GT(y Int) bool { return x.Cmp(y) > 0 }
func (x Int) GTE(y Int) bool { return x.Cmp(y) >= 0 }

// MinInt 返回较小值
func MinInt(x, y Int) Int {
	if x.LTE(y) {
		return x
	}
	return y
}

// MaxInt 返回较大值
func MaxInt(x, y Int) Int {
	if x.GTE(y) {
		return x
	}
	return y
}

// String 十进制字符串
func (x Int) String() string {
	return x.big().String()
}

// MarshalJSON 输出带引号的十进制字符串，避免 JS 端精度丢失
func (x Int) MarshalJSON() ([]byte, error) {
	return json.Marshal(x.String())
}

// UnmarshalJSON 接受带引号的十进制字符串
func (x *Int) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseInt(s)
	if err != nil {
		return err
	}
	*x = v
	return nil
}

// pow10 返回 10^n
func pow10(n int32) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

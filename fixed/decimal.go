package fixed

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	ErrSyntax    = errors.New("无效的数字格式")
	ErrPrecision = errors.New("小数位数超出精度")
	ErrScale     = errors.New("无效的精度")
)

// MaxScale 允许的最大小数位数
const MaxScale = 36

// Decimal 定点小数：value = units / 10^scale。
// scale 在每一步运算中显式携带，运算结果不会经过二进制浮点。
type Decimal struct {
	units Int
	scale int32
}

// NewDecimal 由最小单位整数和精度构造
func NewDecimal(units Int, scale int32) Decimal {
	if scale < 0 {
		scale = 0
	}
	return Decimal{units: units, scale: scale}
}

// ZeroDecimal 指定精度的 0
func ZeroDecimal(scale int32) Decimal {
	return NewDecimal(ZeroInt(), scale)
}

// OneDecimal 指定精度的 1
func OneDecimal(scale int32) Decimal {
	return NewDecimal(Int{i: pow10(scale)}, scale)
}

// ParseDecimal 解析如 "123.45" 的字符串。
// 需要超过 scale 位小数才能表示的值返回 ErrPrecision，不做舍入。
func ParseDecimal(s string, scale int32) (Decimal, error) {
	units, err := ParseUnits(s, scale)
	if err != nil {
		return Decimal{}, err
	}
	return NewDecimal(units, scale), nil
}

// ParseUnits 把十进制字符串换算成 scale 精度下的最小单位整数
func ParseUnits(s string, scale int32) (Int, error) {
	if scale < 0 || scale > MaxScale {
		return Int{}, fmt.Errorf("%w: %d", ErrScale, scale)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Int{}, fmt.Errorf("%w: %q", ErrSyntax, s)
	}
	shifted := d.Shift(scale)
	if !shifted.Equal(shifted.Truncate(0)) {
		return Int{}, fmt.Errorf("%w: %q 超过 %d 位", ErrPrecision, s, scale)
	}
	return NewIntFromBig(shifted.BigInt()), nil
}

// Units 最小单位整数
func (d Decimal) Units() Int { return d.units }
func (d Decimal) Scale() int32 { return d.scale }

// Rescale 调整精度：放大精确，缩小向零截断
func (d Decimal) Rescale(scale int32) Decimal {
	if scale < 0 {
		scale = 0
	}
	switch {
	case scale == d.scale:
		return d
	case scale > d.scale:
		f := Int{i: pow10(scale - d.scale)}
		return Decimal{units: d.units.Mul(f), scale: scale}
	default:
		f := Int{i: pow10(d.scale - scale)}
		return Decimal{units: d.units.Quo(f), scale: scale}
	}
}

func align(a, b Decimal) (Decimal, Decimal) {
	if a.scale > b.scale {
		return a, b.Rescale(a.scale)
	}
	return a.Rescale(b.scale), b
}

// Add 按较大的精度对齐后相加
func (d Decimal) Add(o Decimal) Decimal {
	a, b := align(d, o)
	return Decimal{units: a.units.Add(b.units), scale: a.scale}
}

// Sub 按较大的精度对齐后相减
func (d Decimal) Sub(o Decimal) Decimal {
	a, b := align(d, o)
	return Decimal{units: a.units.Sub(b.units), scale: a.scale}
}

// Mul 精确乘法，结果精度为两者之和
func (d Decimal) Mul(o Decimal) Decimal {
	return Decimal{units: d.units.Mul(o.units), scale: d.scale + o.scale}
}

// QuoTrunc 除法，结果为 scale 精度，向零截断。除数为 0 时结果为 0。
func (d Decimal) QuoTrunc(o Decimal, scale int32) Decimal {
	if scale < 0 {
		scale = 0
	}
	if o.units.IsZero() {
		return ZeroDecimal(scale)
	}
	// d/o = (du/10^ds) / (ou/10^os)，放大到 10^scale 后为 du*10^(scale+os-ds) / ou
	num := d.units.big()
	exp := scale + o.scale - d.scale
	n := new(big.Int)
	den := new(big.Int).Set(o.units.big())
	if exp >= 0 {
		n.Mul(num, pow10(exp))
	} else {
		n.Set(num)
		den.Mul(den, pow10(-exp))
	}
	return Decimal{units: Int{i: n.Quo(n, den)}, scale: scale}
}

// Cmp 比较数值大小，与精度无关
func (d Decimal) Cmp(o Decimal) int {
	a, b := align(d, o)
	return a.units.Cmp(b.units)
}

// 符号与相等判断
func (d Decimal) Sign() int { return d.units.Sign() }
func (d Decimal) IsZero() bool { return d.units.IsZero() }
func (d Decimal) Equal(o Decimal) bool { return d.Cmp(o) == 0 }

func (d Decimal) toShopspring() decimal.Decimal {
	return decimal.NewFromBigInt(d.units.big(), -d.scale)
}

// String 按自身精度输出固定位数，如 scale=2 时输出 "9.50"
func (d Decimal) String() string {
	return d.toShopspring().StringFixed(d.scale)
}

// Float64 仅用于百分比等展示，不可参与撮合计算
func (d Decimal) Float64() float64 {
	f, _ := d.toShopspring().Float64()
	return f
}

// MarshalJSON 输出带引号的十进制字符串
func (d Decimal) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON 精度取字符串中的小数位数
func (d *Decimal) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrSyntax, s)
	}
	scale := -v.Exponent()
	if scale < 0 {
		scale = 0
	}
	parsed, err := ParseDecimal(s, scale)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

package fixed

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntImmutable(t *testing.T) {
	b := big.NewInt(5)
	x := NewIntFromBig(b)
	b.SetInt64(7)
	assert.Equal(t, "5", x.String())

	y := x.Add(NewInt(1))
	assert.Equal(t, "5", x.String())
	assert.Equal(t, "6", y.String())

	out := x.BigInt()
	out.SetInt64(100)
	assert.Equal(t, "5", x.String())
}

func TestIntZeroValue(t *testing.T) {
	var z Int
	assert.True(t, z.IsZero())
	assert.Equal(t, "0", z.String())
	assert.Equal(t, "3", z.Add(NewInt(3)).String())
	assert.True(t, NewInt(3).Quo(z).IsZero())
}

func TestIntQuoTruncatesTowardZero(t *testing.T) {
	assert.Equal(t, "3", NewInt(7).Quo(NewInt(2)).String())
	assert.Equal(t, "-3", NewInt(-7).Quo(NewInt(2)).String())
}

func TestIntJSON(t *testing.T) {
	x, err := ParseInt("123456789012345678901234567890")
	require.NoError(t, err)

	bz, err := json.Marshal(x)
	require.NoError(t, err)
	assert.Equal(t, `"123456789012345678901234567890"`, string(bz))

	var back Int
	require.NoError(t, json.Unmarshal(bz, &back))
	assert.True(t, x.Equal(back))

	_, err = ParseInt("12a")
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestParseUnits(t *testing.T) {
	tests := []struct {
		in    string
		scale int32
		want  string
		err   error
	}{
		{"10", 8, "1000000000", nil},
		{"0.5", 1, "5", nil},
		{"1.23", 2, "123", nil},
		{"1.230", 2, "123", nil},
		{"-2.5", 1, "-25", nil},
		{"1.234", 2, "", ErrPrecision},
		{"abc", 2, "", ErrSyntax},
		{"1", -1, "", ErrScale},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseUnits(tt.in, tt.scale)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestDecimalArithmetic(t *testing.T) {
	a := NewDecimal(NewInt(150), 2) // 1.50
	b := NewDecimal(NewInt(25), 1)  // 2.5

	assert.Equal(t, "4.00", a.Add(b).String())
	assert.Equal(t, "-1.00", a.Sub(b).String())
	assert.Equal(t, "3.750", a.Mul(b).String())
	assert.Equal(t, -1, a.Cmp(b))
	assert.True(t, NewDecimal(NewInt(25), 1).Equal(NewDecimal(NewInt(250), 2)))
}

func TestDecimalQuoTrunc(t *testing.T) {
	four := NewDecimal(NewInt(4), 0)
	ten := NewDecimal(NewInt(10), 0)
	assert.Equal(t, "0.4", four.QuoTrunc(ten, 1).String())

	one := NewDecimal(NewInt(1), 0)
	three := NewDecimal(NewInt(3), 0)
	assert.Equal(t, "0.3333", one.QuoTrunc(three, 4).String())

	two := NewDecimal(NewInt(2), 0)
	assert.Equal(t, "0.6666", two.QuoTrunc(three, 4).String(), "never rounds up")

	// 被除数精度高于目标精度
	x := NewDecimal(NewInt(123456), 5) // 1.23456
	assert.Equal(t, "0.61", x.QuoTrunc(two, 2).String())

	assert.True(t, one.QuoTrunc(ZeroDecimal(3), 4).IsZero())
}

func TestDecimalRescale(t *testing.T) {
	d := NewDecimal(NewInt(1999), 3) // 1.999
	assert.Equal(t, "1.99", d.Rescale(2).String())
	assert.Equal(t, "1.99900", d.Rescale(5).String())
	assert.Equal(t, "-1.99", NewDecimal(NewInt(-1999), 3).Rescale(2).String())
}

func TestDecimalJSON(t *testing.T) {
	d, err := ParseDecimal("9.50", 2)
	require.NoError(t, err)

	bz, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"9.50"`, string(bz))

	var back Decimal
	require.NoError(t, json.Unmarshal(bz, &back))
	assert.Equal(t, int32(2), back.Scale())
	assert.True(t, d.Equal(back))
}

func TestDecimalFloat64(t *testing.T) {
	assert.InDelta(t, 0.4, NewDecimal(NewInt(4), 1).Float64(), 1e-12)
	assert.Equal(t, "1.000", OneDecimal(3).String())
}

package matcheng

import (
	"encoding/json"
	"fmt"
)

// Side 买卖方向
type Side uint8

const (
	Bid Side = iota
	Ask
)

// String 返回 "BID" / "ASK"
func (s Side) String() string {
	switch s {
	case Bid:
		return "BID"
	case Ask:
		return "ASK"
	default:
		return fmt.Sprintf("Side(%d)", uint8(s))
	}
}

// Valid 是否为 Bid 或 Ask
func (s Side) Valid() bool {
	return s == Bid || s == Ask
}

// Opposite 对手方
func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

// ParseSide 解析 "BID" / "ASK"
func ParseSide(str string) (Side, error) {
	switch str {
	case "BID":
		return Bid, nil
	case "ASK":
		return Ask, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidSide, str)
	}
}

// MarshalJSON 输出 "BID" / "ASK"，非法方向返回错误
func (s Side) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSide, uint8(s))
	}
	return json.Marshal(s.String())
}

// UnmarshalJSON 只接受 "BID" / "ASK"
func (s *Side) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	v, err := ParseSide(str)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

package matcheng

import "errors"

var (
	// ErrInvalidInput 同一侧的调用中混入了另一侧的订单，或精度参数非法
	ErrInvalidInput = errors.New("无效的输入")
	// ErrInvalidOrder 价格或数量为负
	ErrInvalidOrder = errors.New("无效的订单")
	// ErrInvalidSide 无法识别的买卖方向
	ErrInvalidSide = errors.New("无效的买卖方向，必须是 BID 或 ASK")
	// ErrQuantityTooSmall 换算后的数量为 0，无法用最小单位表示
	ErrQuantityTooSmall = errors.New("数量过小，无法表示")
)

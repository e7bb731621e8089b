package matcheng

import (
	"bytes"
	"fmt"
)

// PlotCurves 输出 gnuplot 可读的阶梯曲线。
// bids、asks 为 Cumulate 的输出（最优价在前）。
func PlotCurves(bids, asks []AggregatePrice) string {
	var buf bytes.Buffer
	buf.WriteString("\"Ask\"\n")
	for i, entry := range asks {
		if i == 0 {
			fmt.Fprintf(&buf, "%s 0\n", entry.Price)
		} else {
			fmt.Fprintf(&buf, "%s %s\n", entry.Price, asks[i-1].Quantity)
		}
		fmt.Fprintf(&buf, "%s %s\n", entry.Price, entry.Quantity)
	}

	buf.WriteString("\n\n")
	buf.WriteString("\"Bid\"\n")
	for i, entry := range bids {
		if i == 0 {
			fmt.Fprintf(&buf, "%s 0\n", entry.Price)
		} else {
			fmt.Fprintf(&buf, "%s %s\n", entry.Price, bids[i-1].Quantity)
		}
		fmt.Fprintf(&buf, "%s %s\n", entry.Price, entry.Quantity)
		if i == len(bids)-1 {
			fmt.Fprintf(&buf, "0 %s\n", entry.Quantity)
		}
	}
	return buf.String()
}

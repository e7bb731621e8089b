package main

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarketViewJSON(t *testing.T) {
	view, err := BuildView(testMarket, crossingSnapshot(t), time.UnixMilli(5))
	require.NoError(t, err)

	bz, err := json.Marshal(view)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(bz, &raw))
	assert.NotContains(t, raw, "Fills", "逐笔分配不随视图推送")
	assert.NotContains(t, raw, "fills")

	var batch map[string]any
	require.NoError(t, json.Unmarshal(raw["batch"], &batch))
	assert.Equal(t, true, batch["matched"])
	assert.Equal(t, "9.50", batch["clearingPrice"])
	assert.Contains(t, batch, "bidFillPercent")
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlert_Text(t *testing.T) {
	a := &Alert{
		Kind:       SignalReversalBounce,
		Headline:   "Reversal bounce on SPY",
		Symbol:     "SPY",
		Price:      579,
		VWAP:       585,
		MFI:        25,
		LowerBand:  581,
		UpperBand:  589,
		HasBands:   true,
		Expiration: "2025-06-20",
		Contract: RankedContract{
			OptionContract: OptionContract{Symbol: "O:SPY250620C00575000", Type: OptionCall, Strike: 575, LastPrice: 4},
			Liquidity:      200,
			PercentITM:     0.690846,
		},
	}

	text := a.Text()
	assert.Contains(t, text, "Reversal bounce on SPY")
	assert.Contains(t, text, "SPY: $579.00 | VWAP: $585.00 | MFI: 25.00")
	assert.Contains(t, text, "Bands: $581.00 / $589.00")
	assert.Contains(t, text, "Contract: O:SPY250620C00575000 (call)")
	assert.Contains(t, text, "Liquidity: 200.00 | ITM: 0.69%")

	a.HasBands = false
	assert.NotContains(t, a.Text(), "Bands:")
	assert.Equal(t, "SPY:reversal_bounce:O:SPY250620C00575000", a.DedupKey())
}

func TestFixed(t *testing.T) {
	assert.Equal(t, "0.69", Fixed(0.6908, 2))
	assert.Equal(t, "2.50", Money(2.5))
	assert.Equal(t, "-1.24", Fixed(-1.235, 2))
}

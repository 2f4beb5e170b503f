package alert

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itmScreener/internal/domain"
	"itmScreener/internal/strategy/ranking"
	"itmScreener/internal/strategy/strategies"
)

func fixedComposer() *Composer {
	return &Composer{now: func() time.Time { return time.Date(2025, 6, 16, 14, 0, 0, 0, time.UTC) }}
}

func suggested() *domain.RankedContract {
	return &domain.RankedContract{
		OptionContract: domain.OptionContract{Symbol: "O:SPY250620C00575000", Type: domain.OptionCall, Strike: 575, LastPrice: 4, Volume: 800},
		Liquidity:      200,
		PercentITM:     0.69,
	}
}

func TestCompose_NoPayloadWithoutBuySignal(t *testing.T) {
	c := fixedComposer()
	assert.Nil(t, c.Compose("SPY", domain.Signal{Kind: domain.SignalNone}, suggested(), "2025-06-20"))
	assert.Nil(t, c.Compose("SPY", domain.Signal{}, suggested(), "2025-06-20"))
}

func TestCompose_NoPayloadWithoutContract(t *testing.T) {
	c := fixedComposer()
	assert.Nil(t, c.Compose("SPY", domain.Signal{Kind: domain.SignalMomentumBreakout}, nil, "2025-06-20"))
}

func TestCompose_TypeDecodedFromSymbol(t *testing.T) {
	c := fixedComposer()
	contract := suggested()
	contract.Type = domain.OptionUnknown

	a := c.Compose("SPY", domain.Signal{Kind: domain.SignalMomentumBreakout}, contract, "2025-06-20")
	require.NotNil(t, a)
	assert.Equal(t, domain.OptionCall, a.Contract.Type)
	assert.Equal(t, domain.OptionUnknown, contract.Type, "input contract is not mutated")
}

func TestCompose_EndToEndReversal(t *testing.T) {
	ctx := context.Background()
	snap := domain.IndicatorSnapshot{Price: 579, VWAP: 585, LowerBand: 581, UpperBand: 589, MFI: 25, HasBands: true}

	sig := strategies.NewMomentumOrReversalPolicy(strategies.DefaultThresholds(), nil).Evaluate(ctx, snap)
	require.Equal(t, domain.SignalReversalBounce, sig.Kind)

	ranker, err := ranking.New(ranking.DefaultConfig(), nil)
	require.NoError(t, err)
	rk, err := ranker.Rank(ctx, []domain.OptionContract{{
		Symbol: "O:SPY250620C00575000", Type: domain.OptionCall, Strike: 575, LastPrice: 4.00, Volume: 800,
	}}, snap.Price)
	require.NoError(t, err)

	a := fixedComposer().Compose("SPY", sig, rk.Suggested, "2025-06-20")
	require.NotNil(t, a)
	assert.Equal(t, domain.SignalReversalBounce, a.Kind)
	assert.Equal(t, "O:SPY250620C00575000", a.Contract.Symbol)
	assert.InDelta(t, 200, a.Contract.Liquidity, 1e-9)
	assert.InDelta(t, 0.69, a.Contract.PercentITM, 0.005)
	assert.Equal(t, 579.0, a.Price)
	assert.Equal(t, 25.0, a.MFI)
	assert.Equal(t, "2025-06-20", a.Expiration)
	assert.Contains(t, a.Headline, "Reversal bounce on SPY")
	assert.Equal(t, time.Date(2025, 6, 16, 14, 0, 0, 0, time.UTC), a.CreatedAt)
}

func TestHeadline(t *testing.T) {
	assert.Contains(t, Headline(domain.SignalMomentumBreakout, "QQQ"), "Momentum breakout on QQQ")
	assert.Equal(t, "No buy signal on QQQ", Headline(domain.SignalNone, "QQQ"))
}

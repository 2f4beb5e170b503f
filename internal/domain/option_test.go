package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOCCSymbol(t *testing.T) {
	tests := []struct {
		name     string
		symbol   string
		expected OCCSymbol
		wantErr  bool
	}{
		{
			name:   "vendor prefixed call",
			symbol: "O:SPY250620C00575000",
			expected: OCCSymbol{
				Root: "SPY", Expiration: time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC), Type: OptionCall, Strike: 575,
			},
		},
		{
			name:   "space padded put with fractional strike",
			symbol: "SPY   250620P00580500",
			expected: OCCSymbol{
				Root: "SPY", Expiration: time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC), Type: OptionPut, Strike: 580.5,
			},
		},
		{
			// A "C" in the root must not make a put look like a call.
			name:   "root containing C",
			symbol: "CSCO250117P00045000",
			expected: OCCSymbol{
				Root: "CSCO", Expiration: time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC), Type: OptionPut, Strike: 45,
			},
		},
		{name: "too short", symbol: "SPY", wantErr: true},
		{name: "bad type marker", symbol: "SPY250620X00575000", wantErr: true},
		{name: "bad date", symbol: "SPY251340C00575000", wantErr: true},
		{name: "non numeric strike", symbol: "SPY250620C0057500A", wantErr: true},
		{name: "missing root", symbol: "O:250620C00575000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOCCSymbol(tt.symbol)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected.Root, got.Root)
			assert.True(t, tt.expected.Expiration.Equal(got.Expiration))
			assert.Equal(t, tt.expected.Type, got.Type)
			assert.InDelta(t, tt.expected.Strike, got.Strike, 1e-9)
		})
	}
}

func TestResolveOptionType(t *testing.T) {
	assert.Equal(t, OptionPut, ResolveOptionType("O:SPY250620P00575000", "call"), "symbol wins over declared type")
	assert.Equal(t, OptionCall, ResolveOptionType("weird", "Call"))
	assert.Equal(t, OptionPut, ResolveOptionType("weird", "p"))
	assert.Equal(t, OptionUnknown, ResolveOptionType("weird", ""))
}

func TestRanking_NoCandidates(t *testing.T) {
	var nilRanking *Ranking
	assert.True(t, nilRanking.NoCandidates())
	assert.True(t, (&Ranking{}).NoCandidates())
	assert.False(t, (&Ranking{All: []RankedContract{{}}}).NoCandidates())
}

package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Alert is the notification payload composed for a buy signal.
type Alert struct {
	Kind       SignalKind     `json:"kind"`
	Headline   string         `json:"headline"`
	Symbol     string         `json:"symbol"`
	Price      float64        `json:"price"`
	VWAP       float64        `json:"vwap"`
	MFI        float64        `json:"mfi"`
	UpperBand  float64        `json:"upper_band,omitempty"`
	LowerBand  float64        `json:"lower_band,omitempty"`
	HasBands   bool           `json:"has_bands"`
	Expiration string         `json:"expiration"`
	Contract   RankedContract `json:"contract"`
	CreatedAt  time.Time      `json:"created_at"`
}

// DedupKey identifies an alert for cooldown purposes.
func (a *Alert) DedupKey() string {
	return strings.Join([]string{a.Symbol, string(a.Kind), a.Contract.Symbol}, ":")
}

// Text renders the alert as a plain-text message.
func (a *Alert) Text() string {
	var sb strings.Builder
	sb.WriteString(a.Headline)
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%s: $%s | VWAP: $%s | MFI: %s\n", a.Symbol, Money(a.Price), Money(a.VWAP), Fixed(a.MFI, 2)))
	if a.HasBands {
		sb.WriteString(fmt.Sprintf("Bands: $%s / $%s\n", Money(a.LowerBand), Money(a.UpperBand)))
	}
	sb.WriteString(fmt.Sprintf("Expiration: %s\n", a.Expiration))
	sb.WriteString(fmt.Sprintf("Contract: %s (%s)\n", a.Contract.Symbol, a.Contract.Type))
	sb.WriteString(fmt.Sprintf("Strike: $%s | Last: $%s | Liquidity: %s | ITM: %s%%",
		Money(a.Contract.Strike), Money(a.Contract.LastPrice), Fixed(a.Contract.Liquidity, 2), Fixed(a.Contract.PercentITM, 2)))
	return sb.String()
}

// Money formats a price with two decimals.
func Money(v float64) string {
	return Fixed(v, 2)
}

// Fixed rounds half away from zero to places decimals.
func Fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

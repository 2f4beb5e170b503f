package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// OptionType is the right of an option contract.
type OptionType string

const (
	OptionCall    OptionType = "call"
	OptionPut     OptionType = "put"
	OptionUnknown OptionType = "unknown"
)

// OptionContract is a read-only snapshot of one contract in an option chain.
type OptionContract struct {
	Symbol            string
	Underlying        string
	Expiration        time.Time
	Type              OptionType
	Strike            float64
	LastPrice         float64
	ImpliedVolatility float64
	Volume            float64
	OpenInterest      float64
}

// RankedContract is an in-the-money candidate with its derived scores.
type RankedContract struct {
	OptionContract
	Liquidity  float64 // volume / last price
	PercentITM float64 // (spot - strike) / spot * 100
}

// Ranking is the output of the contract ranker.
type Ranking struct {
	Spot              float64
	All               []RankedContract // every candidate, liquidity descending
	Top               []RankedContract // first N of All
	Suggested         *RankedContract
	ExcludedZeroPrice int
}

// NoCandidates reports whether nothing survived filtering.
func (r *Ranking) NoCandidates() bool {
	return r == nil || len(r.All) == 0
}

// OCCSymbol holds the fields encoded in an OCC option symbol.
type OCCSymbol struct {
	Root       string
	Expiration time.Time
	Type       OptionType
	Strike     float64
}

const occSuffixLen = 15 // YYMMDD + C/P + 8 strike digits

// ParseOCCSymbol decodes "<root><YYMMDD><C|P><strike*1000 as 8 digits>".
// A vendor prefix such as "O:" and OCC space padding of the root are accepted.
func ParseOCCSymbol(symbol string) (OCCSymbol, error) {
	s := strings.TrimSpace(symbol)
	if i := strings.Index(s, ":"); i >= 0 {
		s = s[i+1:]
	}
	if len(s) <= occSuffixLen {
		return OCCSymbol{}, fmt.Errorf("option symbol %q too short", symbol)
	}
	root := strings.TrimSpace(s[:len(s)-occSuffixLen])
	rest := s[len(s)-occSuffixLen:]
	if root == "" || len(root) > 6 {
		return OCCSymbol{}, fmt.Errorf("option symbol %q has invalid root %q", symbol, root)
	}

	expiry, err := time.Parse("060102", rest[:6])
	if err != nil {
		return OCCSymbol{}, fmt.Errorf("option symbol %q has invalid expiration: %w", symbol, err)
	}

	var typ OptionType
	switch rest[6] {
	case 'C':
		typ = OptionCall
	case 'P':
		typ = OptionPut
	default:
		return OCCSymbol{}, fmt.Errorf("option symbol %q has invalid type marker %q", symbol, rest[6])
	}

	digits := rest[7:]
	for _, r := range digits {
		if r < '0' || r > '9' {
			return OCCSymbol{}, fmt.Errorf("option symbol %q has non-numeric strike %q", symbol, digits)
		}
	}
	thousandths, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return OCCSymbol{}, fmt.Errorf("option symbol %q has invalid strike: %w", symbol, err)
	}

	return OCCSymbol{
		Root:       root,
		Expiration: expiry,
		Type:       typ,
		Strike:     float64(thousandths) / 1000,
	}, nil
}

// ResolveOptionType prefers the type encoded in the symbol and falls back to
// what the provider declared.
func ResolveOptionType(symbol, declared string) OptionType {
	if occ, err := ParseOCCSymbol(symbol); err == nil {
		return occ.Type
	}
	switch strings.ToLower(strings.TrimSpace(declared)) {
	case "call", "c":
		return OptionCall
	case "put", "p":
		return OptionPut
	default:
		return OptionUnknown
	}
}

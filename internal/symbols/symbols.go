// Package symbols holds the static underlying configuration and formats
// canonical exchange option-contract symbols.
package symbols

import (
	"fmt"
	"strconv"
	"strings"
)

// Underlying describes a tradeable index and its exchange contract settings.
type Underlying struct {
	Name    string
	Prefix  string // quote-symbol prefix, e.g. "NSE:NIFTY"
	LotSize int    // units per contract, fixed by the exchange
}

// Underlyings is the static symbol configuration, fixed at process start.
var Underlyings = map[string]Underlying{
	"NIFTY":     {Name: "NIFTY", Prefix: "NSE:NIFTY", LotSize: 25},
	"BANKNIFTY": {Name: "BANKNIFTY", Prefix: "NSE:BANKNIFTY", LotSize: 15},
	"FINNIFTY":  {Name: "FINNIFTY", Prefix: "NSE:FINNIFTY", LotSize: 25},
}

// Lookup returns the configured underlying by name, case-insensitively.
func Lookup(name string) (Underlying, error) {
	u, ok := Underlyings[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return Underlying{}, fmt.Errorf("unknown underlying %q (want one of NIFTY, BANKNIFTY, FINNIFTY)", name)
	}
	return u, nil
}

// OptionType identifies the side of an option contract.
type OptionType string

const (
	// Call is a call option (CE suffix on the exchange).
	Call OptionType = "CE"
	// Put is a put option (PE suffix on the exchange).
	Put OptionType = "PE"
)

// monthCodes is the exchange's weekly-expiry month encoding. Plain first
// letters would collide (JAN/JUN/JUL all start with J), so Jan-Sep are
// numeric and Oct-Dec keep their initial.
var monthCodes = map[string]string{
	"JAN": "1", "FEB": "2", "MAR": "3", "APR": "4", "MAY": "5", "JUN": "6",
	"JUL": "7", "AUG": "8", "SEP": "9", "OCT": "O", "NOV": "N", "DEC": "D",
}

// Format builds the canonical weekly option symbol from an expiry tag in
// DDMMMYY form, e.g. Format("NSE:NIFTY", "11NOV25", 25700, Call) returns
// "NSE:NIFTY25N1125700CE". Malformed expiry tags and unknown option types
// are rejected rather than silently producing an untradeable symbol.
func Format(base, expiry string, strike int, optType OptionType) (string, error) {
	if len(expiry) != 7 {
		return "", fmt.Errorf("expiry %q: want DDMMMYY (7 chars), got %d", expiry, len(expiry))
	}
	day := expiry[:2]
	if _, err := strconv.Atoi(day); err != nil {
		return "", fmt.Errorf("expiry %q: day %q is not numeric", expiry, day)
	}
	month := strings.ToUpper(expiry[2:5])
	code, ok := monthCodes[month]
	if !ok {
		return "", fmt.Errorf("expiry %q: unknown month %q", expiry, month)
	}
	year := expiry[5:]
	if _, err := strconv.Atoi(year); err != nil {
		return "", fmt.Errorf("expiry %q: year %q is not numeric", expiry, year)
	}
	if optType != Call && optType != Put {
		return "", fmt.Errorf("option type %q: want %s or %s", optType, Call, Put)
	}
	if strike <= 0 {
		return "", fmt.Errorf("strike %d: must be positive", strike)
	}
	return fmt.Sprintf("%s%s%s%s%d%s", base, year, code, day, strike, optType), nil
}

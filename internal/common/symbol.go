package common

import (
	"regexp"
	"strings"
)

// symbolPattern admits exchange tickers such as AAPL, BRK.B and BF-B.
var symbolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,11}$`)

// NormalizeSymbol upper-cases and trims a user-supplied ticker, rejecting
// anything that could not match a warehouse symbol column exactly.
func NormalizeSymbol(raw string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(raw))
	if symbol == "" {
		return "", InvalidInput("normalize symbol", "symbol is required")
	}
	if !symbolPattern.MatchString(symbol) {
		return "", InvalidInput("normalize symbol", "invalid symbol %q", raw)
	}
	return symbol, nil
}

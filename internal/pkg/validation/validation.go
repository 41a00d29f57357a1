package validation

import (
	"regexp"
	"strings"
)

// Ticker symbols: 1-20 upper-case letters, digits, dots or hyphens (BRK.B, BTC-USD).
var symbolRe = regexp.MustCompile(`^[A-Z0-9.\-]{1,20}$`)

// Hex color like #3B82F6.
var colorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// NormalizeSymbol trims and upper-cases a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// IsValidSymbol reports whether a normalized symbol is well-formed.
func IsValidSymbol(symbol string) bool {
	return symbolRe.MatchString(symbol)
}

// IsValidColor reports whether the string is a 6-digit hex color.
func IsValidColor(color string) bool {
	return colorRe.MatchString(color)
}

// IsValidName reports whether an entity name is non-blank and within length.
func IsValidName(name string) bool {
	trimmed := strings.TrimSpace(name)
	return trimmed != "" && len(trimmed) <= 100
}

package types

import "github.com/shopspring/decimal"

// FormatCents renders BDT minor units as a two-decimal taka string for API
// payloads. All arithmetic stays in integer cents; decimal is display only.
func FormatCents(cents int) string {
	return decimal.New(int64(cents), -2).StringFixed(2)
}

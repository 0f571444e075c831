package domain

// millilitersPerOunce converts fluid ounces into the millilitres all
// feeding totals are reported in.
const millilitersPerOunce = 29.5735

// DailyStats aggregates one day of care events for a child. FeedingTotal
// is in millilitres regardless of the units the events were recorded in.
type DailyStats struct {
	Date         string  `json:"date"` // YYYY-MM-DD, UTC
	FeedingCount int     `json:"feeding_count"`
	DiaperCount  int     `json:"diaper_count"`
	SleepCount   int     `json:"sleep_count"`
	FeedingTotal float64 `json:"feeding_total_ml"`
	SleepMinutes int     `json:"sleep_minutes"`
}

// AmountInMilliliters normalizes a feeding amount to millilitres.
// Unknown units are passed through unchanged.
func AmountInMilliliters(amount float64, unit string) float64 {
	if unit == "oz" {
		return amount * millilitersPerOunce
	}
	return amount
}

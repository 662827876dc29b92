package util

import "time"

// NextTradingDay returns the first weekday strictly after d, truncated to
// UTC midnight. Exchange holidays are not modelled; a recommendation dated
// on a holiday simply carries to the next session the data feed produces.
func NextTradingDay(d time.Time) time.Time {
	d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	for {
		d = d.AddDate(0, 0, 1)
		if !IsWeekend(d) {
			return d
		}
	}
}

// IsWeekend reports whether d falls on a Saturday or Sunday.
func IsWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

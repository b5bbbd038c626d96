package ingestion

import (
	"time"

	"github.com/guttosm/k4ledger/internal/domain/models"
)

// YearBounds returns the first and the last calendar day of a tax year.
func YearBounds(year int) (first, last time.Time) {
	first = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	last = time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	return first, last
}

// OutsideYear counts trades whose date falls outside the tax year.
func OutsideYear(trades []models.Trade, year int) int {
	first, last := YearBounds(year)
	n := 0
	for _, t := range trades {
		d := truncateToDate(t.DateTime)
		if d.Before(first) || d.After(last) {
			n++
		}
	}
	return n
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

package ticketing

import (
	"fmt"
	"time"

	"github.com/Guesen/sistem-antrian-puskesmas/internal/store"
)

const (
	ticketNumberPad      = 3
	DefaultRetentionDays = 7
)

// DefaultLocation is Western Indonesia Time, UTC+7 with no daylight saving.
var DefaultLocation = time.FixedZone("WIB", 7*60*60)

// FormatCode renders the printed ticket code, e.g. A007.
func FormatCode(counterID string, sequence int) string {
	return fmt.Sprintf("%s%0*d", counterID, ticketNumberPad, sequence)
}

// DayOf returns the civil date of t in loc.
func DayOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(store.DayLayout)
}

// CutoffDay returns the oldest issue day kept when sweeping at reference.
// Retention counts whole local days: a ticket from the cutoff day survives
// until the next local midnight even when it is already more than
// retentionDays*24h old.
func CutoffDay(reference time.Time, loc *time.Location, retentionDays int) string {
	local := reference.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return midnight.AddDate(0, 0, -retentionDays).Format(store.DayLayout)
}

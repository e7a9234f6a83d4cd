// Package billingcycle contains the date arithmetic behind recurring billing:
// interval day counts, anchored billing dates and elapsed-cycle math. All
// computation is anchored to a single reference timezone so billing dates do
// not drift across account timezones.
package billingcycle

import (
	"errors"
	"time"
)

// IntervalUnit enumerates gateway-supported billing interval units.
type IntervalUnit string

const (
	UnitDays   IntervalUnit = "days"
	UnitWeeks  IntervalUnit = "weeks"
	UnitMonths IntervalUnit = "months"
	UnitYears  IntervalUnit = "years"
)

// Interval is a billing interval: every Length Units.
type Interval struct {
	Unit   IntervalUnit `mapstructure:"unit" json:"unit"`
	Length int          `mapstructure:"length" json:"length"`
}

var ErrInvalidInterval = errors.New("invalid_interval")

func (i Interval) Validate() error {
	if i.Length < 1 {
		return ErrInvalidInterval
	}
	switch i.Unit {
	case UnitDays, UnitWeeks, UnitMonths, UnitYears:
		return nil
	default:
		return ErrInvalidInterval
	}
}

// BillingDays converts the interval to a day count. Month and year lengths
// are deliberately approximate (31 and 365) rather than calendar-exact; grace
// periods sized from them always cover at least one real billing period.
func (i Interval) BillingDays() int {
	switch i.Unit {
	case UnitMonths:
		return 31 * i.Length
	case UnitWeeks:
		return 7 * i.Length
	case UnitYears:
		return 365 * i.Length
	default:
		return i.Length
	}
}

// referenceTZ anchors every billing date computation. The gateway schedules
// recurring charges in US Mountain time.
var referenceTZ = mustLoadLocation("America/Denver")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// ReferenceLocation returns the canonical billing timezone.
func ReferenceLocation() *time.Location {
	return referenceTZ
}

// ScheduleStart returns the instant the gateway should begin charging: now in
// the reference timezone plus the trial length.
func ScheduleStart(now time.Time, trialDays int) time.Time {
	return now.In(referenceTZ).AddDate(0, 0, trialDays)
}

// AnchoredBillingDate returns the billing date for the given anchor
// day-of-month in now's month and year, at midnight in the reference
// timezone. Anchor days past the end of the month normalize forward, matching
// time.Date semantics.
func AnchoredBillingDate(anchorDay int, now time.Time) time.Time {
	local := now.In(referenceTZ)
	return time.Date(local.Year(), local.Month(), anchorDay, 0, 0, 0, 0, referenceTZ)
}

// NextBillingDate returns the single next billing date for the anchor day: the
// anchored date this month if it has not yet occurred, otherwise one month
// later.
func NextBillingDate(anchorDay int, now time.Time) time.Time {
	anchored := AnchoredBillingDate(anchorDay, now)
	if anchored.After(now) {
		return anchored
	}
	return anchored.AddDate(0, 1, 0)
}

// CancellationBoundary computes the end of the current billing period for a
// cancellation requested at now: the anchored billing date, pushed forward by
// billingDays when it has already passed.
func CancellationBoundary(anchorDay int, now time.Time, billingDays int) time.Time {
	boundary := AnchoredBillingDate(anchorDay, now)
	if !now.Before(boundary) {
		boundary = boundary.AddDate(0, 0, billingDays)
	}
	return boundary
}

// WholeMonthsBetween returns the number of complete calendar months elapsed
// from start to end. Returns 0 when end precedes start.
func WholeMonthsBetween(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	if months > 0 && start.AddDate(0, months, 0).After(end) {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// AddMonths returns t advanced by n calendar months, normalizing overflow
// (Jan 31 + 1 month lands in early March).
func AddMonths(t time.Time, n int) time.Time {
	return t.AddDate(0, n, 0)
}

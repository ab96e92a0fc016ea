// Package timefmt renders timestamps the way the inbox and booking screens
// show them.
package timefmt

import "time"

const (
	clockLayout   = "3:04 PM"
	weekdayLayout = "Mon"
	shortLayout   = "Jan 2"
	dateLayout    = "Jan 2, 2006"
)

// Relative formats t against now: clock time for the same calendar day,
// weekday within the last seven days, month and day otherwise. Both values
// are compared in now's location.
func Relative(t, now time.Time) string {
	t = t.In(now.Location())

	ty, tm, td := t.Date()
	ny, nm, nd := now.Date()
	if ty == ny && tm == nm && td == nd {
		return t.Format(clockLayout)
	}
	if now.Sub(t) < 7*24*time.Hour {
		return t.Format(weekdayLayout)
	}
	return t.Format(shortLayout)
}

func Date(t time.Time) string {
	return t.Format(dateLayout)
}

func Clock(t time.Time) string {
	return t.Format(clockLayout)
}

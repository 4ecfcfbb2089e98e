package banner

import "time"

// Eligible reports whether b may be shown at now: active, started, and not
// yet ended.
func Eligible(b Banner, now time.Time) bool {
	return b.IsActive && !b.StartDate.After(now) && b.EndDate.After(now)
}

// Resolve picks the banner to show at now among candidates: the eligible
// one ending soonest, then the most recently created, then the highest id.
// It reports false when none is eligible.
func Resolve(candidates []Banner, now time.Time) (Banner, bool) {
	var (
		best  Banner
		found bool
	)
	for _, b := range candidates {
		if !Eligible(b, now) {
			continue
		}
		if !found || precedes(b, best) {
			best, found = b, true
		}
	}
	return best, found
}

func precedes(a, b Banner) bool {
	if !a.EndDate.Equal(b.EndDate) {
		return a.EndDate.Before(b.EndDate)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// Package prayer holds the prayer-period time engine: anchoring "HH:MM" strings
// to a calendar day, classifying the active period, resolving the next and last
// prayer across day boundaries, and measuring progress through the current interval.
//
// All functions are pure. Time strings are expected to be well-formed "HH:MM"
// values as delivered by the backend; malformed input is not validated here and
// yields meaningless instants.
package prayer

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/smokyabdulrahman/mawaqit/internal/api"
)

// Name identifies one of the six daily periods.
type Name string

const (
	Fajr    Name = "fajr"
	Sunrise Name = "sunrise"
	Dhuhr   Name = "dhuhr"
	Asr     Name = "asr"
	Maghrib Name = "maghrib"
	Isha    Name = "isha"
)

// Order is the fixed chronological order of the periods. It drives both the
// resolver scan and the display order.
var Order = []Name{Fajr, Sunrise, Dhuhr, Asr, Maghrib, Isha}

// ArabicNames maps each period to its Arabic label.
var ArabicNames = map[Name]string{
	Fajr:    "الفجر",
	Sunrise: "الشروق",
	Dhuhr:   "الظهر",
	Asr:     "العصر",
	Maghrib: "المغرب",
	Isha:    "العشاء",
}

// ShortNames maps each period to a one-letter abbreviation.
var ShortNames = map[Name]string{
	Fajr:    "F",
	Sunrise: "S",
	Dhuhr:   "D",
	Asr:     "A",
	Maghrib: "M",
	Isha:    "I",
}

// Title returns the capitalized English name, e.g. "Dhuhr".
func (n Name) Title() string {
	if n == "" {
		return ""
	}
	return strings.ToUpper(string(n[:1])) + string(n[1:])
}

// Arabic returns the Arabic label for n.
func (n Name) Arabic() string {
	return ArabicNames[n]
}

// ParseName resolves a case-insensitive period name.
func ParseName(s string) (Name, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, n := range Order {
		if string(n) == s {
			return n, true
		}
	}
	return "", false
}

// Prayer is a period name anchored to an absolute instant.
type Prayer struct {
	Name Name      `json:"name"`
	Time time.Time `json:"time"`
}

// ToInstant anchors a "HH:MM" string to anchor's calendar day, in anchor's
// location, with zero seconds. An ISO datetime such as "2025-03-01T05:15:00Z" is
// reduced to its clock part first.
func ToInstant(s string, anchor time.Time) time.Time {
	clock := clockPart(s)
	hh, mm, _ := strings.Cut(clock, ":")
	hour, _ := strconv.Atoi(hh)
	minute, _ := strconv.Atoi(mm)
	return time.Date(anchor.Year(), anchor.Month(), anchor.Day(), hour, minute, 0, 0, anchor.Location())
}

// clockPart extracts "HH:MM" from a bare clock value or an ISO datetime.
func clockPart(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, 'T'); i != -1 {
		s = s[i+1:]
	}
	if len(s) > 5 {
		s = s[:5]
	}
	return s
}

// fieldFor returns the record field that defines the start of period n.
func fieldFor(rec api.PrayerTime, n Name) string {
	switch n {
	case Fajr:
		return rec.FajrFirstTime
	case Sunrise:
		return rec.SunriseTime
	case Dhuhr:
		return rec.DhuhrTime
	case Asr:
		return rec.AsrTime
	case Maghrib:
		return rec.MaghribTime
	case Isha:
		return rec.IshaTime
	}
	return ""
}

// Schedule anchors the six period-defining times of rec to anchor's day, in Order.
func Schedule(rec api.PrayerTime, anchor time.Time) []Prayer {
	prayers := make([]Prayer, 0, len(Order))
	for _, n := range Order {
		prayers = append(prayers, Prayer{Name: n, Time: ToInstant(fieldFor(rec, n), anchor)})
	}
	return prayers
}

// Iqama returns the Fajr iqama instant on anchor's day. It is informational and
// never used for classification or progress.
func Iqama(rec api.PrayerTime, anchor time.Time) time.Time {
	return ToInstant(rec.FajrSecondTime, anchor)
}

// StartingFrom rotates schedule so that the entry named first leads.
// The schedule is returned unchanged if first is not present.
func StartingFrom(schedule []Prayer, first Name) []Prayer {
	for i, p := range schedule {
		if p.Name == first {
			out := make([]Prayer, 0, len(schedule))
			out = append(out, schedule[i:]...)
			return append(out, schedule[:i]...)
		}
	}
	return schedule
}

// Period classifies now into one of the six periods. Periods are half-open
// intervals [start, nextStart); Isha wraps midnight.
func Period(rec api.PrayerTime, now time.Time) Name {
	s := Schedule(rec, now)
	fajr, sunrise, dhuhr, asr, maghrib, isha := s[0].Time, s[1].Time, s[2].Time, s[3].Time, s[4].Time, s[5].Time

	switch {
	case !now.Before(isha) || now.Before(fajr):
		return Isha
	case !now.Before(maghrib):
		return Maghrib
	case !now.Before(asr):
		return Asr
	case !now.Before(dhuhr):
		return Dhuhr
	case !now.Before(sunrise):
		return Sunrise
	default:
		return Fajr
	}
}

// Next returns the first prayer strictly after now. After Isha it returns
// Fajr anchored to tomorrow.
func Next(rec api.PrayerTime, now time.Time) Prayer {
	for _, p := range Schedule(rec, now) {
		if p.Time.After(now) {
			return p
		}
	}
	return Prayer{Name: Fajr, Time: ToInstant(rec.FajrFirstTime, Tomorrow(now))}
}

// Last returns the latest prayer at or before now. Before Fajr it returns
// Isha anchored to yesterday.
func Last(rec api.PrayerTime, now time.Time) Prayer {
	s := Schedule(rec, now)
	sort.SliceStable(s, func(i, j int) bool { return s[i].Time.Before(s[j].Time) })

	var last *Prayer
	for i := range s {
		if s[i].Time.After(now) {
			break
		}
		last = &s[i]
	}
	if last != nil {
		return *last
	}

	final := s[len(s)-1]
	return Prayer{Name: final.Name, Time: ToInstant(fieldFor(rec, final.Name), Yesterday(now))}
}

// Tomorrow returns the calendar day after now (time of day preserved).
// A Feb 29 result in a non-leap year is moved to Mar 1.
func Tomorrow(now time.Time) time.Time {
	t := now.AddDate(0, 0, 1)
	if t.Month() == time.February && t.Day() == 29 && !IsLeapYear(t.Year()) {
		t = time.Date(t.Year(), time.March, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	}
	return t
}

// Yesterday returns the calendar day before now (time of day preserved).
// A Feb 29 result in a non-leap year is moved to Feb 28.
func Yesterday(now time.Time) time.Time {
	t := now.AddDate(0, 0, -1)
	if t.Month() == time.February && t.Day() == 29 && !IsLeapYear(t.Year()) {
		t = time.Date(t.Year(), time.February, 28, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	}
	return t
}

// IsLeapYear reports whether year is a Gregorian leap year.
func IsLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

// Progress returns the elapsed share, 0 to 100, of the interval between last
// and next. Intervals that cross midnight are corrected on either side.
func Progress(now, last, next time.Time) float64 {
	const day = 24 * time.Hour

	if next.Before(last) {
		next = next.Add(day)
	}
	if now.Before(last) {
		last = last.Add(-day)
	}

	total := next.Sub(last)
	if total <= 0 {
		return 100
	}
	pct := float64(now.Sub(last)) / float64(total) * 100
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}

// Remaining is a non-negative countdown split into whole units.
type Remaining struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// Duration converts r back to a time.Duration.
func (r Remaining) Duration() time.Duration {
	return time.Duration(r.Hours)*time.Hour + time.Duration(r.Minutes)*time.Minute + time.Duration(r.Seconds)*time.Second
}

// Split decomposes d into hours, minutes and seconds. Negative input yields zero.
func Split(d time.Duration) Remaining {
	if d < 0 {
		return Remaining{}
	}
	total := int(d / time.Second)
	return Remaining{
		Hours:   total / 3600,
		Minutes: (total % 3600) / 60,
		Seconds: total % 60,
	}
}

// TimeUntil returns the duration from now until next. A negative difference
// means next is on the following day, so 24h is added.
func TimeUntil(now, next time.Time) time.Duration {
	d := next.Sub(now)
	if d < 0 {
		d += 24 * time.Hour
	}
	return d
}

// RemainingUntil is Split(TimeUntil(now, next)).
func RemainingUntil(now, next time.Time) Remaining {
	return Split(TimeUntil(now, next))
}

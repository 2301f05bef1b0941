package prayer

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"
)

// Format constants for display modes.
const (
	FormatTimeRemaining      = "time-remaining"
	FormatNextPrayerTime     = "next-prayer-time"
	FormatNameAndTime        = "name-and-time"
	FormatNameAndRemaining   = "name-and-remaining"
	FormatShortNameAndTime   = "short-name-and-time"
	FormatShortNameAndRemain = "short-name-and-remaining"
	FormatArabic             = "arabic"
	FormatFull               = "full"
)

// FormatData is the data passed to custom Go templates.
type FormatData struct {
	Name       string  // English prayer name, e.g. "Asr"
	ArabicName string  // Arabic prayer name, e.g. "العصر"
	ShortName  string  // Abbreviated name, e.g. "A"
	Time       string  // Formatted prayer time, e.g. "15:02" or "3:02 PM"
	Remaining  string  // Time remaining, e.g. "2h 15m"
	Hours      int     // Whole hours remaining
	Minutes    int     // Remaining minutes after hours
	Progress   float64 // Percent of the current interval elapsed
}

// FormatOutput formats the next prayer for display according to mode.
// timeFormat should be "15:04" for 24h or "3:04 PM" for 12h. progress is the
// value returned by Progress for the same instant.
//
// If mode contains "{{", it is treated as a custom Go template string.
// Available template fields: .Name, .ArabicName, .ShortName, .Time, .Remaining,
// .Hours, .Minutes, .Progress
func FormatOutput(p Prayer, now time.Time, progress float64, mode string, timeFormat string) string {
	r := RemainingUntil(now, p.Time)
	remaining := FormatRemaining(r.Duration())
	timeStr := p.Time.Format(timeFormat)
	short := ShortNames[p.Name]
	name := p.Name.Title()

	if strings.Contains(mode, "{{") {
		return formatCustom(mode, FormatData{
			Name:       name,
			ArabicName: p.Name.Arabic(),
			ShortName:  short,
			Time:       timeStr,
			Remaining:  remaining,
			Hours:      r.Hours,
			Minutes:    r.Minutes,
			Progress:   progress,
		})
	}

	switch mode {
	case FormatTimeRemaining:
		return remaining
	case FormatNextPrayerTime:
		return timeStr
	case FormatNameAndTime:
		return fmt.Sprintf("%s %s", name, timeStr)
	case FormatNameAndRemaining:
		return fmt.Sprintf("%s %s", name, remaining)
	case FormatShortNameAndTime:
		return fmt.Sprintf("%s %s", short, timeStr)
	case FormatShortNameAndRemain:
		return fmt.Sprintf("%s %s", short, remaining)
	case FormatArabic:
		return fmt.Sprintf("%s %s (%s)", p.Name.Arabic(), FormatClockArabic(p.Time), FormatRemainingArabic(r))
	case FormatFull:
		return fmt.Sprintf("%s %s (%s)", name, timeStr, remaining)
	default:
		return fmt.Sprintf("%s %s", name, timeStr)
	}
}

func formatCustom(tmpl string, data FormatData) string {
	t, err := template.New("custom").Parse(tmpl)
	if err != nil {
		return fmt.Sprintf("template-err: %v", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return fmt.Sprintf("template-err: %v", err)
	}

	return buf.String()
}

// FormatRemaining formats a duration as "Xh Ym" or "Ym" if less than an hour.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		return "0m"
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60

	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

var easternDigits = [10]rune{'٠', '١', '٢', '٣', '٤', '٥', '٦', '٧', '٨', '٩'}

// ToArabicNumerals replaces every ASCII digit in s with its Eastern Arabic form.
func ToArabicNumerals(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) * 2)
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(easternDigits[r-'0'])
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// ArabicNumber formats n with Eastern Arabic digits.
func ArabicNumber(n int) string {
	return ToArabicNumerals(strconv.Itoa(n))
}

// FormatClockArabic renders t as a 12-hour Arabic clock, e.g. "٣:٠٥ م".
func FormatClockArabic(t time.Time) string {
	suffix := "ص"
	if t.Hour() >= 12 {
		suffix = "م"
	}
	h := t.Hour() % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%s:%s %s", ArabicNumber(h), ToArabicNumerals(fmt.Sprintf("%02d", t.Minute())), suffix)
}

// FormatRemainingArabic phrases a countdown in Arabic, using the dual forms
// for two units. Seconds are only spoken when less than a minute is left.
func FormatRemainingArabic(r Remaining) string {
	var parts []string

	switch {
	case r.Hours == 1:
		parts = append(parts, "ساعة واحدة")
	case r.Hours == 2:
		parts = append(parts, "ساعتين")
	case r.Hours > 2:
		parts = append(parts, ArabicNumber(r.Hours)+" ساعات")
	}

	switch {
	case r.Minutes == 1:
		parts = append(parts, "دقيقة واحدة")
	case r.Minutes == 2:
		parts = append(parts, "دقيقتين")
	case r.Minutes > 2:
		parts = append(parts, ArabicNumber(r.Minutes)+" دقائق")
	}

	if r.Hours == 0 && r.Minutes == 0 {
		switch {
		case r.Seconds == 1:
			return "ثانية واحدة"
		case r.Seconds == 2:
			return "ثانيتين"
		case r.Seconds > 2:
			return ArabicNumber(r.Seconds) + " ثوان"
		}
	}

	if len(parts) == 0 {
		return "الآن"
	}
	return strings.Join(parts, " و")
}

package functions

import (
	"math"
	"strings"
	"time"

	"github.com/sandrolain/goformula/pkg/types"
)

// Serial numbers use the 1900 date system. Serial 60 is the fictitious
// 1900-02-29, so serials below it count from 1899-12-31 and the rest from
// 1899-12-30.
var (
	epoch1900       = time.Date(1899, 12, 31, 0, 0, 0, 0, time.UTC)
	epoch1900Minus1 = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	leapBugCutover  = time.Date(1900, 3, 1, 0, 0, 0, 0, time.UTC)
)

const (
	secondsPerDay = 86400.0
	msPerDay      = 86400000.0
	maxSerial     = 2958465 // 9999-12-31
)

// SerialToTime converts a serial date number to a UTC time with
// millisecond resolution.
func SerialToTime(serial float64) time.Time {
	epoch := epoch1900Minus1
	if serial < 60 {
		epoch = epoch1900
	}
	days := int(serial)
	ms := int(math.Round((serial - float64(days)) * msPerDay))
	return epoch.AddDate(0, 0, days).Add(time.Duration(ms) * time.Millisecond)
}

// TimeToSerial converts the wall-clock reading of t to a serial date number.
func TimeToSerial(t time.Time) float64 {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	epoch := epoch1900Minus1
	if day.Before(leapBugCutover) {
		epoch = epoch1900
	}
	days := math.Round(day.Sub(epoch).Hours() / 24)
	h, mi, s := t.Clock()
	frac := (float64(h*3600+mi*60+s) + float64(t.Nanosecond()/int(time.Millisecond))/1000) / secondsPerDay
	return days + frac
}

// toTime coerces an argument to a point in time. Dates pass through,
// numbers are serials and text may hold an ISO date.
func toTime(v types.Value) (time.Time, types.Value, bool) {
	switch {
	case v.IsError():
		return time.Time{}, v, false
	case v.IsDate():
		t, _ := v.AsDate()
		return t, types.Value{}, true
	case v.IsText():
		s, _ := v.AsText()
		s = strings.TrimSpace(s)
		for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t, types.Value{}, true
			}
		}
	}
	n, errv, ok := toNumber(v)
	if !ok {
		return time.Time{}, errv, false
	}
	if n < 0 || n > maxSerial+1 {
		return time.Time{}, types.Error(types.ErrorNum), false
	}
	return SerialToTime(n), types.Value{}, true
}

// fnDate builds a date from year, month and day. Years below 1900 are
// offset by 1900 and out-of-range months and days roll over.
func fnDate(args []types.Value, _ *types.Context) types.Value {
	if e, ok := firstError(args); ok {
		return e
	}
	var parts [3]int
	for i := range parts {
		n, errv, ok := toInt(args[i])
		if !ok {
			return errv
		}
		parts[i] = n
	}
	year, month, day := parts[0], parts[1], parts[2]
	if year < 0 || year > 9999 {
		return types.Error(types.ErrorNum)
	}
	if year < 1900 {
		year += 1900
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() < 1900 || t.Year() > 9999 {
		return types.Error(types.ErrorNum)
	}
	return types.Date(t)
}

func fnToday(_ []types.Value, vars *types.Context) types.Value {
	now := vars.Now()
	y, m, d := now.Date()
	return types.Date(time.Date(y, m, d, 0, 0, 0, 0, now.Location()))
}

func fnNow(_ []types.Value, vars *types.Context) types.Value {
	return types.Date(vars.Now())
}

// datePart extracts one component of a date argument.
func datePart(part func(time.Time) int) Func {
	return func(args []types.Value, _ *types.Context) types.Value {
		t, errv, ok := toTime(args[0])
		if !ok {
			return errv
		}
		return types.Number(float64(part(t)))
	}
}

func yearOf(t time.Time) int   { return t.Year() }
func monthOf(t time.Time) int  { return int(t.Month()) }
func dayOf(t time.Time) int    { return t.Day() }
func hourOf(t time.Time) int   { return t.Hour() }
func minuteOf(t time.Time) int { return t.Minute() }
func secondOf(t time.Time) int { return t.Second() }

// fnWeekday numbers the day of the week. Type 1 counts Sunday=1..Saturday=7,
// type 2 Monday=1..Sunday=7 and type 3 Monday=0..Sunday=6.
func fnWeekday(args []types.Value, _ *types.Context) types.Value {
	t, errv, ok := toTime(args[0])
	if !ok {
		return errv
	}
	kind := 1
	if len(args) > 1 {
		if kind, errv, ok = toInt(args[1]); !ok {
			return errv
		}
	}
	wd := int(t.Weekday())
	switch kind {
	case 1:
		return types.Number(float64(wd + 1))
	case 2:
		return types.Number(float64((wd+6)%7 + 1))
	case 3:
		return types.Number(float64((wd + 6) % 7))
	default:
		return types.Error(types.ErrorNum)
	}
}

// fnDays counts whole days from start to end.
func fnDays(args []types.Value, _ *types.Context) types.Value {
	end, errv, ok := toTime(args[0])
	if !ok {
		return errv
	}
	start, errv, ok := toTime(args[1])
	if !ok {
		return errv
	}
	return types.Number(math.Floor(TimeToSerial(end)) - math.Floor(TimeToSerial(start)))
}

// fnTime returns a time of day as a fraction of a day. Minutes and seconds
// beyond their range carry over; whole days are dropped.
func fnTime(args []types.Value, _ *types.Context) types.Value {
	if e, ok := firstError(args); ok {
		return e
	}
	var parts [3]int
	for i := range parts {
		n, errv, ok := toInt(args[i])
		if !ok {
			return errv
		}
		parts[i] = n
	}
	total := parts[0]*3600 + parts[1]*60 + parts[2]
	if parts[0] > 32767 || total < 0 {
		return types.Error(types.ErrorNum)
	}
	return types.Number(float64(total%86400) / secondsPerDay)
}

var (
	dateLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02", "01/02/2006", "1/2/2006",
		"January 2, 2006", "Jan 2, 2006", "2 January 2006", "2 Jan 2006",
		"2-Jan-2006", "02-Jan-06", "2006-01-02T15:04:05", time.RFC3339,
		"2006-01-02 15:04:05", "2006-01-02 15:04",
	}
	timeLayouts = []string{
		"15:04:05", "15:04", "3:04:05 PM", "3:04 PM", "3:04:05PM", "3:04PM",
		"15:04:05.000", "2006-01-02 15:04:05", "2006-01-02 15:04",
	}
)

// fnDateValue parses a date written as text.
func fnDateValue(args []types.Value, _ *types.Context) types.Value {
	v := args[0]
	if v.IsError() {
		return v
	}
	if !v.IsText() {
		return types.Error(types.ErrorValue)
	}
	s, _ := v.AsText()
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() < 1900 {
				return types.Error(types.ErrorValue)
			}
			y, m, d := t.Date()
			return types.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
		}
	}
	return types.Error(types.ErrorValue)
}

// fnTimeValue parses a time written as text and returns its fraction of
// a day. A date part is ignored.
func fnTimeValue(args []types.Value, _ *types.Context) types.Value {
	v := args[0]
	if v.IsError() {
		return v
	}
	if !v.IsText() {
		return types.Error(types.ErrorValue)
	}
	s, _ := v.AsText()
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			secs := float64(t.Hour()*3600+t.Minute()*60+t.Second()) + float64(t.Nanosecond())/1e9
			return types.Number(secs / secondsPerDay)
		}
	}
	return types.Error(types.ErrorValue)
}

// Package extdatetime provides calendar arithmetic beyond the builtin
// date functions. Arguments accept Date values, serial numbers and ISO
// date text, like the builtins do.
package extdatetime

import (
	"math"
	"strings"
	"time"

	"github.com/sandrolain/goformula/pkg/ext/extutil"
	"github.com/sandrolain/goformula/pkg/functions"
	"github.com/sandrolain/goformula/pkg/types"
)

// All returns all extended date/time function definitions.
func All() []functions.FunctionDef {
	return []functions.FunctionDef{
		EDate(),
		EOMonth(),
		DateDif(),
		ISOWeekNum(),
		NetworkDays(),
		Workday(),
	}
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// addMonths moves t by n months, clamping the day to the target month.
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	return time.Date(first.Year(), first.Month(), min(d, last), 0, 0, 0, 0, time.UTC)
}

func timeAndInt(args []types.Value) (time.Time, int, types.Value, bool) {
	t, errv, ok := functions.ToTime(args[0])
	if !ok {
		return time.Time{}, 0, errv, false
	}
	n, errv, ok := extutil.Int(args[1])
	if !ok {
		return time.Time{}, 0, errv, false
	}
	return t, n, types.Value{}, true
}

// EDate returns the definition for EDATE(start, months).
func EDate() functions.FunctionDef {
	return extutil.Def("EDATE", 2, 2, func(args []types.Value, _ *types.Context) types.Value {
		t, n, errv, ok := timeAndInt(args)
		if !ok {
			return errv
		}
		return types.Date(addMonths(day(t), n))
	})
}

// EOMonth returns the definition for EOMONTH(start, months): the last day
// of the month that is months away from start.
func EOMonth() functions.FunctionDef {
	return extutil.Def("EOMONTH", 2, 2, func(args []types.Value, _ *types.Context) types.Value {
		t, n, errv, ok := timeAndInt(args)
		if !ok {
			return errv
		}
		y, m, _ := t.Date()
		return types.Date(time.Date(y, m+time.Month(n)+1, 0, 0, 0, 0, 0, time.UTC))
	})
}

// DateDif returns the definition for DATEDIF(start, end, unit). Units:
// "Y" whole years, "M" whole months, "D" days, "YM" months ignoring
// years, "MD" days ignoring months, "YD" days ignoring years.
// An end before start is #NUM!.
func DateDif() functions.FunctionDef {
	return extutil.Def("DATEDIF", 3, 3, func(args []types.Value, _ *types.Context) types.Value {
		from, errv, ok := functions.ToTime(args[0])
		if !ok {
			return errv
		}
		to, errv, ok := functions.ToTime(args[1])
		if !ok {
			return errv
		}
		if args[2].IsError() {
			return args[2]
		}
		from, to = day(from), day(to)
		if to.Before(from) {
			return types.Error(types.ErrorNum)
		}
		years, months, days := dateDiffYMD(from, to)
		switch strings.ToUpper(args[2].String()) {
		case "Y":
			return types.Number(float64(years))
		case "M":
			return types.Number(float64(years*12 + months))
		case "D":
			return types.Number(math.Round(to.Sub(from).Hours() / 24))
		case "YM":
			return types.Number(float64(months))
		case "MD":
			return types.Number(float64(days))
		case "YD":
			anniv := from.AddDate(years, 0, 0)
			return types.Number(math.Round(to.Sub(anniv).Hours() / 24))
		default:
			return types.Error(types.ErrorNum)
		}
	})
}

// dateDiffYMD splits the span between two days into whole years, months and
// remaining days.
func dateDiffYMD(from, to time.Time) (years, months, days int) {
	y1, m1, d1 := from.Date()
	y2, m2, d2 := to.Date()
	years = y2 - y1
	months = int(m2) - int(m1)
	days = d2 - d1
	if days < 0 {
		months--
		days = int(math.Round(to.Sub(addMonths(from, years*12+months)).Hours() / 24))
	}
	if months < 0 {
		years--
		months += 12
	}
	return years, months, days
}

// ISOWeekNum returns the definition for ISOWEEKNUM(date).
func ISOWeekNum() functions.FunctionDef {
	return extutil.Def("ISOWEEKNUM", 1, 1, func(args []types.Value, _ *types.Context) types.Value {
		t, errv, ok := functions.ToTime(args[0])
		if !ok {
			return errv
		}
		_, week := t.ISOWeek()
		return types.Number(float64(week))
	})
}

func weekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// NetworkDays returns the definition for NETWORKDAYS(start, end), the
// number of weekdays between both dates inclusive. The count is negative
// when end is before start.
func NetworkDays() functions.FunctionDef {
	return extutil.Def("NETWORKDAYS", 2, 2, func(args []types.Value, _ *types.Context) types.Value {
		from, errv, ok := functions.ToTime(args[0])
		if !ok {
			return errv
		}
		to, errv, ok := functions.ToTime(args[1])
		if !ok {
			return errv
		}
		from, to = day(from), day(to)
		sign := 1.0
		if to.Before(from) {
			from, to, sign = to, from, -1
		}
		total := int(math.Round(to.Sub(from).Hours()/24)) + 1
		n := total / 7 * 5
		for d := from.AddDate(0, 0, total/7*7); !d.After(to); d = d.AddDate(0, 0, 1) {
			if !weekend(d) {
				n++
			}
		}
		return types.Number(sign * float64(n))
	})
}

// Workday returns the definition for WORKDAY(start, days): the date that
// is days weekdays away from start.
func Workday() functions.FunctionDef {
	return extutil.Def("WORKDAY", 2, 2, func(args []types.Value, _ *types.Context) types.Value {
		t, n, errv, ok := timeAndInt(args)
		if !ok {
			return errv
		}
		if n > 1e6 || n < -1e6 {
			return types.Error(types.ErrorNum)
		}
		step := 1
		if n < 0 {
			step, n = -1, -n
		}
		d := day(t)
		for n > 0 {
			d = d.AddDate(0, 0, step)
			if !weekend(d) {
				n--
			}
		}
		return types.Date(d)
	})
}

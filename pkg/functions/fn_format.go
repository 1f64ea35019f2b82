package functions

import (
	"strconv"
	"strings"
	"time"

	"github.com/sandrolain/goformula/pkg/types"
)

// fnText renders a value with a spreadsheet format code. Number codes such
// as "0.00", "#,##0", "0%", "$#,##0.00" and "0.00E+00" are understood, as
// are date and time codes such as "yyyy-mm-dd" or "h:mm AM/PM". Text that
// is not numeric is returned unchanged.
func fnText(args []types.Value, _ *types.Context) types.Value {
	if e, ok := firstError(args); ok {
		return e
	}
	v, format := args[0], toText(args[1])
	if v.IsText() && !v.CanConvertToNumber() {
		return v
	}
	x, errv, ok := toNumber(v)
	if !ok {
		return errv
	}
	if isDateFormat(format) {
		if x < 0 || x > maxSerial+1 {
			return types.Error(types.ErrorValue)
		}
		return types.Text(formatDateCode(SerialToTime(x), format))
	}
	return types.Text(formatNumberCode(x, format))
}

// stripLiterals drops quoted and backslash-escaped text from a format code.
func stripLiterals(format string) string {
	var sb strings.Builder
	quoted := false
	for i := 0; i < len(format); i++ {
		switch c := format[i]; {
		case c == '"':
			quoted = !quoted
		case quoted:
		case c == '\\':
			i++
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

func isDateFormat(format string) bool {
	code := strings.ToLower(stripLiterals(format))
	if code == "general" {
		return false
	}
	return strings.ContainsAny(code, "ydhs")
}

// formatNumberCode applies a number format with up to three sections
// (positive;negative;zero).
func formatNumberCode(x float64, format string) string {
	if format == "" || strings.EqualFold(format, "General") {
		return types.FormatNumber(x)
	}
	sections := strings.Split(format, ";")
	code, sign := sections[0], ""
	switch {
	case x < 0 && len(sections) > 1:
		code, x = sections[1], -x
	case x == 0 && len(sections) > 2:
		code = sections[2]
	case x < 0:
		sign, x = "-", -x
	}

	start := strings.IndexAny(code, "0#?.")
	if start < 0 {
		return sign + literalText(code)
	}
	end := start
	for end < len(code) && strings.IndexByte("0#?.,", code[end]) >= 0 {
		end++
	}
	scientific := end+1 < len(code) && (code[end] == 'E' || code[end] == 'e') &&
		(code[end+1] == '+' || code[end+1] == '-')
	core := code[start:end]
	if scientific {
		end += 2
		for end < len(code) && (code[end] == '0' || code[end] == '#') {
			end++
		}
	}
	prefix, suffix := code[:start], code[end:]
	if strings.Contains(prefix, "%") || strings.Contains(suffix, "%") {
		x *= 100
	}

	intPart, fracPart, point := strings.Cut(core, ".")
	decimals := strings.Count(fracPart, "0") + strings.Count(fracPart, "#") + strings.Count(fracPart, "?")
	var body string
	if scientific {
		body = strconv.FormatFloat(x, 'E', decimals, 64)
	} else {
		body = formatPlaceholders(x, intPart, fracPart, decimals, point)
	}
	return sign + literalText(prefix) + body + literalText(suffix)
}

// formatPlaceholders fills the digit placeholders of a number code. A 0
// forces a digit and a # drops a zero.
func formatPlaceholders(x float64, intPart, fracPart string, decimals int, point bool) string {
	grouping := strings.Contains(intPart, ",")
	s := formatFixed(x, decimals, !grouping)
	whole, frac, _ := strings.Cut(s, ".")

	if minInt := strings.Count(intPart, "0"); minInt == 0 && whole == "0" {
		whole = ""
	} else if !grouping && len(whole) < minInt {
		whole = strings.Repeat("0", minInt-len(whole)) + whole
	}
	if optional := strings.Count(fracPart, "#"); optional > 0 {
		trimmed := strings.TrimRight(frac, "0")
		frac = frac[:max(len(trimmed), len(frac)-optional)]
	}
	if !point {
		return whole
	}
	return whole + "." + frac
}

// literalText renders the literal parts of a format code.
func literalText(code string) string {
	var sb strings.Builder
	quoted := false
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case c == '"':
			quoted = !quoted
		case quoted:
			sb.WriteByte(c)
		case c == '\\' && i+1 < len(code):
			i++
			sb.WriteByte(code[i])
		case c == '_' && i+1 < len(code):
			i++
			sb.WriteByte(' ')
		case c == '*':
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// formatDateCode renders t with a date/time format code. m means minutes
// when it follows an hour or precedes a second, and months otherwise.
func formatDateCode(t time.Time, format string) string {
	lower := strings.ToLower(format)
	twelveHour := strings.Contains(lower, "am/pm") || strings.Contains(lower, "a/p")
	var sb strings.Builder
	afterHour := false
	for i := 0; i < len(format); {
		c := lower[i]
		run := 1
		for i+run < len(format) && lower[i+run] == c {
			run++
		}
		switch {
		case c == '"':
			j := strings.IndexByte(format[i+1:], '"')
			if j < 0 {
				sb.WriteString(format[i+1:])
				return sb.String()
			}
			sb.WriteString(format[i+1 : i+1+j])
			i += j + 2
			continue
		case c == '\\' && i+1 < len(format):
			sb.WriteByte(format[i+1])
			i += 2
			continue
		case strings.HasPrefix(lower[i:], "am/pm"):
			sb.WriteString(t.Format("PM"))
			i += len("am/pm")
			continue
		case strings.HasPrefix(lower[i:], "a/p"):
			sb.WriteString(t.Format("PM")[:1])
			i += len("a/p")
			continue
		case c == 'y':
			if run <= 2 {
				sb.WriteString(t.Format("06"))
			} else {
				sb.WriteString(t.Format("2006"))
			}
		case c == 'm' && run <= 2 && (afterHour || secondFollows(lower[i+run:])):
			sb.WriteString(pad(t.Minute(), run))
		case c == 'm':
			switch {
			case run <= 2:
				sb.WriteString(pad(int(t.Month()), run))
			case run == 3:
				sb.WriteString(t.Format("Jan"))
			default:
				sb.WriteString(t.Format("January"))
			}
		case c == 'd':
			switch {
			case run <= 2:
				sb.WriteString(pad(t.Day(), run))
			case run == 3:
				sb.WriteString(t.Format("Mon"))
			default:
				sb.WriteString(t.Format("Monday"))
			}
		case c == 'h':
			h := t.Hour()
			if twelveHour {
				h %= 12
				if h == 0 {
					h = 12
				}
			}
			sb.WriteString(pad(h, run))
		case c == 's':
			sb.WriteString(pad(t.Second(), run))
		default:
			sb.WriteString(format[i : i+run])
		}
		afterHour = c == 'h' || (afterHour && strings.IndexByte("ymdhs", c) < 0)
		i += run
	}
	return sb.String()
}

// secondFollows reports whether the next date token in rest is a second.
func secondFollows(rest string) bool {
	i := strings.IndexAny(rest, "ymdhs")
	return i >= 0 && rest[i] == 's'
}

func pad(n, width int) string {
	s := strconv.Itoa(n)
	if width > 1 && len(s) < width {
		s = strings.Repeat("0", width-len(s)) + s
	}
	return s
}

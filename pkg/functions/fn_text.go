package functions

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cockroachdb/apd/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/sandrolain/goformula/pkg/types"
)

// maxTextLength is the longest text a function may produce.
const maxTextLength = 32767

func fnConcatenate(args []types.Value, _ *types.Context) types.Value {
	if e, ok := firstError(args); ok {
		return e
	}
	var sb strings.Builder
	for _, a := range args {
		sb.WriteString(toText(a))
	}
	return types.Text(sb.String())
}

// fnConcat joins its arguments like CONCATENATE but spreads arrays.
func fnConcat(args []types.Value, vars *types.Context) types.Value {
	return fnConcatenate(flatten(args), vars)
}

func fnLen(args []types.Value, _ *types.Context) types.Value {
	if args[0].IsError() {
		return args[0]
	}
	return types.Number(float64(utf8.RuneCountInString(toText(args[0]))))
}

// countArg reads an optional non-negative character count.
func countArg(args []types.Value, i, def int) (int, types.Value, bool) {
	if len(args) <= i {
		return def, types.Value{}, true
	}
	n, errv, ok := toInt(args[i])
	if !ok {
		return 0, errv, false
	}
	if n < 0 {
		return 0, types.Error(types.ErrorValue), false
	}
	return n, types.Value{}, true
}

func fnLeft(args []types.Value, _ *types.Context) types.Value {
	if e, ok := firstError(args); ok {
		return e
	}
	n, errv, ok := countArg(args, 1, 1)
	if !ok {
		return errv
	}
	r := runes(args[0])
	return types.Text(string(r[:min(n, len(r))]))
}

func fnRight(args []types.Value, _ *types.Context) types.Value {
	if e, ok := firstError(args); ok {
		return e
	}
	n, errv, ok := countArg(args, 1, 1)
	if !ok {
		return errv
	}
	r := runes(args[0])
	return types.Text(string(r[len(r)-min(n, len(r)):]))
}

func fnMid(args []types.Value, _ *types.Context) types.Value {
	if e, ok := firstError(args); ok {
		return e
	}
	start, errv, ok := toInt(args[1])
	if !ok {
		return errv
	}
	if start < 1 {
		return types.Error(types.ErrorValue)
	}
	n, errv, ok := countArg(args, 2, 0)
	if !ok {
		return errv
	}
	r := runes(args[0])
	if start > len(r) {
		return types.Text("")
	}
	end := min(start-1+n, len(r))
	return types.Text(string(r[start-1 : end]))
}

// textMap applies a text transformation. Casers are stateful, so one is
// built per call.
func textMap(newCaser func() cases.Caser) Func {
	return func(args []types.Value, _ *types.Context) types.Value {
		if args[0].IsError() {
			return args[0]
		}
		return types.Text(newCaser().String(toText(args[0])))
	}
}

var (
	fnUpper  = textMap(func() cases.Caser { return cases.Upper(language.Und) })
	fnLower  = textMap(func() cases.Caser { return cases.Lower(language.Und) })
	fnProper = textMap(func() cases.Caser { return cases.Title(language.Und) })
)

// fnTrim removes leading and trailing spaces and collapses inner runs.
func fnTrim(args []types.Value, _ *types.Context) types.Value {
	if args[0].IsError() {
		return args[0]
	}
	return types.Text(strings.Join(strings.Fields(toText(args[0])), " "))
}

func fnRept(args []types.Value, _ *types.Context) types.Value {
	if e, ok := firstError(args); ok {
		return e
	}
	n, errv, ok := toInt(args[1])
	if !ok {
		return errv
	}
	s := toText(args[0])
	if n < 0 || len(s)*n > maxTextLength {
		return types.Error(types.ErrorValue)
	}
	return types.Text(strings.Repeat(s, n))
}

// locate returns the 1-based character position of the first match at or
// after start, using match to find a byte offset within the haystack.
func locate(args []types.Value, match func(needle, haystack string) int) types.Value {
	if e, ok := firstError(args); ok {
		return e
	}
	start := 1
	if len(args) > 2 {
		s, errv, ok := toInt(args[2])
		if !ok {
			return errv
		}
		start = s
	}
	within := runes(args[1])
	if start < 1 || start > len(within)+1 {
		return types.Error(types.ErrorValue)
	}
	haystack := string(within[start-1:])
	idx := match(toText(args[0]), haystack)
	if idx < 0 {
		return types.Error(types.ErrorValue)
	}
	return types.Number(float64(start + utf8.RuneCountInString(haystack[:idx])))
}

// fnFind is a case-sensitive search without wildcards.
func fnFind(args []types.Value, _ *types.Context) types.Value {
	return locate(args, func(needle, haystack string) int {
		return strings.Index(haystack, needle)
	})
}

// fnSearch is case-insensitive and understands the ? and * wildcards; ~
// escapes the next character.
func fnSearch(args []types.Value, _ *types.Context) types.Value {
	return locate(args, func(needle, haystack string) int {
		re, err := wildcardPattern(needle)
		if err != nil {
			return -1
		}
		loc := re.FindStringIndex(haystack)
		if loc == nil {
			return -1
		}
		return loc[0]
	})
}

func wildcardPattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?is)" + wildcardExpr(pattern))
}

// wildcardExpr translates * and ? into a regular expression. A tilde
// escapes the next character.
func wildcardExpr(pattern string) string {
	var sb strings.Builder
	escaped := false
	for _, c := range pattern {
		switch {
		case escaped:
			sb.WriteString(regexp.QuoteMeta(string(c)))
			escaped = false
		case c == '~':
			escaped = true
		case c == '?':
			sb.WriteByte('.')
		case c == '*':
			sb.WriteString(".*?")
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	if escaped {
		sb.WriteString(regexp.QuoteMeta("~"))
	}
	return sb.String()
}

// fnSubstitute replaces old with new, either everywhere or only the
// instance-th occurrence.
func fnSubstitute(args []types.Value, _ *types.Context) types.Value {
	if e, ok := firstError(args); ok {
		return e
	}
	text, old, repl := toText(args[0]), toText(args[1]), toText(args[2])
	if old == "" {
		return types.Text(text)
	}
	if len(args) < 4 {
		return types.Text(strings.ReplaceAll(text, old, repl))
	}
	n, errv, ok := toInt(args[3])
	if !ok {
		return errv
	}
	if n < 1 {
		return types.Error(types.ErrorValue)
	}
	offset := 0
	for i := 1; ; i++ {
		idx := strings.Index(text[offset:], old)
		if idx < 0 {
			return types.Text(text)
		}
		pos := offset + idx
		if i == n {
			return types.Text(text[:pos] + repl + text[pos+len(old):])
		}
		offset = pos + len(old)
	}
}

func fnExact(args []types.Value, _ *types.Context) types.Value {
	if e, ok := firstError(args); ok {
		return e
	}
	return types.Boolean(toText(args[0]) == toText(args[1]))
}

// fnValue converts text to a number. Currency signs, thousands separators
// and a trailing percent sign are understood, as are ISO dates and times.
func fnValue(args []types.Value, _ *types.Context) types.Value {
	v := args[0]
	switch {
	case v.IsError():
		return v
	case v.IsNumber():
		return v
	case v.IsDate():
		n, _, _ := toNumber(v)
		return types.Number(n)
	case v.IsEmpty():
		return types.Number(0)
	case !v.IsText():
		return types.Error(types.ErrorValue)
	}

	s, _ := v.AsText()
	s = strings.TrimSpace(s)
	if n, ok := parseNumberText(s); ok {
		return types.Number(n)
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return types.Number(TimeToSerial(t))
	}
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return types.Number(float64(t.Hour()*3600+t.Minute()*60+t.Second()) / secondsPerDay)
		}
	}
	return types.Error(types.ErrorValue)
}

func parseNumberText(s string) (float64, bool) {
	percent := strings.HasSuffix(s, "%")
	s = strings.TrimSuffix(s, "%")
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	n, err := types.Text(s).ToNumber()
	if err != nil {
		return 0, false
	}
	if neg {
		n = -n
	}
	if percent {
		n /= 100
	}
	return n, true
}

// formatFixed rounds x half away from zero and renders it with the given
// number of decimals, grouping thousands unless plain is set.
func formatFixed(x float64, decimals int, plain bool) string {
	x = roundDecimal(x, decimals, apd.RoundHalfUp)
	decimals = max(decimals, 0)
	if plain {
		return strconv.FormatFloat(x, 'f', decimals, 64)
	}
	p := message.NewPrinter(language.English)
	return p.Sprintf("%v", number.Decimal(x, number.Scale(decimals)))
}

func decimalsArg(args []types.Value, i, def int) (int, types.Value, bool) {
	if len(args) <= i {
		return def, types.Value{}, true
	}
	d, errv, ok := toInt(args[i])
	if !ok {
		return 0, errv, false
	}
	if d > 127 {
		return 0, types.Error(types.ErrorValue), false
	}
	return d, types.Value{}, true
}

func fnFixed(args []types.Value, _ *types.Context) types.Value {
	if e, ok := firstError(args); ok {
		return e
	}
	x, errv, ok := toNumber(args[0])
	if !ok {
		return errv
	}
	decimals, errv, ok := decimalsArg(args, 1, 2)
	if !ok {
		return errv
	}
	plain := false
	if len(args) > 2 {
		if plain, ok = truthy(args[2]); !ok {
			return types.Error(types.ErrorValue)
		}
	}
	return types.Text(formatFixed(x, decimals, plain))
}

// fnDollar formats a currency amount; negatives are parenthesised.
func fnDollar(args []types.Value, _ *types.Context) types.Value {
	if e, ok := firstError(args); ok {
		return e
	}
	x, errv, ok := toNumber(args[0])
	if !ok {
		return errv
	}
	decimals, errv, ok := decimalsArg(args, 1, 2)
	if !ok {
		return errv
	}
	s := "$" + formatFixed(math.Abs(x), decimals, false)
	if x < 0 && s != "$"+formatFixed(0, decimals, false) {
		return types.Text("(" + s + ")")
	}
	return types.Text(s)
}

// fnChar returns the Latin-1 character for a code between 1 and 255.
func fnChar(args []types.Value, _ *types.Context) types.Value {
	n, errv, ok := toInt(args[0])
	if !ok {
		return errv
	}
	if n < 1 || n > 255 {
		return types.Error(types.ErrorValue)
	}
	return types.Text(string(rune(n)))
}

func fnUnichar(args []types.Value, _ *types.Context) types.Value {
	n, errv, ok := toInt(args[0])
	if !ok {
		return errv
	}
	if n < 1 || n > utf8.MaxRune || !utf8.ValidRune(rune(n)) {
		return types.Error(types.ErrorValue)
	}
	return types.Text(string(rune(n)))
}

// fnCode returns the code point of the first character.
func fnCode(args []types.Value, _ *types.Context) types.Value {
	if args[0].IsError() {
		return args[0]
	}
	r, size := utf8.DecodeRuneInString(toText(args[0]))
	if size == 0 {
		return types.Error(types.ErrorValue)
	}
	return types.Number(float64(r))
}

// fnClean removes the non-printable control characters 0 to 31.
func fnClean(args []types.Value, _ *types.Context) types.Value {
	if args[0].IsError() {
		return args[0]
	}
	return types.Text(strings.Map(func(r rune) rune {
		if r < 32 {
			return -1
		}
		return r
	}, toText(args[0])))
}

// fnReplace replaces count characters starting at the 1-based start.
func fnReplace(args []types.Value, _ *types.Context) types.Value {
	if e, ok := firstError(args); ok {
		return e
	}
	start, errv, ok := toInt(args[1])
	if !ok {
		return errv
	}
	if start < 1 {
		return types.Error(types.ErrorValue)
	}
	n, errv, ok := countArg(args, 2, 0)
	if !ok {
		return errv
	}
	r := runes(args[0])
	from := min(start-1, len(r))
	to := min(from+n, len(r))
	out := string(r[:from]) + toText(args[3]) + string(r[to:])
	if len(out) > maxTextLength {
		return types.Error(types.ErrorValue)
	}
	return types.Text(out)
}

// Package extstring provides text functions beyond the builtin catalog.
package extstring

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/sandrolain/goformula/pkg/ext/extutil"
	"github.com/sandrolain/goformula/pkg/functions"
	"github.com/sandrolain/goformula/pkg/types"
)

// All returns all extended text function definitions.
func All() []functions.FunctionDef {
	return []functions.FunctionDef{
		StartsWith(),
		EndsWith(),
		Contains(),
		TextBefore(),
		TextAfter(),
		TextJoin(),
		Reverse(),
		CamelCase(),
		SnakeCase(),
		KebabCase(),
	}
}

// predicate builds a two-argument text test.
func predicate(name string, test func(s, sub string) bool) functions.FunctionDef {
	return extutil.Def(name, 2, 2, func(args []types.Value, _ *types.Context) types.Value {
		s, errv, ok := extutil.Texts(args)
		if !ok {
			return errv
		}
		return types.Boolean(test(s[0], s[1]))
	})
}

// StartsWith returns the definition for STARTSWITH(text, prefix).
func StartsWith() functions.FunctionDef { return predicate("STARTSWITH", strings.HasPrefix) }

// EndsWith returns the definition for ENDSWITH(text, suffix).
func EndsWith() functions.FunctionDef { return predicate("ENDSWITH", strings.HasSuffix) }

// Contains returns the definition for CONTAINS(text, sub).
func Contains() functions.FunctionDef { return predicate("CONTAINS", strings.Contains) }

// TextBefore returns the definition for TEXTBEFORE(text, delimiter, [instance]).
// A negative instance counts from the end. A missing delimiter is #N/A.
func TextBefore() functions.FunctionDef {
	return extutil.Def("TEXTBEFORE", 2, 3, func(args []types.Value, _ *types.Context) types.Value {
		return split(args, true)
	})
}

// TextAfter returns the definition for TEXTAFTER(text, delimiter, [instance]).
func TextAfter() functions.FunctionDef {
	return extutil.Def("TEXTAFTER", 2, 3, func(args []types.Value, _ *types.Context) types.Value {
		return split(args, false)
	})
}

func split(args []types.Value, before bool) types.Value {
	s, errv, ok := extutil.Texts(args[:2])
	if !ok {
		return errv
	}
	instance, errv, ok := extutil.Int(extutil.OptionalArg(args, 2, types.Number(1)))
	if !ok {
		return errv
	}
	text, delim := s[0], s[1]
	if instance == 0 || delim == "" {
		return types.Error(types.ErrorValue)
	}

	var idx []int
	for off := 0; ; {
		i := strings.Index(text[off:], delim)
		if i < 0 {
			break
		}
		idx = append(idx, off+i)
		off += i + len(delim)
	}
	n := instance
	if n < 0 {
		n = len(idx) + n + 1
	}
	if n < 1 || n > len(idx) {
		return types.Error(types.ErrorNA)
	}
	at := idx[n-1]
	if before {
		return types.Text(text[:at])
	}
	return types.Text(text[at+len(delim):])
}

// TextJoin returns the definition for TEXTJOIN(delimiter, ignore_empty, values...).
// Array arguments are flattened.
func TextJoin() functions.FunctionDef {
	return extutil.Def("TEXTJOIN", 3, -1, func(args []types.Value, _ *types.Context) types.Value {
		if e, ok := functions.FirstError(args); ok {
			return e
		}
		ignore, errv, ok := functions.ToNumber(args[1])
		if !ok {
			return errv
		}
		var parts []string
		for _, v := range functions.Flatten(args[2:]) {
			s := v.String()
			if s == "" && ignore != 0 {
				continue
			}
			parts = append(parts, s)
		}
		return types.Text(strings.Join(parts, args[0].String()))
	})
}

// Reverse returns the definition for REVERSE(text).
func Reverse() functions.FunctionDef {
	return extutil.Def("REVERSE", 1, 1, func(args []types.Value, _ *types.Context) types.Value {
		if args[0].IsError() {
			return args[0]
		}
		r := []rune(args[0].String())
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}
		return types.Text(string(r))
	})
}

var splitWordsRe = regexp.MustCompile(`[_\-\s]+|([a-z])([A-Z])`)

func splitIntoWords(str string) []string {
	// Break camelCase boundaries as well as separators.
	expanded := splitWordsRe.ReplaceAllStringFunc(str, func(s string) string {
		if len(s) == 2 && s[0] >= 'a' && s[0] <= 'z' {
			return string(s[0]) + " " + string(s[1])
		}
		return " "
	})
	return strings.Fields(expanded)
}

func wordCase(name string, join func(words []string) string) functions.FunctionDef {
	return extutil.Def(name, 1, 1, func(args []types.Value, _ *types.Context) types.Value {
		if args[0].IsError() {
			return args[0]
		}
		words := splitIntoWords(args[0].String())
		for i, w := range words {
			words[i] = strings.ToLower(w)
		}
		return types.Text(join(words))
	})
}

// CamelCase returns the definition for CAMELCASE(text).
func CamelCase() functions.FunctionDef {
	return wordCase("CAMELCASE", func(words []string) string {
		var b strings.Builder
		for i, w := range words {
			if i == 0 {
				b.WriteString(w)
				continue
			}
			r := []rune(w)
			r[0] = unicode.ToUpper(r[0])
			b.WriteString(string(r))
		}
		return b.String()
	})
}

// SnakeCase returns the definition for SNAKECASE(text).
func SnakeCase() functions.FunctionDef {
	return wordCase("SNAKECASE", func(words []string) string { return strings.Join(words, "_") })
}

// KebabCase returns the definition for KEBABCASE(text).
func KebabCase() functions.FunctionDef {
	return wordCase("KEBABCASE", func(words []string) string { return strings.Join(words, "-") })
}

// Package extformat provides data-format functions (CSV, templates).
// All functions use only the Go standard library.
package extformat

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"regexp"
	"strings"

	"github.com/sandrolain/goformula/pkg/ext/extutil"
	"github.com/sandrolain/goformula/pkg/functions"
	"github.com/sandrolain/goformula/pkg/types"
)

// All returns all format function definitions.
func All() []functions.FunctionDef {
	return []functions.FunctionDef{
		ParseCSV(),
		ToCSV(),
		Template(),
	}
}

func separator(args []types.Value, i int) (rune, types.Value, bool) {
	sep := extutil.OptionalArg(args, i, types.Text(","))
	if sep.IsError() {
		return 0, sep, false
	}
	r := []rune(sep.String())
	if len(r) != 1 || r[0] == '"' || r[0] == '\r' || r[0] == '\n' {
		return 0, types.Error(types.ErrorValue), false
	}
	return r[0], types.Value{}, true
}

// ParseCSV returns the definition for CSVSPLIT(text, [separator]).
// The first CSV record of text becomes an array of text fields. Malformed
// input is #VALUE!.
func ParseCSV() functions.FunctionDef {
	return extutil.Def("CSVSPLIT", 1, 2, func(args []types.Value, _ *types.Context) types.Value {
		if args[0].IsError() {
			return args[0]
		}
		sep, errv, ok := separator(args, 1)
		if !ok {
			return errv
		}
		r := csv.NewReader(strings.NewReader(args[0].String()))
		r.Comma = sep
		r.TrimLeadingSpace = true
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			return types.Array(nil)
		}
		if err != nil {
			return types.Error(types.ErrorValue)
		}
		out := make([]types.Value, len(record))
		for i, f := range record {
			out[i] = types.Text(f)
		}
		return types.Array(out)
	})
}

// ToCSV returns the definition for TOCSV(values, [separator]). Array
// elements become the fields of a single CSV record, quoted as needed.
func ToCSV() functions.FunctionDef {
	return extutil.Def("TOCSV", 1, 2, func(args []types.Value, _ *types.Context) types.Value {
		if e, ok := functions.FirstError(args[:1]); ok {
			return e
		}
		sep, errv, ok := separator(args, 1)
		if !ok {
			return errv
		}
		fields := functions.Flatten(args[:1])
		row := make([]string, len(fields))
		for i, f := range fields {
			row[i] = f.String()
		}

		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		w.Comma = sep
		if err := w.Write(row); err != nil {
			return types.Error(types.ErrorValue)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return types.Error(types.ErrorValue)
		}
		return types.Text(strings.TrimSuffix(buf.String(), "\n"))
	})
}

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_:]*)\s*\}\}`)

// Template returns the definition for TEMPLATE(text). {{name}}
// placeholders are replaced with the value of the variable name; unknown
// names are left untouched.
func Template() functions.FunctionDef {
	return extutil.Def("TEMPLATE", 1, 1, func(args []types.Value, vars *types.Context) types.Value {
		if args[0].IsError() {
			return args[0]
		}
		return types.Text(placeholderRe.ReplaceAllStringFunc(args[0].String(), func(match string) string {
			name := placeholderRe.FindStringSubmatch(match)[1]
			if v, ok := vars.Get(name); ok {
				return v.String()
			}
			return match
		}))
	})
}

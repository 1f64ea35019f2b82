package functions

import (
	"regexp"
	"strings"

	"github.com/sandrolain/goformula/pkg/types"
)

// criterion is a parsed condition of the *IF family. A criterion is either
// a value to compare against or text with a leading comparison operator,
// such as ">=10", "<>apple" or "a*".
type criterion struct {
	op      string
	blank   bool
	isNum   bool
	num     float64
	isBool  bool
	boolean bool
	text    string
	pattern *regexp.Regexp
}

var criterionOps = []string{">=", "<=", "<>", ">", "<", "="}

func parseCriterion(v types.Value) (criterion, types.Value, bool) {
	c := criterion{op: "="}
	switch {
	case v.IsError():
		return c, v, false
	case v.IsArray():
		return c, types.Error(types.ErrorValue), false
	case v.IsEmpty():
		c.blank = true
		return c, types.Value{}, true
	case v.IsBoolean():
		c.isBool = true
		c.boolean, _ = v.AsBoolean()
		return c, types.Value{}, true
	case v.IsNumber() || v.IsDate():
		c.isNum = true
		c.num, _, _ = toNumber(v)
		return c, types.Value{}, true
	}

	s, _ := v.AsText()
	for _, op := range criterionOps {
		if strings.HasPrefix(s, op) {
			c.op = op
			s = s[len(op):]
			break
		}
	}
	switch upper := strings.ToUpper(s); {
	case s == "":
		c.blank = true
	case upper == "TRUE" || upper == "FALSE":
		c.isBool = true
		c.boolean = upper == "TRUE"
	default:
		if n, ok := parseNumberText(strings.TrimSpace(s)); ok {
			c.isNum = true
			c.num = n
			break
		}
		c.text = strings.ToLower(s)
		if (c.op == "=" || c.op == "<>") && strings.ContainsAny(s, "*?~") {
			re, err := regexp.Compile("(?is)^(?:" + wildcardExpr(s) + ")$")
			if err != nil {
				return c, types.Error(types.ErrorValue), false
			}
			c.pattern = re
		}
	}
	return c, types.Value{}, true
}

// match reports whether v satisfies the criterion. Error values never match.
func (c criterion) match(v types.Value) bool {
	if v.IsError() {
		return false
	}
	if c.op == "<>" {
		return !c.equal(v)
	}
	if c.op == "=" {
		return c.equal(v)
	}
	switch {
	case c.isNum:
		n, ok := numericValue(v)
		return ok && compareOp(c.op, cmpFloat(n, c.num))
	case c.isBool:
		if !v.IsBoolean() {
			return false
		}
		b, _ := v.AsBoolean()
		return compareOp(c.op, cmpBool(b, c.boolean))
	case c.blank:
		return false
	default:
		if !v.IsText() {
			return false
		}
		s, _ := v.AsText()
		return compareOp(c.op, strings.Compare(strings.ToLower(s), c.text))
	}
}

func (c criterion) equal(v types.Value) bool {
	switch {
	case c.blank:
		if v.IsEmpty() {
			return true
		}
		s, err := v.AsText()
		return err == nil && s == ""
	case c.isNum:
		n, ok := numericValue(v)
		return ok && n == c.num
	case c.isBool:
		b, err := v.AsBoolean()
		return err == nil && b == c.boolean
	case !v.IsText():
		return false
	case c.pattern != nil:
		s, _ := v.AsText()
		return c.pattern.MatchString(s)
	default:
		s, _ := v.AsText()
		return strings.ToLower(s) == c.text
	}
}

// numericValue reads numbers, dates and numeric text. Booleans and Empty
// are not numeric for criteria purposes.
func numericValue(v types.Value) (float64, bool) {
	switch {
	case v.IsNumber() || v.IsDate():
		n, _, _ := toNumber(v)
		return n, true
	case v.IsText():
		s, _ := v.AsText()
		return parseNumberText(strings.TrimSpace(s))
	}
	return 0, false
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

func compareOp(op string, cmp int) bool {
	switch op {
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	}
	return false
}

// cells returns the elements of a range argument. A scalar is a range of
// one cell.
func cells(v types.Value) []types.Value {
	if v.IsArray() {
		elems, _ := v.AsArray()
		return flatten(elems)
	}
	return []types.Value{v}
}

// matchMask evaluates (range, criteria) pairs and returns which positions
// satisfy every pair. All ranges must have the same size; a negative size
// takes it from the first range.
func matchMask(pairs []types.Value, size int) ([]bool, types.Value, bool) {
	if size < 0 {
		size = len(cells(pairs[0]))
	}
	mask := make([]bool, size)
	for i := range mask {
		mask[i] = true
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		c, errv, ok := parseCriterion(pairs[i+1])
		if !ok {
			return nil, errv, false
		}
		rng := cells(pairs[i])
		if len(rng) != size {
			return nil, types.Error(types.ErrorValue), false
		}
		for j, cell := range rng {
			mask[j] = mask[j] && c.match(cell)
		}
	}
	return mask, types.Value{}, true
}

// selected sums the numeric cells of values picked by mask. An Error in a
// picked cell is returned; text, booleans and Empty are skipped.
func selected(values []types.Value, mask []bool) (sum float64, count int, errv types.Value, ok bool) {
	for i, v := range values {
		if !mask[i] {
			continue
		}
		switch {
		case v.IsError():
			return 0, 0, v, false
		case v.IsNumber() || v.IsDate():
			n, _, _ := toNumber(v)
			sum += n
			count++
		}
	}
	return sum, count, types.Value{}, true
}

// conditionalTotal implements SUMIF and AVERAGEIF: the criteria apply to
// the first range and the optional third argument supplies the values.
func conditionalTotal(args []types.Value) (float64, int, types.Value, bool) {
	rng := cells(args[0])
	values := rng
	if len(args) > 2 {
		values = cells(args[2])
	}
	if len(values) != len(rng) {
		return 0, 0, types.Error(types.ErrorValue), false
	}
	mask, errv, ok := matchMask(args[:2], len(rng))
	if !ok {
		return 0, 0, errv, false
	}
	return selected(values, mask)
}

// conditionalTotals implements SUMIFS and AVERAGEIFS: the first argument
// supplies the values, followed by (range, criteria) pairs.
func conditionalTotals(args []types.Value) (float64, int, types.Value, bool) {
	if len(args)%2 == 0 {
		return 0, 0, types.Error(types.ErrorValue), false
	}
	values := cells(args[0])
	mask, errv, ok := matchMask(args[1:], len(values))
	if !ok {
		return 0, 0, errv, false
	}
	return selected(values, mask)
}

func fnSumIf(args []types.Value, _ *types.Context) types.Value {
	sum, _, errv, ok := conditionalTotal(args)
	if !ok {
		return errv
	}
	return checkNumber(sum)
}

func fnSumIfs(args []types.Value, _ *types.Context) types.Value {
	sum, _, errv, ok := conditionalTotals(args)
	if !ok {
		return errv
	}
	return checkNumber(sum)
}

func fnAverageIf(args []types.Value, _ *types.Context) types.Value {
	sum, n, errv, ok := conditionalTotal(args)
	if !ok {
		return errv
	}
	if n == 0 {
		return types.Error(types.ErrorDivZero)
	}
	return checkNumber(sum / float64(n))
}

func fnAverageIfs(args []types.Value, _ *types.Context) types.Value {
	sum, n, errv, ok := conditionalTotals(args)
	if !ok {
		return errv
	}
	if n == 0 {
		return types.Error(types.ErrorDivZero)
	}
	return checkNumber(sum / float64(n))
}

// fnCountIf counts the values matching the criteria given last. Every
// argument before it is part of the range.
func fnCountIf(args []types.Value, _ *types.Context) types.Value {
	c, errv, ok := parseCriterion(args[len(args)-1])
	if !ok {
		return errv
	}
	count := 0
	for _, a := range args[:len(args)-1] {
		for _, cell := range cells(a) {
			if c.match(cell) {
				count++
			}
		}
	}
	return types.Number(float64(count))
}

func fnCountIfs(args []types.Value, _ *types.Context) types.Value {
	if len(args)%2 != 0 {
		return types.Error(types.ErrorValue)
	}
	mask, errv, ok := matchMask(args, -1)
	if !ok {
		return errv
	}
	count := 0
	for _, m := range mask {
		if m {
			count++
		}
	}
	return types.Number(float64(count))
}

// fnSumProduct multiplies same-sized ranges element by element and sums
// the products. Non-numeric cells count as zero.
func fnSumProduct(args []types.Value, _ *types.Context) types.Value {
	if e, ok := firstError(args); ok {
		return e
	}
	var products []float64
	for i, a := range args {
		rng := cells(a)
		if i == 0 {
			products = make([]float64, len(rng))
			for j := range products {
				products[j] = 1
			}
		}
		if len(rng) != len(products) {
			return types.Error(types.ErrorValue)
		}
		for j, cell := range rng {
			n := 0.0
			if cell.IsNumber() || cell.IsDate() {
				n, _, _ = toNumber(cell)
			}
			products[j] *= n
		}
	}
	sum := 0.0
	for _, p := range products {
		sum += p
	}
	return checkNumber(sum)
}

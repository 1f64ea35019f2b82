package functions

import (
	"fmt"
	"sort"
	"sync"
)

// FNV-1a 32-bit parameters.
const (
	fnvOffset32 = 2166136261
	fnvPrime32  = 16777619
)

// hashName computes the FNV-1a hash of an upper-cased name.
func hashName(name string) uint32 {
	h := uint32(fnvOffset32)
	for i := 0; i < len(name); i++ {
		h ^= uint32(name[i])
		h *= fnvPrime32
	}
	return h
}

var (
	builtinIndex     map[uint32]*FunctionDef
	builtinNames     []string
	builtinIndexOnce sync.Once
)

// initBuiltins builds the hash index over the builtin catalog. Two names
// with the same hash would make dispatch ambiguous, so a collision panics.
func initBuiltins() {
	builtinIndexOnce.Do(func() {
		defs := builtinDefs()
		builtinIndex = make(map[uint32]*FunctionDef, len(defs))
		builtinNames = make([]string, 0, len(defs))
		for i := range defs {
			def := &defs[i]
			h := hashName(def.Name)
			if prev, ok := builtinIndex[h]; ok {
				panic(fmt.Sprintf("functions: builtin hash collision between %s and %s", prev.Name, def.Name))
			}
			builtinIndex[h] = def
			builtinNames = append(builtinNames, def.Name)
		}
		sort.Strings(builtinNames)
	})
}

// lookupBuiltin resolves an upper-cased name against the builtin table.
func lookupBuiltin(name string) (*FunctionDef, bool) {
	initBuiltins()
	def, ok := builtinIndex[hashName(name)]
	if !ok || def.Name != name {
		return nil, false
	}
	return def, true
}

// IsBuiltin reports whether name is a builtin function.
func IsBuiltin(name string) bool {
	_, ok := lookupBuiltin(upperName(name))
	return ok
}

// BuiltinNames returns the sorted builtin function names.
func BuiltinNames() []string {
	initBuiltins()
	out := make([]string, len(builtinNames))
	copy(out, builtinNames)
	return out
}

// BuiltinDef returns the definition of a builtin function. Lookup is
// case-insensitive.
func BuiltinDef(name string) (*FunctionDef, bool) {
	return lookupBuiltin(upperName(name))
}

func builtinDefs() []FunctionDef {
	return []FunctionDef{
		// Math
		{Name: "SUM", MinArgs: 0, MaxArgs: -1, Impl: fnSum},
		{Name: "PRODUCT", MinArgs: 1, MaxArgs: -1, Impl: fnProduct},
		{Name: "ABS", MinArgs: 1, MaxArgs: 1, Impl: unary(absFloat)},
		{Name: "ROUND", MinArgs: 1, MaxArgs: 2, Impl: fnRound},
		{Name: "ROUNDUP", MinArgs: 1, MaxArgs: 2, Impl: fnRoundUp},
		{Name: "ROUNDDOWN", MinArgs: 1, MaxArgs: 2, Impl: fnRoundDown},
		{Name: "MROUND", MinArgs: 2, MaxArgs: 2, Impl: fnMRound},
		{Name: "INT", MinArgs: 1, MaxArgs: 1, Impl: fnInt},
		{Name: "TRUNC", MinArgs: 1, MaxArgs: 2, Impl: fnTrunc},
		{Name: "MOD", MinArgs: 2, MaxArgs: 2, Impl: fnMod},
		{Name: "QUOTIENT", MinArgs: 2, MaxArgs: 2, Impl: fnQuotient},
		{Name: "POWER", MinArgs: 2, MaxArgs: 2, Impl: fnPower},
		{Name: "SQRT", MinArgs: 1, MaxArgs: 1, Impl: fnSqrt},
		{Name: "EXP", MinArgs: 1, MaxArgs: 1, Impl: fnExp},
		{Name: "LN", MinArgs: 1, MaxArgs: 1, Impl: fnLn},
		{Name: "LOG", MinArgs: 1, MaxArgs: 2, Impl: fnLog},
		{Name: "LOG10", MinArgs: 1, MaxArgs: 1, Impl: fnLog10},
		{Name: "PI", MinArgs: 0, MaxArgs: 0, Impl: fnPi},
		{Name: "SIGN", MinArgs: 1, MaxArgs: 1, Impl: unary(signFloat)},
		{Name: "CEILING", MinArgs: 1, MaxArgs: 2, Impl: fnCeiling},
		{Name: "FLOOR", MinArgs: 1, MaxArgs: 2, Impl: fnFloor},
		{Name: "EVEN", MinArgs: 1, MaxArgs: 1, Impl: unary(evenFloat)},
		{Name: "ODD", MinArgs: 1, MaxArgs: 1, Impl: unary(oddFloat)},
		{Name: "FACT", MinArgs: 1, MaxArgs: 1, Impl: fnFact},
		{Name: "RAND", MinArgs: 0, MaxArgs: 0, Impl: fnRand},
		{Name: "RANDBETWEEN", MinArgs: 2, MaxArgs: 2, Impl: fnRandBetween},
		{Name: "GCD", MinArgs: 1, MaxArgs: -1, Impl: fnGcd},
		{Name: "LCM", MinArgs: 1, MaxArgs: -1, Impl: fnLcm},
		{Name: "COMBIN", MinArgs: 2, MaxArgs: 2, Impl: fnCombin},
		{Name: "SUMPRODUCT", MinArgs: 1, MaxArgs: -1, Impl: fnSumProduct},
		{Name: "SUMX2MY2", MinArgs: 2, MaxArgs: 2, Impl: fnSumX2MY2},
		{Name: "SUMX2PY2", MinArgs: 2, MaxArgs: 2, Impl: fnSumX2PY2},
		{Name: "SUMXMY2", MinArgs: 2, MaxArgs: 2, Impl: fnSumXMY2},

		// Conditional aggregates
		{Name: "SUMIF", MinArgs: 2, MaxArgs: 3, Impl: fnSumIf},
		{Name: "SUMIFS", MinArgs: 3, MaxArgs: -1, Impl: fnSumIfs},
		{Name: "COUNTIF", MinArgs: 2, MaxArgs: -1, Impl: fnCountIf},
		{Name: "COUNTIFS", MinArgs: 2, MaxArgs: -1, Impl: fnCountIfs},
		{Name: "AVERAGEIF", MinArgs: 2, MaxArgs: 3, Impl: fnAverageIf},
		{Name: "AVERAGEIFS", MinArgs: 3, MaxArgs: -1, Impl: fnAverageIfs},

		// Statistics
		{Name: "AVERAGE", MinArgs: 1, MaxArgs: -1, Impl: fnAverage},
		{Name: "MIN", MinArgs: 1, MaxArgs: -1, Impl: fnMin},
		{Name: "MAX", MinArgs: 1, MaxArgs: -1, Impl: fnMax},
		{Name: "COUNT", MinArgs: 0, MaxArgs: -1, Impl: fnCount},
		{Name: "COUNTA", MinArgs: 0, MaxArgs: -1, Impl: fnCountA},
		{Name: "MEDIAN", MinArgs: 1, MaxArgs: -1, Impl: fnMedian},
		{Name: "MODE", MinArgs: 1, MaxArgs: -1, Impl: fnMode},
		{Name: "STDEV", MinArgs: 1, MaxArgs: -1, Impl: fnStdev},
		{Name: "VAR", MinArgs: 1, MaxArgs: -1, Impl: fnVar},
		{Name: "LARGE", MinArgs: 2, MaxArgs: 2, Impl: fnLarge},
		{Name: "SMALL", MinArgs: 2, MaxArgs: 2, Impl: fnSmall},
		{Name: "CORREL", MinArgs: 2, MaxArgs: 2, Impl: fnCorrel},

		// Logical and information
		{Name: "IF", MinArgs: 2, MaxArgs: 3, Impl: fnIf},
		{Name: "IFERROR", MinArgs: 2, MaxArgs: 2, Impl: fnIfError},
		{Name: "IFNA", MinArgs: 2, MaxArgs: 2, Impl: fnIfNA},
		{Name: "IFS", MinArgs: 2, MaxArgs: -1, Impl: fnIfs},
		{Name: "SWITCH", MinArgs: 3, MaxArgs: -1, Impl: fnSwitch},
		{Name: "CHOOSE", MinArgs: 2, MaxArgs: -1, Impl: fnChoose},
		{Name: "AND", MinArgs: 1, MaxArgs: -1, Impl: fnAnd},
		{Name: "OR", MinArgs: 1, MaxArgs: -1, Impl: fnOr},
		{Name: "XOR", MinArgs: 1, MaxArgs: -1, Impl: fnXor},
		{Name: "NOT", MinArgs: 1, MaxArgs: 1, Impl: fnNot},
		{Name: "TRUE", MinArgs: 0, MaxArgs: 0, Impl: fnTrue},
		{Name: "FALSE", MinArgs: 0, MaxArgs: 0, Impl: fnFalse},
		{Name: "NA", MinArgs: 0, MaxArgs: 0, Impl: fnNA},
		{Name: "ISERROR", MinArgs: 1, MaxArgs: 1, Impl: isKind(isError)},
		{Name: "ISNA", MinArgs: 1, MaxArgs: 1, Impl: isKind(isNA)},
		{Name: "ISNUMBER", MinArgs: 1, MaxArgs: 1, Impl: isKind(isNumber)},
		{Name: "ISTEXT", MinArgs: 1, MaxArgs: 1, Impl: isKind(isText)},
		{Name: "ISLOGICAL", MinArgs: 1, MaxArgs: 1, Impl: isKind(isLogical)},
		{Name: "ISBLANK", MinArgs: 1, MaxArgs: 1, Impl: isKind(isBlank)},

		// Text
		{Name: "CONCATENATE", MinArgs: 1, MaxArgs: -1, Impl: fnConcatenate},
		{Name: "CONCAT", MinArgs: 1, MaxArgs: -1, Impl: fnConcat},
		{Name: "LEN", MinArgs: 1, MaxArgs: 1, Impl: fnLen},
		{Name: "LEFT", MinArgs: 1, MaxArgs: 2, Impl: fnLeft},
		{Name: "RIGHT", MinArgs: 1, MaxArgs: 2, Impl: fnRight},
		{Name: "MID", MinArgs: 3, MaxArgs: 3, Impl: fnMid},
		{Name: "UPPER", MinArgs: 1, MaxArgs: 1, Impl: fnUpper},
		{Name: "LOWER", MinArgs: 1, MaxArgs: 1, Impl: fnLower},
		{Name: "PROPER", MinArgs: 1, MaxArgs: 1, Impl: fnProper},
		{Name: "TRIM", MinArgs: 1, MaxArgs: 1, Impl: fnTrim},
		{Name: "REPT", MinArgs: 2, MaxArgs: 2, Impl: fnRept},
		{Name: "FIND", MinArgs: 2, MaxArgs: 3, Impl: fnFind},
		{Name: "SEARCH", MinArgs: 2, MaxArgs: 3, Impl: fnSearch},
		{Name: "SUBSTITUTE", MinArgs: 3, MaxArgs: 4, Impl: fnSubstitute},
		{Name: "EXACT", MinArgs: 2, MaxArgs: 2, Impl: fnExact},
		{Name: "VALUE", MinArgs: 1, MaxArgs: 1, Impl: fnValue},
		{Name: "FIXED", MinArgs: 1, MaxArgs: 3, Impl: fnFixed},
		{Name: "DOLLAR", MinArgs: 1, MaxArgs: 2, Impl: fnDollar},
		{Name: "TEXT", MinArgs: 2, MaxArgs: 2, Impl: fnText},
		{Name: "CHAR", MinArgs: 1, MaxArgs: 1, Impl: fnChar},
		{Name: "CODE", MinArgs: 1, MaxArgs: 1, Impl: fnCode},
		{Name: "UNICHAR", MinArgs: 1, MaxArgs: 1, Impl: fnUnichar},
		{Name: "UNICODE", MinArgs: 1, MaxArgs: 1, Impl: fnCode},
		{Name: "CLEAN", MinArgs: 1, MaxArgs: 1, Impl: fnClean},
		{Name: "REPLACE", MinArgs: 4, MaxArgs: 4, Impl: fnReplace},

		// Date and time
		{Name: "DATE", MinArgs: 3, MaxArgs: 3, Impl: fnDate},
		{Name: "TODAY", MinArgs: 0, MaxArgs: 0, Impl: fnToday},
		{Name: "NOW", MinArgs: 0, MaxArgs: 0, Impl: fnNow},
		{Name: "YEAR", MinArgs: 1, MaxArgs: 1, Impl: datePart(yearOf)},
		{Name: "MONTH", MinArgs: 1, MaxArgs: 1, Impl: datePart(monthOf)},
		{Name: "DAY", MinArgs: 1, MaxArgs: 1, Impl: datePart(dayOf)},
		{Name: "HOUR", MinArgs: 1, MaxArgs: 1, Impl: datePart(hourOf)},
		{Name: "MINUTE", MinArgs: 1, MaxArgs: 1, Impl: datePart(minuteOf)},
		{Name: "SECOND", MinArgs: 1, MaxArgs: 1, Impl: datePart(secondOf)},
		{Name: "WEEKDAY", MinArgs: 1, MaxArgs: 2, Impl: fnWeekday},
		{Name: "DAYS", MinArgs: 2, MaxArgs: 2, Impl: fnDays},
		{Name: "TIME", MinArgs: 3, MaxArgs: 3, Impl: fnTime},
		{Name: "DATEVALUE", MinArgs: 1, MaxArgs: 1, Impl: fnDateValue},
		{Name: "TIMEVALUE", MinArgs: 1, MaxArgs: 1, Impl: fnTimeValue},

		// Engineering
		{Name: "BIN2DEC", MinArgs: 1, MaxArgs: 1, Impl: convert(radixBin, nil)},
		{Name: "BIN2OCT", MinArgs: 1, MaxArgs: 2, Impl: convert(radixBin, radixOct)},
		{Name: "BIN2HEX", MinArgs: 1, MaxArgs: 2, Impl: convert(radixBin, radixHex)},
		{Name: "OCT2DEC", MinArgs: 1, MaxArgs: 1, Impl: convert(radixOct, nil)},
		{Name: "OCT2BIN", MinArgs: 1, MaxArgs: 2, Impl: convert(radixOct, radixBin)},
		{Name: "OCT2HEX", MinArgs: 1, MaxArgs: 2, Impl: convert(radixOct, radixHex)},
		{Name: "HEX2DEC", MinArgs: 1, MaxArgs: 1, Impl: convert(radixHex, nil)},
		{Name: "HEX2BIN", MinArgs: 1, MaxArgs: 2, Impl: convert(radixHex, radixBin)},
		{Name: "HEX2OCT", MinArgs: 1, MaxArgs: 2, Impl: convert(radixHex, radixOct)},
		{Name: "DEC2BIN", MinArgs: 1, MaxArgs: 2, Impl: convert(nil, radixBin)},
		{Name: "DEC2OCT", MinArgs: 1, MaxArgs: 2, Impl: convert(nil, radixOct)},
		{Name: "DEC2HEX", MinArgs: 1, MaxArgs: 2, Impl: convert(nil, radixHex)},
		{Name: "BITAND", MinArgs: 2, MaxArgs: 2, Impl: fnBitAnd},
		{Name: "BITOR", MinArgs: 2, MaxArgs: 2, Impl: fnBitOr},
		{Name: "BITXOR", MinArgs: 2, MaxArgs: 2, Impl: fnBitXor},
		{Name: "BITLSHIFT", MinArgs: 2, MaxArgs: 2, Impl: fnBitLShift},
		{Name: "BITRSHIFT", MinArgs: 2, MaxArgs: 2, Impl: fnBitRShift},
		{Name: "COMPLEX", MinArgs: 2, MaxArgs: 3, Impl: fnComplex},
		{Name: "IMREAL", MinArgs: 1, MaxArgs: 1, Impl: fnImReal},
		{Name: "IMAGINARY", MinArgs: 1, MaxArgs: 1, Impl: fnImaginary},
		{Name: "IMABS", MinArgs: 1, MaxArgs: 1, Impl: fnImAbs},
		{Name: "IMARGUMENT", MinArgs: 1, MaxArgs: 1, Impl: fnImArgument},
		{Name: "IMCONJUGATE", MinArgs: 1, MaxArgs: 1, Impl: fnImConjugate},
	}
}

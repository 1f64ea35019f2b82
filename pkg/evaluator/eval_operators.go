package evaluator

import (
	"math"

	"github.com/sandrolain/goformula/pkg/types"
)

// applyBinary applies a binary operator to evaluated operands. An Error
// operand is returned unchanged, the left one first.
func applyBinary(op types.Operator, left, right types.Value) types.Value {
	if left.IsError() {
		return left
	}
	if right.IsError() {
		return right
	}

	switch op {
	case types.OpConcat:
		return types.Text(left.String() + right.String())
	case types.OpEqual:
		return types.Boolean(left.Equal(right))
	case types.OpNotEqual:
		return types.Boolean(!left.Equal(right))
	case types.OpLess:
		return types.Boolean(left.Less(right))
	case types.OpLessEqual:
		return types.Boolean(left.LessEqual(right))
	case types.OpGreater:
		return types.Boolean(left.Greater(right))
	case types.OpGreaterEqual:
		return types.Boolean(left.GreaterEqual(right))
	}

	if !left.CanConvertToNumber() || !right.CanConvertToNumber() {
		return types.Error(types.ErrorValue)
	}
	l, _ := left.ToNumber()
	r, _ := right.ToNumber()

	switch op {
	case types.OpAdd:
		return types.Number(l + r)
	case types.OpSubtract:
		return types.Number(l - r)
	case types.OpMultiply:
		return types.Number(l * r)
	case types.OpDivide:
		if r == 0 {
			return types.Error(types.ErrorDivZero)
		}
		return types.Number(l / r)
	case types.OpPower:
		p := math.Pow(l, r)
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return types.Error(types.ErrorNum)
		}
		return types.Number(p)
	default:
		return types.Error(types.ErrorValue)
	}
}

// applyUnary applies unary plus or minus.
func applyUnary(op types.Operator, operand types.Value) types.Value {
	if operand.IsError() {
		return operand
	}
	if !operand.CanConvertToNumber() {
		return types.Error(types.ErrorValue)
	}
	n, _ := operand.ToNumber()
	switch op {
	case types.OpMinus:
		return types.Number(-n)
	case types.OpPlus:
		return types.Number(n)
	default:
		return types.Error(types.ErrorValue)
	}
}

package types

import (
	"math"
	"strconv"
	"strings"
)

// NodeType identifies the type of an AST node.
type NodeType string

// AST node types.
const (
	NodeLiteral  NodeType = "literal"  // 1, "text", TRUE
	NodeVariable NodeType = "variable" // A1, rate
	NodeBinary   NodeType = "binary"   // +, -, *, /, ^, &, comparisons
	NodeUnary    NodeType = "unary"    // -x, +x
	NodeArray    NodeType = "array"    // {1, 2; 3}
	NodeFunction NodeType = "function" // SUM(...)
)

// Operator identifies a binary or unary operator.
type Operator uint8

// Operators. OpPlus and OpMinus are the unary forms.
const (
	OpNone Operator = iota
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpPower
	OpConcat
	OpEqual
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpPlus
	OpMinus
)

// String returns the operator's source symbol.
func (op Operator) String() string {
	switch op {
	case OpAdd, OpPlus:
		return "+"
	case OpSubtract, OpMinus:
		return "-"
	case OpMultiply:
		return "*"
	case OpDivide:
		return "/"
	case OpPower:
		return "^"
	case OpConcat:
		return "&"
	case OpEqual:
		return "="
	case OpNotEqual:
		return "<>"
	case OpLess:
		return "<"
	case OpLessEqual:
		return "<="
	case OpGreater:
		return ">"
	case OpGreaterEqual:
		return ">="
	default:
		return "?"
	}
}

// IsComparison reports whether op is one of the six comparison operators.
func (op Operator) IsComparison() bool {
	return op >= OpEqual && op <= OpGreaterEqual
}

// ASTNode represents a node in the Abstract Syntax Tree.
//
// Which fields are meaningful depends on Type:
//   - NodeLiteral: Value
//   - NodeVariable: Name
//   - NodeBinary: Operator, LHS, RHS
//   - NodeUnary: Operator, RHS
//   - NodeArray: Expressions
//   - NodeFunction: Name (upper-cased), Arguments
//
// The tree is strictly owned: no node is shared between parents.
type ASTNode struct {
	Type     NodeType
	Value    Value
	Name     string
	Operator Operator
	Position int

	LHS         *ASTNode
	RHS         *ASTNode
	Arguments   []*ASTNode // Function arguments
	Expressions []*ASTNode // Array elements
}

// NewASTNode creates a new AST node of the specified type.
// Prefer NodeArena.Alloc when parsing to reduce per-node heap allocations.
func NewASTNode(nodeType NodeType, position int) *ASTNode {
	return &ASTNode{
		Type:     nodeType,
		Position: position,
	}
}

// NewLiteral creates a literal node.
func NewLiteral(v Value) *ASTNode {
	return &ASTNode{Type: NodeLiteral, Value: v}
}

// NewVariable creates a variable reference node.
func NewVariable(name string) *ASTNode {
	return &ASTNode{Type: NodeVariable, Name: name}
}

// NewBinary creates a binary operator node.
func NewBinary(op Operator, lhs, rhs *ASTNode) *ASTNode {
	return &ASTNode{Type: NodeBinary, Operator: op, LHS: lhs, RHS: rhs}
}

// NewUnary creates a unary operator node.
func NewUnary(op Operator, operand *ASTNode) *ASTNode {
	return &ASTNode{Type: NodeUnary, Operator: op, RHS: operand}
}

// NewArray creates an array literal node.
func NewArray(elements ...*ASTNode) *ASTNode {
	return &ASTNode{Type: NodeArray, Expressions: elements}
}

// NewFunctionCall creates a function call node. The name is stored upper-cased.
func NewFunctionCall(name string, args ...*ASTNode) *ASTNode {
	return &ASTNode{Type: NodeFunction, Name: strings.ToUpper(name), Arguments: args}
}

// arenaChunkSize is the number of ASTNode values pre-allocated per arena chunk.
// Most formulas fit in a single chunk.
const arenaChunkSize = 64

// NodeArena is a bump-pointer allocator for ASTNode values.
//
// The arena pre-allocates fixed-size chunks of ASTNode structs and returns
// pointers into them, so a typical formula needs a single chunk allocation.
// Nodes stay reachable for as long as the tree that points into the chunk.
//
// NodeArena is NOT thread-safe. Each parser owns its own arena.
type NodeArena struct {
	chunks [][]ASTNode
	pos    int // next free index in the last chunk
}

// NewNodeArena allocates an arena pre-warmed with one initial chunk.
func NewNodeArena() *NodeArena {
	return &NodeArena{
		chunks: [][]ASTNode{make([]ASTNode, arenaChunkSize)},
	}
}

// Alloc returns a pointer to a zero-valued ASTNode inside the arena with
// Type and Position set.
func (a *NodeArena) Alloc(nodeType NodeType, position int) *ASTNode {
	if a.pos >= arenaChunkSize {
		a.chunks = append(a.chunks, make([]ASTNode, arenaChunkSize))
		a.pos = 0
	}
	n := &a.chunks[len(a.chunks)-1][a.pos]
	a.pos++
	n.Type = nodeType
	n.Position = position
	return n
}

// String renders the node as formula text. Binary operations are fully
// parenthesised so the result re-parses to an equivalent tree.
func (n *ASTNode) String() string {
	var sb strings.Builder
	n.write(&sb)
	return sb.String()
}

func (n *ASTNode) write(sb *strings.Builder) {
	if n == nil {
		return
	}
	switch n.Type {
	case NodeLiteral:
		writeLiteral(sb, n.Value)
	case NodeVariable:
		sb.WriteString(n.Name)
	case NodeBinary:
		sb.WriteByte('(')
		n.LHS.write(sb)
		sb.WriteByte(' ')
		sb.WriteString(n.Operator.String())
		sb.WriteByte(' ')
		n.RHS.write(sb)
		sb.WriteByte(')')
	case NodeUnary:
		sb.WriteString(n.Operator.String())
		n.RHS.write(sb)
	case NodeArray:
		sb.WriteByte('{')
		writeList(sb, n.Expressions)
		sb.WriteByte('}')
	case NodeFunction:
		sb.WriteString(n.Name)
		sb.WriteByte('(')
		writeList(sb, n.Arguments)
		sb.WriteByte(')')
	}
}

func writeList(sb *strings.Builder, nodes []*ASTNode) {
	for i, el := range nodes {
		if i > 0 {
			sb.WriteString(", ")
		}
		el.write(sb)
	}
}

func writeLiteral(sb *strings.Builder, v Value) {
	switch v.Kind() {
	case KindNumber:
		n, _ := v.AsNumber()
		switch {
		case math.IsInf(n, 1):
			sb.WriteString("1e999")
		case math.IsInf(n, -1):
			sb.WriteString("-1e999")
		default:
			sb.WriteString(strconv.FormatFloat(n, 'g', -1, 64))
		}
	case KindText:
		s, _ := v.AsText()
		sb.WriteString(QuoteText(s))
	default:
		sb.WriteString(v.String())
	}
}

// QuoteText renders s as a double-quoted formula string literal.
func QuoteText(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// Dump renders the node in a constructor-like debug form, for example
// BinaryOp(+, Literal(1), Variable(A1)).
func (n *ASTNode) Dump() string {
	if n == nil {
		return "<nil>"
	}
	switch n.Type {
	case NodeLiteral:
		if n.Value.IsText() {
			s, _ := n.Value.AsText()
			return "Literal(" + QuoteText(s) + ")"
		}
		return "Literal(" + n.Value.String() + ")"
	case NodeVariable:
		return "Variable(" + n.Name + ")"
	case NodeBinary:
		return "BinaryOp(" + n.Operator.String() + ", " + n.LHS.Dump() + ", " + n.RHS.Dump() + ")"
	case NodeUnary:
		return "UnaryOp(" + n.Operator.String() + ", " + n.RHS.Dump() + ")"
	case NodeArray:
		return "Array(" + dumpList(n.Expressions) + ")"
	case NodeFunction:
		if len(n.Arguments) == 0 {
			return "FunctionCall(" + n.Name + ")"
		}
		return "FunctionCall(" + n.Name + ", " + dumpList(n.Arguments) + ")"
	default:
		return string(n.Type)
	}
}

func dumpList(nodes []*ASTNode) string {
	parts := make([]string, len(nodes))
	for i, el := range nodes {
		parts[i] = el.Dump()
	}
	return strings.Join(parts, ", ")
}

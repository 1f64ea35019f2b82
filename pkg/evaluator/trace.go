package evaluator

import (
	"strings"

	"github.com/sandrolain/goformula/pkg/types"
)

// Trace node kinds.
const (
	TraceLiteral      = "Literal"
	TraceVariable     = "Variable"
	TraceBinaryOp     = "BinaryOp"
	TraceUnaryOp      = "UnaryOp"
	TraceArray        = "Array"
	TraceFunctionCall = "FunctionCall"
)

// TraceNode mirrors one visited AST node together with the value it
// produced. IDs are assigned in visiting order starting at 0.
type TraceNode struct {
	ID       int          `json:"id"`
	Kind     string       `json:"kind"`
	Label    string       `json:"label"`
	Value    types.Value  `json:"value"`
	Children []*TraceNode `json:"children,omitempty"`
}

// Walk calls fn for n and every descendant in pre-order.
func (n *TraceNode) Walk(fn func(*TraceNode)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Count returns the number of nodes in the tree.
func (n *TraceNode) Count() int {
	count := 0
	n.Walk(func(*TraceNode) { count++ })
	return count
}

// String renders the tree one node per line, indented by depth.
func (n *TraceNode) String() string {
	var sb strings.Builder
	n.write(&sb, 0)
	return sb.String()
}

func (n *TraceNode) write(sb *strings.Builder, depth int) {
	if n == nil {
		return
	}
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(n.Kind)
	sb.WriteString(" ")
	sb.WriteString(n.Label)
	sb.WriteString(" => ")
	sb.WriteString(displayValue(n.Value))
	sb.WriteByte('\n')
	for _, c := range n.Children {
		c.write(sb, depth+1)
	}
}

func displayValue(v types.Value) string {
	if v.IsText() {
		s, _ := v.AsText()
		return types.QuoteText(s)
	}
	return v.String()
}

// traceCollector builds the trace tree while the evaluator walks the AST.
type traceCollector struct {
	root   *TraceNode
	stack  []*TraceNode
	nextID int
}

// begin opens a node as a child of the innermost open node.
func (tc *traceCollector) begin(node *types.ASTNode) *TraceNode {
	tn := &TraceNode{ID: tc.nextID}
	tc.nextID++
	tn.Kind, tn.Label = traceLabel(node)

	if len(tc.stack) == 0 {
		tc.root = tn
	} else {
		parent := tc.stack[len(tc.stack)-1]
		parent.Children = append(parent.Children, tn)
	}
	tc.stack = append(tc.stack, tn)
	return tn
}

// end records the node's value and closes it.
func (tc *traceCollector) end(tn *TraceNode, v types.Value) {
	tn.Value = v
	if n := len(tc.stack); n > 0 && tc.stack[n-1] == tn {
		tc.stack = tc.stack[:n-1]
	}
}

func traceLabel(node *types.ASTNode) (string, string) {
	switch node.Type {
	case types.NodeLiteral:
		return TraceLiteral, node.Value.String()
	case types.NodeVariable:
		return TraceVariable, node.Name
	case types.NodeBinary:
		return TraceBinaryOp, node.Operator.String()
	case types.NodeUnary:
		return TraceUnaryOp, node.Operator.String()
	case types.NodeArray:
		return TraceArray, "{ }"
	case types.NodeFunction:
		return TraceFunctionCall, node.Name
	default:
		return string(node.Type), ""
	}
}

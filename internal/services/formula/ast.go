package formula

import (
	"strconv"
	"strings"
)

// node is an element of a validated expression tree. series reports, statically, whether
// the node evaluates to a per-timestamp array (true) or a single scalar (false).
type node interface {
	series() bool
	eval(env *env) (value, error)
	String() string
}

type numberNode struct {
	v float64
}

func (n *numberNode) series() bool   { return false }
func (n *numberNode) String() string { return strconv.FormatFloat(n.v, 'g', -1, 64) }

type channelNode struct {
	id string // resolved channel id, never the alias
}

func (n *channelNode) series() bool   { return true }
func (n *channelNode) String() string { return n.id }

type negNode struct {
	x node
}

func (n *negNode) series() bool   { return n.x.series() }
func (n *negNode) String() string { return "(-" + n.x.String() + ")" }

type binaryNode struct {
	op   *binaryOp
	l, r node
}

func (n *binaryNode) series() bool { return n.l.series() || n.r.series() }
func (n *binaryNode) String() string {
	return "(" + n.l.String() + " " + n.op.symbol + " " + n.r.String() + ")"
}

type callNode struct {
	fn  *function
	arg node
}

func (n *callNode) series() bool {
	if n.fn.reduce != nil {
		return false
	}
	return n.arg.series()
}

func (n *callNode) String() string {
	var b strings.Builder
	b.WriteString(n.fn.name)
	b.WriteByte('(')
	b.WriteString(n.arg.String())
	b.WriteByte(')')
	return b.String()
}

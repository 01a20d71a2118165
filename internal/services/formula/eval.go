package formula

import (
	"math"

	"SigDerive/internal/domain/models"
)

// value is either a per-timestamp array of length env.n or a single scalar.
type value struct {
	arr      []float64
	scalar   float64
	isSeries bool
}

type env struct {
	frame *models.AlignedFrame
	n     int
}

// Eval evaluates the expression over frame and returns one value per grid timestamp.
// Absent entries are NaN. A scalar result is broadcast across the grid. frame is only read.
func (e *Expr) Eval(frame *models.AlignedFrame) ([]float64, error) {
	n := frame.Len()
	for _, id := range e.refs {
		var col []float64
		ok := false
		if frame != nil {
			col, ok = frame.Columns[id]
		}
		if !ok {
			return nil, runtimeErr("channel %q has no aligned column", id)
		}
		if len(col) != n {
			return nil, runtimeErr("column %q has %d values for a grid of %d", id, len(col), n)
		}
	}

	v, err := e.root.eval(&env{frame: frame, n: n})
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	if v.isSeries {
		copy(out, v.arr)
		return out, nil
	}
	for i := range out {
		out[i] = v.scalar
	}
	return out, nil
}

func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return math.NaN()
	}
	return x
}

func (n *numberNode) eval(*env) (value, error) {
	return value{scalar: n.v}, nil
}

func (n *channelNode) eval(env *env) (value, error) {
	return value{arr: env.frame.Columns[n.id], isSeries: true}, nil
}

func (n *negNode) eval(env *env) (value, error) {
	x, err := n.x.eval(env)
	if err != nil {
		return value{}, err
	}
	if !x.isSeries {
		return value{scalar: -x.scalar}, nil
	}
	out := make([]float64, len(x.arr))
	for i, v := range x.arr {
		out[i] = -v
	}
	return value{arr: out, isSeries: true}, nil
}

func (n *binaryNode) eval(env *env) (value, error) {
	l, err := n.l.eval(env)
	if err != nil {
		return value{}, err
	}
	r, err := n.r.eval(env)
	if err != nil {
		return value{}, err
	}

	apply := func(a, b float64) float64 {
		// math.Pow(NaN, 0) and math.Pow(1, NaN) are 1; absent must stay absent.
		if math.IsNaN(a) || math.IsNaN(b) {
			return math.NaN()
		}
		return finite(n.op.apply(a, b))
	}

	if !l.isSeries && !r.isSeries {
		return value{scalar: apply(l.scalar, r.scalar)}, nil
	}
	out := make([]float64, env.n)
	for i := range out {
		a, b := l.scalar, r.scalar
		if l.isSeries {
			a = l.arr[i]
		}
		if r.isSeries {
			b = r.arr[i]
		}
		out[i] = apply(a, b)
	}
	return value{arr: out, isSeries: true}, nil
}

func (n *callNode) eval(env *env) (value, error) {
	x, err := n.arg.eval(env)
	if err != nil {
		return value{}, err
	}
	if n.fn.reduce != nil {
		if !x.isSeries {
			return value{}, runtimeErr("%s requires a series argument", n.fn.name)
		}
		if len(x.arr) == 0 {
			return value{}, runtimeErr("%s over an empty series", n.fn.name)
		}
		return value{scalar: finite(n.fn.reduce(x.arr))}, nil
	}

	if !x.isSeries {
		return value{scalar: finite(n.fn.elem(x.scalar))}, nil
	}
	out := make([]float64, len(x.arr))
	for i, v := range x.arr {
		out[i] = finite(n.fn.elem(v))
	}
	return value{arr: out, isSeries: true}, nil
}

package formula

import (
	"math"
	"sort"
)

type binaryOp struct {
	symbol string
	apply  func(a, b float64) float64
}

var (
	opAdd = &binaryOp{"+", func(a, b float64) float64 { return a + b }}
	opSub = &binaryOp{"-", func(a, b float64) float64 { return a - b }}
	opMul = &binaryOp{"*", func(a, b float64) float64 { return a * b }}
	opDiv = &binaryOp{"/", func(a, b float64) float64 {
		if b == 0 {
			return math.NaN()
		}
		return a / b
	}}
	opPow = &binaryOp{"**", math.Pow}
)

// function is an allow-listed call target. Exactly one of elem and reduce is set.
type function struct {
	name   string
	elem   func(float64) float64
	reduce func([]float64) float64
}

var functions = map[string]*function{
	"abs":  {name: "abs", elem: math.Abs},
	"sqrt": {name: "sqrt", elem: math.Sqrt},
	"sin":  {name: "sin", elem: math.Sin},
	"cos":  {name: "cos", elem: math.Cos},
	"avg":  {name: "avg", reduce: reduceAvg},
	"sum":  {name: "sum", reduce: reduceSum},
	"min":  {name: "min", reduce: reduceMin},
	"max":  {name: "max", reduce: reduceMax},
}

// Functions returns the allow-listed function names, sorted.
func Functions() []string {
	out := make([]string, 0, len(functions))
	for name := range functions {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Reductions skip absent entries; an all-absent input reduces to absent.

func reduceSum(xs []float64) float64 {
	s, n := 0.0, 0
	for _, x := range xs {
		if math.IsNaN(x) {
			continue
		}
		s += x
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return s
}

func reduceAvg(xs []float64) float64 {
	s, n := 0.0, 0
	for _, x := range xs {
		if math.IsNaN(x) {
			continue
		}
		s += x
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return s / float64(n)
}

func reduceMin(xs []float64) float64 {
	m, seen := 0.0, false
	for _, x := range xs {
		if math.IsNaN(x) {
			continue
		}
		if !seen || x < m {
			m, seen = x, true
		}
	}
	if !seen {
		return math.NaN()
	}
	return m
}

func reduceMax(xs []float64) float64 {
	m, seen := 0.0, false
	for _, x := range xs {
		if math.IsNaN(x) {
			continue
		}
		if !seen || x > m {
			m, seen = x, true
		}
	}
	if !seen {
		return math.NaN()
	}
	return m
}

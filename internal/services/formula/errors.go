package formula

import "fmt"

// InvalidFormulaError is returned when a formula fails grammar, identifier or function
// validation. Evaluation is never attempted for such a formula.
type InvalidFormulaError struct {
	Reason string
	Token  string // offending token, empty when not attributable to one
	Pos    int    // byte offset of Token in the formula, -1 when unknown
}

func (e *InvalidFormulaError) Error() string {
	if e.Token == "" {
		return "invalid formula: " + e.Reason
	}
	if e.Pos < 0 {
		return fmt.Sprintf("invalid formula: %s (token %q)", e.Reason, e.Token)
	}
	return fmt.Sprintf("invalid formula: %s (token %q at position %d)", e.Reason, e.Token, e.Pos)
}

func invalid(tok string, pos int, format string, args ...any) *InvalidFormulaError {
	return &InvalidFormulaError{Reason: fmt.Sprintf(format, args...), Token: tok, Pos: pos}
}

// EvaluationRuntimeError is returned when a validated formula still cannot be evaluated,
// e.g. a reduction over an empty grid or a frame whose columns do not match the grid.
type EvaluationRuntimeError struct {
	Reason string
}

func (e *EvaluationRuntimeError) Error() string {
	return "evaluation error: " + e.Reason
}

func runtimeErr(format string, args ...any) *EvaluationRuntimeError {
	return &EvaluationRuntimeError{Reason: fmt.Sprintf(format, args...)}
}

package derived

import (
	"fmt"
	"sort"

	"SigDerive/internal/domain/models"
	"SigDerive/internal/services/formula"
)

// Engine runs align, evaluate and serialize for one request. It keeps no state between
// calls and is safe for concurrent use.
type Engine struct {
	maxFormulaLength int
}

type EngineOption func(*Engine)

// WithMaxFormulaLength overrides formula.DefaultMaxLength.
func WithMaxFormulaLength(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxFormulaLength = n
		}
	}
}

func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{maxFormulaLength: formula.DefaultMaxLength}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validate parses src against channels without touching any data.
func (e *Engine) Validate(src string, channels []string) (*formula.Expr, error) {
	return formula.Parse(src, channels, formula.WithMaxLength(e.maxFormulaLength))
}

// Evaluate validates src against the keys of series, then aligns and evaluates.
// The formula is validated first, so an invalid formula is reported even when there is no data.
func (e *Engine) Evaluate(src string, series map[string]models.ChannelSeries) ([]models.Point, error) {
	channels := make([]string, 0, len(series))
	for id := range series {
		channels = append(channels, id)
	}
	sort.Strings(channels)

	expr, err := e.Validate(src, channels)
	if err != nil {
		return nil, err
	}
	points, _, err := e.EvaluateExpr(expr, series)
	return points, err
}

// EvaluateExpr aligns series and evaluates an already validated expression. It also
// returns the grid length for callers that record it.
func (e *Engine) EvaluateExpr(expr *formula.Expr, series map[string]models.ChannelSeries) ([]models.Point, int, error) {
	frame := Align(series)
	if frame == nil {
		ids := make([]string, 0, len(series))
		for id := range series {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return nil, 0, &DataNotFoundError{Channels: ids}
	}

	values, err := expr.Eval(frame)
	if err != nil {
		return nil, frame.Len(), err
	}
	points, err := Serialize(frame.Timestamps, values)
	if err != nil {
		return nil, frame.Len(), fmt.Errorf("evaluate %q: %w", expr.Source(), err)
	}
	return points, frame.Len(), nil
}

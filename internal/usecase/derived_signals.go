package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"SigDerive/internal/domain/models"
	domrepo "SigDerive/internal/domain/repository"
	"SigDerive/internal/services/derived"
	"SigDerive/internal/services/formula"
	applogger "SigDerive/pkg/logger"
)

// DerivedSignalUseCase runs one evaluation request: validate, fetch, align, evaluate.
type DerivedSignalUseCase struct {
	store       domrepo.TimeSeriesStore
	engine      *derived.Engine
	metrics     domrepo.Metrics
	log         *applogger.Logger
	concurrency int
	timeout     time.Duration
}

func NewDerivedSignalUseCase(
	store domrepo.TimeSeriesStore,
	engine *derived.Engine,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	concurrency int,
	timeout time.Duration,
) *DerivedSignalUseCase {
	if l == nil {
		l = applogger.Nop()
	}
	if concurrency <= 0 {
		concurrency = 8
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DerivedSignalUseCase{
		store:       store,
		engine:      engine,
		metrics:     metrics,
		log:         l,
		concurrency: concurrency,
		timeout:     timeout,
	}
}

type EvaluateParams struct {
	Formula  string
	Channels []string
	StartMs  int64
	EndMs    int64
}

// Evaluate validates the formula against the requested channels before any fetch, then
// fetches every requested channel and evaluates over the aligned frame.
func (uc *DerivedSignalUseCase) Evaluate(ctx context.Context, p EvaluateParams) ([]models.Point, error) {
	start := time.Now()

	expr, err := uc.engine.Validate(p.Formula, p.Channels)
	if err != nil {
		uc.record(err)
		return nil, err
	}

	fetchStart := time.Now()
	series, err := uc.fetchAll(ctx, p.Channels, p.StartMs, p.EndMs)
	uc.metrics.RecordLatency("fetch", time.Since(fetchStart).Seconds())
	if err != nil {
		uc.record(err)
		uc.log.Error("derived fetch failed",
			applogger.Strings("channels", p.Channels),
			applogger.Int64("start_ms", p.StartMs),
			applogger.Int64("end_ms", p.EndMs),
			applogger.Error(err),
		)
		return nil, err
	}

	evalStart := time.Now()
	points, rows, err := uc.engine.EvaluateExpr(expr, series)
	uc.metrics.RecordLatency("evaluate", time.Since(evalStart).Seconds())
	if err != nil {
		uc.record(err)
		return nil, err
	}
	uc.metrics.RecordGridSize(rows)
	uc.metrics.RecordLatency("total", time.Since(start).Seconds())
	uc.record(nil)

	uc.log.Debug("derived evaluated",
		applogger.String("formula", p.Formula),
		applogger.Int("channels", len(p.Channels)),
		applogger.Int("rows", rows),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return points, nil
}

// fetchAll fetches channels with at most uc.concurrency requests in flight. The first
// error cancels the remaining fetches.
func (uc *DerivedSignalUseCase) fetchAll(ctx context.Context, channels []string, startMs, endMs int64) (map[string]models.ChannelSeries, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	type item struct {
		id     string
		series models.ChannelSeries
		err    error
	}
	ch := make(chan item, len(channels))
	sem := make(chan struct{}, uc.concurrency)
	var wg sync.WaitGroup

	for _, id := range channels {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				ch <- item{id: id, err: ctx.Err()}
				return
			}
			s, err := uc.store.Fetch(ctx, id, startMs, endMs)
			ch <- item{id: id, series: s, err: err}
		}(id)
	}
	go func() { wg.Wait(); close(ch) }()

	out := make(map[string]models.ChannelSeries, len(channels))
	var firstErr error
	for it := range ch {
		if it.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("fetch channel %s: %w", it.id, it.err)
				cancel()
			}
			continue
		}
		it.series.ChannelID = it.id
		out[it.id] = it.series
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func (uc *DerivedSignalUseCase) record(err error) {
	if err == nil {
		uc.metrics.RecordEvaluation("ok")
		return
	}
	kind := ErrorKind(err)
	uc.metrics.RecordEvaluation(kind)
	uc.metrics.RecordError(kind)
}

// ErrorKind classifies an evaluation error for metrics and logs.
func ErrorKind(err error) string {
	var (
		ife *formula.InvalidFormulaError
		rte *formula.EvaluationRuntimeError
		dnf *derived.DataNotFoundError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &ife):
		return "invalid_formula"
	case errors.As(err, &rte):
		return "evaluation"
	case errors.As(err, &dnf):
		return "data_not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "internal"
	}
}

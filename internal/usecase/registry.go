package usecase

import (
	"context"
	"fmt"
	"time"

	"SigDerive/internal/domain/models"
	domrepo "SigDerive/internal/domain/repository"
	"SigDerive/internal/services/derived"
	applogger "SigDerive/pkg/logger"
)

// RegistryUseCase manages saved derived signals and evaluates them.
type RegistryUseCase struct {
	registry domrepo.SignalRegistry
	events   domrepo.EventPublisher
	engine   *derived.Engine
	eval     *DerivedSignalUseCase
	log      *applogger.Logger
	now      func() time.Time
}

func NewRegistryUseCase(
	registry domrepo.SignalRegistry,
	events domrepo.EventPublisher,
	engine *derived.Engine,
	eval *DerivedSignalUseCase,
	l *applogger.Logger,
) *RegistryUseCase {
	if l == nil {
		l = applogger.Nop()
	}
	return &RegistryUseCase{
		registry: registry,
		events:   events,
		engine:   engine,
		eval:     eval,
		log:      l,
		now:      time.Now,
	}
}

type CreateSignalParams struct {
	ID             string
	Name           string
	Formula        string
	Units          string
	Description    string
	SourceChannels []string
}

// Create validates the formula against the signal's source channels and persists it.
// An empty id defaults to "derived-<epoch ms>".
func (uc *RegistryUseCase) Create(ctx context.Context, p CreateSignalParams) (*models.DerivedSignal, error) {
	if _, err := uc.engine.Validate(p.Formula, p.SourceChannels); err != nil {
		return nil, err
	}
	now := uc.now().UTC()
	s := &models.DerivedSignal{
		ID:             p.ID,
		Name:           p.Name,
		Formula:        p.Formula,
		Units:          p.Units,
		Description:    p.Description,
		SourceChannels: append([]string(nil), p.SourceChannels...),
		CreatedAt:      now.Truncate(time.Millisecond),
	}
	if s.ID == "" {
		s.ID = fmt.Sprintf("derived-%d", now.UnixMilli())
	}
	if err := uc.registry.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("create signal %s: %w", s.ID, err)
	}
	uc.log.Info("derived signal created", applogger.String("id", s.ID), applogger.String("name", s.Name))
	uc.publish(ctx, models.SignalEvent{Type: models.SignalCreated, ID: s.ID, Signal: s, At: now.UnixMilli()})
	return s, nil
}

func (uc *RegistryUseCase) Get(ctx context.Context, id string) (*models.DerivedSignal, error) {
	s, err := uc.registry.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get signal %s: %w", id, err)
	}
	return s, nil
}

func (uc *RegistryUseCase) List(ctx context.Context) ([]*models.DerivedSignal, error) {
	out, err := uc.registry.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list signals: %w", err)
	}
	return out, nil
}

func (uc *RegistryUseCase) Delete(ctx context.Context, id string) error {
	if err := uc.registry.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete signal %s: %w", id, err)
	}
	uc.log.Info("derived signal deleted", applogger.String("id", id))
	uc.publish(ctx, models.SignalEvent{Type: models.SignalDeleted, ID: id, At: uc.now().UnixMilli()})
	return nil
}

// EvaluateSaved evaluates a stored signal's formula over its source channels.
func (uc *RegistryUseCase) EvaluateSaved(ctx context.Context, id string, startMs, endMs int64) (*models.DerivedSignal, []models.Point, error) {
	s, err := uc.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	points, err := uc.eval.Evaluate(ctx, EvaluateParams{
		Formula:  s.Formula,
		Channels: s.SourceChannels,
		StartMs:  startMs,
		EndMs:    endMs,
	})
	if err != nil {
		return s, nil, err
	}
	return s, points, nil
}

// publish is best effort: the registry write already succeeded.
func (uc *RegistryUseCase) publish(ctx context.Context, ev models.SignalEvent) {
	if uc.events == nil {
		return
	}
	if err := uc.events.PublishSignalEvent(ctx, ev); err != nil {
		uc.log.Warn("signal event publish failed",
			applogger.String("type", ev.Type),
			applogger.String("id", ev.ID),
			applogger.Error(err),
		)
	}
}

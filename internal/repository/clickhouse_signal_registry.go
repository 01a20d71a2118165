package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"SigDerive/internal/domain/models"
	domrepo "SigDerive/internal/domain/repository"
	pkgch "SigDerive/pkg/clickhouse"
	applogger "SigDerive/pkg/logger"
)

// CHSignalRegistry stores derived signals in a ReplacingMergeTree table. Every write is a
// new row with a higher version; a delete writes a tombstone row. Reads use FINAL.
type CHSignalRegistry struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
	now   func() time.Time
}

var _ domrepo.SignalRegistry = (*CHSignalRegistry)(nil)

func NewCHSignalRegistry(ch *pkgch.Client, l *applogger.Logger) *CHSignalRegistry {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHSignalRegistry{
		db:    ch.DB(),
		table: ch.Database() + "." + pkgch.DerivedSignalsTable,
		l:     l,
		now:   time.Now,
	}
}

func (r *CHSignalRegistry) Create(ctx context.Context, s *models.DerivedSignal) error {
	if _, err := r.Get(ctx, s.ID); err == nil {
		return domrepo.ErrSignalExists
	} else if !errors.Is(err, domrepo.ErrSignalNotFound) {
		return err
	}
	return r.write(ctx, s, false)
}

func (r *CHSignalRegistry) Get(ctx context.Context, id string) (*models.DerivedSignal, error) {
	q := fmt.Sprintf(`
        SELECT id, name, formula, units, description, source_channels, created_at
        FROM %s FINAL
        WHERE id = ? AND deleted = 0
        LIMIT 1`, r.table)
	rows, err := r.db.QueryContext(ctx, q, id)
	if err != nil {
		r.l.Error("clickhouse registry get error", applogger.String("id", id), applogger.Error(err))
		return nil, fmt.Errorf("get signal %s: %w", id, err)
	}
	defer rows.Close()

	out, err := scanSignals(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, domrepo.ErrSignalNotFound
	}
	return out[0], nil
}

func (r *CHSignalRegistry) List(ctx context.Context) ([]*models.DerivedSignal, error) {
	q := fmt.Sprintf(`
        SELECT id, name, formula, units, description, source_channels, created_at
        FROM %s FINAL
        WHERE deleted = 0
        ORDER BY name ASC, id ASC`, r.table)
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		r.l.Error("clickhouse registry list error", applogger.Error(err))
		return nil, fmt.Errorf("list signals: %w", err)
	}
	defer rows.Close()
	return scanSignals(rows)
}

func (r *CHSignalRegistry) Delete(ctx context.Context, id string) error {
	s, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	return r.write(ctx, s, true)
}

func (r *CHSignalRegistry) write(ctx context.Context, s *models.DerivedSignal, deleted bool) error {
	q := fmt.Sprintf(`INSERT INTO %s
        (id, name, formula, units, description, source_channels, created_at, version, deleted)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, r.table)
	var del uint8
	if deleted {
		del = 1
	}
	channels := s.SourceChannels
	if channels == nil {
		channels = []string{}
	}
	_, err := r.db.ExecContext(ctx, q,
		s.ID, s.Name, s.Formula, s.Units, s.Description, channels,
		s.CreatedAt.UTC(), uint64(r.now().UnixNano()), del,
	)
	if err != nil {
		r.l.Error("clickhouse registry write error",
			applogger.String("id", s.ID),
			applogger.Bool("deleted", deleted),
			applogger.Error(err),
		)
		return fmt.Errorf("write signal %s: %w", s.ID, err)
	}
	return nil
}

func scanSignals(rows *sql.Rows) ([]*models.DerivedSignal, error) {
	var out []*models.DerivedSignal
	for rows.Next() {
		var s models.DerivedSignal
		if err := rows.Scan(&s.ID, &s.Name, &s.Formula, &s.Units, &s.Description, &s.SourceChannels, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"SigDerive/internal/domain/models"
	domrepo "SigDerive/internal/domain/repository"
	pkgch "SigDerive/pkg/clickhouse"
	applogger "SigDerive/pkg/logger"
)

// CHChannelStore implements TimeSeriesStore backed by the ClickHouse channel_data table.
type CHChannelStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

var _ domrepo.TimeSeriesStore = (*CHChannelStore)(nil)

func NewCHChannelStore(ch *pkgch.Client, l *applogger.Logger) *CHChannelStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHChannelStore{
		db:    ch.DB(),
		table: ch.Database() + "." + pkgch.ChannelDataTable,
		l:     l,
	}
}

// Fetch returns the channel's samples in [startMs, endMs] ascending. Rows sharing a
// timestamp are ordered by ingest time so the latest write is last. A NULL value is an
// absent sample.
func (s *CHChannelStore) Fetch(ctx context.Context, channelID string, startMs, endMs int64) (models.ChannelSeries, error) {
	start := time.Now()
	const qtpl = `
        SELECT toUnixTimestamp64Milli(ts), value
        FROM %s
        WHERE channel_id = ?
          AND ts >= fromUnixTimestamp64Milli(?)
          AND ts <= fromUnixTimestamp64Milli(?)
        ORDER BY ts ASC, ingested_at ASC
    `
	q := fmt.Sprintf(qtpl, s.table)
	out := models.ChannelSeries{ChannelID: channelID}

	rows, err := s.db.QueryContext(ctx, q, channelID, startMs, endMs)
	if err != nil {
		s.l.Error("clickhouse fetch query error",
			applogger.String("channel", channelID),
			applogger.Int64("start_ms", startMs),
			applogger.Int64("end_ms", endMs),
			applogger.Error(err),
		)
		return out, fmt.Errorf("fetch %s: %w", channelID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ts int64
			v  sql.NullFloat64
		)
		if err := rows.Scan(&ts, &v); err != nil {
			s.l.Error("clickhouse fetch scan error", applogger.String("channel", channelID), applogger.Error(err))
			return out, fmt.Errorf("scan sample: %w", err)
		}
		smp := models.Sample{TimestampMs: ts, Value: models.Absent()}
		if v.Valid {
			smp.Value = v.Float64
		}
		out.Samples = append(out.Samples, smp)
	}
	if err := rows.Err(); err != nil {
		s.l.Error("clickhouse fetch rows error", applogger.String("channel", channelID), applogger.Error(err))
		return out, fmt.Errorf("rows: %w", err)
	}

	s.l.Debug("clickhouse fetch ok",
		applogger.String("channel", channelID),
		applogger.Int("rows", len(out.Samples)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (s *CHChannelStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

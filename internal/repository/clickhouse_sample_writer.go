package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"SigDerive/internal/domain/models"
	domrepo "SigDerive/internal/domain/repository"
	pkgch "SigDerive/pkg/clickhouse"
	"SigDerive/pkg/util"
)

// CHSampleWriter implements SampleWriter for ClickHouse.
type CHSampleWriter struct {
	db    *sql.DB
	table string
}

var _ domrepo.SampleWriter = (*CHSampleWriter)(nil)

func NewCHSampleWriter(ch *pkgch.Client) *CHSampleWriter {
	return &CHSampleWriter{db: ch.DB(), table: ch.Database() + "." + pkgch.ChannelDataTable}
}

func (w *CHSampleWriter) Store(ctx context.Context, s *models.ChannelSample) error {
	return w.StoreBatch(ctx, []*models.ChannelSample{s})
}

// StoreBatch inserts samples with multi-row VALUES in chunks. Samples without a channel id
// are skipped; NaN values are written as NULL.
func (w *CHSampleWriter) StoreBatch(ctx context.Context, samples []*models.ChannelSample) error {
	const chunkSize = 2000
	for start := 0; start < len(samples); start += chunkSize {
		end := start + chunkSize
		if end > len(samples) {
			end = len(samples)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*3)
		for _, s := range samples[start:end] {
			if s == nil || s.ChannelID == "" {
				continue
			}
			var v interface{}
			if !math.IsNaN(s.Value) {
				v = s.Value
			}
			values = append(values, "(?, ?, ?)")
			args = append(args, s.ChannelID, util.MsToTime(s.TimestampMs), v)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (channel_id, ts, value) VALUES %s", w.table, strings.Join(values, ","))
		if _, err := w.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert samples: %w", err)
		}
	}
	return nil
}

package clickhouse

import "fmt"

// Table names used by the repositories.
const (
	ChannelDataTable    = "channel_data"
	DerivedSignalsTable = "derived_signals"
)

// SchemaStatements returns the DDL for the sample and registry tables in database.
// Value is Nullable so an ingested null reads back as an absent sample.
func SchemaStatements(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
    channel_id  LowCardinality(String),
    ts          DateTime64(3, 'UTC'),
    value       Nullable(Float64),
    ingested_at DateTime64(3, 'UTC') DEFAULT now64(3)
) ENGINE = MergeTree
PARTITION BY toYYYYMM(ts)
ORDER BY (channel_id, ts)`, database, ChannelDataTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
    id              String,
    name            String,
    formula         String,
    units           String,
    description     String,
    source_channels Array(String),
    created_at      DateTime64(3, 'UTC'),
    version         UInt64,
    deleted         UInt8
) ENGINE = ReplacingMergeTree(version)
ORDER BY id`, database, DerivedSignalsTable),
	}
}

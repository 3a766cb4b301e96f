package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationNames(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "001_schema.sql", names[0])
	assert.IsIncreasing(t, names)
}

func TestSchemaDeclaresCoreTables(t *testing.T) {
	raw, err := migrationsFS.ReadFile("migrations/001_schema.sql")
	require.NoError(t, err)
	sql := string(raw)
	for _, table := range []string{"streams", "live_sessions", "judges", "participants", "vote_records", "vote_tallies", "daily_stats", "daily_stream_votes", "global_counters", "admins"} {
		assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}

func TestDebateMigrationDeclaresTables(t *testing.T) {
	raw, err := migrationsFS.ReadFile("migrations/002_debates.sql")
	require.NoError(t, err)
	sql := string(raw)
	for _, table := range []string{"debates", "stream_debates", "debate_flows", "live_schedules"} {
		assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}

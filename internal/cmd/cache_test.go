package cmd

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokedexplorer/pokedex/internal/core/store"
	"github.com/pokedexplorer/pokedex/internal/output"
)

func TestWriteCacheStatsJSON(t *testing.T) {
	oldest := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	stats := &store.CacheStats{DetailEntries: 3, DetailExpired: 1, DetailHits: 7, NameLists: 1, NameCount: 1025, Oldest: &oldest}

	var buf bytes.Buffer
	require.NoError(t, writeCacheStats(&buf, output.FormatJSON, stats))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.EqualValues(t, 3, decoded["detail_entries"])
	assert.EqualValues(t, 1025, decoded["name_count"])
	assert.Nil(t, decoded["newest"])
}

func TestWriteCacheStatsTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeCacheStats(&buf, output.FormatTable, &store.CacheStats{DetailEntries: 2}))

	out := buf.String()
	assert.Contains(t, out, "Detail entries")
	assert.Contains(t, out, "Oldest")
	assert.Equal(t, "-", formatStamp(nil))
}

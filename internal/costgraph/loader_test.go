package costgraph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, dir, name, contents string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(contents), 0o644))
	return p
}

func TestLoadFilesParsesAllFourTables(t *testing.T) {
	dir := t.TempDir()
	storage := writeCSV(t, dir, "storage.csv", "tag,storage_gb_mo,put_price,get_price\naws:us-east-1,0.023,0.005,0.0004\naws:eu-west-1,0.024,0.005,0.0004\n")
	cost := writeCSV(t, dir, "cost.csv", "src,dst,egress_gb\naws:us-east-1,aws:eu-west-1,0.02\n")
	throughput := writeCSV(t, dir, "throughput.csv", "src,dst,mb_s\naws:us-east-1,aws:eu-west-1,50\n")
	latency := writeCSV(t, dir, "complete_latency.csv", "src,dst,latency_ms\naws:us-east-1,aws:eu-west-1,90\n")

	g, err := LoadFiles(storage, cost, throughput, latency)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"aws:us-east-1", "aws:eu-west-1"}, g.Regions())

	e, ok := g.Edge("aws:us-east-1", "aws:eu-west-1")
	require.True(t, ok)
	assert.Equal(t, 0.02, e.EgressGB)
	assert.Equal(t, 50.0, e.ThroughputMBs)
	assert.Equal(t, 90.0, e.LatencyMs)

	perDay, err := g.StoragePerDay("aws:us-east-1")
	require.NoError(t, err)
	assert.InDelta(t, 0.023/30.0, perDay, 1e-9)
}

func TestLoadFilesSkipsEmptyPaths(t *testing.T) {
	g, err := LoadFiles("", "", "", "")
	require.NoError(t, err)
	assert.Empty(t, g.Regions())
}

func TestLoadFilesWithoutHeaderRow(t *testing.T) {
	dir := t.TempDir()
	storage := writeCSV(t, dir, "storage.csv", "aws:us-east-1,0.023,0.005,0.0004\n")

	g, err := LoadFiles(storage, "", "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"aws:us-east-1"}, g.Regions())
}

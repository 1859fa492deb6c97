package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skystorehq/geogw/internal/config"
)

func TestDefaultIsUsableWithoutLoad(t *testing.T) {
	c := config.Default()
	assert.Equal(t, []string{"aws:us-east-1"}, c.InitRegions)
	assert.Equal(t, "always_store", c.PutPolicy)
	assert.Equal(t, "direct", c.GetPolicy)
	assert.Equal(t, "sqlite", c.DB.Driver)
}

func TestGlobalSnapshotIsIndependentOfSet(t *testing.T) {
	config.Set(config.Default())
	snap := config.Global()
	snap.PutPolicy = "skystore"

	again := config.Global()
	assert.Equal(t, "always_store", again.PutPolicy, "mutating a snapshot must not affect the global")
}

func TestLoadWithoutPathReturnsDefaults(t *testing.T) {
	c, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "always_store", c.PutPolicy)
	assert.Equal(t, config.Global().PutPolicy, c.PutPolicy)
}

package repositories

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"menuforge/internal/config"
	"menuforge/internal/pkg/logger"
	"menuforge/internal/repositories/cache"
)

func TestOpenFallsBackToFiles(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()

	store, err := Open(context.Background(), cfg, nil, logger.New(logger.Config{Output: io.Discard}))
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, "jsonfile", store.Backend())
	_, isCached := store.(*cache.Store)
	assert.False(t, isCached)
	assert.NoError(t, store.Ping(context.Background()))
}

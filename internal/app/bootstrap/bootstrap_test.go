package bootstrap

import (
	"context"
	"testing"
	"time"

	"gigflow/internal/platform/config"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAddr(t *testing.T) {
	assert.Equal(t, ":8080", normalizeAddr(""))
	assert.Equal(t, ":9000", normalizeAddr("9000"))
	assert.Equal(t, ":9000", normalizeAddr(" :9000 "))
}

func TestBuildAPIWithoutPostgresUsesInProcessRelay(t *testing.T) {
	v := viper.New()
	v.Set(config.KeyHTTPPort, "0")
	v.Set(config.KeyPostgresDSN, "")
	v.Set(config.KeyOutboxPollInterval, 5*time.Millisecond)
	cfg, err := config.Load(v)
	require.NoError(t, err)

	app, err := BuildAPI(cfg)
	require.NoError(t, err)
	assert.NotNil(t, app.relay)
	assert.NotNil(t, app.audit)
	assert.Nil(t, app.postgres)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, app.Run(ctx))
	assert.NoError(t, app.Close())
}

func TestBuildWorkerRequiresPostgres(t *testing.T) {
	cfg, err := config.Load(viper.New())
	require.NoError(t, err)
	if cfg.PostgresDSN != "" {
		t.Skip("POSTGRES_DSN set in environment")
	}

	_, err = BuildWorker(cfg)
	assert.ErrorContains(t, err, "POSTGRES_DSN")
}

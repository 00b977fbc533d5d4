package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendPull/pkg/cache"
	"TrendPull/pkg/config"
	"TrendPull/pkg/logger"
)

func TestInitializeAppWithEverythingDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "error"

	app, cleanup, err := InitializeApp(cfg)
	require.NoError(t, err)
	require.NotNil(t, app)
	cleanup()
}

func TestOptionalProvidersDisabled(t *testing.T) {
	cfg := config.Default()
	log := logger.Nop()

	ch, cleanup, err := ProvideClickHouseClient(cfg, log)
	require.NoError(t, err)
	cleanup()
	assert.Nil(t, ch)
	assert.Nil(t, ProvideBarSource(ch, cfg))
	store, err := ProvideFrameStore(ch, cfg)
	require.NoError(t, err)
	assert.Nil(t, store)

	producer, cleanup, err := ProvideKafkaProducer(cfg, log)
	require.NoError(t, err)
	cleanup()
	assert.Nil(t, ProvideSignalPublisher(producer, cfg))

	consumer, err := ProvideKafkaConsumer(cfg, log)
	require.NoError(t, err)
	assert.Nil(t, consumer)

	assert.Nil(t, ProvideBacktestSubmitter(cfg))

	rc, cleanup, err := ProvideRedisCache(cfg, log)
	require.NoError(t, err)
	cleanup()
	assert.Nil(t, rc)

	svc, cleanup, err := ProvideCache(rc, log)
	require.NoError(t, err)
	defer cleanup()
	assert.IsType(t, &cache.MemoryCache{}, svc)

	cfg.Queue.Enabled = true
	assert.Nil(t, ProvideRedisQueue(cfg, log, rc, nil))
	assert.Nil(t, ProvideRunQueue(nil, ProvideStatusStore(svc, cfg)))
}

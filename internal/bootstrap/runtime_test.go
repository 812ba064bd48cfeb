package bootstrap

import (
	"errors"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/sponsorlens-backend/pkg/config"
	"github.com/angelmondragon/sponsorlens-backend/pkg/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	return db
}

func testEngineConfig(source string) *config.Config {
	return &config.Config{Attribution: config.AttributionConfig{EventSource: source, HalfLifeDays: 7}}
}

func TestNewEngineRequiresCollaborators(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	_, err := NewEngine(EngineParams{Logger: logg, DB: testDB(t)})
	require.Error(t, err)

	_, err = NewEngine(EngineParams{Config: testEngineConfig(config.EventSourcePostgres), Logger: logg})
	require.Error(t, err)
}

func TestNewEngineSelectsEventSource(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	db := testDB(t)

	svc, err := NewEngine(EngineParams{
		Config:   testEngineConfig(config.EventSourcePostgres),
		Logger:   logg,
		DB:       db,
		Registry: prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	assert.NotNil(t, svc)

	_, err = NewEngine(EngineParams{Config: testEngineConfig(config.EventSourceBigQuery), Logger: logg, DB: db})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bigquery client required")

	_, err = NewEngine(EngineParams{Config: testEngineConfig("kafka"), Logger: logg, DB: db})
	require.Error(t, err)
}

func TestRuntimeCloseRunsInReverseAndCombinesErrors(t *testing.T) {
	var order []string
	rt := &Runtime{}
	rt.closers = append(rt.closers,
		func() error { order = append(order, "db"); return errors.New("db close") },
		func() error { order = append(order, "redis"); return nil },
		func() error { order = append(order, "pubsub"); return errors.New("pubsub close") },
	)

	err := rt.Close()
	require.Error(t, err)
	assert.Equal(t, []string{"pubsub", "redis", "db"}, order)
	assert.Len(t, multierr.Errors(err), 2)
	assert.NoError(t, rt.Close())
	assert.NoError(t, (*Runtime)(nil).Close())
}

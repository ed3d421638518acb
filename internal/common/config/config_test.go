package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
camunda:
  broker_address: ${TEST_ZEEBE_ADDRESS}
dataloop:
  api_token: token
workers:
  mongodb-import:
    enabled: true
    max_jobs_active: 2
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromFile_EnvAndDefaults(t *testing.T) {
	t.Setenv("TEST_ZEEBE_ADDRESS", "zeebe:26500")
	t.Setenv("MONGODB_PASSWORD", "s3cret")

	cfg, err := LoadFromFile(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "zeebe:26500", cfg.Camunda.BrokerAddress)
	assert.Equal(t, "s3cret", cfg.MongoDB.Password)
	assert.Equal(t, "token", cfg.Dataloop.APIToken)

	assert.Equal(t, "mongodb-connector", cfg.App.Name)
	assert.Equal(t, "https://gate.dataloop.ai/api/v1", cfg.Dataloop.BaseURL)
	assert.Equal(t, 10000, cfg.MongoDB.ConnectTimeout)
	assert.Equal(t, 300000, cfg.Cache.DatasetTTL)
	assert.Equal(t, ":8080", cfg.Observability.MetricsAddress)
	assert.Equal(t, "mongodb-connector", cfg.Observability.ServiceName)
	assert.False(t, cfg.Cache.Redis.Enabled())
	assert.False(t, cfg.Audit.Postgres.Enabled())

	w := GetWorkerConfig(cfg, "mongodb-import")
	assert.True(t, w.Enabled)
	assert.Equal(t, 2, w.MaxJobsActive)
	assert.Equal(t, 30000, w.Timeout)
}

func TestLoadFromFile_MissingPassword(t *testing.T) {
	t.Setenv("TEST_ZEEBE_ADDRESS", "zeebe:26500")
	t.Setenv("MONGODB_PASSWORD", "")

	_, err := LoadFromFile(writeConfig(t, minimalYAML))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mongodb.password")
}

func TestLoadFromFile_SNSNeedsTopic(t *testing.T) {
	t.Setenv("TEST_ZEEBE_ADDRESS", "zeebe:26500")
	t.Setenv("MONGODB_PASSWORD", "s3cret")

	_, err := LoadFromFile(writeConfig(t, minimalYAML+`
notifications:
  sns:
    enabled: true
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "topic_arn")
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestGetWorkerConfig_Fallback(t *testing.T) {
	cfg := &Config{Camunda: CamundaConfig{MaxJobsActive: 7, Timeout: 1000}}
	w := GetWorkerConfig(cfg, "mongodb-export")
	assert.True(t, w.Enabled)
	assert.Equal(t, 7, w.MaxJobsActive)
	assert.Equal(t, 1000, w.Timeout)
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "audit", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=audit sslmode=disable", p.GetDSN())
	assert.True(t, p.Enabled())
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}

/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("defaults without a file", func(t *testing.T) {
		cfg, err := LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, 10, cfg.ConnectionConfig.MaxIdleConns)
		assert.Equal(t, 2*time.Second, cfg.ConnectionConfig.SlowQueryTime)
		assert.True(t, cfg.DataMigrateConfig.EnableMigrateOnStartup)
		assert.Equal(t, "prod", cfg.DataInitConfig.Environment)
	})

	t.Run("yaml file over defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
connection:
  type: postgres
  host: db.local
  port: 5432
  dbname: members
  slow_query_time: 500ms
migrate:
  enable_foreign_key: false
init:
  environment: dev
log:
  format: json
  file:
    enabled: true
    dir: /var/log/datajpa
`), 0o644))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "postgres", cfg.ConnectionConfig.Type)
		assert.Equal(t, "db.local", cfg.ConnectionConfig.Host)
		assert.Equal(t, 5432, cfg.ConnectionConfig.Port)
		assert.Equal(t, 500*time.Millisecond, cfg.ConnectionConfig.SlowQueryTime)
		assert.Equal(t, 100, cfg.ConnectionConfig.MaxOpenConns)
		assert.False(t, cfg.DataMigrateConfig.EnableForeignKey)
		assert.Equal(t, "dev", cfg.DataInitConfig.Environment)
		assert.Equal(t, "json", cfg.Log.Format)
		assert.True(t, cfg.Log.File.Enabled)
		assert.Equal(t, "/var/log/datajpa", cfg.Log.File.Dir)
		assert.Equal(t, 7, cfg.Log.File.MaxAgeDays)
	})

	t.Run("environment over yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("connection:\n  host: db.local\n"), 0o644))
		t.Setenv("DB_HOST", "db.override")
		t.Setenv("DB_PORT", "3307")
		t.Setenv("DB_SLOW_QUERY_TIME", "1s")
		t.Setenv("DB_INIT_ENVIRONMENT", "test")
		t.Setenv("FILE_LOG_MAX_AGE_DAYS", "30")

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "db.override", cfg.ConnectionConfig.Host)
		assert.Equal(t, 3307, cfg.ConnectionConfig.Port)
		assert.Equal(t, time.Second, cfg.ConnectionConfig.SlowQueryTime)
		assert.Equal(t, "test", cfg.DataInitConfig.Environment)
		assert.Equal(t, 30, cfg.Log.File.MaxAgeDays)
	})

	t.Run("invalid environment value", func(t *testing.T) {
		t.Setenv("DB_PORT", "not-a-port")
		_, err := LoadConfig("")
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestMemoryConfig(t *testing.T) {
	cfg := MemoryConfig()
	assert.Equal(t, "sqlite", cfg.ConnectionConfig.Type)
	assert.Equal(t, MemoryDBName, cfg.ConnectionConfig.DBName)
	assert.Zero(t, cfg.ConnectionConfig.HealthCheckInterval)
}

func TestCreateFromConfig_UnsupportedType(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConnectionConfig.Type = "oracle"
	_, err := NewDatabaseFactory().CreateFromConfig(cfg)
	assert.Error(t, err)
}

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
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/extra/bundebug"
)

const defaultConnectTimeout = 30 * time.Second

// bunManager owns one *bun.DB and keeps it healthy in the background when a
// health check interval is configured.
type bunManager struct {
	cfg    *Config
	logger Logger

	mu          sync.RWMutex
	db          *bun.DB
	status      *HealthStatus
	stopMonitor context.CancelFunc
}

// NewDatabaseManager returns an AbstractDatabaseManager for config with the
// default migration and seed settings.
func NewDatabaseManager(config *ConnectionConfig) AbstractDatabaseManager {
	if config == nil {
		config = DefaultConnectionConfig()
	}
	full := DefaultConfig()
	full.ConnectionConfig = *config
	return NewDatabaseManagerWithConfig(full)
}

// NewDatabaseManagerWithConfig returns an AbstractDatabaseManager that also
// uses the migrate and init sections of cfg.
func NewDatabaseManagerWithConfig(cfg *Config) AbstractDatabaseManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &bunManager{
		cfg:    cfg,
		logger: GetLogger(),
		status: &HealthStatus{},
	}
}

func (m *bunManager) conn() *ConnectionConfig {
	return &m.cfg.ConnectionConfig
}

func (m *bunManager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db != nil {
		return nil
	}

	db, err := m.open(ctx)
	if err != nil {
		m.status = &HealthStatus{LastError: err.Error(), LastCheckTime: time.Now()}
		return err
	}
	m.db = db
	m.status = &HealthStatus{Healthy: true, Connected: true, LastCheckTime: time.Now()}

	if interval := m.conn().HealthCheckInterval; interval > 0 {
		monitorCtx, cancel := context.WithCancel(context.Background())
		m.stopMonitor = cancel
		go m.monitor(monitorCtx, interval)
	}

	m.logger.Info("Database connected successfully",
		"type", m.conn().Type,
		"host", m.conn().Host,
		"dbname", m.conn().DBName,
	)
	return nil
}

// open creates, tunes and verifies a new connection pool.
func (m *bunManager) open(ctx context.Context) (*bun.DB, error) {
	c, err := lookupConnector(m.conn().Type)
	if err != nil {
		return nil, err
	}
	sqlDB, err := sql.Open(c.driver, c.dsn(m.cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}
	m.configurePool(sqlDB)
	db := bun.NewDB(sqlDB, c.dialect())

	pingCtx, cancel := context.WithTimeout(ctx, m.connectTimeout())
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database connection test failed: %w", err)
	}

	if db.Dialect().Name() == dialect.SQLite && m.cfg.DataMigrateConfig.EnableForeignKey {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable sqlite foreign keys: %w", err)
		}
	}

	m.installHooks(db)
	return db, nil
}

func (m *bunManager) configurePool(sqlDB *sql.DB) {
	// An in-memory database lives as long as its single connection.
	if isMemoryDB(m.conn()) {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
		sqlDB.SetConnMaxIdleTime(0)
		return
	}
	sqlDB.SetMaxIdleConns(m.conn().MaxIdleConns)
	sqlDB.SetMaxOpenConns(m.conn().MaxOpenConns)
	sqlDB.SetConnMaxLifetime(m.conn().ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(m.conn().ConnMaxIdleTime)
}

func (m *bunManager) installHooks(db *bun.DB) {
	// BUNDEBUG=1 logs failed queries, BUNDEBUG=2 logs everything.
	db.AddQueryHook(bundebug.NewQueryHook(bundebug.FromEnv("BUNDEBUG")))
	if m.conn().EnableQueryLog {
		db.AddQueryHook(NewQueryHook(true, true, os.Stdout))
	}
	if m.conn().SlowQueryTime > 0 {
		db.AddQueryHook(NewSlowQueryHook(m.conn().SlowQueryTime, m.logger))
	}
	if m.conn().EnableMetrics {
		db.AddQueryHook(DefaultMetricsHook())
	}
}

func (m *bunManager) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopMonitor != nil {
		m.stopMonitor()
		m.stopMonitor = nil
	}
	if m.db == nil {
		return nil
	}

	err := m.db.Close()
	m.db = nil
	m.status = &HealthStatus{LastCheckTime: time.Now()}
	if err != nil {
		m.logger.Error("Failed to close database connection", "error", err)
		return err
	}
	m.logger.Info("Database connection closed")
	return nil
}

// Reconnect closes the current pool and connects again. Handles returned by
// GetDB before the call are closed with the old pool.
func (m *bunManager) Reconnect(ctx context.Context) error {
	m.logger.Info("Attempting to reconnect to the database")
	if err := m.Disconnect(); err != nil {
		m.logger.Warn("Error disconnecting existing connection", "error", err)
	}
	return m.Connect(ctx)
}

// redial waits until the pool reaches the database again. *sql.DB replaces
// broken connections on its own, so the pool and every *bun.DB handed out by
// GetDB stay valid across outages.
func (m *bunManager) redial(ctx context.Context) error {
	db := m.GetDB()
	if db == nil {
		return fmt.Errorf("database not connected")
	}
	pingCtx, cancel := context.WithTimeout(ctx, m.connectTimeout())
	defer cancel()
	return db.PingContext(pingCtx)
}

func (m *bunManager) connectTimeout() time.Duration {
	if timeout := m.conn().ConnectTimeout; timeout > 0 {
		return timeout
	}
	return defaultConnectTimeout
}

func (m *bunManager) Ping(ctx context.Context) error {
	db := m.GetDB()
	if db == nil {
		return fmt.Errorf("database not connected")
	}
	return db.PingContext(ctx)
}

func (m *bunManager) GetDB() *bun.DB {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db
}

func (m *bunManager) GetSQLDB() *sql.DB {
	if db := m.GetDB(); db != nil {
		return db.DB
	}
	return nil
}

func (m *bunManager) HealthCheck(ctx context.Context) *HealthStatus {
	start := time.Now()
	status := &HealthStatus{LastCheckTime: start}

	db := m.GetDB()
	if db == nil {
		status.LastError = "Database not initialized"
		return status
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := db.PingContext(pingCtx)
	status.ResponseTime = time.Since(start)
	if err != nil {
		status.LastError = err.Error()
	} else {
		status.Healthy = true
		status.Connected = true
	}

	stats := db.Stats()
	status.ActiveConns = stats.InUse
	status.IdleConns = stats.Idle
	status.MaxOpenConns = stats.MaxOpenConnections

	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
	return status
}

// monitor checks the connection every interval and, when enabled, redials
// up to MaxReconnectTries times in a row after a failed check.
func (m *bunManager) monitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		status := m.HealthCheck(checkCtx)
		cancel()
		if status.Healthy {
			failures = 0
			continue
		}
		if !m.conn().EnableReconnect {
			continue
		}
		if failures >= m.conn().MaxReconnectTries {
			m.logger.Error("Max reconnect attempts reached, stopping", "tries", failures)
			continue
		}

		failures++
		m.logger.Info("Starting database reconnect", "try", failures)
		select {
		case <-ctx.Done():
			return
		case <-time.After(m.conn().ReconnectInterval):
		}
		if err := m.redial(ctx); err != nil {
			m.logger.Error("Reconnect failed", "error", err, "try", failures)
			continue
		}
		failures = 0
		m.logger.Info("Reconnect succeeded")
	}
}

func (m *bunManager) GetStats() *DBStats {
	db := m.GetDB()
	if db == nil {
		return &DBStats{}
	}
	stats := db.Stats()
	return &DBStats{
		MaxOpenConns:      stats.MaxOpenConnections,
		OpenConns:         stats.OpenConnections,
		InUse:             stats.InUse,
		Idle:              stats.Idle,
		WaitCount:         stats.WaitCount,
		WaitDuration:      stats.WaitDuration,
		MaxIdleClosed:     stats.MaxIdleClosed,
		MaxIdleTimeClosed: stats.MaxIdleTimeClosed,
		MaxLifetimeClosed: stats.MaxLifetimeClosed,
	}
}

func (m *bunManager) migrations() (*MigrationManager, error) {
	db := m.GetDB()
	if db == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	return NewMigrationManagerWithConfig(db, m.logger, m.cfg), nil
}

func (m *bunManager) RunMigrations(ctx context.Context) error {
	mm, err := m.migrations()
	if err != nil {
		return err
	}
	return mm.RunMigrations(ctx)
}

func (m *bunManager) InitData(ctx context.Context) error {
	mm, err := m.migrations()
	if err != nil {
		return err
	}
	return mm.InitData(ctx)
}

func (m *bunManager) SetLogger(logger Logger) {
	if logger == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger = logger
}

// Package database provides connection management for MySQL, PostgreSQL and
// SQLite (including private in-memory databases), versioned migrations of the
// registered models, foreign key handling, SQL seed files, YAML and
// environment configuration, query hooks (logging, slow queries, Prometheus
// metrics), health checks and SQL error classification, built on top of Bun.
package database

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
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/schema"
)

// MemoryDBName selects a private in-memory SQLite database.
const MemoryDBName = ":memory:"

// connector knows how to reach one kind of database.
type connector struct {
	driver  string
	dsn     func(cfg *Config) string
	dialect func() schema.Dialect
}

var connectors = map[string]connector{
	"mysql": {
		driver:  "mysql",
		dsn:     func(cfg *Config) string { return mysqlDSN(&cfg.ConnectionConfig) },
		dialect: func() schema.Dialect { return mysqldialect.New() },
	},
	"postgres": {
		driver:  "postgres",
		dsn:     func(cfg *Config) string { return postgresDSN(&cfg.ConnectionConfig) },
		dialect: func() schema.Dialect { return pgdialect.New() },
	},
	"sqlite": {
		driver: sqliteshim.ShimName,
		dsn: func(cfg *Config) string {
			return sqliteDSN(cfg.ConnectionConfig.DBName, cfg.DataMigrateConfig.EnableForeignKey)
		},
		dialect: func() schema.Dialect { return sqlitedialect.New() },
	},
}

var typeAliases = map[string]string{
	"postgresql": "postgres",
	"sqlite3":    "sqlite",
}

// canonicalType maps a configured database type onto a connectors key.
func canonicalType(typ string) string {
	typ = strings.ToLower(strings.TrimSpace(typ))
	if alias, ok := typeAliases[typ]; ok {
		return alias
	}
	return typ
}

func lookupConnector(typ string) (connector, error) {
	c, ok := connectors[canonicalType(typ)]
	if !ok {
		return connector{}, fmt.Errorf("unsupported database type: %s, supported types: %v", typ, SupportedTypes())
	}
	return c, nil
}

// SupportedTypes lists the accepted values of ConnectionConfig.Type.
func SupportedTypes() []string {
	types := make([]string, 0, len(connectors)+len(typeAliases))
	for name := range connectors {
		types = append(types, name)
	}
	for alias := range typeAliases {
		types = append(types, alias)
	}
	slices.Sort(types)
	return types
}

func mysqlDSN(cfg *ConnectionConfig) string {
	charset := cfg.Charset
	if charset == "" {
		charset = "utf8mb4"
	}
	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	mc.Loc = time.Local
	mc.Timeout = cfg.ConnectTimeout
	mc.ReadTimeout = cfg.ReadTimeout
	mc.WriteTimeout = cfg.WriteTimeout
	mc.Params = map[string]string{"charset": charset}
	return mc.FormatDSN()
}

func postgresDSN(cfg *ConnectionConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	query := url.Values{}
	query.Set("sslmode", sslMode)
	if cfg.ConnectTimeout > 0 {
		query.Set("connect_timeout", strconv.Itoa(int(cfg.ConnectTimeout.Seconds())))
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:     "/" + cfg.DBName,
		RawQuery: query.Encode(),
	}
	return u.String()
}

// sqliteFKParams turns on foreign key enforcement for every connection the
// pool opens. sqliteshim may pick either driver: modernc reads _pragma,
// mattn reads _foreign_keys, and each ignores the other's parameter.
const sqliteFKParams = "_pragma=foreign_keys(1)&_foreign_keys=1"

// sqliteDSN appends ".db" to plain names; ":memory:" and "file:" URIs are
// used as given.
func sqliteDSN(name string, foreignKeys bool) string {
	dsn := name
	if name != MemoryDBName && !strings.HasPrefix(name, "file:") {
		dsn = name + ".db"
	}
	if !foreignKeys {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + sqliteFKParams
	}
	return dsn + "?" + sqliteFKParams
}

func isMemoryDB(cfg *ConnectionConfig) bool {
	return canonicalType(cfg.Type) == "sqlite" && cfg.DBName == MemoryDBName
}

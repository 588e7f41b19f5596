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
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
)

// MetricsHook records query counts and latencies per operation and table.
type MetricsHook struct {
	queries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ bun.QueryHook = (*MetricsHook)(nil)

var (
	defaultMetricsHook     *MetricsHook
	defaultMetricsHookOnce sync.Once
)

// NewMetricsHook creates a MetricsHook and registers its collectors with reg.
func NewMetricsHook(reg prometheus.Registerer) (*MetricsHook, error) {
	h := &MetricsHook{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "datajpa",
			Subsystem: "db",
			Name:      "queries_total",
			Help:      "Number of executed queries by operation, table and status.",
		}, []string{"operation", "table", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "datajpa",
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Query latency by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg != nil {
		if err := reg.Register(h.queries); err != nil {
			return nil, err
		}
		if err := reg.Register(h.duration); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// DefaultMetricsHook returns a process-wide hook registered with the default
// Prometheus registerer.
func DefaultMetricsHook() *MetricsHook {
	defaultMetricsHookOnce.Do(func() {
		h, err := NewMetricsHook(prometheus.DefaultRegisterer)
		if err != nil {
			GetLogger().Warn("Failed to register database metrics", "error", err)
			h, _ = NewMetricsHook(nil)
		}
		defaultMetricsHook = h
	})
	return defaultMetricsHook
}

func (h *MetricsHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *MetricsHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	op := event.Operation()
	status := "ok"
	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) {
		status = "error"
	}
	table := ""
	if event.IQuery != nil {
		table = event.IQuery.GetTableName()
	}
	h.queries.WithLabelValues(op, table, status).Inc()
	h.duration.WithLabelValues(op).Observe(time.Since(event.StartTime).Seconds())
}

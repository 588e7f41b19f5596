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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBunManager_RedialKeepsPool(t *testing.T) {
	ctx := context.Background()
	m := NewDatabaseManagerWithConfig(MemoryConfig()).(*bunManager)
	require.NoError(t, m.Connect(ctx))

	held := m.GetDB()
	_, err := held.ExecContext(ctx, "CREATE TABLE seed_state (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)

	require.NoError(t, m.redial(ctx))
	assert.Same(t, held, m.GetDB())
	require.NoError(t, held.PingContext(ctx))

	var n int
	require.NoError(t, held.NewRaw("SELECT count(*) FROM seed_state").Scan(ctx, &n))
	assert.Zero(t, n)

	require.NoError(t, m.Disconnect())
	assert.Error(t, m.redial(ctx))
	assert.Nil(t, m.GetDB())
}

func TestBunManager_HealthCheck(t *testing.T) {
	ctx := context.Background()
	m := NewDatabaseManagerWithConfig(MemoryConfig()).(*bunManager)
	assert.False(t, m.HealthCheck(ctx).Healthy)

	require.NoError(t, m.Connect(ctx))
	status := m.HealthCheck(ctx)
	assert.True(t, status.Healthy)
	assert.Equal(t, 1, status.MaxOpenConns)
	require.NoError(t, m.Disconnect())
}

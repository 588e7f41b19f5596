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

// Package dbtest opens private in-memory databases with the member/team
// schema for tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tomoncle/datajpa/database"
	_ "github.com/tomoncle/datajpa/entity" // registers the models
	"github.com/uptrace/bun"
)

// Open returns a migrated in-memory SQLite database closed at the end of
// the test.
func Open(t testing.TB) *bun.DB {
	t.Helper()
	return OpenWithConfig(t, database.MemoryConfig())
}

// OpenWithConfig is Open with a caller-provided configuration.
func OpenWithConfig(t testing.TB, cfg *database.Config) *bun.DB {
	t.Helper()
	factory, err := database.Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = factory.Close()
	})
	return factory.GetDB()
}

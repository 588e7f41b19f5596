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

package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/datajpa/database"
	"github.com/tomoncle/datajpa/utils"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`
connection:
  type: sqlite
  dbname: %s
  health_check_interval: 0s
migrate:
  enable_migrate_on_startup: false
  enable_foreign_key: true
  foreign_key_file: %s
init:
  filepath: %s
  environment: dev
`,
		filepath.Join(dir, "datajpa"),
		filepath.Join("..", "..", "configs", "foreign_keys.yaml"),
		filepath.Join("..", "..", "configs", "sql"),
	)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), buf.String())
	return buf.String()
}

func TestCommands(t *testing.T) {
	config := writeConfig(t)

	out := execute(t, "migrate", "-c", config)
	assert.Contains(t, out, "VERSION")
	assert.Contains(t, out, "create_base_tables")

	execute(t, "seed", "-c", config)

	out = execute(t, "members", "-c", config, "--size", "10")
	assert.Contains(t, out, "member1")
	assert.Contains(t, out, "teamA")
	assert.Contains(t, out, "page 1/1, 4 total")

	out = execute(t, "members", "-c", config, "--age", "20")
	assert.Contains(t, out, "member2")
	assert.Contains(t, out, "1 total")

	out = execute(t, "health", "-c", config)
	assert.Contains(t, out, `"healthy": true`)
}

func TestWithDatabase_ClosesWhenRunFails(t *testing.T) {
	configPath = writeConfig(t)
	t.Cleanup(func() { configPath = "" })

	var opened *database.BaseDatabaseFactory
	failed := errors.New("listing failed")
	run := withDatabase(false, func(_ *cobra.Command, f *database.BaseDatabaseFactory) error {
		opened = f
		require.NotNil(t, f.GetDB())
		return failed
	})

	cmd := &cobra.Command{}
	cmd.SetContext(t.Context())
	err := run(cmd, nil)
	assert.ErrorIs(t, err, failed)
	require.NotNil(t, opened)
	assert.Nil(t, opened.GetDB())
}

func TestCommands_LogDir(t *testing.T) {
	config := writeConfig(t)
	dir := filepath.Join(t.TempDir(), "logs")
	t.Cleanup(func() {
		logDir = ""
		_ = utils.DisableFileLog()
	})

	execute(t, "health", "-c", config, "--log-dir", dir)

	data, err := os.ReadFile(filepath.Join(dir, time.Now().Format("2006-01-02"), "info.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Database connected successfully")
}

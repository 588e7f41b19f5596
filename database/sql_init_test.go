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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSQLStatements(t *testing.T) {
	stmts := splitSQLStatements(`
-- teams
INSERT INTO team (name) VALUES ('a');

INSERT INTO member (username, age)
VALUES ('b', 1);
SELECT 1`)
	assert.Equal(t, []string{
		"INSERT INTO team (name) VALUES ('a');",
		"INSERT INTO member (username, age) VALUES ('b', 1);",
		"SELECT 1",
	}, stmts)
	assert.Empty(t, splitSQLStatements("-- only a comment\n\n"))
}

func TestParseFileOrder(t *testing.T) {
	assert.Equal(t, 1, parseFileOrder("001_teams.sql"))
	assert.Equal(t, 20, parseFileOrder("20_members.sql"))
	assert.Equal(t, 999, parseFileOrder("members.sql"))
}

func TestSQLInitManager_GetSQLFiles(t *testing.T) {
	root := t.TempDir()
	write := func(rel string) {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("SELECT 1;"), 0o644))
	}
	write("common/002_b.sql")
	write("common/001_a.sql")
	write("common/readme.txt")
	write("environments/dev/001_dev.sql")
	write("environments/prod/001_prod.sql")

	m := NewSQLInitManager(nil, "dev")
	m.SetSQLRootPath(root)
	files, err := m.GetSQLFiles()
	require.NoError(t, err)

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"001_a.sql", "002_b.sql", "001_dev.sql"}, names)
	assert.Equal(t, "dev", files[2].Environment)
}

func TestSQLInitManager_ReplaceEnvVariables(t *testing.T) {
	t.Setenv("SEED_TEAM", "teamX")
	m := NewSQLInitManager(nil, "dev")

	out, err := m.replaceEnvVariables("INSERT INTO team (name) VALUES ('{{.SEED_TEAM}}-{{.ENVIRONMENT}}');")
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO team (name) VALUES ('teamX-dev');", out)

	plain := "SELECT 1;"
	out, err = m.replaceEnvVariables(plain)
	require.NoError(t, err)
	assert.Equal(t, plain, out)

	_, err = m.replaceEnvVariables("{{.Broken")
	assert.Error(t, err)
}

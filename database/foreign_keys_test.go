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

func TestForeignKeyConstraint_SQL(t *testing.T) {
	fk := ForeignKeyConstraint{
		Table:           "member",
		Column:          "team_id",
		ReferenceTable:  "team",
		ReferenceColumn: "id",
		OnDelete:        "set null",
	}
	assert.Equal(t, "fk_member_team_id", fk.GenerateConstraintName())
	assert.Equal(t, "(team_id) REFERENCES team (id) ON DELETE SET NULL", fk.InlineClause())
	assert.Equal(t,
		"ALTER TABLE member ADD CONSTRAINT fk_member_team_id FOREIGN KEY (team_id) REFERENCES team (id) ON DELETE SET NULL",
		fk.GenerateSQL())

	fk.ConstraintName = "custom"
	fk.OnUpdate = "cascade"
	assert.Equal(t, "custom", fk.GenerateConstraintName())
	assert.Contains(t, fk.InlineClause(), "ON UPDATE CASCADE")
}

func TestForeignKeyManager(t *testing.T) {
	fkm := NewForeignKeyManager(nil)
	assert.Empty(t, fkm.ValidateConstraints())
	require.Len(t, fkm.GetConstraintsByTable("MEMBER"), 1)
	assert.Empty(t, fkm.GetConstraintsByTable("team"))
	assert.Len(t, fkm.ListAllConstraints(), 1)

	fkm.constraints = append(fkm.constraints, ForeignKeyConstraint{
		Table:    "member",
		Column:   "",
		OnDelete: "EXPLODE",
	})
	errs := fkm.ValidateConstraints()
	assert.Len(t, errs, 4)
}

func TestConfigurableForeignKeyManager(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "foreign_keys.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
foreign_keys:
  - table: member
    column: team_id
    reference_table: team
    reference_column: id
    on_delete: CASCADE
    constraint_name: fk_member_team
`), 0o644))

	fkm, err := NewConfigurableForeignKeyManager(nil, path)
	require.NoError(t, err)
	assert.Equal(t, path, fkm.GetConfigPath())
	constraints := fkm.ListAllConstraints()
	require.Len(t, constraints, 1)
	assert.Equal(t, "CASCADE", constraints[0].OnDelete)
	assert.Equal(t, "fk_member_team", constraints[0].GenerateConstraintName())

	exported := filepath.Join(dir, "out", "fk.yaml")
	require.NoError(t, fkm.ExportToConfig(exported))
	reloaded, err := NewConfigurableForeignKeyManager(nil, exported)
	require.NoError(t, err)
	assert.Equal(t, constraints, reloaded.ListAllConstraints())

	require.NoError(t, os.WriteFile(path, []byte("foreign_keys: []\n"), 0o644))
	require.NoError(t, fkm.ReloadConfig())
	assert.Empty(t, fkm.ListAllConstraints())
}

func TestConfigurableForeignKeyManager_FallsBack(t *testing.T) {
	fkm, err := NewConfigurableForeignKeyManager(nil, filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, getForeignKeyConstraints(), fkm.ListAllConstraints())
}

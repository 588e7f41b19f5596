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

package datajpa_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/datajpa"
	"github.com/tomoncle/datajpa/database/dbtest"
	"github.com/tomoncle/datajpa/entity"
	"github.com/tomoncle/datajpa/types"
)

func TestService_Team(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	svc := datajpa.NewServiceWithDB[entity.Team](db)

	teamA, teamB := entity.NewTeam("teamA"), entity.NewTeam("teamB")
	require.NoError(t, svc.Save(ctx, teamA, teamB))
	assert.NotZero(t, teamA.ID)
	assert.NotZero(t, teamB.ID)

	found, ok, err := svc.Find(ctx, teamA.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "teamA", found.Name)

	teamB.Name = "teamC"
	require.NoError(t, svc.Update(ctx, teamB))
	byName, err := svc.List(ctx, types.NewQueryFilter("name = ?", "teamC"))
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, teamB.ID, byName[0].ID)

	page, err := svc.Page(ctx, types.PageOf(0, 1, types.By(types.DESC, "name")))
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalElements)
	assert.Equal(t, 2, page.TotalPages())
	require.Len(t, page.Content, 1)
	assert.Equal(t, "teamC", page.Content[0].Name)

	require.NoError(t, svc.Delete(ctx, teamA.ID))
	_, ok, err = svc.Find(ctx, teamA.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	all, err := svc.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

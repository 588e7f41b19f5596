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

package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/datajpa/database/dbtest"
	"github.com/tomoncle/datajpa/entity"
	"github.com/tomoncle/datajpa/repository"
)

func TestMemberJpaRepository_SaveAndFind(t *testing.T) {
	repo := repository.NewMemberJpaRepository(dbtest.Open(t))
	ctx := managedContext()

	member, err := repo.Save(ctx, entity.NewMember("memberA"))
	require.NoError(t, err)

	found, err := repo.Find(ctx, member.ID)
	require.NoError(t, err)
	assert.Same(t, member, found)

	missing, err := repo.Find(ctx, member.ID+100)
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, ok, err := repo.FindByID(context.Background(), member.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemberJpaRepository_BasicCRUD(t *testing.T) {
	repo := repository.NewMemberJpaRepository(dbtest.Open(t))
	ctx := context.Background()

	member1, err := repo.Save(ctx, entity.NewMember("member1"))
	require.NoError(t, err)
	member2, err := repo.Save(ctx, entity.NewMember("member2"))
	require.NoError(t, err)

	found1, ok, err := repo.FindByID(ctx, member1.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, member1.Equal(found1))

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, repo.Delete(ctx, member1))
	require.NoError(t, repo.Delete(ctx, member2))

	count, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMemberJpaRepository_FindByUsernameAndAgeGreaterThan(t *testing.T) {
	repo := repository.NewMemberJpaRepository(dbtest.Open(t))
	ctx := context.Background()

	_, err := repo.Save(ctx, entity.NewMemberWithAge("AAA", 11))
	require.NoError(t, err)
	_, err = repo.Save(ctx, entity.NewMemberWithAge("AAA", 21))
	require.NoError(t, err)

	result, err := repo.FindByUsernameAndAgeGreaterThan(ctx, "AAA", 11)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, 21, result[0].Age)
}

func TestMemberJpaRepository_Paging(t *testing.T) {
	repo := repository.NewMemberJpaRepository(dbtest.Open(t))
	ctx := context.Background()

	for _, name := range []string{"member1", "member2", "member3", "member4"} {
		_, err := repo.Save(ctx, entity.NewMemberWithAge(name, 10))
		require.NoError(t, err)
	}
	_, err := repo.Save(ctx, entity.NewMemberWithAge("member5", 20))
	require.NoError(t, err)

	page, err := repo.FindByPage(ctx, 10, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"member4", "member3", "member2"}, usernames(page))

	total, err := repo.TotalCount(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
}

func TestMemberJpaRepository_BulkAgePlus(t *testing.T) {
	repo := repository.NewMemberJpaRepository(dbtest.Open(t))
	ctx := managedContext()

	for _, age := range []int{10, 20, 30, 40} {
		_, err := repo.Save(ctx, entity.NewMemberWithAge("member", age))
		require.NoError(t, err)
	}

	n, err := repo.BulkAgePlus(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	ages := make([]int, len(all))
	for i, m := range all {
		ages[i] = m.Age
	}
	assert.Equal(t, []int{10, 21, 31, 41}, ages)
}

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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/datajpa"
	"github.com/tomoncle/datajpa/database/dbtest"
	"github.com/tomoncle/datajpa/entity"
	"github.com/tomoncle/datajpa/persistence"
	"github.com/tomoncle/datajpa/repository"
	"github.com/tomoncle/datajpa/types"
)

func TestMemberService_JoinAndFind(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	svc := datajpa.NewMemberService(db)

	id, err := svc.Join(ctx, entity.NewMemberWithAge("memberA", 10))
	require.NoError(t, err)
	assert.NotZero(t, id)

	member, err := svc.FindMember(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "memberA", member.Username)
	assert.Equal(t, 10, member.Age)

	_, err = svc.FindMember(ctx, id+100)
	assert.ErrorIs(t, err, datajpa.ErrMemberNotFound)
}

func TestMemberService_Members(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	svc := datajpa.NewMemberService(db)
	teams := datajpa.NewTeamService(db)

	teamA, err := teams.Create(ctx, "teamA")
	require.NoError(t, err)
	_, err = svc.Join(ctx, entity.NewMemberWithTeam("member1", 10, teamA))
	require.NoError(t, err)
	_, err = svc.Join(ctx, entity.NewMemberWithAge("member2", 20))
	require.NoError(t, err)

	page, err := svc.Members(ctx, types.PageOf(0, 10, types.By(types.ASC, "id")))
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalElements)
	require.Len(t, page.Content, 2)
	assert.Equal(t, "member1", page.Content[0].Username)
	assert.Equal(t, "teamA", page.Content[0].TeamName)
	assert.Equal(t, "member2", page.Content[1].Username)
	assert.Empty(t, page.Content[1].TeamName)

	byAge, err := svc.MembersByAge(ctx, 20, types.PageOf(0, 10, types.Unsorted()))
	require.NoError(t, err)
	require.Len(t, byAge.Content, 1)
	assert.Equal(t, "member2", byAge.Content[0].Username)
}

func TestMemberService_ChangeTeam(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	svc := datajpa.NewMemberService(db)
	teams := datajpa.NewTeamService(db)

	teamA, err := teams.Create(ctx, "teamA")
	require.NoError(t, err)
	teamB, err := teams.Create(ctx, "teamB")
	require.NoError(t, err)
	id, err := svc.Join(ctx, entity.NewMemberWithTeam("member1", 10, teamA))
	require.NoError(t, err)

	require.NoError(t, svc.ChangeTeam(ctx, id, teamB.ID))
	member, err := svc.FindMember(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, member.TeamID)
	assert.Equal(t, teamB.ID, *member.TeamID)

	withMembers, err := teams.WithMembers(ctx, teamB.ID)
	require.NoError(t, err)
	require.Len(t, withMembers.Members, 1)
	assert.Equal(t, "member1", withMembers.Members[0].Username)

	assert.ErrorIs(t, svc.ChangeTeam(ctx, id, teamB.ID+100), datajpa.ErrTeamNotFound)
	assert.ErrorIs(t, svc.ChangeTeam(ctx, id+100, teamA.ID), datajpa.ErrMemberNotFound)
}

func TestMemberService_BulkAgePlus(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	svc := datajpa.NewMemberService(db)

	for _, age := range []int{10, 19, 20, 21, 40} {
		_, err := svc.Join(ctx, entity.NewMemberWithAge("member", age))
		require.NoError(t, err)
	}
	n, err := svc.BulkAgePlus(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestTeamService(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	teams := datajpa.NewTeamService(db)

	team, err := teams.Create(ctx, "teamA")
	require.NoError(t, err)

	got, err := teams.Get(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, "teamA", got.Name)

	_, err = teams.Get(ctx, team.ID+100)
	assert.ErrorIs(t, err, datajpa.ErrTeamNotFound)
	_, err = teams.WithMembers(ctx, team.ID+100)
	assert.ErrorIs(t, err, datajpa.ErrTeamNotFound)

	count, err := teams.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRunInTx_RollsBack(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := datajpa.RunInTx(ctx, db, func(ctx context.Context, uow *datajpa.UnitOfWork) error {
		team := entity.NewTeam("teamA")
		if err := uow.Teams.Save(ctx, team); err != nil {
			return err
		}
		if err := uow.Members.Save(ctx, entity.NewMemberWithTeam("member1", 10, team)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	count, err := repository.NewMemberRepository(db).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	teamCount, err := repository.NewTeamRepository(db).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, teamCount)
}

func TestRunInTx_CacheSize(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	saveTwo := func(ctx context.Context, uow *datajpa.UnitOfWork) (*entity.Team, error) {
		first := entity.NewTeam("teamA")
		if err := uow.Teams.Save(ctx, first); err != nil {
			return nil, err
		}
		return first, uow.Teams.Save(ctx, entity.NewTeam("teamB"))
	}

	err := datajpa.RunInTx(ctx, db, func(ctx context.Context, uow *datajpa.UnitOfWork) error {
		first, err := saveTwo(ctx, uow)
		require.NoError(t, err)
		assert.Equal(t, 1, persistence.FromContext(ctx).Len())

		loaded, found, err := uow.Teams.FindByID(ctx, first.ID)
		require.NoError(t, err)
		require.True(t, found)
		assert.NotSame(t, first, loaded)
		assert.Equal(t, first.Name, loaded.Name)
		return errors.New("rollback")
	}, datajpa.WithCacheSize(1))
	require.Error(t, err)

	err = datajpa.RunInTx(ctx, db, func(ctx context.Context, uow *datajpa.UnitOfWork) error {
		first, err := saveTwo(ctx, uow)
		require.NoError(t, err)
		assert.Equal(t, 2, persistence.FromContext(ctx).Len())

		loaded, found, err := uow.Teams.FindByID(ctx, first.ID)
		require.NoError(t, err)
		require.True(t, found)
		assert.Same(t, first, loaded)
		return nil
	})
	require.NoError(t, err)
}

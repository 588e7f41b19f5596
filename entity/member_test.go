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

package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tomoncle/datajpa/database"
)

func TestMember_ChangeTeam(t *testing.T) {
	teamA := &Team{ID: 1, Name: "teamA"}
	teamB := &Team{ID: 2, Name: "teamB"}

	m := NewMemberWithTeam("member1", 10, teamA)
	assert.Same(t, teamA, m.Team)
	assert.Equal(t, int64(1), *m.TeamID)
	assert.Equal(t, []*Member{m}, teamA.Members)

	m.ChangeTeam(teamA)
	assert.Len(t, teamA.Members, 1)

	m.ChangeTeam(teamB)
	assert.Empty(t, teamA.Members)
	assert.Equal(t, []*Member{m}, teamB.Members)
	assert.Equal(t, int64(2), *m.TeamID)

	m.ChangeTeam(nil)
	assert.Nil(t, m.Team)
	assert.Nil(t, m.TeamID)
	assert.Empty(t, teamB.Members)
}

func TestMember_Equal(t *testing.T) {
	a := &Member{ID: 1, Username: "a"}
	b := &Member{ID: 1, Username: "b"}
	c := &Member{ID: 2}
	unsaved := NewMember("x")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, unsaved.Equal(NewMember("x")))
	assert.True(t, unsaved.Equal(unsaved))
	assert.False(t, a.Equal(nil))
}

func TestMember_String(t *testing.T) {
	m := NewMemberWithTeam("member1", 10, &Team{ID: 1, Name: "teamA"})
	m.ID = 3
	assert.Equal(t, "Member{id=3, username='member1', age=10}", m.String())
	assert.Equal(t, "Team{id=1, name='teamA'}", m.Team.String())
}

func TestMemberDto(t *testing.T) {
	m := NewMemberWithTeam("member1", 10, &Team{ID: 1, Name: "teamA"})
	m.ID = 3
	assert.Equal(t, &MemberDto{ID: 3, Username: "member1", TeamName: "teamA"}, NewMemberDto(m))
	assert.Empty(t, NewMemberDto(NewMember("solo")).TeamName)
}

func TestModelsRegistered(t *testing.T) {
	instances := database.RegisteredModelInstances()
	var teamAt, memberAt = -1, -1
	for i, inst := range instances {
		switch inst.(type) {
		case *Team:
			teamAt = i
		case *Member:
			memberAt = i
		}
	}
	assert.NotEqual(t, -1, teamAt)
	assert.Greater(t, memberAt, teamAt)
}

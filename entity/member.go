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
	"context"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
)

// ErrTransientTeam is returned when a member references a team that has not
// been saved yet.
var ErrTransientTeam = errors.New("member references an unsaved team")

// Member is a person that optionally belongs to a Team.
type Member struct {
	bun.BaseModel `bun:"table:member,alias:m"`

	ID       int64  `bun:"id,pk,autoincrement" json:"id"`
	Username string `bun:"username,notnull" json:"username"`
	Age      int    `bun:"age,notnull" json:"age"`
	TeamID   *int64 `bun:"team_id" json:"team_id,omitempty"`
	Team     *Team  `bun:"rel:belongs-to,join:team_id=id" json:"team,omitempty"`
}

var _ bun.BeforeAppendModelHook = (*Member)(nil)

// NewMember returns an unsaved member with age 0 and no team.
func NewMember(username string) *Member {
	return &Member{Username: username}
}

// NewMemberWithAge returns an unsaved member without a team.
func NewMemberWithAge(username string, age int) *Member {
	return &Member{Username: username, Age: age}
}

// NewMemberWithTeam returns an unsaved member joined to team when team is
// not nil.
func NewMemberWithTeam(username string, age int, team *Team) *Member {
	m := NewMemberWithAge(username, age)
	if team != nil {
		m.ChangeTeam(team)
	}
	return m
}

// PrimaryKey returns the generated id, 0 while unsaved.
func (m *Member) PrimaryKey() any {
	return m.ID
}

// IsNew reports whether the member has not been saved yet.
func (m *Member) IsNew() bool {
	return m.ID == 0
}

// ChangeTeam moves the member to team and keeps team.Members in sync.
func (m *Member) ChangeTeam(team *Team) {
	if m.Team != nil && m.Team != team {
		m.Team.removeMember(m)
	}
	m.Team = team
	if team == nil {
		m.TeamID = nil
		return
	}
	if team.ID != 0 {
		id := team.ID
		m.TeamID = &id
	}
	team.addMember(m)
}

// Equal reports whether both members are the same saved row.
func (m *Member) Equal(other *Member) bool {
	if m == nil || other == nil {
		return m == other
	}
	if m == other {
		return true
	}
	return m.ID != 0 && m.ID == other.ID
}

func (m *Member) String() string {
	return fmt.Sprintf("Member{id=%d, username='%s', age=%d}", m.ID, m.Username, m.Age)
}

// BeforeAppendModel copies the team id into team_id before writes.
func (m *Member) BeforeAppendModel(_ context.Context, query bun.Query) error {
	if m == nil {
		return nil
	}
	switch query.(type) {
	case *bun.InsertQuery, *bun.UpdateQuery:
		if m.Team == nil {
			return nil
		}
		if m.Team.ID == 0 {
			return fmt.Errorf("%w: %s", ErrTransientTeam, m.Team.Name)
		}
		id := m.Team.ID
		m.TeamID = &id
	}
	return nil
}

// MemberDto is the member projection with the name of its team.
type MemberDto struct {
	ID       int64  `bun:"id" json:"id"`
	Username string `bun:"username" json:"username"`
	TeamName string `bun:"team_name" json:"team_name"`
}

// NewMemberDto projects m; TeamName is empty when m has no team.
func NewMemberDto(m *Member) *MemberDto {
	dto := &MemberDto{ID: m.ID, Username: m.Username}
	if m.Team != nil {
		dto.TeamName = m.Team.Name
	}
	return dto
}

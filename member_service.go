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

package datajpa

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tomoncle/datajpa/database"
	"github.com/tomoncle/datajpa/entity"
	"github.com/tomoncle/datajpa/persistence"
	"github.com/tomoncle/datajpa/repository"
	"github.com/tomoncle/datajpa/types"
	"github.com/uptrace/bun"
)

var (
	// ErrMemberNotFound is returned when a member lookup finds nothing.
	ErrMemberNotFound = errors.New("no such member")

	// ErrTeamNotFound is returned when a team lookup finds nothing.
	ErrTeamNotFound = errors.New("no such team")
)

// UnitOfWork gives transactional work access to repositories bound to the
// transaction.
type UnitOfWork struct {
	Members repository.MemberRepository
	Teams   repository.TeamRepository
}

type txOptions struct {
	cacheSize int
	sqlOpts   *sql.TxOptions
}

// TxOption configures RunInTx.
type TxOption func(*txOptions)

// WithCacheSize bounds the persistence context of the transaction to n
// entities. Zero or less uses persistence.DefaultSize.
func WithCacheSize(n int) TxOption {
	return func(o *txOptions) { o.cacheSize = n }
}

// WithTxOptions sets the isolation level and read-only flag of the transaction.
func WithTxOptions(opts *sql.TxOptions) TxOption {
	return func(o *txOptions) { o.sqlOpts = opts }
}

// RunInTx runs fn in a transaction on db with a fresh persistence context.
// The transaction is rolled back when fn returns an error.
func RunInTx(ctx context.Context, db *bun.DB, fn func(ctx context.Context, uow *UnitOfWork) error, opts ...TxOption) error {
	var o txOptions
	for _, opt := range opts {
		opt(&o)
	}
	return db.RunInTx(ctx, o.sqlOpts, func(ctx context.Context, tx bun.Tx) error {
		ctx = persistence.WithContext(ctx, persistence.New(o.cacheSize))
		return fn(ctx, &UnitOfWork{
			Members: repository.NewMemberRepository(tx),
			Teams:   repository.NewTeamRepository(tx),
		})
	})
}

// MemberService implements the member use cases on top of the repositories.
type MemberService struct {
	db      *bun.DB
	members repository.MemberRepository
	teams   repository.TeamRepository
	logger  database.Logger
}

func NewMemberService(db *bun.DB) *MemberService {
	return &MemberService{
		db:      db,
		members: repository.NewMemberRepository(db),
		teams:   repository.NewTeamRepository(db),
		logger:  database.GetLogger(),
	}
}

// Join saves a new member and returns its id.
func (s *MemberService) Join(ctx context.Context, member *entity.Member) (int64, error) {
	err := RunInTx(ctx, s.db, func(ctx context.Context, uow *UnitOfWork) error {
		return uow.Members.Save(ctx, member)
	})
	if err != nil {
		return 0, fmt.Errorf("join member %s: %w", member.Username, err)
	}
	s.logger.Debug("Member joined", "id", member.ID, "username", member.Username)
	return member.ID, nil
}

// FindMember returns ErrMemberNotFound when id does not exist.
func (s *MemberService) FindMember(ctx context.Context, id int64) (*entity.Member, error) {
	member, found, err := s.members.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: id=%d", ErrMemberNotFound, id)
	}
	return member, nil
}

// Members returns a page of member projections. Members without a team have
// an empty team name.
func (s *MemberService) Members(ctx context.Context, page *types.PageRequest) (*types.Page[entity.MemberDto], error) {
	result, err := s.members.Page(ctx, page)
	if err != nil {
		return nil, err
	}
	teams := make(map[int64]*entity.Team)
	for _, m := range result.Content {
		if m.Team != nil || m.TeamID == nil {
			continue
		}
		team, ok := teams[*m.TeamID]
		if !ok {
			team, _, err = s.teams.FindByID(ctx, *m.TeamID)
			if err != nil {
				return nil, err
			}
			teams[*m.TeamID] = team
		}
		m.Team = team
	}
	return types.MapPage(result, entity.NewMemberDto), nil
}

// MembersByAge pages over the members of the given age.
func (s *MemberService) MembersByAge(ctx context.Context, age int, page *types.PageRequest) (*types.Page[entity.Member], error) {
	return s.members.FindByAge(ctx, age, page)
}

// ChangeTeam moves a member to another team in one transaction.
func (s *MemberService) ChangeTeam(ctx context.Context, memberID, teamID int64) error {
	return RunInTx(ctx, s.db, func(ctx context.Context, uow *UnitOfWork) error {
		member, found, err := uow.Members.FindByID(ctx, memberID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%w: id=%d", ErrMemberNotFound, memberID)
		}
		team, found, err := uow.Teams.FindByID(ctx, teamID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%w: id=%d", ErrTeamNotFound, teamID)
		}
		member.ChangeTeam(team)
		return uow.Members.Update(ctx, member)
	})
}

// BulkAgePlus increments the age of members aged age or more.
func (s *MemberService) BulkAgePlus(ctx context.Context, age int) (int, error) {
	n, err := s.members.BulkAgePlus(ctx, age)
	if err != nil {
		return 0, err
	}
	s.logger.Info("Member ages incremented", "min_age", age, "rows", n)
	return n, nil
}

// TeamService implements the team use cases on the generic service.
type TeamService struct {
	Service[entity.Team]
	teams repository.TeamRepository
}

func NewTeamService(db *bun.DB) *TeamService {
	return &TeamService{
		Service: NewServiceWithDB[entity.Team](db),
		teams:   repository.NewTeamRepository(db),
	}
}

// Create saves a new team called name.
func (s *TeamService) Create(ctx context.Context, name string) (*entity.Team, error) {
	team := entity.NewTeam(name)
	if err := s.teams.Save(ctx, team); err != nil {
		return nil, fmt.Errorf("create team %s: %w", name, err)
	}
	return team, nil
}

// Get returns ErrTeamNotFound when id does not exist.
func (s *TeamService) Get(ctx context.Context, id int64) (*entity.Team, error) {
	team, found, err := s.teams.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: id=%d", ErrTeamNotFound, id)
	}
	return team, nil
}

// WithMembers returns the team and its members.
func (s *TeamService) WithMembers(ctx context.Context, id int64) (*entity.Team, error) {
	team, found, err := s.teams.FindWithMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: id=%d", ErrTeamNotFound, id)
	}
	return team, nil
}

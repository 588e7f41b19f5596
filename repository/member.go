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

package repository

import (
	"context"

	"github.com/tomoncle/datajpa/entity"
	"github.com/tomoncle/datajpa/types"
	"github.com/uptrace/bun"
)

// MemberRepository adds the member queries to the generic repository.
type MemberRepository interface {
	Repository[entity.Member]

	// WithTx returns a MemberRepository running its queries on db.
	WithTx(db bun.IDB) MemberRepository

	// FindByUsernameAndAgeGreaterThan matches username exactly and age > n.
	FindByUsernameAndAgeGreaterThan(ctx context.Context, username string, age int) ([]*entity.Member, error)

	// FindTopBy returns the first n members by id.
	FindTopBy(ctx context.Context, n int) ([]*entity.Member, error)

	FindUser(ctx context.Context, username string, age int) ([]*entity.Member, error)

	FindUsernameList(ctx context.Context) ([]string, error)

	// FindMemberDto projects members that have a team.
	FindMemberDto(ctx context.Context) ([]*entity.MemberDto, error)

	FindByNames(ctx context.Context, names []string) ([]*entity.Member, error)

	FindListByUsername(ctx context.Context, username string) ([]*entity.Member, error)

	// FindMemberByUsername returns nil when nobody matches and
	// ErrNonUniqueResult when several members do.
	FindMemberByUsername(ctx context.Context, username string) (*entity.Member, error)

	FindOptionalByUsername(ctx context.Context, username string) (*entity.Member, bool, error)

	FindByAge(ctx context.Context, age int, page *types.PageRequest) (*types.Page[entity.Member], error)

	// BulkAgePlus increments the age of every member aged n or more and
	// returns the number of updated rows.
	BulkAgePlus(ctx context.Context, age int) (int, error)

	FindMemberFetchJoin(ctx context.Context) ([]*entity.Member, error)

	FindEntityGraphByUsername(ctx context.Context, username string) ([]*entity.Member, error)
}

type memberRepositoryImpl struct {
	*baseRepositoryImpl[entity.Member]
}

func NewMemberRepository(db bun.IDB) MemberRepository {
	return &memberRepositoryImpl{newBaseRepository[entity.Member](db)}
}

func (r *memberRepositoryImpl) WithTx(db bun.IDB) MemberRepository {
	return &memberRepositoryImpl{r.withDB(db)}
}

func (r *memberRepositoryImpl) find(ctx context.Context, apply func(q *bun.SelectQuery) *bun.SelectQuery) ([]*entity.Member, error) {
	var members []*entity.Member
	if err := apply(r.db.NewSelect().Model(&members)).Scan(ctx); err != nil {
		return nil, err
	}
	return r.manageAll(ctx, members), nil
}

// findWithTeam is find for queries joining the team. Managed members that
// were loaded without their team receive it.
func (r *memberRepositoryImpl) findWithTeam(ctx context.Context, apply func(q *bun.SelectQuery) *bun.SelectQuery) ([]*entity.Member, error) {
	var loaded []*entity.Member
	if err := apply(r.db.NewSelect().Model(&loaded).Relation("Team")).Scan(ctx); err != nil {
		return nil, err
	}
	members := make([]*entity.Member, len(loaded))
	copy(members, loaded)
	r.manageAll(ctx, members)
	for i, m := range members {
		if m != loaded[i] && m.Team == nil {
			m.Team = loaded[i].Team
		}
	}
	return members, nil
}

func (r *memberRepositoryImpl) FindByUsernameAndAgeGreaterThan(ctx context.Context, username string, age int) ([]*entity.Member, error) {
	return r.find(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.
			Where("m.username = ?", username).
			Where("m.age > ?", age).
			Order("m.id ASC")
	})
}

func (r *memberRepositoryImpl) FindTopBy(ctx context.Context, n int) ([]*entity.Member, error) {
	if n <= 0 {
		return []*entity.Member{}, nil
	}
	return r.find(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Order("m.id ASC").Limit(n)
	})
}

func (r *memberRepositoryImpl) FindUser(ctx context.Context, username string, age int) ([]*entity.Member, error) {
	return r.find(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.
			Where("m.username = ? AND m.age = ?", username, age).
			Order("m.id ASC")
	})
}

func (r *memberRepositoryImpl) FindUsernameList(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.NewSelect().
		Model((*entity.Member)(nil)).
		Column("username").
		Order("m.id ASC").
		Scan(ctx, &names)
	return names, err
}

func (r *memberRepositoryImpl) FindMemberDto(ctx context.Context) ([]*entity.MemberDto, error) {
	var dtos []*entity.MemberDto
	err := r.db.NewSelect().
		Model((*entity.Member)(nil)).
		ColumnExpr("m.id AS id").
		ColumnExpr("m.username AS username").
		ColumnExpr("t.name AS team_name").
		Join("JOIN team AS t ON t.id = m.team_id").
		Order("m.id ASC").
		Scan(ctx, &dtos)
	return dtos, err
}

func (r *memberRepositoryImpl) FindByNames(ctx context.Context, names []string) ([]*entity.Member, error) {
	if len(names) == 0 {
		return []*entity.Member{}, nil
	}
	return r.find(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.
			Where("m.username IN (?)", bun.In(names)).
			Order("m.id ASC")
	})
}

func (r *memberRepositoryImpl) FindListByUsername(ctx context.Context, username string) ([]*entity.Member, error) {
	return r.find(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.
			Where("m.username = ?", username).
			Order("m.id ASC")
	})
}

func (r *memberRepositoryImpl) FindMemberByUsername(ctx context.Context, username string) (*entity.Member, error) {
	members, err := r.find(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.
			Where("m.username = ?", username).
			Order("m.id ASC").
			Limit(2)
	})
	if err != nil {
		return nil, err
	}
	switch len(members) {
	case 0:
		return nil, nil
	case 1:
		return members[0], nil
	default:
		return nil, ErrNonUniqueResult
	}
}

func (r *memberRepositoryImpl) FindOptionalByUsername(ctx context.Context, username string) (*entity.Member, bool, error) {
	m, err := r.FindMemberByUsername(ctx, username)
	if err != nil {
		return nil, false, err
	}
	return m, m != nil, nil
}

func (r *memberRepositoryImpl) FindByAge(ctx context.Context, age int, page *types.PageRequest) (*types.Page[entity.Member], error) {
	return r.page(ctx, r.db.NewSelect().Where("m.age = ?", age), page)
}

func (r *memberRepositoryImpl) BulkAgePlus(ctx context.Context, age int) (int, error) {
	res, err := r.db.NewUpdate().
		Model((*entity.Member)(nil)).
		Set("age = age + 1").
		Where("age >= ?", age).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	// Managed members still carry the old age.
	r.detachTable(ctx)
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *memberRepositoryImpl) FindMemberFetchJoin(ctx context.Context) ([]*entity.Member, error) {
	return r.findWithTeam(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Order("m.id ASC")
	})
}

func (r *memberRepositoryImpl) FindEntityGraphByUsername(ctx context.Context, username string) ([]*entity.Member, error) {
	return r.findWithTeam(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.
			Where("m.username = ?", username).
			Order("m.id ASC")
	})
}

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
	"github.com/tomoncle/datajpa/persistence"
	"github.com/uptrace/bun"
)

const teamTable = "team"

// TeamRepository is the generic repository for teams.
type TeamRepository interface {
	Repository[entity.Team]

	WithTx(db bun.IDB) TeamRepository

	FindByName(ctx context.Context, name string) ([]*entity.Team, error)

	// FindWithMembers loads the team together with its members.
	FindWithMembers(ctx context.Context, id int64) (*entity.Team, bool, error)
}

type teamRepositoryImpl struct {
	*baseRepositoryImpl[entity.Team]
}

func NewTeamRepository(db bun.IDB) TeamRepository {
	return &teamRepositoryImpl{newBaseRepository[entity.Team](db)}
}

func (r *teamRepositoryImpl) WithTx(db bun.IDB) TeamRepository {
	return &teamRepositoryImpl{r.withDB(db)}
}

func (r *teamRepositoryImpl) FindByName(ctx context.Context, name string) ([]*entity.Team, error) {
	var teams []*entity.Team
	err := r.db.NewSelect().
		Model(&teams).
		Where("t.name = ?", name).
		Order("t.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return r.manageAll(ctx, teams), nil
}

func (r *teamRepositoryImpl) FindWithMembers(ctx context.Context, id int64) (*entity.Team, bool, error) {
	var teams []*entity.Team
	err := r.db.NewSelect().
		Model(&teams).
		Relation("Members", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("m.id ASC")
		}).
		Where("t.id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, false, err
	}
	if len(teams) == 0 {
		return nil, false, nil
	}
	return teams[0], true, nil
}

// TeamJpaRepository implements the team store with hand-written SQL.
type TeamJpaRepository struct {
	db bun.IDB
}

func NewTeamJpaRepository(db bun.IDB) *TeamJpaRepository {
	return &TeamJpaRepository{db: db}
}

func (r *TeamJpaRepository) Save(ctx context.Context, team *entity.Team) (*entity.Team, error) {
	if _, err := r.db.NewInsert().Model(team).Exec(ctx); err != nil {
		return nil, translateError(err)
	}
	if pc := persistence.FromContext(ctx); pc != nil {
		pc.Attach(teamTable, team.ID, team)
	}
	return team, nil
}

func (r *TeamJpaRepository) Delete(ctx context.Context, team *entity.Team) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM team WHERE id = ?", team.ID); err != nil {
		return translateError(err)
	}
	if pc := persistence.FromContext(ctx); pc != nil {
		pc.Detach(teamTable, team.ID)
	}
	return nil
}

func (r *TeamJpaRepository) FindAll(ctx context.Context) ([]*entity.Team, error) {
	var teams []*entity.Team
	err := r.db.NewRaw("SELECT t.* FROM team AS t ORDER BY t.id ASC").Scan(ctx, &teams)
	if err != nil {
		return nil, err
	}
	pc := persistence.FromContext(ctx)
	for i, t := range teams {
		teams[i] = persistence.Manage(pc, teamTable, t)
	}
	return teams, nil
}

// FindByID reports found=false when no team has id.
func (r *TeamJpaRepository) FindByID(ctx context.Context, id int64) (*entity.Team, bool, error) {
	pc := persistence.FromContext(ctx)
	if t, ok := persistence.Lookup[entity.Team](pc, teamTable, id); ok {
		return t, true, nil
	}
	var teams []*entity.Team
	err := r.db.NewRaw("SELECT t.* FROM team AS t WHERE t.id = ?", id).Scan(ctx, &teams)
	if err != nil {
		return nil, false, err
	}
	if len(teams) == 0 {
		return nil, false, nil
	}
	return persistence.Manage(pc, teamTable, teams[0]), true, nil
}

func (r *TeamJpaRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.NewRaw("SELECT count(*) FROM team").Scan(ctx, &count)
	return count, err
}

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

const memberTable = "member"

// MemberJpaRepository implements the member store with hand-written SQL
// instead of the generic repository.
type MemberJpaRepository struct {
	db bun.IDB
}

func NewMemberJpaRepository(db bun.IDB) *MemberJpaRepository {
	return &MemberJpaRepository{db: db}
}

// WithTx returns a copy running its statements on db.
func (r *MemberJpaRepository) WithTx(db bun.IDB) *MemberJpaRepository {
	return &MemberJpaRepository{db: db}
}

// Save persists a new member and makes it the managed instance.
func (r *MemberJpaRepository) Save(ctx context.Context, member *entity.Member) (*entity.Member, error) {
	if _, err := r.db.NewInsert().Model(member).Exec(ctx); err != nil {
		return nil, translateError(err)
	}
	if pc := persistence.FromContext(ctx); pc != nil {
		pc.Attach(memberTable, member.ID, member)
	}
	return member, nil
}

func (r *MemberJpaRepository) Delete(ctx context.Context, member *entity.Member) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM member WHERE id = ?", member.ID); err != nil {
		return translateError(err)
	}
	if pc := persistence.FromContext(ctx); pc != nil {
		pc.Detach(memberTable, member.ID)
	}
	return nil
}

func (r *MemberJpaRepository) FindAll(ctx context.Context) ([]*entity.Member, error) {
	var members []*entity.Member
	err := r.db.NewRaw("SELECT m.* FROM member AS m ORDER BY m.id ASC").Scan(ctx, &members)
	if err != nil {
		return nil, err
	}
	return r.manageAll(ctx, members), nil
}

// FindByID reports found=false when no member has id.
func (r *MemberJpaRepository) FindByID(ctx context.Context, id int64) (*entity.Member, bool, error) {
	m, err := r.Find(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return m, m != nil, nil
}

// Find returns the member with id or nil.
func (r *MemberJpaRepository) Find(ctx context.Context, id int64) (*entity.Member, error) {
	pc := persistence.FromContext(ctx)
	if m, ok := persistence.Lookup[entity.Member](pc, memberTable, id); ok {
		return m, nil
	}
	var members []*entity.Member
	err := r.db.NewRaw("SELECT m.* FROM member AS m WHERE m.id = ?", id).Scan(ctx, &members)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}
	return persistence.Manage(pc, memberTable, members[0]), nil
}

func (r *MemberJpaRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.NewRaw("SELECT count(*) FROM member").Scan(ctx, &count)
	return count, err
}

func (r *MemberJpaRepository) FindByUsernameAndAgeGreaterThan(ctx context.Context, username string, age int) ([]*entity.Member, error) {
	var members []*entity.Member
	err := r.db.NewRaw(
		"SELECT m.* FROM member AS m WHERE m.username = ? AND m.age > ? ORDER BY m.id ASC",
		username, age,
	).Scan(ctx, &members)
	if err != nil {
		return nil, err
	}
	return r.manageAll(ctx, members), nil
}

// FindByPage returns members of the given age ordered by username
// descending, skipping offset rows.
func (r *MemberJpaRepository) FindByPage(ctx context.Context, age, offset, limit int) ([]*entity.Member, error) {
	var members []*entity.Member
	err := r.db.NewRaw(
		"SELECT m.* FROM member AS m WHERE m.age = ? ORDER BY m.username DESC LIMIT ? OFFSET ?",
		age, limit, offset,
	).Scan(ctx, &members)
	if err != nil {
		return nil, err
	}
	return r.manageAll(ctx, members), nil
}

// TotalCount counts the members FindByPage pages over.
func (r *MemberJpaRepository) TotalCount(ctx context.Context, age int) (int, error) {
	var count int
	err := r.db.NewRaw("SELECT count(*) FROM member WHERE age = ?", age).Scan(ctx, &count)
	return count, err
}

// BulkAgePlus increments the age of every member aged n or more.
func (r *MemberJpaRepository) BulkAgePlus(ctx context.Context, age int) (int, error) {
	res, err := r.db.ExecContext(ctx, "UPDATE member SET age = age + 1 WHERE age >= ?", age)
	if err != nil {
		return 0, err
	}
	if pc := persistence.FromContext(ctx); pc != nil {
		pc.DetachTable(memberTable)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *MemberJpaRepository) manageAll(ctx context.Context, members []*entity.Member) []*entity.Member {
	pc := persistence.FromContext(ctx)
	for i, m := range members {
		members[i] = persistence.Manage(pc, memberTable, m)
	}
	return members
}

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
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/tomoncle/datajpa/persistence"
	"github.com/tomoncle/datajpa/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"
)

type baseRepositoryImpl[T any] struct {
	db    bun.IDB
	table string
}

// NewRepository returns a generic repository backed by db, which may be a
// *bun.DB or a bun.Tx.
func NewRepository[T any](db bun.IDB) Repository[T] {
	return newBaseRepository[T](db)
}

func newBaseRepository[T any](db bun.IDB) *baseRepositoryImpl[T] {
	return &baseRepositoryImpl[T]{
		db:    db,
		table: db.NewSelect().Model((*T)(nil)).GetTableName(),
	}
}

func (r *baseRepositoryImpl[T]) withDB(db bun.IDB) *baseRepositoryImpl[T] {
	return &baseRepositoryImpl[T]{db: db, table: r.table}
}

func (r *baseRepositoryImpl[T]) DB() bun.IDB { return r.db }

func (r *baseRepositoryImpl[T]) TableName() string { return r.table }

func (r *baseRepositoryImpl[T]) Dialect() schema.Dialect { return r.db.Dialect() }

func (r *baseRepositoryImpl[T]) NewSelect() *bun.SelectQuery { return r.db.NewSelect() }

func (r *baseRepositoryImpl[T]) NewInsert() *bun.InsertQuery { return r.db.NewInsert() }

func (r *baseRepositoryImpl[T]) NewUpdate() *bun.UpdateQuery { return r.db.NewUpdate() }

func (r *baseRepositoryImpl[T]) NewDelete() *bun.DeleteQuery { return r.db.NewDelete() }

func (r *baseRepositoryImpl[T]) ValsToSlice(entity ...*T) []*T {
	entities := make([]*T, len(entity))
	copy(entities, entity)
	return entities
}

func (r *baseRepositoryImpl[T]) Save(ctx context.Context, entity *T) error {
	if isNew(entity) {
		if _, err := r.db.NewInsert().Model(entity).Exec(ctx); err != nil {
			return translateError(err)
		}
		r.attach(ctx, entity)
		return nil
	}
	return r.Update(ctx, entity)
}

func (r *baseRepositoryImpl[T]) SaveAll(ctx context.Context, entities ...*T) error {
	for _, entity := range entities {
		if err := r.Save(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}

func (r *baseRepositoryImpl[T]) FindByID(ctx context.Context, id any) (*T, bool, error) {
	if cached, ok := persistence.Lookup[T](persistence.FromContext(ctx), r.table, id); ok {
		return cached, true, nil
	}
	entity := new(T)
	err := r.db.NewSelect().Model(entity).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return r.manage(ctx, entity), true, nil
}

func (r *baseRepositoryImpl[T]) GetOne(ctx context.Context, id any) (*T, error) {
	entity, found, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s id=%v", ErrNotFound, r.table, id)
	}
	return entity, nil
}

func (r *baseRepositoryImpl[T]) ExistsByID(ctx context.Context, id any) (bool, error) {
	return r.db.NewSelect().Model((*T)(nil)).Where("id = ?", id).Exists(ctx)
}

func (r *baseRepositoryImpl[T]) FindAll(ctx context.Context) ([]*T, error) {
	var entities []*T
	err := r.db.NewSelect().Model(&entities).Order("id ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return r.manageAll(ctx, entities), nil
}

func (r *baseRepositoryImpl[T]) Count(ctx context.Context) (int, error) {
	return r.db.NewSelect().Model((*T)(nil)).Count(ctx)
}

func (r *baseRepositoryImpl[T]) List(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	var entities []*T
	query := r.db.NewSelect().Model(&entities)
	if filter != nil {
		query = query.Where(filter.Schema, filter.Args...)
	}
	err := query.Scan(ctx)
	if err != nil {
		return nil, err
	}
	return r.manageAll(ctx, entities), nil
}

func (r *baseRepositoryImpl[T]) Query(ctx context.Context, query string, args ...interface{}) ([]*T, error) {
	var entities []*T
	err := r.db.NewSelect().Model(&entities).Where(query, args...).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return r.manageAll(ctx, entities), nil
}

func (r *baseRepositoryImpl[T]) Page(ctx context.Context, pageRequest *types.PageRequest) (*types.Page[T], error) {
	return r.page(ctx, r.db.NewSelect(), pageRequest)
}

// page counts the rows matched by query and loads the requested slice.
func (r *baseRepositoryImpl[T]) page(ctx context.Context, query *bun.SelectQuery, pageRequest *types.PageRequest) (*types.Page[T], error) {
	var entities []*T
	query = query.Model(&entities)
	if pageRequest.GetFilter() != nil {
		query = query.Where(pageRequest.GetFilter().Schema, pageRequest.GetFilter().Args...)
	}
	total, err := query.Count(ctx)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return types.NewPage[T](nil, pageRequest, 0), nil
	}
	err = query.
		Order(pageRequest.GetOrders()...).
		Offset(pageRequest.GetOffset()).
		Limit(pageRequest.GetPageSize()).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return types.NewPage(r.manageAll(ctx, entities), pageRequest, total), nil
}

func (r *baseRepositoryImpl[T]) Create(ctx context.Context, entity ...*T) error {
	if len(entity) == 0 {
		return nil
	}
	entities := r.ValsToSlice(entity...)
	if _, err := r.db.NewInsert().Model(&entities).Exec(ctx); err != nil {
		return translateError(err)
	}
	r.manageAll(ctx, entities)
	return nil
}

func (r *baseRepositoryImpl[T]) Upsert(ctx context.Context, fields []string, duplicateKeys []string, entity ...*T) error {
	return r.multipleUpsert(ctx, r.db, fields, duplicateKeys, entity...)
}

// Update writes every column of entity. It returns ErrNotFound, and leaves
// the persistence context untouched, when no row has the entity's id.
func (r *baseRepositoryImpl[T]) Update(ctx context.Context, entity *T) error {
	res, err := r.db.NewUpdate().Model(entity).WherePK().Exec(ctx)
	if err != nil {
		return translateError(err)
	}
	if err := r.checkUpdated(ctx, res, entity); err != nil {
		return err
	}
	r.attach(ctx, entity)
	return nil
}

// checkUpdated tells a missing row apart from an unchanged one; MySQL
// reports both as zero affected rows.
func (r *baseRepositoryImpl[T]) checkUpdated(ctx context.Context, res sql.Result, entity *T) error {
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return nil
	}
	exists, err := r.db.NewSelect().Model(entity).WherePK().Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s id=%v", ErrNotFound, r.table, primaryKey(entity))
	}
	return nil
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, entity *T) error {
	if _, err := r.db.NewDelete().Model(entity).WherePK().Exec(ctx); err != nil {
		return translateError(err)
	}
	r.detach(ctx, entity)
	return nil
}

func (r *baseRepositoryImpl[T]) DeleteByID(ctx context.Context, id any) error {
	if _, err := r.db.NewDelete().Model((*T)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
		return translateError(err)
	}
	if pc := persistence.FromContext(ctx); pc != nil {
		pc.Detach(r.table, id)
	}
	return nil
}

func (r *baseRepositoryImpl[T]) DeleteAll(ctx context.Context) (int, error) {
	res, err := r.db.NewDelete().Model((*T)(nil)).Where("1 = 1").Exec(ctx)
	if err != nil {
		return 0, translateError(err)
	}
	r.detachTable(ctx)
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *baseRepositoryImpl[T]) CreateWithTx(ctx context.Context, tx *bun.Tx, entity ...*T) error {
	return r.withDB(tx).Create(ctx, entity...)
}

func (r *baseRepositoryImpl[T]) UpsertWithTx(ctx context.Context, tx *bun.Tx, fields []string, duplicateKeys []string, entity ...*T) error {
	return r.multipleUpsert(ctx, tx, fields, duplicateKeys, entity...)
}

func (r *baseRepositoryImpl[T]) UpdateWithTx(ctx context.Context, tx *bun.Tx, entity *T) error {
	return r.withDB(tx).Update(ctx, entity)
}

func (r *baseRepositoryImpl[T]) DeleteWithTx(ctx context.Context, tx *bun.Tx, id any) error {
	return r.withDB(tx).DeleteByID(ctx, id)
}

func (r *baseRepositoryImpl[T]) multipleUpsert(ctx context.Context, db bun.IDB, fields []string, duplicateKeys []string, entity ...*T) error {
	if len(fields) == 0 {
		return fmt.Errorf("fields cannot be empty")
	}

	insertQuery := db.NewInsert()
	entities := r.ValsToSlice(entity...)

	var err error
	features := db.Dialect().Features()
	if features.Has(feature.InsertOnConflict) {
		err = r.upsertWithPostgresqlOrSQLite(ctx, insertQuery, fields, duplicateKeys, entities)
	} else if features.Has(feature.InsertOnDuplicateKey) {
		err = r.upsertWithMySQL(ctx, insertQuery, fields, entities)
	} else {
		// Fallback: Separate insert/update logic
		err = r.upsertFallback(ctx, db, entities)
	}
	if err != nil {
		return translateError(err)
	}
	// Rows may have changed underneath managed instances.
	r.detachTable(ctx)
	return nil
}

func (r *baseRepositoryImpl[T]) upsertWithMySQL(ctx context.Context, insertQuery *bun.InsertQuery, fields []string, entities []*T) error {
	var queryArgs []string
	for _, field := range fields {
		queryArgs = append(queryArgs, fmt.Sprintf("%s = VALUES(%s)", field, field))
	}
	_, err := insertQuery.
		Model(&entities).
		On("DUPLICATE KEY UPDATE " + strings.Join(queryArgs, ", ")).
		Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) upsertWithPostgresqlOrSQLite(ctx context.Context, insertQuery *bun.InsertQuery, fields []string, duplicateKeys []string, entities []*T) error {
	if len(duplicateKeys) == 0 {
		duplicateKeys = []string{"id"}
	}
	keyNames := strings.Join(duplicateKeys, ",")
	var queryArgs []string
	for _, field := range fields {
		queryArgs = append(queryArgs, fmt.Sprintf("%s = EXCLUDED.%s", field, field))
	}
	_, err := insertQuery.
		Model(&entities).
		On("CONFLICT (" + keyNames + ") DO UPDATE").
		Set(strings.Join(queryArgs, ", ")).
		Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) upsertFallback(ctx context.Context, db bun.IDB, entities []*T) error {
	for _, entity := range entities {
		_, err := db.NewInsert().Model(entity).Exec(ctx)
		if err != nil {
			_, updateErr := db.NewUpdate().Model(entity).WherePK().Exec(ctx)
			if updateErr != nil {
				return fmt.Errorf("upsert failed for entity: insert error: %v, update error: %v", err, updateErr)
			}
		}
	}
	return nil
}

func (r *baseRepositoryImpl[T]) attach(ctx context.Context, entity *T) {
	pc := persistence.FromContext(ctx)
	ident, ok := any(entity).(persistence.Identifiable)
	if pc == nil || !ok {
		return
	}
	pc.Attach(r.table, ident.PrimaryKey(), entity)
}

func (r *baseRepositoryImpl[T]) detach(ctx context.Context, entity *T) {
	pc := persistence.FromContext(ctx)
	ident, ok := any(entity).(persistence.Identifiable)
	if pc == nil || !ok {
		return
	}
	pc.Detach(r.table, ident.PrimaryKey())
}

func (r *baseRepositoryImpl[T]) detachTable(ctx context.Context) {
	if pc := persistence.FromContext(ctx); pc != nil {
		pc.DetachTable(r.table)
	}
}

func (r *baseRepositoryImpl[T]) manage(ctx context.Context, entity *T) *T {
	return persistence.Manage(persistence.FromContext(ctx), r.table, entity)
}

// manageAll swaps rows that are already managed for their managed instance.
func (r *baseRepositoryImpl[T]) manageAll(ctx context.Context, entities []*T) []*T {
	pc := persistence.FromContext(ctx)
	if pc == nil {
		return entities
	}
	for i, entity := range entities {
		entities[i] = persistence.Manage(pc, r.table, entity)
	}
	return entities
}

func primaryKey[T any](entity *T) any {
	if ident, ok := any(entity).(persistence.Identifiable); ok {
		return ident.PrimaryKey()
	}
	return nil
}

func isNew[T any](entity *T) bool {
	if n, ok := any(entity).(interface{ IsNew() bool }); ok {
		return n.IsNew()
	}
	if ident, ok := any(entity).(persistence.Identifiable); ok {
		pk := ident.PrimaryKey()
		return pk == nil || reflect.ValueOf(pk).IsZero()
	}
	return true
}

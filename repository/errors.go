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
	"errors"
	"fmt"

	"github.com/tomoncle/datajpa/database"
	"github.com/tomoncle/datajpa/entity"
)

var (
	// ErrNotFound is returned by GetOne and by updates when no row has the id.
	ErrNotFound = errors.New("entity not found")

	// ErrNonUniqueResult is returned by single-result queries that match
	// more than one row.
	ErrNonUniqueResult = errors.New("query did not return a unique result")

	ErrDuplicateKey        = errors.New("duplicate key")
	ErrForeignKeyViolation = errors.New("foreign key violation")

	// ErrTransientTeam is returned when saving a member whose team is unsaved.
	ErrTransientTeam = entity.ErrTransientTeam
)

// translateError maps constraint violations onto the sentinel errors and
// leaves other errors untouched.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	is, kind := database.IsSqlError(err)
	if !is {
		return err
	}
	switch kind {
	case database.DuplicateKeyErr:
		return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
	case database.ForeignKeyViolationErr:
		return fmt.Errorf("%w: %w", ErrForeignKeyViolation, err)
	}
	return err
}

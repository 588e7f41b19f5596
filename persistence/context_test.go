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

package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	id   int64
	name string
}

func (r *row) PrimaryKey() any { return r.id }

func TestContext(t *testing.T) {
	pc := New(0)
	a := &row{id: 1, name: "a"}
	b := &row{id: 2, name: "b"}

	pc.Attach("row", a.id, a)
	pc.Attach("row", b.id, b)
	pc.Attach("other", 1, &row{id: 1})
	assert.Equal(t, 3, pc.Len())

	got, ok := Lookup[row](pc, "row", 1)
	require.True(t, ok)
	assert.Same(t, a, got)

	// Keys of different integer types address the same row.
	got, ok = Lookup[row](pc, "row", int(2))
	require.True(t, ok)
	assert.Same(t, b, got)

	_, ok = Lookup[string](pc, "row", 1)
	assert.False(t, ok)

	pc.Detach("row", 1)
	_, ok = pc.Lookup("row", 1)
	assert.False(t, ok)

	assert.Equal(t, 1, pc.DetachTable("row"))
	assert.Equal(t, 1, pc.Len())

	pc.Clear()
	assert.Zero(t, pc.Len())
}

func TestManage(t *testing.T) {
	pc := New(0)
	first := &row{id: 7, name: "first"}
	second := &row{id: 7, name: "second"}

	assert.Same(t, first, Manage(pc, "row", first))
	assert.Same(t, first, Manage(pc, "row", second))

	assert.Same(t, second, Manage[row](nil, "row", second))

	type plain struct{}
	p := &plain{}
	assert.Same(t, p, Manage(pc, "plain", p))
	assert.Equal(t, 1, pc.Len())
}

func TestEviction(t *testing.T) {
	pc := New(2)
	for i := int64(1); i <= 3; i++ {
		pc.Attach("row", i, &row{id: i})
	}
	assert.Equal(t, 2, pc.Len())
	_, ok := pc.Lookup("row", 1)
	assert.False(t, ok)
}

func TestFromContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))

	pc := New(0)
	ctx := WithContext(context.Background(), pc)
	assert.Same(t, pc, FromContext(ctx))

	_, ok := Lookup[row](FromContext(context.Background()), "row", 1)
	assert.False(t, ok)
}

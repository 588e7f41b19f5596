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

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageRequest(t *testing.T) {
	req := PageOf(2, 3, By(DESC, "username"))
	assert.Equal(t, 2, req.GetPage())
	assert.Equal(t, 3, req.GetPageSize())
	assert.Equal(t, 6, req.GetOffset())
	assert.Equal(t, []string{"username DESC"}, req.GetOrders())

	next := req.Next()
	assert.Equal(t, 3, next.GetPage())
	assert.Equal(t, 2, req.GetPage())

	defaults := NewDefaultPageRequest(-1, 0)
	assert.Equal(t, 0, defaults.GetPage())
	assert.Equal(t, DefaultPageSize, defaults.GetPageSize())
	assert.Equal(t, 0, defaults.GetOffset())
	assert.Empty(t, defaults.GetOrders())

	filtered := defaults.WithFilter(NewQueryFilter("age = ?", 10))
	assert.Nil(t, defaults.GetFilter())
	assert.Equal(t, "age = ?", filtered.GetFilter().Schema)
	assert.Equal(t, []interface{}{10}, filtered.GetFilter().Args)
}

func TestPage(t *testing.T) {
	a, b, c := 1, 2, 3
	req := NewDefaultPageRequest(0, 3)

	t.Run("first of two pages", func(t *testing.T) {
		p := NewPage([]*int{&a, &b, &c}, req, 4)
		assert.Equal(t, 2, p.TotalPages())
		assert.Equal(t, 3, p.NumberOfElements())
		assert.True(t, p.IsFirst())
		assert.False(t, p.IsLast())
		assert.True(t, p.HasNext())
		assert.False(t, p.HasPrevious())
		assert.True(t, p.HasContent())
	})

	t.Run("last page", func(t *testing.T) {
		p := NewPage([]*int{&a}, req.Next(), 4)
		assert.Equal(t, 1, p.Number)
		assert.True(t, p.IsLast())
		assert.True(t, p.HasPrevious())
		assert.False(t, p.IsFirst())
	})

	t.Run("empty", func(t *testing.T) {
		p := NewPage[int](nil, req, 0)
		assert.NotNil(t, p.Content)
		assert.Equal(t, 0, p.TotalPages())
		assert.False(t, p.HasNext())
		assert.False(t, p.HasContent())
	})

	t.Run("map keeps metadata", func(t *testing.T) {
		p := NewPage([]*int{&a, &b}, req, 2)
		mapped := MapPage(p, func(v *int) *string {
			s := string(rune('a' + *v - 1))
			return &s
		})
		assert.Equal(t, p.Number, mapped.Number)
		assert.Equal(t, p.Size, mapped.Size)
		assert.Equal(t, p.TotalElements, mapped.TotalElements)
		assert.Equal(t, "a", *mapped.Content[0])
		assert.Equal(t, "b", *mapped.Content[1])
	})
}

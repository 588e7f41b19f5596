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
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is the number of entities a Context keeps before evicting the
// least recently used one.
const DefaultSize = 4096

// ContextKey is the key used to store the persistence context in a
// context.Context.
var ContextKey = struct{ string }{"persistence"}

// Identifiable is implemented by entities that expose their primary key.
type Identifiable interface {
	PrimaryKey() any
}

type key struct {
	table string
	id    string
}

func newKey(table string, id any) key {
	return key{table: table, id: fmt.Sprint(id)}
}

// Context is an identity map for one unit of work. Within a Context an
// entity row is represented by at most one pointer while it stays cached.
// The cache is bounded: once more than its size entities are attached, the
// least recently used one is evicted and a later load of that row returns a
// new pointer. Size the Context for the largest unit of work it serves.
type Context struct {
	entities *lru.Cache[key, any]
}

// New returns an empty Context holding up to size entities.
func New(size int) *Context {
	if size <= 0 {
		size = DefaultSize
	}
	entities, _ := lru.New[key, any](size)
	return &Context{entities: entities}
}

// Attach registers entity as the managed instance of (table, id).
func (c *Context) Attach(table string, id any, entity any) {
	c.entities.Add(newKey(table, id), entity)
}

// Lookup returns the managed instance of (table, id).
func (c *Context) Lookup(table string, id any) (any, bool) {
	return c.entities.Get(newKey(table, id))
}

// Detach forgets the managed instance of (table, id).
func (c *Context) Detach(table string, id any) {
	c.entities.Remove(newKey(table, id))
}

// DetachTable forgets every managed instance of table and returns how many
// were removed.
func (c *Context) DetachTable(table string) int {
	n := 0
	for _, k := range c.entities.Keys() {
		if k.table == table {
			c.entities.Remove(k)
			n++
		}
	}
	return n
}

// Clear forgets all managed instances.
func (c *Context) Clear() {
	c.entities.Purge()
}

// Len returns the number of managed instances.
func (c *Context) Len() int {
	return c.entities.Len()
}

// FromContext returns the persistence context from ctx, or nil.
func FromContext(ctx context.Context) *Context {
	if pc, ok := ctx.Value(ContextKey).(*Context); ok {
		return pc
	}
	return nil
}

// WithContext returns a new context carrying pc.
func WithContext(ctx context.Context, pc *Context) context.Context {
	return context.WithValue(ctx, ContextKey, pc)
}

// Lookup is the typed form of Context.Lookup. It is safe to call on a nil
// Context.
func Lookup[T any](pc *Context, table string, id any) (*T, bool) {
	if pc == nil {
		return nil, false
	}
	v, ok := pc.Lookup(table, id)
	if !ok {
		return nil, false
	}
	e, ok := v.(*T)
	return e, ok
}

// Manage returns the managed instance for entity, attaching entity when
// none exists yet. Entities without a primary key are returned unchanged.
func Manage[T any](pc *Context, table string, entity *T) *T {
	if pc == nil || entity == nil {
		return entity
	}
	ident, ok := any(entity).(Identifiable)
	if !ok {
		return entity
	}
	id := ident.PrimaryKey()
	if existing, ok := Lookup[T](pc, table, id); ok {
		return existing
	}
	pc.Attach(table, id, entity)
	return entity
}

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

// DefaultPageSize is used when a PageRequest has no positive size.
const DefaultPageSize = 10

// QueryFilter describes a WHERE clause schema and its argument values.
type QueryFilter struct {
	Schema string
	Args   []interface{}
}

// NewQueryFilter creates a new query filter with schema and args.
func NewQueryFilter(schema string, args ...interface{}) *QueryFilter {
	return &QueryFilter{schema, args}
}

// PageRequest describes a zero-based page, an optional filter and ordering.
type PageRequest struct {
	page     int
	pageSize int
	filter   *QueryFilter
	sort     Sort
}

func (p *PageRequest) GetPageSize() int {
	if p.pageSize < 1 {
		p.pageSize = DefaultPageSize
	}
	return p.pageSize
}

func (p *PageRequest) GetPage() int {
	if p.page < 0 {
		p.page = 0
	}
	return p.page
}

func (p *PageRequest) GetOffset() int {
	return p.GetPage() * p.GetPageSize()
}

func (p *PageRequest) GetFilter() *QueryFilter {
	return p.filter
}

func (p *PageRequest) GetSort() Sort {
	return p.sort
}

// GetOrders returns the ordering as "column DIRECTION" expressions.
func (p *PageRequest) GetOrders() []string {
	return p.sort.Exprs()
}

// WithFilter returns a copy of the request restricted by filter.
func (p *PageRequest) WithFilter(filter *QueryFilter) *PageRequest {
	c := *p
	c.filter = filter
	return &c
}

// Next returns the request for the following page.
func (p *PageRequest) Next() *PageRequest {
	c := *p
	c.page = p.GetPage() + 1
	return &c
}

// NewPageRequest constructs a PageRequest with filter and sort settings.
func NewPageRequest(page int, pageSize int, filter *QueryFilter, sort Sort) *PageRequest {
	return &PageRequest{page, pageSize, filter, sort}
}

// PageOf constructs a sorted PageRequest without filter.
func PageOf(page int, pageSize int, sort Sort) *PageRequest {
	return NewPageRequest(page, pageSize, nil, sort)
}

// NewDefaultPageRequest constructs a PageRequest with no filter or ordering.
func NewDefaultPageRequest(page int, pageSize int) *PageRequest {
	return NewPageRequest(page, pageSize, nil, Unsorted())
}

// Page is one slice of a larger result along with its position in it.
type Page[T any] struct {
	Content       []*T `json:"content"`
	Number        int  `json:"number"`
	Size          int  `json:"size"`
	TotalElements int  `json:"total_elements"`
}

// NewPage builds the page of content requested by req out of total rows.
func NewPage[T any](content []*T, req *PageRequest, total int) *Page[T] {
	if content == nil {
		content = make([]*T, 0)
	}
	return &Page[T]{
		Content:       content,
		Number:        req.GetPage(),
		Size:          req.GetPageSize(),
		TotalElements: total,
	}
}

// TotalPages is 1 for an unsized page.
func (p *Page[T]) TotalPages() int {
	if p.Size <= 0 {
		return 1
	}
	return (p.TotalElements + p.Size - 1) / p.Size
}

func (p *Page[T]) NumberOfElements() int {
	return len(p.Content)
}

func (p *Page[T]) HasContent() bool {
	return len(p.Content) > 0
}

func (p *Page[T]) HasPrevious() bool {
	return p.Number > 0
}

func (p *Page[T]) HasNext() bool {
	return p.Number+1 < p.TotalPages()
}

func (p *Page[T]) IsFirst() bool {
	return !p.HasPrevious()
}

func (p *Page[T]) IsLast() bool {
	return !p.HasNext()
}

// MapPage converts the content of p with fn and keeps the paging metadata.
func MapPage[T any, R any](p *Page[T], fn func(*T) *R) *Page[R] {
	content := make([]*R, len(p.Content))
	for i, e := range p.Content {
		content[i] = fn(e)
	}
	return &Page[R]{
		Content:       content,
		Number:        p.Number,
		Size:          p.Size,
		TotalElements: p.TotalElements,
	}
}

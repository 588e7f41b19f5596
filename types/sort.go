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

import "strings"

// Order sorts by a single column.
type Order struct {
	Property  string
	Direction Direction
}

// Expr renders the order as "column DIRECTION". An invalid direction
// renders as ASC.
func (o Order) Expr() string {
	dir := o.Direction
	if !dir.IsValid() {
		dir = ASC
	}
	return o.Property + " " + dir.Name()
}

// Sort is an ordered list of Orders.
type Sort struct {
	orders []Order
}

// Unsorted returns a Sort without orders.
func Unsorted() Sort {
	return Sort{}
}

// By sorts by props, all in direction dir. An invalid dir sorts ascending.
func By(dir Direction, props ...string) Sort {
	if !dir.IsValid() {
		dir = ASC
	}
	orders := make([]Order, 0, len(props))
	for _, p := range props {
		if p = strings.TrimSpace(p); p != "" {
			orders = append(orders, Order{Property: p, Direction: dir})
		}
	}
	return Sort{orders: orders}
}

// ParseSort parses "username,desc" style expressions, one per argument. A
// missing or unknown direction means ASC.
func ParseSort(exprs ...string) Sort {
	var orders []Order
	for _, expr := range exprs {
		prop, dir, _ := strings.Cut(expr, ",")
		prop = strings.TrimSpace(prop)
		if prop == "" {
			continue
		}
		d, ok := ParseDirection(dir)
		if !ok {
			d = ASC
		}
		orders = append(orders, Order{Property: prop, Direction: d})
	}
	return Sort{orders: orders}
}

// And appends the orders of other.
func (s Sort) And(other Sort) Sort {
	orders := make([]Order, 0, len(s.orders)+len(other.orders))
	orders = append(orders, s.orders...)
	orders = append(orders, other.orders...)
	return Sort{orders: orders}
}

func (s Sort) Orders() []Order {
	return s.orders
}

func (s Sort) IsSorted() bool {
	return len(s.orders) > 0
}

// Exprs renders every order, e.g. []string{"username DESC"}.
func (s Sort) Exprs() []string {
	exprs := make([]string, len(s.orders))
	for i, o := range s.orders {
		exprs[i] = o.Expr()
	}
	return exprs
}

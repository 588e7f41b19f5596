// Package repository holds the record stores: a generic Bun repository with
// paging and upsert, the declarative-style MemberRepository and
// TeamRepository, and the hand-written MemberJpaRepository and
// TeamJpaRepository. Reads and writes go through the persistence context
// found in the request context, when there is one.
package repository

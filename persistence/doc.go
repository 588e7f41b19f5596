// Package persistence implements the first-level cache used by the
// repositories: an identity map scoped to a unit of work and carried in a
// context.Context.
package persistence

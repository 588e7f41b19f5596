// Package entity defines the Member and Team models and the MemberDto
// projection. Importing the package registers the models for migration.
package entity

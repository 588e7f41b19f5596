// Package datajpa is a member/team record store on Bun. It provides the
// generic Service, the MemberService and TeamService use cases and RunInTx,
// which runs work in a transaction with its own persistence context.
package datajpa

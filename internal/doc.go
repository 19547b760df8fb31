// Package internal documents the campus events server internals.
//
// The internal tree is organized by responsibility:
// - api: HTTP handlers, middleware, and routing
// - domain: business logic (accounts, sessions, organizers, events)
// - storage: database access and repositories (pgx + Postgres)
// - auth, audit, apperr, config, email, metrics: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
